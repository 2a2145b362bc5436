package domain

type InventoryItem struct {
	ID           int64   `db:"id" json:"id"`
	Name         string  `db:"name" json:"name"`
	Category     string  `db:"category" json:"category"`
	SKU          string  `db:"sku" json:"sku"`
	Quantity     int64   `db:"quantity" json:"quantity"`
	CostPrice    float64 `db:"cost_price" json:"costPrice"`
	SellingPrice float64 `db:"selling_price" json:"sellingPrice"`
	SupplierID   int64   `db:"supplier_id" json:"supplierId"`
	Description  *string `db:"description" json:"description,omitempty"`
	CreatedAt    string  `db:"created_at" json:"createdAt"`
}
