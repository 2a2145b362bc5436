package domain

import (
	"strconv"
	"strings"
)

// SaleStatus is the lifecycle state of a sale.
type SaleStatus string

const (
	StatusPending   SaleStatus = "Pending"
	StatusCompleted SaleStatus = "Completed"
	StatusCancelled SaleStatus = "Cancelled"
)

// Valid reports whether s is a known status.
func (s SaleStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether a sale may move from one status to
// another. Cancelled is terminal. A same-status update is allowed so a
// payment can be recorded without changing state.
func CanTransition(from, to SaleStatus) bool {
	switch {
	case from == StatusCancelled:
		return false
	case from == to:
		return true
	case from == StatusPending:
		return to == StatusCompleted || to == StatusCancelled
	case from == StatusCompleted:
		return to == StatusCancelled
	}
	return false
}

// saleCodePrefix distinguishes customer-facing invoice numbers from raw
// database ids.
const saleCodePrefix = "INV-"

// FormatSaleCode renders the customer-facing invoice number for a sale id.
func FormatSaleCode(id int64) string {
	return saleCodePrefix + strconv.FormatInt(id, 10)
}

// ParseSaleID resolves a sale identifier in either the prefixed
// ("INV-42") or bare numeric ("42") form.
func ParseSaleID(s string) (int64, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), saleCodePrefix)
	return strconv.ParseInt(s, 10, 64)
}

type Sale struct {
	ID             int64      `db:"id" json:"-"`
	Code           string     `db:"-" json:"id"`
	CustomerName   string     `db:"customer_name" json:"customerName"`
	CustomerEmail  *string    `db:"customer_email" json:"customerEmail,omitempty"`
	CustomerMobile string     `db:"customer_mobile" json:"customerMobile"`
	CustomerPlace  string     `db:"customer_place" json:"customerPlace"`
	Items          []SaleItem `db:"-" json:"items"`
	SubTotal       float64    `db:"sub_total" json:"subTotal"`
	Discount       float64    `db:"discount" json:"discount"`
	TotalPrice     float64    `db:"total_price" json:"totalPrice"`
	AdvancePaid    float64    `db:"advance_paid" json:"advancePaid"`
	Balance        float64    `db:"balance" json:"balance"`
	Status         SaleStatus `db:"status" json:"status"`
	Date           string     `db:"date" json:"date"`
}

// SaleItem is a line within a sale. Name, sku and cost are snapshots
// taken at sale time; later edits to the inventory item must not change
// historical sales or profit reporting.
type SaleItem struct {
	ID            int64   `db:"id" json:"-"`
	SaleID        int64   `db:"sale_id" json:"-"`
	ItemID        int64   `db:"item_id" json:"itemId"`
	Name          string  `db:"name" json:"name"`
	SKU           string  `db:"sku" json:"sku"`
	Quantity      int64   `db:"quantity" json:"quantity"`
	UnitPrice     float64 `db:"unit_price" json:"unitPrice"`
	UnitCostPrice float64 `db:"unit_cost_price" json:"unitCostPrice"`
	SubTotal      float64 `db:"sub_total" json:"subTotal"`
}
