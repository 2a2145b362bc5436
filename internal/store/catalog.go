package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"optimaster/m/domain"
)

const itemColumns = `id, name, category, sku, quantity, cost_price, selling_price, supplier_id, description, created_at`

// Catalog is the inventory item store.
type Catalog struct {
	db *sqlx.DB
}

// NewCatalog constructs a Catalog.
func NewCatalog(db *sqlx.DB) *Catalog {
	return &Catalog{db: db}
}

// GetItem loads one inventory item by id.
func (c *Catalog) GetItem(ctx context.Context, id int64) (domain.InventoryItem, error) {
	return getItem(ctx, c.db, id)
}

func getItem(ctx context.Context, q queryer, id int64) (domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := q.GetContext(ctx, &item, `SELECT `+itemColumns+` FROM inventory WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.InventoryItem{}, fmt.Errorf("inventory item %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.InventoryItem{}, err
	}
	return item, nil
}

// CreateItem persists a new inventory item. The referenced supplier
// must exist.
func (c *Catalog) CreateItem(ctx context.Context, item domain.InventoryItem) (domain.InventoryItem, error) {
	if item.Quantity < 0 || item.CostPrice < 0 || item.SellingPrice < 0 {
		return domain.InventoryItem{}, fmt.Errorf("quantity and prices must not be negative: %w", ErrValidation)
	}

	var exists bool
	if err := c.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM suppliers WHERE id = $1)`, item.SupplierID); err != nil {
		return domain.InventoryItem{}, err
	}
	if !exists {
		return domain.InventoryItem{}, fmt.Errorf("supplier %d: %w", item.SupplierID, ErrNotFound)
	}

	res, err := c.db.ExecContext(ctx,
		`INSERT INTO inventory (name, category, sku, quantity, cost_price, selling_price, supplier_id, description)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		item.Name, item.Category, item.SKU, item.Quantity, item.CostPrice, item.SellingPrice, item.SupplierID, item.Description)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.InventoryItem{}, err
	}
	return c.GetItem(ctx, id)
}

// ListItems returns all inventory items, most recently created first.
func (c *Catalog) ListItems(ctx context.Context) ([]domain.InventoryItem, error) {
	items := []domain.InventoryItem{}
	err := c.db.SelectContext(ctx, &items, `SELECT `+itemColumns+` FROM inventory ORDER BY id DESC`)
	return items, err
}

// AdjustQuantity applies quantity += delta and returns the updated
// quantity. The guarded single UPDATE is the only way stock is ever
// mutated: the read-modify-write happens inside the statement, so
// concurrent sales, cancellations and restocks cannot lose updates, and
// the stored quantity can never go negative.
func (c *Catalog) AdjustQuantity(ctx context.Context, id, delta int64) (int64, error) {
	return adjustQuantity(ctx, c.db, id, delta)
}

func adjustQuantity(ctx context.Context, q queryer, id, delta int64) (int64, error) {
	res, err := q.ExecContext(ctx,
		`UPDATE inventory SET quantity = quantity + $1 WHERE id = $2 AND quantity + $1 >= 0`, delta, id)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	var qty int64
	err = q.GetContext(ctx, &qty, `SELECT quantity FROM inventory WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("inventory item %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return qty, fmt.Errorf("inventory item %d has %d in stock, requested %d: %w", id, qty, -delta, ErrInsufficientStock)
	}
	return qty, nil
}
