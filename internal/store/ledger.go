package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"optimaster/m/domain"
)

const saleColumns = `id, customer_name, customer_email, customer_mobile, customer_place, sub_total, discount, total_price, advance_paid, balance, status, date`

// Ledger is the sale record store. Sales are append-mostly: once
// written they change only through payments and status transitions,
// never deletion.
type Ledger struct {
	db *sqlx.DB
}

// NewLedger constructs a Ledger.
func NewLedger(db *sqlx.DB) *Ledger {
	return &Ledger{db: db}
}

// GetSale loads one sale with its line items, accepting the bare
// numeric id.
func (l *Ledger) GetSale(ctx context.Context, id int64) (domain.Sale, error) {
	return getSale(ctx, l.db, id)
}

func getSale(ctx context.Context, q queryer, id int64) (domain.Sale, error) {
	var sale domain.Sale
	err := q.GetContext(ctx, &sale, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Sale{}, fmt.Errorf("sale %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.Sale{}, err
	}
	items, err := saleItems(ctx, q, id)
	if err != nil {
		return domain.Sale{}, err
	}
	sale.Items = items
	sale.Code = domain.FormatSaleCode(sale.ID)
	return sale, nil
}

func saleItems(ctx context.Context, q queryer, saleID int64) ([]domain.SaleItem, error) {
	items := []domain.SaleItem{}
	err := q.SelectContext(ctx, &items,
		`SELECT id, sale_id, item_id, name, sku, quantity, unit_price, unit_cost_price, sub_total
         FROM sale_items WHERE sale_id = $1 ORDER BY id`, saleID)
	return items, err
}

// ListSales returns all sales with their items, most recent first.
func (l *Ledger) ListSales(ctx context.Context) ([]domain.Sale, error) {
	sales := []domain.Sale{}
	if err := l.db.SelectContext(ctx, &sales, `SELECT `+saleColumns+` FROM sales ORDER BY date DESC, id DESC`); err != nil {
		return nil, err
	}
	if len(sales) == 0 {
		return sales, nil
	}

	ids := make([]int64, len(sales))
	for i, s := range sales {
		ids[i] = s.ID
	}
	query, args, err := sqlx.In(
		`SELECT id, sale_id, item_id, name, sku, quantity, unit_price, unit_cost_price, sub_total
         FROM sale_items WHERE sale_id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	rows := []domain.SaleItem{}
	if err := l.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	bySale := make(map[int64][]domain.SaleItem)
	for _, row := range rows {
		bySale[row.SaleID] = append(bySale[row.SaleID], row)
	}
	for i := range sales {
		items := bySale[sales[i].ID]
		if items == nil {
			items = []domain.SaleItem{}
		}
		sales[i].Items = items
		sales[i].Code = domain.FormatSaleCode(sales[i].ID)
	}
	return sales, nil
}

// ApplyPayment atomically records a payment against a sale: advancePaid
// grows by amount and balance shrinks, floored at zero.
func (l *Ledger) ApplyPayment(ctx context.Context, id int64, amount float64) (domain.Sale, error) {
	if amount <= 0 {
		return domain.Sale{}, fmt.Errorf("payment amount must be positive: %w", ErrValidation)
	}
	if err := applyPayment(ctx, l.db, id, amount); err != nil {
		return domain.Sale{}, err
	}
	return l.GetSale(ctx, id)
}

func applyPayment(ctx context.Context, q queryer, id int64, amount float64) error {
	res, err := q.ExecContext(ctx,
		`UPDATE sales SET advance_paid = advance_paid + $1, balance = MAX(0, balance - $1) WHERE id = $2`, amount, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("sale %d: %w", id, ErrNotFound)
	}
	return nil
}

// SetStatus stores a new status without lifecycle checks. Callers that
// need the transition rules go through the processor.
func (l *Ledger) SetStatus(ctx context.Context, id int64, status domain.SaleStatus) (domain.Sale, error) {
	if err := setStatus(ctx, l.db, id, status); err != nil {
		return domain.Sale{}, err
	}
	return l.GetSale(ctx, id)
}

func setStatus(ctx context.Context, q queryer, id int64, status domain.SaleStatus) error {
	res, err := q.ExecContext(ctx, `UPDATE sales SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("sale %d: %w", id, ErrNotFound)
	}
	return nil
}

// createSale persists the sale header and every line item as one unit.
// It must be called inside a transaction; partial sales are never
// visible.
func createSale(ctx context.Context, q queryer, sale domain.Sale) (int64, error) {
	res, err := q.ExecContext(ctx,
		`INSERT INTO sales (customer_name, customer_email, customer_mobile, customer_place, sub_total, discount, total_price, advance_paid, balance, status, date)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		sale.CustomerName, sale.CustomerEmail, sale.CustomerMobile, sale.CustomerPlace,
		sale.SubTotal, sale.Discount, sale.TotalPrice, sale.AdvancePaid, sale.Balance, sale.Status, sale.Date)
	if err != nil {
		return 0, err
	}
	saleID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, item := range sale.Items {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO sale_items (sale_id, item_id, name, sku, quantity, unit_price, unit_cost_price, sub_total)
             VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			saleID, item.ItemID, item.Name, item.SKU, item.Quantity, item.UnitPrice, item.UnitCostPrice, item.SubTotal); err != nil {
			return 0, err
		}
	}
	return saleID, nil
}
