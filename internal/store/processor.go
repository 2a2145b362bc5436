package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"optimaster/m/domain"
	"optimaster/m/internal/metrics"
)

// Processor coordinates the multi-step writes that touch both the
// catalog and the sale ledger. Every public method executes as a single
// database transaction: either every effect is durably visible or none
// is. A half-applied sale (stock decremented with no invoice, or the
// reverse) would corrupt the inventory/ledger relationship permanently,
// since nothing reconciles them after the fact.
type Processor struct {
	db  *sqlx.DB
	log *zap.Logger
}

// NewProcessor constructs a Processor.
func NewProcessor(db *sqlx.DB, log *zap.Logger) *Processor {
	return &Processor{db: db, log: log}
}

// SaleLine is one requested line of a new sale.
type SaleLine struct {
	ItemID    int64   `json:"itemId"`
	Quantity  int64   `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// SaleHeader carries the customer and payment fields of a new sale.
type SaleHeader struct {
	CustomerName   string
	CustomerEmail  *string
	CustomerMobile string
	CustomerPlace  string
	Discount       float64
	AdvancePaid    float64
}

const dateLayout = "2006-01-02 15:04:05"

// ProcessSale creates a sale: it snapshots each item's name, sku and
// cost price as of right now, computes the totals server-side, persists
// the header and line items, and decrements stock per line. The sale
// starts in Pending.
//
// Totals follow the documented arithmetic: subTotal is the sum of
// quantity*unitPrice over the lines, totalPrice = max(0,
// subTotal-discount) (an oversized discount clamps to a free sale
// rather than failing it), and balance = max(0, totalPrice-advancePaid).
func (p *Processor) ProcessSale(ctx context.Context, header SaleHeader, lines []SaleLine) (domain.Sale, error) {
	if len(lines) == 0 {
		return domain.Sale{}, fmt.Errorf("sale has no items: %w", ErrValidation)
	}
	if header.CustomerName == "" {
		return domain.Sale{}, fmt.Errorf("customerName is required: %w", ErrValidation)
	}
	if header.Discount < 0 || header.AdvancePaid < 0 {
		return domain.Sale{}, fmt.Errorf("discount and advancePaid must not be negative: %w", ErrValidation)
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return domain.Sale{}, fmt.Errorf("item %d: quantity must be positive: %w", line.ItemID, ErrValidation)
		}
		if line.UnitPrice < 0 {
			return domain.Sale{}, fmt.Errorf("item %d: unitPrice must not be negative: %w", line.ItemID, ErrValidation)
		}
	}

	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Sale{}, err
	}
	defer tx.Rollback()

	sale := domain.Sale{
		CustomerName:   header.CustomerName,
		CustomerEmail:  header.CustomerEmail,
		CustomerMobile: header.CustomerMobile,
		CustomerPlace:  header.CustomerPlace,
		Discount:       header.Discount,
		AdvancePaid:    header.AdvancePaid,
		Status:         domain.StatusPending,
		Date:           time.Now().UTC().Format(dateLayout),
	}

	for _, line := range lines {
		item, err := getItem(ctx, tx, line.ItemID)
		if err != nil {
			return domain.Sale{}, err
		}
		sub := float64(line.Quantity) * line.UnitPrice
		sale.SubTotal += sub
		sale.Items = append(sale.Items, domain.SaleItem{
			ItemID:        item.ID,
			Name:          item.Name,
			SKU:           item.SKU,
			Quantity:      line.Quantity,
			UnitPrice:     line.UnitPrice,
			UnitCostPrice: item.CostPrice,
			SubTotal:      sub,
		})
	}
	sale.TotalPrice = math.Max(0, sale.SubTotal-sale.Discount)
	sale.Balance = math.Max(0, sale.TotalPrice-sale.AdvancePaid)

	saleID, err := createSale(ctx, tx, sale)
	if err != nil {
		return domain.Sale{}, err
	}
	for _, line := range lines {
		if _, err := adjustQuantity(ctx, tx, line.ItemID, -line.Quantity); err != nil {
			return domain.Sale{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.Sale{}, err
	}

	sale.ID = saleID
	sale.Code = domain.FormatSaleCode(saleID)
	for i := range sale.Items {
		sale.Items[i].SaleID = saleID
	}
	metrics.SalesProcessed.Inc()
	p.log.Info("sale processed",
		zap.String("sale", sale.Code),
		zap.Int("items", len(sale.Items)),
		zap.Float64("total", sale.TotalPrice),
		zap.Float64("balance", sale.Balance),
	)
	return sale, nil
}

// UpdateSaleStatus transitions a sale through its lifecycle, optionally
// recording a payment first. Moving into Cancelled applies the
// compensating action: every line item's quantity is returned to stock.
// Cancelled is terminal, so a cancellation can never restore stock
// twice.
func (p *Processor) UpdateSaleStatus(ctx context.Context, saleID int64, newStatus domain.SaleStatus, paymentReceived float64) error {
	if !newStatus.Valid() {
		return fmt.Errorf("unknown status %q: %w", newStatus, ErrValidation)
	}
	if paymentReceived < 0 {
		return fmt.Errorf("paymentReceived must not be negative: %w", ErrValidation)
	}

	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	current, err := saleStatus(ctx, tx, saleID)
	if err != nil {
		return err
	}
	if !domain.CanTransition(current, newStatus) {
		return fmt.Errorf("sale %s: %s -> %s: %w", domain.FormatSaleCode(saleID), current, newStatus, ErrInvalidTransition)
	}

	if paymentReceived > 0 {
		if err := applyPayment(ctx, tx, saleID, paymentReceived); err != nil {
			return err
		}
	}
	if err := setStatus(ctx, tx, saleID, newStatus); err != nil {
		return err
	}

	if newStatus == domain.StatusCancelled {
		items, err := saleItems(ctx, tx, saleID)
		if err != nil {
			return err
		}
		for _, item := range items {
			if _, err := adjustQuantity(ctx, tx, item.ItemID, item.Quantity); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	if newStatus == domain.StatusCancelled {
		metrics.SalesCancelled.Inc()
	}
	p.log.Info("sale status updated",
		zap.String("sale", domain.FormatSaleCode(saleID)),
		zap.String("from", string(current)),
		zap.String("to", string(newStatus)),
		zap.Float64("payment", paymentReceived),
	)
	return nil
}

// Restock increases an inventory item's quantity outside of any sale.
// The single guarded UPDATE is already atomic, so no surrounding
// transaction is needed.
func (p *Processor) Restock(ctx context.Context, itemID, quantity int64) (int64, error) {
	if quantity <= 0 {
		return 0, fmt.Errorf("restock quantity must be positive: %w", ErrValidation)
	}
	qty, err := adjustQuantity(ctx, p.db, itemID, quantity)
	if err != nil {
		return 0, err
	}
	p.log.Info("item restocked", zap.Int64("item_id", itemID), zap.Int64("added", quantity), zap.Int64("quantity", qty))
	return qty, nil
}

func saleStatus(ctx context.Context, q queryer, id int64) (domain.SaleStatus, error) {
	var status domain.SaleStatus
	err := q.GetContext(ctx, &status, `SELECT status FROM sales WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("sale %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	return status, nil
}
