package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optimaster/m/domain"
)

func TestApplyPaymentClampsBalanceAtZero(t *testing.T) {
	db := newTestDB(t)
	catalog := NewCatalog(db)
	ledger := NewLedger(db)
	proc := newProcessor(db)
	ctx := context.Background()

	supplierID := seedSupplier(t, db)
	item := seedItem(t, catalog, supplierID, "Nomad", 10, 20, 50)

	sale, err := proc.ProcessSale(ctx, SaleHeader{CustomerName: "Omar"},
		[]SaleLine{{ItemID: item.ID, Quantity: 2, UnitPrice: 50}})
	require.NoError(t, err)
	require.Equal(t, float64(100), sale.Balance)

	paid, err := ledger.ApplyPayment(ctx, sale.ID, 60)
	require.NoError(t, err)
	assert.Equal(t, float64(40), paid.Balance)
	assert.Equal(t, float64(60), paid.AdvancePaid)

	// Overpayment floors the balance at zero but keeps the cumulative
	// advancePaid honest.
	over, err := ledger.ApplyPayment(ctx, sale.ID, 100)
	require.NoError(t, err)
	assert.Zero(t, over.Balance)
	assert.Equal(t, float64(160), over.AdvancePaid)
}

func TestApplyPaymentValidation(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db)

	_, err := ledger.ApplyPayment(context.Background(), 1, 0)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = ledger.ApplyPayment(context.Background(), 1, 10)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListSalesNewestFirstWithItems(t *testing.T) {
	db := newTestDB(t)
	catalog := NewCatalog(db)
	ledger := NewLedger(db)
	proc := newProcessor(db)
	ctx := context.Background()

	supplierID := seedSupplier(t, db)
	item := seedItem(t, catalog, supplierID, "Pilot", 20, 25, 60)

	first, err := proc.ProcessSale(ctx, SaleHeader{CustomerName: "One"},
		[]SaleLine{{ItemID: item.ID, Quantity: 1, UnitPrice: 60}})
	require.NoError(t, err)
	second, err := proc.ProcessSale(ctx, SaleHeader{CustomerName: "Two"},
		[]SaleLine{{ItemID: item.ID, Quantity: 2, UnitPrice: 60}})
	require.NoError(t, err)

	sales, err := ledger.ListSales(ctx)
	require.NoError(t, err)
	require.Len(t, sales, 2)

	assert.Equal(t, second.ID, sales[0].ID)
	assert.Equal(t, first.ID, sales[1].ID)
	assert.Equal(t, domain.FormatSaleCode(second.ID), sales[0].Code)
	require.Len(t, sales[0].Items, 1)
	assert.Equal(t, int64(2), sales[0].Items[0].Quantity)
}

func TestGetSaleNotFound(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db)

	_, err := ledger.GetSale(context.Background(), 7)
	assert.ErrorIs(t, err, ErrNotFound)
}
