package store

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"optimaster/m/domain"
	"optimaster/m/internal/database"
	"optimaster/m/internal/migrations"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Run(db))
	return db
}

func seedSupplier(t *testing.T, db *sqlx.DB) int64 {
	t.Helper()
	res, err := db.Exec(`INSERT INTO suppliers (name, mobile, address) VALUES ($1, $2, $3)`,
		"Visionware Traders", "9876501234", "12 Market Road")
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func seedItem(t *testing.T, c *Catalog, supplierID int64, name string, qty int64, cost, sell float64) domain.InventoryItem {
	t.Helper()
	item, err := c.CreateItem(context.Background(), domain.InventoryItem{
		Name:         name,
		Category:     "Frames",
		SKU:          "SKU-" + name,
		Quantity:     qty,
		CostPrice:    cost,
		SellingPrice: sell,
		SupplierID:   supplierID,
	})
	require.NoError(t, err)
	return item
}

func newProcessor(db *sqlx.DB) *Processor {
	return NewProcessor(db, zap.NewNop())
}
