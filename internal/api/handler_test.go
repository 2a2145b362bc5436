package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"optimaster/m/internal/database"
	"optimaster/m/internal/migrations"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Run(db))

	hashed, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.DefaultCost)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO users (name, email, password) VALUES ($1, $2, $3)`,
		"Owner", "owner@shop.test", string(hashed))
	require.NoError(t, err)

	return New(db, "test_secret", zap.NewNop()).Router()
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest))
}

func loginAs(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/login", "", map[string]string{
		"email":    "owner@shop.test",
		"password": "letmein",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	decodeBody(t, rec, &resp)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestLoginRejectsInvalidCredentials(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/api/login", "", map[string]string{
		"email":    "owner@shop.test",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/login", "", map[string]string{
		"email":    "nobody@shop.test",
		"password": "letmein",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h, http.MethodGet, "/api/inventory", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/sales", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthIsPublic(t *testing.T) {
	h := newTestHandler(t)
	rec := doJSON(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func createFixtures(t *testing.T, h http.Handler, token string) (supplierID, itemID int64) {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/suppliers", token, map[string]any{
		"name":    "Visionware Traders",
		"mobile":  "9876501234",
		"address": "12 Market Road",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var supplier struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, rec, &supplier)

	rec = doJSON(t, h, http.MethodPost, "/api/inventory", token, map[string]any{
		"name":         "Aviator Classic",
		"category":     "Frames",
		"sku":          "AVC-100",
		"quantity":     10,
		"costPrice":    50,
		"sellingPrice": 100,
		"supplierId":   supplier.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var item struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, rec, &item)
	return supplier.ID, item.ID
}

func itemQuantity(t *testing.T, h http.Handler, token string, itemID int64) int64 {
	t.Helper()
	rec := doJSON(t, h, http.MethodGet, "/api/inventory", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var items []struct {
		ID       int64 `json:"id"`
		Quantity int64 `json:"quantity"`
	}
	decodeBody(t, rec, &items)
	for _, it := range items {
		if it.ID == itemID {
			return it.Quantity
		}
	}
	t.Fatalf("item %d not in inventory listing", itemID)
	return 0
}

func TestSaleLifecycleOverHTTP(t *testing.T) {
	h := newTestHandler(t)
	token := loginAs(t, h)
	_, itemID := createFixtures(t, h, token)

	rec := doJSON(t, h, http.MethodPost, "/api/sales", token, map[string]any{
		"customerName":   "Meera Nair",
		"customerMobile": "9000011111",
		"customerPlace":  "Kochi",
		"items": []map[string]any{
			{"itemId": itemID, "quantity": 3, "unitPrice": 100},
		},
		"discount":    0,
		"advancePaid": 150,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID      string  `json:"id"`
		Balance float64 `json:"balance"`
		Status  string  `json:"status"`
	}
	decodeBody(t, rec, &created)
	assert.Equal(t, "INV-1", created.ID)
	assert.Equal(t, float64(150), created.Balance)
	assert.Equal(t, "Pending", created.Status)
	assert.Equal(t, int64(7), itemQuantity(t, h, token, itemID))

	// Status update accepts the prefixed invoice number.
	rec = doJSON(t, h, http.MethodPatch, "/api/sales/INV-1/status", token, map[string]any{
		"status":          "Completed",
		"paymentReceived": 150,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// And the bare numeric id.
	rec = doJSON(t, h, http.MethodGet, "/api/sales/1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sale struct {
		ID          string  `json:"id"`
		Status      string  `json:"status"`
		Balance     float64 `json:"balance"`
		AdvancePaid float64 `json:"advancePaid"`
		Items       []struct {
			UnitCostPrice float64 `json:"unitCostPrice"`
		} `json:"items"`
	}
	decodeBody(t, rec, &sale)
	assert.Equal(t, "INV-1", sale.ID)
	assert.Equal(t, "Completed", sale.Status)
	assert.Zero(t, sale.Balance)
	assert.Equal(t, float64(300), sale.AdvancePaid)
	require.Len(t, sale.Items, 1)
	assert.Equal(t, float64(50), sale.Items[0].UnitCostPrice)

	// Cancelling the completed sale returns the stock.
	rec = doJSON(t, h, http.MethodPatch, "/api/sales/1/status", token, map[string]any{
		"status": "Cancelled",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(10), itemQuantity(t, h, token, itemID))

	// A second cancellation is rejected and restores nothing.
	rec = doJSON(t, h, http.MethodPatch, "/api/sales/INV-1/status", token, map[string]any{
		"status": "Cancelled",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, int64(10), itemQuantity(t, h, token, itemID))
}

func TestCreateSaleUnknownItemRejectsWholeRequest(t *testing.T) {
	h := newTestHandler(t)
	token := loginAs(t, h)
	_, itemID := createFixtures(t, h, token)

	rec := doJSON(t, h, http.MethodPost, "/api/sales", token, map[string]any{
		"customerName": "Dev",
		"items": []map[string]any{
			{"itemId": itemID, "quantity": 2, "unitPrice": 100},
			{"itemId": 9999, "quantity": 1, "unitPrice": 100},
		},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, int64(10), itemQuantity(t, h, token, itemID))

	rec = doJSON(t, h, http.MethodGet, "/api/sales", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sales []json.RawMessage
	decodeBody(t, rec, &sales)
	assert.Empty(t, sales)
}

func TestRestockEndpoint(t *testing.T) {
	h := newTestHandler(t)
	token := loginAs(t, h)
	_, itemID := createFixtures(t, h, token)

	path := fmt.Sprintf("/api/inventory/%d/stock", itemID)
	rec := doJSON(t, h, http.MethodPatch, path, token, map[string]any{"quantityChange": 5})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Quantity int64 `json:"quantity"`
	}
	decodeBody(t, rec, &resp)
	assert.Equal(t, int64(15), resp.Quantity)

	rec = doJSON(t, h, http.MethodPatch, path, token, map[string]any{"quantityChange": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPatch, "/api/inventory/9999/stock", token, map[string]any{"quantityChange": 5})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateInventoryRejectsUnknownSupplier(t *testing.T) {
	h := newTestHandler(t)
	token := loginAs(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/inventory", token, map[string]any{
		"name":         "Orphan",
		"category":     "Frames",
		"sku":          "ORF-1",
		"quantity":     1,
		"costPrice":    10,
		"sellingPrice": 20,
		"supplierId":   404,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInsufficientStockSurfacesAsConflict(t *testing.T) {
	h := newTestHandler(t)
	token := loginAs(t, h)
	_, itemID := createFixtures(t, h, token)

	rec := doJSON(t, h, http.MethodPost, "/api/sales", token, map[string]any{
		"customerName": "Big Order",
		"items": []map[string]any{
			{"itemId": itemID, "quantity": 11, "unitPrice": 100},
		},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, int64(10), itemQuantity(t, h, token, itemID))
}

func TestSaleInvoicePDF(t *testing.T) {
	h := newTestHandler(t)
	token := loginAs(t, h)
	_, itemID := createFixtures(t, h, token)

	rec := doJSON(t, h, http.MethodPost, "/api/sales", token, map[string]any{
		"customerName": "Meera Nair",
		"items": []map[string]any{
			{"itemId": itemID, "quantity": 1, "unitPrice": 100},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/sales/INV-1/invoice", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}
