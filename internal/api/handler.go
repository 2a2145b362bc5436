package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"optimaster/m/domain"
	"optimaster/m/internal/logger"
	"optimaster/m/internal/metrics"
	"optimaster/m/internal/store"
)

type ctxKey string

const (
	ctxUserID ctxKey = "userID"
	ctxName   ctxKey = "name"
)

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	db      *sqlx.DB
	catalog *store.Catalog
	ledger  *store.Ledger
	proc    *store.Processor
	secret  string
	log     *zap.Logger
}

// New constructs a Handler.
func New(db *sqlx.DB, secret string, log *zap.Logger) *Handler {
	return &Handler{
		db:      db,
		catalog: store.NewCatalog(db),
		ledger:  store.NewLedger(db),
		proc:    store.NewProcessor(db, log),
		secret:  secret,
		log:     log,
	}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	r.Use(logger.RequestLogger(h.log))
	r.Use(metrics.Middleware)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", h.login)

		r.Group(func(pr chi.Router) {
			pr.Use(h.authMiddleware)

			pr.Route("/suppliers", func(r chi.Router) {
				r.Get("/", h.listSuppliers)
				r.Post("/", h.createSupplier)
				r.Put("/{id}", h.updateSupplier)
			})

			pr.Route("/inventory", func(r chi.Router) {
				r.Get("/", h.listInventory)
				r.Post("/", h.createInventoryItem)
				r.Patch("/{id}/stock", h.restock)
			})

			pr.Route("/sales", func(r chi.Router) {
				r.Get("/", h.listSales)
				r.Post("/", h.createSale)
				r.Get("/{id}", h.getSale)
				r.Patch("/{id}/status", h.updateSaleStatus)
				r.Get("/{id}/invoice", h.saleInvoice)
			})

			pr.Route("/reports", func(r chi.Router) {
				r.Get("/sales/daily", h.dailySales)
				r.Get("/monthly", h.monthlyReport)
			})
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Authentication

type authClaims struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

func (h *Handler) generateToken(userID int64, name string) (string, error) {
	claims := authClaims{
		UserID: userID,
		Name:   name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.secret))
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		tokenString := strings.TrimSpace(header[len("Bearer "):])
		token, err := jwt.ParseWithClaims(tokenString, &authClaims{}, func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(h.secret), nil
		})
		if err != nil || !token.Valid {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		claims, ok := token.Claims.(*authClaims)
		if !ok {
			respondError(w, http.StatusUnauthorized, "invalid token claims")
			return
		}
		ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID)
		ctx = context.WithValue(ctx, ctxName, claims.Name)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var user domain.User
	err := h.db.GetContext(r.Context(), &user,
		`SELECT id, name, email, password FROM users WHERE email = $1`, strings.ToLower(req.Email))
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		respondError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, err := h.generateToken(user.ID, user.Name)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to generate token")
		return
	}

	user.Password = ""
	respondJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

// Suppliers

type supplierRequest struct {
	Name    string `json:"name"`
	Mobile  string `json:"mobile"`
	Address string `json:"address"`
}

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers := []domain.Supplier{}
	if err := h.db.SelectContext(r.Context(), &suppliers,
		`SELECT id, name, mobile, address, created_at FROM suppliers ORDER BY id DESC`); err != nil {
		h.serverError(w, "unable to list suppliers", err)
		return
	}
	respondJSON(w, http.StatusOK, suppliers)
}

func (h *Handler) createSupplier(w http.ResponseWriter, r *http.Request) {
	var req supplierRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" || req.Mobile == "" {
		respondError(w, http.StatusBadRequest, "name and mobile are required")
		return
	}
	res, err := h.db.ExecContext(r.Context(),
		`INSERT INTO suppliers (name, mobile, address) VALUES ($1, $2, $3)`, req.Name, req.Mobile, req.Address)
	if err != nil {
		h.serverError(w, "unable to create supplier", err)
		return
	}
	id, err := res.LastInsertId()
	if err != nil {
		h.serverError(w, "unable to create supplier", err)
		return
	}
	respondJSON(w, http.StatusCreated, domain.Supplier{ID: id, Name: req.Name, Mobile: req.Mobile, Address: req.Address})
}

func (h *Handler) updateSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid supplier id")
		return
	}
	var req supplierRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" || req.Mobile == "" {
		respondError(w, http.StatusBadRequest, "name and mobile are required")
		return
	}
	res, err := h.db.ExecContext(r.Context(),
		`UPDATE suppliers SET name = $1, mobile = $2, address = $3 WHERE id = $4`, req.Name, req.Mobile, req.Address, id)
	if err != nil {
		h.serverError(w, "unable to update supplier", err)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		respondError(w, http.StatusNotFound, "supplier not found")
		return
	}
	respondJSON(w, http.StatusOK, domain.Supplier{ID: id, Name: req.Name, Mobile: req.Mobile, Address: req.Address})
}

// Inventory

type inventoryRequest struct {
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	SKU          string  `json:"sku"`
	Quantity     int64   `json:"quantity"`
	CostPrice    float64 `json:"costPrice"`
	SellingPrice float64 `json:"sellingPrice"`
	SupplierID   int64   `json:"supplierId"`
	Description  *string `json:"description"`
}

func (h *Handler) listInventory(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.ListItems(r.Context())
	if err != nil {
		h.serverError(w, "unable to list inventory", err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

func (h *Handler) createInventoryItem(w http.ResponseWriter, r *http.Request) {
	var req inventoryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" || req.Category == "" || req.SKU == "" {
		respondError(w, http.StatusBadRequest, "name, category and sku are required")
		return
	}
	if req.SupplierID <= 0 {
		respondError(w, http.StatusBadRequest, "supplierId is required")
		return
	}
	item, err := h.catalog.CreateItem(r.Context(), domain.InventoryItem{
		Name:         req.Name,
		Category:     req.Category,
		SKU:          req.SKU,
		Quantity:     req.Quantity,
		CostPrice:    req.CostPrice,
		SellingPrice: req.SellingPrice,
		SupplierID:   req.SupplierID,
		Description:  req.Description,
	})
	if err != nil {
		h.storeError(w, "unable to add inventory item", err)
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

func (h *Handler) restock(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid inventory id")
		return
	}
	var payload struct {
		QuantityChange int64 `json:"quantityChange"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	qty, err := h.proc.Restock(r.Context(), id, payload.QuantityChange)
	if err != nil {
		h.storeError(w, "unable to restock item", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"id": id, "quantity": qty})
}

// Sales

type saleRequest struct {
	CustomerName   string           `json:"customerName"`
	CustomerEmail  *string          `json:"customerEmail"`
	CustomerMobile string           `json:"customerMobile"`
	CustomerPlace  string           `json:"customerPlace"`
	Items          []store.SaleLine `json:"items"`
	Discount       float64          `json:"discount"`
	AdvancePaid    float64          `json:"advancePaid"`
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.ledger.ListSales(r.Context())
	if err != nil {
		h.serverError(w, "unable to list sales", err)
		return
	}
	respondJSON(w, http.StatusOK, sales)
}

func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	sale, err := h.proc.ProcessSale(r.Context(), store.SaleHeader{
		CustomerName:   req.CustomerName,
		CustomerEmail:  req.CustomerEmail,
		CustomerMobile: req.CustomerMobile,
		CustomerPlace:  req.CustomerPlace,
		Discount:       req.Discount,
		AdvancePaid:    req.AdvancePaid,
	}, req.Items)
	if err != nil {
		h.storeError(w, "unable to process sale", err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"id":      sale.Code,
		"date":    sale.Date,
		"balance": sale.Balance,
		"status":  sale.Status,
	})
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseSaleID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid sale id")
		return
	}
	sale, err := h.ledger.GetSale(r.Context(), id)
	if err != nil {
		h.storeError(w, "unable to load sale", err)
		return
	}
	respondJSON(w, http.StatusOK, sale)
}

type statusRequest struct {
	Status          domain.SaleStatus `json:"status"`
	PaymentReceived float64           `json:"paymentReceived"`
}

func (h *Handler) updateSaleStatus(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseSaleID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid sale id")
		return
	}
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.proc.UpdateSaleStatus(r.Context(), id, req.Status, req.PaymentReceived); err != nil {
		h.storeError(w, "unable to update sale status", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Error mapping

// storeError translates store sentinel errors into HTTP responses. The
// message of an internal failure never reaches the caller; the log
// keeps the detail.
func (h *Handler) storeError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrInsufficientStock):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrInvalidTransition):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		h.serverError(w, msg, err)
	}
}

func (h *Handler) serverError(w http.ResponseWriter, msg string, err error) {
	h.log.Error(msg, zap.Error(err))
	respondError(w, http.StatusInternalServerError, msg)
}

// Helpers

func parseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
