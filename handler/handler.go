package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pos-terminal/cart"
	"pos-terminal/model"
	"pos-terminal/orderclient"
	"pos-terminal/service"
)

// Handler is the HTTP layer that talks to service.Service
type Handler struct {
	svc service.ServiceInterface
	log *zap.Logger
}

// NewHandler returns a Handler instance
func NewHandler(s service.ServiceInterface, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: s, log: log}
}

// RegisterRoutes registers all routes on the provided router
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.Use(h.logRequests)

	// Catalog
	r.HandleFunc("/catalog/products", h.ListProducts).Methods("GET")
	r.HandleFunc("/catalog/categories", h.ListCategories).Methods("GET")
	r.HandleFunc("/catalog/suggest", h.Suggest).Methods("GET")
	r.HandleFunc("/catalog/refresh", h.RefreshCatalog).Methods("POST")

	// Cart
	r.HandleFunc("/cart", h.GetCart).Methods("GET")
	r.HandleFunc("/cart/add", h.AddToCart).Methods("POST")
	r.HandleFunc("/cart/quantity", h.ChangeQuantity).Methods("POST")
	r.HandleFunc("/cart/remove", h.RemoveFromCart).Methods("POST")
	r.HandleFunc("/cart/clear", h.ClearCart).Methods("POST")

	// Checkout
	r.HandleFunc("/checkout/order", h.Checkout).Methods("POST")

	// Orders
	r.HandleFunc("/orders", h.ListOrders).Methods("GET")
	r.HandleFunc("/orders/{id:[0-9]+}", h.GetOrder).Methods("GET")
	r.HandleFunc("/orders/{id:[0-9]+}", h.DeleteOrder).Methods("DELETE")
	r.HandleFunc("/orders/{id:[0-9]+}/status", h.UpdateOrderStatus).Methods("PATCH")
	r.HandleFunc("/orders/{id:[0-9]+}/items", h.AddOrderItem).Methods("POST")
	r.HandleFunc("/orders/{id:[0-9]+}/items/{itemID:[0-9]+}", h.UpdateOrderItem).Methods("PUT")
	r.HandleFunc("/orders/{id:[0-9]+}/items/{itemID:[0-9]+}", h.RemoveOrderItem).Methods("DELETE")
}

// --- request / response shapes ---
type cartReq struct {
	UserID    int64 `json:"user_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity,omitempty"` // optional for add, defaults to 1
}

type quantityReq struct {
	UserID    int64 `json:"user_id"`
	ProductID int64 `json:"product_id"`
	Delta     *int  `json:"delta,omitempty"`
	Quantity  *int  `json:"quantity,omitempty"`
}

type statusReq struct {
	Status string `json:"status"`
}

type orderItemReq struct {
	ProductID int64            `json:"product_id"`
	Quantity  int              `json:"quantity"`
	Price     *decimal.Decimal `json:"price,omitempty"`
}

type orderItemUpdateReq struct {
	Quantity *int             `json:"quantity,omitempty"`
	Price    *decimal.Decimal `json:"price,omitempty"`
}

// --- helpers ---
func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeServiceErr maps service, cart and Order Service errors to status codes.
func writeServiceErr(w http.ResponseWriter, err error) {
	var (
		serr   *cart.SubmitError
		apiErr *orderclient.APIError
	)
	switch {
	case errors.As(err, &serr):
		code := http.StatusBadGateway
		if errors.As(serr.Err, &apiErr) && apiErr.StatusCode < 500 {
			code = http.StatusBadRequest
		}
		writeErr(w, code, serr.Message)
	case errors.Is(err, service.ErrProductNotFound), errors.Is(err, orderclient.ErrNotFound):
		writeErr(w, http.StatusNotFound, err.Error())
	case errors.Is(err, cart.ErrSubmitInProgress), errors.Is(err, service.ErrOrderClosed):
		writeErr(w, http.StatusConflict, err.Error())
	case errors.Is(err, cart.ErrEmptyCart),
		errors.Is(err, cart.ErrNoUser),
		errors.Is(err, service.ErrInvalidUser),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrQuantityLimit),
		errors.Is(err, service.ErrInvalidPrice),
		errors.Is(err, service.ErrInvalidOrder),
		errors.Is(err, service.ErrNothingToUpdate),
		errors.Is(err, model.ErrInvalidStatus):
		writeErr(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &apiErr) && apiErr.StatusCode < 500:
		writeErr(w, apiErr.StatusCode, apiErr.Error())
	default:
		writeErr(w, http.StatusBadGateway, err.Error())
	}
}

func pathID(r *http.Request, name string) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.log.Debug("request",
			zap.String("method", r.Method), zap.String("path", r.URL.Path),
			zap.Int("status", rec.status), zap.Duration("elapsed", time.Since(start)))
	})
}

// --- Catalog ---

// ListProducts handles GET /catalog/products?q=...&category_id=...
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	var categoryID *int64
	if raw := r.URL.Query().Get("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "invalid category_id")
			return
		}
		categoryID = &id
	}
	ps := h.svc.Products(r.URL.Query().Get("q"), categoryID)
	writeJSON(w, http.StatusOK, map[string]interface{}{"products": ps, "total": len(ps)})
}

// ListCategories handles GET /catalog/categories
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"categories": h.svc.Categories()})
}

// Suggest handles GET /catalog/suggest?q=...
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"products": h.svc.Suggest(r.URL.Query().Get("q"))})
}

// RefreshCatalog handles POST /catalog/refresh
func (h *Handler) RefreshCatalog(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RefreshCatalog(r.Context()); err != nil {
		h.log.Warn("catalog refresh failed", zap.Error(err))
		writeErr(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

// --- Cart ---

// GetCart handles GET /cart?user_id=...
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		writeErr(w, http.StatusBadRequest, "user_id required")
		return
	}
	view, err := h.svc.GetCart(userID)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// AddToCart handles POST /cart/add
// body: { "user_id": 1, "product_id": 1, "quantity": 2 }
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req cartReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	view, err := h.svc.AddToCart(req.UserID, req.ProductID, req.Quantity)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ChangeQuantity handles POST /cart/quantity
// body: { "user_id": 1, "product_id": 1, "delta": -1 } or { ..., "quantity": 3 }
func (h *Handler) ChangeQuantity(w http.ResponseWriter, r *http.Request) {
	var req quantityReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	var (
		view service.CartDTO
		err  error
	)
	switch {
	case req.Delta != nil && req.Quantity != nil:
		writeErr(w, http.StatusBadRequest, "send either delta or quantity")
		return
	case req.Delta != nil:
		view, err = h.svc.ChangeQuantity(req.UserID, req.ProductID, *req.Delta)
	case req.Quantity != nil:
		view, err = h.svc.SetQuantity(req.UserID, req.ProductID, *req.Quantity)
	default:
		writeErr(w, http.StatusBadRequest, "delta or quantity required")
		return
	}
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// RemoveFromCart handles POST /cart/remove
// body: { "user_id": 1, "product_id": 1 }
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	var req cartReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	view, err := h.svc.RemoveFromCart(req.UserID, req.ProductID)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ClearCart handles POST /cart/clear
// body: { "user_id": 1 }
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	var req cartReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	view, err := h.svc.ClearCart(req.UserID)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Checkout handles POST /checkout/order
// body: { "user_id": 1 }
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID int64 `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	ord, err := h.svc.Checkout(r.Context(), req.UserID)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ord)
}

// --- Orders ---

// ListOrders handles GET /orders?status=...&user_id=...
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	var userID int64
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeErr(w, http.StatusBadRequest, "invalid user_id")
			return
		}
		userID = id
	}
	orders, err := h.svc.ListOrders(r.Context(), r.URL.Query().Get("status"), userID)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"orders": orders, "total": len(orders)})
}

// GetOrder handles GET /orders/{id}
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.GetOrder(r.Context(), pathID(r, "id"))
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// UpdateOrderStatus handles PATCH /orders/{id}/status
// body: { "status": "ready" }
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	o, err := h.svc.UpdateOrderStatus(r.Context(), pathID(r, "id"), req.Status)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// AddOrderItem handles POST /orders/{id}/items
// body: { "product_id": 1, "quantity": 2, "price": 3.5 } (price optional)
func (h *Handler) AddOrderItem(w http.ResponseWriter, r *http.Request) {
	var req orderItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	o, err := h.svc.AddOrderItem(r.Context(), pathID(r, "id"), req.ProductID, req.Quantity, req.Price)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// UpdateOrderItem handles PUT /orders/{id}/items/{itemID}
func (h *Handler) UpdateOrderItem(w http.ResponseWriter, r *http.Request) {
	var req orderItemUpdateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	o, err := h.svc.UpdateOrderItem(r.Context(), pathID(r, "id"), pathID(r, "itemID"), req.Quantity, req.Price)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// RemoveOrderItem handles DELETE /orders/{id}/items/{itemID}
func (h *Handler) RemoveOrderItem(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.RemoveOrderItem(r.Context(), pathID(r, "id"), pathID(r, "itemID"))
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// DeleteOrder handles DELETE /orders/{id}
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteOrder(r.Context(), pathID(r, "id")); err != nil {
		writeServiceErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
