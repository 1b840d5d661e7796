package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/acougue-online/storefront/internal/orders"
	"github.com/acougue-online/storefront/internal/redisx"
)

type OrdersHandler struct {
	Checkout *orders.Checkout
	Store    orders.Store
	Redis    *redis.Client // optional status cache
	Logger   *zap.Logger
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.create)
	r.Get("/orders", h.list)
	r.Get("/orders/{id}", h.get)
	r.Get("/orders/{id}/status", h.getStatus)
}

// create checks out the caller's cart, or an explicit item/kit selection when
// the body names one. Prices in the body are not part of the schema and are
// ignored.
func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var in orders.CheckoutInput
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
	}

	o, err := h.Checkout.CreateOrder(r.Context(), user, in)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	// prime the status cache so the first status poll skips the DB
	if h.Redis != nil {
		statusKey := fmt.Sprintf(redisx.KeyOrderStatus, o.UserID, o.ID)
		_ = h.Redis.Set(r.Context(), statusKey, fmt.Sprintf(`{"status":%q}`, o.Status), redisx.TTLStatusCache).Err()
	}

	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	out, err := h.Store.ListByUser(r.Context(), user.UserID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	o, err := h.Store.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	// hide other users' orders rather than acknowledging them
	if o.UserID != user.UserID && !user.IsAdmin {
		writeError(w, h.Logger, orders.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	orderID := chi.URLParam(r, "id")

	// the cache key carries the owner, so only the owner can hit it
	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrderStatus, user.UserID, orderID)
		if s, err := h.Redis.Get(r.Context(), key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	o, err := h.Store.GetByID(r.Context(), orderID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if o.UserID != user.UserID && !user.IsAdmin {
		writeError(w, h.Logger, orders.ErrNotFound)
		return
	}
	body, _ := json.Marshal(map[string]any{"status": o.Status})
	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrderStatus, o.UserID, o.ID)
		_ = h.Redis.Set(r.Context(), key, body, redisx.TTLStatusCache).Err()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
