package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/acougue-online/storefront/internal/auth"
	"github.com/acougue-online/storefront/internal/cart"
	"github.com/acougue-online/storefront/internal/telemetry"
)

type CartHandler struct {
	Carts  *cart.Service
	Logger *zap.Logger
}

func (h *CartHandler) Register(r chi.Router) {
	r.Get("/cart", h.list)
	r.Post("/cart/items", h.addItem)
	r.Delete("/cart/items/{productID}", h.removeItem)
	r.Delete("/cart", h.clear)
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

// list degrades to an empty cart for anonymous callers instead of erroring.
func (h *CartHandler) list(w http.ResponseWriter, r *http.Request) {
	userID := ""
	if id, ok := auth.FromContext(r.Context()); ok {
		userID = id.UserID
	}
	items, err := h.Carts.Items(r.Context(), userID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *CartHandler) addItem(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.ProductID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing product_id"})
		return
	}
	if err := h.Carts.AddItem(r.Context(), id.UserID, req.ProductID, req.Qty); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	telemetry.CartMutations.WithLabelValues("add").Inc()
	h.respondWithCart(w, r, id.UserID)
}

func (h *CartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.Carts.RemoveItem(r.Context(), id.UserID, chi.URLParam(r, "productID")); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	telemetry.CartMutations.WithLabelValues("remove").Inc()
	h.respondWithCart(w, r, id.UserID)
}

func (h *CartHandler) clear(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.Carts.Clear(r.Context(), id.UserID); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	telemetry.CartMutations.WithLabelValues("clear").Inc()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "items": []cart.Item{}})
}

func (h *CartHandler) respondWithCart(w http.ResponseWriter, r *http.Request, userID string) {
	items, err := h.Carts.Items(r.Context(), userID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "items": items})
}
