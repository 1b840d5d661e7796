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

type AdminHandler struct {
	Statuses *orders.StatusService
	Redis    *redis.Client // optional status cache
	Logger   *zap.Logger
}

func (h *AdminHandler) Register(r chi.Router) {
	r.Patch("/admin/orders/{id}/status", h.updateStatus)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *AdminHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	to, err := orders.ParseStatus(req.Status)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	o, err := h.Statuses.Transition(r.Context(), chi.URLParam(r, "id"), to)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	// keep the status cache in step with the transition
	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrderStatus, o.UserID, o.ID)
		_ = h.Redis.Set(r.Context(), key, fmt.Sprintf(`{"status":%q}`, o.Status), redisx.TTLStatusCache).Err()
	}

	writeJSON(w, http.StatusOK, o)
}
