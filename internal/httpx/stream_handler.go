package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/acougue-online/storefront/internal/orders"
	"github.com/acougue-online/storefront/internal/stream"
	"github.com/acougue-online/storefront/internal/telemetry"
)

const streamKeepalive = 25 * time.Second

type orderLister interface {
	ListByUser(ctx context.Context, userID string) ([]orders.Order, error)
}

// StreamHandler serves the order status channel: a one-way SSE stream that
// sends a connection ack, a snapshot of the user's orders, and then the full
// refreshed list on every change.
type StreamHandler struct {
	Hub    *stream.Hub
	Orders orderLister
	Logger *zap.Logger
}

func (h *StreamHandler) Register(r chi.Router) {
	r.Get("/orders/stream", h.stream)
}

func (h *StreamHandler) stream(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing user_id"})
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// subscribe before the snapshot so a change racing the first read still
	// triggers a refresh
	sub := h.Hub.Subscribe(userID)
	defer sub.Close()
	telemetry.StreamSubscribers.Inc()
	defer telemetry.StreamSubscribers.Dec()

	fmt.Fprint(w, "data: connected\n\n")
	flusher.Flush()

	h.push(r.Context(), w, flusher, userID)

	keepalive := time.NewTicker(streamKeepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-sub.Updates():
			h.push(r.Context(), w, flusher, userID)
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

// push sends the full current order list. Store failures become an error
// event on the stream; the subscription itself survives them.
func (h *StreamHandler) push(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, userID string) {
	out, err := h.Orders.ListByUser(ctx, userID)
	if err != nil {
		h.Logger.Error("stream refresh failed", zap.String("user_id", userID), zap.Error(err))
		fmt.Fprint(w, "data: {\"error\":\"failed to load orders\"}\n\n")
		flusher.Flush()
		return
	}
	data, err := json.Marshal(out)
	if err != nil {
		h.Logger.Error("stream encode failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}
