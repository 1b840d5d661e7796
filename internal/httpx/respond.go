package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/acougue-online/storefront/internal/auth"
	"github.com/acougue-online/storefront/internal/catalog"
	"github.com/acougue-online/storefront/internal/cep"
	"github.com/acougue-online/storefront/internal/orders"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain sentinels to HTTP codes. Unclassified errors are
// logged and answered with a generic 500 so internals never leak.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	code := errStatus(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
		msg = "internal error"
	}
	writeJSON(w, code, map[string]string{"error": msg})
}

func errStatus(err error) int {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, orders.ErrNotFound),
		errors.Is(err, cep.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, cep.ErrInvalidCEP),
		errors.Is(err, orders.ErrInvalidQty):
		return http.StatusBadRequest
	case errors.Is(err, orders.ErrEmptyCart):
		return http.StatusUnprocessableEntity
	case errors.Is(err, orders.ErrProductUnavailable),
		errors.Is(err, orders.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
