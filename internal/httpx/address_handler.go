package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/acougue-online/storefront/internal/cep"
)

type AddressHandler struct {
	CEP    *cep.Client
	Logger *zap.Logger
}

func (h *AddressHandler) Register(r chi.Router) {
	r.Get("/address/{cep}", h.lookup)
}

func (h *AddressHandler) lookup(w http.ResponseWriter, r *http.Request) {
	addr, err := h.CEP.Lookup(r.Context(), chi.URLParam(r, "cep"))
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, addr)
}
