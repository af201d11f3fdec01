package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ariefcatur/storefront-orders/internal/billing"
	"github.com/ariefcatur/storefront-orders/internal/cart"
	"github.com/ariefcatur/storefront-orders/internal/checkout"
	"github.com/ariefcatur/storefront-orders/internal/fulfillment"
	"github.com/ariefcatur/storefront-orders/internal/orders"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// writeError maps domain errors to status codes. Unexpected errors are
// logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var ve *checkout.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: ve.Msg, Field: ve.Field})
	case errors.Is(err, billing.ErrUnknownProduct), errors.Is(err, billing.ErrEmptyIntent),
		errors.Is(err, orders.ErrInvalidDiscount):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
	case errors.Is(err, billing.ErrGateway):
		log.Warn("gateway error", "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "payment provider unavailable, please try again"})
	case errors.Is(err, orders.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	case errors.Is(err, fulfillment.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, cart.ErrNoSession):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("request timed out", "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusGatewayTimeout, errorBody{Error: "timed out"})
	default:
		log.Error("request failed", "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v)
}
