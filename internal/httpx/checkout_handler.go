package httpx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ariefcatur/storefront-orders/internal/cart"
	"github.com/ariefcatur/storefront-orders/internal/checkout"
	"github.com/go-chi/chi/v5"
)

type Checkouter interface {
	Checkout(ctx context.Context, req checkout.Request) (checkout.Result, error)
}

type CartService interface {
	Merge(ctx context.Context, sessionID, userID string, local []cart.Line) ([]cart.Line, error)
	SignOut(ctx context.Context, sessionID string) ([]cart.Line, error)
}

type CheckoutHandler struct {
	Checkout Checkouter
	Cart     CartService
	Log      *slog.Logger
}

type cartBody struct {
	Items []cart.Line `json:"items"`
}

func (h *CheckoutHandler) Register(r chi.Router) {
	r.Post("/checkout", h.checkout)
	r.Post("/cart/merge", h.mergeCart)
	r.Post("/cart/signout", h.signOut)
}

func (h *CheckoutHandler) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkout.Request
	if err := decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json"})
		return
	}
	req.UserID = r.Header.Get("X-User-Id")

	res, err := h.Checkout.Checkout(r.Context(), req)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *CheckoutHandler) mergeCart(w http.ResponseWriter, r *http.Request) {
	var body cartBody
	if err := decode(w, r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json"})
		return
	}
	lines, err := h.Cart.Merge(r.Context(), r.Header.Get("X-Session-Id"), r.Header.Get("X-User-Id"), body.Items)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, cartBody{Items: lines})
}

func (h *CheckoutHandler) signOut(w http.ResponseWriter, r *http.Request) {
	lines, err := h.Cart.SignOut(r.Context(), r.Header.Get("X-Session-Id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, cartBody{Items: lines})
}
