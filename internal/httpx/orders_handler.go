package httpx

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ariefcatur/storefront-orders/internal/orders"
	"github.com/go-chi/chi/v5"
)

type OrderReader interface {
	Get(ctx context.Context, id string) (*orders.Order, error)
}

type StatusCache interface {
	Get(ctx context.Context, orderID string) (string, bool, error)
	Set(ctx context.Context, orderID string, body []byte) error
}

type Operator interface {
	Ship(ctx context.Context, id, trackingCode string) (*orders.Order, error)
	Deliver(ctx context.Context, id string) (*orders.Order, error)
	Cancel(ctx context.Context, id string) (*orders.Order, error)
}

type OrdersHandler struct {
	Orders     OrderReader
	Cache      StatusCache
	Operator   Operator
	AdminToken string
	Log        *slog.Logger
}

type statusResp struct {
	OrderID       string               `json:"order_id"`
	Status        orders.Status        `json:"status"`
	PaymentMethod orders.PaymentMethod `json:"payment_method"`
	TotalAmount   string               `json:"total_amount"`
	TrackingCode  *string              `json:"tracking_code,omitempty"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

func toStatusResp(o *orders.Order) statusResp {
	return statusResp{
		OrderID:       o.ID,
		Status:        o.Status,
		PaymentMethod: o.PaymentMethod,
		TotalAmount:   o.TotalAmount.StringFixed(2),
		TrackingCode:  o.TrackingCode,
		UpdatedAt:     o.UpdatedAt,
	}
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Get("/orders/{id}", h.getOrder)
	r.Route("/admin/orders/{id}", func(r chi.Router) {
		r.Use(h.requireAdmin)
		r.Post("/ship", h.ship)
		r.Post("/deliver", h.deliver)
		r.Post("/cancel", h.cancel)
	})
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) coba cache
	if s, ok, err := h.Cache.Get(ctx, orderID); err == nil && ok {
		writeJSON(w, http.StatusOK, json.RawMessage(s))
		return
	} else if err != nil {
		h.Log.Warn("status cache read failed", "order_id", orderID, "err", err)
	}

	// 2) fallback DB
	o, err := h.Orders.Get(ctx, orderID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	b, _ := json.Marshal(toStatusResp(o))
	if err := h.Cache.Set(ctx, orderID, b); err != nil {
		h.Log.Warn("status cache write failed", "order_id", orderID, "err", err)
	}
	writeJSON(w, http.StatusOK, json.RawMessage(b))
}

func (h *OrdersHandler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get("X-Admin-Token")
		if h.AdminToken == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.AdminToken)) != 1 {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *OrdersHandler) ship(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TrackingCode string `json:"tracking_code"`
	}
	if r.ContentLength != 0 {
		if err := decode(w, r, &body); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json"})
			return
		}
	}
	h.operate(w, r, func(ctx context.Context, id string) (*orders.Order, error) {
		return h.Operator.Ship(ctx, id, body.TrackingCode)
	})
}

func (h *OrdersHandler) deliver(w http.ResponseWriter, r *http.Request) {
	h.operate(w, r, h.Operator.Deliver)
}

func (h *OrdersHandler) cancel(w http.ResponseWriter, r *http.Request) {
	h.operate(w, r, h.Operator.Cancel)
}

func (h *OrdersHandler) operate(w http.ResponseWriter, r *http.Request, op func(context.Context, string) (*orders.Order, error)) {
	id := chi.URLParam(r, "id")
	o, err := op(r.Context(), id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	h.Log.Info("operator transition", "order_id", id, "status", o.Status, "request_id", r.Header.Get("X-Request-Id"))
	writeJSON(w, http.StatusOK, toStatusResp(o))
}
