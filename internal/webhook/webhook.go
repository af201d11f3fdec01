// Package webhook receives payment gateway callbacks. Anything the system
// does not act on is acknowledged with 200 so the gateway stops retrying.
package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/ariefcatur/storefront-orders/internal/fulfillment"
	"github.com/ariefcatur/storefront-orders/internal/orders"
)

const maxBody = 1 << 20

type Fulfiller interface {
	ConfirmPix(ctx context.Context, orderID, chargeID string) (fulfillment.Outcome, error)
	MaterializeCard(ctx context.Context, o *orders.Order) (fulfillment.Outcome, error)
}

// SeenSet is a fast-path cache of processed event ids. The fulfillment
// guards stay authoritative when it is missing or wrong.
type SeenSet interface {
	Seen(ctx context.Context, namespace, id string) (bool, error)
	Mark(ctx context.Context, namespace, id string) error
}

type ack struct {
	Received bool   `json:"received"`
	Result   string `json:"result,omitempty"`
}

func respond(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func readBody(r *http.Request) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r.Body, maxBody))
}

// seen consults the cache; a cache error counts as not seen.
func seen(ctx context.Context, s SeenSet, log *slog.Logger, ns, id string) bool {
	if s == nil || id == "" {
		return false
	}
	ok, err := s.Seen(ctx, ns, id)
	if err != nil {
		log.Warn("webhook dedup lookup failed", "gateway", ns, "event_id", id, "err", err)
		return false
	}
	return ok
}

func mark(ctx context.Context, s SeenSet, log *slog.Logger, ns, id string) {
	if s == nil || id == "" {
		return
	}
	if err := s.Mark(ctx, ns, id); err != nil {
		log.Warn("webhook dedup mark failed", "gateway", ns, "event_id", id, "err", err)
	}
}
