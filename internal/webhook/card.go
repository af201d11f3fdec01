package webhook

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ariefcatur/storefront-orders/internal/billing"
	"github.com/ariefcatur/storefront-orders/internal/gateway/card"
	"github.com/ariefcatur/storefront-orders/internal/orders"
)

const (
	nsCard             = "card"
	signatureTolerance = 5 * time.Minute
)

// CardHandler authenticates with an HMAC signature over the raw body.
type CardHandler struct {
	Secret  string
	Fulfill Fulfiller
	Seen    SeenSet
	Log     *slog.Logger
}

func (h *CardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": "read body"})
		return
	}

	if h.Secret == "" {
		h.Log.Error("card webhook secret not configured")
		respond(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	if err := card.VerifySignature(body, r.Header.Get(card.SignatureHeader), h.Secret, signatureTolerance); err != nil {
		h.Log.Warn("card webhook rejected", "remote", r.RemoteAddr, "err", err)
		respond(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	ev, err := card.ParseEvent(body)
	if err != nil {
		h.Log.Error("card webhook malformed", "err", err)
		respond(w, http.StatusOK, ack{Received: true, Result: "malformed"})
		return
	}

	switch ev := ev.(type) {
	case card.Unknown:
		h.Log.Debug("card webhook ignored", "event_id", ev.ID, "type", ev.Type)
		respond(w, http.StatusOK, ack{Received: true, Result: "ignored"})

	case card.PaymentConfirmed:
		ctx := r.Context()
		if seen(ctx, h.Seen, h.Log, nsCard, ev.ID) {
			respond(w, http.StatusOK, ack{Received: true, Result: "duplicate"})
			return
		}

		md, err := billing.DecodeMetadata(ev.Session.Metadata)
		if err != nil {
			h.Log.Error("card session metadata unusable, paid session without order",
				"event_id", ev.ID, "session_id", ev.Session.ID, "err", err)
			respond(w, http.StatusOK, ack{Received: true, Result: "malformed"})
			return
		}
		o, err := md.Order(orders.PaymentCard, orders.StatusProcessing, ev.Session.ID)
		if err != nil {
			h.Log.Error("card order rebuild failed", "event_id", ev.ID, "session_id", ev.Session.ID, "err", err)
			respond(w, http.StatusOK, ack{Received: true, Result: "malformed"})
			return
		}
		if paid := ev.Session.AmountTotal; paid != 0 && paid != orders.Cents(o.TotalAmount) {
			h.Log.Warn("card amount differs from order total",
				"session_id", ev.Session.ID, "paid_cents", paid, "order_cents", orders.Cents(o.TotalAmount))
		}

		out, err := h.Fulfill.MaterializeCard(ctx, o)
		if err != nil {
			h.Log.Error("card order creation failed", "event_id", ev.ID, "session_id", ev.Session.ID, "err", err)
			respond(w, http.StatusInternalServerError, map[string]string{"error": "processing failed"})
			return
		}
		mark(ctx, h.Seen, h.Log, nsCard, ev.ID)
		h.Log.Info("card webhook processed", "event_id", ev.ID, "session_id", ev.Session.ID,
			"order_id", o.ID, "outcome", out.String())
		respond(w, http.StatusOK, ack{Received: true, Result: out.String()})
	}
}
