package webhook

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/ariefcatur/storefront-orders/internal/gateway/pix"
)

const nsPix = "pix"

// PixHandler authenticates with a shared secret in the webhookSecret query
// parameter.
type PixHandler struct {
	Secret  string
	Fulfill Fulfiller
	Seen    SeenSet
	Log     *slog.Logger
}

func (h *PixHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	got := r.URL.Query().Get("webhookSecret")
	if h.Secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.Secret)) != 1 {
		h.Log.Warn("pix webhook rejected: bad secret", "remote", r.RemoteAddr)
		respond(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	body, err := readBody(r)
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": "read body"})
		return
	}
	ev, err := pix.ParseEvent(body)
	if err != nil {
		h.Log.Error("pix webhook malformed", "err", err)
		respond(w, http.StatusOK, ack{Received: true, Result: "malformed"})
		return
	}

	switch ev := ev.(type) {
	case pix.Unknown:
		h.Log.Debug("pix webhook ignored", "event_id", ev.ID, "type", ev.Type)
		respond(w, http.StatusOK, ack{Received: true, Result: "ignored"})

	case pix.PaymentConfirmed:
		ctx := r.Context()
		if seen(ctx, h.Seen, h.Log, nsPix, ev.ID) {
			respond(w, http.StatusOK, ack{Received: true, Result: "duplicate"})
			return
		}
		out, err := h.Fulfill.ConfirmPix(ctx, ev.Charge.OrderID(), ev.Charge.ID)
		if err != nil {
			h.Log.Error("pix confirmation failed", "event_id", ev.ID, "charge_id", ev.Charge.ID, "err", err)
			respond(w, http.StatusInternalServerError, map[string]string{"error": "processing failed"})
			return
		}
		mark(ctx, h.Seen, h.Log, nsPix, ev.ID)
		h.Log.Info("pix webhook processed", "event_id", ev.ID, "charge_id", ev.Charge.ID, "outcome", out.String())
		respond(w, http.StatusOK, ack{Received: true, Result: out.String()})
	}
}
