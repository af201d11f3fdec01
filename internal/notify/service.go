// Package notify turns order lifecycle events into customer notifications.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	kafkax "github.com/ariefcatur/storefront-orders/internal/kafka"
	"github.com/ariefcatur/storefront-orders/internal/orders"
	kafkago "github.com/segmentio/kafka-go"
)

type Notification struct {
	EventID      string `json:"event_id"`
	Kind         string `json:"kind"`
	OrderID      string `json:"order_id"`
	UserID       string `json:"user_id"`
	Subject      string `json:"subject"`
	TotalCents   int64  `json:"total_cents"`
	TrackingCode string `json:"tracking_code,omitempty"`
}

type Sender interface {
	Send(ctx context.Context, n Notification) error
}

type Dedup interface {
	Seen(ctx context.Context, namespace, id string) (bool, error)
	Mark(ctx context.Context, namespace, id string) error
}

var subjects = map[string]string{
	orders.EventOrderPaid:      "Pagamento confirmado",
	orders.EventOrderShipped:   "Pedido enviado",
	orders.EventOrderDelivered: "Pedido entregue",
	orders.EventOrderCancelled: "Pedido cancelado",
}

type Service struct {
	Sender      Sender
	Dedup       Dedup
	ServiceName string
	Log         *slog.Logger
}

// HandleLifecycle dipasang sebagai handler consumer. Return error = offset
// tidak di-commit.
func (s *Service) HandleLifecycle(ctx context.Context, m kafkago.Message) error {
	// 1) decode envelope; pesan rusak di-skip supaya tidak macet
	env, err := kafkax.DecodeEnvelope(m)
	if err != nil {
		s.Log.Error("drop undecodable lifecycle message", "offset", m.Offset, "err", err)
		return nil
	}
	subject, ok := subjects[env.EventType]
	if !ok {
		return nil
	}

	// 2) dedup via Redis (pakai event_id)
	if seen, err := s.Dedup.Seen(ctx, s.ServiceName, env.EventID); err != nil {
		s.Log.Warn("dedup lookup failed", "event_id", env.EventID, "err", err)
	} else if seen {
		return nil
	}

	// 3) decode payload
	p, err := kafkax.UnwrapPayload[orders.LifecyclePayload](env.Payload)
	if err != nil {
		s.Log.Error("drop lifecycle event with bad payload", "event_id", env.EventID, "err", err)
		return nil
	}

	// 4) kirim; gagal kirim tidak pernah menyentuh status order
	n := Notification{
		EventID:      env.EventID,
		Kind:         env.EventType,
		OrderID:      p.OrderID,
		UserID:       p.UserID,
		Subject:      subject,
		TotalCents:   p.TotalCents,
		TrackingCode: p.TrackingCode,
	}
	if err := s.Sender.Send(ctx, n); err != nil {
		return fmt.Errorf("send %s for order %s: %w", env.EventType, p.OrderID, err)
	}

	if err := s.Dedup.Mark(ctx, s.ServiceName, env.EventID); err != nil {
		s.Log.Warn("dedup mark failed", "event_id", env.EventID, "err", err)
	}
	return nil
}
