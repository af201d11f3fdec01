package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderPaid      = "OrderPaid"
	EventOrderShipped   = "OrderShipped"
	EventOrderDelivered = "OrderDelivered"
	EventOrderCancelled = "OrderCancelled"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

// LifecyclePayload is carried by every order lifecycle event.
type LifecyclePayload struct {
	OrderID       string        `json:"order_id"`
	UserID        string        `json:"user_id"`
	Status        Status        `json:"status"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	TotalCents    int64         `json:"total_cents"`
	TrackingCode  string        `json:"tracking_code,omitempty"`
}

func NewLifecyclePayload(o *Order) LifecyclePayload {
	p := LifecyclePayload{
		OrderID:       o.ID,
		UserID:        o.UserID,
		Status:        o.Status,
		PaymentMethod: o.PaymentMethod,
		TotalCents:    Cents(o.TotalAmount),
	}
	if o.TrackingCode != nil {
		p.TrackingCode = *o.TrackingCode
	}
	return p
}
