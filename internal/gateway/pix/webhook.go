package pix

import (
	"encoding/json"
	"errors"
	"fmt"
)

const EventBillingPaid = "billing.paid"

// Event is one decoded webhook delivery: either PaymentConfirmed or Unknown.
type Event interface {
	EventID() string
}

type PaymentConfirmed struct {
	ID     string
	Charge Charge
}

func (e PaymentConfirmed) EventID() string { return e.ID }

// Unknown covers every event type the system does not act on.
type Unknown struct {
	ID   string
	Type string
}

func (e Unknown) EventID() string { return e.ID }

type rawEvent struct {
	ID      string `json:"id"`
	Event   string `json:"event"`
	DevMode bool   `json:"devMode"`
	Data    struct {
		Billing *Charge `json:"billing"`
	} `json:"data"`
}

// ParseEvent decodes a webhook body. A paid event without a billing object,
// or a billing not actually PAID, is a malformed delivery.
func ParseEvent(body []byte) (Event, error) {
	var ev rawEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("decode pix event: %w", err)
	}
	if ev.Event != EventBillingPaid {
		return Unknown{ID: ev.ID, Type: ev.Event}, nil
	}
	if ev.Data.Billing == nil || ev.Data.Billing.ID == "" {
		return nil, errors.New("pix billing.paid event without billing")
	}
	if !ev.Data.Billing.Paid() {
		return Unknown{ID: ev.ID, Type: ev.Event + ":" + ev.Data.Billing.Status}, nil
	}
	id := ev.ID
	if id == "" {
		id = ev.Data.Billing.ID
	}
	return PaymentConfirmed{ID: id, Charge: *ev.Data.Billing}, nil
}

// OrderID returns the local order id the charge was created for.
func (c Charge) OrderID() string {
	if id := c.Metadata["order_id"]; id != "" {
		return id
	}
	return c.ExternalID
}
