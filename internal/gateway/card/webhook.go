package card

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
)

const EventCheckoutCompleted = "checkout.session.completed"

// Event is one decoded webhook delivery: either PaymentConfirmed or Unknown.
type Event interface {
	EventID() string
}

type PaymentConfirmed struct {
	ID      string
	Session Session
}

func (e PaymentConfirmed) EventID() string { return e.ID }

type Unknown struct {
	ID   string
	Type string
}

func (e Unknown) EventID() string { return e.ID }

// ParseEvent decodes a verified webhook body. Completed sessions that are not
// paid yet (delayed payment methods) are reported as Unknown.
func ParseEvent(body []byte) (Event, error) {
	var ev stripe.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("decode card event: %w", err)
	}
	typ := string(ev.Type)
	if typ != EventCheckoutCompleted {
		return Unknown{ID: ev.ID, Type: typ}, nil
	}
	if ev.Data == nil || len(ev.Data.Raw) == 0 {
		return nil, errors.New("card checkout event without session")
	}
	var cs stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &cs); err != nil {
		return nil, fmt.Errorf("decode card session: %w", err)
	}
	if cs.ID == "" {
		return nil, errors.New("card checkout event without session id")
	}
	s := fromStripe(&cs)
	if !s.Paid() {
		return Unknown{ID: ev.ID, Type: typ + ":" + s.PaymentStatus}, nil
	}
	return PaymentConfirmed{ID: ev.ID, Session: s}, nil
}
