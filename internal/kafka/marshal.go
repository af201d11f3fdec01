package kafka

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ariefcatur/storefront-orders/internal/orders"
	"github.com/segmentio/kafka-go"
)

var ErrNoEventID = errors.New("envelope without event_id")

func MustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// DecodeEnvelope parses a lifecycle message. The x-event-type header fills
// in the type for producers that only set it there.
func DecodeEnvelope(m kafka.Message) (orders.Envelope, error) {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return env, fmt.Errorf("decode envelope: %w", err)
	}
	if env.EventID == "" {
		return env, ErrNoEventID
	}
	if env.EventType == "" {
		env.EventType = Header(m, "x-event-type")
	}
	return env, nil
}

// Header returns the first header value under key, or "".
func Header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// UnwrapPayload memudahkan decode payload spesifik
func UnwrapPayload[T any](payload json.RawMessage) (T, error) {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return t, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}
