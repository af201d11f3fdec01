package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// LogSender only records the notification; used when no transport is set.
type LogSender struct{ Log *slog.Logger }

func (s LogSender) Send(_ context.Context, n Notification) error {
	s.Log.Info("notification", "kind", n.Kind, "order_id", n.OrderID, "user_id", n.UserID,
		"subject", n.Subject, "tracking_code", n.TrackingCode)
	return nil
}

// HTTPSender posts each notification as JSON to a relay endpoint.
type HTTPSender struct {
	URL  string
	HTTP *http.Client
}

func NewHTTPSender(url string, timeout time.Duration) *HTTPSender {
	return &HTTPSender{URL: url, HTTP: &http.Client{Timeout: timeout}}
}

func (s *HTTPSender) Send(ctx context.Context, n Notification) error {
	b, err := json.Marshal(n)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", n.EventID)

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("notification relay answered %d", resp.StatusCode)
	}
	return nil
}
