// Package gateway holds what the payment gateway clients share.
package gateway

import "fmt"

// APIError is a non-2xx answer from a payment gateway.
type APIError struct {
	Gateway    string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s gateway: status %d: %s", e.Gateway, e.StatusCode, e.Message)
}

// Temporary reports whether retrying the same call later may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
