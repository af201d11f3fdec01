// Package pix is a client for the Pix/QR billing gateway.
package pix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ariefcatur/storefront-orders/internal/gateway"
)

const (
	StatusPending = "PENDING"
	StatusPaid    = "PAID"
	StatusExpired = "EXPIRED"
)

type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type Customer struct {
	Name      string `json:"name"`
	Cellphone string `json:"cellphone"`
	Email     string `json:"email"`
	TaxID     string `json:"taxId"`
}

// Product amounts are in centavos.
type Product struct {
	ExternalID string `json:"externalId"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	Price      int64  `json:"price"`
}

type ChargeRequest struct {
	Frequency     string            `json:"frequency"`
	Methods       []string          `json:"methods"`
	Products      []Product         `json:"products"`
	ReturnURL     string            `json:"returnUrl"`
	CompletionURL string            `json:"completionUrl"`
	Customer      Customer          `json:"customer"`
	ExternalID    string            `json:"externalId,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

type Charge struct {
	ID         string            `json:"id"`
	URL        string            `json:"url"`
	Status     string            `json:"status"`
	Amount     int64             `json:"amount"`
	ExternalID string            `json:"externalId,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

func (c Charge) Paid() bool { return c.Status == StatusPaid }

type response struct {
	Data  *Charge `json:"data"`
	Error *string `json:"error"`
}

// CreateCharge opens a one-time Pix billing and returns its hosted page.
func (c *Client) CreateCharge(ctx context.Context, req ChargeRequest) (Charge, error) {
	if req.Frequency == "" {
		req.Frequency = "ONE_TIME"
	}
	if len(req.Methods) == 0 {
		req.Methods = []string{"PIX"}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return Charge{}, err
	}
	return c.do(ctx, http.MethodPost, "/billing/create", body)
}

// ChargeStatus fetches the current state of a charge by its gateway id.
func (c *Client) ChargeStatus(ctx context.Context, chargeID string) (Charge, error) {
	return c.do(ctx, http.MethodGet, "/billing/get?id="+url.QueryEscape(chargeID), nil)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (Charge, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return Charge{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Charge{}, fmt.Errorf("pix %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Charge{}, fmt.Errorf("read pix response: %w", err)
	}

	var out response
	decodeErr := json.Unmarshal(raw, &out)
	if resp.StatusCode/100 != 2 {
		msg := strings.TrimSpace(string(raw))
		if decodeErr == nil && out.Error != nil {
			msg = *out.Error
		}
		return Charge{}, &gateway.APIError{Gateway: "pix", StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return Charge{}, fmt.Errorf("decode pix response: %w", decodeErr)
	}
	if out.Error != nil {
		return Charge{}, &gateway.APIError{Gateway: "pix", StatusCode: resp.StatusCode, Message: *out.Error}
	}
	if out.Data == nil || out.Data.ID == "" {
		return Charge{}, fmt.Errorf("pix response without charge")
	}
	return *out.Data, nil
}
