// Package card is the hosted card-checkout gateway, backed by Stripe
// Checkout through stripe-go.
package card

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ariefcatur/storefront-orders/internal/gateway"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

type Client struct {
	api *client.API
}

// New points the Stripe SDK at baseURL, which tests swap for an httptest
// server. Retries stay off: the caller already bounds the request and a
// duplicate is absorbed by the idempotency key.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(strings.TrimRight(baseURL, "/")),
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	api := &client.API{}
	api.Init(apiKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})
	return &Client{api: api}
}

// LineItem amounts are in minor units.
type LineItem struct {
	Name      string
	UnitCents int64
	Quantity  int
}

type SessionRequest struct {
	Currency       string
	LineItems      []LineItem
	ShippingCents  int64
	ShippingName   string
	DiscountCents  int64
	CustomerEmail  string
	SuccessURL     string
	CancelURL      string
	ClientRefID    string
	Metadata       map[string]string
	IdempotencyKey string
}

// Session is the part of a checkout session the rest of the module reads.
type Session struct {
	ID            string
	URL           string
	Status        string
	PaymentStatus string
	PaymentIntent string
	AmountTotal   int64
	Metadata      map[string]string
}

func (s Session) Paid() bool {
	return s.PaymentStatus == string(stripe.CheckoutSessionPaymentStatusPaid)
}

func fromStripe(cs *stripe.CheckoutSession) Session {
	s := Session{
		ID:            cs.ID,
		URL:           cs.URL,
		Status:        string(cs.Status),
		PaymentStatus: string(cs.PaymentStatus),
		AmountTotal:   cs.AmountTotal,
		Metadata:      cs.Metadata,
	}
	if cs.PaymentIntent != nil {
		s.PaymentIntent = cs.PaymentIntent.ID
	}
	return s
}

// CreateSession opens a hosted checkout session in payment mode. A discount
// becomes a single-use amount-off coupon attached to the session.
func (c *Client) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	currency := req.Currency
	if currency == "" {
		currency = string(stripe.CurrencyBRL)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	if req.ClientRefID != "" {
		params.ClientReferenceID = stripe.String(req.ClientRefID)
	}
	for _, li := range req.LineItems {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(int64(li.Quantity)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(currency),
				UnitAmount:  stripe.Int64(li.UnitCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{Name: stripe.String(li.Name)},
			},
		})
	}
	if req.ShippingCents > 0 {
		params.ShippingOptions = []*stripe.CheckoutSessionShippingOptionParams{{
			ShippingRateData: &stripe.CheckoutSessionShippingOptionShippingRateDataParams{
				Type:        stripe.String("fixed_amount"),
				DisplayName: stripe.String(req.ShippingName),
				FixedAmount: &stripe.CheckoutSessionShippingOptionShippingRateDataFixedAmountParams{
					Amount:   stripe.Int64(req.ShippingCents),
					Currency: stripe.String(currency),
				},
			},
		}}
	}
	if req.DiscountCents > 0 {
		couponID, err := c.coupon(ctx, req, currency)
		if err != nil {
			return Session{}, err
		}
		params.Discounts = []*stripe.CheckoutSessionDiscountParams{{Coupon: stripe.String(couponID)}}
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	cs, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return Session{}, wrapErr("create session", err)
	}
	if cs.ID == "" || cs.URL == "" {
		return Session{}, fmt.Errorf("card session without id or url")
	}
	return fromStripe(cs), nil
}

func (c *Client) coupon(ctx context.Context, req SessionRequest, currency string) (string, error) {
	params := &stripe.CouponParams{
		AmountOff:      stripe.Int64(req.DiscountCents),
		Currency:       stripe.String(currency),
		Duration:       stripe.String(string(stripe.CouponDurationOnce)),
		MaxRedemptions: stripe.Int64(1),
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey + ":coupon")
	}
	cp, err := c.api.Coupons.New(params)
	if err != nil {
		return "", wrapErr("create coupon", err)
	}
	return cp.ID, nil
}

// wrapErr keeps API rejections as *gateway.APIError so callers can tell
// retryable failures apart.
func wrapErr(op string, err error) error {
	var se *stripe.Error
	if errors.As(err, &se) && se.HTTPStatusCode != 0 {
		return &gateway.APIError{Gateway: "card", StatusCode: se.HTTPStatusCode, Message: se.Msg}
	}
	return fmt.Errorf("card %s: %w", op, err)
}
