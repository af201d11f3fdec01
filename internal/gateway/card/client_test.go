package card

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ariefcatur/storefront-orders/internal/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSession(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())

		switch r.URL.Path {
		case "/v1/coupons":
			assert.Equal(t, "idem-1:coupon", r.Header.Get("Idempotency-Key"))
			assert.Equal(t, "1198", r.PostForm.Get("amount_off"))
			assert.Equal(t, "brl", r.PostForm.Get("currency"))
			assert.Equal(t, "once", r.PostForm.Get("duration"))
			_, _ = w.Write([]byte(`{"id":"co_1","object":"coupon"}`))
		case "/v1/checkout/sessions":
			assert.Equal(t, "idem-1", r.Header.Get("Idempotency-Key"))
			assert.Equal(t, "payment", r.PostForm.Get("mode"))
			assert.Equal(t, "5990", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
			assert.Equal(t, "2", r.PostForm.Get("line_items[0][quantity]"))
			assert.Equal(t, "brl", r.PostForm.Get("line_items[0][price_data][currency]"))
			assert.Equal(t, "1550", r.PostForm.Get("shipping_options[0][shipping_rate_data][fixed_amount][amount]"))
			assert.Equal(t, "co_1", r.PostForm.Get("discounts[0][coupon]"))
			assert.Equal(t, "u1", r.PostForm.Get("metadata[user_id]"))
			_, _ = w.Write([]byte(`{"id":"cs_1","object":"checkout.session","url":"https://checkout/cs_1","status":"open","payment_status":"unpaid"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	s, err := New(srv.URL, "sk_test", time.Second).CreateSession(context.Background(), SessionRequest{
		LineItems:      []LineItem{{Name: "Shirt", UnitCents: 5990, Quantity: 2}},
		ShippingCents:  1550,
		ShippingName:   "PAC",
		DiscountCents:  1198,
		Metadata:       map[string]string{"user_id": "u1"},
		IdempotencyKey: "idem-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_1", s.ID)
	assert.Equal(t, "https://checkout/cs_1", s.URL)
	assert.False(t, s.Paid())
	assert.Equal(t, []string{"/v1/coupons", "/v1/checkout/sessions"}, paths)
}

func TestCreateSessionWithoutDiscountSkipsCoupon(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"cs_2","object":"checkout.session","url":"https://checkout/cs_2"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "sk_test", time.Second).CreateSession(context.Background(), SessionRequest{
		LineItems: []LineItem{{Name: "Mug", UnitCents: 3000, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"/v1/checkout/sessions"}, paths)
}

func TestCreateSessionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"Invalid amount"}}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "sk_test", time.Second).CreateSession(context.Background(), SessionRequest{})
	var apiErr *gateway.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Invalid amount", apiErr.Message)
	assert.False(t, apiErr.Temporary())
}
