package pix

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ariefcatur/storefront-orders/internal/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCharge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/billing/create", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var req ChargeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ONE_TIME", req.Frequency)
		assert.Equal(t, []string{"PIX"}, req.Methods)
		assert.Equal(t, "order-1", req.ExternalID)
		assert.EqualValues(t, 5990, req.Products[0].Price)

		_, _ = w.Write([]byte(`{"data":{"id":"bill_1","url":"https://pay/bill_1","status":"PENDING","amount":5990},"error":null}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "key", time.Second)
	ch, err := c.CreateCharge(context.Background(), ChargeRequest{
		ExternalID: "order-1",
		Products:   []Product{{ExternalID: "p1", Name: "Shirt", Quantity: 1, Price: 5990}},
	})
	require.NoError(t, err)
	assert.Equal(t, "bill_1", ch.ID)
	assert.Equal(t, "https://pay/bill_1", ch.URL)
	assert.False(t, ch.Paid())
}

func TestChargeStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/billing/get", r.URL.Path)
		assert.Equal(t, "bill_1", r.URL.Query().Get("id"))
		_, _ = w.Write([]byte(`{"data":{"id":"bill_1","status":"PAID","metadata":{"order_id":"o1"}},"error":null}`))
	}))
	defer srv.Close()

	ch, err := New(srv.URL, "key", time.Second).ChargeStatus(context.Background(), "bill_1")
	require.NoError(t, err)
	assert.True(t, ch.Paid())
	assert.Equal(t, "o1", ch.OrderID())
}

func TestGatewayErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"data":null,"error":"maintenance"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "key", time.Second).CreateCharge(context.Background(), ChargeRequest{})
	var apiErr *gateway.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "maintenance", apiErr.Message)
	assert.True(t, apiErr.Temporary())
}

func TestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "key", 20*time.Millisecond).ChargeStatus(context.Background(), "x")
	require.Error(t, err)
}
