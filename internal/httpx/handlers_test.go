package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/ariefcatur/storefront-orders/internal/billing"
	"github.com/ariefcatur/storefront-orders/internal/cart"
	"github.com/ariefcatur/storefront-orders/internal/checkout"
	"github.com/ariefcatur/storefront-orders/internal/fulfillment"
	"github.com/ariefcatur/storefront-orders/internal/logx"
	"github.com/ariefcatur/storefront-orders/internal/orders"
	"github.com/ariefcatur/storefront-orders/internal/redisx"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCheckout struct {
	got checkout.Request
	err error
}

func (s *stubCheckout) Checkout(_ context.Context, req checkout.Request) (checkout.Result, error) {
	s.got = req
	if s.err != nil {
		return checkout.Result{}, s.err
	}
	return checkout.Result{Billing: billing.Billing{RedirectURL: "https://pay/1", ExternalReference: "bill_1"}}, nil
}

type stubCart struct{}

func (stubCart) Merge(_ context.Context, sessionID, userID string, local []cart.Line) ([]cart.Line, error) {
	if sessionID == "" {
		return nil, cart.ErrNoSession
	}
	return local, nil
}

func (stubCart) SignOut(context.Context, string) ([]cart.Line, error) { return []cart.Line{}, nil }

func do(h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func checkoutRouter(c Checkouter) http.Handler {
	r := NewRouter(logx.Discard())
	(&CheckoutHandler{Checkout: c, Cart: stubCart{}, Log: logx.Discard()}).Register(r)
	return r
}

func TestCheckoutEndpoint(t *testing.T) {
	c := &stubCheckout{}
	rec := do(checkoutRouter(c), http.MethodPost, "/checkout",
		`{"items":[{"product_id":"p1","quantity":1,"price":"59.90"}],"address_id":"a1","payment_method":"pix","discount_percent":"5"}`,
		map[string]string{"X-User-Id": "u1"})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redirect_url":"https://pay/1"`)
	assert.Equal(t, "u1", c.got.UserID)
	assert.Equal(t, orders.PaymentPix, c.got.PaymentMethod)
	assert.True(t, c.got.DiscountPercent.Equal(decimal.NewFromInt(5)))
}

func TestCheckoutErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{&checkout.ValidationError{Field: "address_id", Msg: "select a delivery address"}, http.StatusUnprocessableEntity},
		{billing.ErrGateway, http.StatusBadGateway},
		{errors.Join(billing.ErrUnknownProduct, errors.New("p9")), http.StatusUnprocessableEntity},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := do(checkoutRouter(&stubCheckout{err: tt.err}), http.MethodPost, "/checkout", `{}`, nil)
		assert.Equal(t, tt.code, rec.Code, tt.err.Error())
	}

	rec := do(checkoutRouter(&stubCheckout{err: &checkout.ValidationError{Field: "profile", Msg: "complete your profile"}}),
		http.MethodPost, "/checkout", `{}`, nil)
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "profile", body.Field)

	rec = do(checkoutRouter(&stubCheckout{}), http.MethodPost, "/checkout", `{`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartEndpoints(t *testing.T) {
	h := checkoutRouter(&stubCheckout{})

	rec := do(h, http.MethodPost, "/cart/merge", `{"items":[{"product_id":"p1","quantity":2,"selected":true}]}`,
		map[string]string{"X-Session-Id": "s1", "X-User-Id": "u1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"product_id":"p1"`)

	rec = do(h, http.MethodPost, "/cart/merge", `{"items":[]}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodPost, "/cart/signout", ``, map[string]string{"X-Session-Id": "s1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())
}

type memOrders map[string]*orders.Order

func (m memOrders) Get(_ context.Context, id string) (*orders.Order, error) {
	if o, ok := m[id]; ok {
		return o, nil
	}
	return nil, orders.ErrNotFound
}

type stubOperator struct{ m memOrders }

func (s stubOperator) Ship(ctx context.Context, id, tracking string) (*orders.Order, error) {
	o, err := s.m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status != orders.StatusProcessing {
		return nil, fulfillment.ErrInvalidTransition
	}
	o.Status = orders.StatusShipped
	o.TrackingCode = &tracking
	return o, nil
}

func (s stubOperator) Deliver(context.Context, string) (*orders.Order, error) {
	return nil, fulfillment.ErrInvalidTransition
}

func (s stubOperator) Cancel(ctx context.Context, id string) (*orders.Order, error) {
	return s.m.Get(ctx, id)
}

func ordersRouter(t *testing.T, m memOrders) (http.Handler, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	r := NewRouter(logx.Discard())
	(&OrdersHandler{
		Orders:     m,
		Cache:      &redisx.StatusCache{RDB: rdb},
		Operator:   stubOperator{m: m},
		AdminToken: "adm",
		Log:        logx.Discard(),
	}).Register(r)
	return r, mr
}

func TestGetOrderUsesCache(t *testing.T) {
	m := memOrders{"o1": {ID: "o1", Status: orders.StatusPending, PaymentMethod: orders.PaymentPix, TotalAmount: decimal.RequireFromString("10")}}
	h, mr := ordersRouter(t, m)

	rec := do(h, http.MethodGet, "/orders/o1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"pending"`)
	assert.Contains(t, rec.Body.String(), `"total_amount":"10.00"`)
	assert.True(t, mr.Exists("order_status:o1"))

	// perubahan di DB tidak terlihat selama cache masih ada
	m["o1"].Status = orders.StatusProcessing
	rec = do(h, http.MethodGet, "/orders/o1", "", nil)
	assert.Contains(t, rec.Body.String(), `"status":"pending"`)

	rec = do(h, http.MethodGet, "/orders/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminEndpoints(t *testing.T) {
	m := memOrders{"o1": {ID: "o1", Status: orders.StatusProcessing}}
	h, _ := ordersRouter(t, m)
	admin := map[string]string{"X-Admin-Token": "adm"}

	rec := do(h, http.MethodPost, "/admin/orders/o1/ship", `{"tracking_code":"BR1"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(h, http.MethodPost, "/admin/orders/o1/ship", `{"tracking_code":"BR1"}`, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tracking_code":"BR1"`)

	rec = do(h, http.MethodPost, "/admin/orders/o1/ship", ``, admin)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(h, http.MethodPost, "/admin/orders/o1/deliver", ``, admin)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(h, http.MethodPost, "/admin/orders/ghost/cancel", ``, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthz(t *testing.T) {
	rec := do(NewRouter(logx.Discard()), http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
