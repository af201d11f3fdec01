package billing

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/ariefcatur/storefront-orders/internal/gateway/card"
	"github.com/ariefcatur/storefront-orders/internal/gateway/pix"
	"github.com/ariefcatur/storefront-orders/internal/logx"
	"github.com/ariefcatur/storefront-orders/internal/orders"
	"github.com/ariefcatur/storefront-orders/internal/storefront"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type stubCatalog map[string]storefront.Product

func (c stubCatalog) Prices(_ context.Context, ids []string) (map[string]storefront.Product, error) {
	out := map[string]storefront.Product{}
	for _, id := range ids {
		if p, ok := c[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

var catalog = stubCatalog{
	"p1": {ID: "p1", Name: "Camiseta", Price: dec("59.90")},
	"p2": {ID: "p2", Name: "Boné", Price: dec("30.00")},
}

type memOrders struct {
	mu     sync.Mutex
	orders map[string]*orders.Order
}

func newMemOrders() *memOrders { return &memOrders{orders: map[string]*orders.Order{}} }

func (m *memOrders) Create(_ context.Context, o *orders.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *memOrders) SetPaymentReference(_ context.Context, id, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return orders.ErrNotFound
	}
	o.PaymentReference = ref
	return nil
}

func (m *memOrders) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.orders, id)
	return nil
}

type stubPix struct {
	err  error
	last pix.ChargeRequest
}

func (s *stubPix) CreateCharge(_ context.Context, req pix.ChargeRequest) (pix.Charge, error) {
	s.last = req
	if s.err != nil {
		return pix.Charge{}, s.err
	}
	return pix.Charge{ID: "bill_1", URL: "https://pay/bill_1", Status: pix.StatusPending}, nil
}

type stubCard struct {
	err  error
	last card.SessionRequest
}

func (s *stubCard) CreateSession(_ context.Context, req card.SessionRequest) (card.Session, error) {
	s.last = req
	if s.err != nil {
		return card.Session{}, s.err
	}
	return card.Session{ID: "cs_1", URL: "https://checkout/cs_1"}, nil
}

func sampleIntent() Intent {
	size := "M"
	return Intent{
		UserID: "u1",
		Items: []IntentItem{
			{ProductID: "p1", Quantity: 2, Size: &size, ClientPrice: dec("0.01")},
			{ProductID: "p2", Quantity: 1, Color: &orders.Color{Code: "#000", Name: "Preto"}},
		},
		Address:         orders.Address{Street: "Rua A", City: "São Paulo", State: "SP", ZipCode: "01000-000"},
		Shipping:        orders.Shipping{RateID: "pac", Name: "PAC", Cost: dec("15.50"), DeliveryTime: "5 dias"},
		DiscountPercent: dec("10"),
		Customer:        Customer{Name: "Ana", Email: "ana@example.com", Phone: "11999999999", TaxID: "12345678909"},
	}
}

func TestPixAdapterCreatesPendingOrderThenCharge(t *testing.T) {
	store := newMemOrders()
	gw := &stubPix{}
	a := &PixAdapter{Orders: store, Catalog: catalog, Gateway: gw, Log: logx.Discard()}

	b, err := a.CreateBilling(context.Background(), sampleIntent())
	require.NoError(t, err)
	assert.Equal(t, "https://pay/bill_1", b.RedirectURL)
	assert.Equal(t, "bill_1", b.ExternalReference)

	o := store.orders[b.OrderID]
	require.NotNil(t, o)
	assert.Equal(t, orders.StatusPending, o.Status)
	assert.Equal(t, "bill_1", o.PaymentReference)
	// 2*59.90 + 30 = 149.80; -14.98; +15.50
	assert.Equal(t, "150.32", o.TotalAmount.StringFixed(2))
	assert.True(t, o.Items[0].Price.Equal(dec("59.90")), "client price ignored")

	assert.EqualValues(t, 15032, gw.last.Products[0].Price)
	assert.Equal(t, b.OrderID, gw.last.ExternalID)
	assert.Equal(t, b.OrderID, gw.last.Metadata["order_id"])
	assert.Equal(t, "12345678909", gw.last.Customer.TaxID)
}

func TestPixAdapterCompensatesOnGatewayFailure(t *testing.T) {
	store := newMemOrders()
	a := &PixAdapter{Orders: store, Catalog: catalog, Gateway: &stubPix{err: errors.New("timeout")}, Log: logx.Discard()}

	_, err := a.CreateBilling(context.Background(), sampleIntent())
	require.ErrorIs(t, err, ErrGateway)
	assert.Empty(t, store.orders)
}

func TestPixAdapterCompensatesWhenContextAlreadyCancelled(t *testing.T) {
	store := newMemOrders()
	ctx, cancel := context.WithCancel(context.Background())
	gw := &cancellingPix{cancel: cancel}
	a := &PixAdapter{Orders: store, Catalog: catalog, Gateway: gw, Log: logx.Discard()}

	_, err := a.CreateBilling(ctx, sampleIntent())
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, store.orders)
}

type cancellingPix struct{ cancel context.CancelFunc }

func (c *cancellingPix) CreateCharge(ctx context.Context, _ pix.ChargeRequest) (pix.Charge, error) {
	c.cancel()
	return pix.Charge{}, ctx.Err()
}

func TestUnknownProductRejectedBeforeAnyWrite(t *testing.T) {
	store := newMemOrders()
	gw := &stubPix{}
	a := &PixAdapter{Orders: store, Catalog: catalog, Gateway: gw, Log: logx.Discard()}

	in := sampleIntent()
	in.Items = append(in.Items, IntentItem{ProductID: "ghost", Quantity: 1})
	_, err := a.CreateBilling(context.Background(), in)
	require.ErrorIs(t, err, ErrUnknownProduct)
	assert.Empty(t, store.orders)
	assert.Empty(t, gw.last.ExternalID)

	_, err = a.CreateBilling(context.Background(), Intent{UserID: "u1"})
	assert.ErrorIs(t, err, ErrEmptyIntent)
}

func TestCardAdapterUsesCatalogPricesAndEncodesIntent(t *testing.T) {
	gw := &stubCard{}
	a := &CardAdapter{Catalog: catalog, Gateway: gw, SuccessURL: "https://shop/ok", CancelURL: "https://shop/cart", Log: logx.Discard()}

	b, err := a.CreateBilling(context.Background(), sampleIntent())
	require.NoError(t, err)
	assert.Equal(t, "cs_1", b.ExternalReference)
	assert.Empty(t, b.OrderID)

	req := gw.last
	require.Len(t, req.LineItems, 2)
	assert.EqualValues(t, 5990, req.LineItems[0].UnitCents)
	assert.Equal(t, "Camiseta", req.LineItems[0].Name)
	assert.EqualValues(t, 1550, req.ShippingCents)
	assert.EqualValues(t, 1498, req.DiscountCents)

	md, err := DecodeMetadata(req.Metadata)
	require.NoError(t, err)
	assert.Equal(t, "u1", md.UserID)
	assert.Equal(t, "M", md.Items[0].SizeKey())
	assert.Equal(t, "#000", md.Items[1].ColorKey())

	o, err := md.Order(orders.PaymentCard, orders.StatusProcessing, b.ExternalReference)
	require.NoError(t, err)
	assert.Equal(t, "150.32", o.TotalAmount.StringFixed(2))
}

func TestCardAdapterGatewayError(t *testing.T) {
	a := &CardAdapter{Catalog: catalog, Gateway: &stubCard{err: errors.New("502")}, Log: logx.Discard()}
	_, err := a.CreateBilling(context.Background(), sampleIntent())
	assert.ErrorIs(t, err, ErrGateway)
}

func TestMetadataChunksLongValues(t *testing.T) {
	var items []orders.Item
	for i := 0; i < 40; i++ {
		items = append(items, orders.Item{ProductID: strings.Repeat("x", 10), Quantity: 1, Price: dec("1.99"),
			Color: &orders.Color{Code: "#fff", Name: "Branco Gelo ção"}})
	}
	m := Metadata{UserID: "u1", Items: items, DiscountPercent: decimal.Zero}

	md, err := m.Encode()
	require.NoError(t, err)
	for k, v := range md {
		assert.LessOrEqual(t, len(v), maxMetadataValue, k)
	}
	_, whole := md["items"]
	assert.False(t, whole)

	got, err := DecodeMetadata(md)
	require.NoError(t, err)
	assert.Len(t, got.Items, 40)
	assert.Equal(t, "Branco Gelo ção", got.Items[39].Color.Name)
}

func TestDecodeMetadataRejectsIncomplete(t *testing.T) {
	_, err := DecodeMetadata(map[string]string{"user_id": "u1", "discount_percent": "0"})
	assert.ErrorIs(t, err, ErrMetadata)

	_, err = DecodeMetadata(map[string]string{})
	assert.ErrorIs(t, err, ErrMetadata)
}
