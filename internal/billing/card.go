package billing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ariefcatur/storefront-orders/internal/gateway/card"
	"github.com/ariefcatur/storefront-orders/internal/orders"
)

type CardGateway interface {
	CreateSession(ctx context.Context, req card.SessionRequest) (card.Session, error)
}

// CardAdapter does not write anything locally. The order is created by the
// webhook once the gateway reports the session paid.
type CardAdapter struct {
	Catalog    Catalog
	Gateway    CardGateway
	SuccessURL string
	CancelURL  string
	Currency   string
	Log        *slog.Logger
}

func (a *CardAdapter) CreateBilling(ctx context.Context, in Intent) (Billing, error) {
	priced, err := priceIntent(ctx, a.Catalog, in, a.Log)
	if err != nil {
		return Billing{}, err
	}
	md, err := priced.metadata(in, "").Encode()
	if err != nil {
		return Billing{}, err
	}

	lines := make([]card.LineItem, 0, len(priced.items))
	for i, it := range priced.items {
		lines = append(lines, card.LineItem{
			Name:      priced.names[i],
			UnitCents: orders.Cents(it.Price),
			Quantity:  it.Quantity,
		})
	}

	s, err := a.Gateway.CreateSession(ctx, card.SessionRequest{
		Currency:      a.Currency,
		LineItems:     lines,
		ShippingCents: orders.Cents(in.Shipping.Cost),
		ShippingName:  in.Shipping.Name,
		DiscountCents: orders.Cents(priced.totals.Discount),
		CustomerEmail: in.Customer.Email,
		SuccessURL:    a.SuccessURL,
		CancelURL:     a.CancelURL,
		ClientRefID:   in.UserID,
		Metadata:      md,
	})
	if err != nil {
		return Billing{}, fmt.Errorf("%w: %w", ErrGateway, err)
	}

	a.Log.Info("card session created", "session_id", s.ID, "user_id", in.UserID, "total", priced.totals.Total.String())
	return Billing{RedirectURL: s.URL, ExternalReference: s.ID}, nil
}
