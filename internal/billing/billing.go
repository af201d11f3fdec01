// Package billing turns a checkout intent into a gateway-hosted payment page.
// It is the trust boundary for money: prices always come from the catalog.
package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ariefcatur/storefront-orders/internal/orders"
	"github.com/ariefcatur/storefront-orders/internal/storefront"
	"github.com/shopspring/decimal"
)

var (
	ErrGateway        = errors.New("payment gateway failed")
	ErrEmptyIntent    = errors.New("no items to bill")
	ErrUnknownProduct = errors.New("product not available")
)

type Customer struct {
	Name  string
	Email string
	Phone string
	TaxID string
}

// IntentItem is a line as the client sent it. ClientPrice is informational
// only and never billed.
type IntentItem struct {
	ProductID   string
	Quantity    int
	Size        *string
	Color       *orders.Color
	ClientPrice decimal.Decimal
}

type Intent struct {
	UserID          string
	Items           []IntentItem
	Address         orders.Address
	Shipping        orders.Shipping
	DiscountPercent decimal.Decimal
	Customer        Customer
}

type Billing struct {
	RedirectURL       string `json:"redirect_url"`
	ExternalReference string `json:"external_reference"`
	OrderID           string `json:"order_id,omitempty"`
}

type Adapter interface {
	CreateBilling(ctx context.Context, in Intent) (Billing, error)
}

type Catalog interface {
	Prices(ctx context.Context, ids []string) (map[string]storefront.Product, error)
}

type pricedIntent struct {
	items  []orders.Item
	names  []string
	totals orders.Totals
}

// priceIntent re-reads every unit price from the catalog and computes the
// order totals from those prices.
func priceIntent(ctx context.Context, cat Catalog, in Intent, log *slog.Logger) (pricedIntent, error) {
	if len(in.Items) == 0 {
		return pricedIntent{}, ErrEmptyIntent
	}
	ids := make([]string, 0, len(in.Items))
	for _, it := range in.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := cat.Prices(ctx, ids)
	if err != nil {
		return pricedIntent{}, fmt.Errorf("load catalog prices: %w", err)
	}

	var p pricedIntent
	for _, it := range in.Items {
		prod, ok := products[it.ProductID]
		if !ok {
			return pricedIntent{}, fmt.Errorf("%w: %s", ErrUnknownProduct, it.ProductID)
		}
		if !it.ClientPrice.IsZero() && !it.ClientPrice.Equal(prod.Price) {
			log.Warn("client price differs from catalog",
				"product_id", it.ProductID, "client", it.ClientPrice.String(), "catalog", prod.Price.String())
		}
		p.items = append(p.items, orders.Item{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     prod.Price,
			Size:      it.Size,
			Color:     it.Color,
		})
		p.names = append(p.names, prod.Name)
	}

	p.totals, err = orders.ComputeTotals(p.items, in.DiscountPercent, in.Shipping.Cost)
	if err != nil {
		return pricedIntent{}, err
	}
	return p, nil
}

func (p pricedIntent) metadata(in Intent, orderID string) Metadata {
	return Metadata{
		UserID:          in.UserID,
		OrderID:         orderID,
		Items:           p.items,
		Address:         in.Address,
		Shipping:        in.Shipping,
		DiscountPercent: in.DiscountPercent,
	}
}
