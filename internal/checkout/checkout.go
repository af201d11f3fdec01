// Package checkout validates a checkout attempt and hands it to the billing
// adapter for the chosen payment method.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ariefcatur/storefront-orders/internal/billing"
	"github.com/ariefcatur/storefront-orders/internal/orders"
	"github.com/ariefcatur/storefront-orders/internal/storefront"
	"github.com/shopspring/decimal"
)

type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Msg }

func invalid(field, msg string) error { return &ValidationError{Field: field, Msg: msg} }

type Item struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Size      string          `json:"size,omitempty"`
	ColorCode string          `json:"color_code,omitempty"`
	ColorName string          `json:"color_name,omitempty"`
	Price     decimal.Decimal `json:"price"`
}

type Request struct {
	UserID          string               `json:"-"`
	Items           []Item               `json:"items"`
	AddressID       string               `json:"address_id"`
	ShippingRateID  string               `json:"shipping_rate_id"`
	PaymentMethod   orders.PaymentMethod `json:"payment_method"`
	DiscountPercent decimal.Decimal      `json:"discount_percent"`
}

type Result struct {
	billing.Billing
	ShippingRateID string          `json:"shipping_rate_id"`
	ShippingCost   decimal.Decimal `json:"shipping_cost"`
}

type AddressBook interface {
	Address(ctx context.Context, userID, addressID string) (orders.Address, error)
}

type RateTable interface {
	ShippingRates(ctx context.Context) ([]storefront.Rate, error)
}

type Profiles interface {
	Profile(ctx context.Context, userID string) (storefront.Profile, error)
}

type CartPurger interface {
	PurgeUnselected(ctx context.Context, userID string) error
}

type Orchestrator struct {
	Addresses AddressBook
	Rates     RateTable
	Profiles  Profiles
	Catalog   billing.Catalog
	Cart      CartPurger
	Adapters  map[orders.PaymentMethod]billing.Adapter
	Log       *slog.Logger
}

// Checkout validates req, trims unselected cart lines and creates the
// billing. It returns as soon as the gateway hands back a redirect URL.
func (o *Orchestrator) Checkout(ctx context.Context, req Request) (Result, error) {
	in, sel, err := o.prepare(ctx, req)
	if err != nil {
		return Result{}, err
	}

	if err := o.Cart.PurgeUnselected(ctx, req.UserID); err != nil {
		return Result{}, err
	}

	b, err := o.Adapters[req.PaymentMethod].CreateBilling(ctx, in)
	if err != nil {
		o.Log.Warn("checkout billing failed", "user_id", req.UserID, "method", req.PaymentMethod, "err", err)
		return Result{}, err
	}
	return Result{Billing: b, ShippingRateID: sel.Rate.ID, ShippingCost: sel.Cost}, nil
}

// prepare runs every validation and lookup without writing anything.
func (o *Orchestrator) prepare(ctx context.Context, req Request) (billing.Intent, Selection, error) {
	var sel Selection
	if req.UserID == "" {
		return billing.Intent{}, sel, invalid("user", "sign in required")
	}
	if len(req.Items) == 0 {
		return billing.Intent{}, sel, invalid("items", "no items selected")
	}
	for i, it := range req.Items {
		if it.ProductID == "" || it.Quantity <= 0 {
			return billing.Intent{}, sel, invalid(fmt.Sprintf("items[%d]", i), "product and positive quantity required")
		}
	}
	if req.AddressID == "" {
		return billing.Intent{}, sel, invalid("address_id", "select a delivery address")
	}
	if !req.PaymentMethod.Valid() {
		return billing.Intent{}, sel, invalid("payment_method", "choose pix or card")
	}
	if _, ok := o.Adapters[req.PaymentMethod]; !ok {
		return billing.Intent{}, sel, invalid("payment_method", "payment method unavailable")
	}
	if req.DiscountPercent.IsNegative() || req.DiscountPercent.GreaterThan(decimal.NewFromInt(100)) {
		return billing.Intent{}, sel, invalid("discount_percent", "must be between 0 and 100")
	}

	addr, err := o.Addresses.Address(ctx, req.UserID, req.AddressID)
	if errors.Is(err, storefront.ErrAddressNotFound) {
		return billing.Intent{}, sel, invalid("address_id", "address not found")
	}
	if err != nil {
		return billing.Intent{}, sel, fmt.Errorf("load address: %w", err)
	}

	prof, err := o.Profiles.Profile(ctx, req.UserID)
	if err != nil && !errors.Is(err, storefront.ErrProfileNotFound) {
		return billing.Intent{}, sel, fmt.Errorf("load profile: %w", err)
	}
	if missing := missingProfileFields(prof); len(missing) > 0 {
		return billing.Intent{}, sel, invalid("profile", "complete your profile: "+strings.Join(missing, ", "))
	}

	subtotal, err := o.subtotal(ctx, req.Items)
	if err != nil {
		return billing.Intent{}, sel, err
	}
	rates, err := o.Rates.ShippingRates(ctx)
	if err != nil {
		return billing.Intent{}, sel, fmt.Errorf("load shipping rates: %w", err)
	}
	sel = SelectRate(rates, req.ShippingRateID, subtotal)
	if sel.Deselected {
		o.Log.Info("shipping rate deselected", "user_id", req.UserID, "rate_id", req.ShippingRateID, "subtotal", subtotal.String())
	}
	if sel.Rate == nil {
		return billing.Intent{}, sel, invalid("shipping_rate_id", "no shipping rate available for this subtotal")
	}

	in := billing.Intent{
		UserID:  req.UserID,
		Address: addr,
		Shipping: orders.Shipping{
			RateID:       sel.Rate.ID,
			Name:         sel.Rate.Name,
			Cost:         sel.Cost,
			DeliveryTime: sel.Rate.DeliveryTime,
		},
		DiscountPercent: req.DiscountPercent,
		Customer: billing.Customer{
			Name:  prof.Name,
			Email: prof.Email,
			Phone: prof.Phone,
			TaxID: prof.TaxID,
		},
	}
	for _, it := range req.Items {
		ii := billing.IntentItem{ProductID: it.ProductID, Quantity: it.Quantity, ClientPrice: it.Price}
		if it.Size != "" {
			size := it.Size
			ii.Size = &size
		}
		if it.ColorCode != "" {
			ii.Color = &orders.Color{Code: it.ColorCode, Name: it.ColorName}
		}
		in.Items = append(in.Items, ii)
	}
	return in, sel, nil
}

// subtotal prices the selection from the catalog; rate eligibility must not
// depend on client-sent prices.
func (o *Orchestrator) subtotal(ctx context.Context, items []Item) (decimal.Decimal, error) {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := o.Catalog.Prices(ctx, ids)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load catalog prices: %w", err)
	}
	sum := decimal.Zero
	for i, it := range items {
		p, ok := products[it.ProductID]
		if !ok {
			return decimal.Zero, invalid(fmt.Sprintf("items[%d]", i), "product no longer available")
		}
		sum = sum.Add(p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum, nil
}

func missingProfileFields(p storefront.Profile) []string {
	var missing []string
	if strings.TrimSpace(p.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(p.TaxID) == "" {
		missing = append(missing, "tax_id")
	}
	if strings.TrimSpace(p.Phone) == "" {
		missing = append(missing, "phone")
	}
	return missing
}
