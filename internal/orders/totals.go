package orders

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)

	ErrInvalidDiscount = errors.New("discount percent must be between 0 and 100")
)

type Totals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// ComputeTotals returns subtotal - discount + shipping, with the discount
// taken as a percentage of the subtotal and rounded to cents.
func ComputeTotals(items []Item, discountPercent, shipping decimal.Decimal) (Totals, error) {
	if discountPercent.IsNegative() || discountPercent.GreaterThan(hundred) {
		return Totals{}, ErrInvalidDiscount
	}
	if shipping.IsNegative() {
		return Totals{}, fmt.Errorf("shipping cost cannot be negative, got %s", shipping)
	}

	subtotal := decimal.Zero
	for i, it := range items {
		if it.Quantity <= 0 {
			return Totals{}, fmt.Errorf("item %d: quantity must be positive, got %d", i, it.Quantity)
		}
		if it.Price.IsNegative() {
			return Totals{}, fmt.Errorf("item %d: price cannot be negative, got %s", i, it.Price)
		}
		subtotal = subtotal.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	discount := subtotal.Mul(discountPercent).Div(hundred).Round(2)
	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Shipping: shipping,
		Total:    subtotal.Sub(discount).Add(shipping),
	}, nil
}

// Cents converts a decimal amount to integer minor units for gateway calls.
func Cents(d decimal.Decimal) int64 {
	return d.Mul(hundred).Round(0).IntPart()
}

func FromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}
