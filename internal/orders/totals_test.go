package orders

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeTotals(t *testing.T) {
	items := []Item{
		{ProductID: "p1", Quantity: 2, Price: dec("49.90")},
		{ProductID: "p2", Quantity: 1, Price: dec("20.00")},
	}

	got, err := ComputeTotals(items, dec("10"), dec("15.50"))
	require.NoError(t, err)

	assert.True(t, got.Subtotal.Equal(dec("119.80")), "subtotal %s", got.Subtotal)
	assert.True(t, got.Discount.Equal(dec("11.98")), "discount %s", got.Discount)
	assert.True(t, got.Total.Equal(dec("123.32")), "total %s", got.Total)
	assert.True(t, got.Total.Equal(got.Subtotal.Sub(got.Discount).Add(got.Shipping)))
}

func TestComputeTotalsRoundsDiscountToCents(t *testing.T) {
	items := []Item{{ProductID: "p1", Quantity: 1, Price: dec("33.33")}}
	got, err := ComputeTotals(items, dec("15"), decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, "5", got.Discount.String())
	assert.Equal(t, "28.33", got.Total.String())
}

func TestComputeTotalsRejectsBadInput(t *testing.T) {
	ok := []Item{{ProductID: "p1", Quantity: 1, Price: dec("10")}}

	_, err := ComputeTotals(ok, dec("-1"), decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidDiscount)

	_, err = ComputeTotals(ok, dec("101"), decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidDiscount)

	_, err = ComputeTotals(ok, decimal.Zero, dec("-0.01"))
	assert.Error(t, err)

	_, err = ComputeTotals([]Item{{ProductID: "p1", Quantity: 0, Price: dec("10")}}, decimal.Zero, decimal.Zero)
	assert.Error(t, err)
}

func TestCents(t *testing.T) {
	assert.Equal(t, int64(12332), Cents(dec("123.32")))
	assert.Equal(t, int64(1000), Cents(dec("10")))
	assert.True(t, FromCents(12332).Equal(dec("123.32")))
}
