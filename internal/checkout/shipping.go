package checkout

import (
	"github.com/ariefcatur/storefront-orders/internal/storefront"
	"github.com/shopspring/decimal"
)

// Selection is the shipping rate in effect for a subtotal. Rate is nil when
// nothing is eligible, and Cost is then zero.
type Selection struct {
	Rate       *storefront.Rate
	Cost       decimal.Decimal
	Deselected bool
}

// SelectRate keeps the chosen rate while the subtotal meets its minimum. A
// chosen rate that no longer qualifies is dropped, and like an empty choice
// falls back to the cheapest eligible rate.
func SelectRate(rates []storefront.Rate, chosenID string, subtotal decimal.Decimal) Selection {
	var sel Selection
	if chosenID != "" {
		for i := range rates {
			if rates[i].ID != chosenID {
				continue
			}
			if rates[i].Eligible(subtotal) {
				r := rates[i]
				return Selection{Rate: &r, Cost: r.Price}
			}
			break
		}
		sel.Deselected = true
	}

	for i := range rates {
		if !rates[i].Eligible(subtotal) {
			continue
		}
		if sel.Rate == nil || rates[i].Price.LessThan(sel.Rate.Price) {
			r := rates[i]
			sel.Rate = &r
		}
	}
	if sel.Rate != nil {
		sel.Cost = sel.Rate.Price
	}
	return sel
}
