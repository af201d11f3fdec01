package cart

import (
	"fmt"

	"github.com/ariefcatur/storefront-orders/internal/orders"
)

// Key identifies a cart line for one user.
type Key struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	ColorCode string `json:"color_code"`
}

func (k Key) String() string { return fmt.Sprintf("%s/%s/%s", k.ProductID, k.Size, k.ColorCode) }

type Line struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size,omitempty"`
	ColorCode string `json:"color_code,omitempty"`
	ColorName string `json:"color_name,omitempty"`
	Quantity  int    `json:"quantity"`
	Selected  bool   `json:"selected"`
}

func (l Line) Key() Key { return Key{ProductID: l.ProductID, Size: l.Size, ColorCode: l.ColorCode} }

// KeysFromItems maps purchased order items to the cart lines they came from.
func KeysFromItems(items []orders.Item) []Key {
	out := make([]Key, 0, len(items))
	for _, it := range items {
		out = append(out, Key{ProductID: it.ProductID, Size: it.SizeKey(), ColorCode: it.ColorKey()})
	}
	return out
}

// normalize drops invalid lines and folds local duplicates into one line
// per key, keeping first-seen order.
func normalize(lines []Line) []Line {
	idx := make(map[Key]int, len(lines))
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		if l.ProductID == "" || l.Quantity <= 0 {
			continue
		}
		if i, ok := idx[l.Key()]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		idx[l.Key()] = len(out)
		out = append(out, l)
	}
	return out
}
