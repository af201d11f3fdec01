package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/ariefcatur/storefront-orders/internal/orders"
	"github.com/shopspring/decimal"
)

// Gateways cap metadata values; longer values are split into
// <key>_0..<key>_{n-1} with the count stored under <key>_n.
const maxMetadataValue = 500

const (
	metaUserID   = "user_id"
	metaOrderID  = "order_id"
	metaItems    = "items"
	metaAddress  = "address"
	metaShipping = "shipping"
	metaDiscount = "discount_percent"
)

var ErrMetadata = errors.New("invalid billing metadata")

// Metadata is the order intent carried through the gateway so the webhook
// can act without client state.
type Metadata struct {
	UserID          string
	OrderID         string
	Items           []orders.Item
	Address         orders.Address
	Shipping        orders.Shipping
	DiscountPercent decimal.Decimal
}

func (m Metadata) Encode() (map[string]string, error) {
	out := map[string]string{
		metaUserID:   m.UserID,
		metaDiscount: m.DiscountPercent.String(),
	}
	if m.OrderID != "" {
		out[metaOrderID] = m.OrderID
	}
	for key, v := range map[string]any{metaItems: m.Items, metaAddress: m.Address, metaShipping: m.Shipping} {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		putChunked(out, key, string(b))
	}
	return out, nil
}

func DecodeMetadata(md map[string]string) (Metadata, error) {
	m := Metadata{UserID: md[metaUserID], OrderID: md[metaOrderID]}
	if m.UserID == "" {
		return m, fmt.Errorf("%w: missing %s", ErrMetadata, metaUserID)
	}

	var err error
	if m.DiscountPercent, err = decimal.NewFromString(md[metaDiscount]); err != nil {
		return m, fmt.Errorf("%w: %s: %v", ErrMetadata, metaDiscount, err)
	}
	for key, dst := range map[string]any{metaItems: &m.Items, metaAddress: &m.Address, metaShipping: &m.Shipping} {
		raw, ok := getChunked(md, key)
		if !ok {
			return m, fmt.Errorf("%w: missing %s", ErrMetadata, key)
		}
		if err := json.Unmarshal([]byte(raw), dst); err != nil {
			return m, fmt.Errorf("%w: %s: %v", ErrMetadata, key, err)
		}
	}
	if len(m.Items) == 0 {
		return m, fmt.Errorf("%w: no items", ErrMetadata)
	}
	return m, nil
}

// Order rebuilds the order the metadata describes, with totals computed from
// the purchase-time prices it carries.
func (m Metadata) Order(method orders.PaymentMethod, status orders.Status, reference string) (*orders.Order, error) {
	totals, err := orders.ComputeTotals(m.Items, m.DiscountPercent, m.Shipping.Cost)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetadata, err)
	}
	return &orders.Order{
		ID:               m.OrderID,
		UserID:           m.UserID,
		Status:           status,
		PaymentMethod:    method,
		PaymentReference: reference,
		TotalAmount:      totals.Total,
		DiscountPercent:  m.DiscountPercent,
		Shipping:         m.Shipping,
		Address:          m.Address,
		Items:            m.Items,
	}, nil
}

func putChunked(md map[string]string, key, v string) {
	if len(v) <= maxMetadataValue {
		md[key] = v
		return
	}
	n := 0
	for len(v) > 0 {
		end := min(maxMetadataValue, len(v))
		for end < len(v) && !utf8.RuneStart(v[end]) {
			end--
		}
		md[key+"_"+strconv.Itoa(n)] = v[:end]
		v = v[end:]
		n++
	}
	md[key+"_n"] = strconv.Itoa(n)
}

func getChunked(md map[string]string, key string) (string, bool) {
	if v, ok := md[key]; ok {
		return v, true
	}
	n, err := strconv.Atoi(md[key+"_n"])
	if err != nil || n <= 0 {
		return "", false
	}
	var s string
	for i := 0; i < n; i++ {
		part, ok := md[key+"_"+strconv.Itoa(i)]
		if !ok {
			return "", false
		}
		s += part
	}
	return s, true
}
