package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentPix  PaymentMethod = "pix"
	PaymentCard PaymentMethod = "card"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentPix || m == PaymentCard
}

// Address is the delivery address copied onto the order at creation time.
type Address struct {
	Street       string `json:"street"`
	Number       string `json:"number"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      string `json:"zip_code"`
}

type Shipping struct {
	RateID       string          `json:"rate_id"`
	Name         string          `json:"name"`
	Cost         decimal.Decimal `json:"cost"`
	DeliveryTime string          `json:"delivery_time"`
}

type Color struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type Order struct {
	ID               string
	UserID           string
	Status           Status
	PaymentMethod    PaymentMethod
	PaymentReference string
	TotalAmount      decimal.Decimal
	DiscountPercent  decimal.Decimal
	Shipping         Shipping
	Address          Address
	TrackingCode     *string
	Items            []Item
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Item is immutable once written; Price is the unit price at purchase time.
type Item struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Size      *string         `json:"size,omitempty"`
	Color     *Color          `json:"color,omitempty"`
}

// SizeKey and ColorKey flatten nullable variants into stock/cart key parts.
func (it Item) SizeKey() string {
	if it.Size == nil {
		return ""
	}
	return *it.Size
}

func (it Item) ColorKey() string {
	if it.Color == nil {
		return ""
	}
	return it.Color.Code
}
