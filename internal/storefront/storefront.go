// Package storefront holds read-only lookups over tables owned by the catalog
// and profile modules.
package storefront

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/storefront-orders/internal/orders"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrAddressNotFound = errors.New("address not found")
	ErrProfileNotFound = errors.New("profile not found")
)

type Product struct {
	ID    string
	Name  string
	Price decimal.Decimal
}

type Profile struct {
	UserID string
	Name   string
	Email  string
	Phone  string
	TaxID  string
}

type Rate struct {
	ID            string
	Name          string
	Price         decimal.Decimal
	MinOrderValue decimal.Decimal
	DeliveryTime  string
}

// Eligible reports whether the rate may be used for the given subtotal.
func (r Rate) Eligible(subtotal decimal.Decimal) bool {
	return subtotal.GreaterThanOrEqual(r.MinOrderValue)
}

type Store struct{ DB *pgxpool.Pool }

// Prices returns active products keyed by id. Unknown or inactive ids are
// absent from the map.
func (s *Store) Prices(ctx context.Context, ids []string) (map[string]Product, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, name, price::text FROM products
		WHERE id = ANY($1) AND active`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]Product, len(ids))
	for rows.Next() {
		var (
			p     Product
			price string
		)
		if err := rows.Scan(&p.ID, &p.Name, &price); err != nil {
			return nil, err
		}
		if p.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse price of %s: %w", p.ID, err)
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

// Address returns the user's saved address; an address owned by someone else
// is reported as not found.
func (s *Store) Address(ctx context.Context, userID, addressID string) (orders.Address, error) {
	var a orders.Address
	err := s.DB.QueryRow(ctx, `
		SELECT street, number, complement, neighborhood, city, state, zip_code
		FROM addresses WHERE id=$1 AND user_id=$2`, addressID, userID).
		Scan(&a.Street, &a.Number, &a.Complement, &a.Neighborhood, &a.City, &a.State, &a.ZipCode)
	if errors.Is(err, pgx.ErrNoRows) {
		return a, ErrAddressNotFound
	}
	return a, err
}

func (s *Store) Profile(ctx context.Context, userID string) (Profile, error) {
	p := Profile{UserID: userID}
	err := s.DB.QueryRow(ctx, `
		SELECT full_name, email, phone, tax_id FROM profiles WHERE user_id=$1`, userID).
		Scan(&p.Name, &p.Email, &p.Phone, &p.TaxID)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, ErrProfileNotFound
	}
	return p, err
}

// ShippingRates lists active rates, cheapest first.
func (s *Store) ShippingRates(ctx context.Context) ([]Rate, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, name, price::text, min_order_value::text, delivery_time
		FROM shipping_rates WHERE active ORDER BY price, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Rate
	for rows.Next() {
		var (
			r          Rate
			price, min string
		)
		if err := rows.Scan(&r.ID, &r.Name, &price, &min, &r.DeliveryTime); err != nil {
			return nil, err
		}
		if r.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse rate price: %w", err)
		}
		if r.MinOrderValue, err = decimal.NewFromString(min); err != nil {
			return nil, fmt.Errorf("parse rate minimum: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
