package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ariefcatur/storefront-orders/internal/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound           = errors.New("order not found")
	ErrDuplicateReference = errors.New("payment reference already recorded")
)

// PlaceholderPrefix marks a payment reference written before the gateway
// assigned a real charge id.
const PlaceholderPrefix = "pix-pending:"

func NewPlaceholderReference() string { return PlaceholderPrefix + uuid.NewString() }

func IsPlaceholderReference(ref string) bool { return strings.HasPrefix(ref, PlaceholderPrefix) }

// PendingCharge is a pending Pix order the sweeper should re-check.
type PendingCharge struct {
	OrderID  string
	ChargeID string
}

type Repo struct{ DB *pgxpool.Pool }

const orderColumns = `id, user_id, status, payment_method, payment_reference, total_amount::text,
	discount_percent::text, shipping_rate_id, shipping_name, shipping_cost::text, delivery_time,
	addr_street, addr_number, addr_complement, addr_neighborhood, addr_city, addr_state, addr_zip_code,
	tracking_code, created_at, updated_at`

// Create inserts the order and its items in one transaction. A conflicting
// payment reference yields ErrDuplicateReference.
func (r *Repo) Create(ctx context.Context, o *Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := Insert(ctx, tx, o); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Insert writes the order row and its items inside the caller's transaction.
func Insert(ctx context.Context, tx pgx.Tx, o *Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}

	err := tx.QueryRow(ctx, `
		INSERT INTO orders (id, user_id, status, payment_method, payment_reference, total_amount,
			discount_percent, shipping_rate_id, shipping_name, shipping_cost, delivery_time,
			addr_street, addr_number, addr_complement, addr_neighborhood, addr_city, addr_state, addr_zip_code)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8, $9, $10::numeric, $11,
			$12, $13, $14, $15, $16, $17, $18)
		RETURNING created_at, updated_at`,
		o.ID, o.UserID, string(o.Status), string(o.PaymentMethod), nullIfEmpty(o.PaymentReference),
		o.TotalAmount.String(), o.DiscountPercent.String(),
		o.Shipping.RateID, o.Shipping.Name, o.Shipping.Cost.String(), o.Shipping.DeliveryTime,
		o.Address.Street, o.Address.Number, o.Address.Complement, o.Address.Neighborhood,
		o.Address.City, o.Address.State, o.Address.ZipCode,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err, "orders_payment_reference_key") {
			return ErrDuplicateReference
		}
		return err
	}

	batch := &pgx.Batch{}
	for _, it := range o.Items {
		var colorCode, colorName *string
		if it.Color != nil {
			colorCode, colorName = &it.Color.Code, &it.Color.Name
		}
		batch.Queue(`
			INSERT INTO order_items (order_id, product_id, quantity, price, size, color_code, color_name)
			VALUES ($1, $2, $3, $4::numeric, $5, $6, $7)`,
			o.ID, it.ProductID, it.Quantity, it.Price.String(), it.Size, colorCode, colorName)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert order items: %w", err)
		}
	}

	return nil
}

func (r *Repo) Get(ctx context.Context, id string) (*Order, error) {
	return r.fetch(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id)
}

func (r *Repo) GetByPaymentReference(ctx context.Context, ref string) (*Order, error) {
	return r.fetch(ctx, `SELECT `+orderColumns+` FROM orders WHERE payment_reference=$1`, ref)
}

func (r *Repo) SetPaymentReference(ctx context.Context, id, ref string) error {
	ct, err := r.DB.Exec(ctx, `UPDATE orders SET payment_reference=$2, updated_at=now() WHERE id=$1`, id, ref)
	if err != nil {
		if postgres.IsUniqueViolation(err, "orders_payment_reference_key") {
			return ErrDuplicateReference
		}
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Transition moves the order to `to` only while it is still in one of `from`.
// It reports whether this call performed the change.
func (r *Repo) Transition(ctx context.Context, id string, to Status, from ...Status) (bool, error) {
	return Transition(ctx, r.DB, id, to, from...)
}

// Transition is Repo.Transition on any executor, typically a transaction.
func Transition(ctx context.Context, q postgres.Execer, id string, to Status, from ...Status) (bool, error) {
	prior := make([]string, 0, len(from))
	for _, s := range from {
		prior = append(prior, string(s))
	}
	ct, err := q.Exec(ctx, `
		UPDATE orders SET status=$2, updated_at=now()
		WHERE id=$1 AND status = ANY($3)`, id, string(to), prior)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *Repo) MarkShipped(ctx context.Context, id, trackingCode string) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET status='shipped', tracking_code=NULLIF($2, ''), updated_at=now()
		WHERE id=$1 AND status='processing'`, id, trackingCode)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// Delete removes the order; items go with it via ON DELETE CASCADE.
func (r *Repo) Delete(ctx context.Context, id string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	return err
}

// ListPendingPix claims up to limit pending Pix orders that already carry a
// gateway charge id, least recently swept first, and stamps them as swept.
// Successive calls therefore rotate through the whole backlog instead of
// re-reading the same oldest rows.
func (r *Repo) ListPendingPix(ctx context.Context, limit int) ([]PendingCharge, error) {
	rows, err := r.DB.Query(ctx, `
		UPDATE orders SET last_swept_at = now()
		WHERE id IN (
			SELECT id FROM orders
			WHERE status='pending' AND payment_method='pix'
			  AND payment_reference IS NOT NULL AND payment_reference NOT LIKE $1
			ORDER BY last_swept_at NULLS FIRST, created_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED)
		RETURNING id, payment_reference`, PlaceholderPrefix+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PendingCharge
	for rows.Next() {
		var p PendingCharge
		if err := rows.Scan(&p.OrderID, &p.ChargeID); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) fetch(ctx context.Context, q string, args ...any) (*Order, error) {
	var (
		o                             Order
		status, method                string
		ref                           *string
		total, discount, shippingCost string
	)
	err := r.DB.QueryRow(ctx, q, args...).Scan(
		&o.ID, &o.UserID, &status, &method, &ref, &total,
		&discount, &o.Shipping.RateID, &o.Shipping.Name, &shippingCost, &o.Shipping.DeliveryTime,
		&o.Address.Street, &o.Address.Number, &o.Address.Complement, &o.Address.Neighborhood,
		&o.Address.City, &o.Address.State, &o.Address.ZipCode,
		&o.TrackingCode, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	o.Status = Status(status)
	o.PaymentMethod = PaymentMethod(method)
	if ref != nil {
		o.PaymentReference = *ref
	}
	if o.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("parse total_amount: %w", err)
	}
	if o.DiscountPercent, err = decimal.NewFromString(discount); err != nil {
		return nil, fmt.Errorf("parse discount_percent: %w", err)
	}
	if o.Shipping.Cost, err = decimal.NewFromString(shippingCost); err != nil {
		return nil, fmt.Errorf("parse shipping_cost: %w", err)
	}

	rows, err := r.DB.Query(ctx, `
		SELECT product_id, quantity, price::text, size, color_code, color_name
		FROM order_items WHERE order_id=$1 ORDER BY id`, o.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			it                   Item
			price                string
			colorCode, colorName *string
		)
		if err := rows.Scan(&it.ProductID, &it.Quantity, &price, &it.Size, &colorCode, &colorName); err != nil {
			return nil, err
		}
		if it.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse item price: %w", err)
		}
		if colorCode != nil {
			it.Color = &Color{Code: *colorCode}
			if colorName != nil {
				it.Color.Name = *colorName
			}
		}
		o.Items = append(o.Items, it)
	}
	return &o, rows.Err()
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
