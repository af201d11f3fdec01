package stock

import (
	"context"
	"fmt"

	"github.com/ariefcatur/storefront-orders/internal/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Key identifies a stock counter. Products without variants use empty Size
// and ColorCode.
type Key struct {
	ProductID string
	Size      string
	ColorCode string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.ProductID, k.Size, k.ColorCode)
}

type Result int

const (
	OK Result = iota
	Insufficient
)

func (r Result) String() string {
	if r == OK {
		return "ok"
	}
	return "insufficient"
}

type Ledger struct{ DB *pgxpool.Pool }

func (l *Ledger) Decrement(ctx context.Context, k Key, qty int) (Result, error) {
	return Take(ctx, l.DB, k, qty)
}

func (l *Ledger) Increment(ctx context.Context, k Key, qty int) error {
	return Put(ctx, l.DB, k, qty)
}

// Take subtracts qty only if enough units remain. The check and the write
// are one statement, so concurrent callers on the same key cannot both take
// the last unit. A missing counter reports Insufficient.
func Take(ctx context.Context, q postgres.Execer, k Key, qty int) (Result, error) {
	if qty <= 0 {
		return OK, fmt.Errorf("invalid qty %d for %s", qty, k)
	}
	ct, err := q.Exec(ctx, `
		UPDATE product_stock
		SET quantity = quantity - $4, updated_at = now()
		WHERE product_id=$1 AND size=$2 AND color_code=$3 AND quantity >= $4`,
		k.ProductID, k.Size, k.ColorCode, qty)
	if err != nil {
		return OK, err
	}
	if ct.RowsAffected() != 1 {
		return Insufficient, nil
	}
	return OK, nil
}

// Put restocks a counter, creating it if absent.
func Put(ctx context.Context, q postgres.Execer, k Key, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("invalid qty %d for %s", qty, k)
	}
	_, err := q.Exec(ctx, `
		INSERT INTO product_stock (product_id, size, color_code, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (product_id, size, color_code)
		DO UPDATE SET quantity = product_stock.quantity + EXCLUDED.quantity, updated_at = now()`,
		k.ProductID, k.Size, k.ColorCode, qty)
	return err
}

func (l *Ledger) Available(ctx context.Context, k Key) (int, error) {
	var n int
	err := l.DB.QueryRow(ctx, `
		SELECT COALESCE((SELECT quantity FROM product_stock
		                 WHERE product_id=$1 AND size=$2 AND color_code=$3), 0)`,
		k.ProductID, k.Size, k.ColorCode).Scan(&n)
	return n, err
}
