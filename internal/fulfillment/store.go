package fulfillment

import (
	"context"
	"fmt"

	"github.com/ariefcatur/storefront-orders/internal/orders"
	"github.com/ariefcatur/storefront-orders/internal/stock"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store commits a status change together with the stock movement it implies.
// Either both land or neither does, so a redelivery after a failure finds
// the order untouched and retries the whole step.
type Store struct{ DB *pgxpool.Pool }

// ConfirmPending moves a pending order to processing and takes its units.
// ok is false when the order was no longer pending; nothing is written then.
// Lines that could not be covered are returned in short.
func (s *Store) ConfirmPending(ctx context.Context, o *orders.Order) (ok bool, short []stock.Key, err error) {
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		ok, err = orders.Transition(ctx, tx, o.ID, orders.StatusProcessing, orders.StatusPending)
		if err != nil || !ok {
			return err
		}
		short, err = take(ctx, tx, o.Items)
		return err
	})
	if err != nil {
		return false, nil, err
	}
	return ok, short, nil
}

// CreatePaid inserts an already paid order and takes its units.
func (s *Store) CreatePaid(ctx context.Context, o *orders.Order) (short []stock.Key, err error) {
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		if err := orders.Insert(ctx, tx, o); err != nil {
			return err
		}
		short, err = take(ctx, tx, o.Items)
		return err
	})
	return short, err
}

// CancelFrom cancels the order if it is still in `from`, putting units back
// when it had been paid.
func (s *Store) CancelFrom(ctx context.Context, o *orders.Order, from orders.Status) (ok bool, err error) {
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		ok, err = orders.Transition(ctx, tx, o.ID, orders.StatusCancelled, from)
		if err != nil || !ok || from != orders.StatusProcessing {
			return err
		}
		for _, it := range o.Items {
			if err := stock.Put(ctx, tx, itemKey(it), it.Quantity); err != nil {
				return fmt.Errorf("restock %s: %w", itemKey(it), err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (s *Store) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// take decrements every line. Insufficient is reported, not an error:
// oversell does not block a paid order.
func take(ctx context.Context, tx pgx.Tx, items []orders.Item) ([]stock.Key, error) {
	var short []stock.Key
	for _, it := range items {
		k := itemKey(it)
		res, err := stock.Take(ctx, tx, k, it.Quantity)
		if err != nil {
			return nil, fmt.Errorf("decrement %s: %w", k, err)
		}
		if res == stock.Insufficient {
			short = append(short, k)
		}
	}
	return short, nil
}

func itemKey(it orders.Item) stock.Key {
	return stock.Key{ProductID: it.ProductID, Size: it.SizeKey(), ColorCode: it.ColorKey()}
}
