// Package fulfillment applies payment-confirmed and operator transitions to
// orders. Webhooks and the sweeper share it so they are guarded by the same
// conditional updates.
package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/ariefcatur/storefront-orders/internal/cart"
	kafkax "github.com/ariefcatur/storefront-orders/internal/kafka"
	"github.com/ariefcatur/storefront-orders/internal/orders"
	"github.com/ariefcatur/storefront-orders/internal/stock"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

var ErrInvalidTransition = errors.New("transition not allowed from current status")

type Outcome int

const (
	// Advanced means this call performed the transition.
	Advanced Outcome = iota
	// AlreadyAdvanced means another delivery got there first; nothing changed.
	AlreadyAdvanced
	// NotFound means there is no order to act on; nothing changed.
	NotFound
)

func (o Outcome) String() string {
	switch o {
	case Advanced:
		return "advanced"
	case AlreadyAdvanced:
		return "already_advanced"
	default:
		return "not_found"
	}
}

type OrderStore interface {
	Get(ctx context.Context, id string) (*orders.Order, error)
	GetByPaymentReference(ctx context.Context, ref string) (*orders.Order, error)
	Transition(ctx context.Context, id string, to orders.Status, from ...orders.Status) (bool, error)
	MarkShipped(ctx context.Context, id, trackingCode string) (bool, error)
}

// Settler commits transitions that move stock atomically with the stock
// change. *Store is the Postgres implementation.
type Settler interface {
	ConfirmPending(ctx context.Context, o *orders.Order) (bool, []stock.Key, error)
	CreatePaid(ctx context.Context, o *orders.Order) ([]stock.Key, error)
	CancelFrom(ctx context.Context, o *orders.Order, from orders.Status) (bool, error)
}

type CartPurger interface {
	PurgePurchased(ctx context.Context, userID string, keys []cart.Key) error
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type StatusCache interface {
	Invalidate(ctx context.Context, orderID string) error
}

// sideEffectTimeout bounds the post-commit work, which runs detached from
// the caller's context once the transition is durable.
const sideEffectTimeout = 5 * time.Second

type Service struct {
	Orders    OrderStore
	Settle    Settler
	Cart      CartPurger
	Publisher Publisher   // optional
	Cache     StatusCache // optional
	Producer  string
	Log       *slog.Logger
}

// ConfirmPix moves a pending Pix order to processing and runs the paid side
// effects once. The order is looked up by id, then by gateway charge id.
func (s *Service) ConfirmPix(ctx context.Context, orderID, chargeID string) (Outcome, error) {
	o, err := s.findPix(ctx, orderID, chargeID)
	if errors.Is(err, orders.ErrNotFound) {
		s.Log.Warn("pix confirmation for unknown order", "order_id", orderID, "charge_id", chargeID)
		return NotFound, nil
	}
	if err != nil {
		return NotFound, err
	}

	ok, short, err := s.Settle.ConfirmPending(ctx, o)
	if err != nil {
		return NotFound, fmt.Errorf("confirm order %s: %w", o.ID, err)
	}
	if !ok {
		s.Log.Info("pix confirmation ignored, order not pending", "order_id", o.ID, "status", o.Status)
		return AlreadyAdvanced, nil
	}

	o.Status = orders.StatusProcessing
	s.afterPaid(ctx, o, short)
	return Advanced, nil
}

// ExpirePix cancels a Pix order whose charge expired unpaid. Nothing was
// taken from stock for a pending order, so there is nothing to put back.
func (s *Service) ExpirePix(ctx context.Context, orderID string) (Outcome, error) {
	ok, err := s.Orders.Transition(ctx, orderID, orders.StatusCancelled, orders.StatusPending)
	if err != nil {
		return NotFound, fmt.Errorf("expire order %s: %w", orderID, err)
	}
	if !ok {
		return AlreadyAdvanced, nil
	}
	if _, err := s.reload(ctx, orderID, orders.EventOrderCancelled); err != nil {
		s.Log.Warn("reload expired order failed", "order_id", orderID, "err", err)
	}
	s.Log.Info("pix order expired", "order_id", orderID)
	return Advanced, nil
}

func (s *Service) findPix(ctx context.Context, orderID, chargeID string) (*orders.Order, error) {
	if orderID != "" {
		o, err := s.Orders.Get(ctx, orderID)
		if !errors.Is(err, orders.ErrNotFound) {
			return o, err
		}
	}
	if chargeID != "" {
		return s.Orders.GetByPaymentReference(ctx, chargeID)
	}
	return nil, orders.ErrNotFound
}

// MaterializeCard creates a paid card order from gateway metadata. An order
// already carrying the same payment reference means a duplicate delivery.
func (s *Service) MaterializeCard(ctx context.Context, o *orders.Order) (Outcome, error) {
	if o.PaymentReference == "" {
		return NotFound, errors.New("card order without payment reference")
	}
	existing, err := s.Orders.GetByPaymentReference(ctx, o.PaymentReference)
	if err == nil {
		s.Log.Info("card payment already recorded", "order_id", existing.ID, "reference", o.PaymentReference)
		return AlreadyAdvanced, nil
	}
	if !errors.Is(err, orders.ErrNotFound) {
		return NotFound, err
	}

	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.Status = orders.StatusProcessing
	o.PaymentMethod = orders.PaymentCard
	short, err := s.Settle.CreatePaid(ctx, o)
	if err != nil {
		if errors.Is(err, orders.ErrDuplicateReference) {
			return AlreadyAdvanced, nil
		}
		return NotFound, fmt.Errorf("create card order: %w", err)
	}

	s.afterPaid(ctx, o, short)
	return Advanced, nil
}

// afterPaid runs once per order, after the paid transition and its stock
// decrements committed. Failures here are logged only.
func (s *Service) afterPaid(ctx context.Context, o *orders.Order, short []stock.Key) {
	ctx, cancel := detach(ctx)
	defer cancel()

	for _, k := range short {
		// oversell: order tetap jalan, rekonsiliasi stok manual
		s.Log.Warn("insufficient stock for paid order", "order_id", o.ID, "key", k.String())
	}

	if err := s.Cart.PurgePurchased(ctx, o.UserID, cart.KeysFromItems(o.Items)); err != nil {
		s.Log.Error("purge purchased cart lines failed", "order_id", o.ID, "user_id", o.UserID, "err", err)
	}

	s.changed(ctx, o, orders.EventOrderPaid)
	s.Log.Info("order paid", "order_id", o.ID, "method", o.PaymentMethod, "total", o.TotalAmount.String())
}

func (s *Service) Ship(ctx context.Context, id, trackingCode string) (*orders.Order, error) {
	ok, err := s.Orders.MarkShipped(ctx, id, trackingCode)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.rejected(ctx, id, orders.StatusShipped)
	}
	return s.reload(ctx, id, orders.EventOrderShipped)
}

func (s *Service) Deliver(ctx context.Context, id string) (*orders.Order, error) {
	ok, err := s.Orders.Transition(ctx, id, orders.StatusDelivered, orders.StatusShipped)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.rejected(ctx, id, orders.StatusDelivered)
	}
	return s.reload(ctx, id, orders.EventOrderDelivered)
}

// Cancel is allowed from pending or processing. Cancelling a processing
// order puts its units back.
func (s *Service) Cancel(ctx context.Context, id string) (*orders.Order, error) {
	o, err := s.Orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !orders.CanTransition(o.Status, orders.StatusCancelled) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, orders.StatusCancelled)
	}
	ok, err := s.Settle.CancelFrom(ctx, o, o.Status)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.rejected(ctx, id, orders.StatusCancelled)
	}

	o.Status = orders.StatusCancelled
	bg, cancel := detach(ctx)
	defer cancel()
	s.changed(bg, o, orders.EventOrderCancelled)
	return o, nil
}

func (s *Service) rejected(ctx context.Context, id string, to orders.Status) error {
	o, err := s.Orders.Get(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
}

func (s *Service) reload(ctx context.Context, id, event string) (*orders.Order, error) {
	bg, cancel := detach(ctx)
	defer cancel()
	o, err := s.Orders.Get(bg, id)
	if err != nil {
		return nil, err
	}
	s.changed(bg, o, event)
	return o, nil
}

func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
}

// changed drops the cached status and publishes the lifecycle event. Both are
// best effort and never undo the committed transition.
func (s *Service) changed(ctx context.Context, o *orders.Order, event string) {
	if s.Cache != nil {
		if err := s.Cache.Invalidate(ctx, o.ID); err != nil {
			s.Log.Warn("status cache invalidate failed", "order_id", o.ID, "err", err)
		}
	}
	if s.Publisher == nil {
		return
	}

	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     event,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.Producer,
		CorrelationID: o.ID,
		Payload:       kafkax.MustMarshal(orders.NewLifecyclePayload(o)),
	}
	s.Publisher.Publish(orders.PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(event)},
		kafkago.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(ev.EventVersion))},
	)
}
