// Package sweeper re-checks pending Pix orders with the gateway, for
// confirmations whose webhook never arrived.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ariefcatur/storefront-orders/internal/fulfillment"
	"github.com/ariefcatur/storefront-orders/internal/gateway/pix"
	"github.com/ariefcatur/storefront-orders/internal/orders"
	"golang.org/x/sync/errgroup"
)

type PendingLister interface {
	ListPendingPix(ctx context.Context, limit int) ([]orders.PendingCharge, error)
}

type StatusChecker interface {
	ChargeStatus(ctx context.Context, chargeID string) (pix.Charge, error)
}

type Confirmer interface {
	ConfirmPix(ctx context.Context, orderID, chargeID string) (fulfillment.Outcome, error)
	ExpirePix(ctx context.Context, orderID string) (fulfillment.Outcome, error)
}

type Sweeper struct {
	Orders      PendingLister
	Gateway     StatusChecker
	Fulfill     Confirmer
	Concurrency int
	BatchSize   int
	Log         *slog.Logger
}

type Report struct {
	Checked      int64 `json:"checked"`
	Confirmed    int64 `json:"confirmed"`
	AlreadyDone  int64 `json:"already_done"`
	StillPending int64 `json:"still_pending"`
	Expired      int64 `json:"expired"`
	Failed       int64 `json:"failed"`
}

// Tick checks one batch. Orders are claimed least recently swept first, so
// consecutive ticks walk the whole backlog. Expired charges cancel their
// order. A failure on one order is counted and logged and
// does not stop the others; only listing failures are returned.
func (s *Sweeper) Tick(ctx context.Context) (Report, error) {
	batch := s.BatchSize
	if batch <= 0 {
		batch = 200
	}
	pending, err := s.Orders.ListPendingPix(ctx, batch)
	if err != nil {
		return Report{}, fmt.Errorf("list pending pix orders: %w", err)
	}

	var (
		checked, confirmed, already, still, expired, failed atomic.Int64
	)
	g, gctx := errgroup.WithContext(ctx)
	limit := s.Concurrency
	if limit <= 0 {
		limit = 4
	}
	g.SetLimit(limit)

	for _, pc := range pending {
		g.Go(func() error {
			checked.Add(1)
			ch, err := s.Gateway.ChargeStatus(gctx, pc.ChargeID)
			if err != nil {
				failed.Add(1)
				s.Log.Warn("sweeper status check failed", "order_id", pc.OrderID, "charge_id", pc.ChargeID, "err", err)
				return nil
			}
			if ch.Status == pix.StatusExpired {
				out, err := s.Fulfill.ExpirePix(gctx, pc.OrderID)
				switch {
				case err != nil:
					failed.Add(1)
					s.Log.Error("sweeper expiry failed", "order_id", pc.OrderID, "err", err)
				case out == fulfillment.Advanced:
					expired.Add(1)
				default:
					already.Add(1)
				}
				return nil
			}
			if !ch.Paid() {
				still.Add(1)
				return nil
			}

			out, err := s.Fulfill.ConfirmPix(gctx, pc.OrderID, pc.ChargeID)
			if err != nil {
				failed.Add(1)
				s.Log.Error("sweeper confirmation failed", "order_id", pc.OrderID, "err", err)
				return nil
			}
			switch out {
			case fulfillment.Advanced:
				confirmed.Add(1)
				s.Log.Info("sweeper confirmed missed pix payment", "order_id", pc.OrderID, "charge_id", pc.ChargeID)
			default:
				already.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	r := Report{
		Checked:      checked.Load(),
		Confirmed:    confirmed.Load(),
		AlreadyDone:  already.Load(),
		StillPending: still.Load(),
		Expired:      expired.Load(),
		Failed:       failed.Load(),
	}
	s.Log.Info("sweep done", "pending", len(pending), "checked", r.Checked, "confirmed", r.Confirmed,
		"already_done", r.AlreadyDone, "still_pending", r.StillPending, "expired", r.Expired, "failed", r.Failed)
	return r, ctx.Err()
}

// Run ticks immediately and then every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if _, err := s.Tick(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.Log.Error("sweep failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}
