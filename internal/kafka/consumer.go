package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"
)

// Handler harus return nil hanya jika proses sukses & boleh commit offset.
type Handler func(ctx context.Context, m kafka.Message) error

// Consumer fans messages out to workers by partition, so offsets of one
// partition are always committed in order by the same worker.
type Consumer struct {
	r       *kafka.Reader
	workers int
	log     *slog.Logger

	// MaxAttempts bounds handler retries for one message; after that the
	// message is logged and committed so the partition keeps moving.
	MaxAttempts int
	Backoff     time.Duration
}

func NewConsumer(brokers []string, group, topic string, workers int, log *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{
		r:           r,
		workers:     workers,
		log:         log.With("group", group, "topic", topic),
		MaxAttempts: 5,
		Backoff:     200 * time.Millisecond,
	}
}

// Start blocks until ctx is cancelled (returns nil) or the reader fails.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	lanes := make([]chan kafka.Message, c.workers)
	g, gctx := errgroup.WithContext(ctx)
	for i := range lanes {
		lanes[i] = make(chan kafka.Message, 64)
		lane := lanes[i]
		g.Go(func() error {
			for m := range lane {
				c.process(gctx, h, m)
			}
			return nil
		})
	}

	fetchErr := c.dispatch(gctx, lanes)
	for _, l := range lanes {
		close(l)
	}
	_ = g.Wait()

	if fetchErr != nil && ctx.Err() == nil {
		return fetchErr
	}
	return nil
}

func (c *Consumer) dispatch(ctx context.Context, lanes []chan kafka.Message) error {
	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			return err
		}
		select {
		case lanes[m.Partition%len(lanes)] <- m:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Consumer) process(ctx context.Context, h Handler, m kafka.Message) {
	wait := c.Backoff
	for attempt := 1; ; attempt++ {
		err := h(ctx, m)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return // belum di-commit, akan dikirim ulang setelah rebalance/restart
		}
		if attempt >= c.MaxAttempts {
			c.log.Error("giving up on message", "partition", m.Partition, "offset", m.Offset, "attempts", attempt, "err", err)
			break
		}
		c.log.Warn("handler failed, retrying", "partition", m.Partition, "offset", m.Offset, "attempt", attempt, "err", err)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}
		wait *= 2
	}

	if err := c.r.CommitMessages(ctx, m); err != nil && !errors.Is(err, context.Canceled) {
		c.log.Error("commit failed", "partition", m.Partition, "offset", m.Offset, "err", err)
	}
}
