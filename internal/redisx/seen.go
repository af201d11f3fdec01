package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SeenSet records processed event ids under a key pattern with two %s verbs
// (namespace, id). It is a fast path only; callers keep their own
// authoritative idempotency guard.
type SeenSet struct {
	RDB     *redis.Client
	Pattern string
	TTL     time.Duration
}

func NewWebhookSeen(rdb *redis.Client) *SeenSet {
	return &SeenSet{RDB: rdb, Pattern: KeyWebhookSeen, TTL: TTLWebhookSeen}
}

func NewConsumerDedup(rdb *redis.Client) *SeenSet {
	return &SeenSet{RDB: rdb, Pattern: KeyDedup, TTL: TTLDedup}
}

func (s *SeenSet) Seen(ctx context.Context, namespace, id string) (bool, error) {
	return Exists(ctx, s.RDB, fmt.Sprintf(s.Pattern, namespace, id))
}

func (s *SeenSet) Mark(ctx context.Context, namespace, id string) error {
	return s.RDB.Set(ctx, fmt.Sprintf(s.Pattern, namespace, id), "1", s.TTL).Err()
}
