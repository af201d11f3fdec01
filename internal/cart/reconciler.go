package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ariefcatur/storefront-orders/internal/redisx"
	"github.com/redis/go-redis/v9"
)

var ErrNoSession = errors.New("cart: session and user are required")

type Store interface {
	List(ctx context.Context, userID string) ([]Line, error)
	InsertMissing(ctx context.Context, userID string, lines []Line) error
	DeleteUnselected(ctx context.Context, userID string) (int64, error)
	DeleteKeys(ctx context.Context, userID string, keys []Key) (int64, error)
}

// Reconciler owns the persisted per-user cart and its session lifecycle.
type Reconciler struct {
	Store Store
	Redis *redis.Client
	Log   *slog.Logger
}

// Merge folds a pre-sign-in cart into the persisted one and returns the
// result, which becomes the client's cart. Only the first call per session
// writes; later calls return the persisted cart unchanged.
func (r *Reconciler) Merge(ctx context.Context, sessionID, userID string, local []Line) ([]Line, error) {
	if sessionID == "" || userID == "" {
		return nil, ErrNoSession
	}

	flag := fmt.Sprintf(redisx.KeyCartSynced, sessionID)
	first, err := r.Redis.SetNX(ctx, flag, userID, redisx.TTLCartSynced).Result()
	if err != nil {
		return nil, fmt.Errorf("cart sync flag: %w", err)
	}
	if !first {
		return r.Store.List(ctx, userID)
	}

	if err := r.Store.InsertMissing(ctx, userID, normalize(local)); err != nil {
		// biar merge bisa diulang di request berikutnya
		_ = r.Redis.Del(ctx, flag).Err()
		return nil, fmt.Errorf("merge cart: %w", err)
	}
	merged, err := r.Store.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	r.Log.Info("cart merged", "user_id", userID, "local_lines", len(local), "lines", len(merged))
	return merged, nil
}

// SignOut forgets the session's sync flag. The returned local cart is empty.
func (r *Reconciler) SignOut(ctx context.Context, sessionID string) ([]Line, error) {
	if sessionID != "" {
		if err := r.Redis.Del(ctx, fmt.Sprintf(redisx.KeyCartSynced, sessionID)).Err(); err != nil {
			return nil, err
		}
	}
	return []Line{}, nil
}

func (r *Reconciler) PurgeUnselected(ctx context.Context, userID string) error {
	n, err := r.Store.DeleteUnselected(ctx, userID)
	if err != nil {
		return fmt.Errorf("purge unselected: %w", err)
	}
	r.Log.Debug("purged unselected cart lines", "user_id", userID, "removed", n)
	return nil
}

func (r *Reconciler) PurgePurchased(ctx context.Context, userID string, keys []Key) error {
	n, err := r.Store.DeleteKeys(ctx, userID, keys)
	if err != nil {
		return fmt.Errorf("purge purchased: %w", err)
	}
	r.Log.Debug("purged purchased cart lines", "user_id", userID, "removed", n)
	return nil
}
