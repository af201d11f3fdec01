package cart

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) List(ctx context.Context, userID string) ([]Line, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT product_id, size, color_code, color_name, quantity, selected
		FROM cart_items WHERE user_id=$1 ORDER BY created_at, product_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Line{}
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ProductID, &l.Size, &l.ColorCode, &l.ColorName, &l.Quantity, &l.Selected); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// InsertMissing adds lines whose key is not persisted yet. Existing lines
// keep their server-side quantity and selection.
func (r *Repo) InsertMissing(ctx context.Context, userID string, lines []Line) error {
	if len(lines) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, l := range lines {
		batch.Queue(`
			INSERT INTO cart_items (user_id, product_id, size, color_code, color_name, quantity, selected)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (user_id, product_id, size, color_code) DO NOTHING`,
			userID, l.ProductID, l.Size, l.ColorCode, l.ColorName, l.Quantity, l.Selected)
	}
	return r.DB.SendBatch(ctx, batch).Close()
}

func (r *Repo) DeleteUnselected(ctx context.Context, userID string) (int64, error) {
	ct, err := r.DB.Exec(ctx, `DELETE FROM cart_items WHERE user_id=$1 AND NOT selected`, userID)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func (r *Repo) DeleteKeys(ctx context.Context, userID string, keys []Key) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	products := make([]string, len(keys))
	sizes := make([]string, len(keys))
	colors := make([]string, len(keys))
	for i, k := range keys {
		products[i], sizes[i], colors[i] = k.ProductID, k.Size, k.ColorCode
	}
	ct, err := r.DB.Exec(ctx, `
		DELETE FROM cart_items
		WHERE user_id=$1 AND (product_id, size, color_code) IN (
			SELECT * FROM unnest($2::text[], $3::text[], $4::text[]))`,
		userID, products, sizes, colors)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}
