// Package pgtest opens a migrated Postgres pool for integration tests.
// Tests are skipped unless TEST_DB_DSN is set.
package pgtest

import (
	"context"
	"os"
	"testing"

	"github.com/ariefcatur/storefront-orders/internal/migrate"
	"github.com/jackc/pgx/v5/pgxpool"
)

func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE order_items, orders, cart_items, product_stock, shipping_rates, addresses, profiles, products RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
	return pool
}

func SeedProduct(t *testing.T, pool *pgxpool.Pool, id, name, price string) {
	t.Helper()
	if _, err := pool.Exec(context.Background(),
		`INSERT INTO products (id, name, price) VALUES ($1, $2, $3::numeric)`, id, name, price); err != nil {
		t.Fatalf("insert product: %v", err)
	}
}

func SeedStock(t *testing.T, pool *pgxpool.Pool, productID, size, colorCode string, qty int) {
	t.Helper()
	if _, err := pool.Exec(context.Background(),
		`INSERT INTO product_stock (product_id, size, color_code, quantity) VALUES ($1, $2, $3, $4)`,
		productID, size, colorCode, qty); err != nil {
		t.Fatalf("insert stock: %v", err)
	}
}
