// Package dbtest wires repository tests to a live PostgreSQL.
package dbtest

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vasiliy-maslov/storefront/internal/db"
)

const EnvDatabaseURL = "STOREFRONT_TEST_DATABASE_URL"

// Pool connects to the database named by STOREFRONT_TEST_DATABASE_URL
// (a postgres:// URL), applies migrations and truncates every table.
// The test is skipped when the variable is unset.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv(EnvDatabaseURL)
	if url == "" {
		t.Skipf("%s is not set, skipping PostgreSQL test", EnvDatabaseURL)
	}

	migrateURL := "pgx5://" + strings.TrimPrefix(strings.TrimPrefix(url, "postgres://"), "postgresql://")
	if err := db.ApplyMigrations(migrateURL); err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	truncate(t, pool)
	t.Cleanup(func() { truncate(t, pool) })

	return pool
}

func truncate(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(context.Background(),
		"TRUNCATE TABLE order_items, orders, carts, products, categories, banners, settings, users")
	if err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}
