// Package pgtest opens a migrated PostgreSQL schema for repository tests. Tests are
// skipped unless PG_DSN points at a reachable server.
package pgtest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kelseyhightower/envconfig"
	"github.com/stretchr/testify/require"

	"github.com/motorhub/motorhub/migrations"
)

// Pool returns a pool whose search_path is a fresh schema holding the full migration
// set. The schema is dropped when the test ends.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := lookupDSN()
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	admin, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	_, err = admin.Exec(ctx, "CREATE SCHEMA "+schema)
	require.NoError(t, err)

	cfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		pool.Close()
		_, _ = admin.Exec(context.Background(), "DROP SCHEMA "+schema+" CASCADE")
		admin.Close()
	})

	up, err := migrations.Up()
	require.NoError(t, err)
	for _, m := range up {
		_, err := pool.Exec(ctx, m.SQL)
		require.NoError(t, err, m.Name)
	}
	return pool
}

// SeedUser inserts a user with the given role and returns its id.
func SeedUser(t *testing.T, pool *pgxpool.Pool, role string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := pool.Exec(context.Background(), `INSERT INTO users (id, email, name, role) VALUES ($1, $2, $3, $4)`,
		id, id.String()+"@motorhub.test", "Test "+role, role)
	require.NoError(t, err)
	return id
}

// SeedListing inserts a published listing owned by owner on package pkg.
func SeedListing(t *testing.T, pool *pgxpool.Pool, owner uuid.UUID, pkg string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := pool.Exec(context.Background(), `INSERT INTO listings (id, owner_id, title, status, package, published_at)
VALUES ($1, $2, 'Test listing', 'published', $3, NOW())`, id, owner, pkg)
	require.NoError(t, err)
	return id
}

type env struct {
	DSN string `envconfig:"PG_DSN"`
}

func lookupDSN() string {
	var e env
	if err := envconfig.Process("", &e); err != nil {
		return ""
	}
	return e.DSN
}
