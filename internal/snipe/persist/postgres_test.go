package persist

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"solana-token-lab/internal/storage/migrations"
	pgstore "solana-token-lab/internal/storage/postgres"
)

func setupPostgres(t *testing.T) (*pgstore.Pool, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgstore.NewPool(ctx, dsn)
	require.NoError(t, err)

	require.NoError(t, migrations.RunPostgresMigrations(ctx, pool))

	cleanup := func() {
		pool.Close()
		_ = container.Terminate(ctx)
	}
	return pool, cleanup
}

func TestPostgresMintCache_SaveAndLoadAll(t *testing.T) {
	pool, cleanup := setupPostgres(t)
	defer cleanup()

	cache := NewPostgresMintCache(pool)
	ctx := context.Background()

	require.NoError(t, cache.Save(ctx, "mintA", true))
	require.NoError(t, cache.Save(ctx, "mintB", false))

	loaded, err := cache.LoadAll(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]bool{"mintA": true, "mintB": false}, loaded)
}

func TestPostgresMintCache_SaveOverwritesExisting(t *testing.T) {
	pool, cleanup := setupPostgres(t)
	defer cleanup()

	cache := NewPostgresMintCache(pool)
	ctx := context.Background()

	require.NoError(t, cache.Save(ctx, "mintA", false))
	require.NoError(t, cache.Save(ctx, "mintA", true))

	loaded, err := cache.LoadAll(ctx)
	require.NoError(t, err)
	require.Equal(t, true, loaded["mintA"])
}

func TestPostgresDedupCache_SaveAndLoadRecent(t *testing.T) {
	pool, cleanup := setupPostgres(t)
	defer cleanup()

	cache := NewPostgresDedupCache(pool)
	ctx := context.Background()

	now := time.Now().Unix()
	require.NoError(t, cache.Save(ctx, "sig-recent", now))
	require.NoError(t, cache.Save(ctx, "sig-stale", now-3600))

	recent, err := cache.LoadRecent(ctx, 60)
	require.NoError(t, err)
	require.Contains(t, recent, "sig-recent")
	require.NotContains(t, recent, "sig-stale")
}

func TestPostgresDedupCache_SaveIsIdempotent(t *testing.T) {
	pool, cleanup := setupPostgres(t)
	defer cleanup()

	cache := NewPostgresDedupCache(pool)
	ctx := context.Background()

	now := time.Now().Unix()
	require.NoError(t, cache.Save(ctx, "sig-dup", now))
	require.NoError(t, cache.Save(ctx, "sig-dup", now+1))

	recent, err := cache.LoadRecent(ctx, 60)
	require.NoError(t, err)
	require.Equal(t, now, recent["sig-dup"])
}
