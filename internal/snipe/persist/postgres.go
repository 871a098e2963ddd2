package persist

import (
	"context"
	"fmt"

	"solana-token-lab/internal/storage/postgres"
)

// PostgresMintCache is a MintCache backed by the teacher's
// postgres.Pool wrapper (internal/storage/postgres/postgres.go),
// adapted here from the discovery-progress cursor pattern in
// internal/storage/postgres/discovery_progress_store.go: upsert on
// first sight, plain select to warm the in-memory cache on startup.
type PostgresMintCache struct {
	pool *postgres.Pool
}

// NewPostgresMintCache builds a cache store over an already-connected pool.
func NewPostgresMintCache(pool *postgres.Pool) *PostgresMintCache {
	return &PostgresMintCache{pool: pool}
}

var _ MintCache = (*PostgresMintCache)(nil)

// LoadAll returns every persisted mint-validation result.
func (c *PostgresMintCache) LoadAll(ctx context.Context) (map[string]bool, error) {
	rows, err := c.pool.Query(ctx, `SELECT mint, valid FROM snipe_mint_validations`)
	if err != nil {
		return nil, fmt.Errorf("load mint validations: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var mint string
		var valid bool
		if err := rows.Scan(&mint, &valid); err != nil {
			return nil, fmt.Errorf("scan mint validation: %w", err)
		}
		out[mint] = valid
	}
	return out, rows.Err()
}

// Save upserts a single mint-validation result.
func (c *PostgresMintCache) Save(ctx context.Context, mint string, valid bool) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO snipe_mint_validations (mint, valid, validated_at)
		VALUES ($1, $2, extract(epoch from now())::bigint)
		ON CONFLICT (mint) DO UPDATE SET valid = EXCLUDED.valid, validated_at = EXCLUDED.validated_at
	`, mint, valid)
	if err != nil {
		return fmt.Errorf("save mint validation: %w", err)
	}
	return nil
}

// PostgresDedupCache is a DedupCache backed by the same pool,
// persisting first-seen signature timestamps so a resumed process can
// rebuild the ingest dedup map's in-flight TTL window.
type PostgresDedupCache struct {
	pool *postgres.Pool
}

// NewPostgresDedupCache builds a cache store over an already-connected pool.
func NewPostgresDedupCache(pool *postgres.Pool) *PostgresDedupCache {
	return &PostgresDedupCache{pool: pool}
}

var _ DedupCache = (*PostgresDedupCache)(nil)

// LoadRecent returns every dedup entry inserted within the last
// ttlSeconds, keyed by signature, to warm the in-memory dedup map.
func (c *PostgresDedupCache) LoadRecent(ctx context.Context, ttlSeconds int64) (map[string]int64, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT signature, inserted_at
		FROM snipe_dedup_entries
		WHERE inserted_at >= extract(epoch from now())::bigint - $1
	`, ttlSeconds)
	if err != nil {
		return nil, fmt.Errorf("load dedup entries: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var sig string
		var insertedAt int64
		if err := rows.Scan(&sig, &insertedAt); err != nil {
			return nil, fmt.Errorf("scan dedup entry: %w", err)
		}
		out[sig] = insertedAt
	}
	return out, rows.Err()
}

// Save records a signature's first-seen timestamp.
func (c *PostgresDedupCache) Save(ctx context.Context, signature string, insertedAtUnix int64) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO snipe_dedup_entries (signature, inserted_at)
		VALUES ($1, $2)
		ON CONFLICT (signature) DO NOTHING
	`, signature, insertedAtUnix)
	if err != nil {
		return fmt.Errorf("save dedup entry: %w", err)
	}
	return nil
}
