// Package persist adapts the teacher's PostgreSQL/ClickHouse storage
// layer (internal/storage/postgres, internal/storage/clickhouse) into
// optional durability sinks for the realtime snipe pipeline: a
// dedup/mint-validation cache that survives restarts, and an outcome
// sink recording every dispatch/resolution for offline analysis.
// Neither is required — the orchestrator and validator run fully
// in-memory when no sink is configured, per spec §5's "no transactions
// required" resource model.
package persist

import (
	"context"

	"solana-token-lab/internal/snipe"
)

// MintCache persists the mint-validator's owner/kind lookups across
// restarts, mirroring the in-memory cache validate.MintValidator keeps
// for the life of the process.
type MintCache interface {
	// LoadAll returns every previously-validated mint and its result,
	// used to warm the in-memory cache on startup.
	LoadAll(ctx context.Context) (map[string]bool, error)

	// Save records a single validation result.
	Save(ctx context.Context, mint string, valid bool) error
}

// DedupCache persists the ingest dedup map's signature entries across
// restarts so a resumed process does not reprocess a signature it
// already handled within the 60s TTL window.
type DedupCache interface {
	// LoadRecent returns signatures inserted within the last ttlSeconds.
	LoadRecent(ctx context.Context, ttlSeconds int64) (map[string]int64, error)

	// Save records a signature's first-seen unix timestamp (seconds).
	Save(ctx context.Context, signature string, insertedAtUnix int64) error
}

// Outcome is an alias of snipe.Outcome so that sinks built in this
// package satisfy snipe.OutcomeSink directly, with no conversion layer
// at the call site in cmd/snipe/main.go.
type Outcome = snipe.Outcome

// OutcomeSink records per-message pipeline outcomes. Implementations
// must not block the hot path on failure; sink errors are logged by
// the caller and otherwise ignored. Identical in shape to
// snipe.OutcomeSink — declared separately so this package does not
// require importing snipe's Orchestrator machinery, just its Outcome
// type alias above.
type OutcomeSink interface {
	RecordOutcome(ctx context.Context, o Outcome) error
}
