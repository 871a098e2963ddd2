package persist

import (
	"context"
	"fmt"

	"solana-token-lab/internal/storage/clickhouse"
)

// ClickhouseOutcomeSink records per-message pipeline outcomes into the
// analytics warehouse, adapted from the teacher's bulk-insert stores
// (internal/storage/clickhouse/*_store.go) down to a single-row Exec
// since outcomes arrive one at a time off the hot path rather than in
// batches.
type ClickhouseOutcomeSink struct {
	conn *clickhouse.Conn
}

// NewClickhouseOutcomeSink builds a sink over an already-connected conn.
func NewClickhouseOutcomeSink(conn *clickhouse.Conn) *ClickhouseOutcomeSink {
	return &ClickhouseOutcomeSink{conn: conn}
}

var _ OutcomeSink = (*ClickhouseOutcomeSink)(nil)

// RecordOutcome appends one outcome row.
func (s *ClickhouseOutcomeSink) RecordOutcome(ctx context.Context, o Outcome) error {
	err := s.conn.Exec(ctx, `
		INSERT INTO snipe_outcomes (
			program, signature, tag, confidence, mint, status, detail, timestamp_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		o.Program, o.Signature, o.Tag, o.Confidence, o.Mint, o.Status, o.Detail, uint64(o.TimestampMs),
	)
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	return nil
}
