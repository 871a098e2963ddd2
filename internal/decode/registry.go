// Package decode implements the three mint-extraction decoders named in
// spec §4.6 (bonding-curve launch, AMM-initPool, virtual-pool) behind a
// common Decoder capability, grounded on internal/discovery/
// dex_parser.go's per-program parser registry (DEXParser.parsers).
package decode

import (
	"context"

	"solana-token-lab/internal/solana"
)

// TxFetcher is the subset of solana.RPCClient/HTTPClient the decoders
// need: the full confirmed transaction for a signature.
type TxFetcher interface {
	GetTransaction(ctx context.Context, signature string) (*solana.Transaction, error)
}

// DecodedEvent is what a decoder recovers from a newly launched token's
// transaction: the mint address plus whatever pool/metadata fields that
// decoder's family exposes.
type DecodedEvent struct {
	Mint       solana.Address32
	Confidence float64
	PoolData   map[string]string
	Metadata   map[string]string
}

// Decoder is the one-method capability every decoder family implements,
// realizing spec §9's "tagged-variant or small interface with a
// registry keyed by tag" recommendation. Decode returns (nil, nil) when
// the family recognizes the tag but cannot recover a mint from this
// particular message — callers fall back to another path rather than
// treating it as an error.
type Decoder interface {
	Decode(ctx context.Context, signature string, lines []string) (*DecodedEvent, error)
}

// Registry maps a classification tag to the decoder that knows how to
// extract that family's mint.
type Registry struct {
	decoders map[string]Decoder
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[string]Decoder)}
}

// Register associates tag with d, overwriting any previous registration.
func (r *Registry) Register(tag string, d Decoder) {
	r.decoders[tag] = d
}

// For returns the decoder registered for tag, or nil if none is.
func (r *Registry) For(tag string) Decoder {
	return r.decoders[tag]
}

// resolveLogLines prefers the confirmed transaction's own logMessages
// (the authoritative post-execution log) over the notification's lines,
// falling back to the notification's lines when the transaction lookup
// comes back empty — the common first step every decoder in spec §4.6
// performs before scanning for its family's markers.
func resolveLogLines(tx *solana.Transaction, fallback []string) []string {
	if tx != nil && tx.Meta != nil && len(tx.Meta.LogMessages) > 0 {
		return tx.Meta.LogMessages
	}
	return fallback
}
