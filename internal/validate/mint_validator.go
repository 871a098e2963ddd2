// Package validate implements the mint validity check the snipe
// pipeline runs before executing a buy: confirm the recovered address
// really is an initialized SPL mint account, not a stale or malformed
// address a decoder mis-extracted.
package validate

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"solana-token-lab/internal/backoff"
	"solana-token-lab/internal/ratelimit"
	"solana-token-lab/internal/snipeerr"
	"solana-token-lab/internal/solana"
)

// AccountInfoFetcher is the subset of solana.HTTPClient the validator
// needs.
type AccountInfoFetcher interface {
	GetAccountInfoParsed(ctx context.Context, pubkey string) (*solana.ParsedAccountInfo, error)
}

// parsedMintEnvelope mirrors the jsonParsed "parsed.info" wrapper
// returned for an SPL mint account.
type parsedMintEnvelope struct {
	Parsed struct {
		Type string                  `json:"type"`
		Info solana.MintAccountData `json:"info"`
	} `json:"parsed"`
}

// MintValidator confirms a candidate mint address is a real,
// initialized SPL mint account, memoizing results for the process
// lifetime since a mint's owner/type never changes once created —
// grounded on spec test S6's "at most one getAccountInfo call per
// mint" invariant.
type MintValidator struct {
	rpc     AccountInfoFetcher
	limiter *ratelimit.Limiter
	persist MintCache

	mu    sync.RWMutex
	cache map[solana.Address32]bool
}

// MintCache optionally persists validation results across restarts,
// e.g. persist.PostgresMintCache. A MintValidator with no configured
// cache keeps results in-memory for the process lifetime only, per
// spec §4.7.
type MintCache interface {
	LoadAll(ctx context.Context) (map[string]bool, error)
	Save(ctx context.Context, mint string, valid bool) error
}

// ValidatorOption configures a MintValidator.
type ValidatorOption func(*MintValidator)

// WithMintCache warms the in-memory cache from persist at construction
// and persists every newly-computed result to it going forward.
func WithMintCache(cache MintCache) ValidatorOption {
	return func(v *MintValidator) { v.persist = cache }
}

// NewMintValidator builds a validator backed by rpc and limiter.
func NewMintValidator(rpc AccountInfoFetcher, limiter *ratelimit.Limiter, opts ...ValidatorOption) *MintValidator {
	v := &MintValidator{
		rpc:     rpc,
		limiter: limiter,
		cache:   make(map[solana.Address32]bool),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.persist != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if loaded, err := v.persist.LoadAll(ctx); err == nil {
			for mint, valid := range loaded {
				if addr, err := solana.DecodeAddress(mint); err == nil {
					v.cache[addr] = valid
				}
			}
		}
		cancel()
	}
	return v
}

// IsValidMint reports whether mint is an initialized SPL mint account
// owned by the SPL token program. Results are cached per mint for the
// life of the process; a cache hit never issues another RPC call.
func (v *MintValidator) IsValidMint(ctx context.Context, mint solana.Address32) (bool, error) {
	v.mu.RLock()
	valid, cached := v.cache[mint]
	v.mu.RUnlock()
	if cached {
		return valid, nil
	}

	if err := v.limiter.Acquire(ctx, "mint-validate", 1); err != nil {
		return false, snipeerr.New(snipeerr.RateLimited, "validate.IsValidMint", err)
	}

	var info *solana.ParsedAccountInfo
	err := backoff.Run(ctx, "validate.GetAccountInfoParsed", 3, backoff.ClassifyTransient, func(ctx context.Context) error {
		var rpcErr error
		info, rpcErr = v.rpc.GetAccountInfoParsed(ctx, mint.String())
		return rpcErr
	})
	if err != nil {
		return false, snipeerr.New(snipeerr.ProviderError, "validate.IsValidMint", err)
	}

	valid = evaluateMintAccount(mint, info)

	v.mu.Lock()
	v.cache[mint] = valid
	v.mu.Unlock()

	if v.persist != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = v.persist.Save(ctx, mint.String(), valid)
		}()
	}

	return valid, nil
}

// evaluateMintAccount reports whether info describes an initialized
// SPL mint account owned by the SPL token program.
func evaluateMintAccount(mint solana.Address32, info *solana.ParsedAccountInfo) bool {
	if info == nil {
		return false
	}
	if info.Owner != solana.TokenProgramID.String() {
		return false
	}
	if len(info.RawParsed) == 0 {
		return false
	}

	var envelope parsedMintEnvelope
	if err := json.Unmarshal(info.RawParsed, &envelope); err != nil {
		return false
	}
	return envelope.Parsed.Type == "mint" && envelope.Parsed.Info.IsInitialized
}
