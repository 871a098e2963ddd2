// Package snipe wires the rate limiter, decoders, signal scorer,
// fingerprint matcher, mint validator, and snipe executor into the
// single realtime pipeline driven per inbound log notification.
package snipe

import (
	"solana-token-lab/internal/decode"
	"solana-token-lab/internal/signal"
	"solana-token-lab/internal/solana"
)

// Config is the named configuration surface spec §6 describes: the
// program set to monitor, the payer, and the per-component tuning
// knobs each already-built package exposes.
type Config struct {
	RPCEndpoint string
	WSEndpoint  string

	Programs []solana.ProgramDescriptor

	PayerSecretBase58 string

	AmountNativeLamports int64
	MaxSlippageSentinel  int64

	MaxSlotLag int64

	RateLimitPerSecond float64
	RateLimitBurst     int

	Fingerprints  []signal.Fingerprint
	SignalWeights signal.Weights

	LaunchpadProgram solana.Address32
	GlobalFeeVault   solana.Address32
	ConfigAuthority  solana.Address32

	ReportInterval int // seconds; 0 disables periodic counter logging

	// PostgresDSN, when non-empty, enables dedup/mint-validation
	// persistence across restarts (internal/snipe/persist). ClickhouseDSN,
	// when non-empty, enables per-message outcome recording. Both are
	// optional per spec §5's "no transactions required" resource model.
	PostgresDSN   string
	ClickhouseDSN string
}

// bondingCurveTag, ammPoolTag, and virtualPoolTag name the three
// decoder families a fingerprint's Tag resolves to, matching the
// Registry keys wired in orchestrator.go.
const (
	bondingCurveTag = "bonding_curve"
	ammPoolTag      = "amm_pool"
	virtualPoolTag  = "virtual_pool"
)

// DefaultSignalWeights is the pipeline's baseline scoring
// configuration, favoring the instruction names spec §4.5's example
// weighs most heavily.
func DefaultSignalWeights() signal.Weights {
	return signal.Weights{
		"create":      1.0,
		"initialize2": 0.8,
		"initializevirtualpoolwithspltoken": 0.8,
		"mintto": 0.5,
		"swap":   0.2,
	}
}

// DefaultFingerprints is the pipeline's baseline multi-criterion
// classification configuration: pump.fun bonding-curve launches match
// first (highest confidence, requires the program and "create" in an
// AND match), then Raydium AMM pool inits (fuzzy match over a 3-
// instruction set), then a permissive virtual-pool OR fallback.
func DefaultFingerprints() []signal.Fingerprint {
	return []signal.Fingerprint{
		{
			Tag:                  bondingCurveTag,
			RequiredInstructions: []string{"create"},
			RequiredPrograms:     []string{pumpFunProgramID},
			Logic:                signal.LogicAND,
			MinScore:             2,
			Confidence:           0.94,
		},
		{
			Tag:                  ammPoolTag,
			RequiredInstructions: []string{"initialize2", "deposit", "swap"},
			RequiredPrograms:     []string{decode.RaydiumAMMV4},
			Logic:                signal.LogicFuzzy,
			MinScore:             1,
			Confidence:           0.8,
		},
		{
			Tag:                  virtualPoolTag,
			RequiredInstructions: []string{"initializevirtualpoolwithspltoken"},
			RequiredPrograms:     []string{pumpFunProgramID},
			Logic:                signal.LogicOR,
			MinScore:             1,
			Confidence:           0.6,
		},
	}
}

// pumpFunProgramID is the pump.fun bonding-curve program id, grounded
// on internal/discovery/dex_parser.go's PumpFun constant.
const pumpFunProgramID = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
