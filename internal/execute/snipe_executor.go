// Package execute implements the snipe executor: assembling, signing,
// simulating, and submitting the launchpad "buy" transaction for a
// mint the pipeline has decided is worth sniping.
package execute

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"solana-token-lab/internal/backoff"
	"solana-token-lab/internal/snipeerr"
	"solana-token-lab/internal/solana"
)

// buyDiscriminator is the Anchor 8-byte instruction discriminator for
// the launchpad's "buy" instruction, grounded on the pack's
// trading-bot tx decoder (BuyDiscriminator in its PumpSwap AMM
// instruction table).
var buyDiscriminator = []byte{102, 6, 61, 18, 1, 218, 235, 234}

// defaultMaxSlippageSentinel is the spec §4.8/§6 sentinel value: left
// as -1, meaning "use the program's default slippage handling" — its
// exact on-chain semantics are implementation-defined per spec §9 Open
// Question 2.
const defaultMaxSlippageSentinel int64 = -1

// Config is the executor's static configuration: the program ids and
// well-known accounts every buy instruction references, grounded on
// the pack's sniper-bot constants (globalAddr/feeRecipient in
// other_examples' pump-fun-sniper-bot fragment).
type Config struct {
	LaunchpadProgram solana.Address32
	GlobalFeeVault   solana.Address32
	ConfigAuthority  solana.Address32

	MaxAttempts       int
	ConfirmCommitment string
	ConfirmPoll       time.Duration
}

// BuyOrder is a single snipe request.
type BuyOrder struct {
	Payer               *solana.Keypair
	Mint                solana.Address32
	AmountNative        int64
	MaxSlippageSentinel int64 // 0 means "use defaultMaxSlippageSentinel"
}

// RPC is the subset of solana.HTTPClient the executor needs.
type RPC interface {
	GetLatestBlockhash(ctx context.Context, commitment string) (*solana.BlockhashResult, error)
	GetAccountInfo(ctx context.Context, pubkey string) (*solana.AccountInfo, error)
	SimulateTransaction(ctx context.Context, txBase64 string) (*solana.SimulateResult, error)
	SendTransaction(ctx context.Context, txBase64 string) (string, error)
	ConfirmTransaction(ctx context.Context, signature, commitment string, pollInterval time.Duration) (bool, error)
}

// Executor builds, simulates, and submits buy transactions.
type Executor struct {
	cfg Config
	rpc RPC
}

// NewExecutor builds an Executor backed by rpc and cfg.
func NewExecutor(rpc RPC, cfg Config) *Executor {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	if cfg.ConfirmCommitment == "" {
		cfg.ConfirmCommitment = "confirmed"
	}
	if cfg.ConfirmPoll <= 0 {
		cfg.ConfirmPoll = 500 * time.Millisecond
	}
	return &Executor{cfg: cfg, rpc: rpc}
}

// Execute runs the full §4.8 pipeline for order and returns the
// submitted transaction's signature on success.
func (e *Executor) Execute(ctx context.Context, order BuyOrder) (string, error) {
	accounts, err := e.deriveAccounts(order.Mint, order.Payer.Address)
	if err != nil {
		return "", snipeerr.New(snipeerr.InvalidAddress, "execute.Execute", err)
	}

	data := buildBuyInstructionData(order.AmountNative, resolveSlippageSentinel(order.MaxSlippageSentinel))
	buyIx := solana.Instruction{
		ProgramID: e.cfg.LaunchpadProgram,
		Accounts:  accounts.orderedMetas(),
		Data:      data,
	}

	instructions := []solana.Instruction{}
	if needsATACreate, err := e.userATAMissing(ctx, accounts.userATA); err != nil {
		return "", snipeerr.New(snipeerr.ProviderError, "execute.Execute", err)
	} else if needsATACreate {
		instructions = append(instructions, createAssociatedTokenAccountInstruction(order.Payer.Address, accounts.userATA, order.Mint))
	}
	instructions = append(instructions, buyIx)

	var blockhash *solana.BlockhashResult
	err = backoff.Run(ctx, "execute.GetLatestBlockhash", e.cfg.MaxAttempts, backoff.ClassifyTransient, func(ctx context.Context) error {
		var rpcErr error
		blockhash, rpcErr = e.rpc.GetLatestBlockhash(ctx, "finalized")
		return rpcErr
	})
	if err != nil {
		return "", snipeerr.New(snipeerr.ProviderError, "execute.Execute", err)
	}

	tx, err := solana.NewTransaction(instructions, blockhash.Blockhash, order.Payer.Address)
	if err != nil {
		return "", snipeerr.New(snipeerr.MalformedTransaction, "execute.Execute", err)
	}
	if err := tx.Sign(order.Payer); err != nil {
		return "", snipeerr.New(snipeerr.MalformedTransaction, "execute.Execute", err)
	}

	txBase64, err := tx.ToBase64()
	if err != nil {
		return "", snipeerr.New(snipeerr.MalformedTransaction, "execute.Execute", err)
	}

	sim, err := e.rpc.SimulateTransaction(ctx, txBase64)
	if err != nil {
		return "", snipeerr.New(snipeerr.ProviderError, "execute.Execute", err)
	}
	if sim != nil && sim.Err != nil {
		return "", snipeerr.New(snipeerr.SimulationRejected, "execute.Execute", fmt.Errorf("simulation rejected: %v; logs=%v", sim.Err, sim.Logs))
	}

	var signature string
	err = backoff.Run(ctx, "execute.SendTransaction", e.cfg.MaxAttempts, backoff.ClassifyTransient, func(ctx context.Context) error {
		var sendErr error
		signature, sendErr = e.rpc.SendTransaction(ctx, txBase64)
		return sendErr
	})
	if err != nil {
		return "", snipeerr.New(snipeerr.ProviderError, "execute.Execute", err)
	}

	confirmed, err := e.rpc.ConfirmTransaction(ctx, signature, e.cfg.ConfirmCommitment, e.cfg.ConfirmPoll)
	if err != nil {
		return signature, snipeerr.New(snipeerr.NotConfirmed, "execute.Execute", err)
	}
	if !confirmed {
		return signature, snipeerr.New(snipeerr.NotConfirmed, "execute.Execute", fmt.Errorf("transaction %s did not confirm", signature))
	}

	return signature, nil
}

// resolveSlippageSentinel substitutes the configured default when the
// caller leaves MaxSlippageSentinel at its zero value.
func resolveSlippageSentinel(provided int64) int64 {
	if provided == 0 {
		return defaultMaxSlippageSentinel
	}
	return provided
}

// buildBuyInstructionData assembles the 24-byte buy payload: the
// 8-byte discriminator, then two little-endian signed int64s.
func buildBuyInstructionData(amountNative, maxSlippageSentinel int64) []byte {
	buf := make([]byte, 24)
	copy(buf[0:8], buyDiscriminator)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(amountNative))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(maxSlippageSentinel))
	return buf
}

// buyAccounts holds every account the buy instruction references, in
// the canonical spec §4.8 order.
type buyAccounts struct {
	globalPDA       solana.Address32
	mint            solana.Address32
	bondingCurvePDA solana.Address32
	bondingCurveATA  solana.Address32
	userATA          solana.Address32
	payer            solana.Address32
	globalFeeVault   solana.Address32
	configAuthority  solana.Address32
	launchpadProgram solana.Address32
}

func (e *Executor) deriveAccounts(mint, payer solana.Address32) (*buyAccounts, error) {
	globalPDA, _, err := solana.FindProgramAddress([][]byte{[]byte("global")}, e.cfg.LaunchpadProgram)
	if err != nil {
		return nil, fmt.Errorf("derive global PDA: %w", err)
	}
	bondingCurvePDA, _, err := solana.FindProgramAddress([][]byte{[]byte("bonding-curve"), mint[:]}, e.cfg.LaunchpadProgram)
	if err != nil {
		return nil, fmt.Errorf("derive bonding-curve PDA: %w", err)
	}
	bondingCurveATA, _, err := solana.FindAssociatedTokenAddress(bondingCurvePDA, mint)
	if err != nil {
		return nil, fmt.Errorf("derive bonding-curve ATA: %w", err)
	}
	userATA, _, err := solana.FindAssociatedTokenAddress(payer, mint)
	if err != nil {
		return nil, fmt.Errorf("derive user ATA: %w", err)
	}

	return &buyAccounts{
		globalPDA:        globalPDA,
		mint:             mint,
		bondingCurvePDA:  bondingCurvePDA,
		bondingCurveATA:  bondingCurveATA,
		userATA:          userATA,
		payer:            payer,
		globalFeeVault:   e.cfg.GlobalFeeVault,
		configAuthority:  e.cfg.ConfigAuthority,
		launchpadProgram: e.cfg.LaunchpadProgram,
	}, nil
}

// orderedMetas returns the 12 accounts in the exact order spec §4.8
// names, with the read/write/signer flags it specifies.
func (a *buyAccounts) orderedMetas() []solana.AccountMeta {
	return []solana.AccountMeta{
		{PublicKey: a.globalPDA},
		{PublicKey: a.globalFeeVault, IsWritable: true},
		{PublicKey: a.mint},
		{PublicKey: a.bondingCurvePDA, IsWritable: true},
		{PublicKey: a.bondingCurveATA, IsWritable: true},
		{PublicKey: a.userATA, IsWritable: true},
		{PublicKey: a.payer, IsSigner: true, IsWritable: true},
		{PublicKey: solana.SystemProgramID},
		{PublicKey: solana.TokenProgramID},
		{PublicKey: solana.SysVarRentPubkey},
		{PublicKey: a.configAuthority},
		{PublicKey: a.launchpadProgram},
	}
}

func (e *Executor) userATAMissing(ctx context.Context, userATA solana.Address32) (bool, error) {
	info, err := e.rpc.GetAccountInfo(ctx, userATA.String())
	if err != nil {
		return false, err
	}
	return info == nil, nil
}

// createAssociatedTokenAccountInstruction builds the SPL
// associated-token-account-program "create" instruction for (owner,
// mint), with payer funding the new account — the idempotent
// create-if-absent step spec §4.8 requires before the buy instruction.
func createAssociatedTokenAccountInstruction(owner, ata, mint solana.Address32) solana.Instruction {
	return solana.Instruction{
		ProgramID: solana.SPLAssociatedTokenAccountProgramID,
		Accounts: []solana.AccountMeta{
			{PublicKey: owner, IsSigner: true, IsWritable: true},
			{PublicKey: ata, IsWritable: true},
			{PublicKey: owner},
			{PublicKey: mint},
			{PublicKey: solana.SystemProgramID},
			{PublicKey: solana.TokenProgramID},
			{PublicKey: solana.SysVarRentPubkey},
		},
		Data: nil,
	}
}
