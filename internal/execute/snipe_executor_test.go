package execute

import (
	"context"
	"crypto/ed25519"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"solana-token-lab/internal/solana"
)

type fakeRPC struct {
	blockhash   *solana.BlockhashResult
	accountInfo *solana.AccountInfo
	simResult   *solana.SimulateResult
	simErr      error
	sendSig     string
	sendErr     error
	confirmed   bool
	confirmErr  error

	sendCalls int
}

func (f *fakeRPC) GetLatestBlockhash(ctx context.Context, commitment string) (*solana.BlockhashResult, error) {
	return f.blockhash, nil
}

func (f *fakeRPC) GetAccountInfo(ctx context.Context, pubkey string) (*solana.AccountInfo, error) {
	return f.accountInfo, nil
}

func (f *fakeRPC) SimulateTransaction(ctx context.Context, txBase64 string) (*solana.SimulateResult, error) {
	return f.simResult, f.simErr
}

func (f *fakeRPC) SendTransaction(ctx context.Context, txBase64 string) (string, error) {
	f.sendCalls++
	return f.sendSig, f.sendErr
}

func (f *fakeRPC) ConfirmTransaction(ctx context.Context, signature, commitment string, pollInterval time.Duration) (bool, error) {
	return f.confirmed, f.confirmErr
}

func testPayer(t *testing.T) *solana.Keypair {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	kp, err := solana.KeypairFromSecret(priv)
	require.NoError(t, err)
	var addr solana.Address32
	copy(addr[:], pub)
	require.Equal(t, addr, kp.Address)
	return kp
}

func testConfig() Config {
	return Config{
		LaunchpadProgram: solana.MustDecodeAddress("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"),
		GlobalFeeVault:   solana.MustDecodeAddress("CebN5WGQ4jvEPvsVU4EoHEpgzq1VV7AbicfhtW4xC9iM"),
		ConfigAuthority:  solana.MustDecodeAddress("4wTV1YmiEkRvAtNtsSGPtUrqRYQMe5SKy2uB4Jjaxnjf"),
	}
}

func TestBuildBuyInstructionDataShape(t *testing.T) {
	data := buildBuyInstructionData(1_000_000, -1)
	require.Len(t, data, 24)
	require.Equal(t, buyDiscriminator, data[0:8])
	require.EqualValues(t, 1_000_000, int64(binary.LittleEndian.Uint64(data[8:16])))
	require.EqualValues(t, -1, int64(binary.LittleEndian.Uint64(data[16:24])))
}

func TestAccountListCanonicalOrder(t *testing.T) {
	cfg := testConfig()
	rpc := &fakeRPC{}
	e := NewExecutor(rpc, cfg)

	mint := solana.MustDecodeAddress("Ai3eKAWjzKMV8wRwd41nVP83yqfbAVJykhvJVPxspump")
	payer := testPayer(t)

	accounts, err := e.deriveAccounts(mint, payer.Address)
	require.NoError(t, err)
	metas := accounts.orderedMetas()
	require.Len(t, metas, 12)

	require.Equal(t, accounts.globalPDA, metas[0].PublicKey)
	require.Equal(t, cfg.GlobalFeeVault, metas[1].PublicKey)
	require.True(t, metas[1].IsWritable)
	require.Equal(t, mint, metas[2].PublicKey)
	require.Equal(t, accounts.bondingCurvePDA, metas[3].PublicKey)
	require.True(t, metas[3].IsWritable)
	require.Equal(t, accounts.bondingCurveATA, metas[4].PublicKey)
	require.Equal(t, accounts.userATA, metas[5].PublicKey)
	require.Equal(t, payer.Address, metas[6].PublicKey)
	require.True(t, metas[6].IsSigner)
	require.Equal(t, solana.SystemProgramID, metas[7].PublicKey)
	require.Equal(t, solana.TokenProgramID, metas[8].PublicKey)
	require.Equal(t, solana.SysVarRentPubkey, metas[9].PublicKey)
	require.Equal(t, cfg.ConfigAuthority, metas[10].PublicKey)
	require.Equal(t, cfg.LaunchpadProgram, metas[11].PublicKey)

	for _, m := range metas {
		require.False(t, m.PublicKey.IsZero())
	}
}

func TestExecuteSkipsATACreateWhenAccountExists(t *testing.T) {
	cfg := testConfig()
	payer := testPayer(t)
	mint := solana.MustDecodeAddress("Ai3eKAWjzKMV8wRwd41nVP83yqfbAVJykhvJVPxspump")

	rpc := &fakeRPC{
		blockhash:   &solana.BlockhashResult{LastValidBlockHeight: 100},
		accountInfo: &solana.AccountInfo{}, // ATA already exists
		sendSig:     "sig-executed",
		confirmed:   true,
	}
	e := NewExecutor(rpc, cfg)

	sig, err := e.Execute(context.Background(), BuyOrder{
		Payer:        payer,
		Mint:         mint,
		AmountNative: 1_000_000,
	})
	require.NoError(t, err)
	require.Equal(t, "sig-executed", sig)
	require.Equal(t, 1, rpc.sendCalls)
}

func TestExecuteCreatesATAWhenMissing(t *testing.T) {
	cfg := testConfig()
	payer := testPayer(t)
	mint := solana.MustDecodeAddress("Ai3eKAWjzKMV8wRwd41nVP83yqfbAVJykhvJVPxspump")

	rpc := &fakeRPC{
		blockhash:   &solana.BlockhashResult{LastValidBlockHeight: 100},
		accountInfo: nil, // ATA absent
		sendSig:     "sig-with-ata-create",
		confirmed:   true,
	}
	e := NewExecutor(rpc, cfg)

	sig, err := e.Execute(context.Background(), BuyOrder{
		Payer:        payer,
		Mint:         mint,
		AmountNative: 500,
	})
	require.NoError(t, err)
	require.Equal(t, "sig-with-ata-create", sig)
}

func TestExecuteAbortsOnSimulationRejection(t *testing.T) {
	cfg := testConfig()
	payer := testPayer(t)
	mint := solana.MustDecodeAddress("Ai3eKAWjzKMV8wRwd41nVP83yqfbAVJykhvJVPxspump")

	rpc := &fakeRPC{
		blockhash:   &solana.BlockhashResult{LastValidBlockHeight: 100},
		accountInfo: &solana.AccountInfo{},
		simResult:   &solana.SimulateResult{Err: "InsufficientFundsForRent"},
	}
	e := NewExecutor(rpc, cfg)

	_, err := e.Execute(context.Background(), BuyOrder{Payer: payer, Mint: mint, AmountNative: 1})
	require.Error(t, err)
	require.Equal(t, 0, rpc.sendCalls)
}

func TestExecuteFailsWithNotConfirmed(t *testing.T) {
	cfg := testConfig()
	payer := testPayer(t)
	mint := solana.MustDecodeAddress("Ai3eKAWjzKMV8wRwd41nVP83yqfbAVJykhvJVPxspump")

	rpc := &fakeRPC{
		blockhash:   &solana.BlockhashResult{LastValidBlockHeight: 100},
		accountInfo: &solana.AccountInfo{},
		sendSig:     "sig-unconfirmed",
		confirmed:   false,
	}
	e := NewExecutor(rpc, cfg)

	sig, err := e.Execute(context.Background(), BuyOrder{Payer: payer, Mint: mint, AmountNative: 1})
	require.Error(t, err)
	require.Equal(t, "sig-unconfirmed", sig)
}
