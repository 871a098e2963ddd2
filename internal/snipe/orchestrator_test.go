package snipe

import (
	"context"
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"solana-token-lab/internal/execute"
	"solana-token-lab/internal/ratelimit"
	"solana-token-lab/internal/signal"
	"solana-token-lab/internal/solana"
	"solana-token-lab/internal/validate"
)

type stubTxFetcher struct {
	tx *solana.Transaction
}

func (s *stubTxFetcher) GetTransaction(ctx context.Context, signature string) (*solana.Transaction, error) {
	return s.tx, nil
}

type stubAccountInfoFetcher struct{}

func (stubAccountInfoFetcher) GetAccountInfoParsed(ctx context.Context, pubkey string) (*solana.ParsedAccountInfo, error) {
	return nil, nil
}

type stubExecRPC struct{}

func (stubExecRPC) GetLatestBlockhash(ctx context.Context, commitment string) (*solana.BlockhashResult, error) {
	return &solana.BlockhashResult{}, nil
}
func (stubExecRPC) GetAccountInfo(ctx context.Context, pubkey string) (*solana.AccountInfo, error) {
	return &solana.AccountInfo{}, nil
}
func (stubExecRPC) SimulateTransaction(ctx context.Context, txBase64 string) (*solana.SimulateResult, error) {
	return &solana.SimulateResult{}, nil
}
func (stubExecRPC) SendTransaction(ctx context.Context, txBase64 string) (string, error) {
	return "stub-signature", nil
}
func (stubExecRPC) ConfirmTransaction(ctx context.Context, signature, commitment string, pollInterval time.Duration) (bool, error) {
	return true, nil
}

func testKeypair(t *testing.T) *solana.Keypair {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	kp, err := solana.KeypairFromSecret(priv)
	require.NoError(t, err)
	return kp
}

func TestOrchestratorDispatchesAndClosesCleanly(t *testing.T) {
	payer := testKeypair(t)
	limiter := ratelimit.New(1000, 1000)
	defer limiter.Close()

	orch := New(Options{
		RPC: &stubTxFetcher{tx: &solana.Transaction{
			Meta: &solana.TransactionMeta{LogMessages: []string{"Program log: Instruction: Create"}},
		}},
		Programs: []solana.ProgramDescriptor{
			{Name: "pumpfun", ProgramID: solana.MustDecodeAddress(pumpFunProgramID)},
		},
		Scorer:    signal.NewScorer(DefaultSignalWeights()),
		Matcher:   signal.NewMatcher(DefaultFingerprints()),
		Validator: validate.NewMintValidator(stubAccountInfoFetcher{}, limiter),
		Executor: execute.NewExecutor(stubExecRPC{}, execute.Config{
			LaunchpadProgram: solana.MustDecodeAddress(pumpFunProgramID),
			GlobalFeeVault:   solana.MustDecodeAddress("CebN5WGQ4jvEPvsVU4EoHEpgzq1VV7AbicfhtW4xC9iM"),
			ConfigAuthority:  solana.MustDecodeAddress("4wTV1YmiEkRvAtNtsSGPtUrqRYQMe5SKy2uB4Jjaxnjf"),
		}),
		Payer:                payer,
		AmountNativeLamports: 1_000_000,
	})

	ch := make(chan solana.TaggedLogNotification, 1)
	ch <- solana.TaggedLogNotification{
		LogNotification: solana.LogNotification{
			Signature: "sig-test-1",
			Logs:      []string{"Program log: Instruction: Create"},
		},
		Program: "pumpfun",
	}
	close(ch)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		orch.Run(ctx, ch)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("orchestrator.Run did not return after channel close")
	}
}

// The pumpfun program alone satisfies the permissive virtual_pool OR
// fingerprint, so this notification matches; with no virtual-pool marker
// the decoder recovers no mint and nothing is executed.
func TestOrchestratorUndecodableNotificationIsANoop(t *testing.T) {
	payer := testKeypair(t)
	limiter := ratelimit.New(1000, 1000)
	defer limiter.Close()

	orch := New(Options{
		RPC:       &stubTxFetcher{tx: &solana.Transaction{Meta: &solana.TransactionMeta{}}},
		Programs:  []solana.ProgramDescriptor{{Name: "pumpfun", ProgramID: solana.MustDecodeAddress(pumpFunProgramID)}},
		Scorer:    signal.NewScorer(DefaultSignalWeights()),
		Matcher:   signal.NewMatcher(DefaultFingerprints()),
		Validator: validate.NewMintValidator(stubAccountInfoFetcher{}, limiter),
		Executor: execute.NewExecutor(stubExecRPC{}, execute.Config{
			LaunchpadProgram: solana.MustDecodeAddress(pumpFunProgramID),
			GlobalFeeVault:   solana.MustDecodeAddress("CebN5WGQ4jvEPvsVU4EoHEpgzq1VV7AbicfhtW4xC9iM"),
			ConfigAuthority:  solana.MustDecodeAddress("4wTV1YmiEkRvAtNtsSGPtUrqRYQMe5SKy2uB4Jjaxnjf"),
		}),
		Payer: payer,
	})

	ctx := context.Background()
	orch.handle(ctx, solana.TaggedLogNotification{
		LogNotification: solana.LogNotification{Signature: "sig-unmatched", Logs: []string{"Program log: Instruction: Unrelated"}},
		Program:         "pumpfun",
	})
}
