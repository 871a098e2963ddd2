package decode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"solana-token-lab/internal/solana"
)

const testNewMint = "Ai3eKAWjzKMV8wRwd41nVP83yqfbAVJykhvJVPxspump"

func TestAMMPoolDecoderBalanceDiff(t *testing.T) {
	tx := &solana.Transaction{
		Meta: &solana.TransactionMeta{
			PreTokenBalances: []solana.TokenBalance{
				{AccountIndex: 0, Mint: "So11111111111111111111111111111111111111112", UITokenAmount: solana.TokenAmount{UIAmountString: "10"}},
			},
			PostTokenBalances: []solana.TokenBalance{
				{AccountIndex: 0, Mint: "So11111111111111111111111111111111111111112", UITokenAmount: solana.TokenAmount{UIAmountString: "9"}},
				{AccountIndex: 1, Mint: testNewMint, Owner: "poolOwner", UITokenAmount: solana.TokenAmount{UIAmountString: "1000000"}},
			},
		},
	}
	fetcher := &fakeTxFetcher{tx: tx}
	d := NewAMMPoolDecoder(fetcher)

	event, err := d.Decode(context.Background(), "sig-amm-1", nil)
	require.NoError(t, err)
	require.NotNil(t, event)
	require.Equal(t, testNewMint, event.Mint.String())
	require.InDelta(t, 0.85, event.Confidence, 1e-9)
}

func TestAMMPoolDecoderIgnoresQuoteMintOnlyMovement(t *testing.T) {
	tx := &solana.Transaction{
		Meta: &solana.TransactionMeta{
			PostTokenBalances: []solana.TokenBalance{
				{AccountIndex: 0, Mint: "So11111111111111111111111111111111111111112", UITokenAmount: solana.TokenAmount{UIAmountString: "5"}},
			},
		},
	}
	fetcher := &fakeTxFetcher{tx: tx}
	d := NewAMMPoolDecoder(fetcher)

	event, err := d.Decode(context.Background(), "sig-amm-2", nil)
	require.NoError(t, err)
	require.Nil(t, event)
}

func TestAMMPoolDecoderFallsBackToInnerInstructionScan(t *testing.T) {
	tx := &solana.Transaction{
		Meta: &solana.TransactionMeta{
			InnerInstructions: []solana.InnerInstructionSet{
				{
					Index: 0,
					Instructions: []solana.InnerInstruction{
						{ProgramIDIndex: 0, Accounts: []int{1, 2}},
					},
				},
			},
		},
		Message: &solana.TransactionMessage{
			AccountKeys: []string{RaydiumAMMV4, "So11111111111111111111111111111111111111112", testNewMint},
		},
	}
	fetcher := &fakeTxFetcher{tx: tx}
	d := NewAMMPoolDecoder(fetcher)

	event, err := d.Decode(context.Background(), "sig-amm-3", nil)
	require.NoError(t, err)
	require.NotNil(t, event)
	require.Equal(t, testNewMint, event.Mint.String())
	require.InDelta(t, 0.55, event.Confidence, 1e-9)
}

func TestAMMPoolDecoderNoRaydiumInvocationReturnsNil(t *testing.T) {
	tx := &solana.Transaction{
		Meta: &solana.TransactionMeta{},
		Message: &solana.TransactionMessage{
			AccountKeys:  []string{"SomeOtherProgram11111111111111111111111111"},
			Instructions: []solana.InnerInstruction{{ProgramIDIndex: 0, Accounts: []int{}}},
		},
	}
	fetcher := &fakeTxFetcher{tx: tx}
	d := NewAMMPoolDecoder(fetcher)

	event, err := d.Decode(context.Background(), "sig-amm-4", nil)
	require.NoError(t, err)
	require.Nil(t, event)
}
