package decode

import (
	"context"
	"strconv"
	"strings"

	"solana-token-lab/internal/solana"
)

// RaydiumAMMV4 is the Raydium AMM v4 program ID, grounded on
// internal/discovery/dex_parser.go's RaydiumAMMV4 constant.
const RaydiumAMMV4 = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"

// wellKnownQuoteMints are excluded from the balance-diff candidate set
// so the decoder reports the new token side of a pool init, not the
// SOL/USDC/USDT leg every pool also carries.
var wellKnownQuoteMints = map[string]bool{
	"So11111111111111111111111111111111111111112": true, // wrapped SOL
	"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v": true, // USDC
	"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB": true, // USDT
}

// AMMPoolDecoder recovers the mint of a newly initialized AMM pool,
// grounded on internal/discovery/dex_parser.go's Raydium pre/post
// token-balance diff approach (RaydiumParser.ParseSwapEventsV2).
type AMMPoolDecoder struct {
	rpc TxFetcher
}

// NewAMMPoolDecoder builds a decoder backed by rpc.
func NewAMMPoolDecoder(rpc TxFetcher) *AMMPoolDecoder {
	return &AMMPoolDecoder{rpc: rpc}
}

// Decode implements Decoder.
func (d *AMMPoolDecoder) Decode(ctx context.Context, signature string, lines []string) (*DecodedEvent, error) {
	tx, err := d.rpc.GetTransaction(ctx, signature)
	if err != nil {
		return nil, err
	}
	if tx == nil || tx.Meta == nil {
		return nil, nil
	}

	if event := diffTokenBalances(tx.Meta); event != nil {
		return event, nil
	}
	return scanCompiledAndInnerInstructions(tx), nil
}

// diffTokenBalances is the primary path: a pool-init transaction mints
// or deposits a brand new token side, which shows up as a
// postTokenBalance entry with no corresponding preTokenBalance for the
// same account index, or a uiAmount that rose from zero.
func diffTokenBalances(meta *solana.TransactionMeta) *DecodedEvent {
	pre := make(map[int]solana.TokenBalance, len(meta.PreTokenBalances))
	for _, b := range meta.PreTokenBalances {
		pre[b.AccountIndex] = b
	}

	for _, post := range meta.PostTokenBalances {
		if wellKnownQuoteMints[post.Mint] {
			continue
		}
		preBal, existed := pre[post.AccountIndex]
		if existed && preBal.Mint == post.Mint && !isZeroAmount(preBal.UITokenAmount) {
			continue
		}
		if isZeroAmount(post.UITokenAmount) {
			continue
		}

		mint, err := solana.DecodeAddress(post.Mint)
		if err != nil {
			continue
		}
		return &DecodedEvent{
			Mint:       mint,
			Confidence: 0.85,
			PoolData: map[string]string{
				"owner": post.Owner,
			},
		}
	}
	return nil
}

func isZeroAmount(amt solana.TokenAmount) bool {
	if amt.UIAmountString == "" {
		return true
	}
	v, err := strconv.ParseFloat(amt.UIAmountString, 64)
	return err != nil || v == 0
}

// scanCompiledAndInnerInstructions is the fallback path when no
// balance diff is available: walk the outer compiled instructions and
// their nested inner instructions for a Raydium-program invocation and
// report the first account that looks like a freshly-seen mint
// (anything beyond the well-known quote mints). Per spec §4.6 this is
// a lower-confidence heuristic path.
func scanCompiledAndInnerInstructions(tx *solana.Transaction) *DecodedEvent {
	if tx.Message == nil || len(tx.Message.AccountKeys) == 0 {
		return nil
	}
	keys := tx.Message.AccountKeys

	candidates := make([]solana.InnerInstruction, 0, len(tx.Message.Instructions))
	candidates = append(candidates, tx.Message.Instructions...)
	if tx.Meta != nil {
		for _, set := range tx.Meta.InnerInstructions {
			candidates = append(candidates, set.Instructions...)
		}
	}

	raydiumInvoked := false
	for _, ix := range candidates {
		if ix.ProgramIDIndex < 0 || ix.ProgramIDIndex >= len(keys) {
			continue
		}
		if keys[ix.ProgramIDIndex] == RaydiumAMMV4 {
			raydiumInvoked = true
			break
		}
	}
	if !raydiumInvoked {
		return nil
	}

	for _, ix := range candidates {
		for _, idx := range ix.Accounts {
			if idx < 0 || idx >= len(keys) {
				continue
			}
			key := keys[idx]
			if wellKnownQuoteMints[key] || strings.EqualFold(key, RaydiumAMMV4) {
				continue
			}
			mint, err := solana.DecodeAddress(key)
			if err != nil {
				continue
			}
			return &DecodedEvent{
				Mint:       mint,
				Confidence: 0.55,
				PoolData:   map[string]string{"source": "inner_instruction_scan"},
			}
		}
	}
	return nil
}
