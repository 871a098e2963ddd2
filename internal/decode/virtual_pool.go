package decode

import (
	"context"
	"regexp"
	"strings"

	"solana-token-lab/internal/solana"
)

// virtualPoolFieldPattern extracts the quoted/bareword value following
// one of the virtual-pool log field markers spec §4.6 names: pool:,
// vault:, liquidity:, name:"…", symbol:"…". Grounded on
// internal/discovery/dex_parser.go's regexp-based PumpFunParser.
var virtualPoolFieldPattern = regexp.MustCompile(`(?i)(pool|vault|liquidity|name|symbol)\s*[:=]\s*"?([A-Za-z0-9_]+)"?`)

// virtualPoolMarkers are log substrings identifying a Meteora-class
// virtual-pool initialization, distinct from the pump.fun bonding-curve
// "Program data:" frame and the Raydium AMM balance-diff path.
var virtualPoolMarkers = []string{
	"initializevirtualpoolwithspltoken",
	"initialize_virtual_pool",
	"virtualpool",
}

// VirtualPoolDecoder recovers the mint of a newly created virtual
// (dynamic bonding curve) pool from post-token-balance evidence plus
// regex field heuristics over the log text, grounded on
// internal/discovery/dex_parser.go's PumpFunParser regex scan style.
type VirtualPoolDecoder struct {
	rpc TxFetcher
}

// NewVirtualPoolDecoder builds a decoder backed by rpc.
func NewVirtualPoolDecoder(rpc TxFetcher) *VirtualPoolDecoder {
	return &VirtualPoolDecoder{rpc: rpc}
}

// Decode implements Decoder.
func (d *VirtualPoolDecoder) Decode(ctx context.Context, signature string, lines []string) (*DecodedEvent, error) {
	tx, err := d.rpc.GetTransaction(ctx, signature)
	if err != nil {
		return nil, err
	}

	logLines := lines
	if tx != nil {
		logLines = resolveLogLines(tx, lines)
	}
	if !containsVirtualPoolMarker(logLines) {
		return nil, nil
	}

	if tx != nil && tx.Meta != nil {
		if event := scanPostBalancesForNewMint(tx.Meta); event != nil {
			event.Metadata = extractFields(logLines)
			return event, nil
		}
	}

	// No balance evidence: fall back to the regex field scan alone,
	// reporting a metadata-only event with no recoverable mint address
	// so the caller can still log/alert on the detection.
	fields := extractFields(logLines)
	if len(fields) == 0 {
		return nil, nil
	}
	return &DecodedEvent{
		Confidence: 0.4,
		Metadata:   fields,
	}, nil
}

func containsVirtualPoolMarker(lines []string) bool {
	joined := strings.ToLower(strings.Join(lines, "\n"))
	for _, marker := range virtualPoolMarkers {
		if strings.Contains(joined, marker) {
			return true
		}
	}
	return false
}

func scanPostBalancesForNewMint(meta *solana.TransactionMeta) *DecodedEvent {
	pre := make(map[int]solana.TokenBalance, len(meta.PreTokenBalances))
	for _, b := range meta.PreTokenBalances {
		pre[b.AccountIndex] = b
	}

	for _, post := range meta.PostTokenBalances {
		if wellKnownQuoteMints[post.Mint] {
			continue
		}
		if isZeroAmount(post.UITokenAmount) {
			continue
		}
		if preBal, existed := pre[post.AccountIndex]; existed && preBal.Mint == post.Mint && !isZeroAmount(preBal.UITokenAmount) {
			continue
		}

		mint, err := solana.DecodeAddress(post.Mint)
		if err != nil {
			continue
		}
		return &DecodedEvent{Mint: mint, Confidence: 0.65}
	}
	return nil
}

func extractFields(lines []string) map[string]string {
	fields := make(map[string]string)
	for _, line := range lines {
		for _, m := range virtualPoolFieldPattern.FindAllStringSubmatch(line, -1) {
			fields[strings.ToLower(m[1])] = m[2]
		}
	}
	return fields
}
