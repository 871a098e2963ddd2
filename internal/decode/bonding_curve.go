package decode

import (
	"bytes"
	"context"
	"encoding/base64"
	"strings"

	"solana-token-lab/internal/solana"
)

// mintSuffixMarker is the launchpad's mint vanity convention: every
// bonding-curve-launch mint this decoder recognizes ends with this
// suffix (case-insensitive), per spec §4.6 and the pump.fun program
// constants documented in the pack's sniper-bot fragments.
const mintSuffixMarker = "pump"

// structuredCreateEventSize is the byte length of the "create" event's
// program-data buffer when it carries the full structured layout:
// name[32] || symbol[4] || uri[200] || mint[32] || bondingCurve[32] ||
// user[32]. Per spec §9 Open Question 3, the structured parse is
// preferred when the buffer is at least this long; shorter buffers fall
// back to the offset/linear-scan path.
const structuredCreateEventSize = 32 + 4 + 200 + 32 + 32 + 32

// offsetScanMintSize is the length of a candidate mint window.
const offsetScanMintSize = 32

// BondingCurveDecoder recovers a newly launched bonding-curve mint from
// a "Program data:" base64 frame, grounded on internal/discovery/
// dex_parser.go's ray_log-style base64-decode-then-scan approach.
type BondingCurveDecoder struct {
	rpc TxFetcher
}

// NewBondingCurveDecoder builds a decoder backed by rpc.
func NewBondingCurveDecoder(rpc TxFetcher) *BondingCurveDecoder {
	return &BondingCurveDecoder{rpc: rpc}
}

// Decode implements Decoder.
func (d *BondingCurveDecoder) Decode(ctx context.Context, signature string, lines []string) (*DecodedEvent, error) {
	tx, err := d.rpc.GetTransaction(ctx, signature)
	if err != nil {
		return nil, err
	}
	logLines := resolveLogLines(tx, lines)

	for _, line := range logLines {
		idx := strings.Index(line, "Program data:")
		if idx < 0 {
			continue
		}
		raw := strings.TrimSpace(line[idx+len("Program data:"):])
		buf, err := base64.StdEncoding.DecodeString(raw)
		if err != nil || len(buf) < offsetScanMintSize {
			continue
		}

		if event := decodeStructuredCreate(buf); event != nil {
			return event, nil
		}
		if event := decodeOffsetEight(buf); event != nil {
			return event, nil
		}
		if event := decodeLinearScan(buf); event != nil {
			return event, nil
		}
	}

	return nil, nil
}

// decodeStructuredCreate parses the richer "create" event layout when
// the buffer is long enough, per spec §9 Open Question 3.
func decodeStructuredCreate(buf []byte) *DecodedEvent {
	if len(buf) < structuredCreateEventSize {
		return nil
	}

	off := 0
	name := trimNul(buf[off : off+32])
	off += 32
	symbol := trimNul(buf[off : off+4])
	off += 4
	uri := trimNul(buf[off : off+200])
	off += 200
	var mint, bondingCurve, user solana.Address32
	copy(mint[:], buf[off:off+32])
	off += 32
	copy(bondingCurve[:], buf[off:off+32])
	off += 32
	copy(user[:], buf[off:off+32])

	if !strings.HasSuffix(strings.ToLower(mint.String()), mintSuffixMarker) {
		return nil
	}

	bondingCurveATA, _, err := solana.FindAssociatedTokenAddress(bondingCurve, mint)
	event := &DecodedEvent{
		Mint:       mint,
		Confidence: 0.94,
		Metadata: map[string]string{
			"name":   name,
			"symbol": symbol,
			"uri":    uri,
		},
		PoolData: map[string]string{
			"bondingCurve": bondingCurve.String(),
			"user":         user.String(),
		},
	}
	if err == nil {
		event.PoolData["bondingCurveAta"] = bondingCurveATA.String()
	}
	return event
}

// decodeOffsetEight checks the fixed offset-8 mint convention spec §4.6
// names as the first candidate.
func decodeOffsetEight(buf []byte) *DecodedEvent {
	const offset = 8
	if len(buf) < offset+offsetScanMintSize {
		return nil
	}
	var addr solana.Address32
	copy(addr[:], buf[offset:offset+offsetScanMintSize])
	if !strings.HasSuffix(strings.ToLower(addr.String()), mintSuffixMarker) {
		return nil
	}
	return &DecodedEvent{Mint: addr, Confidence: 0.94}
}

// decodeLinearScan slides a 32-byte window across buf, returning the
// first window whose address matches the mint suffix convention.
func decodeLinearScan(buf []byte) *DecodedEvent {
	for start := 0; start+offsetScanMintSize <= len(buf); start++ {
		var addr solana.Address32
		copy(addr[:], buf[start:start+offsetScanMintSize])
		if strings.HasSuffix(strings.ToLower(addr.String()), mintSuffixMarker) {
			return &DecodedEvent{Mint: addr, Confidence: 0.94}
		}
	}
	return nil
}

func trimNul(b []byte) string {
	return string(bytes.TrimRight(b, "\x00"))
}
