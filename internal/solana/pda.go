package solana

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
)

const (
	// maxSeedLength is the maximum length of a single PDA seed.
	maxSeedLength = 32
	// maxSeeds is the maximum number of seeds accepted by CreateProgramAddress.
	maxSeeds = 16
	// pdaMarker is appended to the seed buffer before hashing, per the
	// platform's canonical off-curve PDA algorithm.
	pdaMarker = "ProgramDerivedAddress"
)

// CreateProgramAddress derives a program address from seeds and a
// program id, failing if the resulting point lands on the ed25519
// curve (in which case it is not a valid PDA — a real keypair could
// exist for it). Grounded on cielu-go-solana's
// types/base/keys.go:CreateProgramAddress, using filippo.io/edwards25519
// directly for the off-curve check instead of a hand-rolled point type.
func CreateProgramAddress(seeds [][]byte, programID Address32) (Address32, error) {
	if len(seeds) > maxSeeds {
		return Address32{}, fmt.Errorf("solana: too many PDA seeds (%d > %d)", len(seeds), maxSeeds)
	}
	for _, seed := range seeds {
		if len(seed) > maxSeedLength {
			return Address32{}, fmt.Errorf("solana: PDA seed exceeds %d bytes", maxSeedLength)
		}
	}

	h := sha256.New()
	for _, seed := range seeds {
		h.Write(seed)
	}
	h.Write(programID[:])
	h.Write([]byte(pdaMarker))
	sum := h.Sum(nil)

	if isOnCurve(sum) {
		return Address32{}, fmt.Errorf("solana: invalid PDA seeds; address falls on the curve")
	}

	var addr Address32
	copy(addr[:], sum)
	return addr, nil
}

// isOnCurve reports whether b decodes to a valid point on the
// ed25519 curve.
func isOnCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

// FindProgramAddress iterates bump seeds from 255 down to 1, returning
// the first off-curve address along with the bump seed used.
func FindProgramAddress(seeds [][]byte, programID Address32) (Address32, uint8, error) {
	for bump := 255; bump > 0; bump-- {
		candidate := append(append([][]byte{}, seeds...), []byte{byte(bump)})
		addr, err := CreateProgramAddress(candidate, programID)
		if err == nil {
			return addr, uint8(bump), nil
		}
	}
	return Address32{}, 0, fmt.Errorf("solana: unable to find a valid program address")
}
