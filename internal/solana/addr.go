package solana

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// AddressLength is the byte length of a Solana public key / address.
const AddressLength = 32

// Address32 is a 32-byte on-chain address, base58-encoded in its
// textual form. Grounded on cielu-go-solana's common.Address, reduced
// to the subset this module exercises (no sql.Scanner/GraphQL glue,
// since nothing here persists addresses through database/sql).
type Address32 [AddressLength]byte

// ZeroAddress is the empty address, used as a not-found sentinel.
var ZeroAddress Address32

// DecodeAddress parses a base58-encoded address string.
func DecodeAddress(s string) (Address32, error) {
	var a Address32
	b, err := base58.Decode(s)
	if err != nil {
		return a, err
	}
	if len(b) != AddressLength {
		return a, fmt.Errorf("solana: decoded address has length %d, want %d", len(b), AddressLength)
	}
	copy(a[:], b)
	return a, nil
}

// MustDecodeAddress panics if s is not a valid address. Reserved for
// configuration-time constants whose correctness is an invariant, not
// an expected runtime failure.
func MustDecodeAddress(s string) Address32 {
	a, err := DecodeAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Bytes returns the address as a byte slice.
func (a Address32) Bytes() []byte { return a[:] }

// String returns the base58 encoding of the address.
func (a Address32) String() string { return base58.Encode(a[:]) }

// IsZero reports whether a is the zero address.
func (a Address32) IsZero() bool { return a == ZeroAddress }
