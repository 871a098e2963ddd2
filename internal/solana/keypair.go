package solana

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

// Keypair wraps an ed25519 keypair used as a transaction fee payer and
// signer. Grounded on cielu-go-solana's crypto/account.go Account type,
// reduced to the construction paths the executor needs (no bip39
// mnemonic or keygen-file loading, since BuyOrder.payer_secret is raw
// 64-byte secret key material per spec §3).
type Keypair struct {
	Address    Address32
	PrivateKey ed25519.PrivateKey
}

// KeypairFromSecret builds a Keypair from a 64-byte ed25519 secret key
// (seed || public key, the standard Solana secret-key encoding).
func KeypairFromSecret(secret []byte) (*Keypair, error) {
	if len(secret) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("solana: payer secret must be %d bytes, got %d", ed25519.PrivateKeySize, len(secret))
	}
	priv := ed25519.PrivateKey(append([]byte(nil), secret...))
	pub := priv.Public().(ed25519.PublicKey)

	var addr Address32
	copy(addr[:], pub)

	return &Keypair{Address: addr, PrivateKey: priv}, nil
}

// KeypairFromBase58 decodes a base58-encoded 64-byte secret key.
func KeypairFromBase58(s string) (*Keypair, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("solana: decode payer secret: %w", err)
	}
	return KeypairFromSecret(b)
}

// Sign produces an ed25519 signature over message.
func (k *Keypair) Sign(message []byte) [64]byte {
	var sig [64]byte
	copy(sig[:], ed25519.Sign(k.PrivateKey, message))
	return sig
}
