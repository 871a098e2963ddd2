package solana

// Canonical program ids needed for ATA derivation and the buy
// instruction's fixed account list. Values are the well-known mainnet
// addresses for these programs.
var (
	SystemProgramID                    = MustDecodeAddress("11111111111111111111111111111111")
	TokenProgramID                     = MustDecodeAddress("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	SPLAssociatedTokenAccountProgramID = MustDecodeAddress("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	SysVarRentPubkey                   = MustDecodeAddress("SysvarRent111111111111111111111111111111111")
)

// FindAssociatedTokenAddress derives the associated-token-account PDA
// for (owner, mint) under the SPL token program. It takes no
// allowOwnerOffCurve flag: the PDA math is identical for on- and
// off-curve owners, so the bonding-curve ATA (owned by a PDA) derives
// the same way.
// Grounded on cielu-go-solana's
// types/base/keys.go:FindAssociatedTokenAddressAndBumpSeed.
func FindAssociatedTokenAddress(owner, mint Address32) (Address32, uint8, error) {
	return FindProgramAddress(
		[][]byte{owner[:], TokenProgramID[:], mint[:]},
		SPLAssociatedTokenAccountProgramID,
	)
}
