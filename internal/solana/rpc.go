package solana

import "context"

// RPCClient defines Solana RPC HTTP interface.
type RPCClient interface {
	// GetTransaction retrieves a transaction by signature.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetBlock retrieves a block by slot number.
	GetBlock(ctx context.Context, slot int64) (*Block, error)

	// GetSignaturesForAddress retrieves signatures for an address with pagination.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)
}

// Transaction represents a Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err         interface{}
	LogMessages []string

	// PreTokenBalances and PostTokenBalances let decoders diff SPL
	// token balances across a transaction, e.g. to recover a swap's
	// output mint when no program-data log frame is present.
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance

	// InnerInstructions carries CPI-invoked instructions, needed to
	// find token-program transfers nested under an AMM instruction.
	InnerInstructions []InnerInstructionSet
}

// TokenBalance is one entry of pre/postTokenBalances.
type TokenBalance struct {
	AccountIndex  int
	Mint          string
	Owner         string
	UITokenAmount TokenAmount
}

// TokenAmount is the uiTokenAmount object attached to a TokenBalance.
type TokenAmount struct {
	Amount         string
	Decimals       int
	UIAmountString string
}

// InnerInstructionSet groups the inner instructions invoked by the
// outer instruction at Index.
type InnerInstructionSet struct {
	Index        int
	Instructions []InnerInstruction
}

// InnerInstruction is a single CPI-invoked instruction, using indices
// into the transaction message's account-key list, matching the shape
// of a CompiledInstruction as returned over RPC.
type InnerInstruction struct {
	ProgramIDIndex int
	Accounts       []int
	Data           string // base58-encoded
}

// TransactionMessage contains parsed transaction message.
type TransactionMessage struct {
	AccountKeys []string

	// Instructions carries the outer compiled instructions, needed by
	// the AMM-initPool decoder's compiled+inner instruction scan
	// fallback when no pre/post token-balance diff is available.
	Instructions []InnerInstruction
}
