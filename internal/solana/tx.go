package solana

import (
	"encoding/base64"
	"fmt"
	"sort"
)

// AccountMeta describes one account reference within an instruction.
type AccountMeta struct {
	PublicKey  Address32
	IsSigner   bool
	IsWritable bool
}

// Instruction is a single program invocation: target program, ordered
// account references, and opaque instruction data.
type Instruction struct {
	ProgramID Address32
	Accounts  []AccountMeta
	Data      []byte
}

// MessageHeader carries the account-partitioning counts required by
// the legacy message wire format.
type MessageHeader struct {
	NumRequiredSignatures      uint8
	NumReadonlySignedAccounts  uint8
	NumReadonlyUnsignedAccount uint8
}

// CompiledInstruction is an Instruction with its accounts and program
// id resolved to indices into the message's flat account-key list.
type CompiledInstruction struct {
	ProgramIDIndex uint8
	Accounts       []uint8
	Data           []byte
}

// Message is the legacy (non-versioned) transaction message: a single
// flat account-key list, a recent blockhash, and compiled instructions.
type Message struct {
	Header          MessageHeader
	AccountKeys     []Address32
	RecentBlockhash [32]byte
	Instructions    []CompiledInstruction
}

// BuiltTransaction is a legacy Solana transaction assembled locally for
// signing and submission — distinct from Transaction in rpc.go, which
// shapes a transaction fetched back from getTransaction.
type BuiltTransaction struct {
	Signatures []([64]byte)
	Message    Message
}

// accountSortMeta is an AccountMeta annotated with its position for a
// stable sort: signer-first, then writable-first, matching the
// canonical "accounts by (is_signer desc, is_writable desc)" ordering
// the platform requires before compiling a message.
type accountSortMeta struct {
	AccountMeta
}

func (a accountSortMeta) less(b accountSortMeta) bool {
	if a.IsSigner != b.IsSigner {
		return a.IsSigner
	}
	if a.IsWritable != b.IsWritable {
		return a.IsWritable
	}
	return false
}

// NewTransaction assembles a legacy transaction from an ordered list
// of instructions, a recent blockhash, and the fee payer. Grounded on
// cielu-go-solana's types/transaction.go:NewTransaction — account
// dedup-by-pubkey (merging IsWritable with OR), signer/writable
// priority sort, and forcing the fee payer to account index 0.
func NewTransaction(instructions []Instruction, recentBlockhash [32]byte, feePayer Address32) (*BuiltTransaction, error) {
	if len(instructions) == 0 {
		return nil, fmt.Errorf("solana: at least one instruction is required")
	}

	var metas []accountSortMeta
	programIDs := make([]Address32, 0, len(instructions))
	seenProgram := make(map[Address32]bool)

	for _, ins := range instructions {
		for _, acc := range ins.Accounts {
			metas = append(metas, accountSortMeta{acc})
		}
		if !seenProgram[ins.ProgramID] {
			seenProgram[ins.ProgramID] = true
			programIDs = append(programIDs, ins.ProgramID)
		}
	}
	for _, pid := range programIDs {
		metas = append(metas, accountSortMeta{AccountMeta{PublicKey: pid}})
	}

	sort.SliceStable(metas, func(i, j int) bool {
		return metas[i].less(metas[j])
	})

	var unique []accountSortMeta
	index := make(map[Address32]int)
	for _, m := range metas {
		if i, ok := index[m.PublicKey]; ok {
			if m.IsWritable {
				unique[i].IsWritable = true
			}
			if m.IsSigner {
				unique[i].IsSigner = true
			}
			continue
		}
		index[m.PublicKey] = len(unique)
		unique = append(unique, m)
	}

	feePayerIdx := -1
	for i, m := range unique {
		if m.PublicKey == feePayer {
			feePayerIdx = i
			break
		}
	}

	final := make([]accountSortMeta, 0, len(unique)+1)
	final = append(final, accountSortMeta{AccountMeta{PublicKey: feePayer, IsSigner: true, IsWritable: true}})
	for i, m := range unique {
		if i == feePayerIdx {
			continue
		}
		final = append(final, m)
	}

	msg := Message{RecentBlockhash: recentBlockhash}
	keyIndex := make(map[Address32]int, len(final))
	for i, m := range final {
		msg.AccountKeys = append(msg.AccountKeys, m.PublicKey)
		keyIndex[m.PublicKey] = i
		switch {
		case m.IsSigner && m.IsWritable:
			msg.Header.NumRequiredSignatures++
		case m.IsSigner && !m.IsWritable:
			msg.Header.NumRequiredSignatures++
			msg.Header.NumReadonlySignedAccounts++
		case !m.IsSigner && !m.IsWritable:
			msg.Header.NumReadonlyUnsignedAccount++
		}
	}

	for _, ins := range instructions {
		accIdx := make([]uint8, len(ins.Accounts))
		for i, acc := range ins.Accounts {
			accIdx[i] = uint8(keyIndex[acc.PublicKey])
		}
		msg.Instructions = append(msg.Instructions, CompiledInstruction{
			ProgramIDIndex: uint8(keyIndex[ins.ProgramID]),
			Accounts:       accIdx,
			Data:           ins.Data,
		})
	}

	return &BuiltTransaction{Message: msg}, nil
}

// Sign signs the transaction message with signer for every account
// marked as a required signer, filling in Signatures at the matching
// account-key index.
func (tx *BuiltTransaction) Sign(signer *Keypair) error {
	msgBytes := tx.Message.marshal()

	numSigners := int(tx.Message.Header.NumRequiredSignatures)
	if len(tx.Signatures) != numSigners {
		tx.Signatures = make([][64]byte, numSigners)
	}

	found := false
	for i := 0; i < numSigners; i++ {
		if tx.Message.AccountKeys[i] == signer.Address {
			tx.Signatures[i] = signer.Sign(msgBytes)
			found = true
		}
	}
	if !found {
		return fmt.Errorf("solana: signer %s is not a required signer of this message", signer.Address)
	}
	return nil
}

// MarshalBinary serializes the transaction to the wire format:
// compact-u16 signature count, the signatures, then the message.
func (tx *BuiltTransaction) MarshalBinary() ([]byte, error) {
	if len(tx.Signatures) != int(tx.Message.Header.NumRequiredSignatures) {
		return nil, fmt.Errorf("solana: signature count %d does not match required %d", len(tx.Signatures), tx.Message.Header.NumRequiredSignatures)
	}

	out := encodeCompactU16(len(tx.Signatures))
	for _, sig := range tx.Signatures {
		out = append(out, sig[:]...)
	}
	out = append(out, tx.Message.marshal()...)
	return out, nil
}

// ToBase64 serializes and base64-encodes the transaction, the encoding
// expected by sendTransaction/simulateTransaction.
func (tx *BuiltTransaction) ToBase64() (string, error) {
	b, err := tx.MarshalBinary()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func (m *Message) marshal() []byte {
	var out []byte
	out = append(out, m.Header.NumRequiredSignatures, m.Header.NumReadonlySignedAccounts, m.Header.NumReadonlyUnsignedAccount)

	out = append(out, encodeCompactU16(len(m.AccountKeys))...)
	for _, k := range m.AccountKeys {
		out = append(out, k[:]...)
	}

	out = append(out, m.RecentBlockhash[:]...)

	out = append(out, encodeCompactU16(len(m.Instructions))...)
	for _, ins := range m.Instructions {
		out = append(out, ins.ProgramIDIndex)
		out = append(out, encodeCompactU16(len(ins.Accounts))...)
		out = append(out, ins.Accounts...)
		out = append(out, encodeCompactU16(len(ins.Data))...)
		out = append(out, ins.Data...)
	}

	return out
}

// encodeCompactU16 encodes n using Solana's shortvec ("compact-u16")
// length-prefix format: 7 bits per byte, high bit set while more
// bytes follow.
func encodeCompactU16(n int) []byte {
	var out []byte
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			break
		}
	}
	return out
}
