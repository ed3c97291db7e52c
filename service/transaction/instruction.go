package transaction

import "github.com/gagliardetto/solana-go"

// AccountMeta references an account used by an instruction.
type AccountMeta struct {
	PublicKey  solana.PublicKey
	IsSigner   bool
	IsWritable bool
}

// NewAccountMeta is a shorthand constructor.
func NewAccountMeta(pubkey solana.PublicKey, isSigner, isWritable bool) AccountMeta {
	return AccountMeta{PublicKey: pubkey, IsSigner: isSigner, IsWritable: isWritable}
}

// Instruction is one program invocation before compilation into a message.
type Instruction struct {
	ProgramID solana.PublicKey
	Accounts  []AccountMeta
	Data      []byte
}

// MessageHeader describes how the account table is partitioned.
type MessageHeader struct {
	NumRequiredSignatures       uint8
	NumReadonlySignedAccounts   uint8
	NumReadonlyUnsignedAccounts uint8
}

// CompiledInstruction is an Instruction with accounts replaced by indices
// into the message's account table.
type CompiledInstruction struct {
	ProgramIDIndex uint8
	Accounts       []uint8
	Data           []byte
}
