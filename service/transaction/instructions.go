package transaction

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// Well-known program ids.
var (
	SystemProgramID = solana.MustPublicKeyFromBase58("11111111111111111111111111111111")
	TokenProgramID  = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	MemoProgramID   = solana.MustPublicKeyFromBase58("MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr")
)

const (
	systemTransferIndex     uint32 = 2
	tokenTransferIndex      uint8  = 3
	tokenTransferCheckedIdx uint8  = 12
)

// SystemTransfer moves lamports between two system accounts.
func SystemTransfer(from, to solana.PublicKey, lamports uint64) Instruction {
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:4], systemTransferIndex)
	binary.LittleEndian.PutUint64(data[4:12], lamports)
	return Instruction{
		ProgramID: SystemProgramID,
		Accounts: []AccountMeta{
			NewAccountMeta(from, true, true),
			NewAccountMeta(to, false, true),
		},
		Data: data,
	}
}

// TokenTransfer moves raw token units between two token accounts.
func TokenTransfer(source, destination, owner solana.PublicKey, amount uint64) Instruction {
	data := make([]byte, 9)
	data[0] = tokenTransferIndex
	binary.LittleEndian.PutUint64(data[1:], amount)
	return Instruction{
		ProgramID: TokenProgramID,
		Accounts: []AccountMeta{
			NewAccountMeta(source, false, true),
			NewAccountMeta(destination, false, true),
			NewAccountMeta(owner, true, false),
		},
		Data: data,
	}
}

// TokenTransferChecked is TokenTransfer with the mint and decimals asserted
// on chain.
func TokenTransferChecked(source, mint, destination, owner solana.PublicKey, amount uint64, decimals uint8) Instruction {
	data := make([]byte, 10)
	data[0] = tokenTransferCheckedIdx
	binary.LittleEndian.PutUint64(data[1:9], amount)
	data[9] = decimals
	return Instruction{
		ProgramID: TokenProgramID,
		Accounts: []AccountMeta{
			NewAccountMeta(source, false, true),
			NewAccountMeta(mint, false, false),
			NewAccountMeta(destination, false, true),
			NewAccountMeta(owner, true, false),
		},
		Data: data,
	}
}

// Memo attaches a UTF-8 note, optionally requiring signers.
func Memo(text string, signers ...solana.PublicKey) Instruction {
	accounts := make([]AccountMeta, 0, len(signers))
	for _, s := range signers {
		accounts = append(accounts, NewAccountMeta(s, true, false))
	}
	return Instruction{
		ProgramID: MemoProgramID,
		Accounts:  accounts,
		Data:      []byte(text),
	}
}
