package transaction

import (
	"sort"

	"github.com/gagliardetto/solana-go"
)

// MaxAccountKeys is the largest account table a legacy message can index.
const MaxAccountKeys = 256

// Message is a compiled legacy message ready for signing.
type Message struct {
	Header          MessageHeader
	AccountKeys     []solana.PublicKey
	RecentBlockhash solana.Hash
	Instructions    []CompiledInstruction
}

// NewMessage compiles instructions into a legacy message. The fee payer is
// always the first account and always a writable signer. Remaining accounts
// are ordered writable signers, readonly signers, writable non-signers,
// then readonly non-signers, keeping first-seen order within each class.
func NewMessage(feePayer solana.PublicKey, instructions []Instruction, blockhash solana.Hash) (*Message, error) {
	metas := []*AccountMeta{{PublicKey: feePayer, IsSigner: true, IsWritable: true}}
	index := map[solana.PublicKey]int{feePayer: 0}

	add := func(meta AccountMeta) {
		if i, ok := index[meta.PublicKey]; ok {
			metas[i].IsSigner = metas[i].IsSigner || meta.IsSigner
			metas[i].IsWritable = metas[i].IsWritable || meta.IsWritable
			return
		}
		index[meta.PublicKey] = len(metas)
		m := meta
		metas = append(metas, &m)
	}

	for _, ix := range instructions {
		for _, acc := range ix.Accounts {
			add(acc)
		}
	}
	for _, ix := range instructions {
		add(AccountMeta{PublicKey: ix.ProgramID})
	}

	if len(metas) > MaxAccountKeys {
		return nil, encodingErrorf("too many accounts: %d exceeds %d", len(metas), MaxAccountKeys)
	}

	// The fee payer holds rank 0 and sorts first; ties keep insertion order.
	sort.SliceStable(metas[1:], func(i, j int) bool {
		return accountRank(metas[1+i]) < accountRank(metas[1+j])
	})

	msg := &Message{
		AccountKeys:     make([]solana.PublicKey, len(metas)),
		RecentBlockhash: blockhash,
	}
	positions := make(map[solana.PublicKey]uint8, len(metas))
	for i, meta := range metas {
		msg.AccountKeys[i] = meta.PublicKey
		positions[meta.PublicKey] = uint8(i)
		switch {
		case meta.IsSigner && meta.IsWritable:
			msg.Header.NumRequiredSignatures++
		case meta.IsSigner:
			msg.Header.NumRequiredSignatures++
			msg.Header.NumReadonlySignedAccounts++
		case !meta.IsWritable:
			msg.Header.NumReadonlyUnsignedAccounts++
		}
	}

	msg.Instructions = make([]CompiledInstruction, 0, len(instructions))
	for _, ix := range instructions {
		compiled := CompiledInstruction{
			ProgramIDIndex: positions[ix.ProgramID],
			Accounts:       make([]uint8, len(ix.Accounts)),
			Data:           ix.Data,
		}
		for i, acc := range ix.Accounts {
			compiled.Accounts[i] = positions[acc.PublicKey]
		}
		msg.Instructions = append(msg.Instructions, compiled)
	}

	return msg, nil
}

func accountRank(meta *AccountMeta) int {
	switch {
	case meta.IsSigner && meta.IsWritable:
		return 0
	case meta.IsSigner:
		return 1
	case meta.IsWritable:
		return 2
	default:
		return 3
	}
}

// Signers returns the accounts that must sign, in signature slot order.
func (m *Message) Signers() []solana.PublicKey {
	n := int(m.Header.NumRequiredSignatures)
	if n > len(m.AccountKeys) {
		n = len(m.AccountKeys)
	}
	return m.AccountKeys[:n]
}

// FeePayer returns the first account, or the zero key for an empty table.
func (m *Message) FeePayer() solana.PublicKey {
	if len(m.AccountKeys) == 0 {
		return solana.PublicKey{}
	}
	return m.AccountKeys[0]
}

// IsWritable reports whether the account at index may be written.
func (m *Message) IsWritable(index int) bool {
	n := len(m.AccountKeys)
	signers := int(m.Header.NumRequiredSignatures)
	if index < 0 || index >= n {
		return false
	}
	if index < signers {
		return index < signers-int(m.Header.NumReadonlySignedAccounts)
	}
	return index < n-int(m.Header.NumReadonlyUnsignedAccounts)
}

func (m *Message) validate() error {
	n := len(m.AccountKeys)
	if n > MaxAccountKeys {
		return encodingErrorf("too many accounts: %d exceeds %d", n, MaxAccountKeys)
	}
	h := m.Header
	if int(h.NumRequiredSignatures) > n {
		return encodingErrorf("header requires %d signatures but table has %d accounts", h.NumRequiredSignatures, n)
	}
	if h.NumReadonlySignedAccounts > h.NumRequiredSignatures {
		return encodingErrorf("readonly signed count %d exceeds required signatures %d", h.NumReadonlySignedAccounts, h.NumRequiredSignatures)
	}
	if int(h.NumRequiredSignatures)+int(h.NumReadonlyUnsignedAccounts) > n {
		return encodingErrorf("header counts exceed account table size %d", n)
	}
	for i, ix := range m.Instructions {
		if int(ix.ProgramIDIndex) >= n {
			return encodingErrorf("instruction %d: program index %d out of range", i, ix.ProgramIDIndex)
		}
		for j, acc := range ix.Accounts {
			if int(acc) >= n {
				return encodingErrorf("instruction %d: account %d index %d out of range", i, j, acc)
			}
		}
	}
	return nil
}
