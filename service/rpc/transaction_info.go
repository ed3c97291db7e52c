package rpc

import (
	"bytes"
	"encoding/json"
)

// TransactionInfo is a mined transaction as returned by getTransaction with
// jsonParsed encoding.
type TransactionInfo struct {
	Slot        uint64              `json:"slot"`
	BlockTime   *int64              `json:"blockTime"`
	Meta        *TransactionMeta    `json:"meta"`
	Transaction TransactionEnvelope `json:"transaction"`
	Version     json.RawMessage     `json:"version,omitempty"`
}

// Signature returns the first (fee payer) signature, the transaction id.
func (t *TransactionInfo) Signature() string {
	if len(t.Transaction.Signatures) == 0 {
		return ""
	}
	return t.Transaction.Signatures[0]
}

// AccountIndex returns the position of pubkey in the account table, or -1.
func (t *TransactionInfo) AccountIndex(pubkey string) int {
	for i, k := range t.Transaction.Message.AccountKeys {
		if k.Pubkey == pubkey {
			return i
		}
	}
	return -1
}

// TransactionEnvelope holds the signatures and the parsed message.
type TransactionEnvelope struct {
	Signatures []string      `json:"signatures"`
	Message    ParsedMessage `json:"message"`
}

// ParsedMessage is the jsonParsed message body.
type ParsedMessage struct {
	AccountKeys     []AccountKey  `json:"accountKeys"`
	Instructions    []Instruction `json:"instructions"`
	RecentBlockhash string        `json:"recentBlockhash"`
}

// AccountKey is an entry of the account table. The node returns either a
// bare pubkey string or an object with signer and writable flags.
type AccountKey struct {
	Pubkey   string `json:"pubkey"`
	Signer   bool   `json:"signer"`
	Writable bool   `json:"writable"`
	Source   string `json:"source,omitempty"`
}

func (k *AccountKey) UnmarshalJSON(data []byte) error {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '"' {
		*k = AccountKey{}
		return json.Unmarshal(trimmed, &k.Pubkey)
	}
	type alias AccountKey
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*k = AccountKey(a)
	return nil
}

// Instruction is one instruction in jsonParsed form. Instructions the node
// knows how to parse carry Parsed (or Memo for the memo program); others
// carry raw Accounts and base58 Data.
type Instruction struct {
	Program     string      `json:"program,omitempty"`
	ProgramID   string      `json:"programId"`
	Parsed      *ParsedInfo `json:"-"`
	Memo        string      `json:"-"`
	Accounts    []string    `json:"accounts,omitempty"`
	Data        string      `json:"data,omitempty"`
	StackHeight *int        `json:"stackHeight,omitempty"`
}

func (ix *Instruction) UnmarshalJSON(data []byte) error {
	type alias Instruction
	aux := struct {
		*alias
		Parsed json.RawMessage `json:"parsed"`
	}{alias: (*alias)(ix)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	parsed := bytes.TrimSpace(aux.Parsed)
	switch {
	case len(parsed) == 0 || isJSONNull(parsed):
	case parsed[0] == '"':
		if err := json.Unmarshal(parsed, &ix.Memo); err != nil {
			return err
		}
	default:
		ix.Parsed = &ParsedInfo{}
		if err := json.Unmarshal(parsed, ix.Parsed); err != nil {
			return err
		}
	}
	return nil
}

// Type returns the parsed instruction type, or "" when unparsed.
func (ix *Instruction) Type() string {
	if ix.Parsed == nil {
		return ""
	}
	return ix.Parsed.Type
}

// ParsedInfo is the {type, info} object of a parsed instruction.
type ParsedInfo struct {
	Type string          `json:"type"`
	Info InstructionInfo `json:"info"`
}

// InstructionInfo is the union of the info fields used by the system and
// token programs. Lamports is numeric; token amounts are decimal strings.
type InstructionInfo struct {
	Source      string       `json:"source,omitempty"`
	Destination string       `json:"destination,omitempty"`
	Authority   string       `json:"authority,omitempty"`
	Owner       string       `json:"owner,omitempty"`
	Account     string       `json:"account,omitempty"`
	Mint        string       `json:"mint,omitempty"`
	NewAccount  string       `json:"newAccount,omitempty"`
	Wallet      string       `json:"wallet,omitempty"`
	Lamports    *uint64      `json:"lamports,omitempty"`
	Space       *uint64      `json:"space,omitempty"`
	Amount      string       `json:"amount,omitempty"`
	TokenAmount *TokenAmount `json:"tokenAmount,omitempty"`
}

// TransactionMeta is the execution metadata of a mined transaction.
type TransactionMeta struct {
	Err               json.RawMessage    `json:"err"`
	Fee               uint64             `json:"fee"`
	PreBalances       []uint64           `json:"preBalances"`
	PostBalances      []uint64           `json:"postBalances"`
	PreTokenBalances  []TokenBalance     `json:"preTokenBalances"`
	PostTokenBalances []TokenBalance     `json:"postTokenBalances"`
	InnerInstructions []InnerInstruction `json:"innerInstructions"`
	LogMessages       []string           `json:"logMessages"`
}

// Succeeded reports whether the transaction executed without error.
func (m *TransactionMeta) Succeeded() bool {
	return len(m.Err) == 0 || isJSONNull(m.Err)
}

// TokenBalance is a token account balance snapshot.
type TokenBalance struct {
	AccountIndex  int         `json:"accountIndex"`
	Mint          string      `json:"mint"`
	Owner         string      `json:"owner,omitempty"`
	ProgramID     string      `json:"programId,omitempty"`
	UITokenAmount TokenAmount `json:"uiTokenAmount"`
}

// InnerInstruction lists instructions invoked by the outer instruction at Index.
type InnerInstruction struct {
	Index        int           `json:"index"`
	Instructions []Instruction `json:"instructions"`
}
