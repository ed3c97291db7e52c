package solana

import (
	"encoding/json"
	"time"
)

// Kind names the arm of a ParsedTransaction.
type Kind string

const (
	KindTransfer      Kind = "transfer"
	KindSwap          Kind = "swap"
	KindCreateAccount Kind = "create_account"
	KindCloseAccount  Kind = "close_account"
	KindUnrecognized  Kind = "unrecognized"
)

// ParsedTransaction is the classification of a mined transaction. The set of
// implementations is closed; switch on the concrete type or on Kind.
type ParsedTransaction interface {
	Kind() Kind
	parsedTransaction()
}

// Token identifies what a wallet holds. Symbol is only known for native SOL
// and for the caller's own account.
type Token struct {
	Mint     string `json:"mint,omitempty"`
	Symbol   string `json:"symbol,omitempty"`
	Decimals uint8  `json:"decimals"`
}

// Wallet is a token account (or system account for SOL) seen in a transaction.
type Wallet struct {
	Pubkey string `json:"pubkey"`
	Owner  string `json:"owner,omitempty"`
	Token  Token  `json:"token"`
}

// TransferTransaction moves SOL or one SPL token between two wallets.
type TransferTransaction struct {
	Source      Wallet  `json:"source"`
	Destination Wallet  `json:"destination"`
	Amount      float64 `json:"amount"`
}

// SwapTransaction exchanges one token for another through a swap program.
type SwapTransaction struct {
	Source            Wallet  `json:"source"`
	SourceAmount      float64 `json:"source_amount"`
	Destination       Wallet  `json:"destination"`
	DestinationAmount float64 `json:"destination_amount"`
}

// CreateAccountTransaction creates and initializes a token account.
// Fee is the fee payer's balance delta, which includes the rent-exempt
// deposit as well as the network fee.
type CreateAccountTransaction struct {
	Fee       float64 `json:"fee"`
	NewWallet Wallet  `json:"new_wallet"`
}

// CloseAccountTransaction closes a token account and reclaims its rent.
type CloseAccountTransaction struct {
	ReimbursedAmount float64 `json:"reimbursed_amount"`
	ClosedWallet     Wallet  `json:"closed_wallet"`
}

// Unrecognized is any transaction shape the parser does not model.
type Unrecognized struct {
	Reason string `json:"reason"`
}

func (TransferTransaction) Kind() Kind      { return KindTransfer }
func (SwapTransaction) Kind() Kind          { return KindSwap }
func (CreateAccountTransaction) Kind() Kind { return KindCreateAccount }
func (CloseAccountTransaction) Kind() Kind  { return KindCloseAccount }
func (Unrecognized) Kind() Kind             { return KindUnrecognized }

func (TransferTransaction) parsedTransaction()      {}
func (SwapTransaction) parsedTransaction()          {}
func (CreateAccountTransaction) parsedTransaction() {}
func (CloseAccountTransaction) parsedTransaction()  {}
func (Unrecognized) parsedTransaction()             {}

// Transaction is a wallet history entry: signature metadata plus, when the
// full transaction could be fetched, its classification.
// This is our domain model, independent of the RPC response format.
type Transaction struct {
	Signature string            `json:"signature"`
	Slot      uint64            `json:"slot"`
	BlockTime time.Time         `json:"block_time"`
	Memo      *string           `json:"memo,omitempty"`
	Fee       uint64            `json:"fee"`
	Err       *string           `json:"error,omitempty"` // nil if transaction succeeded
	Parsed    ParsedTransaction `json:"-"`
}

// Kind returns the classification kind, or "" when only metadata is known.
func (t *Transaction) Kind() Kind {
	if t.Parsed == nil {
		return ""
	}
	return t.Parsed.Kind()
}

// MarshalJSON flattens the classification into "kind" and "details".
func (t Transaction) MarshalJSON() ([]byte, error) {
	type alias Transaction
	return json.Marshal(struct {
		alias
		Kind    Kind              `json:"kind,omitempty"`
		Details ParsedTransaction `json:"details,omitempty"`
	}{
		alias:   alias(t),
		Kind:    t.Kind(),
		Details: t.Parsed,
	})
}
