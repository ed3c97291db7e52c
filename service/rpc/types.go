package rpc

import (
	"encoding/json"
	"fmt"
)

// Commitment is the node's confirmation level for reads.
type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// Encoding selects how account or transaction data is returned.
type Encoding string

const (
	EncodingBase64     Encoding = "base64"
	EncodingJSONParsed Encoding = "jsonParsed"
)

// RequestConfig is the trailing config object most methods accept.
type RequestConfig struct {
	Commitment                     Commitment `json:"commitment,omitempty"`
	Encoding                       Encoding   `json:"encoding,omitempty"`
	MaxSupportedTransactionVersion *int       `json:"maxSupportedTransactionVersion,omitempty"`
}

// configOrNil returns nil for an empty config so it is dropped from params.
func configOrNil(cfg RequestConfig) *RequestConfig {
	if cfg == (RequestConfig{}) {
		return nil
	}
	return &cfg
}

// Context carries the slot at which a contextual result was evaluated.
type Context struct {
	Slot uint64 `json:"slot"`
}

// ContextualResult is the {context, value} wrapper many methods return.
type ContextualResult[T any] struct {
	Context Context `json:"context"`
	Value   T       `json:"value"`
}

// LatestBlockhash is the value of getLatestBlockhash.
type LatestBlockhash struct {
	Blockhash            string `json:"blockhash"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

// EpochInfo is the result of getEpochInfo.
type EpochInfo struct {
	AbsoluteSlot     uint64  `json:"absoluteSlot"`
	BlockHeight      uint64  `json:"blockHeight"`
	Epoch            uint64  `json:"epoch"`
	SlotIndex        uint64  `json:"slotIndex"`
	SlotsInEpoch     uint64  `json:"slotsInEpoch"`
	TransactionCount *uint64 `json:"transactionCount,omitempty"`
}

// BlockCommitment is the result of getBlockCommitment.
type BlockCommitment struct {
	Commitment []uint64 `json:"commitment"`
	TotalStake uint64   `json:"totalStake"`
}

// SignatureInfo is one entry of getSignaturesForAddress.
type SignatureInfo struct {
	Signature          string          `json:"signature"`
	Slot               uint64          `json:"slot"`
	Err                json.RawMessage `json:"err,omitempty"`
	Memo               *string         `json:"memo"`
	BlockTime          *int64          `json:"blockTime"`
	ConfirmationStatus string          `json:"confirmationStatus,omitempty"`
}

// Failed reports whether the transaction errored on chain.
func (s SignatureInfo) Failed() bool {
	return len(s.Err) > 0 && !isJSONNull(s.Err)
}

// SignatureStatus is one entry of getSignatureStatuses. Unknown signatures
// decode as nil entries.
type SignatureStatus struct {
	Slot               uint64          `json:"slot"`
	Confirmations      *uint64         `json:"confirmations"`
	Err                json.RawMessage `json:"err,omitempty"`
	ConfirmationStatus string          `json:"confirmationStatus,omitempty"`
}

// GetSignaturesOpts bounds a getSignaturesForAddress query.
type GetSignaturesOpts struct {
	Limit      int        `json:"limit,omitempty"`
	Before     string     `json:"before,omitempty"`
	Until      string     `json:"until,omitempty"`
	Commitment Commitment `json:"commitment,omitempty"`
}

// SendTransactionOpts configures sendTransaction. Encoding is always base64.
type SendTransactionOpts struct {
	SkipPreflight       bool       `json:"skipPreflight,omitempty"`
	PreflightCommitment Commitment `json:"preflightCommitment,omitempty"`
	MaxRetries          *uint      `json:"maxRetries,omitempty"`
}

// AccountInfo is the value of getAccountInfo. Data is either a jsonParsed
// object or a [payload, encoding] pair.
type AccountInfo struct {
	Lamports   uint64          `json:"lamports"`
	Owner      string          `json:"owner"`
	Executable bool            `json:"executable"`
	RentEpoch  uint64          `json:"rentEpoch"`
	Space      uint64          `json:"space"`
	Data       json.RawMessage `json:"data"`
}

// ParsedAccountData is the jsonParsed shape of account data.
type ParsedAccountData struct {
	Program string `json:"program"`
	Parsed  struct {
		Type string          `json:"type"`
		Info json.RawMessage `json:"info"`
	} `json:"parsed"`
	Space uint64 `json:"space"`
}

// ParsedData decodes jsonParsed account data.
func (a *AccountInfo) ParsedData() (*ParsedAccountData, error) {
	var parsed ParsedAccountData
	if err := json.Unmarshal(a.Data, &parsed); err != nil {
		return nil, fmt.Errorf("%w: account data is not jsonParsed: %w", ErrMalformedEnvelope, err)
	}
	return &parsed, nil
}

// TokenAmount is a raw token amount together with its decimals.
type TokenAmount struct {
	Amount         string   `json:"amount"`
	Decimals       uint8    `json:"decimals"`
	UIAmount       *float64 `json:"uiAmount"`
	UIAmountString string   `json:"uiAmountString"`
}

// MintInfo is the parsed info of an SPL mint account.
type MintInfo struct {
	Decimals        uint8   `json:"decimals"`
	Supply          string  `json:"supply"`
	MintAuthority   *string `json:"mintAuthority"`
	FreezeAuthority *string `json:"freezeAuthority"`
	IsInitialized   bool    `json:"isInitialized"`
}

// TokenAccountInfo is the parsed info of an SPL token account.
type TokenAccountInfo struct {
	Mint        string      `json:"mint"`
	Owner       string      `json:"owner"`
	State       string      `json:"state"`
	IsNative    bool        `json:"isNative"`
	TokenAmount TokenAmount `json:"tokenAmount"`
}

func unmarshalInfo(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return fmt.Errorf("missing parsed info")
	}
	return json.Unmarshal(raw, out)
}
