package rpc

import (
	"context"
	"errors"
	"fmt"
)

var maxTransactionVersion = 0

// GetLatestBlockhash returns a blockhash usable for new transactions.
func (c *Client) GetLatestBlockhash(ctx context.Context, commitment Commitment) (*LatestBlockhash, error) {
	out, err := Call[ContextualResult[LatestBlockhash]](ctx, c, "getLatestBlockhash",
		configOrNil(RequestConfig{Commitment: commitment}))
	if err != nil {
		return nil, err
	}
	return &out.Value, nil
}

// GetBalance returns the lamport balance of an account.
func (c *Client) GetBalance(ctx context.Context, address string, commitment Commitment) (uint64, error) {
	out, err := Call[ContextualResult[uint64]](ctx, c, "getBalance", address,
		configOrNil(RequestConfig{Commitment: commitment}))
	if err != nil {
		return 0, err
	}
	return out.Value, nil
}

// GetAccountInfo returns jsonParsed account data. A missing account yields
// ErrNullValue.
func (c *Client) GetAccountInfo(ctx context.Context, address string, commitment Commitment) (*AccountInfo, error) {
	out, err := Call[ContextualResult[*AccountInfo]](ctx, c, "getAccountInfo", address,
		RequestConfig{Commitment: commitment, Encoding: EncodingJSONParsed})
	if err != nil {
		return nil, err
	}
	if out.Value == nil {
		return nil, fmt.Errorf("getAccountInfo: %w", ErrNullValue)
	}
	return out.Value, nil
}

// GetMintInfo returns the parsed mint account for mint.
func (c *Client) GetMintInfo(ctx context.Context, mint string) (*MintInfo, error) {
	var info MintInfo
	if err := c.getParsedAccount(ctx, mint, "mint", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetTokenAccountInfo returns the parsed token account at address.
func (c *Client) GetTokenAccountInfo(ctx context.Context, address string) (*TokenAccountInfo, error) {
	var info TokenAccountInfo
	if err := c.getParsedAccount(ctx, address, "account", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) getParsedAccount(ctx context.Context, address, wantType string, out any) error {
	acct, err := c.GetAccountInfo(ctx, address, "")
	if err != nil {
		return err
	}
	parsed, err := acct.ParsedData()
	if err != nil {
		return err
	}
	if parsed.Parsed.Type != wantType {
		return fmt.Errorf("%w: account %s is %q, not %q", ErrMalformedEnvelope, address, parsed.Parsed.Type, wantType)
	}
	if err := unmarshalInfo(parsed.Parsed.Info, out); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedEnvelope, err)
	}
	return nil
}

func transactionConfig(commitment Commitment) RequestConfig {
	return RequestConfig{
		Commitment:                     commitment,
		Encoding:                       EncodingJSONParsed,
		MaxSupportedTransactionVersion: &maxTransactionVersion,
	}
}

// GetTransaction returns a mined transaction in jsonParsed form. Unknown
// signatures yield ErrNullValue.
func (c *Client) GetTransaction(ctx context.Context, signature string, commitment Commitment) (*TransactionInfo, error) {
	return Call[*TransactionInfo](ctx, c, "getTransaction", signature, transactionConfig(commitment))
}

// GetTransactions fetches many transactions in one batch round trip. The
// returned slice is aligned with signatures.
func (c *Client) GetTransactions(ctx context.Context, signatures []string, commitment Commitment) ([]Result[*TransactionInfo], error) {
	cfg := transactionConfig(commitment)
	paramSets := make([][]any, len(signatures))
	for i, sig := range signatures {
		paramSets[i] = []any{sig, cfg}
	}
	return Batch[*TransactionInfo](ctx, c, "getTransaction", paramSets)
}

// GetSignaturesForAddress returns signatures involving address, newest first.
func (c *Client) GetSignaturesForAddress(ctx context.Context, address string, opts *GetSignaturesOpts) ([]SignatureInfo, error) {
	sigs, err := Call[[]SignatureInfo](ctx, c, "getSignaturesForAddress", address, opts)
	if err != nil {
		return nil, err
	}
	if c.metrics != nil {
		c.metrics.RecordRPCSignaturesPerCall(c.label, float64(len(sigs)))
	}
	return sigs, nil
}

type signatureStatusConfig struct {
	SearchTransactionHistory bool `json:"searchTransactionHistory"`
}

// GetSignatureStatuses returns one status per signature; unknown signatures
// are nil.
func (c *Client) GetSignatureStatuses(ctx context.Context, signatures []string, searchHistory bool) ([]*SignatureStatus, error) {
	var cfg *signatureStatusConfig
	if searchHistory {
		cfg = &signatureStatusConfig{SearchTransactionHistory: true}
	}
	out, err := Call[ContextualResult[[]*SignatureStatus]](ctx, c, "getSignatureStatuses", signatures, cfg)
	if err != nil {
		return nil, err
	}
	return out.Value, nil
}

// GetEpochInfo returns information about the current epoch.
func (c *Client) GetEpochInfo(ctx context.Context, commitment Commitment) (*EpochInfo, error) {
	return Call[*EpochInfo](ctx, c, "getEpochInfo", configOrNil(RequestConfig{Commitment: commitment}))
}

// GetBlockCommitment returns the stake-weighted commitment for a slot.
func (c *Client) GetBlockCommitment(ctx context.Context, slot uint64) (*BlockCommitment, error) {
	return Call[*BlockCommitment](ctx, c, "getBlockCommitment", slot)
}

// SendTransaction submits a base64 encoded signed transaction and returns
// its signature.
func (c *Client) SendTransaction(ctx context.Context, encoded string, opts *SendTransactionOpts) (string, error) {
	cfg := struct {
		SendTransactionOpts
		Encoding Encoding `json:"encoding"`
	}{Encoding: EncodingBase64}
	if opts != nil {
		cfg.SendTransactionOpts = *opts
	}
	sig, err := Call[string](ctx, c, "sendTransaction", encoded, cfg)
	if err != nil {
		var appErr *ApplicationError
		if errors.As(err, &appErr) {
			c.logger.WarnContext(ctx, "transaction rejected",
				"code", appErr.Code,
				"message", appErr.Message,
			)
		}
		return "", err
	}
	return sig, nil
}
