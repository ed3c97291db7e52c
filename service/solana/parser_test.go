package solana

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/brojonat/solwallet/service/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTransactionInfo(t *testing.T, name string) *rpc.TransactionInfo {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name+".json"))
	require.NoError(t, err)
	var info rpc.TransactionInfo
	require.NoError(t, json.Unmarshal(data, &info))
	return &info
}

// mockMints implements MintDecimals for testing.
type mockMints struct {
	decimals map[string]uint8
	lookups  []string
}

func (m *mockMints) Decimals(ctx context.Context, mint string) (uint8, error) {
	m.lookups = append(m.lookups, mint)
	d, ok := m.decimals[mint]
	if !ok {
		return 0, errors.New("unknown mint")
	}
	return d, nil
}

func TestParse_SOLTransfer(t *testing.T) {
	info := loadTransactionInfo(t, "sol_transfer")
	myAccount := "6QuXb6mB6WmRASP2y8AavXh6aabBXEH5ZzrSH5xRrgSm"

	parsed, err := NewParser(nil, nil).Parse(context.Background(), info, myAccount, "")
	require.NoError(t, err)

	transfer, ok := parsed.(TransferTransaction)
	require.True(t, ok, "expected TransferTransaction, got %T", parsed)
	assert.Equal(t, KindTransfer, transfer.Kind())
	assert.Equal(t, "SOL", transfer.Source.Token.Symbol)
	assert.Equal(t, myAccount, transfer.Source.Pubkey)
	assert.Equal(t, "3h1zGmCwsRJnVk5BuRNMLsPaQu1y2aqXqXDWYCgrp5UG", transfer.Destination.Pubkey)
	assert.Equal(t, 0.001, transfer.Amount)
}

func TestParse_SPLTransferResolvesOwner(t *testing.T) {
	info := loadTransactionInfo(t, "spl_transfer")
	myAccount := "22hXC9c4SGccwCkjtJwZ2VGRfhDYh9KSRCviD8bs4Xbg"
	mints := &mockMints{decimals: map[string]uint8{"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB": 6}}

	parsed, err := NewParser(mints, nil).Parse(context.Background(), info, myAccount, "wUSDT")
	require.NoError(t, err)

	transfer, ok := parsed.(TransferTransaction)
	require.True(t, ok, "expected TransferTransaction, got %T", parsed)
	assert.Equal(t, myAccount, transfer.Source.Pubkey)
	assert.Equal(t, "wUSDT", transfer.Source.Token.Symbol)
	assert.Equal(t, "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB", transfer.Source.Token.Mint)
	assert.Equal(t, "GCmbXJRc6mfnNNbnh5ja2TwWFzVzBp8MovsrTciw1HeS", transfer.Destination.Pubkey)
	assert.Equal(t, "6QuXb6mB6WmRASP2y8AavXh6aabBXEH5ZzrSH5xRrgSm", transfer.Destination.Owner)
	assert.Equal(t, 0.004325, transfer.Amount)
	assert.Equal(t, []string{"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"}, mints.lookups)
}

func TestParse_SPLTransferDestinationIsMine(t *testing.T) {
	info := loadTransactionInfo(t, "spl_transfer")
	myAccount := "6QuXb6mB6WmRASP2y8AavXh6aabBXEH5ZzrSH5xRrgSm"

	parsed, err := NewParser(nil, nil).Parse(context.Background(), info, myAccount, "USDT")
	require.NoError(t, err)

	transfer := parsed.(TransferTransaction)
	assert.Equal(t, myAccount, transfer.Destination.Pubkey)
	assert.Equal(t, "USDT", transfer.Destination.Token.Symbol)
	assert.Equal(t, "BjUEdE292SLEq9mMeKtY3GXL6wirn7DqJPhrukCqAUua", transfer.Source.Pubkey)
	assert.Equal(t, "", transfer.Source.Token.Symbol)
}

func TestParse_DecimalsFallBackToBalanceSnapshot(t *testing.T) {
	info := loadTransactionInfo(t, "spl_transfer")
	mints := &mockMints{} // knows nothing

	parsed, err := NewParser(mints, nil).Parse(context.Background(), info, "", "")
	require.NoError(t, err)
	assert.Equal(t, 0.004325, parsed.(TransferTransaction).Amount)
	assert.Len(t, mints.lookups, 1)
}

func TestParse_TransferToNewAssociatedAccount(t *testing.T) {
	info := loadTransactionInfo(t, "transfer_checked_new_ata")
	myAccount := "H1yu3R247X5jQN9bbDU8KB7RY4JSeEaCv45p5CMziefd"
	mints := &mockMints{}

	parsed, err := NewParser(mints, nil).Parse(context.Background(), info, myAccount, "MAPS")
	require.NoError(t, err)

	transfer, ok := parsed.(TransferTransaction)
	require.True(t, ok, "expected TransferTransaction, got %T", parsed)
	assert.Equal(t, "MAPS", transfer.Source.Token.Symbol)
	assert.Equal(t, myAccount, transfer.Source.Pubkey)
	assert.Equal(t, "8jpWBKSoU7SXz9gJPJS53TEXXuWcg1frXLEdnfomxLwZ", transfer.Destination.Pubkey)
	assert.Equal(t, "3h1zGmCwsRJnVk5BuRNMLsPaQu1y2aqXqXDWYCgrp5UG", transfer.Destination.Owner)
	assert.Equal(t, 0.001, transfer.Amount)
	assert.Empty(t, mints.lookups, "transferChecked carries its own decimals")
}

func TestParse_CreateAccount(t *testing.T) {
	info := loadTransactionInfo(t, "create_account")

	parsed, err := NewParser(nil, nil).Parse(context.Background(), info, "", "")
	require.NoError(t, err)

	created, ok := parsed.(CreateAccountTransaction)
	require.True(t, ok, "expected CreateAccountTransaction, got %T", parsed)
	assert.Equal(t, KindCreateAccount, created.Kind())
	assert.Equal(t, 0.00203928, created.Fee)
	assert.Equal(t, "8jpWBKSoU7SXz9gJPJS53TEXXuWcg1frXLEdnfomxLwZ", created.NewWallet.Pubkey)
	assert.Equal(t, "2FPyTwcZLUg1MDrwsyoP4D6s1tM7hAkHYRjkNb5w6Pxk", created.NewWallet.Token.Mint)
	assert.Equal(t, uint8(6), created.NewWallet.Token.Decimals)
}

func TestParse_CloseAccount(t *testing.T) {
	info := loadTransactionInfo(t, "close_account")

	parsed, err := NewParser(nil, nil).Parse(context.Background(), info, "6QuXb6mB6WmRASP2y8AavXh6aabBXEH5ZzrSH5xRrgSm", "ETH")
	require.NoError(t, err)

	closed, ok := parsed.(CloseAccountTransaction)
	require.True(t, ok, "expected CloseAccountTransaction, got %T", parsed)
	assert.Equal(t, 0.00203928, closed.ReimbursedAmount)
	assert.Equal(t, "8jpWBKSoU7SXz9gJPJS53TEXXuWcg1frXLEdnfomxLwZ", closed.ClosedWallet.Pubkey)
	assert.Equal(t, "2FPyTwcZLUg1MDrwsyoP4D6s1tM7hAkHYRjkNb5w6Pxk", closed.ClosedWallet.Token.Mint)
	assert.Equal(t, "ETH", closed.ClosedWallet.Token.Symbol)
}

func TestParse_Swap(t *testing.T) {
	info := loadTransactionInfo(t, "swap")

	parsed, err := NewParser(nil, nil).Parse(context.Background(), info, "", "SOL")
	require.NoError(t, err)

	swap, ok := parsed.(SwapTransaction)
	require.True(t, ok, "expected SwapTransaction, got %T", parsed)
	assert.Equal(t, KindSwap, swap.Kind())
	assert.Equal(t, "BjUEdE292SLEq9mMeKtY3GXL6wirn7DqJPhrukCqAUua", swap.Source.Pubkey)
	assert.Equal(t, "SRMuApVNdxXokk5GT7XD5cUUgXMBCoAz2LHeuAoKWRt", swap.Source.Token.Mint)
	assert.Equal(t, 0.001, swap.SourceAmount)
	assert.Equal(t, "22hXC9c4SGccwCkjtJwZ2VGRfhDYh9KSRCviD8bs4Xbg", swap.Destination.Pubkey)
	assert.Equal(t, "SOL", swap.Destination.Token.Symbol)
	assert.Equal(t, 0.000364885, swap.DestinationAmount)
}

func TestParse_LiquidityIsUnrecognized(t *testing.T) {
	info := loadTransactionInfo(t, "provide_liquidity")

	parsed, err := NewParser(nil, nil).Parse(context.Background(), info, "H1yu3R247X5jQN9bbDU8KB7RY4JSeEaCv45p5CMziefd", "")
	require.NoError(t, err)

	unrecognized, ok := parsed.(Unrecognized)
	require.True(t, ok, "expected Unrecognized, got %T", parsed)
	assert.Equal(t, KindUnrecognized, unrecognized.Kind())
	assert.Contains(t, unrecognized.Reason, "liquidity")
}

func TestParse_NothingRecognized(t *testing.T) {
	info := loadTransactionInfo(t, "sol_transfer")
	info.Transaction.Message.Instructions[0].Parsed.Type = "advanceNonce"

	parsed, err := NewParser(nil, nil).Parse(context.Background(), info, "", "")
	require.NoError(t, err)
	assert.Equal(t, KindUnrecognized, parsed.Kind())
}

func TestParse_InvalidAmountIsError(t *testing.T) {
	info := loadTransactionInfo(t, "spl_transfer")
	info.Transaction.Message.Instructions[0].Parsed.Info.Amount = "12abc"

	_, err := NewParser(nil, nil).Parse(context.Background(), info, "", "")
	assert.Error(t, err)
}

func TestParse_UnresolvableDecimalsIsError(t *testing.T) {
	info := loadTransactionInfo(t, "spl_transfer")
	info.Meta.PreTokenBalances = nil
	info.Meta.PostTokenBalances = nil

	_, err := NewParser(&mockMints{}, nil).Parse(context.Background(), info, "", "")
	assert.Error(t, err)
}

func TestParse_NilInfo(t *testing.T) {
	_, err := NewParser(nil, nil).Parse(context.Background(), nil, "", "")
	assert.Error(t, err)
}

func TestTransaction_MarshalJSON(t *testing.T) {
	txn := Transaction{
		Signature: "sig",
		Slot:      1,
		Parsed:    TransferTransaction{Amount: 0.5},
	}
	data, err := json.Marshal(txn)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "transfer", out["kind"])
	assert.Equal(t, 0.5, out["details"].(map[string]any)["amount"])
}
