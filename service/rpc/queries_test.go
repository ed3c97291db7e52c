package rpc

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const parsedTransactionJSON = `{
	"slot": 123,
	"blockTime": 1700000000,
	"meta": {
		"err": null,
		"fee": 5000,
		"preBalances": [1000000000, 0, 1],
		"postBalances": [998995000, 1000000, 1],
		"preTokenBalances": [],
		"postTokenBalances": [],
		"innerInstructions": [],
		"logMessages": ["Program 11111111111111111111111111111111 invoke [1]"]
	},
	"transaction": {
		"signatures": ["5sig"],
		"message": {
			"accountKeys": [
				{"pubkey": "Payer111", "signer": true, "writable": true, "source": "transaction"},
				"Dest111",
				{"pubkey": "11111111111111111111111111111111", "signer": false, "writable": false}
			],
			"instructions": [
				{
					"program": "system",
					"programId": "11111111111111111111111111111111",
					"parsed": {"type": "transfer", "info": {"source": "Payer111", "destination": "Dest111", "lamports": 1000000}},
					"stackHeight": null
				},
				{
					"program": "spl-memo",
					"programId": "MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr",
					"parsed": "hello"
				},
				{
					"programId": "9W959DqEETiGZocYWCQPaJ6sBmUzgfxXfqGeTEdp3aQP",
					"accounts": ["Payer111"],
					"data": "3Bxs4h24hBtQy9rw"
				}
			],
			"recentBlockhash": "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N"
		}
	},
	"version": "legacy"
}`

func TestTransactionInfo_Decode(t *testing.T) {
	var info TransactionInfo
	require.NoError(t, json.Unmarshal([]byte(parsedTransactionJSON), &info))

	assert.Equal(t, "5sig", info.Signature())
	assert.Equal(t, uint64(123), info.Slot)
	require.NotNil(t, info.Meta)
	assert.True(t, info.Meta.Succeeded())

	keys := info.Transaction.Message.AccountKeys
	require.Len(t, keys, 3)
	assert.True(t, keys[0].Signer)
	assert.Equal(t, "Dest111", keys[1].Pubkey)
	assert.Equal(t, 1, info.AccountIndex("Dest111"))
	assert.Equal(t, -1, info.AccountIndex("nope"))

	ixs := info.Transaction.Message.Instructions
	require.Len(t, ixs, 3)
	assert.Equal(t, "transfer", ixs[0].Type())
	require.NotNil(t, ixs[0].Parsed.Info.Lamports)
	assert.Equal(t, uint64(1000000), *ixs[0].Parsed.Info.Lamports)
	assert.Equal(t, "hello", ixs[1].Memo)
	assert.Nil(t, ixs[1].Parsed)
	assert.Equal(t, "", ixs[2].Type())
	assert.Equal(t, "3Bxs4h24hBtQy9rw", ixs[2].Data)
}

func TestTransactionMeta_Failed(t *testing.T) {
	meta := TransactionMeta{Err: json.RawMessage(`{"InstructionError":[0,"Custom"]}`)}
	assert.False(t, meta.Succeeded())
}

func TestGetTransaction(t *testing.T) {
	rec := &recorder{reply: replyWith(`{"jsonrpc":"2.0","id":1,"result":` + parsedTransactionJSON + `}`)}
	c := newTestClient(t, rec)

	info, err := c.GetTransaction(context.Background(), "5sig", CommitmentConfirmed)
	require.NoError(t, err)
	assert.Equal(t, "5sig", info.Signature())

	var sent Request
	require.NoError(t, json.Unmarshal(rec.bodies[0], &sent))
	require.Len(t, sent.Params, 2)
	cfg := sent.Params[1].(map[string]any)
	assert.Equal(t, "jsonParsed", cfg["encoding"])
	assert.Equal(t, "confirmed", cfg["commitment"])
	assert.Equal(t, float64(0), cfg["maxSupportedTransactionVersion"])
}

func TestGetTransaction_NotFound(t *testing.T) {
	rec := &recorder{reply: replyWith(`{"jsonrpc":"2.0","id":1,"result":null}`)}
	c := newTestClient(t, rec)

	_, err := c.GetTransaction(context.Background(), "missing", "")
	assert.ErrorIs(t, err, ErrNullValue)
}

func TestGetTransactions_Batch(t *testing.T) {
	rec := &recorder{reply: replyWith(`[
		{"jsonrpc":"2.0","id":2,"result":null},
		{"jsonrpc":"2.0","id":1,"result":` + parsedTransactionJSON + `}
	]`)}
	c := newTestClient(t, rec)

	results, err := c.GetTransactions(context.Background(), []string{"5sig", "missing"}, CommitmentConfirmed)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "5sig", results[0].Value.Signature())
	assert.ErrorIs(t, results[1].Err, ErrNullValue)
	assert.Equal(t, 1, rec.calls())
}

func TestGetLatestBlockhash(t *testing.T) {
	rec := &recorder{reply: replyWith(`{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":9},"value":{"blockhash":"EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N","lastValidBlockHeight":200}}}`)}
	c := newTestClient(t, rec)

	out, err := c.GetLatestBlockhash(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N", out.Blockhash)
	assert.Equal(t, uint64(200), out.LastValidBlockHeight)

	var sent Request
	require.NoError(t, json.Unmarshal(rec.bodies[0], &sent))
	assert.Empty(t, sent.Params, "empty config is dropped")
}

func TestGetAccountInfo_Missing(t *testing.T) {
	rec := &recorder{reply: replyWith(`{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":9},"value":null}}`)}
	c := newTestClient(t, rec)

	_, err := c.GetAccountInfo(context.Background(), "nobody", "")
	assert.ErrorIs(t, err, ErrNullValue)
}

func TestGetMintInfo(t *testing.T) {
	rec := &recorder{reply: replyWith(`{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":9},"value":{
		"lamports": 1461600, "owner": "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA", "executable": false, "rentEpoch": 0, "space": 82,
		"data": {"program": "spl-token", "space": 82, "parsed": {"type": "mint", "info": {
			"decimals": 6, "supply": "1000000", "mintAuthority": null, "freezeAuthority": null, "isInitialized": true
		}}}
	}}}`)}
	c := newTestClient(t, rec)

	mint, err := c.GetMintInfo(context.Background(), "Mint111")
	require.NoError(t, err)
	assert.Equal(t, uint8(6), mint.Decimals)
	assert.True(t, mint.IsInitialized)

	_, err = c.GetTokenAccountInfo(context.Background(), "Mint111")
	assert.ErrorIs(t, err, ErrMalformedEnvelope, "mint account is not a token account")
}

func TestGetSignaturesForAddress(t *testing.T) {
	rec := &recorder{reply: replyWith(`{"jsonrpc":"2.0","id":1,"result":[
		{"signature":"sigA","slot":10,"err":null,"memo":null,"blockTime":1700000000,"confirmationStatus":"finalized"},
		{"signature":"sigB","slot":9,"err":{"InstructionError":[0,"Custom"]},"memo":"hi","blockTime":null}
	]}`)}
	c := newTestClient(t, rec)

	sigs, err := c.GetSignaturesForAddress(context.Background(), "Wallet111", &GetSignaturesOpts{Limit: 2})
	require.NoError(t, err)
	require.Len(t, sigs, 2)
	assert.False(t, sigs[0].Failed())
	assert.True(t, sigs[1].Failed())
	require.NotNil(t, sigs[1].Memo)
	assert.Equal(t, "hi", *sigs[1].Memo)

	var sent Request
	require.NoError(t, json.Unmarshal(rec.bodies[0], &sent))
	assert.Equal(t, map[string]any{"limit": float64(2)}, sent.Params[1])
}

func TestGetSignatureStatuses(t *testing.T) {
	rec := &recorder{reply: replyWith(`{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":9},"value":[
		{"slot":8,"confirmations":null,"err":null,"confirmationStatus":"finalized"},
		null
	]}}`)}
	c := newTestClient(t, rec)

	statuses, err := c.GetSignatureStatuses(context.Background(), []string{"a", "b"}, true)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.Equal(t, "finalized", statuses[0].ConfirmationStatus)
	assert.Nil(t, statuses[1])
}

func TestGetEpochInfoAndBlockCommitment(t *testing.T) {
	rec := &recorder{reply: func(body []byte) string {
		var req Request
		_ = json.Unmarshal(body, &req)
		if req.Method == "getEpochInfo" {
			return `{"jsonrpc":"2.0","id":1,"result":{"absoluteSlot":166598,"blockHeight":166500,"epoch":27,"slotIndex":2790,"slotsInEpoch":8192,"transactionCount":22661093}}`
		}
		return `{"jsonrpc":"2.0","id":1,"result":{"commitment":null,"totalStake":42}}`
	}}
	c := newTestClient(t, rec)

	epoch, err := c.GetEpochInfo(context.Background(), CommitmentFinalized)
	require.NoError(t, err)
	assert.Equal(t, uint64(27), epoch.Epoch)
	require.NotNil(t, epoch.TransactionCount)

	commitment, err := c.GetBlockCommitment(context.Background(), 5)
	require.NoError(t, err)
	assert.Nil(t, commitment.Commitment)
	assert.Equal(t, uint64(42), commitment.TotalStake)
}

func TestSendTransaction(t *testing.T) {
	rec := &recorder{reply: replyWith(`{"jsonrpc":"2.0","id":1,"result":"2id3YC2jK9G5Wo2phDx4gJVAew8DcY5NAojnVuao8rkxwPYPe8cSwE5GzhEgJA2y8fVjDEo6iR6ykBvDxrTQrtpb"}`)}
	c := newTestClient(t, rec)

	sig, err := c.SendTransaction(context.Background(), "AQID", &SendTransactionOpts{SkipPreflight: true})
	require.NoError(t, err)
	assert.Equal(t, "2id3YC2jK9G5Wo2phDx4gJVAew8DcY5NAojnVuao8rkxwPYPe8cSwE5GzhEgJA2y8fVjDEo6iR6ykBvDxrTQrtpb", sig)

	var sent Request
	require.NoError(t, json.Unmarshal(rec.bodies[0], &sent))
	assert.Equal(t, "AQID", sent.Params[0])
	assert.Equal(t, map[string]any{"encoding": "base64", "skipPreflight": true}, sent.Params[1])
}

func TestSendTransaction_Rejected(t *testing.T) {
	rec := &recorder{reply: replyWith(`{"jsonrpc":"2.0","id":1,"error":{"code":-32002,"message":"Transaction simulation failed: Blockhash not found"}}`)}
	c := newTestClient(t, rec)

	_, err := c.SendTransaction(context.Background(), "AQID", nil)
	var appErr *ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, -32002, appErr.Code)
}
