package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/brojonat/solwallet/service/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder captures request bodies and replies with a canned response.
type recorder struct {
	mu     sync.Mutex
	bodies [][]byte
	status int
	reply  func(body []byte) string
}

func (r *recorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	r.bodies = append(r.bodies, body)
	r.mu.Unlock()

	if req.Header.Get("Content-Type") != "application/json" {
		w.WriteHeader(http.StatusUnsupportedMediaType)
		return
	}
	status := r.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if r.reply != nil {
		_, _ = io.WriteString(w, r.reply(body))
	}
}

func (r *recorder) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bodies)
}

func newTestClient(t *testing.T, rec *recorder) *Client {
	t.Helper()
	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, srv.Client(), metrics.NewMetrics(prometheus.NewRegistry()), nil)
}

func replyWith(body string) func([]byte) string {
	return func([]byte) string { return body }
}

func TestNewRequest_DropsNilParams(t *testing.T) {
	var nilCfg *RequestConfig
	var nilMap map[string]any

	req := NewRequest(7, "getBalance", "addr", nil, nilCfg, nilMap, 42, RequestConfig{Commitment: CommitmentFinalized})

	assert.Equal(t, "2.0", req.JSONRPC)
	assert.Equal(t, 7, req.ID)
	require.Len(t, req.Params, 3)
	assert.Equal(t, "addr", req.Params[0])
	assert.Equal(t, 42, req.Params[1])

	encoded, err := json.Marshal(NewRequest(1, "getEpochInfo", nilCfg))
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":1,"method":"getEpochInfo","params":[]}`, string(encoded))
}

func TestCall_Success(t *testing.T) {
	rec := &recorder{reply: replyWith(`{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":5},"value":1500}}`)}
	c := newTestClient(t, rec)

	out, err := Call[ContextualResult[uint64]](context.Background(), c, "getBalance", "addr", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1500), out.Value)
	assert.Equal(t, uint64(5), out.Context.Slot)

	require.Equal(t, 1, rec.calls())
	var sent Request
	require.NoError(t, json.Unmarshal(rec.bodies[0], &sent))
	assert.Equal(t, "2.0", sent.JSONRPC)
	assert.Equal(t, 1, sent.ID)
	assert.Equal(t, "getBalance", sent.Method)
	assert.Equal(t, []any{"addr"}, sent.Params)
}

func TestCall_Classification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name: "null result",
			body: `{"jsonrpc":"2.0","id":1,"result":null}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrNullValue)
			},
		},
		{
			name: "null value wrapper",
			body: `{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":1},"value":null}}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrNullValue)
			},
		},
		{
			name: "neither result nor error",
			body: `{"jsonrpc":"2.0","id":1}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrUnknownResponse)
			},
		},
		{
			name: "application error",
			body: `{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"Invalid params"}}`,
			check: func(t *testing.T, err error) {
				var appErr *ApplicationError
				require.True(t, errors.As(err, &appErr))
				assert.Equal(t, -32602, appErr.Code)
				assert.Equal(t, "Invalid params", appErr.Message)
				assert.NotErrorIs(t, err, ErrNullValue)
			},
		},
		{
			name:   "rate limited",
			status: http.StatusTooManyRequests,
			body:   `{"error":"slow down"}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrRateLimited)
			},
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   `oops`,
			check: func(t *testing.T, err error) {
				var httpErr *HTTPStatusError
				require.True(t, errors.As(err, &httpErr))
				assert.Equal(t, 500, httpErr.StatusCode)
				assert.Equal(t, "oops", httpErr.Body)
			},
		},
		{
			name: "empty body",
			body: "",
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrEmptyBody)
			},
		},
		{
			name: "not json",
			body: `<html>gateway</html>`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMalformedEnvelope)
			},
		},
		{
			name: "result of wrong shape",
			body: `{"jsonrpc":"2.0","id":1,"result":"not a number"}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMalformedEnvelope)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{status: tt.status, reply: replyWith(tt.body)}
			c := newTestClient(t, rec)

			_, err := Call[ContextualResult[uint64]](context.Background(), c, "getBalance", "addr")
			require.Error(t, err)
			tt.check(t, err)
			assert.Equal(t, 1, rec.calls(), "exactly one round trip")
		})
	}
}

type failingDoer struct{}

func (failingDoer) Do(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}

func TestCall_TransportFailure(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", failingDoer{}, nil, nil)

	_, err := Call[uint64](context.Background(), c, "getSlot")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestCall_ContextCanceled(t *testing.T) {
	rec := &recorder{reply: replyWith(`{"jsonrpc":"2.0","id":1,"result":1}`)}
	c := newTestClient(t, rec)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Call[uint64](ctx, c, "getSlot")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBatch_MatchesByID(t *testing.T) {
	rec := &recorder{reply: replyWith(`[
		{"jsonrpc":"2.0","id":3,"result":30},
		{"jsonrpc":"2.0","id":1,"result":10},
		{"jsonrpc":"2.0","id":2,"error":{"code":-32009,"message":"slot skipped"}}
	]`)}
	c := newTestClient(t, rec)

	results, err := Batch[uint64](context.Background(), c, "getBlockTime", [][]any{{1}, {2}, {3}})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, 1, results[0].ID)
	assert.Equal(t, uint64(10), results[0].Value)
	assert.NoError(t, results[0].Err)

	var appErr *ApplicationError
	assert.True(t, errors.As(results[1].Err, &appErr))

	assert.Equal(t, uint64(30), results[2].Value)

	require.Equal(t, 1, rec.calls())
	var sent []Request
	require.NoError(t, json.Unmarshal(rec.bodies[0], &sent))
	require.Len(t, sent, 3)
	for i, r := range sent {
		assert.Equal(t, i+1, r.ID)
		assert.Equal(t, "getBlockTime", r.Method)
	}
}

func TestBatch_PositionalFallback(t *testing.T) {
	rec := &recorder{reply: replyWith(`[
		{"jsonrpc":"2.0","id":"a","result":1},
		{"jsonrpc":"2.0","id":"b","result":null}
	]`)}
	c := newTestClient(t, rec)

	results, err := Batch[uint64](context.Background(), c, "getBlockTime", [][]any{{1}, {2}})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, uint64(1), results[0].Value)
	assert.ErrorIs(t, results[1].Err, ErrNullValue)
}

func TestBatch_CardinalityMismatch(t *testing.T) {
	rec := &recorder{reply: replyWith(`[{"jsonrpc":"2.0","id":1,"result":1}]`)}
	c := newTestClient(t, rec)

	_, err := Batch[uint64](context.Background(), c, "getBlockTime", [][]any{{1}, {2}})
	assert.ErrorIs(t, err, ErrUnknownResponse)
}

func TestBatch_WholeBatchRejected(t *testing.T) {
	rec := &recorder{reply: replyWith(`{"jsonrpc":"2.0","id":null,"error":{"code":-32600,"message":"batch too large"}}`)}
	c := newTestClient(t, rec)

	_, err := Batch[uint64](context.Background(), c, "getBlockTime", [][]any{{1}, {2}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownResponse)
	var appErr *ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, -32600, appErr.Code)
}

func TestBatch_Malformed(t *testing.T) {
	rec := &recorder{reply: replyWith(`[{"jsonrpc"`)}
	c := newTestClient(t, rec)

	_, err := Batch[uint64](context.Background(), c, "getBlockTime", [][]any{{1}})
	assert.ErrorIs(t, err, ErrMalformedEnvelope)
}

func TestBatch_Empty(t *testing.T) {
	rec := &recorder{}
	c := newTestClient(t, rec)

	results, err := Batch[uint64](context.Background(), c, "getBlockTime", nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 0, rec.calls())
}

func TestEndpointLabel(t *testing.T) {
	assert.Equal(t, "mainnet.helius-rpc.com", endpointLabel("https://mainnet.helius-rpc.com/?api-key=secret"))
	assert.Equal(t, "unknown", endpointLabel("not a url"))
}

func TestSelectRandomEndpoint(t *testing.T) {
	_, err := SelectRandomEndpoint(nil)
	assert.Error(t, err)

	got, err := SelectRandomEndpoint([]string{"https://only"})
	require.NoError(t, err)
	assert.Equal(t, "https://only", got)

	endpoints := []string{"https://a", "https://b", "https://c"}
	seen := map[string]bool{}
	for range 200 {
		ep, err := SelectRandomEndpoint(endpoints)
		require.NoError(t, err)
		seen[ep] = true
	}
	assert.Len(t, seen, 3)
}
