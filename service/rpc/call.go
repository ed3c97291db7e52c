package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"time"
)

const maxErrorBody = 512

// Request is a JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// NewRequest builds an envelope, dropping nil params while keeping the
// relative order of the rest.
func NewRequest(id int, method string, params ...any) Request {
	kept := make([]any, 0, len(params))
	for _, p := range params {
		if isNil(p) {
			continue
		}
		kept = append(kept, p)
	}
	return Request{JSONRPC: "2.0", ID: id, Method: method, Params: kept}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// Result is the outcome of one item of a batch.
type Result[T any] struct {
	ID    int
	Value T
	Err   error
}

// Call performs one JSON-RPC round trip and decodes the result into T.
func Call[T any](ctx context.Context, c *Client, method string, params ...any) (T, error) {
	var zero T
	start := time.Now()

	req := NewRequest(1, method, params...)
	body, err := c.roundTrip(ctx, method, req)
	if err != nil {
		c.recordCall(ctx, method, start, err)
		return zero, err
	}

	value, _, err := decodeEnvelope[T](body)
	c.recordCall(ctx, method, start, err)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", method, err)
	}
	return value, nil
}

// Batch sends one request per param set in a single round trip. A transport
// or envelope-level failure fails the whole batch; otherwise each Result
// carries its own error. Results are returned in request order.
func Batch[T any](ctx context.Context, c *Client, method string, paramSets [][]any) ([]Result[T], error) {
	if len(paramSets) == 0 {
		return nil, nil
	}
	start := time.Now()

	reqs := make([]Request, len(paramSets))
	for i, params := range paramSets {
		reqs[i] = NewRequest(i+1, method, params...)
	}
	if c.metrics != nil {
		c.metrics.RecordRPCBatchSize(method, len(reqs))
	}

	body, err := c.roundTrip(ctx, method, reqs)
	if err != nil {
		c.recordCall(ctx, method, start, err)
		return nil, err
	}

	results, err := decodeBatch[T](body, len(reqs))
	c.recordCall(ctx, method, start, err)
	if err != nil {
		return nil, fmt.Errorf("%s batch: %w", method, err)
	}
	return results, nil
}

func (c *Client) roundTrip(ctx context.Context, method string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	c.logger.DebugContext(ctx, "rpc request",
		"endpoint", c.label,
		"method", method,
		"body", string(encoded),
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTransport, method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s response: %w", ErrTransport, method, err)
	}

	if c.metrics != nil {
		c.metrics.RecordRPCHTTPStatus(c.label, resp.StatusCode)
	}

	c.logger.DebugContext(ctx, "rpc response",
		"endpoint", c.label,
		"method", method,
		"status", resp.StatusCode,
		"bytes", len(body),
	)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		if c.metrics != nil {
			c.metrics.RecordRateLimitHit(c.label)
		}
		c.logger.WarnContext(ctx, "rpc rate limited",
			"endpoint", c.label,
			"method", method,
		)
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, method)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), maxErrorBody)}
	case len(bytes.TrimSpace(body)) == 0:
		return nil, fmt.Errorf("%w: %s", ErrEmptyBody, method)
	}
	return body, nil
}

// decodeEnvelope classifies a single response envelope and returns its id.
func decodeEnvelope[T any](raw []byte) (T, int, error) {
	var zero T

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return zero, 0, fmt.Errorf("%w: %w", ErrMalformedEnvelope, err)
	}

	var id int
	if rawID, ok := fields["id"]; ok {
		// non-numeric ids stay 0 and fall back to positional matching
		_ = json.Unmarshal(rawID, &id)
	}

	result, hasResult := fields["result"]
	if hasResult && !isJSONNull(result) {
		if isNullValueWrapper(result) {
			return zero, id, ErrNullValue
		}
		var value T
		if err := json.Unmarshal(result, &value); err != nil {
			return zero, id, fmt.Errorf("%w: decoding result: %w", ErrMalformedEnvelope, err)
		}
		return value, id, nil
	}

	if rawErr, ok := fields["error"]; ok && !isJSONNull(rawErr) {
		appErr := &ApplicationError{}
		if err := json.Unmarshal(rawErr, appErr); err != nil {
			return zero, id, fmt.Errorf("%w: decoding error object: %w", ErrMalformedEnvelope, err)
		}
		return zero, id, appErr
	}

	if hasResult {
		return zero, id, ErrNullValue
	}
	return zero, id, ErrUnknownResponse
}

func decodeBatch[T any](body []byte, n int) ([]Result[T], error) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		// Some nodes reject a whole batch with a single error envelope.
		var single map[string]json.RawMessage
		if json.Unmarshal(body, &single) != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedEnvelope, err)
		}
		_, _, envErr := decodeEnvelope[json.RawMessage](body)
		var appErr *ApplicationError
		if errors.As(envErr, &appErr) {
			return nil, fmt.Errorf("%w: %w", ErrUnknownResponse, appErr)
		}
		return nil, fmt.Errorf("%w: expected array of %d responses", ErrUnknownResponse, n)
	}

	if len(items) != n {
		return nil, fmt.Errorf("%w: sent %d requests, received %d responses", ErrUnknownResponse, n, len(items))
	}

	decoded := make([]Result[T], n)
	seen := make(map[int]bool, n)
	byID := true
	for i, item := range items {
		value, id, err := decodeEnvelope[T](item)
		decoded[i] = Result[T]{ID: id, Value: value, Err: err}
		if id < 1 || id > n || seen[id] {
			byID = false
		}
		seen[id] = true
	}

	if !byID {
		for i := range decoded {
			decoded[i].ID = i + 1
		}
		return decoded, nil
	}

	ordered := make([]Result[T], n)
	for _, r := range decoded {
		ordered[r.ID-1] = r
	}
	return ordered, nil
}

func isJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func isNullValueWrapper(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return false
	}
	value, ok := obj["value"]
	return ok && isJSONNull(value)
}

func (c *Client) recordCall(ctx context.Context, method string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := callStatus(err)
	if c.metrics != nil {
		c.metrics.RecordRPCCall(method, status, c.label, duration)
	}
	if err != nil && status != "null" {
		c.logger.ErrorContext(ctx, "rpc call failed",
			"endpoint", c.label,
			"method", method,
			"status", status,
			"error", err,
		)
	}
}

func callStatus(err error) string {
	var appErr *ApplicationError
	var httpErr *HTTPStatusError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrNullValue):
		return "null"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.As(err, &appErr):
		return "rpc_error"
	case errors.As(err, &httpErr):
		return "http_error"
	default:
		return "error"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
