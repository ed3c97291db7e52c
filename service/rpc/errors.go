package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrTransport is returned when the HTTP round trip itself fails.
	ErrTransport = errors.New("transport failure")

	// ErrRateLimited is returned on HTTP 429. Nothing is retried.
	ErrRateLimited = errors.New("rate limited")

	// ErrEmptyBody is returned when a 2xx response carries no body.
	ErrEmptyBody = errors.New("empty response body")

	// ErrMalformedEnvelope is returned when the body is not a decodable
	// JSON-RPC envelope or the result does not fit the requested type.
	ErrMalformedEnvelope = errors.New("malformed response envelope")

	// ErrNullValue is returned when the node answers with a null result,
	// or with a {"value": null} wrapper. It means "not found".
	ErrNullValue = errors.New("null value")

	// ErrUnknownResponse is returned when an envelope has neither result nor
	// error, or a batch response does not match the request count.
	ErrUnknownResponse = errors.New("unknown response")
)

// HTTPStatusError is returned for non-2xx responses other than 429.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http status %d", e.StatusCode)
	}
	return fmt.Sprintf("http status %d: %s", e.StatusCode, e.Body)
}

// ApplicationError is a JSON-RPC error object returned by the node.
type ApplicationError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}
