package transaction

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingSigner is returned when a transaction is serialized while a
	// required signature slot is still empty.
	ErrMissingSigner = errors.New("missing signer")

	// ErrInvalidRequest is returned when the assembler cannot resolve a fee
	// payer or the caller supplied malformed input such as a bad blockhash.
	ErrInvalidRequest = errors.New("invalid request")
)

// EncodingError reports a message that violates the wire format.
type EncodingError struct {
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding error: %s", e.Reason)
}

func encodingErrorf(format string, args ...any) error {
	return &EncodingError{Reason: fmt.Sprintf(format, args...)}
}
