package entity

import "errors"

var (
	// ErrInvalidInput is returned for malformed or missing upload payloads
	// and unparsable scope parameters. Operations fail before any mutating
	// transaction starts.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned when a referenced upload, employee, or ledger
	// entry does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidState is returned when a ledger entry's payload is missing,
	// malformed, or written by an unsupported schema version.
	ErrInvalidState = errors.New("invalid state")
)
