package core

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrReadOnly = errors.New("store is in read-only mode")

	// ErrConflict is returned by conditional writes whose expected version
	// no longer matches the stored document.
	ErrConflict = errors.New("document version conflict")

	// ErrConditionalUnsupported is returned when atomic appends are requested
	// on a store without conditional writes.
	ErrConditionalUnsupported = errors.New("store does not support conditional writes")

	// ErrTagCountMismatch is returned when a tagger yields a different number
	// of tags than the normalized code has tokens.
	ErrTagCountMismatch = errors.New("tag count does not match token count")

	// ErrRetriesExhausted is returned when an atomic append keeps conflicting.
	ErrRetriesExhausted = errors.New("append retries exhausted")
)

// ValidationError reports a missing or blank submission field.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s must not be empty", e.Field)
}

// TokenizationError wraps a lexer failure while normalizing code.
type TokenizationError struct {
	Err error
}

func (e *TokenizationError) Error() string {
	return fmt.Sprintf("tokenization failed: %v", e.Err)
}

func (e *TokenizationError) Unwrap() error { return e.Err }

// TagGenerationError wraps a tagger failure.
type TagGenerationError struct {
	Err error
}

func (e *TagGenerationError) Error() string {
	return fmt.Sprintf("tag generation failed: %v", e.Err)
}

func (e *TagGenerationError) Unwrap() error { return e.Err }

// StoreOp names the store step that failed.
type StoreOp string

const (
	OpRead   StoreOp = "read"
	OpDecode StoreOp = "decode"
	OpWrite  StoreOp = "write"
)

// StoreError wraps a failure reading, decoding or writing the dataset document.
type StoreError struct {
	Op  StoreOp
	ID  DocumentID
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
