// Package core provides the recall client facade over storage, embedding,
// classification, and search.
package core

import (
	"errors"
	"fmt"

	"github.com/studyloop/recall/pkg/storage"
)

// Predefined errors for common failure scenarios.
var (
	// ErrNotFound indicates that a requested memory was not found. A memory
	// owned by a different user reports the same error; the two cases are
	// deliberately indistinguishable.
	ErrNotFound = storage.ErrNotFound

	// ErrDimensionMismatch indicates that a stored embedding's
	// dimensionality differs from the query vector's.
	ErrDimensionMismatch = storage.ErrDimensionMismatch

	// ErrInvalidConfig indicates that the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidInput indicates that the provided input is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrClosed indicates that the client has been closed.
	ErrClosed = errors.New("client is closed")
)

// MemoryError wraps errors with operation context.
//
// It provides additional context about which operation failed,
// making error messages more informative for debugging.
//
// Example:
//
//	err := &MemoryError{
//	    Op:  "WriteMemory",
//	    Err: ErrInvalidInput,
//	}
//	// Error() returns: "recall: WriteMemory: invalid input"
type MemoryError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message.
//
// The format is: "recall: <Op>: <Err>"
func (e *MemoryError) Error() string {
	return fmt.Sprintf("recall: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
//
// This allows using errors.Is() and errors.As() with MemoryError.
func (e *MemoryError) Unwrap() error {
	return e.Err
}

// NewMemoryError creates a new MemoryError wrapping the given error.
//
// If err is nil, returns nil. This allows safe error wrapping:
//
//	if err != nil {
//	    return NewMemoryError("WriteMemory", err)
//	}
//
// Parameters:
//   - op: Name of the operation (e.g., "WriteMemory", "SearchMemories")
//   - err: The underlying error to wrap
//
// Returns a MemoryError, or nil if err is nil.
func NewMemoryError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &MemoryError{
		Op:  op,
		Err: err,
	}
}
