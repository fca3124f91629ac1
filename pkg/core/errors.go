package core

import (
	"errors"
	"fmt"
)

// Predefined errors for common failure scenarios.
var (
	// ErrInvalidInput indicates that the provided input is invalid, e.g. an
	// empty user ID or message. This is the only error class propagated to
	// Respond callers.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates that the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrStorageOperation indicates that a memory store operation failed.
	ErrStorageOperation = errors.New("storage operation failed")

	// ErrLLMOperation indicates that a text generation call failed.
	ErrLLMOperation = errors.New("llm operation failed")

	// ErrEmbeddingFailed indicates that embedding generation failed.
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// PipelineError wraps errors with operation context.
//
// Error() returns "mindmem: <Op>: <Err>".
type PipelineError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns the formatted error message.
func (e *PipelineError) Error() string {
	return fmt.Sprintf("mindmem: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error so errors.Is and errors.As work
// through PipelineError.
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError wraps err with operation context. Returns nil if err is
// nil so call sites can wrap unconditionally.
func NewPipelineError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PipelineError{Op: op, Err: err}
}
