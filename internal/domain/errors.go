package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrNoDocuments signals an operation that needs at least one uploaded document.
	ErrNoDocuments = errors.New("no documents uploaded")
	// ErrEmptyQuery signals a blank search query.
	ErrEmptyQuery = errors.New("query must not be empty")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrExtraction signals that text could not be extracted from an upload.
	ErrExtraction = errors.New("extraction failed")
	// ErrUpstream signals an LLM provider failure (network, timeout, non-2xx).
	ErrUpstream = errors.New("upstream call failed")
	// ErrNoCredential signals that no LLM API key is configured.
	ErrNoCredential = errors.New("llm api key not configured")
	// ErrTaskCancelled is the cancellation cause attached to a task context.
	ErrTaskCancelled = errors.New("analysis cancelled")
	// ErrInvalidRequest signals a malformed client request.
	ErrInvalidRequest = errors.New("invalid request")
)

// ExtractionError wraps ErrExtraction with a human-readable reason.
type ExtractionError struct {
	Filename string
	Reason   string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrExtraction.Error(), e.Filename, e.Reason)
}

func (e *ExtractionError) Unwrap() error { return ErrExtraction }

// NewExtractionError creates an extraction error for the given file.
func NewExtractionError(filename, reason string) error {
	return &ExtractionError{Filename: filename, Reason: reason}
}
