package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeEmptyDocument        = "EMPTY_DOCUMENT"
	ErrCodeEmbeddingUnavailable = "EMBEDDING_UNAVAILABLE"
	ErrCodeStoreFailure         = "STORE_FAILURE"
	ErrCodeInternalError        = "INTERNAL_ERROR"
)

var (
	// ErrEmbeddingUnavailable means no embedding backend is configured.
	// Fatal for the request and surfaced to the caller; not retryable.
	ErrEmbeddingUnavailable = NewDomainError(ErrCodeEmbeddingUnavailable, "no embedding backend configured")

	// ErrEmptyDocument means chunking produced no indexable content. Per-item
	// during batch ingestion; the batch continues past it.
	ErrEmptyDocument = NewDomainError(ErrCodeEmptyDocument, "document has no indexable content")

	// ErrDocumentNotFound means no chunks exist for the requested document id.
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found in knowledge base")

	// ErrDimensionMismatch means a vector's length disagrees with the store's
	// fixed embedding dimensionality.
	ErrDimensionMismatch = NewDomainError(ErrCodeValidation, "embedding dimension mismatch")

	ErrMissingQuery = NewDomainError(ErrCodeValidation, "query is required")
)

// StoreError wraps a persistence failure. These are fatal and must
// propagate; they are never silently swallowed.
func StoreError(op string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeStoreFailure, fmt.Sprintf("vector store %s failed", op), err)
}
