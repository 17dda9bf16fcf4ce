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

// Is matches domain errors by code and message so wrapped sentinels compare equal.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
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
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeRateLimited   = "RATE_LIMITED"
	ErrCodeUpstream      = "UPSTREAM_ERROR"
	ErrCodeConfiguration = "CONFIG_ERROR"
)

// Validation errors
var (
	ErrEmptyUserInput = NewDomainError(ErrCodeValidation, "userInput is required")
	ErrEmptyThreadID  = NewDomainError(ErrCodeValidation, "thread id is required")
	ErrEmptyDocument  = NewDomainError(ErrCodeValidation, "document is empty")
)

// Not found errors
var (
	ErrSourceNotFound     = NewDomainError(ErrCodeNotFound, "source document not found")
	ErrCollectionNotFound = NewDomainError(ErrCodeNotFound, "collection not found")
	ErrPromptNotFound     = NewDomainError(ErrCodeConfiguration, "prompt file not found")
)

// Boundary errors
var (
	ErrRateLimited = NewDomainError(ErrCodeRateLimited, "Too many requests. Please try again later.")
	ErrNoReply     = NewDomainError(ErrCodeUpstream, "model returned no reply")
)
