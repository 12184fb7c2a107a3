package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeValidation represents malformed entity/relationship input
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeNotFound represents an id absent from the authoritative store
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeUpstream represents embedding provider failures
	ErrorTypeUpstream ErrorType = "upstream_provider"
	// ErrorTypeStore represents an unreachable authoritative store
	ErrorTypeStore ErrorType = "store_unavailable"
	// ErrorTypeContext represents context cancellation/timeout errors
	ErrorTypeContext ErrorType = "context"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Validation Errors

// ErrValidation is returned for malformed entity or relationship input
type ErrValidation struct {
	*BaseError
	Field  string
	Reason string
}

func NewValidation(field, reason string) *ErrValidation {
	return &ErrValidation{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("invalid %s: %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// Not Found Errors

// ErrEntityNotFound is returned when an entity id is absent from the record store
type ErrEntityNotFound struct {
	*BaseError
	EntityID string
}

func NewEntityNotFound(entityID string) *ErrEntityNotFound {
	return &ErrEntityNotFound{
		BaseError: NewBaseError(ErrorTypeNotFound, fmt.Sprintf("entity not found: %s", entityID), nil),
		EntityID:  entityID,
	}
}

// Upstream Provider Errors

// ErrUpstreamProvider is returned when the embedding provider fails,
// including rate-limit rejections which are transient
type ErrUpstreamProvider struct {
	*BaseError
	Provider    string
	RateLimited bool
}

func NewUpstreamProvider(provider string, rateLimited bool, err error) *ErrUpstreamProvider {
	msg := fmt.Sprintf("provider %s request failed", provider)
	if rateLimited {
		msg = fmt.Sprintf("provider %s rate limited", provider)
	}
	return &ErrUpstreamProvider{
		BaseError:   NewBaseError(ErrorTypeUpstream, msg, err),
		Provider:    provider,
		RateLimited: rateLimited,
	}
}

// Store Errors

// ErrStoreUnavailable is returned when the authoritative store is unreachable.
// This is fatal and propagates to the caller.
type ErrStoreUnavailable struct {
	*BaseError
	Store string
}

func NewStoreUnavailable(store string, err error) *ErrStoreUnavailable {
	return &ErrStoreUnavailable{
		BaseError: NewBaseError(ErrorTypeStore, fmt.Sprintf("store unavailable: %s", store), err),
		Store:     store,
	}
}

// Helper functions

type typedError interface {
	errorType() ErrorType
}

func (e *BaseError) errorType() ErrorType { return e.Type }

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	var te typedError
	if errors.As(err, &te) {
		return te.errorType() == errType
	}
	return false
}

// IsNotFound reports whether err denotes a missing entity
func IsNotFound(err error) bool {
	var nf *ErrEntityNotFound
	return errors.As(err, &nf)
}

// IsValidation reports whether err denotes malformed input
func IsValidation(err error) bool {
	var ve *ErrValidation
	return errors.As(err, &ve)
}

// IsRateLimited reports whether err is a transient rate-limit rejection
// from an upstream provider
func IsRateLimited(err error) bool {
	var up *ErrUpstreamProvider
	return errors.As(err, &up) && up.RateLimited
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if IsErrorType(err, ErrorTypeContext) {
		return false
	}
	if IsRateLimited(err) {
		return true
	}
	// Store connectivity errors are retryable
	return IsErrorType(err, ErrorTypeStore)
}
