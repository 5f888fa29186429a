package chloris

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes errors for handling and reporting.
type ErrorKind string

const (
	// KindConfiguration indicates missing or invalid construction parameters.
	KindConfiguration ErrorKind = "configuration"
	// KindAuthentication indicates a token refresh or sign-in failure.
	KindAuthentication ErrorKind = "authentication"
	// KindRateLimit indicates a transient rate-limit rejection that may be retried.
	KindRateLimit ErrorKind = "rate_limit"
	// KindThrottled indicates the rate-limit retry budget was exhausted.
	KindThrottled ErrorKind = "throttled"
	// KindCredentialExchange indicates a non-throttle failure exchanging for
	// temporary storage credentials.
	KindCredentialExchange ErrorKind = "credential_exchange"
	// KindStorage indicates an object read/write failure other than not-found.
	KindStorage ErrorKind = "storage"
	// KindNotFound indicates an absent object.
	KindNotFound ErrorKind = "not_found"
	// KindExpiredCredentials indicates the delegated storage credentials
	// expired mid-operation and may be re-acquired.
	KindExpiredCredentials ErrorKind = "expired_credentials"
	// KindNormalization indicates the server rejected or flagged a boundary.
	KindNormalization ErrorKind = "normalization"
	// KindTimeout indicates the polling ceiling was reached.
	KindTimeout ErrorKind = "timeout"
	// KindValidation indicates a local precondition failure.
	KindValidation ErrorKind = "validation"
	// KindAPI indicates a non-success response from a REST endpoint.
	KindAPI ErrorKind = "api"
)

// Error is a structured error with a kind and context.
type Error struct {
	// Kind classifies the error type.
	Kind ErrorKind

	// Message is a human-readable error message.
	Message string

	// Operation is the operation that failed.
	Operation string

	// Status is the HTTP status code, when the error came from a REST endpoint.
	Status int

	// Body is the verbatim response body, when the error came from a REST endpoint.
	Body string

	// Retryable indicates whether the operation can be retried.
	Retryable bool

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("chloris: [%s] %s", e.Kind, e.Message)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors of the same kind.
func (e *Error) Is(target error) bool {
	var ce *Error
	if errors.As(target, &ce) {
		return e.Kind == ce.Kind
	}
	return false
}

// WithCause sets the underlying error.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// WithOperation sets the operation.
func (e *Error) WithOperation(op string) *Error {
	e.Operation = op
	return e
}

// NewError creates a new Error.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Convenience constructors for common error kinds

// ErrConfiguration creates a configuration error.
func ErrConfiguration(message string) *Error {
	return NewError(KindConfiguration, message)
}

// ErrAuthentication creates an authentication error.
func ErrAuthentication(message string) *Error {
	return NewError(KindAuthentication, message)
}

// ErrRateLimit creates a transient rate-limit error.
func ErrRateLimit(message string) *Error {
	e := NewError(KindRateLimit, message)
	e.Retryable = true
	return e
}

// ErrThrottled creates a throttled error.
func ErrThrottled(message string) *Error {
	return NewError(KindThrottled, message)
}

// ErrCredentialExchange creates a credential exchange error.
func ErrCredentialExchange(message string) *Error {
	return NewError(KindCredentialExchange, message)
}

// ErrStorage creates a storage error.
func ErrStorage(message string) *Error {
	return NewError(KindStorage, message)
}

// ErrNotFound creates a not-found error.
func ErrNotFound(resourceType, resourceID string) *Error {
	return NewError(KindNotFound, fmt.Sprintf("%s not found: %s", resourceType, resourceID))
}

// ErrExpiredCredentials creates an expired-credentials error.
func ErrExpiredCredentials(message string) *Error {
	e := NewError(KindExpiredCredentials, message)
	e.Retryable = true
	return e
}

// ErrNormalization creates a normalization error carrying the server-supplied reason.
func ErrNormalization(reason string) *Error {
	return NewError(KindNormalization, reason)
}

// ErrTimeout creates a timeout error.
func ErrTimeout(message string) *Error {
	return NewError(KindTimeout, message)
}

// ErrValidation creates a validation error.
func ErrValidation(message string) *Error {
	return NewError(KindValidation, message)
}

// ErrAPI creates an API error carrying the response status and verbatim body.
func ErrAPI(operation string, status int, body string) *Error {
	return &Error{
		Kind:      KindAPI,
		Message:   fmt.Sprintf("%s failed", operation),
		Operation: operation,
		Status:    status,
		Body:      body,
	}
}

// IsKind checks if an error is of a specific kind.
func IsKind(err error, kind ErrorKind) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Retryable
	}
	return false
}
