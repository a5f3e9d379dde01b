package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Protocol
	ErrCodeDecode        ErrorCode = "DECODE_ERROR"
	ErrCodeUnknownOpcode ErrorCode = "UNKNOWN_OPCODE"

	// Authentication & Authorization
	ErrCodeAuthFailed        ErrorCode = "AUTH_FAILED"
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrCodeAlreadyAuthorized ErrorCode = "ALREADY_AUTHORIZED"

	// Validation
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeMissingRequired ErrorCode = "MISSING_REQUIRED"
	ErrCodeInvalidAudio    ErrorCode = "INVALID_AUDIO"

	// Routing & correlation
	ErrCodeDuplicateCorrelation ErrorCode = "DUPLICATE_CORRELATION"
	ErrCodeRouteNotFound        ErrorCode = "ROUTE_NOT_FOUND"
	ErrCodeTimeout              ErrorCode = "TIMEOUT"

	// Resource
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// Rate Limiting
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Internal
	ErrCodeInternal       ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabase       ErrorCode = "DATABASE_ERROR"
	ErrCodeExternal       ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeAdapterFailure ErrorCode = "ADAPTER_FAILURE"
)

// AppError is a structured error that can be returned to clients
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause adds a cause to the error
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common error constructors

// Decode reports a malformed message. field is empty when the payload as a
// whole could not be parsed.
func Decode(field string, reason string) *AppError {
	if field == "" {
		return New(ErrCodeDecode, reason)
	}
	return New(ErrCodeDecode, fmt.Sprintf("Invalid field %q: %s", field, reason)).
		WithDetails(map[string]string{"field": field})
}

func UnknownOpcode(code int) *AppError {
	return New(ErrCodeUnknownOpcode, fmt.Sprintf("Unknown opcode %d", code))
}

func AuthFailed() *AppError {
	return New(ErrCodeAuthFailed, "Invalid auth")
}

func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message)
}

func AlreadyAuthorized() *AppError {
	return New(ErrCodeAlreadyAuthorized, "Session is already authorized")
}

func InvalidInput(field string, reason string) *AppError {
	return New(ErrCodeInvalidInput, fmt.Sprintf("Invalid %s: %s", field, reason))
}

func MissingRequired(field string) *AppError {
	return New(ErrCodeMissingRequired, fmt.Sprintf("%s is required", field)).
		WithDetails(map[string]string{"field": field})
}

func InvalidAudio(reason string) *AppError {
	return New(ErrCodeInvalidAudio, fmt.Sprintf("Invalid audio payload: %s", reason))
}

func DuplicateCorrelation(kind string, nonce int64) *AppError {
	return New(ErrCodeDuplicateCorrelation, fmt.Sprintf("Nonce %d is already pending for %s", nonce, kind))
}

func RouteNotFound(vcID int64) *AppError {
	return New(ErrCodeRouteNotFound, fmt.Sprintf("No cluster registered for voice channel %d; cluster is required", vcID))
}

func Timeout(kind string) *AppError {
	return New(ErrCodeTimeout, fmt.Sprintf("%s timed out", kind))
}

func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func RateLimitExceeded() *AppError {
	return New(ErrCodeRateLimitExceeded, "Rate limit exceeded")
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

func Database(cause error) *AppError {
	return Wrap(ErrCodeDatabase, "Database error", cause)
}

func External(service string, cause error) *AppError {
	return Wrap(ErrCodeExternal, fmt.Sprintf("External service error: %s", service), cause)
}

func AdapterFailure(adapter string, cause error) *AppError {
	return Wrap(ErrCodeAdapterFailure, fmt.Sprintf("%s failed", adapter), cause)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns the error code if the error is an AppError, otherwise returns ErrCodeInternal
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}
