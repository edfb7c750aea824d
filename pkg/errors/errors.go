package errors

import (
	"fmt"
)

// ErrorType defines different categories of errors
type ErrorType string

const (
	// ErrorTypeInvalidInput marks malformed or missing fields when building a
	// request; no network call is made for these.
	ErrorTypeInvalidInput ErrorType = "INVALID_INPUT"

	// ErrorTypeTransport marks a non-success HTTP status or a network failure
	// reaching the generation endpoint.
	ErrorTypeTransport ErrorType = "TRANSPORT"

	// ErrorTypeStreamProtocol marks an error frame received mid-stream.
	ErrorTypeStreamProtocol ErrorType = "STREAM_PROTOCOL"

	// ErrorTypeMalformedResponse marks a final response body that fails to
	// parse after fence-stripping. Per-fragment partial-parse misses are not
	// errors at all.
	ErrorTypeMalformedResponse ErrorType = "MALFORMED_RESPONSE"

	// ErrorTypePersistence marks a failed write-back to the record store after
	// a successful generation.
	ErrorTypePersistence ErrorType = "PERSISTENCE"

	ErrorTypeNotFound ErrorType = "NOT_FOUND"
	ErrorTypeInternal ErrorType = "INTERNAL"
)

// AppError is the custom error type for the application
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work
func (e *AppError) Unwrap() error {
	return e.Err
}

// Constructor functions for different error types

// NewInvalidInput creates an invalid-input error
func NewInvalidInput(message string) error {
	return &AppError{
		Type:    ErrorTypeInvalidInput,
		Message: message,
	}
}

// NewTransport creates a transport error
func NewTransport(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeTransport,
		Message: message,
		Err:     err,
	}
}

// NewStreamProtocol creates a mid-stream protocol error carrying the
// server-supplied message
func NewStreamProtocol(message string) error {
	return &AppError{
		Type:    ErrorTypeStreamProtocol,
		Message: message,
	}
}

// NewMalformedResponse creates a malformed-response error
func NewMalformedResponse(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeMalformedResponse,
		Message: message,
		Err:     err,
	}
}

// NewPersistence creates a persistence error
func NewPersistence(message string, err error) error {
	return &AppError{
		Type:    ErrorTypePersistence,
		Message: message,
		Err:     err,
	}
}

// NewNotFound creates a not found error
func NewNotFound(message string) error {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewInternal creates an internal error
func NewInternal(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	// If it's already an AppError, preserve the type
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Type:    appErr.Type,
			Message: fmt.Sprintf("%s: %s", message, appErr.Message),
			Err:     appErr.Err,
		}
	}

	// Otherwise, create an internal error
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// Type checking functions

func isType(err error, t ErrorType) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Type == t
}

// IsInvalidInput checks if an error is an invalid-input error
func IsInvalidInput(err error) bool { return isType(err, ErrorTypeInvalidInput) }

// IsTransport checks if an error is a transport error
func IsTransport(err error) bool { return isType(err, ErrorTypeTransport) }

// IsStreamProtocol checks if an error is a stream protocol error
func IsStreamProtocol(err error) bool { return isType(err, ErrorTypeStreamProtocol) }

// IsMalformedResponse checks if an error is a malformed-response error
func IsMalformedResponse(err error) bool { return isType(err, ErrorTypeMalformedResponse) }

// IsPersistence checks if an error is a persistence error
func IsPersistence(err error) bool { return isType(err, ErrorTypePersistence) }

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool { return isType(err, ErrorTypeNotFound) }

// IsInternal checks if an error is an internal error
func IsInternal(err error) bool { return isType(err, ErrorTypeInternal) }
