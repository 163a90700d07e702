package utils

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an AppError independently of its transport status
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindSchema
	KindValidation
	KindNotFound
	KindPrecondition
	KindUnauthorized
	KindForbidden
	KindBadRequest
	KindRateLimited
)

// String returns the wire name of the kind
func (k ErrorKind) String() string {
	switch k {
	case KindSchema:
		return "schema"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindPrecondition:
		return "precondition"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindBadRequest:
		return "bad_request"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

// AppError represents a custom application error with context
type AppError struct {
	Code      int                    // HTTP status code
	Kind      ErrorKind              // Error class
	Message   string                 // User-friendly message (English)
	MessageID string                 // Translation id, empty when the message is not localized
	Data      map[string]interface{} // Template data for the translation
	Err       error                  // Underlying error
}

// NewAppError creates a new AppError
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kindForCode(code),
		Message: message,
		Err:     err,
	}
}

func kindForCode(code int) ErrorKind {
	switch code {
	case 400:
		return KindBadRequest
	case 401:
		return KindUnauthorized
	case 403:
		return KindForbidden
	case 404:
		return KindNotFound
	case 429:
		return KindRateLimited
	default:
		return KindInternal
	}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithMessageID attaches a translation id and its template data
func (e *AppError) WithMessageID(id string, data map[string]interface{}) *AppError {
	e.MessageID = id
	e.Data = data
	return e
}

// WithData sets the template data used when localizing the message
func (e *AppError) WithData(data map[string]interface{}) *AppError {
	e.Data = data
	return e
}

// Common error constructors
func BadRequestError(message string, err error) *AppError {
	return NewAppError(400, message, err)
}

func UnauthorizedError(message string, err error) *AppError {
	return NewAppError(401, message, err)
}

func NotFoundError(message string, err error) *AppError {
	return NewAppError(404, message, err)
}

func TooManyRequestsError(message string) *AppError {
	return NewAppError(429, message, nil)
}

func InternalServerError(message string, err error) *AppError {
	return NewAppError(500, message, err)
}

// SchemaError reports a structural payload violation
func SchemaError(format string, v ...interface{}) *AppError {
	e := NewAppError(400, fmt.Sprintf(format, v...), nil)
	e.Kind = KindSchema
	return e
}

// ValidationError reports a semantic violation found after the structural check
func ValidationError(messageID, message string) *AppError {
	e := NewAppError(400, message, nil)
	e.Kind = KindValidation
	e.MessageID = messageID
	return e
}

// PreconditionError reports a request that cannot run in the caller's current state
func PreconditionError(messageID, message string) *AppError {
	e := NewAppError(400, message, nil)
	e.Kind = KindPrecondition
	e.MessageID = messageID
	return e
}

// AsAppError extracts an *AppError from err's chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err carries an AppError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Kind == kind
}
