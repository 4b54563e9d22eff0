// Package apperr defines the error taxonomy shared by stores, the service layer and HTTP handlers.
package apperr

import "errors"

// Kind classifies an error for the transport layer
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindUnauthenticated
	KindForbidden
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// FieldError describes a single rejected input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a classified error. Message is safe to show to clients, Err is not.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	Err     error
}

// Store-level sentinels
var (
	ErrConflict = &Error{Kind: KindConflict, Message: "resource already exists"}
	ErrNotFound = &Error{Kind: KindNotFound, Message: "resource not found"}
)

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) holds for every not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Validation builds a validation error carrying field details
func Validation(message string, fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// Conflict builds a conflict error
func Conflict(message string, cause error) *Error {
	return &Error{Kind: KindConflict, Message: message, Err: cause}
}

// Unauthenticated builds an authentication failure
func Unauthenticated(message string, cause error) *Error {
	return &Error{Kind: KindUnauthenticated, Message: message, Err: cause}
}

// Forbidden builds an authorization failure for a known identity
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// NotFound builds a not-found error
func NotFound(message string, cause error) *Error {
	return &Error{Kind: KindNotFound, Message: message, Err: cause}
}

// KindOf returns the kind of the first *Error in the chain, KindInternal otherwise
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
