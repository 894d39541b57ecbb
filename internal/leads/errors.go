package leads

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures for the HTTP layer.
type ErrorKind string

const (
	KindClientInput ErrorKind = "client_input"
	KindStorage     ErrorKind = "storage"
)

const (
	requiredFieldsMessage = "Name and phone are required."
	submissionFailedMsg   = "Lead submission failed"
)

var (
	// ErrMissingRequired is returned when name or phone is empty after trimming
	ErrMissingRequired = errors.New("name and phone are required")

	// ErrMalformedBody is returned when the request body cannot be parsed
	ErrMalformedBody = errors.New("malformed request body")
)

// Error is the tagged failure returned by Service.Submit. Message is safe to
// show to callers; Err carries the underlying cause for logs.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("leads: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("leads: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrClientInput builds a client input error with a caller-facing message.
func ErrClientInput(message string, err error) *Error {
	return &Error{Kind: KindClientInput, Message: message, Err: err}
}

// ErrStorage builds a storage error. The caller-facing message never
// includes the cause.
func ErrStorage(err error) *Error {
	return &Error{Kind: KindStorage, Message: submissionFailedMsg, Err: err}
}

// KindOf returns the kind of a tagged error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsClientInput reports whether err should be surfaced as a 400.
func IsClientInput(err error) bool { return KindOf(err) == KindClientInput }

// IsStorage reports whether err came from the lead log.
func IsStorage(err error) bool { return KindOf(err) == KindStorage }
