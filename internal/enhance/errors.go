package enhance

import (
	"errors"
	"net/http"
)

type Category string

const (
	CategoryValidation    Category = "validation"
	CategoryConfiguration Category = "configuration"
	CategoryUpstream      Category = "upstream"
	CategoryUnknown       Category = "unknown"
)

const (
	msgMissingCredential = "Server configuration error: API key not found."
	msgEmptyResponse     = "The AI returned an empty response."
	msgUnknown           = "An unknown error occurred."
)

// Error is the only error type the relay lets reach the wire. Message is safe
// to show to users; Err keeps the cause for logs.
type Error struct {
	Category Category
	Message  string
	Err      error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status maps the category onto an HTTP status code.
func (e *Error) Status() int {
	if e.Category == CategoryValidation {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func validationError(msg string, err error) *Error {
	return &Error{Category: CategoryValidation, Message: msg, Err: err}
}

func configurationError(err error) *Error {
	return &Error{Category: CategoryConfiguration, Message: msgMissingCredential, Err: err}
}

func upstreamError(msg string, err error) *Error {
	return &Error{Category: CategoryUpstream, Message: msg, Err: err}
}

// AsError converts any error into a categorized *Error, treating anything
// unrecognized as unknown.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Category: CategoryUnknown, Message: msgUnknown, Err: err}
}

// CategoryOf reports the category of err, or "" for nil.
func CategoryOf(err error) Category {
	if err == nil {
		return ""
	}
	return AsError(err).Category
}
