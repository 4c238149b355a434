// Package apperr defines the typed errors surfaced by the upload pipeline and
// their mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a machine-readable error classification.
type Kind string

const (
	// KindValidation marks bad or missing client input.
	KindValidation Kind = "VALIDATION_ERROR"
	// KindConversion marks a failure to decode or re-encode audio.
	KindConversion Kind = "CONVERSION_ERROR"
	// KindStorage marks a failure writing to the blob or metadata store.
	KindStorage Kind = "STORAGE_ERROR"
	// KindRecognition marks a failure reported by the speech provider.
	KindRecognition Kind = "RECOGNITION_ERROR"
	// KindTimeout marks a request that exceeded the processing deadline.
	KindTimeout Kind = "TIMEOUT_ERROR"
)

// TimeoutMessage is the message returned when the processing deadline elapses.
const TimeoutMessage = "Processing time exceeded the limit"

// Error is the unified pipeline error type.
type Error struct {
	// Kind classifies the failure.
	Kind Kind
	// Message is the human-readable message.
	Message string
	// HTTPStatus is the status code the HTTP layer responds with.
	HTTPStatus int
	// Cause is the underlying error, if any.
	Cause error
}

// Error returns the message, followed by the cause when one is attached.
func (e *Error) Error() string {
	switch {
	case e.Cause != nil && e.Message == "":
		return e.Cause.Error()
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	default:
		return e.Message
	}
}

// Unwrap returns the underlying cause of the error.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Validation creates an error for rejected client input.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message, HTTPStatus: http.StatusBadRequest}
}

// Conversion creates an error for an audio decode/encode failure.
func Conversion(cause error) *Error {
	return &Error{
		Kind: KindConversion, Message: "audio conversion failed",
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
	}
}

// Storage creates an error for a failed write to one of the stores.
func Storage(op string, cause error) *Error {
	return &Error{
		Kind: KindStorage, Message: op + " failed",
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
	}
}

// Recognition creates an error carrying the speech provider's message.
// The provider message is used verbatim as the error text.
func Recognition(cause error) *Error {
	if cause == nil {
		cause = errors.New("recognition failed")
	}
	return &Error{Kind: KindRecognition, HTTPStatus: http.StatusInternalServerError, Cause: cause}
}

// Timeout creates an error for a request that exceeded its deadline.
func Timeout() *Error {
	return &Error{Kind: KindTimeout, Message: TimeoutMessage, HTTPStatus: http.StatusInternalServerError}
}

// As returns err as an *Error if it is or wraps one.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the kind of err, or the empty kind for untyped errors.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return ""
}

// HTTPStatus returns the status code for err; untyped errors map to 500.
func HTTPStatus(err error) int {
	if appErr, ok := As(err); ok && appErr.HTTPStatus != 0 {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}
