// Package domainerrors defines the typed error vocabulary shared by services
// and transports. Services return these errors; the HTTP layer maps codes to
// status lines without inspecting message strings.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure. Codes are stable API surface; messages
// are free-form detail for humans.
type Code string

const (
	CodeBadRequest Code = "bad_request"
	CodeNotFound   Code = "not_found"
	CodeInternal   Code = "internal_error"

	// Pipeline codes. One code per stage so callers can tell where a
	// generation run died without parsing messages.
	CodeFetchFailed           Code = "fetch_failed"
	CodeGenerationFailed      Code = "generation_failed"
	CodeRenderFailed          Code = "render_failed"
	CodeAuthFailed            Code = "auth_failed"
	CodeSubmissionFailed      Code = "submission_failed"
	CodeSigningURLUnavailable Code = "signing_url_unavailable"
	CodeMissingFields         Code = "missing_fields"

	// Webhook codes.
	CodeWebhookMalformed Code = "webhook_malformed"
)

// Error carries a code, a human-readable message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New builds a domain error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// Is reports whether the nearest domain error in err's chain carries the
// given code.
func Is(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for errors
// that did not originate in this package.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Detail returns the message for err when it is a domain error, or the plain
// error string otherwise. Internal errors return an empty detail so internals
// never leak to API consumers.
func Detail(err error) string {
	var de *Error
	if errors.As(err, &de) {
		if de.Code == CodeInternal {
			return ""
		}
		return de.Message
	}
	return ""
}
