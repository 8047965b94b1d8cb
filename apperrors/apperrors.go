// Package apperrors provides machine-readable error codes shared by
// services and HTTP handlers.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable, machine-readable error kind.
type Code string

const (
	// CodeValidation indicates malformed input or constraints.
	CodeValidation Code = "VALIDATION"
	// CodeUnauthorized indicates a missing or invalid credential.
	CodeUnauthorized Code = "UNAUTHORIZED"
	// CodeForbidden indicates a caller lacking permission for an owner-only action.
	CodeForbidden Code = "FORBIDDEN"
	// CodeNotFound indicates an unknown invite, room, document or user.
	CodeNotFound Code = "NOT_FOUND"

	// Invite state errors: redemption rejected on a business-rule gate.
	CodeInviteRevoked       Code = "INVITE_REVOKED"
	CodeInviteExpired       Code = "INVITE_EXPIRED"
	CodeInviteExhausted     Code = "INVITE_EXHAUSTED"
	CodeInviteEmailMismatch Code = "INVITE_EMAIL_MISMATCH"

	// CodeShareRevoked indicates a redemption against an explicitly revoked share.
	CodeShareRevoked Code = "SHARE_REVOKED"

	// CodeConflict indicates a lost atomic race or a duplicate resource.
	CodeConflict Code = "CONFLICT"
	// CodeUnavailable indicates a transient storage failure; callers may retry.
	CodeUnavailable Code = "UNAVAILABLE"
	// CodeInternal indicates an unexpected failure.
	CodeInternal Code = "INTERNAL"
)

// Error carries a code and a human-readable message.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New creates an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// HTTPStatus maps an error to the HTTP status its code implies.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInviteRevoked, CodeInviteExpired, CodeInviteExhausted,
		CodeInviteEmailMismatch, CodeShareRevoked, CodeConflict:
		return http.StatusConflict
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
