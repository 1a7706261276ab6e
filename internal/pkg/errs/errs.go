package errs

import (
	"errors"
	"net/http"
)

// Stable error codes surfaced to API callers, independent of transport.
const (
	CodeValidation     = "VALIDATION_ERROR"
	CodeAuthentication = "AUTHENTICATION_ERROR"
	CodeAuthRequired   = "AUTH_REQUIRED"
	CodeInvalidToken   = "AUTH_INVALID_TOKEN"
	CodeTokenExpired   = "AUTH_TOKEN_EXPIRED"
	CodeSessionRevoked = "AUTH_SESSION_REVOKED"
	CodeForbidden      = "FORBIDDEN"
	CodeNotFound       = "NOT_FOUND"
	CodeConflict       = "CONFLICT"
	CodeInternal       = "INTERNAL_ERROR"
)

// Error is an application error carrying an HTTP status and a stable code.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

// New builds an Error with an explicit status and code.
func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// Validation is a 400 for malformed input.
func Validation(message string) *Error {
	return New(http.StatusBadRequest, CodeValidation, message)
}

// Authentication is the generic 401 used whenever revealing the precise
// failure cause would aid an attacker (login failures, deactivated accounts).
func Authentication(message string) *Error {
	return New(http.StatusUnauthorized, CodeAuthentication, message)
}

// AuthRequired is the strict-mode 401 for a missing bearer token.
func AuthRequired() *Error {
	return New(http.StatusUnauthorized, CodeAuthRequired, "Authentication token is required")
}

// InvalidToken is the 401 for a malformed or unverifiable access token.
func InvalidToken() *Error {
	return New(http.StatusUnauthorized, CodeInvalidToken, "Invalid authentication token")
}

// TokenExpired is the 401 for a well-formed but expired access token. Clients
// use this code to attempt a silent refresh instead of forcing re-login.
func TokenExpired() *Error {
	return New(http.StatusUnauthorized, CodeTokenExpired, "Authentication token has expired")
}

// SessionRevoked is the 401 for a token whose backing session is gone.
func SessionRevoked() *Error {
	return New(http.StatusUnauthorized, CodeSessionRevoked, "Session has been revoked")
}

// Forbidden is a 403 for an authenticated but unauthorized caller.
func Forbidden(message string) *Error {
	return New(http.StatusForbidden, CodeForbidden, message)
}

// NotFound is a 404.
func NotFound(message string) *Error {
	return New(http.StatusNotFound, CodeNotFound, message)
}

// Conflict is a 409 for unique-constraint style failures.
func Conflict(message string) *Error {
	return New(http.StatusConflict, CodeConflict, message)
}

// As extracts an *Error from err, if present.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns the stable code of err, or CodeInternal for untyped errors.
func CodeOf(err error) string {
	if e, ok := As(err); ok {
		return e.Code
	}
	return CodeInternal
}
