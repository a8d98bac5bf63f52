// Package apperror defines the domain error taxonomy. Handlers surface these
// verbatim with their status; anything else is logged and mapped to an opaque
// 500 so no internal detail leaks.
package apperror

import (
	"errors"
	"net/http"
)

// Error is a domain error that carries the HTTP status the transport layer
// should respond with.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

func New(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

// InvalidInput reports malformed input the caller can correct (400).
func InvalidInput(message string) *Error { return New(http.StatusBadRequest, message) }

// Conflict reports a uniqueness collision on slug or normalized email (409).
func Conflict(message string) *Error { return New(http.StatusConflict, message) }

// InvalidCredentials is the single response for unknown email and wrong
// password; the two cases must stay indistinguishable (401).
func InvalidCredentials() *Error { return New(http.StatusUnauthorized, "Invalid credentials") }

// AccountNotActive reports a disabled user or non-active membership (403).
// Distinct from InvalidCredentials because it is not a secret-guessing signal.
func AccountNotActive() *Error { return New(http.StatusForbidden, "Account is not active") }

// Unauthorized reports a missing, malformed, or expired access token (401).
func Unauthorized(message string) *Error { return New(http.StatusUnauthorized, message) }

// Forbidden reports a valid token with insufficient role (403).
func Forbidden(message string) *Error { return New(http.StatusForbidden, message) }

// InvalidSession reports a refresh token that is stale, reused, expired, or
// lost the rotation race (401).
func InvalidSession(message string) *Error { return New(http.StatusUnauthorized, message) }

// NotFound reports a profile lookup miss after token verification (404).
func NotFound(message string) *Error { return New(http.StatusNotFound, message) }

// StatusOf returns the HTTP status for err: the carried status for domain
// errors, 500 otherwise.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}
