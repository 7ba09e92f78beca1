package auth

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies auth failures for the HTTP layer.
type Kind int

const (
	Internal Kind = iota
	Validation
	Conflict
	InvalidCredentials
	Locked
	SessionExpired
	InvalidToken
	NoActiveChallenge
	Expired
	InvalidCode
	TooSoon
	NotFound
)

// Status returns the HTTP status code for k.
func (k Kind) Status() int {
	switch k {
	case Validation, Conflict, SessionExpired, InvalidToken, NoActiveChallenge, Expired, InvalidCode:
		return http.StatusBadRequest
	case InvalidCredentials:
		return http.StatusUnauthorized
	case Locked:
		return http.StatusLocked
	case TooSoon:
		return http.StatusTooManyRequests
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is returned by every Service operation. Message is safe to show to
// clients; Err carries the internal cause and is never serialised.
type Error struct {
	Kind    Kind
	Message string
	// Wait is the remaining cooldown in seconds for TooSoon.
	Wait int
	// Missing lists absent onboarding fields for Validation.
	Missing []string
	Err     error
}

// Error returns the client-facing message.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the internal cause to errors.Is and errors.As.
func (e *Error) Unwrap() error { return e.Err }

func newErr(k Kind, msg string) *Error { return &Error{Kind: k, Message: msg} }

func internalErr(err error) *Error {
	return &Error{Kind: Internal, Message: "Internal Server Error", Err: err}
}

// KindOf returns the Kind of err, or Internal when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
