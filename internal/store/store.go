// Package store persists user records and their OTP challenge state.
package store

import (
	"context"
	"errors"
	"time"

	"chatauth/internal/models"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
	// ErrStale is returned by conditional challenge writes when the record
	// no longer holds the challenge that was read, or is locked.
	ErrStale = errors.New("challenge changed or locked")
)

// Users is the credential store used by the auth service. Lookups by email
// and the *WithSecrets reads return the OTP and lockout fields; Get returns
// the public projection only.
type Users interface {
	Create(ctx context.Context, u *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindWithSecrets(ctx context.Context, id string) (*models.User, error)
	Get(ctx context.Context, id string) (*models.User, error)

	// SetChallenge stores a fresh challenge and resets the attempt counter.
	SetChallenge(ctx context.Context, id string, c models.Challenge) error
	// IncrementAttempts atomically bumps otpAttempts and returns the new
	// value. The write only applies while the record still holds hash and is
	// not locked at now; otherwise it returns ErrStale.
	IncrementAttempts(ctx context.Context, id, hash string, now time.Time) (int, error)
	Lock(ctx context.Context, id string, until time.Time) error
	// CompleteChallenge clears the OTP fields and marks the email verified,
	// returning the public record. Same condition as IncrementAttempts.
	CompleteChallenge(ctx context.Context, id, hash string, now time.Time) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, p models.Profile) (*models.User, error)
}
