// Package token signs and verifies the two JWT flavours used by the login
// flow: the short-lived OTP session token and the long-lived access token.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// PurposeOTP tags tokens that may only be used to finish an OTP challenge.
	PurposeOTP = "otp"

	OTPSessionTTL = 15 * time.Minute
	AccessTTL     = 7 * 24 * time.Hour
)

var (
	// ErrInvalid covers bad signatures, malformed tokens and expired tokens.
	ErrInvalid = errors.New("token: invalid or expired")
	// ErrWrongPurpose is returned when a valid token is presented for the
	// wrong operation, e.g. an access token used to verify an OTP.
	ErrWrongPurpose = errors.New("token: wrong purpose")
)

// OTPSession is a verified OTP session token.
type OTPSession struct {
	Subject string
}

// Access is a verified access token.
type Access struct {
	Subject string
}

type claims struct {
	Purpose string `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs tokens with an injected HMAC secret.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// NewIssuer returns an Issuer using secret for HS256 signatures.
func NewIssuer(secret []byte, opts ...Option) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("token: empty secret")
	}
	i := &Issuer{secret: secret, now: time.Now}
	for _, o := range opts {
		o(i)
	}
	return i, nil
}

// IssueOTPSession signs {sub, purpose:"otp"} valid for 15 minutes.
func (i *Issuer) IssueOTPSession(subject string) (string, error) {
	return i.sign(subject, PurposeOTP, OTPSessionTTL)
}

// IssueAccess signs {sub} valid for 7 days.
func (i *Issuer) IssueAccess(subject string) (string, error) {
	return i.sign(subject, "", AccessTTL)
}

func (i *Issuer) sign(subject, purpose string, ttl time.Duration) (string, error) {
	now := i.now()
	c := claims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.secret)
}

// VerifyOTPSession accepts only OTP session tokens.
func (i *Issuer) VerifyOTPSession(raw string) (OTPSession, error) {
	c, err := i.parse(raw)
	if err != nil {
		return OTPSession{}, err
	}
	if c.Purpose != PurposeOTP {
		return OTPSession{}, ErrWrongPurpose
	}
	return OTPSession{Subject: c.Subject}, nil
}

// VerifyAccess accepts only access tokens; an OTP session token is rejected.
func (i *Issuer) VerifyAccess(raw string) (Access, error) {
	c, err := i.parse(raw)
	if err != nil {
		return Access{}, err
	}
	if c.Purpose != "" {
		return Access{}, ErrWrongPurpose
	}
	return Access{Subject: c.Subject}, nil
}

func (i *Issuer) parse(raw string) (*claims, error) {
	c := &claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	tok, err := parser.ParseWithClaims(raw, c, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	})
	if err != nil || !tok.Valid || c.Subject == "" {
		return nil, ErrInvalid
	}
	return c, nil
}
