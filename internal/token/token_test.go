package token

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIssuer(t *testing.T, secret string, now func() time.Time) *Issuer {
	t.Helper()
	opts := []Option{}
	if now != nil {
		opts = append(opts, WithClock(now))
	}
	i, err := NewIssuer([]byte(secret), opts...)
	require.NoError(t, err)
	return i
}

func TestNewIssuer_EmptySecret(t *testing.T) {
	_, err := NewIssuer(nil)
	assert.Error(t, err)
}

func TestOTPSession_RoundTrip(t *testing.T) {
	i := newIssuer(t, "secret-a", nil)

	raw, err := i.IssueOTPSession("user-1")
	require.NoError(t, err)

	s, err := i.VerifyOTPSession(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", s.Subject)
}

func TestAccess_RoundTrip(t *testing.T) {
	i := newIssuer(t, "secret-a", nil)

	raw, err := i.IssueAccess("user-1")
	require.NoError(t, err)

	a, err := i.VerifyAccess(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", a.Subject)
}

func TestPurposeIsEnforced(t *testing.T) {
	i := newIssuer(t, "secret-a", nil)

	access, err := i.IssueAccess("user-1")
	require.NoError(t, err)
	_, err = i.VerifyOTPSession(access)
	assert.ErrorIs(t, err, ErrWrongPurpose)

	otpTok, err := i.IssueOTPSession("user-1")
	require.NoError(t, err)
	_, err = i.VerifyAccess(otpTok)
	assert.ErrorIs(t, err, ErrWrongPurpose)
}

func TestAlteredPurposeRejected(t *testing.T) {
	i := newIssuer(t, "secret-a", nil)
	c := claims{
		Purpose: "reset",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte("secret-a"))
	require.NoError(t, err)

	_, err = i.VerifyOTPSession(raw)
	assert.ErrorIs(t, err, ErrWrongPurpose)
}

func TestExpiredRejected(t *testing.T) {
	start := time.Now()
	clock := start
	i := newIssuer(t, "secret-a", func() time.Time { return clock })

	raw, err := i.IssueOTPSession("user-1")
	require.NoError(t, err)

	clock = start.Add(OTPSessionTTL - time.Second)
	_, err = i.VerifyOTPSession(raw)
	require.NoError(t, err)

	clock = start.Add(OTPSessionTTL + time.Second)
	_, err = i.VerifyOTPSession(raw)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestWrongSecretAndGarbage(t *testing.T) {
	a := newIssuer(t, "secret-a", nil)
	b := newIssuer(t, "secret-b", nil)

	raw, err := a.IssueOTPSession("user-1")
	require.NoError(t, err)

	_, err = b.VerifyOTPSession(raw)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = a.VerifyOTPSession("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestRejectsOtherAlgorithms(t *testing.T) {
	i := newIssuer(t, "secret-a", nil)
	c := claims{
		Purpose: PurposeOTP,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS384, c).SignedString([]byte("secret-a"))
	require.NoError(t, err)

	_, err = i.VerifyOTPSession(raw)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestSessionCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	SetSessionCookie(rec, "tok", true)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, CookieName, c.Name)
	assert.Equal(t, "tok", c.Value)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	assert.Equal(t, 7*24*60*60, c.MaxAge)

	rec = httptest.NewRecorder()
	ClearSessionCookie(rec, false)
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
	assert.True(t, cookies[0].MaxAge < 0)
	assert.False(t, cookies[0].Secure)
}
