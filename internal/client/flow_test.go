package client

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	loginErr  error
	verifyErr error
	resendErr error

	verified []string
	resends  int

	// when set, ResendOTP signals resendStarted and waits on resendGate
	resendStarted chan struct{}
	resendGate    chan struct{}
}

func (f *fakeAPI) Login(_ context.Context, email, _ string) (*LoginResponse, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &LoginResponse{Status: "OTP_REQUIRED", OTPToken: "tok-1", Email: "al***@example.com", ExpiresInMin: 10, EmailSent: true}, nil
}

func (f *fakeAPI) VerifyOTP(_ context.Context, code, otpToken string) (*User, error) {
	f.verified = append(f.verified, code+"/"+otpToken)
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return &User{Email: "alice@example.com"}, nil
}

func (f *fakeAPI) ResendOTP(context.Context, string) (*ResendResponse, error) {
	if f.resendGate != nil {
		close(f.resendStarted)
		<-f.resendGate
	}
	f.resends++
	if f.resendErr != nil {
		return nil, f.resendErr
	}
	return &ResendResponse{Message: "OTP resent", EmailSent: true}, nil
}

func loggedIn(t *testing.T, api *fakeAPI) *Flow {
	t.Helper()
	f := NewFlow(api)
	require.NoError(t, f.SubmitCredentials(context.Background(), "alice@example.com", "secret1"))
	return f
}

func TestSubmitCredentialsMovesToOTP(t *testing.T) {
	f := loggedIn(t, &fakeAPI{})

	assert.Equal(t, StepOTP, f.Step())
	assert.Equal(t, "al***@example.com", f.MaskedEmail())
	assert.Equal(t, 10, f.ExpiresIn())
	assert.True(t, f.EmailSent())
	assert.Equal(t, ResendCooldown, f.Cooldown())
	assert.False(t, f.CanResend())
}

func TestSubmitCredentialsErrorStaysOnCreds(t *testing.T) {
	f := NewFlow(&fakeAPI{loginErr: &APIError{Status: 400, Message: "Invalid email or password"}})

	err := f.SubmitCredentials(context.Background(), "alice@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, StepCreds, f.Step())
}

func TestSubmitCodeRequiresSixDigits(t *testing.T) {
	api := &fakeAPI{}
	f := loggedIn(t, api)
	f.Code.Paste(0, "123")

	_, err := f.SubmitCode(context.Background())
	assert.ErrorIs(t, err, ErrIncompleteCode)
	assert.Empty(t, api.verified)
}

func TestSubmitCodeSendsCodeAndToken(t *testing.T) {
	api := &fakeAPI{}
	f := loggedIn(t, api)
	require.True(t, f.Code.Paste(0, "123456"))

	u, err := f.SubmitCode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, []string{"123456/tok-1"}, api.verified)
}

func TestSubmitCodeShowsServerMessage(t *testing.T) {
	f := loggedIn(t, &fakeAPI{verifyErr: &APIError{Status: 400, Message: "Invalid code"}})
	f.Code.Paste(0, "000000")

	_, err := f.SubmitCode(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Invalid code", f.Error())
	assert.Equal(t, StepOTP, f.Step())
}

func TestResendAfterCooldown(t *testing.T) {
	api := &fakeAPI{}
	f := loggedIn(t, api)

	_, err := f.Resend(context.Background())
	assert.ErrorIs(t, err, ErrResendDisabled)

	for i := 0; i < ResendCooldown; i++ {
		f.Tick()
	}
	assert.Equal(t, 0, f.Cooldown())
	assert.True(t, f.CanResend())

	res, err := f.Resend(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "OTP resent", res.Message)
	assert.Equal(t, 1, api.resends)
	assert.Equal(t, ResendCooldown, f.Cooldown())
}

func TestResendDisabledWhileInFlight(t *testing.T) {
	api := &fakeAPI{resendStarted: make(chan struct{}), resendGate: make(chan struct{})}
	f := loggedIn(t, api)
	for i := 0; i < ResendCooldown; i++ {
		f.Tick()
	}
	require.True(t, f.CanResend())

	done := make(chan error, 1)
	go func() {
		_, err := f.Resend(context.Background())
		done <- err
	}()
	<-api.resendStarted

	assert.False(t, f.CanResend())
	_, err := f.Resend(context.Background())
	assert.ErrorIs(t, err, ErrResendDisabled)

	close(api.resendGate)
	require.NoError(t, <-done)
	assert.Equal(t, 1, api.resends)
	assert.Equal(t, ResendCooldown, f.Cooldown())
	assert.False(t, f.CanResend())
}

func TestResendFailureKeepsButtonEnabled(t *testing.T) {
	f := loggedIn(t, &fakeAPI{resendErr: errors.New("network down")})
	for i := 0; i < ResendCooldown; i++ {
		f.Tick()
	}

	_, err := f.Resend(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Please try again shortly.", f.Error())
	assert.True(t, f.CanResend())
}

func TestTickStopsAtZero(t *testing.T) {
	f := loggedIn(t, &fakeAPI{})
	for i := 0; i < ResendCooldown+5; i++ {
		f.Tick()
	}
	assert.Equal(t, 0, f.Cooldown())
}

func TestChangeEmail(t *testing.T) {
	f := loggedIn(t, &fakeAPI{})
	f.ChangeEmail()
	assert.Equal(t, StepCreds, f.Step())
	assert.False(t, f.CanResend())
}
