package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Step is the visible stage of the login form.
type Step string

const (
	StepCreds Step = "creds"
	StepOTP   Step = "otp"
)

// ResendCooldown is the client-side countdown in seconds. The server
// enforces its own cooldown independently.
const ResendCooldown = 30

var (
	ErrResendDisabled = errors.New("resend is not available yet")
	ErrIncompleteCode = errors.New("code is incomplete")
)

// API is the subset of Client used by Flow.
type API interface {
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	VerifyOTP(ctx context.Context, code, otpToken string) (*User, error)
	ResendOTP(ctx context.Context, otpToken string) (*ResendResponse, error)
}

// Flow is the login form state machine.
type Flow struct {
	api API

	mu          sync.Mutex
	step        Step
	otpToken    string
	maskedEmail string
	expiresIn   int
	emailSent   bool
	cooldown    int
	resending   bool
	otpErr      string

	Code CodeInput
}

// NewFlow returns a Flow on the credentials step.
func NewFlow(api API) *Flow {
	return &Flow{api: api, step: StepCreds}
}

// Step returns the current step.
func (f *Flow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// MaskedEmail is the delivery target reported by the server.
func (f *Flow) MaskedEmail() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maskedEmail
}

// ExpiresIn is the code lifetime in minutes reported by the server.
func (f *Flow) ExpiresIn() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.expiresIn
}

// EmailSent is false when the server stored a code but could not mail it.
func (f *Flow) EmailSent() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.emailSent
}

// Cooldown is the number of seconds until resend is enabled.
func (f *Flow) Cooldown() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cooldown
}

// Error is the message shown on the OTP step, if any.
func (f *Flow) Error() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.otpErr
}

// SubmitCredentials posts the credentials. On an OTP_REQUIRED response it
// moves to the OTP step, clears the code and starts the resend countdown.
func (f *Flow) SubmitCredentials(ctx context.Context, email, password string) error {
	f.mu.Lock()
	f.otpErr = ""
	f.mu.Unlock()

	res, err := f.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	if res.Status != "OTP_REQUIRED" {
		return fmt.Errorf("unexpected login status %q", res.Status)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.otpToken = res.OTPToken
	f.maskedEmail = res.Email
	f.expiresIn = res.ExpiresInMin
	if f.expiresIn == 0 {
		f.expiresIn = 10
	}
	f.emailSent = res.EmailSent
	f.cooldown = ResendCooldown
	f.Code.Reset()
	f.step = StepOTP
	return nil
}

// SubmitCode verifies the entered code. Incomplete codes are not sent.
func (f *Flow) SubmitCode(ctx context.Context) (*User, error) {
	f.mu.Lock()
	if !f.Code.Complete() {
		f.mu.Unlock()
		return nil, ErrIncompleteCode
	}
	code, tok := f.Code.Value(), f.otpToken
	f.otpErr = ""
	f.mu.Unlock()

	u, err := f.api.VerifyOTP(ctx, code, tok)
	if err != nil {
		f.setError(err, "Invalid code")
		return nil, err
	}
	return u, nil
}

// CanResend reports whether the resend action is enabled.
func (f *Flow) CanResend() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step == StepOTP && f.cooldown == 0 && !f.resending
}

// Resend asks the server for a new code and restarts the countdown.
func (f *Flow) Resend(ctx context.Context) (*ResendResponse, error) {
	f.mu.Lock()
	if f.step != StepOTP || f.cooldown > 0 || f.resending {
		f.mu.Unlock()
		return nil, ErrResendDisabled
	}
	f.resending = true
	tok := f.otpToken
	f.mu.Unlock()

	res, err := f.api.ResendOTP(ctx, tok)

	f.mu.Lock()
	f.resending = false
	if err == nil {
		f.cooldown = ResendCooldown
		f.emailSent = res.EmailSent
	}
	f.mu.Unlock()

	if err != nil {
		f.setError(err, "Please try again shortly.")
		return nil, err
	}
	return res, nil
}

// Tick advances the countdown by one second.
func (f *Flow) Tick() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cooldown > 0 {
		f.cooldown--
	}
}

// ChangeEmail returns to the credentials step.
func (f *Flow) ChangeEmail() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.step = StepCreds
}

func (f *Flow) setError(err error, fallback string) {
	msg := fallback
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		msg = apiErr.Message
	}
	f.mu.Lock()
	f.otpErr = msg
	f.mu.Unlock()
}
