// Package auth implements signup, password login gated by an emailed
// one-time code, and onboarding.
package auth

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"chatauth/internal/guard"
	"chatauth/internal/mailer"
	"chatauth/internal/models"
	"chatauth/internal/otpcode"
	"chatauth/internal/store"
	"chatauth/internal/token"
	"chatauth/internal/util"

	"go.uber.org/zap"
)

const (
	OTPTTL         = 10 * time.Minute
	AttemptLimit   = 5
	ResendCooldown = 30 * time.Second
	LockDuration   = 15 * time.Minute

	StatusOTPRequired = "OTP_REQUIRED"

	minPasswordLen = 6
	avatarCount    = 100
	avatarURL      = "https://avatar.iran.liara.run/public/%d.png"
)

// SignupInput is the signup request body.
type SignupInput struct {
	Email    string
	Password string
	FullName string
}

// LoginResult is returned when the password check passes and a code has been
// issued.
type LoginResult struct {
	Status       string `json:"status"`
	OTPToken     string `json:"otpToken"`
	Email        string `json:"email"`
	ExpiresInMin int    `json:"expiresInMin"`
	EmailSent    bool   `json:"emailSent"`
}

// Session is the outcome of a successful code verification.
type Session struct {
	User        *models.User
	AccessToken string
}

// ResendResult reports a regenerated code. EmailSent is false when the code
// was stored but delivery failed.
type ResendResult struct {
	Message   string `json:"message"`
	EmailSent bool   `json:"emailSent"`
}

// Service owns the login/OTP state machine.
type Service struct {
	users  store.Users
	codec  otpcode.Codec
	tokens *token.Issuer
	mail   Mailer
	chat   ChatDirectory
	guard  guard.Guard
	log    *zap.Logger

	now    func() time.Time
	avatar func() int
}

// Deps are the collaborators of a Service. Chat and Guard are optional.
type Deps struct {
	Users  store.Users
	Codec  otpcode.Codec
	Tokens *token.Issuer
	Mail   Mailer
	Chat   ChatDirectory
	Guard  guard.Guard
	Log    *zap.Logger
	Now    func() time.Time
}

// NewService builds a Service from d. A nil Guard disables serialisation,
// a nil Log discards output and a nil Now uses time.Now.
func NewService(d Deps) *Service {
	s := &Service{
		users:  d.Users,
		codec:  d.Codec,
		tokens: d.Tokens,
		mail:   d.Mail,
		chat:   d.Chat,
		guard:  d.Guard,
		log:    d.Log,
		now:    d.Now,
		avatar: func() int { return rand.IntN(avatarCount) + 1 },
	}
	if s.guard == nil {
		s.guard = guard.Nop{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Signup creates an unverified, not-onboarded user. It never issues a
// session: the first login must go through the OTP step.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	if in.Email == "" || in.Password == "" || in.FullName == "" {
		return nil, newErr(Validation, "All fields are required")
	}
	if len(in.Password) < minPasswordLen {
		return nil, newErr(Validation, "Password must be at least 6 characters")
	}
	email := util.NormalizeEmail(in.Email)
	if !util.ValidateEmail(email) {
		return nil, newErr(Validation, "Invalid email format")
	}

	dupMsg := "Email already exists, please use a different one"
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, newErr(Conflict, dupMsg)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, s.fail("signup lookup", err)
	}

	u := &models.User{
		Email:      email,
		FullName:   in.FullName,
		Password:   in.Password,
		ProfilePic: fmt.Sprintf(avatarURL, s.avatar()),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, newErr(Conflict, dupMsg)
		}
		return nil, s.fail("signup create", err)
	}
	s.syncChat(ctx, u)
	s.log.Info("user signed up", zap.String("user_id", u.ID.Hex()))
	return u, nil
}

// Login checks the password and, on success, issues a fresh OTP challenge.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, newErr(Validation, "All fields are required")
	}
	invalid := newErr(InvalidCredentials, "Invalid email or password")

	u, err := s.users.FindByEmail(ctx, util.NormalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, s.fail("login lookup", err)
	}
	if u.Locked(s.now()) {
		return nil, newErr(Locked, "Account temporarily locked. Try later.")
	}
	if !u.MatchPassword(password) {
		return nil, invalid
	}

	id := u.ID.Hex()
	sent, err := s.issueChallenge(ctx, u)
	if err != nil {
		return nil, err
	}
	otpToken, err := s.tokens.IssueOTPSession(id)
	if err != nil {
		return nil, s.fail("sign otp token", err)
	}
	return &LoginResult{
		Status:       StatusOTPRequired,
		OTPToken:     otpToken,
		Email:        util.MaskEmail(u.Email),
		ExpiresInMin: int(OTPTTL / time.Minute),
		EmailSent:    sent,
	}, nil
}

// VerifyOTP completes the challenge bound to otpToken.
func (s *Service) VerifyOTP(ctx context.Context, code, otpToken string) (*Session, error) {
	if code == "" || otpToken == "" {
		return nil, newErr(Validation, "Missing code/token")
	}
	sess, err := s.otpSession(otpToken)
	if err != nil {
		return nil, err
	}
	id := sess.Subject

	release, err := s.guard.Acquire(ctx, "verify:"+id)
	switch {
	case errors.Is(err, guard.ErrBusy):
		return nil, &Error{Kind: TooSoon, Message: "Verification already in progress. Please retry.", Wait: 1}
	case err != nil:
		s.log.Warn("verify guard unavailable", zap.String("user_id", id), zap.Error(err))
	default:
		defer release()
	}

	u, err := s.users.FindWithSecrets(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, newErr(NoActiveChallenge, "No active verification")
	}
	if err != nil {
		return nil, s.fail("verify lookup", err)
	}
	if !u.HasChallenge() {
		return nil, newErr(NoActiveChallenge, "No active verification")
	}

	now := s.now()
	locked := newErr(Locked, "Too many attempts. Temporarily locked.")
	if u.Locked(now) {
		return nil, locked
	}
	if now.After(u.OTPExpiresAt) {
		return nil, newErr(Expired, "Code expired")
	}
	if u.OTPAttempts >= AttemptLimit {
		if err := s.users.Lock(ctx, id, now.Add(LockDuration)); err != nil {
			return nil, s.fail("lock user", err)
		}
		return nil, locked
	}

	if !s.codec.Verify(code, u.OTPHash) {
		attempts, err := s.users.IncrementAttempts(ctx, id, u.OTPHash, now)
		if errors.Is(err, store.ErrStale) {
			return nil, s.staleChallenge(ctx, id)
		}
		if err != nil {
			return nil, s.fail("increment attempts", err)
		}
		if attempts >= AttemptLimit {
			if err := s.users.Lock(ctx, id, now.Add(LockDuration)); err != nil {
				return nil, s.fail("lock user", err)
			}
			s.log.Warn("otp attempt limit reached", zap.String("user_id", id))
			return nil, locked
		}
		return nil, newErr(InvalidCode, "Invalid code")
	}

	user, err := s.users.CompleteChallenge(ctx, id, u.OTPHash, now)
	if errors.Is(err, store.ErrStale) {
		return nil, s.staleChallenge(ctx, id)
	}
	if err != nil {
		return nil, s.fail("complete challenge", err)
	}
	access, err := s.tokens.IssueAccess(id)
	if err != nil {
		return nil, s.fail("sign access token", err)
	}
	s.log.Info("otp verified", zap.String("user_id", id))
	return &Session{User: user, AccessToken: access}, nil
}

// staleChallenge explains a conditional write that matched nothing: the
// account was locked or the challenge replaced after it was read.
func (s *Service) staleChallenge(ctx context.Context, id string) error {
	u, err := s.users.FindWithSecrets(ctx, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return s.fail("verify reload", err)
	}
	if err == nil && u.Locked(s.now()) {
		return newErr(Locked, "Too many attempts. Temporarily locked.")
	}
	return newErr(NoActiveChallenge, "Verification changed. Please retry with the latest code.")
}

// ResendOTP regenerates the code for the challenge bound to otpToken.
func (s *Service) ResendOTP(ctx context.Context, otpToken string) (*ResendResult, error) {
	if otpToken == "" {
		return nil, newErr(Validation, "Missing otpToken")
	}
	sess, err := s.otpSession(otpToken)
	if err != nil {
		return nil, err
	}
	u, err := s.users.FindWithSecrets(ctx, sess.Subject)
	if errors.Is(err, store.ErrNotFound) {
		return nil, newErr(InvalidToken, "Invalid user")
	}
	if err != nil {
		return nil, s.fail("resend lookup", err)
	}

	now := s.now()
	if u.Locked(now) {
		return nil, newErr(Locked, "Too many attempts. Temporarily locked.")
	}
	if !u.OTPLastSentAt.IsZero() {
		if elapsed := now.Sub(u.OTPLastSentAt); elapsed < ResendCooldown {
			wait := int(math.Ceil((ResendCooldown - elapsed).Seconds()))
			return nil, &Error{
				Kind:    TooSoon,
				Message: fmt.Sprintf("Please wait %ds before resending.", wait),
				Wait:    wait,
			}
		}
	}

	sent, err := s.issueChallenge(ctx, u)
	if err != nil {
		return nil, err
	}
	if !sent {
		return &ResendResult{Message: "OTP regenerated but email send failed; try again shortly."}, nil
	}
	return &ResendResult{Message: "OTP resent", EmailSent: true}, nil
}

// Onboard fills in the profile and marks the user onboarded.
func (s *Service) Onboard(ctx context.Context, userID string, p models.Profile) (*models.User, error) {
	p = trimProfile(p)
	if missing := missingProfileFields(p); len(missing) > 0 {
		return nil, &Error{Kind: Validation, Message: "All fields are required", Missing: missing}
	}
	u, err := s.users.UpdateProfile(ctx, userID, p)
	if errors.Is(err, store.ErrNotFound) {
		return nil, newErr(NotFound, "User not found")
	}
	if err != nil {
		return nil, s.fail("onboard update", err)
	}
	s.syncChat(ctx, u)
	return u, nil
}

// Me loads the public record of an authenticated user.
func (s *Service) Me(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.users.Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, newErr(NotFound, "User not found")
	}
	if err != nil {
		return nil, s.fail("load user", err)
	}
	return u, nil
}

// Tokens exposes the issuer so the HTTP layer can verify access cookies.
func (s *Service) Tokens() *token.Issuer { return s.tokens }

// issueChallenge commits a fresh code to the store and then tries to deliver
// it. The returned bool reports delivery; a delivery error is not returned.
func (s *Service) issueChallenge(ctx context.Context, u *models.User) (bool, error) {
	code, err := s.codec.Generate(otpcode.DefaultLength)
	if err != nil {
		return false, s.fail("generate otp", err)
	}
	hash, err := s.codec.Hash(code)
	if err != nil {
		return false, s.fail("hash otp", err)
	}
	now := s.now()
	id := u.ID.Hex()
	err = s.users.SetChallenge(ctx, id, models.Challenge{
		Hash:      hash,
		ExpiresAt: now.Add(OTPTTL),
		SentAt:    now,
	})
	if err != nil {
		return false, s.fail("store otp", err)
	}

	err = s.mail.SendLoginCode(ctx, mailer.LoginCode{To: u.Email, Name: u.FullName, Code: code, TTL: OTPTTL})
	if err != nil {
		s.log.Error("sendLoginCode failed", zap.String("user_id", id), zap.Error(err))
		return false, nil
	}
	return true, nil
}

func (s *Service) otpSession(raw string) (token.OTPSession, error) {
	sess, err := s.tokens.VerifyOTPSession(raw)
	switch {
	case errors.Is(err, token.ErrWrongPurpose):
		return sess, newErr(InvalidToken, "Invalid token")
	case err != nil:
		return sess, newErr(SessionExpired, "OTP session expired. Please login again.")
	}
	return sess, nil
}

func (s *Service) syncChat(ctx context.Context, u *models.User) {
	if s.chat == nil {
		return
	}
	err := s.chat.UpsertUser(ctx, ChatProfile{ID: u.ID.Hex(), Name: u.FullName, Image: u.ProfilePic})
	if err != nil {
		s.log.Warn("chat upsert failed", zap.String("user_id", u.ID.Hex()), zap.Error(err))
	}
}

func (s *Service) fail(op string, err error) error {
	s.log.Error(op, zap.Error(err))
	return internalErr(fmt.Errorf("%s: %w", op, err))
}

func trimProfile(p models.Profile) models.Profile {
	p.FullName = strings.TrimSpace(p.FullName)
	p.Bio = strings.TrimSpace(p.Bio)
	p.NativeLanguage = strings.TrimSpace(p.NativeLanguage)
	p.LearningLanguage = strings.TrimSpace(p.LearningLanguage)
	p.Location = strings.TrimSpace(p.Location)
	p.ProfilePic = strings.TrimSpace(p.ProfilePic)
	return p
}

func missingProfileFields(p models.Profile) []string {
	fields := []struct {
		name  string
		value string
	}{
		{"fullName", p.FullName},
		{"bio", p.Bio},
		{"nativeLanguage", p.NativeLanguage},
		{"learningLanguage", p.LearningLanguage},
		{"location", p.Location},
	}
	var missing []string
	for _, f := range fields {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}
