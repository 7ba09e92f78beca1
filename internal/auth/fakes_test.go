package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"chatauth/internal/guard"
	"chatauth/internal/mailer"
	"chatauth/internal/models"
	"chatauth/internal/store"
)

// memUsers wraps the in-memory store so tests can inject store failures,
// pause after secret reads and read raw records.
type memUsers struct {
	*store.Memory
	failErr   error
	afterRead func()
}

func newMemUsers() *memUsers {
	return &memUsers{Memory: store.NewMemory()}
}

func (m *memUsers) Create(ctx context.Context, u *models.User) error {
	if m.failErr != nil {
		return m.failErr
	}
	return m.Memory.Create(ctx, u)
}

func (m *memUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.failErr != nil {
		return nil, m.failErr
	}
	return m.Memory.FindByEmail(ctx, email)
}

func (m *memUsers) FindWithSecrets(ctx context.Context, id string) (*models.User, error) {
	u, err := m.Memory.FindWithSecrets(ctx, id)
	if m.afterRead != nil {
		m.afterRead()
	}
	return u, err
}

// pauseFirstRead blocks the first secret read until the returned resume
// func is called; paused is closed once that read is held.
func (m *memUsers) pauseFirstRead() (paused <-chan struct{}, resume func()) {
	held := make(chan struct{})
	release := make(chan struct{})
	var first atomic.Bool
	m.afterRead = func() {
		if first.CompareAndSwap(false, true) {
			close(held)
			<-release
		}
	}
	return held, func() { close(release) }
}

func (m *memUsers) raw(id string) models.User {
	u, _ := m.Snapshot(id)
	return u
}

// captureMailer records delivered codes and can be told to fail.
type captureMailer struct {
	mu   sync.Mutex
	sent []mailer.LoginCode
	fail bool
}

func (c *captureMailer) SendLoginCode(_ context.Context, msg mailer.LoginCode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("smtp down")
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *captureMailer) lastCode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		return ""
	}
	return c.sent[len(c.sent)-1].Code
}

type recordingChat struct {
	mu       sync.Mutex
	profiles []ChatProfile
	err      error
}

func (r *recordingChat) UpsertUser(_ context.Context, p ChatProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles = append(r.profiles, p)
	return r.err
}

// busyGuard always reports the key as held.
type busyGuard struct{ err error }

func (b busyGuard) Acquire(context.Context, string) (func(), error) { return nil, b.err }

// clock is a settable time source.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func errGuardBusy() error { return guard.ErrBusy }
