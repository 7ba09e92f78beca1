package store

import (
	"context"
	"sync"
	"time"

	"chatauth/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Memory is a process-local Users implementation for development and tests.
type Memory struct {
	mu   sync.Mutex
	byID map[string]*models.User
	now  func() time.Time
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{byID: map[string]*models.User{}, now: time.Now}
}

func (m *Memory) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return ErrDuplicateEmail
		}
	}
	if err := u.BeforeInsert(m.now().UTC()); err != nil {
		return err
	}
	u.ID = primitive.NewObjectID()
	cp := *u
	m.byID[u.ID.Hex()] = &cp
	return nil
}

func (m *Memory) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) FindWithSecrets(_ context.Context, id string) (*models.User, error) {
	u, ok := m.Snapshot(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *Memory) Get(_ context.Context, id string) (*models.User, error) {
	u, ok := m.Snapshot(id)
	if !ok {
		return nil, ErrNotFound
	}
	return publicCopy(u), nil
}

func (m *Memory) SetChallenge(_ context.Context, id string, c models.Challenge) error {
	return m.mutate(id, func(u *models.User) {
		u.OTPHash = c.Hash
		u.OTPExpiresAt = c.ExpiresAt
		u.OTPAttempts = 0
		u.OTPLastSentAt = c.SentAt
	})
}

func (m *Memory) IncrementAttempts(_ context.Context, id, hash string, now time.Time) (int, error) {
	var n int
	err := m.mutateIf(id, hash, now, func(u *models.User) {
		u.OTPAttempts++
		n = u.OTPAttempts
	})
	return n, err
}

func (m *Memory) Lock(_ context.Context, id string, until time.Time) error {
	return m.mutate(id, func(u *models.User) { u.LockUntil = until })
}

func (m *Memory) CompleteChallenge(ctx context.Context, id, hash string, now time.Time) (*models.User, error) {
	err := m.mutateIf(id, hash, now, func(u *models.User) {
		u.OTPHash = ""
		u.OTPExpiresAt = time.Time{}
		u.OTPAttempts = 0
		u.LockUntil = time.Time{}
		u.EmailVerified = true
	})
	if err != nil {
		return nil, err
	}
	return m.Get(ctx, id)
}

func (m *Memory) UpdateProfile(ctx context.Context, id string, p models.Profile) (*models.User, error) {
	err := m.mutate(id, func(u *models.User) {
		u.FullName = p.FullName
		u.Bio = p.Bio
		u.NativeLanguage = p.NativeLanguage
		u.LearningLanguage = p.LearningLanguage
		u.Location = p.Location
		if p.ProfilePic != "" {
			u.ProfilePic = p.ProfilePic
		}
		u.IsOnboarded = true
	})
	if err != nil {
		return nil, err
	}
	return m.Get(ctx, id)
}

// Snapshot returns a copy of the stored record, secrets included.
func (m *Memory) Snapshot(id string) (models.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return models.User{}, false
	}
	return *u, true
}

func (m *Memory) mutate(id string, fn func(*models.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	fn(u)
	u.UpdatedAt = m.now().UTC()
	return nil
}

// mutateIf applies fn only while the record holds hash and is unlocked at now.
func (m *Memory) mutateIf(id, hash string, now time.Time, fn func(*models.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return ErrStale
	}
	if u.OTPHash != hash || u.Locked(now) {
		return ErrStale
	}
	fn(u)
	u.UpdatedAt = m.now().UTC()
	return nil
}

func publicCopy(u models.User) *models.User {
	u.PasswordHash = ""
	u.OTPHash = ""
	u.OTPExpiresAt = time.Time{}
	u.OTPAttempts = 0
	u.OTPLastSentAt = time.Time{}
	u.LockUntil = time.Time{}
	return &u
}
