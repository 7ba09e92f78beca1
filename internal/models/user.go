package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt cost used for stored passwords.
const PasswordCost = 10

// User represents a registered chat member. The OTP and lockout fields hold
// the outstanding login challenge and are never serialised to clients.
type User struct {
	ID               primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Email            string               `bson:"email" json:"email"`
	FullName         string               `bson:"fullName" json:"fullName"`
	Password         string               `bson:"-" json:"-"`
	PasswordHash     string               `bson:"password" json:"-"`
	ProfilePic       string               `bson:"profilePic" json:"profilePic"`
	Bio              string               `bson:"bio" json:"bio"`
	NativeLanguage   string               `bson:"nativeLanguage" json:"nativeLanguage"`
	LearningLanguage string               `bson:"learningLanguage" json:"learningLanguage"`
	Location         string               `bson:"location" json:"location"`
	IsOnboarded      bool                 `bson:"isOnboarded" json:"isOnboarded"`
	EmailVerified    bool                 `bson:"emailVerified" json:"emailVerified"`
	Friends          []primitive.ObjectID `bson:"friends" json:"friends"`

	OTPHash       string    `bson:"otpHash,omitempty" json:"-"`
	OTPExpiresAt  time.Time `bson:"otpExpiresAt,omitempty" json:"-"`
	OTPAttempts   int       `bson:"otpAttempts,omitempty" json:"-"`
	OTPLastSentAt time.Time `bson:"otpLastSentAt,omitempty" json:"-"`
	LockUntil     time.Time `bson:"lockUntil,omitempty" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Profile is the set of fields written by onboarding.
type Profile struct {
	FullName         string `json:"fullName"`
	Bio              string `json:"bio"`
	NativeLanguage   string `json:"nativeLanguage"`
	LearningLanguage string `json:"learningLanguage"`
	Location         string `json:"location"`
	ProfilePic       string `json:"profilePic,omitempty"`
}

// Challenge is a freshly issued OTP as persisted on the user record.
type Challenge struct {
	Hash      string
	ExpiresAt time.Time
	SentAt    time.Time
}

var errNoPassword = errors.New("password is required")

// BeforeInsert hashes the transient Password into PasswordHash and stamps
// timestamps. It must run before every insert.
func (u *User) BeforeInsert(now time.Time) error {
	if u.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), PasswordCost)
		if err != nil {
			return err
		}
		u.PasswordHash = string(hash)
		u.Password = ""
	}
	if u.PasswordHash == "" {
		return errNoPassword
	}
	if u.Friends == nil {
		u.Friends = []primitive.ObjectID{}
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

// MatchPassword compares a candidate password with the stored hash.
func (u *User) MatchPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// HasChallenge reports whether an OTP challenge is outstanding.
func (u User) HasChallenge() bool {
	return u.OTPHash != "" && !u.OTPExpiresAt.IsZero()
}

// Locked reports whether the account is locked at now.
func (u User) Locked(now time.Time) bool {
	return !u.LockUntil.IsZero() && now.Before(u.LockUntil)
}
