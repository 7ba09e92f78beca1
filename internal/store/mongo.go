package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chatauth/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// publicProjection hides the password hash and challenge state.
var publicProjection = bson.M{
	"password":      0,
	"otpHash":       0,
	"otpExpiresAt":  0,
	"otpAttempts":   0,
	"otpLastSentAt": 0,
	"lockUntil":     0,
}

// Mongo implements Users on a MongoDB collection.
type Mongo struct {
	col *mongo.Collection
	now func() time.Time
}

// NewMongo returns a store over col. EnsureUserIndexes should already have
// run so duplicate emails are rejected.
func NewMongo(col *mongo.Collection) *Mongo {
	return &Mongo{col: col, now: time.Now}
}

// Create hashes the password and inserts u, setting u.ID.
func (m *Mongo) Create(ctx context.Context, u *models.User) error {
	if err := u.BeforeInsert(m.now().UTC()); err != nil {
		return fmt.Errorf("prepare user: %w", err)
	}
	// Insert the user; the unique email index rejects duplicates.
	res, err := m.col.InsertOne(ctx, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("error inserting user: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = id
	}
	return nil
}

// FindByEmail returns the full record, password hash included.
func (m *Mongo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := m.col.FindOne(ctx, bson.M{"email": email}).Decode(&u); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

// FindWithSecrets returns the full record by id.
func (m *Mongo) FindWithSecrets(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var u models.User
	if err := m.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&u); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

// Get returns the record by id without password or OTP fields.
func (m *Mongo) Get(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var u models.User
	opts := options.FindOne().SetProjection(publicProjection)
	if err := m.col.FindOne(ctx, bson.M{"_id": oid}, opts).Decode(&u); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

// SetChallenge replaces the challenge and resets the attempt counter.
func (m *Mongo) SetChallenge(ctx context.Context, id string, c models.Challenge) error {
	return m.updateOne(ctx, id, bson.M{
		"$set": bson.M{
			"otpHash":       c.Hash,
			"otpExpiresAt":  c.ExpiresAt,
			"otpAttempts":   0,
			"otpLastSentAt": c.SentAt,
			"updatedAt":     m.now().UTC(),
		},
	})
}

// IncrementAttempts bumps otpAttempts with $inc so concurrent wrong codes
// each observe a distinct count.
func (m *Mongo) IncrementAttempts(ctx context.Context, id, hash string, now time.Time) (int, error) {
	filter, err := challengeFilter(id, hash, now)
	if err != nil {
		return 0, err
	}
	var out struct {
		Attempts int `bson:"otpAttempts"`
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"otpAttempts": 1})
	err = m.col.FindOneAndUpdate(ctx,
		filter,
		bson.M{"$inc": bson.M{"otpAttempts": 1}, "$set": bson.M{"updatedAt": m.now().UTC()}},
		opts,
	).Decode(&out)
	if err != nil {
		return 0, mapStale(err)
	}
	return out.Attempts, nil
}

// Lock sets lockUntil.
func (m *Mongo) Lock(ctx context.Context, id string, until time.Time) error {
	return m.updateOne(ctx, id, bson.M{
		"$set": bson.M{"lockUntil": until, "updatedAt": m.now().UTC()},
	})
}

// CompleteChallenge clears the challenge only if it is still the one the
// caller verified against and no lock was set in the meantime.
func (m *Mongo) CompleteChallenge(ctx context.Context, id, hash string, now time.Time) (*models.User, error) {
	filter, err := challengeFilter(id, hash, now)
	if err != nil {
		return nil, err
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(publicProjection)
	var u models.User
	err = m.col.FindOneAndUpdate(ctx, filter, bson.M{
		"$set": bson.M{
			"otpAttempts":   0,
			"emailVerified": true,
			"updatedAt":     m.now().UTC(),
		},
		"$unset": bson.M{
			"otpHash":      "",
			"otpExpiresAt": "",
			"lockUntil":    "",
		},
	}, opts).Decode(&u)
	if err != nil {
		return nil, mapStale(err)
	}
	return &u, nil
}

// UpdateProfile writes the profile fields and marks the user onboarded.
// An empty ProfilePic keeps the current avatar.
func (m *Mongo) UpdateProfile(ctx context.Context, id string, p models.Profile) (*models.User, error) {
	set := bson.M{
		"fullName":         p.FullName,
		"bio":              p.Bio,
		"nativeLanguage":   p.NativeLanguage,
		"learningLanguage": p.LearningLanguage,
		"location":         p.Location,
		"isOnboarded":      true,
		"updatedAt":        m.now().UTC(),
	}
	if p.ProfilePic != "" {
		set["profilePic"] = p.ProfilePic
	}
	return m.findAndUpdate(ctx, id, bson.M{"$set": set})
}

func (m *Mongo) updateOne(ctx context.Context, id string, update bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := m.col.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("error updating user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) findAndUpdate(ctx context.Context, id string, update bson.M) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(publicProjection)
	var u models.User
	if err := m.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&u); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

// challengeFilter matches id only while it still holds hash and lockUntil is
// absent or not after now.
func challengeFilter(id, hash string, now time.Time) (bson.M, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return bson.M{
		"_id":       oid,
		"otpHash":   hash,
		"lockUntil": bson.M{"$not": bson.M{"$gt": now}},
	}, nil
}

func mapStale(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrStale
	}
	return fmt.Errorf("error updating user: %w", err)
}

func mapErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return fmt.Errorf("error retrieving user: %w", err)
}
