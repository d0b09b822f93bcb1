package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/coursekit/pkg/sanitizer"
	"github.com/dmitrymomot/coursekit/pkg/token"
)

// CollectionName is the collection users are stored in.
const CollectionName = "users"

var withoutPassword = bson.D{{Key: "password", Value: 0}}

// Store persists users. Reads exclude the password hash unless the method
// name says otherwise.
type Store struct {
	coll *mongo.Collection
	now  func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore returns a store backed by the users collection of db.
func NewStore(db *mongo.Database, opts ...StoreOption) *Store {
	s := &Store{coll: db.Collection(CollectionName), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureIndexes creates the unique email index and the reset token lookup index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("email_unique").SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "resetPasswordToken", Value: 1}},
			Options: options.Index().
				SetName("reset_token").
				SetPartialFilterExpression(bson.D{{Key: "resetPasswordToken", Value: bson.D{{Key: "$gt", Value: ""}}}}),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	return nil
}

// Create validates and inserts a new user, hashing its password.
// It returns ErrEmailTaken if the email is already registered.
func (s *Store) Create(ctx context.Context, u *User) error {
	if !u.ID.IsZero() {
		return s.Save(ctx, u)
	}
	if err := u.Validate(); err != nil {
		return err
	}

	doc := *u
	if err := doc.BeforeSave(s.now()); err != nil {
		return err
	}
	doc.ID = bson.NewObjectID()

	if _, err := s.coll.InsertOne(ctx, &doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	*u = doc
	return nil
}

// Save validates and writes an existing user. The stored password is only
// replaced when it was changed with SetPassword, so users read without their
// password can be saved safely.
func (s *Store) Save(ctx context.Context, u *User) error {
	if u.ID.IsZero() {
		return s.Create(ctx, u)
	}
	if err := u.Validate(); err != nil {
		return err
	}

	doc := *u
	hashing := doc.PasswordModified()
	if err := doc.BeforeSave(s.now()); err != nil {
		return err
	}
	set, err := setDocument(&doc, hashing)
	if err != nil {
		return err
	}

	res, err := s.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: doc.ID}}, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to save user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	*u = doc
	return nil
}

func setDocument(u *User, withPassword bool) (bson.M, error) {
	raw, err := bson.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("failed to encode user: %w", err)
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to encode user: %w", err)
	}
	delete(doc, "_id")
	if !withPassword {
		delete(doc, "password")
	}
	return doc, nil
}

// FindByID returns the user without its password.
func (s *Store) FindByID(ctx context.Context, id bson.ObjectID) (*User, error) {
	return s.findOne(ctx, bson.D{{Key: "_id", Value: id}}, false)
}

// FindByEmail returns the user without its password.
func (s *Store) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.findOne(ctx, bson.D{{Key: "email", Value: sanitizer.NormalizeEmail(email)}}, false)
}

// FindByEmailWithPassword returns the user including the password hash, for
// ComparePassword.
func (s *Store) FindByEmailWithPassword(ctx context.Context, email string) (*User, error) {
	return s.findOne(ctx, bson.D{{Key: "email", Value: sanitizer.NormalizeEmail(email)}}, true)
}

// FindByResetToken returns the user holding the raw reset token, provided the
// token has not expired. The password is excluded.
func (s *Store) FindByResetToken(ctx context.Context, raw string) (*User, error) {
	if raw == "" {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.D{
		{Key: "resetPasswordToken", Value: token.Hash(raw)},
		{Key: "resetPasswordExpiry", Value: bson.D{{Key: "$gt", Value: s.now()}}},
	}, false)
}

// UpdateLastActive sets lastActive without validating or rewriting the rest
// of the document.
func (s *Store) UpdateLastActive(ctx context.Context, id bson.ObjectID) (time.Time, error) {
	now := s.now().UTC().Truncate(time.Millisecond)
	res, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "lastActive", Value: now}}}},
	)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to update last active: %w", err)
	}
	if res.MatchedCount == 0 {
		return time.Time{}, ErrNotFound
	}
	return now, nil
}

func (s *Store) findOne(ctx context.Context, filter bson.D, withPassword bool) (*User, error) {
	opts := options.FindOne()
	if !withPassword {
		opts.SetProjection(withoutPassword)
	}

	var u User
	err := s.coll.FindOne(ctx, filter, opts).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &u, nil
}
