package course

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// CollectionName is the collection courses are stored in.
const CollectionName = "courses"

// Store persists courses.
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

// NewStore returns a store backed by the courses collection of db.
func NewStore(db *mongo.Database, opts ...StoreOption) *Store {
	s := &Store{coll: db.Collection(CollectionName), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureIndexes creates the indexes the queries rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "instructor", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("instructor_created"),
		},
		{
			Keys:    bson.D{{Key: "category", Value: 1}, {Key: "isPublished", Value: 1}},
			Options: options.Index().SetName("category_published"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create course indexes: %w", err)
	}
	return nil
}

// Save validates c, runs its save hooks and upserts it. A course without an
// ID is assigned one. c reflects the stored document only if the write succeeds.
func (s *Store) Save(ctx context.Context, c *Course) error {
	if err := c.Validate(); err != nil {
		return err
	}
	doc := *c
	doc.BeforeSave(s.now())
	if doc.ID.IsZero() {
		doc.ID = bson.NewObjectID()
	}

	_, err := s.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: doc.ID}}, &doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save course: %w", err)
	}
	*c = doc
	return nil
}

// FindByID returns the course with the given id or ErrNotFound.
func (s *Store) FindByID(ctx context.Context, id bson.ObjectID) (*Course, error) {
	var c Course
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find course: %w", err)
	}
	return &c, nil
}

// FindByInstructor returns the instructor's courses, newest first.
func (s *Store) FindByInstructor(ctx context.Context, instructorID bson.ObjectID) ([]Course, error) {
	cur, err := s.coll.Find(ctx,
		bson.D{{Key: "instructor", Value: instructorID}},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query courses: %w", err)
	}

	courses := []Course{}
	if err := cur.All(ctx, &courses); err != nil {
		return nil, fmt.Errorf("failed to decode courses: %w", err)
	}
	return courses, nil
}

// Delete removes the course with the given id or returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, id bson.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
