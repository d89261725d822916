package micro

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrRepoNotFound is returned when no document matches an id.
var ErrRepoNotFound = errors.New("repo: not found")

// Document is stored under its ID as `_id`.
type Document interface {
	ID() primitive.ObjectID
}

// MongoRepo stores whole documents of one type in a collection.
type MongoRepo[T Document] struct {
	coll *mongo.Collection
	zero func() T
}

// NewMongoRepo needs a constructor for empty documents to decode into.
func NewMongoRepo[T Document](coll *mongo.Collection, zero func() T) (*MongoRepo[T], error) {
	if coll == nil {
		return nil, errors.New("repo: collection is required")
	}
	if zero == nil {
		return nil, errors.New("repo: document constructor is required")
	}
	return &MongoRepo[T]{coll: coll, zero: zero}, nil
}

func (r *MongoRepo[T]) Insert(ctx context.Context, doc T) error {
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("repo: insert: %w", err)
	}
	return nil
}

// Save replaces the stored document. It never recreates a deleted one.
func (r *MongoRepo[T]) Save(ctx context.Context, doc T) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID()}, doc)
	if err != nil {
		return fmt.Errorf("repo: replace: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrRepoNotFound
	}
	return nil
}

func (r *MongoRepo[T]) FindByID(ctx context.Context, id primitive.ObjectID) (T, error) {
	doc := r.zero()
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(doc)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		var zero T
		return zero, ErrRepoNotFound
	case err != nil:
		var zero T
		return zero, fmt.Errorf("repo: find: %w", err)
	}
	return doc, nil
}

func (r *MongoRepo[T]) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("repo: delete: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrRepoNotFound
	}
	return nil
}

// All returns every document in _id order, which for ObjectIDs is
// insertion order. The result is never nil.
func (r *MongoRepo[T]) All(ctx context.Context) ([]T, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("repo: find: %w", err)
	}
	defer cur.Close(ctx)

	docs := []T{}
	for cur.Next(ctx) {
		doc := r.zero()
		if err := cur.Decode(doc); err != nil {
			return nil, fmt.Errorf("repo: decode: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("repo: cursor: %w", err)
	}
	return docs, nil
}

func (r *MongoRepo[T]) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("repo: count: %w", err)
	}
	return n, nil
}
