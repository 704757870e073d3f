package store

import (
	"context"
	"errors"
	"fmt"

	bookingerrors "github.com/abgdnv/lessonbooking/internal/booking/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoStore implements DocumentStore on top of a MongoDB database.
// The client is shared by all requests; the driver is safe for concurrent use.
type MongoStore struct {
	db *mongo.Database
}

// NewMongoStore creates a new instance of MongoStore for the given database.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

func (s *MongoStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	names, err := s.db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return false, fmt.Errorf("list collections: %w: %w", bookingerrors.ErrStoreUnavailable, err)
	}
	return len(names) > 0, nil
}

func (s *MongoStore) Collection(name string) Collection {
	return &mongoCollection{coll: s.db.Collection(name)}
}

func (s *MongoStore) Ping(ctx context.Context) error {
	if err := s.db.Client().Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("%w: %w", bookingerrors.ErrStoreUnavailable, err)
	}
	return nil
}

type mongoCollection struct {
	coll *mongo.Collection
}

func (c *mongoCollection) Name() string {
	return c.coll.Name()
}

func (c *mongoCollection) FindAll(ctx context.Context) ([]Document, error) {
	return c.find(ctx, bson.D{}, options.Find())
}

func (c *mongoCollection) FindTop(ctx context.Context, field string, limit int64) ([]Document, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: field, Value: -1}}).
		SetLimit(limit)
	return c.find(ctx, bson.D{}, opts)
}

func (c *mongoCollection) find(ctx context.Context, filter bson.D, opts *options.FindOptions) ([]Document, error) {
	cursor, err := c.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", c.Name(), err)
	}
	docs := make([]Document, 0)
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode documents of %s: %w", c.Name(), err)
	}
	return docs, nil
}

func (c *mongoCollection) FindByID(ctx context.Context, id primitive.ObjectID) (Document, error) {
	var doc Document
	err := c.coll.FindOne(ctx, bson.D{{Key: IDField, Value: id}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, bookingerrors.ErrDocumentNotFound
	} else if err != nil {
		return nil, fmt.Errorf("find %s in %s: %w", id.Hex(), c.Name(), err)
	}
	return doc, nil
}

func (c *mongoCollection) Insert(ctx context.Context, doc Document) (primitive.ObjectID, error) {
	res, err := c.coll.InsertOne(ctx, StripID(doc))
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert into %s: %w", c.Name(), err)
	}
	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("insert into %s: unexpected identifier type %T", c.Name(), res.InsertedID)
	}
	return id, nil
}

func (c *mongoCollection) UpdateByID(ctx context.Context, id primitive.ObjectID, fields Document) error {
	res, err := c.coll.UpdateByID(ctx, id, bson.D{{Key: "$set", Value: StripID(fields)}})
	if err != nil {
		return fmt.Errorf("update %s in %s: %w", id.Hex(), c.Name(), err)
	}
	if res.MatchedCount == 0 {
		return bookingerrors.ErrDocumentNotFound
	}
	return nil
}

func (c *mongoCollection) ReplaceByID(ctx context.Context, id primitive.ObjectID, doc Document) error {
	res, err := c.coll.ReplaceOne(ctx, bson.D{{Key: IDField, Value: id}}, StripID(doc))
	if err != nil {
		return fmt.Errorf("replace %s in %s: %w", id.Hex(), c.Name(), err)
	}
	if res.MatchedCount == 0 {
		return bookingerrors.ErrDocumentNotFound
	}
	return nil
}

func (c *mongoCollection) DeleteByID(ctx context.Context, id primitive.ObjectID) error {
	res, err := c.coll.DeleteOne(ctx, bson.D{{Key: IDField, Value: id}})
	if err != nil {
		return fmt.Errorf("delete %s from %s: %w", id.Hex(), c.Name(), err)
	}
	if res.DeletedCount == 0 {
		return bookingerrors.ErrDocumentNotFound
	}
	return nil
}

func (c *mongoCollection) Count(ctx context.Context) (int64, error) {
	n, err := c.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", c.Name(), err)
	}
	return n, nil
}

// Reserve uses a conditional $inc so that concurrent reservations cannot drive the field below zero.
func (c *mongoCollection) Reserve(ctx context.Context, id primitive.ObjectID, field string, n int) error {
	filter := bson.D{
		{Key: IDField, Value: id},
		{Key: field, Value: bson.D{{Key: "$gte", Value: n}}},
	}
	update := bson.D{{Key: "$inc", Value: bson.D{{Key: field, Value: -n}}}}
	res, err := c.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("reserve %s in %s: %w", id.Hex(), c.Name(), err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	if _, err := c.FindByID(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("lesson %s: %w", id.Hex(), bookingerrors.ErrInsufficientSpaces)
}
