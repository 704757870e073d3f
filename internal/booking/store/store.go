// Package store provides schemaless document storage over named collections.
package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Document is one record of a collection: field names mapped to JSON compatible values.
type Document = map[string]any

// DocumentStore abstracts the storage engine, allowing for different implementations (e.g., in-memory, MongoDB).
type DocumentStore interface {
	// CollectionExists reports whether a collection with the given name exists.
	// Every call queries the engine; the answer is never cached.
	CollectionExists(ctx context.Context, name string) (bool, error)

	// Collection returns a handle for the named collection without checking that it exists.
	Collection(name string) Collection

	// Ping checks that the engine is reachable.
	Ping(ctx context.Context) error
}

// Collection is a handle for one named collection.
type Collection interface {
	// Name returns the collection name.
	Name() string

	// FindAll returns every document in store-defined order.
	// Returns an empty slice if the collection holds no documents.
	FindAll(ctx context.Context) ([]Document, error)

	// FindTop returns at most limit documents sorted by field, descending.
	FindTop(ctx context.Context, field string, limit int64) ([]Document, error)

	// FindByID retrieves a single document.
	// Returns ErrDocumentNotFound if no document has the given identifier.
	FindByID(ctx context.Context, id primitive.ObjectID) (Document, error)

	// Insert stores a new document and returns the identifier assigned to it.
	// Any identifier supplied in doc is ignored.
	Insert(ctx context.Context, doc Document) (primitive.ObjectID, error)

	// UpdateByID sets the supplied fields, leaving the others untouched.
	// Returns ErrDocumentNotFound if no document has the given identifier.
	UpdateByID(ctx context.Context, id primitive.ObjectID, fields Document) error

	// ReplaceByID swaps every field of the document for doc, keeping its identifier.
	// Returns ErrDocumentNotFound if no document has the given identifier.
	ReplaceByID(ctx context.Context, id primitive.ObjectID, doc Document) error

	// DeleteByID removes a document permanently.
	// Returns ErrDocumentNotFound if no document has the given identifier.
	DeleteByID(ctx context.Context, id primitive.ObjectID) error

	// Count returns the number of documents in the collection.
	Count(ctx context.Context) (int64, error)

	// Reserve decrements a numeric field by n unless the result would be negative.
	// A negative n gives the amount back.
	// Returns ErrDocumentNotFound or ErrInsufficientSpaces.
	Reserve(ctx context.Context, id primitive.ObjectID, field string, n int) error
}
