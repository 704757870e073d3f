package store

import (
	"fmt"

	bookingerrors "github.com/abgdnv/lessonbooking/internal/booking/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IDField is the name of the identifier field of every document.
const IDField = "_id"

// ParseID converts the wire form of an identifier (24 hex characters) into an ObjectID.
// Returns ErrInvalidID for any other input.
func ParseID(s string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%q: %w", s, bookingerrors.ErrInvalidID)
	}
	return id, nil
}

// StripID returns a copy of doc without the identifier field.
func StripID(doc map[string]any) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		if k == IDField {
			continue
		}
		out[k] = v
	}
	return out
}
