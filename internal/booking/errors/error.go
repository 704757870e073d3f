// Package errors provides sentinel errors for collection, document and booking operations.
package errors

import "errors"

var ErrDocumentNotFound = errors.New("document not found")
var ErrInvalidID = errors.New("invalid document identifier")
var ErrEmptyDocument = errors.New("document must contain at least one field")

var ErrInsufficientSpaces = errors.New("not enough spaces left for lesson")

var ErrStoreUnavailable = errors.New("document store unavailable")
var ErrUnknownLesson = errors.New("order references an unknown lesson")
