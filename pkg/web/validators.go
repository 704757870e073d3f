package web

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// ValidationErrors flattens validator errors into a field -> rule map suitable for a response body.
// The rejected values are never included.
func ValidationErrors(err error) (map[string]string, bool) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil, false
	}
	out := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		out[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
	}
	return out, true
}
