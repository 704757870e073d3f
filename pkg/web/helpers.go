package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// InternalErrorMessage is the only text a client ever sees for an unexpected failure.
const InternalErrorMessage = "An internal error occurred."

// maxBodyBytes caps the size of a JSON request body.
const maxBodyBytes = 1 << 20

// ErrEmptyBody is returned by DecodeJSONObject when the body is missing or an empty object.
var ErrEmptyBody = errors.New("request body must be a non-empty JSON object")

func RespondJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	if payload == nil {
		w.WriteHeader(status)
		return
	}

	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Error encoding response to JSON", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = fmt.Fprintf(w, `{"error":%q}`, InternalErrorMessage)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	RespondJSON(w, logger, status, map[string]string{"error": message})
}

// RespondInternalError writes the generic 500 body. The cause must be logged by the caller.
func RespondInternalError(w http.ResponseWriter, logger *slog.Logger) {
	RespondError(w, logger, http.StatusInternalServerError, InternalErrorMessage)
}

// PathParam returns a route parameter matched by chi, falling back to the request path values.
func PathParam(r *http.Request, key string) string {
	if v := chi.URLParam(r, key); v != "" {
		return v
	}
	return r.PathValue(key)
}

// ParseID extracts the "id" path parameter and converts it with parse.
// Responds with 400 and returns false when the value is malformed.
func ParseID[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, parse func(string) (T, error)) (T, bool) {
	raw := PathParam(r, "id")
	id, err := parse(raw)
	if err != nil {
		var zero T
		logger.WarnContext(r.Context(), "Malformed identifier", "id", raw, "error", err)
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("Invalid ID: %s", raw))
		return zero, false
	}
	return id, true
}

// DecodeJSONObject reads the request body as a JSON object.
// A missing body, null and an empty object all yield ErrEmptyBody.
// When typed is not nil the same body is also decoded into it.
func DecodeJSONObject(r *http.Request, typed any) (map[string]any, error) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyBody
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decode request body: %w", err)
	}
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}
	if typed != nil {
		if err := json.Unmarshal(raw, typed); err != nil {
			return nil, fmt.Errorf("decode request body: %w", err)
		}
	}
	return body, nil
}
