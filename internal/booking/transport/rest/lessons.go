package rest

import (
	"errors"
	"fmt"
	"net/http"

	bookingerrors "github.com/abgdnv/lessonbooking/internal/booking/errors"
	"github.com/abgdnv/lessonbooking/internal/booking/service"
	"github.com/abgdnv/lessonbooking/internal/booking/store"
	"github.com/abgdnv/lessonbooking/pkg/web"
)

// ListLessons returns all lessons. Unlike the collection listing, no lessons is an empty array.
func (h *Handler) ListLessons(w http.ResponseWriter, r *http.Request) {
	h.logger.DebugContext(r.Context(), "Received request to list lessons")
	lessons, err := h.service.ListLessons(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Error retrieving lessons", "error", err)
		web.RespondInternalError(w, h.logger)
		return
	}
	if lessons == nil {
		lessons = []store.Document{}
	}
	h.logger.DebugContext(r.Context(), "Successfully retrieved lessons", "count", len(lessons))
	web.RespondJSON(w, h.logger, http.StatusOK, lessons)
}

// UpdateLesson applies a partial update to a lesson.
func (h *Handler) UpdateLesson(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger, store.ParseID)
	if !ok {
		return
	}
	var patch service.LessonPatchDto
	body, ok := h.decodeBody(w, r, &patch)
	if !ok {
		return
	}
	if err := h.validate.Struct(patch); err != nil {
		h.respondValidationError(w, r, "Invalid lesson payload", body, err)
		return
	}

	err := h.service.UpdateLesson(r.Context(), id, patch.Apply(body))
	switch {
	case errors.Is(err, bookingerrors.ErrDocumentNotFound):
		h.logger.WarnContext(r.Context(), "Lesson not found for update", "ID", id.Hex())
		web.RespondError(w, h.logger, http.StatusNotFound, fmt.Sprintf("Lesson with ID %s not found", id.Hex()))
	case errors.Is(err, bookingerrors.ErrEmptyDocument):
		web.RespondError(w, h.logger, http.StatusBadRequest, "Request body must be a non-empty JSON object")
	case err != nil:
		h.logger.ErrorContext(r.Context(), "Error updating lesson", "ID", id.Hex(), "error", err)
		web.RespondInternalError(w, h.logger)
	default:
		h.logger.InfoContext(r.Context(), "Lesson updated successfully", "ID", id.Hex())
		web.RespondJSON(w, h.logger, http.StatusOK, map[string]string{"message": "Lesson updated successfully"})
	}
}

// respondValidationError logs the rejected payload and answers 400 without echoing it.
func (h *Handler) respondValidationError(w http.ResponseWriter, r *http.Request, message string, payload store.Document, err error) {
	fields, ok := web.ValidationErrors(err)
	if !ok {
		h.logger.ErrorContext(r.Context(), "Error validating request body", "error", err)
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	h.logger.WarnContext(r.Context(), "Validation errors occurred", "errors", fields, "payload", payload)
	web.RespondJSON(w, h.logger, http.StatusBadRequest, map[string]any{
		"error":             message,
		"validation_errors": fields,
	})
}
