package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	bookingerrors "github.com/abgdnv/lessonbooking/internal/booking/errors"
	"github.com/abgdnv/lessonbooking/internal/booking/store"
	"github.com/abgdnv/lessonbooking/pkg/web"
)

// topDocumentsLimit and topDocumentsField define the limited listing.
const (
	topDocumentsLimit = 3
	topDocumentsField = "price"
)

type collectionKey struct{}

// CollectionFromContext returns the collection bound by ResolveCollection.
func CollectionFromContext(ctx context.Context) (store.Collection, bool) {
	c, ok := ctx.Value(collectionKey{}).(store.Collection)
	return c, ok
}

// ResolveCollection checks on every request that the collection named in the path exists
// and binds a handle for it to the request context.
func (h *Handler) ResolveCollection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := web.PathParam(r, "collectionName")
		if name == "" {
			web.RespondError(w, h.logger, http.StatusNotFound, "Collection name is required")
			return
		}
		exists, err := h.store.CollectionExists(r.Context(), name)
		if err != nil {
			h.logger.ErrorContext(r.Context(), "Error checking collection", "collection", name, "error", err)
			web.RespondInternalError(w, h.logger)
			return
		}
		if !exists {
			h.logger.WarnContext(r.Context(), "Collection not found", "collection", name)
			web.RespondError(w, h.logger, http.StatusNotFound, fmt.Sprintf("Collection %s not found", name))
			return
		}
		ctx := context.WithValue(r.Context(), collectionKey{}, h.store.Collection(name))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// collection must only be called behind ResolveCollection.
func (h *Handler) collection(w http.ResponseWriter, r *http.Request) (store.Collection, bool) {
	c, ok := CollectionFromContext(r.Context())
	if !ok {
		h.logger.ErrorContext(r.Context(), "No collection bound to request")
		web.RespondInternalError(w, h.logger)
	}
	return c, ok
}

// ListDocuments returns every document of the collection. An empty collection is a 404.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	h.logger.DebugContext(r.Context(), "Received request to list documents", "collection", c.Name())
	docs, err := c.FindAll(r.Context())
	h.respondList(w, r, c, docs, err)
}

// ListTopDocuments returns the three documents with the highest price.
func (h *Handler) ListTopDocuments(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	h.logger.DebugContext(r.Context(), "Received request to list top documents", "collection", c.Name())
	docs, err := c.FindTop(r.Context(), topDocumentsField, topDocumentsLimit)
	h.respondList(w, r, c, docs, err)
}

func (h *Handler) respondList(w http.ResponseWriter, r *http.Request, c store.Collection, docs []store.Document, err error) {
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Error listing documents", "collection", c.Name(), "error", err)
		web.RespondInternalError(w, h.logger)
		return
	}
	if len(docs) == 0 {
		h.logger.WarnContext(r.Context(), "No documents found", "collection", c.Name())
		web.RespondError(w, h.logger, http.StatusNotFound, fmt.Sprintf("No documents found in collection %s", c.Name()))
		return
	}
	h.logger.DebugContext(r.Context(), "Successfully listed documents", "collection", c.Name(), "count", len(docs))
	web.RespondJSON(w, h.logger, http.StatusOK, docs)
}

// FindDocument returns one document by its ID.
func (h *Handler) FindDocument(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	id, ok := web.ParseID(w, r, h.logger, store.ParseID)
	if !ok {
		return
	}
	doc, err := c.FindByID(r.Context(), id)
	if err != nil {
		h.respondDocumentError(w, r, c, id.Hex(), "retrieving", err)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, doc)
}

// CreateDocument inserts the request body as a new document. A client supplied _id is ignored.
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	body, ok := h.decodeBody(w, r, nil)
	if !ok {
		return
	}
	id, err := c.Insert(r.Context(), body)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Error creating document", "collection", c.Name(), "error", err)
		web.RespondInternalError(w, h.logger)
		return
	}
	h.logger.InfoContext(r.Context(), "Document created successfully", "collection", c.Name(), "ID", id.Hex())
	web.RespondJSON(w, h.logger, http.StatusCreated, map[string]string{"insertedId": id.Hex()})
}

// UpdateDocument sets the fields of the request body on an existing document.
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	id, ok := web.ParseID(w, r, h.logger, store.ParseID)
	if !ok {
		return
	}
	body, ok := h.decodeBody(w, r, nil)
	if !ok {
		return
	}
	if err := c.UpdateByID(r.Context(), id, body); err != nil {
		h.respondDocumentError(w, r, c, id.Hex(), "updating", err)
		return
	}
	h.logger.InfoContext(r.Context(), "Document updated successfully", "collection", c.Name(), "ID", id.Hex())
	web.RespondJSON(w, h.logger, http.StatusOK, map[string]string{"message": "Document updated successfully"})
}

// DeleteDocument removes a document permanently.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	id, ok := web.ParseID(w, r, h.logger, store.ParseID)
	if !ok {
		return
	}
	if err := c.DeleteByID(r.Context(), id); err != nil {
		h.respondDocumentError(w, r, c, id.Hex(), "deleting", err)
		return
	}
	h.logger.InfoContext(r.Context(), "Document deleted successfully", "collection", c.Name(), "ID", id.Hex())
	web.RespondJSON(w, h.logger, http.StatusOK, map[string]string{"message": "Document deleted successfully"})
}

func (h *Handler) respondDocumentError(w http.ResponseWriter, r *http.Request, c store.Collection, id, action string, err error) {
	if errors.Is(err, bookingerrors.ErrDocumentNotFound) {
		h.logger.WarnContext(r.Context(), "Document not found", "collection", c.Name(), "ID", id)
		web.RespondError(w, h.logger, http.StatusNotFound, fmt.Sprintf("Document with ID %s not found in collection %s", id, c.Name()))
		return
	}
	h.logger.ErrorContext(r.Context(), "Error "+action+" document", "collection", c.Name(), "ID", id, "error", err)
	web.RespondInternalError(w, h.logger)
}

// decodeBody answers 400 itself when the body is not a non-empty JSON object.
// A client supplied _id is dropped first, so a body holding only _id counts as empty.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, typed any) (store.Document, bool) {
	raw, err := web.DecodeJSONObject(r, typed)
	body := store.StripID(raw)
	if err == nil && len(body) == 0 {
		err = web.ErrEmptyBody
	}
	if errors.Is(err, web.ErrEmptyBody) {
		h.logger.WarnContext(r.Context(), "Empty request body")
		web.RespondError(w, h.logger, http.StatusBadRequest, "Request body must be a non-empty JSON object")
		return nil, false
	} else if err != nil {
		h.logger.WarnContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	return body, true
}
