package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	bookingerrors "github.com/abgdnv/lessonbooking/internal/booking/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InMemoryStore implements DocumentStore with maps guarded by a single RWMutex.
// Documents are copied on the way in and out, so callers never share state with the store.
type InMemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
}

type memCollection struct {
	order []primitive.ObjectID
	docs  map[primitive.ObjectID]Document
}

// NewInMemoryStore creates a store holding the given empty collections.
func NewInMemoryStore(collections ...string) *InMemoryStore {
	s := &InMemoryStore{collections: make(map[string]*memCollection)}
	for _, name := range collections {
		s.collections[name] = newMemCollection()
	}
	return s
}

func newMemCollection() *memCollection {
	return &memCollection{docs: make(map[primitive.ObjectID]Document)}
}

// CreateCollection adds an empty collection; existing collections are left as they are.
func (s *InMemoryStore) CreateCollection(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		s.collections[name] = newMemCollection()
	}
}

// DropCollection removes a collection and its documents.
func (s *InMemoryStore) DropCollection(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, name)
}

func (s *InMemoryStore) CollectionExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[name]
	return ok, nil
}

func (s *InMemoryStore) Collection(name string) Collection {
	return &memHandle{store: s, name: name}
}

func (s *InMemoryStore) Ping(context.Context) error {
	return nil
}

// memHandle resolves its collection on every call, so a dropped collection reads as empty.
type memHandle struct {
	store *InMemoryStore
	name  string
}

func (h *memHandle) Name() string {
	return h.name
}

func (h *memHandle) FindAll(_ context.Context) ([]Document, error) {
	h.store.mu.RLock()
	defer h.store.mu.RUnlock()

	c, ok := h.store.collections[h.name]
	if !ok {
		return []Document{}, nil
	}
	list := make([]Document, 0, len(c.order))
	for _, id := range c.order {
		list = append(list, copyDocument(c.docs[id]))
	}
	return list, nil
}

func (h *memHandle) FindTop(ctx context.Context, field string, limit int64) ([]Document, error) {
	list, err := h.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	// documents without a numeric value sort last
	sort.SliceStable(list, func(i, j int) bool {
		a, aok := toFloat(list[i][field])
		b, bok := toFloat(list[j][field])
		if aok != bok {
			return aok
		}
		return a > b
	})
	if limit >= 0 && int64(len(list)) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (h *memHandle) FindByID(_ context.Context, id primitive.ObjectID) (Document, error) {
	h.store.mu.RLock()
	defer h.store.mu.RUnlock()

	c, ok := h.store.collections[h.name]
	if !ok {
		return nil, bookingerrors.ErrDocumentNotFound
	}
	doc, ok := c.docs[id]
	if !ok {
		return nil, bookingerrors.ErrDocumentNotFound
	}
	return copyDocument(doc), nil
}

// Insert creates the collection implicitly, as MongoDB does.
func (h *memHandle) Insert(_ context.Context, doc Document) (primitive.ObjectID, error) {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	c, ok := h.store.collections[h.name]
	if !ok {
		c = newMemCollection()
		h.store.collections[h.name] = c
	}
	id := primitive.NewObjectID()
	stored := copyDocument(StripID(doc))
	stored[IDField] = id
	c.docs[id] = stored
	c.order = append(c.order, id)
	return id, nil
}

func (h *memHandle) UpdateByID(_ context.Context, id primitive.ObjectID, fields Document) error {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	doc, err := h.lookup(id)
	if err != nil {
		return err
	}
	for k, v := range StripID(fields) {
		doc[k] = copyValue(v)
	}
	return nil
}

func (h *memHandle) ReplaceByID(_ context.Context, id primitive.ObjectID, doc Document) error {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	if _, err := h.lookup(id); err != nil {
		return err
	}
	replacement := copyDocument(StripID(doc))
	replacement[IDField] = id
	h.store.collections[h.name].docs[id] = replacement
	return nil
}

func (h *memHandle) DeleteByID(_ context.Context, id primitive.ObjectID) error {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	if _, err := h.lookup(id); err != nil {
		return err
	}
	c := h.store.collections[h.name]
	delete(c.docs, id)
	for i, cur := range c.order {
		if cur == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

func (h *memHandle) Count(_ context.Context) (int64, error) {
	h.store.mu.RLock()
	defer h.store.mu.RUnlock()

	c, ok := h.store.collections[h.name]
	if !ok {
		return 0, nil
	}
	return int64(len(c.docs)), nil
}

func (h *memHandle) Reserve(_ context.Context, id primitive.ObjectID, field string, n int) error {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	doc, err := h.lookup(id)
	if err != nil {
		return err
	}
	current, ok := toFloat(doc[field])
	if !ok || current < float64(n) {
		return fmt.Errorf("lesson %s: %w", id.Hex(), bookingerrors.ErrInsufficientSpaces)
	}
	doc[field] = subtract(doc[field], n)
	return nil
}

// lookup must be called with the write lock held.
func (h *memHandle) lookup(id primitive.ObjectID) (Document, error) {
	c, ok := h.store.collections[h.name]
	if !ok {
		return nil, bookingerrors.ErrDocumentNotFound
	}
	doc, ok := c.docs[id]
	if !ok {
		return nil, bookingerrors.ErrDocumentNotFound
	}
	return doc, nil
}

func copyDocument(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyDocument(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// subtract keeps the numeric type of v.
func subtract(v any, n int) any {
	switch t := v.(type) {
	case int:
		return t - n
	case int32:
		return t - int32(n)
	case int64:
		return t - int64(n)
	case float32:
		return t - float32(n)
	default:
		f, _ := toFloat(v)
		return f - float64(n)
	}
}
