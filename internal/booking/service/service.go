// Package service provides the lesson and order business logic on top of the document store.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	bookingerrors "github.com/abgdnv/lessonbooking/internal/booking/errors"
	"github.com/abgdnv/lessonbooking/internal/booking/store"
	"github.com/abgdnv/lessonbooking/pkg/messaging"
	"github.com/abgdnv/lessonbooking/pkg/messaging/events"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
)

// spacesField is the lesson field holding the number of free spaces.
const spacesField = "spaces"

// BookingService defines the lesson and order operations.
type BookingService interface {
	// ListLessons returns every lesson. Returns an empty slice if there are none.
	ListLessons(ctx context.Context) ([]store.Document, error)

	// UpdateLesson sets the supplied fields of a lesson.
	// Returns ErrDocumentNotFound if no lesson has the given ID.
	UpdateLesson(ctx context.Context, id primitive.ObjectID, fields store.Document) error

	// PlaceOrder stores a validated order and returns its identifier.
	// Returns ErrUnknownLesson or ErrInsufficientSpaces when spaces are reserved and cannot be taken.
	PlaceOrder(ctx context.Context, order OrderDto) (primitive.ObjectID, error)

	// ReplaceOrder overwrites every field of an existing order.
	// Returns ErrDocumentNotFound if no order has the given ID.
	ReplaceOrder(ctx context.Context, id primitive.ObjectID, order OrderDto) error
}

// Options selects the collections and the booking behaviour.
type Options struct {
	LessonsCollection string
	OrdersCollection  string
	ReserveSpaces     bool
}

// Service implements BookingService.
type Service struct {
	lessons       store.Collection
	orders        store.Collection
	reserveSpaces bool
	publisher     messaging.Publisher
	ordersCounter metric.Int64Counter
	logger        *slog.Logger
	now           func() time.Time
}

// NewService creates a new instance of BookingService over the given store.
func NewService(ds store.DocumentStore, publisher messaging.Publisher, opts Options, logger *slog.Logger) *Service {
	meter := otel.Meter("booking-service")
	ordersCounter, err := meter.Int64Counter("orders_placed", metric.WithDescription("Total number of placed orders"))
	if err != nil {
		panic(fmt.Sprintf("failed to create orders_placed counter: %v", err))
	}
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	return &Service{
		lessons:       ds.Collection(opts.LessonsCollection),
		orders:        ds.Collection(opts.OrdersCollection),
		reserveSpaces: opts.ReserveSpaces,
		publisher:     publisher,
		ordersCounter: ordersCounter,
		logger:        logger.With("component", "service"),
		now:           time.Now,
	}
}

func (s *Service) ListLessons(ctx context.Context) ([]store.Document, error) {
	return s.lessons.FindAll(ctx)
}

func (s *Service) UpdateLesson(ctx context.Context, id primitive.ObjectID, fields store.Document) error {
	fields = store.StripID(fields)
	if len(fields) == 0 {
		return bookingerrors.ErrEmptyDocument
	}
	return s.lessons.UpdateByID(ctx, id, fields)
}

// PlaceOrder reserves spaces first when enabled, so that an order is never stored for a full lesson.
// Reservations are per lesson; the ones already taken are given back if a later one fails.
func (s *Service) PlaceOrder(ctx context.Context, order OrderDto) (primitive.ObjectID, error) {
	booked := order.Booked()
	if s.reserveSpaces {
		if err := s.reserve(ctx, booked); err != nil {
			return primitive.NilObjectID, err
		}
	}

	id, err := s.orders.Insert(ctx, order.Document())
	if err != nil {
		if s.reserveSpaces {
			s.release(ctx, booked)
		}
		return primitive.NilObjectID, err
	}

	carrier := make(propagation.MapCarrier)
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	event := events.OrderPlacedEvent{
		Carrier:   carrier,
		OrderID:   id.Hex(),
		Name:      order.Name,
		Phone:     order.Phone,
		Kind:      order.Kind(),
		Lessons:   booked,
		Address:   order.Address,
		CreatedAt: s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish OrderPlacedEvent", "order_id", id.Hex(), "error", err)
	}
	s.ordersCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", order.Kind())))

	return id, nil
}

func (s *Service) ReplaceOrder(ctx context.Context, id primitive.ObjectID, order OrderDto) error {
	return s.orders.ReplaceByID(ctx, id, order.Document())
}

func (s *Service) reserve(ctx context.Context, booked []events.BookedLesson) error {
	for i, b := range booked {
		err := s.reserveOne(ctx, b)
		if err == nil {
			continue
		}
		s.release(ctx, booked[:i])
		return err
	}
	return nil
}

func (s *Service) reserveOne(ctx context.Context, b events.BookedLesson) error {
	id, err := store.ParseID(b.LessonID)
	if err != nil {
		return fmt.Errorf("lesson %q: %w", b.LessonID, bookingerrors.ErrUnknownLesson)
	}
	err = s.lessons.Reserve(ctx, id, spacesField, b.Spaces)
	if errors.Is(err, bookingerrors.ErrDocumentNotFound) {
		return fmt.Errorf("lesson %q: %w", b.LessonID, bookingerrors.ErrUnknownLesson)
	}
	return err
}

// release gives reserved spaces back. Failures are logged only.
func (s *Service) release(ctx context.Context, booked []events.BookedLesson) {
	for _, b := range booked {
		id, err := store.ParseID(b.LessonID)
		if err != nil {
			continue
		}
		if err := s.lessons.Reserve(ctx, id, spacesField, -b.Spaces); err != nil {
			s.logger.ErrorContext(ctx, "Failed to release reserved spaces", "lesson_id", b.LessonID, "spaces", b.Spaces, "error", err)
		}
	}
}
