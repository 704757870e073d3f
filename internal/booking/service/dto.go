package service

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/abgdnv/lessonbooking/internal/booking/store"
	"github.com/abgdnv/lessonbooking/pkg/messaging/events"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// Order kinds.
const (
	OrderKindSpaces  = "spaces"
	OrderKindAddress = "address"
)

// LessonPatchDto holds the typed view of a partial lesson update. Nil fields were not supplied.
// Fields unknown to the DTO are still written to the document as they were sent.
type LessonPatchDto struct {
	Subject  *string  `json:"subject" validate:"omitnil,min=1,max=100"`
	Location *string  `json:"location" validate:"omitnil,min=1,max=100"`
	Price    *float64 `json:"price" validate:"omitnil,gte=0"`
	Spaces   *int     `json:"spaces" validate:"omitnil,gte=0"`
	Image    *string  `json:"image" validate:"omitnil,max=2048"`
}

// Apply overrides the raw fields with their typed values, so that spaces is stored as an integer.
func (p LessonPatchDto) Apply(fields store.Document) store.Document {
	out := store.StripID(fields)
	if p.Subject != nil {
		out["subject"] = *p.Subject
	}
	if p.Location != nil {
		out["location"] = *p.Location
	}
	if p.Price != nil {
		out["price"] = *p.Price
	}
	if p.Spaces != nil {
		out["spaces"] = *p.Spaces
	}
	if p.Image != nil {
		out["image"] = *p.Image
	}
	return out
}

// OrderDto is an order in one of two shapes:
// lessonIDs with a total space count, or lessons with per-lesson quantities and an address.
type OrderDto struct {
	Name      string         `json:"name" validate:"required,notblank,max=100"`
	Phone     string         `json:"phone" validate:"required,notblank,max=30"`
	LessonIDs []string       `json:"lessonIDs,omitempty" validate:"omitempty,dive,required,notblank"`
	Spaces    int            `json:"spaces,omitempty" validate:"gte=0"`
	Lessons   []OrderLineDto `json:"lessons,omitempty" validate:"omitempty,dive"`
	Address   string         `json:"address,omitempty" validate:"max=200"`
}

// OrderLineDto is one lesson of an address order.
type OrderLineDto struct {
	LessonID string `json:"lessonId" validate:"required,notblank"`
	Quantity int    `json:"quantity" validate:"required,min=1"`
}

// Kind reports the shape of the order. Only meaningful for a validated order.
func (o OrderDto) Kind() string {
	if len(o.Lessons) > 0 {
		return OrderKindAddress
	}
	return OrderKindSpaces
}

// Document converts the order to the fields stored in the orders collection.
func (o OrderDto) Document() store.Document {
	doc := store.Document{"name": o.Name, "phone": o.Phone}
	if o.Kind() == OrderKindAddress {
		lines := make([]any, 0, len(o.Lessons))
		for _, l := range o.Lessons {
			lines = append(lines, map[string]any{"lessonId": l.LessonID, "quantity": l.Quantity})
		}
		doc["lessons"] = lines
		doc["address"] = o.Address
		return doc
	}
	ids := make([]any, 0, len(o.LessonIDs))
	for _, id := range o.LessonIDs {
		ids = append(ids, id)
	}
	doc["lessonIDs"] = ids
	doc["spaces"] = o.Spaces
	return doc
}

// Booked returns the spaces taken per lesson, in order of first appearance.
// In a spaces order the total is spread evenly over the lesson ids, the first ids
// taking one more each when it does not divide.
func (o OrderDto) Booked() []events.BookedLesson {
	counts := make(map[string]int)
	var order []string
	add := func(id string, n int) {
		if _, ok := counts[id]; !ok {
			order = append(order, id)
		}
		counts[id] += n
	}
	if o.Kind() == OrderKindAddress {
		for _, l := range o.Lessons {
			add(l.LessonID, l.Quantity)
		}
	} else if n := len(o.LessonIDs); n > 0 {
		share, extra := o.Spaces/n, o.Spaces%n
		for i, id := range o.LessonIDs {
			if i < extra {
				add(id, share+1)
			} else {
				add(id, share)
			}
		}
	}
	booked := make([]events.BookedLesson, 0, len(order))
	for _, id := range order {
		booked = append(booked, events.BookedLesson{LessonID: id, Spaces: counts[id]})
	}
	return booked
}

// NewValidator returns a validator that reports fields by their JSON names
// and checks that an order uses exactly one of its two shapes.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(fmt.Sprintf("failed to register notblank: %v", err))
	}
	v.RegisterStructValidation(orderShape, OrderDto{})
	return v
}

func orderShape(sl validator.StructLevel) {
	o := sl.Current().Interface().(OrderDto)
	hasIDs, hasLines := len(o.LessonIDs) > 0, len(o.Lessons) > 0
	switch {
	case hasIDs && hasLines:
		sl.ReportError(o.Lessons, "lessons", "Lessons", "excluded_with", "lessonIDs")
	case hasIDs:
		if o.Spaces <= 0 {
			sl.ReportError(o.Spaces, "spaces", "Spaces", "required_with", "lessonIDs")
		} else if o.Spaces < len(o.LessonIDs) {
			sl.ReportError(o.Spaces, "spaces", "Spaces", "min", strconv.Itoa(len(o.LessonIDs)))
		}
	case hasLines:
		if strings.TrimSpace(o.Address) == "" {
			sl.ReportError(o.Address, "address", "Address", "required_with", "lessons")
		}
	default:
		sl.ReportError(o.LessonIDs, "lessonIDs", "LessonIDs", "required_without", "lessons")
	}
}
