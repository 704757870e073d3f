package events

import (
	"encoding/json"
	"time"

	"github.com/abgdnv/lessonbooking/pkg/messaging"
)

// OrderPlacedEvent is published after an order document has been stored.
// Carrier holds the propagated trace context.
type OrderPlacedEvent struct {
	Carrier   map[string]string `json:"carrier,omitempty"`
	OrderID   string            `json:"order_id"`
	Name      string            `json:"name"`
	Phone     string            `json:"phone"`
	Kind      string            `json:"kind"`
	Lessons   []BookedLesson    `json:"lessons"`
	Address   string            `json:"address,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// BookedLesson is one lesson of an order with the number of spaces taken.
type BookedLesson struct {
	LessonID string `json:"lesson_id"`
	Spaces   int    `json:"spaces"`
}

func (o OrderPlacedEvent) Subject() string {
	return messaging.OrdersPlacedSubject
}

func (o OrderPlacedEvent) Payload() ([]byte, error) {
	return json.Marshal(o)
}
