package messaging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/abgdnv/lessonbooking/pkg/config"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/require"
)

type testEvent struct{}

func (testEvent) Subject() string          { return "orders.test" }
func (testEvent) Payload() ([]byte, error) { return []byte("{}"), nil }

// mockPublisher returns queued errors in order; nil once the queue is drained.
// Not thread-safe, should be used in sequential tests only.
type mockPublisher struct {
	callCount int
	responses []error
}

func (m *mockPublisher) Publish(context.Context, Event) error {
	m.callCount++
	if len(m.responses) == 0 {
		return nil
	}
	err := m.responses[0]
	m.responses = m.responses[1:]
	return err
}

func newTestBreaker(next Publisher) *BreakerPublisher {
	cfg := config.CircuitBreakerConfig{
		ConsecutiveFailures: 3,
		ErrorRatePercent:    60,
		OpenTimeout:         time.Minute,
	}
	return NewBreakerPublisher(next, cfg, slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func TestBreakerPublisher_HappyPath(t *testing.T) {
	// given
	next := &mockPublisher{}
	p := newTestBreaker(next)

	// when
	err := p.Publish(context.Background(), testEvent{})

	// then
	require.NoError(t, err)
	require.Equal(t, 1, next.callCount)
	require.Equal(t, gobreaker.StateClosed, p.State())
}

func TestBreakerPublisher_Opens(t *testing.T) {
	// given
	brokerDown := errors.New("nats: no responders available for request")
	next := &mockPublisher{responses: []error{brokerDown, brokerDown, brokerDown}}
	p := newTestBreaker(next)

	// when
	for i := 0; i < 3; i++ {
		require.ErrorIs(t, p.Publish(context.Background(), testEvent{}), brokerDown)
	}

	// then
	err := p.Publish(context.Background(), testEvent{})
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	require.Equal(t, 3, next.callCount, "open breaker must not reach the broker")
	require.Equal(t, gobreaker.StateOpen, p.State())
}

func TestBreakerPublisher_IgnoresCanceledContext(t *testing.T) {
	// given
	next := &mockPublisher{responses: []error{context.Canceled, context.Canceled, context.Canceled, context.Canceled}}
	p := newTestBreaker(next)

	// when
	for i := 0; i < 4; i++ {
		require.ErrorIs(t, p.Publish(context.Background(), testEvent{}), context.Canceled)
	}

	// then
	require.Equal(t, gobreaker.StateClosed, p.State())
	require.Equal(t, 4, next.callCount)
}
