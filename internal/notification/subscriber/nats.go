// Package subscriber consumes order events from JetStream and sends booking confirmations.
package subscriber

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/abgdnv/lessonbooking/pkg/config"
	"github.com/abgdnv/lessonbooking/pkg/messaging/events"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "notification-subscriber"

// ackableMsg is the part of jetstream.Msg the handler relies on.
type ackableMsg interface {
	Data() []byte
	Subject() string
	Ack() error
	Term() error
}

// Start creates the durable consumer and runs cfg.Workers fetch loops until ctx is cancelled.
func Start(ctx context.Context, js jetstream.JetStream, cfg config.SubscriberConfig, logger *slog.Logger) error {
	consumer, err := js.CreateOrUpdateConsumer(ctx, cfg.Stream, jetstream.ConsumerConfig{
		FilterSubject: cfg.Subject,
		Durable:       cfg.Consumer,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return err
	}
	logger = logger.With("component", "subscriber", "consumer", cfg.Consumer)

	g, gCtx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.Workers; i++ {
		g.Go(func() error {
			return runWorker(gCtx, consumer, cfg, logger)
		})
	}
	return g.Wait()
}

func runWorker(ctx context.Context, consumer jetstream.Consumer, cfg config.SubscriberConfig, logger *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batch, err := consumer.Fetch(cfg.Batch, jetstream.FetchMaxWait(cfg.Timeout))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) {
				continue
			}
			logger.Error("failed to fetch messages", "error", err)
			time.Sleep(cfg.Interval)
			continue
		}
		for msg := range batch.Messages() {
			handleMessage(ctx, msg, logger)
		}
		if err := batch.Error(); err != nil && !errors.Is(err, nats.ErrTimeout) {
			logger.Warn("batch finished with error", "error", err)
		}
	}
}

// handleMessage confirms one placed order. Payloads that cannot be decoded are terminated
// so JetStream does not redeliver them.
func handleMessage(ctx context.Context, msg ackableMsg, logger *slog.Logger) {
	if msg == nil {
		logger.Error("received nil message")
		return
	}
	var event events.OrderPlacedEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		logger.Error("failed to unmarshal message", "error", err, "subject", msg.Subject())
		if err := msg.Term(); err != nil {
			logger.Error("failed to terminate message", "error", err)
		}
		return
	}

	ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(event.Carrier))
	ctx, span := otel.Tracer(tracerName).Start(ctx, "order.placed receive",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.destination.name", msg.Subject()),
			attribute.String("order.id", event.OrderID),
		))
	defer span.End()

	sendConfirmation(ctx, event, logger)

	if err := msg.Ack(); err != nil {
		logger.ErrorContext(ctx, "failed to ack message", "error", err)
	}
}

// sendConfirmation stands in for a real delivery channel and only logs the confirmation.
func sendConfirmation(ctx context.Context, event events.OrderPlacedEvent, logger *slog.Logger) {
	spaces := 0
	for _, l := range event.Lessons {
		spaces += l.Spaces
	}
	attrs := []any{
		slog.String("order_id", event.OrderID),
		slog.String("name", event.Name),
		slog.String("kind", event.Kind),
		slog.Int("lessons", len(event.Lessons)),
		slog.Int("spaces", spaces),
		slog.String("created_at", event.CreatedAt.Format(time.RFC3339)),
	}
	if event.Address != "" {
		attrs = append(attrs, slog.String("address", event.Address))
	}
	logger.InfoContext(ctx, "booking confirmation sent", attrs...)
}
