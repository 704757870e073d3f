// Package main runs the lesson booking HTTP service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "net/http/pprof"

	"github.com/abgdnv/lessonbooking/internal/booking/app"
	"github.com/abgdnv/lessonbooking/internal/booking/config"
	"github.com/abgdnv/lessonbooking/internal/booking/store"
	"github.com/abgdnv/lessonbooking/pkg/bootstrap"
	pkgconfig "github.com/abgdnv/lessonbooking/pkg/config"
	"github.com/abgdnv/lessonbooking/pkg/config/configloader"
	"github.com/abgdnv/lessonbooking/pkg/messaging"
	"github.com/abgdnv/lessonbooking/pkg/nats"
	"github.com/abgdnv/lessonbooking/pkg/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

const serviceName = "booking"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

// run loads the configuration, connects the store and the broker, and serves HTTP until ctx is cancelled.
func run(ctx context.Context) error {
	cfg, cfgErr := configloader.Load[*config.Config](serviceName)
	if cfgErr != nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	log.Printf("Configuration loaded: %v", cfg)

	logger := bootstrap.NewLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Telemetry.Traces.Enabled {
		tracerProvider, err := telemetry.NewTracerProvider(ctx, serviceName, cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("failed to create tracer provider: %w", err)
		}
		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("Shutting down tracer provider")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("failed to shutdown tracer provider: %w", err)
			}
			return nil
		})
	}

	var metricsHandler http.Handler
	if cfg.Telemetry.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		meterProvider, handler, err := telemetry.NewMeterProvider(serviceName, reg)
		if err != nil {
			return err
		}
		metricsHandler = handler
		defer func() { _ = meterProvider.Shutdown(context.Background()) }()
	}

	ds, closeStore, err := newStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	publisher, closePublisher, err := newPublisher(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	deps := app.SetupDependencies(ds, publisher, cfg.Booking, logger)
	deps.RestOptions.Metrics = metricsHandler
	deps.RestOptions.MetricsPath = cfg.Telemetry.Metrics.Path
	httpServer := app.SetupHttpServer(deps, cfg)

	// Start the HTTP server
	g.Go(func() error {
		logger.Info("HTTP server listening", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	// gracefully shutdown HTTP server on context cancellation
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	// Start the pprof server if enabled
	if cfg.PProf.Enabled {
		pprofServer := &http.Server{
			Addr: cfg.PProf.Addr,
		}
		g.Go(func() error {
			logger.Info("Pprof server listening", slog.String("addr", pprofServer.Addr))
			if err := pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("pprof server failed: %w", err)
			}
			return nil
		})
		// gracefully shutdown pprof server on context cancellation
		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("Shutting down pprof server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
			defer cancel()
			return pprofServer.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", err)
	}
	return nil
}

// newStore returns the configured document store and a function releasing it.
func newStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.DocumentStore, func(), error) {
	if cfg.Database.Driver == pkgconfig.DriverMemory {
		logger.Warn("Using the in-memory document store; data is lost on restart")
		return store.NewInMemoryStore(cfg.Booking.LessonsCollection, cfg.Booking.OrdersCollection), func() {}, nil
	}

	client, err := bootstrap.NewMongoClient(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Successfully connected to the database!")
	closeFn := func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Error("Failed to disconnect from the database", "error", err)
		}
	}

	if cfg.Database.Migrate {
		if err := store.Migrate(client, cfg.Database.Name, logger); err != nil {
			closeFn()
			return nil, nil, err
		}
	}
	return store.NewMongoStore(client.Database(cfg.Database.Name)), closeFn, nil
}

// newPublisher connects to NATS when enabled. Without a broker, events are dropped.
func newPublisher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (messaging.Publisher, func(), error) {
	if !cfg.Nats.Enabled {
		logger.Info("NATS is disabled; order events will not be published")
		return messaging.NopPublisher{}, func() {}, nil
	}

	natsConn, err := nats.NewClient(cfg.Nats.Url, cfg.Nats.Timeout)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create NATS connection: %w", err)
	}
	js, err := nats.NewJetStreamContext(natsConn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}
	if err := nats.EnsureStream(ctx, js, cfg.Nats.Stream, messaging.OrdersSubjects); err != nil {
		natsConn.Close()
		return nil, nil, err
	}
	closeFn := func() {
		if err := natsConn.Drain(); err != nil {
			logger.Error("Failed to drain NATS connection", "error", err)
		}
	}
	publisher := messaging.NewBreakerPublisher(nats.NewNatsPublisher(js), cfg.Resilience.CircuitBreaker, logger)
	return publisher, closeFn, nil
}
