// Package app contains the application setup for the booking service.
package app

import (
	"log/slog"
	"net/http"

	"github.com/abgdnv/lessonbooking/internal/booking/config"
	"github.com/abgdnv/lessonbooking/internal/booking/service"
	"github.com/abgdnv/lessonbooking/internal/booking/store"
	"github.com/abgdnv/lessonbooking/internal/booking/transport/rest"
	"github.com/abgdnv/lessonbooking/pkg/messaging"
	"github.com/abgdnv/lessonbooking/pkg/server"
	"github.com/go-chi/chi/v5"
)

type Dependencies struct {
	Store          store.DocumentStore
	BookingService service.BookingService
	Logger         *slog.Logger
	RestOptions    rest.Options
	RouterOptions  server.RouterOptions
}

// SetupDependencies wires the booking service on top of the store and the event publisher.
func SetupDependencies(ds store.DocumentStore, publisher messaging.Publisher, cfg config.BookingConfig, logger *slog.Logger) *Dependencies {
	bService := service.NewService(ds, publisher, service.Options{
		LessonsCollection: cfg.LessonsCollection,
		OrdersCollection:  cfg.OrdersCollection,
		ReserveSpaces:     cfg.ReserveSpaces,
	}, logger)

	return &Dependencies{
		Store:          ds,
		BookingService: bService,
		Logger:         logger,
		RestOptions: rest.Options{
			ImagesDir:       cfg.Images.Dir,
			ImagesURLPrefix: cfg.Images.URLPrefix,
		},
	}
}

// SetupHttpHandler initializes the routes and middleware of the booking service.
// Used by E2E tests to set up the HTTP server with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger, deps.RouterOptions)
	wireRoutes(mux, deps)
	return mux
}

func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	bookingHandler := rest.NewHandler(deps.Store, deps.BookingService, deps.RestOptions, deps.Logger)
	bookingHandler.RegisterRoutes(mux)
}

// SetupHttpServer creates and configures an instrumented HTTP server for the booking service.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	deps.RouterOptions = server.RouterOptions{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		CORSMaxAge:     cfg.CORS.MaxAge,
	}
	handler := SetupHttpHandler(deps)
	if cfg.Telemetry.Traces.Enabled {
		handler = server.Instrument(handler, "booking-http")
	}

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}

	return server.NewHTTPServer(httpCfg, handler)
}
