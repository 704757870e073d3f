// Package rest provides HTTP handlers for collections, lessons and orders.
package rest

import (
	"context"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/abgdnv/lessonbooking/internal/booking/service"
	"github.com/abgdnv/lessonbooking/internal/booking/store"
	"github.com/abgdnv/lessonbooking/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

const healthCheckTimeout = 2 * time.Second

// Options configures the optional parts of the HTTP surface.
type Options struct {
	// ImagesDir is served under ImagesURLPrefix. Empty disables image serving.
	ImagesDir       string
	ImagesURLPrefix string

	// Metrics is mounted at MetricsPath when not nil.
	Metrics     http.Handler
	MetricsPath string
}

type Handler struct {
	store    store.DocumentStore
	service  service.BookingService
	validate *validator.Validate
	logger   *slog.Logger
	opts     Options
}

// NewHandler creates a new Handler serving the given store and booking service.
func NewHandler(ds store.DocumentStore, svc service.BookingService, opts Options, logger *slog.Logger) *Handler {
	if opts.ImagesURLPrefix == "" {
		opts.ImagesURLPrefix = "/images/"
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}
	return &Handler{
		store:    ds,
		service:  svc,
		validate: service.NewValidator(),
		logger:   logger.With("component", "rest"),
		opts:     opts,
	}
}

// RegisterRoutes registers the HTTP routes of the booking service.
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/collections/{collectionName}", func(r chi.Router) {
		r.Use(h.ResolveCollection)
		r.Get("/", h.ListDocuments)
		r.Post("/", h.CreateDocument)
		r.Get("/limited", h.ListTopDocuments)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.FindDocument)
			r.Put("/", h.UpdateDocument)
			r.Delete("/", h.DeleteDocument)
		})
	})

	r.Get("/lessons", h.ListLessons)
	r.Put("/lessons/{id}", h.UpdateLesson)

	r.Post("/orders", h.PlaceOrder)
	r.Post("/order", h.PlaceOrder)
	r.Put("/order/{id}", h.ReplaceOrder)

	if h.opts.ImagesDir != "" {
		prefix := "/" + strings.Trim(h.opts.ImagesURLPrefix, "/") + "/"
		r.Get(prefix+"*", h.ServeImage)
	}
	if h.opts.Metrics != nil {
		r.Method(http.MethodGet, h.opts.MetricsPath, h.opts.Metrics)
	}
	r.Get("/healthz", h.HealthCheck)
}

// ServeImage serves a file from the images directory. Anything that is not a regular file is a 404.
func (h *Handler) ServeImage(w http.ResponseWriter, r *http.Request) {
	name := path.Clean("/" + chi.URLParam(r, "*"))
	f, err := http.Dir(h.opts.ImagesDir).Open(name)
	if err != nil {
		h.logger.DebugContext(r.Context(), "Image not found", "name", name)
		web.RespondError(w, h.logger, http.StatusNotFound, "Image not found")
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		web.RespondError(w, h.logger, http.StatusNotFound, "Image not found")
		return
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// HealthCheck reports whether the document store is reachable.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		h.logger.ErrorContext(r.Context(), "Health check failed", "error", err)
		web.RespondError(w, h.logger, http.StatusServiceUnavailable, "Document store unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
}
