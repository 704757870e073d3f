package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_NewChiRouter_RecoversPanics(t *testing.T) {
	// given
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	mux := NewChiRouter(logger, RouterOptions{})
	mux.Get("/panic", func(http.ResponseWriter, *http.Request) { panic("unexpected") })
	rr := httptest.NewRecorder()

	// when
	Instrument(mux, "test").ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/panic", nil))

	// then
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"An internal error occurred."}`, rr.Body.String())
}

func Test_NewChiRouter_CORS(t *testing.T) {
	// given
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	mux := NewChiRouter(logger, RouterOptions{AllowedOrigins: []string{"https://booking.example.com"}})
	mux.Get("/lessons", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	req := httptest.NewRequest(http.MethodOptions, "/lessons", nil)
	req.Header.Set("Origin", "https://booking.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()

	// when
	mux.ServeHTTP(rr, req)

	// then
	assert.Equal(t, "https://booking.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
}
