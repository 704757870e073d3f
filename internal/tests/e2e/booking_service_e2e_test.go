// Package e2e runs the booking service HTTP API against a MongoDB container.
//
// The suite starts MongoDB with testcontainers-go, applies the embedded migrations
// and serves the real router through httptest. Collections are emptied before each test.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/abgdnv/lessonbooking/internal/booking/app"
	bookingconfig "github.com/abgdnv/lessonbooking/internal/booking/config"
	"github.com/abgdnv/lessonbooking/internal/booking/store"
	"github.com/abgdnv/lessonbooking/pkg/bootstrap"
	"github.com/abgdnv/lessonbooking/pkg/config"
	"github.com/abgdnv/lessonbooking/pkg/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// skipE2ETests is the environment variable that can be set to skip E2E tests.
const skipE2ETests = "BOOKING_SVC_SKIP_E2E_TESTS"

const (
	mongoImg          = "mongo:7.0"
	dbName            = "booking_e2e"
	lessonsCollection = "lessons"
	ordersCollection  = "orders"
)

// BookingServiceE2ESuite exercises the HTTP API end to end.
type BookingServiceE2ESuite struct {
	suite.Suite
	mongoContainer *mongodb.MongoDBContainer
	client         *mongo.Client
	ds             store.DocumentStore
	server         *httptest.Server
	logger         *slog.Logger
	ctx            context.Context
}

func bookingConfig(reserve bool) bookingconfig.BookingConfig {
	return bookingconfig.BookingConfig{
		LessonsCollection: lessonsCollection,
		OrdersCollection:  ordersCollection,
		ReserveSpaces:     reserve,
	}
}

// SetupSuite starts MongoDB, applies migrations and starts the HTTP server.
func (s *BookingServiceE2ESuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var err error
	s.mongoContainer, err = mongodb.Run(s.ctx, mongoImg)
	require.NoError(s.T(), err, "Failed to run MongoDB container")

	uri, err := s.mongoContainer.ConnectionString(s.ctx)
	require.NoError(s.T(), err, "Failed to get connection string from container")

	s.client, err = bootstrap.NewMongoClient(s.ctx, config.MongoConfig{
		Driver:  config.DriverMongo,
		URL:     uri,
		Name:    dbName,
		Timeout: 30 * time.Second,
	})
	require.NoError(s.T(), err, "Failed to connect to MongoDB")

	require.NoError(s.T(), store.Migrate(s.client, dbName, s.logger), "Failed to apply migrations")
	s.ds = store.NewMongoStore(s.client.Database(dbName))

	deps := app.SetupDependencies(s.ds, messaging.NopPublisher{}, bookingConfig(false), s.logger)
	s.server = httptest.NewServer(app.SetupHttpHandler(deps))
	s.logger.Info("E2E test server started", "url", s.server.URL)
}

// TearDownSuite closes the server, the client and the container.
func (s *BookingServiceE2ESuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
	if s.client != nil {
		_ = s.client.Disconnect(s.ctx)
	}
	if s.mongoContainer != nil {
		if err := testcontainers.TerminateContainer(s.mongoContainer); err != nil {
			s.logger.Warn("Failed to terminate E2E MongoDB container", "error", err)
		}
	}
}

// SetupTest empties both collections without dropping them.
func (s *BookingServiceE2ESuite) SetupTest() {
	for _, name := range []string{lessonsCollection, ordersCollection} {
		_, err := s.client.Database(dbName).Collection(name).DeleteMany(s.ctx, bson.M{})
		require.NoError(s.T(), err, "Failed to empty collection %s", name)
	}
}

func TestBookingServiceE2E(t *testing.T) {
	if os.Getenv(skipE2ETests) == "1" {
		t.Skip("Skipping E2E tests based on " + skipE2ETests + " env var")
	}
	suite.Run(t, new(BookingServiceE2ESuite))
}

func (s *BookingServiceE2ESuite) TestCollections_CRUD() {
	// empty collection
	body, status := s.doRequest(http.MethodGet, "/collections/lessons", nil)
	s.Equal(http.StatusNotFound, status)
	s.Equal("No documents found in collection lessons", s.errorMessage(body))

	// create
	id := s.createDocument(lessonsCollection, map[string]any{"subject": "Math", "location": "London", "price": 100, "spaces": 5})

	// read
	lesson, status := s.getDocument(lessonsCollection, id)
	s.Require().Equal(http.StatusOK, status)
	s.Equal(id, lesson["_id"])
	s.Equal("Math", lesson["subject"])

	// update
	body, status = s.doRequest(http.MethodPut, "/collections/lessons/"+id, map[string]any{"location": "Paris"})
	s.Require().Equal(http.StatusOK, status, string(body))
	lesson, _ = s.getDocument(lessonsCollection, id)
	s.Equal("Paris", lesson["location"])
	s.Equal("Math", lesson["subject"])

	// delete
	_, status = s.doRequest(http.MethodDelete, "/collections/lessons/"+id, nil)
	s.Equal(http.StatusOK, status)
	_, status = s.getDocument(lessonsCollection, id)
	s.Equal(http.StatusNotFound, status)
}

func (s *BookingServiceE2ESuite) TestCollections_Errors() {
	testCases := []struct {
		name       string
		method     string
		path       string
		payload    any
		wantStatus int
		wantError  string
	}{
		{
			name:       "unknown collection",
			method:     http.MethodGet,
			path:       "/collections/tutors",
			wantStatus: http.StatusNotFound,
			wantError:  "Collection tutors not found",
		},
		{
			name:       "malformed id",
			method:     http.MethodGet,
			path:       "/collections/lessons/abc",
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid ID: abc",
		},
		{
			name:       "missing document",
			method:     http.MethodDelete,
			path:       "/collections/lessons/665f1c2b9a1e4c0001a1b2c3",
			wantStatus: http.StatusNotFound,
			wantError:  "Document with ID 665f1c2b9a1e4c0001a1b2c3 not found in collection lessons",
		},
		{
			name:       "body with only an id",
			method:     http.MethodPost,
			path:       "/collections/lessons",
			payload:    map[string]any{"_id": "x"},
			wantStatus: http.StatusBadRequest,
			wantError:  "Request body must be a non-empty JSON object",
		},
		{
			name:       "empty body",
			method:     http.MethodPost,
			path:       "/collections/lessons",
			payload:    map[string]any{},
			wantStatus: http.StatusBadRequest,
			wantError:  "Request body must be a non-empty JSON object",
		},
	}
	for _, tc := range testCases {
		s.Run(tc.name, func() {
			body, status := s.doRequest(tc.method, tc.path, tc.payload)
			s.Equal(tc.wantStatus, status)
			s.Equal(tc.wantError, s.errorMessage(body))
		})
	}
}

func (s *BookingServiceE2ESuite) TestCollections_Limited() {
	for _, price := range []int{10, 40, 20, 30} {
		s.createDocument(lessonsCollection, map[string]any{"subject": fmt.Sprintf("S%d", price), "price": price})
	}

	body, status := s.doRequest(http.MethodGet, "/collections/lessons/limited", nil)
	s.Require().Equal(http.StatusOK, status)

	var docs []map[string]any
	s.Require().NoError(json.Unmarshal(body, &docs))
	s.Require().Len(docs, 3)
	s.Equal([]any{float64(40), float64(30), float64(20)}, []any{docs[0]["price"], docs[1]["price"], docs[2]["price"]})
}

func (s *BookingServiceE2ESuite) TestLessons_PartialUpdate() {
	id := s.createDocument(lessonsCollection, map[string]any{"subject": "Math", "spaces": 5})

	body, status := s.doRequest(http.MethodPut, "/lessons/"+id, map[string]any{"spaces": 3})
	s.Require().Equal(http.StatusOK, status, string(body))

	lesson, _ := s.getDocument(lessonsCollection, id)
	s.Equal(float64(3), lesson["spaces"])
	s.Equal("Math", lesson["subject"])

	body, status = s.doRequest(http.MethodGet, "/lessons", nil)
	s.Require().Equal(http.StatusOK, status)
	var lessons []map[string]any
	s.Require().NoError(json.Unmarshal(body, &lessons))
	s.Len(lessons, 1)

	body, status = s.doRequest(http.MethodPut, "/lessons/"+id, map[string]any{"spaces": -1})
	s.Equal(http.StatusBadRequest, status)
	s.Equal("Invalid lesson payload", s.errorMessage(body))
}

func (s *BookingServiceE2ESuite) TestOrders_PlaceAndFetch() {
	body, status := s.doRequest(http.MethodPost, "/orders", map[string]any{
		"name": "Alice", "phone": "12345", "lessonIDs": []string{"a1"}, "spaces": 2,
	})
	s.Require().Equal(http.StatusCreated, status, string(body))

	var created map[string]string
	s.Require().NoError(json.Unmarshal(body, &created))
	orderID := created["insertedId"]
	s.Require().NotEmpty(orderID)

	order, status := s.getDocument(ordersCollection, orderID)
	s.Require().Equal(http.StatusOK, status)
	s.Equal("Alice", order["name"])
	s.Equal("12345", order["phone"])
	s.Equal([]any{"a1"}, order["lessonIDs"])
	s.Equal(float64(2), order["spaces"])

	// replace with the address shape drops the old fields
	body, status = s.doRequest(http.MethodPut, "/order/"+orderID, map[string]any{
		"name": "Alice", "phone": "12345", "address": "1 Main St",
		"lessons": []map[string]any{{"lessonId": "a1", "quantity": 2}},
	})
	s.Require().Equal(http.StatusOK, status, string(body))
	order, _ = s.getDocument(ordersCollection, orderID)
	s.Equal("1 Main St", order["address"])
	s.NotContains(order, "lessonIDs")
}

func (s *BookingServiceE2ESuite) TestOrders_Invalid() {
	body, status := s.doRequest(http.MethodPost, "/orders", map[string]any{"name": "Alice", "lessonIDs": []string{"a1"}, "spaces": 1})
	s.Require().Equal(http.StatusBadRequest, status)

	var resp struct {
		Error            string            `json:"error"`
		ValidationErrors map[string]string `json:"validation_errors"`
	}
	s.Require().NoError(json.Unmarshal(body, &resp))
	s.Equal("Invalid order payload", resp.Error)
	s.Contains(resp.ValidationErrors, "phone")

	_, status = s.doRequest(http.MethodGet, "/collections/orders", nil)
	s.Equal(http.StatusNotFound, status, "rejected orders must not be stored")
}

func (s *BookingServiceE2ESuite) TestOrders_ReserveSpaces() {
	deps := app.SetupDependencies(s.ds, messaging.NopPublisher{}, bookingConfig(true), s.logger)
	srv := httptest.NewServer(app.SetupHttpHandler(deps))
	defer srv.Close()

	lessonID := s.createDocument(lessonsCollection, map[string]any{"subject": "Art", "spaces": 2})
	order := map[string]any{"name": "Bob", "phone": "999", "lessonIDs": []string{lessonID, lessonID}, "spaces": 2}

	// first order takes both spaces
	body, status := s.doRequestTo(srv, http.MethodPost, "/orders", order)
	s.Require().Equal(http.StatusCreated, status, string(body))
	lesson, _ := s.getDocument(lessonsCollection, lessonID)
	s.Equal(float64(0), lesson["spaces"])

	// nothing left
	_, status = s.doRequestTo(srv, http.MethodPost, "/orders", order)
	s.Equal(http.StatusConflict, status)

	// unknown lesson
	order["lessonIDs"] = []string{"a1"}
	_, status = s.doRequestTo(srv, http.MethodPost, "/orders", order)
	s.Equal(http.StatusBadRequest, status)
}

func (s *BookingServiceE2ESuite) TestHealthCheck() {
	_, status := s.doRequest(http.MethodGet, "/healthz", nil)
	s.Equal(http.StatusOK, status)
}

// --------------------------------------------------------------------------
// ------------------------- Helper methods ---------------------------------
// --------------------------------------------------------------------------

func (s *BookingServiceE2ESuite) createDocument(collection string, doc map[string]any) string {
	s.T().Helper()
	body, status := s.doRequest(http.MethodPost, "/collections/"+collection, doc)
	s.Require().Equal(http.StatusCreated, status, string(body))
	var created map[string]string
	s.Require().NoError(json.Unmarshal(body, &created))
	return created["insertedId"]
}

func (s *BookingServiceE2ESuite) getDocument(collection, id string) (map[string]any, int) {
	s.T().Helper()
	body, status := s.doRequest(http.MethodGet, "/collections/"+collection+"/"+id, nil)
	var doc map[string]any
	if status == http.StatusOK {
		s.Require().NoError(json.Unmarshal(body, &doc))
	}
	return doc, status
}

func (s *BookingServiceE2ESuite) errorMessage(body []byte) string {
	s.T().Helper()
	var resp map[string]any
	s.Require().NoError(json.Unmarshal(body, &resp), string(body))
	msg, _ := resp["error"].(string)
	return msg
}

func (s *BookingServiceE2ESuite) doRequest(method, path string, payload any) ([]byte, int) {
	s.T().Helper()
	return s.doRequestTo(s.server, method, path, payload)
}

// doRequestTo sends a JSON request and returns the response body and status code.
func (s *BookingServiceE2ESuite) doRequestTo(srv *httptest.Server, method, path string, payload any) ([]byte, int) {
	s.T().Helper()
	var body io.Reader
	if payload != nil {
		payloadBytes, err := json.Marshal(payload)
		require.NoError(s.T(), err)
		body = bytes.NewBuffer(payloadBytes)
	}

	req, err := http.NewRequestWithContext(s.ctx, method, srv.URL+path, body)
	require.NoError(s.T(), err, "Failed to create HTTP request")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := srv.Client().Do(req)
	require.NoError(s.T(), err, "HTTP request failed")
	defer func() {
		assert.NoError(s.T(), resp.Body.Close())
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err, "Failed to read response body")
	return bodyBytes, resp.StatusCode
}
