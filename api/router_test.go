package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error { return p.err }

func newTestRouter(health Pinger, origins []string) (*gin.Engine, *MockTripUseCase, *MockReservationUseCase) {
	gin.SetMode(gin.TestMode)
	tripsSvc := &MockTripUseCase{}
	ticketsSvc := &MockReservationUseCase{}
	r := NewRouter(RouterConfig{
		Trips:          tripsSvc,
		Tickets:        ticketsSvc,
		Health:         health,
		AllowedOrigins: origins,
	})
	return r, tripsSvc, ticketsSvc
}

func TestRouter_Health(t *testing.T) {
	r, _, _ := newTestRouter(stubPinger{}, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_HealthUnavailable(t *testing.T) {
	r, _, _ := newTestRouter(stubPinger{err: errors.New("connection refused")}, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouter_NoRoute(t *testing.T) {
	r, _, _ := newTestRouter(nil, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "route not found")
}

func TestRouter_RequestIDPropagates(t *testing.T) {
	r, _, _ := newTestRouter(nil, nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
}

func TestRouter_OpenAPIDocument(t *testing.T) {
	r, _, _ := newTestRouter(nil, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/docs/openapi.json", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/tickets/{ref}/pay")
}

func TestRouter_CORS(t *testing.T) {
	r, _, _ := newTestRouter(nil, []string{"https://app.example.com"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/tickets", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouter_TicketRoutes(t *testing.T) {
	r, _, ticketsSvc := newTestRouter(nil, nil)

	ticketsSvc.On("GetTicket", mock.Anything, "a1b2c3d4").Return(newTestTicket(domain.TicketStatusPending), nil)
	ticketsSvc.On("PayTicket", mock.Anything, "a1b2c3d4").Return(newTestTicket(domain.TicketStatusPaid), nil)
	ticketsSvc.On("CancelTicket", mock.Anything, "a1b2c3d4").Return(newTestTicket(domain.TicketStatusCancelled), nil)

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/tickets/a1b2c3d4"},
		{http.MethodPost, "/tickets/a1b2c3d4/pay"},
		{http.MethodPost, "/tickets/a1b2c3d4/cancel"},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusOK, w.Code, tc.path)
	}

	ticketsSvc.AssertExpectations(t)
}

func TestRouter_TripCreateAliases(t *testing.T) {
	r, tripsSvc, _ := newTestRouter(nil, nil)

	tripsSvc.On("Create", mock.Anything, mock.Anything).Return(&domain.Trip{ID: 1, Origin: "A", Destination: "B", DepartAt: testDepart, Capacity: 2, SeatsAvailable: 2}, nil)

	for _, path := range []string{"/trips", "/trips/create"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"origin":"A","destination":"B","depart_at":"2026-07-01T09:30:00Z","capacity":2}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusCreated, w.Code, path)
	}

	tripsSvc.AssertNumberOfCalls(t, "Create", 2)
}
