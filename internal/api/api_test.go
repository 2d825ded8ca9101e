package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"roomly/internal/config"
	"roomly/internal/database"
	"roomly/internal/models"
	"roomly/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var apiNow = time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, cfg config.APIConfig) (*Server, *database.DB) {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.UpsertRooms(context.Background(), []models.Room{
		{ID: 1, Name: "Aurora", Capacity: 8, IsActive: true, SortOrder: 1},
		{ID: 2, Name: "Borealis", Capacity: 4, IsActive: true, SortOrder: 2},
	}))

	svc := service.NewBookingService(db, db, nil, nil, logger, 0)
	svc.SetClock(func() time.Time { return apiNow })

	return NewServer(cfg, svc, logger), db
}

func bookingPayload(roomID int64, start, end time.Time) string {
	return fmt.Sprintf(`{
		"room_id": %d,
		"user_email": "alice@example.com",
		"title": "Planning",
		"start": %q,
		"end": %q,
		"remind_me": true
	}`, roomID, start.Format(time.RFC3339), end.Format(time.RFC3339))
}

func doRequest(srv *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestCreateBookingEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, config.APIConfig{})

	start := apiNow.Add(2 * time.Hour)
	rec := doRequest(srv, http.MethodPost, "/api/v1/bookings", bookingPayload(1, start, start.Add(time.Hour)), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created models.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Aurora", created.RoomName)
	assert.Equal(t, models.StatusConfirmed, created.Status)
}

func TestCreateBookingConflictReturns409(t *testing.T) {
	srv, _ := newTestServer(t, config.APIConfig{})

	start := apiNow.Add(2 * time.Hour)
	rec := doRequest(srv, http.MethodPost, "/api/v1/bookings", bookingPayload(1, start, start.Add(time.Hour)), nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(srv, http.MethodPost, "/api/v1/bookings", bookingPayload(1, start.Add(30*time.Minute), start.Add(90*time.Minute)), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already booked")
}

func TestCreateBookingValidation(t *testing.T) {
	srv, _ := newTestServer(t, config.APIConfig{})

	rec := doRequest(srv, http.MethodPost, "/api/v1/bookings", `{"room_id": 1}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(srv, http.MethodPost, "/api/v1/bookings", "{not json", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// End before start survives DTO validation but fails the interval check.
	start := apiNow.Add(2 * time.Hour)
	rec = doRequest(srv, http.MethodPost, "/api/v1/bookings", bookingPayload(1, start, start.Add(-time.Hour)), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCreateBookingPastStart(t *testing.T) {
	srv, _ := newTestServer(t, config.APIConfig{})

	start := apiNow.Add(-time.Hour)
	rec := doRequest(srv, http.MethodPost, "/api/v1/bookings", bookingPayload(1, start, start.Add(time.Hour)), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGetBookingEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, config.APIConfig{})

	start := apiNow.Add(2 * time.Hour)
	rec := doRequest(srv, http.MethodPost, "/api/v1/bookings", bookingPayload(1, start, start.Add(time.Hour)), nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doRequest(srv, http.MethodGet, "/api/v1/bookings/"+created.ID, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/api/v1/bookings/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateBookingEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, config.APIConfig{})

	start := apiNow.Add(2 * time.Hour)
	rec := doRequest(srv, http.MethodPost, "/api/v1/bookings", bookingPayload(1, start, start.Add(time.Hour)), nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	newStart := start.Add(3 * time.Hour)
	update := fmt.Sprintf(`{
		"room_id": 1,
		"title": "Planning (moved)",
		"start": %q,
		"end": %q,
		"version": %d
	}`, newStart.Format(time.RFC3339), newStart.Add(time.Hour).Format(time.RFC3339), created.Version)

	rec = doRequest(srv, http.MethodPut, "/api/v1/bookings/"+created.ID, update, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated models.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Planning (moved)", updated.Title)
	assert.Greater(t, updated.Version, created.Version)

	// A second update with the original version must be rejected as stale.
	rec = doRequest(srv, http.MethodPut, "/api/v1/bookings/"+created.ID, update, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCancelBookingFreesSlot(t *testing.T) {
	srv, _ := newTestServer(t, config.APIConfig{})

	start := apiNow.Add(2 * time.Hour)
	rec := doRequest(srv, http.MethodPost, "/api/v1/bookings", bookingPayload(1, start, start.Add(time.Hour)), nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doRequest(srv, http.MethodDelete, "/api/v1/bookings/"+created.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// The same slot can be rebooked now.
	rec = doRequest(srv, http.MethodPost, "/api/v1/bookings", bookingPayload(1, start, start.Add(time.Hour)), nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestAvailabilityEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, config.APIConfig{})

	start := apiNow.Add(2 * time.Hour)
	rec := doRequest(srv, http.MethodPost, "/api/v1/bookings", bookingPayload(2, start, start.Add(time.Hour)), nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	url := fmt.Sprintf("/api/v1/availability?start=%s&end=%s",
		start.Format(time.RFC3339), start.Add(time.Hour).Format(time.RFC3339))
	rec = doRequest(srv, http.MethodGet, url, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Rooms []service.RoomAvailability `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Rooms, 2)

	byID := map[int64]service.RoomAvailability{}
	for _, entry := range resp.Rooms {
		byID[entry.Room.ID] = entry
	}
	assert.True(t, byID[1].Available)
	assert.False(t, byID[2].Available)
	assert.Equal(t, models.AvailabilityReasonBooked, byID[2].Reason)
}

func TestAvailabilityRequiresTimes(t *testing.T) {
	srv, _ := newTestServer(t, config.APIConfig{})

	rec := doRequest(srv, http.MethodGet, "/api/v1/availability", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthRequiredWhenEnabled(t *testing.T) {
	cfg := config.APIConfig{
		Auth: config.APIAuthConfig{
			Enabled:      true,
			HeaderAPIKey: "x-api-key",
			APIKeys: []config.APIClientKey{
				{Key: "secret-1", Name: "calendar-sync", Permissions: []string{permReadAvailability}},
			},
		},
	}
	srv, _ := newTestServer(t, cfg)

	url := fmt.Sprintf("/api/v1/availability?start=%s&end=%s",
		apiNow.Add(time.Hour).Format(time.RFC3339), apiNow.Add(2*time.Hour).Format(time.RFC3339))

	rec := doRequest(srv, http.MethodGet, url, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(srv, http.MethodGet, url, "", map[string]string{"x-api-key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(srv, http.MethodGet, url, "", map[string]string{"x-api-key": "secret-1"})
	assert.Equal(t, http.StatusOK, rec.Code)

	// The key is scoped to availability reads only.
	start := apiNow.Add(2 * time.Hour)
	rec = doRequest(srv, http.MethodPost, "/api/v1/bookings", bookingPayload(1, start, start.Add(time.Hour)),
		map[string]string{"x-api-key": "secret-1"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHealthSkipsAuth(t *testing.T) {
	cfg := config.APIConfig{
		Auth: config.APIAuthConfig{
			Enabled: true,
			APIKeys: []config.APIClientKey{{Key: "secret-1"}},
		},
	}
	srv, _ := newTestServer(t, cfg)

	rec := doRequest(srv, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoutePatternBoundsLabelSet(t *testing.T) {
	assert.Equal(t, "/api/v1/bookings/{id}", routePattern("/api/v1/bookings/6e3c9b3e-7f2a-4d4e-9a3f-2c1d0e9f8a7b"))
	assert.Equal(t, "/api/v1/bookings/{id}", routePattern("/api/v1/bookings/other-id"))
	assert.Equal(t, "/api/v1/bookings", routePattern("/api/v1/bookings"))
	assert.Equal(t, "/api/v1/availability", routePattern("/api/v1/availability"))
	assert.Equal(t, "/healthz", routePattern("/healthz"))
	assert.Equal(t, "other", routePattern("/favicon.ico"))
}

func TestRateLimitExceeded(t *testing.T) {
	cfg := config.APIConfig{
		RateLimit: config.APIRateLimitConfig{RPS: 1, Burst: 2},
	}
	srv, _ := newTestServer(t, cfg)

	var limited bool
	for i := 0; i < 5; i++ {
		rec := doRequest(srv, http.MethodGet, "/api/v1/bookings/nope", "", nil)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	assert.True(t, limited)
}
