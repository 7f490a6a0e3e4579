package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/ride-hail-driver/internal/adapter/location"
	"github.com/Temutjin2k/ride-hail-driver/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-driver/internal/domain/types"
	"github.com/Temutjin2k/ride-hail-driver/pkg/logger"
)

type call struct {
	name string
	args []any
}

type fakeService struct {
	calls []call
	err   error
	snap  models.Snapshot
}

func (f *fakeService) record(name string, args ...any) error {
	f.calls = append(f.calls, call{name: name, args: args})
	return f.err
}

func (f *fakeService) Snapshot() models.Snapshot { return f.snap }
func (f *fakeService) GoOnline(context.Context) error {
	return f.record("GoOnline")
}
func (f *fakeService) GoOffline(context.Context) error {
	return f.record("GoOffline")
}
func (f *fakeService) SetOfflineAfterRide(_ context.Context, enabled bool) error {
	return f.record("SetOfflineAfterRide", enabled)
}
func (f *fakeService) Accept(_ context.Context, rideID string) error {
	return f.record("Accept", rideID)
}
func (f *fakeService) Decline(_ context.Context, rideID, reason string) error {
	return f.record("Decline", rideID, reason)
}
func (f *fakeService) ArrivedAtPickup(context.Context) error {
	return f.record("ArrivedAtPickup")
}
func (f *fakeService) StartRide(context.Context) error {
	return f.record("StartRide")
}
func (f *fakeService) CompleteRide(context.Context) error {
	return f.record("CompleteRide")
}
func (f *fakeService) CancelRide(_ context.Context, reason string) error {
	return f.record("CancelRide", reason)
}
func (f *fakeService) Resync(context.Context) error {
	return f.record("Resync")
}

func testLogger() logger.Logger {
	return logger.New(io.Discard, "test", logger.LevelError)
}

func newSessionMux(svc SessionService) *http.ServeMux {
	h := NewSession(svc, testLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /session", h.GetSnapshot)
	mux.HandleFunc("POST /session/online", h.GoOnline)
	mux.HandleFunc("POST /session/offline-after-ride", h.SetOfflineAfterRide)
	mux.HandleFunc("POST /offers/{ride_id}/accept", h.AcceptOffer)
	mux.HandleFunc("POST /offers/{ride_id}/decline", h.DeclineOffer)
	mux.HandleFunc("POST /ride/complete", h.CompleteRide)
	mux.HandleFunc("POST /ride/cancel", h.CancelRide)
	return mux
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSession_CommandReturnsSnapshot(t *testing.T) {
	svc := &fakeService{snap: models.Snapshot{DriverID: "d-1", Availability: types.Online, Connected: true}}
	mux := newSessionMux(svc)

	rec := do(t, mux, http.MethodPost, "/session/online", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []call{{name: "GoOnline"}}, svc.calls)

	var snap models.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Equal(t, types.Online, snap.Availability)
	require.Equal(t, "d-1", snap.DriverID)
}

func TestSession_ErrorCodes(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{types.ErrOfferNotFound, http.StatusNotFound},
		{types.ErrNoActiveRide, http.StatusNotFound},
		{types.ErrInvalidTransition, http.StatusConflict},
		{types.ErrDriverBusy, http.StatusConflict},
		{types.ErrDisconnected, http.StatusServiceUnavailable},
		{types.ErrReconciling, http.StatusServiceUnavailable},
		{types.ErrSessionClosed, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			svc := &fakeService{err: fmt.Errorf("Session.CompleteRide: %w", tt.err)}
			rec := do(t, newSessionMux(svc), http.MethodPost, "/ride/complete", "")
			require.Equal(t, tt.code, rec.Code)
			require.Contains(t, rec.Body.String(), tt.err.Error())
		})
	}
}

func TestSession_AcceptValidatesRideID(t *testing.T) {
	svc := &fakeService{}
	mux := newSessionMux(svc)

	rec := do(t, mux, http.MethodPost, "/offers/ride-42/accept", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []call{{name: "Accept", args: []any{"ride-42"}}}, svc.calls)

	rec = do(t, mux, http.MethodPost, "/offers/%24bad%21/accept", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Len(t, svc.calls, 1)
}

func TestSession_DeclineReason(t *testing.T) {
	svc := &fakeService{}
	mux := newSessionMux(svc)

	rec := do(t, mux, http.MethodPost, "/offers/42/decline", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, mux, http.MethodPost, "/offers/42/decline", `{"reason":"too far"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Equal(t, []call{
		{name: "Decline", args: []any{"42", "declined_by_driver"}},
		{name: "Decline", args: []any{"42", "too far"}},
	}, svc.calls)

	rec = do(t, mux, http.MethodPost, "/offers/42/decline", `{"reason":"`+strings.Repeat("x", 201)+`"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, mux, http.MethodPost, "/offers/42/decline", `{"why":"x"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Len(t, svc.calls, 2)
}

func TestSession_CancelRide(t *testing.T) {
	svc := &fakeService{}
	rec := do(t, newSessionMux(svc), http.MethodPost, "/ride/cancel", `{"reason":"passenger no-show"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []call{{name: "CancelRide", args: []any{"passenger no-show"}}}, svc.calls)
}

func TestSession_OfflineAfterRide(t *testing.T) {
	svc := &fakeService{}
	mux := newSessionMux(svc)

	rec := do(t, mux, http.MethodPost, "/session/offline-after-ride", `{}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, mux, http.MethodPost, "/session/offline-after-ride", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, mux, http.MethodPost, "/session/offline-after-ride", `{"enabled":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []call{{name: "SetOfflineAfterRide", args: []any{true}}}, svc.calls)
}

type fakeTracker struct {
	got []models.LocationSample
	err error
}

func (f *fakeTracker) Update(s models.LocationSample) error {
	f.got = append(f.got, s)
	return f.err
}

func TestLocation_Update(t *testing.T) {
	tracker := &fakeTracker{}
	h := NewLocation(tracker, testLogger())

	rec := do(t, http.HandlerFunc(h.UpdateLocation), http.MethodPut, "/location", `{"latitude":43.2,"longitude":76.9,"speed_kmh":30}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, tracker.got, 1)
	require.Equal(t, 43.2, tracker.got[0].Latitude)
	require.True(t, tracker.got[0].Timestamp.IsZero())

	rec = do(t, http.HandlerFunc(h.UpdateLocation), http.MethodPut, "/location", `{"latitude":95,"longitude":76.9}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, http.HandlerFunc(h.UpdateLocation), http.MethodPut, "/location", `{"longitude":76.9}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Len(t, tracker.got, 1)
}

func TestLocation_TrackerError(t *testing.T) {
	tracker := &fakeTracker{err: fmt.Errorf("wrapped: %w", location.ErrInvalidCoordinates)}
	h := NewLocation(tracker, testLogger())

	rec := do(t, http.HandlerFunc(h.UpdateLocation), http.MethodPut, "/location", `{"latitude":1,"longitude":2}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestLocation_NotDeviceMode(t *testing.T) {
	h := NewLocation(nil, testLogger())

	rec := do(t, http.HandlerFunc(h.UpdateLocation), http.MethodPut, "/location", `{"latitude":1,"longitude":2}`)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestHealth_ReportsConnection(t *testing.T) {
	snap := models.Snapshot{DriverID: "d-1"}
	h := NewHealth("driver-session", func() models.Snapshot { return snap }, testLogger())

	rec := do(t, http.HandlerFunc(h.HealthCheck), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "degraded", body["status"])
	require.Equal(t, false, body["connected"])

	snap.Connected = true
	rec = do(t, http.HandlerFunc(h.HealthCheck), http.MethodGet, "/health", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "available", body["status"])
}
