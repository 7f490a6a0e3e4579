package handler

import (
	"context"
	"net/http"

	"github.com/Temutjin2k/ride-hail-driver/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/ride-hail-driver/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-driver/pkg/logger"
	wrap "github.com/Temutjin2k/ride-hail-driver/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-hail-driver/pkg/validator"
)

type SessionService interface {
	Snapshot() models.Snapshot
	GoOnline(ctx context.Context) error
	GoOffline(ctx context.Context) error
	SetOfflineAfterRide(ctx context.Context, enabled bool) error
	Accept(ctx context.Context, rideID string) error
	Decline(ctx context.Context, rideID, reason string) error
	ArrivedAtPickup(ctx context.Context) error
	StartRide(ctx context.Context) error
	CompleteRide(ctx context.Context) error
	CancelRide(ctx context.Context, reason string) error
	Resync(ctx context.Context) error
}

type Session struct {
	service SessionService
	l       logger.Logger
}

func NewSession(service SessionService, l logger.Logger) *Session {
	return &Session{
		service: service,
		l:       l,
	}
}

// GetSnapshot godoc
// @Summary      Session snapshot
// @Description  Returns availability, the held offer, the active ride and connection state
// @Tags         Session
// @Produce      json
// @Success      200  {object}  models.Snapshot
// @Security     BearerAuth
// @Router       /session [get]
func (h *Session) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "get_snapshot")

	if err := writeJSON(w, http.StatusOK, h.service.Snapshot(), nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
	}
}

// GoOnline godoc
// @Summary      Go online
// @Tags         Session
// @Produce      json
// @Success      200  {object}  models.Snapshot
// @Failure      409  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Security     BearerAuth
// @Router       /session/online [post]
func (h *Session) GoOnline(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_go_online")
	h.command(ctx, w, r, h.service.GoOnline)
}

// GoOffline godoc
// @Summary      Go offline
// @Tags         Session
// @Produce      json
// @Success      200  {object}  models.Snapshot
// @Failure      409  {object}  map[string]string
// @Security     BearerAuth
// @Router       /session/offline [post]
func (h *Session) GoOffline(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_go_offline")
	h.command(ctx, w, r, h.service.GoOffline)
}

// SetOfflineAfterRide godoc
// @Summary      Go offline when the current ride ends
// @Tags         Session
// @Accept       json
// @Produce      json
// @Param        request  body      dto.OfflineAfterRideReq  true  "flag"
// @Success      200      {object}  models.Snapshot
// @Failure      400      {object}  map[string]string
// @Failure      422      {object}  map[string]string
// @Security     BearerAuth
// @Router       /session/offline-after-ride [post]
func (h *Session) SetOfflineAfterRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_offline_after_ride")

	var req dto.OfflineAfterRideReq
	if err := readJSON(w, r, &req, false); err != nil {
		h.l.Warn(ctx, "failed to read request JSON data", "error", err)
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	h.command(ctx, w, r, func(ctx context.Context) error {
		return h.service.SetOfflineAfterRide(ctx, *req.Enabled)
	})
}

// Resync godoc
// @Summary      Request a state sync from the backend
// @Tags         Session
// @Produce      json
// @Success      200  {object}  models.Snapshot
// @Failure      503  {object}  map[string]string
// @Security     BearerAuth
// @Router       /session/resync [post]
func (h *Session) Resync(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_resync")
	h.command(ctx, w, r, h.service.Resync)
}

// AcceptOffer godoc
// @Summary      Accept the held offer
// @Tags         Offers
// @Produce      json
// @Param        ride_id  path      string  true  "Ride ID"
// @Success      200      {object}  models.Snapshot
// @Failure      404      {object}  map[string]string
// @Failure      409      {object}  map[string]string
// @Security     BearerAuth
// @Router       /offers/{ride_id}/accept [post]
func (h *Session) AcceptOffer(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_accept_offer")

	rideID, ok := h.rideID(w, r)
	if !ok {
		return
	}

	h.command(wrap.WithRideID(ctx, rideID), w, r, func(ctx context.Context) error {
		return h.service.Accept(ctx, rideID)
	})
}

// DeclineOffer godoc
// @Summary      Decline the held offer
// @Tags         Offers
// @Accept       json
// @Produce      json
// @Param        ride_id  path      string          true   "Ride ID"
// @Param        request  body      dto.DeclineReq  false  "reason"
// @Success      200      {object}  models.Snapshot
// @Failure      404      {object}  map[string]string
// @Security     BearerAuth
// @Router       /offers/{ride_id}/decline [post]
func (h *Session) DeclineOffer(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_decline_offer")

	rideID, ok := h.rideID(w, r)
	if !ok {
		return
	}

	var req dto.DeclineReq
	if err := readJSON(w, r, &req, true); err != nil {
		h.l.Warn(ctx, "failed to read request JSON data", "error", err)
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	h.command(wrap.WithRideID(ctx, rideID), w, r, func(ctx context.Context) error {
		return h.service.Decline(ctx, rideID, req.GetReason())
	})
}

// ArrivedAtPickup godoc
// @Summary      Mark arrival at the pickup point
// @Tags         Ride
// @Produce      json
// @Success      200  {object}  models.Snapshot
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Security     BearerAuth
// @Router       /ride/arrived [post]
func (h *Session) ArrivedAtPickup(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_ride_arrived")
	h.command(ctx, w, r, h.service.ArrivedAtPickup)
}

// StartRide godoc
// @Summary      Start the ride
// @Tags         Ride
// @Produce      json
// @Success      200  {object}  models.Snapshot
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Security     BearerAuth
// @Router       /ride/start [post]
func (h *Session) StartRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_ride_start")
	h.command(ctx, w, r, h.service.StartRide)
}

// CompleteRide godoc
// @Summary      Complete the ride
// @Tags         Ride
// @Produce      json
// @Success      200  {object}  models.Snapshot
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Security     BearerAuth
// @Router       /ride/complete [post]
func (h *Session) CompleteRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_ride_complete")
	h.command(ctx, w, r, h.service.CompleteRide)
}

// CancelRide godoc
// @Summary      Cancel the ride
// @Tags         Ride
// @Accept       json
// @Produce      json
// @Param        request  body      dto.CancelRideReq  false  "reason"
// @Success      200      {object}  models.Snapshot
// @Failure      404      {object}  map[string]string
// @Security     BearerAuth
// @Router       /ride/cancel [post]
func (h *Session) CancelRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_ride_cancel")

	var req dto.CancelRideReq
	if err := readJSON(w, r, &req, true); err != nil {
		h.l.Warn(ctx, "failed to read request JSON data", "error", err)
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	h.command(ctx, w, r, func(ctx context.Context) error {
		return h.service.CancelRide(ctx, req.GetReason())
	})
}

// command runs fn and answers with the resulting snapshot.
func (h *Session) command(ctx context.Context, w http.ResponseWriter, r *http.Request, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		code := GetCode(err)
		if code == http.StatusInternalServerError {
			h.l.Error(wrap.ErrorCtx(ctx, err), "session command failed", err, "path", r.URL.Path)
		} else {
			h.l.Warn(ctx, "session command rejected", "path", r.URL.Path, "error", err)
		}
		errorResponse(w, code, err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, h.service.Snapshot(), nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
	}
}

func (h *Session) rideID(w http.ResponseWriter, r *http.Request) (string, bool) {
	rideID := r.PathValue("ride_id")

	v := validator.New()
	dto.ValidateRideID(v, rideID)
	if !v.Valid() {
		h.l.Warn(r.Context(), "invalid ride id", "ride_id", rideID)
		badRequestResponse(w, v.Errors)
		return "", false
	}
	return rideID, true
}
