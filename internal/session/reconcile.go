package session

import (
	"context"

	"github.com/Temutjin2k/ride-hail-driver/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-driver/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-hail-driver/pkg/logger/wrapper"
)

// Resync asks the backend for its view of this driver and reconciles local
// state once the answer arrives.
func (s *Session) Resync(ctx context.Context) error {
	const op = "Session.Resync"

	return s.do(ctx, types.ActionReconcile, func(ctx context.Context) error {
		if !s.connected {
			return s.reject(ctx, op, types.ErrDisconnected)
		}
		if s.reconciling {
			return nil
		}
		s.startReconcile(ctx)
		return nil
	})
}

// startReconcile sends session.sync and blocks commands until session.state
// arrives. The request is repeated every confirm timeout.
func (s *Session) startReconcile(ctx context.Context) {
	ctx = wrap.WithAction(ctx, types.ActionReconcile)
	s.reconciling = true

	req := models.SyncRequestMessage{DriverID: s.cfg.DriverID}
	if s.ride != nil {
		req.RideID = s.ride.ID
	}
	if s.offer != nil {
		req.OfferID = s.offer.OfferID
		if req.RideID == "" {
			req.RideID = s.offer.RideID
		}
	}
	if err := s.send(ctx, types.MsgSessionSync, req); err != nil {
		s.l.Warn(ctx, "sync request not delivered, will retry", "error", err.Error())
	}

	s.sched.After(timerReconcile, s.cfg.ConfirmTimeout, func() {
		s.post(s.onReconcileTimeout)
	})
}

func (s *Session) onReconcileTimeout(ctx context.Context) {
	if !s.reconciling || !s.connected {
		return
	}
	e := s.newEvent(types.EventConnectionError)
	e.Reason = "state sync timeout"
	s.emit(ctx, e)

	s.startReconcile(ctx)
}

// applyServerState replaces local offer and ride with the server's view.
// Unsolicited state is ignored.
func (s *Session) applyServerState(ctx context.Context, m models.SessionStateMessage) {
	ctx = wrap.WithAction(ctx, types.ActionReconcile)

	if !s.reconciling {
		s.l.Debug(ctx, "unsolicited session state ignored")
		return
	}
	s.reconciling = false
	s.sched.Cancel(timerReconcile)

	s.reconcileOffer(ctx, m)
	s.reconcileRide(ctx, m)

	// a server offer is only worth holding when nothing else is going on
	if m.Offer != nil && s.offer == nil && s.ride == nil && s.availability == types.Online {
		s.receiveOffer(ctx, *m.Offer)
	}

	switch {
	case s.availability == types.Online:
		s.reassertPresence(ctx, types.MsgDriverOnline)
	case s.availability == types.Offline && m.Availability != "" && m.Availability != types.Offline:
		s.reassertPresence(ctx, types.MsgDriverOffline)
	}

	s.emit(ctx, s.newEvent(types.EventStateReconciled))
	s.l.Info(ctx, "session state reconciled", "availability", s.availability, "server_availability", m.Availability)
}

func (s *Session) reconcileOffer(ctx context.Context, m models.SessionStateMessage) {
	if s.offer == nil {
		return
	}
	ctx = wrap.WithRideID(ctx, s.offer.RideID)

	switch {
	case m.Ride != nil && m.Ride.RideID == s.offer.RideID:
		if s.ride != nil {
			s.forceCancel(ctx, "ride no longer active")
		}
		s.confirmAssignment(ctx, *m.Ride)
	case m.Offer != nil && m.Offer.RideID == s.offer.RideID:
		// both sides agree, keep the local countdown
	case s.offer.Phase == types.OfferAwaitingConfirmation:
		s.failAssignment(ctx, "offer no longer available")
	default:
		rideID := s.offer.RideID
		s.resolveOffer()
		e := s.newEvent(types.EventOfferExpired)
		e.RideID = rideID
		s.emit(ctx, e)
	}
}

func (s *Session) reconcileRide(ctx context.Context, m models.SessionStateMessage) {
	serverStatus := m.RideStatus
	if serverStatus == "" {
		serverStatus = types.RideAssigned
	}

	if s.ride != nil && (m.Ride == nil || m.Ride.RideID != s.ride.ID) {
		s.forceCancel(wrap.WithRideID(ctx, s.ride.ID), "ride no longer active")
	}

	if m.Ride == nil {
		return
	}
	ctx = wrap.WithRideID(ctx, m.Ride.RideID)

	if s.ride == nil {
		if serverStatus.IsTerminal() {
			return
		}
		if s.availability == types.Offline {
			s.offlineAfterRide = true
		}
		s.ride = rideFromDetails(*m.Ride, serverStatus, s.clock.Now())
		s.enterBusy(ctx)

		e := s.newEvent(types.EventAssignmentConfirmed)
		e.RideID = s.ride.ID
		ride := *s.ride
		e.Ride = &ride
		s.emit(ctx, e)
		s.l.Info(ctx, "ride adopted from server", "status", serverStatus)
		return
	}

	switch {
	case serverStatus == types.RideCancelled:
		s.forceCancel(ctx, "cancelled while disconnected")
	case serverStatus == types.RideCompleted:
		s.terminateRide(ctx, types.RideCompleted, "", true)
	case serverStatus.Rank() > s.ride.Status.Rank():
		s.catchUp(ctx, serverStatus)
	case serverStatus.Rank() < s.ride.Status.Rank():
		// the local command was lost, replay it
		if err := s.send(ctx, commandFor[s.ride.Status], models.RideCommandMessage{RideID: s.ride.ID}); err != nil {
			s.l.Warn(ctx, "status replay not delivered", "status", s.ride.Status, "error", err.Error())
		}
	}
}

func (s *Session) reassertPresence(ctx context.Context, msgType types.MessageType) {
	if err := s.send(ctx, msgType, s.presence()); err != nil {
		s.l.Warn(ctx, "presence not delivered", "type", msgType, "error", err.Error())
	}
}
