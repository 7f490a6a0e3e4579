package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Temutjin2k/ride-hail-driver/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-driver/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-hail-driver/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-hail-driver/pkg/metrics"
)

func decode[T any](msg models.Message) (T, error) {
	var v T
	if len(msg.Data) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(msg.Data, &v); err != nil {
		return v, fmt.Errorf("%w: %s: %v", types.ErrInvalidPayload, msg.Type, err)
	}
	return v, nil
}

// handleInbound routes one message from the backend. Malformed and unknown
// messages are logged and dropped.
func (s *Session) handleInbound(ctx context.Context, msg models.Message) {
	ctx = wrap.WithAction(ctx, types.ActionInboundMessage)

	var err error
	switch msg.Type {
	case types.MsgRideOffer:
		err = handle(msg, func(m models.RideOfferMessage) { s.receiveOffer(ctx, m) })
	case types.MsgRideOfferRejected:
		err = handle(msg, func(m models.ReasonMessage) { s.onOfferRejected(ctx, m) })
	case types.MsgRideAssignedConfirmed:
		err = handle(msg, func(m models.RideDetailsMessage) { s.onAssignmentConfirmed(ctx, m) })
	case types.MsgRideCancelled:
		err = handle(msg, func(m models.ReasonMessage) { s.onRideCancelled(ctx, m) })
	case types.MsgRideStatusUpdate:
		err = handle(msg, func(m models.RideStatusMessage) { s.onRideStatusUpdate(ctx, m) })
	case types.MsgSessionState:
		err = handle(msg, func(m models.SessionStateMessage) { s.applyServerState(ctx, m) })
	case types.MsgTransportDisconnected:
		m, _ := decode[models.TransportStatusMessage](msg)
		s.onTransportDisconnected(ctx, m)
		return
	case types.MsgTransportConnected:
		s.onTransportConnected(ctx)
		return
	default:
		err = fmt.Errorf("%w: %s", types.ErrUnknownMessage, msg.Type)
	}

	metrics.RecordTransport("in", msg.Type.String(), err)
	if err != nil {
		s.l.Warn(ctx, "inbound message dropped", "type", msg.Type, "id", msg.ID, "error", err.Error())
	}
}

func handle[T any](msg models.Message, fn func(T)) error {
	v, err := decode[T](msg)
	if err != nil {
		return err
	}
	fn(v)
	return nil
}

func (s *Session) onOfferRejected(ctx context.Context, m models.ReasonMessage) {
	ctx = wrap.WithRideID(ctx, m.RideID)

	if s.offer == nil || (m.RideID != "" && m.RideID != s.offer.RideID) {
		s.l.Debug(ctx, "rejection for unknown offer ignored")
		return
	}
	s.failAssignment(ctx, m.Reason)
}

func (s *Session) onAssignmentConfirmed(ctx context.Context, m models.RideDetailsMessage) {
	ctx = wrap.WithRideID(ctx, m.RideID)

	if s.offer == nil || s.offer.RideID != m.RideID || s.offer.Phase != types.OfferAwaitingConfirmation {
		if s.timedOut.has(m.RideID) && (s.ride == nil || s.ride.ID != m.RideID) {
			s.releaseLateAssignment(ctx, m.RideID)
			return
		}
		s.l.Warn(ctx, "confirmation for an offer that was not accepted ignored")
		return
	}
	s.confirmAssignment(ctx, m)
}

// onRideCancelled always wins over local state.
func (s *Session) onRideCancelled(ctx context.Context, m models.ReasonMessage) {
	ctx = wrap.WithRideID(ctx, m.RideID)

	switch {
	case s.ride != nil && (m.RideID == "" || m.RideID == s.ride.ID):
		s.forceCancel(wrap.WithRideID(ctx, s.ride.ID), m.Reason)
	case s.offer != nil && m.RideID == s.offer.RideID:
		s.failAssignment(ctx, m.Reason)
	default:
		s.l.Debug(ctx, "cancellation for unknown ride ignored")
	}
}

// onRideStatusUpdate adopts server progress but never moves a ride backwards.
func (s *Session) onRideStatusUpdate(ctx context.Context, m models.RideStatusMessage) {
	ctx = wrap.WithRideID(ctx, m.RideID)

	if s.ride == nil || (m.RideID != "" && m.RideID != s.ride.ID) {
		s.l.Debug(ctx, "status update for unknown ride ignored", "status", m.Status)
		return
	}

	switch {
	case m.Status == types.RideCancelled:
		s.forceCancel(ctx, m.Reason)
	case m.Status.Rank() <= s.ride.Status.Rank():
		s.l.Debug(ctx, "stale status update ignored", "local", s.ride.Status, "remote", m.Status)
	case m.Status == types.RideCompleted:
		s.terminateRide(ctx, types.RideCompleted, m.Reason, true)
	default:
		s.catchUp(ctx, m.Status)
	}
}

// catchUp moves the ride forward to status, stamping every skipped step.
func (s *Session) catchUp(ctx context.Context, status types.RideStatus) {
	for s.ride.Status.Rank() < status.Rank() {
		next, ok := forward[s.ride.Status]
		if !ok || next.IsTerminal() {
			return
		}
		s.setRideStatus(ctx, next)
	}
}

func (s *Session) onTransportDisconnected(ctx context.Context, m models.TransportStatusMessage) {
	ctx = wrap.WithAction(ctx, types.ActionTransportDisconnected)

	if !s.connected {
		return
	}
	s.connected = false
	s.reconciling = false
	s.sched.Cancel(timerReconcile)
	metrics.ConnectionErrorsTotal.Inc()

	reason := m.Error
	if reason == "" {
		reason = "connection lost"
	}
	e := s.newEvent(types.EventConnectionError)
	e.Reason = reason
	s.emit(ctx, e)

	s.l.Warn(ctx, "transport disconnected", "reason", reason)
}

func (s *Session) onTransportConnected(ctx context.Context) {
	ctx = wrap.WithAction(ctx, types.ActionTransportConnected)

	if s.connected {
		return
	}
	s.connected = true
	s.emit(ctx, s.newEvent(types.EventConnectionRestored))
	s.l.Info(ctx, "transport connection restored")

	s.startReconcile(ctx)
}
