package session

import (
	"context"
	"fmt"

	"github.com/Temutjin2k/ride-hail-driver/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-driver/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-hail-driver/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-hail-driver/pkg/metrics"
)

// Accept answers the held offer. The offer stays visible in the
// AWAITING_CONFIRMATION phase until the server confirms or rejects it.
// Repeated calls for an offer that is already answered are no-ops.
func (s *Session) Accept(ctx context.Context, rideID string) error {
	const op = "Session.Accept"
	ctx = wrap.WithRideID(ctx, rideID)

	return s.do(ctx, types.ActionOfferAccept, func(ctx context.Context) error {
		if s.offer == nil || s.offer.RideID != rideID {
			if s.resolved.has(rideID) {
				return nil
			}
			return s.reject(ctx, op, types.ErrOfferNotFound)
		}
		if s.offer.Phase == types.OfferAwaitingConfirmation {
			return nil
		}
		if err := s.guard(); err != nil {
			return s.reject(ctx, op, err)
		}

		if err := s.send(ctx, types.MsgRideAccept, models.OfferResponseMessage{
			RideID:  s.offer.RideID,
			OfferID: s.offer.OfferID,
		}); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		s.sched.Cancel(timerOfferExpiry)
		s.offer.Phase = types.OfferAwaitingConfirmation
		s.sched.After(timerConfirm, s.cfg.ConfirmTimeout, func() {
			s.post(func(ctx context.Context) { s.onConfirmTimeout(ctx, rideID) })
		})
		metrics.OffersTotal.WithLabelValues(metrics.OfferAccepted).Inc()

		s.l.Info(ctx, "offer accepted, waiting for confirmation")
		return nil
	})
}

// Decline rejects the held offer. It is unilateral: the offer is cleared even
// if the decline message cannot be delivered.
func (s *Session) Decline(ctx context.Context, rideID, reason string) error {
	const op = "Session.Decline"
	ctx = wrap.WithRideID(ctx, rideID)

	return s.do(ctx, types.ActionOfferDecline, func(ctx context.Context) error {
		if s.offer == nil || s.offer.RideID != rideID {
			if s.resolved.has(rideID) {
				return nil
			}
			return s.reject(ctx, op, types.ErrOfferNotFound)
		}
		if s.offer.Phase == types.OfferAwaitingConfirmation {
			// accept already issued for this offer
			return nil
		}
		if s.reconciling {
			return s.reject(ctx, op, types.ErrReconciling)
		}

		s.declineOffer(ctx, reason)
		s.resolveOffer()
		metrics.OffersTotal.WithLabelValues(metrics.OfferDeclined).Inc()

		s.l.Info(ctx, "offer declined", "reason", reason)
		return nil
	})
}

// receiveOffer holds a new offer and starts its countdown. Offers that cannot
// be held are declined straight away.
func (s *Session) receiveOffer(ctx context.Context, m models.RideOfferMessage) {
	ctx = wrap.WithOfferID(wrap.WithRideID(wrap.WithAction(ctx, types.ActionOfferReceived), m.RideID), m.OfferID)

	if s.offer != nil && s.offer.RideID == m.RideID {
		s.l.Debug(ctx, "duplicate offer ignored")
		return
	}

	var reason string
	switch {
	case s.availability == types.Offline:
		reason = types.DeclineDriverOffline
	case s.availability != types.Online:
		reason = types.DeclineDriverUnavailable
	case s.offer != nil:
		reason = types.DeclineOfferAlreadyPending
	}
	if reason != "" {
		s.l.Warn(ctx, "offer cannot be held, declining", "reason", reason, "availability", s.availability)
		metrics.OffersTotal.WithLabelValues(metrics.OfferRejected).Inc()
		if s.connected {
			if err := s.sendQuiet(ctx, types.MsgRideDecline, models.OfferResponseMessage{
				RideID:  m.RideID,
				OfferID: m.OfferID,
				Reason:  reason,
			}); err != nil {
				s.l.Warn(ctx, "decline for unheld offer not delivered", "error", err.Error())
			}
		}
		return
	}

	// the server may legitimately re-offer a ride this driver let expire
	s.resolved.remove(m.RideID)
	s.timedOut.remove(m.RideID)

	now := s.clock.Now()
	timeout := s.cfg.OfferTimeout
	if !m.ExpiresAt.IsZero() {
		left := m.ExpiresAt.Sub(now)
		if left <= 0 {
			s.l.Info(ctx, "offer arrived after its deadline, dropped", "expired_ago", (-left).String())
			if s.connected {
				if err := s.sendQuiet(ctx, types.MsgRideDecline, models.OfferResponseMessage{
					RideID:  m.RideID,
					OfferID: m.OfferID,
					Reason:  types.DeclineExpired,
				}); err != nil {
					s.l.Warn(ctx, "decline for expired offer not delivered", "error", err.Error())
				}
			}
			s.resolved.add(m.RideID)
			metrics.OffersTotal.WithLabelValues(metrics.OfferExpired).Inc()

			e := s.newEvent(types.EventOfferExpired)
			e.RideID = m.RideID
			s.emit(ctx, e)
			return
		}
		if left < timeout {
			timeout = left
		}
	}

	s.offer = &models.RideOffer{
		RideID:               m.RideID,
		OfferID:              m.OfferID,
		RideNumber:           m.RideNumber,
		Passenger:            m.Passenger,
		Pickup:               m.PickupLocation,
		Dropoff:              m.DropoffLocation,
		EstimatedFare:        m.EstimatedFare,
		EstimatedDistanceKm:  m.EstimatedDistanceKm,
		EstimatedDurationMin: m.EstimatedDurationMin,
		Phase:                types.OfferPending,
		CreatedAt:            now,
		ExpiresAt:            now.Add(timeout),
	}

	rideID := m.RideID
	s.sched.After(timerOfferExpiry, timeout, func() {
		s.post(func(ctx context.Context) { s.onOfferExpired(ctx, rideID) })
	})
	metrics.OffersTotal.WithLabelValues(metrics.OfferReceived).Inc()

	e := s.newEvent(types.EventOfferReceived)
	e.RideID = rideID
	offer := *s.offer
	e.Offer = &offer
	s.emit(ctx, e)

	s.l.Info(ctx, "offer received", "expires_in", timeout.String())
}

func (s *Session) onOfferExpired(ctx context.Context, rideID string) {
	ctx = wrap.WithRideID(wrap.WithAction(ctx, types.ActionOfferExpired), rideID)

	if s.offer == nil || s.offer.RideID != rideID || s.offer.Phase != types.OfferPending {
		return
	}

	if s.connected {
		s.declineOffer(ctx, types.DeclineExpired)
	}
	s.resolveOffer()
	metrics.OffersTotal.WithLabelValues(metrics.OfferExpired).Inc()

	e := s.newEvent(types.EventOfferExpired)
	e.RideID = rideID
	s.emit(ctx, e)

	s.l.Info(ctx, "offer expired")
}

func (s *Session) onConfirmTimeout(ctx context.Context, rideID string) {
	ctx = wrap.WithRideID(wrap.WithAction(ctx, types.ActionOfferAccept), rideID)

	if s.offer == nil || s.offer.RideID != rideID || s.offer.Phase != types.OfferAwaitingConfirmation {
		return
	}
	// the server must release the ride: a confirmation may still be in flight
	if s.connected {
		s.declineOffer(ctx, types.DeclineConfirmationTimeout)
	}
	s.timedOut.add(rideID)
	s.failAssignment(ctx, "confirmation timeout")
}

// releaseLateAssignment cancels a ride the server confirmed after the local
// confirmation window closed. The driver was already told the assignment
// failed, so the ride is handed back instead of adopted.
func (s *Session) releaseLateAssignment(ctx context.Context, rideID string) {
	s.timedOut.remove(rideID)
	s.l.Warn(ctx, "late confirmation for a timed out offer, releasing ride")

	if err := s.sendQuiet(ctx, types.MsgRideCancel, models.RideCommandMessage{
		RideID: rideID,
		Reason: types.DeclineConfirmationTimeout,
	}); err != nil {
		s.l.Warn(ctx, "release of late assignment not delivered", "error", err.Error())
	}
}

// confirmAssignment turns the accepted offer into the active ride.
func (s *Session) confirmAssignment(ctx context.Context, m models.RideDetailsMessage) {
	s.resolveOffer()
	s.ride = rideFromDetails(m, types.RideAssigned, s.clock.Now())
	s.enterBusy(ctx)
	metrics.OffersTotal.WithLabelValues(metrics.OfferConfirmed).Inc()

	e := s.newEvent(types.EventAssignmentConfirmed)
	e.RideID = m.RideID
	ride := *s.ride
	e.Ride = &ride
	s.emit(ctx, e)

	s.l.Info(ctx, "assignment confirmed")
}

// failAssignment clears the held offer and reports why it did not become a ride.
func (s *Session) failAssignment(ctx context.Context, reason string) {
	rideID := s.offer.RideID
	s.resolveOffer()
	metrics.OffersTotal.WithLabelValues(metrics.OfferFailed).Inc()

	e := s.newEvent(types.EventAssignmentFailed)
	e.RideID = rideID
	e.Reason = reason
	s.emit(ctx, e)

	s.l.Info(ctx, "assignment failed", "reason", reason)
}

// dropOffer discards the held offer because the driver left Online.
func (s *Session) dropOffer(ctx context.Context, reason string) {
	if s.connected {
		s.declineOffer(ctx, reason)
	}
	if s.offer.Phase == types.OfferAwaitingConfirmation {
		s.failAssignment(ctx, "driver went offline")
		return
	}
	s.resolveOffer()
	metrics.OffersTotal.WithLabelValues(metrics.OfferDeclined).Inc()
}

func (s *Session) declineOffer(ctx context.Context, reason string) {
	if err := s.send(ctx, types.MsgRideDecline, models.OfferResponseMessage{
		RideID:  s.offer.RideID,
		OfferID: s.offer.OfferID,
		Reason:  reason,
	}); err != nil {
		s.l.Warn(ctx, "decline not delivered", "error", err.Error())
	}
}

// resolveOffer clears the held offer and its timers. Each offer is resolved
// exactly once.
func (s *Session) resolveOffer() {
	s.sched.Cancel(timerOfferExpiry)
	s.sched.Cancel(timerConfirm)
	s.resolved.add(s.offer.RideID)
	s.offer = nil
}
