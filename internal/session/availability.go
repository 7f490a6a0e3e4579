package session

import (
	"context"
	"fmt"

	"github.com/Temutjin2k/ride-hail-driver/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-driver/internal/domain/types"
	"github.com/Temutjin2k/ride-hail-driver/pkg/metrics"
)

// GoOnline makes the driver eligible for offers and starts telemetry.
// Already Online is a no-op; Busy is an invalid transition.
func (s *Session) GoOnline(ctx context.Context) error {
	const op = "Session.GoOnline"

	return s.do(ctx, types.ActionGoOnline, func(ctx context.Context) error {
		switch s.availability {
		case types.Online:
			return nil
		case types.Busy:
			return s.reject(ctx, op, fmt.Errorf("%w: %s -> %s", types.ErrInvalidTransition, types.Busy, types.Online))
		}
		if err := s.guard(); err != nil {
			return s.reject(ctx, op, err)
		}

		if err := s.send(ctx, types.MsgDriverOnline, s.presence()); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		now := s.clock.Now()
		s.summary = models.SessionSummary{OnlineSince: &now}
		s.setAvailability(ctx, types.Online)
		s.startTelemetry()

		s.l.Info(ctx, "driver is online")
		return nil
	})
}

// GoOffline stops telemetry and implicitly declines a held offer. It is
// rejected while the driver is on a ride.
func (s *Session) GoOffline(ctx context.Context) error {
	const op = "Session.GoOffline"

	return s.do(ctx, types.ActionGoOffline, func(ctx context.Context) error {
		switch s.availability {
		case types.Offline:
			return nil
		case types.Busy:
			return s.reject(ctx, op, types.ErrDriverBusy)
		}
		if s.reconciling {
			return s.reject(ctx, op, types.ErrReconciling)
		}

		if s.offer != nil {
			s.dropOffer(ctx, types.DeclineDriverOffline)
		}

		if s.connected {
			// offline is unilateral, a lost presence message is only logged
			if err := s.send(ctx, types.MsgDriverOffline, s.presence()); err != nil {
				s.l.Warn(ctx, "offline presence not delivered", "error", err.Error())
			}
		}

		s.stopTelemetry()
		s.setAvailability(ctx, types.Offline)

		s.l.Info(ctx, "driver is offline")
		return nil
	})
}

// SetOfflineAfterRide asks the session to go Offline instead of Online when
// the current ride ends.
func (s *Session) SetOfflineAfterRide(ctx context.Context, enabled bool) error {
	return s.do(ctx, types.ActionGoOffline, func(ctx context.Context) error {
		s.offlineAfterRide = enabled
		s.l.Debug(ctx, "offline after ride updated", "enabled", enabled)
		return nil
	})
}

// enterBusy is called only when an assignment becomes an active ride.
func (s *Session) enterBusy(ctx context.Context) {
	if s.availability == types.Busy {
		return
	}
	if s.availability == types.Offline {
		// adopted from the server while locally offline
		s.startTelemetry()
	}
	s.setAvailability(ctx, types.Busy)
}

// exitBusy is called only when the active ride reaches a terminal status.
func (s *Session) exitBusy(ctx context.Context) {
	if s.availability != types.Busy {
		return
	}

	if s.offlineAfterRide {
		s.offlineAfterRide = false
		if s.connected {
			if err := s.send(ctx, types.MsgDriverOffline, s.presence()); err != nil {
				s.l.Warn(ctx, "offline presence not delivered", "error", err.Error())
			}
		}
		s.stopTelemetry()
		s.setAvailability(ctx, types.Offline)
		return
	}

	s.setAvailability(ctx, types.Online)
}

func (s *Session) setAvailability(ctx context.Context, to types.Availability) {
	if s.availability == to {
		return
	}
	from := s.availability
	s.availability = to

	metrics.SetAvailability(string(to), string(types.Offline), string(types.Online), string(types.Busy))
	s.l.Debug(ctx, "availability changed", "from", from, "to", to)

	e := s.newEvent(types.EventAvailabilityChanged)
	e.Availability = to
	s.emit(ctx, e)
}

func (s *Session) presence() models.PresenceMessage {
	msg := models.PresenceMessage{DriverID: s.cfg.DriverID}
	if s.locations != nil {
		if sample, ok := s.locations.Current(); ok {
			msg.Location = &models.Location{Latitude: sample.Latitude, Longitude: sample.Longitude}
		}
	}
	return msg
}
