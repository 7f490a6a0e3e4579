package session

import (
	"context"
	"fmt"
	"time"

	"github.com/Temutjin2k/ride-hail-driver/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-driver/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-hail-driver/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-hail-driver/pkg/metrics"
)

// forward holds the only status each status may advance to.
var forward = map[types.RideStatus]types.RideStatus{
	types.RideAssigned:        types.RideArrivedAtPickup,
	types.RideArrivedAtPickup: types.RideInProgress,
	types.RideInProgress:      types.RideCompleted,
}

// commandFor maps a target status to the message announcing it.
var commandFor = map[types.RideStatus]types.MessageType{
	types.RideArrivedAtPickup: types.MsgRideArrived,
	types.RideInProgress:      types.MsgRideStart,
	types.RideCompleted:       types.MsgRideComplete,
	types.RideCancelled:       types.MsgRideCancel,
}

func canTransition(from, to types.RideStatus) bool {
	if from.IsTerminal() {
		return false
	}
	if to == types.RideCancelled {
		return true
	}
	return forward[from] == to
}

func (s *Session) ArrivedAtPickup(ctx context.Context) error {
	return s.advance(ctx, "Session.ArrivedAtPickup", types.RideArrivedAtPickup, "")
}

func (s *Session) StartRide(ctx context.Context) error {
	return s.advance(ctx, "Session.StartRide", types.RideInProgress, "")
}

func (s *Session) CompleteRide(ctx context.Context) error {
	return s.advance(ctx, "Session.CompleteRide", types.RideCompleted, "")
}

// CancelRide cancels the active ride from the driver side.
func (s *Session) CancelRide(ctx context.Context, reason string) error {
	return s.advance(ctx, "Session.CancelRide", types.RideCancelled, reason)
}

// advance sends the status command and moves the ride forward without waiting
// for a server acknowledgement.
func (s *Session) advance(ctx context.Context, op string, to types.RideStatus, reason string) error {
	return s.do(ctx, types.ActionRideTransition, func(ctx context.Context) error {
		if s.ride == nil {
			return s.reject(ctx, op, types.ErrNoActiveRide)
		}
		ctx = wrap.WithRideID(ctx, s.ride.ID)

		if !canTransition(s.ride.Status, to) {
			return s.reject(ctx, op, fmt.Errorf("%w: %s -> %s", types.ErrInvalidTransition, s.ride.Status, to))
		}
		if err := s.guard(); err != nil {
			return s.reject(ctx, op, err)
		}

		if err := s.send(ctx, commandFor[to], models.RideCommandMessage{
			RideID: s.ride.ID,
			Reason: reason,
		}); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if to.IsTerminal() {
			s.terminateRide(ctx, to, reason, false)
			return nil
		}
		s.setRideStatus(ctx, to)
		return nil
	})
}

// forceCancel applies a server-side cancellation. It always wins over local
// optimistic state.
func (s *Session) forceCancel(ctx context.Context, reason string) {
	ctx = wrap.WithAction(ctx, types.ActionRideCancelled)
	s.terminateRide(ctx, types.RideCancelled, reason, true)
}

func (s *Session) setRideStatus(ctx context.Context, to types.RideStatus) {
	from := s.ride.Status
	s.ride.Status = to
	s.ride.Stamp(to, s.clock.Now())

	e := s.newEvent(types.EventRideStatusChanged)
	e.RideID = s.ride.ID
	e.Status = to
	s.emit(ctx, e)

	s.l.Info(ctx, "ride status changed", "from", from, "to", to)
}

// terminateRide clears the active ride slot and leaves Busy. byServer selects
// RIDE_CANCELLED over RIDE_STATUS_CHANGED.
func (s *Session) terminateRide(ctx context.Context, status types.RideStatus, reason string, byServer bool) {
	ride := s.ride
	ride.Status = status
	ride.Stamp(status, s.clock.Now())
	if status == types.RideCancelled {
		ride.CancellationReason = reason
	}
	s.ride = nil

	switch status {
	case types.RideCompleted:
		s.summary.RidesCompleted++
		s.summary.Earnings += ride.Price
	case types.RideCancelled:
		s.summary.RidesCancelled++
	}
	metrics.RidesTotal.WithLabelValues(status.String()).Inc()

	kind := types.EventRideStatusChanged
	if byServer && status == types.RideCancelled {
		kind = types.EventRideCancelled
	}
	e := s.newEvent(kind)
	e.RideID = ride.ID
	e.Status = status
	e.Reason = reason
	e.Ride = ride
	s.emit(ctx, e)

	s.l.Info(ctx, "ride finished", "status", status, "reason", reason, "by_server", byServer)

	s.exitBusy(ctx)
}

func rideFromDetails(m models.RideDetailsMessage, status types.RideStatus, now time.Time) *models.ActiveRide {
	ride := &models.ActiveRide{
		ID:         m.RideID,
		RideNumber: m.RideNumber,
		Passenger:  m.Passenger,
		Pickup:     m.PickupLocation,
		Dropoff:    m.DropoffLocation,
		Price:      m.Price,
		Status:     types.RideAssigned,
		AssignedAt: now,
	}
	// stamp every status passed through when adopting a ride mid-way
	for ride.Status != status && !ride.Status.IsTerminal() {
		next, ok := forward[ride.Status]
		if !ok {
			break
		}
		ride.Status = next
		ride.Stamp(next, now)
	}
	return ride
}
