package session

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/ride-hail-driver/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-driver/internal/domain/types"
)

func TestRide_NoActiveRide(t *testing.T) {
	h := newHarness(t)
	h.goOnline(t)

	require.ErrorIs(t, h.s.ArrivedAtPickup(h.ctx), types.ErrNoActiveRide)
	require.ErrorIs(t, h.s.CancelRide(h.ctx, "x"), types.ErrNoActiveRide)
}

func TestRide_ForwardOnly(t *testing.T) {
	h := newHarness(t)
	h.assign(t, "42")

	err := h.s.StartRide(h.ctx)
	require.ErrorIs(t, err, types.ErrInvalidTransition)
	require.ErrorIs(t, h.s.CompleteRide(h.ctx), types.ErrInvalidTransition)
	require.Equal(t, types.RideAssigned, h.s.Snapshot().Ride.Status)
	require.Empty(t, h.tr.sentOf(types.MsgRideStart))

	require.NoError(t, h.s.ArrivedAtPickup(h.ctx))
	require.ErrorIs(t, h.s.ArrivedAtPickup(h.ctx), types.ErrInvalidTransition)
	require.Equal(t, types.RideArrivedAtPickup, h.s.Snapshot().Ride.Status)
}

func TestRide_StatusUpdateNeverRegresses(t *testing.T) {
	h := newHarness(t)
	h.assign(t, "42")
	require.NoError(t, h.s.ArrivedAtPickup(h.ctx))
	require.NoError(t, h.s.StartRide(h.ctx))
	h.drain()

	h.deliver(t, types.MsgRideStatusUpdate, models.RideStatusMessage{RideID: "42", Status: types.RideArrivedAtPickup})
	require.Zero(t, count(h.drain(), types.EventRideStatusChanged))
	require.Equal(t, types.RideInProgress, h.s.Snapshot().Ride.Status)
}

func TestRide_StatusUpdateCatchesUp(t *testing.T) {
	h := newHarness(t)
	h.assign(t, "42")

	h.deliver(t, types.MsgRideStatusUpdate, models.RideStatusMessage{RideID: "42", Status: types.RideInProgress})
	require.Eventually(t, func() bool {
		r := h.s.Snapshot().Ride
		return r != nil && r.Status == types.RideInProgress
	}, waitFor, tick)

	ride := h.s.Snapshot().Ride
	require.NotNil(t, ride.ArrivedAt)
	require.NotNil(t, ride.StartedAt)
	require.Equal(t, 2, count(h.drain(), types.EventRideStatusChanged))
}

func TestRide_StatusUpdateCompleted(t *testing.T) {
	h := newHarness(t)
	h.assign(t, "42")
	require.NoError(t, h.s.ArrivedAtPickup(h.ctx))
	require.NoError(t, h.s.StartRide(h.ctx))

	h.deliver(t, types.MsgRideStatusUpdate, models.RideStatusMessage{RideID: "42", Status: types.RideCompleted})
	require.Eventually(t, func() bool { return h.s.Snapshot().Availability == types.Online }, waitFor, tick)
	require.Nil(t, h.s.Snapshot().Ride)
	require.Equal(t, 1, h.s.Snapshot().Summary.RidesCompleted)
}

func TestRide_ServerCancelWinsInEveryStatus(t *testing.T) {
	steps := map[types.RideStatus]func(h *harness) error{
		types.RideAssigned: func(*harness) error { return nil },
		types.RideArrivedAtPickup: func(h *harness) error {
			return h.s.ArrivedAtPickup(h.ctx)
		},
		types.RideInProgress: func(h *harness) error {
			if err := h.s.ArrivedAtPickup(h.ctx); err != nil {
				return err
			}
			return h.s.StartRide(h.ctx)
		},
	}

	for status, step := range steps {
		t.Run(status.String(), func(t *testing.T) {
			h := newHarness(t)
			h.assign(t, "42")
			require.NoError(t, step(h))

			h.deliver(t, types.MsgRideCancelled, models.ReasonMessage{RideID: "42", Reason: "dispatcher override"})
			e := h.expect(t, types.EventRideCancelled)
			require.Equal(t, "dispatcher override", e.Reason)
			require.NotNil(t, e.Ride)
			require.NotNil(t, e.Ride.CancelledAt)

			require.Eventually(t, func() bool { return h.s.Snapshot().Availability == types.Online }, waitFor, tick)
			require.Nil(t, h.s.Snapshot().Ride)
		})
	}
}

func TestRide_StatusUpdateCancelled(t *testing.T) {
	h := newHarness(t)
	h.assign(t, "42")

	h.deliver(t, types.MsgRideStatusUpdate, models.RideStatusMessage{RideID: "42", Status: types.RideCancelled, Reason: "fraud check"})
	e := h.expect(t, types.EventRideCancelled)
	require.Equal(t, "fraud check", e.Reason)
}

func TestRide_CancelForOtherRideIgnored(t *testing.T) {
	h := newHarness(t)
	h.assign(t, "42")

	h.deliver(t, types.MsgRideCancelled, models.ReasonMessage{RideID: "99", Reason: "wrong ride"})
	require.Zero(t, count(h.drain(), types.EventRideCancelled))
	require.NotNil(t, h.s.Snapshot().Ride)
}

func TestRide_DriverCancel(t *testing.T) {
	h := newHarness(t)
	h.assign(t, "42")

	require.NoError(t, h.s.CancelRide(h.ctx, "car broke down"))
	cancels := h.tr.sentOf(types.MsgRideCancel)
	require.Len(t, cancels, 1)
	require.Equal(t, "car broke down", cancels[0].Payload.(models.RideCommandMessage).Reason)

	e := h.expect(t, types.EventRideStatusChanged)
	require.Equal(t, types.RideCancelled, e.Status)

	snap := h.s.Snapshot()
	require.Nil(t, snap.Ride)
	require.Equal(t, types.Online, snap.Availability)
	require.Equal(t, 1, snap.Summary.RidesCancelled)
}

func TestRide_SendFailureKeepsStatus(t *testing.T) {
	h := newHarness(t)
	h.assign(t, "42")

	h.tr.setFail(errLinkDown)
	require.ErrorIs(t, h.s.ArrivedAtPickup(h.ctx), errLinkDown)
	require.Equal(t, types.RideAssigned, h.s.Snapshot().Ride.Status)
	h.expect(t, types.EventConnectionError)
}

func TestBusy_GoOfflineRejected(t *testing.T) {
	h := newHarness(t)
	h.assign(t, "42")

	err := h.s.GoOffline(h.ctx)
	require.ErrorIs(t, err, types.ErrDriverBusy)
	require.ErrorIs(t, h.s.GoOnline(h.ctx), types.ErrInvalidTransition)
	require.Equal(t, types.Busy, h.s.Snapshot().Availability)
	require.Empty(t, h.tr.sentOf(types.MsgDriverOffline))
}

func TestBusy_OfferDeclinedAsUnavailable(t *testing.T) {
	h := newHarness(t)
	h.assign(t, "42")

	h.deliver(t, types.MsgRideOffer, offerMsg("43"))
	require.Eventually(t, func() bool { return len(h.tr.sentOf(types.MsgRideDecline)) == 1 }, waitFor, tick)
	require.Nil(t, h.s.Snapshot().Offer)
}

func TestBusy_OfflineAfterRide(t *testing.T) {
	h := newHarness(t)
	h.assign(t, "42")
	require.NoError(t, h.s.SetOfflineAfterRide(h.ctx, true))
	require.True(t, h.s.Snapshot().OfflineAfterRide)

	require.NoError(t, h.s.CancelRide(h.ctx, "end of shift"))

	snap := h.s.Snapshot()
	require.Equal(t, types.Offline, snap.Availability)
	require.False(t, snap.OfflineAfterRide)
	require.Len(t, h.tr.sentOf(types.MsgDriverOffline), 1)
}
