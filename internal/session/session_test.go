package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/ride-hail-driver/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-driver/internal/domain/types"
	"github.com/Temutjin2k/ride-hail-driver/internal/events"
	"github.com/Temutjin2k/ride-hail-driver/pkg/logger"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
	driver  = "driver-1"
)

var errLinkDown = errors.New("link down")

type sentMsg struct {
	Type    types.MessageType
	Payload any
}

type fakeTransport struct {
	mu   sync.Mutex
	sent []sentMsg
	fail error
	in   chan models.Message
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{in: make(chan models.Message, 16)}
}

func (f *fakeTransport) Send(_ context.Context, msgType types.MessageType, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.sent = append(f.sent, sentMsg{Type: msgType, Payload: payload})
	return nil
}

func (f *fakeTransport) Inbound() <-chan models.Message {
	return f.in
}

func (f *fakeTransport) setFail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = err
}

func (f *fakeTransport) sentOf(msgType types.MessageType) []sentMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMsg
	for _, m := range f.sent {
		if m.Type == msgType {
			out = append(out, m)
		}
	}
	return out
}

type fakeLocations struct {
	mu     sync.Mutex
	sample models.LocationSample
	ok     bool
}

func (f *fakeLocations) set(lat, lon float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sample = models.LocationSample{Latitude: lat, Longitude: lon, Timestamp: time.Now()}
	f.ok = true
}

func (f *fakeLocations) Current() (models.LocationSample, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sample, f.ok
}

type harness struct {
	s         *Session
	tr        *fakeTransport
	locations *fakeLocations
	clock     *clockwork.FakeClock
	sub       *events.Subscription
	ctx       context.Context
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		tr:        newFakeTransport(),
		locations: &fakeLocations{},
		clock:     clockwork.NewFakeClock(),
	}
	h.s = New(Config{
		DriverID:          driver,
		OfferTimeout:      30 * time.Second,
		ConfirmTimeout:    15 * time.Second,
		TelemetryInterval: 10 * time.Second,
	}, h.tr, h.locations, events.NewDispatcher(), h.clock, logger.New(io.Discard, "session-test", logger.LevelError))
	h.sub = h.s.Subscribe("test", 128)

	ctx, cancel := context.WithCancel(context.Background())
	h.ctx = ctx

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.s.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		h.s.Close()
	})
	return h
}

func (h *harness) deliver(t *testing.T, msgType types.MessageType, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	h.tr.in <- models.Message{ID: "m", Type: msgType, Data: data, Timestamp: time.Now()}
}

// expect waits for the next event of kind, skipping any other kinds.
func (h *harness) expect(t *testing.T, kind types.EventKind) models.Event {
	t.Helper()
	timeout := time.After(waitFor)
	for {
		select {
		case e, ok := <-h.sub.Events():
			require.True(t, ok, "subscription closed while waiting for %s", kind)
			if e.Kind == kind {
				return e
			}
		case <-timeout:
			t.Fatalf("no %s event", kind)
		}
	}
}

// drain collects everything published within a short quiet period.
func (h *harness) drain() []models.Event {
	var out []models.Event
	for {
		select {
		case e := <-h.sub.Events():
			out = append(out, e)
		case <-time.After(50 * time.Millisecond):
			return out
		}
	}
}

func count(evts []models.Event, kind types.EventKind) int {
	n := 0
	for _, e := range evts {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// waitTimers blocks until n timers and tickers are registered on the fake clock.
func (h *harness) waitTimers(t *testing.T, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, h.clock.BlockUntilContext(ctx, n))
}

func offerMsg(rideID string) models.RideOfferMessage {
	return models.RideOfferMessage{
		OfferID:              "offer-" + rideID,
		RideID:               rideID,
		RideNumber:           "RIDE-" + rideID,
		Passenger:            models.Passenger{ID: "p-1", Name: "Aida", Rating: 4.9},
		PickupLocation:       models.Location{Latitude: 43.238949, Longitude: 76.889709, Address: "Abay 10"},
		DropoffLocation:      models.Location{Latitude: 43.222015, Longitude: 76.851511, Address: "Dostyk 5"},
		EstimatedFare:        1450,
		EstimatedDistanceKm:  5.2,
		EstimatedDurationMin: 14,
	}
}

func detailsMsg(rideID string) models.RideDetailsMessage {
	o := offerMsg(rideID)
	return models.RideDetailsMessage{
		RideID:          rideID,
		RideNumber:      o.RideNumber,
		Passenger:       o.Passenger,
		PickupLocation:  o.PickupLocation,
		DropoffLocation: o.DropoffLocation,
		Price:           1500,
	}
}

func (h *harness) goOnline(t *testing.T) {
	t.Helper()
	require.NoError(t, h.s.GoOnline(h.ctx))
	h.expect(t, types.EventAvailabilityChanged)
}

func (h *harness) offer(t *testing.T, rideID string) {
	t.Helper()
	h.deliver(t, types.MsgRideOffer, offerMsg(rideID))
	e := h.expect(t, types.EventOfferReceived)
	require.Equal(t, rideID, e.RideID)
}

// assign drives the session from Offline to Busy with an ASSIGNED ride.
func (h *harness) assign(t *testing.T, rideID string) {
	t.Helper()
	h.goOnline(t)
	h.offer(t, rideID)
	require.NoError(t, h.s.Accept(h.ctx, rideID))
	h.deliver(t, types.MsgRideAssignedConfirmed, detailsMsg(rideID))
	h.expect(t, types.EventAssignmentConfirmed)
}

func TestSession_OnlineOfferAcceptConfirm(t *testing.T) {
	h := newHarness(t)

	h.goOnline(t)
	snap := h.s.Snapshot()
	require.Equal(t, types.Online, snap.Availability)
	require.NotNil(t, snap.Summary.OnlineSince)
	require.Len(t, h.tr.sentOf(types.MsgDriverOnline), 1)
	h.waitTimers(t, 1)

	h.offer(t, "42")
	snap = h.s.Snapshot()
	require.NotNil(t, snap.Offer)
	require.Equal(t, "42", snap.Offer.RideID)
	require.Equal(t, types.OfferPending, snap.Offer.Phase)

	require.NoError(t, h.s.Accept(h.ctx, "42"))
	accepts := h.tr.sentOf(types.MsgRideAccept)
	require.Len(t, accepts, 1)
	require.Equal(t, "42", accepts[0].Payload.(models.OfferResponseMessage).RideID)
	require.Equal(t, types.OfferAwaitingConfirmation, h.s.Snapshot().Offer.Phase)

	h.deliver(t, types.MsgRideAssignedConfirmed, detailsMsg("42"))
	e := h.expect(t, types.EventAssignmentConfirmed)
	require.Equal(t, "42", e.RideID)
	require.NotNil(t, e.Ride)

	require.Eventually(t, func() bool { return h.s.Snapshot().Availability == types.Busy }, waitFor, tick)
	snap = h.s.Snapshot()
	require.Nil(t, snap.Offer)
	require.NotNil(t, snap.Ride)
	require.Equal(t, "42", snap.Ride.ID)
	require.Equal(t, types.RideAssigned, snap.Ride.Status)
}

func TestSession_OfferExpires(t *testing.T) {
	h := newHarness(t)
	h.goOnline(t)
	h.offer(t, "42")

	// telemetry ticker plus offer countdown
	h.waitTimers(t, 2)
	h.clock.Advance(29 * time.Second)
	require.NotNil(t, h.s.Snapshot().Offer)

	h.clock.Advance(time.Second)
	e := h.expect(t, types.EventOfferExpired)
	require.Equal(t, "42", e.RideID)

	snap := h.s.Snapshot()
	require.Nil(t, snap.Offer)
	require.Equal(t, types.Online, snap.Availability)

	declines := h.tr.sentOf(types.MsgRideDecline)
	require.Len(t, declines, 1)
	require.Equal(t, types.DeclineExpired, declines[0].Payload.(models.OfferResponseMessage).Reason)
}

func TestSession_FullLifecycle(t *testing.T) {
	h := newHarness(t)
	h.assign(t, "42")

	require.NoError(t, h.s.ArrivedAtPickup(h.ctx))
	require.Equal(t, types.RideArrivedAtPickup, h.s.Snapshot().Ride.Status)
	require.NotNil(t, h.s.Snapshot().Ride.ArrivedAt)

	require.NoError(t, h.s.StartRide(h.ctx))
	require.Equal(t, types.RideInProgress, h.s.Snapshot().Ride.Status)

	require.NoError(t, h.s.CompleteRide(h.ctx))
	snap := h.s.Snapshot()
	require.Nil(t, snap.Ride)
	require.Equal(t, types.Online, snap.Availability)
	require.Equal(t, 1, snap.Summary.RidesCompleted)
	require.InDelta(t, 1500, snap.Summary.Earnings, 0.001)

	require.Len(t, h.tr.sentOf(types.MsgRideArrived), 1)
	require.Len(t, h.tr.sentOf(types.MsgRideStart), 1)
	require.Len(t, h.tr.sentOf(types.MsgRideComplete), 1)

	evts := h.drain()
	require.Equal(t, 3, count(evts, types.EventRideStatusChanged))
}

func TestSession_ServerCancelsRideInProgress(t *testing.T) {
	h := newHarness(t)
	h.assign(t, "42")
	require.NoError(t, h.s.ArrivedAtPickup(h.ctx))
	require.NoError(t, h.s.StartRide(h.ctx))

	h.deliver(t, types.MsgRideCancelled, models.ReasonMessage{Reason: "passenger no-show"})
	e := h.expect(t, types.EventRideCancelled)
	require.Equal(t, "passenger no-show", e.Reason)
	require.Equal(t, "42", e.RideID)
	require.Equal(t, types.RideCancelled, e.Status)

	require.Eventually(t, func() bool { return h.s.Snapshot().Availability == types.Online }, waitFor, tick)
	snap := h.s.Snapshot()
	require.Nil(t, snap.Ride)
	require.Equal(t, 1, snap.Summary.RidesCancelled)
}

func TestClose_CommandsFail(t *testing.T) {
	h := newHarness(t)
	h.s.Close()

	err := h.s.GoOnline(h.ctx)
	require.ErrorIs(t, err, types.ErrSessionClosed)

	_, ok := <-h.sub.Events()
	require.False(t, ok)
}

func TestUnknownMessage_Ignored(t *testing.T) {
	h := newHarness(t)
	h.goOnline(t)

	h.deliver(t, types.MessageType("ride.teleport"), map[string]string{"to": "moon"})
	h.tr.in <- models.Message{Type: types.MsgRideOffer, Data: json.RawMessage(`{"ride_id":`)}

	require.Empty(t, h.drain())
	require.Nil(t, h.s.Snapshot().Offer)
	require.NoError(t, h.s.GoOffline(h.ctx))
}

func TestOfferRing(t *testing.T) {
	r := newOfferRing(2)
	r.add("a")
	r.add("b")
	require.True(t, r.has("a"))
	r.add("c")
	require.False(t, r.has("a"))
	require.True(t, r.has("b"))
	r.remove("b")
	require.False(t, r.has("b"))
	require.False(t, r.has(""))
}
