package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Temutjin2k/ride-hail-driver/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-driver/internal/domain/types"
	"github.com/Temutjin2k/ride-hail-driver/internal/events"
	"github.com/Temutjin2k/ride-hail-driver/internal/scheduler"
	"github.com/Temutjin2k/ride-hail-driver/pkg/logger"
	wrap "github.com/Temutjin2k/ride-hail-driver/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-hail-driver/pkg/metrics"
)

// Scheduler task names
const (
	timerOfferExpiry = "offer_expiry"
	timerConfirm     = "offer_confirm"
	timerTelemetry   = "telemetry"
	timerReconcile   = "reconcile"
)

const (
	opsBuffer         = 64
	resolvedOfferRing = 32
)

type Config struct {
	DriverID          string
	OfferTimeout      time.Duration
	ConfirmTimeout    time.Duration
	TelemetryInterval time.Duration
}

func (c *Config) withDefaults() {
	if c.OfferTimeout <= 0 {
		c.OfferTimeout = 30 * time.Second
	}
	if c.ConfirmTimeout <= 0 {
		c.ConfirmTimeout = 15 * time.Second
	}
	if c.TelemetryInterval <= 0 {
		c.TelemetryInterval = 10 * time.Second
	}
}

// Session is the driver-side matching session. All state below the ops
// channel is owned by the goroutine running Run; everything else reaches it by
// posting closures.
type Session struct {
	cfg       Config
	transport Transport
	locations LocationProvider
	events    *events.Dispatcher
	sched     *scheduler.Scheduler
	clock     clockwork.Clock
	l         logger.Logger

	ops       chan func(ctx context.Context)
	done      chan struct{}
	closeOnce sync.Once
	snap      atomic.Pointer[models.Snapshot]

	availability     types.Availability
	offer            *models.RideOffer
	resolved         *offerRing
	timedOut         *offerRing
	ride             *models.ActiveRide
	lastErr          string
	connected        bool
	reconciling      bool
	offlineAfterRide bool
	summary          models.SessionSummary
}

// New creates a session in the Offline state. The transport is assumed to be
// connected and authenticated already. A nil clock means the wall clock.
func New(cfg Config, transport Transport, locations LocationProvider, dispatcher *events.Dispatcher, clock clockwork.Clock, l logger.Logger) *Session {
	cfg.withDefaults()
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if dispatcher == nil {
		dispatcher = events.NewDispatcher()
	}

	s := &Session{
		cfg:          cfg,
		transport:    transport,
		locations:    locations,
		events:       dispatcher,
		sched:        scheduler.New(clock),
		clock:        clock,
		l:            l,
		ops:          make(chan func(ctx context.Context), opsBuffer),
		done:         make(chan struct{}),
		availability: types.Offline,
		resolved:     newOfferRing(resolvedOfferRing),
		timedOut:     newOfferRing(resolvedOfferRing),
		connected:    true,
	}
	s.publishSnapshot()
	metrics.SetAvailability(string(types.Offline), string(types.Online), string(types.Busy))

	return s
}

// Run processes commands, inbound messages and timer callbacks until ctx is
// done or Close is called.
func (s *Session) Run(ctx context.Context) error {
	ctx = wrap.WithDriverID(ctx, s.cfg.DriverID)
	inbound := s.transport.Inbound()

	for {
		select {
		case <-ctx.Done():
			s.l.Info(wrap.WithAction(ctx, types.ActionSessionShutdown), "session loop stopped", "reason", ctx.Err().Error())
			return nil
		case <-s.done:
			return nil
		case op := <-s.ops:
			select {
			case <-s.done:
				return nil
			default:
			}
			op(ctx)
		case msg, ok := <-inbound:
			if !ok {
				// transport is gone for good, commands keep working on local state
				inbound = nil
				s.onTransportDisconnected(ctx, models.TransportStatusMessage{Error: "transport closed"})
			} else {
				s.handleInbound(ctx, msg)
			}
		}
		s.publishSnapshot()
	}
}

// Close stops timers, closes every event subscription and makes further
// commands fail with ErrSessionClosed.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.sched.Stop()
		s.events.Close()
	})
}

// Snapshot returns the latest published state. It never blocks.
func (s *Session) Snapshot() models.Snapshot {
	return *s.snap.Load()
}

// Subscribe registers an event observer.
func (s *Session) Subscribe(name string, buffer int) *events.Subscription {
	return s.events.Subscribe(name, buffer)
}

// do runs fn on the session goroutine and waits for its result.
func (s *Session) do(ctx context.Context, action string, fn func(ctx context.Context) error) error {
	ctx = wrap.WithAction(ctx, action)
	res := make(chan error, 1)

	op := func(_ context.Context) {
		err := fn(ctx)
		if err != nil {
			s.lastErr = err.Error()
		} else {
			s.lastErr = ""
		}
		s.publishSnapshot()
		res <- err
	}

	select {
	case <-s.done:
		return types.ErrSessionClosed
	default:
	}

	select {
	case s.ops <- op:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return types.ErrSessionClosed
	}

	select {
	case err := <-res:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return types.ErrSessionClosed
	}
}

// post queues fn without waiting. Used by timers and tickers.
func (s *Session) post(fn func(ctx context.Context)) {
	select {
	case s.ops <- fn:
	case <-s.done:
	}
}

// reject logs an invalid-state error and wraps it for the caller.
func (s *Session) reject(ctx context.Context, op string, err error) error {
	s.l.Warn(ctx, "command rejected", "op", op, "reason", err.Error())
	return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
}

// guard rejects commands while the transport cannot be trusted.
func (s *Session) guard() error {
	if !s.connected {
		return types.ErrDisconnected
	}
	if s.reconciling {
		return types.ErrReconciling
	}
	return nil
}

// send delivers a message and reports failures as a CONNECTION_ERROR event.
func (s *Session) send(ctx context.Context, msgType types.MessageType, payload any) error {
	if err := s.sendQuiet(ctx, msgType, payload); err != nil {
		s.l.Error(ctx, "failed to send message", err, "type", msgType)
		metrics.ConnectionErrorsTotal.Inc()

		e := s.newEvent(types.EventConnectionError)
		e.Reason = err.Error()
		s.emit(ctx, e)
		return wrap.Error(ctx, fmt.Errorf("send %s: %w", msgType, err))
	}
	return nil
}

func (s *Session) sendQuiet(ctx context.Context, msgType types.MessageType, payload any) error {
	err := s.transport.Send(ctx, msgType, payload)
	metrics.RecordTransport("out", msgType.String(), err)
	return err
}

func (s *Session) newEvent(kind types.EventKind) models.Event {
	return models.NewEvent(kind, s.clock.Now())
}

func (s *Session) emit(ctx context.Context, e models.Event) {
	s.l.Debug(ctx, "session event", "kind", e.Kind, "ride_id", e.RideID, "reason", e.Reason)
	s.events.Publish(e)
}

func (s *Session) publishSnapshot() {
	snap := &models.Snapshot{
		DriverID:         s.cfg.DriverID,
		Availability:     s.availability,
		LastError:        s.lastErr,
		Connected:        s.connected,
		Reconciling:      s.reconciling,
		OfflineAfterRide: s.offlineAfterRide,
		Summary:          s.summary,
	}
	if s.offer != nil {
		offer := *s.offer
		snap.Offer = &offer
	}
	if s.ride != nil {
		ride := *s.ride
		snap.Ride = &ride
	}
	s.snap.Store(snap)
}

// IsInvalidState reports whether err is a synchronous rejection that left the
// session untouched.
func IsInvalidState(err error) bool {
	return errors.Is(err, types.ErrInvalidTransition) ||
		errors.Is(err, types.ErrDriverBusy) ||
		errors.Is(err, types.ErrOfferNotFound) ||
		errors.Is(err, types.ErrNoActiveRide) ||
		errors.Is(err, types.ErrDisconnected) ||
		errors.Is(err, types.ErrReconciling)
}

// offerRing remembers recently resolved offer ids so duplicate taps can be
// told apart from ids that were never offered.
type offerRing struct {
	ids  []string
	next int
}

func newOfferRing(size int) *offerRing {
	return &offerRing{ids: make([]string, size)}
}

func (r *offerRing) add(id string) {
	r.ids[r.next] = id
	r.next = (r.next + 1) % len(r.ids)
}

func (r *offerRing) has(id string) bool {
	if id == "" {
		return false
	}
	for _, v := range r.ids {
		if v == id {
			return true
		}
	}
	return false
}

func (r *offerRing) remove(id string) {
	for i, v := range r.ids {
		if v == id {
			r.ids[i] = ""
		}
	}
}
