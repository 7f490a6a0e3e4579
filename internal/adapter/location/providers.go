package location

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Temutjin2k/ride-hail-driver/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-driver/internal/domain/types"
)

var (
	ErrInvalidCoordinates = errors.New("coordinates out of range")
	ErrUnknownMode        = errors.New("unknown location mode")
)

const (
	// max drift per sample, about 55 m
	walkStep        = 0.0005
	simAccuracy     = 5.0
	deviceMaxAge    = 2 * time.Minute
	defaultAccuracy = 10.0
)

// Provider is satisfied by every location source.
type Provider interface {
	Current() (models.LocationSample, bool)
}

// New builds the provider for mode starting at lat/lon.
func New(mode types.LocationMode, lat, lon float64, clock clockwork.Clock) (Provider, error) {
	if !ValidCoordinates(lat, lon) {
		return nil, fmt.Errorf("%w: %f,%f", ErrInvalidCoordinates, lat, lon)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	switch mode {
	case types.LocationStatic:
		return NewStatic(lat, lon, clock), nil
	case types.LocationSimulated:
		return NewSimulated(lat, lon, clock, nil), nil
	case types.LocationDevice:
		return NewTracker(clock, deviceMaxAge), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}

// Static always reports the same position.
type Static struct {
	lat, lon float64
	clock    clockwork.Clock
}

func NewStatic(lat, lon float64, clock clockwork.Clock) *Static {
	return &Static{lat: lat, lon: lon, clock: clock}
}

func (s *Static) Current() (models.LocationSample, bool) {
	return models.LocationSample{
		Latitude:       s.lat,
		Longitude:      s.lon,
		AccuracyMeters: simAccuracy,
		Timestamp:      s.clock.Now(),
	}, true
}

// Simulated drifts by a small random step on every read.
type Simulated struct {
	mu       sync.Mutex
	lat, lon float64
	last     time.Time
	rnd      *rand.Rand
	clock    clockwork.Clock
}

// NewSimulated starts a random walk at lat/lon. A nil rnd uses a random seed.
func NewSimulated(lat, lon float64, clock clockwork.Clock, rnd *rand.Rand) *Simulated {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Simulated{lat: lat, lon: lon, rnd: rnd, clock: clock, last: clock.Now()}
}

func (s *Simulated) Current() (models.LocationSample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	lat := clamp(s.lat+(s.rnd.Float64()-0.5)*walkStep, -90, 90)
	lon := clamp(s.lon+(s.rnd.Float64()-0.5)*walkStep, -180, 180)

	sample := models.LocationSample{
		Latitude:       lat,
		Longitude:      lon,
		AccuracyMeters: simAccuracy,
		HeadingDegrees: Bearing(s.lat, s.lon, lat, lon),
		Timestamp:      now,
	}
	if elapsed := now.Sub(s.last); elapsed > 0 {
		sample.SpeedKmh = HaversineDistance(s.lat, s.lon, lat, lon) / elapsed.Hours()
	}

	s.lat, s.lon, s.last = lat, lon, now
	return sample, true
}

// Tracker holds the last fix pushed by the device. Fixes older than maxAge
// are not reported.
type Tracker struct {
	mu     sync.RWMutex
	last   models.LocationSample
	ok     bool
	maxAge time.Duration
	clock  clockwork.Clock
}

func NewTracker(clock clockwork.Clock, maxAge time.Duration) *Tracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Tracker{clock: clock, maxAge: maxAge}
}

// Update records a new fix. A zero timestamp means now.
func (t *Tracker) Update(sample models.LocationSample) error {
	if !ValidCoordinates(sample.Latitude, sample.Longitude) {
		return fmt.Errorf("%w: %f,%f", ErrInvalidCoordinates, sample.Latitude, sample.Longitude)
	}
	if sample.Timestamp.IsZero() {
		sample.Timestamp = t.clock.Now()
	}
	if sample.AccuracyMeters <= 0 {
		sample.AccuracyMeters = defaultAccuracy
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ok && sample.Timestamp.Before(t.last.Timestamp) {
		// out-of-order fix
		return nil
	}
	t.last = sample
	t.ok = true
	return nil
}

func (t *Tracker) Current() (models.LocationSample, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.ok {
		return models.LocationSample{}, false
	}
	if t.maxAge > 0 && t.clock.Since(t.last.Timestamp) > t.maxAge {
		return models.LocationSample{}, false
	}
	return t.last, true
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
