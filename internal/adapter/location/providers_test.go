package location

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/ride-hail-driver/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-driver/internal/domain/types"
)

func TestNew(t *testing.T) {
	clock := clockwork.NewFakeClock()

	for _, mode := range []types.LocationMode{types.LocationStatic, types.LocationSimulated, types.LocationDevice} {
		p, err := New(mode, 43.2, 76.9, clock)
		require.NoError(t, err, mode)
		require.NotNil(t, p)
	}

	_, err := New("gps", 43.2, 76.9, clock)
	require.ErrorIs(t, err, ErrUnknownMode)

	_, err = New(types.LocationStatic, 91, 0, clock)
	require.ErrorIs(t, err, ErrInvalidCoordinates)
}

func TestStatic(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewStatic(43.2, 76.9, clock)

	got, ok := s.Current()
	require.True(t, ok)
	require.Equal(t, 43.2, got.Latitude)
	require.Equal(t, 76.9, got.Longitude)
	require.Equal(t, clock.Now(), got.Timestamp)
}

func TestSimulated_StaysClose(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewSimulated(43.238949, 76.889709, clock, rand.New(rand.NewPCG(1, 2)))

	prev := models.LocationSample{Latitude: 43.238949, Longitude: 76.889709}
	for range 20 {
		clock.Advance(10 * time.Second)
		got, ok := s.Current()
		require.True(t, ok)
		require.Less(t, HaversineDistance(prev.Latitude, prev.Longitude, got.Latitude, got.Longitude), 0.1)
		require.GreaterOrEqual(t, got.HeadingDegrees, 0.0)
		require.Less(t, got.HeadingDegrees, 360.0)
		require.GreaterOrEqual(t, got.SpeedKmh, 0.0)
		prev = got
	}
}

func TestTracker(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tr := NewTracker(clock, time.Minute)

	_, ok := tr.Current()
	require.False(t, ok)

	require.ErrorIs(t, tr.Update(models.LocationSample{Latitude: 100}), ErrInvalidCoordinates)

	require.NoError(t, tr.Update(models.LocationSample{Latitude: 43.2, Longitude: 76.9}))
	got, ok := tr.Current()
	require.True(t, ok)
	require.Equal(t, clock.Now(), got.Timestamp)
	require.Equal(t, defaultAccuracy, got.AccuracyMeters)

	// older fixes do not replace newer ones
	require.NoError(t, tr.Update(models.LocationSample{Latitude: 1, Longitude: 1, Timestamp: clock.Now().Add(-time.Second)}))
	got, _ = tr.Current()
	require.Equal(t, 43.2, got.Latitude)

	clock.Advance(2 * time.Minute)
	_, ok = tr.Current()
	require.False(t, ok)
}

func TestHaversineDistance(t *testing.T) {
	// Almaty to Astana, roughly 970 km
	d := HaversineDistance(43.238949, 76.889709, 51.169392, 71.449074)
	require.InDelta(t, 970, d, 30)
	require.Zero(t, HaversineDistance(10, 10, 10, 10))
}

func TestBearing(t *testing.T) {
	require.InDelta(t, 0, Bearing(0, 0, 1, 0), 1e-6)
	require.InDelta(t, 90, Bearing(0, 0, 0, 1), 1e-6)
	require.InDelta(t, 180, Bearing(1, 0, 0, 0), 1e-6)
}
