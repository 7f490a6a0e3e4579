package session

import (
	"context"

	"github.com/Temutjin2k/ride-hail-driver/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-driver/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-hail-driver/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-hail-driver/pkg/metrics"
)

func (s *Session) startTelemetry() {
	s.sched.Every(timerTelemetry, s.cfg.TelemetryInterval, func() {
		s.post(s.telemetryTick)
	})
}

func (s *Session) stopTelemetry() {
	s.sched.Cancel(timerTelemetry)
}

// telemetryTick pushes one location sample. A missing sample or a dropped
// connection only costs a tick.
func (s *Session) telemetryTick(ctx context.Context) {
	ctx = wrap.WithAction(ctx, types.ActionTelemetryTick)

	if s.availability == types.Offline {
		return
	}
	if !s.connected || s.locations == nil {
		metrics.TelemetryTicksTotal.WithLabelValues("skipped").Inc()
		return
	}

	sample, ok := s.locations.Current()
	if !ok {
		metrics.TelemetryTicksTotal.WithLabelValues("no_sample").Inc()
		return
	}

	msg := models.LocationUpdateMessage{
		DriverID:       s.cfg.DriverID,
		LocationSample: sample,
	}
	if s.ride != nil {
		msg.RideID = s.ride.ID
	}

	if err := s.sendQuiet(ctx, types.MsgDriverLocation, msg); err != nil {
		metrics.TelemetryTicksTotal.WithLabelValues("error").Inc()
		s.l.Warn(ctx, "location update not delivered", "error", err.Error())
		return
	}
	metrics.TelemetryTicksTotal.WithLabelValues("sent").Inc()
}
