package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Temutjin2k/ride-hail-driver/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-driver/internal/events"
	"github.com/Temutjin2k/ride-hail-driver/pkg/logger"
	wrap "github.com/Temutjin2k/ride-hail-driver/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-hail-driver/pkg/metrics"
)

const (
	ExchangeKindTopic = "topic"

	publishAttempts = 3
	publishBackoff  = 500 * time.Millisecond
)

// Publisher is the part of the rabbit client the mirror needs.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body []byte) error
	EnsureConnection(ctx context.Context) error
}

// EventMirror republishes session events to a topic exchange so fleet tooling
// can follow a driver without talking to the device.
type EventMirror struct {
	client   Publisher
	exchange string
	driverID string
	l        logger.Logger
}

// MirroredEvent is the body published for every session event.
type MirroredEvent struct {
	DriverID string `json:"driver_id"`
	models.Event
}

func NewEventMirror(client Publisher, exchange, driverID string, l logger.Logger) *EventMirror {
	return &EventMirror{
		client:   client,
		exchange: exchange,
		driverID: driverID,
		l:        l,
	}
}

// RoutingKey is driver.<driver_id>.<event kind in lower case>.
func (m *EventMirror) RoutingKey(e models.Event) string {
	return fmt.Sprintf("driver.%s.%s", m.driverID, strings.ToLower(e.Kind.String()))
}

// Run publishes every event from sub until the subscription is closed or ctx
// is done. Publish failures are logged and the event is dropped.
func (m *EventMirror) Run(ctx context.Context, sub *events.Subscription) {
	ctx = wrap.WithDriverID(wrap.WithAction(ctx, "mirror_session_events"), m.driverID)
	m.l.Info(ctx, "mirroring session events", "exchange", m.exchange)

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub.Events():
			if !ok {
				m.l.Debug(ctx, "event subscription closed, mirror stopped")
				return
			}
			if err := m.Publish(ctx, e); err != nil {
				m.l.Error(ctx, "failed to mirror session event", err, "kind", e.Kind)
			}
		}
	}
}

func (m *EventMirror) Publish(ctx context.Context, e models.Event) error {
	const op = "EventMirror.Publish"
	ctx = wrap.WithRideID(ctx, e.RideID)

	body, err := json.Marshal(MirroredEvent{DriverID: m.driverID, Event: e})
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: failed to marshal event: %w", op, err))
	}

	key := m.RoutingKey(e)
	err = retry(ctx, publishAttempts, publishBackoff, func() error {
		if err := m.client.EnsureConnection(ctx); err != nil {
			return err
		}
		return m.client.Publish(ctx, m.exchange, key, body)
	})
	metrics.RecordRabbitMQPublish(m.exchange, err)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: %s: %w", op, key, err))
	}
	return nil
}
