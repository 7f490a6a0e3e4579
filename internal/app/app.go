package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Temutjin2k/ride-hail-driver/config"
	"github.com/Temutjin2k/ride-hail-driver/internal/adapter/http/handler"
	"github.com/Temutjin2k/ride-hail-driver/internal/adapter/http/server"
	"github.com/Temutjin2k/ride-hail-driver/internal/adapter/location"
	mirror "github.com/Temutjin2k/ride-hail-driver/internal/adapter/rabbit"
	"github.com/Temutjin2k/ride-hail-driver/internal/adapter/ws"
	"github.com/Temutjin2k/ride-hail-driver/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-driver/internal/events"
	"github.com/Temutjin2k/ride-hail-driver/internal/session"
	"github.com/Temutjin2k/ride-hail-driver/pkg/logger"
	wrap "github.com/Temutjin2k/ride-hail-driver/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-hail-driver/pkg/metrics"
	"github.com/Temutjin2k/ride-hail-driver/pkg/rabbit"
)

const mirrorBuffer = 128

var ErrServiceNotInitialized = errors.New("service not initialized")

// App wires the driver session to its transport, location source, control
// API and optional event mirror.
type App struct {
	driverID  string
	transport *ws.Transport
	session   *session.Session
	api       *server.API

	rabbit *rabbit.RabbitMQ
	mirror *mirror.EventMirror

	cfg config.Config
	log logger.Logger
}

// NewApplication connects to the dispatch backend and builds the session.
// ctx bounds the lifetime of the transport's reconnect loop.
func NewApplication(ctx context.Context, cfg config.Config, log logger.Logger) (*App, error) {
	driverID, err := ws.DriverIDFromToken(cfg.Transport.Token, time.Now())
	if err != nil {
		return nil, fmt.Errorf("invalid transport token: %w", err)
	}
	ctx = wrap.WithDriverID(ctx, driverID)

	provider, err := location.New(cfg.Location.Mode, cfg.Location.Latitude, cfg.Location.Longitude, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to init location provider: %w", err)
	}
	var tracker handler.LocationUpdater
	if t, ok := provider.(*location.Tracker); ok {
		tracker = t
	}

	transport, err := ws.Connect(ctx, ws.Config{
		URL:              cfg.Transport.URL,
		Token:            cfg.Transport.Token,
		HandshakeTimeout: cfg.Transport.HandshakeTimeout,
		PingInterval:     cfg.Transport.PingInterval,
		ReconnectMin:     cfg.Transport.ReconnectMin,
		ReconnectMax:     cfg.Transport.ReconnectMax,
		InboundBuffer:    cfg.Transport.InboundBuffer,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to dispatch backend: %w", err)
	}

	dispatcher := events.NewDispatcher(events.WithDropHook(func(sub string, e models.Event) {
		metrics.EventsDroppedTotal.WithLabelValues(sub).Inc()
	}))

	sess := session.New(session.Config{
		DriverID:          driverID,
		OfferTimeout:      cfg.Session.OfferTimeout,
		ConfirmTimeout:    cfg.Session.ConfirmTimeout,
		TelemetryInterval: cfg.Session.TelemetryInterval,
	}, transport, provider, dispatcher, nil, log)

	a := &App{
		driverID:  driverID,
		transport: transport,
		session:   sess,
		api:       server.New(cfg.HTTP, sess, tracker, log),
		cfg:       cfg,
		log:       log,
	}

	if cfg.RabbitMQ.Enabled {
		if err := a.initMirror(ctx); err != nil {
			a.close(ctx)
			return nil, err
		}
	}

	return a, nil
}

func (a *App) initMirror(ctx context.Context) error {
	client, err := rabbit.New(ctx, a.cfg.RabbitMQ.GetDSN(), a.log)
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	if err := client.DeclareExchange(a.cfg.RabbitMQ.Exchange, mirror.ExchangeKindTopic); err != nil {
		client.Close(ctx)
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	a.rabbit = client
	a.mirror = mirror.NewEventMirror(client, a.cfg.RabbitMQ.Exchange, a.driverID, a.log)
	return nil
}
