package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Temutjin2k/ride-hail-driver/config"
	"github.com/Temutjin2k/ride-hail-driver/internal/adapter/http/handler"
	"github.com/Temutjin2k/ride-hail-driver/internal/adapter/http/middleware"
	"github.com/Temutjin2k/ride-hail-driver/pkg/logger"
	wrap "github.com/Temutjin2k/ride-hail-driver/pkg/logger/wrapper"
)

const (
	serviceName     = "driver-session"
	shutdownTimeout = 5 * time.Second
	sseBuffer       = 64
)

// Session is everything the control API needs from the driver session.
type Session interface {
	handler.SessionService
	handler.Subscriber
}

type API struct {
	mux    *http.ServeMux
	server *http.Server
	routes *handlers // routes/handlers
	m      *middleware.Middleware

	addr string
	log  logger.Logger
}

type handlers struct {
	health   *handler.Health
	session  *handler.Session
	location *handler.Location
	events   *handler.Events
}

// New builds the control API. tracker is nil unless locations are pushed by
// the device.
func New(cfg config.HTTPConfig, session Session, tracker handler.LocationUpdater, logger logger.Logger) *API {
	h := &handlers{
		health:   handler.NewHealth(serviceName, session.Snapshot, logger),
		session:  handler.NewSession(session, logger),
		location: handler.NewLocation(tracker, logger),
		events:   handler.NewEvents(session, sseBuffer, 0, logger),
	}

	api := &API{
		mux:    http.NewServeMux(),
		routes: h,
		m:      middleware.NewMiddleware(cfg.ControlToken, logger),
		addr:   cfg.Addr(),
		log:    logger,
	}

	api.setupRoutes()

	api.server = &http.Server{
		Addr:              api.addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return api
}

// Handler returns the mux wrapped in the middleware chain.
func (a *API) Handler() http.Handler {
	return a.m.Recover(a.m.RequestID(a.m.Metrics(serviceName)(a.m.Logging(a.m.Auth(a.mux)))))
}

func (a *API) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	ctx = wrap.WithAction(ctx, "http_server_stop")

	a.log.Debug(ctx, "shutting down HTTP server...", "address", a.addr)
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	a.log.Debug(ctx, "shutting down HTTP server completed")

	return nil
}

func (a *API) Run(ctx context.Context, errCh chan<- error) {
	go func() {
		ctx = wrap.WithAction(ctx, "http_server_start")
		a.log.Info(ctx, "started http server", "address", a.addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
			return
		}
	}()
}
