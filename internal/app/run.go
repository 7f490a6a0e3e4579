package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Temutjin2k/ride-hail-driver/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-hail-driver/pkg/logger/wrapper"
)

const goOfflineTimeout = 3 * time.Second

// Run starts the session loop, the control API and the mirror, then blocks
// until a signal arrives, ctx is done or a component fails.
func (a *App) Run(ctx context.Context) error {
	if a.session == nil {
		return ErrServiceNotInitialized
	}
	ctx = wrap.WithDriverID(ctx, a.driverID)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)

	go func() {
		if err := a.session.Run(runCtx); err != nil {
			errCh <- err
		}
	}()

	if a.mirror != nil {
		sub := a.session.Subscribe("rabbitmq-mirror", mirrorBuffer)
		go a.mirror.Run(runCtx, sub)
	}

	a.api.Run(runCtx, errCh)
	defer func() {
		a.close(ctx)
		a.log.Info(ctx, "driver session closed")
	}()

	// Waiting signal
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdownCh)

	a.log.Info(ctx, "driver session started", "control_api", a.cfg.HTTP.Addr())

	select {
	case errRun := <-errCh:
		return errRun
	case sig := <-shutdownCh:
		a.log.Info(ctx, "shutting down application", "signal", sig.String())
		return nil
	case <-ctx.Done():
		return nil
	}
}

// close tells the backend the driver is leaving when that is allowed, then
// tears everything down. The session goes before the http server so that
// event streams end and do not hold up the server shutdown.
func (a *App) close(ctx context.Context) {
	ctx = wrap.WithAction(ctx, types.ActionSessionShutdown)

	if a.session != nil && ctx.Err() == nil {
		if a.session.Snapshot().Availability == types.Online {
			offCtx, cancel := context.WithTimeout(ctx, goOfflineTimeout)
			if err := a.session.GoOffline(offCtx); err != nil {
				a.log.Warn(ctx, "failed to go offline before shutdown", "error", err.Error())
			}
			cancel()
		}
	}

	// ends open event streams so the http server can drain
	if a.session != nil {
		a.session.Close()
	}

	if a.api != nil {
		if err := a.api.Stop(ctx); err != nil {
			a.log.Warn(ctx, "failed to gracefully close http server", "error", err.Error())
		}
	}

	if a.transport != nil {
		if err := a.transport.Close(); err != nil {
			a.log.Warn(ctx, "failed to close transport", "error", err.Error())
		}
	}

	if a.rabbit != nil {
		if err := a.rabbit.Close(ctx); err != nil {
			a.log.Warn(ctx, "failed to close rabbitmq connection", "error", err.Error())
		}
	}
}
