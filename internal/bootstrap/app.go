package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/yanqian/rent-estimator/internal/domain/rentform"
	"github.com/yanqian/rent-estimator/internal/infra/config"
)

// App encapsulates the HTTP server lifecycle and the idle view sweeper.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	server *http.Server
	views  rentform.Service
}

// NewApp is used by Wire to build the runnable app.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server, views rentform.Service) *App {
	return &App{cfg: cfg, logger: logger.With("component", "bootstrap"), server: server, views: views}
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("http server starting", "address", a.cfg.HTTP.Address)
		if err := a.server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go a.sweep(sweepCtx)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.logger.Info("shutdown signal received")
		err := a.server.Shutdown(shutdownCtx)
		a.views.Shutdown()
		return err
	case err := <-errCh:
		a.views.Shutdown()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (a *App) sweep(ctx context.Context) {
	interval := a.cfg.Views.SweepInterval
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.views.Sweep(ctx); n > 0 {
				a.logger.Info("idle views closed", "count", n)
			}
		}
	}
}
