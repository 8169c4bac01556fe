package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"club-auth/internal/config"
	"club-auth/internal/logger"
)

// App is the HTTP server plus the connections it owns.
type App struct {
	server  *http.Server
	cleanup func() error
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	router, cleanup, err := setupHTTP(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &App{
		server: &http.Server{
			Addr:              ":" + cfg.AppPort,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       2 * time.Minute,
		},
		cleanup: cleanup,
	}, nil
}

// Handler exposes the router, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run blocks until the server stops. A graceful shutdown is not an error.
func (a *App) Run() error {
	logger.Info("http server listening", map[string]any{"addr": a.server.Addr})

	if err := a.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes stores and connections.
// Cleanup runs even when draining times out.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	if a.cleanup != nil {
		err = errors.Join(err, a.cleanup())
	}
	return err
}
