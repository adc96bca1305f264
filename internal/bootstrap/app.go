package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/yanqian/ai-summarizer/internal/infra/config"
	"github.com/yanqian/ai-summarizer/internal/infra/resilience"
)

// App encapsulates the HTTP server lifecycle.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	server  *http.Server
	limiter *resilience.RateLimiter
}

// NewApp is used by Wire to build the runnable app.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server, limiter *resilience.RateLimiter) *App {
	return &App{cfg: cfg, logger: logger.With("component", "bootstrap"), server: server, limiter: limiter}
}

// Run starts the HTTP server and blocks until shutdown. The upstream rate
// limiter is closed once the server stopped accepting requests.
func (a *App) Run(ctx context.Context) error {
	defer a.closeLimiter()

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("http server starting", "address", a.cfg.HTTP.Address)
		if err := a.server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.logger.Info("shutdown signal received")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (a *App) closeLimiter() {
	if a.limiter == nil {
		return
	}
	a.limiter.Close()
	a.logger.Info("upstream rate limiter closed")
}
