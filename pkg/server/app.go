package server

import (
	"context"
	"io"
	"os/signal"
	"syscall"

	"FinSight/pkg/config"
	xhttp "FinSight/pkg/http"
	applogger "FinSight/pkg/logger"
)

// Streamer is a long-running background feed, started only when enabled.
type Streamer interface {
	Enabled() bool
	Run(ctx context.Context) error
}

// App encapsulates the application lifecycle: HTTP server, background
// streams, and ordered cleanup of infrastructure clients.
type App struct {
	cfg     *config.Config
	logger  *applogger.Logger
	handler xhttp.Handler

	httpServer *xhttp.Server
	stream     Streamer
	closers    []namedCloser
}

type namedCloser struct {
	name   string
	closer io.Closer
}

func New(cfg *config.Config, l *applogger.Logger, handler xhttp.Handler) *App {
	return &App{
		cfg:     cfg,
		logger:  l,
		handler: handler,
	}
}

// SetStream attaches a background quote feed. Nil is allowed.
func (a *App) SetStream(s Streamer) { a.stream = s }

// AddCloser registers a resource closed during shutdown, in reverse
// registration order.
func (a *App) AddCloser(name string, c io.Closer) {
	if c != nil {
		a.closers = append(a.closers, namedCloser{name: name, closer: c})
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []xhttp.ServerOption{
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	}
	if !a.cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetricsPath(""))
	} else if a.cfg.Metrics.Path != "" {
		opts = append(opts, xhttp.WithMetricsPath(a.cfg.Metrics.Path))
	}
	a.httpServer = xhttp.NewServer(a.logger, a.handler, opts...)

	if a.stream != nil && a.stream.Enabled() {
		go func() {
			if err := a.stream.Run(ctx); err != nil {
				a.logger.Error("quote stream error", applogger.Error(err))
			}
		}()
		a.logger.Info("quote stream started", applogger.Strings("symbols", a.cfg.Quotes.Symbols))
	}

	if err := a.httpServer.Start(); err != nil {
		return err
	}
	a.logger.Info("application started",
		applogger.String("environment", a.cfg.Environment),
		applogger.Int("port", a.cfg.Server.Port))

	<-ctx.Done()
	a.logger.Info("shutdown signal received")
	return a.shutdown()
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		nc := a.closers[i]
		if err := nc.closer.Close(); err != nil {
			a.logger.Warn("close error",
				applogger.String("resource", nc.name),
				applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
