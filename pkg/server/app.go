package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"SignalLab/pkg/config"
	xhttp "SignalLab/pkg/http"
	pkgkafka "SignalLab/pkg/kafka"
	applogger "SignalLab/pkg/logger"
)

// Worker is a background processor started before the HTTP server and
// stopped after it.
type Worker interface {
	Start() error
	Stop(ctx context.Context) error
}

// closer releases one infrastructure client on shutdown.
type closer struct {
	name string
	fn   func() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	queue      Worker
	closers    []closer
}

// New creates a new App serving HTTP through srv.
func New(cfg *config.Config, l *applogger.Logger, srv *xhttp.Server) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{cfg: cfg, log: l.With("app"), httpServer: srv}
}

// WithConsumer runs kh on consumer alongside the HTTP server.
func (a *App) WithConsumer(consumer *pkgkafka.Consumer, kh pkgkafka.MessageHandler) {
	a.consumer = consumer
	a.kh = kh
}

// WithQueue runs q alongside the HTTP server.
func (a *App) WithQueue(q Worker) {
	a.queue = q
}

// AddCloser registers a client to close after the server and consumer stop.
// Closers run in reverse registration order.
func (a *App) AddCloser(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// Run starts the application and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts the application and blocks until ctx is done.
func (a *App) RunContext(ctx context.Context) error {
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		if err := a.consumer.Start(); err != nil {
			a.closeAll()
			return fmt.Errorf("kafka consumer: %w", err)
		}
		a.log.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if a.queue != nil {
		if err := a.queue.Start(); err != nil {
			_ = a.shutdown()
			return fmt.Errorf("job queue: %w", err)
		}
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		_ = a.shutdown()
		return err
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown stops intake first, then releases clients.
func (a *App) shutdown() error {
	timeout := 10 * time.Second
	if a.cfg != nil && a.cfg.Server.ShutdownTimeout > 0 {
		timeout = a.cfg.Server.ShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	if a.queue != nil {
		if err := a.queue.Stop(ctx); err != nil {
			a.log.Warn("job queue stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}

	// the log digest publishes through the producer, so it goes before the closers
	a.log.RemoveCollector()
	errs = append(errs, a.closeAll()...)

	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeAll() []error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.log.Warn("close error", applogger.String("client", c.name), applogger.Error(err))
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	a.closers = nil
	return errs
}
