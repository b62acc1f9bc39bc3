package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	xhttp "CryptoSatX/pkg/http"
	applogger "CryptoSatX/pkg/logger"
)

// Component is a long-running part of the application.
type Component interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Loop adapts a blocking run function into a Component.
type Loop struct {
	run    func(ctx context.Context)
	cancel context.CancelFunc
	done   chan struct{}
}

// NewLoop wraps run, which must return once its context is done.
func NewLoop(run func(ctx context.Context)) *Loop {
	return &Loop{run: run}
}

func (l *Loop) Start(ctx context.Context) error {
	ctx, l.cancel = context.WithCancel(ctx)
	l.done = make(chan struct{})
	go func() {
		defer close(l.done)
		l.run(ctx)
	}()
	return nil
}

func (l *Loop) Stop(ctx context.Context) error {
	if l.cancel == nil {
		return nil
	}
	l.cancel()
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type namedComponent struct {
	name string
	c    Component
}

type namedCloser struct {
	name  string
	close func() error
}

// App encapsulates the application lifecycle: the HTTP server, background
// components and the infrastructure clients closed on the way out.
type App struct {
	logger          *applogger.Logger
	httpServer      *xhttp.Server
	shutdownTimeout time.Duration

	mu         sync.Mutex
	components []namedComponent
	started    []namedComponent
	closers    []namedCloser
}

// New creates an App. httpServer may be nil for headless deployments.
func New(l *applogger.Logger, httpServer *xhttp.Server, shutdownTimeout time.Duration) *App {
	if l == nil {
		l = applogger.Nop()
	}
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &App{logger: l, httpServer: httpServer, shutdownTimeout: shutdownTimeout}
}

// AddComponent registers c; components start in order and stop in reverse.
func (a *App) AddComponent(name string, c Component) {
	if c == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.components = append(a.components, namedComponent{name: name, c: c})
}

// AddCloser registers a resource released after every component stopped.
func (a *App) AddCloser(name string, close func() error) {
	if close == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closers = append(a.closers, namedCloser{name: name, close: close})
}

// Run starts everything and blocks until ctx is done, then shuts down.
func (a *App) Run(ctx context.Context) error {
	if err := a.start(ctx); err != nil {
		a.logger.Error("startup failed", applogger.Error(err))
		_ = a.shutdown()
		return err
	}
	<-ctx.Done()
	a.logger.Info("shutdown signal received")
	return a.shutdown()
}

func (a *App) start(ctx context.Context) error {
	a.mu.Lock()
	components := append([]namedComponent(nil), a.components...)
	a.mu.Unlock()

	for _, nc := range components {
		if err := nc.c.Start(ctx); err != nil {
			return fmt.Errorf("start %s: %w", nc.name, err)
		}
		a.mu.Lock()
		a.started = append(a.started, nc)
		a.mu.Unlock()
		a.logger.Info("component started", applogger.String("component", nc.name))
	}
	if a.httpServer != nil {
		if err := a.httpServer.Start(); err != nil {
			return fmt.Errorf("start http: %w", err)
		}
	}
	return nil
}

// shutdown stops the HTTP server first so no new work arrives, then the
// components in reverse start order, then the closers.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	var errs []error
	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.logger.Error("http shutdown error", applogger.Error(err))
			errs = append(errs, err)
		}
	}

	a.mu.Lock()
	started := a.started
	a.started = nil
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()

	for i := len(started) - 1; i >= 0; i-- {
		nc := started[i]
		if err := nc.c.Stop(ctx); err != nil {
			a.logger.Warn("component stop error", applogger.String("component", nc.name), applogger.Error(err))
			errs = append(errs, fmt.Errorf("stop %s: %w", nc.name, err))
		}
	}
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].close(); err != nil {
			a.logger.Warn("close error", applogger.String("resource", closers[i].name), applogger.Error(err))
			errs = append(errs, fmt.Errorf("close %s: %w", closers[i].name, err))
		}
	}

	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}
