// SPDX-License-Identifier: MIT

// Package daemon manages the process lifecycle: the API and metrics
// servers, the background loops, and ordered graceful shutdown.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	aqlog "github.com/piairqual/piairqual/internal/log"
)

// ShutdownHook performs cleanup during graceful shutdown. Hooks run in
// reverse registration order (LIFO).
type ShutdownHook func(ctx context.Context) error

// ErrNotStarted is returned when Shutdown is called before Start.
var ErrNotStarted = errors.New("daemon: manager not started")

// Options configures the Manager's servers.
type Options struct {
	ListenAddr     string
	APIHandler     http.Handler
	MetricsAddr    string // empty disables the metrics listener
	MetricsHandler http.Handler

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

func (o *Options) setDefaults() {
	if o.ReadTimeout == 0 {
		o.ReadTimeout = 10 * time.Second
	}
	if o.WriteTimeout == 0 {
		o.WriteTimeout = 30 * time.Second
	}
	if o.ShutdownTimeout == 0 {
		o.ShutdownTimeout = 15 * time.Second
	}
}

type namedHook struct {
	name string
	hook ShutdownHook
}

type task struct {
	name string
	run  func(ctx context.Context) error
}

// Manager runs the servers and background tasks and coordinates their
// shutdown.
type Manager struct {
	opts Options

	apiServer     *http.Server
	metricsServer *http.Server

	tasks []task
	hooks []namedHook

	started  bool
	stopping bool
	mu       sync.Mutex

	logger zerolog.Logger
}

// New creates a Manager.
func New(opts Options) *Manager {
	opts.setDefaults()
	return &Manager{
		opts:   opts,
		logger: aqlog.WithComponent("daemon"),
	}
}

// SetAPIHandler installs the API handler. Must be called before Start;
// it exists so dependencies that register shutdown hooks can be built
// before the router.
func (m *Manager) SetAPIHandler(h http.Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opts.APIHandler = h
}

// AddTask registers a background loop. Tasks start with the manager and
// are cancelled on shutdown; a task returning an error stops the daemon.
func (m *Manager) AddTask(name string, run func(ctx context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, task{name: name, run: run})
}

// RegisterShutdownHook registers a cleanup function, executed LIFO during
// shutdown.
func (m *Manager) RegisterShutdownHook(name string, hook ShutdownHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, namedHook{name: name, hook: hook})
}

// Start launches the servers and tasks and blocks until ctx is cancelled,
// a server fails, or a task returns an error. Shutdown always runs before
// Start returns.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return errors.New("daemon: already started")
	}
	m.started = true
	m.mu.Unlock()

	m.logger.Info().
		Str("event", "daemon.starting").
		Str("listen", m.opts.ListenAddr).
		Str("metrics", m.opts.MetricsAddr).
		Int("tasks", len(m.tasks)).
		Msg("starting daemon")

	errChan := make(chan error, 2)
	m.startMetricsServer(errChan)
	m.startAPIServer(errChan)

	taskCtx, cancelTasks := context.WithCancel(ctx)
	defer cancelTasks()

	var taskDone chan error
	if len(m.tasks) > 0 {
		g := new(errgroup.Group)
		for _, t := range m.tasks {
			g.Go(func() error {
				m.logger.Info().Str("event", "daemon.task_started").Str("task", t.name).Msg("task running")
				if err := t.run(taskCtx); err != nil {
					return fmt.Errorf("task %s: %w", t.name, err)
				}
				return nil
			})
		}
		taskDone = make(chan error, 1)
		go func() { taskDone <- g.Wait() }()
	}

	var runErr error
	var tasksFinished bool
	select {
	case err := <-errChan:
		m.logger.Error().Err(err).Str("event", "daemon.server_failed").Msg("server error, initiating shutdown")
		runErr = err
	case err := <-taskDone:
		tasksFinished = true
		if err != nil {
			m.logger.Error().Err(err).Str("event", "daemon.task_failed").Msg("task error, initiating shutdown")
			runErr = err
		}
	case <-ctx.Done():
		m.logger.Info().Str("event", "daemon.signal").Msg("shutdown signal received")
	}

	cancelTasks()
	if taskDone != nil && !tasksFinished {
		if err := <-taskDone; err != nil && runErr == nil {
			runErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.opts.ShutdownTimeout)
	defer cancel()
	if err := m.Shutdown(shutdownCtx); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

func (m *Manager) startAPIServer(errChan chan<- error) {
	m.apiServer = &http.Server{
		Addr:              m.opts.ListenAddr,
		Handler:           m.opts.APIHandler,
		ReadTimeout:       m.opts.ReadTimeout,
		ReadHeaderTimeout: m.opts.ReadTimeout / 2,
		WriteTimeout:      m.opts.WriteTimeout,
	}

	go func() {
		m.logger.Info().Str("addr", m.opts.ListenAddr).Msg("API server listening")
		if err := m.apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("API server: %w", err)
		}
	}()
}

func (m *Manager) startMetricsServer(errChan chan<- error) {
	if m.opts.MetricsAddr == "" || m.opts.MetricsHandler == nil {
		return
	}

	m.metricsServer = &http.Server{
		Addr:              m.opts.MetricsAddr,
		Handler:           m.opts.MetricsHandler,
		ReadHeaderTimeout: m.opts.ReadTimeout / 2,
	}

	go func() {
		m.logger.Info().Str("addr", m.opts.MetricsAddr).Msg("metrics server listening")
		if err := m.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("metrics server: %w", err)
		}
	}()
}

// Shutdown stops the servers and runs the shutdown hooks LIFO. Safe to
// call once; repeated calls are no-ops.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.stopping {
		m.mu.Unlock()
		return nil
	}
	if !m.started {
		m.mu.Unlock()
		return ErrNotStarted
	}
	m.stopping = true
	m.mu.Unlock()

	m.logger.Info().Str("event", "daemon.stopping").Msg("shutting down")

	var errs []error
	if m.apiServer != nil {
		if err := m.apiServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("API server shutdown: %w", err))
		}
	}
	if m.metricsServer != nil {
		if err := m.metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	for i := len(m.hooks) - 1; i >= 0; i-- {
		h := m.hooks[i]
		start := time.Now()
		if err := h.hook(ctx); err != nil {
			m.logger.Error().Err(err).Str("hook", h.name).Msg("shutdown hook failed")
			errs = append(errs, fmt.Errorf("hook %s: %w", h.name, err))
			continue
		}
		m.logger.Debug().Str("hook", h.name).Dur("duration", time.Since(start)).Msg("shutdown hook completed")
	}

	if len(errs) > 0 {
		return fmt.Errorf("daemon: shutdown errors: %w", errors.Join(errs...))
	}
	m.logger.Info().Str("event", "daemon.stopped").Msg("daemon stopped cleanly")
	return nil
}
