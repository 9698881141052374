package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"distill/internal/config"
	"distill/internal/deps"
	"distill/internal/logging"
	"distill/internal/tasks"
	"distill/internal/workflow"
)

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *tasks.Store
	runner *workflow.Runner

	lockPath string
	lock     *flock.Flock

	api *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *tasks.Store, runner *workflow.Runner, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || runner == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, runner, and logger")
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "distilld.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		runner:   runner,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock, starts the runner, and begins serving the
// API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another distill daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.runner.Start(); err != nil {
		d.releaseLock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("start runner: %w", err)
	}

	server, err := newAPIServer(d.cfg, d.store, d.runner, d.logger)
	if err != nil {
		d.stopRunner()
		d.releaseLock()
		cancel()
		d.cancel = nil
		return err
	}
	d.api = server
	if err := d.api.start(runCtx); err != nil {
		d.stopRunner()
		d.releaseLock()
		cancel()
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("daemon started",
		logging.String("lock", d.lockPath),
		logging.String("bind", d.api.addr()),
	)
	d.reportTools()
	return nil
}

// reportTools logs which external extraction tools are usable so missing
// ones surface at startup rather than on first use.
func (d *Daemon) reportTools() {
	for _, status := range deps.Check(deps.FromTools(d.cfg.Tools)) {
		if status.Available {
			d.logger.Info("extraction tool available",
				logging.String("tool", status.Name),
				logging.String("command", status.Command),
			)
			continue
		}
		d.logger.Warn("extraction tool unavailable",
			logging.String("tool", status.Name),
			logging.String("detail", status.Detail),
		)
	}
}

// Addr reports the bound API address, empty before Start.
func (d *Daemon) Addr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}

// Stop shuts down the API, drains the runner, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.api != nil {
		d.api.stop()
		d.api = nil
	}
	d.stopRunner()
	d.releaseLock()
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and closes the task store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

func (d *Daemon) stopRunner() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := d.runner.Stop(ctx); err != nil {
		d.logger.Warn("runner shutdown incomplete", logging.Error(err))
	}
}

func (d *Daemon) releaseLock() {
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
}
