// Package daemon runs dispatch passes on a cron schedule.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/username/holiday-countdown/internal/dispatch"
)

// DefaultSchedule runs a pass every day at 09:00
const DefaultSchedule = "0 9 * * *"

// ErrPassRunning is returned when a pass is requested while another one is in progress
var ErrPassRunning = errors.New("dispatch pass already in progress")

// Runner runs a single dispatch pass
type Runner interface {
	Run(ctx context.Context, now time.Time) (*dispatch.Summary, error)
}

// Options configures the daemon
type Options struct {
	Schedule   string // standard 5-field cron spec or descriptor such as @hourly
	Location   *time.Location
	RunOnStart bool
}

// Status is a snapshot of the daemon state
type Status struct {
	Running     bool              `json:"running"`
	Schedule    string            `json:"schedule"`
	LastRun     time.Time         `json:"lastRun,omitempty"`
	NextRun     time.Time         `json:"nextRun,omitempty"`
	LastSummary *dispatch.Summary `json:"lastSummary,omitempty"`
	LastError   string            `json:"lastError,omitempty"`
}

// Daemon represents the daemon process
type Daemon struct {
	runner   Runner
	schedule string
	location *time.Location
	onStart  bool
	logger   *zap.Logger
	cron     *cron.Cron
	entryID  cron.EntryID
	ctx      context.Context
	cancel   context.CancelFunc
	startup  sync.WaitGroup

	mu          sync.Mutex // Protect against concurrent passes
	passRunning bool
	lastRun     time.Time
	lastSummary *dispatch.Summary
	lastErr     error
}

// NewDaemon creates a new daemon instance
func NewDaemon(runner Runner, opts Options, logger *zap.Logger) (*Daemon, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Schedule == "" {
		opts.Schedule = DefaultSchedule
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	d := &Daemon{
		runner:   runner,
		schedule: opts.Schedule,
		location: opts.Location,
		onStart:  opts.RunOnStart,
		logger:   logger,
		cron:     cron.New(cron.WithLocation(opts.Location)),
	}
	d.ctx, d.cancel = context.WithCancel(context.Background())

	id, err := d.cron.AddFunc(opts.Schedule, d.scheduledPass)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", opts.Schedule, err)
	}
	d.entryID = id

	return d, nil
}

// Start runs the scheduler until Stop is called or a termination signal arrives
func (d *Daemon) Start() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	d.cron.Start()
	d.logger.Info("Daemon started",
		zap.String("schedule", d.schedule),
		zap.String("timezone", d.location.String()),
		zap.Time("next_run", d.cron.Entry(d.entryID).Next))

	if d.onStart {
		d.startup.Add(1)
		go func() {
			defer d.startup.Done()
			d.scheduledPass()
		}()
	}

	select {
	case <-d.ctx.Done():
	case sig := <-sigChan:
		d.logger.Info("Received signal, shutting down",
			zap.String("signal", sig.String()))
		d.cancel()
	}

	// wait for in-flight passes to observe cancellation
	<-d.cron.Stop().Done()
	d.startup.Wait()
	d.logger.Info("Daemon stopped")
	return nil
}

// Stop stops the daemon
func (d *Daemon) Stop() {
	d.cancel()
}

// RunNow runs a pass immediately unless one is already in progress
func (d *Daemon) RunNow() (*dispatch.Summary, error) {
	d.mu.Lock()
	if d.passRunning {
		d.mu.Unlock()
		d.logger.Warn("Pass already running, skipping concurrent execution")
		return nil, ErrPassRunning
	}
	d.passRunning = true
	d.mu.Unlock()

	now := time.Now().In(d.location)
	summary, err := d.runner.Run(d.ctx, now)

	d.mu.Lock()
	d.passRunning = false
	d.lastRun = now
	d.lastSummary = summary
	d.lastErr = err
	d.mu.Unlock()

	return summary, err
}

func (d *Daemon) scheduledPass() {
	d.logger.Info("Starting scheduled pass")

	summary, err := d.RunNow()
	switch {
	case errors.Is(err, ErrPassRunning):
		return
	case err != nil:
		d.logger.Error("Pass failed", zap.Error(err))
		return
	}

	d.logger.Info("Pass completed",
		zap.Int("processed", summary.Processed),
		zap.Int("sent", summary.Sent),
		zap.Int("due", summary.Due),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Time("next_run", d.cron.Entry(d.entryID).Next))
}

// GetStatus returns daemon status
func (d *Daemon) GetStatus() Status {
	d.mu.Lock()
	defer d.mu.Unlock()

	status := Status{
		Running:     d.passRunning,
		Schedule:    d.schedule,
		LastRun:     d.lastRun,
		NextRun:     d.cron.Entry(d.entryID).Next,
		LastSummary: d.lastSummary,
	}
	if d.lastErr != nil {
		status.LastError = d.lastErr.Error()
	}
	return status
}
