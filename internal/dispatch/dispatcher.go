// Package dispatch walks the stored countdown records and sends the reminders
// that are due today.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/username/holiday-countdown/internal/countdown"
	"github.com/username/holiday-countdown/internal/observability/metrics"
	"github.com/username/holiday-countdown/internal/reminder"
	"github.com/username/holiday-countdown/pkg/dateutil"
)

const defaultSendTimeout = 10 * time.Second

// Sender delivers an HTML-formatted message to a Telegram chat
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Status is the outcome of one record in a pass
type Status string

const (
	StatusSent        Status = "sent"
	StatusDue         Status = "due" // dry run
	StatusStale       Status = "stale"
	StatusNotDue      Status = "not_due"
	StatusAlreadySent Status = "already_sent"
	StatusFailed      Status = "failed"
	StatusMalformed   Status = "malformed"
)

// Result is the per-record outcome of a pass
type Result struct {
	Key       string `json:"key"`
	UserID    int64  `json:"userId,omitempty"`
	HolidayID string `json:"holidayId,omitempty"`
	Status    Status `json:"status"`
	DaysUntil int    `json:"daysUntil"`
	Error     string `json:"error,omitempty"`
}

// Summary aggregates a pass
type Summary struct {
	Processed int      `json:"processed"`
	Sent      int      `json:"sent"`
	Due       int      `json:"due"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	Results   []Result `json:"results"`
}

func (s *Summary) add(r Result) {
	s.Processed++
	switch r.Status {
	case StatusSent:
		s.Sent++
	case StatusDue:
		s.Due++
	case StatusStale, StatusNotDue, StatusAlreadySent:
		s.Skipped++
	case StatusFailed, StatusMalformed:
		s.Failed++
	}
	s.Results = append(s.Results, r)
}

// Options configure a Dispatcher
type Options struct {
	// SendTimeout bounds every send. Zero means 10s.
	SendTimeout time.Duration
	// DryRun evaluates records without sending or writing back
	DryRun bool
}

// Dispatcher runs reminder passes over the countdown repository
type Dispatcher struct {
	repo    *countdown.Repository
	sender  Sender
	opts    Options
	metrics *metrics.DispatchMetrics
	logger  *zap.Logger
}

// NewDispatcher creates a new dispatcher. metrics may be nil.
func NewDispatcher(repo *countdown.Repository, sender Sender, opts Options, m *metrics.DispatchMetrics, logger *zap.Logger) *Dispatcher {
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = defaultSendTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		repo:    repo,
		sender:  sender,
		opts:    opts,
		metrics: m,
		logger:  logger,
	}
}

// Run performs one pass. now fixes "today" and the time zone records are read in.
// Individual record failures are reported in the summary; an error is returned
// only when the records cannot be listed or ctx is cancelled mid-pass.
func (d *Dispatcher) Run(ctx context.Context, now time.Time) (*Summary, error) {
	started := time.Now()
	summary := &Summary{Results: []Result{}}

	d.logger.Info("Starting dispatch pass",
		zap.String("today", dateutil.FormatDate(now)),
		zap.Bool("dry_run", d.opts.DryRun))

	entries, err := d.repo.Entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load countdowns: %w", err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			d.logger.Warn("Dispatch pass interrupted",
				zap.Int("processed", summary.Processed),
				zap.Int("remaining", len(entries)-summary.Processed))
			return summary, err
		}

		result := d.process(ctx, entry, now)
		d.metrics.ObserveResult(string(result.Status))
		summary.add(result)
	}

	elapsed := time.Since(started)
	d.metrics.ObservePass(elapsed.Seconds(), float64(time.Now().Unix()))

	d.logger.Info("Dispatch pass completed",
		zap.Int("processed", summary.Processed),
		zap.Int("sent", summary.Sent),
		zap.Int("due", summary.Due),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Duration("elapsed", elapsed))

	return summary, nil
}

func (d *Dispatcher) process(ctx context.Context, entry countdown.Entry, now time.Time) Result {
	result := Result{Key: entry.Key}
	if userID, holidayID, err := countdown.ParseRecordKey(entry.Key); err == nil {
		result.UserID, result.HolidayID = userID, holidayID
	}

	// 1. Read and decode
	if entry.Err != nil {
		result.Status = StatusFailed
		result.Error = entry.Err.Error()
		return result
	}
	rec, err := countdown.Decode(entry.Data)
	if err != nil {
		d.logger.Warn("Skipping malformed countdown",
			zap.String("key", entry.Key),
			zap.Error(err))
		result.Status = StatusMalformed
		result.Error = err.Error()
		return result
	}
	result.UserID, result.HolidayID = rec.UserID, rec.HolidayID

	// 2. Days until the stored date, no recurrence resolution here
	date, err := rec.ParsedDate(now.Location())
	if err != nil {
		result.Status = StatusMalformed
		result.Error = err.Error()
		return result
	}
	days := dateutil.DaysUntil(date, now)
	result.DaysUntil = days

	// 3. Gate
	if days < 0 {
		result.Status = StatusStale
		return result
	}
	if !reminder.ShouldNotify(rec.ReminderOption, days) {
		result.Status = StatusNotDue
		return result
	}
	key := reminder.NotifyKey(days, now)
	if rec.LastNotified == key {
		result.Status = StatusAlreadySent
		return result
	}

	if d.opts.DryRun {
		d.logger.Info("Reminder due (dry run)",
			zap.String("key", entry.Key),
			zap.Int("days_until", days))
		result.Status = StatusDue
		return result
	}

	// 4. Send
	text := reminder.FormatMessage(rec.Name, days, rec.Icon, false)
	sendStarted := time.Now()
	err = d.send(ctx, rec.UserID, text)
	d.metrics.ObserveSend(err == nil, time.Since(sendStarted).Seconds())
	if err != nil {
		d.logger.Warn("Failed to send reminder",
			zap.String("key", entry.Key),
			zap.Int("days_until", days),
			zap.Error(err))
		result.Status = StatusFailed
		result.Error = err.Error()
		return result
	}

	// 5. Write back
	result.Status = StatusSent
	if err := d.repo.MarkNotified(ctx, entry.Key, rec, key); err != nil {
		d.logger.Error("Reminder sent but marker not saved",
			zap.String("key", entry.Key),
			zap.String("notify_key", key),
			zap.Error(err))
		result.Error = err.Error()
		return result
	}

	d.logger.Info("Reminder sent",
		zap.String("key", entry.Key),
		zap.Int64("user_id", rec.UserID),
		zap.Int("days_until", days))

	return result
}

// send calls the sender with a bounded timeout and turns panics into errors
func (d *Dispatcher) send(ctx context.Context, chatID int64, text string) (err error) {
	sendCtx, cancel := context.WithTimeout(ctx, d.opts.SendTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sender panicked: %v", r)
		}
	}()

	return d.sender.SendMessage(sendCtx, chatID, text)
}
