package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"todoreminder/internal/model"
	"todoreminder/pkg/logger"
	"todoreminder/pkg/metrics"
	"todoreminder/pkg/trace"
)

const (
	DefaultCronSpec    = "* * * * *"
	DefaultScanTimeout = 50 * time.Second

	triggerTick = "tick"
	triggerPoll = "poll"
)

// Scanner is implemented by *ReminderService.
type Scanner interface {
	Scan(ctx context.Context, now time.Time) ([]model.Reminder, error)
}

type RunnerOptions struct {
	// CronSpec is a standard 5-field cron expression.
	CronSpec    string
	ScanTimeout time.Duration
	Location    *time.Location
	// Clock supplies the scan instant; time.Now when nil.
	Clock func() time.Time
}

// ReminderRunner drives scans from the cron schedule (Tick) and on demand
// (Poll). Both consult the reminder setting first.
type ReminderRunner struct {
	scanner   Scanner
	settings  *SettingService
	publisher ReminderPublisher
	opts      RunnerOptions
	logger    *zap.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// NewReminderRunner builds a runner. publisher may be nil, in which case
// scheduled reminders are only logged.
func NewReminderRunner(scanner Scanner, settings *SettingService, publisher ReminderPublisher, opts RunnerOptions, logger *zap.Logger) *ReminderRunner {
	if opts.CronSpec == "" {
		opts.CronSpec = DefaultCronSpec
	}
	if opts.ScanTimeout <= 0 {
		opts.ScanTimeout = DefaultScanTimeout
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &ReminderRunner{
		scanner:   scanner,
		settings:  settings,
		publisher: publisher,
		opts:      opts,
		logger:    logger,
	}
}

// Poll runs one scan for a caller waiting on the result. Errors propagate.
// A disabled setting yields an empty, non-nil slice.
func (r *ReminderRunner) Poll(ctx context.Context) ([]model.Reminder, error) {
	return r.run(ctx, triggerPoll)
}

// Tick runs one scheduled scan. Errors are logged and swallowed so the
// schedule keeps going; the reminders produced (if any) are returned.
func (r *ReminderRunner) Tick(ctx context.Context) []model.Reminder {
	ctx, _ = trace.Ensure(ctx)
	log := logger.WithTrace(ctx, r.logger)

	reminders, err := r.run(ctx, triggerTick)
	if err != nil {
		log.Error("Scheduled reminder scan failed", zap.Error(err))
		return nil
	}
	if len(reminders) == 0 {
		log.Debug("Scheduled reminder scan produced nothing")
		return reminders
	}

	log.Info("Scheduled reminder scan completed", zap.Int("reminder_count", len(reminders)))
	if r.publisher != nil {
		// dedup state is already committed; a failed publish only loses the event
		if err := r.publisher.PublishReminders(ctx, reminders); err != nil {
			log.Warn("Some reminders were not published", zap.Error(err))
		}
	}
	return reminders
}

func (r *ReminderRunner) run(ctx context.Context, trigger string) ([]model.Reminder, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, r.opts.ScanTimeout)
	defer cancel()
	ctx, _ = trace.Ensure(ctx)

	enabled, err := r.settings.GetReminderEnabled(ctx)
	if err != nil {
		metrics.RecordReminderScan(trigger, "error", time.Since(start))
		return nil, fmt.Errorf("read reminder setting: %w", err)
	}
	if !enabled {
		metrics.RecordReminderScan(trigger, "disabled", time.Since(start))
		logger.WithTrace(ctx, r.logger).Debug("Reminders disabled, skipping scan", zap.String("trigger", trigger))
		return []model.Reminder{}, nil
	}

	reminders, err := r.scanner.Scan(ctx, r.opts.Clock())
	if err != nil {
		metrics.RecordReminderScan(trigger, "error", time.Since(start))
		return nil, fmt.Errorf("reminder scan: %w", err)
	}
	metrics.RecordReminderScan(trigger, "ok", time.Since(start))
	return reminders, nil
}

// Start schedules Tick on the cron spec. A tick that is still running when
// the next one is due causes that next one to be skipped.
func (r *ReminderRunner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cron != nil {
		return errors.New("reminder runner already started")
	}

	cl := cronLogger{log: r.logger}
	c := cron.New(
		cron.WithLocation(r.opts.Location),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(r.opts.CronSpec, func() { r.Tick(context.Background()) }); err != nil {
		return fmt.Errorf("invalid reminder cron spec %q: %w", r.opts.CronSpec, err)
	}
	c.Start()
	r.cron = c

	r.logger.Info("Reminder scheduler started",
		zap.String("cron", r.opts.CronSpec),
		zap.String("location", r.opts.Location.String()),
	)
	return nil
}

// Stop halts the schedule and waits for a running tick, bounded by ctx.
func (r *ReminderRunner) Stop(ctx context.Context) error {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.mu.Unlock()
	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		r.logger.Info("Reminder scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger routes cron's own logging into zap.
type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
