package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"todoreminder/internal/kvstore"
	"todoreminder/internal/model"
	"todoreminder/pkg/logger"
	"todoreminder/pkg/metrics"
	"todoreminder/pkg/otel"
	"todoreminder/pkg/util"
)

const (
	LockKeyPrefix = "reminder:lock:"

	DefaultLockTTL         = 5 * time.Minute
	DefaultOverdueStateTTL = 7 * 24 * time.Hour
	// LegacyOverdueStateTTL is the value older deployments used for the overdue
	// counter and last-fired keys. It is shorter than OverdueSpacing, so with it
	// the counter expires between firings and the cap never takes effect.
	LegacyOverdueStateTTL = 50 * time.Minute

	PreDueLead          = 30 * time.Minute
	WindowTolerance     = time.Minute
	MaxOverdueReminders = 3
	OverdueSpacing      = 24 * time.Hour
)

// legacyFiredAtLayouts are zone-less ISO local timestamps, read in time.Local.
var legacyFiredAtLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
}

// TaskReader is the read side of the task store.
type TaskReader interface {
	FindOpenTasksDueBetween(ctx context.Context, start, end time.Time) ([]model.Task, error)
	FindOpenTasksOverdueBefore(ctx context.Context, now time.Time) ([]model.Task, error)
}

func PreDueLockKey(taskID int64) string {
	return LockKeyPrefix + strconv.FormatInt(taskID, 10) + ":" + string(model.PolicyPreDue)
}

func DueNowLockKey(taskID int64) string {
	return LockKeyPrefix + strconv.FormatInt(taskID, 10) + ":" + string(model.PolicyDueNow)
}

func OverdueCountKey(taskID int64) string {
	return LockKeyPrefix + strconv.FormatInt(taskID, 10) + ":overdue:count"
}

func OverdueLastKey(taskID int64) string {
	return LockKeyPrefix + strconv.FormatInt(taskID, 10) + ":overdue:last"
}

// OverdueLockKey claims the n-th overdue occasion (n = count before firing).
func OverdueLockKey(taskID, n int64) string {
	return fmt.Sprintf("%s%d:overdue:%d", LockKeyPrefix, taskID, n)
}

type ReminderOptions struct {
	LockTTL         time.Duration
	OverdueStateTTL time.Duration
}

// ReminderService finds the tasks that need a reminder right now and makes
// sure each reminder occasion is emitted at most once across all instances
// sharing the same key/value store.
type ReminderService struct {
	tasks    TaskReader
	store    kvstore.Store
	locks    *util.Deduper
	counters *util.Counter
	stateTTL time.Duration
	logger   *zap.Logger
}

func NewReminderService(tasks TaskReader, store kvstore.Store, opts ReminderOptions, logger *zap.Logger) *ReminderService {
	if opts.LockTTL <= 0 {
		opts.LockTTL = DefaultLockTTL
	}
	if opts.OverdueStateTTL <= 0 {
		opts.OverdueStateTTL = DefaultOverdueStateTTL
	}
	if opts.OverdueStateTTL < OverdueSpacing {
		logger.Warn("Overdue state expires before the spacing interval; overdue cap will not hold",
			zap.Duration("overdue_state_ttl", opts.OverdueStateTTL),
			zap.Duration("overdue_spacing", OverdueSpacing),
		)
	}
	return &ReminderService{
		tasks:    tasks,
		store:    store,
		locks:    util.NewDeduperWithLogger(store, opts.LockTTL, logger),
		counters: util.NewCounter(store, opts.OverdueStateTTL),
		stateTTL: opts.OverdueStateTTL,
		logger:   logger,
	}
}

// Scan evaluates the pre-due, due-now and overdue policies against now and
// returns the reminders this call won, in that policy order. Task order from
// the reader is kept within each policy.
//
// A failure on a single task is logged and the task skipped. A task reader
// error or an unreachable store fails the whole scan; locks won before the
// failure stay consumed.
func (s *ReminderService) Scan(ctx context.Context, now time.Time) ([]model.Reminder, error) {
	ctx, span := otel.StartSpan(ctx, "reminder.scan")
	defer span.End()
	log := logger.WithTrace(ctx, s.logger)

	var preDue, dueNow, overdue []model.Reminder
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		preDue, err = s.scanWindow(gctx, log, model.PolicyPreDue, now.Add(PreDueLead))
		return err
	})
	g.Go(func() (err error) {
		dueNow, err = s.scanWindow(gctx, log, model.PolicyDueNow, now)
		return err
	})
	g.Go(func() (err error) {
		overdue, err = s.scanOverdue(gctx, log, now)
		return err
	})
	if err := g.Wait(); err != nil {
		otel.RecordError(span, err)
		return nil, err
	}

	reminders := make([]model.Reminder, 0, len(preDue)+len(dueNow)+len(overdue))
	reminders = append(reminders, preDue...)
	reminders = append(reminders, dueNow...)
	reminders = append(reminders, overdue...)

	span.SetAttributes(attribute.Int("reminder.count", len(reminders)))
	log.Debug("Reminder scan completed",
		zap.Int("pre_due_count", len(preDue)),
		zap.Int("due_now_count", len(dueNow)),
		zap.Int("overdue_count", len(overdue)),
	)
	return reminders, nil
}

// scanWindow handles the two single-shot policies: tasks due within
// WindowTolerance of target, one reminder per task per lock lifetime.
func (s *ReminderService) scanWindow(ctx context.Context, log *zap.Logger, policy model.ReminderPolicy, target time.Time) ([]model.Reminder, error) {
	start, end := target.Add(-WindowTolerance), target.Add(WindowTolerance)
	tasks, err := s.tasks.FindOpenTasksDueBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("%s: find tasks due between %s and %s: %w",
			policy, start.Format(time.RFC3339), end.Format(time.RFC3339), err)
	}

	lockKey, message := PreDueLockKey, model.MessagePreDue
	if policy == model.PolicyDueNow {
		lockKey, message = DueNowLockKey, model.MessageDueNow
	}

	var out []model.Reminder
	for _, task := range tasks {
		if !task.ReminderEligible() || task.DueTime.Before(start) || task.DueTime.After(end) {
			continue
		}

		won, err := s.locks.AcquireOnce(ctx, lockKey(task.ID))
		if err != nil {
			if util.IsUnavailable(err) {
				return nil, fmt.Errorf("%s: %w", policy, err)
			}
			s.taskFailed(log, policy, task, err)
			continue
		}
		if !won {
			metrics.IncrementReminderSkipped(string(policy), "locked")
			continue
		}

		out = append(out, model.NewReminder(task, policy, message))
		metrics.IncrementReminderEmitted(string(policy))
		log.Info("Reminder emitted",
			zap.Int64("task_id", task.ID),
			zap.String("policy", string(policy)),
		)
	}
	return out, nil
}

func (s *ReminderService) scanOverdue(ctx context.Context, log *zap.Logger, now time.Time) ([]model.Reminder, error) {
	tasks, err := s.tasks.FindOpenTasksOverdueBefore(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("%s: find tasks overdue before %s: %w",
			model.PolicyOverdue, now.Format(time.RFC3339), err)
	}

	var out []model.Reminder
	for _, task := range tasks {
		if !task.ReminderEligible() || !task.DueTime.Before(now) {
			continue
		}

		reminder, fired, err := s.fireOverdue(ctx, log, task, now)
		if err != nil {
			if util.IsUnavailable(err) {
				return nil, fmt.Errorf("%s: %w", model.PolicyOverdue, err)
			}
			s.taskFailed(log, model.PolicyOverdue, task, err)
			continue
		}
		if fired {
			out = append(out, reminder)
		}
	}
	return out, nil
}

// fireOverdue applies the cap and spacing rules for one task and, when the
// occasion lock is won, records the new count and firing time.
func (s *ReminderService) fireOverdue(ctx context.Context, log *zap.Logger, task model.Task, now time.Time) (model.Reminder, bool, error) {
	policy := string(model.PolicyOverdue)
	countKey, lastKey := OverdueCountKey(task.ID), OverdueLastKey(task.ID)

	count, malformed, err := s.counters.Get(ctx, countKey)
	if err != nil {
		return model.Reminder{}, false, err
	}
	if malformed {
		log.Warn("Malformed overdue counter, treating as 0",
			zap.Int64("task_id", task.ID),
			zap.String("key", countKey),
		)
	}
	if count >= MaxOverdueReminders {
		metrics.IncrementReminderSkipped(policy, "cap_reached")
		return model.Reminder{}, false, nil
	}

	raw, found, err := s.store.Get(ctx, lastKey)
	if err != nil {
		return model.Reminder{}, false, fmt.Errorf("get %s: %w", lastKey, err)
	}
	if found {
		last, perr := parseFiredAt(raw)
		if perr != nil {
			log.Warn("Malformed overdue last-fired time, treating as absent",
				zap.Int64("task_id", task.ID),
				zap.String("key", lastKey),
				zap.String("value", raw),
			)
		} else if !now.After(last.Add(OverdueSpacing)) {
			metrics.IncrementReminderSkipped(policy, "spacing")
			return model.Reminder{}, false, nil
		}
	}

	won, err := s.locks.AcquireOnce(ctx, OverdueLockKey(task.ID, count))
	if err != nil {
		return model.Reminder{}, false, err
	}
	if !won {
		metrics.IncrementReminderSkipped(policy, "locked")
		return model.Reminder{}, false, nil
	}

	// The occasion is claimed; a failed write below is logged but the reminder
	// still goes out. last-fired goes first so a concurrent scan that already
	// sees the new count also sees the spacing guard.
	if err := s.store.Set(ctx, lastKey, formatFiredAt(now), s.stateTTL); err != nil {
		metrics.IncrementReminderTaskError(policy)
		log.Error("Failed to record overdue last-fired time",
			zap.Int64("task_id", task.ID),
			zap.Error(err),
		)
	}
	if err := s.counters.Set(ctx, countKey, count+1); err != nil {
		metrics.IncrementReminderTaskError(policy)
		log.Error("Failed to record overdue count",
			zap.Int64("task_id", task.ID),
			zap.Int64("count", count+1),
			zap.Error(err),
		)
	}

	metrics.IncrementReminderEmitted(policy)
	log.Info("Reminder emitted",
		zap.Int64("task_id", task.ID),
		zap.String("policy", policy),
		zap.Int64("overdue_count", count+1),
	)
	return model.NewReminder(task, model.PolicyOverdue, model.MessageOverdue), true, nil
}

func (s *ReminderService) taskFailed(log *zap.Logger, policy model.ReminderPolicy, task model.Task, err error) {
	metrics.IncrementReminderTaskError(string(policy))
	log.Error("Failed to process task reminder, skipping",
		zap.Int64("task_id", task.ID),
		zap.String("policy", string(policy)),
		zap.String("error_kind", string(util.ClassifyError(err))),
		zap.Error(err),
	)
}

func formatFiredAt(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseFiredAt(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}
	for _, layout := range legacyFiredAtLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}
