package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	mqcontracts "todoreminder/contracts/mq"
	"todoreminder/internal/model"
	"todoreminder/pkg/circuitbreaker"
	"todoreminder/pkg/metrics"
	"todoreminder/pkg/trace"
)

const RoutingKeyReminderFired = "reminder.fired"

// ReminderPublisher forwards reminders produced by scheduled scans.
type ReminderPublisher interface {
	PublishReminders(ctx context.Context, reminders []model.Reminder) error
}

// EventPublisher is satisfied by *mq.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

type MQReminderPublisher struct {
	publisher EventPublisher
	breaker   *circuitbreaker.CircuitBreaker
	now       func() time.Time
	logger    *zap.Logger
}

func NewMQReminderPublisher(publisher EventPublisher, breaker *circuitbreaker.CircuitBreaker, logger *zap.Logger) *MQReminderPublisher {
	if breaker == nil {
		breaker = circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig())
	}
	return &MQReminderPublisher{
		publisher: publisher,
		breaker:   breaker,
		now:       time.Now,
		logger:    logger,
	}
}

// PublishReminders sends one reminder.fired event per reminder. Every reminder
// is attempted; the returned error joins the individual failures.
func (p *MQReminderPublisher) PublishReminders(ctx context.Context, reminders []model.Reminder) error {
	traceID := trace.FromContext(ctx)
	firedAt := p.now().UTC()

	var errs []error
	for _, r := range reminders {
		payload := mqcontracts.ReminderFiredPayload{
			TaskID:       r.TaskID,
			Title:        r.Title,
			DueTime:      r.DueTime,
			ReminderType: string(r.Policy),
			Message:      r.Message,
			FiredAt:      firedAt,
			TraceID:      traceID,
		}

		err := p.breaker.Execute(func() error {
			return p.publisher.Publish(ctx, RoutingKeyReminderFired, payload)
		})
		switch {
		case err == nil:
			metrics.IncrementReminderPublish("ok")
			continue
		case errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen):
			metrics.IncrementReminderPublish("circuit_open")
		default:
			metrics.IncrementReminderPublish("failed")
		}
		p.logger.Error("Failed to publish reminder.fired event",
			zap.Int64("task_id", r.TaskID),
			zap.String("policy", string(r.Policy)),
			zap.Error(err),
		)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
