package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	mqcontracts "todoreminder/contracts/mq"
	"todoreminder/internal/model"
	"todoreminder/pkg/circuitbreaker"
	"todoreminder/pkg/trace"
)

type fakeEventPublisher struct {
	mu       sync.Mutex
	keys     []string
	payloads []mqcontracts.ReminderFiredPayload
	failFor  map[int64]error
}

func (f *fakeEventPublisher) Publish(_ context.Context, routingKey string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := payload.(mqcontracts.ReminderFiredPayload)
	f.keys = append(f.keys, routingKey)
	f.payloads = append(f.payloads, p)
	return f.failFor[p.TaskID]
}

func TestPublishRemindersPayload(t *testing.T) {
	t.Parallel()

	due := scanStart.Add(30 * time.Minute)
	events := &fakeEventPublisher{}
	pub := NewMQReminderPublisher(events, nil, zap.NewNop())
	pub.now = func() time.Time { return scanStart }
	ctx := trace.WithContext(context.Background(), "abc123")

	err := pub.PublishReminders(ctx, []model.Reminder{
		model.NewReminder(task(8, "ship it", due), model.PolicyPreDue, model.MessagePreDue),
	})
	if err != nil {
		t.Fatalf("PublishReminders: %v", err)
	}
	if len(events.keys) != 1 || events.keys[0] != RoutingKeyReminderFired {
		t.Fatalf("routing keys = %v", events.keys)
	}

	p := events.payloads[0]
	if p.TaskID != 8 || p.Title != "ship it" || p.ReminderType != "before30min" ||
		p.Message != model.MessagePreDue || !p.FiredAt.Equal(scanStart) || p.TraceID != "abc123" {
		t.Fatalf("unexpected payload %+v", p)
	}
	if p.DueTime == nil || !p.DueTime.Equal(due) {
		t.Fatalf("due time = %v, want %v", p.DueTime, due)
	}
}

func TestPublishRemindersContinuesAfterFailure(t *testing.T) {
	t.Parallel()

	brokerDown := errors.New("channel/connection is not open")
	events := &fakeEventPublisher{failFor: map[int64]error{1: brokerDown}}
	pub := NewMQReminderPublisher(events, nil, zap.NewNop())

	err := pub.PublishReminders(context.Background(), []model.Reminder{
		{TaskID: 1, Policy: model.PolicyDueNow},
		{TaskID: 2, Policy: model.PolicyDueNow},
	})
	if !errors.Is(err, brokerDown) {
		t.Fatalf("err = %v, want broker error", err)
	}
	if len(events.payloads) != 2 {
		t.Fatalf("attempted %d publishes, want 2", len(events.payloads))
	}
}

func TestPublishRemindersCircuitOpen(t *testing.T) {
	t.Parallel()

	brokerDown := errors.New("channel/connection is not open")
	events := &fakeEventPublisher{failFor: map[int64]error{1: brokerDown, 2: brokerDown, 3: brokerDown}}
	breaker := circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{FailureThreshold: 1, Timeout: time.Hour})
	pub := NewMQReminderPublisher(events, breaker, zap.NewNop())

	err := pub.PublishReminders(context.Background(), []model.Reminder{{TaskID: 1}, {TaskID: 2}, {TaskID: 3}})
	if !errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen) {
		t.Fatalf("err = %v, want circuit open", err)
	}
	if len(events.payloads) != 1 {
		t.Fatalf("broker saw %d publishes, want 1 before the breaker opened", len(events.payloads))
	}
}
