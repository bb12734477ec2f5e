package service

import (
	"context"
	"sync"
	"time"

	"todoreminder/internal/kvstore"
	"todoreminder/internal/model"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(t time.Time) *testClock { return &testClock{now: t} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeTasks answers the reader queries from an in-memory list. With raw set
// it returns every task unfiltered, like a misbehaving store would.
type fakeTasks struct {
	mu         sync.Mutex
	tasks      []model.Task
	raw        bool
	windowErr  error
	overdueErr error
}

func (f *fakeTasks) add(tasks ...model.Task) {
	f.mu.Lock()
	f.tasks = append(f.tasks, tasks...)
	f.mu.Unlock()
}

func (f *fakeTasks) FindOpenTasksDueBetween(_ context.Context, start, end time.Time) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.windowErr != nil {
		return nil, f.windowErr
	}
	var out []model.Task
	for _, t := range f.tasks {
		if f.raw || (t.ReminderEligible() && !t.DueTime.Before(start) && !t.DueTime.After(end)) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTasks) FindOpenTasksOverdueBefore(_ context.Context, now time.Time) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.overdueErr != nil {
		return nil, f.overdueErr
	}
	var out []model.Task
	for _, t := range f.tasks {
		if f.raw || (t.ReminderEligible() && t.DueTime.Before(now)) {
			out = append(out, t)
		}
	}
	return out, nil
}

// faultyStore fails any operation on the configured keys.
type faultyStore struct {
	*kvstore.MemoryStore

	mu   sync.Mutex
	fail map[string]error
}

func newFaultyStore(mem *kvstore.MemoryStore) *faultyStore {
	return &faultyStore{MemoryStore: mem, fail: map[string]error{}}
}

func (s *faultyStore) failOn(key string, err error) {
	s.mu.Lock()
	s.fail[key] = err
	s.mu.Unlock()
}

func (s *faultyStore) errFor(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fail[key]
}

func (s *faultyStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := s.errFor(key); err != nil {
		return "", false, err
	}
	return s.MemoryStore.Get(ctx, key)
}

func (s *faultyStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.errFor(key); err != nil {
		return err
	}
	return s.MemoryStore.Set(ctx, key, value, ttl)
}

func (s *faultyStore) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if err := s.errFor(key); err != nil {
		return false, err
	}
	return s.MemoryStore.SetIfAbsent(ctx, key, value, ttl)
}

func task(id int64, title string, due time.Time) model.Task {
	return model.Task{ID: id, Title: title, DueTime: &due, Status: model.TaskStatusOpen}
}

func policies(rs []model.Reminder) []model.ReminderPolicy {
	out := make([]model.ReminderPolicy, len(rs))
	for i, r := range rs {
		out[i] = r.Policy
	}
	return out
}
