package util

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CounterStore is the read/write surface a Counter needs.
type CounterStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Counter keeps small integer counters as decimal strings with an expiry refreshed on every write.
type Counter struct {
	store CounterStore
	ttl   time.Duration
}

func NewCounter(store CounterStore, ttl time.Duration) *Counter {
	return &Counter{store: store, ttl: ttl}
}

// Get returns the current count. An absent key is 0.
// A non-numeric value is also 0 and reported through malformed so callers can log it.
func (c *Counter) Get(ctx context.Context, key string) (count int64, malformed bool, err error) {
	raw, found, err := c.store.Get(ctx, key)
	if err != nil {
		return 0, false, fmt.Errorf("get %s: %w", key, err)
	}
	if !found {
		return 0, false, nil
	}
	n, perr := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if perr != nil || n < 0 {
		return 0, true, nil
	}
	return n, false, nil
}

// Set overwrites the count and restarts its expiry.
func (c *Counter) Set(ctx context.Context, key string, count int64) error {
	if err := c.store.Set(ctx, key, strconv.FormatInt(count, 10), c.ttl); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
