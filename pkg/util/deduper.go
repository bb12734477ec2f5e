package util

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// LockStore is the single primitive the deduper needs: atomic set-if-absent with expiry.
type LockStore interface {
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
}

type Deduper struct {
	store  LockStore
	ttl    time.Duration
	logger *zap.Logger
}

func NewDeduper(store LockStore, ttl time.Duration) *Deduper {
	return NewDeduperWithLogger(store, ttl, zap.NewNop())
}

// NewDeduperWithLogger creates a deduper with logger support
func NewDeduperWithLogger(store LockStore, ttl time.Duration, logger *zap.Logger) *Deduper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deduper{
		store:  store,
		ttl:    ttl,
		logger: logger,
	}
}

// AcquireOnce tries to create the lock marker for key.
// It returns true only for the first caller; a duplicate returns false.
// Store errors are returned as-is: an unknown outcome must not count as acquired.
func (d *Deduper) AcquireOnce(ctx context.Context, key string) (bool, error) {
	ok, err := d.store.SetIfAbsent(ctx, key, "1", d.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", key, err)
	}

	if !ok {
		d.logger.Debug("Skipped duplicated occasion", zap.String("lock_key", key))
	}
	return ok, nil
}
