// Package kvstore is the key/value store client the reminder scanner and the
// settings live on. SetIfAbsent is the load-bearing primitive: at most one
// caller may observe acquired=true for a key until it expires.
package kvstore

import (
	"context"
	"time"
)

type Store interface {
	// Get returns found=false for an absent or expired key.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set overwrites key unconditionally. ttl <= 0 means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetIfAbsent writes key only when it does not exist.
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (acquired bool, err error)
}
