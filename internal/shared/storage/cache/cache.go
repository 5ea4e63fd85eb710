// Package cache provides the fast key-value tier with per-key TTL.
//
// The Redis implementation backs production; the memory implementation backs
// dev mode and tests. Neither tier is authoritative: callers must treat every
// value as a disposable projection of the durable store.
package cache

import (
	"context"
	"time"
)

// Store is a key-value store with per-key TTL.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Close() error
}

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errMiss{}

type errMiss struct{}

func (errMiss) Error() string { return "cache: miss" }
