// Package kv defines the durable key-value contract that backs local client state
// (cart contents, the cart badge count and the signed-in user).
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key is absent or expired.
var ErrNotFound = errors.New("kv: key not found")

// Store is implemented by every storage backend (memory, SQL via pkg/db, Redis via pkg/redis).
// A zero ttl stores the value without expiry.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// Pinger is implemented by backends that can report reachability for readiness checks.
type Pinger interface {
	Ping(ctx context.Context) error
}
