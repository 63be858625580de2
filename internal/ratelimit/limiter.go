// Package ratelimit throttles booking submissions per client per clock hour.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// Window is the width of one counting bucket.
	Window = time.Hour

	// DefaultLimit is the number of submissions allowed per client per bucket.
	DefaultLimit = 5
)

// ErrNoCounter is returned when a Limiter was built without a store.
var ErrNoCounter = errors.New("ratelimit: counter store not configured")

// Key identifies one counter: a client in one hour bucket.
type Key struct {
	Identifier  string
	BucketStart time.Time
}

// BucketStart truncates t to the top of its hour in UTC.
func BucketStart(t time.Time) time.Time {
	return t.UTC().Truncate(Window)
}

// Counter increments the counter for key and returns the post-increment
// value. A missing counter starts at 1. Implementations must not lose
// updates when called concurrently for the same key.
type Counter interface {
	Increment(ctx context.Context, key Key) (int64, error)
}

// Pruner removes counters whose bucket started before the cutoff.
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed     bool
	Count       int64
	Limit       int64
	BucketStart time.Time
	RetryAfter  time.Duration
}

// Limiter applies a fixed per-hour limit on top of a Counter.
type Limiter struct {
	counter Counter
	limit   int64
	now     func() time.Time
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLimiter builds a limiter allowing limit submissions per hour. A
// non-positive limit falls back to DefaultLimit.
func NewLimiter(counter Counter, limit int, opts ...Option) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	l := &Limiter{
		counter: counter,
		limit:   int64(limit),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Limit returns the configured submissions per hour.
func (l *Limiter) Limit() int64 {
	return l.limit
}

// Allow counts one attempt for identifier and decides whether it may proceed.
// The attempt is counted even when it is denied. Store failures are returned
// as errors; callers must treat them as a denial.
func (l *Limiter) Allow(ctx context.Context, identifier string) (Decision, error) {
	if l == nil || l.counter == nil {
		return Decision{}, ErrNoCounter
	}
	now := l.now()
	key := Key{Identifier: identifier, BucketStart: BucketStart(now)}

	count, err := l.counter.Increment(ctx, key)
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: increment %s: %w", identifier, err)
	}

	d := Decision{
		Allowed:     count <= l.limit,
		Count:       count,
		Limit:       l.limit,
		BucketStart: key.BucketStart,
	}
	if !d.Allowed {
		d.RetryAfter = key.BucketStart.Add(Window).Sub(now)
	}
	return d, nil
}
