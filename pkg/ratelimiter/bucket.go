package ratelimiter

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

// Bucket implements a token bucket rate limiter.
type Bucket struct {
	store  Store
	config Config
	clock  clockwork.Clock
}

// BucketOption configures a Bucket.
type BucketOption func(*Bucket)

// WithClock sets the clock used to stamp requests. Default is the real clock.
func WithClock(clock clockwork.Clock) BucketOption {
	return func(b *Bucket) {
		if clock != nil {
			b.clock = clock
		}
	}
}

// NewBucket validates config and returns a Bucket backed by store.
func NewBucket(store Store, config Config, opts ...BucketOption) (*Bucket, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	b := &Bucket{store: store, config: config, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Allow takes one token for key.
func (b *Bucket) Allow(ctx context.Context, key string) (*Result, error) {
	return b.AllowN(ctx, key, 1)
}

// AllowN takes n tokens for key, or none when fewer are available.
func (b *Bucket) AllowN(ctx context.Context, key string, n int) (*Result, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: must be positive, got %d", ErrInvalidTokenCount, n)
	}
	return b.consume(ctx, key, n)
}

// Status returns the current state without consuming tokens.
func (b *Bucket) Status(ctx context.Context, key string) (*Result, error) {
	return b.consume(ctx, key, 0)
}

// Reset refills the bucket for key.
func (b *Bucket) Reset(ctx context.Context, key string) error {
	return b.store.Reset(ctx, key)
}

func (b *Bucket) consume(ctx context.Context, key string, n int) (*Result, error) {
	now := b.clock.Now()
	remaining, resetAt, err := b.store.ConsumeTokens(ctx, key, n, now, b.config)
	if err != nil {
		return nil, err
	}

	res := &Result{Limit: b.config.Capacity, Remaining: remaining, ResetAt: resetAt}
	if !res.Allowed() {
		// One refill interval adds RefillRate tokens.
		intervals := (-remaining + b.config.RefillRate - 1) / b.config.RefillRate
		res.RetryAfter = max(resetAt.Sub(now)+time.Duration(intervals-1)*b.config.RefillInterval, 0)
	}
	return res, nil
}

func invalidConfig(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...)
}
