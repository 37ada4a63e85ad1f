package ratelimiter

import (
	"context"
	"time"
)

// Config defines the token bucket configuration.
type Config struct {
	Capacity       int           // Maximum tokens the bucket can hold (burst limit)
	RefillRate     int           // Number of tokens added per refill interval
	RefillInterval time.Duration // How often tokens are added
}

// Result contains the result of a rate limit check.
type Result struct {
	Limit     int
	Remaining int // negative when denied
	ResetAt   time.Time
	// RetryAfter is how long to wait before retrying; zero when allowed.
	RetryAfter time.Duration
}

// Allowed reports whether the request was admitted.
func (r *Result) Allowed() bool {
	return r.Remaining >= 0
}

// Limiter decides whether the caller identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (*Result, error)
}

// Store keeps bucket state.
type Store interface {
	// ConsumeTokens refills the bucket up to now and takes tokens if enough
	// are available. remaining is what is left after taking, or the shortfall
	// as a negative number when nothing was taken. tokens may be 0 to inspect.
	ConsumeTokens(ctx context.Context, key string, tokens int, now time.Time, config Config) (remaining int, resetAt time.Time, err error)

	// Reset clears the rate limit state for the given key.
	Reset(ctx context.Context, key string) error
}

func (c Config) validate() error {
	switch {
	case c.Capacity <= 0:
		return invalidConfig("capacity must be positive, got %d", c.Capacity)
	case c.RefillRate <= 0:
		return invalidConfig("refill rate must be positive, got %d", c.RefillRate)
	case c.RefillInterval <= 0:
		return invalidConfig("refill interval must be positive, got %v", c.RefillInterval)
	}
	return nil
}

// ttl is how long an untouched bucket takes to refill completely, after which
// its state is indistinguishable from a new bucket.
func (c Config) ttl() time.Duration {
	intervals := (c.Capacity + c.RefillRate - 1) / c.RefillRate
	return time.Duration(intervals+1) * c.RefillInterval
}
