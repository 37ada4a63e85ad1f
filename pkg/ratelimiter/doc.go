// Package ratelimiter implements a token bucket limiter with in-memory and
// Redis stores, plus an HTTP middleware.
//
// A bucket holds up to Capacity tokens and regains RefillRate tokens every
// RefillInterval. Each request takes one token; a request that finds too few
// tokens is denied and takes nothing.
//
//	limiter, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(), ratelimiter.Config{
//	    Capacity:       5,
//	    RefillRate:     1,
//	    RefillInterval: 12 * time.Second,
//	})
//	r.With(ratelimiter.Middleware(limiter, ratelimiter.Composite(ratelimiter.ByPath, ratelimiter.ByClientIP))).
//	    Post("/sign-in", signIn)
//
// Use NewRedisStore to share buckets between replicas. The refill arithmetic
// runs in a Lua script so concurrent replicas never double-spend a token.
package ratelimiter
