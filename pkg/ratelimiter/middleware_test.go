package ratelimiter_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authsync/pkg/clientip"
	"github.com/dmitrymomot/authsync/pkg/ratelimiter"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func request(h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/sign-in", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware(t *testing.T) {
	t.Parallel()
	b, _ := newMemoryBucket(t)
	h := ratelimiter.Middleware(b, ratelimiter.ByClientIP)(okHandler)

	for i := range 3 {
		rec := request(h, "192.0.2.1:1000")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
		assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
	}

	rec := request(h, "192.0.2.1:2000")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "10", rec.Header().Get("Retry-After"))

	rec = request(h, "192.0.2.2:1000")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddleware_LimitedHandler(t *testing.T) {
	t.Parallel()
	b, _ := newMemoryBucket(t)
	var got *ratelimiter.Result
	h := ratelimiter.Middleware(b, ratelimiter.ByClientIP,
		ratelimiter.WithLimitedHandler(func(w http.ResponseWriter, r *http.Request, res *ratelimiter.Result) {
			got = res
			w.WriteHeader(http.StatusTeapot)
		}),
	)(okHandler)

	for range 3 {
		request(h, "192.0.2.1:1000")
	}
	rec := request(h, "192.0.2.1:1000")

	assert.Equal(t, http.StatusTeapot, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, -1, got.Remaining)
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (*ratelimiter.Result, error) {
	return nil, ratelimiter.ErrStoreUnavailable
}

func TestMiddleware_StoreError(t *testing.T) {
	t.Parallel()

	rec := request(ratelimiter.Middleware(failingLimiter{}, ratelimiter.ByClientIP)(okHandler), "192.0.2.1:1")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var seen error
	h := ratelimiter.Middleware(failingLimiter{}, ratelimiter.ByClientIP,
		ratelimiter.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			seen = err
			w.WriteHeader(http.StatusServiceUnavailable)
		}),
	)(okHandler)
	rec = request(h, "192.0.2.1:1")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.True(t, errors.Is(seen, ratelimiter.ErrStoreUnavailable))
}

func TestKeyFuncs(t *testing.T) {
	t.Parallel()
	req := httptest.NewRequest(http.MethodPost, "/auth/sign-in", nil)
	req.RemoteAddr = "198.51.100.4:9"

	assert.Equal(t, "198.51.100.4", ratelimiter.ByClientIP(req))
	assert.Equal(t, "/auth/sign-in:198.51.100.4", ratelimiter.Composite(ratelimiter.ByPath, ratelimiter.ByClientIP)(req))

	withCtx := req.WithContext(clientip.WithContext(req.Context(), "203.0.113.1"))
	assert.Equal(t, "203.0.113.1", ratelimiter.ByClientIP(withCtx))

	long := ratelimiter.Composite(
		func(*http.Request) string { return string(make([]byte, 80)) },
		ratelimiter.ByClientIP,
	)(req)
	assert.LessOrEqual(t, len(long), 64)
	assert.NotEmpty(t, long)

	empty := ratelimiter.Composite(func(*http.Request) string { return "" })(req)
	assert.Empty(t, empty)
}
