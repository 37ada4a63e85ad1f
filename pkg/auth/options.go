package auth

import (
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultTimeout bounds how long the initial status may stay loading.
const DefaultTimeout = 3 * time.Second

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithClock sets the clock driving the timeout. Tests pass a fake clock.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Supervisor) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets the logger. Default discards.
func WithLogger(l *slog.Logger) Option {
	return func(s *Supervisor) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records completions and operations on m. Nil disables metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Supervisor) {
		s.metrics = m
	}
}

// WithSiteURL sets the origin users are sent back to after verifying their
// email address.
func WithSiteURL(origin string) Option {
	return func(s *Supervisor) {
		s.siteURL = origin
	}
}
