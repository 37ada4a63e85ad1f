package auth

import (
	"context"
	"log/slog"
)

type contextKey struct{}

// WithSupervisor establishes the supervisor scope for ctx.
func WithSupervisor(ctx context.Context, s *Supervisor) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the Supervisor placed by WithSupervisor, or a
// *ScopeError.
func FromContext(ctx context.Context) (*Supervisor, error) {
	s, ok := ctx.Value(contextKey{}).(*Supervisor)
	if !ok || s == nil {
		return nil, &ScopeError{Op: "FromContext"}
	}
	return s, nil
}

// MustFromContext panics outside a supervisor scope. Use only where the
// scope is guaranteed by the router.
func MustFromContext(ctx context.Context) *Supervisor {
	s, err := FromContext(ctx)
	if err != nil {
		panic(err)
	}
	return s
}

// StatusFromContext is FromContext followed by Status.
func StatusFromContext(ctx context.Context) (Status, error) {
	s, err := FromContext(ctx)
	if err != nil {
		return Status{}, &ScopeError{Op: "StatusFromContext"}
	}
	return s.Status(), nil
}

// LoggerExtractor adds the signed-in user's ID to log records made within a
// supervisor scope.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		s, err := FromContext(ctx)
		if err != nil {
			return slog.Attr{}, false
		}
		if u := s.Status().User; u != nil {
			return slog.String("user_id", u.ID.String()), true
		}
		return slog.Attr{}, false
	}
}
