package auth

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dmitrymomot/authsync/pkg/backend"
	"github.com/dmitrymomot/authsync/pkg/broadcast"
	"github.com/dmitrymomot/authsync/pkg/logger"
	"github.com/dmitrymomot/authsync/pkg/statemachine"
)

// HandleSource hands out the backend client. *backend.Provider implements it.
type HandleSource interface {
	Handle() (backend.Client, bool)
}

const statusBuffer = 16

// Supervisor owns the authentication status for the lifetime of the
// application shell. Create it with New, start it with Mount and stop it with
// Unmount. All methods are safe for concurrent use.
type Supervisor struct {
	handles HandleSource
	timeout time.Duration
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *Metrics
	siteURL string

	// mu guards everything below. Backend calls are never made while it is
	// held.
	mu          sync.Mutex
	machine     *statemachine.Machine[State, Event]
	status      Status
	mounted     bool
	unmounted   bool
	mountedAt   time.Time
	timer       clockwork.Timer
	unsubscribe func()
	changes     *broadcast.MemoryBroadcaster[Status]

	// snapshot mirrors status for lock-free reads.
	snapshot atomic.Pointer[Status]
}

// New creates an unmounted Supervisor whose status is loading.
func New(handles HandleSource, opts ...Option) *Supervisor {
	s := &Supervisor{
		handles: handles,
		timeout: DefaultTimeout,
		clock:   clockwork.NewRealClock(),
		logger:  logger.Discard(),
		machine: newMachine(),
		status:  Status{State: StateInitializing, Loading: true},
		changes: broadcast.NewMemoryBroadcaster[Status](statusBuffer),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.publish()
	return s
}

// Mount runs the initialization once. Without a backend handle the status
// settles unauthenticated immediately. Otherwise Mount starts the timeout,
// subscribes to session changes and only then starts restoring the session
// in the background. It does not wait for the outcome.
func (s *Supervisor) Mount(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.unmounted:
		s.mu.Unlock()
		return ErrUnmounted
	case s.mounted:
		s.mu.Unlock()
		return ErrAlreadyMounted
	}
	s.mounted = true
	s.mountedAt = s.clock.Now()
	s.mu.Unlock()

	client, ok := s.handles.Handle()
	if !ok {
		s.logger.InfoContext(ctx, "identity backend not configured, continuing without authentication",
			logger.Component("auth"),
		)
		s.settle(ctx, SourceNoBackend, EventSessionAbsent, nil)
		return nil
	}

	s.mu.Lock()
	if s.unmounted {
		s.mu.Unlock()
		return nil
	}
	s.timer = s.clock.AfterFunc(s.timeout, func() { s.onTimeout(context.WithoutCancel(ctx)) })
	s.mu.Unlock()

	unsubscribe := client.OnSessionChange(func(ev backend.ChangeEvent) {
		s.onChange(context.WithoutCancel(ctx), ev)
	})

	s.mu.Lock()
	if s.unmounted {
		s.mu.Unlock()
		unsubscribe()
		return nil
	}
	s.unsubscribe = unsubscribe
	s.mu.Unlock()

	go s.restore(context.WithoutCancel(ctx), client)
	return nil
}

// Unmount stops the timeout, unsubscribes from session changes and closes
// every Changes stream. Later completions are ignored. Safe to call more than
// once.
func (s *Supervisor) Unmount() {
	s.mu.Lock()
	if s.unmounted {
		s.mu.Unlock()
		return
	}
	s.unmounted = true
	if s.timer != nil {
		s.timer.Stop()
	}
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	_ = s.changes.Close()
}

// Status returns the current snapshot without blocking on settlement.
func (s *Supervisor) Status() Status {
	return *s.snapshot.Load()
}

// publish must be called with mu held, or before s is shared.
func (s *Supervisor) publish() {
	st := s.status
	s.snapshot.Store(&st)
}

// Changes streams every status update made after the call. The stream ends
// when ctx is cancelled or the Supervisor is unmounted.
func (s *Supervisor) Changes(ctx context.Context) broadcast.Subscriber[Status] {
	return s.changes.Subscribe(ctx)
}

// SignUp registers a new account. The status is updated by the resulting
// session notification, not here.
func (s *Supervisor) SignUp(ctx context.Context, email, password, displayName string) error {
	client, ok := s.handles.Handle()
	if !ok {
		s.metrics.operation("sign_up", ErrBackendUnavailable)
		return ErrBackendUnavailable
	}

	opts := backend.SignUpOptions{RedirectTo: s.redirectTarget()}
	if displayName != "" {
		opts.Metadata = map[string]any{"display_name": displayName}
	}

	err := client.SignUp(ctx, email, password, opts)
	s.metrics.operation("sign_up", err)
	return err
}

// SignIn authenticates with email and password. Like SignUp, the status
// follows from the session notification.
func (s *Supervisor) SignIn(ctx context.Context, email, password string) error {
	client, ok := s.handles.Handle()
	if !ok {
		s.metrics.operation("sign_in", ErrBackendUnavailable)
		return ErrBackendUnavailable
	}

	err := client.SignInWithPassword(ctx, email, password)
	s.metrics.operation("sign_in", err)
	return err
}

// SignOut asks the backend to end the session. Failures are logged only.
func (s *Supervisor) SignOut(ctx context.Context) {
	client, ok := s.handles.Handle()
	if !ok {
		return
	}

	err := client.SignOut(ctx)
	s.metrics.operation("sign_out", err)
	if err != nil {
		s.logger.ErrorContext(ctx, "sign out failed",
			logger.Component("auth"),
			logger.Error(err),
		)
	}
}

func (s *Supervisor) redirectTarget() string {
	if s.siteURL == "" {
		return ""
	}
	return strings.TrimRight(s.siteURL, "/") + "/"
}

func (s *Supervisor) onChange(ctx context.Context, ev backend.ChangeEvent) {
	s.metrics.notification(ev.Kind)
	s.settle(ctx, SourceNotification, sessionEvent(ev.Session), ev.Session)
}

func (s *Supervisor) restore(ctx context.Context, client backend.Client) {
	session, err := client.GetSession(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to restore session",
			logger.Component("auth"),
			logger.Error(err),
		)
		s.settle(ctx, SourceFetchError, EventFetchFailed, nil)
		return
	}
	s.settle(ctx, SourceFetch, sessionEvent(session), session)
}

func (s *Supervisor) onTimeout(ctx context.Context) {
	if s.settle(ctx, SourceTimeout, EventTimedOut, nil) {
		s.logger.WarnContext(ctx, "session restore timed out, continuing unauthenticated",
			logger.Component("auth"),
			logger.Duration(s.timeout),
		)
	}
}

// settle is the single place status changes. Notifications always apply.
// Every other source applies only while the status is still loading, so a
// restore that resolves after a notification or the timeout is dropped. The
// first applied completion clears Loading and stops the timer. Nothing
// applies after Unmount. Reports whether the completion was applied.
func (s *Supervisor) settle(ctx context.Context, source Source, event Event, session *backend.Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unmounted {
		s.metrics.completion(source, outcomeTornDown)
		return false
	}

	first := s.status.Loading
	if !first && source != SourceNotification {
		s.metrics.completion(source, outcomeStale)
		s.logger.DebugContext(ctx, "ignoring late completion",
			logger.Component("auth"),
			logger.Source(string(source)),
		)
		return false
	}

	state, err := s.machine.Fire(ctx, event, nil)
	if err != nil {
		s.metrics.completion(source, outcomeStale)
		s.logger.DebugContext(ctx, "completion rejected by state machine",
			logger.Component("auth"),
			logger.Source(string(source)),
			logger.Error(err),
		)
		return false
	}

	s.status.State = state
	if event == EventSessionPresent || event == EventSessionAbsent {
		s.status.Session = session
		s.status.User = principal(session)
	}
	if first {
		s.status.Loading = false
		s.status.SettledBy = source
		if s.timer != nil {
			s.timer.Stop()
		}
		s.metrics.settled(s.clock.Since(s.mountedAt))
	}
	s.publish()
	s.metrics.completion(source, outcomeApplied)

	s.logger.DebugContext(ctx, "session status updated",
		logger.Component("auth"),
		logger.Source(string(source)),
		logger.State(string(state)),
	)

	// Broadcasting under mu keeps the stream in status order; it never blocks.
	if err := s.changes.Broadcast(ctx, broadcast.Message[Status]{Data: s.status}); err != nil {
		s.logger.WarnContext(ctx, "status update not delivered to every subscriber",
			logger.Component("auth"),
			logger.Error(err),
		)
	}
	return true
}
