package auth

import (
	"github.com/dmitrymomot/authsync/pkg/backend"
	"github.com/dmitrymomot/authsync/pkg/statemachine"
)

// State is the coarse authentication state.
type State string

const (
	StateInitializing    State = "initializing"
	StateAuthenticated   State = "authenticated"
	StateUnauthenticated State = "unauthenticated"
)

// Event drives the status state machine.
type Event string

const (
	EventSessionPresent Event = "session_present"
	EventSessionAbsent  Event = "session_absent"
	EventFetchFailed    Event = "fetch_failed"
	EventTimedOut       Event = "timed_out"
)

// Source names the completion that produced a status update.
type Source string

const (
	SourceNoBackend    Source = "no_backend"
	SourceNotification Source = "notification"
	SourceFetch        Source = "fetch"
	SourceFetchError   Source = "fetch_error"
	SourceTimeout      Source = "timeout"
)

// Status is a point-in-time view of the session.
type Status struct {
	State   State
	Session *backend.Session
	User    *backend.User
	Loading bool
	// SettledBy is the completion that first cleared Loading. Empty while
	// loading.
	SettledBy Source
}

// Authenticated reports whether a session is present.
func (s Status) Authenticated() bool {
	return s.State == StateAuthenticated
}

// Nothing leads back to StateInitializing, and fetch failures and timeouts
// are only meaningful before the first settlement.
func newMachine() *statemachine.Machine[State, Event] {
	return statemachine.MustNew(StateInitializing,
		statemachine.WithTransitions([]statemachine.Transition[State, Event]{
			{From: StateInitializing, To: StateAuthenticated, Event: EventSessionPresent},
			{From: StateInitializing, To: StateUnauthenticated, Event: EventSessionAbsent},
			{From: StateInitializing, To: StateUnauthenticated, Event: EventFetchFailed},
			{From: StateInitializing, To: StateUnauthenticated, Event: EventTimedOut},
			{From: StateAuthenticated, To: StateAuthenticated, Event: EventSessionPresent},
			{From: StateAuthenticated, To: StateUnauthenticated, Event: EventSessionAbsent},
			{From: StateUnauthenticated, To: StateAuthenticated, Event: EventSessionPresent},
			{From: StateUnauthenticated, To: StateUnauthenticated, Event: EventSessionAbsent},
		}),
	)
}

func sessionEvent(s *backend.Session) Event {
	if s == nil {
		return EventSessionAbsent
	}
	return EventSessionPresent
}

// principal derives the User for s. A session always yields a non-nil User.
func principal(s *backend.Session) *backend.User {
	if s == nil {
		return nil
	}
	if s.User == nil {
		return &backend.User{}
	}
	return s.User
}
