// Package statemachine provides a small, generic finite state machine.
//
// States and events are any comparable types, typically string-based named
// types:
//
//	type State string
//	type Event string
//
//	m := statemachine.MustNew[State, Event]("initializing",
//	    statemachine.WithTransition[State, Event]("initializing", "authenticated", "session_present"),
//	    statemachine.WithTransition[State, Event]("initializing", "unauthenticated", "session_absent"),
//	)
//	next, err := m.Fire(ctx, "session_present", nil)
//
// Each transition may carry guards (all must pass) and actions (run in order
// before the state changes; an error aborts the transition). When several
// transitions share a from/event pair the first one whose guards pass wins.
// Listeners observe committed transitions after the lock is released.
//
// Fire returns *NoTransitionError when the pair is undefined and
// *RejectedError when guards blocked every candidate; use IsNoTransition and
// IsRejected to tell them apart.
//
// Machine guards its table and current state with a sync.RWMutex.
package statemachine
