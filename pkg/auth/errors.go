package auth

import (
	"errors"
	"fmt"
)

var (
	ErrBackendUnavailable = errors.New("auth: identity backend unavailable")
	ErrAlreadyMounted     = errors.New("auth: supervisor already mounted")
	ErrUnmounted          = errors.New("auth: supervisor has been unmounted")
)

// ScopeError reports an attempt to reach the Supervisor from a context that
// was never given one.
type ScopeError struct {
	Op string
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("auth: %s used outside of a supervisor scope", e.Op)
}

// IsScopeError reports whether err wraps a *ScopeError.
func IsScopeError(err error) bool {
	var se *ScopeError
	return errors.As(err, &se)
}
