package backend

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ChangeKind names why the backend session changed.
type ChangeKind string

const (
	ChangeInitialSession ChangeKind = "INITIAL_SESSION"
	ChangeSignedIn       ChangeKind = "SIGNED_IN"
	ChangeSignedOut      ChangeKind = "SIGNED_OUT"
	ChangeTokenRefreshed ChangeKind = "TOKEN_REFRESHED"
	ChangeUserUpdated    ChangeKind = "USER_UPDATED"
)

// ChangeEvent is delivered to OnSessionChange callbacks. Session is nil when
// the change left no active session.
type ChangeEvent struct {
	Kind    ChangeKind
	Session *Session
}

// User is the principal derived from a Session.
type User struct {
	ID          uuid.UUID      `json:"id"`
	Email       string         `json:"email"`
	DisplayName string         `json:"display_name,omitempty"`
	Metadata    map[string]any `json:"user_metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Session is the backend-issued proof of authentication. It is owned by the
// backend client; consumers treat it as read-only.
type Session struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *User     `json:"user"`
}

// Expired reports whether the access token has expired at now. A zero
// ExpiresAt never expires.
func (s *Session) Expired(now time.Time) bool {
	return s != nil && !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// SignUpOptions carries optional sign-up parameters.
type SignUpOptions struct {
	// RedirectTo is where the verification email sends the user back to.
	RedirectTo string
	// Metadata is stored on the new user record (display name and similar).
	Metadata map[string]any
}

// Client is the identity backend as seen by the rest of the application.
type Client interface {
	// GetSession returns the current session, or nil when there is none.
	GetSession(ctx context.Context) (*Session, error)

	// OnSessionChange registers fn for every session change. Registration is
	// complete when it returns. The returned func unsubscribes; it is
	// idempotent.
	OnSessionChange(fn func(ChangeEvent)) (unsubscribe func())

	SignUp(ctx context.Context, email, password string, opts SignUpOptions) error
	SignInWithPassword(ctx context.Context, email, password string) error
	SignOut(ctx context.Context) error
}

// Config is what a Factory needs to build a Client.
type Config struct {
	URL string
	Key string
}

// Factory builds a Client. A returned error means the configuration is
// unusable; the Provider does not cache the failure.
type Factory func(Config) (Client, error)
