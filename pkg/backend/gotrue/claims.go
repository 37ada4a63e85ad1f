package gotrue

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/authsync/pkg/backend"
)

// accessClaims is the subset of GoTrue access-token claims the client reads.
type accessClaims struct {
	jwt.RegisteredClaims
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

// parseAccessToken decodes the claims without verifying the signature. The
// token came straight from the backend over TLS; verification is the
// backend's job when the token is presented back to it.
func parseAccessToken(token string) (*accessClaims, error) {
	claims := &accessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: access token: %w", ErrMalformedResponse, err)
	}
	return claims, nil
}

func (c *accessClaims) user() (*backend.User, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: subject claim: %w", ErrMalformedResponse, err)
	}
	u := &backend.User{
		ID:       id,
		Email:    c.Email,
		Metadata: c.UserMetadata,
	}
	if c.IssuedAt != nil {
		u.CreatedAt = c.IssuedAt.Time
	}
	u.DisplayName = displayName(u.Metadata)
	return u, nil
}

func (c *accessClaims) expiresAt() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

func displayName(md map[string]any) string {
	for _, k := range []string{"display_name", "full_name", "name"} {
		if v, ok := md[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
