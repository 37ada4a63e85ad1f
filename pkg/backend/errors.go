package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// Handle acquisition errors.
var (
	ErrConfigurationMissing     = errors.New("backend: configuration missing")
	ErrHandleConstructionFailed = errors.New("backend: handle construction failed")
)

// Classes of backend rejections. APIError matches them through errors.Is.
var (
	ErrInvalidCredentials = errors.New("backend: invalid credentials")
	ErrUserAlreadyExists  = errors.New("backend: user already exists")
	ErrRateLimited        = errors.New("backend: rate limited")
	ErrSessionFetchFailed = errors.New("backend: session fetch failed")
)

// APIError is a rejection returned by the identity backend. It is passed to
// callers verbatim.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend: %s (%d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("backend: status %d: %s", e.Status, e.Message)
}

// Is maps well-known GoTrue codes onto ErrInvalidCredentials,
// ErrUserAlreadyExists and ErrRateLimited.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrInvalidCredentials:
		return e.Code == "invalid_credentials" || e.Code == "invalid_grant"
	case ErrUserAlreadyExists:
		return e.Code == "user_already_exists" || e.Code == "email_exists"
	case ErrRateLimited:
		return e.Status == http.StatusTooManyRequests || e.Code == "over_request_rate_limit" || e.Code == "over_email_send_rate_limit"
	}
	return false
}
