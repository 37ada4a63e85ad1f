package gotrue

import "errors"

var (
	ErrInvalidURL        = errors.New("gotrue: invalid backend URL")
	ErrMissingKey        = errors.New("gotrue: missing API key")
	ErrMalformedResponse = errors.New("gotrue: malformed response")
	ErrRequestFailed     = errors.New("gotrue: request failed")
)
