package gotrue

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrymomot/authsync/pkg/backend"
)

// tokenResponse is returned by /token and, for confirmed accounts, /signup.
type tokenResponse struct {
	AccessToken  string        `json:"access_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int64         `json:"expires_in"`
	ExpiresAt    int64         `json:"expires_at"`
	RefreshToken string        `json:"refresh_token"`
	User         *backend.User `json:"user"`
}

func (r *tokenResponse) session(now time.Time) (*backend.Session, error) {
	if r.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access token", ErrMalformedResponse)
	}

	s := &backend.Session{
		AccessToken:  r.AccessToken,
		TokenType:    r.TokenType,
		RefreshToken: r.RefreshToken,
		User:         r.User,
	}
	switch {
	case r.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(r.ExpiresAt, 0)
	case r.ExpiresIn > 0:
		s.ExpiresAt = now.Add(time.Duration(r.ExpiresIn) * time.Second)
	}

	if s.User != nil && !s.ExpiresAt.IsZero() {
		if s.User.DisplayName == "" {
			s.User.DisplayName = displayName(s.User.Metadata)
		}
		return s, nil
	}

	claims, err := parseAccessToken(r.AccessToken)
	if err != nil {
		if s.User == nil {
			return nil, err
		}
		return s, nil
	}
	if s.ExpiresAt.IsZero() {
		s.ExpiresAt = claims.expiresAt()
	}
	if s.User == nil {
		if s.User, err = claims.user(); err != nil {
			return nil, err
		}
	} else if s.User.DisplayName == "" {
		s.User.DisplayName = displayName(s.User.Metadata)
	}
	return s, nil
}

// errorBody covers both error shapes GoTrue has used.
type errorBody struct {
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func decodeError(status int, raw []byte) *backend.APIError {
	apiErr := &backend.APIError{Status: status}

	var body errorBody
	if len(raw) > 0 && json.Unmarshal(raw, &body) == nil {
		apiErr.Code = firstNonEmpty(body.ErrorCode, body.Error)
		apiErr.Message = firstNonEmpty(body.Msg, body.Message, body.ErrorDescription)
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
