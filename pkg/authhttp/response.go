package authhttp

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrymomot/authsync/pkg/auth"
	"github.com/dmitrymomot/authsync/pkg/backend"
	"github.com/dmitrymomot/authsync/pkg/binder"
	"github.com/dmitrymomot/authsync/pkg/validator"
)

// Envelope is the body of every response.
type Envelope struct {
	Data  any          `json:"data,omitempty"`
	Error *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail is the error part of an Envelope.
type ErrorDetail struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Details map[string][]string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// errorDetail maps err to a status code and a client-safe detail.
func errorDetail(err error) (int, *ErrorDetail) {
	var (
		apiErr   *backend.APIError
		scopeErr *auth.ScopeError
	)

	switch {
	case errors.As(err, &scopeErr):
		return http.StatusInternalServerError, &ErrorDetail{Code: "auth_scope_missing", Message: scopeErr.Error()}

	case errors.Is(err, auth.ErrBackendUnavailable):
		return http.StatusServiceUnavailable, &ErrorDetail{Code: "backend_unavailable", Message: "authentication is not configured"}

	case errors.As(err, &apiErr):
		status := apiErr.Status
		if status < http.StatusBadRequest {
			status = http.StatusBadRequest
		}
		code := apiErr.Code
		if code == "" {
			code = "rejected"
		}
		return status, &ErrorDetail{Code: code, Message: apiErr.Message}

	case validator.IsValidationError(err):
		return http.StatusUnprocessableEntity, &ErrorDetail{
			Code:    "validation_error",
			Message: "request validation failed",
			Details: validator.ExtractValidationErrors(err).Messages(),
		}

	case errors.Is(err, binder.ErrMissingContentType), errors.Is(err, binder.ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType, &ErrorDetail{Code: "unsupported_media_type", Message: err.Error()}

	case errors.Is(err, binder.ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge, &ErrorDetail{Code: "request_entity_too_large", Message: err.Error()}

	case errors.Is(err, binder.ErrFailedToParseJSON):
		return http.StatusBadRequest, &ErrorDetail{Code: "bad_request", Message: err.Error()}
	}

	return http.StatusInternalServerError, &ErrorDetail{Code: "internal_error", Message: http.StatusText(http.StatusInternalServerError)}
}
