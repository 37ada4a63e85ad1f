package authhttp

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/authsync/pkg/auth"
	"github.com/dmitrymomot/authsync/pkg/binder"
	"github.com/dmitrymomot/authsync/pkg/logger"
	"github.com/dmitrymomot/authsync/pkg/ratelimiter"
	"github.com/dmitrymomot/authsync/pkg/requestid"
	"github.com/dmitrymomot/authsync/pkg/sanitizer"
	"github.com/dmitrymomot/authsync/pkg/validator"
)

// Password bounds accepted before a request reaches the backend. 72 bytes is
// the bcrypt input limit used by GoTrue.
const (
	minPasswordLen    = 6
	maxPasswordLen    = 72
	maxDisplayNameLen = 100
)

type handlers struct {
	logger  *slog.Logger
	bind    binder.Bind
	limiter ratelimiter.Limiter
	token   string
}

// Option configures the handlers registered by Router and Routes.
type Option func(*handlers)

// WithLogger sets the logger for request failures. Default discards.
func WithLogger(l *slog.Logger) Option {
	return func(h *handlers) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithMaxBodySize caps request bodies. Default binder.DefaultMaxJSONSize.
func WithMaxBodySize(n int64) Option {
	return func(h *handlers) { h.bind = binder.JSON(n) }
}

// WithRateLimit throttles sign-up and sign-in per path and client IP.
func WithRateLimit(l ratelimiter.Limiter) Option {
	return func(h *handlers) { h.limiter = l }
}

// WithShellToken requires "Authorization: Bearer <token>" on every route,
// status included. An empty token leaves the routes open.
func WithShellToken(token string) Option {
	return func(h *handlers) { h.token = token }
}

func newHandlers(opts ...Option) *handlers {
	h := &handlers{
		logger: logger.Discard(),
		bind:   binder.JSON(0),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router returns a chi router serving sup under the request-ID and scope
// middleware.
func Router(sup *auth.Supervisor, opts ...Option) chi.Router {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(Scope(sup))
	Routes(r, opts...)
	return r
}

// Routes registers the handlers on r. r must establish the supervisor scope.
func Routes(r chi.Router, opts ...Option) {
	h := newHandlers(opts...)
	if h.token != "" {
		r = r.With(h.requireToken)
	}
	r.Get("/status", h.status)
	r.Post("/sign-out", h.signOut)

	var guards []func(http.Handler) http.Handler
	if h.limiter != nil {
		guards = append(guards, ratelimiter.Middleware(h.limiter,
			ratelimiter.Composite(ratelimiter.ByPath, ratelimiter.ByClientIP),
			ratelimiter.WithLimitedHandler(h.limited),
			ratelimiter.WithErrorHandler(h.limiterFailed),
		))
	}
	credentials := r.With(guards...)
	credentials.Post("/sign-up", h.signUp)
	credentials.Post("/sign-in", h.signIn)
}

// Scope puts sup into every request context.
func Scope(sup *auth.Supervisor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithSupervisor(r.Context(), sup)))
		})
	}
}

type statusView struct {
	State     auth.State  `json:"state"`
	Loading   bool        `json:"loading"`
	SettledBy auth.Source `json:"settled_by,omitempty"`
	User      *userView   `json:"user,omitempty"`
	ExpiresAt *time.Time  `json:"expires_at,omitempty"`
}

type userView struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

func newStatusView(st auth.Status) statusView {
	v := statusView{State: st.State, Loading: st.Loading, SettledBy: st.SettledBy}
	if st.User != nil {
		v.User = &userView{ID: st.User.ID.String(), Email: st.User.Email, DisplayName: st.User.DisplayName}
	}
	if st.Session != nil && !st.Session.ExpiresAt.IsZero() {
		exp := st.Session.ExpiresAt
		v.ExpiresAt = &exp
	}
	return v
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	st, err := auth.StatusFromContext(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Data: newStatusView(st)})
}

type signUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

func (h *handlers) signUp(w http.ResponseWriter, r *http.Request) {
	sup, err := auth.FromContext(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req signUpRequest
	if err := h.bind(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	req.Email = sanitizer.NormalizeEmail(req.Email)
	req.DisplayName = sanitizer.SingleLine(req.DisplayName)

	if err := validator.Apply(
		validator.Required("email", req.Email),
		validator.ValidEmail("email", req.Email),
		validator.MinLen("password", req.Password, minPasswordLen),
		validator.MaxLen("password", req.Password, maxPasswordLen),
		validator.MaxLen("display_name", req.DisplayName, maxDisplayNameLen),
	); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := sup.SignUp(r.Context(), req.Email, req.Password, req.DisplayName); err != nil {
		h.fail(w, r, err, slog.String("email", sanitizer.MaskEmail(req.Email)))
		return
	}

	h.logger.InfoContext(r.Context(), "sign-up accepted",
		logger.Component("authhttp"),
		slog.String("email", sanitizer.MaskEmail(req.Email)),
	)
	writeJSON(w, http.StatusAccepted, Envelope{Data: map[string]string{"email": req.Email}})
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *handlers) signIn(w http.ResponseWriter, r *http.Request) {
	sup, err := auth.FromContext(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req signInRequest
	if err := h.bind(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	req.Email = sanitizer.NormalizeEmail(req.Email)

	if err := validator.Apply(
		validator.Required("email", req.Email),
		validator.Required("password", req.Password),
	); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := sup.SignIn(r.Context(), req.Email, req.Password); err != nil {
		h.fail(w, r, err, slog.String("email", sanitizer.MaskEmail(req.Email)))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) signOut(w http.ResponseWriter, r *http.Request) {
	sup, err := auth.FromContext(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sup.SignOut(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) requireToken(next http.Handler) http.Handler {
	want := []byte("Bearer " + h.token)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if subtle.ConstantTimeCompare([]byte(r.Header.Get("Authorization")), want) != 1 {
			h.logger.WarnContext(r.Context(), "shell token rejected",
				logger.Component("authhttp"),
				slog.String("path", r.URL.Path),
			)
			w.Header().Set("WWW-Authenticate", `Bearer realm="authsync"`)
			writeJSON(w, http.StatusUnauthorized, Envelope{Error: &ErrorDetail{
				Code:    "shell_token_required",
				Message: "missing or invalid shell token",
			}})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *handlers) limited(w http.ResponseWriter, r *http.Request, _ *ratelimiter.Result) {
	h.logger.WarnContext(r.Context(), "request rate limited",
		logger.Component("authhttp"),
		slog.String("path", r.URL.Path),
	)
	writeJSON(w, http.StatusTooManyRequests, Envelope{Error: &ErrorDetail{
		Code:    "rate_limited",
		Message: "too many requests, retry later",
	}})
}

func (h *handlers) limiterFailed(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.ErrorContext(r.Context(), "rate limiter unavailable",
		logger.Component("authhttp"),
		logger.Error(err),
	)
	writeJSON(w, http.StatusServiceUnavailable, Envelope{Error: &ErrorDetail{
		Code:    "rate_limiter_unavailable",
		Message: http.StatusText(http.StatusServiceUnavailable),
	}})
}

// fail logs err at a level matching its status and writes the error envelope.
func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error, attrs ...slog.Attr) {
	status, detail := errorDetail(err)

	level := slog.LevelInfo
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	args := []any{logger.Component("authhttp"), logger.Error(err), slog.Int("status", status)}
	for _, a := range attrs {
		args = append(args, a)
	}
	h.logger.Log(r.Context(), level, "request failed", args...)

	writeJSON(w, status, Envelope{Error: detail})
}

