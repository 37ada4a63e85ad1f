package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dmitrymomot/authsync/pkg/backend"
	"github.com/dmitrymomot/authsync/pkg/broadcast"
	"github.com/dmitrymomot/authsync/pkg/logger"
)

const (
	apiPrefix       = "/auth/v1"
	maxResponseSize = 1 << 20
	changeBuffer    = 32
)

// Client talks to a GoTrue-compatible API. Create it with New.
type Client struct {
	endpoint      string
	key           string
	http          *http.Client
	store         Store
	storageKey    string
	clock         clockwork.Clock
	logger        *slog.Logger
	refreshMargin time.Duration
	changes       *broadcast.MemoryBroadcaster[backend.ChangeEvent]

	// mu serialises read-modify-write cycles on the stored session.
	mu sync.Mutex
}

var _ backend.Client = (*Client)(nil)

// New validates cfg and returns a Client for it.
func New(cfg backend.Config, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: only http and https schemes are supported", ErrInvalidURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: host is required", ErrInvalidURL)
	}
	key := strings.TrimSpace(cfg.Key)
	if key == "" {
		return nil, ErrMissingKey
	}

	c := &Client{
		endpoint: strings.TrimRight(u.String(), "/") + apiPrefix,
		key:      key,
		http: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		storageKey:    "session:" + u.Host,
		clock:         clockwork.NewRealClock(),
		logger:        logger.Discard(),
		refreshMargin: 10 * time.Second,
		changes:       broadcast.NewMemoryBroadcaster[backend.ChangeEvent](changeBuffer),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.store == nil {
		c.store = NewMemoryStore()
	}
	return c, nil
}

// Factory adapts New to backend.Factory.
func Factory(opts ...Option) backend.Factory {
	return func(cfg backend.Config) (backend.Client, error) {
		c, err := New(cfg, opts...)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// GetSession returns the stored session, refreshing it first when the access
// token is about to expire. A refresh rejected by the backend signs the user
// out locally and returns the rejection.
func (c *Client) GetSession(ctx context.Context) (*backend.Session, error) {
	c.mu.Lock()
	s, err := c.store.Load(ctx, c.storageKey)
	if err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %w", backend.ErrSessionFetchFailed, err)
	}
	if s == nil || !s.Expired(c.clock.Now().Add(c.refreshMargin)) {
		c.mu.Unlock()
		return s, nil
	}

	if s.RefreshToken == "" {
		err := c.store.Delete(ctx, c.storageKey)
		c.mu.Unlock()
		c.emit(ctx, backend.ChangeSignedOut, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", backend.ErrSessionFetchFailed, err)
		}
		return nil, nil
	}

	refreshed, err := c.refresh(ctx, s.RefreshToken)
	if err != nil {
		var apiErr *backend.APIError
		if !errors.As(err, &apiErr) {
			c.mu.Unlock()
			return nil, fmt.Errorf("%w: %w", backend.ErrSessionFetchFailed, err)
		}
		if derr := c.store.Delete(ctx, c.storageKey); derr != nil {
			c.logger.WarnContext(ctx, "failed to drop rejected session",
				logger.Component("gotrue"),
				logger.Error(derr),
			)
		}
		c.mu.Unlock()
		c.emit(ctx, backend.ChangeSignedOut, nil)
		return nil, err
	}

	if err := c.store.Save(ctx, c.storageKey, refreshed); err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %w", backend.ErrSessionFetchFailed, err)
	}
	c.mu.Unlock()

	c.emit(ctx, backend.ChangeTokenRefreshed, refreshed)
	return refreshed, nil
}

// OnSessionChange registers fn. The registration is in place when the call
// returns; fn then runs on its own goroutine for each change. Nothing is
// delivered after the returned func has been called.
func (c *Client) OnSessionChange(fn func(backend.ChangeEvent)) func() {
	if fn == nil {
		return func() {}
	}

	sub := c.changes.Subscribe(context.Background())
	var stopped atomic.Bool
	go func() {
		for msg := range sub.Receive(context.Background()) {
			if stopped.Load() {
				continue
			}
			fn(msg.Data)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			stopped.Store(true)
			_ = sub.Close()
		})
	}
}

type credentials struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Data     map[string]any `json:"data,omitempty"`
}

// SignUp registers a new account. When the backend confirms the account
// immediately it also returns a session, which is stored and announced.
func (c *Client) SignUp(ctx context.Context, email, password string, opts backend.SignUpOptions) error {
	q := url.Values{}
	if opts.RedirectTo != "" {
		q.Set("redirect_to", opts.RedirectTo)
	}

	var resp tokenResponse
	body := credentials{Email: email, Password: password, Data: opts.Metadata}
	if err := c.do(ctx, http.MethodPost, "/signup", q, "", body, &resp); err != nil {
		return err
	}
	if resp.AccessToken == "" {
		return nil
	}
	return c.storeSignedIn(ctx, &resp)
}

// SignInWithPassword exchanges credentials for a session, stores it and
// emits ChangeSignedIn.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) error {
	var resp tokenResponse
	q := url.Values{"grant_type": {"password"}}
	if err := c.do(ctx, http.MethodPost, "/token", q, "", credentials{Email: email, Password: password}, &resp); err != nil {
		return err
	}
	return c.storeSignedIn(ctx, &resp)
}

// SignOut revokes the session on the backend and forgets it locally. The
// local session is removed even when revocation fails.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	s, err := c.store.Load(ctx, c.storageKey)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if s == nil {
		c.mu.Unlock()
		return nil
	}

	remoteErr := c.do(ctx, http.MethodPost, "/logout", nil, s.AccessToken, nil, nil)
	localErr := c.store.Delete(ctx, c.storageKey)
	c.mu.Unlock()

	c.emit(ctx, backend.ChangeSignedOut, nil)
	return errors.Join(remoteErr, localErr)
}

// Close stops change delivery. Subscribers' goroutines exit.
func (c *Client) Close() error {
	return c.changes.Close()
}

func (c *Client) storeSignedIn(ctx context.Context, resp *tokenResponse) error {
	s, err := resp.session(c.clock.Now())
	if err != nil {
		return err
	}

	c.mu.Lock()
	err = c.store.Save(ctx, c.storageKey, s)
	c.mu.Unlock()
	if err != nil {
		return err
	}

	c.emit(ctx, backend.ChangeSignedIn, s)
	return nil
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (*backend.Session, error) {
	var resp tokenResponse
	q := url.Values{"grant_type": {"refresh_token"}}
	body := map[string]string{"refresh_token": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/token", q, "", body, &resp); err != nil {
		return nil, err
	}
	return resp.session(c.clock.Now())
}

func (c *Client) emit(ctx context.Context, kind backend.ChangeKind, s *backend.Session) {
	err := c.changes.Broadcast(ctx, broadcast.Message[backend.ChangeEvent]{
		Data: backend.ChangeEvent{Kind: kind, Session: s},
	})
	if err != nil && !errors.Is(err, broadcast.ErrClosed) {
		c.logger.WarnContext(ctx, "session change not delivered to every subscriber",
			logger.Component("gotrue"),
			logger.Event(string(kind)),
			logger.Error(err),
		)
	}
}

// do sends a JSON request and decodes a JSON response into out. bearer
// defaults to the API key.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%w: encode request: %w", ErrRequestFailed, err)
		}
		body = bytes.NewReader(payload)
	}

	target := c.endpoint + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	if bearer == "" {
		bearer = c.key
	}
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: read response: %w", ErrRequestFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return nil
}
