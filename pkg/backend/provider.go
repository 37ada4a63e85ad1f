package backend

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/authsync/pkg/config"
	"github.com/dmitrymomot/authsync/pkg/logger"
)

// SettingsSource returns the current settings.
type SettingsSource func() (Settings, error)

// EnvSettings reads settings from the process environment on every call.
func EnvSettings() (Settings, error) {
	return config.Read[Settings]()
}

// Provider lazily builds the backend Client and keeps it for the rest of its
// life. A missing configuration or a failed construction is never cached, so
// the next call retries.
type Provider struct {
	factory Factory
	source  SettingsSource
	logger  *slog.Logger

	mu     sync.Mutex
	handle Client
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithSettingsSource replaces EnvSettings.
func WithSettingsSource(src SettingsSource) ProviderOption {
	return func(p *Provider) {
		if src != nil {
			p.source = src
		}
	}
}

// WithLogger sets the logger for construction failures.
func WithLogger(l *slog.Logger) ProviderOption {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewProvider creates a Provider that builds handles with factory.
func NewProvider(factory Factory, opts ...ProviderOption) *Provider {
	p := &Provider{
		factory: factory,
		source:  EnvSettings,
		logger:  logger.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Status reports whether the current settings can produce a handle. It does
// not build one.
func (p *Provider) Status() Status {
	s, err := p.source()
	if err != nil {
		return Status{Reason: fmt.Sprintf("cannot read backend settings: %v", err)}
	}
	return s.Status()
}

// Acquire returns the cached handle, building it on first successful call.
// Errors are ErrConfigurationMissing or ErrHandleConstructionFailed.
func (p *Provider) Acquire() (Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle != nil {
		return p.handle, nil
	}

	s, err := p.source()
	if err != nil {
		return nil, errors.Join(ErrConfigurationMissing, err)
	}

	st := s.Status()
	if !st.Ready {
		return nil, fmt.Errorf("%w: %s", ErrConfigurationMissing, st.Reason)
	}

	if p.factory == nil {
		return nil, fmt.Errorf("%w: no factory configured", ErrHandleConstructionFailed)
	}

	h, err := p.factory(Config{URL: s.ResolveURL(), Key: s.ResolveKey()})
	if err != nil {
		p.logger.Error("failed to create backend handle",
			logger.Component("backend"),
			logger.Error(err),
		)
		return nil, errors.Join(ErrHandleConstructionFailed, err)
	}
	if h == nil {
		return nil, fmt.Errorf("%w: factory returned nil client", ErrHandleConstructionFailed)
	}

	p.handle = h
	return h, nil
}

// Handle is Acquire without the reason.
func (p *Provider) Handle() (Client, bool) {
	h, err := p.Acquire()
	return h, err == nil
}

// Close releases the cached handle when it implements io.Closer and forgets
// it. A later Acquire builds a new one.
func (p *Provider) Close() error {
	p.mu.Lock()
	h := p.handle
	p.handle = nil
	p.mu.Unlock()

	if c, ok := h.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Reset forgets the cached handle without closing it. Intended for tests.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handle = nil
}
