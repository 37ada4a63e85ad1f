package backend_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authsync/pkg/backend"
)

type stubClient struct {
	cfg backend.Config
}

func (c *stubClient) GetSession(context.Context) (*backend.Session, error) { return nil, nil }
func (c *stubClient) OnSessionChange(func(backend.ChangeEvent)) func()    { return func() {} }
func (c *stubClient) SignUp(context.Context, string, string, backend.SignUpOptions) error {
	return nil
}
func (c *stubClient) SignInWithPassword(context.Context, string, string) error { return nil }
func (c *stubClient) SignOut(context.Context) error                            { return nil }

type countingFactory struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *countingFactory) build(cfg backend.Config) (backend.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &stubClient{cfg: cfg}, nil
}

func (f *countingFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type mutableSource struct {
	mu       sync.Mutex
	settings backend.Settings
	err      error
}

func (s *mutableSource) set(v backend.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = v
}

func (s *mutableSource) read() (backend.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings, s.err
}

var validSettings = backend.Settings{URL: "https://auth.example.com", Key: "anon-key"}

func TestProvider_MissingConfiguration(t *testing.T) {
	t.Parallel()

	for name, s := range map[string]backend.Settings{
		"no url":  {Key: "k"},
		"no key":  {URL: "https://auth.example.com"},
		"nothing": {},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			f := &countingFactory{}
			src := &mutableSource{settings: s}
			p := backend.NewProvider(f.build, backend.WithSettingsSource(src.read))

			st := p.Status()
			assert.False(t, st.Ready)
			assert.NotEmpty(t, st.Reason)

			h, ok := p.Handle()
			assert.False(t, ok)
			assert.Nil(t, h)

			_, err := p.Acquire()
			assert.ErrorIs(t, err, backend.ErrConfigurationMissing)
			assert.Zero(t, f.count(), "factory must not run without configuration")
		})
	}
}

func TestProvider_CachesHandle(t *testing.T) {
	t.Parallel()
	f := &countingFactory{}
	src := &mutableSource{settings: validSettings}
	p := backend.NewProvider(f.build, backend.WithSettingsSource(src.read))

	first, ok := p.Handle()
	require.True(t, ok)
	second, ok := p.Handle()
	require.True(t, ok)

	assert.Same(t, first, second)
	assert.Equal(t, 1, f.count())
	assert.Equal(t, backend.Config{URL: "https://auth.example.com", Key: "anon-key"}, first.(*stubClient).cfg)

	t.Run("configuration changes after creation are ignored", func(t *testing.T) {
		src.set(backend.Settings{})
		third, ok := p.Handle()
		require.True(t, ok)
		assert.Same(t, first, third)
		assert.False(t, p.Status().Ready, "status still reflects current configuration")
	})
}

func TestProvider_NoNegativeCaching(t *testing.T) {
	t.Parallel()

	t.Run("missing configuration then fixed", func(t *testing.T) {
		t.Parallel()
		f := &countingFactory{}
		src := &mutableSource{}
		p := backend.NewProvider(f.build, backend.WithSettingsSource(src.read))

		_, ok := p.Handle()
		require.False(t, ok)

		src.set(validSettings)
		h, ok := p.Handle()
		require.True(t, ok)
		assert.NotNil(t, h)
	})

	t.Run("construction failure then success", func(t *testing.T) {
		t.Parallel()
		f := &countingFactory{err: errors.New("malformed url")}
		src := &mutableSource{settings: validSettings}
		p := backend.NewProvider(f.build, backend.WithSettingsSource(src.read))

		_, err := p.Acquire()
		require.ErrorIs(t, err, backend.ErrHandleConstructionFailed)
		assert.Contains(t, err.Error(), "malformed url")

		f.mu.Lock()
		f.err = nil
		f.mu.Unlock()

		h, err := p.Acquire()
		require.NoError(t, err)
		assert.NotNil(t, h)
		assert.Equal(t, 2, f.count())
	})
}

func TestProvider_SourceError(t *testing.T) {
	t.Parallel()
	src := &mutableSource{err: errors.New("bad env")}
	p := backend.NewProvider((&countingFactory{}).build, backend.WithSettingsSource(src.read))

	st := p.Status()
	assert.False(t, st.Ready)
	assert.Contains(t, st.Reason, "bad env")

	_, err := p.Acquire()
	assert.ErrorIs(t, err, backend.ErrConfigurationMissing)
}

func TestProvider_NilFactory(t *testing.T) {
	t.Parallel()
	src := &mutableSource{settings: validSettings}
	p := backend.NewProvider(nil, backend.WithSettingsSource(src.read))

	_, err := p.Acquire()
	assert.ErrorIs(t, err, backend.ErrHandleConstructionFailed)
}

func TestProvider_ConcurrentAcquire(t *testing.T) {
	t.Parallel()
	f := &countingFactory{}
	src := &mutableSource{settings: validSettings}
	p := backend.NewProvider(f.build, backend.WithSettingsSource(src.read))

	var wg sync.WaitGroup
	handles := make([]backend.Client, 16)
	for i := range handles {
		wg.Add(1)
		go func() {
			defer wg.Done()
			handles[i], _ = p.Handle()
		}()
	}
	wg.Wait()

	for _, h := range handles {
		assert.Same(t, handles[0], h)
	}
	assert.Equal(t, 1, f.count())
}

func TestProvider_Reset(t *testing.T) {
	t.Parallel()
	f := &countingFactory{}
	src := &mutableSource{settings: validSettings}
	p := backend.NewProvider(f.build, backend.WithSettingsSource(src.read))

	first, _ := p.Handle()
	p.Reset()
	second, _ := p.Handle()

	assert.NotSame(t, first, second)
	assert.Equal(t, 2, f.count())
}

func TestProvider_EnvSettings(t *testing.T) {
	t.Setenv("AUTH_BACKEND_URL", "")
	t.Setenv("AUTH_BACKEND_PROJECT_ID", "proj")
	t.Setenv("AUTH_BACKEND_DOMAIN", "")
	t.Setenv("AUTH_BACKEND_KEY", "")
	t.Setenv("AUTH_BACKEND_PUBLISHABLE_KEY", "")
	t.Setenv("AUTH_BACKEND_ANON_KEY", "legacy")

	f := &countingFactory{}
	p := backend.NewProvider(f.build)

	require.True(t, p.Status().Ready)
	h, ok := p.Handle()
	require.True(t, ok)
	assert.Equal(t, backend.Config{URL: "https://proj.supabase.co", Key: "legacy"}, h.(*stubClient).cfg)
}

func TestShared(t *testing.T) {
	backend.ResetShared()
	t.Cleanup(backend.ResetShared)

	f := &countingFactory{}
	p1 := backend.Shared(f.build)
	p2 := backend.Shared(nil)
	assert.Same(t, p1, p2)

	backend.ResetShared()
	assert.NotSame(t, p1, backend.Shared(f.build))
}

type closingClient struct {
	stubClient
	mu     sync.Mutex
	closed int
	err    error
}

func (c *closingClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return c.err
}

func TestProvider_Close(t *testing.T) {
	t.Parallel()

	t.Run("nothing cached", func(t *testing.T) {
		t.Parallel()
		p := backend.NewProvider((&countingFactory{}).build, backend.WithSettingsSource((&mutableSource{}).read))
		assert.NoError(t, p.Close())
	})

	t.Run("closes and forgets the handle", func(t *testing.T) {
		t.Parallel()
		var built []*closingClient
		p := backend.NewProvider(func(backend.Config) (backend.Client, error) {
			c := &closingClient{}
			built = append(built, c)
			return c, nil
		}, backend.WithSettingsSource((&mutableSource{settings: validSettings}).read))

		_, err := p.Acquire()
		require.NoError(t, err)
		require.NoError(t, p.Close())
		require.Len(t, built, 1)
		assert.Equal(t, 1, built[0].closed)

		require.NoError(t, p.Close())
		assert.Equal(t, 1, built[0].closed)

		_, err = p.Acquire()
		require.NoError(t, err)
		assert.Len(t, built, 2)
	})

	t.Run("close error", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		p := backend.NewProvider(func(backend.Config) (backend.Client, error) {
			return &closingClient{err: boom}, nil
		}, backend.WithSettingsSource((&mutableSource{settings: validSettings}).read))

		_, err := p.Acquire()
		require.NoError(t, err)
		assert.ErrorIs(t, p.Close(), boom)
	})

	t.Run("handle without Close", func(t *testing.T) {
		t.Parallel()
		f := &countingFactory{}
		p := backend.NewProvider(f.build, backend.WithSettingsSource((&mutableSource{settings: validSettings}).read))

		_, err := p.Acquire()
		require.NoError(t, err)
		assert.NoError(t, p.Close())
		_, err = p.Acquire()
		require.NoError(t, err)
		assert.Equal(t, 2, f.count())
	})
}
