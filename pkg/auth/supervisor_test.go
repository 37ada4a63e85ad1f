package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authsync/pkg/auth"
	"github.com/dmitrymomot/authsync/pkg/backend"
	"github.com/dmitrymomot/authsync/pkg/broadcast"
)

const waitFor = time.Second

type harness struct {
	sup     *auth.Supervisor
	client  *fakeClient
	clock   *clockwork.FakeClock
	metrics *auth.Metrics
	changes broadcast.Subscriber[auth.Status]
}

func newHarness(t *testing.T, withBackend bool, opts ...auth.Option) *harness {
	t.Helper()

	h := &harness{
		clock:   clockwork.NewFakeClock(),
		metrics: auth.NewMetrics(prometheus.NewRegistry()),
	}
	src := &handleSource{}
	if withBackend {
		h.client = newFakeClient()
		src.client = h.client
		t.Cleanup(func() { close(h.client.fetch) })
	}

	opts = append([]auth.Option{
		auth.WithClock(h.clock),
		auth.WithMetrics(h.metrics),
		auth.WithTimeout(3 * time.Second),
	}, opts...)
	h.sup = auth.New(src, opts...)
	t.Cleanup(h.sup.Unmount)

	h.changes = h.sup.Changes(context.Background())
	return h
}

func (h *harness) mount(t *testing.T) {
	t.Helper()
	require.NoError(t, h.sup.Mount(context.Background()))
}

func (h *harness) next(t *testing.T) auth.Status {
	t.Helper()
	select {
	case msg, ok := <-h.changes.Receive(context.Background()):
		require.True(t, ok, "status stream closed")
		return msg.Data
	case <-time.After(waitFor):
		t.Fatal("no status update")
		return auth.Status{}
	}
}

func (h *harness) completions(source auth.Source, outcome string) float64 {
	return testutil.ToFloat64(h.metrics.Completions.WithLabelValues(string(source), outcome))
}

func (h *harness) eventually(t *testing.T, source auth.Source, outcome string, want float64) {
	t.Helper()
	assert.Eventually(t, func() bool {
		return h.completions(source, outcome) == want
	}, waitFor, 5*time.Millisecond, "%s/%s completions", source, outcome)
}

func session(token string) *backend.Session {
	return &backend.Session{
		AccessToken: token,
		User:        &backend.User{ID: uuid.New(), Email: token + "@example.com"},
	}
}

func TestSupervisor_InitialStatus(t *testing.T) {
	t.Parallel()
	h := newHarness(t, true)

	st := h.sup.Status()
	assert.Equal(t, auth.StateInitializing, st.State)
	assert.True(t, st.Loading)
	assert.Nil(t, st.Session)
	assert.Nil(t, st.User)
	assert.Empty(t, st.SettledBy)
}

func TestSupervisor_NoBackend(t *testing.T) {
	t.Parallel()
	h := newHarness(t, false)
	h.mount(t)

	st := h.next(t)
	assert.Equal(t, auth.StateUnauthenticated, st.State)
	assert.False(t, st.Loading)
	assert.Equal(t, auth.SourceNoBackend, st.SettledBy)
	assert.Equal(t, st, h.sup.Status())

	t.Run("no timeout is started", func(t *testing.T) {
		h.clock.Advance(time.Minute)
		assert.Never(t, func() bool {
			return h.completions(auth.SourceTimeout, "applied")+h.completions(auth.SourceTimeout, "stale") > 0
		}, 50*time.Millisecond, 5*time.Millisecond)
	})

	t.Run("operations fail fast", func(t *testing.T) {
		ctx := context.Background()
		assert.ErrorIs(t, h.sup.SignUp(ctx, "ada@example.com", "pw", "Ada"), auth.ErrBackendUnavailable)
		assert.ErrorIs(t, h.sup.SignIn(ctx, "ada@example.com", "pw"), auth.ErrBackendUnavailable)
		assert.NotPanics(t, func() { h.sup.SignOut(ctx) })
		assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.Operations.WithLabelValues("sign_up", "unavailable"))+
			testutil.ToFloat64(h.metrics.Operations.WithLabelValues("sign_in", "unavailable")))
	})
}

func TestSupervisor_SubscribesBeforeFetching(t *testing.T) {
	t.Parallel()
	h := newHarness(t, true)
	h.mount(t)

	assert.Eventually(t, func() bool { return len(h.client.recorded()) == 2 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, []string{"subscribe", "get_session"}, h.client.recorded())
}

func TestSupervisor_FetchSettles(t *testing.T) {
	t.Parallel()
	h := newHarness(t, true)
	h.mount(t)

	s1 := session("s1")
	h.client.fetch <- fetchResult{session: s1}

	st := h.next(t)
	assert.Equal(t, auth.StateAuthenticated, st.State)
	assert.False(t, st.Loading)
	assert.Same(t, s1, st.Session)
	assert.Same(t, s1.User, st.User)
	assert.Equal(t, auth.SourceFetch, st.SettledBy)

	h.clock.Advance(10 * time.Second)
	assert.Never(t, func() bool {
		return h.completions(auth.SourceTimeout, "applied")+h.completions(auth.SourceTimeout, "stale") > 0
	}, 50*time.Millisecond, 5*time.Millisecond, "timer must be stopped")
	assert.Same(t, s1, h.sup.Status().Session)
}

func TestSupervisor_FetchWithoutSession(t *testing.T) {
	t.Parallel()
	h := newHarness(t, true)
	h.mount(t)

	h.client.fetch <- fetchResult{}

	st := h.next(t)
	assert.Equal(t, auth.StateUnauthenticated, st.State)
	assert.False(t, st.Loading)
	assert.Nil(t, st.Session)
	assert.Nil(t, st.User)
	assert.Equal(t, auth.SourceFetch, st.SettledBy)
}

func TestSupervisor_NotificationBeforeFetch(t *testing.T) {
	t.Parallel()

	t.Run("stale fetch with a session is discarded", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, true)
		h.mount(t)

		h.client.notify(backend.ChangeInitialSession, nil)
		st := h.next(t)
		assert.Equal(t, auth.StateUnauthenticated, st.State)
		assert.False(t, st.Loading)
		assert.Equal(t, auth.SourceNotification, st.SettledBy)

		h.client.fetch <- fetchResult{session: session("s2")}
		h.eventually(t, auth.SourceFetch, "stale", 1)

		st = h.sup.Status()
		assert.Equal(t, auth.StateUnauthenticated, st.State)
		assert.False(t, st.Loading)
		assert.Nil(t, st.Session)
	})

	t.Run("failed fetch leaves the session alone", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, true)
		h.mount(t)

		s1 := session("s1")
		h.client.notify(backend.ChangeSignedIn, s1)
		st := h.next(t)
		assert.Equal(t, auth.StateAuthenticated, st.State)

		h.client.fetch <- fetchResult{err: errors.New("connection reset")}
		h.eventually(t, auth.SourceFetchError, "stale", 1)

		st = h.sup.Status()
		assert.Equal(t, auth.StateAuthenticated, st.State)
		assert.False(t, st.Loading)
		assert.Same(t, s1, st.Session)
	})
}

func TestSupervisor_FetchFailureFirst(t *testing.T) {
	t.Parallel()
	h := newHarness(t, true)
	h.mount(t)

	h.client.fetch <- fetchResult{err: backend.ErrSessionFetchFailed}

	st := h.next(t)
	assert.Equal(t, auth.StateUnauthenticated, st.State)
	assert.False(t, st.Loading)
	assert.Nil(t, st.Session)
	assert.Equal(t, auth.SourceFetchError, st.SettledBy)

	s1 := session("s1")
	h.client.notify(backend.ChangeSignedIn, s1)
	st = h.next(t)
	assert.Equal(t, auth.StateAuthenticated, st.State)
	assert.Same(t, s1, st.Session)
	assert.Equal(t, auth.SourceFetchError, st.SettledBy, "first settlement is kept")
}

func TestSupervisor_Timeout(t *testing.T) {
	t.Parallel()
	h := newHarness(t, true)
	h.mount(t)

	h.clock.Advance(2 * time.Second)
	assert.True(t, h.sup.Status().Loading)

	h.clock.Advance(time.Second)
	st := h.next(t)
	assert.Equal(t, auth.StateUnauthenticated, st.State)
	assert.False(t, st.Loading)
	assert.Nil(t, st.Session)
	assert.Equal(t, auth.SourceTimeout, st.SettledBy)

	t.Run("late fetch is ignored", func(t *testing.T) {
		h.client.fetch <- fetchResult{session: session("late")}
		h.eventually(t, auth.SourceFetch, "stale", 1)
		assert.Nil(t, h.sup.Status().Session)
	})

	t.Run("notifications still apply", func(t *testing.T) {
		s := session("s3")
		h.client.notify(backend.ChangeSignedIn, s)
		st := h.next(t)
		assert.Equal(t, auth.StateAuthenticated, st.State)
		assert.False(t, st.Loading)
		assert.Same(t, s, st.Session)
	})
}

func TestSupervisor_NotificationsAfterSettlement(t *testing.T) {
	t.Parallel()
	h := newHarness(t, true)
	h.mount(t)

	h.client.fetch <- fetchResult{}
	require.Equal(t, auth.StateUnauthenticated, h.next(t).State)

	s1, s2 := session("s1"), session("s2")
	steps := []struct {
		kind  backend.ChangeKind
		sess  *backend.Session
		state auth.State
	}{
		{backend.ChangeSignedIn, s1, auth.StateAuthenticated},
		{backend.ChangeTokenRefreshed, s2, auth.StateAuthenticated},
		{backend.ChangeSignedOut, nil, auth.StateUnauthenticated},
		{backend.ChangeSignedOut, nil, auth.StateUnauthenticated},
	}
	for _, step := range steps {
		h.client.notify(step.kind, step.sess)
		st := h.next(t)
		assert.Equal(t, step.state, st.State, step.kind)
		assert.False(t, st.Loading, "loading is never re-entered")
		assert.Same(t, step.sess, st.Session)
		assert.Equal(t, st.Session == nil, st.User == nil, "user present iff session present")
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.Notifications.WithLabelValues(string(backend.ChangeSignedOut))))
}

func TestSupervisor_SessionWithoutUserStillHasPrincipal(t *testing.T) {
	t.Parallel()
	h := newHarness(t, true)
	h.mount(t)

	h.client.notify(backend.ChangeSignedIn, &backend.Session{AccessToken: "t"})
	st := h.next(t)
	assert.NotNil(t, st.Session)
	assert.NotNil(t, st.User)
}

func TestSupervisor_Teardown(t *testing.T) {
	t.Parallel()
	h := newHarness(t, true)
	h.mount(t)
	assert.Eventually(t, func() bool { return len(h.client.recorded()) == 2 }, waitFor, 5*time.Millisecond)

	h.sup.Unmount()
	h.sup.Unmount()
	assert.Equal(t, 1, h.client.unsubscribeCount())

	before := h.sup.Status()

	h.client.fetch <- fetchResult{session: session("late")}
	h.eventually(t, auth.SourceFetch, "torn_down", 1)

	h.client.notify(backend.ChangeSignedIn, session("late"))
	h.eventually(t, auth.SourceNotification, "torn_down", 1)

	h.clock.Advance(time.Minute)
	assert.Equal(t, before, h.sup.Status())
	assert.True(t, before.Loading)

	select {
	case _, ok := <-h.changes.Receive(context.Background()):
		assert.False(t, ok, "status stream must be closed")
	case <-time.After(waitFor):
		t.Fatal("status stream not closed")
	}

	assert.ErrorIs(t, h.sup.Mount(context.Background()), auth.ErrUnmounted)
}

func TestSupervisor_UnmountBeforeMount(t *testing.T) {
	t.Parallel()
	h := newHarness(t, true)
	h.sup.Unmount()

	assert.ErrorIs(t, h.sup.Mount(context.Background()), auth.ErrUnmounted)
	assert.Empty(t, h.client.recorded())
}

func TestSupervisor_MountOnce(t *testing.T) {
	t.Parallel()
	h := newHarness(t, true)
	h.mount(t)

	assert.ErrorIs(t, h.sup.Mount(context.Background()), auth.ErrAlreadyMounted)
	assert.Eventually(t, func() bool { return len(h.client.recorded()) == 2 }, waitFor, 5*time.Millisecond)
	assert.Never(t, func() bool { return len(h.client.recorded()) > 2 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestSupervisor_SignUp(t *testing.T) {
	t.Parallel()

	t.Run("delegates with redirect and display name", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, true, auth.WithSiteURL("https://app.example.com/"))
		h.client.On("SignUp", mock.Anything, "ada@example.com", "pw", backend.SignUpOptions{
			RedirectTo: "https://app.example.com/",
			Metadata:   map[string]any{"display_name": "Ada"},
		}).Return(nil).Once()

		require.NoError(t, h.sup.SignUp(context.Background(), "ada@example.com", "pw", "Ada"))
		h.client.AssertExpectations(t)
		assert.True(t, h.sup.Status().Loading, "sign-up does not touch status")
	})

	t.Run("omits empty display name", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, true)
		h.client.On("SignUp", mock.Anything, "ada@example.com", "pw", backend.SignUpOptions{}).Return(nil).Once()

		require.NoError(t, h.sup.SignUp(context.Background(), "ada@example.com", "pw", ""))
		h.client.AssertExpectations(t)
	})

	t.Run("rejection passes through", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, true)
		rejection := &backend.APIError{Status: 422, Code: "user_already_exists", Message: "User already registered"}
		h.client.On("SignUp", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(rejection)

		err := h.sup.SignUp(context.Background(), "ada@example.com", "pw", "")
		assert.Same(t, rejection, err)
		assert.ErrorIs(t, err, backend.ErrUserAlreadyExists)
		assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Operations.WithLabelValues("sign_up", "rejected")))
	})
}

func TestSupervisor_SignIn(t *testing.T) {
	t.Parallel()
	h := newHarness(t, true)
	h.mount(t)

	h.client.On("SignInWithPassword", mock.Anything, "ada@example.com", "good").Return(nil).Once()
	h.client.On("SignInWithPassword", mock.Anything, "ada@example.com", "bad").
		Return(&backend.APIError{Status: 400, Code: "invalid_credentials"}).Once()

	require.NoError(t, h.sup.SignIn(context.Background(), "ada@example.com", "good"))
	err := h.sup.SignIn(context.Background(), "ada@example.com", "bad")
	assert.ErrorIs(t, err, backend.ErrInvalidCredentials)

	assert.True(t, h.sup.Status().Loading, "sign-in waits for the notification")
	h.client.AssertExpectations(t)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Operations.WithLabelValues("sign_in", "ok")))
}

func TestSupervisor_SignOut(t *testing.T) {
	t.Parallel()
	h := newHarness(t, true)

	h.client.On("SignOut", mock.Anything).Return(errors.New("network down")).Once()
	assert.NotPanics(t, func() { h.sup.SignOut(context.Background()) })
	h.client.AssertExpectations(t)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Operations.WithLabelValues("sign_out", "error")))
}

func TestSupervisor_WithoutMetrics(t *testing.T) {
	t.Parallel()
	client := newFakeClient()
	t.Cleanup(func() { close(client.fetch) })
	sup := auth.New(&handleSource{client: client}, auth.WithMetrics(nil))
	t.Cleanup(sup.Unmount)

	changes := sup.Changes(context.Background())
	require.NoError(t, sup.Mount(context.Background()))
	client.fetch <- fetchResult{session: session("s1")}

	select {
	case msg := <-changes.Receive(context.Background()):
		assert.Equal(t, auth.StateAuthenticated, msg.Data.State)
	case <-time.After(waitFor):
		t.Fatal("no status update")
	}
}

func TestSupervisor_WithBackendProvider(t *testing.T) {
	t.Parallel()
	client := newFakeClient()
	t.Cleanup(func() { close(client.fetch) })

	provider := backend.NewProvider(
		func(backend.Config) (backend.Client, error) { return client, nil },
		backend.WithSettingsSource(func() (backend.Settings, error) {
			return backend.Settings{ProjectID: "proj", AnonKey: "anon"}, nil
		}),
	)
	sup := auth.New(provider, auth.WithClock(clockwork.NewFakeClock()))
	t.Cleanup(sup.Unmount)

	require.NoError(t, sup.Mount(context.Background()))
	assert.Eventually(t, func() bool { return len(client.recorded()) == 2 }, waitFor, 5*time.Millisecond)
}
