package auth_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/authsync/pkg/backend"
)

type fetchResult struct {
	session *backend.Session
	err     error
}

// fakeClient blocks GetSession until a result is pushed on fetch and records
// the order of subscribe and fetch calls. Operations go through mock.Mock.
type fakeClient struct {
	mock.Mock

	fetch chan fetchResult

	mu           sync.Mutex
	calls        []string
	callback     func(backend.ChangeEvent)
	unsubscribed int
}

func newFakeClient() *fakeClient {
	return &fakeClient{fetch: make(chan fetchResult, 1)}
}

func (f *fakeClient) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeClient) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeClient) GetSession(context.Context) (*backend.Session, error) {
	f.record("get_session")
	r := <-f.fetch
	return r.session, r.err
}

func (f *fakeClient) OnSessionChange(fn func(backend.ChangeEvent)) func() {
	f.record("subscribe")
	f.mu.Lock()
	f.callback = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.unsubscribed++
	}
}

// notify delivers ev to the registered callback, even after unsubscribe, the
// way an in-flight delivery would.
func (f *fakeClient) notify(kind backend.ChangeKind, s *backend.Session) {
	f.mu.Lock()
	cb := f.callback
	f.mu.Unlock()
	if cb != nil {
		cb(backend.ChangeEvent{Kind: kind, Session: s})
	}
}

func (f *fakeClient) unsubscribeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unsubscribed
}

func (f *fakeClient) SignUp(ctx context.Context, email, password string, opts backend.SignUpOptions) error {
	return f.Called(ctx, email, password, opts).Error(0)
}

func (f *fakeClient) SignInWithPassword(ctx context.Context, email, password string) error {
	return f.Called(ctx, email, password).Error(0)
}

func (f *fakeClient) SignOut(ctx context.Context) error {
	return f.Called(ctx).Error(0)
}

// handleSource serves a fixed client, or none.
type handleSource struct {
	client backend.Client
	calls  int
	mu     sync.Mutex
}

func (h *handleSource) Handle() (backend.Client, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	return h.client, h.client != nil
}
