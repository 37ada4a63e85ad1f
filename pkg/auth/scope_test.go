package auth_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authsync/pkg/auth"
	"github.com/dmitrymomot/authsync/pkg/backend"
	"github.com/dmitrymomot/authsync/pkg/logger"
)

func TestScope(t *testing.T) {
	t.Parallel()

	t.Run("outside scope", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()

		sup, err := auth.FromContext(ctx)
		assert.Nil(t, sup)
		var scopeErr *auth.ScopeError
		require.ErrorAs(t, err, &scopeErr)
		assert.Equal(t, "FromContext", scopeErr.Op)
		assert.True(t, auth.IsScopeError(err))

		_, err = auth.StatusFromContext(ctx)
		require.ErrorAs(t, err, &scopeErr)
		assert.Equal(t, "StatusFromContext", scopeErr.Op)

		assert.Panics(t, func() { auth.MustFromContext(ctx) })
	})

	t.Run("nil supervisor is outside scope", func(t *testing.T) {
		t.Parallel()
		_, err := auth.FromContext(auth.WithSupervisor(context.Background(), nil))
		assert.True(t, auth.IsScopeError(err))
	})

	t.Run("inside scope", func(t *testing.T) {
		t.Parallel()
		sup := auth.New(&handleSource{})
		ctx := auth.WithSupervisor(context.Background(), sup)

		got, err := auth.FromContext(ctx)
		require.NoError(t, err)
		assert.Same(t, sup, got)
		assert.Same(t, sup, auth.MustFromContext(ctx))

		st, err := auth.StatusFromContext(ctx)
		require.NoError(t, err)
		assert.True(t, st.Loading)
	})
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	h := newHarness(t, true)
	h.mount(t)
	id := uuid.New()
	h.client.notify(backend.ChangeSignedIn, &backend.Session{AccessToken: "t", User: &backend.User{ID: id}})
	h.next(t)

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithFormat(logger.FormatJSON),
		logger.WithContextExtractors(auth.LoggerExtractor()),
	)

	log.InfoContext(context.Background(), "outside")
	assert.NotContains(t, buf.String(), "user_id")

	buf.Reset()
	log.InfoContext(auth.WithSupervisor(context.Background(), h.sup), "inside")
	assert.Contains(t, buf.String(), id.String())
}
