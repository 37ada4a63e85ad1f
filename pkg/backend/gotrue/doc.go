// Package gotrue implements backend.Client against a GoTrue-compatible
// authentication REST API (the API served under /auth/v1 by Supabase and by a
// self-hosted GoTrue).
//
// The client keeps the current session in a Store. MemoryStore suits a single
// process; RedisStore shares the session between processes. Expired sessions
// are refreshed transparently by GetSession.
//
// Every change of the stored session is announced to OnSessionChange
// subscribers. Each subscription has its own goroutine and receives events in
// emission order.
//
// # Usage
//
//	provider := backend.NewProvider(gotrue.Factory(
//	    gotrue.WithStore(gotrue.NewRedisStore(rdb)),
//	    gotrue.WithLogger(log),
//	))
//
//	client, err := provider.Acquire()
//	if err != nil {
//	    // backend not configured
//	}
//	unsubscribe := client.OnSessionChange(func(ev backend.ChangeEvent) {
//	    log.Info("session changed", "kind", ev.Kind)
//	})
//	defer unsubscribe()
//
// # Errors
//
// Non-2xx responses are decoded into *backend.APIError, so callers can match
// them with errors.Is against backend.ErrInvalidCredentials and friends.
package gotrue
