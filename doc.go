// Package authsync keeps an application's view of its authentication session
// in step with a remote identity backend.
//
// The module is organised as a set of packages under pkg/ and one service
// under cmd/authsync:
//
//   - pkg/backend builds the backend client lazily from configuration and
//     caches it for the life of the process. It reports whether the backend
//     is configured and why not.
//   - pkg/backend/gotrue is a client for GoTrue-compatible auth APIs with
//     memory and Redis session stores.
//   - pkg/auth runs the session supervisor. On mount it races the initial
//     session fetch against change notifications and a timeout, so the status
//     always leaves the loading state.
//   - pkg/authhttp serves the supervisor's status and the sign-up, sign-in and
//     sign-out operations as JSON over HTTP.
//
// Basic usage:
//
//	provider := backend.NewProvider(gotrue.Factory())
//	sup := auth.New(provider, auth.WithTimeout(3*time.Second))
//	if err := sup.Mount(ctx); err != nil {
//		return err
//	}
//	defer sup.Unmount()
//
//	for msg := range sup.Changes(ctx).Receive(ctx) {
//		if !msg.Data.Loading {
//			log.Println("settled:", msg.Data.State)
//		}
//	}
package authsync
