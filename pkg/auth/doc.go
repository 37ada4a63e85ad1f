// Package auth supervises the authentication session of an application that
// signs users in against a remote identity backend.
//
// A Supervisor is created once for the lifetime of the application shell.
// Mount acquires the backend handle, subscribes to session-change
// notifications and restores the current session. Three completions race to
// settle the initial status: the first notification, the restore fetch and a
// bounded timeout. Whichever comes first clears the loading flag; the status
// never returns to loading afterwards.
//
// # Status
//
// Status is a snapshot of State, Session, User and Loading. Session and User
// are either both set or both nil. Changes streams every new snapshot and is
// closed by Unmount.
//
// # Scope
//
// The Supervisor is handed to request handlers through a context. FromContext
// returns *ScopeError when the caller is outside that scope, which is always a
// wiring mistake:
//
//	ctx = auth.WithSupervisor(ctx, sup)
//	...
//	status, err := auth.StatusFromContext(ctx)
//
// # Errors
//
// SignUp and SignIn return ErrBackendUnavailable when the backend is not
// configured and otherwise pass backend rejections through unchanged.
// Failures to restore the session are logged and never returned.
package auth
