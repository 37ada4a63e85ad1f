// Package backend defines the identity backend contract and the Provider that
// builds and caches the single Client used to talk to it.
//
// # Settings
//
// Settings are read from the environment on every Provider call:
//
//	AUTH_BACKEND_URL              explicit base URL
//	AUTH_BACKEND_PROJECT_ID       used as https://<id>.<AUTH_BACKEND_DOMAIN> when no URL
//	AUTH_BACKEND_DOMAIN           defaults to supabase.co
//	AUTH_BACKEND_KEY              primary access key
//	AUTH_BACKEND_PUBLISHABLE_KEY  alias, used when the primary key is unset
//	AUTH_BACKEND_ANON_KEY         legacy alias, used last
//
// # Provider
//
// Provider.Status is a pure readiness probe. Provider.Acquire returns the cached
// Client or builds one; once built the same Client is returned forever, even
// if settings change later. Missing settings and factory failures are not
// cached, so the next call retries.
//
//	p := backend.Shared(gotrue.Factory())
//	if client, ok := p.Handle(); ok {
//	    sess, err := client.GetSession(ctx)
//	}
//
// Shared holds the process-wide Provider; ResetShared and Provider.Reset exist
// for tests.
//
// # Errors
//
// ErrConfigurationMissing and ErrHandleConstructionFailed come from
// Acquire. Backend rejections are *APIError values, which match
// ErrInvalidCredentials, ErrUserAlreadyExists and ErrRateLimited through
// errors.Is.
package backend
