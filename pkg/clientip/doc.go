// Package clientip resolves the client address of an HTTP request.
//
// By default only the connection's RemoteAddr is used. Forwarding headers are
// consulted only when named with WithTrustedHeaders, in the given order, and
// only when the service actually runs behind a proxy that sets them:
//
//	resolver := clientip.New(clientip.WithTrustedHeaders("CF-Connecting-IP", "X-Forwarded-For"))
//	r.Use(resolver.Middleware)
//
// The resolved address is stored in the request context (FromContext) and can
// be attached to every log record with LoggerExtractor.
package clientip
