// Package authhttp exposes a Supervisor over HTTP.
//
// Routes:
//
//	GET  /status   current session status
//	POST /sign-up  {"email","password","display_name"}
//	POST /sign-in  {"email","password"}
//	POST /sign-out
//
// Every body is a JSON envelope {"data": ..., "error": {"code","message"}}.
//
// The adapter fronts a single Supervisor, and through it a single backend
// session. Every caller that reaches these routes sees and controls the same
// signed-in user, so they are meant for one local user of the shell: bind
// the server to loopback (the httpserver default) and, when the routes must
// be reachable beyond it, require WithShellToken.
//
// Router installs the supervisor scope; handlers registered with Routes on a
// router without Scope answer 500 auth_scope_missing.
package authhttp
