// Package logger builds *slog.Logger instances with functional options,
// attribute helpers and a handler decorator that pulls attributes out of
// context.Context on every record.
//
// New picks slog.NewTextHandler or slog.NewJSONHandler from the configured
// Format, applies static attributes and wraps the result in
// LogHandlerDecorator so registered ContextExtractor callbacks run per call.
//
// Attribute helpers (Error, Component, Source, State, UserID...) keep key
// names consistent between the auth supervisor, the backend client and the
// HTTP adapter.
//
// # Usage
//
//	log := logger.New(logger.WithEnvironment("production", "authsync"))
//	log.Warn("session restore timed out",
//	    logger.Component("auth"),
//	    logger.Source("timeout"),
//	)
//
// Components accept a nil-free *slog.Logger; Discard returns one that drops
// everything and is used as the default.
package logger
