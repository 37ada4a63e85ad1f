// Package httpserver runs an http.Server bound to a context and provides
// liveness and readiness probe handlers.
//
// Run blocks until the context is cancelled, then shuts the server down
// gracefully within the configured timeout:
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//	    log.Error("server failed", logger.Error(err))
//	}
//
// Readiness takes named checks and reports each one:
//
//	r.Get("/readyz", httpserver.Readiness(log, map[string]httpserver.Check{
//	    "redis": redis.Healthcheck(client),
//	}))
package httpserver
