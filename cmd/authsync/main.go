package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/authsync/pkg/auth"
	"github.com/dmitrymomot/authsync/pkg/authhttp"
	"github.com/dmitrymomot/authsync/pkg/backend"
	"github.com/dmitrymomot/authsync/pkg/backend/gotrue"
	"github.com/dmitrymomot/authsync/pkg/clientip"
	"github.com/dmitrymomot/authsync/pkg/config"
	"github.com/dmitrymomot/authsync/pkg/httpserver"
	"github.com/dmitrymomot/authsync/pkg/logger"
	"github.com/dmitrymomot/authsync/pkg/ratelimiter"
	"github.com/dmitrymomot/authsync/pkg/redis"
	"github.com/dmitrymomot/authsync/pkg/requestid"
)

func main() {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		// slog is not configured yet
		log.Fatalf("failed to load config: %v", err)
	}

	logg := logger.New(
		logger.WithEnvironment(cfg.Env, serviceName),
		logger.WithContextExtractors(
			requestid.LoggerExtractor(),
			clientip.LoggerExtractor(),
			auth.LoggerExtractor(),
		),
	)
	logger.SetAsDefault(logg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error("application stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, logg *slog.Logger) error {
	checks := map[string]httpserver.Check{}

	stores, err := setupStores(ctx, cfg, checks)
	if err != nil {
		return err
	}
	defer stores.close()

	provider := backend.Shared(
		gotrue.Factory(
			gotrue.WithStore(stores.sessions),
			gotrue.WithLogger(logg),
			gotrue.WithRefreshMargin(cfg.RefreshMargin),
		),
		backend.WithLogger(logg),
	)
	defer func() {
		if err := provider.Close(); err != nil {
			logg.Warn("failed to close backend handle", logger.Error(err))
		}
	}()
	checks["backend"] = backendReady(provider)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	sup := auth.New(provider,
		auth.WithLogger(logg),
		auth.WithMetrics(auth.NewMetrics(reg)),
		auth.WithSiteURL(cfg.SiteURL),
		auth.WithTimeout(cfg.SettleTimeout),
	)
	if err := sup.Mount(ctx); err != nil {
		return fmt.Errorf("mount session supervisor: %w", err)
	}
	defer sup.Unmount()

	logg.InfoContext(ctx, "application starting",
		slog.String("session_store", cfg.SessionStore),
		slog.Bool("backend_ready", provider.Status().Ready),
	)

	if cfg.ShellToken == "" && !loopbackOnly(cfg.HTTP.Addr) {
		logg.WarnContext(ctx, "auth routes are reachable beyond loopback without AUTH_SHELL_TOKEN; any peer can read and replace the session",
			slog.String("addr", cfg.HTTP.Addr),
		)
	}

	authOpts := []authhttp.Option{
		authhttp.WithLogger(logg),
		authhttp.WithShellToken(cfg.ShellToken),
	}
	if cfg.RateLimitCapacity > 0 {
		limiter, err := ratelimiter.NewBucket(stores.rateLimits, ratelimiter.Config{
			Capacity:       cfg.RateLimitCapacity,
			RefillRate:     1,
			RefillInterval: cfg.RateLimitRefillInterval,
		})
		if err != nil {
			return fmt.Errorf("configure rate limit: %w", err)
		}
		authOpts = append(authOpts, authhttp.WithRateLimit(limiter))
	}

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(clientip.New(clientip.WithTrustedHeaders(cfg.TrustedIPHeaders...)).Middleware)
	r.Get("/healthz", httpserver.Liveness())
	r.Get("/readyz", httpserver.Readiness(logg, checks))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	r.Mount("/auth", authhttp.Router(sup, authOpts...))

	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(logg))
	return srv.Run(ctx, r)
}

type storeSet struct {
	sessions   gotrue.Store
	rateLimits ratelimiter.Store
	close      func()
}

// setupStores builds the session and rate limit stores selected by
// SESSION_STORE and registers their readiness checks.
func setupStores(ctx context.Context, cfg appConfig, checks map[string]httpserver.Check) (*storeSet, error) {
	switch cfg.SessionStore {
	case storeMemory, "":
		limits := ratelimiter.NewMemoryStore()
		return &storeSet{
			sessions:   gotrue.NewMemoryStore(),
			rateLimits: limits,
			close:      limits.Close,
		}, nil
	case storeRedis:
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect session store: %w", err)
		}
		checks["redis"] = redis.Healthcheck(client)
		return &storeSet{
			sessions: gotrue.NewRedisStore(client,
				gotrue.WithKeyPrefix(cfg.SessionKeyPrefix),
				gotrue.WithRefreshWindow(cfg.SessionRefreshWindow),
			),
			rateLimits: ratelimiter.NewRedisStore(client, ratelimiter.WithKeyPrefix(cfg.SessionKeyPrefix+"ratelimit:")),
			close:      func() { _ = client.Close() },
		}, nil
	default:
		return nil, fmt.Errorf("unknown SESSION_STORE %q", cfg.SessionStore)
	}
}

// loopbackOnly reports whether addr binds a loopback interface only. An
// empty host or a wildcard address listens everywhere.
func loopbackOnly(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func backendReady(p *backend.Provider) httpserver.Check {
	return func(context.Context) error {
		if st := p.Status(); !st.Ready {
			return errors.New(st.Reason)
		}
		return nil
	}
}

