package main

import (
	"time"

	"github.com/dmitrymomot/authsync/pkg/httpserver"
	"github.com/dmitrymomot/authsync/pkg/redis"
)

const serviceName = "authsync"

// Session store kinds accepted by SESSION_STORE.
const (
	storeMemory = "memory"
	storeRedis  = "redis"
)

type appConfig struct {
	Env     string `env:"APP_ENV" envDefault:"development"`
	SiteURL string `env:"APP_SITE_URL"`

	SettleTimeout time.Duration `env:"AUTH_SETTLE_TIMEOUT" envDefault:"3s"`
	RefreshMargin time.Duration `env:"AUTH_REFRESH_MARGIN" envDefault:"10s"`

	// ShellToken, when set, is required as a bearer token on every /auth
	// route. Leave it empty only while HTTP_ADDR stays on loopback.
	ShellToken string `env:"AUTH_SHELL_TOKEN"`

	// RateLimitCapacity is the sign-in/sign-up burst per client IP; 0 disables
	// limiting.
	RateLimitCapacity       int           `env:"AUTH_RATE_LIMIT_CAPACITY" envDefault:"10"`
	RateLimitRefillInterval time.Duration `env:"AUTH_RATE_LIMIT_REFILL_INTERVAL" envDefault:"30s"`

	// TrustedIPHeaders lists proxy headers carrying the client IP, e.g.
	// "CF-Connecting-IP,X-Forwarded-For". Empty means RemoteAddr only.
	TrustedIPHeaders []string `env:"HTTP_TRUSTED_IP_HEADERS"`

	// SessionStore also selects where rate limit buckets live.
	SessionStore         string        `env:"SESSION_STORE" envDefault:"memory"`
	SessionKeyPrefix     string        `env:"SESSION_KEY_PREFIX" envDefault:"authsync:"`
	SessionRefreshWindow time.Duration `env:"SESSION_REFRESH_WINDOW" envDefault:"168h"`

	HTTP  httpserver.Config
	Redis redis.Config
}
