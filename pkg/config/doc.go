// Package config loads application configuration from environment variables
// and optional .env files.
//
// It wraps `github.com/joho/godotenv` and `github.com/caarlos0/env/v11`:
//
//   - Load parses the environment into any struct using `env` field tags and
//     caches the result per type for the lifetime of the process.
//   - Read parses the environment on every call. It is meant for settings
//     whose absence is a normal runtime condition that may be fixed later,
//     such as the identity backend settings read by pkg/backend.
//   - LoadEnv loads explicit .env files before parsing.
//   - ResetCache clears the cache between tests.
//
// # Usage
//
//	type HTTPConfig struct {
//	    Addr string `env:"HTTP_ADDR" envDefault:"127.0.0.1:8080"`
//	}
//
//	var cfg HTTPConfig
//	if err := config.Load(&cfg); err != nil {
//	    log.Fatalf("parsing env: %v", err)
//	}
//
// # Error Handling
//
//   - ErrParsingConfig   – failed to parse env vars into struct.
//   - ErrConfigNotLoaded – requested config type has not been loaded yet.
//   - ErrNilPointer      – nil pointer passed to Load/MustLoad.
//   - ErrLoadingEnvFile  – an explicit .env file could not be loaded.
package config
