// Package redis connects to the Redis server used to share authentication
// sessions between processes.
//
// Connect retries until the server answers a ping; Healthcheck wraps a ping
// for readiness probes. Config is populated from the environment:
//
//	var cfg redis.Config
//	if err := config.Load(&cfg); err != nil {
//	    return err
//	}
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
// Errors wrap the go-redis cause with errors.Join, so both the sentinel and
// the cause match errors.Is.
package redis
