// Package redis connects the subscription store to a Redis server.
//
// It wraps the go-redis client with a retrying Connect and a health-check
// helper for liveness probes. Configuration lives in the Config struct and
// can be populated from environment variables via pkg/config.
//
// # Usage
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    // terminate: the store has no backend
//	}
//	defer client.Close()
//
//	store := subscription.NewRedisStore(client)
//
// # Errors
//
// Sentinel errors (ErrNotReady, ErrFailedToParseConnString) wrap the
// underlying go-redis errors with errors.Join for comparison and unwrapping.
package redis
