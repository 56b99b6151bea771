// Package config loads configuration structs from environment variables.
//
// Struct fields are annotated with tags understood by
// github.com/caarlos0/env; a .env file in the working directory is loaded
// once per process as a convenience for local development.
//
// Example:
//
//	type SweeperConfig struct {
//	    Interval time.Duration `env:"SWEEP_INTERVAL" envDefault:"5m"`
//	}
//
//	var cfg SweeperConfig
//	if err := config.Load(&cfg); err != nil {
//	    // missing required variables or malformed values
//	}
package config
