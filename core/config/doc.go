// Package config loads typed settings from environment variables.
//
// A settings struct declares its variables with caarlos0/env tags. Load parses the
// process environment into it; a .env file in the working directory is read once,
// on the first Load, and never overrides variables that are already set.
//
//	type BroadcastConfig struct {
//		TrimThreshold    int `env:"BROADCAST_TRIM_THRESHOLD" envDefault:"32"`
//		LivenessInterval int `env:"BROADCAST_LIVENESS_INTERVAL" envDefault:"32"`
//	}
//
//	var cfg BroadcastConfig
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// MustLoad panics instead of returning the error and is meant for startup code:
//
//	var cfg BroadcastConfig
//	config.MustLoad(&cfg)
//
// # Caching
//
// The first successful Load for a struct type is cached. Later calls for the same type
// copy the cached value and do not look at the environment again, so every caller sees
// the same settings for the lifetime of the process. Each type has its own entry.
//
// # Errors
//
// Parse failures (a missing required variable, a value that does not convert) are
// returned wrapped in ErrParsingConfig together with the struct type. A nil destination
// is reported as ErrParsingConfig too:
//
//	if errors.Is(err, config.ErrParsingConfig) {
//		// fix the environment
//	}
//
// Failed loads are not cached; the next call tries again.
package config
