package broadcast

import (
	"io"
	"log/slog"
	"math"

	"github.com/dmitrymomot/relay/core/config"
)

const (
	// DefaultTrimThreshold is the number of opens between trim attempts.
	DefaultTrimThreshold = 32

	// DefaultLivenessInterval is the number of trim cycles between liveness sweeps.
	DefaultLivenessInterval = 32

	// DefaultMinCapacity is the slot capacity a channel never trims below.
	DefaultMinCapacity = 4

	// DefaultInitialCapacity is the slot capacity of a new channel.
	DefaultInitialCapacity = 4

	// Unbounded is the MaxLinks value of channels without a subscriber cap.
	Unbounded = math.MaxInt
)

// Config holds the tuning knobs shared by every channel of a registry.
type Config struct {
	TrimThreshold    int `env:"BROADCAST_TRIM_THRESHOLD" envDefault:"32"`
	LivenessInterval int `env:"BROADCAST_LIVENESS_INTERVAL" envDefault:"32"`
	MinCapacity      int `env:"BROADCAST_MIN_CAPACITY" envDefault:"4"`
	InitialCapacity  int `env:"BROADCAST_INITIAL_CAPACITY" envDefault:"4"`
}

// DefaultConfig returns the built-in tuning.
func DefaultConfig() Config {
	return Config{
		TrimThreshold:    DefaultTrimThreshold,
		LivenessInterval: DefaultLivenessInterval,
		MinCapacity:      DefaultMinCapacity,
		InitialCapacity:  DefaultInitialCapacity,
	}
}

// ConfigFromEnv loads Config from BROADCAST_* environment variables (and .env).
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Option configures a registry, a registered service or a standalone channel.
type Option func(*settings)

type settings struct {
	name             string
	maxLinks         int
	trimThreshold    int
	livenessInterval int
	minCapacity      int
	initialCapacity  int
	logger           *slog.Logger
	listener         Listener
}

func defaultSettings() settings {
	return settings{
		maxLinks:         Unbounded,
		trimThreshold:    DefaultTrimThreshold,
		livenessInterval: DefaultLivenessInterval,
		minCapacity:      DefaultMinCapacity,
		initialCapacity:  DefaultInitialCapacity,
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		listener:         nopListener{},
	}
}

func (s settings) with(opts ...Option) settings {
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithConfig applies the tuning from cfg. Non-positive fields are ignored.
func WithConfig(cfg Config) Option {
	return func(s *settings) {
		WithTrimThreshold(cfg.TrimThreshold)(s)
		WithLivenessInterval(cfg.LivenessInterval)(s)
		WithMinCapacity(cfg.MinCapacity)(s)
		WithInitialCapacity(cfg.InitialCapacity)(s)
	}
}

// WithMaxLinks caps the number of concurrent subscriptions per channel.
// Non-positive values are ignored.
func WithMaxLinks(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxLinks = n
		}
	}
}

// WithSingleLink allows at most one subscription per channel.
func WithSingleLink() Option {
	return WithMaxLinks(1)
}

// WithTrimThreshold sets how many opens happen between trim attempts.
func WithTrimThreshold(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.trimThreshold = n
		}
	}
}

// WithLivenessInterval sets how many trim cycles happen between sweeps for dead weak links.
func WithLivenessInterval(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.livenessInterval = n
		}
	}
}

// WithMinCapacity sets the capacity floor for trimming.
func WithMinCapacity(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.minCapacity = n
		}
	}
}

// WithInitialCapacity sets the slot capacity of newly created channels.
func WithInitialCapacity(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.initialCapacity = n
		}
	}
}

// WithLogger configures structured logging.
// Use slog.New(slog.NewTextHandler(io.Discard, nil)) to disable logging.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithListener installs a hook notified about channel activity, e.g. metrics.
func WithListener(l Listener) Option {
	return func(s *settings) {
		if l != nil {
			s.listener = l
		}
	}
}

// WithServiceName overrides the name used for a service in logs and metrics.
func WithServiceName(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.name = name
		}
	}
}
