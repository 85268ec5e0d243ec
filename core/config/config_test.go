package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/relay/core/config"
)

type cachedConfig struct {
	Threshold int    `env:"RELAY_TEST_THRESHOLD" envDefault:"32"`
	Name      string `env:"RELAY_TEST_NAME" envDefault:"default"`
}

type requiredConfig struct {
	Value string `env:"RELAY_TEST_REQUIRED_VALUE,required"`
}

type intConfig struct {
	Value int `env:"RELAY_TEST_INT_VALUE"`
}

func TestLoad(t *testing.T) {
	t.Run("parses and caches per type", func(t *testing.T) {
		t.Setenv("RELAY_TEST_THRESHOLD", "64")

		var first cachedConfig
		require.NoError(t, config.Load(&first))
		assert.Equal(t, 64, first.Threshold)
		assert.Equal(t, "default", first.Name)

		t.Setenv("RELAY_TEST_THRESHOLD", "128")

		var second cachedConfig
		require.NoError(t, config.Load(&second))
		assert.Equal(t, first, second)
	})

	t.Run("missing required variable", func(t *testing.T) {
		var cfg requiredConfig
		err := config.Load(&cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
		assert.Contains(t, err.Error(), "requiredConfig")

		t.Setenv("RELAY_TEST_REQUIRED_VALUE", "set")
		require.NoError(t, config.Load(&cfg), "failed loads are not cached")
		assert.Equal(t, "set", cfg.Value)
	})

	t.Run("invalid value", func(t *testing.T) {
		t.Setenv("RELAY_TEST_INT_VALUE", "not-a-number")

		var cfg intConfig
		err := config.Load(&cfg)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("nil destination", func(t *testing.T) {
		var cfg *cachedConfig
		assert.ErrorIs(t, config.Load(cfg), config.ErrParsingConfig)
	})
}

func TestMustLoad(t *testing.T) {
	type mustRequired struct {
		Value string `env:"RELAY_TEST_MUST_REQUIRED,required"`
	}

	assert.Panics(t, func() {
		var cfg mustRequired
		config.MustLoad(&cfg)
	})
}
