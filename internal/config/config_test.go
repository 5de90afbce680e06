package config_test

import (
	"testing"
	"time"

	testify "github.com/stretchr/testify/assert"

	"github.com/kode4food/vellum/internal/assert"
	"github.com/kode4food/vellum/internal/assert/helpers"
	"github.com/kode4food/vellum/internal/config"
)

func TestConfigValidation(t *testing.T) {
	as := assert.New(t)

	t.Run("valid_default_config", func(t *testing.T) {
		cfg := config.NewDefaultConfig()
		as.ConfigValid(cfg)
	})

	t.Run("valid_test_config", func(t *testing.T) {
		cfg := helpers.NewTestConfig()
		as.ConfigValid(cfg)
	})

	tests := []struct {
		name          string
		configMod     func(*config.Config)
		errorContains string
	}{
		{
			name: "zero_script_timeout",
			configMod: func(c *config.Config) {
				c.ScriptTimeout = 0
			},
			errorContains: "script timeout must be positive",
		},
		{
			name: "negative_cache_size",
			configMod: func(c *config.Config) {
				c.ProgramCacheSize = -1
			},
			errorContains: "cache size must be positive",
		},
		{
			name: "zero_script_size",
			configMod: func(c *config.Config) {
				c.MaxScriptSize = 0
			},
			errorContains: "script size limit must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := helpers.NewTestConfig()
			tt.configMod(cfg)
			as.ConfigInvalid(cfg, tt.errorContains)
		})
	}
}

func TestDefaultConfigValues(t *testing.T) {
	as := assert.New(t)

	cfg := config.NewDefaultConfig()

	as.Equal(config.DefaultRedisEndpoint, cfg.AnswerStore.Addr)
	as.Equal(config.DefaultRedisPrefix, cfg.AnswerStore.Prefix)
	as.Equal(config.DefaultScriptTimeout, cfg.ScriptTimeout)
	as.Equal(config.DefaultMaxScriptSize, cfg.MaxScriptSize)
	as.Equal(config.DefaultPythonBin, cfg.PythonBin)
	as.Equal(config.DefaultCacheSize, cfg.ProgramCacheSize)
	as.Equal("info", cfg.LogLevel)
}

func TestLoadFromEnv(t *testing.T) {
	as := assert.New(t)

	t.Run("overrides_applied", func(t *testing.T) {
		t.Setenv("REDIS_ADDR", "redis:6380")
		t.Setenv("REDIS_PREFIX", "intake")
		t.Setenv("TABLE_DSN", "postgres://localhost/intake")
		t.Setenv("SCRIPT_TIMEOUT", "2500")
		t.Setenv("LOG_LEVEL", "debug")

		cfg := config.NewDefaultConfig()
		as.NoError(cfg.LoadFromEnv())

		as.Equal("redis:6380", cfg.AnswerStore.Addr)
		as.Equal("intake", cfg.AnswerStore.Prefix)
		as.Equal("postgres://localhost/intake", cfg.TableDSN)
		as.Equal(2500*time.Millisecond, cfg.ScriptTimeout)
		as.Equal("debug", cfg.LogLevel)
	})

	t.Run("unparseable_int_rejected", func(t *testing.T) {
		t.Setenv("SCRIPT_TIMEOUT", "soon")

		cfg := config.NewDefaultConfig()
		err := cfg.LoadFromEnv()
		testify.ErrorContains(t, err, "invalid SCRIPT_TIMEOUT")
	})

	t.Run("out_of_range_rejected", func(t *testing.T) {
		t.Setenv("PROGRAM_CACHE_SIZE", "9999999999")

		cfg := config.NewDefaultConfig()
		err := cfg.LoadFromEnv()
		testify.ErrorContains(t, err, "out of range")
	})
}

func TestRequireTableStore(t *testing.T) {
	as := assert.New(t)

	cfg := config.NewDefaultConfig()
	as.ErrorIs(cfg.RequireTableStore(), config.ErrMissingTableDSN)

	cfg.TableDSN = "postgres://localhost/intake"
	as.NoError(cfg.RequireTableStore())
}
