package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/kode4food/vellum/internal/store"
)

type (
	// Config holds configuration settings for the workflow engine
	Config struct {
		// Stores
		AnswerStore store.Config
		TableDSN    string

		// Scripting
		PythonBin     string
		ScriptTimeout time.Duration
		MaxScriptSize int

		// Engine
		ProgramCacheSize int
		LogLevel         string
	}
)

const (
	DefaultScriptTimeout = 5 * time.Second
	DefaultMaxScriptSize = 32 * 1024

	DefaultRedisEndpoint = "localhost:6379"
	DefaultRedisPrefix   = "vellum"
	DefaultRedisDB       = 0
	DefaultPythonBin     = "python3"
	DefaultCacheSize     = 4096

	MaxScriptTimeout    = 10 * time.Minute
	MaxProgramCacheSize = 1_000_000
	MaxScriptSizeLimit  = 10 * 1024 * 1024
)

var (
	ErrInvalidScriptTimeout = errors.New("script timeout must be positive")
	ErrInvalidCacheSize     = errors.New("program cache size must be positive")
	ErrInvalidScriptSize    = errors.New("script size limit must be positive")
	ErrMissingTableDSN      = errors.New("table store DSN not configured")
)

// NewDefaultConfig creates a configuration with sensible defaults for the
// engine, stores, and script sandbox
func NewDefaultConfig() *Config {
	return &Config{
		AnswerStore: store.Config{
			Addr:   DefaultRedisEndpoint,
			Prefix: DefaultRedisPrefix,
			DB:     DefaultRedisDB,
		},
		PythonBin:        DefaultPythonBin,
		ScriptTimeout:    DefaultScriptTimeout,
		MaxScriptSize:    DefaultMaxScriptSize,
		ProgramCacheSize: DefaultCacheSize,
		LogLevel:         "info",
	}
}

// LoadFromEnv populates configuration values from environment variables.
// Returns an error if any env var cannot be parsed
func (c *Config) LoadFromEnv() error {
	loadAnswerStoreFromEnv(&c.AnswerStore)

	if dsn := os.Getenv("TABLE_DSN"); dsn != "" {
		c.TableDSN = dsn
	}
	if bin := os.Getenv("PYTHON_BIN"); bin != "" {
		c.PythonBin = bin
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.LogLevel = logLevel
	}

	var timeoutMs int64
	err := loadEnvInt(
		"SCRIPT_TIMEOUT", &timeoutMs, 0, MaxScriptTimeout.Milliseconds(),
	)
	if err != nil {
		return err
	}
	if timeoutMs > 0 {
		c.ScriptTimeout = time.Duration(timeoutMs) * time.Millisecond
	}

	err = loadEnvInt(
		"MAX_SCRIPT_SIZE", &c.MaxScriptSize, 0, MaxScriptSizeLimit,
	)
	if err != nil {
		return err
	}
	return loadEnvInt(
		"PROGRAM_CACHE_SIZE", &c.ProgramCacheSize, 0, MaxProgramCacheSize,
	)
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.ScriptTimeout <= 0 {
		return ErrInvalidScriptTimeout
	}
	if c.ProgramCacheSize <= 0 {
		return ErrInvalidCacheSize
	}
	if c.MaxScriptSize <= 0 {
		return ErrInvalidScriptSize
	}
	return nil
}

// RequireTableStore checks that a table store DSN is configured. Only
// graphs containing table nodes need one
func (c *Config) RequireTableStore() error {
	if c.TableDSN == "" {
		return ErrMissingTableDSN
	}
	return nil
}

func loadAnswerStoreFromEnv(s *store.Config) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		s.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		s.Password = password
	}
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			s.DB = db
		}
	}
	if prefix := os.Getenv("REDIS_PREFIX"); prefix != "" {
		s.Prefix = prefix
	}
}

// loadEnvInt reads key from the environment, parses it as an integer, and
// sets *dst if the value is in the range (min, max). Returns an error if
// the value cannot be parsed or falls outside the valid range
func loadEnvInt[T ~int | ~int64](key string, dst *T, min, max T) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	tv := T(v)
	if tv <= min || tv > max {
		return fmt.Errorf("invalid %s: %d out of range [%d, %d]",
			key, tv, min+1, max)
	}
	*dst = tv
	return nil
}
