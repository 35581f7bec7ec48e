// Package config provides configuration loading and parsing for bucketry.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/mo"
)

// Configuration errors.
var (
	ErrUnknownSourceMode = errors.New("config: unknown source mode")
	ErrFilePathRequired  = errors.New("config: source path is required in file mode")
)

// InvalidIntervalError is returned when a duration field is negative.
type InvalidIntervalError struct {
	Field string
	Value int
}

func (e InvalidIntervalError) Error() string {
	return fmt.Sprintf("config: %s must be >= 0, got %d", e.Field, e.Value)
}

// Log level constants.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Source mode constants.
const (
	// SourceHTTP fetches configuration from a remote HTTP config service.
	SourceHTTP = "http"
	// SourceFile reads configuration from a local snapshot file, hot-reloaded
	// on change. Intended for development and offline use.
	SourceFile = "file"
	// SourceNone disables all remote calls; every resolution returns the
	// supplied fallback or a not-found error.
	SourceNone = "none"
)

// Default timings.
const (
	DefaultSyncInterval  = 30 * time.Second
	DefaultFetchTimeout  = 2 * time.Second
	DefaultRecordTimeout = 1 * time.Second
	DefaultDedupTTL      = 5 * time.Minute
)

// Config represents the complete bucketry client configuration.
type Config struct {
	Source   SourceConfig   `yaml:"source" toml:"source"`
	Sync     SyncConfig     `yaml:"sync" toml:"sync"`
	Recorder RecorderConfig `yaml:"recorder" toml:"recorder"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

// SourceConfig selects and parameterizes the remote config source.
type SourceConfig struct {
	// Mode is one of http (default when a base URL and credential are set),
	// file, none.
	Mode string `yaml:"mode" toml:"mode"`

	// BaseURL is the root URL of the remote config service.
	BaseURL string `yaml:"base_url" toml:"base_url"`

	// Credential is the bearer credential for the remote config service.
	// An empty credential is a valid state: the engine initializes inert
	// and never makes network calls.
	Credential string `yaml:"credential" toml:"credential"`

	// Path is the snapshot file path for file mode.
	Path string `yaml:"path" toml:"path"`

	// BreakerThreshold is the number of consecutive fetch failures before
	// the circuit opens. Default: 5.
	BreakerThreshold int `yaml:"breaker_threshold" toml:"breaker_threshold"`

	// BreakerOpenMS is how long the circuit stays open before probing
	// again, in milliseconds. Default: 30000.
	BreakerOpenMS int `yaml:"breaker_open_ms" toml:"breaker_open_ms"`
}

// SyncConfig controls the background refresh loop.
type SyncConfig struct {
	// IntervalMS is the fixed refresh interval in milliseconds.
	// Default: 30000.
	IntervalMS int `yaml:"interval_ms" toml:"interval_ms"`

	// FetchTimeoutMS bounds every remote fetch (background tick and
	// on-demand) in milliseconds. Default: 2000. Kept short so sync
	// failures resolve fast instead of hanging the caller's hot path.
	FetchTimeoutMS int `yaml:"fetch_timeout_ms" toml:"fetch_timeout_ms"`
}

// RecorderConfig controls fire-and-forget assignment recording.
type RecorderConfig struct {
	// TimeoutMS bounds the record POST in milliseconds. Default: 1000.
	TimeoutMS int `yaml:"timeout_ms" toml:"timeout_ms"`

	// DedupTTLMS suppresses identical assignment records for this long,
	// in milliseconds. Default: 300000 (5 minutes). Negative disables dedup.
	DedupTTLMS int `yaml:"dedup_ttl_ms" toml:"dedup_ttl_ms"`

	// RatePerSec caps record posts per second. Default: 50.
	RatePerSec int `yaml:"rate_per_sec" toml:"rate_per_sec"`

	// Burst is the record rate limiter burst size. Default: 100.
	Burst int `yaml:"burst" toml:"burst"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format string `yaml:"format" toml:"format"` // json, console
	Output string `yaml:"output" toml:"output"` // stdout, stderr, or file path
	Pretty bool   `yaml:"pretty" toml:"pretty"` // enable colored console output
}

// ParseLevel converts a string log level to zerolog.Level.
// Returns zerolog.InfoLevel if the level string is invalid.
func (l *LoggingConfig) ParseLevel() zerolog.Level {
	switch strings.ToLower(l.Level) {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// GetEffectiveMode returns the source mode with default inference: explicit
// Mode wins; otherwise http when both a base URL and a credential are
// present, none when not.
func (s *SourceConfig) GetEffectiveMode() string {
	if s.Mode != "" {
		return s.Mode
	}
	if s.BaseURL != "" && s.Credential != "" {
		return SourceHTTP
	}
	return SourceNone
}

// GetBreakerThreshold returns the breaker failure threshold with the default
// applied.
func (s *SourceConfig) GetBreakerThreshold() int {
	if s.BreakerThreshold <= 0 {
		return 5
	}
	return s.BreakerThreshold
}

// GetBreakerOpenOption returns the breaker open duration if explicitly set.
func (s *SourceConfig) GetBreakerOpenOption() mo.Option[time.Duration] {
	if s.BreakerOpenMS <= 0 {
		return mo.None[time.Duration]()
	}
	return mo.Some(time.Duration(s.BreakerOpenMS) * time.Millisecond)
}

// GetSyncInterval returns the refresh interval with the default applied.
func (s *SyncConfig) GetSyncInterval() time.Duration {
	if s.IntervalMS <= 0 {
		return DefaultSyncInterval
	}
	return time.Duration(s.IntervalMS) * time.Millisecond
}

// GetFetchTimeout returns the per-fetch timeout with the default applied.
func (s *SyncConfig) GetFetchTimeout() time.Duration {
	if s.FetchTimeoutMS <= 0 {
		return DefaultFetchTimeout
	}
	return time.Duration(s.FetchTimeoutMS) * time.Millisecond
}

// GetRecordTimeout returns the record timeout with the default applied.
func (r *RecorderConfig) GetRecordTimeout() time.Duration {
	if r.TimeoutMS <= 0 {
		return DefaultRecordTimeout
	}
	return time.Duration(r.TimeoutMS) * time.Millisecond
}

// GetDedupTTL returns the dedup TTL with the default applied.
// A negative configured value disables dedup entirely (returns zero).
func (r *RecorderConfig) GetDedupTTL() time.Duration {
	if r.DedupTTLMS < 0 {
		return 0
	}
	if r.DedupTTLMS == 0 {
		return DefaultDedupTTL
	}
	return time.Duration(r.DedupTTLMS) * time.Millisecond
}

// GetRatePerSec returns the record rate cap with the default applied.
func (r *RecorderConfig) GetRatePerSec() int {
	if r.RatePerSec <= 0 {
		return 50
	}
	return r.RatePerSec
}

// GetBurst returns the record burst size with the default applied.
func (r *RecorderConfig) GetBurst() int {
	if r.Burst <= 0 {
		return 100
	}
	return r.Burst
}

// Validate checks the configuration for structural errors.
func (c *Config) Validate() error {
	switch mode := c.Source.GetEffectiveMode(); mode {
	case SourceHTTP, SourceNone:
	case SourceFile:
		if c.Source.Path == "" {
			return ErrFilePathRequired
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSourceMode, mode)
	}

	fields := []struct {
		name  string
		value int
	}{
		{"sync.interval_ms", c.Sync.IntervalMS},
		{"sync.fetch_timeout_ms", c.Sync.FetchTimeoutMS},
		{"recorder.timeout_ms", c.Recorder.TimeoutMS},
		{"recorder.rate_per_sec", c.Recorder.RatePerSec},
	}
	for _, f := range fields {
		if f.value < 0 {
			return InvalidIntervalError{Field: f.name, Value: f.value}
		}
	}
	return nil
}
