package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/bucketry/bucketry/config"
)

func TestGetEffectiveMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  config.SourceConfig
		want string
	}{
		{
			name: "explicit mode wins",
			src:  config.SourceConfig{Mode: config.SourceFile, BaseURL: "https://cfg.example.com", Credential: "tok"},
			want: config.SourceFile,
		},
		{
			name: "url and credential infer http",
			src:  config.SourceConfig{BaseURL: "https://cfg.example.com", Credential: "tok"},
			want: config.SourceHTTP,
		},
		{
			name: "missing credential infers none",
			src:  config.SourceConfig{BaseURL: "https://cfg.example.com"},
			want: config.SourceNone,
		},
		{
			name: "missing url infers none",
			src:  config.SourceConfig{Credential: "tok"},
			want: config.SourceNone,
		},
		{
			name: "empty config is inert",
			src:  config.SourceConfig{},
			want: config.SourceNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.src.GetEffectiveMode(); got != tt.want {
				t.Errorf("GetEffectiveMode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultGetters(t *testing.T) {
	t.Parallel()

	var (
		src config.SourceConfig
		syn config.SyncConfig
		rec config.RecorderConfig
	)

	if got := src.GetBreakerThreshold(); got != 5 {
		t.Errorf("GetBreakerThreshold() = %d, want 5", got)
	}
	if opt := src.GetBreakerOpenOption(); opt.IsPresent() {
		t.Error("GetBreakerOpenOption() present for zero config")
	}
	if got := syn.GetSyncInterval(); got != config.DefaultSyncInterval {
		t.Errorf("GetSyncInterval() = %v, want %v", got, config.DefaultSyncInterval)
	}
	if got := syn.GetFetchTimeout(); got != config.DefaultFetchTimeout {
		t.Errorf("GetFetchTimeout() = %v, want %v", got, config.DefaultFetchTimeout)
	}
	if got := rec.GetRecordTimeout(); got != config.DefaultRecordTimeout {
		t.Errorf("GetRecordTimeout() = %v, want %v", got, config.DefaultRecordTimeout)
	}
	if got := rec.GetDedupTTL(); got != config.DefaultDedupTTL {
		t.Errorf("GetDedupTTL() = %v, want %v", got, config.DefaultDedupTTL)
	}
	if got := rec.GetRatePerSec(); got != 50 {
		t.Errorf("GetRatePerSec() = %d, want 50", got)
	}
	if got := rec.GetBurst(); got != 100 {
		t.Errorf("GetBurst() = %d, want 100", got)
	}
}

func TestExplicitGetters(t *testing.T) {
	t.Parallel()

	src := config.SourceConfig{BreakerThreshold: 2, BreakerOpenMS: 10_000}
	if got := src.GetBreakerThreshold(); got != 2 {
		t.Errorf("GetBreakerThreshold() = %d, want 2", got)
	}
	if got := src.GetBreakerOpenOption().MustGet(); got != 10*time.Second {
		t.Errorf("GetBreakerOpenOption() = %v, want 10s", got)
	}

	syn := config.SyncConfig{IntervalMS: 5000, FetchTimeoutMS: 500}
	if got := syn.GetSyncInterval(); got != 5*time.Second {
		t.Errorf("GetSyncInterval() = %v, want 5s", got)
	}
	if got := syn.GetFetchTimeout(); got != 500*time.Millisecond {
		t.Errorf("GetFetchTimeout() = %v, want 500ms", got)
	}

	rec := config.RecorderConfig{DedupTTLMS: -1}
	if got := rec.GetDedupTTL(); got != 0 {
		t.Errorf("GetDedupTTL() = %v, want 0 (disabled)", got)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"WARN", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		l := config.LoggingConfig{Level: tt.level}
		if got := l.ParseLevel(); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     config.Config
		wantErr error
	}{
		{
			name:    "empty config valid",
			cfg:     config.Config{},
			wantErr: nil,
		},
		{
			name: "http mode valid",
			cfg: config.Config{
				Source: config.SourceConfig{BaseURL: "https://cfg.example.com", Credential: "tok"},
			},
			wantErr: nil,
		},
		{
			name: "file mode requires path",
			cfg: config.Config{
				Source: config.SourceConfig{Mode: config.SourceFile},
			},
			wantErr: config.ErrFilePathRequired,
		},
		{
			name: "unknown mode rejected",
			cfg: config.Config{
				Source: config.SourceConfig{Mode: "carrier-pigeon"},
			},
			wantErr: config.ErrUnknownSourceMode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_NegativeDurations(t *testing.T) {
	t.Parallel()

	cfg := config.Config{Sync: config.SyncConfig{IntervalMS: -1}}

	var intervalErr config.InvalidIntervalError
	if err := cfg.Validate(); !errors.As(err, &intervalErr) {
		t.Fatalf("Validate() error = %T, want InvalidIntervalError", err)
	}
	if intervalErr.Field != "sync.interval_ms" {
		t.Errorf("InvalidIntervalError.Field = %q, want sync.interval_ms", intervalErr.Field)
	}
}
