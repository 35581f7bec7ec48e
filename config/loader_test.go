package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bucketry/bucketry/config"
)

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() unexpected error: %v", err)
	}
	return path
}

func TestLoad_YAML(t *testing.T) {
	t.Parallel()

	path := writeConfigFile(t, "client.yaml", `
source:
  base_url: https://cfg.example.com
  credential: tok
sync:
  interval_ms: 5000
logging:
  level: debug
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.Source.BaseURL != "https://cfg.example.com" {
		t.Errorf("BaseURL = %q", cfg.Source.BaseURL)
	}
	if cfg.Source.GetEffectiveMode() != config.SourceHTTP {
		t.Errorf("GetEffectiveMode() = %q, want http", cfg.Source.GetEffectiveMode())
	}
	if cfg.Sync.IntervalMS != 5000 {
		t.Errorf("IntervalMS = %d, want 5000", cfg.Sync.IntervalMS)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoad_TOML(t *testing.T) {
	t.Parallel()

	path := writeConfigFile(t, "client.toml", `
[source]
mode = "file"
path = "/tmp/snapshot.yaml"

[recorder]
rate_per_sec = 10
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.Source.Mode != config.SourceFile {
		t.Errorf("Mode = %q, want file", cfg.Source.Mode)
	}
	if cfg.Source.Path != "/tmp/snapshot.yaml" {
		t.Errorf("Path = %q", cfg.Source.Path)
	}
	if cfg.Recorder.RatePerSec != 10 {
		t.Errorf("RatePerSec = %d, want 10", cfg.Recorder.RatePerSec)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("BUCKETRY_TEST_CREDENTIAL", "secret-token")

	path := writeConfigFile(t, "client.yaml", `
source:
  base_url: https://cfg.example.com
  credential: ${BUCKETRY_TEST_CREDENTIAL}
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Source.Credential != "secret-token" {
		t.Errorf("Credential = %q, want expanded env value", cfg.Source.Credential)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoadFromReader_Invalid(t *testing.T) {
	t.Parallel()

	if _, err := config.LoadFromReader(strings.NewReader("{not: [valid")); err == nil {
		t.Error("LoadFromReader() expected parse error")
	}
}
