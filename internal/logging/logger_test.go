package logging

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/bucketry/bucketry/config"
)

func TestNew_JSONFormat(t *testing.T) {
	cfg := config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var buf bytes.Buffer
	logger = logger.Output(&buf)

	logger.Info().Str("key", "exp").Msg("test message")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Log output is not valid JSON: %v", err)
	}

	if entry["message"] != "test message" {
		t.Errorf("Expected message 'test message', got %v", entry["message"])
	}
	if entry["key"] != "exp" {
		t.Errorf("Expected key 'exp', got %v", entry["key"])
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	cfg := config.LoggingConfig{
		Level:  "warn",
		Format: "json",
	}

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var buf bytes.Buffer
	logger = logger.Output(&buf)

	logger.Debug().Msg("suppressed")
	logger.Info().Msg("suppressed")
	if buf.Len() != 0 {
		t.Errorf("Expected debug/info to be filtered at warn level, got %q", buf.String())
	}

	logger.Warn().Msg("visible")
	if buf.Len() == 0 {
		t.Error("Expected warn to pass the level filter")
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bucketry.log")
	cfg := config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: path,
	}

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info().Msg("to file")

	if logger.GetLevel() != zerolog.InfoLevel {
		t.Errorf("GetLevel() = %v, want info", logger.GetLevel())
	}
}

func TestNew_InvalidLevelDefaultsToInfo(t *testing.T) {
	logger, err := New(config.LoggingConfig{Level: "bogus", Format: "json"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if logger.GetLevel() != zerolog.InfoLevel {
		t.Errorf("GetLevel() = %v, want info", logger.GetLevel())
	}
}
