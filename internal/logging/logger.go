// Package logging builds the zerolog logger used across bucketry.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/bucketry/bucketry/config"
)

// New creates a zerolog.Logger from LoggingConfig.
func New(cfg config.LoggingConfig) (zerolog.Logger, error) {
	output, outputFile, err := selectOutput(cfg.Output)
	if err != nil {
		return zerolog.Logger{}, err
	}

	if shouldUsePretty(cfg, outputFile) {
		output = buildConsoleWriter(output)
	}

	logger := zerolog.New(output).
		Level(cfg.ParseLevel()).
		With().
		Timestamp().
		Logger()

	return logger, nil
}

// selectOutput returns the output writer and file handle for the given output config.
func selectOutput(outputCfg string) (io.Writer, *os.File, error) {
	switch outputCfg {
	case "", "stdout":
		return os.Stdout, os.Stdout, nil
	case "stderr":
		return os.Stderr, os.Stderr, nil
	default:
		outputCfg = filepath.Clean(outputCfg)
		f, err := os.OpenFile(outputCfg, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, nil, err
		}
		return f, f, nil
	}
}

// shouldUsePretty determines if pretty console output should be used.
func shouldUsePretty(cfg config.LoggingConfig, outputFile *os.File) bool {
	// Explicit Pretty flag always wins
	if cfg.Pretty {
		return true
	}

	switch cfg.Format {
	case "pretty":
		return true
	case "json":
		return false
	default:
		// Auto-detect: use pretty if the output is a terminal
		return outputFile != nil && isatty.IsTerminal(outputFile.Fd())
	}
}

// buildConsoleWriter creates a zerolog.ConsoleWriter with custom formatting.
func buildConsoleWriter(output io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:         output,
		TimeFormat:  "15:04:05",
		NoColor:     false,
		FormatLevel: formatLevel,
		FormatFieldName: func(i interface{}) string {
			return fmt.Sprintf("\033[2m%s=\033[0m", i) // Dim
		},
	}
}

// formatLevel formats log level with ANSI colors.
func formatLevel(i interface{}) string {
	levelStr, ok := i.(string)
	if !ok {
		return ""
	}

	levelColors := map[string]string{
		"debug": "\033[36mDBG\033[0m", // Cyan
		"info":  "\033[32mINF\033[0m", // Green
		"warn":  "\033[33mWRN\033[0m", // Yellow
		"error": "\033[31mERR\033[0m", // Red
		"fatal": "\033[35mFTL\033[0m", // Magenta
	}

	if colored, exists := levelColors[levelStr]; exists {
		return colored
	}
	return levelStr
}
