// Package main is the entry point for the bucketry CLI.
package main

import (
	"context"
	"os"

	"charm.land/fang/v2"
	"github.com/spf13/cobra"
)

const defaultConfigFile = "bucketry.yaml"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "bucketry",
	Short: "Deterministic experiment resolution for LLM applications",
	Long: `bucketry resolves weighted experiment variants (model names and prompt
templates) deterministically from a sticky session identifier, backed by a
remote config service or a local snapshot file.`,
}

func init() {
	// Global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file path (default: ./"+defaultConfigFile+")")
}

// configPath returns the effective config file path, empty when none exists.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile
	}
	return ""
}

func main() {
	if err := fang.Execute(context.Background(), rootCmd); err != nil {
		os.Exit(1)
	}
}
