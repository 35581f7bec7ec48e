package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bucketry/bucketry"
	"github.com/bucketry/bucketry/cmd/bucketry/di"
)

var pullTimeout time.Duration

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Fetch the full configuration snapshot from the source",
	Long: `Force an immediate full fetch from the configured source and print an
inventory of the configuration and prompt keys it published.`,
	RunE: runPull,
}

func init() {
	pullCmd.Flags().DurationVar(&pullTimeout, "timeout", 10*time.Second,
		"fetch timeout")
	rootCmd.AddCommand(pullCmd)
}

func runPull(cmd *cobra.Command, _ []string) error {
	container := di.NewContainer(configPath())
	defer container.Shutdown() //nolint:errcheck // best-effort teardown on exit

	engineSvc, err := di.Invoke[*di.EngineService](container)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), pullTimeout)
	defer cancel()

	if err := engineSvc.Engine.Sync(ctx); err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	configs, prompts := engineSvc.Engine.Inventory()

	out, err := json.MarshalIndent(struct {
		Configs []bucketry.KeySummary `json:"configs"`
		Prompts []bucketry.KeySummary `json:"prompts"`
	}{Configs: configs, Prompts: prompts}, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(out))
	return nil
}
