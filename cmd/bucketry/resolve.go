package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bucketry/bucketry"
	"github.com/bucketry/bucketry/cmd/bucketry/di"
)

var (
	resolveStickyID string
	resolveVersion  int
	resolveFallback string
	resolvePrompt   bool
	resolveVars     []string
	resolveTimeout  time.Duration
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <config-key>",
	Short: "Resolve a variant for a configuration key",
	Long: `Resolve a weighted variant for the given configuration key. By default the
resolved model name is printed; with --prompt the key is treated as a prompt
A/B test and the interpolated system/user templates are printed as JSON.

The sticky identifier drives the deterministic assignment. When omitted a
random one is generated, which samples the weight distribution instead of
reproducing a fixed assignment.`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVar(&resolveStickyID, "sticky-id", "",
		"sticky identifier for deterministic assignment (default: random)")
	resolveCmd.Flags().IntVar(&resolveVersion, "version", 0,
		"pin resolution to a specific published version (0 = latest)")
	resolveCmd.Flags().StringVar(&resolveFallback, "fallback", "",
		"model name to return when the key is missing or the source is down")
	resolveCmd.Flags().BoolVar(&resolvePrompt, "prompt", false,
		"resolve a prompt A/B test instead of a model test")
	resolveCmd.Flags().StringArrayVar(&resolveVars, "var", nil,
		"template variable as key=value (repeatable, prompt mode only)")
	resolveCmd.Flags().DurationVar(&resolveTimeout, "timeout", 5*time.Second,
		"overall resolution timeout")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	key := args[0]

	stickyID := resolveStickyID
	if stickyID == "" {
		stickyID = uuid.NewString()
	}

	container := di.NewContainer(configPath())
	defer container.Shutdown() //nolint:errcheck // best-effort teardown on exit

	engineSvc, err := di.Invoke[*di.EngineService](container)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), resolveTimeout)
	defer cancel()

	var opts []bucketry.ResolveOption
	if resolveVersion > 0 {
		opts = append(opts, bucketry.WithVersion(resolveVersion))
	}

	if resolvePrompt {
		vars, err := parseVars(resolveVars)
		if err != nil {
			return err
		}

		prompt, err := engineSvc.Engine.ResolvePrompt(ctx, key, stickyID, vars, opts...)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(prompt, "", "  ")
		if err != nil {
			return err
		}

		fmt.Println(string(out))
		return nil
	}

	if resolveFallback != "" {
		opts = append(opts, bucketry.WithModelFallback(resolveFallback))
	}

	model, err := engineSvc.Engine.ResolveModel(ctx, key, stickyID, opts...)
	if err != nil {
		return err
	}

	fmt.Println(model)
	return nil
}

// parseVars turns repeated key=value flags into a template variable map.
func parseVars(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	vars := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --var %q, expected key=value", pair)
		}
		vars[k] = v
	}
	return vars, nil
}
