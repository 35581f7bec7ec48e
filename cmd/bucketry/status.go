package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bucketry/bucketry/cmd/bucketry/di"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show engine source, sync state, and cache sizes",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print status as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, _ []string) error {
	container := di.NewContainer(configPath())
	defer container.Shutdown() //nolint:errcheck // best-effort teardown on exit

	engineSvc, err := di.Invoke[*di.EngineService](container)
	if err != nil {
		return err
	}

	st := engineSvc.Engine.Status()

	if statusJSON {
		out, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Printf("source:      %s\n", st.Source)
	fmt.Printf("sync state:  %s\n", st.SyncState)
	if st.Breaker != "" {
		fmt.Printf("breaker:     %s\n", st.Breaker)
	}
	fmt.Printf("config keys: %d\n", st.ConfigKeys)
	fmt.Printf("prompt keys: %d\n", st.PromptKeys)

	return nil
}
