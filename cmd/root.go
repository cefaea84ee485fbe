package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/signalnine/mcpbench/internal/config"
)

var cfgFile string

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "mcpbench",
		Short:        "Agentic MCP tool-calling benchmark for local models",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "mcpbench.yaml", "config file path")
	root.AddCommand(newRunCmd())
	root.AddCommand(newCleanupCmd())
	root.AddCommand(newModelsCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newValidateCmd())
	return root
}

// loadConfig reads the config file and overlays the environment. The
// default file may be absent; an explicitly named one may not.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	load := config.LoadOrDefault
	if cmd.Flags().Changed("config") {
		load = config.Load
	}
	cfg, err := load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(cfg, os.Getenv); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	return cfg, nil
}
