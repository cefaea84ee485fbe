package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/signalnine/mcpbench/internal/lmstudio"
)

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the LLMs available in LM Studio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			models, err := lmstudio.NewClient(cfg.Inference.Host).ListModels(cmd.Context())
			if err != nil {
				return err
			}
			if len(models) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No models found.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tTOOL-TRAINED\tSTATE")
			for _, m := range models {
				trained := ""
				if m.ToolUse() {
					trained = "✅"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", m.ID, trained, m.State)
			}
			return tw.Flush()
		},
	}
}
