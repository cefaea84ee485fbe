package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signalnine/mcpbench/internal/environment"
)

func newCleanupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete every project, asset and directory in the backend organization",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := backendConfig(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if flagDryRun {
				fmt.Fprintf(out, "Would delete all projects, assets and directories reachable from %s\n", cfg.Backend.URL)
				return nil
			}
			if !flagYes && !confirm(cmd.InOrStdin(), out, yellow("WARNING: this deletes ALL projects, assets and directories in the token's organization.")) {
				fmt.Fprintln(out, "Aborted.")
				return nil
			}
			session := newSession(cfg, nil)
			if err := session.Initialize(cmd.Context()); err != nil {
				return fmt.Errorf("initializing backend session: %w", err)
			}
			environment.Reset(cmd.Context(), session, nil)
			fmt.Fprintln(out, green("Cleanup complete."))
			return nil
		},
	}
	addTokenFlags(cmd)
	cmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "skip the confirmation prompt")
	cmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "show what would be deleted and exit")
	return cmd
}
