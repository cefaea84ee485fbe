package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/signalnine/mcpbench/internal/report"
)

var (
	flagFormat string
	flagOutput string
	flagAll    bool
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [run-dir]",
		Short: "Generate the model x level matrix from stored results",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			dirs, err := reportDirs(cfg.Results.Dir, args)
			if err != nil {
				return err
			}
			var w io.Writer = cmd.OutOrStdout()
			if flagOutput != "" {
				f, err := os.Create(flagOutput)
				if err != nil {
					return fmt.Errorf("creating report: %w", err)
				}
				defer f.Close()
				w = f
			}
			if err := report.Generate(flagFormat, w, dirs...); err != nil {
				return err
			}
			if flagOutput != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", flagOutput)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&flagFormat, "format", "table", "output format (table, markdown, json)")
	cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "write the report to a file, e.g. aggregated_report.md")
	cmd.Flags().BoolVar(&flagAll, "all", false, "aggregate every run, keeping the newest result per model and level")
	return cmd
}

// reportDirs picks the result directories to aggregate: an explicit run,
// every run, or the latest one.
func reportDirs(baseDir string, args []string) ([]string, error) {
	if len(args) > 0 {
		return []string{args[0]}, nil
	}
	if flagAll {
		runs, err := filepath.Glob(filepath.Join(baseDir, "runs", "*"))
		if err != nil {
			return nil, fmt.Errorf("listing runs: %w", err)
		}
		return append([]string{baseDir}, runs...), nil
	}
	resolved, err := filepath.EvalSymlinks(filepath.Join(baseDir, "latest"))
	if err != nil {
		return nil, fmt.Errorf("resolving run dir: %w", err)
	}
	return []string{resolved}, nil
}
