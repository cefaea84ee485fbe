package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"

	"github.com/signalnine/mcpbench/internal/result"
	"github.com/signalnine/mcpbench/internal/runner"
	"github.com/signalnine/mcpbench/internal/task"
)

var flagParallel int

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [run-dir]",
		Short: "Re-score stored results",
		Long:  "Re-grade the tool-call traces of every result file in a run directory against the current task files, updating verdicts, scores and summaries in place.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			runDir := filepath.Join(cfg.Results.Dir, "latest")
			if len(args) > 0 {
				runDir = args[0]
			}
			resolved, err := filepath.EvalSymlinks(runDir)
			if err != nil {
				return fmt.Errorf("resolving run dir: %w", err)
			}
			files, err := result.Files(resolved)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no result files found in %s", resolved)
			}

			tasks := map[int][]task.Task{}
			for _, l := range task.Levels {
				ts, err := task.LoadLevel(cfg.Run.TasksDir, l.Number)
				if err != nil {
					return err
				}
				tasks[l.Number] = ts
			}

			out := cmd.OutOrStdout()
			var mu sync.Mutex
			jobs := make([]runner.Job, len(files))
			for i, path := range files {
				jobs[i] = func(ctx context.Context) error {
					rec, err := result.Read(path)
					if err != nil {
						return err
					}
					changed := runner.Rescore(rec, tasks[rec.Level])
					if changed > 0 && !flagDryRun {
						if err := result.Write(path, rec); err != nil {
							return err
						}
					}
					mu.Lock()
					defer mu.Unlock()
					fmt.Fprintf(out, "%s: %d result(s) changed, %d/%d passed\n",
						filepath.Base(path), changed, rec.Summary.Passed, rec.Summary.Total)
					return nil
				}
			}
			errs := runner.RunPool(cmd.Context(), flagParallel, jobs)
			for _, err := range errs {
				if err != nil {
					fmt.Fprintf(out, "  ERROR: %v\n", err)
				}
			}
			return runner.FirstError(errs)
		},
	}
	cmd.Flags().IntVar(&flagParallel, "parallel", 4, "files to re-score concurrently")
	cmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "report changes without rewriting files")
	return cmd
}
