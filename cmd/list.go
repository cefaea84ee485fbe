package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signalnine/mcpbench/internal/task"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List benchmark levels and their tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, l := range task.Levels {
				tasks, err := task.LoadLevel(cfg.Run.TasksDir, l.Number)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Level %d: %s (%d tasks)\n", l.Number, l.Name, len(tasks))
				for _, t := range tasks {
					fmt.Fprintf(out, "  - %s %s [%s]\n", t.ID, t.Name, t.Rubric.Kind())
				}
			}
			return nil
		},
	}
}
