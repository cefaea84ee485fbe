package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/signalnine/mcpbench/internal/config"
	"github.com/signalnine/mcpbench/internal/docker"
	"github.com/signalnine/mcpbench/internal/environment"
	"github.com/signalnine/mcpbench/internal/gitops"
	"github.com/signalnine/mcpbench/internal/inference"
	"github.com/signalnine/mcpbench/internal/lmstudio"
	"github.com/signalnine/mcpbench/internal/mcp"
	"github.com/signalnine/mcpbench/internal/metrics"
	"github.com/signalnine/mcpbench/internal/report"
	"github.com/signalnine/mcpbench/internal/result"
	"github.com/signalnine/mcpbench/internal/runner"
	"github.com/signalnine/mcpbench/internal/task"
	"github.com/signalnine/mcpbench/internal/tools"
)

var errTokenRequired = errors.New("Workunit bearer token required: pass --token or set WORKUNIT_TOKEN " +
	"(generate one at https://workunit.app/settings/api)")

var (
	flagModel        string
	flagModelsFile   string
	flagLevel        int
	flagForce        bool
	flagNoGit        bool
	flagLocal        bool
	flagYes          bool
	flagDryRun       bool
	flagToken        string
	flagRefreshToken string
	flagMetricsAddr  string
	flagNewRun       bool
	flagRepairArgs   bool
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the benchmark levels against local models",
		RunE:  runBenchmark,
	}
	cmd.Flags().StringVarP(&flagModel, "model", "m", "", "run a single model id")
	cmd.Flags().StringVar(&flagModelsFile, "models", "", "models file (default from config)")
	cmd.Flags().IntVar(&flagLevel, "level", -1, "run a single level (0, 1 or 2)")
	cmd.Flags().BoolVar(&flagForce, "force", false, "re-run levels that already have results")
	cmd.Flags().BoolVar(&flagNoGit, "no-git", false, "do not commit result files")
	cmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "skip the confirmation prompt")
	cmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "show what would run and exit")
	addTokenFlags(cmd)
	cmd.Flags().StringVar(&flagMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().BoolVar(&flagNewRun, "new-run", false, "start a new run directory instead of extending the latest")
	cmd.Flags().BoolVar(&flagRepairArgs, "repair-args", false, "repair malformed tool-call arguments before scoring")
	return cmd
}

func addTokenFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagToken, "token", "", "Workunit bearer token (default $WORKUNIT_TOKEN)")
	cmd.Flags().StringVar(&flagRefreshToken, "refresh-token", "", "OAuth refresh token (default $WORKUNIT_REFRESH_TOKEN)")
	cmd.Flags().BoolVar(&flagLocal, "local", false, "use the local development backend")
}

// backendConfig loads the config and applies the flags shared by commands
// that talk to the backend.
func backendConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if flagLocal {
		config.UseLocal(cfg)
	}
	if flagToken != "" {
		cfg.Backend.Token = flagToken
	}
	if flagRefreshToken != "" {
		cfg.Backend.RefreshToken = flagRefreshToken
	}
	if cfg.Backend.Token == "" {
		return nil, errTokenRequired
	}
	return cfg, nil
}

func newSession(cfg *config.Config, m *metrics.Metrics) *mcp.Client {
	return mcp.New(mcp.Config{
		URL:          cfg.Backend.URL,
		TokenURL:     cfg.Backend.TokenURL,
		ClientID:     cfg.Backend.ClientID,
		AccessToken:  cfg.Backend.Token,
		RefreshToken: cfg.Backend.RefreshToken,
		CallTimeout:  cfg.Backend.CallTimeout(),
		OnRetry:      m.Retry,
	})
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	cfg, err := backendConfig(cmd)
	if err != nil {
		return err
	}
	if flagRepairArgs {
		cfg.Run.RepairArguments = true
	}
	models, err := selectModels(cfg)
	if err != nil {
		return err
	}
	levels, err := selectLevels(cfg)
	if err != nil {
		return err
	}
	counts, err := taskCounts(cfg.Run.TasksDir, levels)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	p := buildPlan(models, levels, flagForce, func(model string, level int) bool {
		return result.Exists(cfg.Results.Dir, model, level)
	})
	printPlan(out, p, counts, cfg.Run.TaskTimeoutS)
	if flagDryRun {
		return nil
	}
	if len(p.Run) == 0 {
		fmt.Fprintln(out, "Nothing to do.")
		return nil
	}
	if !flagYes && !confirm(cmd.InOrStdin(), out, yellow("WARNING: every model run deletes ALL projects, assets and directories in the token's organization.")) {
		fmt.Fprintln(out, "Aborted.")
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	m := metrics.MustNewMetrics(reg)
	if flagMetricsAddr != "" {
		cfg.Metrics.Addr = flagMetricsAddr
	}
	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, reg); err != nil {
				log.Printf("warning: %v", err)
			}
		}()
	}

	catalog, err := tools.Catalog()
	if err != nil {
		return fmt.Errorf("building tool catalog: %w", err)
	}

	lm := lmstudio.NewClient(cfg.Inference.Host)
	lm.ContextLength = cfg.Inference.ContextLength
	if err := lm.WaitReady(ctx, 10*time.Second); err != nil {
		return fmt.Errorf("LM Studio not reachable at %s: %w", cfg.Inference.Host, err)
	}

	var runDir string
	if flagNewRun {
		runDir, err = result.CreateRunDir(cfg.Results.Dir, time.Now())
	} else {
		runDir, err = result.LatestRunDir(cfg.Results.Dir, time.Now())
	}
	if err != nil {
		return err
	}

	printStart(out, cfg, models, levels)
	fmt.Fprintf(out, "Run directory: %s\n", runDir)
	if n := lm.UnloadAll(ctx); n > 0 {
		fmt.Fprintf(out, "Unloaded %d model instance(s)\n", n)
	}

	r := &runner.Runner{
		Orchestrator: runner.Orchestrator{
			Model:           inference.NewClient(lmstudio.InferenceURL(cfg.Inference.Host), cfg.Inference.APIKey),
			Catalog:         catalog,
			Timeout:         cfg.Run.TaskTimeout(),
			MaxTokens:       cfg.Inference.MaxTokens,
			RepairArguments: cfg.Run.RepairArguments,
			Vars:            cfg.Run.Vars,
			Metrics:         m,
		},
		NewSession: func() runner.Session { return newSession(cfg, m) },
		Loader:     lm,
		Reset: func(ctx context.Context, inv runner.ToolInvoker) {
			environment.Reset(ctx, inv, nil)
		},
		Tasks: func(level int) ([]task.Task, error) {
			return task.LoadLevel(cfg.Run.TasksDir, level)
		},
		Exists: func(model string, level int) bool {
			return result.Exists(cfg.Results.Dir, model, level)
		},
		Save: func(rec *result.Record) (string, error) {
			return result.Save(runDir, rec, time.Now())
		},
		OnTask: func(_ string, _ int, _ task.Task, res result.TaskResult) {
			fmt.Fprint(out, formatTask(res))
		},
		OnLevel: func(_ string, lr result.LevelResult, path string) {
			fmt.Fprint(out, formatLevel(lr))
			fmt.Fprintf(out, "    %s\n", gray("saved "+path))
		},
	}
	if cfg.Results.Git && !flagNoGit {
		r.Commit = func(model string, level int, path string) error {
			_, err := gitops.CommitResults(cfg.Results.RepoDir, path, gitops.CommitMessage(model, level))
			return err
		}
	}
	if c := cfg.Backend.Container; c != nil {
		b := &docker.Backend{
			Image:        c.Image,
			Name:         c.Name,
			Command:      c.Command,
			Env:          c.Env,
			Addr:         c.Addr,
			ReadyTimeout: time.Duration(c.ReadyTimeoutS) * time.Second,
		}
		r.Prepare = b.Restart
		defer func() {
			if err := b.Stop(context.WithoutCancel(ctx)); err != nil {
				log.Printf("warning: stopping backend container: %v", err)
			}
		}()
	}

	failed := runModels(ctx, out, r, p)

	fmt.Fprintf(out, "\n%s\n", bold("--- Results ---"))
	if err := report.Generate("table", out, runDir); err != nil {
		log.Printf("warning: %v", err)
	}
	if len(failed) > 0 {
		fmt.Fprintf(out, "\n%s\n", red(fmt.Sprintf("%d model(s) failed:", len(failed))))
		for _, f := range failed {
			fmt.Fprintf(out, "  • %s\n", f)
		}
	}
	return ctx.Err()
}

// runModels runs every model with pending levels and returns a line per
// model or level that failed.
func runModels(ctx context.Context, out io.Writer, r *runner.Runner, p plan) []string {
	var failed []string
	for _, mp := range p.byModel() {
		if ctx.Err() != nil {
			break
		}
		tag := ""
		if !mp.Model.ToolTrained {
			tag = " " + gray("(no tool training)")
		}
		fmt.Fprintf(out, "\n%s%s\n", bold(cyan("━━ "+mp.Model.ID)), tag)
		mr, err := r.RunModel(ctx, mp.Model.ID, mp.Model.ToolTrained, mp.Levels, flagForce)
		if err != nil {
			fmt.Fprintf(out, "  %s %v\n", red("✗"), err)
			failed = append(failed, fmt.Sprintf("%s: %v", mp.Model.ID, err))
			continue
		}
		for _, level := range mp.Levels {
			if ferr, ok := mr.Failed[level]; ok {
				failed = append(failed, fmt.Sprintf("%s L%d: %v", mp.Model.ID, level, ferr))
			}
		}
	}
	return failed
}

func selectModels(cfg *config.Config) ([]config.Model, error) {
	if flagModel != "" {
		return []config.Model{config.LookupModel(cfg.Run.ModelsFile, flagModel)}, nil
	}
	path := cfg.Run.ModelsFile
	if flagModelsFile != "" {
		path = flagModelsFile
	}
	models, err := config.LoadModels(path)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("no models listed in %s", path)
	}
	return models, nil
}

func selectLevels(cfg *config.Config) ([]int, error) {
	if flagLevel < 0 {
		return cfg.Run.Levels, nil
	}
	if _, err := task.LookupLevel(flagLevel); err != nil {
		return nil, err
	}
	return []int{flagLevel}, nil
}

func taskCounts(dir string, levels []int) (map[int]int, error) {
	counts := make(map[int]int, len(levels))
	for _, l := range levels {
		tasks, err := task.LoadLevel(dir, l)
		if err != nil {
			return nil, err
		}
		counts[l] = len(tasks)
	}
	return counts, nil
}

func printStart(out io.Writer, cfg *config.Config, models []config.Model, levels []int) {
	fmt.Fprintf(out, "%s\n", bold("MCP Tool-Calling Benchmark"))
	fmt.Fprintf(out, "  Models:    %d\n", len(models))
	fmt.Fprintf(out, "  Levels:    %v\n", levels)
	fmt.Fprintf(out, "  Timeout:   %ds per task\n", cfg.Run.TaskTimeoutS)
	fmt.Fprintf(out, "  Force:     %v\n", flagForce)
	fmt.Fprintf(out, "  LM Studio: %s\n", lmstudio.InferenceURL(cfg.Inference.Host))
	fmt.Fprintf(out, "  MCP:       %s\n", cfg.Backend.URL)
}
