package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/exchequer/exchequer/pkg/model"
	"github.com/exchequer/exchequer/pkg/solver"
)

func newSolveCommand() *cobra.Command {
	var (
		startStr  string
		endStr    string
		seed      int64
		storePath string
	)

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Solve the model over the forecast horizon",
		Long: `Solve runs the full forecast: seed each quarter from the prior one,
pre-solve the cost block, iterate the equation groups to convergence,
and commit. Results are printed as a per-quarter convergence table and,
when a store is configured, persisted to SQLite.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if startStr != "" {
				if cfg.Horizon.Start, err = model.ParsePeriod(startStr); err != nil {
					return err
				}
			}
			if endStr != "" {
				if cfg.Horizon.End, err = model.ParsePeriod(endStr); err != nil {
					return err
				}
			}
			if storePath != "" {
				cfg.Store.Path = storePath
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			sess, err := newSolveSession(cfg, appVersion, seed)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			defer sess.close(ctx)

			result, runErr := sess.solve(ctx)

			if cfg.Store.Path != "" {
				if err := persistRun(ctx, cfg, sess, result, runErr); err != nil {
					sess.logger.WithError(err).Error("failed to persist run")
				} else {
					sess.logger.WithField("run_id", result.RunID).Info("run persisted")
				}
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(result); err != nil {
					return err
				}
			} else {
				printRunResult(result)
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&startStr, "start", "", "first forecast quarter (e.g. 2025Q1, overrides config)")
	cmd.Flags().StringVar(&endStr, "end", "", "last forecast quarter (overrides config)")
	cmd.Flags().Int64Var(&seed, "seed", 42, "random seed for the synthetic dataset")
	cmd.Flags().StringVar(&storePath, "store", "", "SQLite database path for run persistence (overrides config)")

	return cmd
}

func printRunResult(result *solver.RunResult) {
	fmt.Printf("Run %s: %s to %s\n\n", result.RunID, result.Start, result.End)
	fmt.Printf("%-8s  %10s  %-10s  %14s  %-10s\n",
		"PERIOD", "ITERATIONS", "CONVERGED", "MAX CHANGE", "WORST VAR")
	for _, r := range result.Reports {
		fmt.Printf("%-8s  %10d  %-10t  %14.3e  %-10s\n",
			r.Period, r.Iterations, r.Converged, r.FinalMaxChange, r.WorstVariable)
		if r.Failure != "" {
			fmt.Printf("          %s\n", r.Failure)
		}
	}
	fmt.Printf("\n%d solved, %d non-converged, aborted=%t\n",
		result.Solved, result.NonConverged, result.Aborted)
}
