package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/exchequer/exchequer/pkg/model"
	"github.com/exchequer/exchequer/pkg/stores"
)

func newSummaryCommand() *cobra.Command {
	var (
		runID     string
		periodStr string
		storePath string
		seed      int64
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print key model aggregates for a quarter",
		Long: `Summary prints the headline aggregates (GDP, consumption, trade, prices,
unemployment) for one quarter. With --run it reads a persisted run from
the store; otherwise it solves the model first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if storePath != "" {
				cfg.Store.Path = storePath
			}

			period := cfg.Horizon.End
			if periodStr != "" {
				if period, err = model.ParsePeriod(periodStr); err != nil {
					return err
				}
			}

			if runID != "" {
				return summarizeStoredRun(cmd, cfg.Store.Path, runID, period)
			}

			sess, err := newSolveSession(cfg, appVersion, seed)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			defer sess.close(ctx)

			if _, err := sess.solve(ctx); err != nil {
				return err
			}

			fmt.Printf("Key aggregates at %s\n\n", period)
			for _, kv := range keyVariables {
				v, err := sess.state.Value(kv.Name, period)
				if err != nil {
					return err
				}
				fmt.Printf("  %-22s %-8s %12.2f\n", kv.Label, kv.Name, v)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "read a persisted run instead of solving")
	cmd.Flags().StringVar(&periodStr, "period", "", "quarter to summarize (default: horizon end)")
	cmd.Flags().StringVar(&storePath, "store", "", "SQLite database path (overrides config)")
	cmd.Flags().Int64Var(&seed, "seed", 42, "random seed for the synthetic dataset")

	return cmd
}

func summarizeStoredRun(cmd *cobra.Command, path, runID string, period model.Period) error {
	if path == "" {
		return fmt.Errorf("no store configured: set store.path or --store")
	}
	store, err := stores.NewSQLiteStore(stores.Config{Path: path})
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if err := store.Init(ctx); err != nil {
		return err
	}
	defer store.Close()

	run, err := store.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	fmt.Printf("Run %s (%s): %s to %s\n", run.ID, run.Status, run.Start, run.End)
	fmt.Printf("Key aggregates at %s\n\n", period)

	want := period.String()
	for _, kv := range keyVariables {
		values, err := store.GetSolvedValues(ctx, runID, kv.Name)
		if err != nil {
			return err
		}
		found := false
		for _, sv := range values {
			if sv.Period == want {
				fmt.Printf("  %-22s %-8s %12.2f\n", kv.Label, kv.Name, sv.Value)
				found = true
				break
			}
		}
		if !found {
			fmt.Printf("  %-22s %-8s %12s\n", kv.Label, kv.Name, "-")
		}
	}
	return nil
}
