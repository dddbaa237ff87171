package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/exchequer/exchequer/pkg/dataset"
)

func newExportCommand() *cobra.Command {
	var (
		outPath string
		seed    int64
		full    bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Solve the model and export the results as CSV",
		Long: `Export solves the model over the configured horizon and writes the
solved series to CSV, one row per quarter and one column per variable.
By default only the solved (endogenous and cost-block) variables are
exported; --full includes the exogenous inputs as well.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
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

			variables := sess.solvedVariables()
			if full {
				variables = sess.state.Names()
			}

			out := os.Stdout
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}

			if err := dataset.ExportCSV(out, sess.state, variables, cfg.Horizon.Start, cfg.Horizon.End); err != nil {
				return err
			}
			if outPath != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d variables covering %s..%s to %s\n",
					len(variables), cfg.Horizon.Start, cfg.Horizon.End, outPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default: stdout)")
	cmd.Flags().Int64Var(&seed, "seed", 42, "random seed for the synthetic dataset")
	cmd.Flags().BoolVar(&full, "full", false, "include exogenous inputs in the export")

	return cmd
}
