package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/exchequer/exchequer/pkg/equations"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and the equation system",
		Long: `Validate loads the configuration, checks it against the schema, and
builds the equation registry to verify that every endogenous variable
has exactly one writing equation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}

			registry, err := equations.NewRegistry(equations.Builtin()...)
			if err != nil {
				return fmt.Errorf("equations: %w", err)
			}

			fmt.Printf("config OK: horizon %s to %s, damping %.2f, tolerance %.1e, max iterations %d, policy %s\n",
				cfg.Horizon.Start, cfg.Horizon.End,
				cfg.Solver.Damping, cfg.Solver.Tolerance,
				cfg.Solver.MaxIterations, cfg.Solver.FailurePolicy)
			fmt.Printf("equations OK: %d groups, %d endogenous variables\n",
				len(registry.Groups()), registry.Len())
			for _, g := range registry.Groups() {
				vars := make([]string, len(g.Equations))
				for i, eq := range g.Equations {
					vars[i] = eq.Variable
				}
				fmt.Printf("  %-14s %v\n", g.ID, vars)
			}
			return nil
		},
	}
	return cmd
}
