package solver_test

import (
	"context"
	"fmt"
	"log"

	"github.com/exchequer/exchequer/pkg/equations"
	"github.com/exchequer/exchequer/pkg/model"
	"github.com/exchequer/exchequer/pkg/solver"
)

// Example demonstrates solving a two-quarter horizon for a one-equation
// model: a stable autoregression driven by an exogenous path.
func Example() {
	registry, err := equations.NewRegistry(equations.Group{
		ID: "demand",
		Equations: []equations.Equation{
			{
				Variable: "CONS",
				Form:     equations.FormBehavioural,
				Eval: func(v *model.QuarterView) float64 {
					return 0.5*v.Lag("CONS", 1) + v.V("G")
				},
			},
		},
	})
	if err != nil {
		log.Fatal(err)
	}

	st := model.NewModelState()
	hist := model.MustParsePeriod("2024Q4")
	end := model.MustParsePeriod("2025Q2")

	st.Declare("CONS", model.Endogenous).Set(hist, 100)
	g := st.Declare("G", model.Exogenous)
	for p := hist; !p.After(end); p = p.Next() {
		g.Set(p, 40)
	}

	o := solver.NewOrchestrator(registry, solver.DefaultOptions(), solver.PolicyAbort)
	result, err := o.SolveRange(context.Background(), st, hist.Next(), end)
	if err != nil {
		log.Fatal(err)
	}

	for _, r := range result.Reports {
		v, _ := st.Value("CONS", r.Period)
		fmt.Printf("%s: CONS=%.1f converged=%t\n", r.Period, v, r.Converged)
	}
	// Output:
	// 2025Q1: CONS=90.0 converged=true
	// 2025Q2: CONS=85.0 converged=true
}
