// Package solver implements the fixed-point solving engine for the
// Exchequer quarterly macroeconomic model.
//
// # Overview
//
// The model is a large simultaneous-equation system solved one quarter at a
// time over a forecast horizon. Each quarter goes through four stages:
//
//  1. Seed - current-quarter endogenous variables start from the prior
//     quarter's committed values (Orchestrator)
//  2. Presolve - the small exactly-linear cost block is solved in closed
//     form (CostBlock)
//  3. Iterate - Gauss-Seidel passes over all equation groups, with damping,
//     until the max relative change falls below tolerance (Iterator)
//  4. Commit - the solved quarter becomes immutable input to later
//     quarters (Orchestrator)
//
// # Gauss-Seidel semantics
//
// Passes execute equation groups in a fixed total order and update each
// variable in place, so later equations in the same pass observe values
// already updated earlier in that pass. This is load-bearing: snapshotting
// old values and merging after the pass would turn the method into Jacobi
// iteration, with different convergence behavior and different numeric
// output. For the same reason equations are never evaluated concurrently;
// the engine is single-threaded and fully sequential, and identical inputs
// and configuration always produce identical results.
//
// Additive adjustments are applied to the raw equation output on every
// pass, so each offset participates in the fixed point rather than being
// bolted on after convergence.
//
// # Error classification
//
// Failures are classified model.SolveError values:
//
//   - missing_input: a required variable/period is absent; fatal
//   - singular_matrix: the cost-block matrix is not invertible; fatal
//   - non_convergence: the iteration cap was reached; recoverable, the
//     run's failure policy decides whether later quarters are attempted
//   - numeric_invalid: an equation produced NaN or Inf; fatal
//
// Quarters committed before a failure are never rolled back.
package solver
