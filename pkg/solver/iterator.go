package solver

import (
	"github.com/exchequer/exchequer/pkg/equations"
	"github.com/exchequer/exchequer/pkg/model"
)

// Default solver parameters.
const (
	DefaultDamping       = 0.7
	DefaultTolerance     = 1e-8
	DefaultMaxIterations = 200
	DefaultEpsilon       = 1e-10
)

// Options configure the iterative solve.
type Options struct {
	// Damping is the global update fraction in (0, 1]:
	// new = old + Damping*(raw - old). Near 1 for most of the model,
	// lowered for oscillation-prone blocks via GroupDamping.
	Damping float64

	// GroupDamping overrides Damping per equation group id.
	GroupDamping map[string]float64

	// Tolerance is the max-relative-change threshold below which a
	// quarter is converged.
	Tolerance float64

	// MaxIterations caps the number of full passes per quarter.
	MaxIterations int

	// Epsilon floors the denominator of the relative-change measure:
	// |new-old| / max(|old|, Epsilon).
	Epsilon float64
}

// DefaultOptions returns the calibrated default solver options.
func DefaultOptions() Options {
	return Options{
		Damping:       DefaultDamping,
		Tolerance:     DefaultTolerance,
		MaxIterations: DefaultMaxIterations,
		Epsilon:       DefaultEpsilon,
	}
}

func (o Options) withDefaults() Options {
	if o.Damping <= 0 || o.Damping > 1 {
		o.Damping = DefaultDamping
	}
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Epsilon <= 0 {
		o.Epsilon = DefaultEpsilon
	}
	return o
}

func (o Options) dampingFor(groupID string) float64 {
	if d, ok := o.GroupDamping[groupID]; ok && d > 0 && d <= 1 {
		return d
	}
	return o.Damping
}

// IterationResult describes one quarter's iterative solve.
type IterationResult struct {
	// Iterations is the number of full passes executed.
	Iterations int

	// Converged reports whether the tolerance was met within the cap.
	Converged bool

	// MaxChangeTrace holds the max relative change after each pass,
	// in pass order.
	MaxChangeTrace []float64

	// FinalMaxChange is the max relative change of the last pass.
	FinalMaxChange float64

	// WorstVariable is the variable with the largest relative change in
	// the last pass; the offending variable when non-converged.
	WorstVariable string

	// Evaluations is the total number of equation evaluations.
	Evaluations int
}

// Iterator runs damped Gauss-Seidel passes over an equation registry.
type Iterator struct {
	registry *equations.Registry
	opts     Options
}

// NewIterator creates an iterator over the registry. Zero or out-of-range
// option fields fall back to the calibrated defaults.
func NewIterator(registry *equations.Registry, opts Options) *Iterator {
	return &Iterator{registry: registry, opts: opts.withDefaults()}
}

// SolveQuarter iterates the equation system at p until the max relative
// change over all endogenous variables falls below tolerance, or the
// iteration cap is reached.
//
// Every equation update is in place: st is mutated as the pass proceeds,
// so equations later in the fixed order observe values already updated in
// the same pass. On a fatal error the state holds the partial iterate; the
// orchestrator discards the quarter by not committing it.
//
// Reaching the cap returns the last iterate in st together with a
// non_convergence error naming the offending variable; the result is still
// populated. A non-finite equation output returns a numeric_invalid error
// carrying variable and pass index.
func (it *Iterator) SolveQuarter(st *model.ModelState, p model.Period) (*IterationResult, error) {
	res := &IterationResult{
		MaxChangeTrace: make([]float64, 0, it.opts.MaxIterations),
	}
	view := st.View(p)

	for iter := 1; iter <= it.opts.MaxIterations; iter++ {
		maxChange := 0.0
		worst := ""

		for _, group := range it.registry.Groups() {
			damping := it.opts.dampingFor(group.ID)

			for _, eq := range group.Equations {
				old, err := st.Value(eq.Variable, p)
				if err != nil {
					return res, asSolveError(err).WithIteration(iter)
				}

				view.Reset()
				raw := eq.Eval(view)
				res.Evaluations++
				if err := view.Err(); err != nil {
					return res, asSolveError(err).WithIteration(iter)
				}
				if !isFinite(raw) {
					return res, model.NewNumericInvalidError("equation produced non-finite value").
						WithVariable(eq.Variable).WithPeriod(p).WithIteration(iter).
						WithDetail("raw", raw)
				}

				// Adjustments join the fixed point: added before damping,
				// on every pass.
				adjusted := raw + st.Adjustment(eq.Variable, p)
				damped := old + damping*(adjusted-old)
				if err := st.Set(eq.Variable, p, damped); err != nil {
					return res, err
				}

				rel := relChange(damped, old, it.opts.Epsilon)
				if rel > maxChange {
					maxChange = rel
					worst = eq.Variable
				}
			}
		}

		res.Iterations = iter
		res.MaxChangeTrace = append(res.MaxChangeTrace, maxChange)
		res.FinalMaxChange = maxChange
		res.WorstVariable = worst

		if maxChange < it.opts.Tolerance {
			res.Converged = true
			return res, nil
		}
	}

	return res, model.NewNonConvergenceError("iteration cap reached before tolerance").
		WithVariable(res.WorstVariable).WithPeriod(p).WithIteration(res.Iterations).
		WithDetail("max_change", res.FinalMaxChange).
		WithDetail("tolerance", it.opts.Tolerance)
}

func relChange(newVal, oldVal, epsilon float64) float64 {
	denom := oldVal
	if denom < 0 {
		denom = -denom
	}
	if denom < epsilon {
		denom = epsilon
	}
	diff := newVal - oldVal
	if diff < 0 {
		diff = -diff
	}
	return diff / denom
}

func asSolveError(err error) *model.SolveError {
	if e, ok := err.(*model.SolveError); ok {
		return e
	}
	return model.NewMissingInputError("state read failed").WithErr(err)
}
