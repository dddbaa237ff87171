package solver

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/exchequer/exchequer/pkg/equations"
	"github.com/exchequer/exchequer/pkg/model"
	"github.com/exchequer/exchequer/pkg/telemetry"
)

// FailurePolicy decides how a run proceeds when a quarter fails to
// converge within the iteration cap.
type FailurePolicy string

const (
	// PolicyContinue keeps solving subsequent quarters using the
	// best-effort (non-converged) result, flagging the quarter.
	PolicyContinue FailurePolicy = "continue"

	// PolicyAbort stops the run at the first non-converged quarter.
	PolicyAbort FailurePolicy = "abort"
)

// Presolver solves a closed-form subsystem at p before iteration starts.
type Presolver interface {
	Presolve(st *model.ModelState, p model.Period) error
}

// ConvergenceReport records one quarter's solve outcome.
type ConvergenceReport struct {
	// Period is the quarter this report covers.
	Period model.Period `json:"period"`

	// Iterations is the number of full passes executed.
	Iterations int `json:"iterations"`

	// Converged reports whether the tolerance was met within the cap.
	Converged bool `json:"converged"`

	// MaxChangeTrace holds the max relative change after each pass.
	MaxChangeTrace []float64 `json:"max_change_trace,omitempty"`

	// FinalMaxChange is the max relative change of the last pass.
	FinalMaxChange float64 `json:"final_max_change"`

	// WorstVariable is the offending variable when non-converged, or the
	// slowest-moving variable of the final pass otherwise.
	WorstVariable string `json:"worst_variable,omitempty"`

	// Duration is the wall time spent solving the quarter.
	Duration time.Duration `json:"duration"`

	// Failure is the error text for a failed or flagged quarter.
	Failure string `json:"failure,omitempty"`
}

// RunResult summarizes a SolveRange call.
type RunResult struct {
	// RunID uniquely identifies this run.
	RunID string `json:"run_id"`

	// Start and End bound the requested horizon.
	Start model.Period `json:"start"`
	End   model.Period `json:"end"`

	// Reports holds one entry per attempted quarter, in order.
	Reports []ConvergenceReport `json:"reports"`

	// Solved counts converged quarters.
	Solved int `json:"solved"`

	// NonConverged counts quarters flagged under PolicyContinue.
	NonConverged int `json:"non_converged"`

	// Aborted reports whether the run stopped before End.
	Aborted bool `json:"aborted"`
}

// Orchestrator drives the quarter-by-quarter solve: seed, presolve,
// iterate, commit, strictly in chronological order. Quarters are never
// solved out of order or in parallel; each one's seed and lagged reads
// depend on the prior quarter's committed state.
type Orchestrator struct {
	registry  *equations.Registry
	iterator  *Iterator
	presolver Presolver
	policy    FailurePolicy

	logger  *telemetry.Logger
	metrics *telemetry.Metrics
	tracer  *telemetry.Tracer
}

// NewOrchestrator creates an orchestrator over the registry with the given
// iteration options and failure policy.
func NewOrchestrator(registry *equations.Registry, opts Options, policy FailurePolicy) *Orchestrator {
	if policy != PolicyContinue {
		policy = PolicyAbort
	}
	return &Orchestrator{
		registry: registry,
		iterator: NewIterator(registry, opts),
		policy:   policy,
	}
}

// WithPresolver attaches a closed-form presolver, run once per quarter
// before iteration.
func (o *Orchestrator) WithPresolver(p Presolver) *Orchestrator {
	o.presolver = p
	return o
}

// WithLogger attaches a logger.
func (o *Orchestrator) WithLogger(l *telemetry.Logger) *Orchestrator {
	o.logger = l.NewComponentLogger("orchestrator")
	return o
}

// WithMetrics attaches a metrics collector.
func (o *Orchestrator) WithMetrics(m *telemetry.Metrics) *Orchestrator {
	o.metrics = m
	return o
}

// WithTracer attaches a tracer; spans are emitted per run and per quarter.
func (o *Orchestrator) WithTracer(t *telemetry.Tracer) *Orchestrator {
	o.tracer = t
	return o
}

// SolveRange solves every quarter from start to end inclusive. The context
// carries logging and tracing only; the solve itself is bounded by the
// iteration cap, not by cancellation, so a caller wanting a deadline wraps
// the whole call.
//
// Exogenous coverage for the full horizon is validated up front; a gap is
// a missing_input error naming variable and period. Each solved quarter is
// committed immediately and never revisited; on failure, quarters already
// committed remain unchanged.
//
// The returned RunResult is always populated with the reports of every
// attempted quarter, including the failing one.
func (o *Orchestrator) SolveRange(ctx context.Context, st *model.ModelState, start, end model.Period) (*RunResult, error) {
	result := &RunResult{
		RunID: uuid.New().String(),
		Start: start,
		End:   end,
	}
	if end.Before(start) {
		return result, model.NewMissingInputError("empty horizon: end precedes start").
			WithPeriod(end)
	}

	log := o.log().WithField("run_id", result.RunID)
	log.Infof("solving %d quarters from %s to %s", end.Sub(start)+1, start, end)
	if o.metrics != nil {
		o.metrics.RecordRunStarted()
	}
	runStart := time.Now()

	ctx, endRun := o.startRunSpan(ctx, result.RunID)

	st.OpenHorizon(start)

	if err := o.validateExogenous(st, start, end); err != nil {
		endRun(err)
		o.finishRun(log, result, runStart, "failed")
		return result, err
	}

	for p := start; !p.After(end); p = p.Next() {
		report, err := o.solveQuarter(ctx, st, p)
		result.Reports = append(result.Reports, report)

		switch {
		case err == nil:
			result.Solved++
			st.CommitThrough(p)

		case model.IsNonConvergence(err):
			// Best-effort iterate is already in place; commit it so later
			// quarters still have a seed, and flag the quarter.
			st.CommitThrough(p)
			result.NonConverged++
			log.WithField("period", p.String()).
				Warnf("quarter did not converge after %d iterations (max_change=%.3e in %s)",
					report.Iterations, report.FinalMaxChange, report.WorstVariable)
			if o.policy == PolicyAbort {
				result.Aborted = true
				endRun(err)
				o.finishRun(log, result, runStart, "aborted")
				return result, err
			}

		default:
			// Fatal kinds always end the run; the failed quarter is not
			// committed and prior quarters are not rolled back.
			result.Aborted = true
			log.WithError(err).WithField("period", p.String()).Error("quarter failed")
			endRun(err)
			o.finishRun(log, result, runStart, "failed")
			return result, err
		}
	}

	endRun(nil)
	status := "succeeded"
	if result.NonConverged > 0 {
		status = "partial"
	}
	o.finishRun(log, result, runStart, status)
	return result, nil
}

// solveQuarter runs seed, presolve, and iteration for a single quarter and
// builds its report. The caller decides whether to commit.
func (o *Orchestrator) solveQuarter(ctx context.Context, st *model.ModelState, p model.Period) (ConvergenceReport, error) {
	report := ConvergenceReport{Period: p}
	quarterStart := time.Now()
	_, endSpan := o.startQuarterSpan(ctx, p)

	err := o.stepQuarter(st, p, &report)

	report.Duration = time.Since(quarterStart)
	if err != nil {
		report.Failure = err.Error()
	}
	endSpan(err)

	if o.metrics != nil {
		status := "converged"
		if err != nil {
			status = string(errKind(err))
		}
		o.metrics.RecordQuarterSolved(status, report.Iterations, report.Duration)
		if err != nil {
			o.metrics.RecordError(string(errKind(err)))
		}
	}
	o.log().Debugf("%s: %d iterations, converged=%t, max_change=%.3e",
		p, report.Iterations, report.Converged, report.FinalMaxChange)
	return report, err
}

func (o *Orchestrator) stepQuarter(st *model.ModelState, p model.Period, report *ConvergenceReport) error {
	if err := o.seedQuarter(st, p); err != nil {
		return err
	}
	if o.presolver != nil {
		if err := o.presolver.Presolve(st, p); err != nil {
			return err
		}
	}

	res, err := o.iterator.SolveQuarter(st, p)
	report.Iterations = res.Iterations
	report.Converged = res.Converged
	report.MaxChangeTrace = res.MaxChangeTrace
	report.FinalMaxChange = res.FinalMaxChange
	report.WorstVariable = res.WorstVariable
	if o.metrics != nil {
		o.metrics.RecordEquationEvals(res.Evaluations)
	}
	return err
}

// seedQuarter sets every endogenous variable's starting guess to the prior
// quarter's committed value. Seeding is unconditional: a leftover value
// from an earlier run is replaced, which keeps re-runs bit-identical. A
// missing prior value is a missing_input failure for the quarter.
func (o *Orchestrator) seedQuarter(st *model.ModelState, p model.Period) error {
	prev := p.Prev()
	for _, name := range o.registry.Variables() {
		seed, err := st.Value(name, prev)
		if err != nil {
			return model.NewMissingInputError("no committed value to seed from").
				WithVariable(name).WithPeriod(prev)
		}
		if err := st.Set(name, p, seed); err != nil {
			return err
		}
	}
	return nil
}

// validateExogenous checks the data-loader contract: every exogenous
// variable must hold a value for every forecast quarter.
func (o *Orchestrator) validateExogenous(st *model.ModelState, start, end model.Period) error {
	for _, name := range st.Names() {
		s, _ := st.Series(name)
		if s.Kind() != model.Exogenous {
			continue
		}
		for p := start; !p.After(end); p = p.Next() {
			if !s.Has(p) {
				return model.NewMissingInputError("exogenous variable missing forecast value").
					WithVariable(name).WithPeriod(p)
			}
		}
	}
	return nil
}

func (o *Orchestrator) finishRun(log *telemetry.Logger, result *RunResult, started time.Time, status string) {
	if o.metrics != nil {
		o.metrics.RecordRunCompleted(status, time.Since(started))
	}
	log.Infof("run %s: %d solved, %d non-converged, aborted=%t",
		status, result.Solved, result.NonConverged, result.Aborted)
}

func (o *Orchestrator) startRunSpan(ctx context.Context, runID string) (context.Context, func(error)) {
	if o.tracer == nil {
		return ctx, func(error) {}
	}
	return o.tracer.StartRunSpan(ctx, runID)
}

func (o *Orchestrator) startQuarterSpan(ctx context.Context, p model.Period) (context.Context, func(error)) {
	if o.tracer == nil {
		return ctx, func(error) {}
	}
	return o.tracer.StartQuarterSpan(ctx, p.String())
}

func (o *Orchestrator) log() *telemetry.Logger {
	if o.logger != nil {
		return o.logger
	}
	return telemetry.Nop()
}

func errKind(err error) model.ErrorKind {
	var e *model.SolveError
	if errors.As(err, &e) {
		return e.Kind
	}
	return "error"
}
