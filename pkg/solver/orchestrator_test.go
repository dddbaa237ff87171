package solver

import (
	"context"
	"math"
	"testing"

	"github.com/exchequer/exchequer/pkg/equations"
	"github.com/exchequer/exchequer/pkg/model"
)

// arGroups is a one-variable autoregression A = 0.5*A(-1) + G driven by the
// exogenous G, stable and quick to converge.
func arGroups() []equations.Group {
	return []equations.Group{
		{ID: "ar", Equations: []equations.Equation{
			{Variable: "A", Form: equations.FormBehavioural,
				Eval: func(v *model.QuarterView) float64 { return 0.5*v.Lag("A", 1) + v.V("G") }},
		}},
	}
}

// arState seeds one quarter of history at hist and exogenous G across the
// whole span hist..end.
func arState(hist, end model.Period) *model.ModelState {
	st := model.NewModelState()
	st.Declare("A", model.Endogenous).Set(hist, 10)
	g := st.Declare("G", model.Exogenous)
	for p := hist; !p.After(end); p = p.Next() {
		g.Set(p, 2)
	}
	return st
}

func newTestOrchestrator(t *testing.T, groups []equations.Group, policy FailurePolicy) *Orchestrator {
	t.Helper()
	return NewOrchestrator(mustRegistry(t, groups), DefaultOptions(), policy)
}

func TestSolveRange(t *testing.T) {
	hist := model.MustParsePeriod("2024Q4")
	start := model.MustParsePeriod("2025Q1")
	end := model.MustParsePeriod("2025Q4")
	st := arState(hist, end)

	o := newTestOrchestrator(t, arGroups(), PolicyAbort)
	result, err := o.SolveRange(context.Background(), st, start, end)
	if err != nil {
		t.Fatalf("SolveRange: %v", err)
	}

	if result.RunID == "" {
		t.Error("RunID should be set")
	}
	if result.Solved != 4 || result.NonConverged != 0 || result.Aborted {
		t.Errorf("result = %d solved, %d non-converged, aborted=%t; want 4, 0, false",
			result.Solved, result.NonConverged, result.Aborted)
	}
	if len(result.Reports) != 4 {
		t.Fatalf("got %d reports, want 4", len(result.Reports))
	}
	for i, r := range result.Reports {
		if !r.Converged {
			t.Errorf("report %d (%s) not converged", i, r.Period)
		}
	}

	// The AR recursion approaches its stationary value G/(1-0.5) = 4.
	prev := 10.0
	for p := start; !p.After(end); p = p.Next() {
		v, err := st.Value("A", p)
		if err != nil {
			t.Fatalf("A at %s: %v", p, err)
		}
		want := 0.5*prev + 2
		if math.Abs(v-want) > 1e-6 {
			t.Errorf("A at %s = %g, want %g", p, v, want)
		}
		prev = v
	}

	committed, ok := st.CommittedThrough()
	if !ok || committed != end {
		t.Errorf("CommittedThrough = %s, want %s", committed, end)
	}
}

func TestSolveRangeDeterministic(t *testing.T) {
	hist := model.MustParsePeriod("2024Q4")
	start := model.MustParsePeriod("2025Q1")
	end := model.MustParsePeriod("2026Q4")

	run := func() map[model.Period]float64 {
		st := arState(hist, end)
		o := newTestOrchestrator(t, arGroups(), PolicyAbort)
		if _, err := o.SolveRange(context.Background(), st, start, end); err != nil {
			t.Fatalf("SolveRange: %v", err)
		}
		out := make(map[model.Period]float64)
		for p := start; !p.After(end); p = p.Next() {
			out[p], _ = st.Value("A", p)
		}
		return out
	}

	first := run()
	second := run()
	for p, v := range first {
		if second[p] != v {
			t.Errorf("A at %s differs across identical runs: %v vs %v", p, v, second[p])
		}
	}
}

func TestSolveRangeIdempotentRerun(t *testing.T) {
	hist := model.MustParsePeriod("2024Q4")
	start := model.MustParsePeriod("2025Q1")
	end := model.MustParsePeriod("2025Q4")
	st := arState(hist, end)
	o := newTestOrchestrator(t, arGroups(), PolicyAbort)

	if _, err := o.SolveRange(context.Background(), st, start, end); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first := make(map[model.Period]float64)
	for p := start; !p.After(end); p = p.Next() {
		first[p], _ = st.Value("A", p)
	}

	// Re-running over the same horizon on the same state reproduces the
	// values bit for bit: the horizon is re-opened and every quarter is
	// re-seeded from its predecessor, so stale iterates cannot leak in.
	if _, err := o.SolveRange(context.Background(), st, start, end); err != nil {
		t.Fatalf("second run: %v", err)
	}
	for p := start; !p.After(end); p = p.Next() {
		v, _ := st.Value("A", p)
		if v != first[p] {
			t.Errorf("A at %s = %v after re-run, want %v", p, v, first[p])
		}
	}
}

func TestSolveRangeMissingSeed(t *testing.T) {
	start := model.MustParsePeriod("2025Q1")
	end := model.MustParsePeriod("2025Q2")

	// No history at all: the seed read at 2024Q4 fails.
	st := model.NewModelState()
	st.Declare("A", model.Endogenous)
	g := st.Declare("G", model.Exogenous)
	for p := start; !p.After(end); p = p.Next() {
		g.Set(p, 2)
	}

	o := newTestOrchestrator(t, arGroups(), PolicyAbort)
	result, err := o.SolveRange(context.Background(), st, start, end)
	if !model.IsMissingInput(err) {
		t.Fatalf("got %v, want missing_input", err)
	}
	se := err.(*model.SolveError)
	if se.Variable != "A" || se.Period != "2024Q4" {
		t.Errorf("error context = (%s, %s), want (A, 2024Q4)", se.Variable, se.Period)
	}
	if !result.Aborted || result.Solved != 0 {
		t.Errorf("result = %+v, want aborted with nothing solved", result)
	}
}

func TestSolveRangeSeedFromLastHistoricalQuarter(t *testing.T) {
	// History ends exactly one quarter before the forecast starts; that
	// value is a valid seed.
	hist := model.MustParsePeriod("2024Q4")
	start := model.MustParsePeriod("2025Q1")
	st := arState(hist, start)

	o := newTestOrchestrator(t, arGroups(), PolicyAbort)
	if _, err := o.SolveRange(context.Background(), st, start, start); err != nil {
		t.Fatalf("SolveRange: %v", err)
	}
	v, _ := st.Value("A", start)
	if math.Abs(v-7) > 1e-6 { // 0.5*10 + 2
		t.Errorf("A = %g, want 7", v)
	}
}

func TestSolveRangeExogenousGap(t *testing.T) {
	hist := model.MustParsePeriod("2024Q4")
	start := model.MustParsePeriod("2025Q1")
	end := model.MustParsePeriod("2025Q4")
	st := arState(hist, end)

	// Punch a hole in G by rebuilding it short one quarter.
	st2 := model.NewModelState()
	st2.Declare("A", model.Endogenous).Set(hist, 10)
	g := st2.Declare("G", model.Exogenous)
	for p := hist; !p.After(end); p = p.Next() {
		if p == model.MustParsePeriod("2025Q3") {
			continue
		}
		v, _ := st.Value("G", p)
		g.Set(p, v)
	}

	o := newTestOrchestrator(t, arGroups(), PolicyAbort)
	result, err := o.SolveRange(context.Background(), st2, start, end)
	if !model.IsMissingInput(err) {
		t.Fatalf("got %v, want missing_input", err)
	}
	se := err.(*model.SolveError)
	if se.Variable != "G" || se.Period != "2025Q3" {
		t.Errorf("error context = (%s, %s), want (G, 2025Q3)", se.Variable, se.Period)
	}

	// Validation runs before any quarter is attempted.
	if len(result.Reports) != 0 {
		t.Errorf("got %d reports, want none: validation precedes solving", len(result.Reports))
	}
	if st2.Has("A", start) {
		t.Error("no quarter should have been solved")
	}
}

func TestSolveRangeFatalLeavesPriorQuartersCommitted(t *testing.T) {
	hist := model.MustParsePeriod("2024Q4")
	start := model.MustParsePeriod("2025Q1")
	end := model.MustParsePeriod("2025Q4")
	bad := model.MustParsePeriod("2025Q3")

	st := arState(hist, end)
	groups := []equations.Group{
		{ID: "ar", Equations: []equations.Equation{
			{Variable: "A", Form: equations.FormBehavioural,
				Eval: func(v *model.QuarterView) float64 {
					if v.Period() == bad {
						return math.NaN()
					}
					return 0.5*v.Lag("A", 1) + v.V("G")
				}},
		}},
	}

	o := newTestOrchestrator(t, groups, PolicyContinue)
	result, err := o.SolveRange(context.Background(), st, start, end)
	if !model.IsNumericInvalid(err) {
		t.Fatalf("got %v, want numeric_invalid", err)
	}

	// Fatal kinds abort even under the continue policy.
	if !result.Aborted {
		t.Error("run should abort on a fatal error")
	}
	if result.Solved != 2 {
		t.Errorf("Solved = %d, want 2", result.Solved)
	}
	if len(result.Reports) != 3 {
		t.Fatalf("got %d reports, want 3 including the failing quarter", len(result.Reports))
	}
	if result.Reports[2].Failure == "" {
		t.Error("failing quarter's report should carry the failure")
	}

	// The two solved quarters stay committed and untouched.
	committed, _ := st.CommittedThrough()
	if committed != bad.Prev() {
		t.Errorf("CommittedThrough = %s, want %s", committed, bad.Prev())
	}
	q1, _ := st.Value("A", start)
	if math.Abs(q1-7) > 1e-6 {
		t.Errorf("A at %s = %g, want 7", start, q1)
	}
}

func TestSolveRangeFailurePolicies(t *testing.T) {
	hist := model.MustParsePeriod("2024Q4")
	start := model.MustParsePeriod("2025Q1")
	end := model.MustParsePeriod("2025Q3")
	bad := model.MustParsePeriod("2025Q2")

	// Divergent only at the middle quarter.
	groups := func() []equations.Group {
		return []equations.Group{{ID: "g", Equations: []equations.Equation{
			{Variable: "A", Form: equations.FormBehavioural,
				Eval: func(v *model.QuarterView) float64 {
					if v.Period() == bad {
						return 2*v.V("A") + 1
					}
					return 0.5*v.Lag("A", 1) + v.V("G")
				}},
		}}}
	}

	t.Run("abort", func(t *testing.T) {
		st := arState(hist, end)
		o := newTestOrchestrator(t, groups(), PolicyAbort)
		result, err := o.SolveRange(context.Background(), st, start, end)
		if !model.IsNonConvergence(err) {
			t.Fatalf("got %v, want non_convergence", err)
		}
		if !result.Aborted || result.Solved != 1 || result.NonConverged != 1 {
			t.Errorf("result = %+v, want aborted after the flagged quarter", result)
		}
		// The flagged quarter commits its best-effort iterate.
		committed, _ := st.CommittedThrough()
		if committed != bad {
			t.Errorf("CommittedThrough = %s, want %s", committed, bad)
		}
	})

	t.Run("continue", func(t *testing.T) {
		st := arState(hist, end)
		o := newTestOrchestrator(t, groups(), PolicyContinue)
		result, err := o.SolveRange(context.Background(), st, start, end)
		if err != nil {
			t.Fatalf("continue policy should not surface non-convergence: %v", err)
		}
		if result.Aborted || result.Solved != 2 || result.NonConverged != 1 {
			t.Errorf("result = %+v, want 2 solved and 1 flagged", result)
		}
		if len(result.Reports) != 3 {
			t.Fatalf("got %d reports, want 3", len(result.Reports))
		}
		if result.Reports[1].Converged {
			t.Error("flagged quarter should be marked non-converged")
		}
		// The final quarter solves on top of the best-effort iterate.
		if !result.Reports[2].Converged {
			t.Error("quarter after the flagged one should converge")
		}
	})
}

func TestSolveRangeEmptyHorizon(t *testing.T) {
	st := arState(model.MustParsePeriod("2024Q4"), model.MustParsePeriod("2025Q4"))
	o := newTestOrchestrator(t, arGroups(), PolicyAbort)

	_, err := o.SolveRange(context.Background(), st,
		model.MustParsePeriod("2025Q4"), model.MustParsePeriod("2025Q1"))
	if !model.IsMissingInput(err) {
		t.Errorf("got %v, want missing_input for an inverted horizon", err)
	}
}

func TestSolveRangeWithPresolver(t *testing.T) {
	hist := model.MustParsePeriod("2024Q4")
	start := model.MustParsePeriod("2025Q1")

	st := arState(hist, start)
	st.Declare("P", model.Endogenous).Set(hist, 0)

	called := 0
	pre := presolveFunc(func(st *model.ModelState, p model.Period) error {
		called++
		return st.Set("P", p, 42)
	})

	// P has no equation; registry covers A only, so seeding skips P.
	o := NewOrchestrator(mustRegistry(t, arGroups()), DefaultOptions(), PolicyAbort).
		WithPresolver(pre)
	if _, err := o.SolveRange(context.Background(), st, start, start); err != nil {
		t.Fatalf("SolveRange: %v", err)
	}
	if called != 1 {
		t.Errorf("presolver called %d times, want once per quarter", called)
	}
	v, _ := st.Value("P", start)
	if v != 42 {
		t.Errorf("P = %g, want the presolved 42", v)
	}
}

type presolveFunc func(*model.ModelState, model.Period) error

func (f presolveFunc) Presolve(st *model.ModelState, p model.Period) error {
	return f(st, p)
}

func TestBuiltinModelSolves(t *testing.T) {
	// End-to-end: the built-in equation set with the cost-block presolver
	// over a synthetic horizon.
	st := builtinFixtureState(t)
	o := NewOrchestrator(mustRegistry(t, equations.Builtin()), DefaultOptions(), PolicyAbort).
		WithPresolver(CostBlock{})

	start := model.MustParsePeriod("2025Q1")
	end := model.MustParsePeriod("2025Q4")
	result, err := o.SolveRange(context.Background(), st, start, end)
	if err != nil {
		t.Fatalf("SolveRange: %v", err)
	}
	if result.Solved != 4 {
		t.Fatalf("Solved = %d, want 4", result.Solved)
	}

	// The GDP identity must hold exactly at every solved quarter.
	for p := start; !p.After(end); p = p.Next() {
		v := st.View(p)
		gdp := v.V("GDPM")
		identity := v.V("CONS") + v.V("G") + v.V("X") - v.V("M")
		if err := v.Err(); err != nil {
			t.Fatalf("read at %s: %v", p, err)
		}
		if math.Abs(gdp-identity) > 1e-6*math.Abs(gdp) {
			t.Errorf("GDP identity at %s: GDPM=%g, CONS+G+X-M=%g", p, gdp, identity)
		}
	}
}

// builtinFixtureState builds a minimal consistent state for the built-in
// equation set: one quarter of history for every endogenous variable and
// exogenous values across the horizon.
func builtinFixtureState(t *testing.T) *model.ModelState {
	t.Helper()
	st := model.NewModelState()
	hist := model.MustParsePeriod("2024Q4")
	end := model.MustParsePeriod("2025Q4")

	endo := map[string]float64{
		"EMP": 33.0, "LFSUR": 4.2, "WAGES": 680, "CPI": 100,
		"RPDI": 420, "CONS": 400, "X": 180, "M": 190,
		"GDPM": 540, "GDPMPS": 540,
		"SCOST": 98, "CCOST": 102, "UTCOST": 100,
	}
	for name, v := range endo {
		s := st.Declare(name, model.Endogenous)
		s.Set(hist, v)
		s.Set(hist.Prev(), v)
	}

	exog := map[string]float64{
		"LF": 34.5, "PROD": 100, "PMNOG": 100, "G": 150,
		"WT": 100, "RXD": 1.1,
		"ULCMS": 100, "ULCMSBASE": 100,
		"PMS": 100, "PMSBASE": 100,
		"PBRENT": 77, "OILBASE": 70,
		"BPAPS": 10, "GVA": 100, "TXRATEBASE": 0.1,
		"PPIY": 100, "PPIYBASE": 100,
		"PMNOGBASE": 100,
	}
	for name, v := range exog {
		s := st.Declare(name, model.Exogenous)
		for p := hist.Prev(); !p.After(end); p = p.Next() {
			s.Set(p, v)
		}
	}
	return st
}
