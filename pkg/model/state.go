package model

import (
	"sort"
)

// ModelState is the single shared mutable resource of a solve session: the
// full table of variable series spanning history and the forecast horizon.
// It is created once per session by the data loader, mutated in place by the
// solver one quarter at a time, and read-only for everyone else. ModelState
// is not safe for concurrent use; the solver is sequential by design.
type ModelState struct {
	series map[string]*VariableSeries

	// committed marks the latest immutable quarter. Writes at or before it
	// are rejected, which protects both history and already-solved quarters.
	committed    Period
	hasCommitted bool
}

// NewModelState creates an empty model state.
func NewModelState() *ModelState {
	return &ModelState{series: make(map[string]*VariableSeries)}
}

// Declare registers a new variable and returns its series. Declaring an
// already-known variable returns the existing series unchanged.
func (st *ModelState) Declare(name string, kind VariableKind) *VariableSeries {
	if s, ok := st.series[name]; ok {
		return s
	}
	s := NewVariableSeries(name, kind)
	st.series[name] = s
	return s
}

// Series returns the series for name and whether it exists.
func (st *ModelState) Series(name string) (*VariableSeries, bool) {
	s, ok := st.series[name]
	return s, ok
}

// Names returns all variable names in sorted order.
func (st *ModelState) Names() []string {
	names := make([]string, 0, len(st.series))
	for name := range st.series {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Value returns the value of name at p. A missing variable or missing
// period yields a missing_input error naming both.
func (st *ModelState) Value(name string, p Period) (float64, error) {
	s, ok := st.series[name]
	if !ok {
		return 0, NewMissingInputError("variable not in model state").
			WithVariable(name).WithPeriod(p)
	}
	v, ok := s.Value(p)
	if !ok {
		return 0, NewMissingInputError("no value for period").
			WithVariable(name).WithPeriod(p)
	}
	return v, nil
}

// Has reports whether name holds a value at p.
func (st *ModelState) Has(name string, p Period) bool {
	s, ok := st.series[name]
	return ok && s.Has(p)
}

// Set writes the value of name at p. Writes to committed quarters (history
// or already-solved forecast quarters) are rejected with a missing_input
// error; committed values are never revisited.
func (st *ModelState) Set(name string, p Period, v float64) error {
	if st.hasCommitted && !p.After(st.committed) {
		return NewMissingInputError("write to committed period rejected").
			WithVariable(name).WithPeriod(p)
	}
	s, ok := st.series[name]
	if !ok {
		return NewMissingInputError("variable not in model state").
			WithVariable(name).WithPeriod(p)
	}
	s.Set(p, v)
	return nil
}

// Adjustment returns the additive adjustment for name at p, zero when the
// variable has no adjustment series or no entry for p.
func (st *ModelState) Adjustment(name string, p Period) float64 {
	s, ok := st.series[name]
	if !ok {
		return 0
	}
	return s.Adjustment(p)
}

// OpenHorizon starts a solve session forecasting from start: everything
// strictly before start is committed and immutable, while the horizon
// itself is writable again. Re-opening an already-solved horizon is how a
// re-run reproduces it; history stays protected either way.
func (st *ModelState) OpenHorizon(start Period) {
	st.committed = start.Prev()
	st.hasCommitted = true
}

// CommitThrough marks every quarter up to and including p as immutable.
// The boundary only moves forward; an earlier p is ignored.
func (st *ModelState) CommitThrough(p Period) {
	if st.hasCommitted && !p.After(st.committed) {
		return
	}
	st.committed = p
	st.hasCommitted = true
}

// CommittedThrough returns the current immutability boundary, if any.
func (st *ModelState) CommittedThrough() (Period, bool) {
	return st.committed, st.hasCommitted
}

// View returns a QuarterView positioned at p.
func (st *ModelState) View(p Period) *QuarterView {
	return &QuarterView{state: st, period: p}
}

// QuarterView is the read surface handed to equation evaluators: the model
// state pinned to the quarter being solved. Reads go through V and Lag,
// which always observe the freshest value of every variable, including
// values written earlier in the same Gauss-Seidel pass.
//
// A failed read records a sticky error and returns zero, so equation code
// can stay in plain arithmetic form; the iterator checks Err after each
// evaluation and surfaces the first failure with full context.
type QuarterView struct {
	state  *ModelState
	period Period
	err    error
}

// Period returns the quarter this view is pinned to.
func (q *QuarterView) Period() Period {
	return q.period
}

// V reads the current-quarter value of name.
func (q *QuarterView) V(name string) float64 {
	return q.Lag(name, 0)
}

// Lag reads the value of name lag quarters before the current quarter.
func (q *QuarterView) Lag(name string, lag int) float64 {
	v, err := q.state.Value(name, q.period.Add(-lag))
	if err != nil {
		if q.err == nil {
			q.err = err
		}
		return 0
	}
	return v
}

// At reads the value of name at an absolute period, for base-year lookups.
func (q *QuarterView) At(name string, p Period) float64 {
	v, err := q.state.Value(name, p)
	if err != nil {
		if q.err == nil {
			q.err = err
		}
		return 0
	}
	return v
}

// Err returns the first read failure recorded since the last Reset.
func (q *QuarterView) Err() error {
	return q.err
}

// Reset clears the recorded read failure. The iterator resets the view
// between equations so each evaluation reports its own failures.
func (q *QuarterView) Reset() {
	q.err = nil
}
