package model

// VariableKind tags a series as model-determined or externally supplied.
type VariableKind string

const (
	// Endogenous variables are computed by the model's own equations.
	Endogenous VariableKind = "endogenous"

	// Exogenous variables are supplied by the data loader and never
	// written by the solver.
	Exogenous VariableKind = "exogenous"
)

// VariableSeries holds one named variable's quarterly values across history
// and the forecast horizon, plus an optional paired additive-adjustment
// series. Quarters without an adjustment read as zero.
type VariableSeries struct {
	name        string
	kind        VariableKind
	values      map[Period]float64
	adjustments map[Period]float64
}

// NewVariableSeries creates an empty series for the named variable.
func NewVariableSeries(name string, kind VariableKind) *VariableSeries {
	return &VariableSeries{
		name:   name,
		kind:   kind,
		values: make(map[Period]float64),
	}
}

// Name returns the variable name.
func (s *VariableSeries) Name() string {
	return s.name
}

// Kind returns whether the variable is endogenous or exogenous.
func (s *VariableSeries) Kind() VariableKind {
	return s.kind
}

// Value returns the value at p and whether one is present.
func (s *VariableSeries) Value(p Period) (float64, bool) {
	v, ok := s.values[p]
	return v, ok
}

// Has reports whether a value is present at p.
func (s *VariableSeries) Has(p Period) bool {
	_, ok := s.values[p]
	return ok
}

// Set writes the value at p, overwriting any existing value.
func (s *VariableSeries) Set(p Period, v float64) {
	s.values[p] = v
}

// Adjustment returns the additive adjustment at p; zero when none is set.
func (s *VariableSeries) Adjustment(p Period) float64 {
	if s.adjustments == nil {
		return 0
	}
	return s.adjustments[p]
}

// SetAdjustment sets the additive adjustment at p.
func (s *VariableSeries) SetAdjustment(p Period, v float64) {
	if s.adjustments == nil {
		s.adjustments = make(map[Period]float64)
	}
	s.adjustments[p] = v
}

// Periods returns the periods that hold a value, in no particular order.
func (s *VariableSeries) Periods() []Period {
	periods := make([]Period, 0, len(s.values))
	for p := range s.values {
		periods = append(periods, p)
	}
	return periods
}

// Len returns the number of periods holding a value.
func (s *VariableSeries) Len() int {
	return len(s.values)
}
