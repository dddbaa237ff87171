// Package equations defines the equation-library surface consumed by the
// solver: named evaluator functions collected into ordered groups, plus the
// helper functions the evaluators are written with.
//
// The full published equation set is an external collaborator; this package
// fixes its contract. Execution order is configuration: a Registry is built
// once at startup from an explicit, ordered list of groups and is never
// discovered through reflection.
package equations

import (
	"fmt"

	"github.com/exchequer/exchequer/pkg/model"
)

// EvalFunc computes the raw (pre-adjustment, pre-damping) value of one
// endogenous variable from the quarter view. Evaluators must be pure: no
// state beyond the view, no writes. Read failures are recorded on the view.
type EvalFunc func(v *model.QuarterView) float64

// Equation form labels, carried through from the source model's notation.
// The solver treats all forms identically; the label is for reporting.
const (
	FormIdentity    = "identity"
	FormDlog        = "dlog"
	FormDiff        = "d"
	FormRatio       = "ratio"
	FormBehavioural = "behavioural"
)

// Equation is one named evaluator entry.
type Equation struct {
	// Variable is the endogenous variable this equation writes.
	Variable string

	// Form labels the equation's left-hand-side transformation.
	Form string

	// Eval produces the raw value for Variable.
	Eval EvalFunc
}

// Group is an ordered collection of equations under a group id.
type Group struct {
	// ID identifies the group, e.g. "prices", "consumption".
	ID string

	// Equations are evaluated in slice order within each pass.
	Equations []Equation
}

// Registry is the ordered equation library handed to the solver. Group
// order and within-group equation order are fixed at construction and
// define the Gauss-Seidel pass order.
type Registry struct {
	groups []Group
	writer map[string]string // endogenous variable -> group id
}

// NewRegistry builds a registry from groups in the given order. Each
// endogenous variable must have exactly one writing equation across all
// groups; a duplicate writer is a construction error.
func NewRegistry(groups ...Group) (*Registry, error) {
	r := &Registry{
		groups: groups,
		writer: make(map[string]string),
	}
	for _, g := range groups {
		if g.ID == "" {
			return nil, fmt.Errorf("equation group with empty id")
		}
		for _, eq := range g.Equations {
			if eq.Variable == "" {
				return nil, fmt.Errorf("group %s: equation with empty variable", g.ID)
			}
			if eq.Eval == nil {
				return nil, fmt.Errorf("group %s: equation %s has no evaluator", g.ID, eq.Variable)
			}
			if prev, ok := r.writer[eq.Variable]; ok {
				return nil, fmt.Errorf("variable %s written by both group %s and group %s",
					eq.Variable, prev, g.ID)
			}
			r.writer[eq.Variable] = g.ID
		}
	}
	return r, nil
}

// Groups returns the groups in execution order.
func (r *Registry) Groups() []Group {
	return r.groups
}

// Variables returns every endogenous variable in execution order.
func (r *Registry) Variables() []string {
	vars := make([]string, 0, len(r.writer))
	for _, g := range r.groups {
		for _, eq := range g.Equations {
			vars = append(vars, eq.Variable)
		}
	}
	return vars
}

// WriterOf returns the id of the group that writes name, if any.
func (r *Registry) WriterOf(name string) (string, bool) {
	id, ok := r.writer[name]
	return id, ok
}

// Len returns the total number of equations.
func (r *Registry) Len() int {
	return len(r.writer)
}
