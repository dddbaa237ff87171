// Package model provides the state plumbing for the Exchequer solver:
// quarterly periods, variable time series, and the mutable model state a
// solve session operates on.
package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a solver error for recovery and reporting logic.
type ErrorKind string

const (
	// ErrKindMissingInput indicates a required variable/period value was
	// absent from the model state. Fatal for the quarter being solved.
	ErrKindMissingInput ErrorKind = "missing_input"

	// ErrKindSingularMatrix indicates the cost-block coefficient matrix
	// was not invertible. Fatal.
	ErrKindSingularMatrix ErrorKind = "singular_matrix"

	// ErrKindNonConvergence indicates the iteration cap was reached before
	// the tolerance was met. Recoverable; the orchestrator's failure policy
	// decides whether the run continues.
	ErrKindNonConvergence ErrorKind = "non_convergence"

	// ErrKindNumericInvalid indicates an equation produced a non-finite
	// value. Fatal: no value can be damped toward NaN or Inf.
	ErrKindNumericInvalid ErrorKind = "numeric_invalid"
)

// SolveError is a classified error with solve context. Errors always carry
// the quarter being solved and, where applicable, the variable and the
// iteration index at which the failure occurred.
type SolveError struct {
	// Kind is the error classification.
	Kind ErrorKind `json:"kind"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Variable is the variable involved, if applicable.
	Variable string `json:"variable,omitempty"`

	// Period is the quarter being solved, formatted as "2025Q1".
	Period string `json:"period,omitempty"`

	// Iteration is the 1-based pass index at the time of failure;
	// zero when the failure occurred outside the iteration loop.
	Iteration int `json:"iteration,omitempty"`

	// Err is the underlying error, if any.
	Err error `json:"-"`

	// Details contains additional numeric context, such as the inputs of
	// a singular cost block or the last max relative change.
	Details map[string]float64 `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *SolveError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.Variable != "" {
		msg += fmt.Sprintf(" (variable=%s", e.Variable)
		if e.Period != "" {
			msg += fmt.Sprintf(", period=%s", e.Period)
		}
		if e.Iteration > 0 {
			msg += fmt.Sprintf(", iteration=%d", e.Iteration)
		}
		msg += ")"
	} else if e.Period != "" {
		msg += fmt.Sprintf(" (period=%s)", e.Period)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *SolveError) Unwrap() error {
	return e.Err
}

// Is implements error equality for errors.Is: two SolveErrors match when
// their kinds match.
func (e *SolveError) Is(target error) bool {
	t, ok := target.(*SolveError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewMissingInputError creates a missing_input error.
func NewMissingInputError(message string) *SolveError {
	return &SolveError{Kind: ErrKindMissingInput, Message: message}
}

// NewSingularMatrixError creates a singular_matrix error.
func NewSingularMatrixError(message string) *SolveError {
	return &SolveError{Kind: ErrKindSingularMatrix, Message: message}
}

// NewNonConvergenceError creates a non_convergence error.
func NewNonConvergenceError(message string) *SolveError {
	return &SolveError{Kind: ErrKindNonConvergence, Message: message}
}

// NewNumericInvalidError creates a numeric_invalid error.
func NewNumericInvalidError(message string) *SolveError {
	return &SolveError{Kind: ErrKindNumericInvalid, Message: message}
}

// WithVariable adds variable context to the error.
func (e *SolveError) WithVariable(name string) *SolveError {
	e.Variable = name
	return e
}

// WithPeriod adds quarter context to the error.
func (e *SolveError) WithPeriod(p Period) *SolveError {
	e.Period = p.String()
	return e
}

// WithIteration adds the 1-based pass index to the error.
func (e *SolveError) WithIteration(iteration int) *SolveError {
	e.Iteration = iteration
	return e
}

// WithErr attaches an underlying error.
func (e *SolveError) WithErr(err error) *SolveError {
	e.Err = err
	return e
}

// WithDetail adds a numeric detail to the error context.
func (e *SolveError) WithDetail(key string, value float64) *SolveError {
	if e.Details == nil {
		e.Details = make(map[string]float64)
	}
	e.Details[key] = value
	return e
}

// IsMissingInput reports whether err is classified as missing_input.
func IsMissingInput(err error) bool {
	return kindOf(err) == ErrKindMissingInput
}

// IsSingularMatrix reports whether err is classified as singular_matrix.
func IsSingularMatrix(err error) bool {
	return kindOf(err) == ErrKindSingularMatrix
}

// IsNonConvergence reports whether err is classified as non_convergence.
func IsNonConvergence(err error) bool {
	return kindOf(err) == ErrKindNonConvergence
}

// IsNumericInvalid reports whether err is classified as numeric_invalid.
func IsNumericInvalid(err error) bool {
	return kindOf(err) == ErrKindNumericInvalid
}

// IsRecoverable reports whether the run may continue past err under the
// continue-on-failure policy. Only non-convergence is recoverable; every
// other kind invalidates the quarter outright.
func IsRecoverable(err error) bool {
	return IsNonConvergence(err)
}

func kindOf(err error) ErrorKind {
	var e *SolveError
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
