package equations

import (
	"math"

	"github.com/exchequer/exchequer/pkg/model"
)

// Helper functions for the transformations the source model writes its
// equations in. An equation whose left-hand side is dlog(X) is solved for
// the level of X via DlogSolve, and so on.

// logFloor guards logarithms of series that dip to zero in synthetic data.
const logFloor = 1e-10

// SafeLog returns log(x) with a floor guard against zero and negatives.
func SafeLog(x float64) float64 {
	return math.Log(math.Max(x, logFloor))
}

// Dlog returns the quarterly log difference of name at the view's quarter.
func Dlog(v *model.QuarterView, name string) float64 {
	return SafeLog(v.V(name)) - SafeLog(v.Lag(name, 1))
}

// DlogSolve solves dlog(X) = rhs for X: X = X(-1) * exp(rhs).
func DlogSolve(rhs, lag1 float64) float64 {
	return lag1 * math.Exp(rhs)
}

// DSolve solves d(X) = rhs for X: X = X(-1) + rhs.
func DSolve(rhs, lag1 float64) float64 {
	return lag1 + rhs
}

// RatioSolve solves X / X(-1) = rhs for X: X = X(-1) * rhs.
func RatioSolve(rhs, lag1 float64) float64 {
	return lag1 * rhs
}

// Trend returns the number of quarters from base to the view's quarter.
func Trend(v *model.QuarterView, base model.Period) float64 {
	return float64(v.Period().Sub(base))
}

// RecodeEq returns 1 when the view's quarter equals target, else 0.
func RecodeEq(v *model.QuarterView, target model.Period) float64 {
	if v.Period() == target {
		return 1
	}
	return 0
}

// RecodeGeq returns 1 when the view's quarter is target or later, else 0.
func RecodeGeq(v *model.QuarterView, target model.Period) float64 {
	if !v.Period().Before(target) {
		return 1
	}
	return 0
}

// RecodeLeq returns 1 when the view's quarter is target or earlier, else 0.
func RecodeLeq(v *model.QuarterView, target model.Period) float64 {
	if !v.Period().After(target) {
		return 1
	}
	return 0
}
