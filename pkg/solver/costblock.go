package solver

import (
	"math"

	"github.com/exchequer/exchequer/pkg/model"
)

// singularTol is the determinant magnitude below which a 3x3 system is
// treated as singular.
const singularTol = 1e-12

// Solve3x3 solves the linear system a*x = b by Cramer's rule. A determinant
// smaller than singularTol in magnitude yields a singular_matrix error
// carrying the determinant and right-hand side.
func Solve3x3(a [3][3]float64, b [3]float64) ([3]float64, error) {
	det := det3(a)
	if math.Abs(det) < singularTol {
		return [3]float64{}, model.NewSingularMatrixError("coefficient matrix is singular").
			WithDetail("det", det).
			WithDetail("b0", b[0]).
			WithDetail("b1", b[1]).
			WithDetail("b2", b[2])
	}
	var x [3]float64
	for col := 0; col < 3; col++ {
		m := a
		for row := 0; row < 3; row++ {
			m[row][col] = b[row]
		}
		x[col] = det3(m) / det
	}
	return x, nil
}

func det3(a [3][3]float64) float64 {
	return a[0][0]*(a[1][1]*a[2][2]-a[1][2]*a[2][1]) -
		a[0][1]*(a[1][0]*a[2][2]-a[1][2]*a[2][0]) +
		a[0][2]*(a[1][0]*a[2][1]-a[1][1]*a[2][0])
}

// CostBlock is the closed-form presolver for the services/consumer/utility
// cost indices (SCOST, CCOST, UTCOST), a 3-variable input-output subsystem
// that is exactly linear in its three unknowns. Solving it directly once
// per quarter, before the Gauss-Seidel pass, removes a stiff simultaneous
// block from the nonlinear iteration.
//
// The three equations, with calibrated input-output weights:
//
//	SCOST  = a1 + 1.64*(CCOST/100) + 1.09*(UTCOST/100)
//	CCOST  = a2 + 28.13*(SCOST/100) + 0.34*(UTCOST/100)
//	UTCOST = a3 + 16.00*(SCOST/100) + 2.95*(CCOST/100)
//
// where a1..a3 collect the exogenous cost drivers (unit labour costs,
// import prices, oil, taxes, producer prices), each expressed relative to
// its base-year value.
type CostBlock struct{}

// Cost-block variable names.
const (
	varSCOST  = "SCOST"
	varCCOST  = "CCOST"
	varUTCOST = "UTCOST"
)

// Variables returns the names the presolver writes.
func (cb CostBlock) Variables() []string {
	return []string{varSCOST, varCCOST, varUTCOST}
}

// Presolve solves the cost block at p and writes the three solved values
// into the state. Models without a cost block (no SCOST series) are
// skipped. A missing driver is a missing_input error; a singular
// coefficient matrix is a singular_matrix error carrying the block inputs.
func (cb CostBlock) Presolve(st *model.ModelState, p model.Period) error {
	if _, ok := st.Series(varSCOST); !ok {
		return nil
	}

	v := st.View(p)
	ulcR := v.V("ULCMS") / v.V("ULCMSBASE")
	pmnR := v.V("PMNOG") / v.V("PMNOGBASE")
	pmsR := v.V("PMS") / v.V("PMSBASE")
	oilR := (v.V("PBRENT") / v.V("RXD")) / v.V("OILBASE")
	txR := (v.V("BPAPS") / v.V("GVA")) / v.V("TXRATEBASE")
	ppiyR := v.V("PPIY") / v.V("PPIYBASE")
	if err := v.Err(); err != nil {
		return err
	}

	b := [3]float64{
		70.54*ulcR + 6.93*pmnR + 6.41*pmsR + 0.09*oilR + 3.52*txR + 9.78*ppiyR,
		40.25*ulcR + 2.80*pmnR + 0.90*pmsR + 0.03*oilR + 0.51*txR + 27.06*ppiyR,
		14.85*ulcR + 3.04*pmnR + 0.51*pmsR + 51.52*oilR + 2.90*txR + 8.24*ppiyR,
	}
	a := [3][3]float64{
		{1, -1.64 / 100, -1.09 / 100},
		{-28.13 / 100, 1, -0.34 / 100},
		{-16.00 / 100, -2.95 / 100, 1},
	}

	x, err := Solve3x3(a, b)
	if err != nil {
		var solveErr *model.SolveError
		if e, ok := err.(*model.SolveError); ok {
			solveErr = e.WithPeriod(p).WithVariable(varSCOST)
		} else {
			solveErr = model.NewSingularMatrixError("cost block solve failed").
				WithErr(err).WithPeriod(p)
		}
		return solveErr
	}

	for i, name := range []string{varSCOST, varCCOST, varUTCOST} {
		if !isFinite(x[i]) {
			return model.NewNumericInvalidError("cost block produced non-finite value").
				WithVariable(name).WithPeriod(p).WithDetail("value", x[i])
		}
		if err := st.Set(name, p, x[i]); err != nil {
			return err
		}
	}
	return nil
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
