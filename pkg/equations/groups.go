package equations

import (
	"github.com/exchequer/exchequer/pkg/model"
)

// Builtin returns a compact demonstration equation set: a ten-variable
// aggregate-demand model with the labour market, the coupled wage-price
// block, the income and consumption chain, trade, and GDP identities.
// It exists so the solver can be exercised end to end without the full
// published equation library, which plugs in through NewRegistry the same
// way. Group order follows the source model's convention: labour and
// prices first, expenditure next, GDP last.
func Builtin() []Group {
	return []Group{
		{
			ID: "labour",
			Equations: []Equation{
				// dlog(EMP) = 0.25 * dlog(GDPM)
				{Variable: "EMP", Form: FormDlog, Eval: func(v *model.QuarterView) float64 {
					rhs := 0.25 * Dlog(v, "GDPM")
					return DlogSolve(rhs, v.Lag("EMP", 1))
				}},
				// LFSUR = 100 * (LF - EMP) / LF
				{Variable: "LFSUR", Form: FormIdentity, Eval: func(v *model.QuarterView) float64 {
					return 100 * (v.V("LF") - v.V("EMP")) / v.V("LF")
				}},
			},
		},
		{
			ID: "prices",
			Equations: []Equation{
				// dlog(WAGES) = 0.006 + 0.55*dlog(CPI) + 0.20*dlog(PROD)
				{Variable: "WAGES", Form: FormDlog, Eval: func(v *model.QuarterView) float64 {
					rhs := 0.006 + 0.55*Dlog(v, "CPI") + 0.20*Dlog(v, "PROD")
					return DlogSolve(rhs, v.Lag("WAGES", 1))
				}},
				// dlog(CPI) = 0.002 + 0.45*dlog(WAGES) - 0.25*dlog(PROD)
				//           + 0.05*dlog(PMNOG) + 0.02*dlog(SCOST)
				{Variable: "CPI", Form: FormDlog, Eval: func(v *model.QuarterView) float64 {
					rhs := 0.002 + 0.45*Dlog(v, "WAGES") - 0.25*Dlog(v, "PROD") +
						0.05*Dlog(v, "PMNOG") + 0.02*Dlog(v, "SCOST")
					return DlogSolve(rhs, v.Lag("CPI", 1))
				}},
			},
		},
		{
			ID: "income",
			Equations: []Equation{
				// RPDI = 100 * WAGES * EMP / CPI
				{Variable: "RPDI", Form: FormIdentity, Eval: func(v *model.QuarterView) float64 {
					return 100 * v.V("WAGES") * v.V("EMP") / v.V("CPI")
				}},
			},
		},
		{
			ID: "consumption",
			Equations: []Equation{
				// CONS = 0.65*CONS(-1) + 0.30*RPDI
				{Variable: "CONS", Form: FormBehavioural, Eval: func(v *model.QuarterView) float64 {
					return 0.65*v.Lag("CONS", 1) + 0.30*v.V("RPDI")
				}},
			},
		},
		{
			ID: "trade",
			Equations: []Equation{
				// dlog(X) = 0.5*dlog(WT) - 0.2*dlog(RXD)
				{Variable: "X", Form: FormDlog, Eval: func(v *model.QuarterView) float64 {
					rhs := 0.5*Dlog(v, "WT") - 0.2*Dlog(v, "RXD")
					return DlogSolve(rhs, v.Lag("X", 1))
				}},
				// M = 0.25 * (CONS + G + X)
				{Variable: "M", Form: FormIdentity, Eval: func(v *model.QuarterView) float64 {
					return 0.25 * (v.V("CONS") + v.V("G") + v.V("X"))
				}},
			},
		},
		{
			ID: "gdp",
			Equations: []Equation{
				// GDPM = CONS + G + X - M
				{Variable: "GDPM", Form: FormIdentity, Eval: func(v *model.QuarterView) float64 {
					return v.V("CONS") + v.V("G") + v.V("X") - v.V("M")
				}},
				// GDPMPS = GDPM * CPI / 100
				{Variable: "GDPMPS", Form: FormIdentity, Eval: func(v *model.QuarterView) float64 {
					return v.V("GDPM") * v.V("CPI") / 100
				}},
			},
		},
	}
}
