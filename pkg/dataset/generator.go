// Package dataset supplies model data: a deterministic synthetic generator
// for structural testing of the solver, and CSV import/export of variable
// series. Values are calibrated to plausible UK magnitudes but are not
// real data.
package dataset

import (
	"math"
	"math/rand"

	"github.com/exchequer/exchequer/pkg/model"
)

// GeneratorConfig bounds the generated timeline.
type GeneratorConfig struct {
	// HistoryStart is the first historical quarter.
	HistoryStart model.Period

	// HistoryEnd is the last historical quarter; the forecast starts at
	// the following quarter.
	HistoryEnd model.Period

	// ForecastEnd is the last quarter exogenous paths are generated for.
	ForecastEnd model.Period

	// Seed drives the random processes. Equal seeds produce equal data.
	Seed int64
}

// DefaultGeneratorConfig covers 2019Q1-2024Q4 history with exogenous paths
// through 2030Q4.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		HistoryStart: model.NewPeriod(2019, 1),
		HistoryEnd:   model.NewPeriod(2024, 4),
		ForecastEnd:  model.NewPeriod(2030, 4),
		Seed:         42,
	}
}

// Generate builds a full model state for the built-in equation set:
// exogenous paths over history plus the forecast horizon, endogenous
// history through HistoryEnd, and the cost-block drivers and base values.
func Generate(cfg GeneratorConfig) *model.ModelState {
	st := model.NewModelState()
	rng := rand.New(rand.NewSource(cfg.Seed))

	full := model.PeriodRange(cfg.HistoryStart, cfg.ForecastEnd)
	hist := model.PeriodRange(cfg.HistoryStart, cfg.HistoryEnd)
	n := len(full)

	exo := func(name string, values []float64) {
		s := st.Declare(name, model.Exogenous)
		for i, p := range full {
			s.Set(p, values[i])
		}
	}
	endo := func(name string, values []float64) {
		s := st.Declare(name, model.Endogenous)
		for i, p := range hist {
			s.Set(p, values[i])
		}
	}

	// Exogenous drivers.
	lf := trend(n, 34000, 0.001)
	prod := trend(n, 100, 0.003)
	pmnog := gbm(rng, n, 100, 0.004, 0.01)
	g := trend(n, 5000, 0.004)
	wt := trend(n, 100, 0.005)
	rxd := ar1(rng, n, 0.85, 0.97, 0.005)
	exo("LF", lf)
	exo("PROD", prod)
	exo("PMNOG", pmnog)
	exo("G", g)
	exo("WT", wt)
	exo("RXD", rxd)

	// Cost-block drivers and base-year values.
	exo("ULCMS", trend(n, 100, 0.005))
	exo("PMS", gbm(rng, n, 100, 0.004, 0.012))
	exo("PBRENT", gbm(rng, n, 60, 0.002, 0.04))
	exo("BPAPS", trend(n, 200, 0.004))
	exo("GVA", trend(n, 2000, 0.004))
	exo("PPIY", trend(n, 100, 0.004))
	exo("ULCMSBASE", constant(n, 100))
	exo("PMNOGBASE", constant(n, 100))
	exo("PMSBASE", constant(n, 100))
	exo("OILBASE", constant(n, 70))
	exo("TXRATEBASE", constant(n, 0.1))
	exo("PPIYBASE", constant(n, 100))

	// Endogenous history, internally consistent with the built-in
	// identities so forecast-start seeds are sensible.
	m := len(hist)
	emp := trend(m, 32000, 0.0005)
	wages := trend(m, 500, 0.006)
	cpi := trend(m, 100, 0.005)
	x := trend(m, 800, 0.004)

	lfsur := make([]float64, m)
	rpdi := make([]float64, m)
	cons := make([]float64, m)
	imports := make([]float64, m)
	gdpm := make([]float64, m)
	gdpmps := make([]float64, m)
	for i := 0; i < m; i++ {
		lfsur[i] = 100 * (lf[i] - emp[i]) / lf[i]
		rpdi[i] = 100 * wages[i] * emp[i] / cpi[i]
		cons[i] = 0.30 / 0.35 * rpdi[i]
		imports[i] = 0.25 * (cons[i] + g[i] + x[i])
		gdpm[i] = cons[i] + g[i] + x[i] - imports[i]
		gdpmps[i] = gdpm[i] * cpi[i] / 100
	}

	endo("EMP", emp)
	endo("LFSUR", lfsur)
	endo("WAGES", wages)
	endo("CPI", cpi)
	endo("RPDI", rpdi)
	endo("CONS", cons)
	endo("X", x)
	endo("M", imports)
	endo("GDPM", gdpm)
	endo("GDPMPS", gdpmps)

	// Cost indices: near their base level over history.
	endo("SCOST", trend(m, 98, 0.004))
	endo("CCOST", trend(m, 102, 0.004))
	endo("UTCOST", trend(m, 100, 0.004))

	return st
}

// ar1 generates a mean-reverting AR(1) process.
func ar1(rng *rand.Rand, n int, mean, persistence, vol float64) []float64 {
	x := make([]float64, n)
	x[0] = mean
	for i := 1; i < n; i++ {
		x[i] = mean*(1-persistence) + persistence*x[i-1] + vol*rng.NormFloat64()
	}
	return x
}

// gbm generates quarterly geometric Brownian motion.
func gbm(rng *rand.Rand, n int, start, driftQ, volQ float64) []float64 {
	x := make([]float64, n)
	logX := math.Log(start)
	x[0] = start
	for i := 1; i < n; i++ {
		logX += driftQ + volQ*rng.NormFloat64()
		x[i] = math.Exp(logX)
	}
	return x
}

// trend generates a simple exponential trend.
func trend(n int, start, growthQ float64) []float64 {
	x := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = start * math.Pow(1+growthQ, float64(i))
	}
	return x
}

func constant(n int, v float64) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = v
	}
	return x
}
