package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/exchequer/exchequer/pkg/config"
	"github.com/exchequer/exchequer/pkg/dataset"
	"github.com/exchequer/exchequer/pkg/equations"
	"github.com/exchequer/exchequer/pkg/model"
	"github.com/exchequer/exchequer/pkg/solver"
	"github.com/exchequer/exchequer/pkg/stores"
	"github.com/exchequer/exchequer/pkg/telemetry"
)

// keyVariables are the headline aggregates printed by the summary command.
var keyVariables = []struct {
	Name  string
	Label string
}{
	{"GDPM", "Real GDP"},
	{"GDPMPS", "Nominal GDP"},
	{"CONS", "Consumption"},
	{"X", "Exports"},
	{"M", "Imports"},
	{"CPI", "CPI"},
	{"LFSUR", "Unemployment rate (%)"},
	{"WAGES", "Average wages"},
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

// solveSession wires the full stack for one solve: synthetic data, the
// built-in equation registry, the cost-block presolver, and telemetry.
type solveSession struct {
	cfg      *config.Config
	logger   *telemetry.Logger
	metrics  *telemetry.Metrics
	tracer   *telemetry.Tracer
	state    *model.ModelState
	registry *equations.Registry
	orch     *solver.Orchestrator
}

func newSolveSession(cfg *config.Config, version string, seed int64) (*solveSession, error) {
	tc := cfg.TelemetrySettings(version)
	if verbose {
		tc.Logging.Level = "debug"
	}

	logger, err := telemetry.NewLogger(tc.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	metrics, err := telemetry.NewMetrics(tc.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}
	if err := metrics.StartMetricsServer(logger); err != nil {
		return nil, fmt.Errorf("failed to start metrics server: %w", err)
	}
	tracer, err := telemetry.NewTracer(tc.Tracing, tc.ServiceName, tc.ServiceVersion, tc.Environment)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	registry, err := equations.NewRegistry(equations.Builtin()...)
	if err != nil {
		return nil, fmt.Errorf("failed to build equation registry: %w", err)
	}

	genCfg := dataset.DefaultGeneratorConfig()
	genCfg.HistoryEnd = cfg.Horizon.Start.Prev()
	genCfg.HistoryStart = genCfg.HistoryEnd.Add(-23)
	genCfg.ForecastEnd = cfg.Horizon.End
	genCfg.Seed = seed
	st := dataset.Generate(genCfg)

	orch := solver.NewOrchestrator(registry, cfg.Options(), cfg.Policy()).
		WithPresolver(solver.CostBlock{}).
		WithLogger(logger).
		WithMetrics(metrics).
		WithTracer(tracer)

	return &solveSession{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		tracer:   tracer,
		state:    st,
		registry: registry,
		orch:     orch,
	}, nil
}

func (s *solveSession) solve(ctx context.Context) (*solver.RunResult, error) {
	return s.orch.SolveRange(ctx, s.state, s.cfg.Horizon.Start, s.cfg.Horizon.End)
}

func (s *solveSession) close(ctx context.Context) {
	if err := s.tracer.Shutdown(ctx); err != nil {
		s.logger.WithError(err).Warn("tracer shutdown failed")
	}
}

// solvedVariables are everything the solver writes: the registry's
// endogenous variables plus the cost block.
func (s *solveSession) solvedVariables() []string {
	return append(s.registry.Variables(), solver.CostBlock{}.Variables()...)
}

// persistRun saves the run record, the quarter reports, and the solved
// values to the configured SQLite store.
func persistRun(ctx context.Context, cfg *config.Config, sess *solveSession, result *solver.RunResult, runErr error) error {
	store, err := stores.NewSQLiteStore(stores.Config{Path: cfg.Store.Path})
	if err != nil {
		return err
	}
	if err := store.Init(ctx); err != nil {
		return err
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	status := stores.RunStatusSucceeded
	switch {
	case result.Aborted:
		status = stores.RunStatusFailed
	case result.NonConverged > 0:
		status = stores.RunStatusPartial
	}

	cfgJSON, err := json.Marshal(cfg.Solver)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	now := time.Now().UTC()
	run := &stores.Run{
		ID:          result.RunID,
		Start:       result.Start.String(),
		End:         result.End.String(),
		Status:      status,
		ConfigJSON:  string(cfgJSON),
		StartedAt:   now,
		CompletedAt: &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if runErr != nil {
		msg := runErr.Error()
		run.Error = &msg
	}
	if err := store.CreateRun(ctx, run); err != nil {
		return err
	}

	for _, r := range result.Reports {
		report := &stores.QuarterReport{
			RunID:          result.RunID,
			Period:         r.Period.String(),
			Iterations:     r.Iterations,
			Converged:      r.Converged,
			FinalMaxChange: r.FinalMaxChange,
			WorstVariable:  r.WorstVariable,
			DurationMs:     r.Duration.Milliseconds(),
		}
		if r.Failure != "" {
			failure := r.Failure
			report.Failure = &failure
		}
		if err := store.SaveQuarterReport(ctx, report); err != nil {
			return err
		}
	}

	// Only committed quarters carry durable values; a fatal quarter's
	// partial writes are never persisted.
	committed, ok := sess.state.CommittedThrough()
	if !ok {
		return nil
	}
	var values []stores.SolvedValue
	for _, r := range result.Reports {
		if r.Period.After(committed) {
			continue
		}
		for _, name := range sess.solvedVariables() {
			v, err := sess.state.Value(name, r.Period)
			if err != nil {
				continue
			}
			values = append(values, stores.SolvedValue{
				RunID:    result.RunID,
				Variable: name,
				Period:   r.Period.String(),
				Value:    v,
			})
		}
	}
	return store.SaveSolvedValues(ctx, values)
}
