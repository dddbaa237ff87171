// Package config defines the configuration surface consumed by the solver
// core: damping, convergence, horizon, failure policy, and the ambient
// telemetry and store settings. Configs are loaded from YAML and validated
// before use.
package config

import (
	"github.com/exchequer/exchequer/pkg/model"
	"github.com/exchequer/exchequer/pkg/solver"
	"github.com/exchequer/exchequer/pkg/telemetry"
)

// Config is the root configuration document.
type Config struct {
	// Solver contains the iteration parameters.
	Solver SolverConfig `yaml:"solver"`

	// Horizon bounds the forecast.
	Horizon HorizonConfig `yaml:"horizon" validate:"required"`

	// Telemetry configures logging, metrics, and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Store configures result persistence.
	Store StoreConfig `yaml:"store"`
}

// SolverConfig holds the iteration parameters.
type SolverConfig struct {
	// Damping is the global update fraction in (0, 1].
	Damping float64 `yaml:"damping" validate:"gt=0,lte=1"`

	// GroupDamping overrides Damping for oscillation-prone groups,
	// keyed by group id.
	GroupDamping map[string]float64 `yaml:"group_damping,omitempty" validate:"dive,gt=0,lte=1"`

	// Tolerance is the convergence threshold on the max relative change.
	Tolerance float64 `yaml:"tolerance" validate:"gt=0"`

	// MaxIterations caps the passes per quarter.
	MaxIterations int `yaml:"max_iterations" validate:"gt=0"`

	// Epsilon floors the relative-change denominator.
	Epsilon float64 `yaml:"epsilon,omitempty" validate:"omitempty,gt=0"`

	// FailurePolicy selects how non-converged quarters are handled:
	// continue (flag and move on) or abort.
	FailurePolicy string `yaml:"failure_policy" validate:"oneof=continue abort"`
}

// HorizonConfig bounds the forecast horizon.
type HorizonConfig struct {
	// Start is the first forecast quarter, e.g. "2025Q1".
	Start model.Period `yaml:"start"`

	// End is the last forecast quarter, inclusive.
	End model.Period `yaml:"end"`
}

// TelemetryConfig holds the file-facing telemetry settings.
type TelemetryConfig struct {
	// LogLevel sets the minimum log level.
	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=trace debug info warn error fatal"`

	// LogFormat selects console or json output.
	LogFormat string `yaml:"log_format" validate:"omitempty,oneof=console json"`

	// MetricsEnabled turns on the Prometheus endpoint.
	MetricsEnabled bool `yaml:"metrics_enabled"`

	// MetricsListen is the metrics endpoint address.
	MetricsListen string `yaml:"metrics_listen,omitempty"`

	// TracingEnabled turns on run/quarter spans.
	TracingEnabled bool `yaml:"tracing_enabled"`
}

// StoreConfig configures the SQLite result store.
type StoreConfig struct {
	// Path is the database file path; empty disables persistence.
	Path string `yaml:"path,omitempty"`
}

// Default returns a configuration with calibrated solver defaults and a
// horizon the caller is expected to override.
func Default() *Config {
	return &Config{
		Solver: SolverConfig{
			Damping:       solver.DefaultDamping,
			Tolerance:     solver.DefaultTolerance,
			MaxIterations: solver.DefaultMaxIterations,
			Epsilon:       solver.DefaultEpsilon,
			FailurePolicy: string(solver.PolicyAbort),
		},
		Horizon: HorizonConfig{
			Start: model.NewPeriod(2025, 1),
			End:   model.NewPeriod(2030, 4),
		},
		Telemetry: TelemetryConfig{
			LogLevel:      "info",
			LogFormat:     "console",
			MetricsListen: ":9090",
		},
	}
}

// Options converts the solver section into iterator options.
func (c *Config) Options() solver.Options {
	return solver.Options{
		Damping:       c.Solver.Damping,
		GroupDamping:  c.Solver.GroupDamping,
		Tolerance:     c.Solver.Tolerance,
		MaxIterations: c.Solver.MaxIterations,
		Epsilon:       c.Solver.Epsilon,
	}
}

// Policy returns the configured failure policy.
func (c *Config) Policy() solver.FailurePolicy {
	return solver.FailurePolicy(c.Solver.FailurePolicy)
}

// TelemetrySettings expands the file-facing telemetry settings into the
// full telemetry configuration.
func (c *Config) TelemetrySettings(version string) *telemetry.Config {
	tc := telemetry.DefaultConfig()
	tc.ServiceVersion = version
	if c.Telemetry.LogLevel != "" {
		tc.Logging.Level = c.Telemetry.LogLevel
	}
	if c.Telemetry.LogFormat != "" {
		tc.Logging.Format = c.Telemetry.LogFormat
	}
	tc.Metrics.Enabled = c.Telemetry.MetricsEnabled
	if c.Telemetry.MetricsListen != "" {
		tc.Metrics.ListenAddress = c.Telemetry.MetricsListen
	}
	tc.Tracing.Enabled = c.Telemetry.TracingEnabled
	return tc
}
