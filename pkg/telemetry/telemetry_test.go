package telemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.input); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestLoggerChaining(t *testing.T) {
	log, err := NewLogger(LoggingConfig{Level: "debug", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	// Derived loggers share config and never panic on use.
	child := log.NewComponentLogger("solver").
		WithField("run_id", "abc").
		WithError(errors.New("boom"))
	child.Debug("chained")
	child.Infof("formatted %d", 1)

	Nop().Error("discarded")
}

func TestMetricsDisabledIsNoOp(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	// Recording against disabled metrics must be safe.
	m.RecordRunStarted()
	m.RecordRunCompleted("succeeded", time.Second)
	m.RecordQuarterSolved("converged", 20, 10*time.Millisecond)
	m.RecordEquationEvals(120)
	m.RecordError("non_convergence")

	if err := m.StartMetricsServer(Nop()); err != nil {
		t.Errorf("StartMetricsServer disabled: %v", err)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("disabled handler status = %d, want 404", rec.Code)
	}
}

func TestMetricsRecording(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: true, Namespace: "exchequer", Path: "/metrics"})
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	m.RecordRunStarted()
	m.RecordRunCompleted("succeeded", 2*time.Second)
	m.RecordQuarterSolved("converged", 18, 15*time.Millisecond)
	m.RecordQuarterSolved("non_convergence", 200, 80*time.Millisecond)
	m.RecordEquationEvals(1800)
	m.RecordError("non_convergence")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("handler status = %d", rec.Code)
	}

	body := rec.Body.String()
	for _, want := range []string{
		"exchequer_runs_started_total 1",
		`exchequer_quarters_solved_total{status="converged"} 1`,
		`exchequer_quarters_solved_total{status="non_convergence"} 1`,
		`exchequer_errors_by_kind_total{kind="non_convergence"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestTracerDisabled(t *testing.T) {
	tr, err := NewTracer(TracingConfig{Enabled: false}, "exchequer", "test", "dev")
	if err != nil {
		t.Fatalf("NewTracer: %v", err)
	}

	ctx, end := tr.StartRunSpan(context.Background(), "run-1")
	_, endQ := tr.StartQuarterSpan(ctx, "2025Q1")
	endQ(nil)
	end(errors.New("marks the span, never panics"))

	if err := tr.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestTracerRejectsUnknownExporter(t *testing.T) {
	_, err := NewTracer(TracingConfig{Enabled: true, Exporter: "jaeger"}, "exchequer", "test", "dev")
	if err == nil {
		t.Error("unknown exporter should be rejected")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ServiceName == "" {
		t.Error("ServiceName should have a default")
	}
	if cfg.Logging.Level == "" {
		t.Error("Logging.Level should have a default")
	}
}
