package stores

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return store
}

func testRun() *Run {
	now := time.Now().UTC().Truncate(time.Second)
	return &Run{
		ID:         uuid.New().String(),
		Start:      "2025Q1",
		End:        "2025Q4",
		Status:     RunStatusRunning,
		ConfigJSON: `{"damping":0.7}`,
		StartedAt:  now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestNewSQLiteStoreRequiresPath(t *testing.T) {
	if _, err := NewSQLiteStore(Config{}); err == nil {
		t.Error("empty path should be rejected")
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := setupTestStore(t)
	if err := store.Migrate(context.Background()); err != nil {
		t.Errorf("second Migrate: %v", err)
	}
}

func TestRunLifecycle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	run := testRun()

	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	got, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.ID != run.ID || got.Start != "2025Q1" || got.End != "2025Q4" {
		t.Errorf("GetRun = %+v", got)
	}
	if got.Status != RunStatusRunning {
		t.Errorf("Status = %s, want running", got.Status)
	}
	if got.CompletedAt != nil || got.Error != nil {
		t.Error("CompletedAt and Error should be null for a running run")
	}

	// Complete the run.
	completed := time.Now().UTC().Truncate(time.Second)
	errMsg := "[non_convergence] iteration cap reached"
	run.Status = RunStatusPartial
	run.CompletedAt = &completed
	run.Error = &errMsg
	if err := store.UpdateRun(ctx, run); err != nil {
		t.Fatalf("UpdateRun: %v", err)
	}

	got, err = store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun after update: %v", err)
	}
	if got.Status != RunStatusPartial {
		t.Errorf("Status = %s, want partial", got.Status)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(completed) {
		t.Errorf("CompletedAt = %v, want %v", got.CompletedAt, completed)
	}
	if got.Error == nil || *got.Error != errMsg {
		t.Errorf("Error = %v, want %q", got.Error, errMsg)
	}
}

func TestGetRunNotFound(t *testing.T) {
	store := setupTestStore(t)
	_, err := store.GetRun(context.Background(), "nope")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("GetRun(nope) = %v, want not found", err)
	}
}

func TestUpdateRunNotFound(t *testing.T) {
	store := setupTestStore(t)
	run := testRun()
	if err := store.UpdateRun(context.Background(), run); err == nil {
		t.Error("updating a nonexistent run should fail")
	}
}

func TestListRuns(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		run := testRun()
		run.StartedAt = run.StartedAt.Add(time.Duration(i) * time.Minute)
		if err := store.CreateRun(ctx, run); err != nil {
			t.Fatalf("CreateRun %d: %v", i, err)
		}
	}

	runs, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(runs))
	}
	// Most recent first.
	for i := 1; i < len(runs); i++ {
		if runs[i].StartedAt.After(runs[i-1].StartedAt) {
			t.Error("runs not ordered most recent first")
		}
	}

	limited, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns limited: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("got %d runs with limit 2", len(limited))
	}
}

func TestQuarterReports(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	run := testRun()
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatal(err)
	}

	for i, period := range []string{"2025Q2", "2025Q1"} {
		report := &QuarterReport{
			RunID:          run.ID,
			Period:         period,
			Iterations:     20 + i,
			Converged:      true,
			FinalMaxChange: 3.2e-9,
			WorstVariable:  "CPI",
			DurationMs:     12,
		}
		if err := store.SaveQuarterReport(ctx, report); err != nil {
			t.Fatalf("SaveQuarterReport: %v", err)
		}
	}

	reports, err := store.ListQuarterReports(ctx, run.ID)
	if err != nil {
		t.Fatalf("ListQuarterReports: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("got %d reports, want 2", len(reports))
	}
	// Period order regardless of insertion order.
	if reports[0].Period != "2025Q1" || reports[1].Period != "2025Q2" {
		t.Errorf("reports out of order: %s, %s", reports[0].Period, reports[1].Period)
	}
	if reports[0].Iterations != 21 || !reports[0].Converged {
		t.Errorf("report = %+v", reports[0])
	}

	// Re-saving the same quarter upserts.
	failure := "[non_convergence] iteration cap reached"
	if err := store.SaveQuarterReport(ctx, &QuarterReport{
		RunID:      run.ID,
		Period:     "2025Q1",
		Iterations: 200,
		Converged:  false,
		Failure:    &failure,
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	reports, _ = store.ListQuarterReports(ctx, run.ID)
	if len(reports) != 2 {
		t.Fatalf("upsert created a duplicate: %d reports", len(reports))
	}
	if reports[0].Iterations != 200 || reports[0].Converged {
		t.Errorf("upsert did not replace: %+v", reports[0])
	}
	if reports[0].Failure == nil || *reports[0].Failure != failure {
		t.Errorf("Failure = %v", reports[0].Failure)
	}
}

func TestSolvedValues(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	run := testRun()
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatal(err)
	}

	values := []SolvedValue{
		{RunID: run.ID, Variable: "GDPM", Period: "2025Q2", Value: 542.1},
		{RunID: run.ID, Variable: "GDPM", Period: "2025Q1", Value: 540.5},
		{RunID: run.ID, Variable: "CPI", Period: "2025Q1", Value: 100.4},
	}
	if err := store.SaveSolvedValues(ctx, values); err != nil {
		t.Fatalf("SaveSolvedValues: %v", err)
	}

	got, err := store.GetSolvedValues(ctx, run.ID, "GDPM")
	if err != nil {
		t.Fatalf("GetSolvedValues: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d values, want 2", len(got))
	}
	if got[0].Period != "2025Q1" || got[0].Value != 540.5 {
		t.Errorf("values out of period order: %+v", got)
	}

	// Empty input is a no-op.
	if err := store.SaveSolvedValues(ctx, nil); err != nil {
		t.Errorf("SaveSolvedValues(nil): %v", err)
	}

	// Replacing a value keys on (run, variable, period).
	if err := store.SaveSolvedValues(ctx, []SolvedValue{
		{RunID: run.ID, Variable: "GDPM", Period: "2025Q1", Value: 541},
	}); err != nil {
		t.Fatal(err)
	}
	got, _ = store.GetSolvedValues(ctx, run.ID, "GDPM")
	if len(got) != 2 || got[0].Value != 541 {
		t.Errorf("replace did not upsert: %+v", got)
	}
}

func TestHealthCheck(t *testing.T) {
	store := setupTestStore(t)
	if err := store.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck: %v", err)
	}

	uninit := &SQLiteStore{}
	if err := uninit.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck on uninitialized store should fail")
	}
}
