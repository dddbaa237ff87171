package stores

import "time"

// RunStatus represents the outcome of a solver run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusPartial   RunStatus = "partial"
	RunStatusFailed    RunStatus = "failed"
)

// Run is the persisted record of one solver run.
type Run struct {
	ID          string     `json:"id"`
	Start       string     `json:"start"`
	End         string     `json:"end"`
	Status      RunStatus  `json:"status"`
	ConfigJSON  string     `json:"config_json"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       *string    `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// QuarterReport is the persisted convergence report for one quarter of a
// run.
type QuarterReport struct {
	ID             int64   `json:"id"`
	RunID          string  `json:"run_id"`
	Period         string  `json:"period"`
	Iterations     int     `json:"iterations"`
	Converged      bool    `json:"converged"`
	FinalMaxChange float64 `json:"final_max_change"`
	WorstVariable  string  `json:"worst_variable"`
	DurationMs     int64   `json:"duration_ms"`
	Failure        *string `json:"failure,omitempty"`
}

// SolvedValue is one solved variable value at one quarter, persisted for
// the reporting collaborator.
type SolvedValue struct {
	RunID    string  `json:"run_id"`
	Variable string  `json:"variable"`
	Period   string  `json:"period"`
	Value    float64 `json:"value"`
}
