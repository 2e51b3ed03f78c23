package scenario

import "time"

// Status is the state of a run: pending, then running, then exactly one of
// succeeded or failed.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Result is the outcome of one scenario run.
type Result struct {
	Scenario  string        `json:"scenario"`
	Status    Status        `json:"status"`
	Error     string        `json:"error,omitempty"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`

	// SessionID identifies the browser session the run used
	SessionID string `json:"session_id,omitempty"`

	// Artifact is the last evidence screenshot of a successful run
	Artifact string `json:"artifact,omitempty"`

	// Artifacts lists every screenshot written by the run's steps
	Artifacts []string `json:"artifacts,omitempty"`

	// Diagnostics lists the files captured on failure
	Diagnostics []string `json:"diagnostics,omitempty"`

	// DiagnosticErrors records failures while capturing diagnostics or
	// writing summaries; they never replace Error
	DiagnosticErrors []string `json:"diagnostic_errors,omitempty"`

	// Outline is the cleaned DOM outline captured on failure
	Outline string `json:"-"`

	Steps []StepRecord `json:"steps"`
}

// StepRecord is the outcome of one executed step.
type StepRecord struct {
	Index       int           `json:"index"`
	Kind        StepKind      `json:"kind"`
	Description string        `json:"description"`
	Status      Status        `json:"status"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
}

// Succeeded reports whether the run succeeded.
func (r *Result) Succeeded() bool {
	return r.Status == StatusSucceeded
}

func (r *Result) diagnosticError(err error) {
	r.DiagnosticErrors = append(r.DiagnosticErrors, err.Error())
}
