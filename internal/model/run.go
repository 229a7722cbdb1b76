package model

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus tracks a pipeline run through its phases.
type RunStatus string

const (
	RunStatusQueued     RunStatus = "queued"
	RunStatusScanning   RunStatus = "scanning"
	RunStatusValidating RunStatus = "validating"
	RunStatusImporting  RunStatus = "importing"
	RunStatusComplete   RunStatus = "complete"
	RunStatusFailed     RunStatus = "failed"
)

// PhaseStatus tracks a single phase within a run.
type PhaseStatus string

const (
	PhaseStatusRunning  PhaseStatus = "running"
	PhaseStatusComplete PhaseStatus = "complete"
	PhaseStatusFailed   PhaseStatus = "failed"
	// PhaseStatusWarning marks a best-effort phase that errored without
	// affecting the run, such as the downstream refresh.
	PhaseStatusWarning PhaseStatus = "warning"
	PhaseStatusSkipped PhaseStatus = "skipped"
)

// Run is the persisted record of one pipeline execution.
type Run struct {
	ID        string      `json:"id"`
	Status    RunStatus   `json:"status"`
	Summary   *RunSummary `json:"summary,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// RunPhase is the persisted record of one phase within a run.
type RunPhase struct {
	ID         string      `json:"id"`
	RunID      string      `json:"run_id"`
	Name       string      `json:"name"`
	Status     PhaseStatus `json:"status"`
	StartedAt  time.Time   `json:"started_at"`
	DurationMS int64       `json:"duration_ms"`
	Error      string      `json:"error,omitempty"`
}

// RunSummary is the caller-facing digest saved with a completed run.
type RunSummary struct {
	LocationsTotal int     `json:"locations_total"`
	LocationsValid int     `json:"locations_valid"`
	Saints         int     `json:"saints"`
	Historical     int     `json:"historical"`
	Milestones     int     `json:"milestones"`
	QualityScore   float64 `json:"quality_score"`
	GatePassed     bool    `json:"gate_passed"`
	Imported       int     `json:"imported"`
	Skipped        int     `json:"skipped"`
	Errors         int     `json:"errors"`
	Warnings       int     `json:"warnings"`
}

// PipelineRun owns all in-memory state accumulated across phases of a
// single run. It is created by the orchestrator and passed by reference
// through each phase, so concurrent or repeated runs never share state.
type PipelineRun struct {
	ID string

	// Phase 1 output, partitioned by status.
	Open    []*LocationRecord
	Pending []*LocationRecord
	Closed  []*LocationRecord

	// Phase 2 output.
	Saints     []*SaintRecord
	Historical []*HistoricalRecord
	Milestones []*MilestoneRecord

	// Phase 3 / 4 output.
	Report  *ValidationReport
	Outcome *ImportOutcome
}

// NewPipelineRun creates an empty run with a fresh id.
func NewPipelineRun() *PipelineRun {
	return &PipelineRun{ID: uuid.New().String()}
}

// Locations returns all scanned locations in status order.
func (r *PipelineRun) Locations() []*LocationRecord {
	out := make([]*LocationRecord, 0, len(r.Open)+len(r.Pending)+len(r.Closed))
	out = append(out, r.Open...)
	out = append(out, r.Pending...)
	out = append(out, r.Closed...)
	return out
}

// ValidLocations returns the locations that passed the master scan checks.
func (r *PipelineRun) ValidLocations() []*LocationRecord {
	var out []*LocationRecord
	for _, l := range r.Locations() {
		if l.IsValid {
			out = append(out, l)
		}
	}
	return out
}

// LocationBySourceID finds a scanned location by its external id.
func (r *PipelineRun) LocationBySourceID(sourceID string) *LocationRecord {
	for _, l := range r.Locations() {
		if l.SourceID == sourceID {
			return l
		}
	}
	return nil
}
