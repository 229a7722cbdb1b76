package store

import (
	"context"
	"time"

	"github.com/MisterBeardy/saintcalendar-sub000/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the import pipeline.
type Store interface {
	// Begin opens the transaction the import phase writes through. All
	// entity writes of one run share a single transaction so a failure
	// rolls back to the pre-run state.
	Begin(ctx context.Context) (TxStore, error)

	// Runs
	CreateRun(ctx context.Context) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunSummary(ctx context.Context, runID string, status model.RunStatus, summary *model.RunSummary) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Phases
	CreatePhase(ctx context.Context, runID string, name string) (*model.RunPhase, error)
	CompletePhase(ctx context.Context, phaseID string, status model.PhaseStatus, duration time.Duration, errMsg string) error
	ListPhases(ctx context.Context, runID string) ([]model.RunPhase, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// TxStore is the entity-write surface of one open import transaction.
// Every Find operation looks up by natural key and returns ("", nil)
// when no row exists, so callers can decide between create and skip.
type TxStore interface {
	FindLocationBySourceID(ctx context.Context, sourceID string) (string, error)
	CreateLocation(ctx context.Context, loc *model.LocationRecord) (string, error)

	FindSaint(ctx context.Context, locationID, number string) (string, error)
	CreateSaint(ctx context.Context, s *model.SaintRecord, locationID string) (string, error)

	FindSticker(ctx context.Context, fileName string) (string, error)
	CreateSticker(ctx context.Context, fileName string) (string, error)

	FindHistorical(ctx context.Context, saintID string, year int) (string, error)
	CreateHistorical(ctx context.Context, h *model.HistoricalRecord, saintID, stickerID string) (string, error)

	FindEvent(ctx context.Context, saintID string, date time.Time) (string, error)
	CreateEvent(ctx context.Context, saintID, historicalID, title string, date time.Time) (string, error)

	FindMilestone(ctx context.Context, saintID string, date time.Time, description string) (string, error)
	CreateMilestone(ctx context.Context, m *model.MilestoneRecord, saintID, stickerID string) (string, error)

	// UpdateSaintTotals recomputes each saint's event count from the
	// events present after this transaction's writes.
	UpdateSaintTotals(ctx context.Context) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
