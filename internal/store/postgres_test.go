package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MisterBeardy/saintcalendar-sub000/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(pgxmock.AnyArg(), string(model.RunStatusQueued), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, status, summary, created_at, updated_at FROM runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get run")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRunStatus_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status`).
		WithArgs(string(model.RunStatusFailed), pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateRunStatus(context.Background(), "missing", model.RunStatusFailed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompletePhase(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE run_phases SET status`).
		WithArgs(string(model.PhaseStatusComplete), int64(1500), "", "phase-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.CompletePhase(context.Background(), "phase-1", model.PhaseStatusComplete, 1500*time.Millisecond, "")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListPhases(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	started := time.Date(2026, time.August, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, run_id, name, status, started_at, duration_ms, error FROM run_phases WHERE run_id = \$1`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "run_id", "name", "status", "started_at", "duration_ms", "error"}).
			AddRow("ph-1", "run-1", "import", model.PhaseStatusComplete, started, int64(1200), "").
			AddRow("ph-2", "run-1", "notify", model.PhaseStatusWarning, started, int64(5000), "refresh pending"))

	phases, err := s.ListPhases(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, phases, 2)
	assert.Equal(t, model.PhaseStatusWarning, phases[1].Status)
	assert.Equal(t, "refresh pending", phases[1].Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTx_FindLocation_Missing(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM locations WHERE source_id = \$1`).
		WithArgs("unknown-source").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	tx, err := s.Begin(context.Background())
	require.NoError(t, err)

	id, err := tx.FindLocationBySourceID(context.Background(), "unknown-source")
	require.NoError(t, err)
	assert.Empty(t, id)

	require.NoError(t, tx.Rollback(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTx_CreateAndCommit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO locations`).
		WithArgs(pgxmock.AnyArg(), "src-1", "Charlotte", "Charlotte", "NC", "123 Main St",
			string(model.StatusOpen), nil, nil).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE saints SET total_events`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectCommit()

	tx, err := s.Begin(context.Background())
	require.NoError(t, err)

	loc := &model.LocationRecord{
		SourceID:    "src-1",
		DisplayName: "Charlotte",
		City:        "Charlotte",
		Region:      "NC",
		Address:     "123 Main St",
		Status:      model.StatusOpen,
	}
	id, err := tx.CreateLocation(context.Background(), loc)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	require.NoError(t, tx.UpdateSaintTotals(context.Background()))
	require.NoError(t, tx.Commit(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTx_RollbackOnFailure(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO saints`).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	tx, err := s.Begin(context.Background())
	require.NoError(t, err)

	saint := &model.SaintRecord{
		Number:    "1",
		SaintName: "Bruce",
		FeastDate: model.MonthDay{Month: time.March, Day: 14},
	}
	_, err = tx.CreateSaint(context.Background(), saint, "loc-1")
	require.Error(t, err)

	require.NoError(t, tx.Rollback(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
