package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MisterBeardy/saintcalendar-sub000/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_RunLifecycle(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusQueued, run.Status)

	require.NoError(t, st.UpdateRunStatus(ctx, run.ID, model.RunStatusScanning))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusScanning, got.Status)
	assert.Nil(t, got.Summary)

	summary := &model.RunSummary{
		LocationsTotal: 3,
		LocationsValid: 2,
		Saints:         10,
		QualityScore:   0.95,
		GatePassed:     true,
		Imported:       12,
	}
	require.NoError(t, st.UpdateRunSummary(ctx, run.ID, model.RunStatusComplete, summary))

	got, err = st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	require.NotNil(t, got.Summary)
	assert.Equal(t, 12, got.Summary.Imported)
	assert.True(t, got.Summary.GatePassed)
}

func TestSQLite_RunNotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.UpdateRunStatus(context.Background(), "missing", model.RunStatusFailed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_ListRunsFilter(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	r1, err := st.CreateRun(ctx)
	require.NoError(t, err)
	_, err = st.CreateRun(ctx)
	require.NoError(t, err)
	require.NoError(t, st.UpdateRunStatus(ctx, r1.ID, model.RunStatusComplete))

	complete, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, complete, 1)
	assert.Equal(t, r1.ID, complete[0].ID)

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSQLite_PhaseLifecycle(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx)
	require.NoError(t, err)

	phase, err := st.CreatePhase(ctx, run.ID, "master_scan")
	require.NoError(t, err)
	assert.Equal(t, model.PhaseStatusRunning, phase.Status)

	err = st.CompletePhase(ctx, phase.ID, model.PhaseStatusComplete, 2*time.Second, "")
	require.NoError(t, err)

	err = st.CompletePhase(ctx, "missing", model.PhaseStatusFailed, 0, "boom")
	require.Error(t, err)

	notify, err := st.CreatePhase(ctx, run.ID, "notify")
	require.NoError(t, err)
	require.NoError(t, st.CompletePhase(ctx, notify.ID, model.PhaseStatusWarning, time.Second, "refresh pending"))

	phases, err := st.ListPhases(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, phases, 2)
	assert.Equal(t, "master_scan", phases[0].Name)
	assert.Equal(t, model.PhaseStatusComplete, phases[0].Status)
	assert.Equal(t, int64(2000), phases[0].DurationMS)
	assert.Equal(t, "notify", phases[1].Name)
	assert.Equal(t, model.PhaseStatusWarning, phases[1].Status)
	assert.Equal(t, "refresh pending", phases[1].Error)
}

func TestSQLite_ImportTransactionRoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	tx, err := st.Begin(ctx)
	require.NoError(t, err)

	opened := time.Date(2018, time.June, 1, 0, 0, 0, 0, time.UTC)
	locID, err := tx.CreateLocation(ctx, &model.LocationRecord{
		SourceID:    "src-1",
		DisplayName: "Charlotte",
		City:        "Charlotte",
		Region:      "NC",
		Address:     "123 Main St",
		Status:      model.StatusOpen,
		OpenedOn:    &opened,
	})
	require.NoError(t, err)

	saintID, err := tx.CreateSaint(ctx, &model.SaintRecord{
		Number:    "1",
		SaintName: "Bruce",
		LegalName: "Bruce Legal",
		FeastDate: model.MonthDay{Month: time.March, Day: 14},
		FeastYear: 2018,
	}, locID)
	require.NoError(t, err)

	stickerID, err := tx.CreateSticker(ctx, "bruce_2023.png")
	require.NoError(t, err)

	histID, err := tx.CreateHistorical(ctx, &model.HistoricalRecord{
		Number:   "1",
		Year:     2023,
		Burger:   "The Classic - lettuce, tomato",
		TapBeers: "Hop Drop",
	}, saintID, stickerID)
	require.NoError(t, err)

	eventDate := time.Date(2023, time.March, 14, 0, 0, 0, 0, time.UTC)
	_, err = tx.CreateEvent(ctx, saintID, histID, "Bruce 2023", eventDate)
	require.NoError(t, err)

	_, err = tx.CreateMilestone(ctx, &model.MilestoneRecord{
		Number:      "1",
		Date:        time.Date(2023, time.March, 14, 0, 0, 0, 0, time.UTC),
		Description: "5th feast",
		Count:       5,
	}, saintID, "")
	require.NoError(t, err)

	require.NoError(t, tx.UpdateSaintTotals(ctx))
	require.NoError(t, tx.Commit(ctx))

	// Natural keys resolve in a fresh transaction after commit.
	tx2, err := st.Begin(ctx)
	require.NoError(t, err)
	defer tx2.Rollback(ctx) //nolint:errcheck

	gotLoc, err := tx2.FindLocationBySourceID(ctx, "src-1")
	require.NoError(t, err)
	assert.Equal(t, locID, gotLoc)

	gotSaint, err := tx2.FindSaint(ctx, locID, "1")
	require.NoError(t, err)
	assert.Equal(t, saintID, gotSaint)

	gotSticker, err := tx2.FindSticker(ctx, "bruce_2023.png")
	require.NoError(t, err)
	assert.Equal(t, stickerID, gotSticker)

	gotHist, err := tx2.FindHistorical(ctx, saintID, 2023)
	require.NoError(t, err)
	assert.Equal(t, histID, gotHist)

	gotEvent, err := tx2.FindEvent(ctx, saintID, eventDate)
	require.NoError(t, err)
	assert.NotEmpty(t, gotEvent)
}

func TestSQLite_RollbackDiscardsWrites(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	tx, err := st.Begin(ctx)
	require.NoError(t, err)

	_, err = tx.CreateLocation(ctx, &model.LocationRecord{
		SourceID: "src-rollback",
		City:     "Durham",
		Address:  "1 Oak St",
		Status:   model.StatusPending,
	})
	require.NoError(t, err)
	require.NoError(t, tx.Rollback(ctx))

	tx2, err := st.Begin(ctx)
	require.NoError(t, err)
	defer tx2.Rollback(ctx) //nolint:errcheck

	id, err := tx2.FindLocationBySourceID(ctx, "src-rollback")
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestSQLite_FindMissingReturnsEmpty(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx) //nolint:errcheck

	id, err := tx.FindSaint(ctx, "loc-x", "99")
	require.NoError(t, err)
	assert.Empty(t, id)

	id, err = tx.FindMilestone(ctx, "saint-x", time.Now(), "none")
	require.NoError(t, err)
	assert.Empty(t, id)
}
