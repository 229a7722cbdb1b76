package scanner

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MisterBeardy/saintcalendar-sub000/internal/model"
	"github.com/MisterBeardy/saintcalendar-sub000/internal/progress"
	"github.com/MisterBeardy/saintcalendar-sub000/internal/source"
)

const (
	masterID = "mmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmm"
	locAID   = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	locBID   = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func masterHeader() []string {
	return []string{"Name", "City", "State", "Address", "Sheet ID", "Opened", "Closed"}
}

func TestMasterScanPartitions(t *testing.T) {
	data := map[string][][]string{
		"Open": {
			masterHeader(),
			{"Charlotte", "Charlotte", "NC", "123 Main St", locAID, "6/1/2018", ""},
		},
		"Pending": {
			masterHeader(),
			{"", "Austin", "", "9 Elm St", locBID, "", ""},
		},
		"Closed": {
			masterHeader(),
		},
	}
	src := &fakeSource{
		fetchFn: func(_ context.Context, _ string, ranges []string) ([]source.RangeData, error) {
			return rangesFor(ranges, data), nil
		},
	}

	run := model.NewPipelineRun()
	tracker := progress.NewTracker(0)
	summary, err := NewMasterScanner(src, masterID).Scan(context.Background(), run, tracker)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Valid)
	assert.Equal(t, 1, summary.PerStatus[model.StatusOpen])
	assert.Equal(t, 1, summary.PerStatus[model.StatusPending])
	assert.Empty(t, summary.FailedTabs)

	require.Len(t, run.Open, 1)
	loc := run.Open[0]
	assert.Equal(t, "Charlotte", loc.DisplayName)
	assert.Equal(t, model.StatusOpen, loc.Status)
	assert.True(t, loc.IsValid)
	require.NotNil(t, loc.OpenedOn)
	assert.Equal(t, 2018, loc.OpenedOn.Year())

	// Pending rows may omit display name, state, and opened date.
	require.Len(t, run.Pending, 1)
	assert.True(t, run.Pending[0].IsValid)
}

func TestMasterScanStatusDependentValidation(t *testing.T) {
	data := map[string][][]string{
		// Open row missing state and opened date.
		"Open": {
			masterHeader(),
			{"Durham", "Durham", "", "77 Oak St", locAID, "", ""},
		},
		"Pending": {masterHeader()},
		"Closed":  {masterHeader()},
	}
	src := &fakeSource{
		fetchFn: func(_ context.Context, _ string, ranges []string) ([]source.RangeData, error) {
			return rangesFor(ranges, data), nil
		},
	}

	run := model.NewPipelineRun()
	tracker := progress.NewTracker(0)
	summary, err := NewMasterScanner(src, masterID).Scan(context.Background(), run, tracker)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Total)
	assert.Zero(t, summary.Valid)
	require.Len(t, run.Open, 1)
	assert.False(t, run.Open[0].IsValid)
	assert.Contains(t, run.Open[0].ValidationErrors, "state is required for open locations")
	assert.Contains(t, run.Open[0].ValidationErrors, "opened date is required")
}

func TestMasterScanRejectsMalformedSourceID(t *testing.T) {
	data := map[string][][]string{
		"Open": {
			masterHeader(),
			{"Raleigh", "Raleigh", "NC", "5 Pine St", "not-a-doc-id", "6/1/2018", ""},
		},
		"Pending": {masterHeader()},
		"Closed":  {masterHeader()},
	}
	src := &fakeSource{
		fetchFn: func(_ context.Context, _ string, ranges []string) ([]source.RangeData, error) {
			return rangesFor(ranges, data), nil
		},
	}

	run := model.NewPipelineRun()
	_, err := NewMasterScanner(src, masterID).Scan(context.Background(), run, progress.NewTracker(0))
	require.NoError(t, err)

	require.Len(t, run.Open, 1)
	assert.False(t, run.Open[0].IsValid)
}

func TestMasterScanPartitionFailureContinues(t *testing.T) {
	data := map[string][][]string{
		"Open": {
			masterHeader(),
			{"Charlotte", "Charlotte", "NC", "123 Main St", locAID, "6/1/2018", ""},
		},
		"Closed": {masterHeader()},
	}
	src := &fakeSource{
		fetchFn: func(_ context.Context, _ string, ranges []string) ([]source.RangeData, error) {
			if ranges[0] == "Pending" {
				return nil, eris.New("backend exploded")
			}
			return rangesFor(ranges, data), nil
		},
	}

	run := model.NewPipelineRun()
	tracker := progress.NewTracker(0)
	summary, err := NewMasterScanner(src, masterID).Scan(context.Background(), run, tracker)
	require.NoError(t, err)

	assert.Equal(t, []string{"Pending"}, summary.FailedTabs)
	assert.Len(t, run.Open, 1)
	assert.NotEmpty(t, tracker.Errors())
}

func TestMasterScanDescribeFailureAborts(t *testing.T) {
	src := &fakeSource{
		describeFn: func(context.Context, string) (*source.DocumentInfo, error) {
			return nil, eris.New("permission denied")
		},
	}

	run := model.NewPipelineRun()
	_, err := NewMasterScanner(src, masterID).Scan(context.Background(), run, progress.NewTracker(0))
	require.Error(t, err)
	assert.Empty(t, run.Locations())
}

func TestMasterScanSkipsBlankRows(t *testing.T) {
	data := map[string][][]string{
		"Open": {
			masterHeader(),
			{"", "", "", "", "", "", ""},
			{"Charlotte", "Charlotte", "NC", "123 Main St", locAID, "6/1/2018", ""},
		},
		"Pending": {masterHeader()},
		"Closed":  {masterHeader()},
	}
	src := &fakeSource{
		fetchFn: func(_ context.Context, _ string, ranges []string) ([]source.RangeData, error) {
			return rangesFor(ranges, data), nil
		},
	}

	run := model.NewPipelineRun()
	summary, err := NewMasterScanner(src, masterID).Scan(context.Background(), run, progress.NewTracker(0))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Total)
}
