package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MisterBeardy/saintcalendar-sub000/internal/model"
	"github.com/MisterBeardy/saintcalendar-sub000/internal/progress"
	"github.com/MisterBeardy/saintcalendar-sub000/internal/validator"
)

func TestFormatRunsList(t *testing.T) {
	created := time.Date(2026, time.August, 1, 9, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:        "11111111-2222-3333-4444-555555555555",
			Status:    model.RunStatusComplete,
			CreatedAt: created,
			UpdatedAt: created.Add(90 * time.Second),
			Summary: &model.RunSummary{
				LocationsTotal: 12,
				LocationsValid: 11,
				Imported:       340,
				GatePassed:     true,
			},
		},
		{
			ID:        "99999999-8888-7777-6666-555555555555",
			Status:    model.RunStatusFailed,
			CreatedAt: created,
			UpdatedAt: created.Add(5 * time.Second),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)
	out := buf.String()

	assert.Contains(t, out, "11111111")
	assert.NotContains(t, out, "11111111-2222")
	assert.Contains(t, out, "11/12")
	assert.Contains(t, out, "340")
	assert.Contains(t, out, "PASS")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "2026-08-01 09:30")
	assert.Contains(t, out, "1m30s")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "12345678", truncateID("12345678-abcd"))
	assert.Equal(t, "short", truncateID("short"))
}

func TestFormatOutcome(t *testing.T) {
	o := &model.ImportOutcome{
		Locations:     model.EntityOutcome{Imported: 2},
		Saints:        model.EntityOutcome{Imported: 40, Skipped: 3},
		Historical:    model.EntityOutcome{Imported: 120},
		EventsCreated: 120,
		Success:       true,
	}
	o.Skip("saint", "#12", "already imported")

	var buf bytes.Buffer
	formatOutcome(&buf, o)
	out := buf.String()

	assert.Contains(t, out, "saints")
	assert.Contains(t, out, "40")
	assert.Contains(t, out, "Skipped (1)")
	assert.Contains(t, out, "already imported")
}

func TestFormatScan(t *testing.T) {
	run := model.NewPipelineRun()
	run.Open = []*model.LocationRecord{{SourceID: "a", IsValid: true}}
	run.Pending = []*model.LocationRecord{{SourceID: "b"}}
	run.Saints = []*model.SaintRecord{{Number: "1"}}

	tracker := progress.NewTracker(0)
	tracker.Error("location B: sheet id is required")

	var buf bytes.Buffer
	formatScan(&buf, run, tracker)
	out := buf.String()

	assert.Contains(t, out, "Open locations:")
	assert.Contains(t, out, "Pending locations:")
	assert.Contains(t, out, "Valid locations:")
	assert.Contains(t, out, "Errors (1)")
	assert.Contains(t, out, "sheet id is required")
}

func TestFormatValidation(t *testing.T) {
	run := model.NewPipelineRun()
	run.Open = []*model.LocationRecord{{
		SourceID:         "bad id",
		Status:           model.StatusOpen,
		IsValid:          false,
		ValidationErrors: []string{"sheet id \"bad id\" is not a valid document id"},
	}}

	res := validator.New(validator.DefaultRules()).Validate(run)

	var buf bytes.Buffer
	formatValidation(&buf, res, false)
	out := buf.String()

	assert.Contains(t, out, "KIND")
	assert.Contains(t, out, "locations")
	assert.Contains(t, out, "Gate: FAIL")
	assert.Contains(t, out, "Location issues (1)")
	assert.Contains(t, out, "not a valid document id")
}

func TestGateLabel(t *testing.T) {
	assert.Equal(t, "PASS", gateLabel(true))
	assert.Equal(t, "FAIL", gateLabel(false))
}
