package scanner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/MisterBeardy/saintcalendar-sub000/internal/model"
	"github.com/MisterBeardy/saintcalendar-sub000/internal/progress"
	"github.com/MisterBeardy/saintcalendar-sub000/internal/source"
)

// statusTabs maps each status partition to its tab on the master document.
var statusTabs = map[model.LocationStatus]string{
	model.StatusOpen:    "Open",
	model.StatusPending: "Pending",
	model.StatusClosed:  "Closed",
}

// MasterScanner reads the master index document, one status tab at a
// time, into LocationRecords.
type MasterScanner struct {
	src      source.TabularSource
	masterID string
}

// NewMasterScanner creates a scanner for the given master document.
func NewMasterScanner(src source.TabularSource, masterID string) *MasterScanner {
	return &MasterScanner{src: src, masterID: masterID}
}

// MasterSummary reports the outcome of a master scan.
type MasterSummary struct {
	Total      int
	Valid      int
	PerStatus  map[model.LocationStatus]int
	FailedTabs []string
}

// Scan fetches each status partition and appends parsed locations to the
// run. A partition fetch failure is recorded and skipped; a document-level
// access failure aborts the whole scan.
func (s *MasterScanner) Scan(ctx context.Context, run *model.PipelineRun, tracker *progress.Tracker) (*MasterSummary, error) {
	log := zap.L().With(zap.String("component", "scanner.master"))

	// Document-level access check up front so a bad id or credential
	// fails the scan instead of failing three times per tab.
	doc, err := s.src.Describe(ctx, s.masterID)
	if err != nil {
		return nil, eris.Wrap(err, "master scan: describe document")
	}
	log.Info("master document resolved", zap.String("title", doc.Title), zap.Int("tabs", len(doc.Tabs)))

	summary := &MasterSummary{PerStatus: make(map[model.LocationStatus]int)}

	for _, status := range model.Statuses {
		tab := statusTabs[status]

		ranges, err := s.src.FetchRanges(ctx, s.masterID, []string{tab})
		if err != nil {
			// Per-partition failure: record it and keep going. The caller
			// decides whether a partial master scan is acceptable.
			tracker.Error(fmt.Sprintf("partition %s: %v", tab, err))
			summary.FailedTabs = append(summary.FailedTabs, tab)
			log.Warn("partition fetch failed", zap.String("tab", tab), zap.Error(err))
			continue
		}
		if len(ranges) == 0 {
			continue
		}

		locs := s.parsePartition(status, ranges[0].Rows)
		for _, l := range locs {
			summary.Total++
			summary.PerStatus[status]++
			if l.IsValid {
				summary.Valid++
				tracker.Complete()
			} else {
				tracker.Error(fmt.Sprintf("location %s: %s", l.Label(), strings.Join(l.ValidationErrors, "; ")))
			}
		}

		switch status {
		case model.StatusOpen:
			run.Open = append(run.Open, locs...)
		case model.StatusPending:
			run.Pending = append(run.Pending, locs...)
		case model.StatusClosed:
			run.Closed = append(run.Closed, locs...)
		}

		log.Info("partition scanned",
			zap.String("tab", tab),
			zap.Int("rows", len(locs)),
		)
	}

	tracker.SetTotal(summary.Total)
	return summary, nil
}

// parsePartition maps partition rows into LocationRecords, skipping the
// header row and blank rows.
func (s *MasterScanner) parsePartition(status model.LocationStatus, rows [][]string) []*model.LocationRecord {
	var out []*model.LocationRecord
	for i, row := range rows {
		if i == 0 || blankRow(row) {
			continue
		}
		out = append(out, parseLocationRow(status, row))
	}
	return out
}

// parseLocationRow decodes one master row. Validation policy depends on
// the partition: open locations must carry region, display name, and a
// well-formed opened date; pending and closed ones may omit them, but a
// present date must still parse.
func parseLocationRow(status model.LocationStatus, row []string) *model.LocationRecord {
	loc := &model.LocationRecord{Status: status}

	var errs []string
	if err := checkShape("location", row, locMinCols); err != nil {
		loc.ValidationErrors = []string{err.Error()}
		return loc
	}

	loc.DisplayName = cell(row, locColName)
	loc.City = cell(row, locColCity)
	loc.Region = cell(row, locColRegion)
	loc.Address = cell(row, locColAddress)
	loc.SourceID = cell(row, locColSourceID)

	// Always mandatory, regardless of status.
	if loc.City == "" {
		errs = append(errs, "city is required")
	}
	if loc.Address == "" {
		errs = append(errs, "address is required")
	}
	if loc.SourceID == "" {
		errs = append(errs, "sheet id is required")
	} else if !model.ValidSourceID(loc.SourceID) {
		errs = append(errs, fmt.Sprintf("sheet id %q is not a valid document id", loc.SourceID))
	}

	mandatory := status == model.StatusOpen
	if mandatory {
		if loc.Region == "" {
			errs = append(errs, "state is required for open locations")
		}
		if loc.DisplayName == "" {
			errs = append(errs, "display name is required for open locations")
		}
	}

	loc.OpenedOn = parseOptionalDate(cell(row, locColOpened), mandatory, "opened", &errs)
	loc.ClosedOn = parseOptionalDate(cell(row, locColClosed), false, "closed", &errs)

	loc.ValidationErrors = errs
	loc.IsValid = len(errs) == 0
	return loc
}

func parseOptionalDate(raw string, required bool, field string, errs *[]string) *time.Time {
	if raw == "" {
		if required {
			*errs = append(*errs, field+" date is required")
		}
		return nil
	}
	t, err := ParseDate(raw)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s date %q does not parse", field, raw))
		return nil
	}
	return &t
}
