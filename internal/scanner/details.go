package scanner

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/MisterBeardy/saintcalendar-sub000/internal/model"
	"github.com/MisterBeardy/saintcalendar-sub000/internal/progress"
	"github.com/MisterBeardy/saintcalendar-sub000/internal/resilience"
	"github.com/MisterBeardy/saintcalendar-sub000/internal/source"
)

// Detail ranges fetched from each location's own document in one batched
// call. Plain tab names resolve to the whole sheet; the header row is
// skipped during parsing.
var detailRanges = []string{"Saint Data", "Historical Data", "Milestone Data"}

const (
	rangeSaints = iota
	rangeHistorical
	rangeMilestones
)

// DetailScanner reads the three detail ranges of every valid location,
// under the injected retry policy, pacing calls between locations to
// stay inside the remote source's rate limits.
type DetailScanner struct {
	src     source.TabularSource
	retry   resilience.Policy
	limiter *rate.Limiter
	now     func() time.Time
}

// NewDetailScanner creates a detail scanner. locationDelay is the
// deliberate pause between locations (a policy knob, not incidental);
// zero disables pacing.
func NewDetailScanner(src source.TabularSource, retry resilience.Policy, locationDelay time.Duration) *DetailScanner {
	var limiter *rate.Limiter
	if locationDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(locationDelay), 1)
	}
	if retry.ShouldRetry == nil {
		retry.ShouldRetry = source.IsRetryable
	}
	return &DetailScanner{src: src, retry: retry, limiter: limiter, now: time.Now}
}

// DetailSummary reports the outcome of a detail scan.
type DetailSummary struct {
	LocationsScanned int
	LocationsFailed  int
	Saints           int
	Historical       int
	Milestones       int
}

// Scan walks the run's valid locations sequentially. A failing location
// is recorded on the tracker and skipped; remaining locations still scan.
func (s *DetailScanner) Scan(ctx context.Context, run *model.PipelineRun, tracker *progress.Tracker) (*DetailSummary, error) {
	log := zap.L().With(zap.String("component", "scanner.details"))

	locations := run.ValidLocations()
	tracker.SetTotal(len(locations))
	summary := &DetailSummary{}

	for _, loc := range locations {
		if err := ctx.Err(); err != nil {
			// Cooperative cancellation between locations: the partial
			// accumulation is valid input to validation.
			return summary, err
		}

		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return summary, err
			}
		}

		ranges, err := resilience.DoVal(ctx, s.retry, func(ctx context.Context) ([]source.RangeData, error) {
			return s.src.FetchRanges(ctx, loc.SourceID, detailRanges)
		})
		if err != nil {
			summary.LocationsFailed++
			tracker.Error(fmt.Sprintf("location %s: detail fetch failed: %v", loc.Label(), err))
			log.Warn("detail fetch failed", zap.String("location", loc.Label()), zap.Error(err))
			continue
		}

		saints := s.parseSaints(loc, rangeRows(ranges, rangeSaints), tracker)
		run.Saints = append(run.Saints, saints...)
		summary.Saints += len(saints)

		hist := s.parseHistorical(loc, saints, rangeRows(ranges, rangeHistorical), tracker)
		run.Historical = append(run.Historical, hist...)
		summary.Historical += len(hist)

		ms := s.parseMilestones(loc, rangeRows(ranges, rangeMilestones), tracker)
		run.Milestones = append(run.Milestones, ms...)
		summary.Milestones += len(ms)

		summary.LocationsScanned++
		tracker.Complete()
		log.Debug("location scanned",
			zap.String("location", loc.Label()),
			zap.Int("saints", len(saints)),
			zap.Int("historical", len(hist)),
			zap.Int("milestones", len(ms)),
		)
	}

	return summary, nil
}

func rangeRows(ranges []source.RangeData, idx int) [][]string {
	if idx >= len(ranges) {
		return nil
	}
	return ranges[idx].Rows
}

// parseSaints decodes the saint range. Required: number, saint name, and
// a parseable feast date.
func (s *DetailScanner) parseSaints(loc *model.LocationRecord, rows [][]string, tracker *progress.Tracker) []*model.SaintRecord {
	var out []*model.SaintRecord
	for i, row := range rows {
		if i == 0 || blankRow(row) {
			continue
		}
		if err := checkShape("saint", row, saintMinCols); err != nil {
			tracker.Error(fmt.Sprintf("location %s row %d: %v", loc.Label(), i+1, err))
			continue
		}

		rec := &model.SaintRecord{
			Number:           cell(row, saintColNumber),
			LegalName:        cell(row, saintColLegalName),
			SaintName:        cell(row, saintColSaintName),
			LocationSourceID: loc.SourceID,
		}

		if rec.Number == "" {
			tracker.Error(fmt.Sprintf("location %s row %d: saint number is required", loc.Label(), i+1))
			continue
		}
		if rec.SaintName == "" {
			tracker.Error(fmt.Sprintf("location %s row %d: saint name is required", loc.Label(), i+1))
			continue
		}

		md, year, err := ParseMonthDay(cell(row, saintColFeastDate))
		if err != nil {
			tracker.Error(fmt.Sprintf("location %s saint #%s: feast date: %v", loc.Label(), rec.Number, err))
			continue
		}
		rec.FeastDate = md
		rec.FeastYear = year

		out = append(out, rec)
	}
	return out
}

// parseHistorical decodes the historical range. Required: number and a
// year in the valid window. The event date is derived by combining the
// owning saint's feast month/day with the record's year; an impossible
// combination (Feb 29 in a non-leap year) leaves the date unset and is
// reported, never clamped.
func (s *DetailScanner) parseHistorical(loc *model.LocationRecord, saints []*model.SaintRecord, rows [][]string, tracker *progress.Tracker) []*model.HistoricalRecord {
	byNumber := make(map[string]*model.SaintRecord, len(saints))
	for _, sr := range saints {
		byNumber[sr.Number] = sr
	}

	maxYear := model.MaxHistoricalYear(s.now())

	var out []*model.HistoricalRecord
	for i, row := range rows {
		if i == 0 || blankRow(row) {
			continue
		}
		if err := checkShape("historical", row, histMinCols); err != nil {
			tracker.Error(fmt.Sprintf("location %s row %d: %v", loc.Label(), i+1, err))
			continue
		}

		rec := &model.HistoricalRecord{
			Number:           cell(row, histColNumber),
			SaintName:        cell(row, histColSaintName),
			Burger:           cell(row, histColBurger),
			TapBeers:         cell(row, histColTapBeers),
			CanBeers:         cell(row, histColCanBeers),
			EventLink:        cell(row, histColEventLink),
			Sticker:          cell(row, histColSticker),
			LocationSourceID: loc.SourceID,
		}

		if rec.Number == "" {
			tracker.Error(fmt.Sprintf("location %s row %d: historical number is required", loc.Label(), i+1))
			continue
		}

		year, err := strconv.Atoi(cell(row, histColYear))
		if err != nil || year < model.HistoricalYearFloor || year > maxYear {
			tracker.Error(fmt.Sprintf("location %s historical #%s: year %q outside %d..%d",
				loc.Label(), rec.Number, cell(row, histColYear), model.HistoricalYearFloor, maxYear))
			continue
		}
		rec.Year = year

		if saint, ok := byNumber[rec.Number]; ok {
			if d, ok := ConstructEventDate(saint.FeastDate, year); ok {
				rec.EventDate = &d
			} else {
				tracker.Error(fmt.Sprintf("location %s historical #%s/%d: %s/%d is not a valid calendar date",
					loc.Label(), rec.Number, year, saint.FeastDate, year))
			}
		}

		out = append(out, rec)
	}
	return out
}

// parseMilestones decodes the milestone range. Required: number,
// non-empty description, and a parseable date.
func (s *DetailScanner) parseMilestones(loc *model.LocationRecord, rows [][]string, tracker *progress.Tracker) []*model.MilestoneRecord {
	var out []*model.MilestoneRecord
	for i, row := range rows {
		if i == 0 || blankRow(row) {
			continue
		}
		if err := checkShape("milestone", row, msMinCols); err != nil {
			tracker.Error(fmt.Sprintf("location %s row %d: %v", loc.Label(), i+1, err))
			continue
		}

		rec := &model.MilestoneRecord{
			Number:           cell(row, msColNumber),
			SaintName:        cell(row, msColSaintName),
			Description:      cell(row, msColDescription),
			Sticker:          cell(row, msColSticker),
			LocationSourceID: loc.SourceID,
		}

		if rec.Number == "" {
			tracker.Error(fmt.Sprintf("location %s row %d: milestone number is required", loc.Label(), i+1))
			continue
		}
		if rec.Description == "" {
			tracker.Error(fmt.Sprintf("location %s milestone #%s: description is required", loc.Label(), rec.Number))
			continue
		}

		d, err := ParseDate(cell(row, msColDate))
		if err != nil {
			tracker.Error(fmt.Sprintf("location %s milestone #%s: %v", loc.Label(), rec.Number, err))
			continue
		}
		rec.Date = d

		out = append(out, rec)
	}
	return out
}
