package validator

import (
	"fmt"
	"time"

	"github.com/MisterBeardy/saintcalendar-sub000/internal/model"
)

// Validator runs phase 3 over the full accumulated collections of a run.
type Validator struct {
	rules Rules
	now   func() time.Time
}

// New creates a validator with the given rules.
func New(rules Rules) *Validator {
	return &Validator{rules: rules, now: time.Now}
}

// Result is the validation phase output: the report, the derived quality
// score, and the gate predicate callers use to decide whether the import
// phase may run.
type Result struct {
	Report    *model.ValidationReport
	Score     float64
	ErrorRate float64
	Passed    bool

	invalid *invalidSet
}

// RecordValid reports whether a specific record collected no hard
// errors, so the import phase can skip exactly the failed records.
func (r *Result) RecordValid(rec any) bool {
	return !r.invalid.has(rec)
}

// Validate re-validates every record field-by-field, detects duplicates,
// parses list fields, checks cross-reference integrity, and flags
// incomplete saints. Issues are recorded in the report, never returned
// as errors.
func (v *Validator) Validate(run *model.PipelineRun) *Result {
	report := &model.ValidationReport{}

	// invalid tracks records that collected at least one hard error, so
	// cross-reference findings also count against per-kind valid totals.
	invalid := newInvalidSet()

	v.checkLocations(run, report, invalid)
	v.checkSaints(run, report, invalid)
	v.checkHistorical(run, report, invalid)
	v.checkMilestones(run, report, invalid)
	v.checkCrossRefs(run, report, invalid)

	report.Locations = model.KindCount{Total: len(run.Locations()), Valid: len(run.Locations()) - invalid.count(kindLocation)}
	report.Saints = model.KindCount{Total: len(run.Saints), Valid: len(run.Saints) - invalid.count(kindSaint)}
	report.Historical = model.KindCount{Total: len(run.Historical), Valid: len(run.Historical) - invalid.count(kindHistorical)}
	report.Milestones = model.KindCount{Total: len(run.Milestones), Valid: len(run.Milestones) - invalid.count(kindMilestone)}

	run.Report = report

	score := report.QualityScore()
	errRate := report.ErrorRate()
	return &Result{
		Report:    report,
		Score:     score,
		ErrorRate: errRate,
		Passed:    score >= v.rules.MinSuccessRate && errRate <= v.rules.MaxErrorRate,
		invalid:   invalid,
	}
}

const (
	kindLocation = iota
	kindSaint
	kindHistorical
	kindMilestone
)

type invalidSet struct {
	marked [4]map[any]struct{}
}

func newInvalidSet() *invalidSet {
	s := &invalidSet{}
	for i := range s.marked {
		s.marked[i] = make(map[any]struct{})
	}
	return s
}

func (s *invalidSet) mark(kind int, rec any) { s.marked[kind][rec] = struct{}{} }
func (s *invalidSet) count(kind int) int     { return len(s.marked[kind]) }

func (s *invalidSet) has(rec any) bool {
	for i := range s.marked {
		if _, ok := s.marked[i][rec]; ok {
			return true
		}
	}
	return false
}

// checkLocations re-validates master rows independently of phase 1's own
// checks, catching construction errors introduced during accumulation.
func (v *Validator) checkLocations(run *model.PipelineRun, report *model.ValidationReport, invalid *invalidSet) {
	for _, loc := range run.Locations() {
		var msgs []string

		// Phase 1 findings stay attached to the record; surface them here
		// so the report is self-contained.
		msgs = append(msgs, loc.ValidationErrors...)

		if loc.SourceID != "" && !model.ValidSourceID(loc.SourceID) {
			msgs = appendUnique(msgs, fmt.Sprintf("sheet id %q is not a valid document id", loc.SourceID))
		}
		if len(loc.DisplayName) > v.rules.MaxNameLength {
			msgs = append(msgs, fmt.Sprintf("display name exceeds %d characters", v.rules.MaxNameLength))
		}
		if loc.OpenedOn != nil && loc.ClosedOn != nil && loc.ClosedOn.Before(*loc.OpenedOn) {
			msgs = append(msgs, "closed date precedes opened date")
		}

		if len(msgs) > 0 {
			invalid.mark(kindLocation, loc)
			report.LocationIssues = append(report.LocationIssues, model.Issue{
				Kind:     "location_invalid",
				Label:    loc.Label(),
				Messages: msgs,
			})
		}
	}
}

// checkSaints validates saint fields and detects duplicate numbers:
// repeats within one location are hard errors, repeats across locations
// are warnings (likely misfiled, possibly legitimate transfers).
func (v *Validator) checkSaints(run *model.PipelineRun, report *model.ValidationReport, invalid *invalidSet) {
	byNumberLoc := make(map[string]*model.SaintRecord)
	byNumber := make(map[string][]*model.SaintRecord)

	for _, s := range run.Saints {
		var msgs []string

		if !numericID(s.Number) {
			msgs = append(msgs, fmt.Sprintf("saint number %q is not numeric", s.Number))
		}
		if len(s.SaintName) > v.rules.MaxNameLength {
			msgs = append(msgs, fmt.Sprintf("saint name exceeds %d characters", v.rules.MaxNameLength))
		}
		if len(s.LegalName) > v.rules.MaxNameLength {
			msgs = append(msgs, fmt.Sprintf("legal name exceeds %d characters", v.rules.MaxNameLength))
		}
		if s.FeastDate.IsZero() {
			msgs = append(msgs, "feast date is missing")
		}

		key := s.Number + "|" + s.LocationSourceID
		if prev, ok := byNumberLoc[key]; ok {
			msgs = append(msgs, fmt.Sprintf("duplicate saint number %s within location (also %s)", s.Number, prev.Label()))
			invalid.mark(kindSaint, prev)
			reportDuplicate(report, "saint_duplicate", s.Label(), fmt.Sprintf("number %s repeats within location %s", s.Number, locationLabel(run, s.LocationSourceID)))
		} else {
			byNumberLoc[key] = s
		}
		byNumber[s.Number] = append(byNumber[s.Number], s)

		if len(msgs) > 0 {
			invalid.mark(kindSaint, s)
			report.SaintIssues = append(report.SaintIssues, model.Issue{
				Kind:     "saint_invalid",
				Label:    s.Label(),
				Messages: msgs,
			})
		}

		// Completeness is advisory: a saint missing a legal name still
		// imports, but the gap is worth surfacing.
		if s.LegalName == "" && s.SaintName != "" {
			report.SaintIssues = append(report.SaintIssues, model.Issue{
				Kind:     "saint_incomplete",
				Label:    s.Label(),
				Warnings: []string{"legal name is missing"},
			})
		}
	}

	// Global uniqueness: a number appearing in multiple locations is a
	// warning, not an error.
	for number, saints := range byNumber {
		locs := make(map[string]struct{})
		for _, s := range saints {
			locs[s.LocationSourceID] = struct{}{}
		}
		if len(locs) > 1 {
			report.SaintIssues = append(report.SaintIssues, model.Issue{
				Kind:  "saint_duplicate_global",
				Label: "#" + number,
				Warnings: []string{
					fmt.Sprintf("saint number %s appears in %d locations", number, len(locs)),
				},
			})
		}
	}
}

// checkHistorical validates historical fields, list fields, and the
// one-record-per-(number, year)-per-location invariant.
func (v *Validator) checkHistorical(run *model.PipelineRun, report *model.ValidationReport, invalid *invalidSet) {
	maxYear := model.MaxHistoricalYear(v.now())
	seen := make(map[string]*model.HistoricalRecord)

	for _, h := range run.Historical {
		var msgs []string

		if !numericID(h.Number) {
			msgs = append(msgs, fmt.Sprintf("number %q is not numeric", h.Number))
		}
		if h.Year < model.HistoricalYearFloor || h.Year > maxYear {
			msgs = append(msgs, fmt.Sprintf("year %d outside %d..%d", h.Year, model.HistoricalYearFloor, maxYear))
		}
		if len(h.Burger) > v.rules.MaxTextLength {
			msgs = append(msgs, fmt.Sprintf("burger description exceeds %d characters", v.rules.MaxTextLength))
		}
		if h.Burger != "" {
			if _, err := ParseBurgerSegments(h.Burger); err != nil {
				msgs = append(msgs, fmt.Sprintf("burger: %v", err))
			}
		}
		if _, err := ParseBeverageList(h.TapBeers, v.rules); err != nil {
			msgs = append(msgs, fmt.Sprintf("tap beers: %v", err))
		}
		if _, err := ParseBeverageList(h.CanBeers, v.rules); err != nil {
			msgs = append(msgs, fmt.Sprintf("can beers: %v", err))
		}

		key := fmt.Sprintf("%s|%d|%s", h.Number, h.Year, h.LocationSourceID)
		if prev, ok := seen[key]; ok {
			msgs = append(msgs, fmt.Sprintf("duplicate historical entry for #%s year %d", h.Number, h.Year))
			invalid.mark(kindHistorical, prev)
		} else {
			seen[key] = h
		}

		if len(msgs) > 0 {
			invalid.mark(kindHistorical, h)
			report.HistoricalIssues = append(report.HistoricalIssues, model.Issue{
				Kind:     "historical_invalid",
				Label:    h.Label(),
				Messages: msgs,
			})
		}
	}
}

// checkMilestones validates milestone fields.
func (v *Validator) checkMilestones(run *model.PipelineRun, report *model.ValidationReport, invalid *invalidSet) {
	for _, m := range run.Milestones {
		var msgs []string

		if !numericID(m.Number) {
			msgs = append(msgs, fmt.Sprintf("number %q is not numeric", m.Number))
		}
		if m.Description == "" {
			msgs = append(msgs, "description is required")
		}
		if len(m.Description) > v.rules.MaxTextLength {
			msgs = append(msgs, fmt.Sprintf("description exceeds %d characters", v.rules.MaxTextLength))
		}
		if m.Date.IsZero() {
			msgs = append(msgs, "milestone date is missing")
		}

		if len(msgs) > 0 {
			invalid.mark(kindMilestone, m)
			report.MilestoneIssues = append(report.MilestoneIssues, model.Issue{
				Kind:     "milestone_invalid",
				Label:    m.Label(),
				Messages: msgs,
			})
		}
	}
}

func reportDuplicate(report *model.ValidationReport, kind, label, msg string) {
	report.SaintIssues = append(report.SaintIssues, model.Issue{
		Kind:     kind,
		Label:    label,
		Messages: []string{msg},
	})
}

func locationLabel(run *model.PipelineRun, sourceID string) string {
	if loc := run.LocationBySourceID(sourceID); loc != nil {
		return loc.Label()
	}
	return sourceID
}

func appendUnique(msgs []string, msg string) []string {
	for _, m := range msgs {
		if m == msg {
			return msgs
		}
	}
	return append(msgs, msg)
}
