package validator

import (
	"fmt"

	"github.com/MisterBeardy/saintcalendar-sub000/internal/model"
)

// Cross-reference integrity: every historical and milestone record must
// resolve to a saint. Resolution is scoped to the record's own location;
// a number that exists only in another location is reported distinctly
// from one that exists nowhere, since the operator's fix differs (move
// the row vs. add the saint).

func (v *Validator) checkCrossRefs(run *model.PipelineRun, report *model.ValidationReport, invalid *invalidSet) {
	local := make(map[string]*model.SaintRecord, len(run.Saints))
	anywhere := make(map[string]struct{}, len(run.Saints))
	for _, s := range run.Saints {
		local[s.Number+"|"+s.LocationSourceID] = s
		anywhere[s.Number] = struct{}{}
	}

	referenced := make(map[string]struct{})

	for _, h := range run.Historical {
		referenced[h.Number] = struct{}{}
		saint, ok := local[h.Number+"|"+h.LocationSourceID]
		if !ok {
			kind, msg := resolveMiss("historical", h.Number, anywhere)
			invalid.mark(kindHistorical, h)
			report.HistoricalIssues = append(report.HistoricalIssues, model.Issue{
				Kind:     kind,
				Label:    h.Label(),
				Messages: []string{msg},
			})
			continue
		}
		v.checkAgainstSaint(h.Label(), h.SaintName, saint, hMonthDay(h), kindHistorical, h, &report.HistoricalIssues, invalid)
	}

	for _, m := range run.Milestones {
		referenced[m.Number] = struct{}{}
		saint, ok := local[m.Number+"|"+m.LocationSourceID]
		if !ok {
			kind, msg := resolveMiss("milestone", m.Number, anywhere)
			invalid.mark(kindMilestone, m)
			report.MilestoneIssues = append(report.MilestoneIssues, model.Issue{
				Kind:     kind,
				Label:    m.Label(),
				Messages: []string{msg},
			})
			continue
		}
		md := model.MonthDay{Month: m.Date.Month(), Day: m.Date.Day()}
		v.checkAgainstSaint(m.Label(), m.SaintName, saint, &md, kindMilestone, m, &report.MilestoneIssues, invalid)
	}

	// Completeness: a saint with no historical and no milestone entries in
	// any location imports fine but is worth surfacing, the sheet probably
	// lost its history rows.
	for _, s := range run.Saints {
		if _, ok := referenced[s.Number]; ok {
			continue
		}
		report.SaintIssues = append(report.SaintIssues, model.Issue{
			Kind:     "saint_incomplete",
			Label:    s.Label(),
			Warnings: []string{"no historical or milestone entries"},
		})
	}
}

// resolveMiss classifies a failed saint lookup.
func resolveMiss(entity, number string, anywhere map[string]struct{}) (kind, msg string) {
	if _, ok := anywhere[number]; ok {
		return entity + "_cross_location",
			fmt.Sprintf("saint #%s exists in a different location; %s records must reference a saint in their own sheet", number, entity)
	}
	return entity + "_missing_saint",
		fmt.Sprintf("no saint #%s found in any location", number)
}

// checkAgainstSaint verifies the denormalized saint name matches (after
// normalization) and, when a month/day is available, that it matches the
// owning saint's feast date. Mismatches are hard errors: they indicate
// the row references the wrong saint.
func (v *Validator) checkAgainstSaint(label, saintName string, saint *model.SaintRecord, md *model.MonthDay, kind int, rec any, issues *[]model.Issue, invalid *invalidSet) {
	var msgs []string

	if saintName != "" && NormalizeName(saintName) != NormalizeName(saint.SaintName) {
		msgs = append(msgs, fmt.Sprintf("saint name %q does not match saint #%s (%q)", saintName, saint.Number, saint.SaintName))
	}
	if md != nil && !md.IsZero() && !saint.FeastDate.IsZero() && *md != saint.FeastDate {
		msgs = append(msgs, fmt.Sprintf("date %s does not match saint #%s feast date %s", md, saint.Number, saint.FeastDate))
	}

	if len(msgs) > 0 {
		invalid.mark(kind, rec)
		*issues = append(*issues, model.Issue{
			Kind:     "saint_mismatch",
			Label:    label,
			Messages: msgs,
		})
	}
}

// hMonthDay extracts the month/day the historical record resolved to, or
// nil when no event date was derivable at scan time.
func hMonthDay(h *model.HistoricalRecord) *model.MonthDay {
	if h.EventDate == nil {
		return nil
	}
	return &model.MonthDay{Month: h.EventDate.Month(), Day: h.EventDate.Day()}
}
