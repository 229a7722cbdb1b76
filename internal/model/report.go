package model

// Issue is a single validation finding against one entity.
type Issue struct {
	// Kind classifies the finding, e.g. "historical_cross_location".
	Kind string `json:"kind"`
	// Label identifies the offending entity (location or record label).
	Label    string   `json:"label"`
	Messages []string `json:"messages,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// IsError reports whether the issue carries at least one hard error.
func (i Issue) IsError() bool {
	return len(i.Messages) > 0
}

// KindCount tracks valid/total counts for one entity kind.
type KindCount struct {
	Total int `json:"total"`
	Valid int `json:"valid"`
}

// ValidationReport aggregates the findings of the validation phase across
// all accumulated records of a run.
type ValidationReport struct {
	Locations  KindCount `json:"locations"`
	Saints     KindCount `json:"saints"`
	Historical KindCount `json:"historical"`
	Milestones KindCount `json:"milestones"`

	LocationIssues   []Issue `json:"location_issues,omitempty"`
	SaintIssues      []Issue `json:"saint_issues,omitempty"`
	HistoricalIssues []Issue `json:"historical_issues,omitempty"`
	MilestoneIssues  []Issue `json:"milestone_issues,omitempty"`
	CrossRefIssues   []Issue `json:"cross_ref_issues,omitempty"`
}

// Total returns the number of records examined across all kinds.
func (r *ValidationReport) Total() int {
	return r.Locations.Total + r.Saints.Total + r.Historical.Total + r.Milestones.Total
}

// Valid returns the number of records that passed all checks.
func (r *ValidationReport) Valid() int {
	return r.Locations.Valid + r.Saints.Valid + r.Historical.Valid + r.Milestones.Valid
}

// Issues returns all issue lists concatenated.
func (r *ValidationReport) Issues() []Issue {
	var out []Issue
	out = append(out, r.LocationIssues...)
	out = append(out, r.SaintIssues...)
	out = append(out, r.HistoricalIssues...)
	out = append(out, r.MilestoneIssues...)
	out = append(out, r.CrossRefIssues...)
	return out
}

// ErrorCount returns the number of issues carrying hard errors.
func (r *ValidationReport) ErrorCount() int {
	n := 0
	for _, i := range r.Issues() {
		if i.IsError() {
			n++
		}
	}
	return n
}

// WarningCount returns the number of issues carrying only warnings.
func (r *ValidationReport) WarningCount() int {
	n := 0
	for _, i := range r.Issues() {
		if !i.IsError() && len(i.Warnings) > 0 {
			n++
		}
	}
	return n
}

// QualityScore is the valid/total ratio across all kinds (1.0 for an
// empty report).
func (r *ValidationReport) QualityScore() float64 {
	total := r.Total()
	if total == 0 {
		return 1.0
	}
	return float64(r.Valid()) / float64(total)
}

// ErrorRate is the fraction of examined records with hard errors.
func (r *ValidationReport) ErrorRate() float64 {
	total := r.Total()
	if total == 0 {
		return 0
	}
	return float64(total-r.Valid()) / float64(total)
}
