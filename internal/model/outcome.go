package model

// EntityOutcome tracks per-kind import counters.
type EntityOutcome struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// OutcomeItem records why a specific entity was skipped or failed.
type OutcomeItem struct {
	Kind   string `json:"kind"`
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// ImportOutcome is the result of one import phase run.
type ImportOutcome struct {
	Locations  EntityOutcome `json:"locations"`
	Saints     EntityOutcome `json:"saints"`
	Stickers   EntityOutcome `json:"stickers"`
	Historical EntityOutcome `json:"historical"`
	Milestones EntityOutcome `json:"milestones"`

	// EventsCreated counts calendar-event rows materialized from
	// historical records.
	EventsCreated int `json:"events_created"`

	SkippedItems []OutcomeItem `json:"skipped_items,omitempty"`
	FailedItems  []OutcomeItem `json:"failed_items,omitempty"`

	// Success is false when the enclosing transaction was rolled back.
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// TotalImported sums created rows across all kinds.
func (o *ImportOutcome) TotalImported() int {
	return o.Locations.Imported + o.Saints.Imported + o.Stickers.Imported +
		o.Historical.Imported + o.Milestones.Imported + o.EventsCreated
}

// TotalSkipped sums idempotent skips across all kinds.
func (o *ImportOutcome) TotalSkipped() int {
	return o.Locations.Skipped + o.Saints.Skipped + o.Stickers.Skipped +
		o.Historical.Skipped + o.Milestones.Skipped
}

// Skip records an idempotent skip with its reason.
func (o *ImportOutcome) Skip(kind, key, reason string) {
	o.SkippedItems = append(o.SkippedItems, OutcomeItem{Kind: kind, Key: key, Reason: reason})
}

// Fail records a failed entity with its reason.
func (o *ImportOutcome) Fail(kind, key, reason string) {
	o.FailedItems = append(o.FailedItems, OutcomeItem{Kind: kind, Key: key, Reason: reason})
}
