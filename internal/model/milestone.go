package model

import (
	"fmt"
	"time"
)

// MilestoneRecord is a dated achievement note tied to a saint. Count is
// derived at import time from the years elapsed since the saint's anchor
// feast date.
type MilestoneRecord struct {
	ID               string    `json:"id,omitempty"`
	Number           string    `json:"number"`
	SaintName        string    `json:"saint_name"`
	Date             time.Time `json:"date"`
	Description      string    `json:"description"`
	Sticker          string    `json:"sticker,omitempty"`
	Count            int       `json:"count,omitempty"`
	LocationSourceID string    `json:"location_source_id"`
}

// Label returns a human-readable identifier for diagnostics.
func (m *MilestoneRecord) Label() string {
	return fmt.Sprintf("#%s@%s", m.Number, m.Date.Format("2006-01-02"))
}
