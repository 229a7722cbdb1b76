package model

import (
	"fmt"
	"time"
)

// HistoricalYearFloor is the earliest year a historical record may carry.
const HistoricalYearFloor = 2010

// MaxHistoricalYear returns the latest acceptable historical year as of now.
func MaxHistoricalYear(now time.Time) int {
	return now.Year() + 1
}

// HistoricalRecord is a yearly event log entry for a saint: the burger
// served, the beers on tap and in cans, and optional event link and
// sticker media reference. At most one record may exist per
// (number, year) pair within a location.
type HistoricalRecord struct {
	ID               string `json:"id,omitempty"`
	Number           string `json:"number"`
	SaintName        string `json:"saint_name"`
	Year             int    `json:"year"`
	Burger           string `json:"burger"`
	TapBeers         string `json:"tap_beers"`
	CanBeers         string `json:"can_beers"`
	EventLink        string `json:"event_link,omitempty"`
	Sticker          string `json:"sticker,omitempty"`
	LocationSourceID string `json:"location_source_id"`

	// EventDate is derived during the detail scan by combining the owning
	// saint's feast month/day with Year. Nil when the combination is not a
	// valid calendar date or the saint is unknown at scan time.
	EventDate *time.Time `json:"event_date,omitempty"`
}

// Label returns a human-readable identifier for diagnostics.
func (h *HistoricalRecord) Label() string {
	return fmt.Sprintf("#%s/%d", h.Number, h.Year)
}
