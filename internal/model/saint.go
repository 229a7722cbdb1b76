package model

import (
	"fmt"
	"time"
)

// MonthDay is a recurring calendar date without a year.
type MonthDay struct {
	Month time.Month `json:"month"`
	Day   int        `json:"day"`
}

// IsZero reports whether the MonthDay is unset.
func (md MonthDay) IsZero() bool {
	return md.Month == 0 && md.Day == 0
}

// String formats the MonthDay as MM/DD.
func (md MonthDay) String() string {
	return fmt.Sprintf("%02d/%02d", int(md.Month), md.Day)
}

// SaintRecord is a person anchored to a location and a recurring feast
// date, identified by a globally-unique external number.
type SaintRecord struct {
	ID               string   `json:"id,omitempty"`
	Number           string   `json:"number"`
	LegalName        string   `json:"legal_name"`
	SaintName        string   `json:"saint_name"`
	FeastDate        MonthDay `json:"feast_date"`
	FeastYear        int      `json:"feast_year,omitempty"` // 0 when the sheet omits the year
	LocationSourceID string   `json:"location_source_id"`
}

// Label returns a human-readable identifier for diagnostics.
func (s *SaintRecord) Label() string {
	name := s.SaintName
	if name == "" {
		name = s.LegalName
	}
	if name == "" {
		return "#" + s.Number
	}
	return fmt.Sprintf("%s (#%s)", name, s.Number)
}
