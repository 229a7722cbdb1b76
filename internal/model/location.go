package model

import (
	"fmt"
	"regexp"
	"time"
)

// LocationStatus is the lifecycle status of a location, matching the
// master index partition it was scanned from.
type LocationStatus string

const (
	StatusOpen    LocationStatus = "open"
	StatusPending LocationStatus = "pending"
	StatusClosed  LocationStatus = "closed"
)

// Statuses lists all partitions in scan order.
var Statuses = []LocationStatus{StatusOpen, StatusPending, StatusClosed}

// sourceIDPattern matches a spreadsheet document id: a fixed-length
// base64url-like token.
var sourceIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{44}$`)

// ValidSourceID reports whether s is a well-formed external document id.
func ValidSourceID(s string) bool {
	return sourceIDPattern.MatchString(s)
}

// LocationRecord is one row of the master index. It is created during the
// master scan and mutated only to attach the persisted ID during import.
type LocationRecord struct {
	ID          string         `json:"id,omitempty"`
	SourceID    string         `json:"source_id"`
	DisplayName string         `json:"display_name"`
	City        string         `json:"city"`
	Region      string         `json:"region"`
	Address     string         `json:"address"`
	Status      LocationStatus `json:"status"`
	OpenedOn    *time.Time     `json:"opened_on,omitempty"`
	ClosedOn    *time.Time     `json:"closed_on,omitempty"`

	IsValid          bool     `json:"is_valid"`
	ValidationErrors []string `json:"validation_errors,omitempty"`
}

// Label returns a human-readable identifier for diagnostics.
func (l *LocationRecord) Label() string {
	name := l.DisplayName
	if name == "" {
		name = l.City
	}
	if name == "" {
		name = "(unnamed)"
	}
	if l.SourceID == "" {
		return name
	}
	return fmt.Sprintf("%s [%s]", name, shortID(l.SourceID))
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "…"
}
