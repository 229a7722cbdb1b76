// Package progress tracks per-phase completion counts and accumulated
// diagnostics for pipeline runs.
package progress

import (
	"sync"
	"time"
)

// Tracker counts completed units against a total and accumulates errors
// and warnings. Safe for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	total     int
	completed int
	errors    []string
	warnings  []string
	started   time.Time
}

// NewTracker creates a tracker for total units, starting the clock now.
func NewTracker(total int) *Tracker {
	return &Tracker{total: total, started: time.Now()}
}

// SetTotal adjusts the expected unit count mid-phase.
func (t *Tracker) SetTotal(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total = total
}

// Complete marks one unit done.
func (t *Tracker) Complete() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completed++
}

// Error records a unit-level failure.
func (t *Tracker) Error(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errors = append(t.errors, msg)
}

// Warning records a non-fatal finding.
func (t *Tracker) Warning(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.warnings = append(t.warnings, msg)
}

// Completed returns completed and total unit counts.
func (t *Tracker) Completed() (done, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completed, t.total
}

// Errors returns a copy of the accumulated errors.
func (t *Tracker) Errors() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.errors...)
}

// Warnings returns a copy of the accumulated warnings.
func (t *Tracker) Warnings() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.warnings...)
}

// Elapsed returns time since the tracker was created.
func (t *Tracker) Elapsed() time.Duration {
	return time.Since(t.started)
}

// SuccessRate returns completed/total, or 1.0 when total is zero.
func (t *Tracker) SuccessRate() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.total == 0 {
		return 1.0
	}
	return float64(t.completed) / float64(t.total)
}
