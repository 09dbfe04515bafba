package model

import "time"

// TimeEntry is one timed work session against a task. An entry with a nil
// EndTime is open: the timer for it is still running. At most one entry per
// store is open at any moment.
type TimeEntry struct {
	ID              string     `json:"id"`
	TaskID          string     `json:"task_id"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	Description     string     `json:"description"`
	DurationSeconds int64      `json:"duration_seconds"`
}

// Open reports whether the entry is still running.
func (e TimeEntry) Open() bool {
	return e.EndTime == nil
}

// DurationHours returns the recorded duration in hours.
func (e TimeEntry) DurationHours() float64 {
	return float64(e.DurationSeconds) / 3600.0
}

// TimeEntryPatch carries the mutable time entry fields for an update.
// Nil fields are left untouched. Changing either boundary of a completed
// entry recomputes DurationSeconds from the resulting pair.
type TimeEntryPatch struct {
	Description *string
	StartTime   *time.Time
	EndTime     *time.Time
}
