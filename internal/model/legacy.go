package model

// Legacy task records, as found in tasks.json files written by earlier
// releases. They exist only as inputs to the migration utility; the rest of
// the codebase never touches them.
//
// Two generations predate the normalized model:
//
//   - the oldest kept free-text customer/project names plus a status enum and
//     an hours estimate,
//   - the intermediate one renamed project to department and recorded actual
//     hours per date, still keyed by name rather than id.
//
// A LegacyTask can hold either shape; the set of non-empty fields tells the
// migrator which generation it is looking at.
type LegacyTask struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`

	// Intermediate format.
	Department  string  `json:"department,omitempty"`
	Date        string  `json:"date,omitempty"`
	Hours       float64 `json:"hours,omitempty"`
	Description string  `json:"description,omitempty"`

	// Oldest format.
	Project        string  `json:"project,omitempty"`
	Title          string  `json:"title,omitempty"`
	Status         string  `json:"status,omitempty"`
	EstimatedHours float64 `json:"estimated_hours,omitempty"`

	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// Normalized reports whether the record already carries foreign keys and
// needs no migration.
func (t LegacyTask) Normalized() bool {
	return t.Customer == "" && t.Project == ""
}
