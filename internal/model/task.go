package model

import "time"

// DateFormat is the calendar-date encoding used for Task.Date.
const DateFormat = "2006-01-02"

// Task records hours worked for a customer's department on a given date.
type Task struct {
	ID           string    `json:"id"`
	CustomerID   string    `json:"customer_id"`
	DepartmentID string    `json:"department_id"`
	Date         string    `json:"date"`
	Hours        float64   `json:"hours"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TaskPatch carries the mutable task fields for an update.
// Nil fields are left untouched.
type TaskPatch struct {
	CustomerID   *string
	DepartmentID *string
	Date         *string
	Hours        *float64
	Description  *string
}

// ParseDate parses a Task.Date value.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateFormat, s)
}
