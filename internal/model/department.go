package model

import "time"

// Department is a named unit of work under one customer.
// Earlier data formats called this a "project".
type Department struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CustomerID  string    `json:"customer_id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DepartmentPatch carries the mutable department fields for an update.
// Nil fields are left untouched.
type DepartmentPatch struct {
	Name        *string
	CustomerID  *string
	Description *string
}
