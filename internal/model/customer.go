package model

import "time"

// Customer is a client that work is billed or reported against.
type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CustomerPatch carries the mutable customer fields for an update.
// Nil fields are left untouched.
type CustomerPatch struct {
	Name    *string
	Email   *string
	Phone   *string
	Address *string
}
