package store

import (
	"errors"
	"fmt"
)

// ErrNotFound signals that the referenced identifier does not exist in its
// store. Check with errors.Is.
var ErrNotFound = errors.New("not found")

// CorruptError reports a store file that exists but could not be decoded.
// It is returned at open time so the caller can decide whether to abort or
// continue with an empty store; the unreadable data is never discarded
// silently.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("store file %s is unreadable: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// ReferenceError reports a delete that was blocked because other entities
// still reference the target.
type ReferenceError struct {
	Entity       string // entity kind being deleted, e.g. "customer"
	ID           string
	ReferencedBy string // entity kind holding the reference, e.g. "department"
	Count        int
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s %s is still referenced by %d %s(s)",
		e.Entity, e.ID, e.Count, e.ReferencedBy)
}
