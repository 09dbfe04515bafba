package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/worklog/internal/model"
)

// TimeEntryStore owns time_entries.json and the timer built on top of it.
// Invariant: at most one entry in the store is open (nil end time) at any
// moment. The open entry's id is cached in activeID for O(1) access.
type TimeEntryStore struct {
	path     string
	entries  map[string]model.TimeEntry
	activeID string
}

// NewTimeEntryStore creates an empty store bound to path.
func NewTimeEntryStore(path string) *TimeEntryStore {
	return &TimeEntryStore{path: path, entries: map[string]model.TimeEntry{}}
}

// OpenTimeEntryStore loads the store file at path and rediscovers the open
// entry, if any. A missing file yields an empty store; an unreadable one
// yields a *CorruptError.
func OpenTimeEntryStore(path string) (*TimeEntryStore, error) {
	entries, err := readCollection[model.TimeEntry](path)
	if err != nil {
		return nil, err
	}

	s := &TimeEntryStore{path: path, entries: entries}
	for id, e := range entries {
		if e.Open() {
			s.activeID = id
			break
		}
	}
	return s, nil
}

// Start opens a new entry for the task with the start time set to now.
// A running timer is stopped first, so starting a new timer implicitly ends
// the previous one.
func (s *TimeEntryStore) Start(taskID, description string) (model.TimeEntry, error) {
	if taskID == "" {
		return model.TimeEntry{}, fmt.Errorf("time entry task_id must not be empty")
	}

	prevActiveID := s.activeID
	var prevActive model.TimeEntry
	if prevActiveID != "" {
		prevActive = s.entries[prevActiveID]
		s.closeActive(time.Now().UTC())
	}

	e := model.TimeEntry{
		ID:          uuid.New().String(),
		TaskID:      taskID,
		StartTime:   time.Now().UTC(),
		EndTime:     nil,
		Description: description,
	}

	s.entries[e.ID] = e
	s.activeID = e.ID
	if err := s.save(); err != nil {
		delete(s.entries, e.ID)
		s.activeID = prevActiveID
		if prevActiveID != "" {
			s.entries[prevActiveID] = prevActive
		}
		return model.TimeEntry{}, err
	}
	return e, nil
}

// Stop ends the running entry and returns it. When no timer is running it is
// a no-op returning nil.
func (s *TimeEntryStore) Stop() (*model.TimeEntry, error) {
	if s.activeID == "" {
		return nil, nil
	}

	prevID := s.activeID
	prev := s.entries[prevID]
	stopped := s.closeActive(time.Now().UTC())
	if err := s.save(); err != nil {
		s.entries[prevID] = prev
		s.activeID = prevID
		return nil, err
	}
	return &stopped, nil
}

// closeActive sets the end time on the open entry and clears the active
// slot. It does not persist; callers save.
func (s *TimeEntryStore) closeActive(end time.Time) model.TimeEntry {
	e := s.entries[s.activeID]
	e.EndTime = &end
	e.DurationSeconds = int64(end.Sub(e.StartTime).Seconds())
	s.entries[e.ID] = e
	s.activeID = ""
	return e
}

// Active returns the running entry, if any.
func (s *TimeEntryStore) Active() (model.TimeEntry, bool) {
	if s.activeID == "" {
		return model.TimeEntry{}, false
	}
	return s.entries[s.activeID], true
}

// Get returns the entry with the given id.
func (s *TimeEntryStore) Get(id string) (model.TimeEntry, bool) {
	e, ok := s.entries[id]
	return e, ok
}

// List returns all entries in undefined order.
func (s *TimeEntryStore) List() []model.TimeEntry {
	out := make([]model.TimeEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out
}

// ListByTask returns all entries for the given task.
func (s *TimeEntryStore) ListByTask(taskID string) []model.TimeEntry {
	var out []model.TimeEntry
	for _, e := range s.entries {
		if e.TaskID == taskID {
			out = append(out, e)
		}
	}
	return out
}

// ElapsedSeconds returns the total recorded seconds for a task. When the
// running entry belongs to the task, the live now-start tail is added at
// read time without being persisted.
func (s *TimeEntryStore) ElapsedSeconds(taskID string) int64 {
	var total int64
	for _, e := range s.entries {
		if e.TaskID == taskID {
			total += e.DurationSeconds
		}
	}
	if s.activeID != "" {
		if active := s.entries[s.activeID]; active.TaskID == taskID {
			total += int64(time.Since(active.StartTime).Seconds())
		}
	}
	return total
}

// Update applies the non-nil patch fields to the entry and persists.
// Editing a boundary of a completed entry recomputes its duration from the
// resulting start/end pair; setting an end time on the running entry closes
// it. Returns ErrNotFound when the id is absent.
func (s *TimeEntryStore) Update(id string, patch model.TimeEntryPatch) (model.TimeEntry, error) {
	prev, ok := s.entries[id]
	if !ok {
		return model.TimeEntry{}, fmt.Errorf("time entry %s: %w", id, ErrNotFound)
	}
	e := prev
	prevActiveID := s.activeID

	if patch.Description != nil {
		e.Description = *patch.Description
	}
	boundaryChanged := false
	if patch.StartTime != nil {
		e.StartTime = *patch.StartTime
		boundaryChanged = true
	}
	if patch.EndTime != nil {
		e.EndTime = patch.EndTime
		boundaryChanged = true
	}

	if boundaryChanged && e.EndTime != nil {
		if e.EndTime.Before(e.StartTime) {
			return model.TimeEntry{}, fmt.Errorf("time entry end must not precede start")
		}
		e.DurationSeconds = int64(e.EndTime.Sub(e.StartTime).Seconds())
		if s.activeID == id {
			s.activeID = ""
		}
	}

	s.entries[id] = e
	if err := s.save(); err != nil {
		s.entries[id] = prev
		s.activeID = prevActiveID
		return model.TimeEntry{}, err
	}
	return e, nil
}

// Delete removes the entry if present and reports whether a removal
// occurred. Deleting the running entry clears the active slot.
func (s *TimeEntryStore) Delete(id string) (bool, error) {
	e, ok := s.entries[id]
	if !ok {
		return false, nil
	}
	wasActive := s.activeID == id
	delete(s.entries, id)
	if wasActive {
		s.activeID = ""
	}
	if err := s.save(); err != nil {
		s.entries[id] = e
		if wasActive {
			s.activeID = id
		}
		return false, err
	}
	return true, nil
}

// DeleteByTask removes all entries for the given task. Used when a task is
// deleted so no entry dangles.
func (s *TimeEntryStore) DeleteByTask(taskID string) (int, error) {
	removed := map[string]model.TimeEntry{}
	for id, e := range s.entries {
		if e.TaskID == taskID {
			removed[id] = e
			delete(s.entries, id)
			if s.activeID == id {
				s.activeID = ""
			}
		}
	}
	if len(removed) == 0 {
		return 0, nil
	}
	if err := s.save(); err != nil {
		for id, e := range removed {
			s.entries[id] = e
			if e.Open() {
				s.activeID = id
			}
		}
		return 0, err
	}
	return len(removed), nil
}

func (s *TimeEntryStore) save() error {
	return writeCollection(s.path, s.entries)
}
