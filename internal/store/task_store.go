package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/worklog/internal/model"
)

// TaskStore owns tasks.json.
type TaskStore struct {
	path  string
	tasks map[string]model.Task
}

// NewTaskStore creates an empty store bound to path.
func NewTaskStore(path string) *TaskStore {
	return &TaskStore{path: path, tasks: map[string]model.Task{}}
}

// OpenTaskStore loads the store file at path. A missing file yields an empty
// store; an unreadable one yields a *CorruptError.
func OpenTaskStore(path string) (*TaskStore, error) {
	tasks, err := readCollection[model.Task](path)
	if err != nil {
		return nil, err
	}
	return &TaskStore{path: path, tasks: tasks}, nil
}

// Create inserts a new task with a generated id and returns it. Foreign keys
// are checked by Stores, not here.
func (s *TaskStore) Create(customerID, departmentID, date string, hours float64, description string) (model.Task, error) {
	if customerID == "" {
		return model.Task{}, fmt.Errorf("task customer_id must not be empty")
	}
	if departmentID == "" {
		return model.Task{}, fmt.Errorf("task department_id must not be empty")
	}
	if _, err := model.ParseDate(date); err != nil {
		return model.Task{}, fmt.Errorf("task date %q: %w", date, err)
	}
	if hours < 0 {
		return model.Task{}, fmt.Errorf("task hours must not be negative")
	}

	now := time.Now().UTC()
	t := model.Task{
		ID:           uuid.New().String(),
		CustomerID:   customerID,
		DepartmentID: departmentID,
		Date:         date,
		Hours:        hours,
		Description:  description,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	s.tasks[t.ID] = t
	if err := s.save(); err != nil {
		delete(s.tasks, t.ID)
		return model.Task{}, err
	}
	return t, nil
}

// Get returns the task with the given id.
func (s *TaskStore) Get(id string) (model.Task, bool) {
	t, ok := s.tasks[id]
	return t, ok
}

// List returns all tasks in undefined order.
func (s *TaskStore) List() []model.Task {
	out := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	return out
}

// ListByCustomer returns all tasks for the given customer.
func (s *TaskStore) ListByCustomer(customerID string) []model.Task {
	var out []model.Task
	for _, t := range s.tasks {
		if t.CustomerID == customerID {
			out = append(out, t)
		}
	}
	return out
}

// ListByDepartment returns all tasks for the given department.
func (s *TaskStore) ListByDepartment(departmentID string) []model.Task {
	var out []model.Task
	for _, t := range s.tasks {
		if t.DepartmentID == departmentID {
			out = append(out, t)
		}
	}
	return out
}

// Update applies the non-nil patch fields to the task and persists.
// Returns ErrNotFound when the id is absent.
func (s *TaskStore) Update(id string, patch model.TaskPatch) (model.Task, error) {
	prev, ok := s.tasks[id]
	if !ok {
		return model.Task{}, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	t := prev

	if patch.CustomerID != nil {
		if *patch.CustomerID == "" {
			return model.Task{}, fmt.Errorf("task customer_id must not be empty")
		}
		t.CustomerID = *patch.CustomerID
	}
	if patch.DepartmentID != nil {
		if *patch.DepartmentID == "" {
			return model.Task{}, fmt.Errorf("task department_id must not be empty")
		}
		t.DepartmentID = *patch.DepartmentID
	}
	if patch.Date != nil {
		if _, err := model.ParseDate(*patch.Date); err != nil {
			return model.Task{}, fmt.Errorf("task date %q: %w", *patch.Date, err)
		}
		t.Date = *patch.Date
	}
	if patch.Hours != nil {
		if *patch.Hours < 0 {
			return model.Task{}, fmt.Errorf("task hours must not be negative")
		}
		t.Hours = *patch.Hours
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	t.UpdatedAt = time.Now().UTC()

	s.tasks[id] = t
	if err := s.save(); err != nil {
		s.tasks[id] = prev
		return model.Task{}, err
	}
	return t, nil
}

// Delete removes the task if present and reports whether a removal occurred.
func (s *TaskStore) Delete(id string) (bool, error) {
	t, ok := s.tasks[id]
	if !ok {
		return false, nil
	}
	delete(s.tasks, id)
	if err := s.save(); err != nil {
		s.tasks[id] = t
		return false, err
	}
	return true, nil
}

func (s *TaskStore) save() error {
	return writeCollection(s.path, s.tasks)
}
