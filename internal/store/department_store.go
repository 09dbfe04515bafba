package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/worklog/internal/model"
)

// DepartmentStore owns departments.json.
type DepartmentStore struct {
	path        string
	departments map[string]model.Department
}

// NewDepartmentStore creates an empty store bound to path.
func NewDepartmentStore(path string) *DepartmentStore {
	return &DepartmentStore{path: path, departments: map[string]model.Department{}}
}

// OpenDepartmentStore loads the store file at path. A missing file yields an
// empty store; an unreadable one yields a *CorruptError.
func OpenDepartmentStore(path string) (*DepartmentStore, error) {
	departments, err := readCollection[model.Department](path)
	if err != nil {
		return nil, err
	}
	return &DepartmentStore{path: path, departments: departments}, nil
}

// Create inserts a new department with a generated id and returns it.
// Existence of the owning customer is checked by Stores, not here.
func (s *DepartmentStore) Create(name, customerID, description string) (model.Department, error) {
	if strings.TrimSpace(name) == "" {
		return model.Department{}, fmt.Errorf("department name must not be empty")
	}
	if customerID == "" {
		return model.Department{}, fmt.Errorf("department customer_id must not be empty")
	}

	now := time.Now().UTC()
	d := model.Department{
		ID:          uuid.New().String(),
		Name:        name,
		CustomerID:  customerID,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.departments[d.ID] = d
	if err := s.save(); err != nil {
		delete(s.departments, d.ID)
		return model.Department{}, err
	}
	return d, nil
}

// Get returns the department with the given id.
func (s *DepartmentStore) Get(id string) (model.Department, bool) {
	d, ok := s.departments[id]
	return d, ok
}

// List returns all departments in undefined order.
func (s *DepartmentStore) List() []model.Department {
	out := make([]model.Department, 0, len(s.departments))
	for _, d := range s.departments {
		out = append(out, d)
	}
	return out
}

// ListByCustomer returns all departments owned by the given customer.
func (s *DepartmentStore) ListByCustomer(customerID string) []model.Department {
	var out []model.Department
	for _, d := range s.departments {
		if d.CustomerID == customerID {
			out = append(out, d)
		}
	}
	return out
}

// Update applies the non-nil patch fields to the department and persists.
// Returns ErrNotFound when the id is absent.
func (s *DepartmentStore) Update(id string, patch model.DepartmentPatch) (model.Department, error) {
	prev, ok := s.departments[id]
	if !ok {
		return model.Department{}, fmt.Errorf("department %s: %w", id, ErrNotFound)
	}
	d := prev

	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return model.Department{}, fmt.Errorf("department name must not be empty")
		}
		d.Name = *patch.Name
	}
	if patch.CustomerID != nil {
		if *patch.CustomerID == "" {
			return model.Department{}, fmt.Errorf("department customer_id must not be empty")
		}
		d.CustomerID = *patch.CustomerID
	}
	if patch.Description != nil {
		d.Description = *patch.Description
	}
	d.UpdatedAt = time.Now().UTC()

	s.departments[id] = d
	if err := s.save(); err != nil {
		s.departments[id] = prev
		return model.Department{}, err
	}
	return d, nil
}

// Delete removes the department if present and reports whether a removal
// occurred.
func (s *DepartmentStore) Delete(id string) (bool, error) {
	d, ok := s.departments[id]
	if !ok {
		return false, nil
	}
	delete(s.departments, id)
	if err := s.save(); err != nil {
		s.departments[id] = d
		return false, err
	}
	return true, nil
}

func (s *DepartmentStore) save() error {
	return writeCollection(s.path, s.departments)
}
