package store

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/nhle/worklog/internal/model"
)

// Stores bundles the four entity stores behind one data directory and
// enforces the cross-store rules the individual stores cannot see:
// foreign keys must name existing entities, and an entity that is still
// referenced cannot be deleted.
type Stores struct {
	Customers   *CustomerStore
	Departments *DepartmentStore
	Tasks       *TaskStore
	Entries     *TimeEntryStore
}

// Open loads all four stores from dir. Any unreadable file fails the whole
// open; the error wraps a *CorruptError identifying the file.
func Open(dir string) (*Stores, error) {
	customers, err := OpenCustomerStore(filepath.Join(dir, CustomersFile))
	if err != nil {
		return nil, err
	}
	departments, err := OpenDepartmentStore(filepath.Join(dir, DepartmentsFile))
	if err != nil {
		return nil, err
	}
	tasks, err := OpenTaskStore(filepath.Join(dir, TasksFile))
	if err != nil {
		return nil, err
	}
	entries, err := OpenTimeEntryStore(filepath.Join(dir, TimeEntriesFile))
	if err != nil {
		return nil, err
	}

	return &Stores{
		Customers:   customers,
		Departments: departments,
		Tasks:       tasks,
		Entries:     entries,
	}, nil
}

// OpenLenient loads all four stores from dir, substituting an empty store
// for any file that exists but cannot be decoded. Every substitution is
// logged as a warning; the unreadable file is left in place on disk until
// the next mutation rewrites it.
func OpenLenient(dir string, log *slog.Logger) (*Stores, error) {
	customers, err := OpenCustomerStore(filepath.Join(dir, CustomersFile))
	if err != nil {
		if !isCorrupt(err, log) {
			return nil, err
		}
		customers = NewCustomerStore(filepath.Join(dir, CustomersFile))
	}
	departments, err := OpenDepartmentStore(filepath.Join(dir, DepartmentsFile))
	if err != nil {
		if !isCorrupt(err, log) {
			return nil, err
		}
		departments = NewDepartmentStore(filepath.Join(dir, DepartmentsFile))
	}
	tasks, err := OpenTaskStore(filepath.Join(dir, TasksFile))
	if err != nil {
		if !isCorrupt(err, log) {
			return nil, err
		}
		tasks = NewTaskStore(filepath.Join(dir, TasksFile))
	}
	entries, err := OpenTimeEntryStore(filepath.Join(dir, TimeEntriesFile))
	if err != nil {
		if !isCorrupt(err, log) {
			return nil, err
		}
		entries = NewTimeEntryStore(filepath.Join(dir, TimeEntriesFile))
	}

	return &Stores{
		Customers:   customers,
		Departments: departments,
		Tasks:       tasks,
		Entries:     entries,
	}, nil
}

func isCorrupt(err error, log *slog.Logger) bool {
	var corrupt *CorruptError
	if !errors.As(err, &corrupt) {
		return false
	}
	log.Warn("store file unreadable, continuing with empty store",
		slog.String("path", corrupt.Path),
		slog.String("error", corrupt.Err.Error()),
	)
	return true
}

// CreateDepartment creates a department after checking that the owning
// customer exists.
func (s *Stores) CreateDepartment(name, customerID, description string) (model.Department, error) {
	if _, ok := s.Customers.Get(customerID); !ok {
		return model.Department{}, fmt.Errorf("customer %s: %w", customerID, ErrNotFound)
	}
	return s.Departments.Create(name, customerID, description)
}

// CreateTask creates a task after checking that both parents exist and that
// the department belongs to the customer.
func (s *Stores) CreateTask(customerID, departmentID, date string, hours float64, description string) (model.Task, error) {
	if _, ok := s.Customers.Get(customerID); !ok {
		return model.Task{}, fmt.Errorf("customer %s: %w", customerID, ErrNotFound)
	}
	d, ok := s.Departments.Get(departmentID)
	if !ok {
		return model.Task{}, fmt.Errorf("department %s: %w", departmentID, ErrNotFound)
	}
	if d.CustomerID != customerID {
		return model.Task{}, fmt.Errorf("department %s does not belong to customer %s", departmentID, customerID)
	}
	return s.Tasks.Create(customerID, departmentID, date, hours, description)
}

// DeleteCustomer removes a customer unless departments or tasks still
// reference it.
func (s *Stores) DeleteCustomer(id string) (bool, error) {
	if n := len(s.Departments.ListByCustomer(id)); n > 0 {
		return false, &ReferenceError{Entity: "customer", ID: id, ReferencedBy: "department", Count: n}
	}
	if n := len(s.Tasks.ListByCustomer(id)); n > 0 {
		return false, &ReferenceError{Entity: "customer", ID: id, ReferencedBy: "task", Count: n}
	}
	return s.Customers.Delete(id)
}

// DeleteDepartment removes a department unless tasks still reference it.
func (s *Stores) DeleteDepartment(id string) (bool, error) {
	if n := len(s.Tasks.ListByDepartment(id)); n > 0 {
		return false, &ReferenceError{Entity: "department", ID: id, ReferencedBy: "task", Count: n}
	}
	return s.Departments.Delete(id)
}

// DeleteTask removes a task together with its time entries, so nothing in
// time_entries.json is left naming a dead task.
func (s *Stores) DeleteTask(id string) (bool, error) {
	removed, err := s.Tasks.Delete(id)
	if err != nil || !removed {
		return removed, err
	}
	if _, err := s.Entries.DeleteByTask(id); err != nil {
		return true, fmt.Errorf("deleting time entries for task %s: %w", id, err)
	}
	return true, nil
}

// StartTimer opens a time entry for an existing task.
func (s *Stores) StartTimer(taskID, description string) (model.TimeEntry, error) {
	if _, ok := s.Tasks.Get(taskID); !ok {
		return model.TimeEntry{}, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	return s.Entries.Start(taskID, description)
}
