package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nhle/worklog/internal/model"
)

func TestCustomerCRUDRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), CustomersFile)

	s := NewCustomerStore(path)
	created, err := s.Create("Acme", "billing@acme.test", "555-0100", "1 Main St")
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated id")
	}
	if created.CreatedAt.IsZero() || !created.CreatedAt.Equal(created.UpdatedAt) {
		t.Fatalf("expected created_at == updated_at on create, got %v / %v", created.CreatedAt, created.UpdatedAt)
	}

	// Reopen from disk and compare.
	reopened, err := OpenCustomerStore(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	got, ok := reopened.Get(created.ID)
	if !ok {
		t.Fatalf("customer %s not found after reopen", created.ID)
	}
	if got != created {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, created)
	}

	removed, err := reopened.Delete(created.ID)
	if err != nil {
		t.Fatalf("delete customer: %v", err)
	}
	if !removed {
		t.Fatal("expected delete to report removal")
	}
	if removed, _ := reopened.Delete(created.ID); removed {
		t.Fatal("second delete should be a no-op")
	}
}

func TestCreateGeneratesUniqueIDs(t *testing.T) {
	s := NewCustomerStore(filepath.Join(t.TempDir(), CustomersFile))

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		c, err := s.Create("Customer", "", "", "")
		if err != nil {
			t.Fatalf("create customer %d: %v", i, err)
		}
		if seen[c.ID] {
			t.Fatalf("duplicate id %s", c.ID)
		}
		seen[c.ID] = true
	}
}

func TestUpdateTouchesOnlyPatchedFields(t *testing.T) {
	s := NewTaskStore(filepath.Join(t.TempDir(), TasksFile))

	task, err := s.Create("cust-1", "dept-1", "2024-01-01", 2.5, "design review")
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	hours := 4.0
	updated, err := s.Update(task.ID, model.TaskPatch{Hours: &hours})
	if err != nil {
		t.Fatalf("update task: %v", err)
	}

	if updated.Hours != 4.0 {
		t.Fatalf("hours = %v, want 4.0", updated.Hours)
	}
	if updated.CustomerID != task.CustomerID || updated.DepartmentID != task.DepartmentID ||
		updated.Date != task.Date || updated.Description != task.Description {
		t.Fatalf("unpatched fields changed: %+v", updated)
	}
	if updated.ID != task.ID {
		t.Fatal("id must be immutable")
	}
	if !updated.CreatedAt.Equal(task.CreatedAt) {
		t.Fatal("created_at must never change")
	}
	if updated.UpdatedAt.Before(task.UpdatedAt) {
		t.Fatal("updated_at must be refreshed on update")
	}
}

func TestUpdateRejectsInvalidValues(t *testing.T) {
	s := NewTaskStore(filepath.Join(t.TempDir(), TasksFile))

	task, err := s.Create("cust-1", "dept-1", "2024-01-01", 1, "")
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	negative := -1.0
	if _, err := s.Update(task.ID, model.TaskPatch{Hours: &negative}); err == nil {
		t.Fatal("expected error for negative hours")
	}
	badDate := "01/02/2024"
	if _, err := s.Update(task.ID, model.TaskPatch{Date: &badDate}); err == nil {
		t.Fatal("expected error for malformed date")
	}

	got, _ := s.Get(task.ID)
	if got.Hours != 1 || got.Date != "2024-01-01" {
		t.Fatalf("rejected update must not change the task: %+v", got)
	}
}

func TestUpdateMissingIDReturnsNotFound(t *testing.T) {
	s := NewCustomerStore(filepath.Join(t.TempDir(), CustomersFile))

	name := "anyone"
	_, err := s.Update("no-such-id", model.CustomerPatch{Name: &name})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestOpenMissingFileYieldsEmptyStore(t *testing.T) {
	s, err := OpenTaskStore(filepath.Join(t.TempDir(), TasksFile))
	if err != nil {
		t.Fatalf("open on missing file: %v", err)
	}
	if len(s.List()) != 0 {
		t.Fatal("expected empty store")
	}
}

func TestOpenCorruptFileReturnsCorruptError(t *testing.T) {
	path := filepath.Join(t.TempDir(), TasksFile)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	_, err := OpenTaskStore(path)
	var corrupt *CorruptError
	if !errors.As(err, &corrupt) {
		t.Fatalf("err = %v, want *CorruptError", err)
	}
	if corrupt.Path != path {
		t.Fatalf("corrupt path = %s, want %s", corrupt.Path, path)
	}

	// The unreadable file must not be overwritten by the failed open.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reread file: %v", err)
	}
	if string(data) != "{not json" {
		t.Fatal("open must not rewrite a corrupt file")
	}
}

func TestTaskFileLayoutIsKeyedByID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, TasksFile)

	s := NewTaskStore(path)
	task, err := s.Create("cust-1", "dept-1", "2024-03-31", 1.25, "support call")
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read store file: %v", err)
	}

	var onDisk map[string]map[string]any
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		t.Fatalf("decode store file: %v", err)
	}
	rec, ok := onDisk[task.ID]
	if !ok {
		t.Fatalf("outer key %s missing in %s", task.ID, string(raw))
	}
	for _, field := range []string{"id", "customer_id", "department_id", "date", "hours", "description", "created_at", "updated_at"} {
		if _, ok := rec[field]; !ok {
			t.Fatalf("field %q missing from persisted record %v", field, rec)
		}
	}
}

// blockSave replaces the store file with a directory so the next save fails.
func blockSave(t *testing.T, path string) {
	t.Helper()
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove store file: %v", err)
	}
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatalf("block store file: %v", err)
	}
}

func TestUpdateSaveFailureRollsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), CustomersFile)
	s := NewCustomerStore(path)

	created, err := s.Create("Acme", "", "", "")
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read store file: %v", err)
	}

	blockSave(t, path)
	name := "Globex"
	if _, err := s.Update(created.ID, model.CustomerPatch{Name: &name}); err == nil {
		t.Fatal("expected update to fail when the save fails")
	}

	got, ok := s.Get(created.ID)
	if !ok {
		t.Fatalf("customer %s missing after failed update", created.ID)
	}
	if got != created {
		t.Fatalf("in-memory customer diverged after failed update:\n got %+v\nwant %+v", got, created)
	}

	// A later successful save must not leak the rejected name to disk.
	if err := os.Remove(path); err != nil {
		t.Fatalf("unblock store file: %v", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("restore store file: %v", err)
	}
	if _, err := s.Create("Initech", "", "", ""); err != nil {
		t.Fatalf("create after restore: %v", err)
	}
	reopened, err := OpenCustomerStore(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	if got, _ := reopened.Get(created.ID); got.Name != "Acme" {
		t.Fatalf("persisted name = %q, want Acme", got.Name)
	}
}

func TestTaskUpdateSaveFailureRollsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), TasksFile)
	s := NewTaskStore(path)

	created, err := s.Create("cust-1", "dept-1", "2024-03-01", 2, "prototype")
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	blockSave(t, path)
	hours := 9.0
	if _, err := s.Update(created.ID, model.TaskPatch{Hours: &hours}); err == nil {
		t.Fatal("expected update to fail when the save fails")
	}

	got, _ := s.Get(created.ID)
	if got != created {
		t.Fatalf("in-memory task diverged after failed update:\n got %+v\nwant %+v", got, created)
	}
}
