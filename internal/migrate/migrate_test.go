package migrate

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/nhle/worklog/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeTasksFile(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, store.TasksFile), []byte(content), 0o644); err != nil {
		t.Fatalf("writing tasks file: %v", err)
	}
}

func TestMigrateIntermediateFormat(t *testing.T) {
	dir := t.TempDir()
	writeTasksFile(t, dir, `{
		"t1": {"id": "t1", "customer": "Acme", "department": "Engineering",
			"date": "2024-01-05", "hours": 3.5, "description": "api work",
			"created_at": "2024-01-05T10:00:00", "updated_at": "2024-01-05T10:00:00"},
		"t2": {"id": "t2", "customer": "Acme", "department": "Support",
			"date": "2024-01-06", "hours": 1, "description": "call",
			"created_at": "2024-01-06T09:00:00", "updated_at": "2024-01-06T09:00:00"}
	}`)

	summary, err := Run(dir, testLogger())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.TasksMigrated != 2 {
		t.Fatalf("migrated = %d, want 2", summary.TasksMigrated)
	}
	if summary.CustomersCreated != 1 {
		t.Fatalf("customers created = %d, want 1 (names dedup)", summary.CustomersCreated)
	}
	if summary.DepartmentsCreated != 2 {
		t.Fatalf("departments created = %d, want 2", summary.DepartmentsCreated)
	}

	st, err := store.Open(dir)
	if err != nil {
		t.Fatalf("open stores after migration: %v", err)
	}
	task, ok := st.Tasks.Get("t1")
	if !ok {
		t.Fatal("task t1 lost in migration")
	}
	if task.Hours != 3.5 || task.Date != "2024-01-05" || task.Description != "api work" {
		t.Fatalf("task fields mangled: %+v", task)
	}
	customer, ok := st.Customers.Get(task.CustomerID)
	if !ok || customer.Name != "Acme" {
		t.Fatalf("customer ref broken: %+v", customer)
	}
	dept, ok := st.Departments.Get(task.DepartmentID)
	if !ok || dept.Name != "Engineering" || dept.CustomerID != customer.ID {
		t.Fatalf("department ref broken: %+v", dept)
	}

	// The pre-migration file must exist in the backup.
	if summary.BackupDir == "" {
		t.Fatal("expected a backup dir")
	}
	backup, err := os.ReadFile(filepath.Join(summary.BackupDir, store.TasksFile))
	if err != nil {
		t.Fatalf("reading backup: %v", err)
	}
	var backupRecords map[string]map[string]any
	if err := json.Unmarshal(backup, &backupRecords); err != nil {
		t.Fatalf("decoding backup: %v", err)
	}
	if _, ok := backupRecords["t1"]["customer"]; !ok {
		t.Fatal("backup must hold the original string-keyed records")
	}
}

func TestMigrateOldestFormat(t *testing.T) {
	dir := t.TempDir()
	writeTasksFile(t, dir, `{
		"t1": {"id": "t1", "customer": "Globex", "project": "Website",
			"title": "Landing page", "description": "hero section",
			"status": "active", "estimated_hours": 8,
			"created_at": "2023-11-01T08:00:00", "updated_at": "2023-11-02T08:00:00"}
	}`)

	summary, err := Run(dir, testLogger())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.TasksMigrated != 1 {
		t.Fatalf("migrated = %d, want 1", summary.TasksMigrated)
	}

	st, err := store.Open(dir)
	if err != nil {
		t.Fatalf("open stores: %v", err)
	}
	task, ok := st.Tasks.Get("t1")
	if !ok {
		t.Fatal("task t1 lost in migration")
	}
	if task.Hours != 8 {
		t.Fatalf("hours = %v, want estimate 8", task.Hours)
	}
	if task.Description != "Landing page - hero section" {
		t.Fatalf("description = %q", task.Description)
	}
	dept, _ := st.Departments.Get(task.DepartmentID)
	if dept.Name != "Website" {
		t.Fatalf("department = %q, want project name Website", dept.Name)
	}
}

func TestMigrateIsNoOpOnNormalizedData(t *testing.T) {
	dir := t.TempDir()
	writeTasksFile(t, dir, `{
		"t1": {"id": "t1", "customer_id": "c1", "department_id": "d1",
			"date": "2024-01-05", "hours": 2, "description": "done already",
			"created_at": "2024-01-05T10:00:00Z", "updated_at": "2024-01-05T10:00:00Z"}
	}`)

	summary, err := Run(dir, testLogger())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.TasksMigrated != 0 || summary.TasksUntouched != 1 {
		t.Fatalf("summary = %+v, want pure no-op", summary)
	}
	if summary.BackupDir != "" {
		t.Fatal("no-op run must not create a backup")
	}
}

func TestMigrateMissingFile(t *testing.T) {
	summary, err := Run(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.TasksMigrated != 0 {
		t.Fatalf("summary = %+v, want empty", summary)
	}
}
