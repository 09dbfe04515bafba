// Package migrate converts tasks.json files written by earlier releases to
// the normalized customer/department model. It is a one-time utility that
// sits outside the stores: it reads and rewrites the files directly, after
// taking a backup of the data directory.
//
// Two legacy generations are recognized:
//
//   - customer/project names with a status enum and an hours estimate,
//   - customer/department names with real per-date hours.
//
// Records already carrying foreign keys pass through untouched.
package migrate

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/nhle/worklog/internal/model"
	"github.com/nhle/worklog/internal/store"
)

// Summary reports what a migration run did.
type Summary struct {
	BackupDir          string
	TasksMigrated      int
	TasksUntouched     int
	CustomersCreated   int
	DepartmentsCreated int
}

// Run migrates dataDir's tasks.json in place. Customers and departments are
// created through the stores so they get proper ids and timestamps; task ids
// and creation times are preserved. A no-op run (no file, or nothing legacy)
// returns an empty summary and leaves the directory alone.
func Run(dataDir string, log *slog.Logger) (*Summary, error) {
	tasksPath := filepath.Join(dataDir, store.TasksFile)

	raw, err := os.ReadFile(tasksPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info("no tasks file, nothing to migrate", slog.String("path", tasksPath))
			return &Summary{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", tasksPath, err)
	}

	var records map[string]model.LegacyTask
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", tasksPath, err)
	}

	legacyCount := 0
	for _, rec := range records {
		if !rec.Normalized() {
			legacyCount++
		}
	}
	if legacyCount == 0 {
		log.Info("all tasks already normalized, nothing to migrate")
		return &Summary{TasksUntouched: len(records)}, nil
	}

	backupDir, err := backupData(dataDir)
	if err != nil {
		return nil, err
	}
	log.Info("data backed up", slog.String("dir", backupDir))

	customers, err := store.OpenCustomerStore(filepath.Join(dataDir, store.CustomersFile))
	if err != nil {
		return nil, err
	}
	departments, err := store.OpenDepartmentStore(filepath.Join(dataDir, store.DepartmentsFile))
	if err != nil {
		return nil, err
	}

	summary := &Summary{BackupDir: backupDir}

	// Customer names and (customer, department) pairs dedup across the
	// whole file, reusing entities that already exist in the stores.
	customerIDs := map[string]string{}
	for _, c := range customers.List() {
		customerIDs[c.Name] = c.ID
	}
	type deptKey struct{ customerID, name string }
	departmentIDs := map[deptKey]string{}
	for _, d := range departments.List() {
		departmentIDs[deptKey{d.CustomerID, d.Name}] = d.ID
	}

	out := make(map[string]model.Task, len(records))
	for id, rec := range records {
		if rec.Normalized() {
			task, err := decodeNormalized(raw, id)
			if err != nil {
				return nil, err
			}
			out[id] = task
			summary.TasksUntouched++
			continue
		}

		customerName, departmentName, task := convertLegacy(id, rec)

		customerID, ok := customerIDs[customerName]
		if !ok {
			c, err := customers.Create(customerName, "", "", "")
			if err != nil {
				return nil, fmt.Errorf("creating customer %q: %w", customerName, err)
			}
			customerID = c.ID
			customerIDs[customerName] = customerID
			summary.CustomersCreated++
			log.Info("created customer", slog.String("name", customerName))
		}

		key := deptKey{customerID, departmentName}
		departmentID, ok := departmentIDs[key]
		if !ok {
			d, err := departments.Create(departmentName, customerID, "")
			if err != nil {
				return nil, fmt.Errorf("creating department %q: %w", departmentName, err)
			}
			departmentID = d.ID
			departmentIDs[key] = departmentID
			summary.DepartmentsCreated++
			log.Info("created department",
				slog.String("name", departmentName),
				slog.String("customer", customerName),
			)
		}

		task.CustomerID = customerID
		task.DepartmentID = departmentID
		out[id] = task
		summary.TasksMigrated++
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding migrated tasks: %w", err)
	}
	if err := os.WriteFile(tasksPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", tasksPath, err)
	}

	log.Info("migration complete",
		slog.Int("migrated", summary.TasksMigrated),
		slog.Int("untouched", summary.TasksUntouched),
		slog.Int("customers_created", summary.CustomersCreated),
		slog.Int("departments_created", summary.DepartmentsCreated),
	)
	return summary, nil
}

// decodeNormalized re-decodes one record from the raw file as a model.Task
// so already-migrated records survive byte-for-value.
func decodeNormalized(raw []byte, id string) (model.Task, error) {
	var all map[string]model.Task
	if err := json.Unmarshal(raw, &all); err != nil {
		return model.Task{}, fmt.Errorf("decoding normalized task %s: %w", id, err)
	}
	return all[id], nil
}

// convertLegacy maps one legacy record to the normalized model plus the
// customer/department names it referenced.
func convertLegacy(id string, rec model.LegacyTask) (customerName, departmentName string, task model.Task) {
	customerName = rec.Customer
	if customerName == "" {
		customerName = "Unknown"
	}

	task = model.Task{
		ID:        id,
		CreatedAt: parseLegacyTime(rec.CreatedAt),
		UpdatedAt: parseLegacyTime(rec.UpdatedAt),
	}

	if rec.Project != "" || rec.Title != "" {
		// Oldest format: project becomes the department, the estimate
		// stands in for actual hours, title and description merge.
		departmentName = rec.Project
		if departmentName == "" {
			departmentName = "General"
		}
		task.Date = time.Now().UTC().Format(model.DateFormat)
		task.Hours = rec.EstimatedHours
		if task.Hours == 0 {
			task.Hours = 1.0
		}
		task.Description = rec.Title
		if rec.Description != "" {
			if task.Description != "" {
				task.Description += " - "
			}
			task.Description += rec.Description
		}
		return customerName, departmentName, task
	}

	departmentName = rec.Department
	if departmentName == "" {
		departmentName = "General"
	}
	task.Date = rec.Date
	if task.Date == "" {
		task.Date = time.Now().UTC().Format(model.DateFormat)
	}
	task.Hours = rec.Hours
	task.Description = rec.Description
	return customerName, departmentName, task
}

func parseLegacyTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}

// backupData copies every JSON file in dataDir to a timestamped sibling
// directory before the migration touches anything.
func backupData(dataDir string) (string, error) {
	backupDir := fmt.Sprintf("%s_backup_%s", filepath.Clean(dataDir), time.Now().Format("20060102_150405"))
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return "", fmt.Errorf("creating backup dir: %w", err)
	}

	matches, err := filepath.Glob(filepath.Join(dataDir, "*.json"))
	if err != nil {
		return "", fmt.Errorf("listing data files: %w", err)
	}
	for _, src := range matches {
		data, err := os.ReadFile(src)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", src, err)
		}
		dst := filepath.Join(backupDir, filepath.Base(src))
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return "", fmt.Errorf("writing %s: %w", dst, err)
		}
	}
	return backupDir, nil
}
