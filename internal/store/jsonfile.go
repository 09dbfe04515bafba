package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store file names. The layout (one JSON object per store, outer keys are
// entity ids, values are full records) is a compatibility surface shared
// with the migration utility and earlier releases.
const (
	CustomersFile   = "customers.json"
	DepartmentsFile = "departments.json"
	TasksFile       = "tasks.json"
	TimeEntriesFile = "time_entries.json"
)

// readCollection loads a whole store file into a map keyed by entity id.
// A missing file yields an empty map; a file that exists but cannot be
// decoded yields a *CorruptError.
func readCollection[T any](path string) (map[string]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]T{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	items := map[string]T{}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, &CorruptError{Path: path, Err: err}
	}
	return items, nil
}

// writeCollection rewrites a whole store file from the in-memory map.
// Not transactional and not safe for concurrent writers; the intended
// deployment is single-writer.
func writeCollection[T any](path string, items map[string]T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
