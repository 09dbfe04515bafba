// Package export snapshots the JSON stores into a single SQLite file for
// ad-hoc SQL queries and archival. The snapshot is write-once: an existing
// database at the target path is an error, never overwritten.
package export

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/worklog/internal/store"
)

const schema = `
CREATE TABLE customers (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL DEFAULT '',
	phone      TEXT NOT NULL DEFAULT '',
	address    TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE departments (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	customer_id TEXT NOT NULL REFERENCES customers(id),
	description TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL
);

CREATE TABLE tasks (
	id            TEXT PRIMARY KEY,
	customer_id   TEXT NOT NULL REFERENCES customers(id),
	department_id TEXT NOT NULL REFERENCES departments(id),
	date          TEXT NOT NULL,
	hours         REAL NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL
);

CREATE TABLE time_entries (
	id               TEXT PRIMARY KEY,
	task_id          TEXT NOT NULL REFERENCES tasks(id),
	start_time       DATETIME NOT NULL,
	end_time         DATETIME,
	description      TEXT NOT NULL DEFAULT '',
	duration_seconds INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX idx_departments_customer ON departments(customer_id);
CREATE INDEX idx_tasks_customer ON tasks(customer_id);
CREATE INDEX idx_tasks_department ON tasks(department_id);
CREATE INDEX idx_tasks_date ON tasks(date);
CREATE INDEX idx_time_entries_task ON time_entries(task_id);
`

// Summary reports row counts written to the snapshot.
type Summary struct {
	Customers   int
	Departments int
	Tasks       int
	TimeEntries int
}

// ToSQLite writes every entity in st to a new SQLite database at dbPath.
// All rows go in one transaction so a failed export leaves no partial file
// content behind.
func ToSQLite(ctx context.Context, dbPath string, st *store.Stores) (*Summary, error) {
	if _, err := os.Stat(dbPath); err == nil {
		return nil, fmt.Errorf("export target %s already exists", dbPath)
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	summary := &Summary{}

	for _, c := range st.Customers.List() {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO customers (id, name, email, phone, address, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.Name, c.Email, c.Phone, c.Address, c.CreatedAt, c.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("exporting customer %s: %w", c.ID, err)
		}
		summary.Customers++
	}

	for _, d := range st.Departments.List() {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO departments (id, name, customer_id, description, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			d.ID, d.Name, d.CustomerID, d.Description, d.CreatedAt, d.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("exporting department %s: %w", d.ID, err)
		}
		summary.Departments++
	}

	for _, t := range st.Tasks.List() {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (id, customer_id, department_id, date, hours, description, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.CustomerID, t.DepartmentID, t.Date, t.Hours, t.Description, t.CreatedAt, t.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("exporting task %s: %w", t.ID, err)
		}
		summary.Tasks++
	}

	for _, e := range st.Entries.List() {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO time_entries (id, task_id, start_time, end_time, description, duration_seconds)
			VALUES (?, ?, ?, ?, ?, ?)`,
			e.ID, e.TaskID, e.StartTime, e.EndTime, e.Description, e.DurationSeconds,
		)
		if err != nil {
			return nil, fmt.Errorf("exporting time entry %s: %w", e.ID, err)
		}
		summary.TimeEntries++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing export: %w", err)
	}
	return summary, nil
}
