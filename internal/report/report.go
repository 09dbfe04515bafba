// Package report builds read-only derived views over the stores: totals,
// group-by breakdowns and the dashboard overview. Nothing in here mutates
// state.
package report

import (
	"sort"

	"github.com/nhle/worklog/internal/model"
	"github.com/nhle/worklog/internal/store"
)

// Group is one partition of a task list with its hour total.
type Group struct {
	Key   string
	Tasks []model.Task
	Hours float64
}

// TotalHours sums hours over the tasks. An empty list totals 0.
func TotalHours(tasks []model.Task) float64 {
	var total float64
	for _, t := range tasks {
		total += t.Hours
	}
	return total
}

// GroupTasks partitions tasks into a map keyed by keyFn.
func GroupTasks(tasks []model.Task, keyFn func(model.Task) string) map[string][]model.Task {
	groups := map[string][]model.Task{}
	for _, t := range tasks {
		k := keyFn(t)
		groups[k] = append(groups[k], t)
	}
	return groups
}

// Groups partitions tasks by keyFn and returns the partitions sorted by
// total hours descending, ties broken by key for a stable order.
func Groups(tasks []model.Task, keyFn func(model.Task) string) []Group {
	partitions := GroupTasks(tasks, keyFn)

	out := make([]Group, 0, len(partitions))
	for k, ts := range partitions {
		out = append(out, Group{Key: k, Tasks: ts, Hours: TotalHours(ts)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Hours != out[j].Hours {
			return out[i].Hours > out[j].Hours
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// PercentageBreakdown returns each group's share of the grand total in
// percent. When the grand total is 0 every group reports 0.
func PercentageBreakdown(groups []Group) map[string]float64 {
	var grand float64
	for _, g := range groups {
		grand += g.Hours
	}

	out := make(map[string]float64, len(groups))
	for _, g := range groups {
		if grand == 0 {
			out[g.Key] = 0
			continue
		}
		out[g.Key] = g.Hours / grand * 100
	}
	return out
}

// SortByDateDesc orders tasks most recent work date first. Dates are
// YYYY-MM-DD strings, so lexicographic order is chronological.
func SortByDateDesc(tasks []model.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].Date != tasks[j].Date {
			return tasks[i].Date > tasks[j].Date
		}
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
}

// SortByCreatedDesc orders tasks most recently created first.
func SortByCreatedDesc(tasks []model.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
}

// Overview is the dashboard summary.
type Overview struct {
	TotalTasks       int          `json:"total_tasks"`
	TotalHours       float64      `json:"total_hours"`
	TotalCustomers   int          `json:"total_customers"`
	TotalDepartments int          `json:"total_departments"`
	RecentTasks      []model.Task `json:"recent_tasks"`
}

// BuildOverview assembles the dashboard summary: counts, grand total and the
// ten most recently created tasks.
func BuildOverview(st *store.Stores) Overview {
	tasks := st.Tasks.List()
	SortByCreatedDesc(tasks)

	recent := tasks
	if len(recent) > 10 {
		recent = recent[:10]
	}

	return Overview{
		TotalTasks:       len(tasks),
		TotalHours:       TotalHours(tasks),
		TotalCustomers:   len(st.Customers.List()),
		TotalDepartments: len(st.Departments.List()),
		RecentTasks:      recent,
	}
}

// Row is one line of a leaderboard breakdown.
type Row struct {
	Key     string  `json:"key"`
	Name    string  `json:"name"`
	Tasks   int     `json:"tasks"`
	Hours   float64 `json:"hours"`
	Percent float64 `json:"percent"`
}

func buildRows(groups []Group, name func(key string) string) []Row {
	percents := PercentageBreakdown(groups)

	rows := make([]Row, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, Row{
			Key:     g.Key,
			Name:    name(g.Key),
			Tasks:   len(g.Tasks),
			Hours:   g.Hours,
			Percent: percents[g.Key],
		})
	}
	return rows
}

// ByCustomer breaks all tasks down per customer, hours descending, with
// customer names resolved from the store.
func ByCustomer(st *store.Stores) []Row {
	groups := Groups(st.Tasks.List(), func(t model.Task) string { return t.CustomerID })
	return buildRows(groups, func(id string) string {
		if c, ok := st.Customers.Get(id); ok {
			return c.Name
		}
		return id
	})
}

// ByDepartment breaks all tasks down per department, hours descending.
func ByDepartment(st *store.Stores) []Row {
	groups := Groups(st.Tasks.List(), func(t model.Task) string { return t.DepartmentID })
	return buildRows(groups, func(id string) string {
		if d, ok := st.Departments.Get(id); ok {
			return d.Name
		}
		return id
	})
}

// ByDescription breaks all tasks down per description text.
func ByDescription(st *store.Stores) []Row {
	groups := Groups(st.Tasks.List(), func(t model.Task) string { return t.Description })
	return buildRows(groups, func(key string) string { return key })
}

// TrackedRow is one line of the timer report: total tracked seconds per
// task, live tail included.
type TrackedRow struct {
	TaskID      string  `json:"task_id"`
	Description string  `json:"description"`
	Seconds     int64   `json:"seconds"`
	Hours       float64 `json:"hours"`
}

// TrackedByTask returns tracked time per task, most tracked first. Tasks with
// no tracked time are omitted.
func TrackedByTask(st *store.Stores) []TrackedRow {
	var rows []TrackedRow
	for _, t := range st.Tasks.List() {
		secs := st.Entries.ElapsedSeconds(t.ID)
		if secs == 0 {
			continue
		}
		rows = append(rows, TrackedRow{
			TaskID:      t.ID,
			Description: t.Description,
			Seconds:     secs,
			Hours:       float64(secs) / 3600.0,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Seconds != rows[j].Seconds {
			return rows[i].Seconds > rows[j].Seconds
		}
		return rows[i].TaskID < rows[j].TaskID
	})
	return rows
}
