package report

import (
	"math"
	"testing"

	"github.com/nhle/worklog/internal/model"
	"github.com/nhle/worklog/tests/testutil"
)

func TestTotalHoursEmptyIsZero(t *testing.T) {
	if got := TotalHours(nil); got != 0 {
		t.Fatalf("total of empty list = %v, want 0", got)
	}
}

func TestGroupsSortedByHoursDesc(t *testing.T) {
	tasks := []model.Task{
		{CustomerID: "a", Hours: 1},
		{CustomerID: "b", Hours: 3},
		{CustomerID: "a", Hours: 1.5},
		{CustomerID: "c", Hours: 0.5},
	}

	groups := Groups(tasks, func(t model.Task) string { return t.CustomerID })
	if len(groups) != 3 {
		t.Fatalf("groups = %d, want 3", len(groups))
	}
	if groups[0].Key != "b" || groups[1].Key != "a" || groups[2].Key != "c" {
		t.Fatalf("order = %s, %s, %s; want b, a, c", groups[0].Key, groups[1].Key, groups[2].Key)
	}
	if groups[1].Hours != 2.5 {
		t.Fatalf("group a hours = %v, want 2.5", groups[1].Hours)
	}
	if len(groups[1].Tasks) != 2 {
		t.Fatalf("group a tasks = %d, want 2", len(groups[1].Tasks))
	}
}

func TestPercentagesSumToHundred(t *testing.T) {
	tasks := []model.Task{
		{DepartmentID: "x", Hours: 2},
		{DepartmentID: "y", Hours: 5},
		{DepartmentID: "z", Hours: 0.25},
	}
	groups := Groups(tasks, func(t model.Task) string { return t.DepartmentID })
	percents := PercentageBreakdown(groups)

	var sum float64
	for _, p := range percents {
		sum += p
	}
	if math.Abs(sum-100) > 1e-9 {
		t.Fatalf("percentages sum to %v, want 100", sum)
	}
}

func TestPercentagesZeroGrandTotal(t *testing.T) {
	groups := []Group{{Key: "a"}, {Key: "b"}}
	percents := PercentageBreakdown(groups)
	for k, p := range percents {
		if p != 0 {
			t.Fatalf("group %s = %v%%, want 0 when grand total is 0", k, p)
		}
	}
}

func TestSortByDateDesc(t *testing.T) {
	tasks := []model.Task{
		{ID: "old", Date: "2023-12-31"},
		{ID: "new", Date: "2024-02-01"},
		{ID: "mid", Date: "2024-01-15"},
	}
	SortByDateDesc(tasks)
	if tasks[0].ID != "new" || tasks[1].ID != "mid" || tasks[2].ID != "old" {
		t.Fatalf("order = %s, %s, %s", tasks[0].ID, tasks[1].ID, tasks[2].ID)
	}
}

func TestScenarioAcmeEngineering(t *testing.T) {
	st := testutil.NewTestStores(t)

	acme, err := st.Customers.Create("Acme", "", "", "")
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	eng, err := st.CreateDepartment("Eng", acme.ID, "")
	if err != nil {
		t.Fatalf("create department: %v", err)
	}
	if _, err := st.CreateTask(acme.ID, eng.ID, "2024-01-01", 2.5, "prototype"); err != nil {
		t.Fatalf("create task: %v", err)
	}

	if got := TotalHours(st.Tasks.ListByCustomer(acme.ID)); got != 2.5 {
		t.Fatalf("total hours for Acme = %v, want 2.5", got)
	}

	rows := ByCustomer(st)
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0].Name != "Acme" || rows[0].Hours != 2.5 || rows[0].Percent != 100 {
		t.Fatalf("row = %+v", rows[0])
	}

	overview := BuildOverview(st)
	if overview.TotalTasks != 1 || overview.TotalHours != 2.5 ||
		overview.TotalCustomers != 1 || overview.TotalDepartments != 1 {
		t.Fatalf("overview = %+v", overview)
	}
	if len(overview.RecentTasks) != 1 {
		t.Fatalf("recent tasks = %d, want 1", len(overview.RecentTasks))
	}
}

func TestTrackedByTaskOmitsUntracked(t *testing.T) {
	st := testutil.NewTestStores(t)

	acme, _ := st.Customers.Create("Acme", "", "", "")
	eng, _ := st.CreateDepartment("Eng", acme.ID, "")
	tracked, _ := st.CreateTask(acme.ID, eng.ID, "2024-01-01", 1, "tracked")
	if _, err := st.CreateTask(acme.ID, eng.ID, "2024-01-02", 1, "untracked"); err != nil {
		t.Fatalf("create task: %v", err)
	}

	if _, err := st.StartTimer(tracked.ID, ""); err != nil {
		t.Fatalf("start timer: %v", err)
	}

	rows := TrackedByTask(st)
	for _, row := range rows {
		if row.TaskID != tracked.ID {
			t.Fatalf("unexpected row for task %s", row.TaskID)
		}
	}
}
