package web

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/nhle/worklog/internal/model"
	"github.com/nhle/worklog/internal/store"
	"github.com/nhle/worklog/tests/testutil"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.Stores) {
	t.Helper()

	stores := testutil.NewTestStores(t)
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	srv := httptest.NewServer(NewRouter(stores, log))
	t.Cleanup(srv.Close)
	return srv, stores
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeInto(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

func TestCustomerEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/customers", map[string]string{"name": "Acme"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var created model.Customer
	decodeInto(t, resp, &created)
	if created.ID == "" || created.Name != "Acme" {
		t.Fatalf("created = %+v", created)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/customers/"+created.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPatch, srv.URL+"/api/customers/"+created.ID,
		map[string]string{"email": "hello@acme.test"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch status = %d", resp.StatusCode)
	}
	var updated model.Customer
	decodeInto(t, resp, &updated)
	if updated.Email != "hello@acme.test" || updated.Name != "Acme" {
		t.Fatalf("updated = %+v", updated)
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/customers", map[string]string{"name": "  "})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("blank name status = %d, want 400", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/customers/nope", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing customer status = %d, want 404", resp.StatusCode)
	}
}

func TestDeleteReferencedCustomerConflicts(t *testing.T) {
	srv, stores := newTestServer(t)

	customer, _ := stores.Customers.Create("Acme", "", "", "")
	if _, err := stores.CreateDepartment("Eng", customer.ID, ""); err != nil {
		t.Fatalf("create department: %v", err)
	}

	resp := doJSON(t, http.MethodDelete, srv.URL+"/api/customers/"+customer.ID, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("delete status = %d, want 409", resp.StatusCode)
	}
}

func TestTaskFlowAndReports(t *testing.T) {
	srv, stores := newTestServer(t)

	customer, _ := stores.Customers.Create("Acme", "", "", "")
	dept, _ := stores.CreateDepartment("Eng", customer.ID, "")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/tasks", map[string]any{
		"customer_id":   customer.ID,
		"department_id": dept.ID,
		"date":          "2024-01-01",
		"hours":         2.5,
		"description":   "prototype",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create task status = %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/tasks", map[string]any{
		"customer_id":   customer.ID,
		"department_id": dept.ID,
		"date":          "2024-01-01",
		"hours":         0,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("zero hours status = %d, want 400", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/tasks?customer_id="+customer.ID, nil)
	var tasks []model.Task
	decodeInto(t, resp, &tasks)
	if len(tasks) != 1 {
		t.Fatalf("tasks = %d, want 1", len(tasks))
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/reports/by-customer", nil)
	var rows []map[string]any
	decodeInto(t, resp, &rows)
	if len(rows) != 1 {
		t.Fatalf("report rows = %d, want 1", len(rows))
	}
	if rows[0]["name"] != "Acme" || rows[0]["percent"].(float64) != 100 {
		t.Fatalf("report row = %+v", rows[0])
	}
}

func TestTimerEndpoints(t *testing.T) {
	srv, stores := newTestServer(t)

	customer, _ := stores.Customers.Create("Acme", "", "", "")
	dept, _ := stores.CreateDepartment("Eng", customer.ID, "")
	task, _ := stores.CreateTask(customer.ID, dept.ID, "2024-01-01", 1, "")

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/timer/active", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("active while idle status = %d, want 404", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/timer/start",
		map[string]string{"task_id": task.ID, "description": "focus"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start status = %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/timer/active", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("active status = %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/timer/stop", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stop status = %d", resp.StatusCode)
	}
	var stopped model.TimeEntry
	decodeInto(t, resp, &stopped)
	if stopped.EndTime == nil || stopped.DurationSeconds < 0 {
		t.Fatalf("stopped = %+v", stopped)
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/timer/stop", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("stop while idle status = %d, want 404", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/tasks/"+task.ID+"/elapsed", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("elapsed status = %d", resp.StatusCode)
	}
}
