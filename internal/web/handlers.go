package web

import (
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nhle/worklog/internal/model"
	"github.com/nhle/worklog/internal/report"
)

// --- customers ---

type customerRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type customerPatchRequest struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

func (h *Handler) handleListCustomers(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	customers := h.stores.Customers.List()
	sort.Slice(customers, func(i, j int) bool { return customers[i].Name < customers[j].Name })
	writeJSON(w, http.StatusOK, customers)
}

func (h *Handler) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	customer, err := h.stores.Customers.Create(req.Name, req.Email, req.Phone, req.Address)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, customer)
}

func (h *Handler) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	customer, ok := h.stores.Customers.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "customer not found")
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (h *Handler) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerPatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name must not be empty")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	customer, err := h.stores.Customers.Update(chi.URLParam(r, "id"), model.CustomerPatch{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (h *Handler) handleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	removed, err := h.stores.DeleteCustomer(chi.URLParam(r, "id"))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "customer not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCustomerDepartments(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := chi.URLParam(r, "id")
	if _, ok := h.stores.Customers.Get(id); !ok {
		writeError(w, http.StatusNotFound, "customer not found")
		return
	}
	departments := h.stores.Departments.ListByCustomer(id)
	sort.Slice(departments, func(i, j int) bool { return departments[i].Name < departments[j].Name })
	writeJSON(w, http.StatusOK, departments)
}

func (h *Handler) handleCustomerTasks(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := chi.URLParam(r, "id")
	if _, ok := h.stores.Customers.Get(id); !ok {
		writeError(w, http.StatusNotFound, "customer not found")
		return
	}
	tasks := h.stores.Tasks.ListByCustomer(id)
	report.SortByDateDesc(tasks)
	writeJSON(w, http.StatusOK, tasks)
}

// --- departments ---

type departmentRequest struct {
	Name        string `json:"name"`
	CustomerID  string `json:"customer_id"`
	Description string `json:"description"`
}

type departmentPatchRequest struct {
	Name        *string `json:"name"`
	CustomerID  *string `json:"customer_id"`
	Description *string `json:"description"`
}

func (h *Handler) handleListDepartments(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	departments := h.stores.Departments.List()
	sort.Slice(departments, func(i, j int) bool { return departments[i].Name < departments[j].Name })
	writeJSON(w, http.StatusOK, departments)
}

func (h *Handler) handleCreateDepartment(w http.ResponseWriter, r *http.Request) {
	var req departmentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.CustomerID == "" {
		writeError(w, http.StatusBadRequest, "customer_id is required")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	department, err := h.stores.CreateDepartment(req.Name, req.CustomerID, req.Description)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, department)
}

func (h *Handler) handleGetDepartment(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	department, ok := h.stores.Departments.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "department not found")
		return
	}
	writeJSON(w, http.StatusOK, department)
}

func (h *Handler) handleUpdateDepartment(w http.ResponseWriter, r *http.Request) {
	var req departmentPatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name must not be empty")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if req.CustomerID != nil {
		if _, ok := h.stores.Customers.Get(*req.CustomerID); !ok {
			writeError(w, http.StatusBadRequest, "customer_id names no existing customer")
			return
		}
	}

	department, err := h.stores.Departments.Update(chi.URLParam(r, "id"), model.DepartmentPatch{
		Name:        req.Name,
		CustomerID:  req.CustomerID,
		Description: req.Description,
	})
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, department)
}

func (h *Handler) handleDeleteDepartment(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	removed, err := h.stores.DeleteDepartment(chi.URLParam(r, "id"))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "department not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDepartmentTasks(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := chi.URLParam(r, "id")
	if _, ok := h.stores.Departments.Get(id); !ok {
		writeError(w, http.StatusNotFound, "department not found")
		return
	}
	tasks := h.stores.Tasks.ListByDepartment(id)
	report.SortByDateDesc(tasks)
	writeJSON(w, http.StatusOK, tasks)
}

// --- tasks ---

type taskRequest struct {
	CustomerID   string  `json:"customer_id"`
	DepartmentID string  `json:"department_id"`
	Date         string  `json:"date"`
	Hours        float64 `json:"hours"`
	Description  string  `json:"description"`
}

type taskPatchRequest struct {
	CustomerID   *string  `json:"customer_id"`
	DepartmentID *string  `json:"department_id"`
	Date         *string  `json:"date"`
	Hours        *float64 `json:"hours"`
	Description  *string  `json:"description"`
}

func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	tasks := h.stores.Tasks.List()
	if customerID := r.URL.Query().Get("customer_id"); customerID != "" {
		tasks = filterTasks(tasks, func(t model.Task) bool { return t.CustomerID == customerID })
	}
	if departmentID := r.URL.Query().Get("department_id"); departmentID != "" {
		tasks = filterTasks(tasks, func(t model.Task) bool { return t.DepartmentID == departmentID })
	}
	report.SortByDateDesc(tasks)
	writeJSON(w, http.StatusOK, tasks)
}

func filterTasks(tasks []model.Task, keep func(model.Task) bool) []model.Task {
	out := tasks[:0:0]
	for _, t := range tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.CustomerID == "" || req.DepartmentID == "" {
		writeError(w, http.StatusBadRequest, "customer_id and department_id are required")
		return
	}
	if _, err := model.ParseDate(req.Date); err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	if req.Hours <= 0 {
		writeError(w, http.StatusBadRequest, "hours must be greater than 0")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	task, err := h.stores.CreateTask(req.CustomerID, req.DepartmentID, req.Date, req.Hours, req.Description)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	task, ok := h.stores.Tasks.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *Handler) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var req taskPatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Date != nil {
		if _, err := model.ParseDate(*req.Date); err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
	}
	if req.Hours != nil && *req.Hours <= 0 {
		writeError(w, http.StatusBadRequest, "hours must be greater than 0")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	task, err := h.stores.Tasks.Update(chi.URLParam(r, "id"), model.TaskPatch{
		CustomerID:   req.CustomerID,
		DepartmentID: req.DepartmentID,
		Date:         req.Date,
		Hours:        req.Hours,
		Description:  req.Description,
	})
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *Handler) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	removed, err := h.stores.DeleteTask(chi.URLParam(r, "id"))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleTaskElapsed(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := chi.URLParam(r, "id")
	if _, ok := h.stores.Tasks.Get(id); !ok {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	seconds := h.stores.Entries.ElapsedSeconds(id)
	writeJSON(w, http.StatusOK, map[string]any{
		"task_id": id,
		"seconds": seconds,
		"hours":   float64(seconds) / 3600.0,
	})
}

// --- timer ---

type timerStartRequest struct {
	TaskID      string `json:"task_id"`
	Description string `json:"description"`
}

func (h *Handler) handleTimerStart(w http.ResponseWriter, r *http.Request) {
	var req timerStartRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.TaskID == "" {
		writeError(w, http.StatusBadRequest, "task_id is required")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	entry, err := h.stores.StartTimer(req.TaskID, req.Description)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *Handler) handleTimerStop(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry, err := h.stores.Entries.Stop()
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, "no timer running")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) handleTimerActive(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry, ok := h.stores.Entries.Active()
	if !ok {
		writeError(w, http.StatusNotFound, "no timer running")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// --- reports ---

func (h *Handler) handleReportOverview(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	writeJSON(w, http.StatusOK, report.BuildOverview(h.stores))
}

func (h *Handler) handleReportByCustomer(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	writeJSON(w, http.StatusOK, report.ByCustomer(h.stores))
}

func (h *Handler) handleReportByDepartment(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	writeJSON(w, http.StatusOK, report.ByDepartment(h.stores))
}

func (h *Handler) handleReportByDescription(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	writeJSON(w, http.StatusOK, report.ByDescription(h.stores))
}

func (h *Handler) handleReportTracked(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	writeJSON(w, http.StatusOK, report.TrackedByTask(h.stores))
}
