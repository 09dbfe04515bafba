// Package web exposes the stores and reports as a JSON API. It owns the
// presentation-side input validation: parsing and defaulting request fields
// before anything reaches the stores.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nhle/worklog/internal/store"
)

// Handler serves the JSON API over one set of stores.
//
// The stores assume a single writer at a time, so a mutex serializes request
// handling within this process. Two processes pointed at the same data
// directory still race; that is a documented limitation of the whole-file
// storage model, not something this layer can fix.
type Handler struct {
	stores *store.Stores
	log    *slog.Logger
	mu     sync.Mutex
}

// NewRouter builds the chi router over the given stores.
func NewRouter(stores *store.Stores, log *slog.Logger) http.Handler {
	h := &Handler{stores: stores, log: log}

	r := chi.NewRouter()
	r.Use(requestLogger(log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(api chi.Router) {
		api.Route("/customers", func(cr chi.Router) {
			cr.Get("/", h.handleListCustomers)
			cr.Post("/", h.handleCreateCustomer)
			cr.Get("/{id}", h.handleGetCustomer)
			cr.Patch("/{id}", h.handleUpdateCustomer)
			cr.Delete("/{id}", h.handleDeleteCustomer)
			cr.Get("/{id}/departments", h.handleCustomerDepartments)
			cr.Get("/{id}/tasks", h.handleCustomerTasks)
		})

		api.Route("/departments", func(dr chi.Router) {
			dr.Get("/", h.handleListDepartments)
			dr.Post("/", h.handleCreateDepartment)
			dr.Get("/{id}", h.handleGetDepartment)
			dr.Patch("/{id}", h.handleUpdateDepartment)
			dr.Delete("/{id}", h.handleDeleteDepartment)
			dr.Get("/{id}/tasks", h.handleDepartmentTasks)
		})

		api.Route("/tasks", func(tr chi.Router) {
			tr.Get("/", h.handleListTasks)
			tr.Post("/", h.handleCreateTask)
			tr.Get("/{id}", h.handleGetTask)
			tr.Patch("/{id}", h.handleUpdateTask)
			tr.Delete("/{id}", h.handleDeleteTask)
			tr.Get("/{id}/elapsed", h.handleTaskElapsed)
		})

		api.Route("/timer", func(tr chi.Router) {
			tr.Post("/start", h.handleTimerStart)
			tr.Post("/stop", h.handleTimerStop)
			tr.Get("/active", h.handleTimerActive)
		})

		api.Route("/reports", func(rr chi.Router) {
			rr.Get("/overview", h.handleReportOverview)
			rr.Get("/by-customer", h.handleReportByCustomer)
			rr.Get("/by-department", h.handleReportByDepartment)
			rr.Get("/by-description", h.handleReportByDescription)
			rr.Get("/tracked", h.handleReportTracked)
		})
	})

	return r
}

// requestLogger provides basic request logging.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Info("http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote", r.RemoteAddr),
				slog.Duration("dur", time.Since(start)),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps store errors to HTTP statuses: absent ids to 404,
// blocked deletes to 409, everything else to 500.
func (h *Handler) writeStoreError(w http.ResponseWriter, err error) {
	var ref *store.ReferenceError
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &ref):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.log.Error("store operation failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
