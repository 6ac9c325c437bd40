package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/staffdesk/staffdesk/internal/task/service"
	"github.com/staffdesk/staffdesk/pkg/httputil"
	"github.com/staffdesk/staffdesk/pkg/logger"
)

// TaskHandler handles task endpoints
type TaskHandler struct {
	service *service.TaskService
	logger  *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(svc *service.TaskService, log *logger.Logger) *TaskHandler {
	return &TaskHandler{
		service: svc,
		logger:  log,
	}
}

// List returns visible tasks
// GET /tasks?assignees=a,b&status=&department_id=
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	departmentID, err := httputil.QueryInt64(r, "department_id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	tasks, err := h.service.List(r.Context(), service.Query{
		Assignees:    httputil.QueryList(r, "assignees"),
		DepartmentID: departmentID,
		Status:       r.URL.Query().Get("status"),
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSONWithMeta(w, http.StatusOK, tasks, &httputil.Meta{Total: int64(len(tasks))})
}

// ListByUser returns the tasks of one assignee
// GET /tasks/user/{username}
func (h *TaskHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.service.ListByUser(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, tasks)
}

// Get returns a single task
// GET /tasks/{id}
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, task)
}

// Create assigns a task
// POST /tasks
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	task, err := h.service.Create(r.Context(), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, task)
}

// UpdateStatus moves a task to a new status
// PATCH /tasks/{id}/status
func (h *TaskHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateStatusRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	task, err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, task)
}

// Summary returns task counts per status
// GET /tasks/summary
func (h *TaskHandler) Summary(w http.ResponseWriter, r *http.Request) {
	departmentID, err := httputil.QueryInt64(r, "department_id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	summary, err := h.service.StatusSummary(r.Context(), service.Query{DepartmentID: departmentID})
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, summary)
}
