package handler

import (
	"net/http"

	"github.com/staffdesk/staffdesk/internal/attendance/service"
	"github.com/staffdesk/staffdesk/pkg/httputil"
	"github.com/staffdesk/staffdesk/pkg/logger"
)

// AttendanceHandler handles attendance endpoints
type AttendanceHandler struct {
	service *service.AttendanceService
	logger  *logger.Logger
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(svc *service.AttendanceService, log *logger.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		service: svc,
		logger:  log,
	}
}

// CheckInRequest optionally names another employee
type CheckInRequest struct {
	EmployeeID string `json:"employee_id,omitempty" validate:"omitempty,max=64"`
}

// CheckIn records today's check-in
// POST /attendance/check-in
func (h *AttendanceHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	employee, err := decodeEmployee(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	res, err := h.service.CheckIn(r.Context(), employee)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, res)
}

// CheckOut records today's check-out
// POST /attendance/check-out
func (h *AttendanceHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	employee, err := decodeEmployee(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	res, err := h.service.CheckOut(r.Context(), employee)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, res)
}

// List returns visible attendance records
// GET /attendance?employees=a,b&department_id=&from=&to=
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	records, err := h.service.Records(r.Context(), q)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSONWithMeta(w, http.StatusOK, records, &httputil.Meta{Total: int64(len(records))})
}

// Hours returns total hours per employee
// GET /attendance/hours
func (h *AttendanceHandler) Hours(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	totals, err := h.service.HoursByEmployee(r.Context(), q)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, totals)
}

// Summary returns the number of employees present per date
// GET /attendance/summary
func (h *AttendanceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	summary, err := h.service.SummaryByDate(r.Context(), q)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, summary)
}

func decodeEmployee(r *http.Request) (string, error) {
	if r.ContentLength == 0 {
		return "", nil
	}
	var req CheckInRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		return "", err
	}
	if err := httputil.Validate(&req); err != nil {
		return "", err
	}
	return req.EmployeeID, nil
}

func parseQuery(r *http.Request) (service.Query, error) {
	departmentID, err := httputil.QueryInt64(r, "department_id")
	if err != nil {
		return service.Query{}, err
	}
	from, err := httputil.QueryDate(r, "from")
	if err != nil {
		return service.Query{}, err
	}
	to, err := httputil.QueryDate(r, "to")
	if err != nil {
		return service.Query{}, err
	}
	return service.Query{
		Employees:    httputil.QueryList(r, "employees"),
		DepartmentID: departmentID,
		From:         from,
		To:           to,
	}, nil
}
