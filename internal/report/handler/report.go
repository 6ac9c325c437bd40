package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/staffdesk/staffdesk/internal/report/domain"
	"github.com/staffdesk/staffdesk/internal/report/service"
	"github.com/staffdesk/staffdesk/pkg/errors"
	"github.com/staffdesk/staffdesk/pkg/httputil"
	"github.com/staffdesk/staffdesk/pkg/logger"
)

// ReportHandler handles report endpoints
type ReportHandler struct {
	service *service.ReportService
	logger  *logger.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(svc *service.ReportService, log *logger.Logger) *ReportHandler {
	return &ReportHandler{
		service: svc,
		logger:  log,
	}
}

// Routes mounts the report endpoints
func (h *ReportHandler) Routes(r chi.Router) {
	r.Get("/tasks", h.Tasks)
	r.Get("/status", h.Status)
	r.Get("/hours", h.Hours)
	r.Get("/attendance", h.Attendance)
	r.Get("/payslips", h.Payslips)
	r.Get("/pay", h.Pay)
	r.Get("/summary", h.Summary)
	r.Get("/stats", h.Stats)
	r.Get("/employee/{username}", h.Employee)
	r.Get("/employee/{username}/pdf", h.EmployeePDF)
}

// Tasks returns the task report grouped by employee
// GET /reports/tasks?department_id=&employees=&format=
func (h *ReportHandler) Tasks(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, domain.ReportTasks, func(q service.Query) (interface{}, error) {
		return h.service.TaskReport(r.Context(), q)
	})
}

// Status returns the task status summary
// GET /reports/status
func (h *ReportHandler) Status(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, domain.ReportStatus, func(q service.Query) (interface{}, error) {
		return h.service.StatusSummary(r.Context(), q)
	})
}

// Hours returns total hours per employee
// GET /reports/hours?from=&to=
func (h *ReportHandler) Hours(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, domain.ReportHours, func(q service.Query) (interface{}, error) {
		return h.service.HoursByEmployee(r.Context(), q)
	})
}

// Attendance returns the number of employees present per date
// GET /reports/attendance?from=&to=
func (h *ReportHandler) Attendance(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, domain.ReportAttendance, func(q service.Query) (interface{}, error) {
		return h.service.AttendanceByDate(r.Context(), q)
	})
}

// Payslips returns payslips grouped by employee
// GET /reports/payslips
func (h *ReportHandler) Payslips(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, domain.ReportPayslips, func(q service.Query) (interface{}, error) {
		return h.service.PayslipsByEmployee(r.Context(), q)
	})
}

// Pay returns total pay per employee
// GET /reports/pay
func (h *ReportHandler) Pay(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, domain.ReportPay, func(q service.Query) (interface{}, error) {
		return h.service.TotalPayByEmployee(r.Context(), q)
	})
}

// Summary returns the system wide summary
// GET /reports/summary
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, domain.ReportSummary, func(q service.Query) (interface{}, error) {
		return h.service.SystemSummary(r.Context(), q)
	})
}

// Stats returns min, max and average of the given values
// GET /reports/stats?values=1,2.5,3
func (h *ReportHandler) Stats(w http.ResponseWriter, r *http.Request) {
	raw := httputil.QueryList(r, "values")
	values := make([]float64, 0, len(raw))
	for _, v := range raw {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			httputil.Error(w, errors.BadRequest("values must be numbers"))
			return
		}
		values = append(values, f)
	}
	httputil.JSON(w, http.StatusOK, h.service.Stats(values))
}

// Employee returns the summary of one employee
// GET /reports/employee/{username}
func (h *ReportHandler) Employee(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.EmployeeSummary(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, summary)
}

// EmployeePDF streams the task report of one employee
// GET /reports/employee/{username}/pdf
func (h *ReportHandler) EmployeePDF(w http.ResponseWriter, r *http.Request) {
	file, err := h.service.TaskReportPDF(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Attachment(w, file.ContentType, file.Name, file.Body)
}

// serve answers with JSON, or with a file download when ?format is set
func (h *ReportHandler) serve(w http.ResponseWriter, r *http.Request, report string, load func(service.Query) (interface{}, error)) {
	q, err := ParseQuery(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if format := r.URL.Query().Get("format"); format != "" {
		file, err := h.service.Export(r.Context(), report, format, q)
		if err != nil {
			httputil.Error(w, err)
			return
		}
		httputil.Attachment(w, file.ContentType, file.Name, file.Body)
		return
	}

	data, err := load(q)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, data)
}

// ParseQuery reads the shared report filters from the query string
func ParseQuery(r *http.Request) (service.Query, error) {
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
		DepartmentID: departmentID,
		Employees:    httputil.QueryList(r, "employees"),
		From:         from,
		To:           to,
	}, nil
}
