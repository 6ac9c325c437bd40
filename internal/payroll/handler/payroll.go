package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/staffdesk/staffdesk/internal/export"
	"github.com/staffdesk/staffdesk/internal/payroll/service"
	"github.com/staffdesk/staffdesk/pkg/httputil"
	"github.com/staffdesk/staffdesk/pkg/logger"
)

// PayrollHandler handles payslip endpoints
type PayrollHandler struct {
	service *service.PayrollService
	logger  *logger.Logger
}

// NewPayrollHandler creates a new payroll handler
func NewPayrollHandler(svc *service.PayrollService, log *logger.Logger) *PayrollHandler {
	return &PayrollHandler{
		service: svc,
		logger:  log,
	}
}

// List returns visible payslips
// GET /payslips?employees=a,b&department_id=&month=&year=
func (h *PayrollHandler) List(w http.ResponseWriter, r *http.Request) {
	departmentID, err := httputil.QueryInt64(r, "department_id")
	if err != nil {
		httputil.Error(w, err)
		return
	}
	year, err := httputil.QueryInt64(r, "year")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	payslips, err := h.service.List(r.Context(), service.Query{
		Employees:    httputil.QueryList(r, "employees"),
		DepartmentID: departmentID,
		Month:        r.URL.Query().Get("month"),
		Year:         int(year),
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSONWithMeta(w, http.StatusOK, payslips, &httputil.Meta{Total: int64(len(payslips))})
}

// Get returns a single payslip
// GET /payslips/{id}
func (h *PayrollHandler) Get(w http.ResponseWriter, r *http.Request) {
	slip, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, slip)
}

// Generate computes and stores a payslip
// POST /payslips
func (h *PayrollHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req service.GenerateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	slip, err := h.service.Generate(r.Context(), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, slip)
}

// PDF streams a payslip as a PDF attachment
// GET /payslips/{id}/pdf
func (h *PayrollHandler) PDF(w http.ResponseWriter, r *http.Request) {
	slip, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	body, err := export.PayslipPDF(slip)
	if err != nil {
		h.logger.Error().Err(err).Str("payslip_id", slip.ID).Msg("failed to render payslip pdf")
		httputil.Error(w, err)
		return
	}
	filename := fmt.Sprintf("payslip_%s_%s_%d.pdf", slip.EmployeeID, strings.ToLower(slip.Month), slip.Year)
	httputil.Attachment(w, export.ContentTypePDF, filename, body)
}
