package handler

import (
	"net/http"
	"strconv"

	"github.com/staffdesk/staffdesk/internal/audit/repository"
	"github.com/staffdesk/staffdesk/internal/audit/service"
	"github.com/staffdesk/staffdesk/pkg/httputil"
	"github.com/staffdesk/staffdesk/pkg/logger"
)

// AuditHandler serves the audit log
type AuditHandler struct {
	service *service.AuditService
	logger  *logger.Logger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(svc *service.AuditService, log *logger.Logger) *AuditHandler {
	return &AuditHandler{service: svc, logger: log}
}

// List returns audit entries
// GET /audit?actor=&action=&page=&per_page=
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if perPage < 1 || perPage > 200 {
		perPage = 50
	}

	entries, total, err := h.service.List(r.Context(), repository.ListParams{
		Actor:  q.Get("actor"),
		Action: q.Get("action"),
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, entries, &httputil.Meta{
		Page:    page,
		PerPage: perPage,
		Total:   total,
	})
}
