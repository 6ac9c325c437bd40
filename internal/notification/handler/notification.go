package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/staffdesk/staffdesk/internal/notification/service"
	"github.com/staffdesk/staffdesk/pkg/httputil"
	"github.com/staffdesk/staffdesk/pkg/logger"
)

// NotificationHandler handles inbox endpoints
type NotificationHandler struct {
	inbox  *service.InboxService
	logger *logger.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(inbox *service.InboxService, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		inbox:  inbox,
		logger: log,
	}
}

// List returns the caller's notifications
// GET /notifications?limit=
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := httputil.QueryInt64(r, "limit")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	list, err := h.inbox.List(r.Context(), int(limit))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	unread, err := h.inbox.UnreadCount(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, list, &httputil.Meta{Total: int64(len(list)), Unread: unread})
}

// MarkRead marks one notification as read
// POST /notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if err := h.inbox.MarkRead(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}

// MarkAllRead marks every notification of the caller as read
// POST /notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.inbox.MarkAllRead(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]int64{"marked": n})
}
