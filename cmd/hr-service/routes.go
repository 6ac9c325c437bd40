package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	attendancehandler "github.com/staffdesk/staffdesk/internal/attendance/handler"
	attendancesvc "github.com/staffdesk/staffdesk/internal/attendance/service"
	audithandler "github.com/staffdesk/staffdesk/internal/audit/handler"
	auditsvc "github.com/staffdesk/staffdesk/internal/audit/service"
	authhandler "github.com/staffdesk/staffdesk/internal/auth/handler"
	"github.com/staffdesk/staffdesk/internal/auth/middleware"
	authsvc "github.com/staffdesk/staffdesk/internal/auth/service"
	departmenthandler "github.com/staffdesk/staffdesk/internal/department/handler"
	departmentsvc "github.com/staffdesk/staffdesk/internal/department/service"
	notificationhandler "github.com/staffdesk/staffdesk/internal/notification/handler"
	notificationsvc "github.com/staffdesk/staffdesk/internal/notification/service"
	payrollhandler "github.com/staffdesk/staffdesk/internal/payroll/handler"
	payrollsvc "github.com/staffdesk/staffdesk/internal/payroll/service"
	reporthandler "github.com/staffdesk/staffdesk/internal/report/handler"
	reportsvc "github.com/staffdesk/staffdesk/internal/report/service"
	taskhandler "github.com/staffdesk/staffdesk/internal/task/handler"
	tasksvc "github.com/staffdesk/staffdesk/internal/task/service"
	userhandler "github.com/staffdesk/staffdesk/internal/user/handler"
	usersvc "github.com/staffdesk/staffdesk/internal/user/service"
	"github.com/staffdesk/staffdesk/internal/web"
	"github.com/staffdesk/staffdesk/pkg/config"
	"github.com/staffdesk/staffdesk/pkg/database"
	"github.com/staffdesk/staffdesk/pkg/httputil"
	"github.com/staffdesk/staffdesk/pkg/logger"
	"github.com/staffdesk/staffdesk/pkg/messaging"
	"github.com/staffdesk/staffdesk/pkg/permissions"
)

// apiHandlers carries the services behind the JSON API
type apiHandlers struct {
	auth          *authsvc.AuthService
	users         *usersvc.UserService
	departments   *departmentsvc.DepartmentService
	attendance    *attendancesvc.AttendanceService
	tasks         *tasksvc.TaskService
	payroll       *payrollsvc.PayrollService
	inbox         *notificationsvc.InboxService
	reports       *reportsvc.ReportService
	audit         *auditsvc.AuditService
	authenticator *middleware.Authenticator
}

func newRouter(cfg *config.Config, db *database.DB, rmq *messaging.RabbitMQ, h *apiHandlers, pages *web.Server, log *logger.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{
			"status":   "healthy",
			"service":  serviceName,
			"database": db.Health(r.Context()),
		}
		if rmq != nil {
			status["rabbitmq"] = rmq.Health()
		}
		httputil.JSON(w, http.StatusOK, status)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"Content-Disposition", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
		mountAPI(r, h, log)
	})

	r.Mount("/", pages.Routes())
	return r
}

func mountAPI(r chi.Router, h *apiHandlers, log *logger.Logger) {
	auth := authhandler.NewAuthHandler(h.auth, log)
	users := userhandler.NewUserHandler(h.users, log)
	departments := departmenthandler.NewDepartmentHandler(h.departments, log)
	attendance := attendancehandler.NewAttendanceHandler(h.attendance, log)
	tasks := taskhandler.NewTaskHandler(h.tasks, log)
	payroll := payrollhandler.NewPayrollHandler(h.payroll, log)
	notifications := notificationhandler.NewNotificationHandler(h.inbox, log)
	reports := reporthandler.NewReportHandler(h.reports, log)
	audit := audithandler.NewAuditHandler(h.audit, log)

	r.Post("/auth/login", auth.Login)

	r.Group(func(r chi.Router) {
		r.Use(h.authenticator.Require)

		r.Post("/auth/logout", auth.Logout)
		r.Get("/auth/me", auth.Me)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", users.List)
			r.Post("/", users.Create)
			r.Post("/me/password", users.ChangePassword)
			r.Get("/{username}", users.Get)
			r.Patch("/{username}", users.Update)
			r.Put("/{username}/role", users.ChangeRole)
			r.Put("/{username}/active", users.SetActive)
		})

		r.Route("/departments", func(r chi.Router) {
			r.Get("/", departments.List)
			r.Get("/tree", departments.Tree)
			r.Post("/", departments.Create)
			r.Get("/{id}", departments.Get)
			r.Put("/{id}", departments.Update)
			r.Delete("/{id}", departments.Delete)
		})

		r.Route("/attendance", func(r chi.Router) {
			r.Get("/", attendance.List)
			r.Post("/check-in", attendance.CheckIn)
			r.Post("/check-out", attendance.CheckOut)
			r.Get("/hours", attendance.Hours)
			r.Get("/summary", attendance.Summary)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", tasks.List)
			r.Post("/", tasks.Create)
			r.Get("/summary", tasks.Summary)
			r.Get("/user/{username}", tasks.ListByUser)
			r.Get("/{id}", tasks.Get)
			r.Patch("/{id}/status", tasks.UpdateStatus)
		})

		r.Route("/payslips", func(r chi.Router) {
			r.Get("/", payroll.List)
			r.Post("/", payroll.Generate)
			r.Get("/{id}", payroll.Get)
			r.Get("/{id}/pdf", payroll.PDF)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", notifications.List)
			r.Post("/read-all", notifications.MarkAllRead)
			r.Post("/{id}/read", notifications.MarkRead)
		})

		r.Route("/reports", reports.Routes)

		r.With(h.authenticator.RequirePermission(permissions.AuditRead)).Get("/audit", audit.List)
	})
}
