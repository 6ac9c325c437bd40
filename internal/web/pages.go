package web

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	attendancesvc "github.com/staffdesk/staffdesk/internal/attendance/service"
	"github.com/staffdesk/staffdesk/internal/auth/middleware"
	authsvc "github.com/staffdesk/staffdesk/internal/auth/service"
	departmentsvc "github.com/staffdesk/staffdesk/internal/department/service"
	"github.com/staffdesk/staffdesk/internal/export"
	payrolldomain "github.com/staffdesk/staffdesk/internal/payroll/domain"
	payrollsvc "github.com/staffdesk/staffdesk/internal/payroll/service"
	reportdomain "github.com/staffdesk/staffdesk/internal/report/domain"
	reporthandler "github.com/staffdesk/staffdesk/internal/report/handler"
	taskdomain "github.com/staffdesk/staffdesk/internal/task/domain"
	tasksvc "github.com/staffdesk/staffdesk/internal/task/service"
	usersvc "github.com/staffdesk/staffdesk/internal/user/service"
	"github.com/staffdesk/staffdesk/pkg/actor"
	"github.com/staffdesk/staffdesk/pkg/httputil"
)

const inboxPageSize = 50

// ============================================================================
// SESSION
// ============================================================================

// LoginPage shows the login form
// GET /login
func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "pages/login", "Sign in", nil)
}

// Login checks the form credentials and sets the session cookie
// POST /login
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	req := &authsvc.LoginRequest{}
	if err := decodeForm(r, req); err != nil {
		backWithError(w, r, "/login", err)
		return
	}

	resp, err := s.svc.Auth.Login(r.Context(), req)
	if err != nil {
		backWithError(w, r, "/login", err)
		return
	}

	s.setCookie(w, resp.Token, resp.ExpiresAt)
	back(w, r, "/", "Welcome, "+resp.User.Username+".")
}

// Logout ends the session and clears the cookie
// POST /logout
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.TokenFromRequest(r); token != "" {
		if err := s.svc.Auth.Logout(r.Context(), token); err != nil {
			s.logger.Debug().Err(err).Msg("logout of unknown session")
		}
	}
	s.clearCookie(w)
	back(w, r, "/login", "Logged out.")
}

// ChangePassword replaces the signed-in user's password. Other sessions end.
// POST /password
func (s *Server) ChangePassword(w http.ResponseWriter, r *http.Request) {
	req := &usersvc.ChangePasswordRequest{}
	if err := decodeForm(r, req); err != nil {
		backWithError(w, r, "/", err)
		return
	}
	if err := s.svc.Users.ChangePassword(r.Context(), req); err != nil {
		backWithError(w, r, "/", err)
		return
	}
	back(w, r, "/", "Password changed.")
}

// ============================================================================
// DASHBOARD
// ============================================================================

// Dashboard shows today's attendance, the caller's tasks and unread notifications
// GET /
func (s *Server) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	me := actor.FromContext(ctx)

	today, err := s.svc.Attendance.Today(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	tasks, err := s.svc.Tasks.ListByUser(ctx, me.Username)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	unread, err := s.svc.Inbox.UnreadCount(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "pages/dashboard", "Dashboard", view{
		"Today":  today,
		"Tasks":  tasks,
		"Unread": unread,
	})
}

// ============================================================================
// ATTENDANCE
// ============================================================================

// AttendancePage shows the check-in forms and visible records
// GET /attendance?employees=&from=&to=
func (s *Server) AttendancePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	from, err := httputil.QueryDate(r, "from")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	to, err := httputil.QueryDate(r, "to")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	today, err := s.svc.Attendance.Today(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	records, err := s.svc.Attendance.Records(ctx, attendancesvc.Query{
		Employees: httputil.QueryList(r, "employees"),
		From:      from,
		To:        to,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "pages/attendance", "Attendance", view{
		"Today":   today,
		"Records": records,
	})
}

// CheckIn records a check-in for the caller or, for Managers and Admins, the named employee
// POST /attendance/check-in
func (s *Server) CheckIn(w http.ResponseWriter, r *http.Request) {
	result, err := s.svc.Attendance.CheckIn(r.Context(), formString(r, "employee_id"))
	if err != nil {
		backWithError(w, r, "/attendance", err)
		return
	}
	back(w, r, "/attendance", result.Message)
}

// CheckOut records a check-out
// POST /attendance/check-out
func (s *Server) CheckOut(w http.ResponseWriter, r *http.Request) {
	result, err := s.svc.Attendance.CheckOut(r.Context(), formString(r, "employee_id"))
	if err != nil {
		backWithError(w, r, "/attendance", err)
		return
	}
	back(w, r, "/attendance", result.Message)
}

// ============================================================================
// TASKS
// ============================================================================

// TasksPage lists visible tasks
// GET /tasks?status=
func (s *Server) TasksPage(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	tasks, err := s.svc.Tasks.List(r.Context(), tasksvc.Query{Status: status})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "pages/tasks", "Tasks", view{
		"Tasks":      tasks,
		"Status":     status,
		"Statuses":   taskdomain.Statuses,
		"Types":      taskdomain.Types,
		"Priorities": taskdomain.Priorities,
	})
}

// CreateTask assigns a task from the form
// POST /tasks
func (s *Server) CreateTask(w http.ResponseWriter, r *http.Request) {
	req := &tasksvc.CreateRequest{}
	if err := decodeForm(r, req); err != nil {
		backWithError(w, r, "/tasks", err)
		return
	}

	task, err := s.svc.Tasks.Create(r.Context(), req)
	if err != nil {
		backWithError(w, r, "/tasks", err)
		return
	}
	back(w, r, "/tasks", fmt.Sprintf("Task '%s' assigned to %s.", task.Title, task.AssignedTo))
}

// UpdateTaskStatus moves a task to the posted status
// POST /tasks/{id}/status
func (s *Server) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	req := &tasksvc.UpdateStatusRequest{}
	if err := decodeForm(r, req); err != nil {
		backWithError(w, r, "/tasks", err)
		return
	}

	task, err := s.svc.Tasks.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		backWithError(w, r, "/tasks", err)
		return
	}
	back(w, r, "/tasks", fmt.Sprintf("Task '%s' is now %s.", task.Title, task.Status))
}

// ============================================================================
// PAYROLL
// ============================================================================

// PayrollPage lists visible payslips and, for Admins, the generate form
// GET /payroll
func (s *Server) PayrollPage(w http.ResponseWriter, r *http.Request) {
	payslips, err := s.svc.Payroll.All(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "pages/payroll", "Payroll", view{
		"Payslips":   payslips,
		"Strategies": payrolldomain.StrategyNames(),
		"Months":     payrolldomain.Months,
	})
}

// GeneratePayslip generates a payslip from the form
// POST /payroll
func (s *Server) GeneratePayslip(w http.ResponseWriter, r *http.Request) {
	req := &payrollsvc.GenerateRequest{}
	if err := decodeForm(r, req); err != nil {
		backWithError(w, r, "/payroll", err)
		return
	}

	slip, err := s.svc.Payroll.Generate(r.Context(), req)
	if err != nil {
		backWithError(w, r, "/payroll", err)
		return
	}
	back(w, r, "/payroll", fmt.Sprintf("Payslip for %s generated. Net salary: BDT %s",
		slip.Period(), payrolldomain.FormatAmount(slip.Salary)))
}

// PayslipPDF downloads a payslip
// GET /payroll/{id}/pdf
func (s *Server) PayslipPDF(w http.ResponseWriter, r *http.Request) {
	slip, err := s.svc.Payroll.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	body, err := export.PayslipPDF(slip)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	filename := fmt.Sprintf("payslip_%s_%s_%d.pdf", slip.EmployeeID, strings.ToLower(slip.Month), slip.Year)
	httputil.Attachment(w, export.ContentTypePDF, filename, body)
}

// ============================================================================
// DEPARTMENTS
// ============================================================================

// DepartmentsPage shows the hierarchy and its edit forms
// GET /departments
func (s *Server) DepartmentsPage(w http.ResponseWriter, r *http.Request) {
	tree, err := s.svc.Departments.Tree(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	departments, err := s.svc.Departments.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "pages/departments", "Departments", view{
		"Tree":        tree.Info(),
		"Departments": departments,
	})
}

// CreateDepartment adds a department
// POST /departments
func (s *Server) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	req := &departmentsvc.CreateRequest{}
	if err := decodeForm(r, req); err != nil {
		backWithError(w, r, "/departments", err)
		return
	}

	d, err := s.svc.Departments.Create(r.Context(), req)
	if err != nil {
		backWithError(w, r, "/departments", err)
		return
	}
	back(w, r, "/departments", "Department '"+d.Name+"' created.")
}

// UpdateDepartment renames or moves a department. A parent of 0 makes it a root.
// POST /departments/{id}
func (s *Server) UpdateDepartment(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.URLParamInt64(r, "id")
	if err != nil {
		backWithError(w, r, "/departments", err)
		return
	}
	req := &departmentsvc.UpdateRequest{}
	if err := decodeForm(r, req); err != nil {
		backWithError(w, r, "/departments", err)
		return
	}

	d, err := s.svc.Departments.Update(r.Context(), id, req)
	if err != nil {
		backWithError(w, r, "/departments", err)
		return
	}
	back(w, r, "/departments", "Department '"+d.Name+"' updated.")
}

// DeleteDepartment removes an empty department
// POST /departments/{id}/delete
func (s *Server) DeleteDepartment(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.URLParamInt64(r, "id")
	if err != nil {
		backWithError(w, r, "/departments", err)
		return
	}
	if err := s.svc.Departments.Delete(r.Context(), id); err != nil {
		backWithError(w, r, "/departments", err)
		return
	}
	back(w, r, "/departments", "Department deleted.")
}

// ============================================================================
// USERS
// ============================================================================

// UsersPage lists every account
// GET /users
func (s *Server) UsersPage(w http.ResponseWriter, r *http.Request) {
	users, err := s.svc.Users.ListUsers(r.Context(), false)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	departments, err := s.svc.Departments.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "pages/users", "Users", view{
		"Users":       users,
		"Roles":       actor.Roles,
		"Departments": departments,
	})
}

// CreateUser adds an account from the form
// POST /users
func (s *Server) CreateUser(w http.ResponseWriter, r *http.Request) {
	req := &usersvc.RegisterRequest{}
	if err := decodeForm(r, req); err != nil {
		backWithError(w, r, "/users", err)
		return
	}

	user, err := s.svc.Users.CreateProfile(r.Context(), req)
	if err != nil {
		backWithError(w, r, "/users", err)
		return
	}
	back(w, r, "/users", "User '"+user.Username+"' created.")
}

// SetUserActive activates or deactivates an account
// POST /users/{username}/active
func (s *Server) SetUserActive(w http.ResponseWriter, r *http.Request) {
	active := formString(r, "active") == "true"
	user, err := s.svc.Users.SetActive(r.Context(), chi.URLParam(r, "username"), active)
	if err != nil {
		backWithError(w, r, "/users", err)
		return
	}

	state := "deactivated"
	if user.IsActive {
		state = "activated"
	}
	back(w, r, "/users", "User '"+user.Username+"' "+state+".")
}

// ChangeUserRole assigns a new role
// POST /users/{username}/role
func (s *Server) ChangeUserRole(w http.ResponseWriter, r *http.Request) {
	user, err := s.svc.Users.ChangeRole(r.Context(), chi.URLParam(r, "username"), formString(r, "role"))
	if err != nil {
		backWithError(w, r, "/users", err)
		return
	}
	back(w, r, "/users", "User '"+user.Username+"' is now "+user.Role+".")
}

// ============================================================================
// NOTIFICATIONS
// ============================================================================

// NotificationsPage lists the caller's notifications
// GET /notifications
func (s *Server) NotificationsPage(w http.ResponseWriter, r *http.Request) {
	notifications, err := s.svc.Inbox.List(r.Context(), inboxPageSize)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	unread, err := s.svc.Inbox.UnreadCount(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "pages/notifications", "Notifications", view{
		"Notifications": notifications,
		"Unread":        unread,
	})
}

// MarkNotificationRead marks one notification read
// POST /notifications/{id}/read
func (s *Server) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Inbox.MarkRead(r.Context(), chi.URLParam(r, "id")); err != nil {
		backWithError(w, r, "/notifications", err)
		return
	}
	back(w, r, "/notifications", "")
}

// MarkAllNotificationsRead marks every notification read
// POST /notifications/read-all
func (s *Server) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.Inbox.MarkAllRead(r.Context())
	if err != nil {
		backWithError(w, r, "/notifications", err)
		return
	}
	back(w, r, "/notifications", fmt.Sprintf("Marked %d notifications as read.", n))
}

// ============================================================================
// REPORTS
// ============================================================================

// ReportsPage shows the summaries with download links
// GET /reports?department_id=
func (s *Server) ReportsPage(w http.ResponseWriter, r *http.Request) {
	q, err := reporthandler.ParseQuery(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	summary, err := s.svc.Reports.SystemSummary(r.Context(), q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	tasks, err := s.svc.Reports.TaskReport(r.Context(), q)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "pages/reports", "Reports", view{
		"Summary":      summary,
		"TaskReport":   tasks,
		"Reports":      reportdomain.Reports,
		"DepartmentID": q.DepartmentID,
	})
}

// DownloadReport streams an XLSX or CSV export
// GET /reports/download?report=&format=
func (s *Server) DownloadReport(w http.ResponseWriter, r *http.Request) {
	q, err := reporthandler.ParseQuery(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	file, err := s.svc.Reports.Export(r.Context(), r.URL.Query().Get("report"), r.URL.Query().Get("format"), q)
	if err != nil {
		backWithError(w, r, "/reports", err)
		return
	}
	httputil.Attachment(w, file.ContentType, file.Name, file.Body)
}

// TaskReportPDF downloads the task report of one employee
// GET /reports/employee/{username}/pdf
func (s *Server) TaskReportPDF(w http.ResponseWriter, r *http.Request) {
	file, err := s.svc.Reports.TaskReportPDF(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httputil.Attachment(w, file.ContentType, file.Name, file.Body)
}
