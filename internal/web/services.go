package web

import (
	"context"

	attendancedomain "github.com/staffdesk/staffdesk/internal/attendance/domain"
	attendancesvc "github.com/staffdesk/staffdesk/internal/attendance/service"
	authsvc "github.com/staffdesk/staffdesk/internal/auth/service"
	departmentdomain "github.com/staffdesk/staffdesk/internal/department/domain"
	departmentsvc "github.com/staffdesk/staffdesk/internal/department/service"
	notificationdomain "github.com/staffdesk/staffdesk/internal/notification/domain"
	payrolldomain "github.com/staffdesk/staffdesk/internal/payroll/domain"
	payrollsvc "github.com/staffdesk/staffdesk/internal/payroll/service"
	reportdomain "github.com/staffdesk/staffdesk/internal/report/domain"
	reportsvc "github.com/staffdesk/staffdesk/internal/report/service"
	taskdomain "github.com/staffdesk/staffdesk/internal/task/domain"
	tasksvc "github.com/staffdesk/staffdesk/internal/task/service"
	userdomain "github.com/staffdesk/staffdesk/internal/user/domain"
	usersvc "github.com/staffdesk/staffdesk/internal/user/service"
)

// Auth opens and closes sessions
type Auth interface {
	Login(ctx context.Context, req *authsvc.LoginRequest) (*authsvc.LoginResponse, error)
	Logout(ctx context.Context, token string) error
}

// Users manages accounts
type Users interface {
	ListUsers(ctx context.Context, activeOnly bool) ([]*userdomain.User, error)
	CreateProfile(ctx context.Context, req *usersvc.RegisterRequest) (*userdomain.User, error)
	SetActive(ctx context.Context, username string, active bool) (*userdomain.User, error)
	ChangeRole(ctx context.Context, username, role string) (*userdomain.User, error)
	ChangePassword(ctx context.Context, req *usersvc.ChangePasswordRequest) error
}

// Departments manages the hierarchy
type Departments interface {
	Tree(ctx context.Context) (*departmentdomain.Tree, error)
	List(ctx context.Context) ([]*departmentdomain.Department, error)
	Create(ctx context.Context, req *departmentsvc.CreateRequest) (*departmentdomain.Department, error)
	Update(ctx context.Context, id int64, req *departmentsvc.UpdateRequest) (*departmentdomain.Department, error)
	Delete(ctx context.Context, id int64) error
}

// Attendance records check-ins
type Attendance interface {
	CheckIn(ctx context.Context, employee string) (*attendancesvc.Result, error)
	CheckOut(ctx context.Context, employee string) (*attendancesvc.Result, error)
	Today(ctx context.Context) (*attendancedomain.Record, error)
	Records(ctx context.Context, q attendancesvc.Query) ([]*attendancedomain.Record, error)
}

// Tasks assigns and tracks tasks
type Tasks interface {
	List(ctx context.Context, q tasksvc.Query) ([]*taskdomain.Task, error)
	ListByUser(ctx context.Context, username string) ([]*taskdomain.Task, error)
	Create(ctx context.Context, req *tasksvc.CreateRequest) (*taskdomain.Task, error)
	UpdateStatus(ctx context.Context, id, status string) (*taskdomain.Task, error)
}

// Payroll generates and reads payslips
type Payroll interface {
	All(ctx context.Context) ([]*payrolldomain.Payslip, error)
	Get(ctx context.Context, id string) (*payrolldomain.Payslip, error)
	Generate(ctx context.Context, req *payrollsvc.GenerateRequest) (*payrolldomain.Payslip, error)
}

// Inbox reads the caller's notifications
type Inbox interface {
	List(ctx context.Context, limit int) ([]*notificationdomain.Notification, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) (int64, error)
}

// Reports aggregates and exports
type Reports interface {
	SystemSummary(ctx context.Context, q reportsvc.Query) (*reportdomain.SystemSummary, error)
	TaskReport(ctx context.Context, q reportsvc.Query) ([]*reportdomain.EmployeeTasks, error)
	Export(ctx context.Context, report, format string, q reportsvc.Query) (*reportsvc.File, error)
	TaskReportPDF(ctx context.Context, username string) (*reportsvc.File, error)
}

// Services are the domain services behind the pages
type Services struct {
	Auth        Auth
	Users       Users
	Departments Departments
	Attendance  Attendance
	Tasks       Tasks
	Payroll     Payroll
	Inbox       Inbox
	Reports     Reports
}
