package web_test

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	attendancedomain "github.com/staffdesk/staffdesk/internal/attendance/domain"
	attendancesvc "github.com/staffdesk/staffdesk/internal/attendance/service"
	"github.com/staffdesk/staffdesk/internal/auth/middleware"
	authsvc "github.com/staffdesk/staffdesk/internal/auth/service"
	"github.com/staffdesk/staffdesk/internal/auth/session"
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
	"github.com/staffdesk/staffdesk/internal/web"
	"github.com/staffdesk/staffdesk/pkg/actor"
	"github.com/staffdesk/staffdesk/pkg/errors"
	"github.com/staffdesk/staffdesk/pkg/logger"
	"github.com/staffdesk/staffdesk/pkg/permissions"
	"github.com/staffdesk/staffdesk/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// FAKES
// ============================================================================

var sessions = map[string]*session.Session{
	"bob-token":   {ID: "s-bob", Username: "bob", Role: actor.RoleEmployee, DepartmentID: testutil.PtrInt64(2)},
	"admin-token": {ID: "s-admin", Username: "admin", Role: actor.RoleAdmin},
}

type validator struct{}

func (validator) ValidateToken(token string) (*session.Session, error) {
	if s, ok := sessions[token]; ok {
		return s, nil
	}
	return nil, errors.TokenInvalid()
}

type fakeAuth struct{ loggedOut []string }

func (f *fakeAuth) Login(ctx context.Context, req *authsvc.LoginRequest) (*authsvc.LoginResponse, error) {
	if req.Username != "bob" {
		return nil, errors.InvalidCredentials("User not found.")
	}
	if req.Password != "password123" {
		return nil, errors.InvalidCredentials("Invalid password.")
	}
	return &authsvc.LoginResponse{
		Token:     "bob-token",
		ExpiresAt: time.Now().Add(time.Hour),
		TokenType: "Bearer",
		User:      &userdomain.User{Username: "bob", Role: actor.RoleEmployee},
	}, nil
}

func (f *fakeAuth) Logout(ctx context.Context, token string) error {
	f.loggedOut = append(f.loggedOut, token)
	return nil
}

type fakeUsers struct{}

func (fakeUsers) ListUsers(ctx context.Context, activeOnly bool) ([]*userdomain.User, error) {
	if !actor.FromContext(ctx).IsAdmin() {
		return nil, errors.Forbidden("Permission denied.")
	}
	return []*userdomain.User{{Username: "bob", Role: actor.RoleEmployee, IsActive: true}}, nil
}

func (fakeUsers) CreateProfile(ctx context.Context, req *usersvc.RegisterRequest) (*userdomain.User, error) {
	return &userdomain.User{Username: req.Username, Role: req.Role, IsActive: true}, nil
}

func (fakeUsers) SetActive(ctx context.Context, username string, active bool) (*userdomain.User, error) {
	return &userdomain.User{Username: username, IsActive: active}, nil
}

func (fakeUsers) ChangePassword(ctx context.Context, req *usersvc.ChangePasswordRequest) error {
	if req.OldPassword != "password123" {
		return errors.InvalidCredentials("Invalid password.")
	}
	return nil
}

func (fakeUsers) ChangeRole(ctx context.Context, username, role string) (*userdomain.User, error) {
	if username == "admin" {
		return nil, errors.BadRequest("You cannot change your own role.")
	}
	return &userdomain.User{Username: username, Role: role}, nil
}

type fakeDepartments struct {
	created *departmentsvc.CreateRequest
}

func (f *fakeDepartments) departments() []*departmentdomain.Department {
	parent := int64(1)
	return []*departmentdomain.Department{
		{ID: 1, Name: "Engineering"},
		{ID: 2, Name: "Backend", ParentID: &parent},
		{ID: 3, Name: departmentdomain.DefaultName},
	}
}

func (f *fakeDepartments) Tree(ctx context.Context) (*departmentdomain.Tree, error) {
	return departmentdomain.BuildTree(f.departments()), nil
}

func (f *fakeDepartments) List(ctx context.Context) ([]*departmentdomain.Department, error) {
	return f.departments(), nil
}

func (f *fakeDepartments) Create(ctx context.Context, req *departmentsvc.CreateRequest) (*departmentdomain.Department, error) {
	f.created = req
	return &departmentdomain.Department{ID: 9, Name: req.Name, ParentID: req.ParentID}, nil
}

func (f *fakeDepartments) Update(ctx context.Context, id int64, req *departmentsvc.UpdateRequest) (*departmentdomain.Department, error) {
	return &departmentdomain.Department{ID: id, Name: req.Name}, nil
}

func (f *fakeDepartments) Delete(ctx context.Context, id int64) error {
	if id == 3 {
		return errors.BadRequest("The Unassigned department cannot be deleted.")
	}
	return nil
}

var checkIn = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

type fakeAttendance struct{}

func (fakeAttendance) CheckIn(ctx context.Context, employee string) (*attendancesvc.Result, error) {
	if employee == "sam" {
		return nil, errors.Forbidden("You can only record your own attendance.")
	}
	return &attendancesvc.Result{Message: "Check-in successful at 09:00:00"}, nil
}

func (fakeAttendance) CheckOut(ctx context.Context, employee string) (*attendancesvc.Result, error) {
	return nil, errors.BadRequest("No check-in found for today.")
}

func (fakeAttendance) Today(ctx context.Context) (*attendancedomain.Record, error) {
	return &attendancedomain.Record{EmployeeID: "bob", Date: checkIn, CheckIn: checkIn}, nil
}

func (fakeAttendance) Records(ctx context.Context, q attendancesvc.Query) ([]*attendancedomain.Record, error) {
	out := checkIn.Add(90 * time.Minute)
	return []*attendancedomain.Record{{EmployeeID: "bob", Date: checkIn, CheckIn: checkIn, CheckOut: &out}}, nil
}

type fakeTasks struct{}

func (fakeTasks) tasks() []*taskdomain.Task {
	return []*taskdomain.Task{{
		ID: "t-1", Title: "Quarterly report", AssignedTo: "bob", Status: taskdomain.StatusInProgress,
		TaskType: taskdomain.TypeTask, Priority: taskdomain.PriorityMedium, Deadline: checkIn,
	}}
}

func (f fakeTasks) List(ctx context.Context, q tasksvc.Query) ([]*taskdomain.Task, error) {
	return f.tasks(), nil
}

func (f fakeTasks) ListByUser(ctx context.Context, username string) ([]*taskdomain.Task, error) {
	return f.tasks(), nil
}

func (fakeTasks) Create(ctx context.Context, req *tasksvc.CreateRequest) (*taskdomain.Task, error) {
	return &taskdomain.Task{Title: req.Title, AssignedTo: req.AssignedTo}, nil
}

func (f fakeTasks) UpdateStatus(ctx context.Context, id, status string) (*taskdomain.Task, error) {
	t := f.tasks()[0]
	if err := t.Transition(status); err != nil {
		return nil, err
	}
	return t, nil
}

type fakePayroll struct{}

func (fakePayroll) payslip() *payrolldomain.Payslip {
	return &payrolldomain.Payslip{
		ID: "p-1", EmployeeID: "bob", BaseSalary: 32000, HoursWorked: 150, OvertimeHours: 10,
		Salary: 33000, Month: "July", Year: 2025, Strategy: payrolldomain.StrategyStandardHourly,
	}
}

func (f fakePayroll) All(ctx context.Context) ([]*payrolldomain.Payslip, error) {
	return []*payrolldomain.Payslip{f.payslip()}, nil
}

func (f fakePayroll) Get(ctx context.Context, id string) (*payrolldomain.Payslip, error) {
	if id != "p-1" {
		return nil, errors.NotFound("Payslip")
	}
	return f.payslip(), nil
}

func (fakePayroll) Generate(ctx context.Context, req *payrollsvc.GenerateRequest) (*payrolldomain.Payslip, error) {
	if _, err := actor.Require(ctx, permissions.PayrollGenerate); err != nil {
		return nil, err
	}
	return payrolldomain.NewPayslip(req.EmployeeID, req.Strategy, req.Month, req.Year, payrolldomain.Input{
		BaseSalary: req.BaseSalary, HoursWorked: req.HoursWorked, OvertimeHours: req.OvertimeHours,
	})
}

type fakeInbox struct{}

func (fakeInbox) List(ctx context.Context, limit int) ([]*notificationdomain.Notification, error) {
	return []*notificationdomain.Notification{{ID: "n-1", Message: "Checked in at 09:00:00", CreatedAt: checkIn}}, nil
}

func (fakeInbox) UnreadCount(ctx context.Context) (int, error) { return 3, nil }

func (fakeInbox) MarkRead(ctx context.Context, id string) error { return nil }

func (fakeInbox) MarkAllRead(ctx context.Context) (int64, error) { return 3, nil }

type fakeReports struct{}

func (fakeReports) SystemSummary(ctx context.Context, q reportsvc.Query) (*reportdomain.SystemSummary, error) {
	return &reportdomain.SystemSummary{
		Hours:  []*attendancedomain.EmployeeHours{{EmployeeID: "bob", TotalHours: 7.5}},
		Pay:    []*payrolldomain.EmployeePay{{EmployeeID: "bob", TotalPay: 33000, Payslips: 1}},
		Status: []*taskdomain.StatusCount{{Status: taskdomain.StatusInProgress, Count: 1}},
	}, nil
}

func (fakeReports) TaskReport(ctx context.Context, q reportsvc.Query) ([]*reportdomain.EmployeeTasks, error) {
	return []*reportdomain.EmployeeTasks{{EmployeeID: "bob", Tasks: []reportdomain.TaskLine{{Title: "Quarterly report"}}}}, nil
}

func (fakeReports) Export(ctx context.Context, report, format string, q reportsvc.Query) (*reportsvc.File, error) {
	if format == "ods" {
		return nil, errors.BadRequest("format must be xlsx or csv")
	}
	return &reportsvc.File{Name: report + "_report." + format, ContentType: "text/csv; charset=utf-8", Body: []byte("Employee\nbob\n")}, nil
}

func (fakeReports) TaskReportPDF(ctx context.Context, username string) (*reportsvc.File, error) {
	return &reportsvc.File{Name: "task_report_" + username + ".pdf", ContentType: "application/pdf", Body: []byte("%PDF-")}, nil
}

type fixture struct {
	handler http.Handler
	auth    *fakeAuth
	depts   *fakeDepartments
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{auth: &fakeAuth{}, depts: &fakeDepartments{}}
	srv, err := web.New(web.Services{
		Auth:        f.auth,
		Users:       fakeUsers{},
		Departments: f.depts,
		Attendance:  fakeAttendance{},
		Tasks:       fakeTasks{},
		Payroll:     fakePayroll{},
		Inbox:       fakeInbox{},
		Reports:     fakeReports{},
	}, middleware.NewAuthenticator(validator{}, logger.Nop()), true, logger.Nop())
	require.NoError(t, err)
	f.handler = srv.Routes()
	return f
}

func as(req *http.Request, token string) *http.Request {
	req.AddCookie(&http.Cookie{Name: middleware.CookieName, Value: token})
	return req
}

func get(path, token string) *http.Request {
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		as(req, token)
	}
	return req
}

func post(path, token string, form url.Values) *http.Request {
	req := testutil.NewFormRequest(http.MethodPost, path, form)
	if token != "" {
		as(req, token)
	}
	return req
}

// ============================================================================
// SESSION
// ============================================================================

func TestLoginPage(t *testing.T) {
	f := newFixture(t)

	rr := testutil.ExecuteRequest(f.handler, get("/login?err=Invalid+password.", ""))
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Contains(t, rr.Body.String(), `action="/login"`)
	assert.Contains(t, rr.Body.String(), "Invalid password.")
	assert.NotContains(t, rr.Body.String(), "Log out")
}

func TestProtectedPage_RedirectsToLogin(t *testing.T) {
	f := newFixture(t)

	for _, token := range []string{"", "expired-token"} {
		rr := testutil.ExecuteRequest(f.handler, get("/", token))
		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/login", rr.Header().Get("Location"))
	}
}

func TestLogin(t *testing.T) {
	f := newFixture(t)

	rr := testutil.ExecuteRequest(f.handler, post("/login", "", url.Values{"username": {"bob"}, "password": {"password123"}}))
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/?msg=Welcome%2C+bob.", rr.Header().Get("Location"))

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.CookieName, cookies[0].Name)
	assert.Equal(t, "bob-token", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
}

func TestLogin_Failures(t *testing.T) {
	f := newFixture(t)

	rr := testutil.ExecuteRequest(f.handler, post("/login", "", url.Values{"username": {"bob"}, "password": {"nope"}}))
	assert.Equal(t, "/login?err=Invalid+password.", rr.Header().Get("Location"))

	rr = testutil.ExecuteRequest(f.handler, post("/login", "", url.Values{"username": {"bob"}}))
	assert.True(t, strings.HasPrefix(rr.Header().Get("Location"), "/login?err=password"))
}

func TestLogout(t *testing.T) {
	f := newFixture(t)

	rr := testutil.ExecuteRequest(f.handler, post("/logout", "bob-token", nil))
	assert.Equal(t, "/login?msg=Logged+out.", rr.Header().Get("Location"))
	assert.Equal(t, []string{"bob-token"}, f.auth.loggedOut)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

// ============================================================================
// PAGES
// ============================================================================

func TestDashboard(t *testing.T) {
	f := newFixture(t)

	rr := testutil.ExecuteRequest(f.handler, get("/?msg=Welcome%2C+bob.", "bob-token"))
	testutil.AssertStatus(t, rr, http.StatusOK)

	body := rr.Body.String()
	assert.Contains(t, body, "Welcome, bob.")
	assert.Contains(t, body, "Checked in at 09:00:00")
	assert.Contains(t, body, "Quarterly report")
	assert.Contains(t, body, "3 unread notifications")
	assert.NotContains(t, body, `href="/users"`, "employees do not see the users page")
}

func TestPages_Render(t *testing.T) {
	f := newFixture(t)

	pages := map[string]string{
		"/attendance":    "1.50",
		"/tasks":         "Quarterly report",
		"/payroll":       "BDT 33000.00",
		"/departments":   "Backend",
		"/users":         "Deactivate",
		"/notifications": "Checked in at 09:00:00",
		"/reports":       "BDT 33000.00",
	}
	for path, want := range pages {
		rr := testutil.ExecuteRequest(f.handler, get(path, "admin-token"))
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.Contains(t, rr.Body.String(), want, path)
	}
}

func TestDepartmentsPage_Tree(t *testing.T) {
	f := newFixture(t)

	rr := testutil.ExecuteRequest(f.handler, get("/departments", "admin-token"))
	body := rr.Body.String()
	assert.Contains(t, body, "<strong>Engineering</strong> <small>(composite, #1)</small>")
	assert.Contains(t, body, "<strong>Backend</strong> <small>(leaf, #2)</small>")
	assert.Equal(t, 2, strings.Count(body, "/delete"), "the default department cannot be deleted")
}

func TestAppError_RendersInPage(t *testing.T) {
	f := newFixture(t)

	rr := testutil.ExecuteRequest(f.handler, get("/users", "bob-token"))
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "Permission denied.")
}

// ============================================================================
// FORM POSTS
// ============================================================================

func TestFormPosts_Flash(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name     string
		path     string
		token    string
		form     url.Values
		location string
	}{
		{"check in", "/attendance/check-in", "bob-token", nil, "/attendance?msg=Check-in+successful+at+09%3A00%3A00"},
		{"check in for other", "/attendance/check-in", "bob-token", url.Values{"employee_id": {"sam"}},
			"/attendance?err=You+can+only+record+your+own+attendance."},
		{"check out", "/attendance/check-out", "bob-token", nil, "/attendance?err=No+check-in+found+for+today."},
		{"task status", "/tasks/t-1/status", "bob-token", url.Values{"status": {taskdomain.StatusCompleted}},
			"/tasks?msg=Task+%27Quarterly+report%27+is+now+Completed."},
		{"invalid transition", "/tasks/t-1/status", "bob-token", url.Values{"status": {taskdomain.StatusNotStarted}},
			"/tasks?err=Invalid+status+transition"},
		{"generate payslip", "/payroll", "admin-token", url.Values{
			"employee_id": {"bob"}, "month": {"July"}, "year": {"2025"}, "base_salary": {"32000"},
			"hours_worked": {"150"}, "overtime_hours": {"10"}, "strategy": {payrolldomain.StrategyStandardHourly},
		}, "/payroll?msg=Payslip+for+July+2025+generated.+Net+salary%3A+BDT+33000.00"},
		{"generate payslip as employee", "/payroll", "bob-token", url.Values{
			"employee_id": {"bob"}, "month": {"July"}, "year": {"2025"}, "base_salary": {"1"},
		}, "/payroll?err=Permission+denied."},
		{"bad year", "/payroll", "admin-token", url.Values{"employee_id": {"bob"}, "year": {"soon"}},
			"/payroll?err=year+must+be+a+whole+number"},
		{"bad salary", "/payroll", "admin-token", url.Values{
			"employee_id": {"bob"}, "month": {"July"}, "year": {"2025"}, "base_salary": {"lots"},
		}, "/payroll?err=base_salary+must+be+a+number"},
		{"infinite salary", "/payroll", "admin-token", url.Values{
			"employee_id": {"bob"}, "month": {"July"}, "year": {"2025"}, "base_salary": {"Inf"},
		}, "/payroll?err=base_salary+must+be+a+finite+number"},
		{"create user with bad department", "/users", "admin-token", url.Values{
			"username": {"carol"}, "password": {"secret99"}, "role": {"Employee"}, "department_id": {"two"},
		}, "/users?err=department_id+must+be+a+whole+number"},
		{"create user", "/users", "admin-token", url.Values{
			"username": {"carol"}, "password": {"secret99"}, "role": {"Employee"}, "department_id": {"2"},
		}, "/users?msg=User+%27carol%27+created."},
		{"change password", "/password", "bob-token", url.Values{"old_password": {"password123"}, "new_password": {"secret99"}},
			"/?msg=Password+changed."},
		{"change password wrong", "/password", "bob-token", url.Values{"old_password": {"nope"}, "new_password": {"secret99"}},
			"/?err=Invalid+password."},
		{"change password missing fields", "/password", "bob-token", nil,
			"/?err=new_password+this+field+is+required"},
		{"delete default department", "/departments/3/delete", "admin-token", nil,
			"/departments?err=The+Unassigned+department+cannot+be+deleted."},
		{"change own role", "/users/admin/role", "admin-token", url.Values{"role": {"Manager"}},
			"/users?err=You+cannot+change+your+own+role."},
		{"deactivate", "/users/bob/active", "admin-token", url.Values{"active": {"false"}},
			"/users?msg=User+%27bob%27+deactivated."},
		{"mark all read", "/notifications/read-all", "bob-token", nil, "/notifications?msg=Marked+3+notifications+as+read."},
		{"mark read", "/notifications/n-1/read", "bob-token", nil, "/notifications"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := testutil.ExecuteRequest(f.handler, post(tt.path, tt.token, tt.form))
			assert.Equal(t, http.StatusSeeOther, rr.Code)
			assert.Equal(t, tt.location, rr.Header().Get("Location"))
		})
	}
}

func TestCreateDepartment_ParsesParent(t *testing.T) {
	f := newFixture(t)

	rr := testutil.ExecuteRequest(f.handler, post("/departments", "admin-token",
		url.Values{"name": {"Platform"}, "parent_department_id": {"1"}}))
	assert.Equal(t, "/departments?msg=Department+%27Platform%27+created.", rr.Header().Get("Location"))
	require.NotNil(t, f.depts.created)
	require.NotNil(t, f.depts.created.ParentID)
	assert.Equal(t, int64(1), *f.depts.created.ParentID)

	rr = testutil.ExecuteRequest(f.handler, post("/departments", "admin-token",
		url.Values{"name": {"Platform"}, "parent_department_id": {"one"}}))
	assert.Equal(t, "/departments?err=parent_department_id+must+be+a+whole+number", rr.Header().Get("Location"))
}

// ============================================================================
// DOWNLOADS
// ============================================================================

func TestDownloads(t *testing.T) {
	f := newFixture(t)

	rr := testutil.ExecuteRequest(f.handler, get("/reports/download?report=hours&format=csv", "admin-token"))
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Equal(t, `attachment; filename="hours_report.csv"`, rr.Header().Get("Content-Disposition"))

	rr = testutil.ExecuteRequest(f.handler, get("/reports/download?report=hours&format=ods", "admin-token"))
	assert.Equal(t, "/reports?err=format+must+be+xlsx+or+csv", rr.Header().Get("Location"))

	rr = testutil.ExecuteRequest(f.handler, get("/payroll/p-1/pdf", "admin-token"))
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="payslip_bob_july_2025.pdf"`, rr.Header().Get("Content-Disposition"))

	rr = testutil.ExecuteRequest(f.handler, get("/payroll/p-9/pdf", "admin-token"))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = testutil.ExecuteRequest(f.handler, get("/reports/employee/bob/pdf", "admin-token"))
	assert.Equal(t, `attachment; filename="task_report_bob.pdf"`, rr.Header().Get("Content-Disposition"))
}
