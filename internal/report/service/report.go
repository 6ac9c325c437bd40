package service

import (
	"context"
	"fmt"
	"time"

	attendancedomain "github.com/staffdesk/staffdesk/internal/attendance/domain"
	attendancesvc "github.com/staffdesk/staffdesk/internal/attendance/service"
	"github.com/staffdesk/staffdesk/internal/export"
	payrolldomain "github.com/staffdesk/staffdesk/internal/payroll/domain"
	payrollsvc "github.com/staffdesk/staffdesk/internal/payroll/service"
	"github.com/staffdesk/staffdesk/internal/report/domain"
	taskdomain "github.com/staffdesk/staffdesk/internal/task/domain"
	tasksvc "github.com/staffdesk/staffdesk/internal/task/service"
	"github.com/staffdesk/staffdesk/pkg/actor"
	"github.com/staffdesk/staffdesk/pkg/errors"
	"github.com/staffdesk/staffdesk/pkg/logger"
	"github.com/staffdesk/staffdesk/pkg/permissions"
)

// Tasks is the task data reports read
type Tasks interface {
	List(ctx context.Context, q tasksvc.Query) ([]*taskdomain.Task, error)
	ListByUser(ctx context.Context, username string) ([]*taskdomain.Task, error)
	StatusSummary(ctx context.Context, q tasksvc.Query) ([]*taskdomain.StatusCount, error)
}

// Attendance is the attendance data reports read
type Attendance interface {
	HoursByEmployee(ctx context.Context, q attendancesvc.Query) ([]*attendancedomain.EmployeeHours, error)
	SummaryByDate(ctx context.Context, q attendancesvc.Query) ([]*attendancedomain.DateSummary, error)
	TotalHours(ctx context.Context, username string) (float64, error)
}

// Payroll is the payslip data reports read
type Payroll interface {
	List(ctx context.Context, q payrollsvc.Query) ([]*payrolldomain.Payslip, error)
	ForEmployee(ctx context.Context, username string) ([]*payrolldomain.Payslip, error)
	TotalsByEmployee(ctx context.Context, q payrollsvc.Query) ([]*payrolldomain.EmployeePay, error)
}

// Query narrows a report. DepartmentID limits it to a department subtree.
type Query struct {
	DepartmentID int64
	Employees    []string
	From         *time.Time
	To           *time.Time
}

// File is a rendered report download
type File struct {
	Name        string
	ContentType string
	Body        []byte
}

// ReportService aggregates tasks, attendance and payroll into reports.
// Every figure is limited to the employees the caller may see.
type ReportService struct {
	tasks      Tasks
	attendance Attendance
	payroll    Payroll
	logger     *logger.Logger
}

// NewReportService creates a new report service
func NewReportService(tasks Tasks, attendance Attendance, payroll Payroll, log *logger.Logger) *ReportService {
	return &ReportService{
		tasks:      tasks,
		attendance: attendance,
		payroll:    payroll,
		logger:     log,
	}
}

// ============================================================================
// AGGREGATIONS
// ============================================================================

// TaskReport lists visible tasks grouped by assignee
func (s *ReportService) TaskReport(ctx context.Context, q Query) ([]*domain.EmployeeTasks, error) {
	if _, err := actor.Require(ctx, permissions.ReportsRead); err != nil {
		return nil, err
	}
	tasks, err := s.tasks.List(ctx, tasksvc.Query{Assignees: q.Employees, DepartmentID: q.DepartmentID})
	if err != nil {
		return nil, err
	}
	return domain.GroupTasks(tasks), nil
}

// StatusSummary counts visible tasks per status
func (s *ReportService) StatusSummary(ctx context.Context, q Query) ([]*taskdomain.StatusCount, error) {
	if _, err := actor.Require(ctx, permissions.ReportsRead); err != nil {
		return nil, err
	}
	return s.tasks.StatusSummary(ctx, tasksvc.Query{Assignees: q.Employees, DepartmentID: q.DepartmentID})
}

// HoursByEmployee totals worked hours per visible employee
func (s *ReportService) HoursByEmployee(ctx context.Context, q Query) ([]*attendancedomain.EmployeeHours, error) {
	if _, err := actor.Require(ctx, permissions.ReportsRead); err != nil {
		return nil, err
	}
	return s.attendance.HoursByEmployee(ctx, attendanceQuery(q))
}

// AttendanceByDate counts visible employees present per date
func (s *ReportService) AttendanceByDate(ctx context.Context, q Query) ([]*attendancedomain.DateSummary, error) {
	if _, err := actor.Require(ctx, permissions.ReportsRead); err != nil {
		return nil, err
	}
	return s.attendance.SummaryByDate(ctx, attendanceQuery(q))
}

// PayslipsByEmployee lists visible payslips grouped by employee
func (s *ReportService) PayslipsByEmployee(ctx context.Context, q Query) ([]*domain.EmployeePayslips, error) {
	if _, err := actor.Require(ctx, permissions.ReportsRead); err != nil {
		return nil, err
	}
	payslips, err := s.payroll.List(ctx, payrollsvc.Query{Employees: q.Employees, DepartmentID: q.DepartmentID})
	if err != nil {
		return nil, err
	}
	return domain.GroupPayslips(payslips), nil
}

// TotalPayByEmployee sums net salary per visible employee
func (s *ReportService) TotalPayByEmployee(ctx context.Context, q Query) ([]*payrolldomain.EmployeePay, error) {
	if _, err := actor.Require(ctx, permissions.ReportsRead); err != nil {
		return nil, err
	}
	return s.payroll.TotalsByEmployee(ctx, payrollsvc.Query{Employees: q.Employees, DepartmentID: q.DepartmentID})
}

// EmployeeSummary collects the tasks, payslips and totals of one visible employee
func (s *ReportService) EmployeeSummary(ctx context.Context, username string) (*domain.EmployeeSummary, error) {
	if _, err := actor.Require(ctx, permissions.ReportsRead); err != nil {
		return nil, err
	}

	tasks, err := s.tasks.ListByUser(ctx, username)
	if err != nil {
		return nil, err
	}
	payslips, err := s.payroll.ForEmployee(ctx, username)
	if err != nil {
		return nil, err
	}
	hours, err := s.attendance.TotalHours(ctx, username)
	if err != nil {
		return nil, err
	}

	summary := &domain.EmployeeSummary{
		EmployeeID: username,
		Tasks:      domain.Lines(tasks),
		Payslips:   payslips,
		TotalHours: hours,
	}
	var pay float64
	for _, p := range payslips {
		pay += p.Salary
	}
	summary.TotalPay = attendancedomain.Round2(pay)
	return summary, nil
}

// SystemSummary returns hours and pay per visible employee with their statistics,
// together with the task status summary
func (s *ReportService) SystemSummary(ctx context.Context, q Query) (*domain.SystemSummary, error) {
	hours, err := s.HoursByEmployee(ctx, q)
	if err != nil {
		return nil, err
	}
	pay, err := s.TotalPayByEmployee(ctx, q)
	if err != nil {
		return nil, err
	}
	status, err := s.StatusSummary(ctx, q)
	if err != nil {
		return nil, err
	}

	hourValues := make([]float64, 0, len(hours))
	for _, h := range hours {
		hourValues = append(hourValues, h.TotalHours)
	}
	payValues := make([]float64, 0, len(pay))
	for _, p := range pay {
		payValues = append(payValues, p.TotalPay)
	}

	return &domain.SystemSummary{
		Hours:      hours,
		Pay:        pay,
		Status:     status,
		HoursStats: domain.ComputeStats(hourValues),
		PayStats:   domain.ComputeStats(payValues),
	}, nil
}

// Stats returns min, max and average of values
func (s *ReportService) Stats(values []float64) domain.Stats {
	return domain.ComputeStats(values)
}

// ============================================================================
// EXPORTS
// ============================================================================

// Export renders a named report as XLSX or CSV. The summary report spans
// several sheets and is only available as XLSX.
func (s *ReportService) Export(ctx context.Context, report, format string, q Query) (*File, error) {
	if _, err := actor.Require(ctx, permissions.ReportsExport); err != nil {
		return nil, err
	}
	if format == "" {
		format = domain.FormatXLSX
	}
	if format != domain.FormatXLSX && format != domain.FormatCSV {
		return nil, errors.BadRequest("format must be xlsx or csv")
	}

	tables, err := s.Tables(ctx, report, q)
	if err != nil {
		return nil, err
	}

	file := &File{Name: fmt.Sprintf("%s_report.%s", report, format)}
	switch format {
	case domain.FormatCSV:
		if len(tables) != 1 {
			return nil, errors.BadRequest("The " + report + " report is only available as xlsx.")
		}
		file.ContentType = export.ContentTypeCSV
		file.Body, err = export.CSV(tables[0])
	default:
		file.ContentType = export.ContentTypeXLSX
		file.Body, err = export.XLSX(tables...)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("report", report).Str("format", format).Msg("failed to render report")
		return nil, errors.Internal("Failed to render report.")
	}
	return file, nil
}

// TaskReportPDF renders the task report of one visible employee
func (s *ReportService) TaskReportPDF(ctx context.Context, username string) (*File, error) {
	if _, err := actor.Require(ctx, permissions.ReportsExport); err != nil {
		return nil, err
	}
	tasks, err := s.tasks.ListByUser(ctx, username)
	if err != nil {
		return nil, err
	}

	body, err := export.TaskReportPDF(username, tasks)
	if err != nil {
		s.logger.Error().Err(err).Str("employee", username).Msg("failed to render task report")
		return nil, errors.Internal("Failed to render report.")
	}
	return &File{
		Name:        fmt.Sprintf("task_report_%s.pdf", username),
		ContentType: export.ContentTypePDF,
		Body:        body,
	}, nil
}

// Tables builds the rows of a named report
func (s *ReportService) Tables(ctx context.Context, report string, q Query) ([]*export.Table, error) {
	switch report {
	case domain.ReportTasks:
		groups, err := s.TaskReport(ctx, q)
		if err != nil {
			return nil, err
		}
		return []*export.Table{taskTable(groups)}, nil
	case domain.ReportStatus:
		status, err := s.StatusSummary(ctx, q)
		if err != nil {
			return nil, err
		}
		return []*export.Table{statusTable(status)}, nil
	case domain.ReportHours:
		hours, err := s.HoursByEmployee(ctx, q)
		if err != nil {
			return nil, err
		}
		return []*export.Table{hoursTable(hours)}, nil
	case domain.ReportAttendance:
		days, err := s.AttendanceByDate(ctx, q)
		if err != nil {
			return nil, err
		}
		return []*export.Table{attendanceTable(days)}, nil
	case domain.ReportPayslips:
		groups, err := s.PayslipsByEmployee(ctx, q)
		if err != nil {
			return nil, err
		}
		return []*export.Table{payslipTable(groups)}, nil
	case domain.ReportPay:
		pay, err := s.TotalPayByEmployee(ctx, q)
		if err != nil {
			return nil, err
		}
		return []*export.Table{payTable(pay)}, nil
	case domain.ReportSummary:
		summary, err := s.SystemSummary(ctx, q)
		if err != nil {
			return nil, err
		}
		return []*export.Table{
			hoursTable(summary.Hours),
			payTable(summary.Pay),
			statusTable(summary.Status),
			statsTable(summary),
		}, nil
	default:
		return nil, errors.NotFoundMessage("Unknown report: " + report)
	}
}

func attendanceQuery(q Query) attendancesvc.Query {
	return attendancesvc.Query{Employees: q.Employees, DepartmentID: q.DepartmentID, From: q.From, To: q.To}
}
