package service

import (
	attendancedomain "github.com/staffdesk/staffdesk/internal/attendance/domain"
	"github.com/staffdesk/staffdesk/internal/export"
	payrolldomain "github.com/staffdesk/staffdesk/internal/payroll/domain"
	"github.com/staffdesk/staffdesk/internal/report/domain"
	taskdomain "github.com/staffdesk/staffdesk/internal/task/domain"
)

func taskTable(groups []*domain.EmployeeTasks) *export.Table {
	t := &export.Table{Name: "Tasks", Headers: []string{"Employee", "Title", "Status", "Deadline"}}
	for _, g := range groups {
		for _, line := range g.Tasks {
			t.AddRow(g.EmployeeID, line.Title, line.Status, line.Deadline)
		}
	}
	return t
}

func statusTable(counts []*taskdomain.StatusCount) *export.Table {
	t := &export.Table{Name: "Task Status", Headers: []string{"Status", "Count"}}
	for _, c := range counts {
		t.AddRow(c.Status, c.Count)
	}
	return t
}

func hoursTable(hours []*attendancedomain.EmployeeHours) *export.Table {
	t := &export.Table{Name: "Hours", Headers: []string{"Employee", "Total Hours"}}
	for _, h := range hours {
		t.AddRow(h.EmployeeID, h.TotalHours)
	}
	return t
}

func attendanceTable(days []*attendancedomain.DateSummary) *export.Table {
	t := &export.Table{Name: "Attendance", Headers: []string{"Date", "Present"}}
	for _, d := range days {
		t.AddRow(d.Date.Format(attendancedomain.DateLayout), d.Present)
	}
	return t
}

func payslipTable(groups []*domain.EmployeePayslips) *export.Table {
	t := &export.Table{
		Name:    "Payslips",
		Headers: []string{"Employee", "Month", "Year", "Strategy", "Base Salary", "Hours", "Overtime", "Net Salary"},
	}
	for _, g := range groups {
		for _, p := range g.Payslips {
			t.AddRow(g.EmployeeID, p.Month, p.Year, p.Strategy, p.BaseSalary, p.HoursWorked, p.OvertimeHours, p.Salary)
		}
	}
	return t
}

func payTable(pay []*payrolldomain.EmployeePay) *export.Table {
	t := &export.Table{Name: "Pay", Headers: []string{"Employee", "Payslips", "Total Pay"}}
	for _, p := range pay {
		t.AddRow(p.EmployeeID, p.Payslips, p.TotalPay)
	}
	return t
}

func statsTable(summary *domain.SystemSummary) *export.Table {
	t := &export.Table{Name: "Statistics", Headers: []string{"Series", "Min", "Max", "Avg"}}
	t.AddRow("Total Hours", summary.HoursStats.Min, summary.HoursStats.Max, summary.HoursStats.Avg)
	t.AddRow("Total Pay", summary.PayStats.Min, summary.PayStats.Max, summary.PayStats.Avg)
	return t
}
