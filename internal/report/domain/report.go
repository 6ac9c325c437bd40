package domain

import (
	"math"
	"sort"

	attendancedomain "github.com/staffdesk/staffdesk/internal/attendance/domain"
	payrolldomain "github.com/staffdesk/staffdesk/internal/payroll/domain"
	taskdomain "github.com/staffdesk/staffdesk/internal/task/domain"
)

// Report names accepted by the export endpoints
const (
	ReportTasks      = "tasks"
	ReportStatus     = "status"
	ReportHours      = "hours"
	ReportAttendance = "attendance"
	ReportPayslips   = "payslips"
	ReportPay        = "pay"
	ReportSummary    = "summary"
)

// Reports lists every exportable report
var Reports = []string{ReportTasks, ReportStatus, ReportHours, ReportAttendance, ReportPayslips, ReportPay, ReportSummary}

// Export formats
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// TaskLine is one row of the task report
type TaskLine struct {
	Title    string `json:"title"`
	Status   string `json:"status"`
	Deadline string `json:"deadline"`
}

// EmployeeTasks groups task lines by assignee
type EmployeeTasks struct {
	EmployeeID string     `json:"employee_id"`
	Tasks      []TaskLine `json:"tasks"`
}

// EmployeePayslips groups payslips by employee
type EmployeePayslips struct {
	EmployeeID string                   `json:"employee_id"`
	Payslips   []*payrolldomain.Payslip `json:"payslips"`
}

// EmployeeSummary is everything recorded for one employee
type EmployeeSummary struct {
	EmployeeID string                   `json:"employee_id"`
	Tasks      []TaskLine               `json:"tasks"`
	Payslips   []*payrolldomain.Payslip `json:"payslips"`
	TotalHours float64                  `json:"total_hours"`
	TotalPay   float64                  `json:"total_pay"`
}

// SystemSummary combines the per-employee totals with the task status summary
type SystemSummary struct {
	Hours      []*attendancedomain.EmployeeHours `json:"hours"`
	Pay        []*payrolldomain.EmployeePay      `json:"pay"`
	Status     []*taskdomain.StatusCount         `json:"status"`
	HoursStats Stats                             `json:"hours_stats"`
	PayStats   Stats                             `json:"pay_stats"`
}

// Stats describes a series of totals
type Stats struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

// ComputeStats returns min, max and average of values rounded to cents.
// An empty series yields zeros.
func ComputeStats(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}
	s := Stats{Min: values[0], Max: values[0]}
	var sum float64
	for _, v := range values {
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
		sum += v
	}
	s.Avg = math.Round(sum/float64(len(values))*100) / 100
	return s
}

// Lines converts tasks into report rows
func Lines(tasks []*taskdomain.Task) []TaskLine {
	lines := make([]TaskLine, 0, len(tasks))
	for _, t := range tasks {
		lines = append(lines, TaskLine{Title: t.Title, Status: t.Status, Deadline: t.DeadlineString()})
	}
	return lines
}

// GroupTasks groups tasks by assignee, ordered by username
func GroupTasks(tasks []*taskdomain.Task) []*EmployeeTasks {
	index := map[string]*EmployeeTasks{}
	for _, t := range tasks {
		group, ok := index[t.AssignedTo]
		if !ok {
			group = &EmployeeTasks{EmployeeID: t.AssignedTo, Tasks: []TaskLine{}}
			index[t.AssignedTo] = group
		}
		group.Tasks = append(group.Tasks, TaskLine{Title: t.Title, Status: t.Status, Deadline: t.DeadlineString()})
	}
	return sortedGroups(index)
}

// GroupPayslips groups payslips by employee, ordered by username
func GroupPayslips(payslips []*payrolldomain.Payslip) []*EmployeePayslips {
	index := map[string]*EmployeePayslips{}
	for _, p := range payslips {
		group, ok := index[p.EmployeeID]
		if !ok {
			group = &EmployeePayslips{EmployeeID: p.EmployeeID}
			index[p.EmployeeID] = group
		}
		group.Payslips = append(group.Payslips, p)
	}

	out := make([]*EmployeePayslips, 0, len(index))
	for _, g := range index {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out
}

func sortedGroups(index map[string]*EmployeeTasks) []*EmployeeTasks {
	out := make([]*EmployeeTasks, 0, len(index))
	for _, g := range index {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out
}
