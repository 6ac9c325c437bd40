package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/staffdesk/staffdesk/pkg/errors"
)

// Months are the accepted payslip month names
var Months = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// NormalizeMonth returns the canonical month name for a case-insensitive match
func NormalizeMonth(month string) (string, bool) {
	month = strings.TrimSpace(month)
	for _, m := range Months {
		if strings.EqualFold(m, month) {
			return m, true
		}
	}
	return "", false
}

// Payslip is a generated salary statement
type Payslip struct {
	ID             string    `db:"id" json:"id"`
	EmployeeID     string    `db:"employee_id" json:"employee_id"`
	BaseSalary     float64   `db:"base_salary" json:"base_salary"`
	HoursWorked    float64   `db:"hours_worked" json:"hours_worked"`
	OvertimeHours  float64   `db:"overtime_hours" json:"overtime_hours"`
	SalesAmount    float64   `db:"sales_amount" json:"sales_amount"`
	CommissionRate float64   `db:"commission_rate" json:"commission_rate"`
	Salary         float64   `db:"salary" json:"salary"`
	Month          string    `db:"month" json:"month"`
	Year           int       `db:"year" json:"year"`
	Strategy       string    `db:"strategy" json:"strategy"`
	DepartmentID   *int64    `db:"department_id" json:"department_id,omitempty"`
	GeneratedAt    time.Time `db:"generated_at" json:"generated_at"`
}

// Period returns "Month Year"
func (p *Payslip) Period() string {
	return fmt.Sprintf("%s %d", p.Month, p.Year)
}

// FormatAmount renders a money amount with two decimals
func FormatAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// NewPayslip validates the figures and computes the salary with the named strategy
func NewPayslip(employee, strategyName, month string, year int, in Input) (*Payslip, error) {
	strategy, err := StrategyFor(strategyName)
	if err != nil {
		return nil, err
	}

	details := map[string]string{}
	if employee == "" {
		details["employee_id"] = "is required"
	}
	canonical, ok := NormalizeMonth(month)
	if !ok {
		details["month"] = "must be a calendar month name"
	}
	if year < 2000 || year > 2100 {
		details["year"] = "must be between 2000 and 2100"
	}
	figures := []struct {
		field string
		value float64
	}{
		{"base_salary", in.BaseSalary},
		{"hours_worked", in.HoursWorked},
		{"overtime_hours", in.OvertimeHours},
		{"sales_amount", in.SalesAmount},
		{"commission_rate", in.CommissionRate},
	}
	for _, f := range figures {
		switch {
		case math.IsNaN(f.value) || math.IsInf(f.value, 0):
			details[f.field] = "must be a finite number"
		case f.value < 0:
			details[f.field] = "must not be negative"
		}
	}
	if _, set := details["commission_rate"]; !set && in.CommissionRate > 1 {
		details["commission_rate"] = "must be between 0 and 1"
	}
	if len(details) > 0 {
		return nil, errors.Validation(details)
	}

	salary := strategy.Calculate(in)
	if math.IsInf(salary, 0) || math.IsNaN(salary) {
		return nil, errors.Validation(map[string]string{"salary": "is out of range"})
	}

	slip := &Payslip{
		EmployeeID:    employee,
		BaseSalary:    in.BaseSalary,
		HoursWorked:   in.HoursWorked,
		OvertimeHours: in.OvertimeHours,
		SalesAmount:   in.SalesAmount,
		Salary:        salary,
		Month:         canonical,
		Year:          year,
		Strategy:      strategy.Name(),
	}
	if strategy.Name() == StrategySalesCommission {
		slip.CommissionRate = EffectiveCommissionRate(in.CommissionRate)
	}
	return slip, nil
}

// EmployeePay totals the payslips of one employee
type EmployeePay struct {
	EmployeeID string  `db:"employee_id" json:"employee_id"`
	TotalPay   float64 `db:"total_pay" json:"total_pay"`
	Payslips   int     `db:"payslips" json:"payslips"`
}

// ListParams filters payslips. A nil Employees means every employee.
type ListParams struct {
	Employees []string
	Month     string
	Year      int
}
