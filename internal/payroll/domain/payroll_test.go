package domain_test

import (
	"math"
	"testing"

	"github.com/staffdesk/staffdesk/internal/payroll/domain"
	"github.com/staffdesk/staffdesk/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardHourly(t *testing.T) {
	s := domain.StandardHourly{}

	assert.Equal(t, 50000.0, s.Calculate(domain.Input{BaseSalary: 50000, HoursWorked: 160}))
	// (150 + 10*1.5) * 32000/160 = 165 * 200
	assert.Equal(t, 33000.0, s.Calculate(domain.Input{BaseSalary: 32000, HoursWorked: 150, OvertimeHours: 10}))
	assert.Equal(t, 0.63, s.Calculate(domain.Input{BaseSalary: 100, HoursWorked: 1}), "rounded to cents")
}

func TestSalesCommission(t *testing.T) {
	s := domain.SalesCommission{}

	assert.Equal(t, 25000.0, s.Calculate(domain.Input{BaseSalary: 20000, SalesAmount: 50000}), "default rate 0.1")
	assert.Equal(t, 30000.0, s.Calculate(domain.Input{BaseSalary: 20000, SalesAmount: 50000, CommissionRate: 0.2}))
	assert.Equal(t, 20000.0, s.Calculate(domain.Input{BaseSalary: 20000}))
}

func TestStrategyFor(t *testing.T) {
	s, err := domain.StrategyFor("")
	require.NoError(t, err)
	assert.Equal(t, domain.StrategyStandardHourly, s.Name())

	s, err = domain.StrategyFor(domain.StrategySalesCommission)
	require.NoError(t, err)
	assert.Equal(t, domain.StrategySalesCommission, s.Name())

	_, err = domain.StrategyFor("Piecework")
	assert.True(t, errors.Is(err, errors.ErrValidation))
	assert.Equal(t, []string{domain.StrategyStandardHourly, domain.StrategySalesCommission}, domain.StrategyNames())
}

func TestNormalizeMonth(t *testing.T) {
	m, ok := domain.NormalizeMonth(" march ")
	assert.True(t, ok)
	assert.Equal(t, "March", m)

	_, ok = domain.NormalizeMonth("Smarch")
	assert.False(t, ok)
}

func TestNewPayslip(t *testing.T) {
	slip, err := domain.NewPayslip("bob", domain.StrategySalesCommission, "july", 2025,
		domain.Input{BaseSalary: 20000, SalesAmount: 10000})
	require.NoError(t, err)
	assert.Equal(t, "July", slip.Month)
	assert.Equal(t, 21000.0, slip.Salary)
	assert.Equal(t, 0.1, slip.CommissionRate)
	assert.Equal(t, "July 2025", slip.Period())

	slip, err = domain.NewPayslip("bob", "", "July", 2025, domain.Input{BaseSalary: 16000, HoursWorked: 80, CommissionRate: 0.3})
	require.NoError(t, err)
	assert.Equal(t, 8000.0, slip.Salary)
	assert.Zero(t, slip.CommissionRate)
}

func TestNewPayslip_Validation(t *testing.T) {
	_, err := domain.NewPayslip("", "", "Smarch", 1999, domain.Input{BaseSalary: -1, HoursWorked: -2, CommissionRate: 2})
	require.Error(t, err)

	details := errors.AsAppError(err).Details
	for _, field := range []string{"employee_id", "month", "year", "base_salary", "hours_worked", "commission_rate"} {
		assert.Contains(t, details, field)
	}
}

func TestNewPayslip_RejectsNonFinite(t *testing.T) {
	tests := []struct {
		name  string
		field string
		in    domain.Input
	}{
		{"infinite base", "base_salary", domain.Input{BaseSalary: math.Inf(1)}},
		{"negative infinite hours", "hours_worked", domain.Input{BaseSalary: 1000, HoursWorked: math.Inf(-1)}},
		{"nan overtime", "overtime_hours", domain.Input{BaseSalary: 1000, OvertimeHours: math.NaN()}},
		{"infinite sales", "sales_amount", domain.Input{BaseSalary: 1000, SalesAmount: math.Inf(1)}},
		{"nan rate", "commission_rate", domain.Input{BaseSalary: 1000, CommissionRate: math.NaN()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slip, err := domain.NewPayslip("bob", domain.StrategySalesCommission, "January", 2025, tt.in)
			require.Error(t, err)
			assert.Nil(t, slip)
			assert.True(t, errors.Is(err, errors.ErrValidation))
			assert.Equal(t, "must be a finite number", errors.AsAppError(err).Details[tt.field])
		})
	}
}

func TestNewPayslip_SalaryOverflow(t *testing.T) {
	_, err := domain.NewPayslip("bob", domain.StrategySalesCommission, "January", 2025,
		domain.Input{BaseSalary: math.MaxFloat64, SalesAmount: math.MaxFloat64, CommissionRate: 1})
	require.Error(t, err)
	assert.Contains(t, errors.AsAppError(err).Details, "salary")
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "5312.50", domain.FormatAmount(5312.5))
	assert.Equal(t, "0.00", domain.FormatAmount(0))
}
