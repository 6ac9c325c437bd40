//go:build integration

package repository_test

import (
	"context"
	"os"
	"testing"

	"github.com/staffdesk/staffdesk/internal/payroll/domain"
	"github.com/staffdesk/staffdesk/internal/payroll/repository"
	"github.com/staffdesk/staffdesk/pkg/actor"
	"github.com/staffdesk/staffdesk/pkg/errors"
	"github.com/staffdesk/staffdesk/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var suite *testutil.IntegrationSuite

func TestMain(m *testing.M) {
	ctx := context.Background()
	var err error
	suite, err = testutil.NewIntegrationSuite(ctx)
	if err != nil {
		panic(err)
	}
	code := m.Run()
	testutil.TerminateContainer(ctx)
	os.Exit(code)
}

func generate(t *testing.T, employee, strategy, month string, in domain.Input) *domain.Payslip {
	t.Helper()
	p, err := domain.NewPayslip(employee, strategy, month, 2025, in)
	require.NoError(t, err)
	return p
}

func TestPayslipRepository_Integration(t *testing.T) {
	ctx := context.Background()
	suite.Reset(t, ctx)
	repo := repository.NewPayslipRepository(suite.DB)

	sales := suite.CreateDepartment(t, ctx, "Sales", nil)
	suite.CreateUser(t, ctx, "bob", actor.RoleEmployee, &sales)
	suite.CreateUser(t, ctx, "sam", actor.RoleEmployee, nil)

	hourly := generate(t, "bob", domain.StrategyStandardHourly, "July", domain.Input{BaseSalary: 32000, HoursWorked: 150, OvertimeHours: 10})
	hourly.DepartmentID = &sales
	require.NoError(t, repo.Create(ctx, hourly))
	assert.False(t, hourly.GeneratedAt.IsZero())

	commission := generate(t, "bob", domain.StrategySalesCommission, "July", domain.Input{BaseSalary: 20000, SalesAmount: 5000})
	require.NoError(t, repo.Create(ctx, commission))
	require.NoError(t, repo.Create(ctx, generate(t, "sam", "", "August", domain.Input{BaseSalary: 16000, HoursWorked: 80})))

	t.Run("same period and strategy is a conflict", func(t *testing.T) {
		dup := generate(t, "bob", domain.StrategyStandardHourly, "July", domain.Input{BaseSalary: 1})
		err := repo.Create(ctx, dup)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrConflict))
		assert.Equal(t, "A Standard Hourly Pay payslip for July 2025 already exists.", errors.Message(err))
	})

	t.Run("get by id", func(t *testing.T) {
		got, err := repo.GetByID(ctx, hourly.ID)
		require.NoError(t, err)
		assert.Equal(t, 33000.0, got.Salary)
		require.NotNil(t, got.DepartmentID)
		assert.Equal(t, sales, *got.DepartmentID)
	})

	t.Run("filters", func(t *testing.T) {
		july, err := repo.List(ctx, domain.ListParams{Month: "July", Year: 2025})
		require.NoError(t, err)
		assert.Len(t, july, 2)

		none, err := repo.List(ctx, domain.ListParams{Employees: []string{}})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("totals", func(t *testing.T) {
		totals, err := repo.TotalsByEmployee(ctx, domain.ListParams{})
		require.NoError(t, err)
		require.Len(t, totals, 2)
		assert.Equal(t, "bob", totals[0].EmployeeID)
		assert.Equal(t, 2, totals[0].Payslips)
		assert.InDelta(t, 33000+20500, totals[0].TotalPay, 0.001)
		assert.InDelta(t, 8000, totals[1].TotalPay, 0.001)
	})
}
