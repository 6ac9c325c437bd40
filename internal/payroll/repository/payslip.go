package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/staffdesk/staffdesk/internal/payroll/domain"
	"github.com/staffdesk/staffdesk/pkg/database"
	"github.com/staffdesk/staffdesk/pkg/errors"
)

const payslipColumns = `id, employee_id, base_salary, hours_worked, overtime_hours, sales_amount,
	commission_rate, salary, month, year, strategy, department_id, generated_at`

// PayslipRepository handles payslip persistence
type PayslipRepository struct {
	db *database.DB
}

// NewPayslipRepository creates a new payslip repository
func NewPayslipRepository(db *database.DB) *PayslipRepository {
	return &PayslipRepository{db: db}
}

// Create inserts a payslip. A second payslip for the same employee, period
// and strategy is a conflict.
func (r *PayslipRepository) Create(ctx context.Context, p *domain.Payslip) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	query := `
		INSERT INTO payslips (id, employee_id, base_salary, hours_worked, overtime_hours, sales_amount,
			commission_rate, salary, month, year, strategy, department_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING generated_at
	`
	row := r.db.Q(ctx).QueryRowxContext(ctx, query,
		p.ID,
		p.EmployeeID,
		p.BaseSalary,
		p.HoursWorked,
		p.OvertimeHours,
		p.SalesAmount,
		p.CommissionRate,
		p.Salary,
		p.Month,
		p.Year,
		p.Strategy,
		p.DepartmentID,
	)
	if err := row.Scan(&p.GeneratedAt); err != nil {
		err = database.MapError(err)
		if errors.Is(err, errors.ErrConflict) {
			return errors.Conflict(fmt.Sprintf("A %s payslip for %s already exists.", p.Strategy, p.Period()))
		}
		return err
	}
	return nil
}

// GetByID gets a payslip by ID
func (r *PayslipRepository) GetByID(ctx context.Context, id string) (*domain.Payslip, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.NotFound("Payslip")
	}

	var p domain.Payslip
	query := `SELECT ` + payslipColumns + ` FROM payslips WHERE id = $1`
	if err := r.db.Q(ctx).GetContext(ctx, &p, query, id); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("Payslip")
		}
		return nil, err
	}
	return &p, nil
}

// List returns matching payslips, newest first
func (r *PayslipRepository) List(ctx context.Context, params domain.ListParams) ([]*domain.Payslip, error) {
	where, args := filter(params)
	query := `SELECT ` + payslipColumns + ` FROM payslips` + where + ` ORDER BY generated_at DESC, employee_id`

	payslips := []*domain.Payslip{}
	if err := r.db.Q(ctx).SelectContext(ctx, &payslips, query, args...); err != nil {
		return nil, err
	}
	return payslips, nil
}

// TotalsByEmployee sums net salary per employee
func (r *PayslipRepository) TotalsByEmployee(ctx context.Context, params domain.ListParams) ([]*domain.EmployeePay, error) {
	where, args := filter(params)
	query := `SELECT employee_id, ROUND(SUM(salary)::numeric, 2)::float8 AS total_pay, COUNT(*) AS payslips
		FROM payslips` + where + ` GROUP BY employee_id ORDER BY employee_id`

	totals := []*domain.EmployeePay{}
	if err := r.db.Q(ctx).SelectContext(ctx, &totals, query, args...); err != nil {
		return nil, err
	}
	return totals, nil
}

func filter(params domain.ListParams) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if params.Employees != nil {
		args = append(args, pq.Array(params.Employees))
		conditions = append(conditions, fmt.Sprintf("employee_id = ANY($%d)", len(args)))
	}
	if params.Month != "" {
		args = append(args, params.Month)
		conditions = append(conditions, fmt.Sprintf("month = $%d", len(args)))
	}
	if params.Year != 0 {
		args = append(args, params.Year)
		conditions = append(conditions, fmt.Sprintf("year = $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
