package service

import (
	"context"
	"fmt"

	auditsvc "github.com/staffdesk/staffdesk/internal/audit/service"
	"github.com/staffdesk/staffdesk/internal/payroll/domain"
	"github.com/staffdesk/staffdesk/internal/payroll/events"
	"github.com/staffdesk/staffdesk/internal/scope"
	userdomain "github.com/staffdesk/staffdesk/internal/user/domain"
	"github.com/staffdesk/staffdesk/pkg/actor"
	"github.com/staffdesk/staffdesk/pkg/errors"
	"github.com/staffdesk/staffdesk/pkg/logger"
	"github.com/staffdesk/staffdesk/pkg/permissions"
)

// Repository is the payslip persistence the service needs
type Repository interface {
	Create(ctx context.Context, p *domain.Payslip) error
	GetByID(ctx context.Context, id string) (*domain.Payslip, error)
	List(ctx context.Context, params domain.ListParams) ([]*domain.Payslip, error)
	TotalsByEmployee(ctx context.Context, params domain.ListParams) ([]*domain.EmployeePay, error)
}

// Users looks up employees
type Users interface {
	Lookup(ctx context.Context, username string) (*userdomain.User, error)
}

// Scope resolves which employees an actor may see
type Scope interface {
	Visible(ctx context.Context, a *actor.Actor) (*scope.Visibility, error)
	ForDepartment(ctx context.Context, a *actor.Actor, departmentID int64) (*scope.Visibility, error)
	Require(ctx context.Context, a *actor.Actor, username string) error
}

// Notifier delivers user notifications
type Notifier interface {
	Notify(ctx context.Context, recipient, message string)
}

// Auditor records payroll changes
type Auditor interface {
	Record(ctx context.Context, action string, details map[string]any)
}

// GenerateRequest represents a payslip generation request
type GenerateRequest struct {
	EmployeeID     string  `json:"employee_id" form:"employee_id" validate:"required,max=64"`
	BaseSalary     float64 `json:"base_salary" form:"base_salary" validate:"finite,gte=0"`
	HoursWorked    float64 `json:"hours_worked" form:"hours_worked" validate:"finite,gte=0"`
	OvertimeHours  float64 `json:"overtime_hours" form:"overtime_hours" validate:"finite,gte=0"`
	SalesAmount    float64 `json:"sales_amount" form:"sales_amount" validate:"finite,gte=0"`
	CommissionRate float64 `json:"commission_rate" form:"commission_rate" validate:"finite,gte=0,lte=1"`
	Month          string  `json:"month" form:"month" validate:"required"`
	Year           int     `json:"year" form:"year" validate:"required"`
	Strategy       string  `json:"strategy" form:"strategy"`
}

// Query narrows payslip reads beyond the caller's visibility
type Query struct {
	Employees    []string
	DepartmentID int64
	Month        string
	Year         int
}

// PayrollService generates payslips and serves payslip reads
type PayrollService struct {
	repo      Repository
	users     Users
	scope     Scope
	notifier  Notifier
	publisher *events.PayrollEventPublisher
	audit     Auditor
	logger    *logger.Logger
}

// NewPayrollService creates a new payroll service
func NewPayrollService(
	repo Repository,
	users Users,
	scope Scope,
	notifier Notifier,
	publisher *events.PayrollEventPublisher,
	audit Auditor,
	log *logger.Logger,
) *PayrollService {
	return &PayrollService{
		repo:      repo,
		users:     users,
		scope:     scope,
		notifier:  notifier,
		publisher: publisher,
		audit:     audit,
		logger:    log,
	}
}

// Generate computes and stores a payslip. Only Admins may generate payslips.
func (s *PayrollService) Generate(ctx context.Context, req *GenerateRequest) (*domain.Payslip, error) {
	if _, err := actor.Require(ctx, permissions.PayrollGenerate); err != nil {
		return nil, err
	}

	slip, err := domain.NewPayslip(req.EmployeeID, req.Strategy, req.Month, req.Year, domain.Input{
		BaseSalary:     req.BaseSalary,
		HoursWorked:    req.HoursWorked,
		OvertimeHours:  req.OvertimeHours,
		SalesAmount:    req.SalesAmount,
		CommissionRate: req.CommissionRate,
	})
	if err != nil {
		return nil, err
	}

	employee, err := s.users.Lookup(ctx, slip.EmployeeID)
	if err != nil {
		return nil, err
	}
	slip.DepartmentID = employee.DepartmentID

	if err := s.repo.Create(ctx, slip); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, slip.EmployeeID, fmt.Sprintf(
		"Payslip for %s %d generated. Net salary: BDT %s",
		slip.Month, slip.Year, domain.FormatAmount(slip.Salary),
	))
	s.publisher.PublishPayslipGenerated(ctx, slip)
	s.audit.Record(ctx, auditsvc.ActionPayslipGenerate, map[string]any{
		"payslip_id":  slip.ID,
		"employee_id": slip.EmployeeID,
		"period":      slip.Period(),
		"strategy":    slip.Strategy,
		"salary":      slip.Salary,
	})
	s.logger.Info().
		Str("payslip_id", slip.ID).
		Str("employee_id", slip.EmployeeID).
		Str("strategy", slip.Strategy).
		Float64("salary", slip.Salary).
		Msg("payslip generated")

	return slip, nil
}

// Get returns a visible payslip
func (s *PayrollService) Get(ctx context.Context, id string) (*domain.Payslip, error) {
	a, err := actor.Require(ctx, permissions.PayrollRead)
	if err != nil {
		return nil, err
	}
	slip, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.scope.Require(ctx, a, slip.EmployeeID); err != nil {
		return nil, err
	}
	return slip, nil
}

// ForEmployee returns the payslips of one visible employee
func (s *PayrollService) ForEmployee(ctx context.Context, username string) ([]*domain.Payslip, error) {
	a, err := actor.Require(ctx, permissions.PayrollRead)
	if err != nil {
		return nil, err
	}
	if err := s.scope.Require(ctx, a, username); err != nil {
		return nil, err
	}
	return s.List(ctx, Query{Employees: []string{username}})
}

// ForEmployees returns the payslips of the visible subset of usernames
func (s *PayrollService) ForEmployees(ctx context.Context, usernames []string) ([]*domain.Payslip, error) {
	if usernames == nil {
		usernames = []string{}
	}
	return s.List(ctx, Query{Employees: usernames})
}

// All returns every visible payslip
func (s *PayrollService) All(ctx context.Context) ([]*domain.Payslip, error) {
	return s.List(ctx, Query{})
}

// List returns visible payslips matching q, newest first
func (s *PayrollService) List(ctx context.Context, q Query) ([]*domain.Payslip, error) {
	params, ok, err := s.params(ctx, q)
	if err != nil || !ok {
		return []*domain.Payslip{}, err
	}
	return s.repo.List(ctx, params)
}

// TotalsByEmployee sums visible net salary per employee
func (s *PayrollService) TotalsByEmployee(ctx context.Context, q Query) ([]*domain.EmployeePay, error) {
	params, ok, err := s.params(ctx, q)
	if err != nil || !ok {
		return []*domain.EmployeePay{}, err
	}
	return s.repo.TotalsByEmployee(ctx, params)
}

func (s *PayrollService) params(ctx context.Context, q Query) (domain.ListParams, bool, error) {
	a, err := actor.Require(ctx, permissions.PayrollRead)
	if err != nil {
		return domain.ListParams{}, false, err
	}

	month := ""
	if q.Month != "" {
		canonical, ok := domain.NormalizeMonth(q.Month)
		if !ok {
			return domain.ListParams{}, false, errors.BadRequest("month must be a calendar month name")
		}
		month = canonical
	}

	var v *scope.Visibility
	if q.DepartmentID != 0 {
		v, err = s.scope.ForDepartment(ctx, a, q.DepartmentID)
	} else {
		v, err = s.scope.Visible(ctx, a)
	}
	if err != nil {
		return domain.ListParams{}, false, err
	}

	v = v.Narrow(q.Employees)
	if v.Empty() {
		return domain.ListParams{}, false, nil
	}
	return domain.ListParams{Employees: v.Usernames(), Month: month, Year: q.Year}, true, nil
}
