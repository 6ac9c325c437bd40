package service

import (
	"context"
	"time"

	"github.com/staffdesk/staffdesk/internal/attendance/domain"
	"github.com/staffdesk/staffdesk/internal/attendance/events"
	"github.com/staffdesk/staffdesk/internal/scope"
	userdomain "github.com/staffdesk/staffdesk/internal/user/domain"
	"github.com/staffdesk/staffdesk/pkg/actor"
	"github.com/staffdesk/staffdesk/pkg/errors"
	"github.com/staffdesk/staffdesk/pkg/logger"
	"github.com/staffdesk/staffdesk/pkg/permissions"
)

// Repository is the attendance persistence the service needs
type Repository interface {
	Create(ctx context.Context, rec *domain.Record) error
	GetForDate(ctx context.Context, employee string, date time.Time) (*domain.Record, error)
	SetCheckOut(ctx context.Context, id string, at time.Time) (bool, error)
	List(ctx context.Context, params domain.ListParams) ([]*domain.Record, error)
	HoursByEmployee(ctx context.Context, params domain.ListParams) ([]*domain.EmployeeHours, error)
	SummaryByDate(ctx context.Context, params domain.ListParams) ([]*domain.DateSummary, error)
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

// Query narrows attendance reads. Zero values mean no restriction beyond
// the caller's visibility.
type Query struct {
	Employees    []string
	DepartmentID int64
	From         *time.Time
	To           *time.Time
}

// Result is returned by check-in and check-out
type Result struct {
	Message string         `json:"message"`
	Record  *domain.Record `json:"record"`
}

// AttendanceService handles check-in, check-out and attendance queries
type AttendanceService struct {
	repo      Repository
	users     Users
	scope     Scope
	notifier  Notifier
	publisher *events.AttendanceEventPublisher
	now       func() time.Time
	logger    *logger.Logger
}

// NewAttendanceService creates a new attendance service
func NewAttendanceService(
	repo Repository,
	users Users,
	scope Scope,
	notifier Notifier,
	publisher *events.AttendanceEventPublisher,
	log *logger.Logger,
) *AttendanceService {
	return &AttendanceService{
		repo:      repo,
		users:     users,
		scope:     scope,
		notifier:  notifier,
		publisher: publisher,
		now:       time.Now,
		logger:    log,
	}
}

// WithClock replaces the time source
func (s *AttendanceService) WithClock(now func() time.Time) *AttendanceService {
	s.now = now
	return s
}

// ============================================================================
// CHECK-IN / CHECK-OUT
// ============================================================================

// CheckIn opens today's attendance for employee. An empty employee means the caller.
func (s *AttendanceService) CheckIn(ctx context.Context, employee string) (*Result, error) {
	username, err := s.subject(ctx, employee)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Lookup(ctx, username)
	if err != nil {
		return nil, err
	}

	now := s.now()
	today := dateOf(now)

	if _, err := s.repo.GetForDate(ctx, username, today); err == nil {
		return nil, errors.BadRequest("Already checked in today.")
	} else if !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	rec := &domain.Record{
		EmployeeID:   username,
		Date:         today,
		CheckIn:      now,
		DepartmentID: user.DepartmentID,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		if errors.Is(err, errors.ErrConflict) {
			return nil, errors.BadRequest("Already checked in today.")
		}
		return nil, err
	}

	clock := now.Format(domain.ClockLayout)
	s.notifier.Notify(ctx, username, "Checked in at "+clock)
	s.publisher.PublishCheckIn(ctx, rec)
	s.logger.Info().Str("employee_id", username).Str("at", clock).Msg("checked in")

	return &Result{Message: "Check-in successful at " + clock, Record: rec}, nil
}

// CheckOut closes today's attendance for employee. An empty employee means the caller.
func (s *AttendanceService) CheckOut(ctx context.Context, employee string) (*Result, error) {
	username, err := s.subject(ctx, employee)
	if err != nil {
		return nil, err
	}

	now := s.now()
	rec, err := s.repo.GetForDate(ctx, username, dateOf(now))
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.BadRequest("No check-in found for today.")
		}
		return nil, err
	}
	if !rec.IsOpen() {
		return nil, errors.BadRequest("Already checked out today.")
	}

	if now.Before(rec.CheckIn) {
		now = rec.CheckIn
	}
	closed, err := s.repo.SetCheckOut(ctx, rec.ID, now)
	if err != nil {
		return nil, err
	}
	if !closed {
		return nil, errors.BadRequest("Already checked out today.")
	}
	rec.CheckOut = &now

	clock := now.Format(domain.ClockLayout)
	s.notifier.Notify(ctx, username, "Checked out at "+clock)
	s.publisher.PublishCheckOut(ctx, rec)
	s.logger.Info().Str("employee_id", username).Str("at", clock).Float64("hours", rec.Hours()).Msg("checked out")

	return &Result{Message: "Check-out successful at " + clock, Record: rec}, nil
}

// Today returns the caller's record for today, or nil when there is none
func (s *AttendanceService) Today(ctx context.Context) (*domain.Record, error) {
	a, err := actor.Authenticated(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := s.repo.GetForDate(ctx, a.Username, dateOf(s.now()))
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

// subject resolves whose attendance is being recorded. Employees may only
// record their own; Managers and Admins may record for visible users.
func (s *AttendanceService) subject(ctx context.Context, employee string) (string, error) {
	a, err := actor.Require(ctx, permissions.AttendanceSelf)
	if err != nil {
		return "", err
	}
	if employee == "" || employee == a.Username {
		return a.Username, nil
	}
	if !a.IsAdmin() && !a.IsManager() {
		return "", errors.Forbidden("You can only record your own attendance.")
	}
	if err := s.scope.Require(ctx, a, employee); err != nil {
		return "", err
	}
	return employee, nil
}

// ============================================================================
// QUERIES
// ============================================================================

// Records returns the visible records matching q, newest day first
func (s *AttendanceService) Records(ctx context.Context, q Query) ([]*domain.Record, error) {
	params, ok, err := s.params(ctx, q)
	if err != nil || !ok {
		return []*domain.Record{}, err
	}
	return s.repo.List(ctx, params)
}

// ForEmployee returns one employee's records. Employees outside the
// caller's scope are Forbidden.
func (s *AttendanceService) ForEmployee(ctx context.Context, username string) ([]*domain.Record, error) {
	if err := s.requireVisible(ctx, username); err != nil {
		return nil, err
	}
	return s.Records(ctx, Query{Employees: []string{username}})
}

// ForEmployees returns the records of the visible subset of usernames
func (s *AttendanceService) ForEmployees(ctx context.Context, usernames []string) ([]*domain.Record, error) {
	if usernames == nil {
		usernames = []string{}
	}
	return s.Records(ctx, Query{Employees: usernames})
}

// All returns every visible record
func (s *AttendanceService) All(ctx context.Context) ([]*domain.Record, error) {
	return s.Records(ctx, Query{})
}

// TotalHours returns the hours worked by one employee
func (s *AttendanceService) TotalHours(ctx context.Context, username string) (float64, error) {
	records, err := s.ForEmployee(ctx, username)
	if err != nil {
		return 0, err
	}
	return domain.TotalHours(records), nil
}

// HoursByEmployee totals hours per visible employee
func (s *AttendanceService) HoursByEmployee(ctx context.Context, q Query) ([]*domain.EmployeeHours, error) {
	params, ok, err := s.params(ctx, q)
	if err != nil || !ok {
		return []*domain.EmployeeHours{}, err
	}
	return s.repo.HoursByEmployee(ctx, params)
}

// SummaryByDate counts visible employees present per date
func (s *AttendanceService) SummaryByDate(ctx context.Context, q Query) ([]*domain.DateSummary, error) {
	params, ok, err := s.params(ctx, q)
	if err != nil || !ok {
		return []*domain.DateSummary{}, err
	}
	return s.repo.SummaryByDate(ctx, params)
}

// params turns q into repository filters. ok is false when nobody is visible.
func (s *AttendanceService) params(ctx context.Context, q Query) (domain.ListParams, bool, error) {
	a, err := actor.Require(ctx, permissions.AttendanceRead)
	if err != nil {
		return domain.ListParams{}, false, err
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
	return domain.ListParams{Employees: v.Usernames(), From: q.From, To: q.To}, true, nil
}

func (s *AttendanceService) requireVisible(ctx context.Context, username string) error {
	a, err := actor.Require(ctx, permissions.AttendanceRead)
	if err != nil {
		return err
	}
	return s.scope.Require(ctx, a, username)
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
