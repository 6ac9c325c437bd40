package service

import (
	"context"
	"fmt"
	"time"

	auditsvc "github.com/staffdesk/staffdesk/internal/audit/service"
	"github.com/staffdesk/staffdesk/internal/scope"
	"github.com/staffdesk/staffdesk/internal/task/domain"
	"github.com/staffdesk/staffdesk/internal/task/events"
	userdomain "github.com/staffdesk/staffdesk/internal/user/domain"
	"github.com/staffdesk/staffdesk/pkg/actor"
	"github.com/staffdesk/staffdesk/pkg/errors"
	"github.com/staffdesk/staffdesk/pkg/logger"
	"github.com/staffdesk/staffdesk/pkg/permissions"
)

// Repository is the task persistence the service needs
type Repository interface {
	Create(ctx context.Context, t *domain.Task) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	List(ctx context.Context, params domain.ListParams) ([]*domain.Task, error)
	UpdateStatus(ctx context.Context, t *domain.Task, from string) error
	StatusCounts(ctx context.Context, params domain.ListParams) ([]*domain.StatusCount, error)
}

// Users looks up assignees
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

// Auditor records task changes
type Auditor interface {
	Record(ctx context.Context, action string, details map[string]any)
}

// CreateRequest represents a create task request
type CreateRequest struct {
	Title       string `json:"title" form:"title" validate:"required,max=200"`
	Description string `json:"description" form:"description" validate:"max=4000"`
	AssignedTo  string `json:"assigned_to" form:"assigned_to" validate:"required,max=64"`
	Deadline    string `json:"deadline" form:"deadline" validate:"required"`
	TaskType    string `json:"task_type" form:"task_type" validate:"omitempty,oneof=Task HighPriorityTask"`
	Priority    string `json:"priority" form:"priority" validate:"omitempty,oneof=Low Medium High"`
}

// UpdateStatusRequest represents a status change
type UpdateStatusRequest struct {
	Status string `json:"status" form:"status" validate:"required"`
}

// Query narrows task reads beyond the caller's visibility
type Query struct {
	Assignees    []string
	DepartmentID int64
	Status       string
}

// TaskService handles task assignment and workflow
type TaskService struct {
	repo      Repository
	users     Users
	scope     Scope
	notifier  Notifier
	publisher *events.TaskEventPublisher
	audit     Auditor
	logger    *logger.Logger
}

// NewTaskService creates a new task service
func NewTaskService(
	repo Repository,
	users Users,
	scope Scope,
	notifier Notifier,
	publisher *events.TaskEventPublisher,
	audit Auditor,
	log *logger.Logger,
) *TaskService {
	return &TaskService{
		repo:      repo,
		users:     users,
		scope:     scope,
		notifier:  notifier,
		publisher: publisher,
		audit:     audit,
		logger:    log,
	}
}

// ============================================================================
// COMMANDS
// ============================================================================

// Create assigns a new task. Managers may only assign to users in their scope.
func (s *TaskService) Create(ctx context.Context, req *CreateRequest) (*domain.Task, error) {
	a, err := actor.Require(ctx, permissions.TasksCreate)
	if err != nil {
		return nil, err
	}

	deadline, err := time.Parse(domain.DateLayout, req.Deadline)
	if err != nil {
		return nil, errors.Validation(map[string]string{"deadline": "must be a date (YYYY-MM-DD)"})
	}

	task, err := domain.NewTask(req.TaskType, req.Title, req.Description, req.AssignedTo, deadline, req.Priority)
	if err != nil {
		return nil, err
	}

	if err := s.scope.Require(ctx, a, task.AssignedTo); err != nil {
		return nil, err
	}
	assignee, err := s.users.Lookup(ctx, task.AssignedTo)
	if err != nil {
		return nil, err
	}

	task.DepartmentID = assignee.DepartmentID
	task.CreatedBy = a.Username

	if err := s.repo.Create(ctx, task); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, task.AssignedTo, fmt.Sprintf(
		"You've been assigned a new %s: '%s' (Deadline: %s)",
		task.TaskType, task.Title, task.DeadlineString(),
	))
	s.publisher.PublishTaskCreated(ctx, task)
	s.audit.Record(ctx, auditsvc.ActionTaskCreate, map[string]any{
		"task_id":     task.ID,
		"title":       task.Title,
		"assigned_to": task.AssignedTo,
		"task_type":   task.TaskType,
	})
	s.logger.Info().Str("task_id", task.ID).Str("assigned_to", task.AssignedTo).Msg("task created")

	return task, nil
}

// UpdateStatus moves a task through its workflow. The assignee and
// in-scope Managers and Admins may do this.
func (s *TaskService) UpdateStatus(ctx context.Context, id, status string) (*domain.Task, error) {
	a, err := actor.Require(ctx, permissions.TasksUpdate)
	if err != nil {
		return nil, err
	}

	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if task.AssignedTo != a.Username {
		if !a.IsAdmin() && !a.IsManager() {
			return nil, errors.Forbidden("You can only update your own tasks.")
		}
		if err := s.scope.Require(ctx, a, task.AssignedTo); err != nil {
			return nil, err
		}
	}

	oldStatus := task.Status
	if err := task.Transition(status); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, task, oldStatus); err != nil {
		return nil, err
	}

	if task.CreatedBy != "" {
		s.notifier.Notify(ctx, task.CreatedBy, fmt.Sprintf("Task '%s' is now %s", task.Title, task.Status))
	}
	s.publisher.PublishTaskStatusChanged(ctx, task, oldStatus, a.Username)
	s.audit.Record(ctx, auditsvc.ActionTaskStatus, map[string]any{
		"task_id":    task.ID,
		"old_status": oldStatus,
		"new_status": task.Status,
	})
	s.logger.Info().
		Str("task_id", task.ID).
		Str("old_status", oldStatus).
		Str("new_status", task.Status).
		Msg("task status changed")

	return task, nil
}

// ============================================================================
// QUERIES
// ============================================================================

// Get returns a visible task
func (s *TaskService) Get(ctx context.Context, id string) (*domain.Task, error) {
	a, err := actor.Require(ctx, permissions.TasksRead)
	if err != nil {
		return nil, err
	}
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.scope.Require(ctx, a, task.AssignedTo); err != nil {
		return nil, err
	}
	return task, nil
}

// ListByUser returns the tasks assigned to username
func (s *TaskService) ListByUser(ctx context.Context, username string) ([]*domain.Task, error) {
	a, err := actor.Require(ctx, permissions.TasksRead)
	if err != nil {
		return nil, err
	}
	if err := s.scope.Require(ctx, a, username); err != nil {
		return nil, err
	}
	return s.List(ctx, Query{Assignees: []string{username}})
}

// ListAll returns every visible task
func (s *TaskService) ListAll(ctx context.Context) ([]*domain.Task, error) {
	return s.List(ctx, Query{})
}

// ListForEmployees returns the tasks of the visible subset of usernames
func (s *TaskService) ListForEmployees(ctx context.Context, usernames []string) ([]*domain.Task, error) {
	if usernames == nil {
		usernames = []string{}
	}
	return s.List(ctx, Query{Assignees: usernames})
}

// List returns visible tasks matching q ordered by deadline
func (s *TaskService) List(ctx context.Context, q Query) ([]*domain.Task, error) {
	params, ok, err := s.params(ctx, q)
	if err != nil || !ok {
		return []*domain.Task{}, err
	}
	return s.repo.List(ctx, params)
}

// StatusSummary counts visible tasks per status. Every status is present,
// including those with no tasks.
func (s *TaskService) StatusSummary(ctx context.Context, q Query) ([]*domain.StatusCount, error) {
	summary := make([]*domain.StatusCount, 0, len(domain.Statuses))
	for _, status := range domain.Statuses {
		summary = append(summary, &domain.StatusCount{Status: status})
	}

	params, ok, err := s.params(ctx, q)
	if err != nil || !ok {
		return summary, err
	}
	counts, err := s.repo.StatusCounts(ctx, params)
	if err != nil {
		return nil, err
	}
	for _, c := range counts {
		for _, entry := range summary {
			if entry.Status == c.Status {
				entry.Count = c.Count
			}
		}
	}
	return summary, nil
}

func (s *TaskService) params(ctx context.Context, q Query) (domain.ListParams, bool, error) {
	a, err := actor.Require(ctx, permissions.TasksRead)
	if err != nil {
		return domain.ListParams{}, false, err
	}
	if q.Status != "" && !domain.ValidStatus(q.Status) {
		return domain.ListParams{}, false, errors.BadRequest("Invalid status")
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

	v = v.Narrow(q.Assignees)
	if v.Empty() {
		return domain.ListParams{}, false, nil
	}
	return domain.ListParams{Assignees: v.Usernames(), Status: q.Status}, true, nil
}
