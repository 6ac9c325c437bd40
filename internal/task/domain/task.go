package domain

import (
	"strings"
	"time"

	"github.com/staffdesk/staffdesk/pkg/errors"
)

// DateLayout is the format of task deadlines
const DateLayout = "2006-01-02"

// Task statuses
const (
	StatusNotStarted = "Not Started"
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
)

// Statuses lists every status in workflow order
var Statuses = []string{StatusNotStarted, StatusInProgress, StatusCompleted}

// Task types
const (
	TypeTask         = "Task"
	TypeHighPriority = "HighPriorityTask"
)

// Types lists every task type
var Types = []string{TypeTask, TypeHighPriority}

// Priorities
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

// Priorities lists every priority from lowest to highest
var Priorities = []string{PriorityLow, PriorityMedium, PriorityHigh}

var transitions = map[string][]string{
	StatusNotStarted: {StatusInProgress, StatusCompleted},
	StatusInProgress: {StatusCompleted},
}

// Task is a unit of work assigned to one employee
type Task struct {
	ID           string     `db:"id" json:"id"`
	Title        string     `db:"title" json:"title"`
	Description  string     `db:"description" json:"description"`
	AssignedTo   string     `db:"assigned_to" json:"assigned_to"`
	Deadline     time.Time  `db:"deadline" json:"deadline"`
	Status       string     `db:"status" json:"status"`
	TaskType     string     `db:"task_type" json:"task_type"`
	Priority     string     `db:"priority" json:"priority"`
	DepartmentID *int64     `db:"department_id" json:"department_id,omitempty"`
	CreatedBy    string     `db:"created_by" json:"created_by"`
	RemindedOn   *time.Time `db:"reminded_on" json:"-"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// NewTask builds a task of the given type. An empty type means TypeTask and
// an empty priority means Medium; HighPriorityTask is always High.
func NewTask(taskType, title, description, assignee string, deadline time.Time, priority string) (*Task, error) {
	details := map[string]string{}

	title = strings.TrimSpace(title)
	if title == "" {
		details["title"] = "is required"
	}
	if assignee == "" {
		details["assigned_to"] = "is required"
	}
	if taskType == "" {
		taskType = TypeTask
	}
	if !contains(Types, taskType) {
		details["task_type"] = "must be one of: " + strings.Join(Types, ", ")
	}
	if priority == "" {
		priority = PriorityMedium
	}
	if !contains(Priorities, priority) {
		details["priority"] = "must be one of: " + strings.Join(Priorities, ", ")
	}
	if len(details) > 0 {
		return nil, errors.Validation(details)
	}

	if taskType == TypeHighPriority {
		priority = PriorityHigh
	}

	return &Task{
		Title:       title,
		Description: strings.TrimSpace(description),
		AssignedTo:  assignee,
		Deadline:    deadline,
		Status:      StatusNotStarted,
		TaskType:    taskType,
		Priority:    priority,
	}, nil
}

// ValidStatus reports whether status is a known status
func ValidStatus(status string) bool {
	return contains(Statuses, status)
}

// CanTransition reports whether a task may move from one status to another
func CanTransition(from, to string) bool {
	return contains(transitions[from], to)
}

// Transition moves the task to status
func (t *Task) Transition(status string) error {
	if !ValidStatus(status) {
		return errors.BadRequest("Invalid status")
	}
	if !CanTransition(t.Status, status) {
		return errors.BadRequest("Invalid status transition")
	}
	t.Status = status
	return nil
}

// IsCompleted reports whether the task is done
func (t *Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// DeadlineString returns the deadline as YYYY-MM-DD
func (t *Task) DeadlineString() string {
	return t.Deadline.Format(DateLayout)
}

// IsOverdue reports whether an unfinished task is past its deadline on the day of now
func (t *Task) IsOverdue(now time.Time) bool {
	if t.IsCompleted() {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return t.Deadline.Before(today)
}

// StatusCount is the number of tasks in one status
type StatusCount struct {
	Status string `db:"status" json:"status"`
	Count  int    `db:"count" json:"count"`
}

// ListParams filters tasks. A nil Assignees means every assignee.
type ListParams struct {
	Assignees []string
	Status    string
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
