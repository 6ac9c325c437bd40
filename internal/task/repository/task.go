package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/staffdesk/staffdesk/internal/task/domain"
	"github.com/staffdesk/staffdesk/pkg/database"
	"github.com/staffdesk/staffdesk/pkg/errors"
)

const taskColumns = `id, title, description, assigned_to, deadline, status, task_type, priority,
	department_id, created_by, reminded_on, created_at, updated_at`

// TaskRepository handles task persistence
type TaskRepository struct {
	db *database.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *database.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a task
func (r *TaskRepository) Create(ctx context.Context, t *domain.Task) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	query := `
		INSERT INTO tasks (id, title, description, assigned_to, deadline, status, task_type, priority, department_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`
	row := r.db.Q(ctx).QueryRowxContext(ctx, query,
		t.ID,
		t.Title,
		t.Description,
		t.AssignedTo,
		t.DeadlineString(),
		t.Status,
		t.TaskType,
		t.Priority,
		t.DepartmentID,
		t.CreatedBy,
	)
	if err := row.Scan(&t.CreatedAt, &t.UpdatedAt); err != nil {
		return database.MapError(err)
	}
	return nil
}

// GetByID gets a task by ID
func (r *TaskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.NotFoundMessage("Task not found")
	}

	var t domain.Task
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	if err := r.db.Q(ctx).GetContext(ctx, &t, query, id); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundMessage("Task not found")
		}
		return nil, err
	}
	return &t, nil
}

// List returns matching tasks ordered by deadline
func (r *TaskRepository) List(ctx context.Context, params domain.ListParams) ([]*domain.Task, error) {
	where, args := filter(params)
	query := `SELECT ` + taskColumns + ` FROM tasks` + where + ` ORDER BY deadline, title`

	tasks := []*domain.Task{}
	if err := r.db.Q(ctx).SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, err
	}
	return tasks, nil
}

// UpdateStatus stores a new status if the task is still in status from.
// A task that moved on since it was read is an invalid transition.
func (r *TaskRepository) UpdateStatus(ctx context.Context, t *domain.Task, from string) error {
	query := `UPDATE tasks SET status = $2, updated_at = NOW() WHERE id = $1 AND status = $3 RETURNING updated_at`
	if err := r.db.Q(ctx).QueryRowxContext(ctx, query, t.ID, t.Status, from).Scan(&t.UpdatedAt); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return errors.BadRequest("Invalid status transition")
		}
		return database.MapError(err)
	}
	return nil
}

// StatusCounts counts tasks per status
func (r *TaskRepository) StatusCounts(ctx context.Context, params domain.ListParams) ([]*domain.StatusCount, error) {
	where, args := filter(params)
	query := `SELECT status, COUNT(*) AS count FROM tasks` + where + ` GROUP BY status ORDER BY status`

	counts := []*domain.StatusCount{}
	if err := r.db.Q(ctx).SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, err
	}
	return counts, nil
}

// DueForReminder returns unfinished tasks due on the given day that have not
// been reminded on today
func (r *TaskRepository) DueForReminder(ctx context.Context, due, today time.Time) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
		WHERE deadline = $1 AND status <> $2 AND (reminded_on IS NULL OR reminded_on < $3)
		ORDER BY assigned_to, title`

	tasks := []*domain.Task{}
	err := r.db.Q(ctx).SelectContext(ctx, &tasks, query,
		due.Format(domain.DateLayout),
		domain.StatusCompleted,
		today.Format(domain.DateLayout),
	)
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// MarkReminded records that a reminder went out on day
func (r *TaskRepository) MarkReminded(ctx context.Context, id string, day time.Time) error {
	query := `UPDATE tasks SET reminded_on = $2 WHERE id = $1`
	_, err := r.db.Q(ctx).ExecContext(ctx, query, id, day.Format(domain.DateLayout))
	return err
}

func filter(params domain.ListParams) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if params.Assignees != nil {
		args = append(args, pq.Array(params.Assignees))
		conditions = append(conditions, fmt.Sprintf("assigned_to = ANY($%d)", len(args)))
	}
	if params.Status != "" {
		args = append(args, params.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
