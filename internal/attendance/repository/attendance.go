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
	"github.com/staffdesk/staffdesk/internal/attendance/domain"
	"github.com/staffdesk/staffdesk/pkg/database"
	"github.com/staffdesk/staffdesk/pkg/errors"
)

const recordColumns = `id, employee_id, date, check_in, check_out, department_id, created_at`

// hoursExpr is the per-row worked hours, rounded like domain.Record.Hours
const hoursExpr = `COALESCE(ROUND((EXTRACT(EPOCH FROM (check_out - check_in)) / 3600)::numeric, 2), 0)`

// AttendanceRepository handles attendance persistence
type AttendanceRepository struct {
	db *database.DB
}

// NewAttendanceRepository creates a new attendance repository
func NewAttendanceRepository(db *database.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Create inserts a check-in. A second row for the same employee and date
// violates the unique index and comes back as a Conflict.
func (r *AttendanceRepository) Create(ctx context.Context, rec *domain.Record) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	query := `
		INSERT INTO attendance (id, employee_id, date, check_in, department_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	row := r.db.Q(ctx).QueryRowxContext(ctx, query,
		rec.ID,
		rec.EmployeeID,
		rec.Date.Format(domain.DateLayout),
		rec.CheckIn,
		rec.DepartmentID,
	)
	if err := row.Scan(&rec.CreatedAt); err != nil {
		return database.MapError(err)
	}
	return nil
}

// GetForDate returns the employee's record for the given day
func (r *AttendanceRepository) GetForDate(ctx context.Context, employee string, date time.Time) (*domain.Record, error) {
	var rec domain.Record
	query := `SELECT ` + recordColumns + ` FROM attendance WHERE employee_id = $1 AND date = $2`
	if err := r.db.Q(ctx).GetContext(ctx, &rec, query, employee, date.Format(domain.DateLayout)); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("Attendance record")
		}
		return nil, err
	}
	return &rec, nil
}

// SetCheckOut closes an open record. It reports false when the record was already closed.
func (r *AttendanceRepository) SetCheckOut(ctx context.Context, id string, at time.Time) (bool, error) {
	query := `UPDATE attendance SET check_out = $2 WHERE id = $1 AND check_out IS NULL`
	result, err := r.db.Q(ctx).ExecContext(ctx, query, id, at)
	if err != nil {
		return false, database.MapError(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// List returns matching records, newest day first
func (r *AttendanceRepository) List(ctx context.Context, params domain.ListParams) ([]*domain.Record, error) {
	where, args := filter(params)
	query := `SELECT ` + recordColumns + ` FROM attendance` + where + ` ORDER BY date DESC, employee_id`

	records := []*domain.Record{}
	if err := r.db.Q(ctx).SelectContext(ctx, &records, query, args...); err != nil {
		return nil, err
	}
	return records, nil
}

// HoursByEmployee totals worked hours per employee
func (r *AttendanceRepository) HoursByEmployee(ctx context.Context, params domain.ListParams) ([]*domain.EmployeeHours, error) {
	where, args := filter(params)
	query := `SELECT employee_id, COALESCE(SUM(` + hoursExpr + `), 0) AS total_hours FROM attendance` +
		where + ` GROUP BY employee_id ORDER BY employee_id`

	totals := []*domain.EmployeeHours{}
	if err := r.db.Q(ctx).SelectContext(ctx, &totals, query, args...); err != nil {
		return nil, err
	}
	return totals, nil
}

// SummaryByDate counts the employees present on each day
func (r *AttendanceRepository) SummaryByDate(ctx context.Context, params domain.ListParams) ([]*domain.DateSummary, error) {
	where, args := filter(params)
	query := `SELECT date, COUNT(DISTINCT employee_id) AS present FROM attendance` +
		where + ` GROUP BY date ORDER BY date`

	summary := []*domain.DateSummary{}
	if err := r.db.Q(ctx).SelectContext(ctx, &summary, query, args...); err != nil {
		return nil, err
	}
	return summary, nil
}

func filter(params domain.ListParams) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if params.Employees != nil {
		args = append(args, pq.Array(params.Employees))
		conditions = append(conditions, fmt.Sprintf("employee_id = ANY($%d)", len(args)))
	}
	if params.From != nil {
		args = append(args, params.From.Format(domain.DateLayout))
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)))
	}
	if params.To != nil {
		args = append(args, params.To.Format(domain.DateLayout))
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
