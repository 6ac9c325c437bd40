package repository

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/staffdesk/staffdesk/internal/department/domain"
	"github.com/staffdesk/staffdesk/pkg/database"
	"github.com/staffdesk/staffdesk/pkg/errors"
)

const departmentColumns = `id, name, parent_department_id, created_at, updated_at`

// DepartmentRepository handles department persistence
type DepartmentRepository struct {
	db *database.DB
}

// NewDepartmentRepository creates a new department repository
func NewDepartmentRepository(db *database.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

// Create inserts a department and fills in its generated fields
func (r *DepartmentRepository) Create(ctx context.Context, d *domain.Department) error {
	query := `
		INSERT INTO departments (name, parent_department_id)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`
	row := r.db.Q(ctx).QueryRowxContext(ctx, query, d.Name, d.ParentID)
	if err := row.Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return database.MapError(err)
	}
	return nil
}

// GetByID gets a department by ID
func (r *DepartmentRepository) GetByID(ctx context.Context, id int64) (*domain.Department, error) {
	var d domain.Department
	query := `SELECT ` + departmentColumns + ` FROM departments WHERE id = $1`
	if err := r.db.Q(ctx).GetContext(ctx, &d, query, id); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("Department")
		}
		return nil, err
	}
	return &d, nil
}

// GetByName gets a department by its unique name
func (r *DepartmentRepository) GetByName(ctx context.Context, name string) (*domain.Department, error) {
	var d domain.Department
	query := `SELECT ` + departmentColumns + ` FROM departments WHERE name = $1`
	if err := r.db.Q(ctx).GetContext(ctx, &d, query, name); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("Department")
		}
		return nil, err
	}
	return &d, nil
}

// List returns every department ordered by name
func (r *DepartmentRepository) List(ctx context.Context) ([]*domain.Department, error) {
	departments := []*domain.Department{}
	query := `SELECT ` + departmentColumns + ` FROM departments ORDER BY name`
	if err := r.db.Q(ctx).SelectContext(ctx, &departments, query); err != nil {
		return nil, err
	}
	return departments, nil
}

// Update stores the name and parent of a department
func (r *DepartmentRepository) Update(ctx context.Context, d *domain.Department) error {
	query := `
		UPDATE departments
		SET name = $2, parent_department_id = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	row := r.db.Q(ctx).QueryRowxContext(ctx, query, d.ID, d.Name, d.ParentID)
	if err := row.Scan(&d.UpdatedAt); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return errors.NotFound("Department")
		}
		return database.MapError(err)
	}
	return nil
}

// Delete removes a department
func (r *DepartmentRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Q(ctx).ExecContext(ctx, `DELETE FROM departments WHERE id = $1`, id)
	if err != nil {
		return database.MapError(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("Department")
	}
	return nil
}

// CountChildren returns the number of direct sub-departments
func (r *DepartmentRepository) CountChildren(ctx context.Context, id int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM departments WHERE parent_department_id = $1`
	if err := r.db.Q(ctx).GetContext(ctx, &count, query, id); err != nil {
		return 0, err
	}
	return count, nil
}

// CountUsers returns the number of users assigned to the department
func (r *DepartmentRepository) CountUsers(ctx context.Context, id int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM users WHERE department_id = $1`
	if err := r.db.Q(ctx).GetContext(ctx, &count, query, id); err != nil {
		return 0, err
	}
	return count, nil
}

// AncestorIDs walks parent links upward from id, returning id first.
// UNION stops the walk if stored data already contains a loop.
func (r *DepartmentRepository) AncestorIDs(ctx context.Context, id int64) ([]int64, error) {
	query := `
		WITH RECURSIVE ancestors AS (
			SELECT id, parent_department_id FROM departments WHERE id = $1
			UNION
			SELECT d.id, d.parent_department_id
			FROM departments d
			JOIN ancestors a ON d.id = a.parent_department_id
		)
		SELECT id FROM ancestors
	`
	ids := []int64{}
	if err := r.db.Q(ctx).SelectContext(ctx, &ids, query, id); err != nil {
		return nil, err
	}
	return ids, nil
}

// EnsureDefault creates the default department when it is missing and returns it
func (r *DepartmentRepository) EnsureDefault(ctx context.Context) (*domain.Department, error) {
	query := `INSERT INTO departments (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`
	if _, err := r.db.Q(ctx).ExecContext(ctx, query, domain.DefaultName); err != nil {
		return nil, err
	}
	return r.GetByName(ctx, domain.DefaultName)
}
