package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/staffdesk/staffdesk/internal/user/domain"
	"github.com/staffdesk/staffdesk/pkg/database"
	"github.com/staffdesk/staffdesk/pkg/errors"
)

const userColumns = `id, username, password_hash, role, full_name, email, is_active, department_id, created_at, updated_at`

// UserRepository handles user persistence
type UserRepository struct {
	db *database.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	query := `
		INSERT INTO users (id, username, password_hash, role, full_name, email, is_active, department_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		user.ID,
		user.Username,
		user.PasswordHash,
		user.Role,
		user.FullName,
		user.Email,
		user.IsActive,
		user.DepartmentID,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return database.MapError(err)
	}
	return nil
}

// GetByUsername gets a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	if err := r.db.Q(ctx).GetContext(ctx, &user, query, username); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundMessage("User not found.")
		}
		return nil, err
	}
	return &user, nil
}

// GetByID gets a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if err := r.db.Q(ctx).GetContext(ctx, &user, query, id); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundMessage("User not found.")
		}
		return nil, err
	}
	return &user, nil
}

// List lists users matching params ordered by username
func (r *UserRepository) List(ctx context.Context, params domain.ListParams) ([]*domain.User, error) {
	var conditions []string
	var args []interface{}

	if params.ActiveOnly {
		conditions = append(conditions, "is_active = TRUE")
	}
	if params.Role != "" {
		args = append(args, params.Role)
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)))
	}
	if params.DepartmentIDs != nil {
		args = append(args, pq.Array(params.DepartmentIDs))
		conditions = append(conditions, fmt.Sprintf("department_id = ANY($%d)", len(args)))
	}
	if params.Usernames != nil {
		args = append(args, pq.Array(params.Usernames))
		conditions = append(conditions, fmt.Sprintf("username = ANY($%d)", len(args)))
	}

	query := `SELECT ` + userColumns + ` FROM users`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY username"

	users := []*domain.User{}
	if err := r.db.Q(ctx).SelectContext(ctx, &users, query, args...); err != nil {
		return nil, err
	}
	return users, nil
}

// Update stores the mutable fields of a user
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET password_hash = $2, role = $3, full_name = $4, email = $5,
		    is_active = $6, department_id = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		user.ID,
		user.PasswordHash,
		user.Role,
		user.FullName,
		user.Email,
		user.IsActive,
		user.DepartmentID,
	).Scan(&user.UpdatedAt)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return errors.NotFoundMessage("User not found.")
		}
		return database.MapError(err)
	}
	return nil
}

// CountActiveAdmins counts active admins other than exclude
func (r *UserRepository) CountActiveAdmins(ctx context.Context, exclude string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM users WHERE role = 'Admin' AND is_active = TRUE AND username <> $1`
	if err := r.db.Q(ctx).GetContext(ctx, &count, query, exclude); err != nil {
		return 0, err
	}
	return count, nil
}

// UsernamesByDepartmentIDs returns the usernames assigned to any of the departments
func (r *UserRepository) UsernamesByDepartmentIDs(ctx context.Context, ids []int64) ([]string, error) {
	usernames := []string{}
	if len(ids) == 0 {
		return usernames, nil
	}
	query := `SELECT username FROM users WHERE department_id = ANY($1) ORDER BY username`
	if err := r.db.Q(ctx).SelectContext(ctx, &usernames, query, pq.Array(ids)); err != nil {
		return nil, err
	}
	return usernames, nil
}

// EmailFor returns the stored email address of a user, empty when none is set
func (r *UserRepository) EmailFor(ctx context.Context, username string) (string, error) {
	var email string
	query := `SELECT email FROM users WHERE username = $1`
	if err := r.db.Q(ctx).GetContext(ctx, &email, query, username); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return "", errors.NotFoundMessage("User not found.")
		}
		return "", err
	}
	return email, nil
}
