package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/staffdesk/staffdesk/pkg/database"
)

// Entry is one audit log row
type Entry struct {
	ID        string          `db:"id" json:"id"`
	Actor     string          `db:"actor" json:"actor"`
	Action    string          `db:"action" json:"action"`
	Details   json.RawMessage `db:"details" json:"details"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// ListParams filters audit entries
type ListParams struct {
	Actor  string
	Action string
	Since  *time.Time
	Limit  int
	Offset int
}

// AuditRepository handles audit log persistence
type AuditRepository struct {
	db *database.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *database.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create appends an entry
func (r *AuditRepository) Create(ctx context.Context, e *Entry) error {
	if len(e.Details) == 0 {
		e.Details = json.RawMessage(`{}`)
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	query := `
		INSERT INTO audit_logs (id, actor, action, details)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	row := r.db.Q(ctx).QueryRowxContext(ctx, query, e.ID, e.Actor, e.Action, []byte(e.Details))
	return row.Scan(&e.CreatedAt)
}

// List returns matching entries newest first together with the total count
func (r *AuditRepository) List(ctx context.Context, params ListParams) ([]*Entry, int64, error) {
	var conditions []string
	var args []interface{}

	if params.Actor != "" {
		args = append(args, params.Actor)
		conditions = append(conditions, fmt.Sprintf("actor = $%d", len(args)))
	}
	if params.Action != "" {
		args = append(args, params.Action)
		conditions = append(conditions, fmt.Sprintf("action = $%d", len(args)))
	}
	if params.Since != nil {
		args = append(args, *params.Since)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.Q(ctx).GetContext(ctx, &total, "SELECT COUNT(*) FROM audit_logs"+where, args...); err != nil {
		return nil, 0, err
	}

	limit := params.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit, params.Offset)
	query := fmt.Sprintf(
		"SELECT id, actor, action, details, created_at FROM audit_logs%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		where, len(args)-1, len(args),
	)

	entries := []*Entry{}
	if err := r.db.Q(ctx).SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
