package service

import (
	"context"
	"encoding/json"

	"github.com/staffdesk/staffdesk/internal/audit/repository"
	"github.com/staffdesk/staffdesk/pkg/actor"
	"github.com/staffdesk/staffdesk/pkg/logger"
	"github.com/staffdesk/staffdesk/pkg/permissions"
)

// Audited actions
const (
	ActionLogin            = "auth.login"
	ActionLogout           = "auth.logout"
	ActionRegister         = "user.register"
	ActionRoleChange       = "user.role_change"
	ActionActivation       = "user.activation"
	ActionProfileUpdate    = "user.profile_update"
	ActionDepartmentCreate = "department.create"
	ActionDepartmentUpdate = "department.update"
	ActionDepartmentDelete = "department.delete"
	ActionTaskCreate       = "task.create"
	ActionTaskStatus       = "task.status_change"
	ActionPayslipGenerate  = "payroll.generate"
	ActionPasswordChange   = "user.password_change"
)

// Store persists audit entries
type Store interface {
	Create(ctx context.Context, e *repository.Entry) error
	List(ctx context.Context, params repository.ListParams) ([]*repository.Entry, int64, error)
}

// AuditService records who did what
type AuditService struct {
	store  Store
	logger *logger.Logger
}

// NewAuditService creates a new audit service
func NewAuditService(store Store, log *logger.Logger) *AuditService {
	return &AuditService{store: store, logger: log}
}

// Record stores an entry for the actor in ctx. Failures are logged, never returned.
func (s *AuditService) Record(ctx context.Context, action string, details map[string]any) {
	s.RecordAs(ctx, actor.FromContext(ctx).Name(), action, details)
}

// RecordAs stores an entry for an explicit actor, used before a session exists.
func (s *AuditService) RecordAs(ctx context.Context, who, action string, details map[string]any) {
	raw, err := json.Marshal(details)
	if err != nil || details == nil {
		raw = []byte(`{}`)
	}

	entry := &repository.Entry{Actor: who, Action: action, Details: raw}
	if err := s.store.Create(ctx, entry); err != nil {
		s.logger.Error().Err(err).
			Str("actor", who).
			Str("action", action).
			Msg("failed to write audit entry")
	}
}

// List returns audit entries. Admin only.
func (s *AuditService) List(ctx context.Context, params repository.ListParams) ([]*repository.Entry, int64, error) {
	if _, err := actor.Require(ctx, permissions.AuditRead); err != nil {
		return nil, 0, err
	}
	return s.store.List(ctx, params)
}
