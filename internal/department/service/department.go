package service

import (
	"context"
	"strings"

	auditsvc "github.com/staffdesk/staffdesk/internal/audit/service"
	"github.com/staffdesk/staffdesk/internal/department/domain"
	"github.com/staffdesk/staffdesk/pkg/actor"
	"github.com/staffdesk/staffdesk/pkg/errors"
	"github.com/staffdesk/staffdesk/pkg/logger"
	"github.com/staffdesk/staffdesk/pkg/permissions"
)

// Repository is the persistence the department service needs
type Repository interface {
	Create(ctx context.Context, d *domain.Department) error
	GetByID(ctx context.Context, id int64) (*domain.Department, error)
	GetByName(ctx context.Context, name string) (*domain.Department, error)
	List(ctx context.Context) ([]*domain.Department, error)
	Update(ctx context.Context, d *domain.Department) error
	Delete(ctx context.Context, id int64) error
	CountChildren(ctx context.Context, id int64) (int, error)
	CountUsers(ctx context.Context, id int64) (int, error)
	AncestorIDs(ctx context.Context, id int64) ([]int64, error)
	EnsureDefault(ctx context.Context) (*domain.Department, error)
}

// TxRunner runs fn in a transaction carried by ctx
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Auditor records department changes
type Auditor interface {
	Record(ctx context.Context, action string, details map[string]any)
}

// CreateRequest represents a create department request
type CreateRequest struct {
	Name     string `json:"name" form:"name" validate:"required,max=100"`
	ParentID *int64 `json:"parent_department_id,omitempty" form:"parent_department_id"`
}

// UpdateRequest changes name and/or parent. An empty name keeps the current
// one, a nil parent keeps the current parent and 0 moves the department to the root.
type UpdateRequest struct {
	Name     string `json:"name,omitempty" form:"name" validate:"omitempty,max=100"`
	ParentID *int64 `json:"parent_department_id,omitempty" form:"parent_department_id"`
}

// DepartmentService manages the department hierarchy
type DepartmentService struct {
	repo   Repository
	tx     TxRunner
	audit  Auditor
	logger *logger.Logger
}

// NewDepartmentService creates a new department service
func NewDepartmentService(repo Repository, tx TxRunner, audit Auditor, log *logger.Logger) *DepartmentService {
	return &DepartmentService{
		repo:   repo,
		tx:     tx,
		audit:  audit,
		logger: log,
	}
}

// EnsureDefault makes sure the Unassigned department exists
func (s *DepartmentService) EnsureDefault(ctx context.Context) (*domain.Department, error) {
	d, err := s.repo.EnsureDefault(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Int64("department_id", d.ID).Msg("default department ready")
	return d, nil
}

// DefaultDepartmentID returns the id of the Unassigned department, creating it if needed
func (s *DepartmentService) DefaultDepartmentID(ctx context.Context) (int64, error) {
	d, err := s.EnsureDefault(ctx)
	if err != nil {
		return 0, err
	}
	return d.ID, nil
}

// Create creates a department
func (s *DepartmentService) Create(ctx context.Context, req *CreateRequest) (*domain.Department, error) {
	if _, err := actor.Require(ctx, permissions.DepartmentsManage); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errors.Validation(map[string]string{"name": "is required"})
	}

	if _, err := s.repo.GetByName(ctx, name); err == nil {
		return nil, errors.Conflict("Department with this name already exists.")
	} else if !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	d := &domain.Department{Name: name}
	if req.ParentID != nil && *req.ParentID != 0 {
		if _, err := s.parent(ctx, *req.ParentID); err != nil {
			return nil, err
		}
		parentID := *req.ParentID
		d.ParentID = &parentID
	}

	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, auditsvc.ActionDepartmentCreate, map[string]any{
		"department_id": d.ID,
		"name":          d.Name,
		"parent_id":     d.ParentID,
	})
	s.logger.Info().Int64("department_id", d.ID).Str("name", d.Name).Msg("department created")

	return d, nil
}

// Update renames and/or reparents a department. The ancestor walk and the
// write share one transaction.
func (s *DepartmentService) Update(ctx context.Context, id int64, req *UpdateRequest) (*domain.Department, error) {
	if _, err := actor.Require(ctx, permissions.DepartmentsManage); err != nil {
		return nil, err
	}

	var updated *domain.Department
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		d, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if req.ParentID != nil {
			newParent := *req.ParentID
			if newParent == id {
				return errors.BadRequest("A department cannot be its own parent.")
			}
			if newParent == 0 {
				d.ParentID = nil
			} else {
				if _, err := s.parent(ctx, newParent); err != nil {
					return err
				}
				ancestors, err := s.repo.AncestorIDs(ctx, newParent)
				if err != nil {
					return err
				}
				for _, ancestor := range ancestors {
					if ancestor == id {
						return errors.BadRequest("Circular dependency detected: cannot set parent as a descendant.")
					}
				}
				d.ParentID = &newParent
			}
		}

		if name := strings.TrimSpace(req.Name); name != "" && name != d.Name {
			if d.IsDefault() {
				return errors.BadRequest("The Unassigned department cannot be renamed.")
			}
			if _, err := s.repo.GetByName(ctx, name); err == nil {
				return errors.Conflict("Department with this name already exists.")
			} else if !errors.Is(err, errors.ErrNotFound) {
				return err
			}
			d.Name = name
		}

		if err := s.repo.Update(ctx, d); err != nil {
			return err
		}
		updated = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, auditsvc.ActionDepartmentUpdate, map[string]any{
		"department_id": updated.ID,
		"name":          updated.Name,
		"parent_id":     updated.ParentID,
	})
	s.logger.Info().Int64("department_id", updated.ID).Msg("department updated")

	return updated, nil
}

// Delete removes a department that has no sub-departments and no users
func (s *DepartmentService) Delete(ctx context.Context, id int64) error {
	if _, err := actor.Require(ctx, permissions.DepartmentsManage); err != nil {
		return err
	}

	var name string
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		d, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if d.IsDefault() {
			return errors.Conflict("The Unassigned department cannot be deleted.")
		}

		children, err := s.repo.CountChildren(ctx, id)
		if err != nil {
			return err
		}
		if children > 0 {
			return errors.Conflict("Cannot delete department with sub-departments. Please reassign them first.")
		}

		users, err := s.repo.CountUsers(ctx, id)
		if err != nil {
			return err
		}
		if users > 0 {
			return errors.Conflict("Cannot delete department with assigned users. Please reassign them first.")
		}

		name = d.Name
		return s.repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, auditsvc.ActionDepartmentDelete, map[string]any{
		"department_id": id,
		"name":          name,
	})
	s.logger.Info().Int64("department_id", id).Str("name", name).Msg("department deleted")

	return nil
}

// Get returns a department by id
func (s *DepartmentService) Get(ctx context.Context, id int64) (*domain.Department, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns every department ordered by name
func (s *DepartmentService) List(ctx context.Context) ([]*domain.Department, error) {
	return s.repo.List(ctx)
}

// Tree builds the composite hierarchy from the stored rows
func (s *DepartmentService) Tree(ctx context.Context) (*domain.Tree, error) {
	departments, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return domain.BuildTree(departments), nil
}

// DescendantIDs returns root plus every department below it
func (s *DepartmentService) DescendantIDs(ctx context.Context, root int64) ([]int64, error) {
	tree, err := s.Tree(ctx)
	if err != nil {
		return nil, err
	}
	return tree.DescendantIDs(root), nil
}

func (s *DepartmentService) parent(ctx context.Context, id int64) (*domain.Department, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.NotFoundMessage("Parent department not found.")
		}
		return nil, err
	}
	return p, nil
}
