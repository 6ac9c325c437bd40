package service

import (
	"context"
	"strings"

	auditsvc "github.com/staffdesk/staffdesk/internal/audit/service"
	"github.com/staffdesk/staffdesk/internal/user/domain"
	"github.com/staffdesk/staffdesk/internal/user/events"
	"github.com/staffdesk/staffdesk/pkg/actor"
	"github.com/staffdesk/staffdesk/pkg/errors"
	"github.com/staffdesk/staffdesk/pkg/logger"
)

// Repository is the user persistence the service needs
type Repository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context, params domain.ListParams) ([]*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	CountActiveAdmins(ctx context.Context, exclude string) (int, error)
	UsernamesByDepartmentIDs(ctx context.Context, ids []int64) ([]string, error)
	EmailFor(ctx context.Context, username string) (string, error)
}

// DefaultDepartment resolves the department users land in when none is given
type DefaultDepartment interface {
	DefaultDepartmentID(ctx context.Context) (int64, error)
}

// SessionSync keeps live sessions in step with user changes
type SessionSync interface {
	SyncUser(username, role string, departmentID *int64)
	RevokeUser(username string) int
	RevokeOthers(username, keep string) int
}

// TxRunner runs fn in a transaction carried by ctx
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Auditor records user administration
type Auditor interface {
	Record(ctx context.Context, action string, details map[string]any)
}

// UserService handles user business logic
type UserService struct {
	userRepo    Repository
	departments DefaultDepartment
	tx          TxRunner
	sessions    SessionSync
	publisher   *events.UserEventPublisher
	audit       Auditor
	logger      *logger.Logger
}

// NewUserService creates a new user service
func NewUserService(
	userRepo Repository,
	departments DefaultDepartment,
	tx TxRunner,
	publisher *events.UserEventPublisher,
	audit Auditor,
	log *logger.Logger,
) *UserService {
	return &UserService{
		userRepo:    userRepo,
		departments: departments,
		tx:          tx,
		publisher:   publisher,
		audit:       audit,
		logger:      log,
	}
}

// SetSessionSync attaches the session store once it exists
func (s *UserService) SetSessionSync(sessions SessionSync) {
	s.sessions = sessions
}

// RegisterRequest represents a create user request
type RegisterRequest struct {
	Username     string `json:"username" form:"username" validate:"required,max=64"`
	Password     string `json:"password" form:"password" validate:"required,min=6"`
	Role         string `json:"role" form:"role" validate:"required"`
	FullName     string `json:"full_name" form:"full_name" validate:"max=200"`
	Email        string `json:"email" form:"email" validate:"omitempty,email"`
	DepartmentID *int64 `json:"department_id,omitempty" form:"department_id"`
}

// UpdateProfileRequest carries the profile fields to change. Nil fields are left alone.
type UpdateProfileRequest struct {
	FullName     *string `json:"full_name,omitempty" validate:"omitempty,max=200"`
	Email        *string `json:"email,omitempty" validate:"omitempty,email"`
	Password     *string `json:"password,omitempty" validate:"omitempty,min=6"`
	Role         *string `json:"role,omitempty"`
	DepartmentID *int64  `json:"department_id,omitempty"`
	IsActive     *bool   `json:"is_active,omitempty"`
}

// ChangePasswordRequest represents a password change by the signed-in user
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" form:"old_password" validate:"required"`
	NewPassword string `json:"new_password" form:"new_password" validate:"required,min=6"`
}

// ============================================================================
// REGISTRATION
// ============================================================================

// Register creates credentials and profile in one step. Admin only.
func (s *UserService) Register(ctx context.Context, req *RegisterRequest) (*domain.User, error) {
	a := actor.FromContext(ctx)
	if a == nil {
		return nil, errors.Unauthorized("authentication required")
	}
	if !a.IsAdmin() {
		return nil, errors.Forbidden("Only Admins can create user profiles")
	}
	return s.register(ctx, req)
}

// CreateProfile is Register as exposed to the user administration pages
func (s *UserService) CreateProfile(ctx context.Context, req *RegisterRequest) (*domain.User, error) {
	return s.Register(ctx, req)
}

func (s *UserService) register(ctx context.Context, req *RegisterRequest) (*domain.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, errors.Validation(map[string]string{"username": "is required"})
	}
	if !actor.ValidRole(req.Role) {
		return nil, errors.Validation(map[string]string{
			"role": "must be one of: " + strings.Join(actor.Roles, ", "),
		})
	}

	if _, err := s.userRepo.GetByUsername(ctx, username); err == nil {
		return nil, errors.Conflict("User already exists.")
	} else if !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	departmentID := req.DepartmentID
	if departmentID == nil || *departmentID == 0 {
		id, err := s.departments.DefaultDepartmentID(ctx)
		if err != nil {
			return nil, err
		}
		departmentID = &id
	}

	hash, err := domain.HashPassword(req.Password)
	if err != nil {
		return nil, errors.Internal("failed to hash password")
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: hash,
		Role:         req.Role,
		FullName:     strings.TrimSpace(req.FullName),
		Email:        strings.TrimSpace(req.Email),
		IsActive:     true,
		DepartmentID: departmentID,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.publisher.PublishUserRegistered(ctx, user)
	s.audit.Record(ctx, auditsvc.ActionRegister, map[string]any{
		"username":      user.Username,
		"role":          user.Role,
		"department_id": user.DepartmentID,
	})
	s.logger.Info().Str("username", user.Username).Str("role", user.Role).Msg("user registered")

	return user, nil
}

// EnsureDefaultAdmin creates the bootstrap admin when no Admin exists.
// It reports whether an account was created.
func (s *UserService) EnsureDefaultAdmin(ctx context.Context, username, password string) (bool, error) {
	admins, err := s.userRepo.List(ctx, domain.ListParams{Role: actor.RoleAdmin})
	if err != nil {
		return false, err
	}
	if len(admins) > 0 {
		return false, nil
	}

	ctx = actor.WithActor(ctx, actor.SystemActor())
	if _, err := s.register(ctx, &RegisterRequest{
		Username: username,
		Password: password,
		Role:     actor.RoleAdmin,
		FullName: "Administrator",
	}); err != nil {
		if errors.Is(err, errors.ErrConflict) {
			return false, nil
		}
		return false, err
	}

	s.logger.Warn().Str("username", username).Msg("default admin account created, change its password")
	return true, nil
}

// ============================================================================
// PROFILES
// ============================================================================

// Lookup returns a user without authorization checks, for use by other services
func (s *UserService) Lookup(ctx context.Context, username string) (*domain.User, error) {
	return s.userRepo.GetByUsername(ctx, username)
}

// ListUsers lists users. Admin only.
func (s *UserService) ListUsers(ctx context.Context, activeOnly bool) ([]*domain.User, error) {
	a := actor.FromContext(ctx)
	if a == nil {
		return nil, errors.Unauthorized("authentication required")
	}
	if !a.IsAdmin() {
		return nil, errors.Forbidden("Only Admins can list users")
	}
	return s.userRepo.List(ctx, domain.ListParams{ActiveOnly: activeOnly})
}

// ListByUsernames returns the profiles of the given users
func (s *UserService) ListByUsernames(ctx context.Context, usernames []string) ([]*domain.User, error) {
	if usernames == nil {
		usernames = []string{}
	}
	return s.userRepo.List(ctx, domain.ListParams{Usernames: usernames})
}

// GetProfile returns a profile. Users can view their own, Admins any.
func (s *UserService) GetProfile(ctx context.Context, username string) (*domain.User, error) {
	a := actor.FromContext(ctx)
	if a == nil {
		return nil, errors.Unauthorized("authentication required")
	}
	if a.Username != username && !a.IsAdmin() {
		return nil, errors.Forbidden("You can only view your own profile")
	}
	return s.userRepo.GetByUsername(ctx, username)
}

// UpdateProfile changes profile fields. Users may edit their own name, email
// and password. Role, department and activation are Admin only. All changes
// are written together in one transaction.
func (s *UserService) UpdateProfile(ctx context.Context, username string, req *UpdateProfileRequest) (*domain.User, error) {
	a := actor.FromContext(ctx)
	if a == nil {
		return nil, errors.Unauthorized("authentication required")
	}
	if a.Username != username && !a.IsAdmin() {
		return nil, errors.Forbidden("You can only update your own profile")
	}
	if !a.IsAdmin() {
		switch {
		case req.Role != nil:
			return nil, errors.Forbidden("Cannot update field: role")
		case req.DepartmentID != nil:
			return nil, errors.Forbidden("Cannot update field: department_id")
		case req.IsActive != nil:
			return nil, errors.Forbidden("Cannot update field: is_active")
		}
	}

	var (
		user    *domain.User
		oldRole string
		changes = map[string]any{}
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		u, err := s.userRepo.GetByUsername(ctx, username)
		if err != nil {
			return err
		}
		user = u
		oldRole = u.Role

		if req.Role != nil && *req.Role != u.Role {
			if err := checkRole(a, *req.Role); err != nil {
				return err
			}
			if err := s.checkDemotion(ctx, a, u); err != nil {
				return err
			}
			u.Role = *req.Role
			changes["role"] = u.Role
		}
		if req.IsActive != nil && *req.IsActive != u.IsActive {
			if err := checkActivation(a, username, *req.IsActive); err != nil {
				return err
			}
			u.IsActive = *req.IsActive
			changes["is_active"] = u.IsActive
		}
		if req.FullName != nil {
			u.FullName = strings.TrimSpace(*req.FullName)
			changes["full_name"] = u.FullName
		}
		if req.Email != nil {
			u.Email = strings.TrimSpace(*req.Email)
			changes["email"] = u.Email
		}
		if req.Password != nil {
			hash, err := domain.HashPassword(*req.Password)
			if err != nil {
				return errors.Internal("failed to hash password")
			}
			u.PasswordHash = hash
			changes["password"] = "changed"
		}
		if req.DepartmentID != nil {
			departmentID := *req.DepartmentID
			u.DepartmentID = &departmentID
			changes["department_id"] = departmentID
		}

		if len(changes) == 0 {
			return nil
		}
		return s.userRepo.Update(ctx, u)
	})
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return user, nil
	}

	_, roleChanged := changes["role"]
	_, activeChanged := changes["is_active"]
	_, passwordChanged := changes["password"]
	_, departmentChanged := changes["department_id"]

	if s.sessions != nil {
		switch {
		case activeChanged && !user.IsActive:
			s.sessions.RevokeUser(user.Username)
		case passwordChanged:
			s.sessions.RevokeOthers(user.Username, a.SessionID)
		}
		if roleChanged || departmentChanged {
			s.sessions.SyncUser(user.Username, user.Role, user.DepartmentID)
		}
	}
	if roleChanged {
		s.publisher.PublishUserRoleChanged(ctx, user.Username, oldRole, user.Role, a.Username)
		s.audit.Record(ctx, auditsvc.ActionRoleChange, map[string]any{
			"username": user.Username,
			"old_role": oldRole,
			"new_role": user.Role,
		})
	}
	if activeChanged {
		s.audit.Record(ctx, auditsvc.ActionActivation, map[string]any{
			"username":  user.Username,
			"is_active": user.IsActive,
		})
	}

	changes["username"] = username
	s.audit.Record(ctx, auditsvc.ActionProfileUpdate, changes)

	return user, nil
}

// ChangePassword replaces the signed-in user's password after checking the old one
func (s *UserService) ChangePassword(ctx context.Context, req *ChangePasswordRequest) error {
	a := actor.FromContext(ctx)
	if a == nil {
		return errors.Unauthorized("authentication required")
	}

	user, err := s.userRepo.GetByUsername(ctx, a.Username)
	if err != nil {
		return err
	}
	if !user.CheckPassword(req.OldPassword) {
		return errors.InvalidCredentials("Invalid password.")
	}

	hash, err := domain.HashPassword(req.NewPassword)
	if err != nil {
		return errors.Internal("failed to hash password")
	}
	user.PasswordHash = hash
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}

	if s.sessions != nil {
		if n := s.sessions.RevokeOthers(user.Username, a.SessionID); n > 0 {
			s.logger.Info().Str("username", user.Username).Int("sessions", n).Msg("other sessions ended after password change")
		}
	}

	s.audit.Record(ctx, auditsvc.ActionPasswordChange, map[string]any{"username": user.Username})
	return nil
}

// ============================================================================
// ADMINISTRATION
// ============================================================================

// SetActive activates or deactivates an account. Admin only, and an Admin
// cannot deactivate themself. Deactivation ends the user's sessions.
func (s *UserService) SetActive(ctx context.Context, username string, active bool) (*domain.User, error) {
	a := actor.FromContext(ctx)
	if a == nil {
		return nil, errors.Unauthorized("authentication required")
	}
	if err := checkActivation(a, username, active); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user.IsActive == active {
		return user, nil
	}

	user.IsActive = active
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	if !active && s.sessions != nil {
		s.sessions.RevokeUser(username)
	}

	s.audit.Record(ctx, auditsvc.ActionActivation, map[string]any{
		"username":  username,
		"is_active": active,
	})
	s.logger.Info().Str("username", username).Bool("is_active", active).Msg("user activation changed")

	return user, nil
}

// ChangeRole moves a user to another role. Only Admins change roles. An Admin
// may not demote another Admin, and may demote themself only while another
// active Admin remains.
func (s *UserService) ChangeRole(ctx context.Context, username, newRole string) (*domain.User, error) {
	a := actor.FromContext(ctx)
	if a == nil {
		return nil, errors.Unauthorized("authentication required")
	}
	if err := checkRole(a, newRole); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user.Role == newRole {
		return user, nil
	}
	if err := s.checkDemotion(ctx, a, user); err != nil {
		return nil, err
	}

	oldRole := user.Role
	user.Role = newRole
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	if s.sessions != nil {
		s.sessions.SyncUser(user.Username, user.Role, user.DepartmentID)
	}

	s.publisher.PublishUserRoleChanged(ctx, user.Username, oldRole, newRole, a.Username)
	s.audit.Record(ctx, auditsvc.ActionRoleChange, map[string]any{
		"username": user.Username,
		"old_role": oldRole,
		"new_role": newRole,
	})
	s.logger.Info().
		Str("username", user.Username).
		Str("old_role", oldRole).
		Str("new_role", newRole).
		Msg("user role changed")

	return user, nil
}

func checkActivation(a *actor.Actor, username string, active bool) error {
	if !a.IsAdmin() {
		return errors.Forbidden("Only Admins can modify user status")
	}
	if !active && a.Username == username {
		return errors.BadRequest("You cannot deactivate your own account.")
	}
	return nil
}

func checkRole(a *actor.Actor, role string) error {
	if !a.IsAdmin() {
		return errors.Forbidden("Only Admins can change roles")
	}
	if !actor.ValidRole(role) {
		return errors.Validation(map[string]string{
			"role": "must be one of: " + strings.Join(actor.Roles, ", "),
		})
	}
	return nil
}

// checkDemotion applies the Admin demotion rules to a user about to lose the Admin role
func (s *UserService) checkDemotion(ctx context.Context, a *actor.Actor, user *domain.User) error {
	if user.Role != actor.RoleAdmin {
		return nil
	}
	if user.Username != a.Username {
		return errors.Forbidden("Admins cannot demote other Admins.")
	}
	others, err := s.userRepo.CountActiveAdmins(ctx, user.Username)
	if err != nil {
		return err
	}
	if others == 0 {
		return errors.BadRequest("At least one other active Admin must remain.")
	}
	return nil
}

// ============================================================================
// LOOKUPS
// ============================================================================

// UsersByDepartmentIDs returns the usernames assigned to any of the departments
func (s *UserService) UsersByDepartmentIDs(ctx context.Context, ids []int64) ([]string, error) {
	return s.userRepo.UsernamesByDepartmentIDs(ctx, ids)
}

// EmailFor returns a user's email address
func (s *UserService) EmailFor(ctx context.Context, username string) (string, error) {
	return s.userRepo.EmailFor(ctx, username)
}
