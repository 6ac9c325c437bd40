package service

import (
	"context"
	"strings"
	"time"

	auditsvc "github.com/staffdesk/staffdesk/internal/audit/service"
	"github.com/staffdesk/staffdesk/internal/auth/jwt"
	"github.com/staffdesk/staffdesk/internal/auth/session"
	userdomain "github.com/staffdesk/staffdesk/internal/user/domain"
	usersvc "github.com/staffdesk/staffdesk/internal/user/service"
	"github.com/staffdesk/staffdesk/pkg/actor"
	"github.com/staffdesk/staffdesk/pkg/config"
	"github.com/staffdesk/staffdesk/pkg/errors"
	"github.com/staffdesk/staffdesk/pkg/logger"
)

// Users is the account store behind authentication
type Users interface {
	Lookup(ctx context.Context, username string) (*userdomain.User, error)
	Register(ctx context.Context, req *usersvc.RegisterRequest) (*userdomain.User, error)
	EnsureDefaultAdmin(ctx context.Context, username, password string) (bool, error)
	ChangePassword(ctx context.Context, req *usersvc.ChangePasswordRequest) error
	UsersByDepartmentIDs(ctx context.Context, ids []int64) ([]string, error)
}

// Auditor records sign-in activity
type Auditor interface {
	RecordAs(ctx context.Context, who, action string, details map[string]any)
}

// AuthService handles authentication logic
type AuthService struct {
	users      Users
	sessions   *session.Store
	jwtManager *jwt.Manager
	audit      Auditor
	config     *config.AuthConfig
	logger     *logger.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	users Users,
	sessions *session.Store,
	jwtManager *jwt.Manager,
	audit Auditor,
	cfg *config.AuthConfig,
	log *logger.Logger,
) *AuthService {
	return &AuthService{
		users:      users,
		sessions:   sessions,
		jwtManager: jwtManager,
		audit:      audit,
		config:     cfg,
		logger:     log,
	}
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	TokenType string           `json:"token_type"`
	User      *userdomain.User `json:"user"`
}

// Register creates an account. It is a thin wrapper over the user service so
// that callers holding only the auth service can onboard users.
func (s *AuthService) Register(ctx context.Context, req *usersvc.RegisterRequest) (*userdomain.User, error) {
	return s.users.Register(ctx, req)
}

// Login checks credentials and opens a session
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	username := strings.TrimSpace(req.Username)

	user, err := s.users.Lookup(ctx, username)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.InvalidCredentials("User not found.")
		}
		return nil, err
	}
	if !user.CheckPassword(req.Password) {
		s.logger.Warn().Str("username", username).Msg("login failed: invalid password")
		return nil, errors.InvalidCredentials("Invalid password.")
	}
	if !user.IsActive {
		return nil, errors.Forbidden("This account has been deactivated.")
	}

	sess := s.sessions.Create(user.Username, user.Role, user.DepartmentID)
	token, err := s.jwtManager.Generate(sess)
	if err != nil {
		s.sessions.Delete(sess.ID)
		return nil, errors.Internal("failed to sign session token")
	}

	s.audit.RecordAs(ctx, user.Username, auditsvc.ActionLogin, map[string]any{"session_id": sess.ID})
	s.logger.Info().Str("username", user.Username).Str("role", user.Role).Msg("user logged in")

	return &LoginResponse{
		Token:     token.Value,
		ExpiresAt: token.ExpiresAt,
		TokenType: token.TokenType,
		User:      user,
	}, nil
}

// Logout ends the session behind token
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.jwtManager.Validate(token)
	if err != nil {
		return errors.TokenInvalid()
	}
	if !s.sessions.Delete(claims.SessionID) {
		return errors.TokenInvalid()
	}

	s.audit.RecordAs(ctx, claims.Username, auditsvc.ActionLogout, map[string]any{"session_id": claims.SessionID})
	s.logger.Info().Str("username", claims.Username).Msg("user logged out")
	return nil
}

// ValidateToken returns the live session behind token
func (s *AuthService) ValidateToken(token string) (*session.Session, error) {
	claims, err := s.jwtManager.Validate(token)
	if err != nil {
		return nil, err
	}
	sess, ok := s.sessions.Get(claims.SessionID)
	if !ok || sess.Username != claims.Username {
		return nil, errors.TokenInvalid()
	}
	return sess, nil
}

// RoleOf returns the role of the user signed in with token
func (s *AuthService) RoleOf(token string) (string, error) {
	sess, err := s.ValidateToken(token)
	if err != nil {
		return "", err
	}
	return sess.Role, nil
}

// CurrentUser returns the username signed in with token
func (s *AuthService) CurrentUser(token string) (string, error) {
	sess, err := s.ValidateToken(token)
	if err != nil {
		return "", err
	}
	return sess.Username, nil
}

// Me returns the profile of the actor in ctx
func (s *AuthService) Me(ctx context.Context) (*userdomain.User, error) {
	a, err := actor.Authenticated(ctx)
	if err != nil {
		return nil, err
	}
	return s.users.Lookup(ctx, a.Username)
}

// EnsureDefaultAdmin creates the configured bootstrap admin when no Admin exists
func (s *AuthService) EnsureDefaultAdmin(ctx context.Context) (bool, error) {
	return s.users.EnsureDefaultAdmin(ctx, s.config.DefaultAdminUsername, s.config.DefaultAdminPassword)
}

// ChangePassword changes the signed-in user's password
func (s *AuthService) ChangePassword(ctx context.Context, req *usersvc.ChangePasswordRequest) error {
	return s.users.ChangePassword(ctx, req)
}

// UsersByDepartmentIDs returns the usernames assigned to any of the departments
func (s *AuthService) UsersByDepartmentIDs(ctx context.Context, ids []int64) ([]string, error) {
	return s.users.UsersByDepartmentIDs(ctx, ids)
}
