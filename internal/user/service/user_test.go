package service_test

import (
	"context"
	"sort"
	"testing"

	"github.com/staffdesk/staffdesk/internal/user/domain"
	"github.com/staffdesk/staffdesk/internal/user/events"
	"github.com/staffdesk/staffdesk/internal/user/service"
	"github.com/staffdesk/staffdesk/pkg/errors"
	"github.com/staffdesk/staffdesk/pkg/logger"
	"github.com/staffdesk/staffdesk/pkg/messaging"
	"github.com/staffdesk/staffdesk/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// ============================================================================
// FAKES
// ============================================================================

type memoryUsers struct {
	users     map[string]*domain.User
	updateErr error
}

func newMemoryUsers(users ...*domain.User) *memoryUsers {
	m := &memoryUsers{users: map[string]*domain.User{}}
	for _, u := range users {
		m.users[u.Username] = u
	}
	return m
}

func (m *memoryUsers) Create(ctx context.Context, user *domain.User) error {
	if _, ok := m.users[user.Username]; ok {
		return errors.Conflict("User already exists.")
	}
	user.ID = "id-" + user.Username
	c := *user
	m.users[user.Username] = &c
	return nil
}

func (m *memoryUsers) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	u, ok := m.users[username]
	if !ok {
		return nil, errors.NotFoundMessage("User not found.")
	}
	c := *u
	return &c, nil
}

func (m *memoryUsers) List(ctx context.Context, params domain.ListParams) ([]*domain.User, error) {
	out := []*domain.User{}
	for _, u := range m.users {
		if params.ActiveOnly && !u.IsActive {
			continue
		}
		if params.Role != "" && u.Role != params.Role {
			continue
		}
		c := *u
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (m *memoryUsers) Update(ctx context.Context, user *domain.User) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	c := *user
	m.users[user.Username] = &c
	return nil
}

func (m *memoryUsers) CountActiveAdmins(ctx context.Context, exclude string) (int, error) {
	n := 0
	for _, u := range m.users {
		if u.Role == "Admin" && u.IsActive && u.Username != exclude {
			n++
		}
	}
	return n, nil
}

func (m *memoryUsers) UsernamesByDepartmentIDs(ctx context.Context, ids []int64) ([]string, error) {
	return nil, nil
}

func (m *memoryUsers) EmailFor(ctx context.Context, username string) (string, error) {
	return m.users[username].Email, nil
}

type fixedDepartment int64

func (f fixedDepartment) DefaultDepartmentID(ctx context.Context) (int64, error) {
	return int64(f), nil
}

type countingTx struct{ calls int }

func (t *countingTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

type noAudit struct{}

func (noAudit) Record(ctx context.Context, action string, details map[string]any) {}

type sessionSpy struct {
	synced  []string
	revoked []string
}

func (s *sessionSpy) SyncUser(username, role string, departmentID *int64) {
	s.synced = append(s.synced, username+":"+role)
}

func (s *sessionSpy) RevokeUser(username string) int {
	s.revoked = append(s.revoked, username)
	return 1
}

func (s *sessionSpy) RevokeOthers(username, keep string) int {
	s.revoked = append(s.revoked, username+" except "+keep)
	return 1
}

func newService(repo *memoryUsers) (*service.UserService, *testutil.MockPublisher, *sessionSpy) {
	domain.PasswordCost = bcrypt.MinCost
	pub := testutil.NewMockPublisher()
	svc := service.NewUserService(repo, fixedDepartment(1), &countingTx{}, events.NewUserEventPublisher(pub, logger.Nop()), noAudit{}, logger.Nop())
	spy := &sessionSpy{}
	svc.SetSessionSync(spy)
	return svc, pub, spy
}

func user(username, role string) *domain.User {
	return &domain.User{ID: "id-" + username, Username: username, Role: role, IsActive: true}
}

var adminCtx = testutil.ActorContext(testutil.Admin("admin"))

// ============================================================================
// REGISTER
// ============================================================================

func TestUserService_Register(t *testing.T) {
	t.Run("defaults to Unassigned department", func(t *testing.T) {
		repo := newMemoryUsers()
		svc, pub, _ := newService(repo)

		u, err := svc.Register(adminCtx, &service.RegisterRequest{Username: "alice", Password: "secret1", Role: "Employee"})
		require.NoError(t, err)
		require.NotNil(t, u.DepartmentID)
		assert.Equal(t, int64(1), *u.DepartmentID)
		assert.True(t, u.IsActive)
		assert.True(t, repo.users["alice"].CheckPassword("secret1"))
		pub.AssertEventPublished(t, messaging.EventUserRegistered)
	})

	t.Run("duplicate username", func(t *testing.T) {
		repo := newMemoryUsers(user("alice", "Employee"))
		svc, _, _ := newService(repo)

		_, err := svc.Register(adminCtx, &service.RegisterRequest{Username: "alice", Password: "secret1", Role: "Employee"})
		require.Error(t, err)
		assert.Equal(t, "User already exists.", errors.Message(err))
	})

	t.Run("unknown role", func(t *testing.T) {
		svc, _, _ := newService(newMemoryUsers())

		_, err := svc.Register(adminCtx, &service.RegisterRequest{Username: "v", Password: "secret1", Role: "Viewer"})
		assert.True(t, errors.Is(err, errors.ErrValidation))
	})

	t.Run("non admin is forbidden", func(t *testing.T) {
		svc, _, _ := newService(newMemoryUsers())

		_, err := svc.Register(testutil.ActorContext(testutil.Manager("maria", 1)),
			&service.RegisterRequest{Username: "x", Password: "secret1", Role: "Employee"})
		assert.True(t, errors.Is(err, errors.ErrForbidden))
	})
}

func TestUserService_EnsureDefaultAdmin(t *testing.T) {
	repo := newMemoryUsers()
	svc, _, _ := newService(repo)

	created, err := svc.EnsureDefaultAdmin(context.Background(), "admin", "pass123")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Admin", repo.users["admin"].Role)

	created, err = svc.EnsureDefaultAdmin(context.Background(), "admin", "pass123")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, repo.users, 1)
}

// ============================================================================
// ROLES
// ============================================================================

func TestUserService_ChangeRole(t *testing.T) {
	t.Run("admin promotes employee", func(t *testing.T) {
		repo := newMemoryUsers(user("admin", "Admin"), user("bob", "Employee"))
		svc, pub, spy := newService(repo)

		u, err := svc.ChangeRole(adminCtx, "bob", "Manager")
		require.NoError(t, err)
		assert.Equal(t, "Manager", u.Role)
		assert.Equal(t, []string{"bob:Manager"}, spy.synced)
		pub.AssertEventPublished(t, messaging.EventUserRoleChanged)
	})

	t.Run("admin cannot demote another admin", func(t *testing.T) {
		repo := newMemoryUsers(user("admin", "Admin"), user("root", "Admin"))
		svc, _, _ := newService(repo)

		_, err := svc.ChangeRole(adminCtx, "root", "Employee")
		assert.True(t, errors.Is(err, errors.ErrForbidden))
		assert.Equal(t, "Admin", repo.users["root"].Role)
	})

	t.Run("last admin cannot demote themself", func(t *testing.T) {
		repo := newMemoryUsers(user("admin", "Admin"))
		svc, _, _ := newService(repo)

		_, err := svc.ChangeRole(adminCtx, "admin", "Manager")
		require.Error(t, err)
		assert.Equal(t, "At least one other active Admin must remain.", errors.Message(err))
	})

	t.Run("self demotion with another admin", func(t *testing.T) {
		repo := newMemoryUsers(user("admin", "Admin"), user("root", "Admin"))
		svc, _, _ := newService(repo)

		u, err := svc.ChangeRole(adminCtx, "admin", "Manager")
		require.NoError(t, err)
		assert.Equal(t, "Manager", u.Role)
	})

	t.Run("manager cannot change roles", func(t *testing.T) {
		repo := newMemoryUsers(user("bob", "Employee"))
		svc, _, _ := newService(repo)

		_, err := svc.ChangeRole(testutil.ActorContext(testutil.Manager("maria", 1)), "bob", "Manager")
		assert.True(t, errors.Is(err, errors.ErrForbidden))
	})
}

// ============================================================================
// PROFILES
// ============================================================================

func TestUserService_Profiles(t *testing.T) {
	repo := newMemoryUsers(user("admin", "Admin"), user("bob", "Employee"), user("carol", "Employee"))
	svc, _, _ := newService(repo)
	bobCtx := testutil.ActorContext(testutil.Employee("bob", 1))

	t.Run("user views own profile", func(t *testing.T) {
		u, err := svc.GetProfile(bobCtx, "bob")
		require.NoError(t, err)
		assert.Equal(t, "bob", u.Username)
	})

	t.Run("user cannot view others", func(t *testing.T) {
		_, err := svc.GetProfile(bobCtx, "carol")
		assert.Equal(t, "You can only view your own profile", errors.Message(err))
	})

	t.Run("user updates own name", func(t *testing.T) {
		name := "Bob Builder"
		u, err := svc.UpdateProfile(bobCtx, "bob", &service.UpdateProfileRequest{FullName: &name})
		require.NoError(t, err)
		assert.Equal(t, "Bob Builder", u.FullName)
		assert.Equal(t, "Bob Builder", repo.users["bob"].FullName)
	})

	t.Run("user cannot change own role", func(t *testing.T) {
		role := "Admin"
		_, err := svc.UpdateProfile(bobCtx, "bob", &service.UpdateProfileRequest{Role: &role})
		assert.Equal(t, "Cannot update field: role", errors.Message(err))
	})

	t.Run("admin moves user to department", func(t *testing.T) {
		dept := int64(5)
		u, err := svc.UpdateProfile(adminCtx, "carol", &service.UpdateProfileRequest{DepartmentID: &dept})
		require.NoError(t, err)
		assert.Equal(t, int64(5), *u.DepartmentID)
	})

	t.Run("list users is admin only", func(t *testing.T) {
		_, err := svc.ListUsers(bobCtx, true)
		assert.Equal(t, "Only Admins can list users", errors.Message(err))

		users, err := svc.ListUsers(adminCtx, true)
		require.NoError(t, err)
		assert.Len(t, users, 3)
	})
}

func TestUserService_UpdateProfile_AdminFields(t *testing.T) {
	t.Run("role, activation and department in one write", func(t *testing.T) {
		repo := newMemoryUsers(user("admin", "Admin"), user("bob", "Employee"))
		svc, pub, spy := newService(repo)

		role, dept := "Manager", int64(4)
		u, err := svc.UpdateProfile(adminCtx, "bob", &service.UpdateProfileRequest{Role: &role, DepartmentID: &dept})
		require.NoError(t, err)
		assert.Equal(t, "Manager", u.Role)
		assert.Equal(t, "Manager", repo.users["bob"].Role)
		assert.Equal(t, int64(4), *repo.users["bob"].DepartmentID)
		assert.Equal(t, []string{"bob:Manager"}, spy.synced)
		pub.AssertEventPublished(t, messaging.EventUserRoleChanged)
	})

	t.Run("failed write leaves role and sessions alone", func(t *testing.T) {
		repo := newMemoryUsers(user("admin", "Admin"), user("bob", "Employee"))
		svc, pub, spy := newService(repo)
		repo.updateErr = errors.NotFound("Department")

		role, active, dept := "Manager", false, int64(99)
		_, err := svc.UpdateProfile(adminCtx, "bob", &service.UpdateProfileRequest{
			Role: &role, IsActive: &active, DepartmentID: &dept,
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrNotFound))

		assert.Equal(t, "Employee", repo.users["bob"].Role)
		assert.True(t, repo.users["bob"].IsActive)
		assert.Empty(t, spy.synced)
		assert.Empty(t, spy.revoked)
		pub.AssertNoEventsPublished(t)
	})

	t.Run("demotion rules apply", func(t *testing.T) {
		repo := newMemoryUsers(user("admin", "Admin"), user("root", "Admin"))
		svc, _, _ := newService(repo)

		role := "Employee"
		_, err := svc.UpdateProfile(adminCtx, "root", &service.UpdateProfileRequest{Role: &role})
		assert.Equal(t, "Admins cannot demote other Admins.", errors.Message(err))
		assert.Equal(t, "Admin", repo.users["root"].Role)
	})

	t.Run("deactivation ends sessions", func(t *testing.T) {
		repo := newMemoryUsers(user("admin", "Admin"), user("bob", "Employee"))
		svc, _, spy := newService(repo)

		active := false
		u, err := svc.UpdateProfile(adminCtx, "bob", &service.UpdateProfileRequest{IsActive: &active})
		require.NoError(t, err)
		assert.False(t, u.IsActive)
		assert.Equal(t, []string{"bob"}, spy.revoked)
	})
}

func TestUserService_SetActive(t *testing.T) {
	repo := newMemoryUsers(user("admin", "Admin"), user("bob", "Employee"))
	svc, _, spy := newService(repo)

	_, err := svc.SetActive(adminCtx, "admin", false)
	assert.True(t, errors.Is(err, errors.ErrBadRequest))

	u, err := svc.SetActive(adminCtx, "bob", false)
	require.NoError(t, err)
	assert.False(t, u.IsActive)
	assert.Equal(t, []string{"bob"}, spy.revoked)

	active, err := svc.ListUsers(adminCtx, true)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestUserService_ChangePassword(t *testing.T) {
	repo := newMemoryUsers()
	svc, _, spy := newService(repo)
	_, err := svc.Register(adminCtx, &service.RegisterRequest{Username: "bob", Password: "first1", Role: "Employee"})
	require.NoError(t, err)
	bob := testutil.Employee("bob", 1)
	bob.SessionID = "sess-1"
	bobCtx := testutil.ActorContext(bob)

	err = svc.ChangePassword(bobCtx, &service.ChangePasswordRequest{OldPassword: "wrong", NewPassword: "second2"})
	assert.Equal(t, "Invalid password.", errors.Message(err))
	assert.Empty(t, spy.revoked)

	require.NoError(t, svc.ChangePassword(bobCtx, &service.ChangePasswordRequest{OldPassword: "first1", NewPassword: "second2"}))
	assert.True(t, repo.users["bob"].CheckPassword("second2"))
	assert.Equal(t, []string{"bob except sess-1"}, spy.revoked)
}
