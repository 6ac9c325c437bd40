package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/staffdesk/staffdesk/pkg/database"
	"github.com/staffdesk/staffdesk/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

var (
	globalContainer *PostgresContainer
	containerOnce   sync.Once
	containerErr    error
)

// IntegrationSuite provides a migrated PostgreSQL database for integration tests.
//
// Integration test files carry the "integration" build tag:
//
//	//go:build integration
//
//	var suite *testutil.IntegrationSuite
//
//	func TestMain(m *testing.M) {
//	    ctx := context.Background()
//	    var err error
//	    suite, err = testutil.NewIntegrationSuite(ctx)
//	    if err != nil {
//	        panic(err)
//	    }
//	    code := m.Run()
//	    testutil.TerminateContainer(ctx)
//	    os.Exit(code)
//	}
type IntegrationSuite struct {
	Container *PostgresContainer
	DB        *database.DB
	Logger    *logger.Logger
}

// NewIntegrationSuite starts (or reuses) the shared container and applies migrations.
func NewIntegrationSuite(ctx context.Context) (*IntegrationSuite, error) {
	containerOnce.Do(func() {
		globalContainer, containerErr = NewPostgresContainer(ctx, DefaultPostgresConfig())
	})
	if containerErr != nil {
		return nil, containerErr
	}

	log := logger.Nop()
	db, err := database.NewWithDSN(globalContainer.DSN, log)
	if err != nil {
		return nil, err
	}

	if _, err := db.Migrate(ctx); err != nil {
		return nil, err
	}

	return &IntegrationSuite{
		Container: globalContainer,
		DB:        db,
		Logger:    log,
	}, nil
}

// Reset removes all rows except the default department.
func (s *IntegrationSuite) Reset(t *testing.T, ctx context.Context) {
	t.Helper()
	_, err := s.DB.ExecContext(ctx, `
		TRUNCATE audit_logs, notifications, payslips, attendance, tasks, users;
		DELETE FROM departments WHERE name <> 'Unassigned';
	`)
	if err != nil {
		t.Fatalf("failed to reset database: %v", err)
	}
}

// CreateDepartment inserts a department row and returns its id.
func (s *IntegrationSuite) CreateDepartment(t *testing.T, ctx context.Context, name string, parentID *int64) int64 {
	t.Helper()
	var id int64
	err := s.DB.GetContext(ctx, &id,
		`INSERT INTO departments (name, parent_department_id) VALUES ($1, $2) RETURNING id`, name, parentID)
	if err != nil {
		t.Fatalf("failed to create department %s: %v", name, err)
	}
	return id
}

// CreateUser inserts an active user with password "password123".
func (s *IntegrationSuite) CreateUser(t *testing.T, ctx context.Context, username, role string, departmentID *int64) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, role, full_name, email, department_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.New().String(), username, string(hash), role, username, fmt.Sprintf("%s@example.com", username), departmentID)
	if err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
}

// TerminateContainer terminates the shared container.
// Only call this in TestMain after all tests have completed.
func TerminateContainer(ctx context.Context) {
	if globalContainer != nil {
		globalContainer.Terminate(ctx)
	}
}
