package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/staffdesk/staffdesk/internal/department/domain"
	"github.com/staffdesk/staffdesk/internal/department/repository"
	"github.com/staffdesk/staffdesk/pkg/errors"
	"github.com/staffdesk/staffdesk/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepartmentRepository_Create(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := repository.NewDepartmentRepository(mockDB.DB)
	now := time.Now()

	mockDB.ExpectQuery("INSERT INTO departments").
		WithArgs("Engineering", sqlmock.AnyArg()).
		WillReturnRows(testutil.MockRows("id", "created_at", "updated_at").AddRow(int64(3), now, now))

	d := &domain.Department{Name: "Engineering"}
	require.NoError(t, repo.Create(context.Background(), d))
	assert.Equal(t, int64(3), d.ID)
	assert.Equal(t, now, d.CreatedAt)
}

func TestDepartmentRepository_GetByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		repo := repository.NewDepartmentRepository(mockDB.DB)
		now := time.Now()

		mockDB.ExpectQuery("FROM departments WHERE id = $1").
			WithArgs(int64(2)).
			WillReturnRows(testutil.MockRows("id", "name", "parent_department_id", "created_at", "updated_at").
				AddRow(int64(2), "Backend", int64(1), now, now))

		d, err := repo.GetByID(context.Background(), 2)
		require.NoError(t, err)
		assert.Equal(t, "Backend", d.Name)
		require.NotNil(t, d.ParentID)
		assert.Equal(t, int64(1), *d.ParentID)
	})

	t.Run("not found", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		repo := repository.NewDepartmentRepository(mockDB.DB)

		mockDB.ExpectQuery("FROM departments WHERE id = $1").
			WithArgs(int64(9)).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByID(context.Background(), 9)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrNotFound))
		assert.Equal(t, "Department not found", errors.Message(err))
	})
}

func TestDepartmentRepository_AncestorIDs(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := repository.NewDepartmentRepository(mockDB.DB)

	mockDB.ExpectQuery("WITH RECURSIVE ancestors").
		WithArgs(int64(4)).
		WillReturnRows(testutil.MockRows("id").AddRow(int64(4)).AddRow(int64(2)).AddRow(int64(1)))

	ids, err := repo.AncestorIDs(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 2, 1}, ids)
}

func TestDepartmentRepository_Counts(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := repository.NewDepartmentRepository(mockDB.DB)

	mockDB.ExpectQuery("SELECT COUNT(*) FROM departments WHERE parent_department_id = $1").
		WithArgs(int64(1)).
		WillReturnRows(testutil.MockRows("count").AddRow(2))
	mockDB.ExpectQuery("SELECT COUNT(*) FROM users WHERE department_id = $1").
		WithArgs(int64(1)).
		WillReturnRows(testutil.MockRows("count").AddRow(0))

	children, err := repo.CountChildren(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, children)

	users, err := repo.CountUsers(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, users)
}

func TestDepartmentRepository_Delete_NotFound(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := repository.NewDepartmentRepository(mockDB.DB)

	mockDB.ExpectExec("DELETE FROM departments WHERE id = $1").
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), 5)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestDepartmentRepository_EnsureDefault(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := repository.NewDepartmentRepository(mockDB.DB)
	now := time.Now()

	mockDB.ExpectExec("ON CONFLICT (name) DO NOTHING").
		WithArgs(domain.DefaultName).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mockDB.ExpectQuery("FROM departments WHERE name = $1").
		WithArgs(domain.DefaultName).
		WillReturnRows(testutil.MockRows("id", "name", "parent_department_id", "created_at", "updated_at").
			AddRow(int64(1), domain.DefaultName, nil, now, now))

	d, err := repo.EnsureDefault(context.Background())
	require.NoError(t, err)
	assert.True(t, d.IsDefault())
	assert.Nil(t, d.ParentID)
}
