package repository_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/staffdesk/staffdesk/internal/audit/repository"
	"github.com/staffdesk/staffdesk/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditRepository_Create(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := repository.NewAuditRepository(mockDB.DB)
	now := time.Now()

	mockDB.ExpectQuery("INSERT INTO audit_logs").
		WithArgs(testutil.AnyUUID{}, "admin", "auth.login", []byte(`{"ok":true}`)).
		WillReturnRows(testutil.MockRows("created_at").AddRow(now))

	entry := &repository.Entry{Actor: "admin", Action: "auth.login", Details: json.RawMessage(`{"ok":true}`)}
	require.NoError(t, repo.Create(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, now, entry.CreatedAt)
}

func TestAuditRepository_ListFilters(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := repository.NewAuditRepository(mockDB.DB)
	now := time.Now()

	mockDB.ExpectQuery("SELECT COUNT(*) FROM audit_logs WHERE actor = $1 AND action = $2").
		WithArgs("alice", "auth.logout").
		WillReturnRows(testutil.MockRows("count").AddRow(1))
	mockDB.ExpectQuery("ORDER BY created_at DESC LIMIT $3 OFFSET $4").
		WithArgs("alice", "auth.logout", 50, 0).
		WillReturnRows(testutil.MockRows("id", "actor", "action", "details", "created_at").
			AddRow("e1", "alice", "auth.logout", []byte(`{}`), now))

	entries, total, err := repo.List(context.Background(), repository.ListParams{Actor: "alice", Action: "auth.logout"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, entries, 1)
	assert.Equal(t, "alice", entries[0].Actor)
}
