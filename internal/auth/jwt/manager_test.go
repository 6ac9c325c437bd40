package jwt_test

import (
	"testing"
	"time"

	"github.com/staffdesk/staffdesk/internal/auth/jwt"
	"github.com/staffdesk/staffdesk/internal/auth/session"
	"github.com/staffdesk/staffdesk/pkg/config"
	"github.com/staffdesk/staffdesk/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(secret string) *jwt.Manager {
	return jwt.NewManager(&config.JWTConfig{
		Secret:        secret,
		SessionExpiry: time.Hour,
		Issuer:        "staffdesk",
	})
}

func TestManager_GenerateAndValidate(t *testing.T) {
	m := newManager("test-secret")
	sess := session.NewStore(time.Hour).Create("alice", "Employee", nil)

	token, err := m.Generate(sess)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", token.TokenType)

	claims, err := m.Validate(token.Value)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, claims.SessionID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, time.Hour, m.SessionExpiry())
}

func TestManager_RejectsForeignSignature(t *testing.T) {
	sess := session.NewStore(time.Hour).Create("alice", "Employee", nil)
	token, err := newManager("one").Generate(sess)
	require.NoError(t, err)

	_, err = newManager("two").Validate(token.Value)
	assert.True(t, errors.Is(err, errors.ErrTokenInvalid))
}

func TestManager_Expired(t *testing.T) {
	m := newManager("test-secret")
	old := time.Now().Add(-2 * time.Hour)
	store := session.NewStore(time.Hour).WithClock(func() time.Time { return old })
	sess := store.Create("alice", "Employee", nil)

	token, err := m.Generate(sess)
	require.NoError(t, err)

	_, err = m.Validate(token.Value)
	assert.True(t, errors.Is(err, errors.ErrTokenExpired))
}

func TestManager_Garbage(t *testing.T) {
	_, err := newManager("s").Validate("not-a-token")
	assert.True(t, errors.Is(err, errors.ErrTokenInvalid))
}
