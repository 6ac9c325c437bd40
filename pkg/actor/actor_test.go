package actor

import (
	"context"
	"testing"

	"github.com/staffdesk/staffdesk/pkg/errors"
	"github.com/staffdesk/staffdesk/pkg/permissions"
	"github.com/stretchr/testify/assert"
)

func TestContextRoundTrip(t *testing.T) {
	a := &Actor{Username: "alice", Role: RoleManager}
	ctx := WithActor(context.Background(), a)

	assert.Same(t, a, FromContext(ctx))
	assert.Nil(t, FromContext(context.Background()))
}

func TestActor_Checks(t *testing.T) {
	var none *Actor
	assert.True(t, none.IsSystem())
	assert.Equal(t, "system", none.Name())
	assert.False(t, none.Can(permissions.TasksRead))

	sys := SystemActor()
	assert.True(t, sys.IsSystem())
	assert.True(t, sys.IsAdmin())

	emp := &Actor{Username: "bob", Role: RoleEmployee}
	assert.False(t, emp.IsSystem())
	assert.True(t, emp.Can(permissions.AttendanceSelf))
	assert.False(t, emp.Can(permissions.PayrollGenerate))
	assert.Equal(t, "bob (Employee)", emp.String())
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole("Employee"))
	assert.False(t, ValidRole("Viewer"))
	assert.False(t, ValidRole("admin"))
}

func TestRequire(t *testing.T) {
	_, err := Require(context.Background(), permissions.TasksRead)
	assert.True(t, errors.Is(err, errors.ErrUnauthorized))

	ctx := WithActor(context.Background(), &Actor{Username: "bob", Role: RoleEmployee})
	_, err = Require(ctx, permissions.PayrollGenerate)
	assert.True(t, errors.Is(err, errors.ErrForbidden))

	a, err := Require(ctx, permissions.TasksRead)
	assert.NoError(t, err)
	assert.Equal(t, "bob", a.Username)
}
