// Package actor identifies the user (or the system) performing an action.
// Services read it from the request context for authorization, visibility
// scoping and audit entries.
package actor

import (
	"context"
	"fmt"

	"github.com/staffdesk/staffdesk/pkg/errors"
	"github.com/staffdesk/staffdesk/pkg/permissions"
)

// Roles
const (
	RoleAdmin    = "Admin"
	RoleManager  = "Manager"
	RoleEmployee = "Employee"
)

// Roles lists every valid role in display order.
var Roles = []string{RoleAdmin, RoleManager, RoleEmployee}

// ValidRole reports whether role is one of Roles.
func ValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Actor represents the entity performing an action in the system.
type Actor struct {
	Username     string `json:"username"`
	Role         string `json:"role"`
	DepartmentID *int64 `json:"department_id,omitempty"`
	// SessionID is the login session the request arrived on, if any
	SessionID    string `json:"-"`
}

const systemUsername = "system"

// IsAdmin reports whether the actor holds the Admin role.
func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

// IsManager reports whether the actor holds the Manager role.
func (a *Actor) IsManager() bool {
	return a != nil && a.Role == RoleManager
}

// Can checks the actor's role against a permission.
func (a *Actor) Can(permission string) bool {
	if a == nil {
		return false
	}
	return permissions.RoleHas(a.Role, permission)
}

// String returns a string representation of the actor for logging
func (a *Actor) String() string {
	if a == nil {
		return systemUsername
	}
	return fmt.Sprintf("%s (%s)", a.Username, a.Role)
}

type contextKey string

const actorContextKey contextKey = "actor"

// FromContext retrieves the Actor from the context.
// Returns nil if no actor is present (e.g., system operations).
func FromContext(ctx context.Context) *Actor {
	if ctx == nil {
		return nil
	}
	a, ok := ctx.Value(actorContextKey).(*Actor)
	if !ok {
		return nil
	}
	return a
}

// WithActor returns a new context with the Actor attached.
func WithActor(ctx context.Context, a *Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey, a)
}

// SystemActor returns an Actor representing the system itself.
// Background jobs run as the system with Admin visibility.
func SystemActor() *Actor {
	return &Actor{
		Username: systemUsername,
		Role:     RoleAdmin,
	}
}

// IsSystem returns true if the actor represents the system.
func (a *Actor) IsSystem() bool {
	if a == nil {
		return true
	}
	return a.Username == systemUsername
}

// Name returns the username, or "system" for a nil actor.
func (a *Actor) Name() string {
	if a == nil {
		return systemUsername
	}
	return a.Username
}

// Require returns the actor in ctx when it holds permission. A missing actor
// is Unauthorized, a missing permission Forbidden.
func Require(ctx context.Context, permission string) (*Actor, error) {
	a := FromContext(ctx)
	if a == nil {
		return nil, errors.Unauthorized("authentication required")
	}
	if !a.Can(permission) {
		return nil, errors.Forbidden("Permission denied.")
	}
	return a, nil
}

// Authenticated returns the actor in ctx or Unauthorized.
func Authenticated(ctx context.Context) (*Actor, error) {
	a := FromContext(ctx)
	if a == nil {
		return nil, errors.Unauthorized("authentication required")
	}
	return a, nil
}
