// Package scope decides which users' records an actor may see.
//
// Admins see everyone. Managers see every user in their department and the
// departments below it. Employees see only themselves.
package scope

import (
	"context"
	"sort"

	"github.com/staffdesk/staffdesk/pkg/actor"
	"github.com/staffdesk/staffdesk/pkg/errors"
)

// DepartmentTree expands a department into itself and its descendants
type DepartmentTree interface {
	DescendantIDs(ctx context.Context, root int64) ([]int64, error)
}

// UserDirectory lists the users assigned to departments
type UserDirectory interface {
	UsersByDepartmentIDs(ctx context.Context, ids []int64) ([]string, error)
}

// Visibility is a set of usernames, or the unbounded set
type Visibility struct {
	all       bool
	usernames map[string]struct{}
}

// All is the visibility of an Admin
func All() *Visibility {
	return &Visibility{all: true}
}

// Only restricts visibility to the given users
func Only(usernames ...string) *Visibility {
	v := &Visibility{usernames: make(map[string]struct{}, len(usernames))}
	for _, u := range usernames {
		v.usernames[u] = struct{}{}
	}
	return v
}

// IsAll reports whether every user is visible
func (v *Visibility) IsAll() bool {
	return v.all
}

// Allows reports whether username is visible
func (v *Visibility) Allows(username string) bool {
	if v.all {
		return true
	}
	_, ok := v.usernames[username]
	return ok
}

// Empty reports whether nobody is visible
func (v *Visibility) Empty() bool {
	return !v.all && len(v.usernames) == 0
}

// Narrow restricts v to the requested usernames. A nil request keeps v.
func (v *Visibility) Narrow(requested []string) *Visibility {
	if requested == nil {
		return v
	}
	return Only(v.Filter(requested)...)
}

// Usernames returns the visible users sorted. It is nil for the unbounded set.
func (v *Visibility) Usernames() []string {
	if v.all {
		return nil
	}
	out := make([]string, 0, len(v.usernames))
	for u := range v.usernames {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// Filter keeps the visible entries of usernames, preserving order
func (v *Visibility) Filter(usernames []string) []string {
	out := make([]string, 0, len(usernames))
	for _, u := range usernames {
		if v.Allows(u) {
			out = append(out, u)
		}
	}
	return out
}

// Resolver computes visibility from the department hierarchy
type Resolver struct {
	departments DepartmentTree
	users       UserDirectory
}

// NewResolver creates a new scope resolver
func NewResolver(departments DepartmentTree, users UserDirectory) *Resolver {
	return &Resolver{departments: departments, users: users}
}

// Visible returns the users a may see
func (r *Resolver) Visible(ctx context.Context, a *actor.Actor) (*Visibility, error) {
	if a == nil {
		return nil, errors.Unauthorized("authentication required")
	}

	switch a.Role {
	case actor.RoleAdmin:
		return All(), nil
	case actor.RoleManager:
		if a.DepartmentID == nil {
			return Only(a.Username), nil
		}
		usernames, err := r.usersBelow(ctx, *a.DepartmentID)
		if err != nil {
			return nil, err
		}
		return Only(append(usernames, a.Username)...), nil
	default:
		return Only(a.Username), nil
	}
}

// ForDepartment narrows the actor's visibility to one department subtree
func (r *Resolver) ForDepartment(ctx context.Context, a *actor.Actor, departmentID int64) (*Visibility, error) {
	base, err := r.Visible(ctx, a)
	if err != nil {
		return nil, err
	}
	usernames, err := r.usersBelow(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	return Only(base.Filter(usernames)...), nil
}

// FromContext resolves the visibility of the actor in ctx, narrowed to
// departmentID when it is non-zero
func (r *Resolver) FromContext(ctx context.Context, departmentID int64) (*Visibility, error) {
	a := actor.FromContext(ctx)
	if departmentID != 0 {
		return r.ForDepartment(ctx, a, departmentID)
	}
	return r.Visible(ctx, a)
}

// Require fails with Forbidden unless a may see username
func (r *Resolver) Require(ctx context.Context, a *actor.Actor, username string) error {
	v, err := r.Visible(ctx, a)
	if err != nil {
		return err
	}
	if !v.Allows(username) {
		return errors.Forbidden("You do not have access to this user's records.")
	}
	return nil
}

func (r *Resolver) usersBelow(ctx context.Context, departmentID int64) ([]string, error) {
	ids, err := r.departments.DescendantIDs(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []string{}, nil
	}
	return r.users.UsersByDepartmentIDs(ctx, ids)
}
