// Package permissions maps roles to permission strings and checks them with
// support for wildcards.
//
// Permission Format:
//   - "*" - Full access (all permissions)
//   - "resource.*" - All actions on a resource (e.g., "tasks.*")
//   - "resource.action" - Specific action (e.g., "payroll.generate")
package permissions

import (
	"strings"
)

const (
	AttendanceSelf    = "attendance.self"
	AttendanceRead    = "attendance.read"
	TasksRead         = "tasks.read"
	TasksCreate       = "tasks.create"
	TasksUpdate       = "tasks.update"
	PayrollRead       = "payroll.read"
	PayrollGenerate   = "payroll.generate"
	DepartmentsRead   = "departments.read"
	DepartmentsManage = "departments.manage"
	UsersRead         = "users.read"
	UsersManage       = "users.manage"
	ReportsRead       = "reports.read"
	ReportsExport     = "reports.export"
	AuditRead         = "audit.read"
	NotificationsSelf = "notifications.self"
	ProfileUpdate     = "profile.update"
)

// Reads are further narrowed to the caller's visible users, so Employee
// holding tasks.read only ever sees their own tasks.
var rolePermissions = map[string][]string{
	"Admin": {"*"},
	"Manager": {
		"attendance.*",
		"tasks.*",
		PayrollRead,
		DepartmentsRead,
		UsersRead,
		"reports.*",
		NotificationsSelf,
		ProfileUpdate,
	},
	"Employee": {
		AttendanceSelf,
		AttendanceRead,
		TasksRead,
		TasksUpdate,
		PayrollRead,
		DepartmentsRead,
		ReportsRead,
		NotificationsSelf,
		ProfileUpdate,
	},
}

// ForRole returns the permissions granted to a role. Unknown roles get none.
func ForRole(role string) []string {
	return rolePermissions[role]
}

// RoleHas reports whether role grants the required permission.
func RoleHas(role, required string) bool {
	return HasPermission(ForRole(role), required)
}

// HasPermission checks if the user's permissions include the required permission.
// Supports wildcard matching:
//   - "*" matches everything
//   - "tasks.*" matches "tasks.read", "tasks.create", etc.
//   - Exact match for specific permissions
func HasPermission(userPerms []string, required string) bool {
	if required == "" {
		return true
	}

	for _, p := range userPerms {
		if p == "*" || p == required {
			return true
		}
		if strings.HasSuffix(p, ".*") {
			prefix := strings.TrimSuffix(p, ".*")
			if strings.HasPrefix(required, prefix+".") {
				return true
			}
		}
	}
	return false
}

// HasAnyPermission checks if the user has any of the required permissions.
func HasAnyPermission(userPerms []string, required []string) bool {
	for _, req := range required {
		if HasPermission(userPerms, req) {
			return true
		}
	}
	return false
}
