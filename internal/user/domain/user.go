package domain

import (
	"time"

	"github.com/staffdesk/staffdesk/pkg/actor"
)

// User represents a user in the system
type User struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`
	FullName     string    `json:"full_name" db:"full_name"`
	Email        string    `json:"email" db:"email"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	DepartmentID *int64    `json:"department_id,omitempty" db:"department_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Actor returns the user as the acting identity for services
func (u *User) Actor() *actor.Actor {
	return &actor.Actor{
		Username:     u.Username,
		Role:         u.Role,
		DepartmentID: u.DepartmentID,
	}
}

// DisplayName returns the full name, falling back to the username
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// ListParams filters user listings
type ListParams struct {
	ActiveOnly    bool
	Role          string
	DepartmentIDs []int64
	Usernames     []string
}
