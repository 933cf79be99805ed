package model

import (
	"fmt"
	"time"
)

// Role is the closed set of account roles. Access rules branch on it, so
// new values must be added here and to the rule table in package access.
type Role string

const (
	RoleUser    Role = "User"
	RoleManager Role = "Manager"
	RoleAdmin   Role = "Admin"
)

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleUser, RoleManager, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// User is an account. ManagerID is only ever set for RoleUser accounts;
// Admins and Managers have no manager.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	ManagerID *string   `json:"manager_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UserRef is the trimmed user shape embedded in presentation models.
type UserRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}
