package repository

import (
	"context"

	"docvault/internal/model"
)

// UserRepository covers the user lookups needed by auth, teams and stats.
// Account creation and credentials are handled elsewhere.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)

	// ListByManager returns the direct reports of managerID.
	ListByManager(ctx context.Context, managerID string) ([]model.User, error)

	// ListUnassigned returns role User accounts with no manager.
	ListUnassigned(ctx context.Context) ([]model.User, error)

	// SetManager assigns or clears (nil) the manager of userID.
	SetManager(ctx context.Context, userID string, managerID *string) (*model.User, error)

	CountByRole(ctx context.Context) (map[model.Role]int, error)

	// UpdateProfile replaces username and email of id. An empty argument
	// keeps the stored value. A clash with another account returns
	// ErrUsernameTaken or ErrEmailTaken.
	UpdateProfile(ctx context.Context, id, username, email string) (*model.User, error)
}
