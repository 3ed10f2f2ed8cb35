package acr

import (
	"context"

	"github.com/grcware/accord/id"
)

// Store defines persistence operations for access control roles.
type Store interface {
	// CreateRole persists a new role. Duplicate (object_type, name)
	// pairs are rejected.
	CreateRole(ctx context.Context, r *Role) error

	// GetRole retrieves a role by ID.
	GetRole(ctx context.Context, roleID id.RoleID) (*Role, error)

	// GetRoleByName retrieves a role by object type and name.
	GetRoleByName(ctx context.Context, objectType, name string) (*Role, error)

	// UpdateRole persists changes to a role's name or presentation flags.
	UpdateRole(ctx context.Context, r *Role) error

	// DeleteRole removes a role by ID.
	DeleteRole(ctx context.Context, roleID id.RoleID) error

	// ListRoles returns roles matching the filter, ordered by ID.
	ListRoles(ctx context.Context, filter *ListFilter) ([]*Role, error)

	// CountRoles returns the number of roles matching the filter.
	CountRoles(ctx context.Context, filter *ListFilter) (int64, error)
}
