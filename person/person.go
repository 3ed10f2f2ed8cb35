// Package person defines the Person entity and its store interface.
package person

import (
	"time"

	"github.com/grcware/accord/id"
)

// SystemRole is a person's system-wide role, evaluated before any
// object-level ACL entry.
type SystemRole string

const (
	// SystemRoleNoAccess denies everything regardless of ACL state.
	SystemRoleNoAccess SystemRole = "NoAccess"

	// SystemRoleCreator may create objects and read/update what the
	// ACL grants.
	SystemRoleCreator SystemRole = "Creator"

	// SystemRoleReader may read everything the ACL grants.
	SystemRoleReader SystemRole = "Reader"

	// SystemRoleEditor may read and update everything the ACL grants.
	SystemRoleEditor SystemRole = "Editor"

	// SystemRoleAdministrator short-circuits every check to allow.
	SystemRoleAdministrator SystemRole = "Administrator"
)

// Person is an account known to the access control core.
type Person struct {
	ID         id.PersonID `json:"id" db:"id"`
	Email      string      `json:"email" db:"email"`
	Name       string      `json:"name,omitempty" db:"name"`
	SystemRole SystemRole  `json:"system_role" db:"system_role"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at" db:"updated_at"`
}

// ListFilter contains filters for listing people.
type ListFilter struct {
	Email      string      `json:"email,omitempty"`
	SystemRole *SystemRole `json:"system_role,omitempty"`
	Search     string      `json:"search,omitempty"`
	Limit      int         `json:"limit,omitempty"`
	Offset     int         `json:"offset,omitempty"`
}
