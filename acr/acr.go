// Package acr defines the AccessControlRole entity and its store interface.
package acr

import (
	"time"

	"github.com/grcware/accord/id"
)

// Capabilities is the bundle of capability bits a role grants on its
// object type. Propagated roles may only carry a subset of the bits of
// the role they are derived from.
type Capabilities struct {
	Read                 bool `json:"read"`
	Update               bool `json:"update"`
	Delete               bool `json:"delete"`
	Mandatory            bool `json:"mandatory"`
	NonEditable          bool `json:"non_editable"`
	MyWork               bool `json:"my_work"`
	DefaultToCurrentUser bool `json:"default_to_current_user"`
}

// SubsetOf reports whether every granted bit of c is also granted by base.
// Only the action bits participate — Mandatory, NonEditable, MyWork and
// DefaultToCurrentUser are presentation flags, not grants.
func (c Capabilities) SubsetOf(base Capabilities) bool {
	if c.Read && !base.Read {
		return false
	}
	if c.Update && !base.Update {
		return false
	}
	if c.Delete && !base.Delete {
		return false
	}
	return true
}

// Allows reports whether the capability bundle grants the given action.
// Actions outside the known set are never granted.
func (c Capabilities) Allows(action string) bool {
	switch action {
	case "read":
		return c.Read
	case "update":
		return c.Update
	case "delete":
		return c.Delete
	default:
		return false
	}
}

// Role is a named capability bundle for a specific object type.
// (ObjectType, Name) is unique. Capability bits are immutable after
// creation for roles that participate in propagation.
type Role struct {
	ID           id.RoleID    `json:"id" db:"id"`
	ObjectType   string       `json:"object_type" db:"object_type"`
	Name         string       `json:"name" db:"name"`
	Capabilities Capabilities `json:"capabilities" db:"-"`
	IsInternal   bool         `json:"is_internal" db:"is_internal"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}

// ListFilter contains filters for listing roles.
type ListFilter struct {
	ObjectType string `json:"object_type,omitempty"`
	Name       string `json:"name,omitempty"`
	IsInternal *bool  `json:"is_internal,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}
