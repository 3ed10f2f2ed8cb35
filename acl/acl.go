// Package acl defines the access control list Entry entity and its store
// interface. An entry binds a role to an object; people are attached to
// the entry through an entry-person join.
package acl

import (
	"time"

	"github.com/grcware/accord/id"
)

// Entry is a single ACL row. A direct entry has a nil BaseID and is
// created by the application together with the object it protects.
// A derived entry is created exclusively by the propagation engine:
// BaseID points at the direct ancestor that caused its existence and
// ParentID at the immediate predecessor in the propagation chain.
type Entry struct {
	ID         id.EntryID   `json:"id" db:"id"`
	ObjectType string       `json:"object_type" db:"object_type"`
	ObjectID   string       `json:"object_id" db:"object_id"`
	RoleID     id.RoleID    `json:"role_id" db:"role_id"`
	BaseID     *id.EntryID  `json:"base_id,omitempty" db:"base_id"`
	ParentID   *id.EntryID  `json:"parent_id,omitempty" db:"parent_id"`
	People     []id.PersonID `json:"people,omitempty" db:"-"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
}

// IsDirect reports whether the entry was written by the application
// rather than derived by propagation.
func (e *Entry) IsDirect() bool { return e.BaseID == nil }

// ListFilter contains filters for listing ACL entries.
type ListFilter struct {
	ObjectType string     `json:"object_type,omitempty"`
	ObjectID   string     `json:"object_id,omitempty"`
	RoleID     *id.RoleID `json:"role_id,omitempty"`
	BaseID     *id.EntryID `json:"base_id,omitempty"`
	DirectOnly bool       `json:"direct_only,omitempty"`
	Limit      int        `json:"limit,omitempty"`
	Offset     int        `json:"offset,omitempty"`
}
