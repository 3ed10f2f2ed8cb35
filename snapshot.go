package accord

import (
	"time"
)

// ResourceSet is the set of object IDs an action is granted on within
// one object type.
type ResourceSet struct {
	IDs map[string]struct{} `json:"ids"`
}

// Has reports whether the set contains the object ID.
func (s ResourceSet) Has(objectID string) bool {
	_, ok := s.IDs[objectID]
	return ok
}

// Snapshot is a per-person materialized view of every permission the
// ACL grants, direct or propagated. It is immutable once built;
// invalidation replaces it rather than mutating it, so a request that
// fetched a snapshot keeps a consistent view for its lifetime.
type Snapshot struct {
	PersonID   string                            `json:"person_id"`
	SystemRole string                            `json:"system_role"`
	Grants     map[Action]map[string]ResourceSet `json:"grants"`
	Partial    bool                              `json:"partial,omitempty"`
	BuiltAt    time.Time                         `json:"built_at"`
}

// NewSnapshot returns an empty snapshot for the person.
func NewSnapshot(personID, systemRole string) *Snapshot {
	return &Snapshot{
		PersonID:   personID,
		SystemRole: systemRole,
		Grants:     make(map[Action]map[string]ResourceSet),
		BuiltAt:    time.Now().UTC(),
	}
}

// Allows reports whether the snapshot grants the action on the object.
func (s *Snapshot) Allows(action Action, obj ObjectRef) bool {
	byType, ok := s.Grants[action]
	if !ok {
		return false
	}
	set, ok := byType[obj.Type]
	if !ok {
		return false
	}
	return set.Has(obj.ID)
}

// Grant records that the action is allowed on the object. Used by the
// snapshot builder; snapshots handed out by the engine are not mutated.
func (s *Snapshot) Grant(action Action, obj ObjectRef) {
	byType, ok := s.Grants[action]
	if !ok {
		byType = make(map[string]ResourceSet)
		s.Grants[action] = byType
	}
	set, ok := byType[obj.Type]
	if !ok {
		set = ResourceSet{IDs: make(map[string]struct{})}
		byType[obj.Type] = set
	}
	set.IDs[obj.ID] = struct{}{}
}
