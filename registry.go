package accord

import (
	"context"
	"sync"

	"github.com/grcware/accord/acr"
	"github.com/grcware/accord/id"
)

// Registry is a read-through cache over the role store. Role lookups sit
// on the hot path of every permission check and every propagation walk,
// and capability bits are immutable after creation, so entries stay
// valid until a role is renamed or deleted.
type Registry struct {
	store acr.Store

	mu     sync.RWMutex
	byID   map[id.RoleID]*acr.Role
	byName map[string]*acr.Role
	byType map[string][]*acr.Role
}

// NewRegistry returns a registry backed by the role store.
func NewRegistry(store acr.Store) *Registry {
	return &Registry{
		store:  store,
		byID:   make(map[id.RoleID]*acr.Role),
		byName: make(map[string]*acr.Role),
		byType: make(map[string][]*acr.Role),
	}
}

// Role returns the role by ID, from cache when possible.
func (r *Registry) Role(ctx context.Context, roleID id.RoleID) (*acr.Role, error) {
	r.mu.RLock()
	cached, ok := r.byID[roleID]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	role, err := r.store.GetRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	r.remember(role)
	return role, nil
}

// RoleByName returns the role for (objectType, name), from cache when
// possible.
func (r *Registry) RoleByName(ctx context.Context, objectType, name string) (*acr.Role, error) {
	key := RuleKey(objectType, name)

	r.mu.RLock()
	cached, ok := r.byName[key]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	role, err := r.store.GetRoleByName(ctx, objectType, name)
	if err != nil {
		return nil, err
	}
	r.remember(role)
	return role, nil
}

// RolesFor lists every role defined for an object type, from cache when
// possible. Listings stay cached until a role mutation invalidates
// them.
func (r *Registry) RolesFor(ctx context.Context, objectType string) ([]*acr.Role, error) {
	r.mu.RLock()
	cached, ok := r.byType[objectType]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	roles, err := r.store.ListRoles(ctx, &acr.ListFilter{ObjectType: objectType})
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.byType[objectType] = roles
	for _, role := range roles {
		r.byID[role.ID] = role
		r.byName[RuleKey(role.ObjectType, role.Name)] = role
	}
	r.mu.Unlock()
	return roles, nil
}

func (r *Registry) remember(role *acr.Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[role.ID] = role
	r.byName[RuleKey(role.ObjectType, role.Name)] = role
}

// Invalidate drops the cached copy of a role. Called after every role
// mutation. Type listings are dropped wholesale: the mutated role may
// not be in the point caches yet, so its object type is not always
// known here.
func (r *Registry) Invalidate(roleID id.RoleID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if role, ok := r.byID[roleID]; ok {
		delete(r.byName, RuleKey(role.ObjectType, role.Name))
	}
	delete(r.byID, roleID)
	r.byType = make(map[string][]*acr.Role)
}

// InvalidateAll drops every cached role.
func (r *Registry) InvalidateAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[id.RoleID]*acr.Role)
	r.byName = make(map[string]*acr.Role)
	r.byType = make(map[string][]*acr.Role)
}
