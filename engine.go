package accord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/grcware/accord/acl"
	"github.com/grcware/accord/acr"
	"github.com/grcware/accord/id"
	"github.com/grcware/accord/person"
	"github.com/grcware/accord/plugin"
	"github.com/grcware/accord/relationship"
	"github.com/grcware/accord/store"
)

// Engine is the access control core. It owns the role registry, applies
// propagation to every ACL and relationship mutation, and answers
// permission checks from per-person snapshots.
type Engine struct {
	store    store.Store
	registry *Registry
	rules    RuleSet
	cache    SnapshotCache
	resolver FieldResolver
	plugins  *plugin.Registry
	prop     *propagator
	logger   *slog.Logger
	config   Config
}

// NewEngine creates a new Accord engine with the given options.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		rules:  DefaultRules(),
		logger: slog.Default(),
		config: DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		return nil, errors.New("accord: store is required")
	}
	if e.config.MaxPropagationDepth <= 0 {
		e.config.MaxPropagationDepth = DefaultConfig().MaxPropagationDepth
	}
	if len(e.config.ObjectTypes) == 0 {
		e.config.ObjectTypes = DefaultObjectTypes()
	}
	e.registry = NewRegistry(e.store)
	e.prop = &propagator{
		store:    e.store,
		registry: e.registry,
		rules:    e.rules,
		cfg:      e.config,
		logger:   e.logger,
	}
	return e, nil
}

// Store returns the underlying composite store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry (may be nil).
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Rules returns the propagation rule tree.
func (e *Engine) Rules() RuleSet { return e.rules }

// Start performs any startup initialization.
func (e *Engine) Start(_ context.Context) error { return nil }

// Stop performs graceful shutdown.
func (e *Engine) Stop(ctx context.Context) error {
	if e.plugins != nil {
		e.plugins.EmitShutdown(ctx)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Permission checks
// ──────────────────────────────────────────────────

// Can performs a permission check. This is the hot path.
func (e *Engine) Can(ctx context.Context, req *AccessRequest) (*AccessResult, error) {
	start := time.Now()

	if e.plugins != nil {
		e.plugins.EmitBeforeCheck(ctx, req)
	}

	result, err := e.decide(ctx, req)
	if err != nil {
		return nil, err
	}
	result.EvalTimeNs = time.Since(start).Nanoseconds()

	if e.plugins != nil {
		e.plugins.EmitAfterCheck(ctx, req, result)
	}
	return result, nil
}

func (e *Engine) decide(ctx context.Context, req *AccessRequest) (*AccessResult, error) {
	// 1. Anonymous requests are always denied.
	if req.Person == nil {
		return &AccessResult{Decision: DecisionDenyAnonymous, Reason: "no authenticated person"}, nil
	}

	// 2. NoAccess denies regardless of ACL state.
	if req.Person.SystemRole == string(person.SystemRoleNoAccess) {
		return &AccessResult{Decision: DecisionDenyNoAccess, Reason: "system role denies all access"}, nil
	}

	// 3. Admin short-circuits: system administrators, bootstrap admins,
	// and the trusted external app principal.
	if match, ok := e.adminMatch(ctx, req.Person); ok {
		return &AccessResult{
			Allowed:   true,
			Decision:  DecisionAllowAdmin,
			MatchedBy: []MatchInfo{match},
		}, nil
	}

	// 4. Snapshot lookup covers every direct and propagated grant.
	snap, err := e.PermissionsFor(ctx, req.Person)
	if err != nil {
		return nil, fmt.Errorf("accord snapshot: %w", err)
	}
	if snap.Allows(req.Action, req.Object) {
		return &AccessResult{
			Allowed:  true,
			Decision: DecisionAllow,
			MatchedBy: []MatchInfo{{
				Source: "acl",
				Detail: fmt.Sprintf("%s granted on %s", req.Action, req.Object.Key()),
			}},
		}, nil
	}

	// 5. Conditional terms may still widen access.
	if condResult, err := evalConditions(ctx, e.resolver, e.config.Conditions, req); err != nil {
		return nil, fmt.Errorf("accord conditions: %w", err)
	} else if condResult != nil {
		return condResult, nil
	}

	// 6. Default deny.
	return &AccessResult{Decision: DecisionDenyDefault, Reason: "no grant or condition matched"}, nil
}

func (e *Engine) adminMatch(ctx context.Context, p *PersonRef) (MatchInfo, bool) {
	if p.SystemRole == string(person.SystemRoleAdministrator) {
		return MatchInfo{Source: "admin", Detail: "system administrator"}, true
	}
	if e.config.isBootstrapAdmin(p.Email) {
		return MatchInfo{Source: "admin", Detail: "bootstrap admin"}, true
	}
	if IsExternalApp(ctx) {
		return MatchInfo{Source: "admin", Detail: "external app principal"}, true
	}
	return MatchInfo{}, false
}

// Enforce returns an error if the permission check is denied.
func (e *Engine) Enforce(ctx context.Context, req *AccessRequest) error {
	result, err := e.Can(ctx, req)
	if err != nil {
		return fmt.Errorf("accord check: %w", err)
	}
	if !result.Allowed {
		return fmt.Errorf("%w: %s — %s", ErrAccessDenied, result.Decision, result.Reason)
	}
	return nil
}

// Allowed is a shorthand for a simple permission check.
func (e *Engine) Allowed(ctx context.Context, p *PersonRef, action Action, obj ObjectRef) (bool, error) {
	result, err := e.Can(ctx, &AccessRequest{Person: p, Action: action, Object: obj})
	if err != nil {
		return false, err
	}
	return result.Allowed, nil
}

// PermissionsFor returns the person's permission snapshot. Within one
// request scope every call sees the same snapshot; across requests the
// shared cache serves it until invalidated. A snapshot built while an
// invalidation lands is discarded by the conditional write-back, never
// stored.
func (e *Engine) PermissionsFor(ctx context.Context, p *PersonRef) (*Snapshot, error) {
	scope := scopeFromContext(ctx)
	if snap, ok := scope.get(p.ID); ok {
		return snap, nil
	}

	if e.cache != nil {
		if snap, ok := e.cache.Get(ctx, p.ID); ok {
			scope.put(p.ID, snap)
			return snap, nil
		}
	}

	snap, err := e.buildSnapshot(ctx, p, nil)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if ok := e.cache.Put(ctx, p.ID, snap); !ok {
			e.logger.Debug("snapshot write-back discarded", "person", p.ID, "error", ErrCacheStale)
		}
	}
	scope.put(p.ID, snap)
	return snap, nil
}

// PartialPermissionsFor builds a snapshot restricted to the given
// objects. Partial snapshots serve batched checks cheaply and are never
// written to the shared cache.
func (e *Engine) PartialPermissionsFor(ctx context.Context, p *PersonRef, objects []ObjectRef) (*Snapshot, error) {
	only := make(map[string]bool, len(objects))
	for _, o := range objects {
		only[o.Key()] = true
	}
	snap, err := e.buildSnapshot(ctx, p, only)
	if err != nil {
		return nil, err
	}
	snap.Partial = true
	return snap, nil
}

// buildSnapshot materializes the person's grants from the ACL. When
// only is non-nil the build is restricted to those object keys.
func (e *Engine) buildSnapshot(ctx context.Context, p *PersonRef, only map[string]bool) (*Snapshot, error) {
	personID, err := id.ParsePersonID(p.ID)
	if err != nil {
		return nil, fmt.Errorf("parse person id: %w", err)
	}

	entries, err := e.store.EntriesForPerson(ctx, personID)
	if err != nil {
		return nil, fmt.Errorf("entries for person: %w", err)
	}

	snap := NewSnapshot(p.ID, p.SystemRole)
	for _, entry := range entries {
		obj := ObjectRef{Type: entry.ObjectType, ID: entry.ObjectID}
		if only != nil && !only[obj.Key()] {
			continue
		}
		role, err := e.registry.Role(ctx, entry.RoleID)
		if err != nil {
			return nil, fmt.Errorf("resolve role of entry %s: %w", entry.ID, err)
		}
		for _, action := range []Action{ActionRead, ActionUpdate, ActionDelete} {
			if role.Capabilities.Allows(string(action)) {
				snap.Grant(action, obj)
			}
		}
	}
	return snap, nil
}

// ──────────────────────────────────────────────────
// Grants
// ──────────────────────────────────────────────────

// Grant creates a direct ACL entry and propagates it. The direct entry
// and its derived closure are written in one atomic batch, so a
// constraint violation during propagation leaves no trace of the grant.
func (e *Engine) Grant(ctx context.Context, objectType, objectID string, roleID id.RoleID, people []id.PersonID) (*acl.Entry, error) {
	entry := &acl.Entry{
		ID:         id.NewEntryID(),
		ObjectType: objectType,
		ObjectID:   objectID,
		RoleID:     roleID,
		People:     people,
	}

	derived, err := e.prop.closureFrom(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("propagate grant: %w", err)
	}
	if err := e.store.CreateEntries(ctx, append([]*acl.Entry{entry}, derived...)); err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}

	e.invalidatePeople(ctx, peopleOf(entry, derived)...)
	if e.plugins != nil {
		e.plugins.EmitGrantIssued(ctx, entry, derived)
	}
	return entry, nil
}

// Revoke deletes a direct ACL entry together with its derived closure.
func (e *Engine) Revoke(ctx context.Context, entryID id.EntryID) error {
	entry, err := e.store.GetEntry(ctx, entryID)
	if err != nil {
		return err
	}
	if !entry.IsDirect() {
		return fmt.Errorf("%w: derived entries are revoked through their base", ErrInvariantViolation)
	}

	derived, err := e.store.ListDescendants(ctx, entry.ID)
	if err != nil {
		return fmt.Errorf("list descendants: %w", err)
	}
	if err := e.store.DeleteEntry(ctx, entry.ID); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}

	e.invalidatePeople(ctx, peopleOf(entry, derived)...)
	if e.plugins != nil {
		e.plugins.EmitGrantRevoked(ctx, entryID)
	}
	return nil
}

// AssignPerson attaches a person to a direct entry and to every entry
// derived from it.
func (e *Engine) AssignPerson(ctx context.Context, entryID id.EntryID, personID id.PersonID) error {
	entry, err := e.store.GetEntry(ctx, entryID)
	if err != nil {
		return err
	}
	if !entry.IsDirect() {
		return fmt.Errorf("%w: membership is managed on direct entries", ErrInvariantViolation)
	}

	if err := e.store.AddEntryPerson(ctx, entry.ID, personID); err != nil {
		return err
	}
	derived, err := e.store.ListDescendants(ctx, entry.ID)
	if err != nil {
		return err
	}
	for _, d := range derived {
		if err := e.store.AddEntryPerson(ctx, d.ID, personID); err != nil {
			return err
		}
	}

	e.invalidatePeople(ctx, personID)
	return nil
}

// UnassignPerson detaches a person from a direct entry and from every
// entry derived from it. Entries stay in place even when empty.
func (e *Engine) UnassignPerson(ctx context.Context, entryID id.EntryID, personID id.PersonID) error {
	entry, err := e.store.GetEntry(ctx, entryID)
	if err != nil {
		return err
	}
	if !entry.IsDirect() {
		return fmt.Errorf("%w: membership is managed on direct entries", ErrInvariantViolation)
	}

	if err := e.store.RemoveEntryPerson(ctx, entry.ID, personID); err != nil {
		return err
	}
	derived, err := e.store.ListDescendants(ctx, entry.ID)
	if err != nil {
		return err
	}
	for _, d := range derived {
		if err := e.store.RemoveEntryPerson(ctx, d.ID, personID); err != nil {
			return err
		}
	}

	e.invalidatePeople(ctx, personID)
	return nil
}

// RemovePerson detaches a person from every entry, direct and derived.
// Used when an account is offboarded.
func (e *Engine) RemovePerson(ctx context.Context, personID id.PersonID) error {
	if err := e.store.RemovePersonMemberships(ctx, personID); err != nil {
		return err
	}
	e.invalidatePeople(ctx, personID)
	return nil
}

// ──────────────────────────────────────────────────
// Relationships
// ──────────────────────────────────────────────────

// LinkObjects creates a relationship and extends the derived closure
// across it.
func (e *Engine) LinkObjects(ctx context.Context, rel *relationship.Relationship) error {
	if rel.ID.IsNil() {
		rel.ID = id.NewRelationshipID()
	}
	if err := e.store.CreateRelationship(ctx, rel); err != nil {
		return err
	}

	created, err := e.prop.relationshipAdded(ctx, rel)
	if err != nil {
		// Unwind so a failed propagation never leaves the edge behind.
		if derr := e.store.DeleteRelationship(ctx, rel.ID); derr != nil {
			e.logger.Error("unwind relationship after failed propagation",
				"relationship", rel.ID.String(), "error", derr)
		}
		return fmt.Errorf("propagate relationship: %w", err)
	}

	e.invalidatePeople(ctx, peopleOf(nil, created)...)
	if e.plugins != nil {
		e.plugins.EmitRelationshipWritten(ctx, rel)
	}
	return nil
}

// UnlinkObjects deletes a relationship and removes the derived entries
// whose propagation chain crossed it.
func (e *Engine) UnlinkObjects(ctx context.Context, relID id.RelationshipID) error {
	rel, err := e.store.GetRelationship(ctx, relID)
	if err != nil {
		return err
	}
	if err := e.store.DeleteRelationship(ctx, relID); err != nil {
		return err
	}

	affected, err := e.prop.relationshipRemoved(ctx, rel)
	if err != nil {
		return fmt.Errorf("unwind relationship: %w", err)
	}

	e.invalidatePeople(ctx, affected...)
	if e.plugins != nil {
		e.plugins.EmitRelationshipDeleted(ctx, relID)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Roles
// ──────────────────────────────────────────────────

// CreateRole persists a role and registers it.
func (e *Engine) CreateRole(ctx context.Context, r *acr.Role) error {
	if r.ID.IsNil() {
		r.ID = id.NewRoleID()
	}
	if err := e.store.CreateRole(ctx, r); err != nil {
		return err
	}
	e.registry.Invalidate(r.ID)
	if e.plugins != nil {
		e.plugins.EmitRoleCreated(ctx, r)
	}
	return nil
}

// UpdateRole persists changes to a role's name or presentation flags.
// Capability bits are immutable: a propagated closure derived under the
// old bits cannot be revalidated in place.
func (e *Engine) UpdateRole(ctx context.Context, r *acr.Role) error {
	current, err := e.store.GetRole(ctx, r.ID)
	if err != nil {
		return err
	}
	if current.Capabilities != r.Capabilities {
		return acr.ErrImmutableCapabilities
	}

	if err := e.store.UpdateRole(ctx, r); err != nil {
		return err
	}
	e.registry.Invalidate(r.ID)
	if e.plugins != nil {
		e.plugins.EmitRoleUpdated(ctx, r)
	}
	return nil
}

// DeleteRole removes a role. The store rejects deletion while ACL
// entries still reference it.
func (e *Engine) DeleteRole(ctx context.Context, roleID id.RoleID) error {
	if err := e.store.DeleteRole(ctx, roleID); err != nil {
		return err
	}
	e.registry.Invalidate(roleID)
	if e.cache != nil {
		e.cache.InvalidateAll(ctx)
	}
	if e.plugins != nil {
		e.plugins.EmitRoleDeleted(ctx, roleID)
	}
	return nil
}

// Seed writes the default role catalog, skipping roles that already
// exist. Safe to call on every startup.
func (e *Engine) Seed(ctx context.Context) error {
	for _, r := range DefaultRoles() {
		_, err := e.store.GetRoleByName(ctx, r.ObjectType, r.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, acr.ErrUnknownRole) {
			return err
		}
		role := *r
		role.ID = id.NewRoleID()
		if err := e.store.CreateRole(ctx, &role); err != nil {
			return fmt.Errorf("seed role %s/%s: %w", r.ObjectType, r.Name, err)
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func (e *Engine) invalidatePeople(ctx context.Context, people ...id.PersonID) {
	if e.cache == nil || len(people) == 0 {
		return
	}
	seen := make(map[string]struct{}, len(people))
	keys := make([]string, 0, len(people))
	for _, p := range people {
		s := p.String()
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		keys = append(keys, s)
	}
	e.cache.Invalidate(ctx, keys...)
}

// peopleOf collects the union of memberships across the direct entry
// (may be nil) and the derived batch.
func peopleOf(direct *acl.Entry, derived []*acl.Entry) []id.PersonID {
	var out []id.PersonID
	if direct != nil {
		out = append(out, direct.People...)
	}
	for _, d := range derived {
		out = append(out, d.People...)
	}
	return out
}
