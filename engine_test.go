package accord_test

import (
	"context"
	"errors"
	"testing"

	"github.com/grcware/accord"
	"github.com/grcware/accord/acr"
	"github.com/grcware/accord/cache"
	"github.com/grcware/accord/id"
	"github.com/grcware/accord/person"
	"github.com/grcware/accord/relationship"
	"github.com/grcware/accord/store/memory"
)

func seededEngine(t *testing.T, opts ...accord.Option) (*accord.Engine, *memory.Store) {
	t.Helper()
	st := memory.New()
	eng, err := accord.NewEngine(append([]accord.Option{accord.WithStore(st)}, opts...)...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := eng.Seed(context.Background()); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	return eng, st
}

func actor(pid id.PersonID) *accord.PersonRef {
	return &accord.PersonRef{
		ID:         pid.String(),
		Email:      pid.String() + "@example.com",
		SystemRole: string(person.SystemRoleEditor),
	}
}

func relate(t *testing.T, st *memory.Store, srcType, srcID, dstType, dstID string, external bool) *relationship.Relationship {
	t.Helper()
	rel := &relationship.Relationship{
		ID:         id.NewRelationshipID(),
		SourceType: srcType, SourceID: srcID,
		DestinationType: dstType, DestinationID: dstID,
		IsExternal: external,
	}
	if err := st.CreateRelationship(context.Background(), rel); err != nil {
		t.Fatalf("CreateRelationship: %v", err)
	}
	return rel
}

func roleID(t *testing.T, st *memory.Store, objectType, name string) id.RoleID {
	t.Helper()
	r, err := st.GetRoleByName(context.Background(), objectType, name)
	if err != nil {
		t.Fatalf("GetRoleByName %s/%s: %v", objectType, name, err)
	}
	return r.ID
}

func mustAllow(t *testing.T, eng *accord.Engine, p *accord.PersonRef, action accord.Action, obj accord.ObjectRef, want bool) {
	t.Helper()
	got, err := eng.Allowed(context.Background(), p, action, obj)
	if err != nil {
		t.Fatalf("Allowed(%s %s): %v", action, obj.Key(), err)
	}
	if got != want {
		t.Fatalf("Allowed(%s %s) = %v, want %v", action, obj.Key(), got, want)
	}
}

func TestGrantPropagatesAcrossRelationship(t *testing.T) {
	ctx := context.Background()
	eng, st := seededEngine(t)
	alice := id.NewPersonID()

	relate(t, st, "program", "p1", "audit", "a1", false)

	entry, err := eng.Grant(ctx, "program", "p1", roleID(t, st, "program", "Program Manager"), []id.PersonID{alice})
	if err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if !entry.IsDirect() {
		t.Fatal("granted entry must be direct")
	}

	derived, err := st.EntriesOnObject(ctx, "audit", "a1")
	if err != nil {
		t.Fatalf("EntriesOnObject: %v", err)
	}
	if len(derived) != 1 {
		t.Fatalf("expected 1 derived entry on a1, got %d", len(derived))
	}
	d := derived[0]
	if d.IsDirect() || *d.BaseID != entry.ID || *d.ParentID != entry.ID {
		t.Fatalf("derived entry misfiled: %+v", d)
	}
	if len(d.People) != 1 || d.People[0] != alice {
		t.Fatalf("derived entry must copy the base membership, got %v", d.People)
	}

	p := actor(alice)
	mustAllow(t, eng, p, accord.ActionDelete, accord.ObjectRef{Type: "program", ID: "p1"}, true)
	mustAllow(t, eng, p, accord.ActionRead, accord.ObjectRef{Type: "audit", ID: "a1"}, true)
	mustAllow(t, eng, p, accord.ActionUpdate, accord.ObjectRef{Type: "audit", ID: "a1"}, true)
	// Delete never propagates onto mapped objects.
	mustAllow(t, eng, p, accord.ActionDelete, accord.ObjectRef{Type: "audit", ID: "a1"}, false)
}

func TestGrantDescendsTwoLevels(t *testing.T) {
	ctx := context.Background()
	eng, st := seededEngine(t)
	alice := id.NewPersonID()

	relate(t, st, "program", "p1", "audit", "a1", false)
	relate(t, st, "audit", "a1", "issue", "i1", false)

	if _, err := eng.Grant(ctx, "program", "p1", roleID(t, st, "program", "Program Editor"), []id.PersonID{alice}); err != nil {
		t.Fatalf("Grant: %v", err)
	}

	mustAllow(t, eng, actor(alice), accord.ActionRead, accord.ObjectRef{Type: "issue", ID: "i1"}, true)
}

func TestLinkObjectsExtendsExistingClosure(t *testing.T) {
	ctx := context.Background()
	eng, st := seededEngine(t)
	alice := id.NewPersonID()

	if _, err := eng.Grant(ctx, "program", "p1", roleID(t, st, "program", "Program Manager"), []id.PersonID{alice}); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	mustAllow(t, eng, actor(alice), accord.ActionRead, accord.ObjectRef{Type: "audit", ID: "a1"}, false)

	if err := eng.LinkObjects(ctx, &relationship.Relationship{
		SourceType: "program", SourceID: "p1",
		DestinationType: "audit", DestinationID: "a1",
	}); err != nil {
		t.Fatalf("LinkObjects: %v", err)
	}

	mustAllow(t, eng, actor(alice), accord.ActionRead, accord.ObjectRef{Type: "audit", ID: "a1"}, true)
}

func TestRevokeRemovesDerivedClosure(t *testing.T) {
	ctx := context.Background()
	eng, st := seededEngine(t)
	alice := id.NewPersonID()

	relate(t, st, "program", "p1", "audit", "a1", false)
	entry, err := eng.Grant(ctx, "program", "p1", roleID(t, st, "program", "Program Manager"), []id.PersonID{alice})
	if err != nil {
		t.Fatalf("Grant: %v", err)
	}

	if err := eng.Revoke(ctx, entry.ID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	remaining, err := st.EntriesForPerson(ctx, alice)
	if err != nil {
		t.Fatalf("EntriesForPerson: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected no surviving entries, got %d", len(remaining))
	}
	mustAllow(t, eng, actor(alice), accord.ActionRead, accord.ObjectRef{Type: "audit", ID: "a1"}, false)
}

func TestRevokeRejectsDerivedEntry(t *testing.T) {
	ctx := context.Background()
	eng, st := seededEngine(t)
	alice := id.NewPersonID()

	relate(t, st, "program", "p1", "audit", "a1", false)
	entry, err := eng.Grant(ctx, "program", "p1", roleID(t, st, "program", "Program Manager"), []id.PersonID{alice})
	if err != nil {
		t.Fatalf("Grant: %v", err)
	}
	derived, err := st.ListDescendants(ctx, entry.ID)
	if err != nil || len(derived) == 0 {
		t.Fatalf("ListDescendants: %v %d", err, len(derived))
	}

	if err := eng.Revoke(ctx, derived[0].ID); !errors.Is(err, accord.ErrInvariantViolation) {
		t.Fatalf("expected ErrInvariantViolation, got %v", err)
	}
}

func TestUnlinkObjectsRemovesStrandedGrants(t *testing.T) {
	ctx := context.Background()
	eng, st := seededEngine(t)
	alice := id.NewPersonID()

	rel := relate(t, st, "program", "p1", "audit", "a1", false)
	if _, err := eng.Grant(ctx, "program", "p1", roleID(t, st, "program", "Program Manager"), []id.PersonID{alice}); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	mustAllow(t, eng, actor(alice), accord.ActionRead, accord.ObjectRef{Type: "audit", ID: "a1"}, true)

	if err := eng.UnlinkObjects(ctx, rel.ID); err != nil {
		t.Fatalf("UnlinkObjects: %v", err)
	}

	mustAllow(t, eng, actor(alice), accord.ActionRead, accord.ObjectRef{Type: "audit", ID: "a1"}, false)
	mustAllow(t, eng, actor(alice), accord.ActionRead, accord.ObjectRef{Type: "program", ID: "p1"}, true)
}

func TestPropagationTerminatesOnCyclicGraph(t *testing.T) {
	ctx := context.Background()

	// A rule tree that keeps walking audits forever; termination must
	// come from the visited set, not the tree shape.
	walker := &accord.RuleNode{TargetType: "audit", Role: "Walker Mapped"}
	walker.Children = []*accord.RuleNode{walker}
	rules := accord.RuleSet{
		accord.RuleKey("program", "Walker"): {walker},
	}

	eng, st := seededEngine(t, accord.WithRules(rules))
	for _, r := range []*acr.Role{
		{ObjectType: "program", Name: "Walker", Capabilities: acr.Capabilities{Read: true, Update: true}},
		{ObjectType: "audit", Name: "Walker Mapped", Capabilities: acr.Capabilities{Read: true}, IsInternal: true},
	} {
		if err := eng.CreateRole(ctx, r); err != nil {
			t.Fatalf("CreateRole: %v", err)
		}
	}

	relate(t, st, "program", "p1", "audit", "a1", false)
	relate(t, st, "audit", "a1", "audit", "a2", false)
	relate(t, st, "audit", "a2", "audit", "a3", false)
	relate(t, st, "audit", "a3", "audit", "a1", false)

	alice := id.NewPersonID()
	entry, err := eng.Grant(ctx, "program", "p1", roleID(t, st, "program", "Walker"), []id.PersonID{alice})
	if err != nil {
		t.Fatalf("Grant: %v", err)
	}

	derived, err := st.ListDescendants(ctx, entry.ID)
	if err != nil {
		t.Fatalf("ListDescendants: %v", err)
	}
	if len(derived) != 3 {
		t.Fatalf("expected one derived entry per audit, got %d", len(derived))
	}
}

func TestPropagationDepthBoundCommitsPartialClosure(t *testing.T) {
	ctx := context.Background()

	walker := &accord.RuleNode{TargetType: "audit", Role: "Walker Mapped"}
	walker.Children = []*accord.RuleNode{walker}
	rules := accord.RuleSet{
		accord.RuleKey("program", "Walker"): {walker},
	}
	cfg := accord.DefaultConfig()
	cfg.MaxPropagationDepth = 2

	eng, st := seededEngine(t, accord.WithRules(rules), accord.WithConfig(cfg))
	for _, r := range []*acr.Role{
		{ObjectType: "program", Name: "Walker", Capabilities: acr.Capabilities{Read: true, Update: true}},
		{ObjectType: "audit", Name: "Walker Mapped", Capabilities: acr.Capabilities{Read: true}, IsInternal: true},
	} {
		if err := eng.CreateRole(ctx, r); err != nil {
			t.Fatalf("CreateRole: %v", err)
		}
	}

	relate(t, st, "program", "p1", "audit", "a1", false)
	relate(t, st, "audit", "a1", "audit", "a2", false)
	relate(t, st, "audit", "a2", "audit", "a3", false)
	relate(t, st, "audit", "a3", "audit", "a4", false)

	entry, err := eng.Grant(ctx, "program", "p1", roleID(t, st, "program", "Walker"), nil)
	if err != nil {
		t.Fatalf("Grant must commit the partial closure, got %v", err)
	}
	derived, err := st.ListDescendants(ctx, entry.ID)
	if err != nil {
		t.Fatalf("ListDescendants: %v", err)
	}
	if len(derived) != 2 {
		t.Fatalf("expected closure cut at depth 2, got %d entries", len(derived))
	}
}

func TestWildcardReservedForBootstrapRoles(t *testing.T) {
	ctx := context.Background()
	rules := accord.RuleSet{
		accord.RuleKey("program", "Superuser"): {{TargetType: accord.AllTypes, Role: "Everything Mapped"}},
		accord.RuleKey("program", "NotBoot"):   {{TargetType: accord.AllTypes, Role: "Everything Mapped"}},
	}

	eng, st := seededEngine(t, accord.WithRules(rules))
	rud := acr.Capabilities{Read: true, Update: true, Delete: true}
	for _, r := range []*acr.Role{
		{ObjectType: "program", Name: "Superuser", Capabilities: rud},
		{ObjectType: "program", Name: "NotBoot", Capabilities: rud},
		{ObjectType: "audit", Name: "Everything Mapped", Capabilities: acr.Capabilities{Read: true}, IsInternal: true},
		{ObjectType: "document", Name: "Everything Mapped", Capabilities: acr.Capabilities{Read: true}, IsInternal: true},
	} {
		if err := eng.CreateRole(ctx, r); err != nil {
			t.Fatalf("CreateRole: %v", err)
		}
	}

	relate(t, st, "program", "p1", "audit", "a1", false)
	relate(t, st, "program", "p1", "document", "d1", false)

	entry, err := eng.Grant(ctx, "program", "p1", roleID(t, st, "program", "Superuser"), nil)
	if err != nil {
		t.Fatalf("Grant: %v", err)
	}
	derived, err := st.ListDescendants(ctx, entry.ID)
	if err != nil {
		t.Fatalf("ListDescendants: %v", err)
	}
	if len(derived) != 2 {
		t.Fatalf("expected wildcard to reach both neighbors, got %d", len(derived))
	}

	relate(t, st, "program", "p2", "audit", "a2", false)
	if _, err := eng.Grant(ctx, "program", "p2", roleID(t, st, "program", "NotBoot"), nil); !errors.Is(err, accord.ErrWildcardNotAllowed) {
		t.Fatalf("expected ErrWildcardNotAllowed, got %v", err)
	}
}

func TestDerivedCapabilitiesMustNotExceedBase(t *testing.T) {
	ctx := context.Background()
	rules := accord.RuleSet{
		accord.RuleKey("program", "Viewer"): {{TargetType: "audit", Role: "Viewer Mapped"}},
	}

	eng, st := seededEngine(t, accord.WithRules(rules))
	for _, r := range []*acr.Role{
		{ObjectType: "program", Name: "Viewer", Capabilities: acr.Capabilities{Read: true}},
		// Update on the derived role exceeds the read-only base.
		{ObjectType: "audit", Name: "Viewer Mapped", Capabilities: acr.Capabilities{Read: true, Update: true}, IsInternal: true},
	} {
		if err := eng.CreateRole(ctx, r); err != nil {
			t.Fatalf("CreateRole: %v", err)
		}
	}

	relate(t, st, "program", "p1", "audit", "a1", false)
	if _, err := eng.Grant(ctx, "program", "p1", roleID(t, st, "program", "Viewer"), nil); !errors.Is(err, accord.ErrInvariantViolation) {
		t.Fatalf("expected ErrInvariantViolation, got %v", err)
	}

	// The whole derived batch is withheld.
	onAudit, err := st.EntriesOnObject(ctx, "audit", "a1")
	if err != nil {
		t.Fatalf("EntriesOnObject: %v", err)
	}
	if len(onAudit) != 0 {
		t.Fatalf("expected no derived entries after the aborted batch, got %d", len(onAudit))
	}
}

func TestExternalRelationshipsNeedAllowExternal(t *testing.T) {
	ctx := context.Background()
	eng, st := seededEngine(t)
	alice := id.NewPersonID()

	// The audit rule allows external links; the control rule does not.
	relate(t, st, "program", "p1", "audit", "a1", true)
	relate(t, st, "program", "p1", "control", "c1", true)

	if _, err := eng.Grant(ctx, "program", "p1", roleID(t, st, "program", "Program Manager"), []id.PersonID{alice}); err != nil {
		t.Fatalf("Grant: %v", err)
	}

	mustAllow(t, eng, actor(alice), accord.ActionRead, accord.ObjectRef{Type: "audit", ID: "a1"}, true)
	mustAllow(t, eng, actor(alice), accord.ActionRead, accord.ObjectRef{Type: "control", ID: "c1"}, false)
}

func TestCacheInvalidationOnGrantAndRevoke(t *testing.T) {
	ctx := context.Background()
	eng, st := seededEngine(t, accord.WithCache(cache.NewMemory()))
	alice := id.NewPersonID()
	p := actor(alice)

	relate(t, st, "program", "p1", "audit", "a1", false)

	// First check populates the cache with an empty snapshot.
	mustAllow(t, eng, p, accord.ActionRead, accord.ObjectRef{Type: "audit", ID: "a1"}, false)

	entry, err := eng.Grant(ctx, "program", "p1", roleID(t, st, "program", "Program Manager"), []id.PersonID{alice})
	if err != nil {
		t.Fatalf("Grant: %v", err)
	}
	mustAllow(t, eng, p, accord.ActionRead, accord.ObjectRef{Type: "audit", ID: "a1"}, true)

	if err := eng.Revoke(ctx, entry.ID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	mustAllow(t, eng, p, accord.ActionRead, accord.ObjectRef{Type: "audit", ID: "a1"}, false)
}

func TestRequestScopeMemoizesSnapshot(t *testing.T) {
	eng, _ := seededEngine(t)
	alice := id.NewPersonID()
	p := actor(alice)

	ctx := accord.WithRequestScope(context.Background())
	first, err := eng.PermissionsFor(ctx, p)
	if err != nil {
		t.Fatalf("PermissionsFor: %v", err)
	}
	second, err := eng.PermissionsFor(ctx, p)
	if err != nil {
		t.Fatalf("PermissionsFor: %v", err)
	}
	if first != second {
		t.Fatal("expected the same snapshot within one request scope")
	}
}

func TestPartialSnapshotsStayOutOfCache(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemory()
	eng, st := seededEngine(t, accord.WithCache(c))
	alice := id.NewPersonID()
	p := actor(alice)

	relate(t, st, "program", "p1", "audit", "a1", false)
	if _, err := eng.Grant(ctx, "program", "p1", roleID(t, st, "program", "Program Manager"), []id.PersonID{alice}); err != nil {
		t.Fatalf("Grant: %v", err)
	}

	snap, err := eng.PartialPermissionsFor(ctx, p, []accord.ObjectRef{{Type: "audit", ID: "a1"}})
	if err != nil {
		t.Fatalf("PartialPermissionsFor: %v", err)
	}
	if !snap.Partial {
		t.Fatal("expected a partial snapshot")
	}
	if !snap.Allows(accord.ActionRead, accord.ObjectRef{Type: "audit", ID: "a1"}) {
		t.Fatal("partial snapshot must cover the requested object")
	}
	if snap.Allows(accord.ActionRead, accord.ObjectRef{Type: "program", ID: "p1"}) {
		t.Fatal("partial snapshot must not cover other objects")
	}
	if _, ok := c.Get(ctx, p.ID); ok {
		t.Fatal("partial snapshots must never land in the shared cache")
	}
}

func TestDecisionShortCircuits(t *testing.T) {
	ctx := context.Background()
	cfg := accord.DefaultConfig()
	cfg.BootstrapAdminEmails = []string{"root@example.com"}
	eng, _ := seededEngine(t, accord.WithConfig(cfg))
	obj := accord.ObjectRef{Type: "audit", ID: "a1"}

	res, err := eng.Can(ctx, &accord.AccessRequest{Action: accord.ActionRead, Object: obj})
	if err != nil || res.Decision != accord.DecisionDenyAnonymous {
		t.Fatalf("anonymous: %v %s", err, res.Decision)
	}

	noAccess := &accord.PersonRef{ID: id.NewPersonID().String(), SystemRole: string(person.SystemRoleNoAccess)}
	res, err = eng.Can(ctx, &accord.AccessRequest{Person: noAccess, Action: accord.ActionRead, Object: obj})
	if err != nil || res.Decision != accord.DecisionDenyNoAccess {
		t.Fatalf("no access: %v %s", err, res.Decision)
	}

	admin := &accord.PersonRef{ID: id.NewPersonID().String(), SystemRole: string(person.SystemRoleAdministrator)}
	res, err = eng.Can(ctx, &accord.AccessRequest{Person: admin, Action: accord.ActionDelete, Object: obj})
	if err != nil || res.Decision != accord.DecisionAllowAdmin {
		t.Fatalf("administrator: %v %s", err, res.Decision)
	}

	bootstrap := &accord.PersonRef{ID: id.NewPersonID().String(), Email: "root@example.com", SystemRole: string(person.SystemRoleReader)}
	res, err = eng.Can(ctx, &accord.AccessRequest{Person: bootstrap, Action: accord.ActionDelete, Object: obj})
	if err != nil || res.Decision != accord.DecisionAllowAdmin {
		t.Fatalf("bootstrap admin: %v %s", err, res.Decision)
	}

	appCtx := accord.WithExternalApp(ctx)
	res, err = eng.Can(appCtx, &accord.AccessRequest{Person: actor(id.NewPersonID()), Action: accord.ActionDelete, Object: obj})
	if err != nil || res.Decision != accord.DecisionAllowAdmin {
		t.Fatalf("external app: %v %s", err, res.Decision)
	}

	res, err = eng.Can(ctx, &accord.AccessRequest{Person: actor(id.NewPersonID()), Action: accord.ActionRead, Object: obj})
	if err != nil || res.Decision != accord.DecisionDenyDefault {
		t.Fatalf("default deny: %v %s", err, res.Decision)
	}
}

type staticResolver struct {
	fields map[string]any
}

func (r *staticResolver) ReferencedField(_ context.Context, obj accord.ObjectRef, field string) (any, error) {
	return r.fields[obj.Key()+"#"+field], nil
}

func TestConditionalTermsWidenAccess(t *testing.T) {
	ctx := context.Background()
	alice := id.NewPersonID()
	p := actor(alice)

	cfg := accord.DefaultConfig()
	cfg.Conditions = []accord.Condition{
		{Action: accord.ActionRead, ObjectType: "issue", Field: "assignees", Operator: accord.OpContains},
	}
	resolver := &staticResolver{fields: map[string]any{
		"issue:i1#assignees": []string{p.Email},
	}}

	eng, _ := seededEngine(t, accord.WithConfig(cfg), accord.WithResolver(resolver))

	res, err := eng.Can(ctx, &accord.AccessRequest{Person: p, Action: accord.ActionRead, Object: accord.ObjectRef{Type: "issue", ID: "i1"}})
	if err != nil {
		t.Fatalf("Can: %v", err)
	}
	if res.Decision != accord.DecisionAllowCondition {
		t.Fatalf("expected allow_condition, got %s", res.Decision)
	}

	// The term covers read only; update still falls through to deny.
	mustAllow(t, eng, p, accord.ActionUpdate, accord.ObjectRef{Type: "issue", ID: "i1"}, false)
	// And other objects are untouched.
	mustAllow(t, eng, p, accord.ActionRead, accord.ObjectRef{Type: "issue", ID: "i2"}, false)
}

func TestAssignPersonMirrorsToDerivedEntries(t *testing.T) {
	ctx := context.Background()
	eng, st := seededEngine(t)
	bob := id.NewPersonID()

	relate(t, st, "program", "p1", "audit", "a1", false)
	entry, err := eng.Grant(ctx, "program", "p1", roleID(t, st, "program", "Program Manager"), nil)
	if err != nil {
		t.Fatalf("Grant: %v", err)
	}

	if err := eng.AssignPerson(ctx, entry.ID, bob); err != nil {
		t.Fatalf("AssignPerson: %v", err)
	}
	mustAllow(t, eng, actor(bob), accord.ActionRead, accord.ObjectRef{Type: "audit", ID: "a1"}, true)

	if err := eng.UnassignPerson(ctx, entry.ID, bob); err != nil {
		t.Fatalf("UnassignPerson: %v", err)
	}
	mustAllow(t, eng, actor(bob), accord.ActionRead, accord.ObjectRef{Type: "audit", ID: "a1"}, false)

	// Empty entries survive for later assignments.
	if _, err := st.GetEntry(ctx, entry.ID); err != nil {
		t.Fatalf("entry must survive empty membership: %v", err)
	}
}

func TestAssignPersonRejectsDerivedEntry(t *testing.T) {
	ctx := context.Background()
	eng, st := seededEngine(t)

	relate(t, st, "program", "p1", "audit", "a1", false)
	entry, err := eng.Grant(ctx, "program", "p1", roleID(t, st, "program", "Program Manager"), nil)
	if err != nil {
		t.Fatalf("Grant: %v", err)
	}
	derived, err := st.ListDescendants(ctx, entry.ID)
	if err != nil || len(derived) == 0 {
		t.Fatalf("ListDescendants: %v %d", err, len(derived))
	}

	if err := eng.AssignPerson(ctx, derived[0].ID, id.NewPersonID()); !errors.Is(err, accord.ErrInvariantViolation) {
		t.Fatalf("expected ErrInvariantViolation, got %v", err)
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	eng, st := seededEngine(t)

	before, err := st.CountRoles(ctx, nil)
	if err != nil {
		t.Fatalf("CountRoles: %v", err)
	}
	if err := eng.Seed(ctx); err != nil {
		t.Fatalf("second Seed: %v", err)
	}
	after, err := st.CountRoles(ctx, nil)
	if err != nil {
		t.Fatalf("CountRoles: %v", err)
	}
	if before != after {
		t.Fatalf("Seed must not duplicate roles: %d != %d", before, after)
	}
}

func TestUpdateRoleKeepsCapabilitiesImmutable(t *testing.T) {
	ctx := context.Background()
	eng, st := seededEngine(t)

	r, err := st.GetRoleByName(ctx, "program", "Program Manager")
	if err != nil {
		t.Fatalf("GetRoleByName: %v", err)
	}

	renamed := *r
	renamed.Name = "Program Lead"
	if err := eng.UpdateRole(ctx, &renamed); err != nil {
		t.Fatalf("rename: %v", err)
	}

	weakened := renamed
	weakened.Capabilities.Delete = false
	if err := eng.UpdateRole(ctx, &weakened); !errors.Is(err, acr.ErrImmutableCapabilities) {
		t.Fatalf("expected ErrImmutableCapabilities, got %v", err)
	}
}

func TestEnforceWrapsDenial(t *testing.T) {
	ctx := context.Background()
	eng, _ := seededEngine(t)

	err := eng.Enforce(ctx, &accord.AccessRequest{
		Person: actor(id.NewPersonID()),
		Action: accord.ActionRead,
		Object: accord.ObjectRef{Type: "audit", ID: "a1"},
	})
	if !errors.Is(err, accord.ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
}

func TestGrantAbortLeavesNoDirectEntry(t *testing.T) {
	ctx := context.Background()
	rules := accord.RuleSet{
		accord.RuleKey("program", "Viewer"): {{TargetType: "audit", Role: "Viewer Mapped"}},
	}

	eng, st := seededEngine(t, accord.WithRules(rules))
	for _, r := range []*acr.Role{
		{ObjectType: "program", Name: "Viewer", Capabilities: acr.Capabilities{Read: true}},
		{ObjectType: "audit", Name: "Viewer Mapped", Capabilities: acr.Capabilities{Read: true, Update: true}, IsInternal: true},
	} {
		if err := eng.CreateRole(ctx, r); err != nil {
			t.Fatalf("CreateRole: %v", err)
		}
	}

	alice := id.NewPersonID()
	relate(t, st, "program", "p1", "audit", "a1", false)

	if _, err := eng.Grant(ctx, "program", "p1", roleID(t, st, "program", "Viewer"), []id.PersonID{alice}); !errors.Is(err, accord.ErrInvariantViolation) {
		t.Fatalf("expected ErrInvariantViolation, got %v", err)
	}

	// The aborted mutation must leave nothing behind, the direct entry
	// included.
	onProgram, err := st.EntriesOnObject(ctx, "program", "p1")
	if err != nil {
		t.Fatalf("EntriesOnObject: %v", err)
	}
	if len(onProgram) != 0 {
		t.Fatalf("aborted Grant left %d entries on the granted object", len(onProgram))
	}
	mine, err := st.EntriesForPerson(ctx, alice)
	if err != nil {
		t.Fatalf("EntriesForPerson: %v", err)
	}
	if len(mine) != 0 {
		t.Fatalf("aborted Grant left the person %d live entries", len(mine))
	}
}

func TestLinkObjectsAbortRemovesRelationship(t *testing.T) {
	ctx := context.Background()
	rules := accord.RuleSet{
		accord.RuleKey("program", "Viewer"): {{TargetType: "audit", Role: "Viewer Mapped"}},
	}

	eng, st := seededEngine(t, accord.WithRules(rules))
	for _, r := range []*acr.Role{
		{ObjectType: "program", Name: "Viewer", Capabilities: acr.Capabilities{Read: true}},
		{ObjectType: "audit", Name: "Viewer Mapped", Capabilities: acr.Capabilities{Read: true, Update: true}, IsInternal: true},
	} {
		if err := eng.CreateRole(ctx, r); err != nil {
			t.Fatalf("CreateRole: %v", err)
		}
	}

	// With no neighbors the grant itself is clean.
	if _, err := eng.Grant(ctx, "program", "p1", roleID(t, st, "program", "Viewer"), nil); err != nil {
		t.Fatalf("Grant: %v", err)
	}

	rel := &relationship.Relationship{
		ID:         id.NewRelationshipID(),
		SourceType: "program", SourceID: "p1",
		DestinationType: "audit", DestinationID: "a1",
	}
	if err := eng.LinkObjects(ctx, rel); !errors.Is(err, accord.ErrInvariantViolation) {
		t.Fatalf("expected ErrInvariantViolation, got %v", err)
	}

	if _, err := st.GetRelationship(ctx, rel.ID); !errors.Is(err, relationship.ErrRelationshipNotFound) {
		t.Fatalf("aborted link must remove the relationship, got %v", err)
	}
	onAudit, err := st.EntriesOnObject(ctx, "audit", "a1")
	if err != nil {
		t.Fatalf("EntriesOnObject: %v", err)
	}
	if len(onAudit) != 0 {
		t.Fatalf("aborted link left %d derived entries", len(onAudit))
	}
}
