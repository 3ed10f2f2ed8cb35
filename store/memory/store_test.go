package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/grcware/accord/acl"
	"github.com/grcware/accord/acr"
	"github.com/grcware/accord/extmap"
	"github.com/grcware/accord/id"
	"github.com/grcware/accord/person"
	"github.com/grcware/accord/relationship"
	"github.com/grcware/accord/syncjob"
)

func TestRoleCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	r := &acr.Role{
		ID:           id.NewRoleID(),
		ObjectType:   "program",
		Name:         "Program Manager",
		Capabilities: acr.Capabilities{Read: true, Update: true, Delete: true},
	}
	if err := s.CreateRole(ctx, r); err != nil {
		t.Fatalf("CreateRole: %v", err)
	}

	dup := &acr.Role{ID: id.NewRoleID(), ObjectType: "program", Name: "Program Manager"}
	if err := s.CreateRole(ctx, dup); !errors.Is(err, acr.ErrDuplicateRole) {
		t.Fatalf("expected ErrDuplicateRole, got %v", err)
	}

	got, err := s.GetRoleByName(ctx, "program", "Program Manager")
	if err != nil {
		t.Fatalf("GetRoleByName: %v", err)
	}
	if got.ID != r.ID {
		t.Fatalf("expected %s, got %s", r.ID, got.ID)
	}

	// Renames are fine; capability bit changes are not.
	got.Name = "Program Lead"
	if err := s.UpdateRole(ctx, got); err != nil {
		t.Fatalf("UpdateRole: %v", err)
	}
	got.Capabilities.Delete = false
	if err := s.UpdateRole(ctx, got); !errors.Is(err, acr.ErrImmutableCapabilities) {
		t.Fatalf("expected ErrImmutableCapabilities, got %v", err)
	}

	if _, err := s.GetRole(ctx, id.NewRoleID()); !errors.Is(err, acr.ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
}

func TestEntryUniquenessAndBaseIntegrity(t *testing.T) {
	ctx := context.Background()
	s := New()
	roleID := id.NewRoleID()

	direct := &acl.Entry{ID: id.NewEntryID(), ObjectType: "program", ObjectID: "p1", RoleID: roleID}
	if err := s.CreateEntry(ctx, direct); err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}

	dup := &acl.Entry{ID: id.NewEntryID(), ObjectType: "program", ObjectID: "p1", RoleID: roleID}
	if err := s.CreateEntry(ctx, dup); !errors.Is(err, acl.ErrDuplicateEntry) {
		t.Fatalf("expected ErrDuplicateEntry, got %v", err)
	}

	missing := id.NewEntryID()
	orphan := &acl.Entry{ID: id.NewEntryID(), ObjectType: "audit", ObjectID: "a1", RoleID: roleID, BaseID: &missing, ParentID: &missing}
	if err := s.CreateEntry(ctx, orphan); !errors.Is(err, acl.ErrMissingBase) {
		t.Fatalf("expected ErrMissingBase, got %v", err)
	}
}

func TestCreateEntriesAtomic(t *testing.T) {
	ctx := context.Background()
	s := New()
	roleID := id.NewRoleID()

	base := &acl.Entry{ID: id.NewEntryID(), ObjectType: "program", ObjectID: "p1", RoleID: roleID}
	if err := s.CreateEntry(ctx, base); err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}

	missing := id.NewEntryID()
	batch := []*acl.Entry{
		{ID: id.NewEntryID(), ObjectType: "audit", ObjectID: "a1", RoleID: roleID, BaseID: &base.ID, ParentID: &base.ID},
		{ID: id.NewEntryID(), ObjectType: "audit", ObjectID: "a2", RoleID: roleID, BaseID: &missing, ParentID: &missing},
	}
	if err := s.CreateEntries(ctx, batch); !errors.Is(err, acl.ErrMissingBase) {
		t.Fatalf("expected ErrMissingBase, got %v", err)
	}

	// Nothing from the failed batch may be visible.
	entries, err := s.EntriesOnObject(ctx, "audit", "a1")
	if err != nil {
		t.Fatalf("EntriesOnObject: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no partial state, got %d entries", len(entries))
	}
}

func TestDeleteEntryCascades(t *testing.T) {
	ctx := context.Background()
	s := New()
	roleID := id.NewRoleID()

	base := &acl.Entry{ID: id.NewEntryID(), ObjectType: "program", ObjectID: "p1", RoleID: roleID}
	if err := s.CreateEntry(ctx, base); err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	child := &acl.Entry{ID: id.NewEntryID(), ObjectType: "audit", ObjectID: "a1", RoleID: roleID, BaseID: &base.ID, ParentID: &base.ID}
	grandchild := &acl.Entry{ID: id.NewEntryID(), ObjectType: "issue", ObjectID: "i1", RoleID: roleID, BaseID: &base.ID, ParentID: &child.ID}
	if err := s.CreateEntries(ctx, []*acl.Entry{child, grandchild}); err != nil {
		t.Fatalf("CreateEntries: %v", err)
	}

	if err := s.DeleteEntry(ctx, base.ID); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	for _, eid := range []id.EntryID{base.ID, child.ID, grandchild.ID} {
		if _, err := s.GetEntry(ctx, eid); !errors.Is(err, acl.ErrEntryNotFound) {
			t.Fatalf("entry %s should be gone, got %v", eid, err)
		}
	}
}

func TestEntryMembership(t *testing.T) {
	ctx := context.Background()
	s := New()
	roleID := id.NewRoleID()
	alice := id.NewPersonID()

	e := &acl.Entry{ID: id.NewEntryID(), ObjectType: "program", ObjectID: "p1", RoleID: roleID}
	if err := s.CreateEntry(ctx, e); err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}

	if err := s.AddEntryPerson(ctx, e.ID, alice); err != nil {
		t.Fatalf("AddEntryPerson: %v", err)
	}
	// Re-adding is a no-op.
	if err := s.AddEntryPerson(ctx, e.ID, alice); err != nil {
		t.Fatalf("AddEntryPerson twice: %v", err)
	}
	people, err := s.ListEntryPeople(ctx, e.ID)
	if err != nil {
		t.Fatalf("ListEntryPeople: %v", err)
	}
	if len(people) != 1 {
		t.Fatalf("expected 1 member, got %d", len(people))
	}

	found, err := s.EntriesForPerson(ctx, alice)
	if err != nil {
		t.Fatalf("EntriesForPerson: %v", err)
	}
	if len(found) != 1 || found[0].ID != e.ID {
		t.Fatalf("expected alice on entry %s, got %+v", e.ID, found)
	}

	// Removal empties the membership but keeps the entry.
	if err := s.RemoveEntryPerson(ctx, e.ID, alice); err != nil {
		t.Fatalf("RemoveEntryPerson: %v", err)
	}
	if _, err := s.GetEntry(ctx, e.ID); err != nil {
		t.Fatalf("entry must survive empty membership: %v", err)
	}
}

func TestPersonStore(t *testing.T) {
	ctx := context.Background()
	s := New()

	p := &person.Person{ID: id.NewPersonID(), Email: "alice@example.com", SystemRole: person.SystemRoleEditor}
	if err := s.CreatePerson(ctx, p); err != nil {
		t.Fatalf("CreatePerson: %v", err)
	}
	dup := &person.Person{ID: id.NewPersonID(), Email: "ALICE@example.com"}
	if err := s.CreatePerson(ctx, dup); !errors.Is(err, person.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
	got, err := s.GetPersonByEmail(ctx, "Alice@Example.com")
	if err != nil {
		t.Fatalf("GetPersonByEmail: %v", err)
	}
	if got.ID != p.ID {
		t.Fatalf("expected %s, got %s", p.ID, got.ID)
	}
}

func TestRelationshipOrientationInsensitiveDuplicate(t *testing.T) {
	ctx := context.Background()
	s := New()

	r := &relationship.Relationship{
		ID:         id.NewRelationshipID(),
		SourceType: "program", SourceID: "p1",
		DestinationType: "audit", DestinationID: "a1",
	}
	if err := s.CreateRelationship(ctx, r); err != nil {
		t.Fatalf("CreateRelationship: %v", err)
	}

	flipped := &relationship.Relationship{
		ID:         id.NewRelationshipID(),
		SourceType: "audit", SourceID: "a1",
		DestinationType: "program", DestinationID: "p1",
	}
	if err := s.CreateRelationship(ctx, flipped); !errors.Is(err, relationship.ErrDuplicateRelationship) {
		t.Fatalf("expected ErrDuplicateRelationship, got %v", err)
	}

	neighbors, err := s.Neighbors(ctx, "audit", "a1")
	if err != nil {
		t.Fatalf("Neighbors: %v", err)
	}
	if len(neighbors) != 1 {
		t.Fatalf("expected 1 neighbor, got %d", len(neighbors))
	}
	other, ok := neighbors[0].Other("audit", "a1")
	if !ok || other.Type != "program" || other.ID != "p1" {
		t.Fatalf("unexpected endpoint %+v", other)
	}
}

func TestMappingStore(t *testing.T) {
	ctx := context.Background()
	s := New()

	m := &extmap.Mapping{
		ID:         id.NewMappingID(),
		ObjectType: "issue", ObjectID: "i1",
		ExternalID: "TICKET-1", ExternalType: "issue",
	}
	if err := s.CreateMapping(ctx, m); err != nil {
		t.Fatalf("CreateMapping: %v", err)
	}

	dup := &extmap.Mapping{
		ID:         id.NewMappingID(),
		ObjectType: "issue", ObjectID: "i2",
		ExternalID: "TICKET-1", ExternalType: "issue",
	}
	if err := s.CreateMapping(ctx, dup); !errors.Is(err, extmap.ErrDuplicateMapping) {
		t.Fatalf("expected ErrDuplicateMapping, got %v", err)
	}

	bulk, err := s.MappingsForObjects(ctx, "issue", []string{"i1", "i9"})
	if err != nil {
		t.Fatalf("MappingsForObjects: %v", err)
	}
	if len(bulk) != 1 || bulk["issue:i1"] == nil {
		t.Fatalf("expected only issue:i1 mapped, got %v", bulk)
	}
}

func TestJobTransitions(t *testing.T) {
	ctx := context.Background()
	s := New()

	j := &syncjob.Job{
		ID:             id.NewJobID(),
		Kind:           syncjob.KindCreate,
		State:          syncjob.StatePending,
		Objects:        []syncjob.ObjectRef{{Type: "issue", ID: "i1"}},
		RequesterEmail: "auditor@example.com",
	}
	if err := s.CreateJob(ctx, j); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	// pending -> succeeded skips running and is illegal.
	j.State = syncjob.StateSucceeded
	if err := s.UpdateJob(ctx, j); !errors.Is(err, syncjob.ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}

	j.State = syncjob.StateRunning
	if err := s.UpdateJob(ctx, j); err != nil {
		t.Fatalf("pending -> running: %v", err)
	}
	j.State = syncjob.StatePartial
	if err := s.UpdateJob(ctx, j); err != nil {
		t.Fatalf("running -> partial: %v", err)
	}

	// Terminal states are final.
	j.State = syncjob.StateRunning
	if err := s.UpdateJob(ctx, j); !errors.Is(err, syncjob.ErrIllegalTransition) {
		t.Fatalf("expected terminal state to be final, got %v", err)
	}
}

func TestJobCancelFlag(t *testing.T) {
	ctx := context.Background()
	s := New()

	j := &syncjob.Job{ID: id.NewJobID(), Kind: syncjob.KindUpdate, State: syncjob.StatePending}
	if err := s.CreateJob(ctx, j); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	flagged, err := s.CancelRequested(ctx, j.ID)
	if err != nil || flagged {
		t.Fatalf("expected unflagged job, got %v %v", flagged, err)
	}
	if err := s.RequestCancel(ctx, j.ID); err != nil {
		t.Fatalf("RequestCancel: %v", err)
	}
	flagged, err = s.CancelRequested(ctx, j.ID)
	if err != nil || !flagged {
		t.Fatalf("expected flagged job, got %v %v", flagged, err)
	}
}

func TestListRolesPagination(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, name := range []string{"A", "B", "C", "D"} {
		r := &acr.Role{ID: id.NewRoleID(), ObjectType: "program", Name: name}
		if err := s.CreateRole(ctx, r); err != nil {
			t.Fatalf("CreateRole %s: %v", name, err)
		}
	}

	page, err := s.ListRoles(ctx, &acr.ListFilter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("ListRoles: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected page of 2, got %d", len(page))
	}

	n, err := s.CountRoles(ctx, &acr.ListFilter{ObjectType: "program"})
	if err != nil || n != 4 {
		t.Fatalf("expected 4 roles, got %d %v", n, err)
	}
}

func TestDeleteRoleRejectedWhileReferenced(t *testing.T) {
	ctx := context.Background()
	s := New()

	r := &acr.Role{
		ID:           id.NewRoleID(),
		ObjectType:   "program",
		Name:         "Program Manager",
		Capabilities: acr.Capabilities{Read: true},
	}
	if err := s.CreateRole(ctx, r); err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	e := &acl.Entry{ID: id.NewEntryID(), ObjectType: "program", ObjectID: "p1", RoleID: r.ID}
	if err := s.CreateEntry(ctx, e); err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}

	if err := s.DeleteRole(ctx, r.ID); !errors.Is(err, acr.ErrRoleInUse) {
		t.Fatalf("expected ErrRoleInUse, got %v", err)
	}
	if _, err := s.GetRole(ctx, r.ID); err != nil {
		t.Fatalf("rejected delete must keep the role: %v", err)
	}

	if err := s.DeleteEntry(ctx, e.ID); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if err := s.DeleteRole(ctx, r.ID); err != nil {
		t.Fatalf("DeleteRole after last reference: %v", err)
	}
}
