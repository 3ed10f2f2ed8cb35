package acl

import (
	"context"

	"github.com/grcware/accord/id"
)

// Store defines persistence operations for ACL entries and their person
// memberships. Mutations are atomic: a constraint violation aborts the
// whole call and leaves no partial state behind.
type Store interface {
	// CreateEntry persists a single entry together with its People.
	// A second entry with the same (object, role, base) is rejected.
	CreateEntry(ctx context.Context, e *Entry) error

	// CreateEntries persists a batch of derived entries atomically.
	// Used exclusively by the propagation engine; either every entry
	// lands or none do.
	CreateEntries(ctx context.Context, entries []*Entry) error

	// GetEntry retrieves an entry by ID with People populated.
	GetEntry(ctx context.Context, entryID id.EntryID) (*Entry, error)

	// DeleteEntry removes the entry and every transitive descendant
	// (entries whose BaseID or ParentID chain reaches it), atomically.
	DeleteEntry(ctx context.Context, entryID id.EntryID) error

	// DeleteEntriesByObject removes every entry referencing the object.
	DeleteEntriesByObject(ctx context.Context, objectType, objectID string) error

	// EntriesForPerson returns every entry, direct or derived, whose
	// membership includes the person. People is populated.
	EntriesForPerson(ctx context.Context, personID id.PersonID) ([]*Entry, error)

	// EntriesOnObject returns every entry on the object with People
	// populated. Used by the UI and the sync engine.
	EntriesOnObject(ctx context.Context, objectType, objectID string) ([]*Entry, error)

	// ListEntries returns entries matching the filter.
	ListEntries(ctx context.Context, filter *ListFilter) ([]*Entry, error)

	// ListDescendants returns every derived entry whose BaseID equals
	// the given entry ID.
	ListDescendants(ctx context.Context, baseID id.EntryID) ([]*Entry, error)

	// AddEntryPerson attaches a person to an entry. Adding an existing
	// membership is a no-op.
	AddEntryPerson(ctx context.Context, entryID id.EntryID, personID id.PersonID) error

	// RemoveEntryPerson detaches a person from an entry. The entry
	// itself remains even when its membership becomes empty, so the
	// propagation topology is preserved.
	RemoveEntryPerson(ctx context.Context, entryID id.EntryID, personID id.PersonID) error

	// ListEntryPeople returns the person memberships of an entry.
	ListEntryPeople(ctx context.Context, entryID id.EntryID) ([]id.PersonID, error)

	// RemovePersonMemberships detaches the person from every entry.
	// Entries are left in place even when they become empty.
	RemovePersonMemberships(ctx context.Context, personID id.PersonID) error
}
