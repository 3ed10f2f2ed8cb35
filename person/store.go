package person

import (
	"context"

	"github.com/grcware/accord/id"
)

// Store defines persistence operations for people.
type Store interface {
	// CreatePerson persists a new person. Duplicate emails are rejected.
	CreatePerson(ctx context.Context, p *Person) error

	// GetPerson retrieves a person by ID.
	GetPerson(ctx context.Context, personID id.PersonID) (*Person, error)

	// GetPersonByEmail retrieves a person by email.
	GetPersonByEmail(ctx context.Context, email string) (*Person, error)

	// UpdatePerson persists changes to a person.
	UpdatePerson(ctx context.Context, p *Person) error

	// DeletePerson removes a person. ACL memberships are detached by
	// the caller; entries themselves are never deleted on this path.
	DeletePerson(ctx context.Context, personID id.PersonID) error

	// ListPeople returns people matching the filter.
	ListPeople(ctx context.Context, filter *ListFilter) ([]*Person, error)
}
