// Package store defines the aggregate persistence interface. Each
// subsystem (acr, acl, person, relationship, extmap, syncjob) defines its
// own store interface; the composite Store composes them all. Backends:
// Postgres, SQLite, and Memory.
package store

import (
	"context"

	"github.com/grcware/accord/acl"
	"github.com/grcware/accord/acr"
	"github.com/grcware/accord/extmap"
	"github.com/grcware/accord/person"
	"github.com/grcware/accord/relationship"
	"github.com/grcware/accord/syncjob"
)

// Store is the aggregate persistence interface. A single backend
// (postgres, sqlite, memory) implements all of the subsystem stores.
type Store interface {
	acr.Store
	acl.Store
	person.Store
	relationship.Store
	extmap.Store
	syncjob.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
