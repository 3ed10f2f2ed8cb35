package acl

import "errors"

var (
	// ErrEntryNotFound is returned when an ACL entry cannot be found.
	ErrEntryNotFound = errors.New("acl: entry not found")

	// ErrDuplicateEntry is returned when an entry with the same
	// (object, role, base) already exists.
	ErrDuplicateEntry = errors.New("acl: duplicate entry")

	// ErrMissingBase is returned when a derived entry references a
	// base or parent entry that does not exist.
	ErrMissingBase = errors.New("acl: derived entry references missing base")
)
