package acr

import "errors"

var (
	// ErrUnknownRole is returned when a role lookup by (object type,
	// name) or ID finds nothing. Fatal for the operation that needed it.
	ErrUnknownRole = errors.New("acr: unknown role")

	// ErrDuplicateRole is returned when (object_type, name) already exists.
	ErrDuplicateRole = errors.New("acr: role already exists for object type")

	// ErrImmutableCapabilities is returned when an update would change
	// the capability bits of a role referenced by propagation.
	ErrImmutableCapabilities = errors.New("acr: capability bits are immutable")

	// ErrRoleInUse is returned when a delete targets a role still
	// referenced by ACL entries.
	ErrRoleInUse = errors.New("acr: role is referenced by ACL entries")
)
