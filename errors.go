package accord

import "errors"

var (
	// ErrAccessDenied is returned by Enforce when a check is denied.
	ErrAccessDenied = errors.New("accord: access denied")

	// ErrInvariantViolation is returned when a derived ACL entry would
	// carry capabilities outside its base role's capabilities. The
	// containing mutation is aborted.
	ErrInvariantViolation = errors.New("accord: derived capabilities exceed base role")

	// ErrDepthExceeded is reported when rule recursion hits the
	// configured bound. Entries produced up to the bound are committed;
	// the condition is logged for the operator.
	ErrDepthExceeded = errors.New("accord: propagation depth exceeded")

	// ErrCacheStale is the conditional write-back race: the snapshot
	// key was invalidated while the snapshot was being built. Never
	// surfaced to callers; the next query rebuilds.
	ErrCacheStale = errors.New("accord: snapshot invalidated during build")

	// ErrWildcardNotAllowed is returned when a wildcard rule is used
	// by a role outside the bootstrap admin set.
	ErrWildcardNotAllowed = errors.New("accord: wildcard rule restricted to bootstrap roles")
)
