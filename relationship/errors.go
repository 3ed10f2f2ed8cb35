package relationship

import "errors"

var (
	// ErrRelationshipNotFound is returned when a relationship cannot be found.
	ErrRelationshipNotFound = errors.New("relationship: not found")

	// ErrDuplicateRelationship is returned when the pair already exists
	// in either orientation.
	ErrDuplicateRelationship = errors.New("relationship: pair already related")
)
