package relationship

import (
	"context"

	"github.com/grcware/accord/id"
)

// Store defines persistence operations for relationships.
type Store interface {
	// CreateRelationship persists a new relationship. The same pair in
	// either orientation is rejected as a duplicate.
	CreateRelationship(ctx context.Context, r *Relationship) error

	// GetRelationship retrieves a relationship by ID.
	GetRelationship(ctx context.Context, relID id.RelationshipID) (*Relationship, error)

	// DeleteRelationship removes a relationship by ID.
	DeleteRelationship(ctx context.Context, relID id.RelationshipID) error

	// ListRelationships returns relationships matching the filter.
	ListRelationships(ctx context.Context, filter *ListFilter) ([]*Relationship, error)

	// Neighbors returns every relationship in which the object
	// participates, on either side.
	Neighbors(ctx context.Context, objectType, objectID string) ([]*Relationship, error)

	// DeleteRelationshipsByObject removes every relationship in which
	// the object participates.
	DeleteRelationshipsByObject(ctx context.Context, objectType, objectID string) error
}
