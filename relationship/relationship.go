// Package relationship defines the Relationship entity linking two
// objects, and its store interface. Relationships are stored with a
// source/destination orientation but are symmetric for propagation.
package relationship

import (
	"time"

	"github.com/grcware/accord/id"
)

// Relationship is an unordered pair of objects with a stored orientation.
// IsExternal records that the link originated outside the application;
// external links propagate roles only where the rule tree allows it.
type Relationship struct {
	ID              id.RelationshipID `json:"id" db:"id"`
	SourceType      string            `json:"source_type" db:"source_type"`
	SourceID        string            `json:"source_id" db:"source_id"`
	DestinationType string            `json:"destination_type" db:"destination_type"`
	DestinationID   string            `json:"destination_id" db:"destination_id"`
	IsExternal      bool              `json:"is_external" db:"is_external"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
}

// Endpoint is one side of a relationship.
type Endpoint struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Other returns the endpoint opposite to the given object, and whether
// the object participates in the relationship at all.
func (r *Relationship) Other(objectType, objectID string) (Endpoint, bool) {
	if r.SourceType == objectType && r.SourceID == objectID {
		return Endpoint{Type: r.DestinationType, ID: r.DestinationID}, true
	}
	if r.DestinationType == objectType && r.DestinationID == objectID {
		return Endpoint{Type: r.SourceType, ID: r.SourceID}, true
	}
	return Endpoint{}, false
}

// ListFilter contains filters for listing relationships.
type ListFilter struct {
	ObjectType string `json:"object_type,omitempty"`
	ObjectID   string `json:"object_id,omitempty"`
	OtherType  string `json:"other_type,omitempty"`
	IsExternal *bool  `json:"is_external,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}
