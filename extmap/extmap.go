// Package extmap defines the external issue Mapping entity and its store
// interface. A mapping records the tracker identity of a synced object;
// (external_id, external_type) is unique.
package extmap

import (
	"time"

	"github.com/grcware/accord/id"
)

// Mapping binds a local object to its remote tracker ticket.
type Mapping struct {
	ID           id.MappingID `json:"id" db:"id"`
	ObjectType   string       `json:"object_type" db:"object_type"`
	ObjectID     string       `json:"object_id" db:"object_id"`
	ExternalID   string       `json:"external_id" db:"external_id"`
	ExternalType string       `json:"external_type" db:"external_type"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}

// ListFilter contains filters for listing mappings.
type ListFilter struct {
	ObjectType   string `json:"object_type,omitempty"`
	ExternalType string `json:"external_type,omitempty"`
	Limit        int    `json:"limit,omitempty"`
	Offset       int    `json:"offset,omitempty"`
}
