package extmap

import "context"

// Store defines persistence operations for external issue mappings.
type Store interface {
	// CreateMapping persists a new mapping. A second mapping with the
	// same (external_id, external_type) is rejected.
	CreateMapping(ctx context.Context, m *Mapping) error

	// UpdateMapping persists changes to a mapping.
	UpdateMapping(ctx context.Context, m *Mapping) error

	// GetMappingByObject retrieves the mapping for a local object.
	GetMappingByObject(ctx context.Context, objectType, objectID string) (*Mapping, error)

	// GetMappingByExternal retrieves the mapping for a remote ticket.
	GetMappingByExternal(ctx context.Context, externalID, externalType string) (*Mapping, error)

	// MappingsForObjects bulk-loads mappings for the given objects,
	// keyed by "type:id". Objects without a mapping are absent.
	MappingsForObjects(ctx context.Context, objectType string, objectIDs []string) (map[string]*Mapping, error)

	// DeleteMappingByObject removes the mapping of a local object.
	DeleteMappingByObject(ctx context.Context, objectType, objectID string) error

	// ListMappings returns mappings matching the filter.
	ListMappings(ctx context.Context, filter *ListFilter) ([]*Mapping, error)
}
