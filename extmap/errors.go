package extmap

import "errors"

var (
	// ErrMappingNotFound is returned when a mapping cannot be found.
	ErrMappingNotFound = errors.New("extmap: mapping not found")

	// ErrDuplicateMapping is returned when (external_id, external_type)
	// is already mapped.
	ErrDuplicateMapping = errors.New("extmap: external id already mapped")
)
