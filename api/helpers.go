package api

import (
	"errors"

	"github.com/xraph/forge"

	"github.com/grcware/accord"
	"github.com/grcware/accord/acl"
	"github.com/grcware/accord/acr"
	"github.com/grcware/accord/extmap"
	"github.com/grcware/accord/person"
	"github.com/grcware/accord/relationship"
	"github.com/grcware/accord/syncjob"
)

// mapError maps domain errors to Forge HTTP errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return forge.NotFound(err.Error())
	}
	if errors.Is(err, acr.ErrDuplicateRole) || errors.Is(err, acl.ErrDuplicateEntry) {
		return forge.BadRequest(err.Error())
	}
	if errors.Is(err, person.ErrDuplicateEmail) || errors.Is(err, relationship.ErrDuplicateRelationship) {
		return forge.BadRequest(err.Error())
	}
	if errors.Is(err, extmap.ErrDuplicateMapping) || errors.Is(err, syncjob.ErrIllegalTransition) {
		return forge.BadRequest(err.Error())
	}
	if errors.Is(err, acr.ErrImmutableCapabilities) || errors.Is(err, acl.ErrMissingBase) {
		return forge.BadRequest(err.Error())
	}
	if errors.Is(err, acr.ErrRoleInUse) {
		return forge.BadRequest(err.Error())
	}
	if errors.Is(err, accord.ErrInvariantViolation) || errors.Is(err, accord.ErrWildcardNotAllowed) {
		return forge.BadRequest(err.Error())
	}
	if errors.Is(err, accord.ErrAccessDenied) {
		return forge.Forbidden(err.Error())
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, acr.ErrUnknownRole) ||
		errors.Is(err, acl.ErrEntryNotFound) ||
		errors.Is(err, person.ErrPersonNotFound) ||
		errors.Is(err, relationship.ErrRelationshipNotFound) ||
		errors.Is(err, extmap.ErrMappingNotFound) ||
		errors.Is(err, syncjob.ErrJobNotFound)
}

func defaultLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
