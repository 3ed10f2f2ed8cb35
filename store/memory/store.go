// Package memory provides an in-memory implementation of the Accord
// composite store. It is intended for testing and development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/grcware/accord/acl"
	"github.com/grcware/accord/acr"
	"github.com/grcware/accord/extmap"
	"github.com/grcware/accord/id"
	"github.com/grcware/accord/person"
	"github.com/grcware/accord/relationship"
	"github.com/grcware/accord/syncjob"
)

// Compile-time interface checks.
var (
	_ acr.Store          = (*Store)(nil)
	_ acl.Store          = (*Store)(nil)
	_ person.Store       = (*Store)(nil)
	_ relationship.Store = (*Store)(nil)
	_ extmap.Store       = (*Store)(nil)
	_ syncjob.Store      = (*Store)(nil)
)

// Store is a thread-safe in-memory store for all Accord entities.
type Store struct {
	mu sync.RWMutex

	roles         map[string]*acr.Role
	entries       map[string]*acl.Entry
	people        map[string]*person.Person
	relationships map[string]*relationship.Relationship
	mappings      map[string]*extmap.Mapping
	jobs          map[string]*syncjob.Job
	cancelFlags   map[string]bool
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		roles:         make(map[string]*acr.Role),
		entries:       make(map[string]*acl.Entry),
		people:        make(map[string]*person.Person),
		relationships: make(map[string]*relationship.Relationship),
		mappings:      make(map[string]*extmap.Mapping),
		jobs:          make(map[string]*syncjob.Job),
		cancelFlags:   make(map[string]bool),
	}
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Role Store
// ──────────────────────────────────────────────────

func (s *Store) CreateRole(_ context.Context, r *acr.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.roles {
		if existing.ObjectType == r.ObjectType && existing.Name == r.Name {
			return fmt.Errorf("%s/%s: %w", r.ObjectType, r.Name, acr.ErrDuplicateRole)
		}
	}
	now := time.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now
	s.roles[r.ID.String()] = copyRole(r)
	return nil
}

func (s *Store) GetRole(_ context.Context, roleID id.RoleID) (*acr.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[roleID.String()]
	if !ok {
		return nil, fmt.Errorf("role %s: %w", roleID, acr.ErrUnknownRole)
	}
	return copyRole(r), nil
}

func (s *Store) GetRoleByName(_ context.Context, objectType, name string) (*acr.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.roles {
		if r.ObjectType == objectType && r.Name == name {
			return copyRole(r), nil
		}
	}
	return nil, fmt.Errorf("role %s/%s: %w", objectType, name, acr.ErrUnknownRole)
}

func (s *Store) UpdateRole(_ context.Context, r *acr.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.roles[r.ID.String()]
	if !ok {
		return fmt.Errorf("role %s: %w", r.ID, acr.ErrUnknownRole)
	}
	if current.Capabilities != r.Capabilities {
		return acr.ErrImmutableCapabilities
	}
	updated := copyRole(r)
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	s.roles[r.ID.String()] = updated
	return nil
}

func (s *Store) DeleteRole(_ context.Context, roleID id.RoleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[roleID.String()]; !ok {
		return fmt.Errorf("role %s: %w", roleID, acr.ErrUnknownRole)
	}
	for _, e := range s.entries {
		if e.RoleID == roleID {
			return fmt.Errorf("role %s: %w", roleID, acr.ErrRoleInUse)
		}
	}
	delete(s.roles, roleID.String())
	return nil
}

func (s *Store) ListRoles(_ context.Context, filter *acr.ListFilter) ([]*acr.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*acr.Role, 0, len(s.roles))
	for _, r := range s.roles {
		if filter != nil {
			if filter.ObjectType != "" && r.ObjectType != filter.ObjectType {
				continue
			}
			if filter.Name != "" && r.Name != filter.Name {
				continue
			}
			if filter.IsInternal != nil && r.IsInternal != *filter.IsInternal {
				continue
			}
		}
		result = append(result, copyRole(r))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID.String() < result[j].ID.String() })
	return applyPagination(result, paginationOptsRole(filter)), nil
}

func (s *Store) CountRoles(ctx context.Context, filter *acr.ListFilter) (int64, error) {
	list, err := s.ListRoles(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

// ──────────────────────────────────────────────────
// ACL Store
// ──────────────────────────────────────────────────

func (s *Store) CreateEntry(_ context.Context, e *acl.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.validateEntryLocked(e); err != nil {
		return err
	}
	e.CreatedAt = time.Now().UTC()
	s.entries[e.ID.String()] = copyEntry(e)
	return nil
}

func (s *Store) CreateEntries(_ context.Context, entries []*acl.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Validate the whole batch before touching state; either every
	// entry lands or none do. Bases may sit inside the batch itself.
	inBatch := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		inBatch[e.ID.String()] = struct{}{}
	}
	for _, e := range entries {
		if e.BaseID != nil {
			if _, ok := inBatch[e.BaseID.String()]; ok {
				continue
			}
		}
		if err := s.validateEntryLocked(e); err != nil {
			return err
		}
	}
	now := time.Now().UTC()
	for _, e := range entries {
		e.CreatedAt = now
		s.entries[e.ID.String()] = copyEntry(e)
	}
	return nil
}

// validateEntryLocked enforces uniqueness and base integrity. Must hold
// write lock.
func (s *Store) validateEntryLocked(e *acl.Entry) error {
	for _, existing := range s.entries {
		if existing.ObjectType == e.ObjectType &&
			existing.ObjectID == e.ObjectID &&
			existing.RoleID == e.RoleID &&
			sameBase(existing.BaseID, e.BaseID) {
			return fmt.Errorf("%s:%s role %s: %w", e.ObjectType, e.ObjectID, e.RoleID, acl.ErrDuplicateEntry)
		}
	}
	if e.BaseID != nil {
		if _, ok := s.entries[e.BaseID.String()]; !ok {
			return fmt.Errorf("base %s: %w", e.BaseID, acl.ErrMissingBase)
		}
	}
	return nil
}

func (s *Store) GetEntry(_ context.Context, entryID id.EntryID) (*acl.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[entryID.String()]
	if !ok {
		return nil, fmt.Errorf("entry %s: %w", entryID, acl.ErrEntryNotFound)
	}
	return copyEntry(e), nil
}

func (s *Store) DeleteEntry(_ context.Context, entryID id.EntryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entryID.String()]; !ok {
		return fmt.Errorf("entry %s: %w", entryID, acl.ErrEntryNotFound)
	}
	// Cascade to the transitive closure through BaseID and ParentID.
	doomed := map[string]struct{}{entryID.String(): {}}
	for {
		grew := false
		for k, e := range s.entries {
			if _, gone := doomed[k]; gone {
				continue
			}
			if e.BaseID != nil {
				if _, gone := doomed[e.BaseID.String()]; gone {
					doomed[k] = struct{}{}
					grew = true
					continue
				}
			}
			if e.ParentID != nil {
				if _, gone := doomed[e.ParentID.String()]; gone {
					doomed[k] = struct{}{}
					grew = true
				}
			}
		}
		if !grew {
			break
		}
	}
	for k := range doomed {
		delete(s.entries, k)
	}
	return nil
}

func (s *Store) DeleteEntriesByObject(_ context.Context, objectType, objectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.entries {
		if e.ObjectType == objectType && e.ObjectID == objectID {
			delete(s.entries, k)
		}
	}
	return nil
}

func (s *Store) EntriesForPerson(_ context.Context, personID id.PersonID) ([]*acl.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*acl.Entry
	for _, e := range s.entries {
		for _, pid := range e.People {
			if pid == personID {
				result = append(result, copyEntry(e))
				break
			}
		}
	}
	sortEntries(result)
	return result, nil
}

func (s *Store) EntriesOnObject(_ context.Context, objectType, objectID string) ([]*acl.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*acl.Entry
	for _, e := range s.entries {
		if e.ObjectType == objectType && e.ObjectID == objectID {
			result = append(result, copyEntry(e))
		}
	}
	sortEntries(result)
	return result, nil
}

func (s *Store) ListEntries(_ context.Context, filter *acl.ListFilter) ([]*acl.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*acl.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if filter != nil {
			if filter.ObjectType != "" && e.ObjectType != filter.ObjectType {
				continue
			}
			if filter.ObjectID != "" && e.ObjectID != filter.ObjectID {
				continue
			}
			if filter.RoleID != nil && e.RoleID != *filter.RoleID {
				continue
			}
			if filter.BaseID != nil && !sameBase(e.BaseID, filter.BaseID) {
				continue
			}
			if filter.DirectOnly && e.BaseID != nil {
				continue
			}
		}
		result = append(result, copyEntry(e))
	}
	sortEntries(result)
	return applyPagination(result, paginationOptsEntry(filter)), nil
}

func (s *Store) ListDescendants(_ context.Context, baseID id.EntryID) ([]*acl.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*acl.Entry
	for _, e := range s.entries {
		if e.BaseID != nil && *e.BaseID == baseID {
			result = append(result, copyEntry(e))
		}
	}
	sortEntries(result)
	return result, nil
}

func (s *Store) AddEntryPerson(_ context.Context, entryID id.EntryID, personID id.PersonID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[entryID.String()]
	if !ok {
		return fmt.Errorf("entry %s: %w", entryID, acl.ErrEntryNotFound)
	}
	for _, pid := range e.People {
		if pid == personID {
			return nil
		}
	}
	e.People = append(e.People, personID)
	return nil
}

func (s *Store) RemoveEntryPerson(_ context.Context, entryID id.EntryID, personID id.PersonID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[entryID.String()]
	if !ok {
		return fmt.Errorf("entry %s: %w", entryID, acl.ErrEntryNotFound)
	}
	for i, pid := range e.People {
		if pid == personID {
			e.People = append(e.People[:i], e.People[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) ListEntryPeople(_ context.Context, entryID id.EntryID) ([]id.PersonID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[entryID.String()]
	if !ok {
		return nil, fmt.Errorf("entry %s: %w", entryID, acl.ErrEntryNotFound)
	}
	return append([]id.PersonID(nil), e.People...), nil
}

func (s *Store) RemovePersonMemberships(_ context.Context, personID id.PersonID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		for i, pid := range e.People {
			if pid == personID {
				e.People = append(e.People[:i], e.People[i+1:]...)
				break
			}
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Person Store
// ──────────────────────────────────────────────────

func (s *Store) CreatePerson(_ context.Context, p *person.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.people {
		if strings.EqualFold(existing.Email, p.Email) {
			return fmt.Errorf("%s: %w", p.Email, person.ErrDuplicateEmail)
		}
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	s.people[p.ID.String()] = copyPerson(p)
	return nil
}

func (s *Store) GetPerson(_ context.Context, personID id.PersonID) (*person.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.people[personID.String()]
	if !ok {
		return nil, fmt.Errorf("person %s: %w", personID, person.ErrPersonNotFound)
	}
	return copyPerson(p), nil
}

func (s *Store) GetPersonByEmail(_ context.Context, email string) (*person.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.people {
		if strings.EqualFold(p.Email, email) {
			return copyPerson(p), nil
		}
	}
	return nil, fmt.Errorf("person %q: %w", email, person.ErrPersonNotFound)
}

func (s *Store) UpdatePerson(_ context.Context, p *person.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.people[p.ID.String()]
	if !ok {
		return fmt.Errorf("person %s: %w", p.ID, person.ErrPersonNotFound)
	}
	updated := copyPerson(p)
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	s.people[p.ID.String()] = updated
	return nil
}

func (s *Store) DeletePerson(_ context.Context, personID id.PersonID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.people[personID.String()]; !ok {
		return fmt.Errorf("person %s: %w", personID, person.ErrPersonNotFound)
	}
	delete(s.people, personID.String())
	return nil
}

func (s *Store) ListPeople(_ context.Context, filter *person.ListFilter) ([]*person.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*person.Person, 0, len(s.people))
	for _, p := range s.people {
		if filter != nil {
			if filter.Email != "" && !strings.EqualFold(p.Email, filter.Email) {
				continue
			}
			if filter.SystemRole != nil && p.SystemRole != *filter.SystemRole {
				continue
			}
			if filter.Search != "" {
				needle := strings.ToLower(filter.Search)
				if !strings.Contains(strings.ToLower(p.Name), needle) &&
					!strings.Contains(strings.ToLower(p.Email), needle) {
					continue
				}
			}
		}
		result = append(result, copyPerson(p))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID.String() < result[j].ID.String() })
	return applyPagination(result, paginationOptsPerson(filter)), nil
}

// ──────────────────────────────────────────────────
// Relationship Store
// ──────────────────────────────────────────────────

func (s *Store) CreateRelationship(_ context.Context, r *relationship.Relationship) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.relationships {
		if samePair(existing, r) {
			return fmt.Errorf("%s:%s <-> %s:%s: %w",
				r.SourceType, r.SourceID, r.DestinationType, r.DestinationID,
				relationship.ErrDuplicateRelationship)
		}
	}
	r.CreatedAt = time.Now().UTC()
	s.relationships[r.ID.String()] = copyRelationship(r)
	return nil
}

func (s *Store) GetRelationship(_ context.Context, relID id.RelationshipID) (*relationship.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.relationships[relID.String()]
	if !ok {
		return nil, fmt.Errorf("relationship %s: %w", relID, relationship.ErrRelationshipNotFound)
	}
	return copyRelationship(r), nil
}

func (s *Store) DeleteRelationship(_ context.Context, relID id.RelationshipID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.relationships[relID.String()]; !ok {
		return fmt.Errorf("relationship %s: %w", relID, relationship.ErrRelationshipNotFound)
	}
	delete(s.relationships, relID.String())
	return nil
}

func (s *Store) ListRelationships(_ context.Context, filter *relationship.ListFilter) ([]*relationship.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*relationship.Relationship, 0, len(s.relationships))
	for _, r := range s.relationships {
		if filter != nil && !matchRelationship(r, filter) {
			continue
		}
		result = append(result, copyRelationship(r))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID.String() < result[j].ID.String() })
	return applyPagination(result, paginationOptsRel(filter)), nil
}

func matchRelationship(r *relationship.Relationship, f *relationship.ListFilter) bool {
	if f.IsExternal != nil && r.IsExternal != *f.IsExternal {
		return false
	}
	if f.ObjectType == "" {
		return true
	}
	if f.ObjectID != "" {
		other, ok := r.Other(f.ObjectType, f.ObjectID)
		if !ok {
			return false
		}
		return f.OtherType == "" || other.Type == f.OtherType
	}
	return r.SourceType == f.ObjectType || r.DestinationType == f.ObjectType
}

func (s *Store) Neighbors(_ context.Context, objectType, objectID string) ([]*relationship.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*relationship.Relationship
	for _, r := range s.relationships {
		if _, ok := r.Other(objectType, objectID); ok {
			result = append(result, copyRelationship(r))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID.String() < result[j].ID.String() })
	return result, nil
}

func (s *Store) DeleteRelationshipsByObject(_ context.Context, objectType, objectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, r := range s.relationships {
		if _, ok := r.Other(objectType, objectID); ok {
			delete(s.relationships, k)
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// External Mapping Store
// ──────────────────────────────────────────────────

func (s *Store) CreateMapping(_ context.Context, m *extmap.Mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.mappings {
		if existing.ExternalID == m.ExternalID && existing.ExternalType == m.ExternalType {
			return fmt.Errorf("%s/%s: %w", m.ExternalType, m.ExternalID, extmap.ErrDuplicateMapping)
		}
		if existing.ObjectType == m.ObjectType && existing.ObjectID == m.ObjectID {
			return fmt.Errorf("%s:%s: %w", m.ObjectType, m.ObjectID, extmap.ErrDuplicateMapping)
		}
	}
	now := time.Now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now
	s.mappings[m.ID.String()] = copyMapping(m)
	return nil
}

func (s *Store) UpdateMapping(_ context.Context, m *extmap.Mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.mappings[m.ID.String()]
	if !ok {
		return fmt.Errorf("mapping %s: %w", m.ID, extmap.ErrMappingNotFound)
	}
	updated := copyMapping(m)
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	s.mappings[m.ID.String()] = updated
	return nil
}

func (s *Store) GetMappingByObject(_ context.Context, objectType, objectID string) (*extmap.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.mappings {
		if m.ObjectType == objectType && m.ObjectID == objectID {
			return copyMapping(m), nil
		}
	}
	return nil, fmt.Errorf("%s:%s: %w", objectType, objectID, extmap.ErrMappingNotFound)
}

func (s *Store) GetMappingByExternal(_ context.Context, externalID, externalType string) (*extmap.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.mappings {
		if m.ExternalID == externalID && m.ExternalType == externalType {
			return copyMapping(m), nil
		}
	}
	return nil, fmt.Errorf("%s/%s: %w", externalType, externalID, extmap.ErrMappingNotFound)
}

func (s *Store) MappingsForObjects(_ context.Context, objectType string, objectIDs []string) (map[string]*extmap.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := make(map[string]struct{}, len(objectIDs))
	for _, oid := range objectIDs {
		wanted[oid] = struct{}{}
	}
	result := make(map[string]*extmap.Mapping)
	for _, m := range s.mappings {
		if m.ObjectType != objectType {
			continue
		}
		if _, ok := wanted[m.ObjectID]; ok {
			result[m.ObjectType+":"+m.ObjectID] = copyMapping(m)
		}
	}
	return result, nil
}

func (s *Store) DeleteMappingByObject(_ context.Context, objectType, objectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, m := range s.mappings {
		if m.ObjectType == objectType && m.ObjectID == objectID {
			delete(s.mappings, k)
			return nil
		}
	}
	return fmt.Errorf("%s:%s: %w", objectType, objectID, extmap.ErrMappingNotFound)
}

func (s *Store) ListMappings(_ context.Context, filter *extmap.ListFilter) ([]*extmap.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*extmap.Mapping, 0, len(s.mappings))
	for _, m := range s.mappings {
		if filter != nil {
			if filter.ObjectType != "" && m.ObjectType != filter.ObjectType {
				continue
			}
			if filter.ExternalType != "" && m.ExternalType != filter.ExternalType {
				continue
			}
		}
		result = append(result, copyMapping(m))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID.String() < result[j].ID.String() })
	return applyPagination(result, paginationOptsMapping(filter)), nil
}

// ──────────────────────────────────────────────────
// Sync Job Store
// ──────────────────────────────────────────────────

func (s *Store) CreateJob(_ context.Context, j *syncjob.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j.State == "" {
		j.State = syncjob.StatePending
	}
	now := time.Now().UTC()
	j.CreatedAt, j.UpdatedAt = now, now
	s.jobs[j.ID.String()] = copyJob(j)
	return nil
}

func (s *Store) GetJob(_ context.Context, jobID id.JobID) (*syncjob.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[jobID.String()]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", jobID, syncjob.ErrJobNotFound)
	}
	return copyJob(j), nil
}

func (s *Store) UpdateJob(_ context.Context, j *syncjob.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.jobs[j.ID.String()]
	if !ok {
		return fmt.Errorf("job %s: %w", j.ID, syncjob.ErrJobNotFound)
	}
	if current.State != j.State && !current.State.CanTransitionTo(j.State) {
		return fmt.Errorf("%s -> %s: %w", current.State, j.State, syncjob.ErrIllegalTransition)
	}
	updated := copyJob(j)
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	s.jobs[j.ID.String()] = updated
	return nil
}

func (s *Store) RequestCancel(_ context.Context, jobID id.JobID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[jobID.String()]; !ok {
		return fmt.Errorf("job %s: %w", jobID, syncjob.ErrJobNotFound)
	}
	s.cancelFlags[jobID.String()] = true
	return nil
}

func (s *Store) CancelRequested(_ context.Context, jobID id.JobID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.jobs[jobID.String()]; !ok {
		return false, fmt.Errorf("job %s: %w", jobID, syncjob.ErrJobNotFound)
	}
	return s.cancelFlags[jobID.String()], nil
}

func (s *Store) ListJobs(_ context.Context, filter *syncjob.ListFilter) ([]*syncjob.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*syncjob.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		if filter != nil {
			if filter.Kind != "" && j.Kind != filter.Kind {
				continue
			}
			if filter.State != "" && j.State != filter.State {
				continue
			}
			if filter.RequesterEmail != "" && !strings.EqualFold(j.RequesterEmail, filter.RequesterEmail) {
				continue
			}
		}
		result = append(result, copyJob(j))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID.String() < result[j].ID.String() })
	return applyPagination(result, paginationOptsJob(filter)), nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func sameBase(a, b *id.EntryID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func samePair(a, b *relationship.Relationship) bool {
	if a.SourceType == b.SourceType && a.SourceID == b.SourceID &&
		a.DestinationType == b.DestinationType && a.DestinationID == b.DestinationID {
		return true
	}
	return a.SourceType == b.DestinationType && a.SourceID == b.DestinationID &&
		a.DestinationType == b.SourceType && a.DestinationID == b.SourceID
}

func sortEntries(entries []*acl.Entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID.String() < entries[j].ID.String() })
}

func copyRole(r *acr.Role) *acr.Role {
	c := *r
	return &c
}

func copyEntry(e *acl.Entry) *acl.Entry {
	c := *e
	c.People = append([]id.PersonID(nil), e.People...)
	if e.BaseID != nil {
		base := *e.BaseID
		c.BaseID = &base
	}
	if e.ParentID != nil {
		parent := *e.ParentID
		c.ParentID = &parent
	}
	return &c
}

func copyPerson(p *person.Person) *person.Person {
	c := *p
	return &c
}

func copyRelationship(r *relationship.Relationship) *relationship.Relationship {
	c := *r
	return &c
}

func copyMapping(m *extmap.Mapping) *extmap.Mapping {
	c := *m
	return &c
}

func copyJob(j *syncjob.Job) *syncjob.Job {
	c := *j
	c.Objects = append([]syncjob.ObjectRef(nil), j.Objects...)
	c.Results = append([]syncjob.ObjectResult(nil), j.Results...)
	return &c
}

type pagOpts struct{ limit, offset int }

func applyPagination[T any](items []*T, p pagOpts) []*T {
	if p.offset > 0 {
		if p.offset >= len(items) {
			return nil
		}
		items = items[p.offset:]
	}
	if p.limit > 0 && p.limit < len(items) {
		items = items[:p.limit]
	}
	return items
}

func paginationOptsRole(f *acr.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func paginationOptsEntry(f *acl.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func paginationOptsPerson(f *person.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func paginationOptsRel(f *relationship.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func paginationOptsMapping(f *extmap.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func paginationOptsJob(f *syncjob.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}
