// Package postgres provides a PostgreSQL implementation of the Accord
// composite store using grove ORM with Go-based migrations.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/grcware/accord/acl"
	"github.com/grcware/accord/acr"
	"github.com/grcware/accord/extmap"
	"github.com/grcware/accord/id"
	"github.com/grcware/accord/person"
	"github.com/grcware/accord/relationship"
	"github.com/grcware/accord/store"
	"github.com/grcware/accord/syncjob"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a PostgreSQL implementation of the composite Accord store.
type Store struct {
	db   *grove.DB
	pgdb *pgdriver.PgDB
}

// New creates a new PostgreSQL store.
func New(db *grove.DB) *Store {
	return &Store{
		db:   db,
		pgdb: pgdriver.Unwrap(db),
	}
}

// Migrate runs programmatic migrations via the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pgdb)
	if err != nil {
		return fmt.Errorf("accord: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("accord: migration failed: %w", err)
	}
	return nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// ──────────────────────────────────────────────────
// Role operations
// ──────────────────────────────────────────────────

func (s *Store) CreateRole(ctx context.Context, r *acr.Role) error {
	count, err := s.pgdb.NewSelect((*roleModel)(nil)).
		Where("object_type = ?", r.ObjectType).
		Where("name = ?", r.Name).
		Count(ctx)
	if err != nil {
		return fmt.Errorf("accord: create role: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%s/%s: %w", r.ObjectType, r.Name, acr.ErrDuplicateRole)
	}

	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	if _, err := s.pgdb.NewInsert(roleToModel(r)).Exec(ctx); err != nil {
		return fmt.Errorf("accord: create role: %w", err)
	}
	return nil
}

func (s *Store) GetRole(ctx context.Context, roleID id.RoleID) (*acr.Role, error) {
	m := new(roleModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", roleID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("role %s: %w", roleID, acr.ErrUnknownRole)
		}
		return nil, fmt.Errorf("accord: get role: %w", err)
	}
	return roleFromModel(m), nil
}

func (s *Store) GetRoleByName(ctx context.Context, objectType, name string) (*acr.Role, error) {
	m := new(roleModel)
	err := s.pgdb.NewSelect(m).
		Where("object_type = ?", objectType).
		Where("name = ?", name).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("role %s/%s: %w", objectType, name, acr.ErrUnknownRole)
		}
		return nil, fmt.Errorf("accord: get role by name: %w", err)
	}
	return roleFromModel(m), nil
}

func (s *Store) UpdateRole(ctx context.Context, r *acr.Role) error {
	current, err := s.GetRole(ctx, r.ID)
	if err != nil {
		return err
	}
	if current.Capabilities != r.Capabilities {
		return fmt.Errorf("role %s: %w", r.ID, acr.ErrImmutableCapabilities)
	}

	r.CreatedAt = current.CreatedAt
	r.UpdatedAt = time.Now().UTC()
	if _, err := s.pgdb.NewUpdate(roleToModel(r)).WherePK().Exec(ctx); err != nil {
		return fmt.Errorf("accord: update role: %w", err)
	}
	return nil
}

func (s *Store) DeleteRole(ctx context.Context, roleID id.RoleID) error {
	refs, err := s.pgdb.NewSelect((*entryModel)(nil)).
		Where("role_id = ?", roleID.String()).Count(ctx)
	if err != nil {
		return fmt.Errorf("accord: count role references: %w", err)
	}
	if refs > 0 {
		return fmt.Errorf("role %s: %w", roleID, acr.ErrRoleInUse)
	}
	_, err = s.pgdb.NewDelete((*roleModel)(nil)).
		Where("id = ?", roleID.String()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("accord: delete role: %w", err)
	}
	return nil
}

func (s *Store) ListRoles(ctx context.Context, filter *acr.ListFilter) ([]*acr.Role, error) {
	var models []roleModel
	q := s.pgdb.NewSelect(&models).OrderExpr("id ASC")
	if filter != nil {
		if filter.ObjectType != "" {
			q = q.Where("object_type = ?", filter.ObjectType)
		}
		if filter.Name != "" {
			q = q.Where("name = ?", filter.Name)
		}
		if filter.IsInternal != nil {
			q = q.Where("is_internal = ?", *filter.IsInternal)
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("accord: list roles: %w", err)
	}
	result := make([]*acr.Role, len(models))
	for i := range models {
		result[i] = roleFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountRoles(ctx context.Context, filter *acr.ListFilter) (int64, error) {
	q := s.pgdb.NewSelect((*roleModel)(nil))
	if filter != nil {
		if filter.ObjectType != "" {
			q = q.Where("object_type = ?", filter.ObjectType)
		}
		if filter.Name != "" {
			q = q.Where("name = ?", filter.Name)
		}
		if filter.IsInternal != nil {
			q = q.Where("is_internal = ?", *filter.IsInternal)
		}
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("accord: count roles: %w", err)
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// ACL entry operations
// ──────────────────────────────────────────────────

func (s *Store) CreateEntry(ctx context.Context, e *acl.Entry) error {
	if err := s.validateEntry(ctx, e, nil); err != nil {
		return err
	}
	e.CreatedAt = time.Now().UTC()

	tx, err := s.pgdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("accord: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	if _, err := tx.NewInsert(entryToModel(e)).Exec(ctx); err != nil {
		return fmt.Errorf("accord: create entry: %w", err)
	}
	for _, pid := range e.People {
		m := &entryPersonModel{EntryID: e.ID.String(), PersonID: pid.String()}
		if _, err := tx.NewInsert(m).Exec(ctx); err != nil {
			return fmt.Errorf("accord: create entry membership: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("accord: commit tx: %w", err)
	}
	return nil
}

func (s *Store) CreateEntries(ctx context.Context, entries []*acl.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	// Validate the batch up-front; bases may be satisfied by earlier
	// members of the same batch.
	inBatch := make(map[string]bool, len(entries))
	for _, e := range entries {
		if err := s.validateEntry(ctx, e, inBatch); err != nil {
			return err
		}
		inBatch[e.ID.String()] = true
	}

	now := time.Now().UTC()
	tx, err := s.pgdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("accord: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	for _, e := range entries {
		e.CreatedAt = now
		if _, err := tx.NewInsert(entryToModel(e)).Exec(ctx); err != nil {
			return fmt.Errorf("accord: create entries: %w", err)
		}
		for _, pid := range e.People {
			m := &entryPersonModel{EntryID: e.ID.String(), PersonID: pid.String()}
			if _, err := tx.NewInsert(m).Exec(ctx); err != nil {
				return fmt.Errorf("accord: create entries membership: %w", err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("accord: commit tx: %w", err)
	}
	return nil
}

// validateEntry enforces (object, role, base) uniqueness and base
// integrity. inBatch names entry IDs that will exist once the current
// batch commits.
func (s *Store) validateEntry(ctx context.Context, e *acl.Entry, inBatch map[string]bool) error {
	q := s.pgdb.NewSelect((*entryModel)(nil)).
		Where("object_type = ?", e.ObjectType).
		Where("object_id = ?", e.ObjectID).
		Where("role_id = ?", e.RoleID.String())
	if e.BaseID == nil {
		q = q.Where("base_id IS NULL")
	} else {
		q = q.Where("base_id = ?", e.BaseID.String())
	}
	count, err := q.Count(ctx)
	if err != nil {
		return fmt.Errorf("accord: validate entry: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%s:%s role %s: %w", e.ObjectType, e.ObjectID, e.RoleID, acl.ErrDuplicateEntry)
	}

	for _, ref := range []*id.EntryID{e.BaseID, e.ParentID} {
		if ref == nil || (inBatch != nil && inBatch[ref.String()]) {
			continue
		}
		n, err := s.pgdb.NewSelect((*entryModel)(nil)).
			Where("id = ?", ref.String()).
			Count(ctx)
		if err != nil {
			return fmt.Errorf("accord: validate entry base: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("entry %s references %s: %w", e.ID, ref, acl.ErrMissingBase)
		}
	}
	return nil
}

func (s *Store) GetEntry(ctx context.Context, entryID id.EntryID) (*acl.Entry, error) {
	m := new(entryModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", entryID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("entry %s: %w", entryID, acl.ErrEntryNotFound)
		}
		return nil, fmt.Errorf("accord: get entry: %w", err)
	}
	e := entryFromModel(m)
	if err := s.fillPeople(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Store) DeleteEntry(ctx context.Context, entryID id.EntryID) error {
	e, err := s.GetEntry(ctx, entryID)
	if err != nil {
		return err
	}

	doomed := []string{e.ID.String()}
	rootID := e.ID
	if e.BaseID != nil {
		rootID = *e.BaseID
	}
	family, err := s.ListDescendants(ctx, rootID)
	if err != nil {
		return err
	}

	if e.IsDirect() {
		// The whole closure below a direct entry goes with it.
		for _, d := range family {
			doomed = append(doomed, d.ID.String())
		}
	} else {
		// Only the subtree below the derived entry goes, traced
		// through the parent chain.
		children := make(map[string][]string, len(family))
		for _, d := range family {
			if d.ParentID != nil {
				p := d.ParentID.String()
				children[p] = append(children[p], d.ID.String())
			}
		}
		frontier := []string{e.ID.String()}
		for len(frontier) > 0 {
			next := frontier[0]
			frontier = frontier[1:]
			for _, c := range children[next] {
				doomed = append(doomed, c)
				frontier = append(frontier, c)
			}
		}
	}

	tx, err := s.pgdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("accord: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	for _, did := range doomed {
		if _, err := tx.NewDelete((*entryPersonModel)(nil)).
			Where("entry_id = ?", did).Exec(ctx); err != nil {
			return fmt.Errorf("accord: delete entry memberships: %w", err)
		}
		if _, err := tx.NewDelete((*entryModel)(nil)).
			Where("id = ?", did).Exec(ctx); err != nil {
			return fmt.Errorf("accord: delete entry: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("accord: commit tx: %w", err)
	}
	return nil
}

func (s *Store) DeleteEntriesByObject(ctx context.Context, objectType, objectID string) error {
	entries, err := s.EntriesOnObject(ctx, objectType, objectID)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := s.DeleteEntry(ctx, e.ID); err != nil && !errors.Is(err, acl.ErrEntryNotFound) {
			return err
		}
	}
	return nil
}

func (s *Store) EntriesForPerson(ctx context.Context, personID id.PersonID) ([]*acl.Entry, error) {
	var models []entryModel
	err := s.pgdb.NewSelect(&models).
		Join("JOIN", "accord_entry_people AS ep", "ep.entry_id = accord_entries.id").
		Where("ep.person_id = ?", personID.String()).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("accord: entries for person: %w", err)
	}
	return s.entriesFromModels(ctx, models)
}

func (s *Store) EntriesOnObject(ctx context.Context, objectType, objectID string) ([]*acl.Entry, error) {
	var models []entryModel
	err := s.pgdb.NewSelect(&models).
		Where("object_type = ?", objectType).
		Where("object_id = ?", objectID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("accord: entries on object: %w", err)
	}
	return s.entriesFromModels(ctx, models)
}

func (s *Store) ListEntries(ctx context.Context, filter *acl.ListFilter) ([]*acl.Entry, error) {
	var models []entryModel
	q := s.pgdb.NewSelect(&models).OrderExpr("id ASC")
	if filter != nil {
		if filter.ObjectType != "" {
			q = q.Where("object_type = ?", filter.ObjectType)
		}
		if filter.ObjectID != "" {
			q = q.Where("object_id = ?", filter.ObjectID)
		}
		if filter.RoleID != nil {
			q = q.Where("role_id = ?", filter.RoleID.String())
		}
		if filter.BaseID != nil {
			q = q.Where("base_id = ?", filter.BaseID.String())
		}
		if filter.DirectOnly {
			q = q.Where("base_id IS NULL")
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("accord: list entries: %w", err)
	}
	return s.entriesFromModels(ctx, models)
}

func (s *Store) ListDescendants(ctx context.Context, baseID id.EntryID) ([]*acl.Entry, error) {
	var models []entryModel
	err := s.pgdb.NewSelect(&models).
		Where("base_id = ?", baseID.String()).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("accord: list descendants: %w", err)
	}
	return s.entriesFromModels(ctx, models)
}

func (s *Store) AddEntryPerson(ctx context.Context, entryID id.EntryID, personID id.PersonID) error {
	m := &entryPersonModel{EntryID: entryID.String(), PersonID: personID.String()}
	_, err := s.pgdb.NewInsert(m).
		OnConflict("(entry_id, person_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("accord: add entry person: %w", err)
	}
	return nil
}

func (s *Store) RemoveEntryPerson(ctx context.Context, entryID id.EntryID, personID id.PersonID) error {
	_, err := s.pgdb.NewDelete((*entryPersonModel)(nil)).
		Where("entry_id = ?", entryID.String()).
		Where("person_id = ?", personID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("accord: remove entry person: %w", err)
	}
	return nil
}

func (s *Store) ListEntryPeople(ctx context.Context, entryID id.EntryID) ([]id.PersonID, error) {
	var models []entryPersonModel
	err := s.pgdb.NewSelect(&models).
		Where("entry_id = ?", entryID.String()).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("accord: list entry people: %w", err)
	}
	people := make([]id.PersonID, 0, len(models))
	for _, m := range models {
		pid, err := id.ParsePersonID(m.PersonID)
		if err == nil {
			people = append(people, pid)
		}
	}
	return people, nil
}

func (s *Store) RemovePersonMemberships(ctx context.Context, personID id.PersonID) error {
	_, err := s.pgdb.NewDelete((*entryPersonModel)(nil)).
		Where("person_id = ?", personID.String()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("accord: remove person memberships: %w", err)
	}
	return nil
}

func (s *Store) entriesFromModels(ctx context.Context, models []entryModel) ([]*acl.Entry, error) {
	result := make([]*acl.Entry, len(models))
	for i := range models {
		result[i] = entryFromModel(&models[i])
		if err := s.fillPeople(ctx, result[i]); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *Store) fillPeople(ctx context.Context, e *acl.Entry) error {
	people, err := s.ListEntryPeople(ctx, e.ID)
	if err != nil {
		return err
	}
	e.People = people
	return nil
}

// ──────────────────────────────────────────────────
// Person operations
// ──────────────────────────────────────────────────

func (s *Store) CreatePerson(ctx context.Context, p *person.Person) error {
	count, err := s.pgdb.NewSelect((*personModel)(nil)).
		Where("LOWER(email) = LOWER(?)", p.Email).
		Count(ctx)
	if err != nil {
		return fmt.Errorf("accord: create person: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%s: %w", p.Email, person.ErrDuplicateEmail)
	}

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if _, err := s.pgdb.NewInsert(personToModel(p)).Exec(ctx); err != nil {
		return fmt.Errorf("accord: create person: %w", err)
	}
	return nil
}

func (s *Store) GetPerson(ctx context.Context, personID id.PersonID) (*person.Person, error) {
	m := new(personModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", personID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("person %s: %w", personID, person.ErrPersonNotFound)
		}
		return nil, fmt.Errorf("accord: get person: %w", err)
	}
	return personFromModel(m), nil
}

func (s *Store) GetPersonByEmail(ctx context.Context, email string) (*person.Person, error) {
	m := new(personModel)
	err := s.pgdb.NewSelect(m).
		Where("LOWER(email) = LOWER(?)", email).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("person %q: %w", email, person.ErrPersonNotFound)
		}
		return nil, fmt.Errorf("accord: get person by email: %w", err)
	}
	return personFromModel(m), nil
}

func (s *Store) UpdatePerson(ctx context.Context, p *person.Person) error {
	p.UpdatedAt = time.Now().UTC()
	if _, err := s.pgdb.NewUpdate(personToModel(p)).WherePK().Exec(ctx); err != nil {
		return fmt.Errorf("accord: update person: %w", err)
	}
	return nil
}

func (s *Store) DeletePerson(ctx context.Context, personID id.PersonID) error {
	_, err := s.pgdb.NewDelete((*personModel)(nil)).
		Where("id = ?", personID.String()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("accord: delete person: %w", err)
	}
	return nil
}

func (s *Store) ListPeople(ctx context.Context, filter *person.ListFilter) ([]*person.Person, error) {
	var models []personModel
	q := s.pgdb.NewSelect(&models).OrderExpr("email ASC")
	if filter != nil {
		if filter.Email != "" {
			q = q.Where("LOWER(email) = LOWER(?)", filter.Email)
		}
		if filter.SystemRole != nil {
			q = q.Where("system_role = ?", string(*filter.SystemRole))
		}
		if filter.Search != "" {
			q = q.Where("(LOWER(name) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?))",
				"%"+filter.Search+"%", "%"+filter.Search+"%")
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("accord: list people: %w", err)
	}
	result := make([]*person.Person, len(models))
	for i := range models {
		result[i] = personFromModel(&models[i])
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Relationship operations
// ──────────────────────────────────────────────────

func (s *Store) CreateRelationship(ctx context.Context, r *relationship.Relationship) error {
	// The pair is unique regardless of orientation.
	for _, pair := range [][4]string{
		{r.SourceType, r.SourceID, r.DestinationType, r.DestinationID},
		{r.DestinationType, r.DestinationID, r.SourceType, r.SourceID},
	} {
		count, err := s.pgdb.NewSelect((*relationshipModel)(nil)).
			Where("source_type = ?", pair[0]).
			Where("source_id = ?", pair[1]).
			Where("destination_type = ?", pair[2]).
			Where("destination_id = ?", pair[3]).
			Count(ctx)
		if err != nil {
			return fmt.Errorf("accord: create relationship: %w", err)
		}
		if count > 0 {
			return fmt.Errorf("%s:%s — %s:%s: %w",
				r.SourceType, r.SourceID, r.DestinationType, r.DestinationID,
				relationship.ErrDuplicateRelationship)
		}
	}

	r.CreatedAt = time.Now().UTC()
	if _, err := s.pgdb.NewInsert(relationshipToModel(r)).Exec(ctx); err != nil {
		return fmt.Errorf("accord: create relationship: %w", err)
	}
	return nil
}

func (s *Store) GetRelationship(ctx context.Context, relID id.RelationshipID) (*relationship.Relationship, error) {
	m := new(relationshipModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", relID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("relationship %s: %w", relID, relationship.ErrRelationshipNotFound)
		}
		return nil, fmt.Errorf("accord: get relationship: %w", err)
	}
	return relationshipFromModel(m), nil
}

func (s *Store) DeleteRelationship(ctx context.Context, relID id.RelationshipID) error {
	_, err := s.pgdb.NewDelete((*relationshipModel)(nil)).
		Where("id = ?", relID.String()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("accord: delete relationship: %w", err)
	}
	return nil
}

func (s *Store) ListRelationships(ctx context.Context, filter *relationship.ListFilter) ([]*relationship.Relationship, error) {
	var models []relationshipModel
	q := s.pgdb.NewSelect(&models).OrderExpr("created_at ASC")
	if filter != nil {
		if filter.ObjectType != "" && filter.ObjectID != "" {
			q = q.Where("((source_type = ? AND source_id = ?) OR (destination_type = ? AND destination_id = ?))",
				filter.ObjectType, filter.ObjectID, filter.ObjectType, filter.ObjectID)
		}
		if filter.OtherType != "" {
			q = q.Where("(source_type = ? OR destination_type = ?)", filter.OtherType, filter.OtherType)
		}
		if filter.IsExternal != nil {
			q = q.Where("is_external = ?", *filter.IsExternal)
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("accord: list relationships: %w", err)
	}
	result := make([]*relationship.Relationship, len(models))
	for i := range models {
		result[i] = relationshipFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) Neighbors(ctx context.Context, objectType, objectID string) ([]*relationship.Relationship, error) {
	var models []relationshipModel
	err := s.pgdb.NewSelect(&models).
		Where("((source_type = ? AND source_id = ?) OR (destination_type = ? AND destination_id = ?))",
			objectType, objectID, objectType, objectID).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("accord: neighbors: %w", err)
	}
	result := make([]*relationship.Relationship, len(models))
	for i := range models {
		result[i] = relationshipFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) DeleteRelationshipsByObject(ctx context.Context, objectType, objectID string) error {
	_, err := s.pgdb.NewDelete((*relationshipModel)(nil)).
		Where("((source_type = ? AND source_id = ?) OR (destination_type = ? AND destination_id = ?))",
			objectType, objectID, objectType, objectID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("accord: delete relationships by object: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// External mapping operations
// ──────────────────────────────────────────────────

func (s *Store) CreateMapping(ctx context.Context, m *extmap.Mapping) error {
	external, err := s.pgdb.NewSelect((*mappingModel)(nil)).
		Where("external_id = ?", m.ExternalID).
		Where("external_type = ?", m.ExternalType).
		Count(ctx)
	if err != nil {
		return fmt.Errorf("accord: create mapping: %w", err)
	}
	local, err := s.pgdb.NewSelect((*mappingModel)(nil)).
		Where("object_type = ?", m.ObjectType).
		Where("object_id = ?", m.ObjectID).
		Count(ctx)
	if err != nil {
		return fmt.Errorf("accord: create mapping: %w", err)
	}
	if external > 0 || local > 0 {
		return fmt.Errorf("%s:%s — %s: %w", m.ObjectType, m.ObjectID, m.ExternalID, extmap.ErrDuplicateMapping)
	}

	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	if _, err := s.pgdb.NewInsert(mappingToModel(m)).Exec(ctx); err != nil {
		return fmt.Errorf("accord: create mapping: %w", err)
	}
	return nil
}

func (s *Store) UpdateMapping(ctx context.Context, m *extmap.Mapping) error {
	m.UpdatedAt = time.Now().UTC()
	if _, err := s.pgdb.NewUpdate(mappingToModel(m)).WherePK().Exec(ctx); err != nil {
		return fmt.Errorf("accord: update mapping: %w", err)
	}
	return nil
}

func (s *Store) GetMappingByObject(ctx context.Context, objectType, objectID string) (*extmap.Mapping, error) {
	m := new(mappingModel)
	err := s.pgdb.NewSelect(m).
		Where("object_type = ?", objectType).
		Where("object_id = ?", objectID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("mapping %s:%s: %w", objectType, objectID, extmap.ErrMappingNotFound)
		}
		return nil, fmt.Errorf("accord: get mapping by object: %w", err)
	}
	return mappingFromModel(m), nil
}

func (s *Store) GetMappingByExternal(ctx context.Context, externalID, externalType string) (*extmap.Mapping, error) {
	m := new(mappingModel)
	err := s.pgdb.NewSelect(m).
		Where("external_id = ?", externalID).
		Where("external_type = ?", externalType).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("mapping %s/%s: %w", externalType, externalID, extmap.ErrMappingNotFound)
		}
		return nil, fmt.Errorf("accord: get mapping by external: %w", err)
	}
	return mappingFromModel(m), nil
}

func (s *Store) MappingsForObjects(ctx context.Context, objectType string, objectIDs []string) (map[string]*extmap.Mapping, error) {
	result := make(map[string]*extmap.Mapping, len(objectIDs))
	for _, objectID := range objectIDs {
		m, err := s.GetMappingByObject(ctx, objectType, objectID)
		if err != nil {
			if errors.Is(err, extmap.ErrMappingNotFound) {
				continue
			}
			return nil, err
		}
		result[m.ObjectType+":"+m.ObjectID] = m
	}
	return result, nil
}

func (s *Store) DeleteMappingByObject(ctx context.Context, objectType, objectID string) error {
	_, err := s.pgdb.NewDelete((*mappingModel)(nil)).
		Where("object_type = ?", objectType).
		Where("object_id = ?", objectID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("accord: delete mapping: %w", err)
	}
	return nil
}

func (s *Store) ListMappings(ctx context.Context, filter *extmap.ListFilter) ([]*extmap.Mapping, error) {
	var models []mappingModel
	q := s.pgdb.NewSelect(&models).OrderExpr("created_at ASC")
	if filter != nil {
		if filter.ObjectType != "" {
			q = q.Where("object_type = ?", filter.ObjectType)
		}
		if filter.ExternalType != "" {
			q = q.Where("external_type = ?", filter.ExternalType)
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("accord: list mappings: %w", err)
	}
	result := make([]*extmap.Mapping, len(models))
	for i := range models {
		result[i] = mappingFromModel(&models[i])
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Sync job operations
// ──────────────────────────────────────────────────

func (s *Store) CreateJob(ctx context.Context, j *syncjob.Job) error {
	if j.State == "" {
		j.State = syncjob.StatePending
	}
	now := time.Now().UTC()
	j.CreatedAt = now
	j.UpdatedAt = now
	if _, err := s.pgdb.NewInsert(jobToModel(j)).Exec(ctx); err != nil {
		return fmt.Errorf("accord: create job: %w", err)
	}
	return nil
}

func (s *Store) GetJob(ctx context.Context, jobID id.JobID) (*syncjob.Job, error) {
	m := new(jobModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", jobID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("job %s: %w", jobID, syncjob.ErrJobNotFound)
		}
		return nil, fmt.Errorf("accord: get job: %w", err)
	}
	return jobFromModel(m), nil
}

func (s *Store) UpdateJob(ctx context.Context, j *syncjob.Job) error {
	current := new(jobModel)
	err := s.pgdb.NewSelect(current).Where("id = ?", j.ID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return fmt.Errorf("job %s: %w", j.ID, syncjob.ErrJobNotFound)
		}
		return fmt.Errorf("accord: update job: %w", err)
	}
	currentState := syncjob.State(current.State)
	if currentState != j.State && !currentState.CanTransitionTo(j.State) {
		return fmt.Errorf("%s -> %s: %w", currentState, j.State, syncjob.ErrIllegalTransition)
	}

	j.CreatedAt = current.CreatedAt
	j.UpdatedAt = time.Now().UTC()
	m := jobToModel(j)
	m.CancelRequested = current.CancelRequested
	if _, err := s.pgdb.NewUpdate(m).WherePK().Exec(ctx); err != nil {
		return fmt.Errorf("accord: update job: %w", err)
	}
	return nil
}

func (s *Store) RequestCancel(ctx context.Context, jobID id.JobID) error {
	res, err := s.pgdb.NewUpdate((*jobModel)(nil)).
		Set("cancel_requested = ?", true).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", jobID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("accord: request cancel: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("job %s: %w", jobID, syncjob.ErrJobNotFound)
	}
	return nil
}

func (s *Store) CancelRequested(ctx context.Context, jobID id.JobID) (bool, error) {
	m := new(jobModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", jobID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return false, fmt.Errorf("job %s: %w", jobID, syncjob.ErrJobNotFound)
		}
		return false, fmt.Errorf("accord: cancel requested: %w", err)
	}
	return m.CancelRequested, nil
}

func (s *Store) ListJobs(ctx context.Context, filter *syncjob.ListFilter) ([]*syncjob.Job, error) {
	var models []jobModel
	q := s.pgdb.NewSelect(&models).OrderExpr("created_at DESC")
	if filter != nil {
		if filter.Kind != "" {
			q = q.Where("kind = ?", string(filter.Kind))
		}
		if filter.State != "" {
			q = q.Where("state = ?", string(filter.State))
		}
		if filter.RequesterEmail != "" {
			q = q.Where("LOWER(requester_email) = LOWER(?)", filter.RequesterEmail)
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("accord: list jobs: %w", err)
	}
	result := make([]*syncjob.Job, len(models))
	for i := range models {
		result[i] = jobFromModel(&models[i])
	}
	return result, nil
}
