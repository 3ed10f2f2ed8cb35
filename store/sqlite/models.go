package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/grcware/accord/acl"
	"github.com/grcware/accord/acr"
	"github.com/grcware/accord/extmap"
	"github.com/grcware/accord/id"
	"github.com/grcware/accord/person"
	"github.com/grcware/accord/relationship"
	"github.com/grcware/accord/syncjob"
)

// ──────────────────────────────────────────────────
// Role model
// ──────────────────────────────────────────────────

type roleModel struct {
	grove.BaseModel `grove:"table:accord_roles"`
	ID              string    `grove:"id,pk"`
	ObjectType      string    `grove:"object_type,notnull"`
	Name            string    `grove:"name,notnull"`
	Capabilities    string    `grove:"capabilities,notnull"` // JSON text
	IsInternal      bool      `grove:"is_internal,notnull"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func roleToModel(r *acr.Role) (*roleModel, error) {
	caps, err := json.Marshal(r.Capabilities)
	if err != nil {
		return nil, fmt.Errorf("marshal role capabilities: %w", err)
	}
	return &roleModel{
		ID:           r.ID.String(),
		ObjectType:   r.ObjectType,
		Name:         r.Name,
		Capabilities: string(caps),
		IsInternal:   r.IsInternal,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}, nil
}

func roleFromModel(m *roleModel) (*acr.Role, error) {
	rid, _ := id.ParseRoleID(m.ID) //nolint:errcheck // stored IDs are always valid
	r := &acr.Role{
		ID:         rid,
		ObjectType: m.ObjectType,
		Name:       m.Name,
		IsInternal: m.IsInternal,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
	if m.Capabilities != "" {
		if err := json.Unmarshal([]byte(m.Capabilities), &r.Capabilities); err != nil {
			return nil, fmt.Errorf("unmarshal role capabilities: %w", err)
		}
	}
	return r, nil
}

// ──────────────────────────────────────────────────
// ACL entry model
// ──────────────────────────────────────────────────

type entryModel struct {
	grove.BaseModel `grove:"table:accord_entries"`
	ID              string    `grove:"id,pk"`
	ObjectType      string    `grove:"object_type,notnull"`
	ObjectID        string    `grove:"object_id,notnull"`
	RoleID          string    `grove:"role_id,notnull"`
	BaseID          *string   `grove:"base_id"`
	ParentID        *string   `grove:"parent_id"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

func entryToModel(e *acl.Entry) *entryModel {
	m := &entryModel{
		ID:         e.ID.String(),
		ObjectType: e.ObjectType,
		ObjectID:   e.ObjectID,
		RoleID:     e.RoleID.String(),
		CreatedAt:  e.CreatedAt,
	}
	if e.BaseID != nil {
		s := e.BaseID.String()
		m.BaseID = &s
	}
	if e.ParentID != nil {
		s := e.ParentID.String()
		m.ParentID = &s
	}
	return m
}

func entryFromModel(m *entryModel) *acl.Entry {
	eid, _ := id.ParseEntryID(m.ID)    //nolint:errcheck // stored IDs are always valid
	rid, _ := id.ParseRoleID(m.RoleID) //nolint:errcheck // stored IDs are always valid
	e := &acl.Entry{
		ID:         eid,
		ObjectType: m.ObjectType,
		ObjectID:   m.ObjectID,
		RoleID:     rid,
		CreatedAt:  m.CreatedAt,
	}
	if m.BaseID != nil {
		bid, err := id.ParseEntryID(*m.BaseID)
		if err == nil {
			e.BaseID = &bid
		}
	}
	if m.ParentID != nil {
		pid, err := id.ParseEntryID(*m.ParentID)
		if err == nil {
			e.ParentID = &pid
		}
	}
	return e
}

// ──────────────────────────────────────────────────
// Entry-person junction model
// ──────────────────────────────────────────────────

type entryPersonModel struct {
	grove.BaseModel `grove:"table:accord_entry_people"`
	EntryID         string `grove:"entry_id,pk"`
	PersonID        string `grove:"person_id,pk"`
}

// ──────────────────────────────────────────────────
// Person model
// ──────────────────────────────────────────────────

type personModel struct {
	grove.BaseModel `grove:"table:accord_people"`
	ID              string    `grove:"id,pk"`
	Email           string    `grove:"email,notnull"`
	Name            string    `grove:"name"`
	SystemRole      string    `grove:"system_role,notnull"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func personToModel(p *person.Person) *personModel {
	return &personModel{
		ID:         p.ID.String(),
		Email:      p.Email,
		Name:       p.Name,
		SystemRole: string(p.SystemRole),
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func personFromModel(m *personModel) *person.Person {
	pid, _ := id.ParsePersonID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &person.Person{
		ID:         pid,
		Email:      m.Email,
		Name:       m.Name,
		SystemRole: person.SystemRole(m.SystemRole),
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Relationship model
// ──────────────────────────────────────────────────

type relationshipModel struct {
	grove.BaseModel `grove:"table:accord_relationships"`
	ID              string    `grove:"id,pk"`
	SourceType      string    `grove:"source_type,notnull"`
	SourceID        string    `grove:"source_id,notnull"`
	DestinationType string    `grove:"destination_type,notnull"`
	DestinationID   string    `grove:"destination_id,notnull"`
	IsExternal      bool      `grove:"is_external,notnull"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

func relationshipToModel(r *relationship.Relationship) *relationshipModel {
	return &relationshipModel{
		ID:              r.ID.String(),
		SourceType:      r.SourceType,
		SourceID:        r.SourceID,
		DestinationType: r.DestinationType,
		DestinationID:   r.DestinationID,
		IsExternal:      r.IsExternal,
		CreatedAt:       r.CreatedAt,
	}
}

func relationshipFromModel(m *relationshipModel) *relationship.Relationship {
	rid, _ := id.ParseRelationshipID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &relationship.Relationship{
		ID:              rid,
		SourceType:      m.SourceType,
		SourceID:        m.SourceID,
		DestinationType: m.DestinationType,
		DestinationID:   m.DestinationID,
		IsExternal:      m.IsExternal,
		CreatedAt:       m.CreatedAt,
	}
}

// ──────────────────────────────────────────────────
// External mapping model
// ──────────────────────────────────────────────────

type mappingModel struct {
	grove.BaseModel `grove:"table:accord_mappings"`
	ID              string    `grove:"id,pk"`
	ObjectType      string    `grove:"object_type,notnull"`
	ObjectID        string    `grove:"object_id,notnull"`
	ExternalID      string    `grove:"external_id,notnull"`
	ExternalType    string    `grove:"external_type,notnull"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func mappingToModel(m *extmap.Mapping) *mappingModel {
	return &mappingModel{
		ID:           m.ID.String(),
		ObjectType:   m.ObjectType,
		ObjectID:     m.ObjectID,
		ExternalID:   m.ExternalID,
		ExternalType: m.ExternalType,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func mappingFromModel(m *mappingModel) *extmap.Mapping {
	mid, _ := id.ParseMappingID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &extmap.Mapping{
		ID:           mid,
		ObjectType:   m.ObjectType,
		ObjectID:     m.ObjectID,
		ExternalID:   m.ExternalID,
		ExternalType: m.ExternalType,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Sync job model
// ──────────────────────────────────────────────────

type jobModel struct {
	grove.BaseModel `grove:"table:accord_sync_jobs"`
	ID              string    `grove:"id,pk"`
	Kind            string    `grove:"kind,notnull"`
	State           string    `grove:"state,notnull"`
	Objects         string    `grove:"objects,notnull"` // JSON text
	Results         string    `grove:"results,notnull"` // JSON text
	Filename        string    `grove:"filename"`
	RequesterEmail  string    `grove:"requester_email,notnull"`
	CancelRequested bool      `grove:"cancel_requested,notnull"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func jobToModel(j *syncjob.Job) (*jobModel, error) {
	objects, err := json.Marshal(j.Objects)
	if err != nil {
		return nil, fmt.Errorf("marshal job objects: %w", err)
	}
	results, err := json.Marshal(j.Results)
	if err != nil {
		return nil, fmt.Errorf("marshal job results: %w", err)
	}
	return &jobModel{
		ID:             j.ID.String(),
		Kind:           string(j.Kind),
		State:          string(j.State),
		Objects:        string(objects),
		Results:        string(results),
		Filename:       j.Filename,
		RequesterEmail: j.RequesterEmail,
		CreatedAt:      j.CreatedAt,
		UpdatedAt:      j.UpdatedAt,
	}, nil
}

func jobFromModel(m *jobModel) (*syncjob.Job, error) {
	jid, _ := id.ParseJobID(m.ID) //nolint:errcheck // stored IDs are always valid
	j := &syncjob.Job{
		ID:             jid,
		Kind:           syncjob.Kind(m.Kind),
		State:          syncjob.State(m.State),
		Filename:       m.Filename,
		RequesterEmail: m.RequesterEmail,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if m.Objects != "" {
		if err := json.Unmarshal([]byte(m.Objects), &j.Objects); err != nil {
			return nil, fmt.Errorf("unmarshal job objects: %w", err)
		}
	}
	if m.Results != "" {
		if err := json.Unmarshal([]byte(m.Results), &j.Results); err != nil {
			return nil, fmt.Errorf("unmarshal job results: %w", err)
		}
	}
	return j, nil
}
