package api

import (
	"github.com/grcware/accord/acr"
)

// ──────────────────────────────────────────────────
// Check requests
// ──────────────────────────────────────────────────

// CheckRequest is the request body for a permission check.
type CheckRequest struct {
	PersonID   string `json:"person_id" description:"Acting person ID"`
	Email      string `json:"email,omitempty" description:"Acting person email"`
	SystemRole string `json:"system_role,omitempty" description:"Acting person system role"`
	Action     string `json:"action" description:"Action name (read, update, delete)"`
	ObjectType string `json:"object_type" description:"Object type"`
	ObjectID   string `json:"object_id" description:"Object identifier"`
}

// BatchCheckRequest contains multiple checks for one person.
type BatchCheckRequest struct {
	Checks []CheckRequest `json:"checks" description:"List of permission checks"`
}

// ──────────────────────────────────────────────────
// Role requests
// ──────────────────────────────────────────────────

// CreateRoleRequest is the body for creating a role.
type CreateRoleRequest struct {
	ObjectType   string           `json:"object_type" description:"Object type the role applies to"`
	Name         string           `json:"name" description:"Role name, unique per object type"`
	Capabilities acr.Capabilities `json:"capabilities" description:"Capability bits, immutable after creation"`
	IsInternal   bool             `json:"is_internal,omitempty" description:"Hide from end-user pickers"`
}

// UpdateRoleRequest is the body for updating a role. Capability bits
// cannot be changed after creation.
type UpdateRoleRequest struct {
	Name       string `json:"name,omitempty" description:"Role name"`
	IsInternal *bool  `json:"is_internal,omitempty" description:"Hide from end-user pickers"`
}

// GetRoleRequest is the path parameter for getting a role.
type GetRoleRequest struct {
	RoleID string `path:"roleId" description:"Role ID"`
}

// ListRolesRequest holds query parameters for listing roles.
type ListRolesRequest struct {
	ObjectType string `query:"object_type" description:"Filter by object type"`
	Name       string `query:"name" description:"Filter by exact name"`
	Limit      int    `query:"limit" description:"Maximum results (default: 50)"`
	Offset     int    `query:"offset" description:"Results to skip"`
}

// ──────────────────────────────────────────────────
// Grant requests
// ──────────────────────────────────────────────────

// CreateGrantRequest is the body for granting a role on an object.
// Propagation across the relationship graph happens as part of the call.
type CreateGrantRequest struct {
	ObjectType string   `json:"object_type" description:"Object type"`
	ObjectID   string   `json:"object_id" description:"Object identifier"`
	RoleID     string   `json:"role_id" description:"Role to grant"`
	People     []string `json:"people" description:"Person IDs receiving the grant"`
}

// GetGrantRequest is the path parameter for addressing a grant.
type GetGrantRequest struct {
	EntryID string `path:"entryId" description:"ACL entry ID"`
}

// AssignPersonRequest is the body for attaching a person to a grant.
type AssignPersonRequest struct {
	PersonID string `json:"person_id" description:"Person ID to attach"`
}

// ListGrantsRequest holds path parameters for listing an object's grants.
type ListGrantsRequest struct {
	ObjectType string `path:"objectType" description:"Object type"`
	ObjectID   string `path:"objectId" description:"Object identifier"`
}

// ──────────────────────────────────────────────────
// Person requests
// ──────────────────────────────────────────────────

// CreatePersonRequest is the body for creating a person.
type CreatePersonRequest struct {
	Email      string `json:"email" description:"Email, unique case-insensitively"`
	Name       string `json:"name,omitempty" description:"Display name"`
	SystemRole string `json:"system_role,omitempty" description:"System role (default: Reader)"`
}

// UpdatePersonRequest is the body for updating a person.
type UpdatePersonRequest struct {
	Name       string `json:"name,omitempty" description:"Display name"`
	SystemRole string `json:"system_role,omitempty" description:"System role"`
}

// GetPersonRequest is the path parameter for getting a person.
type GetPersonRequest struct {
	PersonID string `path:"personId" description:"Person ID"`
}

// ListPeopleRequest holds query parameters for listing people.
type ListPeopleRequest struct {
	Email  string `query:"email" description:"Filter by exact email"`
	Search string `query:"search" description:"Search by name or email"`
	Limit  int    `query:"limit" description:"Maximum results"`
	Offset int    `query:"offset" description:"Results to skip"`
}

// ──────────────────────────────────────────────────
// Relationship requests
// ──────────────────────────────────────────────────

// CreateRelationshipRequest is the body for linking two objects.
// Existing grants on either side propagate across the new link.
type CreateRelationshipRequest struct {
	SourceType      string `json:"source_type" description:"Source object type"`
	SourceID        string `json:"source_id" description:"Source object identifier"`
	DestinationType string `json:"destination_type" description:"Destination object type"`
	DestinationID   string `json:"destination_id" description:"Destination object identifier"`
	IsExternal      bool   `json:"is_external,omitempty" description:"Link originated outside the application"`
}

// GetRelationshipRequest is the path parameter for addressing a link.
type GetRelationshipRequest struct {
	RelationshipID string `path:"relationshipId" description:"Relationship ID"`
}

// ListRelationshipsRequest holds query parameters.
type ListRelationshipsRequest struct {
	ObjectType string `query:"object_type" description:"Filter by participating object type"`
	ObjectID   string `query:"object_id" description:"Filter by participating object ID"`
	Limit      int    `query:"limit" description:"Maximum results"`
	Offset     int    `query:"offset" description:"Results to skip"`
}

// ──────────────────────────────────────────────────
// Sync requests
// ──────────────────────────────────────────────────

// SubmitSyncJobRequest is the body for submitting a bulk sync job.
type SubmitSyncJobRequest struct {
	Kind           string           `json:"kind" description:"Job kind (create, update, verify)"`
	Objects        []SyncObjectRef  `json:"objects" description:"Objects to sync"`
	RequesterEmail string           `json:"requester_email" description:"Notification recipient"`
	Filename       string           `json:"filename,omitempty" description:"Source filename, if uploaded"`
	Title          string           `json:"title,omitempty" description:"Notification subject"`
	EmailText      string           `json:"email_text,omitempty" description:"Notification body text"`
}

// SyncObjectRef addresses one local object in a sync job.
type SyncObjectRef struct {
	Type string `json:"type" description:"Object type"`
	ID   string `json:"id" description:"Object identifier"`
}

// GetSyncJobRequest is the path parameter for addressing a job.
type GetSyncJobRequest struct {
	JobID string `path:"jobId" description:"Sync job ID"`
}

// ListSyncJobsRequest holds query parameters.
type ListSyncJobsRequest struct {
	Kind           string `query:"kind" description:"Filter by job kind"`
	State          string `query:"state" description:"Filter by job state"`
	RequesterEmail string `query:"requester_email" description:"Filter by requester"`
	Limit          int    `query:"limit" description:"Maximum results"`
	Offset         int    `query:"offset" description:"Results to skip"`
}
