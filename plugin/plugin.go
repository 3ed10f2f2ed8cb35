// Package plugin defines the plugin system for Accord.
// Plugins are notified of lifecycle events (check performed, role created,
// grant issued, sync job finished, etc.) and can react — logging, metrics,
// audit trails, etc.
//
// Each lifecycle hook is a separate interface so plugins opt in only
// to the events they care about.
package plugin

import (
	"context"

	"github.com/grcware/accord/acl"
	"github.com/grcware/accord/acr"
	"github.com/grcware/accord/id"
	"github.com/grcware/accord/relationship"
	"github.com/grcware/accord/syncjob"
)

// Plugin is the base interface all plugins must implement.
type Plugin interface {
	// Name returns a unique human-readable name for the plugin.
	Name() string
}

// ──────────────────────────────────────────────────
// Check lifecycle hooks
// ──────────────────────────────────────────────────

// BeforeCheck is called before a permission check is evaluated.
// The req parameter is *accord.AccessRequest (passed as any to avoid import cycle).
type BeforeCheck interface {
	OnBeforeCheck(ctx context.Context, req any) error
}

// AfterCheck is called after a permission check completes.
// The req parameter is *accord.AccessRequest; result is *accord.AccessResult.
type AfterCheck interface {
	OnAfterCheck(ctx context.Context, req, result any) error
}

// ──────────────────────────────────────────────────
// Role lifecycle hooks
// ──────────────────────────────────────────────────

// RoleCreated is called after a role is created.
type RoleCreated interface {
	OnRoleCreated(ctx context.Context, r *acr.Role) error
}

// RoleUpdated is called after a role is updated.
type RoleUpdated interface {
	OnRoleUpdated(ctx context.Context, r *acr.Role) error
}

// RoleDeleted is called after a role is deleted.
type RoleDeleted interface {
	OnRoleDeleted(ctx context.Context, roleID id.RoleID) error
}

// ──────────────────────────────────────────────────
// Grant lifecycle hooks
// ──────────────────────────────────────────────────

// GrantIssued is called after a direct ACL entry is created, with the
// derived entries propagation produced for it.
type GrantIssued interface {
	OnGrantIssued(ctx context.Context, direct *acl.Entry, derived []*acl.Entry) error
}

// GrantRevoked is called after a direct ACL entry and its derived
// closure are deleted.
type GrantRevoked interface {
	OnGrantRevoked(ctx context.Context, entryID id.EntryID) error
}

// ──────────────────────────────────────────────────
// Relationship lifecycle hooks
// ──────────────────────────────────────────────────

// RelationshipWritten is called after a relationship is created and its
// propagation applied.
type RelationshipWritten interface {
	OnRelationshipWritten(ctx context.Context, r *relationship.Relationship) error
}

// RelationshipDeleted is called after a relationship is deleted and the
// stranded derived entries removed.
type RelationshipDeleted interface {
	OnRelationshipDeleted(ctx context.Context, relID id.RelationshipID) error
}

// ──────────────────────────────────────────────────
// Sync job lifecycle hooks
// ──────────────────────────────────────────────────

// JobStarted is called when a sync job transitions to running.
type JobStarted interface {
	OnJobStarted(ctx context.Context, j *syncjob.Job) error
}

// JobFinished is called when a sync job reaches a terminal state.
type JobFinished interface {
	OnJobFinished(ctx context.Context, j *syncjob.Job) error
}

// ──────────────────────────────────────────────────
// Shutdown hook
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
