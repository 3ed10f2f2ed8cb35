package plugin

import (
	"context"
	"log/slog"

	"github.com/grcware/accord/acl"
	"github.com/grcware/accord/acr"
	"github.com/grcware/accord/id"
	"github.com/grcware/accord/relationship"
	"github.com/grcware/accord/syncjob"
)

// Named entry types pair a hook with the plugin name for logging.

type beforeCheckEntry struct {
	name string
	hook BeforeCheck
}
type afterCheckEntry struct {
	name string
	hook AfterCheck
}
type roleCreatedEntry struct {
	name string
	hook RoleCreated
}
type roleUpdatedEntry struct {
	name string
	hook RoleUpdated
}
type roleDeletedEntry struct {
	name string
	hook RoleDeleted
}
type grantIssuedEntry struct {
	name string
	hook GrantIssued
}
type grantRevokedEntry struct {
	name string
	hook GrantRevoked
}
type relationshipWrittenEntry struct {
	name string
	hook RelationshipWritten
}
type relationshipDeletedEntry struct {
	name string
	hook RelationshipDeleted
}
type jobStartedEntry struct {
	name string
	hook JobStarted
}
type jobFinishedEntry struct {
	name string
	hook JobFinished
}
type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered plugins and dispatches lifecycle events.
// It type-caches plugins at registration time so emit calls iterate
// only over plugins implementing the relevant hook.
type Registry struct {
	plugins []Plugin
	logger  *slog.Logger

	beforeCheck         []beforeCheckEntry
	afterCheck          []afterCheckEntry
	roleCreated         []roleCreatedEntry
	roleUpdated         []roleUpdatedEntry
	roleDeleted         []roleDeletedEntry
	grantIssued         []grantIssuedEntry
	grantRevoked        []grantRevokedEntry
	relationshipWritten []relationshipWrittenEntry
	relationshipDeleted []relationshipDeletedEntry
	jobStarted          []jobStartedEntry
	jobFinished         []jobFinishedEntry
	shutdown            []shutdownEntry
}

// NewRegistry creates a plugin registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds a plugin and type-asserts it into all applicable
// hook caches. Plugins are notified in registration order.
func (r *Registry) Register(p Plugin) {
	r.plugins = append(r.plugins, p)
	name := p.Name()

	if h, ok := p.(BeforeCheck); ok {
		r.beforeCheck = append(r.beforeCheck, beforeCheckEntry{name, h})
	}
	if h, ok := p.(AfterCheck); ok {
		r.afterCheck = append(r.afterCheck, afterCheckEntry{name, h})
	}
	if h, ok := p.(RoleCreated); ok {
		r.roleCreated = append(r.roleCreated, roleCreatedEntry{name, h})
	}
	if h, ok := p.(RoleUpdated); ok {
		r.roleUpdated = append(r.roleUpdated, roleUpdatedEntry{name, h})
	}
	if h, ok := p.(RoleDeleted); ok {
		r.roleDeleted = append(r.roleDeleted, roleDeletedEntry{name, h})
	}
	if h, ok := p.(GrantIssued); ok {
		r.grantIssued = append(r.grantIssued, grantIssuedEntry{name, h})
	}
	if h, ok := p.(GrantRevoked); ok {
		r.grantRevoked = append(r.grantRevoked, grantRevokedEntry{name, h})
	}
	if h, ok := p.(RelationshipWritten); ok {
		r.relationshipWritten = append(r.relationshipWritten, relationshipWrittenEntry{name, h})
	}
	if h, ok := p.(RelationshipDeleted); ok {
		r.relationshipDeleted = append(r.relationshipDeleted, relationshipDeletedEntry{name, h})
	}
	if h, ok := p.(JobStarted); ok {
		r.jobStarted = append(r.jobStarted, jobStartedEntry{name, h})
	}
	if h, ok := p.(JobFinished); ok {
		r.jobFinished = append(r.jobFinished, jobFinishedEntry{name, h})
	}
	if h, ok := p.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Plugins returns all registered plugins.
func (r *Registry) Plugins() []Plugin { return r.plugins }

// ──────────────────────────────────────────────────
// Check event emitters
// ──────────────────────────────────────────────────

// EmitBeforeCheck notifies all plugins that implement BeforeCheck.
func (r *Registry) EmitBeforeCheck(ctx context.Context, req any) {
	for _, e := range r.beforeCheck {
		if err := e.hook.OnBeforeCheck(ctx, req); err != nil {
			r.logHookError("OnBeforeCheck", e.name, err)
		}
	}
}

// EmitAfterCheck notifies all plugins that implement AfterCheck.
func (r *Registry) EmitAfterCheck(ctx context.Context, req, result any) {
	for _, e := range r.afterCheck {
		if err := e.hook.OnAfterCheck(ctx, req, result); err != nil {
			r.logHookError("OnAfterCheck", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Role event emitters
// ──────────────────────────────────────────────────

// EmitRoleCreated notifies all plugins that implement RoleCreated.
func (r *Registry) EmitRoleCreated(ctx context.Context, rl *acr.Role) {
	for _, e := range r.roleCreated {
		if err := e.hook.OnRoleCreated(ctx, rl); err != nil {
			r.logHookError("OnRoleCreated", e.name, err)
		}
	}
}

// EmitRoleUpdated notifies all plugins that implement RoleUpdated.
func (r *Registry) EmitRoleUpdated(ctx context.Context, rl *acr.Role) {
	for _, e := range r.roleUpdated {
		if err := e.hook.OnRoleUpdated(ctx, rl); err != nil {
			r.logHookError("OnRoleUpdated", e.name, err)
		}
	}
}

// EmitRoleDeleted notifies all plugins that implement RoleDeleted.
func (r *Registry) EmitRoleDeleted(ctx context.Context, roleID id.RoleID) {
	for _, e := range r.roleDeleted {
		if err := e.hook.OnRoleDeleted(ctx, roleID); err != nil {
			r.logHookError("OnRoleDeleted", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Grant event emitters
// ──────────────────────────────────────────────────

// EmitGrantIssued notifies all plugins that implement GrantIssued.
func (r *Registry) EmitGrantIssued(ctx context.Context, direct *acl.Entry, derived []*acl.Entry) {
	for _, e := range r.grantIssued {
		if err := e.hook.OnGrantIssued(ctx, direct, derived); err != nil {
			r.logHookError("OnGrantIssued", e.name, err)
		}
	}
}

// EmitGrantRevoked notifies all plugins that implement GrantRevoked.
func (r *Registry) EmitGrantRevoked(ctx context.Context, entryID id.EntryID) {
	for _, e := range r.grantRevoked {
		if err := e.hook.OnGrantRevoked(ctx, entryID); err != nil {
			r.logHookError("OnGrantRevoked", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Relationship event emitters
// ──────────────────────────────────────────────────

// EmitRelationshipWritten notifies all plugins that implement RelationshipWritten.
func (r *Registry) EmitRelationshipWritten(ctx context.Context, rel *relationship.Relationship) {
	for _, e := range r.relationshipWritten {
		if err := e.hook.OnRelationshipWritten(ctx, rel); err != nil {
			r.logHookError("OnRelationshipWritten", e.name, err)
		}
	}
}

// EmitRelationshipDeleted notifies all plugins that implement RelationshipDeleted.
func (r *Registry) EmitRelationshipDeleted(ctx context.Context, relID id.RelationshipID) {
	for _, e := range r.relationshipDeleted {
		if err := e.hook.OnRelationshipDeleted(ctx, relID); err != nil {
			r.logHookError("OnRelationshipDeleted", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Sync job event emitters
// ──────────────────────────────────────────────────

// EmitJobStarted notifies all plugins that implement JobStarted.
func (r *Registry) EmitJobStarted(ctx context.Context, j *syncjob.Job) {
	for _, e := range r.jobStarted {
		if err := e.hook.OnJobStarted(ctx, j); err != nil {
			r.logHookError("OnJobStarted", e.name, err)
		}
	}
}

// EmitJobFinished notifies all plugins that implement JobFinished.
func (r *Registry) EmitJobFinished(ctx context.Context, j *syncjob.Job) {
	for _, e := range r.jobFinished {
		if err := e.hook.OnJobFinished(ctx, j); err != nil {
			r.logHookError("OnJobFinished", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Shutdown emitter
// ──────────────────────────────────────────────────

// EmitShutdown notifies all plugins that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated — they must not block the pipeline.
func (r *Registry) logHookError(hook, pluginName string, err error) {
	r.logger.Warn("plugin hook error",
		slog.String("hook", hook),
		slog.String("plugin", pluginName),
		slog.String("error", err.Error()),
	)
}
