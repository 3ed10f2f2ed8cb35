package accord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/grcware/accord/acl"
	"github.com/grcware/accord/acr"
	"github.com/grcware/accord/id"
	"github.com/grcware/accord/relationship"
	"github.com/grcware/accord/store"
)

// propagator walks the relationship graph under a direct ACL entry and
// materializes the derived entries the rule tree prescribes.
type propagator struct {
	store    store.Store
	registry *Registry
	rules    RuleSet
	cfg      Config
	logger   *slog.Logger
}

type frontierItem struct {
	entry *acl.Entry
	nodes []*RuleNode
	depth int
}

// closureFrom computes the derived closure below the given direct entry
// without writing anything, so callers can batch the write with other
// mutations. The base itself need not be persisted yet. The walk is
// breadth-first with a visited set, so cyclic relationship graphs
// terminate, and it is idempotent: descendants that already exist are
// skipped but still walked, so re-propagation after a new relationship
// extends the closure instead of duplicating it.
func (p *propagator) closureFrom(ctx context.Context, base *acl.Entry) ([]*acl.Entry, error) {
	if !base.IsDirect() {
		return nil, fmt.Errorf("%w: propagation must start at a direct entry", ErrInvariantViolation)
	}

	baseRole, err := p.registry.Role(ctx, base.RoleID)
	if err != nil {
		return nil, fmt.Errorf("resolve base role: %w", err)
	}
	roots := p.rules.RulesFor(base.ObjectType, baseRole.Name)
	if len(roots) == 0 {
		return nil, nil
	}

	existing, err := p.store.ListDescendants(ctx, base.ID)
	if err != nil {
		return nil, fmt.Errorf("list descendants: %w", err)
	}
	seen := make(map[string]*acl.Entry, len(existing))
	for _, e := range existing {
		seen[derivedKey(e.ObjectType, e.ObjectID, e.RoleID)] = e
	}

	var (
		created []*acl.Entry
		walked  = make(map[string]bool)
		queue   = []frontierItem{{entry: base, nodes: roots, depth: 0}}
	)

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		if item.depth >= p.cfg.MaxPropagationDepth {
			p.logger.Warn("propagation depth bound hit, committing partial closure",
				"error", ErrDepthExceeded,
				"base", base.ID.String(),
				"object", item.entry.ObjectType+":"+item.entry.ObjectID,
				"depth", item.depth)
			continue
		}

		rels, err := p.store.Neighbors(ctx, item.entry.ObjectType, item.entry.ObjectID)
		if err != nil {
			return nil, fmt.Errorf("neighbors of %s:%s: %w", item.entry.ObjectType, item.entry.ObjectID, err)
		}

		for _, node := range item.nodes {
			targets, err := p.expandTargets(node, baseRole)
			if err != nil {
				return nil, err
			}

			for _, rel := range rels {
				if rel.IsExternal && !node.AllowExternal {
					continue
				}
				other, ok := rel.Other(item.entry.ObjectType, item.entry.ObjectID)
				if !ok || !targets[other.Type] {
					continue
				}

				derivedRole, err := p.registry.RoleByName(ctx, other.Type, node.Role)
				if err != nil {
					return nil, fmt.Errorf("derived role %q on %s: %w", node.Role, other.Type, err)
				}
				if !derivedRole.Capabilities.SubsetOf(baseRole.Capabilities) {
					return nil, fmt.Errorf("%w: %s/%s exceeds %s/%s",
						ErrInvariantViolation,
						derivedRole.ObjectType, derivedRole.Name,
						baseRole.ObjectType, baseRole.Name)
				}

				key := derivedKey(other.Type, other.ID, derivedRole.ID)
				if walked[key] {
					continue
				}
				walked[key] = true

				if ex, ok := seen[key]; ok {
					queue = append(queue, frontierItem{entry: ex, nodes: node.Children, depth: item.depth + 1})
					continue
				}

				derived := &acl.Entry{
					ID:         id.NewEntryID(),
					ObjectType: other.Type,
					ObjectID:   other.ID,
					RoleID:     derivedRole.ID,
					BaseID:     &base.ID,
					ParentID:   &item.entry.ID,
					People:     append([]id.PersonID(nil), base.People...),
				}
				created = append(created, derived)
				seen[key] = derived
				queue = append(queue, frontierItem{entry: derived, nodes: node.Children, depth: item.depth + 1})
			}
		}
	}

	return created, nil
}

// expandTargets resolves a node's target type, expanding the wildcard to
// every registered type. Wildcards are reserved for bootstrap roles.
func (p *propagator) expandTargets(node *RuleNode, baseRole *acr.Role) (map[string]bool, error) {
	targets := make(map[string]bool)
	if node.TargetType == AllTypes {
		if !p.cfg.isBootstrapRole(baseRole.Name) {
			return nil, fmt.Errorf("%w: role %q", ErrWildcardNotAllowed, baseRole.Name)
		}
		for _, t := range p.cfg.ObjectTypes {
			targets[t] = true
		}
		return targets, nil
	}
	targets[node.TargetType] = true
	return targets, nil
}

// rootEntries returns the distinct direct ancestors of every entry on
// the object. For a direct entry that is the entry itself; for a derived
// entry it is the entry its BaseID names.
func (p *propagator) rootEntries(ctx context.Context, objectType, objectID string) ([]*acl.Entry, error) {
	entries, err := p.store.EntriesOnObject(ctx, objectType, objectID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*acl.Entry)
	for _, e := range entries {
		if e.IsDirect() {
			byID[e.ID.String()] = e
			continue
		}
		if _, ok := byID[e.BaseID.String()]; ok {
			continue
		}
		root, err := p.store.GetEntry(ctx, *e.BaseID)
		if err != nil {
			return nil, fmt.Errorf("resolve base of %s: %w", e.ID, err)
		}
		byID[root.ID.String()] = root
	}

	roots := make([]*acl.Entry, 0, len(byID))
	for _, e := range byID {
		roots = append(roots, e)
	}
	return roots, nil
}

// relationshipAdded extends the derived closure across the new edge by
// re-propagating every root entry touching either endpoint. The full
// set of new entries is computed first and written in one atomic batch,
// so a constraint violation under any root leaves nothing behind.
func (p *propagator) relationshipAdded(ctx context.Context, rel *relationship.Relationship) ([]*acl.Entry, error) {
	var created []*acl.Entry
	for _, ep := range []relationship.Endpoint{
		{Type: rel.SourceType, ID: rel.SourceID},
		{Type: rel.DestinationType, ID: rel.DestinationID},
	} {
		roots, err := p.rootEntries(ctx, ep.Type, ep.ID)
		if err != nil {
			return nil, err
		}
		for _, root := range roots {
			batch, err := p.closureFrom(ctx, root)
			if err != nil {
				return nil, err
			}
			created = append(created, batch...)
		}
	}
	if len(created) > 0 {
		if err := p.store.CreateEntries(ctx, created); err != nil {
			return nil, fmt.Errorf("write derived entries: %w", err)
		}
	}
	return created, nil
}

// relationshipRemoved deletes derived entries whose propagation chain
// crossed the removed edge, then re-propagates the surviving roots so
// grants reachable over other paths are restored. Returns the person
// IDs whose snapshots may have changed.
func (p *propagator) relationshipRemoved(ctx context.Context, rel *relationship.Relationship) ([]id.PersonID, error) {
	affected := make(map[id.PersonID]struct{})

	for _, ep := range []relationship.Endpoint{
		{Type: rel.SourceType, ID: rel.SourceID},
		{Type: rel.DestinationType, ID: rel.DestinationID},
	} {
		entries, err := p.store.EntriesOnObject(ctx, ep.Type, ep.ID)
		if err != nil {
			return nil, err
		}
		otherEp, _ := rel.Other(ep.Type, ep.ID)

		for _, e := range entries {
			if e.IsDirect() || e.ParentID == nil {
				continue
			}
			parent, err := p.store.GetEntry(ctx, *e.ParentID)
			if err != nil {
				return nil, fmt.Errorf("resolve parent of %s: %w", e.ID, err)
			}
			if parent.ObjectType != otherEp.Type || parent.ObjectID != otherEp.ID {
				continue
			}

			// The whole subtree below e goes with it. Over-invalidating
			// the base's full membership is cheaper than tracing which
			// descendants survive.
			for _, pid := range e.People {
				affected[pid] = struct{}{}
			}
			desc, err := p.store.ListDescendants(ctx, *e.BaseID)
			if err != nil {
				return nil, err
			}
			for _, d := range desc {
				for _, pid := range d.People {
					affected[pid] = struct{}{}
				}
			}

			if err := p.store.DeleteEntry(ctx, e.ID); err != nil {
				return nil, fmt.Errorf("delete stranded entry %s: %w", e.ID, err)
			}
		}
	}

	// Restore multi-path grants.
	created, err := p.relationshipAdded(ctx, rel)
	if err != nil {
		return nil, err
	}
	for _, e := range created {
		for _, pid := range e.People {
			affected[pid] = struct{}{}
		}
	}

	out := make([]id.PersonID, 0, len(affected))
	for pid := range affected {
		out = append(out, pid)
	}
	return out, nil
}

func derivedKey(objectType, objectID string, roleID id.RoleID) string {
	return objectType + ":" + objectID + ":" + roleID.String()
}
