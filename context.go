package accord

import (
	"context"
	"sync"
)

type contextKey int

const (
	ctxKeyActor contextKey = iota
	ctxKeyExternalApp
	ctxKeyRequestScope
)

// WithActor returns a context carrying the authenticated person.
func WithActor(ctx context.Context, p *PersonRef) context.Context {
	return context.WithValue(ctx, ctxKeyActor, p)
}

// ActorFromContext returns the authenticated person, if any.
func ActorFromContext(ctx context.Context) (*PersonRef, bool) {
	p, ok := ctx.Value(ctxKeyActor).(*PersonRef)
	return p, ok && p != nil
}

// WithExternalApp marks the context as acting on behalf of the trusted
// external application principal, which is treated as an admin.
func WithExternalApp(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKeyExternalApp, true)
}

// IsExternalApp reports whether the context carries the external app
// principal.
func IsExternalApp(ctx context.Context) bool {
	v, ok := ctx.Value(ctxKeyExternalApp).(bool)
	return ok && v
}

// requestScope memoizes per-request state so every check within one
// request sees the same permission snapshot.
type requestScope struct {
	mu        sync.Mutex
	snapshots map[string]*Snapshot
}

// WithRequestScope returns a context with a fresh per-request memo.
// The HTTP layer installs one scope per incoming request.
func WithRequestScope(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKeyRequestScope, &requestScope{
		snapshots: make(map[string]*Snapshot),
	})
}

func scopeFromContext(ctx context.Context) *requestScope {
	s, ok := ctx.Value(ctxKeyRequestScope).(*requestScope)
	if !ok {
		return nil
	}
	return s
}

func (s *requestScope) get(personID string) (*Snapshot, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[personID]
	return snap, ok
}

func (s *requestScope) put(personID string, snap *Snapshot) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[personID] = snap
}
