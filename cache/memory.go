// Package cache provides caching implementations for Accord permission
// snapshots.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/grcware/accord"
)

// Compile-time interface check.
var _ accord.SnapshotCache = (*Memory)(nil)

// Memory is an in-memory snapshot cache with TTL-based expiration and
// the conditional write-back protocol: a Get lists the person's key,
// Invalidate unlists it, and a Put only lands while the key is still
// listed. A snapshot built before an invalidation therefore never
// overwrites the invalidation.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*entry
	listed  map[string]struct{}
	ttl     time.Duration
	maxSize int
}

type entry struct {
	snap      *accord.Snapshot
	expiresAt time.Time
}

// MemoryOption configures the memory cache.
type MemoryOption func(*Memory)

// WithTTL sets the cache entry time-to-live.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) { m.ttl = ttl }
}

// WithMaxSize sets the maximum number of cache entries.
func WithMaxSize(n int) MemoryOption {
	return func(m *Memory) { m.maxSize = n }
}

// NewMemory creates a new in-memory snapshot cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]*entry),
		listed:  make(map[string]struct{}),
		ttl:     time.Hour,
		maxSize: 10000,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the cached snapshot for the person and lists the key so a
// subsequent Put may land.
func (m *Memory) Get(_ context.Context, personID string) (*accord.Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.listed[personID] = struct{}{}

	e, ok := m.entries[personID]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(m.entries, personID)
		return nil, false
	}
	return e.snap, true
}

// Put stores a snapshot if the person's key is still listed. Partial
// snapshots are rejected outright.
func (m *Memory) Put(_ context.Context, personID string, snap *accord.Snapshot) bool {
	if snap == nil || snap.Partial {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.listed[personID]; !ok {
		return false
	}

	// Evict if at capacity.
	if len(m.entries) >= m.maxSize {
		m.evictExpired()
		if len(m.entries) >= m.maxSize {
			m.evictOne()
		}
	}

	m.entries[personID] = &entry{
		snap:      snap,
		expiresAt: time.Now().Add(m.ttl),
	}
	return true
}

// Invalidate removes the given persons' snapshots and unlists their
// keys, discarding any in-flight write-back.
func (m *Memory) Invalidate(_ context.Context, personIDs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, pid := range personIDs {
		delete(m.entries, pid)
		delete(m.listed, pid)
	}
}

// InvalidateAll removes every snapshot and unlists every key.
func (m *Memory) InvalidateAll(_ context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*entry)
	m.listed = make(map[string]struct{})
}

// evictExpired removes all expired entries. Must hold write lock.
func (m *Memory) evictExpired() {
	now := time.Now()
	for k, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, k)
		}
	}
}

// evictOne removes one arbitrary entry. Must hold write lock.
func (m *Memory) evictOne() {
	for k := range m.entries {
		delete(m.entries, k)
		return
	}
}
