package accord

import "context"

// SnapshotCache is the shared cache tier for permission snapshots,
// keyed per person. Implementations must honor the conditional
// write-back protocol: Put succeeds only while the person's key is
// still listed, which prevents a stale snapshot built before an
// invalidation from overwriting the invalidation.
type SnapshotCache interface {
	// Get returns the cached snapshot for the person, if present, and
	// lists the key for a subsequent conditional Put.
	Get(ctx context.Context, personID string) (*Snapshot, bool)

	// Put stores a snapshot if the person's key is still listed.
	// Returns false when the write-back lost the race and was
	// discarded. Partial snapshots must never be Put.
	Put(ctx context.Context, personID string, snap *Snapshot) bool

	// Invalidate removes the given persons' snapshots and unlists
	// their keys, discarding any in-flight write-back.
	Invalidate(ctx context.Context, personIDs ...string)

	// InvalidateAll removes every snapshot and unlists every key.
	InvalidateAll(ctx context.Context)
}
