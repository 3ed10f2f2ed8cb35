package syncjob

import (
	"context"

	"github.com/grcware/accord/id"
)

// Store defines persistence operations for sync jobs.
type Store interface {
	// CreateJob persists a new job in state pending.
	CreateJob(ctx context.Context, j *Job) error

	// GetJob retrieves a job by ID with objects and results populated.
	GetJob(ctx context.Context, jobID id.JobID) (*Job, error)

	// UpdateJob persists job state and results. Illegal state
	// transitions are rejected.
	UpdateJob(ctx context.Context, j *Job) error

	// RequestCancel flags a job for cooperative cancellation. The
	// worker observes the flag between batches.
	RequestCancel(ctx context.Context, jobID id.JobID) error

	// CancelRequested reports whether cancellation has been requested.
	CancelRequested(ctx context.Context, jobID id.JobID) (bool, error)

	// ListJobs returns jobs matching the filter.
	ListJobs(ctx context.Context, filter *ListFilter) ([]*Job, error)
}
