// Package syncjob defines the bulk sync Job entity and its store
// interface. Job state transitions are monotonic:
// pending → running → succeeded | partial | failed | cancelled.
package syncjob

import (
	"time"

	"github.com/grcware/accord/id"
)

// Kind is the remote operation a job performs.
type Kind string

const (
	// KindCreate files new tickets for objects without a mapping.
	KindCreate Kind = "create"

	// KindUpdate pushes local state onto already-mapped tickets.
	KindUpdate Kind = "update"

	// KindVerify reconciles without writing; mismatches are reported
	// as per-object results.
	KindVerify Kind = "verify"
)

// State is the lifecycle state of a job.
type State string

const (
	// StatePending is a persisted job not yet picked up by a worker.
	StatePending State = "pending"

	// StateRunning is a job being executed.
	StateRunning State = "running"

	// StateSucceeded means every object synced cleanly.
	StateSucceeded State = "succeeded"

	// StatePartial means at least one object failed while others
	// succeeded.
	StatePartial State = "partial"

	// StateFailed means the coordinator itself failed.
	StateFailed State = "failed"

	// StateCancelled means the job was cancelled; queued objects were
	// abandoned.
	StateCancelled State = "cancelled"
)

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StatePartial, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether next is a legal successor state.
func (s State) CanTransitionTo(next State) bool {
	switch s {
	case StatePending:
		return next == StateRunning || next == StateCancelled
	case StateRunning:
		return next.Terminal()
	default:
		return false
	}
}

// ObjectRef identifies one object enqueued in a job.
type ObjectRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Key returns the "type:id" form used for map keys.
func (o ObjectRef) Key() string { return o.Type + ":" + o.ID }

// ObjectResult is the per-object outcome of a job.
type ObjectResult struct {
	Object     ObjectRef `json:"object"`
	ExternalID string    `json:"external_id,omitempty"`
	URL        string    `json:"url,omitempty"`
	Code       string    `json:"code,omitempty"`
	Title      string    `json:"title,omitempty"`
	Err        string    `json:"error,omitempty"`
}

// Failed reports whether the object's sync failed.
func (r ObjectResult) Failed() bool { return r.Err != "" }

// Job is one bulk sync run against the external tracker.
type Job struct {
	ID             id.JobID       `json:"id" db:"id"`
	Kind           Kind           `json:"kind" db:"kind"`
	State          State          `json:"state" db:"state"`
	Objects        []ObjectRef    `json:"objects" db:"-"`
	Results        []ObjectResult `json:"results,omitempty" db:"-"`
	Filename       string         `json:"filename,omitempty" db:"filename"`
	RequesterEmail string         `json:"requester_email" db:"requester_email"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}

// FailedResults returns the subset of results with errors.
func (j *Job) FailedResults() []ObjectResult {
	var failed []ObjectResult
	for _, r := range j.Results {
		if r.Failed() {
			failed = append(failed, r)
		}
	}
	return failed
}

// ListFilter contains filters for listing jobs.
type ListFilter struct {
	Kind           Kind   `json:"kind,omitempty"`
	State          State  `json:"state,omitempty"`
	RequesterEmail string `json:"requester_email,omitempty"`
	Limit          int    `json:"limit,omitempty"`
	Offset         int    `json:"offset,omitempty"`
}
