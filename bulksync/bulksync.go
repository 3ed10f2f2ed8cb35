// Package bulksync drives bulk create/update/verify runs against the
// external issue tracker: it loads local state and mappings in bulk,
// asks the reconciler for the minimal operation per object, executes
// batches through the remote client, and emits exactly one notification
// per job.
package bulksync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/grcware/accord/extmap"
	"github.com/grcware/accord/id"
	"github.com/grcware/accord/notify"
	"github.com/grcware/accord/plugin"
	"github.com/grcware/accord/reconcile"
	"github.com/grcware/accord/store"
	"github.com/grcware/accord/syncjob"
	"github.com/grcware/accord/tracker"
)

// ExternalIssueType is the external_type recorded on tracker mappings.
const ExternalIssueType = "issue"

// ObjectSource loads the local, sync-relevant projection of objects.
// Implemented by the application's object store.
type ObjectSource interface {
	// LoadIssues bulk-loads local state for one object type, keyed by
	// object ID. Unknown IDs are absent from the result.
	LoadIssues(ctx context.Context, objectType string, objectIDs []string) (map[string]*reconcile.LocalIssue, error)
}

// Runner schedules job execution off the submission path. The context
// handed to run must outlive the submitting request.
type Runner interface {
	Enqueue(jobID id.JobID, run func(ctx context.Context))
}

// GoRunner executes each enqueued job on its own goroutine. It is the
// default runner.
type GoRunner struct{}

// Enqueue implements [Runner].
func (GoRunner) Enqueue(_ id.JobID, run func(ctx context.Context)) {
	go run(context.Background())
}

// Config holds coordinator configuration.
type Config struct {
	// BatchSize caps how many objects one batch executes. The
	// cancellation flag is observed between batches. Defaults to 10.
	BatchSize int `json:"batch_size,omitempty"`
}

// Coordinator executes bulk sync jobs.
type Coordinator struct {
	store      store.Store
	client     tracker.Client
	source     ObjectSource
	dispatcher *notify.Dispatcher
	plugins    *plugin.Registry
	runner     Runner
	logger     *slog.Logger
	cfg        Config
}

// CoordinatorOption configures the coordinator.
type CoordinatorOption func(*Coordinator)

// WithPlugins attaches a plugin registry for job lifecycle events.
func WithPlugins(reg *plugin.Registry) CoordinatorOption {
	return func(c *Coordinator) { c.plugins = reg }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.logger = l }
}

// WithRunner replaces the default goroutine-per-job runner.
func WithRunner(r Runner) CoordinatorOption {
	return func(c *Coordinator) { c.runner = r }
}

// WithConfig sets the coordinator configuration.
func WithConfig(cfg Config) CoordinatorOption {
	return func(c *Coordinator) { c.cfg = cfg }
}

// NewCoordinator creates a coordinator.
func NewCoordinator(st store.Store, client tracker.Client, source ObjectSource, dispatcher *notify.Dispatcher, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		store:      st,
		client:     client,
		source:     source,
		dispatcher: dispatcher,
		runner:     GoRunner{},
		logger:     slog.Default(),
		cfg:        Config{BatchSize: 10},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cfg.BatchSize <= 0 {
		c.cfg.BatchSize = 10
	}
	return c
}

// Submit persists a new pending job and returns it. Execution happens
// separately via Run, typically on a background worker.
func (c *Coordinator) Submit(ctx context.Context, kind syncjob.Kind, objects []syncjob.ObjectRef, requesterEmail, filename string) (*syncjob.Job, error) {
	job := &syncjob.Job{
		ID:             id.NewJobID(),
		Kind:           kind,
		State:          syncjob.StatePending,
		Objects:        objects,
		Filename:       filename,
		RequesterEmail: requesterEmail,
	}
	if err := c.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("bulksync: create job: %w", err)
	}
	return job, nil
}

// Launch hands the job to the background runner. The outcome lands on
// the job record; run errors are logged, not returned.
func (c *Coordinator) Launch(jobID id.JobID, msg notify.Message) {
	c.runner.Enqueue(jobID, func(ctx context.Context) {
		if _, err := c.Run(ctx, jobID, msg); err != nil {
			c.logger.Error("sync job run failed", "job", jobID.String(), "error", err)
		}
	})
}

// Status returns the job's current state.
func (c *Coordinator) Status(ctx context.Context, jobID id.JobID) (syncjob.State, error) {
	job, err := c.store.GetJob(ctx, jobID)
	if err != nil {
		return "", err
	}
	return job.State, nil
}

// Cancel requests cooperative cancellation. A pending job is cancelled
// immediately; a running job observes the flag between batches, lets
// in-flight remote calls finish, and abandons queued objects.
func (c *Coordinator) Cancel(ctx context.Context, jobID id.JobID) error {
	job, err := c.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.State == syncjob.StatePending {
		job.State = syncjob.StateCancelled
		if err := c.store.UpdateJob(ctx, job); err != nil {
			return err
		}
		// The job reached a terminal state without a run, so its one
		// notification goes out here.
		c.finish(ctx, job, notify.Message{})
		return nil
	}
	return c.store.RequestCancel(ctx, jobID)
}

// Run executes a pending job to completion and sends its notification.
// Any panic in the run marks the job failed and sends the exception
// template; the panic is not re-raised.
func (c *Coordinator) Run(ctx context.Context, jobID id.JobID, msg notify.Message) (job *syncjob.Job, err error) {
	job, err = c.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	job.State = syncjob.StateRunning
	if err := c.store.UpdateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("bulksync: start job: %w", err)
	}
	if c.plugins != nil {
		c.plugins.EmitJobStarted(ctx, job)
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("sync job panicked", "job", job.ID.String(), "panic", r)
			job.State = syncjob.StateFailed
			if uerr := c.store.UpdateJob(ctx, job); uerr != nil {
				c.logger.Error("record failed job", "job", job.ID.String(), "error", uerr)
			}
			c.finish(ctx, job, msg)
			err = fmt.Errorf("bulksync: job %s aborted: %v", job.ID, r)
		}
	}()

	cancelled := c.execute(ctx, job)

	switch {
	case cancelled:
		job.State = syncjob.StateCancelled
	case len(job.FailedResults()) > 0:
		job.State = syncjob.StatePartial
	default:
		job.State = syncjob.StateSucceeded
	}
	if err := c.store.UpdateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("bulksync: finish job: %w", err)
	}

	c.finish(ctx, job, msg)
	return job, nil
}

// finish sends the single notification and fires the lifecycle hook.
func (c *Coordinator) finish(ctx context.Context, job *syncjob.Job, msg notify.Message) {
	if c.dispatcher != nil {
		if err := c.dispatcher.Dispatch(ctx, job, msg); err != nil {
			c.logger.Error("sync notification failed", "job", job.ID.String(), "error", err)
		}
	}
	if c.plugins != nil {
		c.plugins.EmitJobFinished(ctx, job)
	}
}

// execute runs the job's objects in batches and accumulates per-object
// results on the job. Returns true when cancellation interrupted the
// run.
func (c *Coordinator) execute(ctx context.Context, job *syncjob.Job) bool {
	groups := groupByType(job.Objects)

	for _, group := range groups {
		locals, err := c.source.LoadIssues(ctx, group.objectType, group.objectIDs)
		if err != nil {
			c.failGroup(job, group, fmt.Sprintf("load local state: %v", err))
			continue
		}
		mappings, err := c.store.MappingsForObjects(ctx, group.objectType, group.objectIDs)
		if err != nil {
			c.failGroup(job, group, fmt.Sprintf("load mappings: %v", err))
			continue
		}

		for start := 0; start < len(group.objectIDs); start += c.cfg.BatchSize {
			if c.cancelRequested(ctx, job.ID) {
				return true
			}
			end := start + c.cfg.BatchSize
			if end > len(group.objectIDs) {
				end = len(group.objectIDs)
			}
			for _, objectID := range group.objectIDs[start:end] {
				ref := syncjob.ObjectRef{Type: group.objectType, ID: objectID}
				key := ref.Key()
				job.Results = append(job.Results, c.syncOne(ctx, job.Kind, ref, locals[objectID], mappings[key]))
			}
		}
	}
	return false
}

// syncOne performs the remote operation for a single object. Failures
// are recorded, never raised, so one object cannot abort its batch.
func (c *Coordinator) syncOne(ctx context.Context, kind syncjob.Kind, ref syncjob.ObjectRef, local *reconcile.LocalIssue, mapping *extmap.Mapping) syncjob.ObjectResult {
	result := syncjob.ObjectResult{Object: ref}
	if local == nil {
		result.Err = "local object not found"
		return result
	}
	result.Title = local.Title

	var remote *tracker.Issue
	if mapping != nil {
		result.ExternalID = mapping.ExternalID
		var err error
		remote, err = c.client.GetIssue(ctx, mapping.ExternalID)
		if err != nil {
			result.Code = errCode(err)
			result.Err = fmt.Sprintf("fetch remote state: %v", err)
			return result
		}
		result.URL = remote.URL
	}

	plan := reconcile.Reconcile(local, remote)

	if kind == syncjob.KindVerify {
		if plan.Op != reconcile.OpNoop {
			result.Err = fmt.Sprintf("out of sync: %s required", plan.Op)
		}
		return result
	}

	switch plan.Op {
	case reconcile.OpNoop:
		return result

	case reconcile.OpCreate:
		issue, err := c.client.CreateIssue(ctx, plan.Payload)
		if err != nil {
			result.Code = errCode(err)
			result.Err = err.Error()
			return result
		}
		result.ExternalID = issue.ID
		result.URL = issue.URL
		// The mapping lands only with the recorded success; a failed
		// create leaves the object unmapped for the next run.
		if err := c.store.CreateMapping(ctx, &extmap.Mapping{
			ID:           id.NewMappingID(),
			ObjectType:   ref.Type,
			ObjectID:     ref.ID,
			ExternalID:   issue.ID,
			ExternalType: ExternalIssueType,
		}); err != nil {
			result.Err = fmt.Sprintf("persist mapping: %v", err)
		}
		return result

	case reconcile.OpUpdate:
		issue, err := c.client.UpdateIssue(ctx, mapping.ExternalID, plan.Payload, plan.RemoveFields)
		if err != nil {
			result.Code = errCode(err)
			result.Err = err.Error()
			return result
		}
		if issue.URL != "" {
			result.URL = issue.URL
		}
		mapping.UpdatedAt = time.Now().UTC()
		if err := c.store.UpdateMapping(ctx, mapping); err != nil {
			result.Err = fmt.Sprintf("persist mapping: %v", err)
		}
		return result

	default:
		result.Err = fmt.Sprintf("unknown operation %q", plan.Op)
		return result
	}
}

func (c *Coordinator) failGroup(job *syncjob.Job, group typeGroup, msg string) {
	for _, objectID := range group.objectIDs {
		job.Results = append(job.Results, syncjob.ObjectResult{
			Object: syncjob.ObjectRef{Type: group.objectType, ID: objectID},
			Err:    msg,
		})
	}
}

func (c *Coordinator) cancelRequested(ctx context.Context, jobID id.JobID) bool {
	flagged, err := c.store.CancelRequested(ctx, jobID)
	if err != nil {
		c.logger.Warn("cancellation flag unreadable", "job", jobID.String(), "error", err)
		return false
	}
	return flagged
}

type typeGroup struct {
	objectType string
	objectIDs  []string
}

// groupByType buckets objects by type, preserving first-seen type order
// and per-type object order for stable error reporting.
func groupByType(objects []syncjob.ObjectRef) []typeGroup {
	index := make(map[string]int)
	var groups []typeGroup
	for _, o := range objects {
		i, ok := index[o.Type]
		if !ok {
			i = len(groups)
			index[o.Type] = i
			groups = append(groups, typeGroup{objectType: o.Type})
		}
		groups[i].objectIDs = append(groups[i].objectIDs, o.ID)
	}
	return groups
}

// errCode classifies a remote error for per-object reporting.
func errCode(err error) string {
	switch {
	case errors.Is(err, tracker.ErrTransient):
		return "429"
	case errors.Is(err, tracker.ErrTicketNotFound):
		return "404"
	case errors.Is(err, tracker.ErrRemote):
		return "remote"
	default:
		return "error"
	}
}
