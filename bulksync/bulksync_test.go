package bulksync

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/grcware/accord/extmap"
	"github.com/grcware/accord/id"
	"github.com/grcware/accord/notify"
	"github.com/grcware/accord/reconcile"
	"github.com/grcware/accord/store/memory"
	"github.com/grcware/accord/syncjob"
	"github.com/grcware/accord/tracker"
)

type fakeClient struct {
	createFn func(issue *tracker.Issue) (*tracker.Issue, error)
	updateFn func(externalID string, issue *tracker.Issue, removeFields []string) (*tracker.Issue, error)
	getFn    func(externalID string) (*tracker.Issue, error)

	creates, updates, gets int
}

func (f *fakeClient) CreateIssue(_ context.Context, issue *tracker.Issue) (*tracker.Issue, error) {
	f.creates++
	return f.createFn(issue)
}

func (f *fakeClient) UpdateIssue(_ context.Context, externalID string, issue *tracker.Issue, removeFields []string) (*tracker.Issue, error) {
	f.updates++
	return f.updateFn(externalID, issue, removeFields)
}

func (f *fakeClient) GetIssue(_ context.Context, externalID string) (*tracker.Issue, error) {
	f.gets++
	return f.getFn(externalID)
}

type fakeSource struct {
	issues map[string]*reconcile.LocalIssue
	loadFn func() // observed on every bulk load
}

func (f *fakeSource) LoadIssues(_ context.Context, _ string, objectIDs []string) (map[string]*reconcile.LocalIssue, error) {
	if f.loadFn != nil {
		f.loadFn()
	}
	out := make(map[string]*reconcile.LocalIssue)
	for _, oid := range objectIDs {
		if local, ok := f.issues[oid]; ok {
			out[oid] = local
		}
	}
	return out, nil
}

type fakeSender struct {
	calls int
	body  string
}

func (f *fakeSender) Send(_ context.Context, _, _, body string) error {
	f.calls++
	f.body = body
	return nil
}

func refs(ids ...string) []syncjob.ObjectRef {
	out := make([]syncjob.ObjectRef, 0, len(ids))
	for _, oid := range ids {
		out = append(out, syncjob.ObjectRef{Type: "issue", ID: oid})
	}
	return out
}

func localIssue(title string) *reconcile.LocalIssue {
	return &reconcile.LocalIssue{Title: title, Status: "Not Started"}
}

func TestRunCreatesAndRecordsPartialFailure(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	sender := &fakeSender{}

	client := &fakeClient{
		createFn: func(issue *tracker.Issue) (*tracker.Issue, error) {
			if issue.Title == "o2" {
				return nil, fmt.Errorf("create: %w", tracker.ErrTransient)
			}
			created := *issue
			created.ID = "TICKET-" + issue.Title
			created.URL = "https://tracker.example.com/TICKET-" + issue.Title
			return &created, nil
		},
	}
	source := &fakeSource{issues: map[string]*reconcile.LocalIssue{
		"o1": localIssue("o1"),
		"o2": localIssue("o2"),
		"o3": localIssue("o3"),
	}}

	c := NewCoordinator(st, client, source, notify.NewDispatcher(sender, nil))
	job, err := c.Submit(ctx, syncjob.KindCreate, refs("o1", "o2", "o3"), "auditor@example.com", "issues.csv")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	done, err := c.Run(ctx, job.ID, notify.Message{Title: "t", EmailText: "b"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if done.State != syncjob.StatePartial {
		t.Fatalf("expected partial, got %s", done.State)
	}
	failed := done.FailedResults()
	if len(failed) != 1 || failed[0].Object.ID != "o2" || failed[0].Code != "429" {
		t.Fatalf("expected o2 to fail with 429, got %+v", failed)
	}

	// Mappings land only for the recorded successes.
	for _, oid := range []string{"o1", "o3"} {
		m, err := st.GetMappingByObject(ctx, "issue", oid)
		if err != nil {
			t.Fatalf("mapping for %s: %v", oid, err)
		}
		if m.ExternalID != "TICKET-"+oid {
			t.Fatalf("mapping for %s points at %s", oid, m.ExternalID)
		}
	}
	if _, err := st.GetMappingByObject(ctx, "issue", "o2"); err == nil {
		t.Fatal("failed create must not leave a mapping")
	}

	if sender.calls != 1 {
		t.Fatalf("expected exactly one notification, got %d", sender.calls)
	}
	if !strings.Contains(sender.body, "1 of 3") || !strings.Contains(sender.body, "issue:o2") {
		t.Fatalf("expected partial template listing o2:\n%s", sender.body)
	}
}

func TestRunSucceededSendsSuccessTemplate(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	sender := &fakeSender{}

	client := &fakeClient{
		createFn: func(issue *tracker.Issue) (*tracker.Issue, error) {
			created := *issue
			created.ID = "TICKET-1"
			return &created, nil
		},
	}
	source := &fakeSource{issues: map[string]*reconcile.LocalIssue{"o1": localIssue("o1")}}

	c := NewCoordinator(st, client, source, notify.NewDispatcher(sender, nil))
	job, _ := c.Submit(ctx, syncjob.KindCreate, refs("o1"), "auditor@example.com", "")
	done, err := c.Run(ctx, job.ID, notify.Message{Title: "t", EmailText: "b"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if done.State != syncjob.StateSucceeded {
		t.Fatalf("expected succeeded, got %s", done.State)
	}
	if !strings.Contains(sender.body, "synced successfully") {
		t.Fatalf("expected success template:\n%s", sender.body)
	}
}

func TestRunObservesCancellationBetweenBatches(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	sender := &fakeSender{}

	source := &fakeSource{issues: map[string]*reconcile.LocalIssue{
		"o1": localIssue("o1"),
		"o2": localIssue("o2"),
		"o3": localIssue("o3"),
	}}

	c := NewCoordinator(st, nil, source, notify.NewDispatcher(sender, nil),
		WithConfig(Config{BatchSize: 1}))
	job, _ := c.Submit(ctx, syncjob.KindCreate, refs("o1", "o2", "o3"), "auditor@example.com", "")

	// The first create flips the flag; the coordinator must let the
	// in-flight batch finish and abandon the queue.
	client := &fakeClient{}
	client.createFn = func(issue *tracker.Issue) (*tracker.Issue, error) {
		if err := c.Cancel(ctx, job.ID); err != nil {
			t.Fatalf("Cancel: %v", err)
		}
		created := *issue
		created.ID = "TICKET-" + issue.Title
		return &created, nil
	}
	c.client = client

	done, err := c.Run(ctx, job.ID, notify.Message{Title: "t", EmailText: "b"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if done.State != syncjob.StateCancelled {
		t.Fatalf("expected cancelled, got %s", done.State)
	}
	if len(done.Results) != 1 {
		t.Fatalf("expected the queue abandoned after one batch, got %d results", len(done.Results))
	}
	if client.creates != 1 {
		t.Fatalf("expected one remote call, got %d", client.creates)
	}
	if sender.calls != 1 {
		t.Fatalf("cancelled jobs still notify once, got %d", sender.calls)
	}
}

func TestVerifyReportsDriftWithoutWriting(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	sender := &fakeSender{}

	job := seedMapping(t, ctx, st, "o1", "TICKET-1")

	client := &fakeClient{
		getFn: func(string) (*tracker.Issue, error) {
			return &tracker.Issue{ID: "TICKET-1", Title: "o1", Status: "fixed"}, nil
		},
	}
	source := &fakeSource{issues: map[string]*reconcile.LocalIssue{"o1": localIssue("o1")}}

	c := NewCoordinator(st, client, source, notify.NewDispatcher(sender, nil))
	done, err := c.Run(ctx, job, notify.Message{Title: "t", EmailText: "b"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if done.State != syncjob.StatePartial {
		t.Fatalf("expected drift reported as partial, got %s", done.State)
	}
	if got := done.Results[0].Err; !strings.Contains(got, "out of sync: update required") {
		t.Fatalf("unexpected result error %q", got)
	}
	if client.updates != 0 || client.creates != 0 {
		t.Fatal("verify must not write to the tracker")
	}
}

// seedMapping stores a mapping for issue/objectID and submits a verify
// job for it, returning the job ID.
func seedMapping(t *testing.T, ctx context.Context, st *memory.Store, objectID, externalID string) id.JobID {
	t.Helper()
	if err := st.CreateMapping(ctx, &extmap.Mapping{
		ID:           id.NewMappingID(),
		ObjectType:   "issue",
		ObjectID:     objectID,
		ExternalID:   externalID,
		ExternalType: ExternalIssueType,
	}); err != nil {
		t.Fatalf("CreateMapping: %v", err)
	}
	job := &syncjob.Job{
		ID:             id.NewJobID(),
		Kind:           syncjob.KindVerify,
		State:          syncjob.StatePending,
		Objects:        refs(objectID),
		RequesterEmail: "auditor@example.com",
	}
	if err := st.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	return job.ID
}

func TestRunPanicMarksJobFailed(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	sender := &fakeSender{}

	source := &fakeSource{
		issues: map[string]*reconcile.LocalIssue{"o1": localIssue("o1")},
		loadFn: func() { panic("object store gone") },
	}

	c := NewCoordinator(st, &fakeClient{}, source, notify.NewDispatcher(sender, nil))
	job, _ := c.Submit(ctx, syncjob.KindCreate, refs("o1"), "auditor@example.com", "")

	if _, err := c.Run(ctx, job.ID, notify.Message{Title: "t", EmailText: "b"}); err == nil {
		t.Fatal("expected an error from the aborted run")
	}
	state, err := c.Status(ctx, job.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if state != syncjob.StateFailed {
		t.Fatalf("expected failed, got %s", state)
	}
	if sender.calls != 1 || !strings.Contains(sender.body, "aborted with an unexpected error") {
		t.Fatalf("expected one exception notification:\n%s", sender.body)
	}
}

func TestCancelPendingJob(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	c := NewCoordinator(st, &fakeClient{}, &fakeSource{}, nil)
	job, err := c.Submit(ctx, syncjob.KindUpdate, refs("o1"), "auditor@example.com", "")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := c.Cancel(ctx, job.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	state, err := c.Status(ctx, job.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if state != syncjob.StateCancelled {
		t.Fatalf("expected pending job cancelled immediately, got %s", state)
	}
}

func TestRunRecordsMissingLocalObjects(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	sender := &fakeSender{}

	c := NewCoordinator(st, &fakeClient{}, &fakeSource{}, notify.NewDispatcher(sender, nil))
	job, _ := c.Submit(ctx, syncjob.KindCreate, refs("ghost"), "auditor@example.com", "")

	done, err := c.Run(ctx, job.ID, notify.Message{Title: "t", EmailText: "b"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if done.State != syncjob.StatePartial {
		t.Fatalf("expected partial, got %s", done.State)
	}
	if done.Results[0].Err != "local object not found" {
		t.Fatalf("unexpected result %+v", done.Results[0])
	}
}

// syncRunner runs enqueued jobs inline so the test sees the outcome
// without waiting on a goroutine.
type syncRunner struct{ enqueued int }

func (r *syncRunner) Enqueue(_ id.JobID, run func(ctx context.Context)) {
	r.enqueued++
	run(context.Background())
}

func TestLaunchRunsJobThroughRunner(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	sender := &fakeSender{}
	runner := &syncRunner{}

	client := &fakeClient{
		createFn: func(issue *tracker.Issue) (*tracker.Issue, error) {
			created := *issue
			created.ID = "TICKET-" + issue.Title
			return &created, nil
		},
	}
	source := &fakeSource{issues: map[string]*reconcile.LocalIssue{"o1": localIssue("o1")}}

	c := NewCoordinator(st, client, source, notify.NewDispatcher(sender, nil),
		WithRunner(runner))
	job, err := c.Submit(ctx, syncjob.KindCreate, refs("o1"), "auditor@example.com", "")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	c.Launch(job.ID, notify.Message{Title: "t", EmailText: "b"})

	if runner.enqueued != 1 {
		t.Fatalf("expected one enqueue, got %d", runner.enqueued)
	}
	state, err := c.Status(ctx, job.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if state != syncjob.StateSucceeded {
		t.Fatalf("expected succeeded, got %s", state)
	}
	if sender.calls != 1 {
		t.Fatalf("expected one notification, got %d", sender.calls)
	}
}

func TestCancelPendingJobSendsNotification(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	sender := &fakeSender{}

	c := NewCoordinator(st, &fakeClient{}, &fakeSource{}, notify.NewDispatcher(sender, nil))
	job, err := c.Submit(ctx, syncjob.KindUpdate, refs("o1"), "auditor@example.com", "")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if err := c.Cancel(ctx, job.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	state, err := c.Status(ctx, job.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if state != syncjob.StateCancelled {
		t.Fatalf("expected cancelled, got %s", state)
	}
	if sender.calls != 1 {
		t.Fatalf("a pending cancel is terminal and owes its one notification, got %d", sender.calls)
	}
}
