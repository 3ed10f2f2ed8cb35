package plugin

import (
	"context"
	"log/slog"
	"testing"

	"github.com/grcware/accord/acl"
	"github.com/grcware/accord/acr"
	"github.com/grcware/accord/id"
	"github.com/grcware/accord/syncjob"
)

// testPlugin implements Plugin + RoleCreated + AfterCheck + JobFinished.
type testPlugin struct {
	roleCreatedCalled bool
	afterCheckCalled  bool
	grantIssuedCalled bool
	jobFinishedCalled bool
}

func (t *testPlugin) Name() string { return "test-plugin" }

func (t *testPlugin) OnRoleCreated(_ context.Context, _ *acr.Role) error {
	t.roleCreatedCalled = true
	return nil
}

func (t *testPlugin) OnAfterCheck(_ context.Context, _, _ any) error {
	t.afterCheckCalled = true
	return nil
}

func (t *testPlugin) OnGrantIssued(_ context.Context, _ *acl.Entry, _ []*acl.Entry) error {
	t.grantIssuedCalled = true
	return nil
}

func (t *testPlugin) OnJobFinished(_ context.Context, _ *syncjob.Job) error {
	t.jobFinishedCalled = true
	return nil
}

// minimalPlugin only implements Plugin (no hooks).
type minimalPlugin struct{}

func (m *minimalPlugin) Name() string { return "minimal" }

func TestRegistryDispatch(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(slog.Default())

	tp := &testPlugin{}
	reg.Register(tp)
	reg.Register(&minimalPlugin{})

	if len(reg.Plugins()) != 2 {
		t.Fatalf("expected 2 plugins, got %d", len(reg.Plugins()))
	}

	// Should dispatch RoleCreated to testPlugin only.
	reg.EmitRoleCreated(ctx, &acr.Role{ID: id.NewRoleID(), ObjectType: "program", Name: "Program Manager"})
	if !tp.roleCreatedCalled {
		t.Fatal("OnRoleCreated was not called")
	}

	// Should dispatch AfterCheck.
	reg.EmitAfterCheck(ctx, nil, nil)
	if !tp.afterCheckCalled {
		t.Fatal("OnAfterCheck was not called")
	}

	// Should dispatch GrantIssued with the direct entry and its closure.
	reg.EmitGrantIssued(ctx, &acl.Entry{ID: id.NewEntryID()}, nil)
	if !tp.grantIssuedCalled {
		t.Fatal("OnGrantIssued was not called")
	}

	// Should dispatch JobFinished.
	reg.EmitJobFinished(ctx, &syncjob.Job{ID: id.NewJobID(), State: syncjob.StateSucceeded})
	if !tp.jobFinishedCalled {
		t.Fatal("OnJobFinished was not called")
	}

	// Should not panic on hooks with no listeners.
	reg.EmitBeforeCheck(ctx, nil)
	reg.EmitRoleDeleted(ctx, id.NewRoleID())
	reg.EmitShutdown(ctx)
}
