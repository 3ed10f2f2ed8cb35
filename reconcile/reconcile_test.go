package reconcile

import (
	"reflect"
	"testing"

	"github.com/grcware/accord/tracker"
)

func TestReconcileCreateWhenUnmapped(t *testing.T) {
	local := &LocalIssue{Title: "weak password policy", Status: "Not Started", DueDate: "2018-09-13"}

	plan := Reconcile(local, nil)
	if plan.Op != OpCreate {
		t.Fatalf("expected create, got %s", plan.Op)
	}
	if plan.Payload.Status != "new" {
		t.Fatalf("expected mapped status new, got %q", plan.Payload.Status)
	}
	due, ok := plan.Payload.CustomField(DueDateField)
	if !ok || due.Value != "2018-09-13" {
		t.Fatalf("expected due date custom field, got %+v", plan.Payload.CustomFields)
	}
}

func TestReconcileNoopWhenInSync(t *testing.T) {
	local := &LocalIssue{Title: "weak password policy", Status: "In Progress", CCs: []string{"a@example.com"}}
	remote := &tracker.Issue{Title: "weak password policy", Status: "assigned", CCs: []string{"a@example.com"}}

	plan := Reconcile(local, remote)
	if plan.Op != OpNoop {
		t.Fatalf("expected noop, got %s (%+v)", plan.Op, plan)
	}
}

func TestReconcileStatusMismatchForcesUpdate(t *testing.T) {
	local := &LocalIssue{Title: "t", Status: "Completed"}
	remote := &tracker.Issue{Title: "t", Status: "assigned"}

	plan := Reconcile(local, remote)
	if plan.Op != OpUpdate {
		t.Fatalf("expected update, got %s", plan.Op)
	}
	if plan.Payload.Status != "verified" {
		t.Fatalf("expected verified, got %q", plan.Payload.Status)
	}
}

func TestReconcileRemovesStaleDueDate(t *testing.T) {
	local := &LocalIssue{Title: "t", Status: "In Progress"}
	remote := &tracker.Issue{
		Title:  "t",
		Status: "assigned",
		CustomFields: []tracker.CustomField{
			{Name: DueDateField, Value: "2018-09-13", Type: "Date"},
		},
	}

	plan := Reconcile(local, remote)
	if plan.Op != OpUpdate {
		t.Fatalf("expected update, got %s", plan.Op)
	}
	if len(plan.RemoveFields) != 1 || plan.RemoveFields[0] != DueDateField {
		t.Fatalf("expected due date removal, got %v", plan.RemoveFields)
	}

	// Applying the plan leaves the ticket without a due date; a second
	// reconciliation is a noop.
	applied := &tracker.Issue{Title: "t", Status: plan.Payload.Status}
	if again := Reconcile(local, applied); again.Op != OpNoop {
		t.Fatalf("expected noop after apply, got %s", again.Op)
	}
}

func TestReconcileDueDateNormalization(t *testing.T) {
	local := &LocalIssue{Title: "t", Status: "In Progress", DueDate: "2018-09-13T00:00:00"}
	remote := &tracker.Issue{
		Title:  "t",
		Status: "assigned",
		CustomFields: []tracker.CustomField{
			{Name: DueDateField, Value: "2018-09-13", Type: "Date"},
		},
	}

	if plan := Reconcile(local, remote); plan.Op != OpNoop {
		t.Fatalf("normalized dates must compare equal, got %s", plan.Op)
	}
}

func TestReconcileCCsAsSets(t *testing.T) {
	local := &LocalIssue{Title: "t", Status: "In Progress", CCs: []string{"b@example.com", "a@example.com"}}
	remote := &tracker.Issue{Title: "t", Status: "assigned", CCs: []string{"a@example.com", "c@example.com"}}

	plan := Reconcile(local, remote)
	if plan.Op != OpUpdate {
		t.Fatalf("expected update, got %s", plan.Op)
	}
	if !reflect.DeepEqual(plan.AddedCCs, []string{"b@example.com"}) {
		t.Fatalf("unexpected additions %v", plan.AddedCCs)
	}
	if !reflect.DeepEqual(plan.RemovedCCs, []string{"c@example.com"}) {
		t.Fatalf("unexpected removals %v", plan.RemovedCCs)
	}

	// Same members in a different order is a noop.
	remote.CCs = []string{"a@example.com", "b@example.com"}
	if plan := Reconcile(local, remote); plan.Op != OpNoop {
		t.Fatalf("order must not matter, got %s", plan.Op)
	}
}

func TestMapStatusPassthrough(t *testing.T) {
	if got := MapStatus("Exotic"); got != "Exotic" {
		t.Fatalf("unknown status must pass through, got %q", got)
	}
}
