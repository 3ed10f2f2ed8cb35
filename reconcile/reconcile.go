// Package reconcile computes the minimal remote operation needed to
// bring an external tracker ticket in line with local object state.
package reconcile

import (
	"sort"
	"strings"
	"time"

	"github.com/grcware/accord/tracker"
)

// DueDateField is the tracker custom field carrying the due date.
const DueDateField = "Due Date"

// Op is the remote operation a plan prescribes.
type Op string

const (
	// OpNoop means remote and local state already match.
	OpNoop Op = "noop"

	// OpCreate means no ticket exists yet for the object.
	OpCreate Op = "create"

	// OpUpdate means the ticket exists but differs from local state.
	OpUpdate Op = "update"
)

// LocalIssue is the local view of a synced object, projected to the
// fields that mirror onto the tracker.
type LocalIssue struct {
	Title    string   `json:"title"`
	Body     string   `json:"body,omitempty"`
	Status   string   `json:"status"`
	Type     string   `json:"type,omitempty"`
	Priority string   `json:"priority,omitempty"`
	Severity string   `json:"severity,omitempty"`
	DueDate  string   `json:"due_date,omitempty"`
	CCs      []string `json:"ccs,omitempty"`
}

// Plan is the reconciler's output: the operation, the payload to send
// and the custom fields the tracker must clear.
type Plan struct {
	Op           Op             `json:"op"`
	Payload      *tracker.Issue `json:"payload,omitempty"`
	RemoveFields []string       `json:"remove_fields,omitempty"`
	AddedCCs     []string       `json:"added_ccs,omitempty"`
	RemovedCCs   []string       `json:"removed_ccs,omitempty"`
}

// statusMap is the static local → remote status table. A status
// mismatch always produces an update.
var statusMap = map[string]string{
	"Not Started": "new",
	"In Progress": "assigned",
	"In Review":   "fixed",
	"Completed":   "verified",
	"Deprecated":  "obsolete",
}

// MapStatus translates a local status into the tracker vocabulary.
// Unknown statuses pass through unchanged so new local states degrade
// to an update rather than an error.
func MapStatus(local string) string {
	if remote, ok := statusMap[local]; ok {
		return remote
	}
	return local
}

// Reconcile diffs local state against the last-known remote ticket.
// A nil remote means no ticket exists and yields a create. The result
// is idempotent: applying the plan and reconciling again yields noop.
func Reconcile(local *LocalIssue, remote *tracker.Issue) *Plan {
	desired := payloadFor(local)

	if remote == nil {
		return &Plan{Op: OpCreate, Payload: desired}
	}

	plan := &Plan{Op: OpNoop}
	dirty := false

	if desired.Status != remote.Status {
		dirty = true
	}
	if desired.Title != remote.Title && desired.Title != "" {
		dirty = true
	}
	if desired.Priority != remote.Priority && desired.Priority != "" {
		dirty = true
	}
	if desired.Severity != remote.Severity && desired.Severity != "" {
		dirty = true
	}

	// Due date: a stale remote value is removed, never left behind.
	remoteDue, hasRemoteDue := remote.CustomField(DueDateField)
	switch {
	case local.DueDate == "" && hasRemoteDue:
		plan.RemoveFields = append(plan.RemoveFields, DueDateField)
		dirty = true
	case local.DueDate != "":
		if !hasRemoteDue || NormalizeDate(local.DueDate) != NormalizeDate(remoteDue.Value) {
			dirty = true
		}
	}

	plan.AddedCCs, plan.RemovedCCs = diffSets(local.CCs, remote.CCs)
	if len(plan.AddedCCs) > 0 || len(plan.RemovedCCs) > 0 {
		dirty = true
	}

	if !dirty {
		return plan
	}
	plan.Op = OpUpdate
	plan.Payload = desired
	return plan
}

// payloadFor projects local state into the wire shape.
func payloadFor(local *LocalIssue) *tracker.Issue {
	issue := &tracker.Issue{
		Title:    local.Title,
		Body:     local.Body,
		Status:   MapStatus(local.Status),
		Type:     local.Type,
		Priority: local.Priority,
		Severity: local.Severity,
		CCs:      sortedSet(local.CCs),
	}
	if local.DueDate != "" {
		issue.CustomFields = append(issue.CustomFields, tracker.CustomField{
			Name:          DueDateField,
			Value:         NormalizeDate(local.DueDate),
			Type:          "Date",
			DisplayString: NormalizeDate(local.DueDate),
		})
	}
	return issue
}

// dateLayouts are the formats due dates arrive in, most specific first.
var dateLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// NormalizeDate reduces a date string to ISO YYYY-MM-DD. Values that
// parse under none of the known layouts are compared verbatim.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}

// diffSets returns the elements to add to and remove from the remote
// list so it matches the local one, order-insensitively.
func diffSets(local, remote []string) (added, removed []string) {
	localSet := make(map[string]struct{}, len(local))
	for _, v := range local {
		localSet[v] = struct{}{}
	}
	remoteSet := make(map[string]struct{}, len(remote))
	for _, v := range remote {
		remoteSet[v] = struct{}{}
	}

	for v := range localSet {
		if _, ok := remoteSet[v]; !ok {
			added = append(added, v)
		}
	}
	for v := range remoteSet {
		if _, ok := localSet[v]; !ok {
			removed = append(removed, v)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

func sortedSet(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
