// Package accord is the access control and propagation core of a GRC
// application, together with the coordinator-facing types of its issue
// tracker sync engine.
//
// The engine stores direct ACL grants, derives propagated grants from
// relationships between objects according to a declared rule tree, and
// answers permission checks from a per-person materialized snapshot:
//
//	eng, err := accord.NewEngine(
//	    accord.WithStore(memStore),
//	    accord.WithRules(accord.DefaultRules()),
//	)
//	res, err := eng.Can(ctx, &accord.AccessRequest{
//	    Person: actor,
//	    Action: accord.ActionRead,
//	    Object: accord.ObjectRef{Type: "audit", ID: "audit_7"},
//	})
package accord

// ObjectRef identifies a record of some registered type.
type ObjectRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Key returns the "type:id" form used for map keys and cache keys.
func (o ObjectRef) Key() string { return o.Type + ":" + o.ID }

// Action is what the person wants to do with the object.
type Action string

const (
	// ActionRead is the read action.
	ActionRead Action = "read"

	// ActionUpdate is the update action.
	ActionUpdate Action = "update"

	// ActionDelete is the delete action.
	ActionDelete Action = "delete"
)

// AccessRequest is the input to a permission check. A nil Person is an
// anonymous request and is always denied.
type AccessRequest struct {
	Person *PersonRef `json:"person,omitempty"`
	Action Action     `json:"action"`
	Object ObjectRef  `json:"object"`
}

// PersonRef carries the identity facts a check needs about the actor.
// It is a projection of person.Person so that callers holding only an
// authenticated principal need not load the full record.
type PersonRef struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	SystemRole string `json:"system_role"`
}

// AccessResult is the outcome of a permission check.
type AccessResult struct {
	Allowed    bool        `json:"allowed"`
	Decision   Decision    `json:"decision"`
	Reason     string      `json:"reason,omitempty"`
	MatchedBy  []MatchInfo `json:"matched_by,omitempty"`
	EvalTimeNs int64       `json:"eval_time_ns"`
}

// Decision is the permission check outcome.
type Decision string

const (
	// DecisionAllow means an ACL grant covers the request.
	DecisionAllow Decision = "allow"

	// DecisionAllowAdmin means an admin short-circuit matched.
	DecisionAllowAdmin Decision = "allow_admin"

	// DecisionAllowCondition means a conditional term granted access.
	DecisionAllowCondition Decision = "allow_condition"

	// DecisionDenyAnonymous means no authenticated person was supplied.
	DecisionDenyAnonymous Decision = "deny_anonymous"

	// DecisionDenyNoAccess means the person's system role is NoAccess.
	DecisionDenyNoAccess Decision = "deny_no_access"

	// DecisionDenyDefault means no grant or condition matched.
	DecisionDenyDefault Decision = "deny_default"
)

// MatchInfo describes what granted during evaluation.
type MatchInfo struct {
	Source string `json:"source"` // "admin", "acl", "condition"
	RuleID string `json:"rule_id,omitempty"`
	Detail string `json:"detail,omitempty"`
}
