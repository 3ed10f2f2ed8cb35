package accord

import "github.com/grcware/accord/acr"

// AllTypes is the wildcard target type. A wildcard node expands to
// every registered object type and is only honored for source roles in
// Config.BootstrapAdminRoles.
const AllTypes = "*"

// RuleNode is one step of a propagation rule tree. When a person holds
// the source role on an object related to an object of TargetType, the
// person receives the named derived role on the neighbor, and the
// children continue the walk from there.
type RuleNode struct {
	// TargetType is the object type the derived entry lands on, or
	// AllTypes.
	TargetType string `json:"target_type"`

	// Role is the name of the derived role on the target type. It must
	// exist in the role registry; its capabilities must be a subset of
	// the base role's capabilities.
	Role string `json:"role"`

	// AllowExternal permits propagation across relationships whose
	// origin is external.
	AllowExternal bool `json:"allow_external,omitempty"`

	// Children continue propagation from the derived entry.
	Children []*RuleNode `json:"children,omitempty"`
}

// RuleSet maps a source role, keyed by RuleKey, to its propagation
// subtrees. Definition order breaks ties between competing rules.
type RuleSet map[string][]*RuleNode

// RuleKey builds the RuleSet key for a role on an object type.
func RuleKey(objectType, roleName string) string {
	return objectType + ":" + roleName
}

// RulesFor returns the subtrees for the role, or nil.
func (rs RuleSet) RulesFor(objectType, roleName string) []*RuleNode {
	return rs[RuleKey(objectType, roleName)]
}

// mappedRole is the conventional name of the derived role a source role
// produces on neighbor objects.
func mappedRole(sourceRole string) string { return sourceRole + "s Mapped" }

// DefaultRules is the propagation tree of a stock GRC installation:
// program roles flow onto audits and from audits onto assessments,
// issues and snapshots; audit captains flow onto the audit's contents.
// Derived read/update roles never carry delete.
func DefaultRules() RuleSet {
	programDescend := func(role string) []*RuleNode {
		return []*RuleNode{
			{TargetType: "assessment", Role: mappedRole(role)},
			{TargetType: "issue", Role: mappedRole(role), AllowExternal: true},
			{TargetType: "snapshot", Role: mappedRole(role)},
		}
	}

	rs := RuleSet{}
	for _, role := range []string{"Program Manager", "Program Editor", "Program Reader"} {
		rs[RuleKey("program", role)] = []*RuleNode{
			{
				TargetType:    "audit",
				Role:          mappedRole(role),
				AllowExternal: true,
				Children:      programDescend(role),
			},
			{TargetType: "control", Role: mappedRole(role)},
			{TargetType: "objective", Role: mappedRole(role)},
			{TargetType: "regulation", Role: mappedRole(role)},
			{TargetType: "document", Role: mappedRole(role)},
		}
	}

	rs[RuleKey("audit", "Audit Captain")] = []*RuleNode{
		{TargetType: "assessment", Role: "Audit Captains Mapped", Children: []*RuleNode{
			{TargetType: "document", Role: "Audit Captains Mapped"},
		}},
		{TargetType: "issue", Role: "Audit Captains Mapped", AllowExternal: true},
		{TargetType: "snapshot", Role: "Audit Captains Mapped"},
	}

	rs[RuleKey("audit", "Auditor")] = []*RuleNode{
		{TargetType: "assessment", Role: "Auditors Mapped"},
		{TargetType: "issue", Role: "Auditors Mapped"},
		{TargetType: "snapshot", Role: "Auditors Mapped"},
	}

	return rs
}

// DefaultRoles returns the role catalog matching DefaultRules: the
// source roles plus every derived role the tree references, with
// capability bits already projected (managers and editors keep
// read/update on mapped objects, readers keep read; delete never
// propagates).
func DefaultRoles() []*acr.Role {
	rud := acr.Capabilities{Read: true, Update: true, Delete: true}
	ru := acr.Capabilities{Read: true, Update: true}
	r := acr.Capabilities{Read: true}

	roles := []*acr.Role{
		{ObjectType: "program", Name: "Program Manager", Capabilities: rud},
		{ObjectType: "program", Name: "Program Editor", Capabilities: ru},
		{ObjectType: "program", Name: "Program Reader", Capabilities: r},
		{ObjectType: "audit", Name: "Audit Captain", Capabilities: rud},
		{ObjectType: "audit", Name: "Auditor", Capabilities: r},
		{ObjectType: "assessment", Name: "Assignee", Capabilities: ru},
		{ObjectType: "assessment", Name: "Verifier", Capabilities: ru},
		{ObjectType: "issue", Name: "Issue Admin", Capabilities: rud},
	}

	mapped := map[string]acr.Capabilities{
		"Program Manager": ru,
		"Program Editor":  ru,
		"Program Reader":  r,
		"Audit Captain":   ru,
		"Auditor":         r,
	}
	targets := map[string][]string{
		"Program Manager": {"audit", "assessment", "issue", "snapshot", "control", "objective", "regulation", "document"},
		"Program Editor":  {"audit", "assessment", "issue", "snapshot", "control", "objective", "regulation", "document"},
		"Program Reader":  {"audit", "assessment", "issue", "snapshot", "control", "objective", "regulation", "document"},
		"Audit Captain":   {"assessment", "issue", "snapshot", "document"},
		"Auditor":         {"assessment", "issue", "snapshot"},
	}

	for _, source := range []string{"Program Manager", "Program Editor", "Program Reader", "Audit Captain", "Auditor"} {
		caps := mapped[source]
		if source == "Program Reader" || source == "Auditor" {
			caps = r
		}
		for _, target := range targets[source] {
			roles = append(roles, &acr.Role{
				ObjectType:   target,
				Name:         mappedRole(source),
				Capabilities: caps,
				IsInternal:   true,
			})
		}
	}

	return roles
}
