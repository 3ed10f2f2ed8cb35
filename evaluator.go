package accord

import (
	"context"
	"fmt"
	"strings"
)

// FieldResolver resolves a named field of an object against its current
// data. Supplied by the object store collaborator; the engine uses it
// to evaluate conditional permission terms.
type FieldResolver interface {
	ReferencedField(ctx context.Context, obj ObjectRef, field string) (any, error)
}

// Operator is a comparison operator for conditional terms.
type Operator string

const (
	// OpContains matches when the person appears in a list-valued field.
	OpContains Operator = "contains"

	// OpEquals matches when the field equals the person's id or email.
	OpEquals Operator = "eq"
)

// Condition is a conditional permission term: the action is granted on
// objects of the type when the referenced field names the person.
// Conditions only ever widen access.
type Condition struct {
	Action     Action   `json:"action"`
	ObjectType string   `json:"object_type"`
	Field      string   `json:"field"`
	Operator   Operator `json:"operator"`
}

// evalConditions evaluates the configured conditional terms for the
// request. The result depends only on the object's current referenced
// fields and the person's identity.
func evalConditions(ctx context.Context, resolver FieldResolver, conditions []Condition, req *AccessRequest) (*AccessResult, error) {
	if resolver == nil || req.Person == nil {
		return nil, nil
	}

	for _, c := range conditions {
		if c.Action != req.Action || c.ObjectType != req.Object.Type {
			continue
		}

		val, err := resolver.ReferencedField(ctx, req.Object, c.Field)
		if err != nil {
			return nil, fmt.Errorf("resolve field %q on %s: %w", c.Field, req.Object.Key(), err)
		}
		if val == nil {
			continue
		}

		if matchesPerson(c.Operator, val, req.Person) {
			return &AccessResult{
				Allowed:  true,
				Decision: DecisionAllowCondition,
				MatchedBy: []MatchInfo{{
					Source: "condition",
					Detail: fmt.Sprintf("person listed in %s.%s", req.Object.Type, c.Field),
				}},
			}, nil
		}
	}

	return nil, nil
}

func matchesPerson(op Operator, val any, p *PersonRef) bool {
	switch op {
	case OpEquals:
		s := fmt.Sprint(val)
		return s == p.ID || strings.EqualFold(s, p.Email)
	case OpContains:
		return containsPerson(val, p)
	default:
		return false
	}
}

func containsPerson(val any, p *PersonRef) bool {
	switch v := val.(type) {
	case []string:
		for _, item := range v {
			if item == p.ID || strings.EqualFold(item, p.Email) {
				return true
			}
		}
	case []any:
		for _, item := range v {
			s := fmt.Sprint(item)
			if s == p.ID || strings.EqualFold(s, p.Email) {
				return true
			}
		}
	case string:
		return v == p.ID || strings.EqualFold(v, p.Email)
	}
	return false
}
