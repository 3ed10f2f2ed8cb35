// Package middleware provides HTTP authorization middleware for Accord.
package middleware

import (
	"encoding/json"

	"github.com/xraph/forge"

	"github.com/grcware/accord"
)

// Require enforces a permission check. It resolves the acting person
// from the request context (attached actor > Forge user > anonymous)
// and checks whether they can perform the action on the addressed
// object. The object ID is taken from the "id" path parameter.
func Require(eng *accord.Engine, action accord.Action, objectType string) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			person := resolvePerson(ctx)
			objectID := ctx.Param("id")

			err := eng.Enforce(ctx.Context(), &accord.AccessRequest{
				Person: person,
				Action: action,
				Object: accord.ObjectRef{Type: objectType, ID: objectID},
			})
			if err != nil {
				return denyResponse(ctx)
			}
			return next(ctx)
		}
	}
}

// RequireAny allows the request if ANY of the checks pass.
func RequireAny(eng *accord.Engine, checks ...accord.AccessRequest) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			person := resolvePerson(ctx)
			scoped := accord.WithRequestScope(ctx.Context())
			for i := range checks {
				c := checks[i]
				c.Person = person
				result, err := eng.Can(scoped, &c)
				if err == nil && result.Allowed {
					return next(ctx)
				}
			}
			return denyResponse(ctx)
		}
	}
}

// RequireAll allows the request only if ALL checks pass.
func RequireAll(eng *accord.Engine, checks ...accord.AccessRequest) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			person := resolvePerson(ctx)
			scoped := accord.WithRequestScope(ctx.Context())
			for i := range checks {
				c := checks[i]
				c.Person = person
				if err := eng.Enforce(scoped, &c); err != nil {
					return denyResponse(ctx)
				}
			}
			return next(ctx)
		}
	}
}

// resolvePerson extracts the acting person from context.
// Priority: attached actor → Forge user ID → anonymous (nil).
func resolvePerson(ctx forge.Context) *accord.PersonRef {
	if p, ok := accord.ActorFromContext(ctx.Context()); ok {
		return p
	}
	if userID := forge.UserIDFromContext(ctx.Context()); userID != "" {
		return &accord.PersonRef{ID: userID}
	}
	return nil
}

func denyResponse(ctx forge.Context) error {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.Response().WriteHeader(403)
	return json.NewEncoder(ctx.Response()).Encode(map[string]string{"error": "access denied"})
}
