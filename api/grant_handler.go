package api

import (
	"fmt"
	"net/http"

	"github.com/xraph/forge"

	"github.com/grcware/accord/acl"
	"github.com/grcware/accord/id"
)

func (a *API) registerGrantRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("grants"))

	if err := g.POST("/grants", a.createGrant,
		forge.WithSummary("Grant role on object"),
		forge.WithDescription("Creates a direct ACL entry and propagates it across the relationship graph."),
		forge.WithOperationID("createGrant"),
		forge.WithRequestSchema(CreateGrantRequest{}),
		forge.WithCreatedResponse(&acl.Entry{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/grants/:entryId", a.revokeGrant,
		forge.WithSummary("Revoke grant"),
		forge.WithDescription("Removes a direct ACL entry and its derived closure. Derived entries cannot be revoked directly."),
		forge.WithOperationID("revokeGrant"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/grants/:entryId/people", a.assignPerson,
		forge.WithSummary("Assign person to grant"),
		forge.WithDescription("Adds a person to a direct entry and mirrors the change onto every derived entry."),
		forge.WithOperationID("assignPerson"),
		forge.WithRequestSchema(AssignPersonRequest{}),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/grants/:entryId/people/:personId", a.unassignPerson,
		forge.WithSummary("Unassign person from grant"),
		forge.WithDescription("Removes a person from a direct entry and its derived closure."),
		forge.WithOperationID("unassignPerson"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/objects/:objectType/:objectId/grants", a.listGrants,
		forge.WithSummary("List grants on object"),
		forge.WithDescription("Lists every ACL entry on the object, direct and derived."),
		forge.WithOperationID("listGrants"),
		forge.WithResponseSchema(http.StatusOK, "Grant list", []*acl.Entry{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) createGrant(ctx forge.Context, req *CreateGrantRequest) (*acl.Entry, error) {
	if req.ObjectType == "" || req.ObjectID == "" {
		return nil, forge.BadRequest("object_type and object_id are required")
	}

	roleID, err := id.ParseRoleID(req.RoleID)
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid role ID: %v", err))
	}

	people := make([]id.PersonID, 0, len(req.People))
	for _, raw := range req.People {
		pid, err := id.ParsePersonID(raw)
		if err != nil {
			return nil, forge.BadRequest(fmt.Sprintf("invalid person ID %q: %v", raw, err))
		}
		people = append(people, pid)
	}

	entry, err := a.eng.Grant(ctx.Context(), req.ObjectType, req.ObjectID, roleID, people)
	if err != nil {
		return nil, mapError(err)
	}

	return entry, ctx.JSON(http.StatusCreated, entry)
}

func (a *API) revokeGrant(ctx forge.Context, _ *GetGrantRequest) (*struct{}, error) {
	entryID, err := id.ParseEntryID(ctx.Param("entryId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid entry ID: %v", err))
	}

	if err := a.eng.Revoke(ctx.Context(), entryID); err != nil {
		return nil, mapError(err)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) assignPerson(ctx forge.Context, req *AssignPersonRequest) (*struct{}, error) {
	entryID, err := id.ParseEntryID(ctx.Param("entryId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid entry ID: %v", err))
	}

	personID, err := id.ParsePersonID(req.PersonID)
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid person ID: %v", err))
	}

	if err := a.eng.AssignPerson(ctx.Context(), entryID, personID); err != nil {
		return nil, mapError(err)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) unassignPerson(ctx forge.Context, _ *struct{}) (*struct{}, error) {
	entryID, err := id.ParseEntryID(ctx.Param("entryId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid entry ID: %v", err))
	}

	personID, err := id.ParsePersonID(ctx.Param("personId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid person ID: %v", err))
	}

	if err := a.eng.UnassignPerson(ctx.Context(), entryID, personID); err != nil {
		return nil, mapError(err)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) listGrants(ctx forge.Context, _ *ListGrantsRequest) ([]*acl.Entry, error) {
	objectType := ctx.Param("objectType")
	objectID := ctx.Param("objectId")
	if objectType == "" || objectID == "" {
		return nil, forge.BadRequest("objectType and objectId are required")
	}

	entries, err := a.eng.Store().EntriesOnObject(ctx.Context(), objectType, objectID)
	if err != nil {
		return nil, mapError(err)
	}

	return entries, ctx.JSON(http.StatusOK, entries)
}
