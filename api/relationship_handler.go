package api

import (
	"fmt"
	"net/http"

	"github.com/xraph/forge"

	"github.com/grcware/accord/id"
	"github.com/grcware/accord/relationship"
)

func (a *API) registerRelationshipRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("relationships"))

	if err := g.POST("/relationships", a.createRelationship,
		forge.WithSummary("Link objects"),
		forge.WithDescription("Creates a relationship and propagates existing grants across it."),
		forge.WithOperationID("createRelationship"),
		forge.WithRequestSchema(CreateRelationshipRequest{}),
		forge.WithCreatedResponse(&relationship.Relationship{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/relationships/:relationshipId", a.deleteRelationship,
		forge.WithSummary("Unlink objects"),
		forge.WithDescription("Removes a relationship and the derived grants that depended on it."),
		forge.WithOperationID("deleteRelationship"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/relationships", a.listRelationships,
		forge.WithSummary("List relationships"),
		forge.WithDescription("Lists relationships with optional filters."),
		forge.WithOperationID("listRelationships"),
		forge.WithRequestSchema(ListRelationshipsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Relationship list", []*relationship.Relationship{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) createRelationship(ctx forge.Context, req *CreateRelationshipRequest) (*relationship.Relationship, error) {
	if req.SourceType == "" || req.SourceID == "" || req.DestinationType == "" || req.DestinationID == "" {
		return nil, forge.BadRequest("source and destination are required")
	}

	rel := &relationship.Relationship{
		ID:              id.NewRelationshipID(),
		SourceType:      req.SourceType,
		SourceID:        req.SourceID,
		DestinationType: req.DestinationType,
		DestinationID:   req.DestinationID,
		IsExternal:      req.IsExternal,
	}

	if err := a.eng.LinkObjects(ctx.Context(), rel); err != nil {
		return nil, mapError(err)
	}

	return rel, ctx.JSON(http.StatusCreated, rel)
}

func (a *API) deleteRelationship(ctx forge.Context, _ *GetRelationshipRequest) (*struct{}, error) {
	relID, err := id.ParseRelationshipID(ctx.Param("relationshipId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid relationship ID: %v", err))
	}

	if err := a.eng.UnlinkObjects(ctx.Context(), relID); err != nil {
		return nil, mapError(err)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) listRelationships(ctx forge.Context, req *ListRelationshipsRequest) ([]*relationship.Relationship, error) {
	filter := &relationship.ListFilter{
		ObjectType: req.ObjectType,
		ObjectID:   req.ObjectID,
		Limit:      defaultLimit(req.Limit),
		Offset:     req.Offset,
	}

	rels, err := a.eng.Store().ListRelationships(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}

	return rels, ctx.JSON(http.StatusOK, rels)
}
