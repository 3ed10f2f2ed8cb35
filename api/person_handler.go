package api

import (
	"fmt"
	"net/http"

	"github.com/xraph/forge"

	"github.com/grcware/accord/id"
	"github.com/grcware/accord/person"
)

func (a *API) registerPersonRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("people"))

	if err := g.POST("/people", a.createPerson,
		forge.WithSummary("Create person"),
		forge.WithDescription("Creates a new person. Emails are unique case-insensitively."),
		forge.WithOperationID("createPerson"),
		forge.WithRequestSchema(CreatePersonRequest{}),
		forge.WithCreatedResponse(&person.Person{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/people/:personId", a.getPerson,
		forge.WithSummary("Get person"),
		forge.WithDescription("Returns details of a specific person."),
		forge.WithOperationID("getPerson"),
		forge.WithResponseSchema(http.StatusOK, "Person details", &person.Person{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.PUT("/people/:personId", a.updatePerson,
		forge.WithSummary("Update person"),
		forge.WithDescription("Updates a person's name or system role."),
		forge.WithOperationID("updatePerson"),
		forge.WithRequestSchema(UpdatePersonRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Updated person", &person.Person{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/people/:personId", a.deletePerson,
		forge.WithSummary("Delete person"),
		forge.WithDescription("Removes a person and detaches them from every ACL entry. Entries stay in place."),
		forge.WithOperationID("deletePerson"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/people", a.listPeople,
		forge.WithSummary("List people"),
		forge.WithDescription("Lists people with optional filters."),
		forge.WithOperationID("listPeople"),
		forge.WithRequestSchema(ListPeopleRequest{}),
		forge.WithResponseSchema(http.StatusOK, "People list", []*person.Person{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) createPerson(ctx forge.Context, req *CreatePersonRequest) (*person.Person, error) {
	if req.Email == "" {
		return nil, forge.BadRequest("email is required")
	}

	role := person.SystemRoleReader
	if req.SystemRole != "" {
		role = person.SystemRole(req.SystemRole)
	}

	p := &person.Person{
		ID:         id.NewPersonID(),
		Email:      req.Email,
		Name:       req.Name,
		SystemRole: role,
	}

	if err := a.eng.Store().CreatePerson(ctx.Context(), p); err != nil {
		return nil, mapError(err)
	}

	return p, ctx.JSON(http.StatusCreated, p)
}

func (a *API) getPerson(ctx forge.Context, _ *GetPersonRequest) (*person.Person, error) {
	personID, err := id.ParsePersonID(ctx.Param("personId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid person ID: %v", err))
	}

	p, err := a.eng.Store().GetPerson(ctx.Context(), personID)
	if err != nil {
		return nil, mapError(err)
	}

	return p, ctx.JSON(http.StatusOK, p)
}

func (a *API) updatePerson(ctx forge.Context, req *UpdatePersonRequest) (*person.Person, error) {
	personID, err := id.ParsePersonID(ctx.Param("personId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid person ID: %v", err))
	}

	p, err := a.eng.Store().GetPerson(ctx.Context(), personID)
	if err != nil {
		return nil, mapError(err)
	}

	if req.Name != "" {
		p.Name = req.Name
	}
	if req.SystemRole != "" {
		p.SystemRole = person.SystemRole(req.SystemRole)
	}

	if err := a.eng.Store().UpdatePerson(ctx.Context(), p); err != nil {
		return nil, mapError(err)
	}

	return p, ctx.JSON(http.StatusOK, p)
}

func (a *API) deletePerson(ctx forge.Context, _ *GetPersonRequest) (*struct{}, error) {
	personID, err := id.ParsePersonID(ctx.Param("personId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid person ID: %v", err))
	}

	if err := a.eng.RemovePerson(ctx.Context(), personID); err != nil {
		return nil, mapError(err)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) listPeople(ctx forge.Context, req *ListPeopleRequest) ([]*person.Person, error) {
	filter := &person.ListFilter{
		Email:  req.Email,
		Search: req.Search,
		Limit:  defaultLimit(req.Limit),
		Offset: req.Offset,
	}

	people, err := a.eng.Store().ListPeople(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}

	return people, ctx.JSON(http.StatusOK, people)
}
