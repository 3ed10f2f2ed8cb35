package api

import (
	"fmt"
	"net/http"

	"github.com/xraph/forge"

	"github.com/grcware/accord/id"
	"github.com/grcware/accord/notify"
	"github.com/grcware/accord/syncjob"
)

func (a *API) registerSyncRoutes(router forge.Router) error {
	g := router.Group("/v1/sync", forge.WithGroupTags("sync"))

	if err := g.POST("/jobs", a.submitSyncJob,
		forge.WithSummary("Submit sync job"),
		forge.WithDescription("Persists a bulk sync job and starts it in the background."),
		forge.WithOperationID("submitSyncJob"),
		forge.WithRequestSchema(SubmitSyncJobRequest{}),
		forge.WithCreatedResponse(SyncJobResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/jobs/:jobId", a.getSyncJob,
		forge.WithSummary("Get sync job"),
		forge.WithDescription("Returns the job's state and per-object results."),
		forge.WithOperationID("getSyncJob"),
		forge.WithResponseSchema(http.StatusOK, "Job details", SyncJobResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/jobs/:jobId/cancel", a.cancelSyncJob,
		forge.WithSummary("Cancel sync job"),
		forge.WithDescription("Requests cooperative cancellation; the worker stops at the next batch boundary."),
		forge.WithOperationID("cancelSyncJob"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/jobs", a.listSyncJobs,
		forge.WithSummary("List sync jobs"),
		forge.WithDescription("Lists sync jobs with optional filters."),
		forge.WithOperationID("listSyncJobs"),
		forge.WithRequestSchema(ListSyncJobsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Job list", []SyncJobResponse{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) submitSyncJob(ctx forge.Context, req *SubmitSyncJobRequest) (*SyncJobResponse, error) {
	kind := syncjob.Kind(req.Kind)
	switch kind {
	case syncjob.KindCreate, syncjob.KindUpdate, syncjob.KindVerify:
	default:
		return nil, forge.BadRequest(fmt.Sprintf("invalid kind %q", req.Kind))
	}
	if len(req.Objects) == 0 {
		return nil, forge.BadRequest("objects cannot be empty")
	}
	if req.RequesterEmail == "" {
		return nil, forge.BadRequest("requester_email is required")
	}

	objects := make([]syncjob.ObjectRef, len(req.Objects))
	for i, o := range req.Objects {
		if o.Type == "" || o.ID == "" {
			return nil, forge.BadRequest("every object needs a type and an id")
		}
		objects[i] = syncjob.ObjectRef{Type: o.Type, ID: o.ID}
	}

	job, err := a.coord.Submit(ctx.Context(), kind, objects, req.RequesterEmail, req.Filename)
	if err != nil {
		return nil, mapError(err)
	}

	a.coord.Launch(job.ID, notify.Message{Title: req.Title, EmailText: req.EmailText})

	resp := toSyncJobResponse(job)
	return resp, ctx.JSON(http.StatusCreated, resp)
}

func (a *API) getSyncJob(ctx forge.Context, _ *GetSyncJobRequest) (*SyncJobResponse, error) {
	jobID, err := id.ParseJobID(ctx.Param("jobId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid job ID: %v", err))
	}

	job, err := a.eng.Store().GetJob(ctx.Context(), jobID)
	if err != nil {
		return nil, mapError(err)
	}

	resp := toSyncJobResponse(job)
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) cancelSyncJob(ctx forge.Context, _ *GetSyncJobRequest) (*struct{}, error) {
	jobID, err := id.ParseJobID(ctx.Param("jobId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid job ID: %v", err))
	}

	if err := a.coord.Cancel(ctx.Context(), jobID); err != nil {
		return nil, mapError(err)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) listSyncJobs(ctx forge.Context, req *ListSyncJobsRequest) ([]SyncJobResponse, error) {
	filter := &syncjob.ListFilter{
		Kind:           syncjob.Kind(req.Kind),
		State:          syncjob.State(req.State),
		RequesterEmail: req.RequesterEmail,
		Limit:          defaultLimit(req.Limit),
		Offset:         req.Offset,
	}

	jobs, err := a.eng.Store().ListJobs(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}

	resp := make([]SyncJobResponse, len(jobs))
	for i, job := range jobs {
		resp[i] = *toSyncJobResponse(job)
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func toSyncJobResponse(job *syncjob.Job) *SyncJobResponse {
	resp := &SyncJobResponse{
		ID:             job.ID.String(),
		Kind:           string(job.Kind),
		State:          string(job.State),
		RequesterEmail: job.RequesterEmail,
	}
	for _, r := range job.Results {
		resp.Results = append(resp.Results, SyncJobResult{
			Type:       r.Object.Type,
			ID:         r.Object.ID,
			ExternalID: r.ExternalID,
			Err:        r.Err,
			Code:       r.Code,
		})
	}
	return resp
}
