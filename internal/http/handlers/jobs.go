package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jobops/jobops-api/internal/models"
	"github.com/jobops/jobops-api/internal/repository"
	"github.com/jobops/jobops-api/internal/service"
)

const defaultJobPageSize = 50

// JobsHandler serves job listing and detail reads.
type JobsHandler struct {
	jobs     repository.JobRepository
	runs     repository.ScoringRunRepository
	evidence *service.EvidenceService
	features repository.Features
}

// NewJobsHandler creates a jobs handler.
func NewJobsHandler(jobs repository.JobRepository, runs repository.ScoringRunRepository, evidence *service.EvidenceService, features repository.Features) *JobsHandler {
	return &JobsHandler{jobs: jobs, runs: runs, evidence: evidence, features: features}
}

// ListJobsInput filters the job list.
type ListJobsInput struct {
	Status   string `query:"status" doc:"Filter by job status (NEW, LINK_ONLY, SCORED, SHORTLIST, ...)"`
	Source   string `query:"source" doc:"Filter by source domain (linkedin, greenhouse.io, ...)"`
	MinScore *int   `query:"min_score" doc:"Only jobs with final_score at or above this value"`
	Limit    int    `query:"limit" doc:"Page size, defaults to 50, capped at 200"`
	Cursor   string `query:"cursor" doc:"Keyset cursor from a previous page"`
}

// ListJobsOutput is one page of jobs.
type ListJobsOutput struct {
	Body struct {
		OK   bool `json:"ok"`
		Data struct {
			Jobs       []*models.Job `json:"jobs"`
			NextCursor string        `json:"next_cursor,omitempty"`
		} `json:"data"`
	}
}

// ListJobs returns jobs newest-first with keyset pagination.
func (h *JobsHandler) ListJobs(ctx context.Context, input *ListJobsInput) (*ListJobsOutput, error) {
	if input.Status != "" && !models.JobStatus(input.Status).Valid() {
		return nil, apiError(http.StatusBadRequest, KindInvalidInput, fmt.Sprintf("unknown status %q", input.Status))
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultJobPageSize
	}
	if limit > 200 {
		limit = 200
	}
	jobs, err := h.jobs.List(ctx, repository.JobFilter{
		Status:   input.Status,
		Source:   input.Source,
		MinScore: input.MinScore,
		Limit:    limit,
		Cursor:   input.Cursor,
	})
	if err != nil {
		return nil, serviceError(err)
	}
	out := &ListJobsOutput{}
	out.Body.OK = true
	out.Body.Data.Jobs = jobs
	if len(jobs) == limit {
		out.Body.Data.NextCursor = repository.Cursor(jobs[len(jobs)-1])
	}
	return out, nil
}

// GetJobInput identifies one job.
type GetJobInput struct {
	JobKey string `path:"job_key" doc:"Canonical job key, e.g. linkedin:4012345678"`
}

// GetJobOutput is the job detail view: the record, its evidence rows, and
// the latest scoring run when those tables exist.
type GetJobOutput struct {
	Body struct {
		OK   bool `json:"ok"`
		Data struct {
			Job       *models.Job        `json:"job"`
			Evidence  []*models.Evidence `json:"evidence"`
			LatestRun *models.ScoringRun `json:"latest_run,omitempty"`
		} `json:"data"`
	}
}

// GetJob returns one job with evidence and scoring telemetry.
func (h *JobsHandler) GetJob(ctx context.Context, input *GetJobInput) (*GetJobOutput, error) {
	job, err := h.jobs.GetByKey(ctx, input.JobKey)
	if err != nil {
		return nil, serviceError(err)
	}
	if job == nil {
		return nil, apiError(http.StatusNotFound, KindNotFound, fmt.Sprintf("job %s not found", input.JobKey))
	}

	out := &GetJobOutput{}
	out.Body.OK = true
	out.Body.Data.Job = job
	out.Body.Data.Evidence = []*models.Evidence{}

	rows, err := h.evidence.ListByJobKey(ctx, input.JobKey)
	switch {
	case errors.Is(err, service.ErrSchemaDisabled):
		// Detail reads degrade to an empty evidence list.
	case err != nil:
		return nil, serviceError(err)
	case rows != nil:
		out.Body.Data.Evidence = rows
	}

	if h.features.ScoringRuns {
		run, err := h.runs.LatestByJobKey(ctx, input.JobKey)
		if err != nil {
			return nil, serviceError(err)
		}
		out.Body.Data.LatestRun = run
	}
	return out, nil
}
