package handlers

import (
	"context"
	"strings"

	"github.com/jobops/jobops-api/internal/models"
	"github.com/jobops/jobops-api/internal/repository"
	"github.com/jobops/jobops-api/internal/service"
)

// ScoringHandler serves rescoring, manual JD paste, auto-pilot, and the
// pending-score sweep.
type ScoringHandler struct {
	scoring *service.ScoringService
	packs   *service.PackService
	sweeps  *service.RecoveryService
	jobs    repository.JobRepository
}

// NewScoringHandler creates a scoring handler.
func NewScoringHandler(scoring *service.ScoringService, packs *service.PackService, sweeps *service.RecoveryService, jobs repository.JobRepository) *ScoringHandler {
	return &ScoringHandler{scoring: scoring, packs: packs, sweeps: sweeps, jobs: jobs}
}

// RescoreInput identifies the job to rescore.
type RescoreInput struct {
	JobKey string `path:"job_key"`
	Body   struct {
		ProfileID   string `json:"profile_id,omitempty" doc:"Resume profile to build evidence against, defaults to the job preference or primary profile"`
		SkipExtract bool   `json:"skip_extract,omitempty" doc:"Skip the LLM field-extraction stage"`
	}
}

// OutcomeOutput wraps a single pipeline outcome.
type OutcomeOutput struct {
	Body struct {
		OK   bool             `json:"ok"`
		Data *service.Outcome `json:"data"`
	}
}

// Rescore reruns the scoring pipeline over one job.
func (h *ScoringHandler) Rescore(ctx context.Context, input *RescoreInput) (*OutcomeOutput, error) {
	outcome, err := h.scoring.Rescore(ctx, input.JobKey, service.ScoreOptions{
		ProfileID:   input.Body.ProfileID,
		SkipExtract: input.Body.SkipExtract,
	})
	if err != nil {
		return nil, serviceError(err)
	}
	return outcomeOutput(outcome), nil
}

// ManualJDInput carries operator-pasted JD text.
type ManualJDInput struct {
	JobKey string `path:"job_key"`
	Body   struct {
		JDTextClean string `json:"jd_text_clean" doc:"Pasted job description text, at least 200 characters after trimming"`
	}
}

// ManualJD stores pasted JD text on the job and rescores it.
func (h *ScoringHandler) ManualJD(ctx context.Context, input *ManualJDInput) (*OutcomeOutput, error) {
	outcome, err := h.scoring.ManualJD(ctx, input.JobKey, input.Body.JDTextClean)
	if err != nil {
		return nil, serviceError(err)
	}
	return outcomeOutput(outcome), nil
}

// AutoPilotInput identifies the job to run end to end.
type AutoPilotInput struct {
	JobKey string `path:"job_key"`
	Body   struct {
		ProfileID string `json:"profile_id,omitempty" doc:"Resume profile for evidence and the pack"`
	}
}

// AutoPilotOutput carries the combined rescore and pack outcome.
type AutoPilotOutput struct {
	Body struct {
		OK   bool `json:"ok"`
		Data struct {
			Rescore     *service.Outcome  `json:"rescore"`
			Pack        *service.PackView `json:"pack,omitempty"`
			PackSkipped string            `json:"pack_skipped,omitempty"`
		} `json:"data"`
	}
}

// AutoPilot marks the job for hands-off processing, rescores it, and
// generates an application pack unless the rescore parked the job in a
// rejected or archived state.
func (h *ScoringHandler) AutoPilot(ctx context.Context, input *AutoPilotInput) (*AutoPilotOutput, error) {
	if err := h.jobs.SetAutoPilot(ctx, input.JobKey, true); err != nil {
		return nil, serviceError(err)
	}
	outcome, err := h.scoring.Rescore(ctx, input.JobKey, service.ScoreOptions{ProfileID: input.Body.ProfileID})
	if err != nil {
		return nil, serviceError(err)
	}

	out := &AutoPilotOutput{}
	out.Body.OK = true
	out.Body.Data.Rescore = outcome

	switch outcome.Status {
	case models.JobStatusRejected, models.JobStatusArchived:
		out.Body.Data.PackSkipped = "job is " + string(outcome.Status)
	default:
		view, err := h.packs.Generate(ctx, service.GenerateInput{
			JobKey:    input.JobKey,
			ProfileID: input.Body.ProfileID,
		})
		if err != nil {
			return nil, serviceError(err)
		}
		out.Body.Data.Pack = view
	}
	return out, nil
}

// ScorePendingInput bounds one pending-score sweep.
type ScorePendingInput struct {
	Body struct {
		Limit  int    `json:"limit,omitempty" doc:"Maximum jobs to score this sweep"`
		Status string `json:"status,omitempty" doc:"Comma-separated statuses to sweep, defaults to NEW,SCORED,LINK_ONLY"`
	}
}

// ScorePendingOutput is the sweep summary.
type ScorePendingOutput struct {
	Body struct {
		OK   bool                        `json:"ok"`
		Data *service.ScorePendingResult `json:"data"`
	}
}

// ScorePending scores jobs that have JD text but no current score.
func (h *ScoringHandler) ScorePending(ctx context.Context, input *ScorePendingInput) (*ScorePendingOutput, error) {
	var statuses []models.JobStatus
	for _, s := range strings.Split(input.Body.Status, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		statuses = append(statuses, models.JobStatus(strings.ToUpper(s)))
	}
	result, err := h.sweeps.ScorePending(ctx, statuses, input.Body.Limit)
	if err != nil {
		return nil, serviceError(err)
	}
	out := &ScorePendingOutput{}
	out.Body.OK = true
	out.Body.Data = result
	return out, nil
}

func outcomeOutput(outcome *service.Outcome) *OutcomeOutput {
	out := &OutcomeOutput{}
	out.Body.OK = true
	out.Body.Data = outcome
	return out
}
