package handlers

import (
	"context"

	"github.com/jobops/jobops-api/internal/service"
)

// EvidenceHandler serves evidence rebuild sweeps and the gap report.
type EvidenceHandler struct {
	evidence *service.EvidenceService
}

// NewEvidenceHandler creates an evidence handler.
func NewEvidenceHandler(evidence *service.EvidenceService) *EvidenceHandler {
	return &EvidenceHandler{evidence: evidence}
}

// RebuildArchivedInput bounds one evidence rebuild sweep.
type RebuildArchivedInput struct {
	Body struct {
		Mode         string `json:"mode,omitempty" doc:"retry_failed reprocesses jobs with failed evidence, all_archived sweeps every archived job"`
		Limit        int    `json:"limit,omitempty" doc:"Jobs per sweep, 1 to 10, defaults to 5"`
		DelayMS      int    `json:"delay_ms,omitempty" doc:"Pause between jobs to spread LLM load"`
		Force        bool   `json:"force,omitempty" doc:"Rebuild even when evidence rows already exist"`
		ProfileID    string `json:"profile_id,omitempty" doc:"Resume profile to match against"`
		ProfileOnly  bool   `json:"profile_only,omitempty" doc:"Skip requirement extraction, rematch the existing requirements"`
		MaxTokens    int    `json:"max_tokens,omitempty" doc:"Override the extraction token cap"`
		CursorJobKey string `json:"cursor_job_key,omitempty" doc:"Resume an all_archived sweep after this job key"`
	}
}

// RebuildArchivedOutput is the sweep summary.
type RebuildArchivedOutput struct {
	Body struct {
		OK   bool                   `json:"ok"`
		Data *service.RebuildResult `json:"data"`
	}
}

// RebuildArchived rebuilds evidence for archived jobs in bounded batches.
func (h *EvidenceHandler) RebuildArchived(ctx context.Context, input *RebuildArchivedInput) (*RebuildArchivedOutput, error) {
	result, err := h.evidence.RebuildArchived(ctx, service.RebuildInput{
		Mode:         input.Body.Mode,
		Limit:        input.Body.Limit,
		DelayMS:      input.Body.DelayMS,
		Force:        input.Body.Force,
		ProfileID:    input.Body.ProfileID,
		ProfileOnly:  input.Body.ProfileOnly,
		MaxTokens:    input.Body.MaxTokens,
		CursorJobKey: input.Body.CursorJobKey,
	})
	if err != nil {
		return nil, serviceError(err)
	}
	out := &RebuildArchivedOutput{}
	out.Body.OK = true
	out.Body.Data = result
	return out, nil
}

// GapReportInput filters the aggregated requirement-gap report.
type GapReportInput struct {
	Status    string `query:"status" doc:"Only jobs in this status"`
	Top       int    `query:"top" doc:"Rows to return, defaults to 10"`
	MinMissed int    `query:"min_missed" doc:"Only requirements missed at least this many times"`
	ProfileID string `query:"profile_id" doc:"Scope to evidence built against this profile"`
}

// GapReportOutput lists the most-missed requirements.
type GapReportOutput struct {
	Body struct {
		OK   bool `json:"ok"`
		Data struct {
			Gaps []service.GapRow `json:"gaps"`
		} `json:"data"`
	}
}

// GapReport aggregates requirements the resume repeatedly fails to cover.
func (h *EvidenceHandler) GapReport(ctx context.Context, input *GapReportInput) (*GapReportOutput, error) {
	rows, err := h.evidence.GapReport(ctx, service.GapReportInput{
		Status:    input.Status,
		Top:       input.Top,
		MinMissed: input.MinMissed,
		ProfileID: input.ProfileID,
	})
	if err != nil {
		return nil, serviceError(err)
	}
	out := &GapReportOutput{}
	out.Body.OK = true
	out.Body.Data.Gaps = rows
	if rows == nil {
		out.Body.Data.Gaps = []service.GapRow{}
	}
	return out, nil
}
