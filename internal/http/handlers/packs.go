package handlers

import (
	"context"
	"encoding/base64"

	"github.com/jobops/jobops-api/internal/models"
	"github.com/jobops/jobops-api/internal/service"
)

// PacksHandler serves the application-pack state machine and exports.
type PacksHandler struct {
	packs  *service.PackService
	export *service.ExportService
}

// NewPacksHandler creates a packs handler.
func NewPacksHandler(packs *service.PackService, export *service.ExportService) *PacksHandler {
	return &PacksHandler{packs: packs, export: export}
}

// PackViewOutput wraps the draft view returned by every pack operation.
type PackViewOutput struct {
	Body struct {
		OK   bool              `json:"ok"`
		Data *service.PackView `json:"data"`
	}
}

func packViewOutput(view *service.PackView) *PackViewOutput {
	out := &PackViewOutput{}
	out.Body.OK = true
	out.Body.Data = view
	return out
}

// GetPackInput identifies the draft to read.
type GetPackInput struct {
	JobKey    string `path:"job_key"`
	ProfileID string `query:"profile_id" doc:"Resume profile the draft was built against, defaults to the job preference or primary profile"`
}

// GetPack returns the stored draft with readiness and version history.
func (h *PacksHandler) GetPack(ctx context.Context, input *GetPackInput) (*PackViewOutput, error) {
	view, err := h.packs.Get(ctx, input.JobKey, input.ProfileID)
	if err != nil {
		return nil, serviceError(err)
	}
	return packViewOutput(view), nil
}

// GeneratePackInput configures a pack build.
type GeneratePackInput struct {
	JobKey string `path:"job_key"`
	Body   struct {
		ProfileID     string             `json:"profile_id,omitempty"`
		Force         bool               `json:"force,omitempty" doc:"Regenerate even when the draft is READY_TO_APPLY"`
		FocusKeywords []string           `json:"focus_keywords,omitempty" doc:"Keywords the summary and bullets should emphasize"`
		ATSMode       models.ATSMode     `json:"ats_mode,omitempty" doc:"ATS keyword gate strictness"`
		OnePageMode   models.OnePageMode `json:"one_page_mode,omitempty" doc:"One-page length enforcement"`
	}
}

// GeneratePack builds a fresh pack and parks it in CONTENT_REVIEW_REQUIRED.
func (h *PacksHandler) GeneratePack(ctx context.Context, input *GeneratePackInput) (*PackViewOutput, error) {
	view, err := h.packs.Generate(ctx, service.GenerateInput{
		JobKey:        input.JobKey,
		ProfileID:     input.Body.ProfileID,
		Force:         input.Body.Force,
		FocusKeywords: input.Body.FocusKeywords,
		ATSMode:       input.Body.ATSMode,
		OnePageMode:   input.Body.OnePageMode,
	})
	if err != nil {
		return nil, serviceError(err)
	}
	return packViewOutput(view), nil
}

// ReviewPackInput carries operator edits to the draft.
type ReviewPackInput struct {
	JobKey string `path:"job_key"`
	Body   struct {
		ProfileID     string             `json:"profile_id,omitempty"`
		Summary       string             `json:"summary,omitempty" doc:"Replacement summary text"`
		Bullets       []string           `json:"bullets,omitempty" doc:"Replacement bullet list"`
		CoverLetter   string             `json:"cover_letter,omitempty" doc:"Replacement cover letter"`
		FocusKeywords []string           `json:"focus_keywords,omitempty"`
		ATSMode       models.ATSMode     `json:"ats_mode,omitempty"`
		OnePageMode   models.OnePageMode `json:"one_page_mode,omitempty"`
	}
}

// ReviewPack applies edits, recomputes ATS, and advances the draft when the
// gate passes.
func (h *PacksHandler) ReviewPack(ctx context.Context, input *ReviewPackInput) (*PackViewOutput, error) {
	view, err := h.packs.Review(ctx, service.ReviewInput{
		JobKey:        input.JobKey,
		ProfileID:     input.Body.ProfileID,
		Summary:       input.Body.Summary,
		Bullets:       input.Body.Bullets,
		CoverLetter:   input.Body.CoverLetter,
		FocusKeywords: input.Body.FocusKeywords,
		ATSMode:       input.Body.ATSMode,
		OnePageMode:   input.Body.OnePageMode,
	})
	if err != nil {
		return nil, serviceError(err)
	}
	return packViewOutput(view), nil
}

// ApprovePackInput marks the draft ready to apply.
type ApprovePackInput struct {
	JobKey string `path:"job_key"`
	Body   struct {
		ProfileID string `json:"profile_id,omitempty"`
		Force     bool   `json:"force,omitempty" doc:"Approve even when readiness checks fail"`
	}
}

// ApprovePack runs the readiness gate and promotes draft and job on pass.
func (h *PacksHandler) ApprovePack(ctx context.Context, input *ApprovePackInput) (*PackViewOutput, error) {
	view, err := h.packs.Approve(ctx, service.ApproveInput{
		JobKey:    input.JobKey,
		ProfileID: input.Body.ProfileID,
		Force:     input.Body.Force,
	})
	if err != nil {
		return nil, serviceError(err)
	}
	return packViewOutput(view), nil
}

// RevertPackInput restores an earlier draft version.
type RevertPackInput struct {
	JobKey string `path:"job_key"`
	Body   struct {
		ProfileID string `json:"profile_id,omitempty"`
		VersionNo int    `json:"version_no" doc:"Version number from the draft history"`
	}
}

// RevertPack restores a stored version and drops the draft back to review.
func (h *PacksHandler) RevertPack(ctx context.Context, input *RevertPackInput) (*PackViewOutput, error) {
	view, err := h.packs.Revert(ctx, input.JobKey, input.Body.ProfileID, input.Body.VersionNo)
	if err != nil {
		return nil, serviceError(err)
	}
	return packViewOutput(view), nil
}

// ExportPackInput selects the export format.
type ExportPackInput struct {
	JobKey string `path:"job_key"`
	Body   struct {
		ProfileID string `json:"profile_id,omitempty"`
		Format    string `json:"format" doc:"rr returns the resume JSON payload, pdf renders the one-page resume"`
		Force     bool   `json:"force,omitempty" doc:"Export a draft that has not passed review"`
	}
}

// ExportPackOutput carries the export payload. PDF bytes are returned inline
// base64-encoded when no artifact store is configured, otherwise as a
// presigned URL.
type ExportPackOutput struct {
	Body struct {
		OK   bool `json:"ok"`
		Data struct {
			Format      string           `json:"format"`
			RRExport    *models.RRExport `json:"rr_export,omitempty"`
			ArtifactURL string           `json:"artifact_url,omitempty"`
			PageCount   int              `json:"page_count,omitempty"`
			VersionNo   int              `json:"version_no"`
			PDFBase64   string           `json:"pdf_base64,omitempty"`
		} `json:"data"`
	}
}

// ExportPack renders the draft as resume JSON or a one-page PDF.
func (h *PacksHandler) ExportPack(ctx context.Context, input *ExportPackInput) (*ExportPackOutput, error) {
	result, err := h.export.Export(ctx, service.ExportInput{
		JobKey:    input.JobKey,
		ProfileID: input.Body.ProfileID,
		Format:    input.Body.Format,
		Force:     input.Body.Force,
	})
	if err != nil {
		return nil, serviceError(err)
	}
	out := &ExportPackOutput{}
	out.Body.OK = true
	out.Body.Data.Format = result.Format
	out.Body.Data.RRExport = result.RRExport
	out.Body.Data.ArtifactURL = result.ArtifactURL
	out.Body.Data.PageCount = result.PageCount
	out.Body.Data.VersionNo = result.VersionNo
	if len(result.PDF) > 0 && result.ArtifactURL == "" {
		out.Body.Data.PDFBase64 = base64.StdEncoding.EncodeToString(result.PDF)
	}
	return out, nil
}
