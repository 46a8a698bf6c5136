package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jobops/jobops-api/internal/config"
	"github.com/jobops/jobops-api/internal/models"
	"github.com/jobops/jobops-api/internal/pdfexport"
	"github.com/jobops/jobops-api/internal/repository"
)

// Export formats.
const (
	ExportFormatRR  = "rr"
	ExportFormatPDF = "pdf"
)

// pdf_status values recorded on the draft.
const (
	pdfStatusRendered = "rendered"
	pdfStatusUploaded = "uploaded"
	pdfStatusError    = "error"
)

// ExportService turns an approved-or-ready draft into artifacts: the rr JSON
// payload for the downstream resume service, or an A4 PDF render.
type ExportService struct {
	cfg      *config.Config
	repos    *repository.Repositories
	features repository.Features
	packs    *PackService
	storage  *StorageService
	logger   *slog.Logger
}

// NewExportService creates a new export service.
func NewExportService(cfg *config.Config, repos *repository.Repositories, features repository.Features, packs *PackService, storage *StorageService, logger *slog.Logger) *ExportService {
	return &ExportService{
		cfg:      cfg,
		repos:    repos,
		features: features,
		packs:    packs,
		storage:  storage,
		logger:   logger,
	}
}

// ExportInput selects the draft and the artifact format.
type ExportInput struct {
	JobKey    string `json:"-"`
	ProfileID string `json:"profile_id,omitempty"`
	Format    string `json:"format"`
	Force     bool   `json:"force,omitempty"`
}

// ExportResult is one produced artifact. PDF bytes are returned inline when
// no artifact store is configured; ArtifactURL is set when one is.
type ExportResult struct {
	Format      string           `json:"format"`
	RRExport    *models.RRExport `json:"rr_export,omitempty"`
	ArtifactURL string           `json:"artifact_url,omitempty"`
	PageCount   int              `json:"page_count,omitempty"`
	VersionNo   int              `json:"version_no"`
	PDF         []byte           `json:"-"`
}

// Export runs the readiness gate over the stored draft and produces the
// requested artifact. Force skips the gate the same way it does on approve.
func (s *ExportService) Export(ctx context.Context, input ExportInput) (*ExportResult, error) {
	switch input.Format {
	case ExportFormatRR, ExportFormatPDF:
	default:
		return nil, fmt.Errorf("%w: format must be %q or %q", ErrInvalidInput, ExportFormatRR, ExportFormatPDF)
	}
	job, profile, draft, err := s.packs.load(ctx, input.JobKey, input.ProfileID)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, fmt.Errorf("application pack for job %s: %w", input.JobKey, ErrNotFound)
	}
	view, err := s.packs.view(job, draft)
	if err != nil {
		return nil, err
	}
	if !view.Readiness.Ready && !input.Force {
		return nil, fmt.Errorf("%w: readiness checks failed: %s", ErrInvalidInput, strings.Join(view.Readiness.Failures, ", "))
	}

	if input.Format == ExportFormatRR {
		return s.exportRR(ctx, job, profile, draft, view)
	}
	return s.exportPDF(ctx, job, profile, draft, view)
}

// exportRR hands back the stored export payload byte-for-byte and archives a
// copy when an artifact store is configured. Archival is best-effort; the
// payload itself never depends on storage.
func (s *ExportService) exportRR(ctx context.Context, job *models.Job, profile *models.ResumeProfile, draft *models.ResumeDraft, view *PackView) (*ExportResult, error) {
	if view.RRExport == nil {
		return nil, fmt.Errorf("%w: draft has no rr export payload; regenerate the pack", ErrInvalidInput)
	}
	result := &ExportResult{
		Format:    ExportFormatRR,
		RRExport:  view.RRExport,
		VersionNo: draft.VersionNo,
	}
	if s.storage.IsEnabled() {
		key := RRKey(job.JobKey, profile.ID, draft.VersionNo)
		if err := s.storage.PutJSON(ctx, key, view.RRExport); err != nil {
			s.logger.Warn("failed to archive rr export", "job_key", job.JobKey, "error", err)
		} else if url, err := s.storage.PresignedURL(ctx, key, 0); err != nil {
			s.logger.Warn("failed to presign rr export", "job_key", job.JobKey, "error", err)
		} else {
			result.ArtifactURL = url
		}
	}
	if s.features.DraftExport {
		draft.RRPushStatus = "exported"
		draft.RRPushError = ""
		if err := s.repos.Draft.Save(ctx, draft); err != nil {
			s.logger.Warn("failed to record rr export state", "draft_id", draft.ID, "error", err)
		}
	}
	return result, nil
}

// exportPDF renders the pack to A4, verifies it with pdfcpu, enforces the
// hard one-page requirement, and uploads when storage is configured. The
// outcome lands in pdf_status/pdf_error and a pdf_export version.
func (s *ExportService) exportPDF(ctx context.Context, job *models.Job, profile *models.ResumeProfile, draft *models.ResumeDraft, view *PackView) (*ExportResult, error) {
	data, err := pdfexport.Render(pdfexport.Document{
		Name:        profile.Data.Basics.Name,
		Email:       profile.Data.Basics.Email,
		Phone:       profile.Data.Basics.Phone,
		Location:    profile.Data.Basics.Location,
		RoleTitle:   job.RoleTitle,
		Company:     job.Company,
		Summary:     view.Pack.Summary,
		Bullets:     view.Pack.Bullets,
		Skills:      profile.Data.Skills,
		CoverLetter: view.Pack.CoverLetter,
	})
	if err != nil {
		s.recordPDF(ctx, draft, pdfStatusError, err.Error(), "")
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	pages, err := pdfexport.PageCount(data)
	if err != nil {
		s.recordPDF(ctx, draft, pdfStatusError, err.Error(), "")
		return nil, fmt.Errorf("rendered pdf failed validation: %w", err)
	}
	if view.Pack.OnePageMode == models.OnePageHard && pages != 1 {
		detail := fmt.Sprintf("hard one-page mode rendered %d pages", pages)
		s.recordPDF(ctx, draft, pdfStatusError, detail, "")
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, detail)
	}

	result := &ExportResult{
		Format:    ExportFormatPDF,
		PageCount: pages,
		VersionNo: draft.VersionNo,
		PDF:       data,
	}
	status := pdfStatusRendered
	artifactURL := ""
	if s.storage.IsEnabled() {
		key := PDFKey(job.JobKey, profile.ID, draft.VersionNo)
		if err := s.storage.PutPDF(ctx, key, data); err != nil {
			s.recordPDF(ctx, draft, pdfStatusError, err.Error(), "")
			return nil, fmt.Errorf("%w: failed to upload pdf artifact: %v", ErrExternal, err)
		}
		url, err := s.storage.PresignedURL(ctx, key, 0)
		if err != nil {
			s.recordPDF(ctx, draft, pdfStatusError, err.Error(), "")
			return nil, fmt.Errorf("%w: failed to presign pdf artifact: %v", ErrExternal, err)
		}
		status = pdfStatusUploaded
		artifactURL = url
		result.ArtifactURL = url
	}

	s.recordPDF(ctx, draft, status, "", artifactURL)
	s.packs.appendVersion(ctx, draft, models.DraftActionPDFExport)
	s.logger.Info("exported pack pdf",
		"job_key", job.JobKey,
		"profile_id", profile.ID,
		"pages", pages,
		"status", status,
	)
	return result, nil
}

// recordPDF persists the export outcome on the draft when the schema has the
// export columns. Failures here are logged, never returned: the artifact (or
// its error) is already the caller's answer.
func (s *ExportService) recordPDF(ctx context.Context, draft *models.ResumeDraft, status, errDetail, url string) {
	if !s.features.DraftExport {
		return
	}
	draft.PDFStatus = status
	draft.PDFError = errDetail
	if url != "" {
		draft.PDFURL = url
	}
	if err := s.repos.Draft.Save(ctx, draft); err != nil {
		s.logger.Warn("failed to record pdf export state", "draft_id", draft.ID, "error", err)
	}
}
