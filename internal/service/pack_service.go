package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jobops/jobops-api/internal/config"
	"github.com/jobops/jobops-api/internal/llm"
	"github.com/jobops/jobops-api/internal/models"
	"github.com/jobops/jobops-api/internal/repository"
)

// PackService drives the application-pack draft lifecycle per (job, profile):
// absent -> generate -> CONTENT_REVIEW_REQUIRED -> review passing the gate ->
// READY_FOR_EXPORT -> approve -> READY_TO_APPLY. Export is ExportService's job.
type PackService struct {
	cfg      *config.Config
	repos    *repository.Repositories
	features repository.Features
	llm      *llm.Client
	events   *EventService
	logger   *slog.Logger
}

// NewPackService creates a new application-pack service.
func NewPackService(cfg *config.Config, repos *repository.Repositories, features repository.Features, llmClient *llm.Client, events *EventService, logger *slog.Logger) *PackService {
	return &PackService{
		cfg:      cfg,
		repos:    repos,
		features: features,
		llm:      llmClient,
		events:   events,
		logger:   logger,
	}
}

// PackView is the API shape of one draft with its payloads decoded and the
// readiness gate evaluated against the current job row.
type PackView struct {
	Draft     *models.ResumeDraft    `json:"draft"`
	Pack      *models.Pack           `json:"pack"`
	ATS       *models.ATSResult      `json:"ats"`
	RRExport  *models.RRExport       `json:"rr_export,omitempty"`
	Readiness Readiness              `json:"readiness"`
	Versions  []*models.DraftVersion `json:"versions,omitempty"`
}

// GenerateInput controls a pack generation.
type GenerateInput struct {
	JobKey        string             `json:"-"`
	ProfileID     string             `json:"profile_id,omitempty"`
	Force         bool               `json:"force,omitempty"`
	FocusKeywords []string           `json:"focus_keywords,omitempty"`
	ATSMode       models.ATSMode     `json:"ats_mode,omitempty"`
	OnePageMode   models.OnePageMode `json:"one_page_mode,omitempty"`
}

// Generate builds a fresh pack for the job, optionally polished by the LLM,
// and leaves the draft in CONTENT_REVIEW_REQUIRED. An approved draft is only
// regenerated with force.
func (s *PackService) Generate(ctx context.Context, input GenerateInput) (*PackView, error) {
	job, profile, draft, err := s.load(ctx, input.JobKey, input.ProfileID)
	if err != nil {
		return nil, err
	}
	if draft != nil && draft.Status == models.DraftStatusReadyToApply && !input.Force {
		return nil, fmt.Errorf("%w: draft is READY_TO_APPLY; pass force to regenerate", ErrConflict)
	}
	atsMode, onePage, err := packModes(input.ATSMode, input.OnePageMode)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		draft = &models.ResumeDraft{JobKey: job.JobKey, ProfileID: profile.ID}
	}

	focus := selectFocus(input.FocusKeywords, job.MustKeywords)
	content := buildPackContent(job, profile.Data, focus, onePage)
	polished := false
	if s.llm.Available() {
		refined, err := s.llm.PolishPack(ctx, content, job, focus)
		if err != nil {
			s.events.AIFailed(ctx, job.JobKey, "polish", err)
		} else {
			content = *refined
			polished = true
		}
	}
	content = enforcePackContent(content, job, profile.Data, focus, onePage)

	pack := &models.Pack{
		Summary:       content.Summary,
		Bullets:       content.Bullets,
		CoverLetter:   content.CoverLetter,
		FocusKeywords: focus,
		ATSMode:       atsMode,
		OnePageMode:   onePage,
		Polished:      polished,
	}
	return s.write(ctx, job, profile, draft, pack, models.DraftStatusContentReview, models.DraftActionGenerate)
}

// ReviewInput carries manual edits. Empty fields keep the stored value.
type ReviewInput struct {
	JobKey        string             `json:"-"`
	ProfileID     string             `json:"profile_id,omitempty"`
	Summary       string             `json:"summary,omitempty"`
	Bullets       []string           `json:"bullets,omitempty"`
	CoverLetter   string             `json:"cover_letter,omitempty"`
	FocusKeywords []string           `json:"focus_keywords,omitempty"`
	ATSMode       models.ATSMode     `json:"ats_mode,omitempty"`
	OnePageMode   models.OnePageMode `json:"one_page_mode,omitempty"`
}

// Review applies manual edits, recomputes ATS and the export payload, and
// promotes the draft to READY_FOR_EXPORT when the gate passes. Edited text is
// the operator's own; only the hard one-page caps and the banned-phrase scrub
// touch it.
func (s *PackService) Review(ctx context.Context, input ReviewInput) (*PackView, error) {
	job, profile, draft, err := s.load(ctx, input.JobKey, input.ProfileID)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, fmt.Errorf("application pack for job %s: %w", input.JobKey, ErrNotFound)
	}
	if draft.Status == models.DraftStatusReadyToApply {
		return nil, fmt.Errorf("%w: draft is READY_TO_APPLY; regenerate with force before editing", ErrConflict)
	}

	pack, err := decodePack(draft)
	if err != nil {
		return nil, err
	}
	if input.Summary != "" {
		pack.Summary = strings.TrimSpace(input.Summary)
	}
	if len(input.Bullets) > 0 {
		pack.Bullets = input.Bullets
	}
	if input.CoverLetter != "" {
		pack.CoverLetter = input.CoverLetter
	}
	if len(input.FocusKeywords) > 0 {
		pack.FocusKeywords = selectFocus(input.FocusKeywords, job.MustKeywords)
	}
	atsMode := pack.ATSMode
	if input.ATSMode != "" {
		atsMode = input.ATSMode
	}
	onePage := pack.OnePageMode
	if input.OnePageMode != "" {
		onePage = input.OnePageMode
	}
	pack.ATSMode, pack.OnePageMode, err = packModes(atsMode, onePage)
	if err != nil {
		return nil, err
	}

	content := applyOnePageCaps(llm.PackContent{
		Summary:     pack.Summary,
		Bullets:     pack.Bullets,
		CoverLetter: scrubBanned(pack.CoverLetter),
	}, pack.OnePageMode)
	pack.Summary, pack.Bullets, pack.CoverLetter = content.Summary, content.Bullets, content.CoverLetter

	return s.write(ctx, job, profile, draft, pack, statusUnset, models.DraftActionManualEdit)
}

// ApproveInput controls an approval.
type ApproveInput struct {
	JobKey    string `json:"-"`
	ProfileID string `json:"profile_id,omitempty"`
	Force     bool   `json:"force,omitempty"`
}

// Approve runs the readiness gate over the stored payloads and, on pass (or
// force), marks the draft READY_TO_APPLY and promotes the job with it. This is
// the one place a job enters a terminal status on the happy path.
func (s *PackService) Approve(ctx context.Context, input ApproveInput) (*PackView, error) {
	job, _, draft, err := s.load(ctx, input.JobKey, input.ProfileID)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, fmt.Errorf("application pack for job %s: %w", input.JobKey, ErrNotFound)
	}
	view, err := s.view(job, draft)
	if err != nil {
		return nil, err
	}
	if !view.Readiness.Ready && !input.Force {
		return nil, fmt.Errorf("%w: readiness checks failed: %s", ErrInvalidInput, strings.Join(view.Readiness.Failures, ", "))
	}

	now := models.NowMS()
	draft.Status = models.DraftStatusReadyToApply
	draft.ApprovedAt = &now
	if err := s.repos.Draft.Save(ctx, draft); err != nil {
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}
	s.appendVersion(ctx, draft, models.DraftActionApprove)
	if err := s.repos.Job.SetStatus(ctx, job.JobKey, models.JobStatusReadyToApply, models.SystemStatusNone); err != nil {
		return nil, fmt.Errorf("failed to promote job: %w", err)
	}
	view.Draft = draft
	return view, nil
}

// Revert copies a version's payloads back over the draft byte-identically and
// drops the draft to CONTENT_REVIEW_REQUIRED. The restore itself is recorded
// as a new version, so history stays append-only.
func (s *PackService) Revert(ctx context.Context, jobKey, profileID string, versionNo int) (*PackView, error) {
	if !s.features.DraftVersions {
		return nil, fmt.Errorf("draft_versions: %w", ErrSchemaDisabled)
	}
	if versionNo <= 0 {
		return nil, fmt.Errorf("%w: version_no is required", ErrInvalidInput)
	}
	job, _, draft, err := s.load(ctx, jobKey, profileID)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, fmt.Errorf("application pack for job %s: %w", jobKey, ErrNotFound)
	}
	version, err := s.repos.Draft.GetVersion(ctx, draft.ID, versionNo)
	if err != nil {
		return nil, fmt.Errorf("failed to load version: %w", err)
	}
	if version == nil {
		return nil, fmt.Errorf("version %d of draft %s: %w", versionNo, draft.ID, ErrNotFound)
	}

	draft.PackJSON = version.PackJSON
	draft.ATSJSON = version.ATSJSON
	draft.RRExportJSON = version.RRExportJSON
	draft.Status = models.DraftStatusContentReview
	if err := s.repos.Draft.Save(ctx, draft); err != nil {
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}
	s.appendVersion(ctx, draft, models.DraftActionRevert)
	return s.view(job, draft)
}

// Get returns the draft with decoded payloads, readiness, and version history.
func (s *PackService) Get(ctx context.Context, jobKey, profileID string) (*PackView, error) {
	job, _, draft, err := s.load(ctx, jobKey, profileID)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, fmt.Errorf("application pack for job %s: %w", jobKey, ErrNotFound)
	}
	view, err := s.view(job, draft)
	if err != nil {
		return nil, err
	}
	if s.features.DraftVersions {
		versions, err := s.repos.Draft.ListVersions(ctx, draft.ID)
		if err != nil {
			return nil, err
		}
		view.Versions = versions
	}
	return view, nil
}

// statusUnset tells write to derive the draft status from the readiness gate.
const statusUnset = models.DraftStatus("")

// write recomputes the derived payloads, persists the draft, and appends the
// version row for the action. With statusUnset the gate decides: pass means
// READY_FOR_EXPORT, fail means CONTENT_REVIEW_REQUIRED.
func (s *PackService) write(ctx context.Context, job *models.Job, profile *models.ResumeProfile, draft *models.ResumeDraft, pack *models.Pack, status models.DraftStatus, action models.DraftAction) (*PackView, error) {
	ats := computeATS(pack, job)
	attachRubrics(&ats, pack, job, s.targetFor(ctx, job))
	rr := buildRRExport(pack, job, profile, draft.VersionNo+1)
	readiness := s.evaluateReadiness(job, pack, &ats, &rr)
	if status == statusUnset {
		status = models.DraftStatusContentReview
		if readiness.Ready {
			status = models.DraftStatusReadyForExport
		}
	}

	packJSON, err := json.Marshal(pack)
	if err != nil {
		return nil, fmt.Errorf("failed to encode pack: %w", err)
	}
	atsJSON, err := json.Marshal(ats)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ats result: %w", err)
	}
	rrJSON, err := json.Marshal(rr)
	if err != nil {
		return nil, fmt.Errorf("failed to encode rr export: %w", err)
	}
	draft.PackJSON = string(packJSON)
	draft.ATSJSON = string(atsJSON)
	draft.RRExportJSON = string(rrJSON)
	draft.Status = status
	if err := s.repos.Draft.Save(ctx, draft); err != nil {
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}
	s.appendVersion(ctx, draft, action)

	return &PackView{Draft: draft, Pack: pack, ATS: &ats, RRExport: &rr, Readiness: readiness}, nil
}

// appendVersion records the action in the version history. A failure here is
// logged rather than returned: the draft row is already saved.
func (s *PackService) appendVersion(ctx context.Context, draft *models.ResumeDraft, action models.DraftAction) {
	if !s.features.DraftVersions {
		return
	}
	vno, err := s.repos.Draft.AppendVersion(ctx, draft.ID, string(action), draft.PackJSON, draft.ATSJSON, draft.RRExportJSON)
	if err != nil {
		s.logger.Warn("failed to append draft version", "draft_id", draft.ID, "action", action, "error", err)
		return
	}
	draft.VersionNo = vno
}

// load fetches the job, the resolved profile, and the draft (nil when absent).
func (s *PackService) load(ctx context.Context, jobKey, profileID string) (*models.Job, *models.ResumeProfile, *models.ResumeDraft, error) {
	job, err := s.repos.Job.GetByKey(ctx, jobKey)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load job: %w", err)
	}
	if job == nil {
		return nil, nil, nil, fmt.Errorf("job %s: %w", jobKey, ErrNotFound)
	}
	profile, err := resolveProfile(ctx, s.repos, s.features, s.logger, jobKey, profileID)
	if err != nil {
		return nil, nil, nil, err
	}
	draft, err := s.repos.Draft.GetByJobProfile(ctx, jobKey, profile.ID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load draft: %w", err)
	}
	return job, profile, draft, nil
}

// view decodes the stored payloads and runs the readiness gate on them.
func (s *PackService) view(job *models.Job, draft *models.ResumeDraft) (*PackView, error) {
	pack, err := decodePack(draft)
	if err != nil {
		return nil, err
	}
	ats := &models.ATSResult{}
	if draft.ATSJSON != "" {
		if err := json.Unmarshal([]byte(draft.ATSJSON), ats); err != nil {
			return nil, fmt.Errorf("failed to decode ats payload: %w", err)
		}
	}
	var rr *models.RRExport
	if draft.RRExportJSON != "" {
		rr = &models.RRExport{}
		if err := json.Unmarshal([]byte(draft.RRExportJSON), rr); err != nil {
			return nil, fmt.Errorf("failed to decode rr export payload: %w", err)
		}
	}
	readiness := s.evaluateReadiness(job, pack, ats, rr)
	return &PackView{Draft: draft, Pack: pack, ATS: ats, RRExport: rr, Readiness: readiness}, nil
}

func decodePack(draft *models.ResumeDraft) (*models.Pack, error) {
	pack := &models.Pack{}
	if err := json.Unmarshal([]byte(draft.PackJSON), pack); err != nil {
		return nil, fmt.Errorf("failed to decode pack payload: %w", err)
	}
	return pack, nil
}

// targetFor loads the target the job was scored against, nil when unscored or
// the target has since been removed.
func (s *PackService) targetFor(ctx context.Context, job *models.Job) *models.Target {
	if job.PrimaryTargetID == "" {
		return nil
	}
	target, err := s.repos.Target.GetByID(ctx, job.PrimaryTargetID)
	if err != nil {
		s.logger.Warn("failed to load primary target", "job_key", job.JobKey, "target_id", job.PrimaryTargetID, "error", err)
		return nil
	}
	return target
}

// packModes validates the two mode knobs, defaulting absent values.
func packModes(atsMode models.ATSMode, onePage models.OnePageMode) (models.ATSMode, models.OnePageMode, error) {
	switch atsMode {
	case "":
		atsMode = models.ATSModeAll
	case models.ATSModeAll, models.ATSModeSelectedOnly:
	default:
		return "", "", fmt.Errorf("%w: unknown ats_mode %q", ErrInvalidInput, atsMode)
	}
	switch onePage {
	case "":
		onePage = models.OnePageSoft
	case models.OnePageSoft, models.OnePageHard:
	default:
		return "", "", fmt.Errorf("%w: unknown one_page_mode %q", ErrInvalidInput, onePage)
	}
	return atsMode, onePage, nil
}
