package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jobops/jobops-api/internal/config"
	"github.com/jobops/jobops-api/internal/evidence"
	"github.com/jobops/jobops-api/internal/llm"
	"github.com/jobops/jobops-api/internal/models"
	"github.com/jobops/jobops-api/internal/repository"
)

// Rebuild modes for the archived-evidence sweep.
const (
	RebuildRetryFailed = "retry_failed"
	RebuildAllArchived = "all_archived"
)

// EvidenceService builds per-requirement evidence rows and serves the gap
// report over archived jobs.
type EvidenceService struct {
	cfg      *config.Config
	repos    *repository.Repositories
	features repository.Features
	llm      *llm.Client
	events   *EventService
	logger   *slog.Logger
}

// NewEvidenceService creates a new evidence service.
func NewEvidenceService(cfg *config.Config, repos *repository.Repositories, features repository.Features, llmClient *llm.Client, events *EventService, logger *slog.Logger) *EvidenceService {
	return &EvidenceService{
		cfg:      cfg,
		repos:    repos,
		features: features,
		llm:      llmClient,
		events:   events,
		logger:   logger,
	}
}

// BuildForJob rebuilds evidence rows for one job against the resolved resume
// profile and returns how many rows were written.
func (s *EvidenceService) BuildForJob(ctx context.Context, job *models.Job, profileID string) (int, error) {
	if !s.features.Evidence {
		return 0, fmt.Errorf("job_evidence: %w", ErrSchemaDisabled)
	}
	profile, err := s.ResolveProfile(ctx, job.JobKey, profileID)
	if err != nil {
		return 0, err
	}
	rows := evidence.Build(job.JobKey, job, profile.Data, job.JDTextClean)
	if len(rows) == 0 {
		return 0, nil
	}
	if err := s.repos.Evidence.UpsertBatch(ctx, rows); err != nil {
		return 0, fmt.Errorf("failed to upsert evidence: %w", err)
	}
	return len(rows), nil
}

// ListByJobKey returns the stored evidence rows for one job.
func (s *EvidenceService) ListByJobKey(ctx context.Context, jobKey string) ([]*models.Evidence, error) {
	if !s.features.Evidence {
		return nil, fmt.Errorf("job_evidence: %w", ErrSchemaDisabled)
	}
	return s.repos.Evidence.ListByJobKey(ctx, jobKey)
}

// ResolveProfile picks the resume profile for a job: explicit id, then the
// per-job preference, then the primary profile.
func (s *EvidenceService) ResolveProfile(ctx context.Context, jobKey, profileID string) (*models.ResumeProfile, error) {
	return resolveProfile(ctx, s.repos, s.features, s.logger, jobKey, profileID)
}

// resolveProfile is shared with the pack manager so drafts bind to the same
// profile the evidence rows were built against.
func resolveProfile(ctx context.Context, repos *repository.Repositories, features repository.Features, logger *slog.Logger, jobKey, profileID string) (*models.ResumeProfile, error) {
	if profileID != "" {
		profile, err := repos.Profile.GetByID(ctx, profileID)
		if err != nil {
			return nil, err
		}
		if profile == nil {
			return nil, fmt.Errorf("profile %s: %w", profileID, ErrNotFound)
		}
		return profile, nil
	}
	if jobKey != "" && features.Preferences {
		preferred, err := repos.Preference.Get(ctx, jobKey)
		if err != nil {
			return nil, err
		}
		if preferred != "" {
			profile, err := repos.Profile.GetByID(ctx, preferred)
			if err != nil {
				return nil, err
			}
			if profile != nil {
				return profile, nil
			}
			logger.Warn("profile preference points at a missing profile", "job_key", jobKey, "profile_id", preferred)
		}
	}
	profile, err := repos.Profile.GetPrimary(ctx)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("primary profile: %w", ErrNotFound)
	}
	return profile, nil
}

// RebuildInput selects which archived jobs get their evidence rebuilt.
type RebuildInput struct {
	Mode         string `json:"mode,omitempty"`
	Limit        int    `json:"limit,omitempty"`
	DelayMS      int    `json:"delay_ms,omitempty"`
	Force        bool   `json:"force,omitempty"`
	ProfileID    string `json:"profile_id,omitempty"`
	ProfileOnly  bool   `json:"profile_only,omitempty"`
	MaxTokens    int    `json:"max_tokens,omitempty"`
	CursorJobKey string `json:"cursor_job_key,omitempty"`
}

// RebuildItem is the per-job outcome of one rebuild sweep entry.
type RebuildItem struct {
	JobKey      string `json:"job_key"`
	Rows        int    `json:"rows"`
	Skipped     bool   `json:"skipped,omitempty"`
	Reextracted bool   `json:"reextracted,omitempty"`
	Error       string `json:"error,omitempty"`
}

// RebuildResult is one page of the cursor-paginated rebuild sweep.
type RebuildResult struct {
	Processed  int           `json:"processed"`
	Rebuilt    int           `json:"rebuilt"`
	Skipped    int           `json:"skipped"`
	Items      []RebuildItem `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
	Done       bool          `json:"done"`
}

// RebuildArchived walks archived jobs after the cursor and rebuilds their
// evidence. retry_failed only touches jobs with no rows yet; all_archived
// touches every job in the page. Jobs missing extracted keywords get one
// extract pass first unless profile_only is set.
func (s *EvidenceService) RebuildArchived(ctx context.Context, input RebuildInput) (*RebuildResult, error) {
	if !s.features.Evidence {
		return nil, fmt.Errorf("job_evidence: %w", ErrSchemaDisabled)
	}
	mode := input.Mode
	if mode == "" {
		mode = RebuildRetryFailed
	}
	if mode != RebuildRetryFailed && mode != RebuildAllArchived {
		return nil, fmt.Errorf("%w: mode must be %s or %s", ErrInvalidInput, RebuildRetryFailed, RebuildAllArchived)
	}
	limit := input.Limit
	if limit < 1 {
		limit = 5
	}
	if limit > 10 {
		limit = 10
	}

	jobs, err := s.repos.Job.ListByStatusAfterKey(ctx, models.JobStatusArchived, input.CursorJobKey, limit)
	if err != nil {
		return nil, err
	}

	result := &RebuildResult{Done: len(jobs) < limit}
	for i, job := range jobs {
		if i > 0 && input.DelayMS > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(time.Duration(input.DelayMS) * time.Millisecond):
			}
		}
		item := s.rebuildOne(ctx, job, input, mode)
		result.Items = append(result.Items, item)
		result.Processed++
		result.NextCursor = job.JobKey
		switch {
		case item.Skipped:
			result.Skipped++
		case item.Error == "":
			result.Rebuilt++
		}
	}
	return result, nil
}

func (s *EvidenceService) rebuildOne(ctx context.Context, job *models.Job, input RebuildInput, mode string) RebuildItem {
	item := RebuildItem{JobKey: job.JobKey}

	if mode == RebuildRetryFailed && !input.Force {
		existing, err := s.repos.Evidence.ListByJobKey(ctx, job.JobKey)
		if err != nil {
			item.Error = err.Error()
			return item
		}
		if len(existing) > 0 {
			item.Skipped = true
			return item
		}
	}

	if !input.ProfileOnly && len(job.MustKeywords) == 0 && job.JDTextClean != "" && s.llm.Available() {
		ex, err := s.llm.ExtractJDMax(ctx, job.JDTextClean, job.JobURL, input.MaxTokens)
		if err != nil {
			s.events.AIFailed(ctx, job.JobKey, "rebuild_extract", err)
		} else {
			mergeExtracted(job, ex)
			item.Reextracted = true
			if err := s.repos.Job.UpdateJD(ctx, job); err != nil {
				s.logger.Warn("failed to persist re-extracted fields", "job_key", job.JobKey, "error", err)
			}
		}
	}

	rows, err := s.BuildForJob(ctx, job, input.ProfileID)
	if err != nil {
		item.Error = err.Error()
		s.events.Record(ctx, models.EventEvidenceUpsertFailed, job.JobKey, err.Error())
		return item
	}
	item.Rows = rows
	return item
}

// GapReportInput filters the gap report.
type GapReportInput struct {
	Status    string
	Top       int
	MinMissed int
	ProfileID string
}

// GapRow is one aggregated requirement in the gap report.
type GapRow struct {
	RequirementText string            `json:"requirement_text"`
	MissedCount     int               `json:"missed_count"`
	Class           evidence.GapClass `json:"class"`
	MatchedVia      string            `json:"matched_via,omitempty"`
	Suggestion      string            `json:"suggestion,omitempty"`
}

// GapReport aggregates the most-missed must requirements across jobs in one
// status and classifies each against the resolved profile corpus.
func (s *EvidenceService) GapReport(ctx context.Context, input GapReportInput) ([]GapRow, error) {
	if !s.features.Evidence {
		return nil, fmt.Errorf("job_evidence: %w", ErrSchemaDisabled)
	}
	status := models.JobStatus(input.Status)
	if status == "" {
		status = models.JobStatusArchived
	}
	top := input.Top
	if top <= 0 {
		top = 10
	}
	minMissed := input.MinMissed
	if minMissed <= 0 {
		minMissed = 2
	}

	missed, err := s.repos.Evidence.MissedMusts(ctx, status, minMissed, top)
	if err != nil {
		return nil, err
	}
	profile, err := s.ResolveProfile(ctx, "", input.ProfileID)
	if err != nil {
		return nil, err
	}
	corpus := evidence.ProfileCorpus(profile.Data.Summary, profile.Data.Bullets(), profile.Data.Skills)

	rows := make([]GapRow, 0, len(missed))
	for _, m := range missed {
		gap := evidence.Classify(m.RequirementText, corpus)
		rows = append(rows, GapRow{
			RequirementText: m.RequirementText,
			MissedCount:     m.MissedCount,
			Class:           gap.Class,
			MatchedVia:      gap.MatchedVia,
			Suggestion:      gap.Suggestion,
		})
	}
	return rows, nil
}
