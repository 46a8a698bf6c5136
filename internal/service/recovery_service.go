package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jobops/jobops-api/internal/config"
	"github.com/jobops/jobops-api/internal/jd"
	"github.com/jobops/jobops-api/internal/llm"
	"github.com/jobops/jobops-api/internal/models"
	"github.com/jobops/jobops-api/internal/repository"
)

const (
	// defaultSweepLimit bounds one scheduler-driven pass over a recovery list.
	defaultSweepLimit = 10
	// maxScorePendingLimit caps operator-requested batch sizes.
	maxScorePendingLimit = 50
	// staleScoreAge is how old a score gets before the rescore sweep picks
	// the job up again.
	staleScoreAge = 7 * 24 * time.Hour
)

// RecoveryService runs the status-driven sweeps: backfilling LINK_ONLY jobs,
// re-extracting missing fields, rescoring stale jobs, and batch-scoring
// pending ones. The scheduler drives them on cron; the HTTP layer exposes
// score-pending directly.
type RecoveryService struct {
	cfg      *config.Config
	repos    *repository.Repositories
	resolver *jd.Resolver
	llm      *llm.Client
	scoring  *ScoringService
	events   *EventService
	logger   *slog.Logger
}

// NewRecoveryService creates a new recovery service.
func NewRecoveryService(cfg *config.Config, repos *repository.Repositories, resolver *jd.Resolver, llmClient *llm.Client, scoring *ScoringService, events *EventService, logger *slog.Logger) *RecoveryService {
	return &RecoveryService{
		cfg:      cfg,
		repos:    repos,
		resolver: resolver,
		llm:      llmClient,
		scoring:  scoring,
		events:   events,
		logger:   logger,
	}
}

// BackfillResult summarizes one LINK_ONLY backfill sweep.
type BackfillResult struct {
	Attempted int `json:"attempted"`
	Recovered int `json:"recovered"`
	Scored    int `json:"scored"`
	Failed    int `json:"failed"`
}

// BackfillLinkOnly retries JD resolution for LINK_ONLY jobs, oldest first.
// A recovered JD is stored even when scoring cannot run yet; the job then
// surfaces through the score-pending sweep once an LLM binding exists.
func (s *RecoveryService) BackfillLinkOnly(ctx context.Context, limit int) (*BackfillResult, error) {
	if limit <= 0 {
		limit = defaultSweepLimit
	}
	jobs, err := s.repos.Job.ListLinkOnly(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list link-only jobs: %w", err)
	}

	targets, err := s.scoring.ActiveTargets(ctx)
	if err != nil {
		return nil, err
	}

	result := &BackfillResult{}
	for _, job := range jobs {
		result.Attempted++
		resolved := s.resolver.Resolve(ctx, job.JobURL, job.SourceDomain, job.Channel, jd.EmailContext{})

		// Record the attempt either way so fetch_status reflects reality.
		debug := resolved.Debug
		job.FetchStatus = resolved.Status
		job.FetchDebug = &debug
		if !resolved.Usable() {
			if err := s.repos.Job.UpdateJD(ctx, job); err != nil {
				s.logger.Warn("failed to record backfill attempt", "job_key", job.JobKey, "error", err)
			}
			continue
		}

		job.JDTextClean = resolved.Text
		job.JDSource = resolved.Source
		if err := s.repos.Job.UpdateJD(ctx, job); err != nil {
			result.Failed++
			s.logger.Warn("failed to store backfilled jd", "job_key", job.JobKey, "error", err)
			continue
		}
		result.Recovered++

		if !s.llm.Available() || len(targets) == 0 {
			continue
		}
		if _, err := s.scoring.Run(ctx, job, targets, ScoreOptions{}); err != nil {
			result.Failed++
			s.events.AIFailed(ctx, job.JobKey, "score", err)
			continue
		}
		result.Scored++
	}

	s.logger.Info("backfill sweep complete",
		"attempted", result.Attempted,
		"recovered", result.Recovered,
		"scored", result.Scored,
		"failed", result.Failed,
	)
	return result, nil
}

// MissingFieldsResult summarizes one missing-fields sweep.
type MissingFieldsResult struct {
	Attempted int `json:"attempted"`
	Updated   int `json:"updated"`
	Failed    int `json:"failed"`
}

// FillMissingFields re-runs extraction for jobs that hold a JD but lack a
// role title or company.
func (s *RecoveryService) FillMissingFields(ctx context.Context, limit int) (*MissingFieldsResult, error) {
	if !s.llm.Available() {
		return nil, fmt.Errorf("missing-fields sweep: %w", llm.ErrUnavailable)
	}
	if limit <= 0 {
		limit = defaultSweepLimit
	}
	jobs, err := s.repos.Job.ListMissingFields(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs missing fields: %w", err)
	}

	result := &MissingFieldsResult{}
	for _, job := range jobs {
		result.Attempted++
		ex, err := s.llm.ExtractJD(ctx, job.JDTextClean, job.JobURL)
		if err != nil {
			result.Failed++
			s.events.AIFailed(ctx, job.JobKey, "extract", err)
			continue
		}
		mergeExtracted(job, ex)
		if err := s.repos.Job.UpdateJD(ctx, job); err != nil {
			result.Failed++
			s.logger.Warn("failed to store extracted fields", "job_key", job.JobKey, "error", err)
			continue
		}
		result.Updated++
	}

	s.logger.Info("missing-fields sweep complete",
		"attempted", result.Attempted,
		"updated", result.Updated,
		"failed", result.Failed,
	)
	return result, nil
}

// RescoreResult summarizes one stale-rescore sweep.
type RescoreResult struct {
	Attempted int `json:"attempted"`
	Scored    int `json:"scored"`
	Failed    int `json:"failed"`
}

// RescoreStale re-scores jobs whose last score predates the staleness bound,
// so target edits eventually propagate without manual rescores. Extraction
// is skipped; the stored fields are re-judged against current targets.
func (s *RecoveryService) RescoreStale(ctx context.Context, limit int) (*RescoreResult, error) {
	if !s.llm.Available() {
		return nil, fmt.Errorf("stale-rescore sweep: %w", llm.ErrUnavailable)
	}
	if limit <= 0 {
		limit = defaultSweepLimit
	}
	before := time.Now().Add(-staleScoreAge).UnixMilli()
	jobs, err := s.repos.Job.ListStaleScores(ctx, before, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale-score jobs: %w", err)
	}
	targets, err := s.scoring.ActiveTargets(ctx)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return &RescoreResult{}, nil
	}

	result := &RescoreResult{}
	for _, job := range jobs {
		result.Attempted++
		if _, err := s.scoring.Run(ctx, job, targets, ScoreOptions{SkipExtract: true}); err != nil {
			result.Failed++
			s.events.AIFailed(ctx, job.JobKey, "score", err)
			continue
		}
		result.Scored++
	}

	s.logger.Info("stale-rescore sweep complete",
		"attempted", result.Attempted,
		"scored", result.Scored,
		"failed", result.Failed,
	)
	return result, nil
}

// ScorePendingItem is the per-job outcome of a score-pending batch.
type ScorePendingItem struct {
	JobKey     string           `json:"job_key"`
	Status     models.JobStatus `json:"status,omitempty"`
	FinalScore *int             `json:"final_score,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// ScorePendingResult is the merged outcome of a score-pending batch.
type ScorePendingResult struct {
	Total   int                `json:"total"`
	Scored  int                `json:"scored"`
	Failed  int                `json:"failed"`
	Results []ScorePendingItem `json:"results"`
}

// ScorePending batch-scores jobs holding a JD in the given statuses, oldest
// updated_at first. Empty statuses default to NEW, SCORED, LINK_ONLY.
func (s *RecoveryService) ScorePending(ctx context.Context, statuses []models.JobStatus, limit int) (*ScorePendingResult, error) {
	if !s.llm.Available() {
		return nil, fmt.Errorf("score-pending: %w", llm.ErrUnavailable)
	}
	for _, status := range statuses {
		if !status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
		}
	}
	if limit <= 0 {
		limit = defaultSweepLimit
	}
	if limit > maxScorePendingLimit {
		limit = maxScorePendingLimit
	}

	jobs, err := s.repos.Job.ListPendingScore(ctx, statuses, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending-score jobs: %w", err)
	}
	targets, err := s.scoring.ActiveTargets(ctx)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: no active targets configured", ErrInvalidInput)
	}

	result := &ScorePendingResult{Results: make([]ScorePendingItem, 0, len(jobs))}
	for _, job := range jobs {
		result.Total++
		item := ScorePendingItem{JobKey: job.JobKey}
		outcome, err := s.scoring.Run(ctx, job, targets, ScoreOptions{})
		if err != nil {
			result.Failed++
			item.Error = err.Error()
			s.events.AIFailed(ctx, job.JobKey, "score", err)
		} else {
			result.Scored++
			item.Status = outcome.Status
			item.FinalScore = outcome.FinalScore
		}
		result.Results = append(result.Results, item)
	}

	s.logger.Info("score-pending batch complete",
		"total", result.Total,
		"scored", result.Scored,
		"failed", result.Failed,
	)
	return result, nil
}
