package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jobops/jobops-api/internal/config"
	"github.com/jobops/jobops-api/internal/jd"
	"github.com/jobops/jobops-api/internal/llm"
	"github.com/jobops/jobops-api/internal/match"
	"github.com/jobops/jobops-api/internal/models"
	"github.com/jobops/jobops-api/internal/repository"
)

// Pipeline stage names recorded in scoring_runs.stage_metrics.
const (
	stageHeuristic  = "heuristic"
	stageExtract    = "extract"
	stageAIReason   = "ai_reason"
	stageVerdict    = "verdict"
	stageTransition = "transition"
)

// TransitionReason identifies which pipeline outcome drives a status change.
type TransitionReason string

const (
	TransitionIngestReady         TransitionReason = "ingest_ready"
	TransitionIngestNeedsManual   TransitionReason = "ingest_needs_manual"
	TransitionIngestAIUnavailable TransitionReason = "ingest_ai_unavailable"
	TransitionHeuristicRejected   TransitionReason = "heuristic_rejected"
	TransitionScored              TransitionReason = "scored"
)

// Transition maps a pipeline outcome onto the (status, system_status) pair.
// Terminal preservation is not handled here; the repository enforces it on
// write so concurrent writers converge.
func Transition(reason TransitionReason, finalScore int, rejected bool, shortlist, archive int) (models.JobStatus, models.SystemStatus) {
	switch reason {
	case TransitionIngestReady:
		return models.JobStatusNew, models.SystemStatusNone
	case TransitionIngestNeedsManual:
		return models.JobStatusLinkOnly, models.SystemStatusNeedsManualJD
	case TransitionIngestAIUnavailable:
		return models.JobStatusLinkOnly, models.SystemStatusAIUnavailable
	case TransitionHeuristicRejected:
		return models.JobStatusRejected, models.SystemStatusRejectedHeuristic
	default:
		switch {
		case rejected:
			return models.JobStatusRejected, models.SystemStatusNone
		case finalScore >= shortlist:
			return models.JobStatusShortlisted, models.SystemStatusNone
		case finalScore < archive:
			return models.JobStatusArchived, models.SystemStatusNone
		default:
			return models.JobStatusScored, models.SystemStatusNone
		}
	}
}

// ScoringService runs the scoring pipeline: heuristic gate, JD extraction,
// AI scoring, verdict merge, status transition, and telemetry.
type ScoringService struct {
	cfg      *config.Config
	repos    *repository.Repositories
	features repository.Features
	llm      *llm.Client
	evidence *EvidenceService
	events   *EventService
	logger   *slog.Logger
}

// NewScoringService creates a new scoring service.
func NewScoringService(cfg *config.Config, repos *repository.Repositories, features repository.Features, llmClient *llm.Client, evidence *EvidenceService, events *EventService, logger *slog.Logger) *ScoringService {
	return &ScoringService{
		cfg:      cfg,
		repos:    repos,
		features: features,
		llm:      llmClient,
		evidence: evidence,
		events:   events,
		logger:   logger,
	}
}

// ScoreOptions tunes one pipeline run.
type ScoreOptions struct {
	// SkipExtract is set when the caller already ran extraction over the
	// current JD, so the pipeline scores the supplied fields as-is.
	SkipExtract bool
	// ProfileID overrides which resume profile evidence rows are built
	// against; empty resolves preference then primary.
	ProfileID string
}

// Outcome summarizes one scoring pipeline run.
type Outcome struct {
	JobKey            string              `json:"job_key"`
	Status            models.JobStatus    `json:"status"`
	SystemStatus      models.SystemStatus `json:"system_status,omitempty"`
	FinalScore        *int                `json:"final_score,omitempty"`
	PrimaryTargetID   string              `json:"primary_target_id,omitempty"`
	PotentialContacts []string            `json:"potential_contacts"`
	HeuristicRejected bool                `json:"heuristic_rejected"`
	ReasonTopMatches  string              `json:"reason_top_matches,omitempty"`
}

// Rescore loads the job and active targets, validates them, and runs the
// pipeline. Validation failures never mutate state.
func (s *ScoringService) Rescore(ctx context.Context, jobKey string, opts ScoreOptions) (*Outcome, error) {
	job, err := s.repos.Job.GetByKey(ctx, jobKey)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("job %s: %w", jobKey, ErrNotFound)
	}
	if job.JDTextClean == "" && job.RoleTitle == "" {
		return nil, fmt.Errorf("%w: job has neither jd_text_clean nor role_title", ErrInvalidInput)
	}
	targets, err := s.ActiveTargets(ctx)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: no active targets configured", ErrInvalidInput)
	}
	return s.Run(ctx, job, targets, opts)
}

// ManualJD replaces the job's JD text with operator-pasted content and
// rescores. The text must clear the manual minimum after trimming; shorter
// pastes are rejected without touching the job.
func (s *ScoringService) ManualJD(ctx context.Context, jobKey, jdText string) (*Outcome, error) {
	job, err := s.repos.Job.GetByKey(ctx, jobKey)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("job %s: %w", jobKey, ErrNotFound)
	}
	text := strings.TrimSpace(jdText)
	if len(text) < jd.ManualJDMinChars {
		return nil, fmt.Errorf("%w: jd_text_clean must be at least %d characters, got %d", ErrInvalidInput, jd.ManualJDMinChars, len(text))
	}
	job.JDTextClean = text
	job.JDSource = models.JDSourceManual
	job.FetchStatus = models.FetchStatusOK
	if err := s.repos.Job.UpdateJD(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save manual JD: %w", err)
	}

	targets, err := s.ActiveTargets(ctx)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: no active targets configured", ErrInvalidInput)
	}
	return s.Run(ctx, job, targets, ScoreOptions{})
}

// Run executes the pipeline stages over an already-loaded job. LLM scoring
// errors bubble up to the caller; every other stage degrades and continues.
func (s *ScoringService) Run(ctx context.Context, job *models.Job, targets []models.Target, opts ScoreOptions) (*Outcome, error) {
	started := time.Now()
	run := &models.ScoringRun{
		JobKey:          job.JobKey,
		Source:          string(job.SourceDomain),
		HeuristicPassed: true,
		StageMetrics:    make(map[string]models.StageMetric),
	}

	hStart := time.Now()
	reasons, rejectHit := s.heuristic(job, targets)
	run.StageMetrics[stageHeuristic] = stageMetric(hStart, "ok")
	if len(reasons) > 0 {
		return s.finishHeuristicReject(ctx, job, run, reasons, rejectHit, started, opts)
	}

	switch {
	case opts.SkipExtract || job.JDTextClean == "":
		run.StageMetrics[stageExtract] = models.StageMetric{Status: "skipped"}
	case !s.llm.Available():
		run.StageMetrics[stageExtract] = models.StageMetric{Status: "skipped"}
	default:
		eStart := time.Now()
		ex, err := s.llm.ExtractJD(ctx, job.JDTextClean, job.JobURL)
		if err != nil {
			run.StageMetrics[stageExtract] = stageMetric(eStart, "error")
			s.events.AIFailed(ctx, job.JobKey, "extract", err)
		} else {
			run.StageMetrics[stageExtract] = stageMetric(eStart, "ok")
			addUsage(run, ex.Usage)
			mergeExtracted(job, ex)
			if err := s.repos.Job.UpdateJD(ctx, job); err != nil {
				s.logger.Warn("failed to persist extracted fields", "job_key", job.JobKey, "error", err)
			}
		}
	}

	aStart := time.Now()
	res, err := s.llm.ScoreJob(ctx, job, targets)
	if err != nil {
		run.StageMetrics[stageAIReason] = stageMetric(aStart, "error")
		run.FinalStatus = "error"
		s.writeRun(ctx, run, started)
		return nil, err
	}
	run.StageMetrics[stageAIReason] = stageMetric(aStart, "ok")
	addUsage(run, res.Usage)

	vStart := time.Now()
	finalScore, rejected, rejectReasons := s.verdict(job, targets, res)
	run.StageMetrics[stageVerdict] = stageMetric(vStart, "ok")

	tStart := time.Now()
	now := models.NowMS()
	job.PrimaryTargetID = res.PrimaryTargetID
	scoreMust, scoreNice := res.ScoreMust, res.ScoreNice
	job.ScoreMust = &scoreMust
	job.ScoreNice = &scoreNice
	job.FinalScore = &finalScore
	job.RejectTriggered = rejected
	job.RejectReasons = rejectReasons
	job.ReasonTopMatches = res.ReasonTopMatches
	job.PotentialContacts = res.PotentialContacts
	job.LastScoredAt = &now
	job.Status, job.SystemStatus = Transition(TransitionScored, finalScore, rejected, s.cfg.ShortlistThreshold, s.cfg.ArchiveThreshold)
	if err := s.repos.Job.UpdateScore(ctx, job); err != nil {
		run.StageMetrics[stageTransition] = stageMetric(tStart, "error")
		run.FinalStatus = "error"
		s.writeRun(ctx, run, started)
		return nil, err
	}
	run.StageMetrics[stageTransition] = stageMetric(tStart, "ok")

	s.reload(ctx, job)
	s.buildEvidence(ctx, job, opts.ProfileID)

	run.FinalStatus = string(job.Status)
	run.FinalScore = &finalScore
	run.RejectTriggered = rejected
	s.writeRun(ctx, run, started)

	return outcomeFor(job), nil
}

// heuristic evaluates the pre-AI gate and returns its reject reasons plus
// whether a target reject keyword contributed.
func (s *ScoringService) heuristic(job *models.Job, targets []models.Target) ([]string, bool) {
	var reasons []string
	rejectHit := false
	seen := make(map[string]struct{})
	for _, t := range targets {
		for _, hit := range match.Hits(job.JDTextClean, t.RejectKeywords) {
			key := strings.ToLower(hit)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			reasons = append(reasons, fmt.Sprintf("reject keyword %q in jd", hit))
			rejectHit = true
		}
	}
	if n := len(job.JDTextClean); n < s.cfg.MinJDChars {
		reasons = append(reasons, fmt.Sprintf("jd length %d below %d", n, s.cfg.MinJDChars))
	}
	if signal, _ := match.BestTargetSignal(job.RoleTitle, job.JDTextClean, targets); signal < s.cfg.MinTargetSignal {
		reasons = append(reasons, fmt.Sprintf("target signal %d below %d", signal, s.cfg.MinTargetSignal))
	}
	return reasons, rejectHit
}

// verdict merges the model's reject flag with the deterministic reject
// signals and produces the final bounded score.
func (s *ScoringService) verdict(job *models.Job, targets []models.Target, res *llm.ScoreResult) (int, bool, []string) {
	rejected := res.RejectTriggered
	rejectReasons := append([]string(nil), res.RejectReasons...)
	if strings.Contains(job.JDTextClean, "Reject:") {
		rejected = true
		rejectReasons = append(rejectReasons, "reject marker in jd")
	}
	for _, t := range targets {
		for _, hit := range match.Hits(job.JDTextClean, t.RejectKeywords) {
			rejected = true
			rejectReasons = append(rejectReasons, fmt.Sprintf("reject keyword %q in jd", hit))
		}
	}
	if rejected {
		return 0, true, rejectReasons
	}
	score := res.FinalScore
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, false, rejectReasons
}

func (s *ScoringService) finishHeuristicReject(ctx context.Context, job *models.Job, run *models.ScoringRun, reasons []string, rejectHit bool, started time.Time, opts ScoreOptions) (*Outcome, error) {
	run.HeuristicPassed = false
	run.HeuristicReasons = reasons
	zero := 0
	now := models.NowMS()
	job.FinalScore = &zero
	job.RejectTriggered = rejectHit
	job.RejectReasons = reasons
	job.ReasonTopMatches = "Heuristic reject: " + strings.Join(reasons, "; ")
	job.LastScoredAt = &now
	job.Status, job.SystemStatus = Transition(TransitionHeuristicRejected, 0, rejectHit, s.cfg.ShortlistThreshold, s.cfg.ArchiveThreshold)
	if err := s.repos.Job.UpdateScore(ctx, job); err != nil {
		run.FinalStatus = "error"
		s.writeRun(ctx, run, started)
		return nil, err
	}
	s.reload(ctx, job)
	s.buildEvidence(ctx, job, opts.ProfileID)

	run.FinalStatus = string(job.Status)
	run.FinalScore = &zero
	run.RejectTriggered = rejectHit
	s.writeRun(ctx, run, started)
	return outcomeFor(job), nil
}

// reload refreshes the in-memory job after a guarded write so the outcome
// reports what the row actually holds (a terminal status may have stuck).
func (s *ScoringService) reload(ctx context.Context, job *models.Job) {
	fresh, err := s.repos.Job.GetByKey(ctx, job.JobKey)
	if err != nil || fresh == nil {
		return
	}
	*job = *fresh
}

func (s *ScoringService) buildEvidence(ctx context.Context, job *models.Job, profileID string) {
	_, err := s.evidence.BuildForJob(ctx, job, profileID)
	if err == nil || errors.Is(err, ErrSchemaDisabled) || errors.Is(err, ErrNotFound) {
		return
	}
	s.logger.Warn("evidence rebuild failed", "job_key", job.JobKey, "error", err)
	s.events.Record(ctx, models.EventEvidenceUpsertFailed, job.JobKey, err.Error())
}

func (s *ScoringService) writeRun(ctx context.Context, run *models.ScoringRun, started time.Time) {
	run.TotalLatencyMS = time.Since(started).Milliseconds()
	if !s.features.ScoringRuns {
		return
	}
	if err := s.repos.ScoringRun.Create(ctx, run); err != nil {
		s.logger.Warn("failed to write scoring run", "job_key", run.JobKey, "error", err)
	}
}

// ActiveTargets loads active targets as values for the pipeline and scorer.
func (s *ScoringService) ActiveTargets(ctx context.Context) ([]models.Target, error) {
	list, err := s.repos.Target.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	targets := make([]models.Target, 0, len(list))
	for _, t := range list {
		targets = append(targets, *t)
	}
	return targets, nil
}

// mergeExtracted copies non-empty extracted fields onto the job. Keyword
// lists replace only when non-empty; the repository repeats that guard in
// SQL for concurrent writers.
func mergeExtracted(job *models.Job, ex *llm.Extracted) {
	if ex.Company != "" {
		job.Company = ex.Company
	}
	if ex.RoleTitle != "" {
		job.RoleTitle = ex.RoleTitle
	}
	if ex.Location != "" {
		job.Location = ex.Location
	}
	if ex.WorkMode != "" {
		job.WorkMode = ex.WorkMode
	}
	if ex.Seniority != "" {
		job.Seniority = ex.Seniority
	}
	if ex.ExperienceYearsMin != nil {
		job.ExperienceYearsMin = ex.ExperienceYearsMin
	}
	if ex.ExperienceYearsMax != nil {
		job.ExperienceYearsMax = ex.ExperienceYearsMax
	}
	if len(ex.MustKeywords) > 0 {
		job.MustKeywords = ex.MustKeywords
	}
	if len(ex.NiceKeywords) > 0 {
		job.NiceKeywords = ex.NiceKeywords
	}
	if len(ex.RejectKeywords) > 0 {
		job.RejectKeywords = ex.RejectKeywords
	}
	if len(ex.Skills) > 0 {
		job.Skills = ex.Skills
	}
}

func addUsage(run *models.ScoringRun, u llm.Usage) {
	if u.Model != "" {
		run.AIModel = u.Model
	}
	run.AITokensIn += int(u.TokensIn)
	run.AITokensOut += int(u.TokensOut)
	run.AITokensTotal += int(u.TokensTotal)
	run.AILatencyMS += u.LatencyMS
}

func stageMetric(start time.Time, status string) models.StageMetric {
	return models.StageMetric{DurationMS: time.Since(start).Milliseconds(), Status: status}
}

func outcomeFor(job *models.Job) *Outcome {
	return &Outcome{
		JobKey:            job.JobKey,
		Status:            job.Status,
		SystemStatus:      job.SystemStatus,
		FinalScore:        job.FinalScore,
		PrimaryTargetID:   job.PrimaryTargetID,
		PotentialContacts: job.PotentialContacts,
		HeuristicRejected: job.SystemStatus == models.SystemStatusRejectedHeuristic,
		ReasonTopMatches:  job.ReasonTopMatches,
	}
}
