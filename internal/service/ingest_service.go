package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jobops/jobops-api/internal/config"
	"github.com/jobops/jobops-api/internal/jd"
	"github.com/jobops/jobops-api/internal/llm"
	"github.com/jobops/jobops-api/internal/models"
	"github.com/jobops/jobops-api/internal/normalize"
	"github.com/jobops/jobops-api/internal/repository"
)

// scoreMinJDChars is the floor below which a resolved JD is stored but not
// worth an extract+score round trip.
const scoreMinJDChars = 180

// IngestService drives raw URLs through normalize, resolve, extract, and
// score, and upserts the resulting job rows.
type IngestService struct {
	cfg      *config.Config
	repos    *repository.Repositories
	resolver *jd.Resolver
	llm      *llm.Client
	scoring  *ScoringService
	events   *EventService
	logger   *slog.Logger
}

// NewIngestService creates a new ingest service.
func NewIngestService(cfg *config.Config, repos *repository.Repositories, resolver *jd.Resolver, llmClient *llm.Client, scoring *ScoringService, events *EventService, logger *slog.Logger) *IngestService {
	return &IngestService{
		cfg:      cfg,
		repos:    repos,
		resolver: resolver,
		llm:      llmClient,
		scoring:  scoring,
		events:   events,
		logger:   logger,
	}
}

// IngestInput is one ingestion request: raw URLs plus the inbound email or
// message context they arrived with.
type IngestInput struct {
	RawURLs      []string `json:"raw_urls"`
	EmailText    string   `json:"email_text,omitempty"`
	EmailHTML    string   `json:"email_html,omitempty"`
	EmailSubject string   `json:"email_subject,omitempty"`
	EmailFrom    string   `json:"email_from,omitempty"`
	Channel      string   `json:"channel,omitempty"`
}

// URLResult records the outcome for one raw URL.
type URLResult struct {
	RawURL       string              `json:"raw_url"`
	JobKey       string              `json:"job_key,omitempty"`
	JobURL       string              `json:"job_url,omitempty"`
	Source       string              `json:"source,omitempty"`
	Action       string              `json:"action"`
	Reason       string              `json:"reason,omitempty"`
	JDSource     models.JDSource     `json:"jd_source,omitempty"`
	FetchStatus  models.FetchStatus  `json:"fetch_status,omitempty"`
	Status       models.JobStatus    `json:"status,omitempty"`
	SystemStatus models.SystemStatus `json:"system_status,omitempty"`
	FinalScore   *int                `json:"final_score,omitempty"`
	Recovered    bool                `json:"recovered,omitempty"`
	NeedsManual  bool                `json:"needs_manual,omitempty"`
	NeedsAI      bool                `json:"needs_ai,omitempty"`
	Error        string              `json:"error,omitempty"`
}

// SourceCounter aggregates per-source ingest outcomes.
type SourceCounter struct {
	Recovered    int `json:"recovered"`
	ManualNeeded int `json:"manual_needed"`
	NeedsAI      int `json:"needs_ai"`
	Blocked      int `json:"blocked"`
	LowQuality   int `json:"low_quality"`
	LinkOnly     int `json:"link_only"`
	Ignored      int `json:"ignored"`
	Inserted     int `json:"inserted"`
	Updated      int `json:"updated"`
}

// IngestResult is the merged batch outcome.
type IngestResult struct {
	Total   int                       `json:"total"`
	Results []URLResult               `json:"results"`
	Sources map[string]*SourceCounter `json:"sources"`
}

// Ingest processes every raw URL through the pipeline with a bounded worker
// pool and merges the per-source counters. A URL repeated within the batch
// runs the pipeline once; the repeats are reported as duplicates.
func (s *IngestService) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	if len(input.RawURLs) == 0 {
		return nil, fmt.Errorf("%w: raw_urls is required", ErrInvalidInput)
	}
	email := jd.EmailContext{
		Subject: input.EmailSubject,
		From:    input.EmailFrom,
		Text:    input.EmailText,
		HTML:    input.EmailHTML,
	}
	targets, err := s.scoring.ActiveTargets(ctx)
	if err != nil {
		return nil, err
	}

	// In-batch dedupe on the trimmed raw string. URLs that differ only in
	// tracking noise still run and converge via the job_key upsert.
	results := make([]URLResult, len(input.RawURLs))
	seen := make(map[string]struct{}, len(input.RawURLs))
	tasks := make([]int, 0, len(input.RawURLs))
	for i, raw := range input.RawURLs {
		key := strings.TrimSpace(raw)
		if _, dup := seen[key]; dup {
			results[i] = URLResult{RawURL: raw, Action: "duplicate", Reason: "repeated in this batch"}
			continue
		}
		seen[key] = struct{}{}
		tasks = append(tasks, i)
	}

	workers := s.cfg.RecoverConcurrency
	if workers > len(tasks) {
		workers = len(tasks)
	}
	if workers < 1 {
		workers = 1
	}

	var next atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for {
				n := int(next.Add(1)) - 1
				if n >= len(tasks) {
					return
				}
				i := tasks[n]
				results[i] = s.ingestOne(ctx, input.RawURLs[i], email, input.Channel, targets)
			}
		}()
	}
	wg.Wait()

	out := &IngestResult{
		Total:   len(results),
		Results: results,
		Sources: mergeCounters(results),
	}
	s.logger.Info("ingest batch complete",
		"total", out.Total,
		"workers", workers,
		"channel", input.Channel,
	)
	return out, nil
}

// ingestOne runs the full pipeline for a single raw URL. Errors are captured
// in the result so one bad URL never aborts the batch.
func (s *IngestService) ingestOne(ctx context.Context, rawURL string, email jd.EmailContext, channel string, targets []models.Target) URLResult {
	result := URLResult{RawURL: rawURL, Action: "error"}

	norm, err := normalize.Normalize(rawURL)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Source = string(norm.SourceDomain)
	if norm.Ignored {
		result.Action = "ignored"
		result.Reason = norm.IgnoreReason
		return result
	}
	result.JobKey = norm.JobKey
	result.JobURL = norm.JobURL

	exists, err := s.repos.Job.Exists(ctx, norm.JobKey)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	resolved := s.resolver.Resolve(ctx, norm.JobURL, norm.SourceDomain, channel, email)
	result.JDSource = resolved.Source
	result.FetchStatus = resolved.Status
	result.Recovered = resolved.Usable()

	policy := jd.PolicyFor(norm.SourceDomain, channel)
	needsManual, manualReason := jd.NeedsManual(policy, resolved.Source, resolved.Confidence, len(resolved.Text))
	aiAvailable := s.llm.Available()

	reason := TransitionIngestReady
	switch {
	case needsManual:
		reason = TransitionIngestNeedsManual
		result.NeedsManual = true
		result.Reason = manualReason
	case !aiAvailable:
		reason = TransitionIngestAIUnavailable
		result.NeedsAI = true
	}

	job := buildIngestJob(norm, resolved, channel, reason, s.cfg.ShortlistThreshold, s.cfg.ArchiveThreshold)
	scorable := resolved.Usable() && !needsManual && aiAvailable && len(resolved.Text) >= scoreMinJDChars

	if scorable {
		ex, exErr := s.llm.ExtractJD(ctx, resolved.Text, norm.JobURL)
		if exErr != nil {
			s.events.AIFailed(ctx, norm.JobKey, "extract", exErr)
		} else {
			mergeExtracted(job, ex)
		}
	}
	if job.RoleTitle == "" {
		job.RoleTitle = normalize.RoleFromSlug(norm.JobURL)
	}

	if err := s.repos.Job.Upsert(ctx, job); err != nil {
		result.Error = err.Error()
		return result
	}
	if exists {
		result.Action = "updated"
	} else {
		result.Action = "inserted"
	}

	if scorable && len(targets) > 0 {
		outcome, scoreErr := s.scoring.Run(ctx, job, targets, ScoreOptions{SkipExtract: true})
		if scoreErr != nil {
			s.events.AIFailed(ctx, norm.JobKey, "score", scoreErr)
		} else {
			result.FinalScore = outcome.FinalScore
		}
	}

	if exists || scorable {
		if fresh, gerr := s.repos.Job.GetByKey(ctx, norm.JobKey); gerr == nil && fresh != nil {
			job = fresh
		}
	}
	result.Status = job.Status
	result.SystemStatus = job.SystemStatus

	if needsManual {
		s.events.Record(ctx, models.EventIngestFallback, norm.JobKey,
			fmt.Sprintf("%s (jd_source=%s, len=%d)", manualReason, resolved.Source, len(resolved.Text)))
	}
	return result
}

// buildIngestJob assembles the row an ingest pass writes before any scoring.
func buildIngestJob(norm normalize.Result, resolved jd.Resolved, channel string, reason TransitionReason, shortlist, archive int) *models.Job {
	status, system := Transition(reason, 0, false, shortlist, archive)
	debug := resolved.Debug
	return &models.Job{
		JobKey:       norm.JobKey,
		JobURL:       norm.JobURL,
		SourceDomain: norm.SourceDomain,
		JobID:        norm.JobID,
		Channel:      channel,
		JDTextClean:  resolved.Text,
		JDSource:     resolved.Source,
		FetchStatus:  resolved.Status,
		FetchDebug:   &debug,
		Status:       status,
		SystemStatus: system,
	}
}

// mergeCounters sums per-source buckets across URL results.
func mergeCounters(results []URLResult) map[string]*SourceCounter {
	sources := make(map[string]*SourceCounter)
	for i := range results {
		r := &results[i]
		if r.Action == "duplicate" {
			continue
		}
		src := r.Source
		if src == "" {
			src = "unknown"
		}
		c := sources[src]
		if c == nil {
			c = &SourceCounter{}
			sources[src] = c
		}
		switch r.Action {
		case "ignored":
			c.Ignored++
		case "inserted":
			c.Inserted++
		case "updated":
			c.Updated++
		}
		if r.Recovered {
			c.Recovered++
		}
		if r.NeedsManual {
			c.ManualNeeded++
		}
		if r.NeedsAI {
			c.NeedsAI++
		}
		if !r.Recovered && r.FetchStatus == models.FetchStatusBlocked {
			c.Blocked++
		}
		if r.FetchStatus == models.FetchStatusLowQuality {
			c.LowQuality++
		}
		if r.Status == models.JobStatusLinkOnly {
			c.LinkOnly++
		}
	}
	return sources
}
