// Package scheduler drives the inbound polls and recovery sweeps on a cron
// cadence, with one wall-clock budget per run so a slow stage cannot pile
// invocations on top of each other.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jobops/jobops-api/internal/config"
	"github.com/jobops/jobops-api/internal/llm"
	"github.com/jobops/jobops-api/internal/models"
	"github.com/jobops/jobops-api/internal/service"
)

// PollResult is what one inbound source produced: posting links plus the
// message context they arrived in, which feeds the ingest email fallback.
type PollResult struct {
	RawURLs []string
	Text    string
	HTML    string
	Subject string
	From    string
}

// Poller retrieves pending job links from one inbound source. The rss poller
// implements it; a mailbox poller can be injected under the "gmail" key.
type Poller interface {
	Poll(ctx context.Context, source string) (PollResult, error)
}

// Ingestor pushes polled links through the ingest pipeline. Satisfied by
// service.IngestService.
type Ingestor interface {
	Ingest(ctx context.Context, input service.IngestInput) (*service.IngestResult, error)
}

// Recoverer runs the recovery sweeps. Satisfied by service.RecoveryService.
type Recoverer interface {
	BackfillLinkOnly(ctx context.Context, limit int) (*service.BackfillResult, error)
	FillMissingFields(ctx context.Context, limit int) (*service.MissingFieldsResult, error)
	RescoreStale(ctx context.Context, limit int) (*service.RescoreResult, error)
	ScorePending(ctx context.Context, statuses []models.JobStatus, limit int) (*service.ScorePendingResult, error)
}

// Stage names, in run order.
const (
	StageGmailPoll     = "gmail_poll"
	StageRSSPoll       = "rss_poll"
	StageBackfill      = "recovery_backfill"
	StageMissingFields = "recovery_missing_fields"
	StageRescore       = "recovery_rescore"
	StageScorePending  = "score_pending"
)

// Runner executes the schedule stages in order under one budget.
type Runner struct {
	cfg      *config.Config
	ingest   Ingestor
	recovery Recoverer
	events   *service.EventService
	llm      *llm.Client
	pollers  map[string]Poller
	logger   *slog.Logger

	mu      sync.Mutex
	running bool

	cron *cron.Cron
}

// NewRunner creates a new schedule runner. Pollers maps source names
// ("gmail", "rss") to their poll implementations; missing sources are
// skipped with a log line.
func NewRunner(cfg *config.Config, ingest Ingestor, recovery Recoverer, events *service.EventService, llmClient *llm.Client, pollers map[string]Poller, logger *slog.Logger) *Runner {
	if pollers == nil {
		pollers = make(map[string]Poller)
	}
	return &Runner{
		cfg:      cfg,
		ingest:   ingest,
		recovery: recovery,
		events:   events,
		llm:      llmClient,
		pollers:  pollers,
		logger:   logger.With("component", "scheduler"),
	}
}

// stage is one schedule step. AI stages are skipped without an LLM binding
// instead of burning budget on calls that return ErrUnavailable.
type stage struct {
	name    string
	needsAI bool
	run     func(ctx context.Context) error
}

// RunOnce executes the stage sequence. The wall-clock budget is checked
// between stages; a run that is already in flight is never started twice.
// Stage errors are logged and the run continues.
func (r *Runner) RunOnce(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		r.logger.Info("schedule run already in progress, skipping")
		return
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	budget := time.Duration(r.cfg.ScheduleMaxMS) * time.Millisecond
	if budget <= 0 {
		budget = 45 * time.Second
	}
	started := time.Now()
	budgetStop := false

	stages := []stage{
		{StageGmailPoll, false, func(ctx context.Context) error { return r.pollStage(ctx, "gmail") }},
		{StageRSSPoll, false, func(ctx context.Context) error { return r.pollStage(ctx, "rss") }},
		{StageBackfill, false, func(ctx context.Context) error {
			_, err := r.recovery.BackfillLinkOnly(ctx, 0)
			return err
		}},
		{StageMissingFields, true, func(ctx context.Context) error {
			_, err := r.recovery.FillMissingFields(ctx, 0)
			return err
		}},
		{StageRescore, true, func(ctx context.Context) error {
			_, err := r.recovery.RescoreStale(ctx, 0)
			return err
		}},
		{StageScorePending, true, func(ctx context.Context) error {
			_, err := r.recovery.ScorePending(ctx, nil, 0)
			return err
		}},
	}

	for _, st := range stages {
		if elapsed := time.Since(started); elapsed >= budget {
			r.logger.Warn("schedule budget exhausted",
				"elapsed_ms", elapsed.Milliseconds(),
				"budget_ms", budget.Milliseconds(),
				"next_stage", st.name,
			)
			r.events.Record(ctx, models.EventScheduleBudgetStop, "",
				fmt.Sprintf("stopped before %s after %dms (budget %dms)", st.name, elapsed.Milliseconds(), budget.Milliseconds()))
			budgetStop = true
			break
		}
		if st.needsAI && !r.llm.Available() {
			r.logger.Warn("skipping stage without an llm binding", "stage", st.name)
			continue
		}
		stageStart := time.Now()
		if err := st.run(ctx); err != nil {
			r.logger.Error("schedule stage failed", "stage", st.name, "error", err)
			continue
		}
		r.logger.Info("schedule stage complete",
			"stage", st.name,
			"duration_ms", time.Since(stageStart).Milliseconds(),
		)
	}

	r.logger.Info("schedule run complete",
		"duration_ms", time.Since(started).Milliseconds(),
		"budget_stop", budgetStop,
	)
}

// pollStage runs one inbound poll and pushes what it found through ingest.
func (r *Runner) pollStage(ctx context.Context, source string) error {
	poller, ok := r.pollers[source]
	if !ok || poller == nil {
		r.logger.Info("no poller registered, skipping", "source", source)
		return nil
	}
	res, err := poller.Poll(ctx, source)
	if err != nil {
		return fmt.Errorf("failed to poll %s: %w", source, err)
	}
	if len(res.RawURLs) == 0 {
		r.logger.Info("poll returned no links", "source", source)
		return nil
	}
	out, err := r.ingest.Ingest(ctx, service.IngestInput{
		RawURLs:      res.RawURLs,
		EmailText:    res.Text,
		EmailHTML:    res.HTML,
		EmailSubject: res.Subject,
		EmailFrom:    res.From,
		Channel:      source,
	})
	if err != nil {
		return err
	}
	r.logger.Info("poll ingested", "source", source, "urls", out.Total)
	return nil
}

// Start registers the cron entry and begins the schedule. An empty cron
// expression leaves scheduling disabled; RunOnce stays callable directly.
func (r *Runner) Start() error {
	if r.cfg.ScheduleCron == "" {
		r.logger.Info("scheduler disabled, no cron expression configured")
		return nil
	}
	r.cron = cron.New()
	if _, err := r.cron.AddFunc(r.cfg.ScheduleCron, func() {
		r.RunOnce(context.Background())
	}); err != nil {
		return fmt.Errorf("failed to register schedule %q: %w", r.cfg.ScheduleCron, err)
	}
	r.cron.Start()
	r.logger.Info("scheduler started", "cron", r.cfg.ScheduleCron)
	return nil
}

// Stop halts the cron schedule and waits for an in-flight run to finish.
func (r *Runner) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
	r.logger.Info("scheduler stopped")
}
