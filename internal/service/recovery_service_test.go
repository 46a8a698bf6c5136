package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jobops/jobops-api/internal/config"
	"github.com/jobops/jobops-api/internal/fetch"
	"github.com/jobops/jobops-api/internal/jd"
	"github.com/jobops/jobops-api/internal/llm"
	"github.com/jobops/jobops-api/internal/models"
	"github.com/jobops/jobops-api/internal/repository"
)

// fakeTargetRepo implements repository.TargetRepository in memory.
type fakeTargetRepo struct {
	mu      sync.RWMutex
	targets map[string]*models.Target
	order   []string
}

func newFakeTargetRepo(targets ...models.Target) *fakeTargetRepo {
	r := &fakeTargetRepo{targets: make(map[string]*models.Target)}
	for i := range targets {
		t := targets[i]
		if t.ID == "" {
			t.ID = fmt.Sprintf("target-%d", i+1)
		}
		r.targets[t.ID] = &t
		r.order = append(r.order, t.ID)
	}
	return r
}

func (r *fakeTargetRepo) Upsert(ctx context.Context, target *models.Target) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if target.ID == "" {
		target.ID = fmt.Sprintf("target-%d", len(r.targets)+1)
	}
	if _, ok := r.targets[target.ID]; !ok {
		r.order = append(r.order, target.ID)
	}
	stored := *target
	r.targets[target.ID] = &stored
	return nil
}

func (r *fakeTargetRepo) GetByID(ctx context.Context, id string) (*models.Target, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.targets[id]
	if !ok {
		return nil, nil
	}
	out := *t
	return &out, nil
}

func (r *fakeTargetRepo) List(ctx context.Context) ([]*models.Target, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Target, 0, len(r.order))
	for _, id := range r.order {
		t := *r.targets[id]
		out = append(out, &t)
	}
	return out, nil
}

func (r *fakeTargetRepo) ListActive(ctx context.Context) ([]*models.Target, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.Target
	for _, id := range r.order {
		if !r.targets[id].Active {
			continue
		}
		t := *r.targets[id]
		out = append(out, &t)
	}
	return out, nil
}

// fakeFetcher satisfies jd.PageFetcher with a canned response.
type fakeFetcher struct {
	result fetch.Result
	err    error
	calls  int
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (fetch.Result, error) {
	f.calls++
	return f.result, f.err
}

func (f *fakeFetcher) Timeout() time.Duration { return 5 * time.Second }

// recoveredJDHTML is a posting page whose extracted body clears the
// low-quality and confident-length gates.
const recoveredJDHTML = `<!doctype html>
<html><head><title>Senior Product Manager</title></head><body>
<div class="posting">
<h1>Senior Product Manager, Platform</h1>
<h2>Job Description</h2>
<p>We are hiring a Senior Product Manager to own the platform roadmap end to
end. You will partner with engineering and design to ship analytics features
that customers pay for, and you will defend every priority call with
sql-backed evidence.</p>
<h3>Key Responsibilities</h3>
<ul>
<li>Own the roadmap for the data platform and publish it quarterly.</li>
<li>Write sql to size opportunities and settle debates with numbers.</li>
<li>Run stakeholder management across sales, support, and engineering.</li>
</ul>
<h3>Requirements</h3>
<ul>
<li>6+ years in product roles at b2b saas companies.</li>
<li>Fluency with sql and experiment design.</li>
</ul>
</div>
</body></html>`

func linkOnlyTestJob(key string) *models.Job {
	return &models.Job{
		JobKey:       key,
		JobURL:       "https://boards.example.com/jobs/" + key,
		SourceDomain: models.SourceOther,
		Status:       models.JobStatusLinkOnly,
		SystemStatus: models.SystemStatusAIUnavailable,
		JDSource:     models.JDSourceNone,
		CreatedAt:    models.NowMS(),
		UpdatedAt:    models.NowMS(),
	}
}

func recoveryTestConfig() *config.Config {
	return &config.Config{
		MinJDChars:         120,
		MinTargetSignal:    8,
		ShortlistThreshold: 75,
		ArchiveThreshold:   55,
	}
}

func newRecoveryTestService(t *testing.T, llmClient *llm.Client, fetcher jd.PageFetcher, targets *fakeTargetRepo, jobs ...*models.Job) (*RecoveryService, *fakeJobRepo) {
	t.Helper()
	cfg := recoveryTestConfig()
	jobRepo := newFakeJobRepo(jobs...)
	repos := &repository.Repositories{
		Job:     jobRepo,
		Target:  targets,
		Profile: newFakeProfileRepo(rrTestProfile()),
	}
	features := repository.Features{}
	logger := slog.Default()
	events := NewEventService(repos, features, logger)
	evidence := NewEvidenceService(cfg, repos, features, llmClient, events, logger)
	scoring := NewScoringService(cfg, repos, features, llmClient, evidence, events, logger)
	resolver := jd.NewResolver(fetcher, logger)
	svc := NewRecoveryService(cfg, repos, resolver, llmClient, scoring, events, logger)
	return svc, jobRepo
}

func TestBackfillLinkOnlyRecoversJD(t *testing.T) {
	fetcher := &fakeFetcher{result: fetch.Result{StatusCode: 200, HTML: recoveredJDHTML}}
	targets := newFakeTargetRepo(heuristicTestTarget())
	svc, jobRepo := newRecoveryTestService(t, llm.New(llm.Config{}, slog.Default()), fetcher, targets, linkOnlyTestJob("other:pm-1"))

	result, err := svc.BackfillLinkOnly(context.Background(), 5)
	if err != nil {
		t.Fatalf("BackfillLinkOnly() error = %v", err)
	}
	if result.Attempted != 1 || result.Recovered != 1 {
		t.Errorf("BackfillLinkOnly() = %+v, want attempted 1 recovered 1", result)
	}
	if result.Scored != 0 {
		t.Errorf("Scored = %d without an LLM backend, want 0", result.Scored)
	}

	stored, _ := jobRepo.GetByKey(context.Background(), "other:pm-1")
	if stored.FetchStatus != models.FetchStatusOK {
		t.Errorf("FetchStatus = %s, want %s", stored.FetchStatus, models.FetchStatusOK)
	}
	if stored.JDSource != models.JDSourceFetched {
		t.Errorf("JDSource = %s, want %s", stored.JDSource, models.JDSourceFetched)
	}
	if !strings.HasPrefix(stored.JDTextClean, "Job Description") {
		t.Errorf("JDTextClean should start at the description anchor, got %q", stored.JDTextClean[:min(len(stored.JDTextClean), 40)])
	}
	if !strings.Contains(stored.JDTextClean, "roadmap") {
		t.Error("JDTextClean lost the posting body")
	}
	// Stored without scoring: the job stays LINK_ONLY for the pending sweep.
	if stored.Status != models.JobStatusLinkOnly {
		t.Errorf("Status = %s, want %s", stored.Status, models.JobStatusLinkOnly)
	}
}

func TestBackfillLinkOnlyRecordsFailedAttempt(t *testing.T) {
	fetcher := &fakeFetcher{result: fetch.Result{StatusCode: 503, HTML: "Service Unavailable"}}
	targets := newFakeTargetRepo(heuristicTestTarget())
	svc, jobRepo := newRecoveryTestService(t, llm.New(llm.Config{}, slog.Default()), fetcher, targets, linkOnlyTestJob("other:pm-2"))

	result, err := svc.BackfillLinkOnly(context.Background(), 5)
	if err != nil {
		t.Fatalf("BackfillLinkOnly() error = %v", err)
	}
	if result.Attempted != 1 || result.Recovered != 0 || result.Failed != 0 {
		t.Errorf("BackfillLinkOnly() = %+v, want attempted 1 recovered 0 failed 0", result)
	}

	stored, _ := jobRepo.GetByKey(context.Background(), "other:pm-2")
	if stored.FetchStatus != models.FetchStatusFailed {
		t.Errorf("FetchStatus = %s, want %s", stored.FetchStatus, models.FetchStatusFailed)
	}
	if stored.FetchDebug == nil {
		t.Fatal("FetchDebug not recorded for failed attempt")
	}
	if stored.FetchDebug.FallbackReason != "http_status" {
		t.Errorf("FallbackReason = %q, want %q", stored.FetchDebug.FallbackReason, "http_status")
	}
	if stored.FetchDebug.HTTPStatus != 503 {
		t.Errorf("HTTPStatus = %d, want 503", stored.FetchDebug.HTTPStatus)
	}
	if stored.JDTextClean != "" {
		t.Errorf("JDTextClean = %q after failed fetch, want empty", stored.JDTextClean)
	}
}

func TestBackfillLinkOnlySkipsLinkedInFetch(t *testing.T) {
	fetcher := &fakeFetcher{result: fetch.Result{StatusCode: 200, HTML: recoveredJDHTML}}
	job := linkOnlyTestJob("linkedin:4412")
	job.JobURL = "https://www.linkedin.com/jobs/view/4412"
	job.SourceDomain = models.SourceLinkedIn
	targets := newFakeTargetRepo(heuristicTestTarget())
	svc, jobRepo := newRecoveryTestService(t, llm.New(llm.Config{}, slog.Default()), fetcher, targets, job)

	result, err := svc.BackfillLinkOnly(context.Background(), 5)
	if err != nil {
		t.Fatalf("BackfillLinkOnly() error = %v", err)
	}
	if result.Recovered != 0 {
		t.Errorf("Recovered = %d, want 0", result.Recovered)
	}
	if fetcher.calls != 0 {
		t.Errorf("fetcher called %d times for a linkedin url, want 0", fetcher.calls)
	}

	stored, _ := jobRepo.GetByKey(context.Background(), "linkedin:4412")
	if stored.FetchStatus != models.FetchStatusBlocked {
		t.Errorf("FetchStatus = %s, want %s", stored.FetchStatus, models.FetchStatusBlocked)
	}
	if stored.FetchDebug == nil || stored.FetchDebug.Policy != jd.PolicyStrictLinkedIn {
		t.Errorf("FetchDebug = %+v, want policy %s", stored.FetchDebug, jd.PolicyStrictLinkedIn)
	}
}

func TestBackfillLinkOnlyDefaultLimit(t *testing.T) {
	fetcher := &fakeFetcher{result: fetch.Result{StatusCode: 503}}
	targets := newFakeTargetRepo(heuristicTestTarget())
	jobs := make([]*models.Job, 0, 12)
	for i := 0; i < 12; i++ {
		jobs = append(jobs, linkOnlyTestJob(fmt.Sprintf("other:bulk-%02d", i)))
	}
	svc, _ := newRecoveryTestService(t, llm.New(llm.Config{}, slog.Default()), fetcher, targets, jobs...)

	result, err := svc.BackfillLinkOnly(context.Background(), 0)
	if err != nil {
		t.Fatalf("BackfillLinkOnly() error = %v", err)
	}
	if result.Attempted != 10 {
		t.Errorf("Attempted = %d with limit 0, want the default sweep size 10", result.Attempted)
	}
}

func TestRecoverySweepsRequireLLM(t *testing.T) {
	fetcher := &fakeFetcher{result: fetch.Result{StatusCode: 503}}
	targets := newFakeTargetRepo(heuristicTestTarget())
	svc, _ := newRecoveryTestService(t, llm.New(llm.Config{}, slog.Default()), fetcher, targets)
	ctx := context.Background()

	sweeps := map[string]func() error{
		"missing fields": func() error { _, err := svc.FillMissingFields(ctx, 5); return err },
		"rescore stale":  func() error { _, err := svc.RescoreStale(ctx, 5); return err },
		"score pending":  func() error { _, err := svc.ScorePending(ctx, nil, 5); return err },
	}
	for name, sweep := range sweeps {
		t.Run(name, func(t *testing.T) {
			if err := sweep(); !errors.Is(err, llm.ErrUnavailable) {
				t.Errorf("error = %v, want llm.ErrUnavailable", err)
			}
		})
	}
}

func TestScorePendingValidation(t *testing.T) {
	// An API key makes the client report available; validation errors fire
	// before any model call.
	client := llm.New(llm.Config{APIKey: "test-key"}, slog.Default())
	fetcher := &fakeFetcher{result: fetch.Result{StatusCode: 503}}
	ctx := context.Background()

	t.Run("unknown status", func(t *testing.T) {
		svc, _ := newRecoveryTestService(t, client, fetcher, newFakeTargetRepo(heuristicTestTarget()))
		_, err := svc.ScorePending(ctx, []models.JobStatus{"BOGUS"}, 5)
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("error = %v, want ErrInvalidInput", err)
		}
		if !strings.Contains(err.Error(), "unknown status") {
			t.Errorf("error = %q, want the status named", err)
		}
	})

	t.Run("no active targets", func(t *testing.T) {
		svc, _ := newRecoveryTestService(t, client, fetcher, newFakeTargetRepo())
		_, err := svc.ScorePending(ctx, nil, 5)
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("error = %v, want ErrInvalidInput", err)
		}
		if !strings.Contains(err.Error(), "no active targets") {
			t.Errorf("error = %q, want missing targets named", err)
		}
	})
}

func TestScorePendingHeuristicRejectBatch(t *testing.T) {
	// The heuristic gate settles this job before the model is consulted, so
	// an unreachable API key is safe.
	client := llm.New(llm.Config{APIKey: "test-key"}, slog.Default())
	fetcher := &fakeFetcher{result: fetch.Result{StatusCode: 503}}
	job := linkOnlyTestJob("other:agency-1")
	job.Status = models.JobStatusNew
	job.SystemStatus = models.SystemStatusNone
	job.JDTextClean = "We are a staffing agency placing product managers with enterprise clients."
	job.JDSource = models.JDSourceFetched
	targets := newFakeTargetRepo(heuristicTestTarget())
	svc, jobRepo := newRecoveryTestService(t, client, fetcher, targets, job)

	result, err := svc.ScorePending(context.Background(), nil, 5)
	if err != nil {
		t.Fatalf("ScorePending() error = %v", err)
	}
	if result.Total != 1 || result.Scored != 1 || result.Failed != 0 {
		t.Fatalf("ScorePending() = %+v, want total 1 scored 1 failed 0", result)
	}
	item := result.Results[0]
	if item.Status != models.JobStatusRejected {
		t.Errorf("item status = %s, want %s", item.Status, models.JobStatusRejected)
	}
	if item.FinalScore == nil || *item.FinalScore != 0 {
		t.Errorf("item final score = %v, want 0", item.FinalScore)
	}

	stored, _ := jobRepo.GetByKey(context.Background(), "other:agency-1")
	if stored.SystemStatus != models.SystemStatusRejectedHeuristic {
		t.Errorf("SystemStatus = %s, want %s", stored.SystemStatus, models.SystemStatusRejectedHeuristic)
	}
	if !stored.RejectTriggered {
		t.Error("RejectTriggered not set by the heuristic gate")
	}
	if stored.LastScoredAt == nil {
		t.Error("LastScoredAt not stamped")
	}
}
