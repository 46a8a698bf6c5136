package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/jobops/jobops-api/internal/config"
	"github.com/jobops/jobops-api/internal/llm"
	"github.com/jobops/jobops-api/internal/models"
	"github.com/jobops/jobops-api/internal/repository"
)

// fakeJobRepo implements repository.JobRepository in memory. Reads return
// copies so mutations only land through a write method, like the real store.
type fakeJobRepo struct {
	mu    sync.RWMutex
	jobs  map[string]*models.Job
	order []string
}

func newFakeJobRepo(jobs ...*models.Job) *fakeJobRepo {
	r := &fakeJobRepo{jobs: make(map[string]*models.Job)}
	for _, job := range jobs {
		r.put(job)
	}
	return r
}

func (r *fakeJobRepo) put(job *models.Job) {
	if _, ok := r.jobs[job.JobKey]; !ok {
		r.order = append(r.order, job.JobKey)
	}
	stored := *job
	r.jobs[job.JobKey] = &stored
}

// Upsert mirrors the real store's timestamp stamping: created_at is set once
// and kept, updated_at never moves backward.
func (r *fakeJobRepo) Upsert(ctx context.Context, job *models.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := models.NowMS()
	stored := *job
	if prev, ok := r.jobs[job.JobKey]; ok {
		stored.CreatedAt = prev.CreatedAt
		stored.UpdatedAt = now
		if prev.UpdatedAt > now {
			stored.UpdatedAt = prev.UpdatedAt
		}
	} else {
		if stored.CreatedAt == 0 {
			stored.CreatedAt = now
		}
		stored.UpdatedAt = now
	}
	r.put(&stored)
	return nil
}

func (r *fakeJobRepo) Exists(ctx context.Context, jobKey string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.jobs[jobKey]
	return ok, nil
}

func (r *fakeJobRepo) GetByKey(ctx context.Context, jobKey string) (*models.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[jobKey]
	if !ok {
		return nil, nil
	}
	out := *job
	return &out, nil
}

func (r *fakeJobRepo) List(ctx context.Context, filter repository.JobFilter) ([]*models.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(func(job *models.Job) bool {
		return filter.Status == "" || string(job.Status) == filter.Status
	}, filter.Limit), nil
}

func (r *fakeJobRepo) UpdateScore(ctx context.Context, job *models.Job) error {
	return r.Upsert(ctx, job)
}

func (r *fakeJobRepo) UpdateJD(ctx context.Context, job *models.Job) error {
	return r.Upsert(ctx, job)
}

func (r *fakeJobRepo) SetAutoPilot(ctx context.Context, jobKey string, on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[jobKey]; ok {
		job.AutoPilot = on
	}
	return nil
}

func (r *fakeJobRepo) SetStatus(ctx context.Context, jobKey string, status models.JobStatus, systemStatus models.SystemStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobKey]
	if !ok {
		return nil
	}
	switch {
	case job.Status == models.JobStatusApplied:
	case job.Status.Terminal() && status != models.JobStatusReadyToApply:
	default:
		job.Status = status
	}
	job.SystemStatus = systemStatus
	job.UpdatedAt = models.NowMS()
	return nil
}

func (r *fakeJobRepo) ListPendingScore(ctx context.Context, statuses []models.JobStatus, limit int) ([]*models.Job, error) {
	if len(statuses) == 0 {
		statuses = []models.JobStatus{models.JobStatusNew, models.JobStatusScored, models.JobStatusLinkOnly}
	}
	want := make(map[models.JobStatus]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(func(job *models.Job) bool {
		return want[job.Status] && job.JDTextClean != ""
	}, limit), nil
}

func (r *fakeJobRepo) ListLinkOnly(ctx context.Context, limit int) ([]*models.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(func(job *models.Job) bool {
		return job.Status == models.JobStatusLinkOnly
	}, limit), nil
}

func (r *fakeJobRepo) ListMissingFields(ctx context.Context, limit int) ([]*models.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(func(job *models.Job) bool {
		return job.JDTextClean != "" && (job.RoleTitle == "" || job.Company == "") && !job.Status.Terminal()
	}, limit), nil
}

func (r *fakeJobRepo) ListStaleScores(ctx context.Context, before int64, limit int) ([]*models.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(func(job *models.Job) bool {
		scored := job.Status == models.JobStatusScored || job.Status == models.JobStatusShortlisted
		return scored && job.LastScoredAt != nil && *job.LastScoredAt < before
	}, limit), nil
}

func (r *fakeJobRepo) ListByStatusAfterKey(ctx context.Context, status models.JobStatus, afterKey string, limit int) ([]*models.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(func(job *models.Job) bool {
		return job.Status == status && job.JobKey > afterKey
	}, limit), nil
}

func (r *fakeJobRepo) collect(match func(*models.Job) bool, limit int) []*models.Job {
	var out []*models.Job
	for _, key := range r.order {
		job := r.jobs[key]
		if !match(job) {
			continue
		}
		c := *job
		out = append(out, &c)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// fakeProfileRepo implements repository.ProfileRepository in memory.
type fakeProfileRepo struct {
	mu       sync.RWMutex
	profiles map[string]*models.ResumeProfile
}

func newFakeProfileRepo(profiles ...*models.ResumeProfile) *fakeProfileRepo {
	r := &fakeProfileRepo{profiles: make(map[string]*models.ResumeProfile)}
	for _, p := range profiles {
		r.profiles[p.ID] = p
	}
	return r
}

func (r *fakeProfileRepo) Upsert(ctx context.Context, profile *models.ResumeProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if profile.ID == "" {
		profile.ID = fmt.Sprintf("prof-%d", len(r.profiles)+1)
	}
	r.profiles[profile.ID] = profile
	return nil
}

func (r *fakeProfileRepo) GetByID(ctx context.Context, id string) (*models.ResumeProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.profiles[id], nil
}

func (r *fakeProfileRepo) GetPrimary(ctx context.Context) (*models.ResumeProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.profiles {
		if p.IsPrimary {
			return p, nil
		}
	}
	return nil, nil
}

func (r *fakeProfileRepo) List(ctx context.Context) ([]*models.ResumeProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.ResumeProfile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	return out, nil
}

// fakeDraftRepo implements repository.DraftRepository in memory with the same
// identity rules as the SQLite store: (job_key, profile_id) is the row key,
// the first assigned id survives upserts, and versions are monotonic.
type fakeDraftRepo struct {
	mu       sync.Mutex
	drafts   map[string]*models.ResumeDraft
	versions map[string][]*models.DraftVersion
	nextID   int
}

func newFakeDraftRepo() *fakeDraftRepo {
	return &fakeDraftRepo{
		drafts:   make(map[string]*models.ResumeDraft),
		versions: make(map[string][]*models.DraftVersion),
	}
}

func draftKey(jobKey, profileID string) string { return jobKey + "|" + profileID }

func (r *fakeDraftRepo) GetByID(ctx context.Context, id string) (*models.ResumeDraft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.drafts {
		if d.ID == id {
			c := *d
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeDraftRepo) GetByJobProfile(ctx context.Context, jobKey, profileID string) (*models.ResumeDraft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.drafts[draftKey(jobKey, profileID)]; ok {
		c := *d
		return &c, nil
	}
	return nil, nil
}

func (r *fakeDraftRepo) Save(ctx context.Context, draft *models.ResumeDraft) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := draftKey(draft.JobKey, draft.ProfileID)
	if existing, ok := r.drafts[key]; ok {
		draft.ID = existing.ID
		draft.CreatedAt = existing.CreatedAt
	} else if draft.ID == "" {
		r.nextID++
		draft.ID = fmt.Sprintf("draft-%d", r.nextID)
	}
	now := models.NowMS()
	if draft.CreatedAt == 0 {
		draft.CreatedAt = now
	}
	draft.UpdatedAt = now
	stored := *draft
	r.drafts[key] = &stored
	return nil
}

func (r *fakeDraftRepo) AppendVersion(ctx context.Context, draftID, sourceAction, packJSON, atsJSON, rrExportJSON string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := len(r.versions[draftID]) + 1
	r.versions[draftID] = append(r.versions[draftID], &models.DraftVersion{
		ID:           fmt.Sprintf("%s-v%d", draftID, next),
		DraftID:      draftID,
		VersionNo:    next,
		SourceAction: models.DraftAction(sourceAction),
		PackJSON:     packJSON,
		ATSJSON:      atsJSON,
		RRExportJSON: rrExportJSON,
		CreatedAt:    models.NowMS(),
	})
	for _, d := range r.drafts {
		if d.ID == draftID {
			d.VersionNo = next
		}
	}
	return next, nil
}

func (r *fakeDraftRepo) GetVersion(ctx context.Context, draftID string, versionNo int) (*models.DraftVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.versions[draftID] {
		if v.VersionNo == versionNo {
			c := *v
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeDraftRepo) ListVersions(ctx context.Context, draftID string) ([]*models.DraftVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.DraftVersion, len(r.versions[draftID]))
	copy(out, r.versions[draftID])
	return out, nil
}

func packTestConfig() *config.Config {
	return &config.Config{
		PackSummaryMinChars: 120,
		PackMinBullets:      3,
		PackMinATS:          40,
		PackMinMustPct:      40,
	}
}

func newPackTestService(t *testing.T) (*PackService, *fakeJobRepo, *fakeDraftRepo) {
	t.Helper()
	jobs := newFakeJobRepo(packTestJob())
	drafts := newFakeDraftRepo()
	repos := &repository.Repositories{
		Job:     jobs,
		Profile: newFakeProfileRepo(rrTestProfile()),
		Draft:   drafts,
	}
	features := repository.Features{DraftVersions: true}
	logger := slog.Default()
	events := NewEventService(repos, features, logger)
	svc := NewPackService(packTestConfig(), repos, features, llm.New(llm.Config{}, logger), events, logger)
	return svc, jobs, drafts
}

func TestPackLifecycle(t *testing.T) {
	svc, jobs, drafts := newPackTestService(t)
	ctx := context.Background()
	jobKey := packTestJob().JobKey

	// Generate always lands in content review, even when the gate would pass.
	view, err := svc.Generate(ctx, GenerateInput{JobKey: jobKey})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if view.Draft.Status != models.DraftStatusContentReview {
		t.Errorf("status after generate = %s, want %s", view.Draft.Status, models.DraftStatusContentReview)
	}
	if view.Draft.VersionNo != 1 {
		t.Errorf("VersionNo after generate = %d, want 1", view.Draft.VersionNo)
	}
	if view.Pack.Polished {
		t.Error("Polished = true without an LLM backend")
	}
	if !view.Readiness.Ready {
		t.Errorf("generated pack should pass the gate, failures %v", view.Readiness.Failures)
	}

	// A manual edit that keeps the gate green promotes to ready-for-export.
	edited := strings.TrimSpace(strings.Repeat("Roadmap and sql delivery with stakeholder management depth. ", 4))
	view, err = svc.Review(ctx, ReviewInput{JobKey: jobKey, Summary: edited})
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	if view.Draft.Status != models.DraftStatusReadyForExport {
		t.Errorf("status after review = %s, want %s (failures %v)",
			view.Draft.Status, models.DraftStatusReadyForExport, view.Readiness.Failures)
	}
	if view.Draft.VersionNo != 2 {
		t.Errorf("VersionNo after review = %d, want 2", view.Draft.VersionNo)
	}
	if view.Pack.Summary != edited {
		t.Errorf("Summary = %q, want the edited text", view.Pack.Summary)
	}

	// Approve promotes draft and job together.
	view, err = svc.Approve(ctx, ApproveInput{JobKey: jobKey})
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if view.Draft.Status != models.DraftStatusReadyToApply {
		t.Errorf("status after approve = %s, want %s", view.Draft.Status, models.DraftStatusReadyToApply)
	}
	if view.Draft.ApprovedAt == nil {
		t.Error("ApprovedAt not set")
	}
	if view.Draft.VersionNo != 3 {
		t.Errorf("VersionNo after approve = %d, want 3", view.Draft.VersionNo)
	}
	job, _ := jobs.GetByKey(ctx, jobKey)
	if job.Status != models.JobStatusReadyToApply {
		t.Errorf("job status = %s, want %s", job.Status, models.JobStatusReadyToApply)
	}
	if job.SystemStatus != models.SystemStatusNone {
		t.Errorf("job system status = %q, want none", job.SystemStatus)
	}

	// The approved draft is locked against edits and accidental regeneration.
	if _, err := svc.Generate(ctx, GenerateInput{JobKey: jobKey}); !errors.Is(err, ErrConflict) {
		t.Errorf("Generate() on approved draft error = %v, want ErrConflict", err)
	}
	if _, err := svc.Review(ctx, ReviewInput{JobKey: jobKey, Summary: "sneaky edit"}); !errors.Is(err, ErrConflict) {
		t.Errorf("Review() on approved draft error = %v, want ErrConflict", err)
	}

	// Revert restores the stored payload byte for byte and reopens review.
	stored, err := svc.Get(ctx, jobKey, "")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	v2, err := drafts.GetVersion(ctx, stored.Draft.ID, 2)
	if err != nil || v2 == nil {
		t.Fatalf("GetVersion(2) = %v, %v", v2, err)
	}
	view, err = svc.Revert(ctx, jobKey, "", 2)
	if err != nil {
		t.Fatalf("Revert() error = %v", err)
	}
	if view.Draft.Status != models.DraftStatusContentReview {
		t.Errorf("status after revert = %s, want %s", view.Draft.Status, models.DraftStatusContentReview)
	}
	if view.Draft.PackJSON != v2.PackJSON {
		t.Error("revert did not restore the version payload byte for byte")
	}
	if view.Draft.VersionNo != 4 {
		t.Errorf("VersionNo after revert = %d, want 4", view.Draft.VersionNo)
	}

	history, err := svc.Get(ctx, jobKey, "")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	wantActions := []models.DraftAction{
		models.DraftActionGenerate,
		models.DraftActionManualEdit,
		models.DraftActionApprove,
		models.DraftActionRevert,
	}
	if len(history.Versions) != len(wantActions) {
		t.Fatalf("got %d versions, want %d", len(history.Versions), len(wantActions))
	}
	for i, action := range wantActions {
		if history.Versions[i].SourceAction != action {
			t.Errorf("versions[%d].SourceAction = %s, want %s", i, history.Versions[i].SourceAction, action)
		}
	}
}

func TestPackApprovalGate(t *testing.T) {
	svc, _, _ := newPackTestService(t)
	ctx := context.Background()
	jobKey := packTestJob().JobKey

	if _, err := svc.Generate(ctx, GenerateInput{JobKey: jobKey, OnePageMode: models.OnePageHard}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	// A too-short summary fails the gate in hard mode and blocks approval.
	view, err := svc.Review(ctx, ReviewInput{JobKey: jobKey, Summary: strings.Repeat("x", 40)})
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	if view.Draft.Status != models.DraftStatusContentReview {
		t.Errorf("status = %s, want %s", view.Draft.Status, models.DraftStatusContentReview)
	}

	_, err = svc.Approve(ctx, ApproveInput{JobKey: jobKey})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Approve() error = %v, want ErrInvalidInput", err)
	}
	if !strings.Contains(err.Error(), "summary_length") {
		t.Errorf("Approve() error = %v, want it to name summary_length", err)
	}

	// Force bypasses the gate.
	view, err = svc.Approve(ctx, ApproveInput{JobKey: jobKey, Force: true})
	if err != nil {
		t.Fatalf("Approve(force) error = %v", err)
	}
	if view.Draft.Status != models.DraftStatusReadyToApply {
		t.Errorf("status = %s, want %s", view.Draft.Status, models.DraftStatusReadyToApply)
	}
}

func TestPackModeValidation(t *testing.T) {
	svc, _, _ := newPackTestService(t)
	ctx := context.Background()
	jobKey := packTestJob().JobKey

	if _, err := svc.Generate(ctx, GenerateInput{JobKey: jobKey, ATSMode: "bogus"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Generate(ats_mode=bogus) error = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.Generate(ctx, GenerateInput{JobKey: jobKey, OnePageMode: "two_pages"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Generate(one_page_mode=two_pages) error = %v, want ErrInvalidInput", err)
	}
}

func TestPackMissingCases(t *testing.T) {
	svc, _, _ := newPackTestService(t)
	ctx := context.Background()
	jobKey := packTestJob().JobKey

	if _, err := svc.Generate(ctx, GenerateInput{JobKey: "linkedin:0"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Generate(unknown job) error = %v, want ErrNotFound", err)
	}
	if _, err := svc.Get(ctx, jobKey, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() without a draft error = %v, want ErrNotFound", err)
	}
	if _, err := svc.Review(ctx, ReviewInput{JobKey: jobKey}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Review() without a draft error = %v, want ErrNotFound", err)
	}
	if _, err := svc.Approve(ctx, ApproveInput{JobKey: jobKey}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Approve() without a draft error = %v, want ErrNotFound", err)
	}

	if _, err := svc.Generate(ctx, GenerateInput{JobKey: jobKey}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, err := svc.Revert(ctx, jobKey, "", 0); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Revert(0) error = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.Revert(ctx, jobKey, "", 9); !errors.Is(err, ErrNotFound) {
		t.Errorf("Revert(9) error = %v, want ErrNotFound", err)
	}
}

func TestPackRevertNeedsVersionSchema(t *testing.T) {
	jobs := newFakeJobRepo(packTestJob())
	repos := &repository.Repositories{
		Job:     jobs,
		Profile: newFakeProfileRepo(rrTestProfile()),
		Draft:   newFakeDraftRepo(),
	}
	features := repository.Features{DraftVersions: false}
	logger := slog.Default()
	svc := NewPackService(packTestConfig(), repos, features, llm.New(llm.Config{}, logger), NewEventService(repos, features, logger), logger)

	_, err := svc.Revert(context.Background(), packTestJob().JobKey, "", 1)
	if !errors.Is(err, ErrSchemaDisabled) {
		t.Errorf("Revert() error = %v, want ErrSchemaDisabled", err)
	}
}
