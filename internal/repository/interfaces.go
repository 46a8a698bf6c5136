// Package repository defines repository interfaces for data access.
// All aggregates live in SQLite (libsql); timestamps are epoch milliseconds.
package repository

import (
	"context"
	"database/sql"

	"github.com/jobops/jobops-api/internal/models"
)

// JobFilter narrows job listings. Cursor is an opaque keyset token produced
// by a previous page ("<updated_at>|<job_key>").
type JobFilter struct {
	Status   string
	Source   string
	MinScore *int
	Limit    int
	Cursor   string
}

// JobRepository defines methods for job data access.
type JobRepository interface {
	// Upsert inserts or updates by job_key. On conflict, terminal statuses
	// are preserved and non-empty keyword JSON never gets replaced by '[]'.
	Upsert(ctx context.Context, job *models.Job) error
	Exists(ctx context.Context, jobKey string) (bool, error)
	GetByKey(ctx context.Context, jobKey string) (*models.Job, error)
	List(ctx context.Context, filter JobFilter) ([]*models.Job, error)
	// UpdateScore writes score fields plus the transition outcome. Terminal
	// statuses keep their status; system_status and scores still update.
	UpdateScore(ctx context.Context, job *models.Job) error
	// UpdateJD refreshes JD and extracted fields without touching scores.
	UpdateJD(ctx context.Context, job *models.Job) error
	SetAutoPilot(ctx context.Context, jobKey string, on bool) error
	SetStatus(ctx context.Context, jobKey string, status models.JobStatus, systemStatus models.SystemStatus) error
	// ListPendingScore returns jobs with a JD in the given statuses, oldest
	// updated_at first.
	ListPendingScore(ctx context.Context, statuses []models.JobStatus, limit int) ([]*models.Job, error)
	// ListLinkOnly returns LINK_ONLY jobs for the backfill sweep.
	ListLinkOnly(ctx context.Context, limit int) ([]*models.Job, error)
	// ListMissingFields returns jobs holding a JD but lacking role or company.
	ListMissingFields(ctx context.Context, limit int) ([]*models.Job, error)
	// ListStaleScores returns scored jobs whose last_scored_at is older than
	// the given epoch-ms bound.
	ListStaleScores(ctx context.Context, before int64, limit int) ([]*models.Job, error)
	// ListByStatusAfterKey pages jobs of one status by ascending job_key.
	ListByStatusAfterKey(ctx context.Context, status models.JobStatus, afterKey string, limit int) ([]*models.Job, error)
}

// TargetRepository defines methods for scoring-target data access.
type TargetRepository interface {
	Upsert(ctx context.Context, target *models.Target) error
	GetByID(ctx context.Context, id string) (*models.Target, error)
	List(ctx context.Context) ([]*models.Target, error)
	ListActive(ctx context.Context) ([]*models.Target, error)
}

// ProfileRepository defines methods for resume profile data access.
type ProfileRepository interface {
	// Upsert saves by name. Setting IsPrimary demotes every other profile;
	// the first profile ever saved becomes primary regardless.
	Upsert(ctx context.Context, profile *models.ResumeProfile) error
	GetByID(ctx context.Context, id string) (*models.ResumeProfile, error)
	GetPrimary(ctx context.Context) (*models.ResumeProfile, error)
	List(ctx context.Context) ([]*models.ResumeProfile, error)
}

// MissedRequirement is one gap-report aggregation row.
type MissedRequirement struct {
	RequirementText string `json:"requirement_text"`
	MissedCount     int    `json:"missed_count"`
}

// EvidenceRepository defines methods for per-requirement evidence rows.
type EvidenceRepository interface {
	// UpsertBatch writes all rows in one transaction. Conflicts on
	// (job_key, requirement_text, requirement_type) replace the match
	// fields but keep the original id and created_at.
	UpsertBatch(ctx context.Context, rows []models.Evidence) error
	ListByJobKey(ctx context.Context, jobKey string) ([]*models.Evidence, error)
	// MissedMusts aggregates unmatched must-requirements across jobs in the
	// given status, most-missed first.
	MissedMusts(ctx context.Context, status models.JobStatus, minMissed, top int) ([]MissedRequirement, error)
}

// DraftRepository defines methods for application-pack drafts and their
// version history.
type DraftRepository interface {
	GetByID(ctx context.Context, id string) (*models.ResumeDraft, error)
	GetByJobProfile(ctx context.Context, jobKey, profileID string) (*models.ResumeDraft, error)
	// Save upserts the current draft row keyed by (job_key, profile_id).
	Save(ctx context.Context, draft *models.ResumeDraft) error
	// AppendVersion writes the next monotonic version for the draft and
	// returns its version_no.
	AppendVersion(ctx context.Context, draftID, sourceAction, packJSON, atsJSON, rrExportJSON string) (int, error)
	GetVersion(ctx context.Context, draftID string, versionNo int) (*models.DraftVersion, error)
	ListVersions(ctx context.Context, draftID string) ([]*models.DraftVersion, error)
}

// ScoringRunRepository defines methods for scoring telemetry.
type ScoringRunRepository interface {
	Create(ctx context.Context, run *models.ScoringRun) error
	LatestByJobKey(ctx context.Context, jobKey string) (*models.ScoringRun, error)
	ListByJobKey(ctx context.Context, jobKey string, limit int) ([]*models.ScoringRun, error)
}

// PreferenceRepository defines methods for per-job profile overrides.
type PreferenceRepository interface {
	Set(ctx context.Context, jobKey, profileID string) error
	Get(ctx context.Context, jobKey string) (string, error)
}

// ContactRepository defines methods for contacts and outreach touchpoints.
type ContactRepository interface {
	// UpsertByName inserts or refreshes a contact keyed by (job_key, name).
	UpsertByName(ctx context.Context, contact *models.Contact) error
	GetByID(ctx context.Context, id string) (*models.Contact, error)
	ListByJobKey(ctx context.Context, jobKey string) ([]*models.Contact, error)
	// UpsertTouchpoint is idempotent on (contact_id, job_key, channel).
	UpsertTouchpoint(ctx context.Context, tp *models.Touchpoint) error
	ListTouchpoints(ctx context.Context, jobKey string) ([]*models.Touchpoint, error)
}

// EventRepository defines methods for the append-only operational log.
type EventRepository interface {
	// Insert stores the event. Events carrying a message_id are deduplicated
	// on it; Insert reports false when a duplicate was dropped.
	Insert(ctx context.Context, event *models.Event) (bool, error)
	HasMessageID(ctx context.Context, messageID string) (bool, error)
	ListRecent(ctx context.Context, kind string, limit int) ([]*models.Event, error)
}

// Repositories bundles all repository instances.
type Repositories struct {
	Job        JobRepository
	Target     TargetRepository
	Profile    ProfileRepository
	Evidence   EvidenceRepository
	Draft      DraftRepository
	ScoringRun ScoringRunRepository
	Preference PreferenceRepository
	Contact    ContactRepository
	Event      EventRepository
}

// NewRepositories creates all repository instances.
func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Job:        NewSQLiteJobRepository(db),
		Target:     NewSQLiteTargetRepository(db),
		Profile:    NewSQLiteProfileRepository(db),
		Evidence:   NewSQLiteEvidenceRepository(db),
		Draft:      NewSQLiteDraftRepository(db),
		ScoringRun: NewSQLiteScoringRunRepository(db),
		Preference: NewSQLitePreferenceRepository(db),
		Contact:    NewSQLiteContactRepository(db),
		Event:      NewSQLiteEventRepository(db),
	}
}
