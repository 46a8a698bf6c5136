// Package models defines the domain models for the application.
// All timestamps are epoch milliseconds.
package models

import (
	"time"
)

// NowMS returns the current time as epoch milliseconds.
func NowMS() int64 {
	return time.Now().UnixMilli()
}

// SourceDomain identifies the job board a posting came from.
type SourceDomain string

const (
	SourceLinkedIn SourceDomain = "linkedin"
	SourceIIMJobs  SourceDomain = "iimjobs"
	SourceNaukri   SourceDomain = "naukri"
	SourceOther    SourceDomain = "other"
)

// ChannelRelay is the ingest channel for the generic svix-signed URL relay.
const ChannelRelay = "relay"

// ChannelWhatsAppVonage is the ingest channel for the Vonage WhatsApp webhook.
// It participates in the per-source JD policy table alongside source domains.
const ChannelWhatsAppVonage = "whatsapp.vonage.local"

// JobStatus is the user-facing lifecycle status of a job.
type JobStatus string

const (
	JobStatusNew          JobStatus = "NEW"
	JobStatusLinkOnly     JobStatus = "LINK_ONLY"
	JobStatusScored       JobStatus = "SCORED"
	JobStatusShortlisted  JobStatus = "SHORTLISTED"
	JobStatusReadyToApply JobStatus = "READY_TO_APPLY"
	JobStatusApplied      JobStatus = "APPLIED"
	JobStatusRejected     JobStatus = "REJECTED"
	JobStatusArchived     JobStatus = "ARCHIVED"
)

// Terminal reports whether a status may never be regressed by ingestion or
// rescoring.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusReadyToApply, JobStatusApplied, JobStatusRejected, JobStatusArchived:
		return true
	}
	return false
}

// Valid reports whether s is a known lifecycle status.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusNew, JobStatusLinkOnly, JobStatusScored, JobStatusShortlisted,
		JobStatusReadyToApply, JobStatusApplied, JobStatusRejected, JobStatusArchived:
		return true
	}
	return false
}

// SystemStatus carries machine-set context parallel to JobStatus.
type SystemStatus string

const (
	SystemStatusNone               SystemStatus = ""
	SystemStatusNeedsManualJD      SystemStatus = "NEEDS_MANUAL_JD"
	SystemStatusAIUnavailable      SystemStatus = "AI_UNAVAILABLE"
	SystemStatusRejectedHeuristic  SystemStatus = "REJECTED_HEURISTIC"
	SystemStatusInvalidURL         SystemStatus = "INVALID_URL"
	SystemStatusCanonicalDuplicate SystemStatus = "CANONICAL_DUPLICATE"
)

// JDSource records where the job description text came from.
type JDSource string

const (
	JDSourceFetched JDSource = "fetched"
	JDSourceEmail   JDSource = "email"
	JDSourceManual  JDSource = "manual"
	JDSourceNone    JDSource = "none"
)

// FetchStatus records the outcome of JD resolution.
type FetchStatus string

const (
	FetchStatusOK            FetchStatus = "ok"
	FetchStatusFailed        FetchStatus = "failed"
	FetchStatusBlocked       FetchStatus = "blocked"
	FetchStatusLowQuality    FetchStatus = "low_quality"
	FetchStatusAIUnavailable FetchStatus = "ai_unavailable"
)

// JDConfidence grades how trustworthy a resolved JD looks.
type JDConfidence string

const (
	JDConfidenceHigh   JDConfidence = "high"
	JDConfidenceMedium JDConfidence = "medium"
	JDConfidenceLow    JDConfidence = "low"
)

// FetchDebug captures why JD resolution landed where it did.
type FetchDebug struct {
	Confidence     JDConfidence `json:"confidence,omitempty"`
	Policy         string       `json:"policy,omitempty"`
	FallbackReason string       `json:"fallback_reason,omitempty"`
	PriorStatus    FetchStatus  `json:"prior_status,omitempty"`
	HTTPStatus     int          `json:"http_status,omitempty"`
	TimeoutMS      int64        `json:"fetch_timeout_ms,omitempty"`
	TextLength     int          `json:"text_length,omitempty"`
}

// Job is one canonical job posting, keyed by job_key.
type Job struct {
	JobKey       string       `json:"job_key"`
	JobURL       string       `json:"job_url"`
	SourceDomain SourceDomain `json:"source_domain"`
	JobID        string       `json:"job_id,omitempty"`
	Channel      string       `json:"channel,omitempty"`

	Company            string `json:"company,omitempty"`
	RoleTitle          string `json:"role_title,omitempty"`
	Location           string `json:"location,omitempty"`
	WorkMode           string `json:"work_mode,omitempty"` // Onsite, Hybrid, Remote
	Seniority          string `json:"seniority,omitempty"`
	ExperienceYearsMin *int   `json:"experience_years_min,omitempty"`
	ExperienceYearsMax *int   `json:"experience_years_max,omitempty"`

	MustKeywords   []string `json:"must_keywords"`
	NiceKeywords   []string `json:"nice_keywords"`
	RejectKeywords []string `json:"reject_keywords"`
	Skills         []string `json:"skills"`

	JDTextClean string      `json:"jd_text_clean,omitempty"`
	JDSource    JDSource    `json:"jd_source"`
	FetchStatus FetchStatus `json:"fetch_status,omitempty"`
	FetchDebug  *FetchDebug `json:"fetch_debug,omitempty"`

	PrimaryTargetID   string   `json:"primary_target_id,omitempty"`
	ScoreMust         *int     `json:"score_must,omitempty"`
	ScoreNice         *int     `json:"score_nice,omitempty"`
	FinalScore        *int     `json:"final_score,omitempty"`
	RejectTriggered   bool     `json:"reject_triggered"`
	RejectReasons     []string `json:"reject_reasons"`
	ReasonTopMatches  string   `json:"reason_top_matches,omitempty"`
	PotentialContacts []string `json:"potential_contacts"`

	Status       JobStatus    `json:"status"`
	SystemStatus SystemStatus `json:"system_status,omitempty"`
	Notes        string       `json:"notes,omitempty"`
	AutoPilot    bool         `json:"auto_pilot"`

	CreatedAt    int64  `json:"created_at"`
	UpdatedAt    int64  `json:"updated_at"`
	LastScoredAt *int64 `json:"last_scored_at,omitempty"`
	AppliedAt    *int64 `json:"applied_at,omitempty"`
	RejectedAt   *int64 `json:"rejected_at,omitempty"`
	ArchivedAt   *int64 `json:"archived_at,omitempty"`
}

// RubricProfile selects the scoring rubric used for application packs.
type RubricProfile string

const (
	RubricAuto          RubricProfile = "auto"
	RubricPMV1          RubricProfile = "pm_v1"
	RubricTargetGeneric RubricProfile = "target_generic_v1"
)

// Target is an operator-defined profile of desired roles and keywords.
type Target struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	PrimaryRole    string        `json:"primary_role"`
	SeniorityPref  string        `json:"seniority_pref,omitempty"`
	LocationPref   string        `json:"location_pref,omitempty"`
	MustKeywords   []string      `json:"must_keywords"`
	NiceKeywords   []string      `json:"nice_keywords"`
	RejectKeywords []string      `json:"reject_keywords"`
	RubricProfile  RubricProfile `json:"rubric_profile"`
	Active         bool          `json:"active"`
	CreatedAt      int64         `json:"created_at"`
	UpdatedAt      int64         `json:"updated_at"`
}

// ProfileBasics is the identity block of a resume profile.
type ProfileBasics struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
}

// ExperienceItem is one role in a resume profile.
type ExperienceItem struct {
	Company string   `json:"company"`
	Role    string   `json:"role"`
	Period  string   `json:"period,omitempty"`
	Bullets []string `json:"bullets"`
}

// ProfileData is the structured resume content.
type ProfileData struct {
	Basics     ProfileBasics    `json:"basics"`
	Summary    string           `json:"summary"`
	Experience []ExperienceItem `json:"experience"`
	Skills     []string         `json:"skills"`
}

// Bullets returns every experience bullet in document order.
func (p ProfileData) Bullets() []string {
	var out []string
	for _, exp := range p.Experience {
		out = append(out, exp.Bullets...)
	}
	return out
}

// ResumeProfile is a stored resume. Exactly one profile is primary whenever
// any profile exists.
type ResumeProfile struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Data      ProfileData `json:"profile"`
	IsPrimary bool        `json:"is_primary"`
	CreatedAt int64       `json:"created_at"`
	UpdatedAt int64       `json:"updated_at"`
}

// RequirementType groups evidence rows by where the requirement came from.
type RequirementType string

const (
	RequirementMust       RequirementType = "must"
	RequirementNice       RequirementType = "nice"
	RequirementReject     RequirementType = "reject"
	RequirementConstraint RequirementType = "constraint"
)

// EvidenceSource identifies which corpus matched a requirement.
type EvidenceSource string

const (
	EvidenceFromSummary EvidenceSource = "resume_summary"
	EvidenceFromBullets EvidenceSource = "resume_bullets"
	EvidenceFromJD      EvidenceSource = "jd_text"
	EvidenceFromNone    EvidenceSource = "none"
)

// Evidence is one requirement matched (or not) against the resume and JD.
// Unique per (job_key, requirement_text, requirement_type).
type Evidence struct {
	ID              string          `json:"id"`
	JobKey          string          `json:"job_key"`
	RequirementType RequirementType `json:"requirement_type"`
	RequirementText string          `json:"requirement_text"`
	Matched         bool            `json:"matched"`
	EvidenceSource  EvidenceSource  `json:"evidence_source"`
	EvidenceText    string          `json:"evidence_text,omitempty"` // <=220 chars
	ConfidenceScore int             `json:"confidence_score"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       int64           `json:"created_at"`
	UpdatedAt       int64           `json:"updated_at"`
}

// StageMetric is the latency/outcome record for one scoring stage.
type StageMetric struct {
	DurationMS int64  `json:"duration_ms"`
	Status     string `json:"status"`
}

// ScoringRun is one append-only telemetry row per scoring pipeline run.
type ScoringRun struct {
	ID               string                 `json:"id"`
	JobKey           string                 `json:"job_key"`
	Source           string                 `json:"source,omitempty"`
	FinalStatus      string                 `json:"final_status,omitempty"`
	HeuristicPassed  bool                   `json:"heuristic_passed"`
	HeuristicReasons []string               `json:"heuristic_reasons"`
	StageMetrics     map[string]StageMetric `json:"stage_metrics"`
	AIModel          string                 `json:"ai_model,omitempty"`
	AITokensIn       int                    `json:"ai_tokens_in"`
	AITokensOut      int                    `json:"ai_tokens_out"`
	AITokensTotal    int                    `json:"ai_tokens_total"`
	AILatencyMS      int64                  `json:"ai_latency_ms"`
	TotalLatencyMS   int64                  `json:"total_latency_ms"`
	FinalScore       *int                   `json:"final_score,omitempty"`
	RejectTriggered  bool                   `json:"reject_triggered"`
	CreatedAt        int64                  `json:"created_at"`
}

// ProfilePreference overrides which resume profile a job uses for packs.
type ProfilePreference struct {
	JobKey    string `json:"job_key"`
	ProfileID string `json:"profile_id"`
	UpdatedAt int64  `json:"updated_at"`
}

// TouchpointChannel is the outreach channel for a contact touchpoint.
type TouchpointChannel string

const (
	TouchpointLinkedIn TouchpointChannel = "LINKEDIN"
	TouchpointEmail    TouchpointChannel = "EMAIL"
	TouchpointOtherCh  TouchpointChannel = "OTHER"
)

// TouchpointStatus tracks where an outreach attempt stands.
type TouchpointStatus string

const (
	TouchpointDraft   TouchpointStatus = "DRAFT"
	TouchpointSent    TouchpointStatus = "SENT"
	TouchpointReplied TouchpointStatus = "REPLIED"
)

// Contact is a person worth reaching out to for a job.
type Contact struct {
	ID        string `json:"id"`
	JobKey    string `json:"job_key"`
	Name      string `json:"name"`
	Title     string `json:"title,omitempty"`
	Handle    string `json:"handle,omitempty"` // email or profile URL; encrypted at rest when configured
	Source    string `json:"source,omitempty"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// Touchpoint is one outreach attempt, unique per (contact, job, channel).
type Touchpoint struct {
	ID        string            `json:"id"`
	ContactID string            `json:"contact_id"`
	JobKey    string            `json:"job_key"`
	Channel   TouchpointChannel `json:"channel"`
	Status    TouchpointStatus  `json:"status"`
	Note      string            `json:"note,omitempty"`
	CreatedAt int64             `json:"created_at"`
	UpdatedAt int64             `json:"updated_at"`
}

// Event kinds written by the orchestrator and scheduler.
const (
	EventAIFailed             = "AI_FAILED"
	EventEvidenceUpsertFailed = "EVIDENCE_UPSERT_FAILED"
	EventIngestFallback       = "INGEST_FALLBACK"
	EventScheduleBudgetStop   = "SCHEDULE_BUDGET_STOP"
	EventMediaSkipped         = "MEDIA_SKIPPED"
	EventWebhookRejected      = "WEBHOOK_REJECTED"
	EventWebhookMessage       = "WEBHOOK_MESSAGE"
)

// Event is one append-only operational log row. MessageID is set for inbound
// webhook messages and backs their dedupe.
type Event struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	JobKey    string `json:"job_key,omitempty"`
	Detail    string `json:"detail,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	CreatedAt int64  `json:"created_at"`
}
