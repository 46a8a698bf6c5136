package routes

import (
	"context"

	"github.com/jobops/jobops-api/internal/http/handlers"
)

// IngestHandlers defines the interface for ingestion operations.
type IngestHandlers interface {
	Ingest(ctx context.Context, input *handlers.IngestInput) (*handlers.IngestOutput, error)
}

// JobHandlers defines the interface for job read operations.
type JobHandlers interface {
	ListJobs(ctx context.Context, input *handlers.ListJobsInput) (*handlers.ListJobsOutput, error)
	GetJob(ctx context.Context, input *handlers.GetJobInput) (*handlers.GetJobOutput, error)
}

// ScoringHandlers defines the interface for scoring operations.
type ScoringHandlers interface {
	Rescore(ctx context.Context, input *handlers.RescoreInput) (*handlers.OutcomeOutput, error)
	ManualJD(ctx context.Context, input *handlers.ManualJDInput) (*handlers.OutcomeOutput, error)
	AutoPilot(ctx context.Context, input *handlers.AutoPilotInput) (*handlers.AutoPilotOutput, error)
	ScorePending(ctx context.Context, input *handlers.ScorePendingInput) (*handlers.ScorePendingOutput, error)
}

// EvidenceHandlers defines the interface for evidence maintenance operations.
type EvidenceHandlers interface {
	RebuildArchived(ctx context.Context, input *handlers.RebuildArchivedInput) (*handlers.RebuildArchivedOutput, error)
	GapReport(ctx context.Context, input *handlers.GapReportInput) (*handlers.GapReportOutput, error)
}

// PackHandlers defines the interface for application pack operations.
type PackHandlers interface {
	GetPack(ctx context.Context, input *handlers.GetPackInput) (*handlers.PackViewOutput, error)
	GeneratePack(ctx context.Context, input *handlers.GeneratePackInput) (*handlers.PackViewOutput, error)
	ReviewPack(ctx context.Context, input *handlers.ReviewPackInput) (*handlers.PackViewOutput, error)
	ApprovePack(ctx context.Context, input *handlers.ApprovePackInput) (*handlers.PackViewOutput, error)
	RevertPack(ctx context.Context, input *handlers.RevertPackInput) (*handlers.PackViewOutput, error)
	ExportPack(ctx context.Context, input *handlers.ExportPackInput) (*handlers.ExportPackOutput, error)
}

// TargetHandlers defines the interface for target configuration.
type TargetHandlers interface {
	UpsertTarget(ctx context.Context, input *handlers.UpsertTargetInput) (*handlers.TargetOutput, error)
	ListTargets(ctx context.Context, input *struct{}) (*handlers.ListTargetsOutput, error)
}

// ProfileHandlers defines the interface for profile management.
type ProfileHandlers interface {
	UpsertProfile(ctx context.Context, input *handlers.UpsertProfileInput) (*handlers.ProfileOutput, error)
	ListProfiles(ctx context.Context, input *struct{}) (*handlers.ListProfilesOutput, error)
	SetPreference(ctx context.Context, input *handlers.SetPreferenceInput) (*handlers.SetPreferenceOutput, error)
}

// ContactHandlers defines the interface for contact and touchpoint operations.
type ContactHandlers interface {
	ListContacts(ctx context.Context, input *handlers.ListContactsInput) (*handlers.ListContactsOutput, error)
	SaveContact(ctx context.Context, input *handlers.SaveContactInput) (*handlers.ContactOutput, error)
	AddTouchpoint(ctx context.Context, input *handlers.AddTouchpointInput) (*handlers.TouchpointOutput, error)
}

// Handlers aggregates all handler interfaces for route registration.
// For the main server, pass real handler implementations.
// For OpenAPI generation, pass stub implementations.
type Handlers struct {
	// Health and build info
	Healthz func(ctx context.Context, input *struct{}) (*handlers.HealthzOutput, error)
	Version func(ctx context.Context, input *struct{}) (*handlers.VersionOutput, error)

	Ingest   IngestHandlers
	Job      JobHandlers
	Scoring  ScoringHandlers
	Evidence EvidenceHandlers
	Pack     PackHandlers
	Target   TargetHandlers
	Profile  ProfileHandlers
	Contact  ContactHandlers
}
