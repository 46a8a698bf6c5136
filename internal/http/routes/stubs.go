package routes

import (
	"context"

	"github.com/jobops/jobops-api/internal/http/handlers"
)

// StubHandlers returns a Handlers instance with stub implementations.
// All handlers return nil responses - these are only used for OpenAPI generation
// where Huma extracts type information from function signatures.
func StubHandlers() *Handlers {
	return &Handlers{
		Healthz: stubHealthz,
		Version: stubVersion,

		Ingest:   &stubIngestHandlers{},
		Job:      &stubJobHandlers{},
		Scoring:  &stubScoringHandlers{},
		Evidence: &stubEvidenceHandlers{},
		Pack:     &stubPackHandlers{},
		Target:   &stubTargetHandlers{},
		Profile:  &stubProfileHandlers{},
		Contact:  &stubContactHandlers{},
	}
}

func stubHealthz(_ context.Context, _ *struct{}) (*handlers.HealthzOutput, error) {
	return nil, nil
}

func stubVersion(_ context.Context, _ *struct{}) (*handlers.VersionOutput, error) {
	return nil, nil
}

// --- Ingest handlers stub ---

type stubIngestHandlers struct{}

func (s *stubIngestHandlers) Ingest(_ context.Context, _ *handlers.IngestInput) (*handlers.IngestOutput, error) {
	return nil, nil
}

// --- Job handlers stub ---

type stubJobHandlers struct{}

func (s *stubJobHandlers) ListJobs(_ context.Context, _ *handlers.ListJobsInput) (*handlers.ListJobsOutput, error) {
	return nil, nil
}

func (s *stubJobHandlers) GetJob(_ context.Context, _ *handlers.GetJobInput) (*handlers.GetJobOutput, error) {
	return nil, nil
}

// --- Scoring handlers stub ---

type stubScoringHandlers struct{}

func (s *stubScoringHandlers) Rescore(_ context.Context, _ *handlers.RescoreInput) (*handlers.OutcomeOutput, error) {
	return nil, nil
}

func (s *stubScoringHandlers) ManualJD(_ context.Context, _ *handlers.ManualJDInput) (*handlers.OutcomeOutput, error) {
	return nil, nil
}

func (s *stubScoringHandlers) AutoPilot(_ context.Context, _ *handlers.AutoPilotInput) (*handlers.AutoPilotOutput, error) {
	return nil, nil
}

func (s *stubScoringHandlers) ScorePending(_ context.Context, _ *handlers.ScorePendingInput) (*handlers.ScorePendingOutput, error) {
	return nil, nil
}

// --- Evidence handlers stub ---

type stubEvidenceHandlers struct{}

func (s *stubEvidenceHandlers) RebuildArchived(_ context.Context, _ *handlers.RebuildArchivedInput) (*handlers.RebuildArchivedOutput, error) {
	return nil, nil
}

func (s *stubEvidenceHandlers) GapReport(_ context.Context, _ *handlers.GapReportInput) (*handlers.GapReportOutput, error) {
	return nil, nil
}

// --- Pack handlers stub ---

type stubPackHandlers struct{}

func (s *stubPackHandlers) GetPack(_ context.Context, _ *handlers.GetPackInput) (*handlers.PackViewOutput, error) {
	return nil, nil
}

func (s *stubPackHandlers) GeneratePack(_ context.Context, _ *handlers.GeneratePackInput) (*handlers.PackViewOutput, error) {
	return nil, nil
}

func (s *stubPackHandlers) ReviewPack(_ context.Context, _ *handlers.ReviewPackInput) (*handlers.PackViewOutput, error) {
	return nil, nil
}

func (s *stubPackHandlers) ApprovePack(_ context.Context, _ *handlers.ApprovePackInput) (*handlers.PackViewOutput, error) {
	return nil, nil
}

func (s *stubPackHandlers) RevertPack(_ context.Context, _ *handlers.RevertPackInput) (*handlers.PackViewOutput, error) {
	return nil, nil
}

func (s *stubPackHandlers) ExportPack(_ context.Context, _ *handlers.ExportPackInput) (*handlers.ExportPackOutput, error) {
	return nil, nil
}

// --- Target handlers stub ---

type stubTargetHandlers struct{}

func (s *stubTargetHandlers) UpsertTarget(_ context.Context, _ *handlers.UpsertTargetInput) (*handlers.TargetOutput, error) {
	return nil, nil
}

func (s *stubTargetHandlers) ListTargets(_ context.Context, _ *struct{}) (*handlers.ListTargetsOutput, error) {
	return nil, nil
}

// --- Profile handlers stub ---

type stubProfileHandlers struct{}

func (s *stubProfileHandlers) UpsertProfile(_ context.Context, _ *handlers.UpsertProfileInput) (*handlers.ProfileOutput, error) {
	return nil, nil
}

func (s *stubProfileHandlers) ListProfiles(_ context.Context, _ *struct{}) (*handlers.ListProfilesOutput, error) {
	return nil, nil
}

func (s *stubProfileHandlers) SetPreference(_ context.Context, _ *handlers.SetPreferenceInput) (*handlers.SetPreferenceOutput, error) {
	return nil, nil
}

// --- Contact handlers stub ---

type stubContactHandlers struct{}

func (s *stubContactHandlers) ListContacts(_ context.Context, _ *handlers.ListContactsInput) (*handlers.ListContactsOutput, error) {
	return nil, nil
}

func (s *stubContactHandlers) SaveContact(_ context.Context, _ *handlers.SaveContactInput) (*handlers.ContactOutput, error) {
	return nil, nil
}

func (s *stubContactHandlers) AddTouchpoint(_ context.Context, _ *handlers.AddTouchpointInput) (*handlers.TouchpointOutput, error) {
	return nil, nil
}
