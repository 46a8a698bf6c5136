package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jobops/jobops-api/internal/models"
	"github.com/jobops/jobops-api/internal/repository"
)

// ProfilesHandler serves resume profiles and per-job profile preferences.
type ProfilesHandler struct {
	profiles repository.ProfileRepository
	jobs     repository.JobRepository
	prefs    repository.PreferenceRepository
	features repository.Features
}

// NewProfilesHandler creates a profiles handler.
func NewProfilesHandler(profiles repository.ProfileRepository, jobs repository.JobRepository, prefs repository.PreferenceRepository, features repository.Features) *ProfilesHandler {
	return &ProfilesHandler{profiles: profiles, jobs: jobs, prefs: prefs, features: features}
}

// UpsertProfileInput is a full resume profile, keyed by name.
type UpsertProfileInput struct {
	Body struct {
		ID        string             `json:"id,omitempty" doc:"Existing profile id, omit to key by name"`
		Name      string             `json:"name" doc:"Unique profile name, e.g. pm-growth"`
		Profile   models.ProfileData `json:"profile" doc:"Resume content: basics, summary, experience, skills"`
		IsPrimary bool               `json:"is_primary,omitempty" doc:"Make this the default profile; the first profile saved is primary regardless"`
	}
}

// ProfileOutput wraps one saved profile.
type ProfileOutput struct {
	Body struct {
		OK   bool                  `json:"ok"`
		Data *models.ResumeProfile `json:"data"`
	}
}

// UpsertProfile creates or replaces a resume profile by name.
func (h *ProfilesHandler) UpsertProfile(ctx context.Context, input *UpsertProfileInput) (*ProfileOutput, error) {
	name := strings.TrimSpace(input.Body.Name)
	if name == "" {
		return nil, apiError(http.StatusBadRequest, KindInvalidInput, "name is required")
	}
	profile := &models.ResumeProfile{
		ID:        input.Body.ID,
		Name:      name,
		Data:      input.Body.Profile,
		IsPrimary: input.Body.IsPrimary,
	}
	if err := h.profiles.Upsert(ctx, profile); err != nil {
		return nil, serviceError(err)
	}
	out := &ProfileOutput{}
	out.Body.OK = true
	out.Body.Data = profile
	return out, nil
}

// ListProfilesOutput is every stored profile.
type ListProfilesOutput struct {
	Body struct {
		OK   bool `json:"ok"`
		Data struct {
			Profiles []*models.ResumeProfile `json:"profiles"`
		} `json:"data"`
	}
}

// ListProfiles returns all resume profiles.
func (h *ProfilesHandler) ListProfiles(ctx context.Context, input *struct{}) (*ListProfilesOutput, error) {
	profiles, err := h.profiles.List(ctx)
	if err != nil {
		return nil, serviceError(err)
	}
	out := &ListProfilesOutput{}
	out.Body.OK = true
	out.Body.Data.Profiles = profiles
	if profiles == nil {
		out.Body.Data.Profiles = []*models.ResumeProfile{}
	}
	return out, nil
}

// SetPreferenceInput pins a profile to a job.
type SetPreferenceInput struct {
	JobKey string `path:"job_key"`
	Body   struct {
		ProfileID string `json:"profile_id" doc:"Profile evidence and packs for this job should use"`
	}
}

// SetPreferenceOutput confirms the stored preference.
type SetPreferenceOutput struct {
	Body struct {
		OK   bool `json:"ok"`
		Data struct {
			JobKey    string `json:"job_key"`
			ProfileID string `json:"profile_id"`
		} `json:"data"`
	}
}

// SetPreference pins a resume profile to one job, overriding the primary.
func (h *ProfilesHandler) SetPreference(ctx context.Context, input *SetPreferenceInput) (*SetPreferenceOutput, error) {
	if !h.features.Preferences {
		return nil, apiError(http.StatusBadRequest, KindSchemaDisabled, "job_profile_preferences: schema feature disabled")
	}
	if input.Body.ProfileID == "" {
		return nil, apiError(http.StatusBadRequest, KindInvalidInput, "profile_id is required")
	}
	job, err := h.jobs.GetByKey(ctx, input.JobKey)
	if err != nil {
		return nil, serviceError(err)
	}
	if job == nil {
		return nil, apiError(http.StatusNotFound, KindNotFound, fmt.Sprintf("job %s not found", input.JobKey))
	}
	profile, err := h.profiles.GetByID(ctx, input.Body.ProfileID)
	if err != nil {
		return nil, serviceError(err)
	}
	if profile == nil {
		return nil, apiError(http.StatusNotFound, KindNotFound, fmt.Sprintf("profile %s not found", input.Body.ProfileID))
	}
	if err := h.prefs.Set(ctx, input.JobKey, input.Body.ProfileID); err != nil {
		return nil, serviceError(err)
	}
	out := &SetPreferenceOutput{}
	out.Body.OK = true
	out.Body.Data.JobKey = input.JobKey
	out.Body.Data.ProfileID = input.Body.ProfileID
	return out, nil
}
