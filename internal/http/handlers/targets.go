package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/jobops/jobops-api/internal/models"
	"github.com/jobops/jobops-api/internal/repository"
)

// TargetsHandler serves target definitions, the operator's search intents.
type TargetsHandler struct {
	targets repository.TargetRepository
}

// NewTargetsHandler creates a targets handler.
func NewTargetsHandler(targets repository.TargetRepository) *TargetsHandler {
	return &TargetsHandler{targets: targets}
}

// UpsertTargetInput is a full target definition, keyed by name.
type UpsertTargetInput struct {
	Body struct {
		ID             string   `json:"id,omitempty" doc:"Existing target id, omit to key by name"`
		Name           string   `json:"name" doc:"Unique target name"`
		PrimaryRole    string   `json:"primary_role" doc:"Role title the heuristic matches against"`
		SeniorityPref  string   `json:"seniority_pref,omitempty"`
		LocationPref   string   `json:"location_pref,omitempty"`
		MustKeywords   []string `json:"must_keywords,omitempty"`
		NiceKeywords   []string `json:"nice_keywords,omitempty"`
		RejectKeywords []string `json:"reject_keywords,omitempty" doc:"Hard rejects, a title hit parks the job immediately"`
		RubricProfile  string   `json:"rubric_profile,omitempty" doc:"auto, pm_v1, or target_generic_v1"`
		Active         *bool    `json:"active,omitempty" doc:"Defaults to true"`
	}
}

// TargetOutput wraps one saved target.
type TargetOutput struct {
	Body struct {
		OK   bool           `json:"ok"`
		Data *models.Target `json:"data"`
	}
}

// UpsertTarget creates or replaces a target by name.
func (h *TargetsHandler) UpsertTarget(ctx context.Context, input *UpsertTargetInput) (*TargetOutput, error) {
	name := strings.TrimSpace(input.Body.Name)
	if name == "" {
		return nil, apiError(http.StatusBadRequest, KindInvalidInput, "name is required")
	}
	if strings.TrimSpace(input.Body.PrimaryRole) == "" {
		return nil, apiError(http.StatusBadRequest, KindInvalidInput, "primary_role is required")
	}
	rubric := models.RubricProfile(input.Body.RubricProfile)
	switch rubric {
	case "", models.RubricAuto, models.RubricPMV1, models.RubricTargetGeneric:
	default:
		return nil, apiError(http.StatusBadRequest, KindInvalidInput, "rubric_profile must be auto, pm_v1, or target_generic_v1")
	}
	active := true
	if input.Body.Active != nil {
		active = *input.Body.Active
	}

	target := &models.Target{
		ID:             input.Body.ID,
		Name:           name,
		PrimaryRole:    strings.TrimSpace(input.Body.PrimaryRole),
		SeniorityPref:  input.Body.SeniorityPref,
		LocationPref:   input.Body.LocationPref,
		MustKeywords:   input.Body.MustKeywords,
		NiceKeywords:   input.Body.NiceKeywords,
		RejectKeywords: input.Body.RejectKeywords,
		RubricProfile:  rubric,
		Active:         active,
	}
	if err := h.targets.Upsert(ctx, target); err != nil {
		return nil, serviceError(err)
	}
	out := &TargetOutput{}
	out.Body.OK = true
	out.Body.Data = target
	return out, nil
}

// ListTargetsOutput is every stored target.
type ListTargetsOutput struct {
	Body struct {
		OK   bool `json:"ok"`
		Data struct {
			Targets []*models.Target `json:"targets"`
		} `json:"data"`
	}
}

// ListTargets returns all targets, active and not.
func (h *TargetsHandler) ListTargets(ctx context.Context, input *struct{}) (*ListTargetsOutput, error) {
	targets, err := h.targets.List(ctx)
	if err != nil {
		return nil, serviceError(err)
	}
	out := &ListTargetsOutput{}
	out.Body.OK = true
	out.Body.Data.Targets = targets
	if targets == nil {
		out.Body.Data.Targets = []*models.Target{}
	}
	return out, nil
}
