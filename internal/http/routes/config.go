// Package routes provides shared route registration for the Jobops API.
// This allows both the main server and the OpenAPI generator to use
// the same route definitions, ensuring the spec is always in sync.
package routes

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/jobops/jobops-api/internal/version"
)

// NewHumaConfig creates the shared Huma configuration for the API.
// This includes API metadata and tag definitions.
func NewHumaConfig(baseURL string) huma.Config {
	cfg := huma.DefaultConfig("Jobops API", version.Get().Short())
	cfg.Info.Description = "Job-opportunity triage pipeline: URL ingestion, JD resolution, LLM scoring, evidence matching, and application pack generation."

	// Disable $schema field in responses - it conflicts with the envelope shape
	cfg.CreateHooks = nil

	if baseURL != "" {
		cfg.Servers = []*huma.Server{
			{URL: baseURL, Description: "API Server"},
		}
	}

	// Define OpenAPI tags with display names for documentation
	cfg.Tags = []*huma.Tag{
		{Name: "Ingest", Description: "URL and email ingestion endpoints", Extensions: map[string]any{"x-displayName": "Ingest"}},
		{Name: "Jobs", Description: "Job listing and detail retrieval", Extensions: map[string]any{"x-displayName": "Jobs"}},
		{Name: "Scoring", Description: "Rescore, manual JD, auto-pilot, and batch scoring", Extensions: map[string]any{"x-displayName": "Scoring"}},
		{Name: "Evidence", Description: "Evidence rebuilds and gap reporting", Extensions: map[string]any{"x-displayName": "Evidence"}},
		{Name: "Packs", Description: "Application pack lifecycle and export", Extensions: map[string]any{"x-displayName": "Packs"}},
		{Name: "Targets", Description: "Scoring target configuration", Extensions: map[string]any{"x-displayName": "Targets"}},
		{Name: "Profiles", Description: "Candidate profile management", Extensions: map[string]any{"x-displayName": "Profiles"}},
		{Name: "Contacts", Description: "Potential contacts and outreach touchpoints", Extensions: map[string]any{"x-displayName": "Contacts"}},
		{Name: "Health", Description: "System health and build information", Extensions: map[string]any{"x-displayName": "Health"}},
	}

	return cfg
}
