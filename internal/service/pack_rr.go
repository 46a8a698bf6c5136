package service

import (
	"fmt"

	"github.com/jobops/jobops-api/internal/models"
)

// rrTemplateID is the downstream renderer template every export requests.
const rrTemplateID = "onyx"

// buildRRExport assembles the versioned export object for the downstream
// resume service and embeds its own validation verdicts in the metadata, so a
// stored payload carries the evidence of whether it was importable.
func buildRRExport(pack *models.Pack, job *models.Job, profile *models.ResumeProfile, versionNo int) models.RRExport {
	rr := models.RRExport{
		Metadata: models.RRMetadata{
			Source:        models.RRSource,
			ContractID:    models.RRContractID,
			SchemaVersion: models.RRSchemaVersion,
			Version:       versionNo,
			ExportedAt:    models.NowMS(),
			TemplateID:    rrTemplateID,
			Renderer:      models.RRRenderer,
		},
		Basics: models.RRBasics{
			Name:     profile.Data.Basics.Name,
			Email:    profile.Data.Basics.Email,
			Phone:    profile.Data.Basics.Phone,
			Location: profile.Data.Basics.Location,
			Summary:  pack.Summary,
		},
		Sections: models.RRSections{
			Experience: rrExperience(profile.Data.Experience),
			Skills:     rrSkills(profile.Data.Skills),
			Highlights: rrHighlights(pack.Bullets),
		},
		JobContext: models.RRJobContext{
			JobKey:    job.JobKey,
			RoleTitle: job.RoleTitle,
			Company:   job.Company,
			JobURL:    job.JobURL,
		},
	}
	contractErrs, importErrs := ValidateRRExport(rr)
	rr.Metadata.ContractErrors = contractErrs
	rr.Metadata.ContractValid = len(contractErrs) == 0
	rr.Metadata.ImportErrors = importErrs
	rr.Metadata.ImportReady = rr.Metadata.ContractValid && len(importErrs) == 0
	return rr
}

// ValidateRRExport checks an export payload against the pinned contract and
// the downstream import requirements. Freshly built exports always pass the
// contract half; the checks exist for stored payloads replayed after a revert
// or an import from an older schema.
func ValidateRRExport(rr models.RRExport) (contractErrs, importErrs []string) {
	if rr.Metadata.ContractID != models.RRContractID {
		contractErrs = append(contractErrs, fmt.Sprintf("contract_id %q, want %q", rr.Metadata.ContractID, models.RRContractID))
	}
	if rr.Metadata.SchemaVersion != models.RRSchemaVersion {
		contractErrs = append(contractErrs, fmt.Sprintf("schema_version %d, want %d", rr.Metadata.SchemaVersion, models.RRSchemaVersion))
	}
	if rr.Metadata.Source != models.RRSource {
		contractErrs = append(contractErrs, fmt.Sprintf("source %q, want %q", rr.Metadata.Source, models.RRSource))
	}
	if rr.Metadata.Renderer != models.RRRenderer {
		contractErrs = append(contractErrs, fmt.Sprintf("renderer %q, want %q", rr.Metadata.Renderer, models.RRRenderer))
	}

	if rr.Basics.Name == "" {
		importErrs = append(importErrs, "basics.name is empty")
	}
	if rr.Sections.Experience == nil {
		importErrs = append(importErrs, "sections.experience is null")
	}
	if rr.Sections.Skills == nil {
		importErrs = append(importErrs, "sections.skills is null")
	}
	if rr.Sections.Highlights == nil {
		importErrs = append(importErrs, "sections.highlights is null")
	}
	for i, h := range rr.Sections.Highlights {
		if h.Text == "" {
			importErrs = append(importErrs, fmt.Sprintf("highlights[%d].text is empty", i))
		}
	}
	if rr.JobContext.JobKey == "" {
		importErrs = append(importErrs, "job_context.job_key is empty")
	}
	return contractErrs, importErrs
}

// The section builders never return nil slices; the downstream importer
// rejects null arrays.

func rrExperience(items []models.ExperienceItem) []models.RRExperience {
	out := make([]models.RRExperience, 0, len(items))
	for _, item := range items {
		bullets := item.Bullets
		if bullets == nil {
			bullets = []string{}
		}
		out = append(out, models.RRExperience{
			Company: item.Company,
			Role:    item.Role,
			Period:  item.Period,
			Bullets: bullets,
		})
	}
	return out
}

func rrSkills(skills []string) []string {
	if skills == nil {
		return []string{}
	}
	return skills
}

func rrHighlights(bullets []string) []models.RRHighlight {
	out := make([]models.RRHighlight, 0, len(bullets))
	for _, b := range bullets {
		out = append(out, models.RRHighlight{Text: b})
	}
	return out
}
