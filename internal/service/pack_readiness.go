package service

import (
	"fmt"

	"github.com/jobops/jobops-api/internal/models"
)

// ReadinessCheck is one item of the PDF gate.
type ReadinessCheck struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Detail  string `json:"detail,omitempty"`
	Warning bool   `json:"warning,omitempty"`
}

// Readiness is the PDF gate verdict for a draft. In soft one-page mode every
// failing check except rr_import_ready is downgraded to a warning, so Ready
// hinges on the export being importable at all.
type Readiness struct {
	Ready    bool             `json:"ready"`
	Checks   []ReadinessCheck `json:"checks"`
	Failures []string         `json:"failures,omitempty"`
	Warnings []string         `json:"warnings,omitempty"`
}

func (s *PackService) evaluateReadiness(job *models.Job, pack *models.Pack, ats *models.ATSResult, rr *models.RRExport) Readiness {
	checks := []ReadinessCheck{
		{Name: "role_title", OK: job.RoleTitle != "", Detail: "job has a role title"},
		{Name: "company", OK: job.Company != "", Detail: "job has a company"},
		{Name: "jd_usable", OK: job.JDTextClean != "" && job.JDSource != models.JDSourceNone,
			Detail: fmt.Sprintf("jd_source=%s, %d chars", job.JDSource, len(job.JDTextClean))},
		{Name: "summary_length", OK: len(pack.Summary) >= s.cfg.PackSummaryMinChars,
			Detail: fmt.Sprintf("%d chars, min %d", len(pack.Summary), s.cfg.PackSummaryMinChars)},
		{Name: "bullet_count", OK: len(pack.Bullets) >= s.cfg.PackMinBullets,
			Detail: fmt.Sprintf("%d bullets, min %d", len(pack.Bullets), s.cfg.PackMinBullets)},
		{Name: "ats_score", OK: ats.Score >= s.cfg.PackMinATS,
			Detail: fmt.Sprintf("%d, min %d", ats.Score, s.cfg.PackMinATS)},
		{Name: "must_coverage", OK: int(ats.MustCoveragePct) >= s.cfg.PackMinMustPct,
			Detail: fmt.Sprintf("%.0f%%, min %d%%", ats.MustCoveragePct, s.cfg.PackMinMustPct)},
		{Name: "rr_import_ready", OK: rr != nil && rr.Metadata.ImportReady, Detail: "export passes import checks"},
	}

	soft := pack.OnePageMode != models.OnePageHard
	out := Readiness{Ready: true}
	for _, check := range checks {
		if !check.OK && soft && check.Name != "rr_import_ready" {
			check.Warning = true
			out.Warnings = append(out.Warnings, check.Name)
		}
		if !check.OK && !check.Warning {
			out.Ready = false
			out.Failures = append(out.Failures, check.Name)
		}
		out.Checks = append(out.Checks, check)
	}
	return out
}
