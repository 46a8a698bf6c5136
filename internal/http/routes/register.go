package routes

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/jobops/jobops-api/internal/http/mw"
)

// Register registers all API routes with the given Huma API instance.
// Pass real handler implementations for the main server, or stub implementations
// for OpenAPI generation. Webhook receivers (/ingest/whatsapp/vonage,
// /ingest/webhook/relay) are raw chi handlers mounted in main, not here:
// they verify signatures against the raw request body.
func Register(api huma.API, h *Handlers) {
	// --- Health ---
	mw.HiddenGet(api, "/healthz", h.Healthz)
	mw.Get(api, "/version", h.Version,
		mw.WithTags("Health"),
		mw.WithSummary("Build information"),
		mw.WithOperationID("getVersion"))

	// --- Ingest ---
	mw.Post(api, "/ingest", h.Ingest.Ingest,
		mw.WithTags("Ingest"),
		mw.WithSummary("Ingest job URLs"),
		mw.WithDescription("Accepts raw URLs or email text and creates or refreshes job records. URLs found in email_text are used when raw_urls is empty."),
		mw.WithOperationID("ingest"))

	// --- Jobs ---
	mw.Get(api, "/jobs", h.Job.ListJobs,
		mw.WithTags("Jobs"),
		mw.WithSummary("List jobs"),
		mw.WithOperationID("listJobs"))
	mw.Get(api, "/jobs/{job_key}", h.Job.GetJob,
		mw.WithTags("Jobs"),
		mw.WithSummary("Get job details"),
		mw.WithDescription("Returns the full job record with evidence rows and the latest scoring run."),
		mw.WithOperationID("getJob"))

	// --- Scoring ---
	mw.Post(api, "/jobs/{job_key}/rescore", h.Scoring.Rescore,
		mw.WithTags("Scoring"),
		mw.WithSummary("Rescore a job"),
		mw.WithOperationID("rescoreJob"))
	mw.Post(api, "/jobs/{job_key}/manual-jd", h.Scoring.ManualJD,
		mw.WithTags("Scoring"),
		mw.WithSummary("Paste a job description manually"),
		mw.WithDescription("Stores the pasted text as the job description and rescores immediately."),
		mw.WithOperationID("manualJD"))
	mw.Post(api, "/jobs/{job_key}/auto-pilot", h.Scoring.AutoPilot,
		mw.WithTags("Scoring"),
		mw.WithSummary("Rescore and generate a pack in one call"),
		mw.WithOperationID("autoPilot"))
	mw.Post(api, "/score-pending", h.Scoring.ScorePending,
		mw.WithTags("Scoring"),
		mw.WithSummary("Batch rescore pending jobs"),
		mw.WithDescription("Rescores jobs in the given statuses, oldest updated_at first."),
		mw.WithOperationID("scorePending"))

	// --- Evidence ---
	mw.Post(api, "/jobs/evidence/rebuild-archived", h.Evidence.RebuildArchived,
		mw.WithTags("Evidence"),
		mw.WithSummary("Rebuild evidence for archived jobs"),
		mw.WithOperationID("rebuildArchivedEvidence"))
	mw.Get(api, "/jobs/evidence/gap-report", h.Evidence.GapReport,
		mw.WithTags("Evidence"),
		mw.WithSummary("Report most-missed rubric dimensions"),
		mw.WithOperationID("evidenceGapReport"))

	// --- Application packs ---
	mw.Get(api, "/jobs/{job_key}/application-pack", h.Pack.GetPack,
		mw.WithTags("Packs"),
		mw.WithSummary("Get application pack"),
		mw.WithOperationID("getPack"))
	mw.Post(api, "/jobs/{job_key}/application-pack/generate", h.Pack.GeneratePack,
		mw.WithTags("Packs"),
		mw.WithSummary("Generate application pack"),
		mw.WithOperationID("generatePack"))
	mw.Post(api, "/jobs/{job_key}/application-pack/review", h.Pack.ReviewPack,
		mw.WithTags("Packs"),
		mw.WithSummary("Run pack quality gates"),
		mw.WithOperationID("reviewPack"))
	mw.Post(api, "/jobs/{job_key}/application-pack/approve", h.Pack.ApprovePack,
		mw.WithTags("Packs"),
		mw.WithSummary("Approve application pack"),
		mw.WithOperationID("approvePack"))
	mw.Post(api, "/jobs/{job_key}/application-pack/revert", h.Pack.RevertPack,
		mw.WithTags("Packs"),
		mw.WithSummary("Revert pack to an earlier version"),
		mw.WithOperationID("revertPack"))
	mw.Post(api, "/jobs/{job_key}/application-pack/export", h.Pack.ExportPack,
		mw.WithTags("Packs"),
		mw.WithSummary("Export application pack"),
		mw.WithDescription("Exports the approved pack as Reactive Resume JSON or a rendered PDF."),
		mw.WithOperationID("exportPack"))

	// --- Targets ---
	mw.Put(api, "/targets", h.Target.UpsertTarget,
		mw.WithTags("Targets"),
		mw.WithSummary("Upsert target"),
		mw.WithOperationID("upsertTarget"))
	mw.Get(api, "/targets", h.Target.ListTargets,
		mw.WithTags("Targets"),
		mw.WithSummary("List targets"),
		mw.WithOperationID("listTargets"))

	// --- Profiles ---
	mw.Put(api, "/profiles", h.Profile.UpsertProfile,
		mw.WithTags("Profiles"),
		mw.WithSummary("Upsert profile"),
		mw.WithOperationID("upsertProfile"))
	mw.Get(api, "/profiles", h.Profile.ListProfiles,
		mw.WithTags("Profiles"),
		mw.WithSummary("List profiles"),
		mw.WithOperationID("listProfiles"))
	mw.Put(api, "/jobs/{job_key}/profile-preference", h.Profile.SetPreference,
		mw.WithTags("Profiles"),
		mw.WithSummary("Pin a profile to a job"),
		mw.WithOperationID("setProfilePreference"))

	// --- Contacts ---
	mw.Get(api, "/jobs/{job_key}/contacts", h.Contact.ListContacts,
		mw.WithTags("Contacts"),
		mw.WithSummary("List contacts for a job"),
		mw.WithOperationID("listContacts"))
	mw.Post(api, "/jobs/{job_key}/contacts", h.Contact.SaveContact,
		mw.WithTags("Contacts"),
		mw.WithSummary("Add a contact"),
		mw.WithOperationID("saveContact"))
	mw.Post(api, "/jobs/{job_key}/contacts/{contact_id}/touchpoints", h.Contact.AddTouchpoint,
		mw.WithTags("Contacts"),
		mw.WithSummary("Record an outreach touchpoint"),
		mw.WithOperationID("addTouchpoint"))
}
