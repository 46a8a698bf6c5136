package migrations

func init() {
	Register(Migration{
		Timestamp:   "20251103-101200",
		Description: "Resume drafts, version history, profile preferences",
		Up: []string{
			// Drafts - one current application pack per (job, profile).
			`CREATE TABLE IF NOT EXISTS resume_drafts (
				id TEXT PRIMARY KEY,
				job_key TEXT NOT NULL,
				profile_id TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'CONTENT_REVIEW_REQUIRED',
				pack_json TEXT NOT NULL DEFAULT '{}',
				ats_json TEXT NOT NULL DEFAULT '{}',
				rr_export_json TEXT,
				version_no INTEGER NOT NULL DEFAULT 0,
				created_at INTEGER NOT NULL,
				updated_at INTEGER NOT NULL,
				approved_at INTEGER
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_resume_drafts_job_profile ON resume_drafts(job_key, profile_id)`,

			// Versions - immutable snapshots, monotonic version_no per draft.
			`CREATE TABLE IF NOT EXISTS resume_draft_versions (
				id TEXT PRIMARY KEY,
				draft_id TEXT NOT NULL REFERENCES resume_drafts(id) ON DELETE CASCADE,
				version_no INTEGER NOT NULL,
				source_action TEXT NOT NULL,
				pack_json TEXT NOT NULL,
				ats_json TEXT NOT NULL DEFAULT '{}',
				rr_export_json TEXT,
				created_at INTEGER NOT NULL
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_draft_versions_unique ON resume_draft_versions(draft_id, version_no)`,

			// Per-job profile override, resolved before the primary profile.
			`CREATE TABLE IF NOT EXISTS job_profile_preferences (
				job_key TEXT PRIMARY KEY,
				profile_id TEXT NOT NULL,
				updated_at INTEGER NOT NULL
			)`,
		},
	})
}
