package migrations

func init() {
	Register(Migration{
		Timestamp:   "20250901-000000",
		Description: "Initial schema",
		Up: []string{
			// Jobs - one row per canonical job posting, keyed by job_key
			// (stable hash of source|job_id or the stripped URL).
			// All timestamps are epoch milliseconds.
			`CREATE TABLE IF NOT EXISTS jobs (
				job_key TEXT PRIMARY KEY,
				job_url TEXT NOT NULL,
				source_domain TEXT NOT NULL DEFAULT 'other',
				job_id TEXT,
				channel TEXT,
				company TEXT,
				role_title TEXT,
				location TEXT,
				work_mode TEXT,
				seniority TEXT,
				experience_years_min INTEGER,
				experience_years_max INTEGER,
				must_keywords_json TEXT NOT NULL DEFAULT '[]',
				nice_keywords_json TEXT NOT NULL DEFAULT '[]',
				reject_keywords_json TEXT NOT NULL DEFAULT '[]',
				skills_json TEXT NOT NULL DEFAULT '[]',
				jd_text_clean TEXT,
				jd_source TEXT NOT NULL DEFAULT 'none',
				fetch_status TEXT,
				fetch_debug_json TEXT,
				primary_target_id TEXT,
				score_must INTEGER,
				score_nice INTEGER,
				final_score INTEGER,
				reject_triggered INTEGER NOT NULL DEFAULT 0,
				reject_reasons_json TEXT NOT NULL DEFAULT '[]',
				reason_top_matches TEXT,
				potential_contacts_json TEXT NOT NULL DEFAULT '[]',
				status TEXT NOT NULL DEFAULT 'NEW',
				system_status TEXT,
				notes TEXT,
				created_at INTEGER NOT NULL,
				updated_at INTEGER NOT NULL,
				last_scored_at INTEGER,
				applied_at INTEGER,
				rejected_at INTEGER,
				archived_at INTEGER
			)`,
			`CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status)`,
			`CREATE INDEX IF NOT EXISTS idx_jobs_source_domain ON jobs(source_domain)`,
			`CREATE INDEX IF NOT EXISTS idx_jobs_updated_at ON jobs(updated_at)`,
			`CREATE INDEX IF NOT EXISTS idx_jobs_final_score ON jobs(final_score)`,

			// Targets - operator-defined role/keyword profiles jobs are scored against.
			`CREATE TABLE IF NOT EXISTS targets (
				id TEXT PRIMARY KEY,
				name TEXT UNIQUE NOT NULL,
				primary_role TEXT NOT NULL,
				seniority_pref TEXT,
				location_pref TEXT,
				must_keywords_json TEXT NOT NULL DEFAULT '[]',
				nice_keywords_json TEXT NOT NULL DEFAULT '[]',
				active INTEGER NOT NULL DEFAULT 1,
				created_at INTEGER NOT NULL,
				updated_at INTEGER NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_targets_active ON targets(active)`,

			// Resume profiles - versioned resume content used for evidence and packs.
			// Exactly one row has is_primary=1 whenever the table is non-empty.
			`CREATE TABLE IF NOT EXISTS resume_profiles (
				id TEXT PRIMARY KEY,
				name TEXT UNIQUE NOT NULL,
				profile_json TEXT NOT NULL,
				is_primary INTEGER NOT NULL DEFAULT 0,
				created_at INTEGER NOT NULL,
				updated_at INTEGER NOT NULL
			)`,

			// Events - append-only operational log (AI_FAILED, INGEST_FALLBACK, ...).
			`CREATE TABLE IF NOT EXISTS events (
				id TEXT PRIMARY KEY,
				kind TEXT NOT NULL,
				job_key TEXT,
				detail TEXT,
				created_at INTEGER NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind)`,
			`CREATE INDEX IF NOT EXISTS idx_events_job_key ON events(job_key)`,
		},
	})
}
