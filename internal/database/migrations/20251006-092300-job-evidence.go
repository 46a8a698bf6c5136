package migrations

func init() {
	Register(Migration{
		Timestamp:   "20251006-092300",
		Description: "Per-requirement evidence rows",
		Up: []string{
			`CREATE TABLE IF NOT EXISTS job_evidence (
				id TEXT PRIMARY KEY,
				job_key TEXT NOT NULL,
				requirement_type TEXT NOT NULL,
				requirement_text TEXT NOT NULL,
				matched INTEGER NOT NULL DEFAULT 0,
				evidence_source TEXT NOT NULL DEFAULT 'none',
				evidence_text TEXT,
				confidence_score INTEGER NOT NULL DEFAULT 0,
				notes TEXT,
				created_at INTEGER NOT NULL,
				updated_at INTEGER NOT NULL
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_job_evidence_unique ON job_evidence(job_key, requirement_text, requirement_type)`,
			`CREATE INDEX IF NOT EXISTS idx_job_evidence_job_key ON job_evidence(job_key)`,
		},
	})
}
