package migrations

func init() {
	Register(Migration{
		Timestamp:   "20250918-114500",
		Description: "Scoring run telemetry",
		Up: []string{
			// Scoring runs - append-only telemetry, one row per pipeline run.
			`CREATE TABLE IF NOT EXISTS scoring_runs (
				id TEXT PRIMARY KEY,
				job_key TEXT NOT NULL,
				source TEXT,
				final_status TEXT,
				heuristic_passed INTEGER NOT NULL DEFAULT 0,
				heuristic_reasons_json TEXT NOT NULL DEFAULT '[]',
				stage_metrics_json TEXT NOT NULL DEFAULT '{}',
				ai_model TEXT,
				ai_tokens_in INTEGER NOT NULL DEFAULT 0,
				ai_tokens_out INTEGER NOT NULL DEFAULT 0,
				ai_tokens_total INTEGER NOT NULL DEFAULT 0,
				ai_latency_ms INTEGER NOT NULL DEFAULT 0,
				total_latency_ms INTEGER NOT NULL DEFAULT 0,
				final_score INTEGER,
				reject_triggered INTEGER NOT NULL DEFAULT 0,
				created_at INTEGER NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_scoring_runs_job_key ON scoring_runs(job_key, created_at)`,
		},
	})
}
