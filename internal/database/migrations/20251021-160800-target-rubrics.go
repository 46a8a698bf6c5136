package migrations

func init() {
	Register(Migration{
		Timestamp:   "20251021-160800",
		Description: "Target reject keywords and rubric profiles",
		Up: []string{
			`ALTER TABLE targets ADD COLUMN reject_keywords_json TEXT NOT NULL DEFAULT '[]'`,
			`ALTER TABLE targets ADD COLUMN rubric_profile TEXT NOT NULL DEFAULT 'auto'`,
		},
	})
}
