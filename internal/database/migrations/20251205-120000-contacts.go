package migrations

func init() {
	Register(Migration{
		Timestamp:   "20251205-120000",
		Description: "Contacts and outreach touchpoints",
		Up: []string{
			// Contacts - potential-contact names surfaced during scoring plus
			// operator-added outreach handles. Handles may be stored encrypted.
			`CREATE TABLE IF NOT EXISTS contacts (
				id TEXT PRIMARY KEY,
				job_key TEXT NOT NULL,
				name TEXT NOT NULL,
				title TEXT,
				handle TEXT,
				source TEXT,
				created_at INTEGER NOT NULL,
				updated_at INTEGER NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_contacts_job_key ON contacts(job_key)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_contacts_job_name ON contacts(job_key, name)`,

			`CREATE TABLE IF NOT EXISTS contact_touchpoints (
				id TEXT PRIMARY KEY,
				contact_id TEXT NOT NULL REFERENCES contacts(id) ON DELETE CASCADE,
				job_key TEXT NOT NULL,
				channel TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'DRAFT',
				note TEXT,
				created_at INTEGER NOT NULL,
				updated_at INTEGER NOT NULL
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_touchpoints_unique ON contact_touchpoints(contact_id, job_key, channel)`,
		},
	})
}
