package migrations

func init() {
	Register(Migration{
		Timestamp:   "20260110-154100",
		Description: "Auto-pilot flag and inbound message dedupe",
		Up: []string{
			`ALTER TABLE jobs ADD COLUMN auto_pilot INTEGER NOT NULL DEFAULT 0`,
			`ALTER TABLE events ADD COLUMN message_id TEXT`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_events_message_id ON events(message_id) WHERE message_id IS NOT NULL`,
		},
	})
}
