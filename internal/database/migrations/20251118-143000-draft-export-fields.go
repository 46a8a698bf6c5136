package migrations

func init() {
	Register(Migration{
		Timestamp:   "20251118-143000",
		Description: "External resume push and PDF export fields",
		Up: []string{
			`ALTER TABLE resume_drafts ADD COLUMN rr_resume_id TEXT`,
			`ALTER TABLE resume_drafts ADD COLUMN rr_push_status TEXT`,
			`ALTER TABLE resume_drafts ADD COLUMN rr_push_error TEXT`,
			`ALTER TABLE resume_drafts ADD COLUMN pdf_url TEXT`,
			`ALTER TABLE resume_drafts ADD COLUMN pdf_status TEXT`,
			`ALTER TABLE resume_drafts ADD COLUMN pdf_error TEXT`,
		},
	})
}
