package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// Features describes which optional tables and columns the connected schema
// carries. Services consult it up front instead of inferring capabilities
// from failed statements, so older databases degrade with a clear error.
type Features struct {
	Evidence      bool // job_evidence table
	Preferences   bool // job_profile_preferences table
	DraftVersions bool // resume_draft_versions table
	ScoringRuns   bool // scoring_runs table
	Contacts      bool // contacts + contact_touchpoints tables
	Events        bool // events table

	RejectKeywords bool // targets.reject_keywords_json column
	RubricProfiles bool // targets.rubric_profile column
	DraftExport    bool // resume_drafts rr_push_status + pdf_status columns
}

// DetectFeatures inspects sqlite_master and table_info pragmas. Call it once
// after migrations run; the result is immutable for the process lifetime.
func DetectFeatures(ctx context.Context, db *sql.DB) (Features, error) {
	var f Features
	var err error

	if f.Evidence, err = tableExists(ctx, db, "job_evidence"); err != nil {
		return f, err
	}
	if f.Preferences, err = tableExists(ctx, db, "job_profile_preferences"); err != nil {
		return f, err
	}
	if f.DraftVersions, err = tableExists(ctx, db, "resume_draft_versions"); err != nil {
		return f, err
	}
	if f.ScoringRuns, err = tableExists(ctx, db, "scoring_runs"); err != nil {
		return f, err
	}
	if f.Events, err = tableExists(ctx, db, "events"); err != nil {
		return f, err
	}

	contacts, err := tableExists(ctx, db, "contacts")
	if err != nil {
		return f, err
	}
	touchpoints, err := tableExists(ctx, db, "contact_touchpoints")
	if err != nil {
		return f, err
	}
	f.Contacts = contacts && touchpoints

	targetCols, err := tableColumns(ctx, db, "targets")
	if err != nil {
		return f, err
	}
	f.RejectKeywords = targetCols["reject_keywords_json"]
	f.RubricProfiles = targetCols["rubric_profile"]

	draftCols, err := tableColumns(ctx, db, "resume_drafts")
	if err != nil {
		return f, err
	}
	f.DraftExport = draftCols["rr_push_status"] && draftCols["pdf_status"]

	return f, nil
}

func tableExists(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx,
		`SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?`, name,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", name, err)
	}
	return true, nil
}

func tableColumns(ctx context.Context, db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return nil, fmt.Errorf("failed to read columns for %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name, typ string
			notNull   int
			dflt      sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column for %s: %w", table, err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
