package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/jobops/jobops-api/internal/models"
)

const draftColumns = `id, job_key, profile_id, status, pack_json, ats_json,
	rr_export_json, version_no, rr_resume_id, rr_push_status, rr_push_error,
	pdf_url, pdf_status, pdf_error, created_at, updated_at, approved_at`

// SQLiteDraftRepository implements DraftRepository for SQLite.
type SQLiteDraftRepository struct {
	db *sql.DB
}

// NewSQLiteDraftRepository creates a new SQLite draft repository.
func NewSQLiteDraftRepository(db *sql.DB) *SQLiteDraftRepository {
	return &SQLiteDraftRepository{db: db}
}

func (r *SQLiteDraftRepository) GetByID(ctx context.Context, id string) (*models.ResumeDraft, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+draftColumns+` FROM resume_drafts WHERE id = ?`, id)
	return scanDraftRow(row)
}

func (r *SQLiteDraftRepository) GetByJobProfile(ctx context.Context, jobKey, profileID string) (*models.ResumeDraft, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+draftColumns+` FROM resume_drafts WHERE job_key = ? AND profile_id = ?`, jobKey, profileID)
	return scanDraftRow(row)
}

// Save upserts the current draft row. The (job_key, profile_id) pair is the
// stable identity; the id assigned on first insert survives later saves.
func (r *SQLiteDraftRepository) Save(ctx context.Context, draft *models.ResumeDraft) error {
	if draft.ID == "" {
		draft.ID = ulid.Make().String()
	}
	now := models.NowMS()
	if draft.CreatedAt == 0 {
		draft.CreatedAt = now
	}
	draft.UpdatedAt = now

	query := `
		INSERT INTO resume_drafts (` + draftColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_key, profile_id) DO UPDATE SET
			status = excluded.status,
			pack_json = excluded.pack_json,
			ats_json = excluded.ats_json,
			rr_export_json = excluded.rr_export_json,
			version_no = excluded.version_no,
			rr_resume_id = excluded.rr_resume_id,
			rr_push_status = excluded.rr_push_status,
			rr_push_error = excluded.rr_push_error,
			pdf_url = excluded.pdf_url,
			pdf_status = excluded.pdf_status,
			pdf_error = excluded.pdf_error,
			updated_at = excluded.updated_at,
			approved_at = excluded.approved_at
	`
	_, err := r.db.ExecContext(ctx, query,
		draft.ID,
		draft.JobKey,
		draft.ProfileID,
		string(draft.Status),
		draft.PackJSON,
		draft.ATSJSON,
		nullString(draft.RRExportJSON),
		draft.VersionNo,
		nullString(draft.RRResumeID),
		nullString(draft.RRPushStatus),
		nullString(draft.RRPushError),
		nullString(draft.PDFURL),
		nullString(draft.PDFStatus),
		nullString(draft.PDFError),
		draft.CreatedAt,
		draft.UpdatedAt,
		nullInt64Ptr(draft.ApprovedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}

	// The conflict path keeps the original id; reload it so callers never
	// hold a phantom.
	row := r.db.QueryRowContext(ctx,
		`SELECT id, created_at FROM resume_drafts WHERE job_key = ? AND profile_id = ?`,
		draft.JobKey, draft.ProfileID)
	if err := row.Scan(&draft.ID, &draft.CreatedAt); err != nil {
		return fmt.Errorf("failed to reload draft identity: %w", err)
	}
	return nil
}

// AppendVersion writes the next version snapshot inside a transaction.
// version_no is MAX(version_no)+1 per draft, making the history monotonic
// even with concurrent writers (the unique index backstops races).
func (r *SQLiteDraftRepository) AppendVersion(ctx context.Context, draftID, sourceAction, packJSON, atsJSON, rrExportJSON string) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	var next int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version_no), 0) + 1 FROM resume_draft_versions WHERE draft_id = ?`,
		draftID).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to compute next version: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO resume_draft_versions (id, draft_id, version_no, source_action, pack_json, ats_json, rr_export_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		ulid.Make().String(),
		draftID,
		next,
		sourceAction,
		packJSON,
		atsJSON,
		nullString(rrExportJSON),
		models.NowMS(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to append draft version: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE resume_drafts SET version_no = ? WHERE id = ?`, next, draftID); err != nil {
		return 0, fmt.Errorf("failed to bump draft version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return next, nil
}

func (r *SQLiteDraftRepository) GetVersion(ctx context.Context, draftID string, versionNo int) (*models.DraftVersion, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, draft_id, version_no, source_action, pack_json, ats_json, rr_export_json, created_at
		FROM resume_draft_versions
		WHERE draft_id = ? AND version_no = ?
	`, draftID, versionNo)
	v, err := scanDraftVersion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft version: %w", err)
	}
	return v, nil
}

func (r *SQLiteDraftRepository) ListVersions(ctx context.Context, draftID string) ([]*models.DraftVersion, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, draft_id, version_no, source_action, pack_json, ats_json, rr_export_json, created_at
		FROM resume_draft_versions
		WHERE draft_id = ?
		ORDER BY version_no ASC
	`, draftID)
	if err != nil {
		return nil, fmt.Errorf("failed to list draft versions: %w", err)
	}
	defer rows.Close()

	var versions []*models.DraftVersion
	for rows.Next() {
		v, err := scanDraftVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan draft version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func scanDraftRow(row *sql.Row) (*models.ResumeDraft, error) {
	d, err := scanDraft(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan draft: %w", err)
	}
	return d, nil
}

func scanDraft(s jobScanner) (*models.ResumeDraft, error) {
	var (
		d                                       models.ResumeDraft
		rrExport, rrResumeID, rrStatus, rrError sql.NullString
		pdfURL, pdfStatus, pdfError             sql.NullString
		approvedAt                              sql.NullInt64
	)
	err := s.Scan(
		&d.ID, &d.JobKey, &d.ProfileID, &d.Status, &d.PackJSON, &d.ATSJSON,
		&rrExport, &d.VersionNo, &rrResumeID, &rrStatus, &rrError,
		&pdfURL, &pdfStatus, &pdfError, &d.CreatedAt, &d.UpdatedAt, &approvedAt,
	)
	if err != nil {
		return nil, err
	}
	d.RRExportJSON = rrExport.String
	d.RRResumeID = rrResumeID.String
	d.RRPushStatus = rrStatus.String
	d.RRPushError = rrError.String
	d.PDFURL = pdfURL.String
	d.PDFStatus = pdfStatus.String
	d.PDFError = pdfError.String
	d.ApprovedAt = int64Ptr(approvedAt)
	return &d, nil
}

func scanDraftVersion(s jobScanner) (*models.DraftVersion, error) {
	var (
		v        models.DraftVersion
		rrExport sql.NullString
	)
	err := s.Scan(&v.ID, &v.DraftID, &v.VersionNo, &v.SourceAction, &v.PackJSON, &v.ATSJSON, &rrExport, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	v.RRExportJSON = rrExport.String
	return &v, nil
}
