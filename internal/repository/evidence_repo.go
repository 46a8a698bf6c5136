package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/jobops/jobops-api/internal/models"
)

const evidenceColumns = `id, job_key, requirement_type, requirement_text,
	matched, evidence_source, evidence_text, confidence_score, notes,
	created_at, updated_at`

// SQLiteEvidenceRepository implements EvidenceRepository for SQLite.
type SQLiteEvidenceRepository struct {
	db *sql.DB
}

// NewSQLiteEvidenceRepository creates a new SQLite evidence repository.
func NewSQLiteEvidenceRepository(db *sql.DB) *SQLiteEvidenceRepository {
	return &SQLiteEvidenceRepository{db: db}
}

// UpsertBatch writes every row in one transaction so a rebuild either lands
// whole or not at all. Conflicting rows keep their id and created_at, and
// only the match outcome fields move.
func (r *SQLiteEvidenceRepository) UpsertBatch(ctx context.Context, evidenceRows []models.Evidence) error {
	if len(evidenceRows) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	query := `
		INSERT INTO job_evidence (` + evidenceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_key, requirement_text, requirement_type) DO UPDATE SET
			matched = excluded.matched,
			evidence_source = excluded.evidence_source,
			evidence_text = excluded.evidence_text,
			confidence_score = excluded.confidence_score,
			notes = excluded.notes,
			updated_at = excluded.updated_at
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare evidence upsert: %w", err)
	}
	defer stmt.Close()

	now := models.NowMS()
	for i := range evidenceRows {
		row := &evidenceRows[i]
		if row.ID == "" {
			row.ID = ulid.Make().String()
		}
		if row.CreatedAt == 0 {
			row.CreatedAt = now
		}
		row.UpdatedAt = now
		if _, err := stmt.ExecContext(ctx,
			row.ID,
			row.JobKey,
			string(row.RequirementType),
			row.RequirementText,
			row.Matched,
			string(row.EvidenceSource),
			nullString(row.EvidenceText),
			row.ConfidenceScore,
			nullString(row.Notes),
			row.CreatedAt,
			row.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to upsert evidence row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

func (r *SQLiteEvidenceRepository) ListByJobKey(ctx context.Context, jobKey string) ([]*models.Evidence, error) {
	query := `
		SELECT ` + evidenceColumns + ` FROM job_evidence
		WHERE job_key = ?
		ORDER BY requirement_type, requirement_text
	`
	rows, err := r.db.QueryContext(ctx, query, jobKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list evidence: %w", err)
	}
	defer rows.Close()

	var out []*models.Evidence
	for rows.Next() {
		ev, err := scanEvidence(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evidence: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// MissedMusts aggregates unmatched must-requirements for jobs in the given
// status, counting case-insensitively, most-missed first.
func (r *SQLiteEvidenceRepository) MissedMusts(ctx context.Context, status models.JobStatus, minMissed, top int) ([]MissedRequirement, error) {
	if minMissed < 1 {
		minMissed = 1
	}
	if top <= 0 {
		top = 20
	}
	query := `
		SELECT lower(e.requirement_text) AS requirement_text, COUNT(*) AS missed
		FROM job_evidence e
		JOIN jobs j ON j.job_key = e.job_key
		WHERE e.requirement_type = 'must' AND e.matched = 0 AND j.status = ?
		GROUP BY lower(e.requirement_text)
		HAVING COUNT(*) >= ?
		ORDER BY missed DESC, lower(e.requirement_text) ASC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, string(status), minMissed, top)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate missed musts: %w", err)
	}
	defer rows.Close()

	var out []MissedRequirement
	for rows.Next() {
		var m MissedRequirement
		if err := rows.Scan(&m.RequirementText, &m.MissedCount); err != nil {
			return nil, fmt.Errorf("failed to scan missed must: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanEvidence(s jobScanner) (*models.Evidence, error) {
	var (
		ev                  models.Evidence
		evidenceText, notes sql.NullString
	)
	err := s.Scan(
		&ev.ID, &ev.JobKey, &ev.RequirementType, &ev.RequirementText,
		&ev.Matched, &ev.EvidenceSource, &evidenceText, &ev.ConfidenceScore, &notes,
		&ev.CreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	ev.EvidenceText = evidenceText.String
	ev.Notes = notes.String
	return &ev, nil
}
