package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/jobops/jobops-api/internal/models"
)

// SQLiteProfileRepository implements ProfileRepository for SQLite.
type SQLiteProfileRepository struct {
	db *sql.DB
}

// NewSQLiteProfileRepository creates a new SQLite profile repository.
func NewSQLiteProfileRepository(db *sql.DB) *SQLiteProfileRepository {
	return &SQLiteProfileRepository{db: db}
}

// Upsert saves a profile keyed by its unique name and keeps the
// exactly-one-primary invariant: the first profile becomes primary, and an
// explicit IsPrimary demotes all others in the same transaction.
func (r *SQLiteProfileRepository) Upsert(ctx context.Context, profile *models.ResumeProfile) error {
	if profile.ID == "" {
		profile.ID = ulid.Make().String()
	}
	now := models.NowMS()
	if profile.CreatedAt == 0 {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	data, err := json.Marshal(profile.Data)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
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

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM resume_profiles`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count profiles: %w", err)
	}
	if count == 0 {
		profile.IsPrimary = true
	}
	if profile.IsPrimary {
		if _, err := tx.ExecContext(ctx, `UPDATE resume_profiles SET is_primary = 0, updated_at = ? WHERE name != ?`, now, profile.Name); err != nil {
			return fmt.Errorf("failed to demote profiles: %w", err)
		}
	}

	query := `
		INSERT INTO resume_profiles (id, name, profile_json, is_primary, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			profile_json = excluded.profile_json,
			is_primary = CASE WHEN excluded.is_primary = 1 THEN 1 ELSE resume_profiles.is_primary END,
			updated_at = excluded.updated_at
	`
	if _, err := tx.ExecContext(ctx, query,
		profile.ID, profile.Name, string(data), profile.IsPrimary, profile.CreatedAt, profile.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}

	// The conflict path keeps the stored id and primary flag; reload them.
	row := tx.QueryRowContext(ctx,
		`SELECT id, is_primary, created_at FROM resume_profiles WHERE name = ?`, profile.Name)
	if err := row.Scan(&profile.ID, &profile.IsPrimary, &profile.CreatedAt); err != nil {
		return fmt.Errorf("failed to reload profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

func (r *SQLiteProfileRepository) GetByID(ctx context.Context, id string) (*models.ResumeProfile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, profile_json, is_primary, created_at, updated_at FROM resume_profiles WHERE id = ?`, id)
	return scanProfileRow(row)
}

func (r *SQLiteProfileRepository) GetPrimary(ctx context.Context) (*models.ResumeProfile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, profile_json, is_primary, created_at, updated_at FROM resume_profiles WHERE is_primary = 1 LIMIT 1`)
	return scanProfileRow(row)
}

func (r *SQLiteProfileRepository) List(ctx context.Context) ([]*models.ResumeProfile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, profile_json, is_primary, created_at, updated_at FROM resume_profiles ORDER BY is_primary DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*models.ResumeProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func scanProfileRow(row *sql.Row) (*models.ResumeProfile, error) {
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan profile: %w", err)
	}
	return p, nil
}

func scanProfile(s jobScanner) (*models.ResumeProfile, error) {
	var (
		p    models.ResumeProfile
		data string
	)
	if err := s.Scan(&p.ID, &p.Name, &data, &p.IsPrimary, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), &p.Data); err != nil {
		return nil, fmt.Errorf("corrupt profile_json for %s: %w", p.ID, err)
	}
	return &p, nil
}
