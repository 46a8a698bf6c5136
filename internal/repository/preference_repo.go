package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jobops/jobops-api/internal/models"
)

// SQLitePreferenceRepository implements PreferenceRepository for SQLite.
type SQLitePreferenceRepository struct {
	db *sql.DB
}

// NewSQLitePreferenceRepository creates a new SQLite preference repository.
func NewSQLitePreferenceRepository(db *sql.DB) *SQLitePreferenceRepository {
	return &SQLitePreferenceRepository{db: db}
}

func (r *SQLitePreferenceRepository) Set(ctx context.Context, jobKey, profileID string) error {
	now := models.NowMS()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO job_profile_preferences (job_key, profile_id, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(job_key) DO UPDATE SET
			profile_id = excluded.profile_id,
			updated_at = excluded.updated_at
	`, jobKey, profileID, now)
	if err != nil {
		return fmt.Errorf("failed to set profile preference: %w", err)
	}
	return nil
}

// Get returns the preferred profile id for a job, or "" when no override is set.
func (r *SQLitePreferenceRepository) Get(ctx context.Context, jobKey string) (string, error) {
	var profileID string
	err := r.db.QueryRowContext(ctx,
		`SELECT profile_id FROM job_profile_preferences WHERE job_key = ?`,
		jobKey,
	).Scan(&profileID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get profile preference: %w", err)
	}
	return profileID, nil
}
