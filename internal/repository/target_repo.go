package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/jobops/jobops-api/internal/models"
)

const targetColumns = `id, name, primary_role, seniority_pref, location_pref,
	must_keywords_json, nice_keywords_json, reject_keywords_json, rubric_profile,
	active, created_at, updated_at`

// SQLiteTargetRepository implements TargetRepository for SQLite.
type SQLiteTargetRepository struct {
	db *sql.DB
}

// NewSQLiteTargetRepository creates a new SQLite target repository.
func NewSQLiteTargetRepository(db *sql.DB) *SQLiteTargetRepository {
	return &SQLiteTargetRepository{db: db}
}

// Upsert saves a target keyed by its unique name. Operator upserts replace
// the keyword sets wholesale; the non-empty-wins rule applies to jobs only.
func (r *SQLiteTargetRepository) Upsert(ctx context.Context, target *models.Target) error {
	if target.ID == "" {
		target.ID = ulid.Make().String()
	}
	now := models.NowMS()
	if target.CreatedAt == 0 {
		target.CreatedAt = now
	}
	target.UpdatedAt = now
	if target.RubricProfile == "" {
		target.RubricProfile = models.RubricAuto
	}
	query := `
		INSERT INTO targets (` + targetColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			primary_role = excluded.primary_role,
			seniority_pref = excluded.seniority_pref,
			location_pref = excluded.location_pref,
			must_keywords_json = excluded.must_keywords_json,
			nice_keywords_json = excluded.nice_keywords_json,
			reject_keywords_json = excluded.reject_keywords_json,
			rubric_profile = excluded.rubric_profile,
			active = excluded.active,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		target.ID,
		target.Name,
		target.PrimaryRole,
		nullString(target.SeniorityPref),
		nullString(target.LocationPref),
		marshalList(target.MustKeywords),
		marshalList(target.NiceKeywords),
		marshalList(target.RejectKeywords),
		string(target.RubricProfile),
		target.Active,
		target.CreatedAt,
		target.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert target: %w", err)
	}

	// The conflict path keeps the stored id; reload it for the caller.
	row := r.db.QueryRowContext(ctx,
		`SELECT id, created_at FROM targets WHERE name = ?`, target.Name)
	if err := row.Scan(&target.ID, &target.CreatedAt); err != nil {
		return fmt.Errorf("failed to reload target: %w", err)
	}
	return nil
}

func (r *SQLiteTargetRepository) GetByID(ctx context.Context, id string) (*models.Target, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+targetColumns+` FROM targets WHERE id = ?`, id)
	target, err := scanTarget(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get target: %w", err)
	}
	return target, nil
}

func (r *SQLiteTargetRepository) List(ctx context.Context) ([]*models.Target, error) {
	return r.list(ctx, `SELECT `+targetColumns+` FROM targets ORDER BY name`)
}

func (r *SQLiteTargetRepository) ListActive(ctx context.Context) ([]*models.Target, error) {
	return r.list(ctx, `SELECT `+targetColumns+` FROM targets WHERE active = 1 ORDER BY name`)
}

func (r *SQLiteTargetRepository) list(ctx context.Context, query string) ([]*models.Target, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}
	defer rows.Close()

	var targets []*models.Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan target: %w", err)
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

func scanTarget(s jobScanner) (*models.Target, error) {
	var (
		t                             models.Target
		seniorityPref, locationPref   sql.NullString
		musts, nices, rejects, rubric string
	)
	err := s.Scan(
		&t.ID, &t.Name, &t.PrimaryRole, &seniorityPref, &locationPref,
		&musts, &nices, &rejects, &rubric,
		&t.Active, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.SeniorityPref = seniorityPref.String
	t.LocationPref = locationPref.String
	t.MustKeywords = unmarshalList(musts)
	t.NiceKeywords = unmarshalList(nices)
	t.RejectKeywords = unmarshalList(rejects)
	t.RubricProfile = models.RubricProfile(rubric)
	return &t, nil
}
