package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/jobops/jobops-api/internal/models"
)

const contactColumns = `id, job_key, name, title, handle, source, created_at, updated_at`

const touchpointColumns = `id, contact_id, job_key, channel, status, note, created_at, updated_at`

// SQLiteContactRepository implements ContactRepository for SQLite.
type SQLiteContactRepository struct {
	db *sql.DB
}

// NewSQLiteContactRepository creates a new SQLite contact repository.
func NewSQLiteContactRepository(db *sql.DB) *SQLiteContactRepository {
	return &SQLiteContactRepository{db: db}
}

// UpsertByName inserts a contact or refreshes an existing one keyed by
// (job_key, name). Re-ingesting the same job never duplicates contacts.
func (r *SQLiteContactRepository) UpsertByName(ctx context.Context, contact *models.Contact) error {
	if contact.ID == "" {
		contact.ID = ulid.Make().String()
	}
	now := models.NowMS()
	if contact.CreatedAt == 0 {
		contact.CreatedAt = now
	}
	contact.UpdatedAt = now

	query := `
		INSERT INTO contacts (` + contactColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_key, name) DO UPDATE SET
			title = COALESCE(excluded.title, contacts.title),
			handle = COALESCE(excluded.handle, contacts.handle),
			source = COALESCE(excluded.source, contacts.source),
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		contact.ID,
		contact.JobKey,
		contact.Name,
		nullString(contact.Title),
		nullString(contact.Handle),
		nullString(contact.Source),
		contact.CreatedAt,
		contact.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert contact: %w", err)
	}

	// The conflict path keeps the original row id; reload so callers hold it.
	row := r.db.QueryRowContext(ctx,
		`SELECT id, created_at FROM contacts WHERE job_key = ? AND name = ?`,
		contact.JobKey, contact.Name,
	)
	if err := row.Scan(&contact.ID, &contact.CreatedAt); err != nil {
		return fmt.Errorf("failed to reload contact: %w", err)
	}
	return nil
}

func (r *SQLiteContactRepository) GetByID(ctx context.Context, id string) (*models.Contact, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = ?`, id)
	contact, err := scanContact(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	return contact, nil
}

func (r *SQLiteContactRepository) ListByJobKey(ctx context.Context, jobKey string) ([]*models.Contact, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE job_key = ? ORDER BY name ASC`, jobKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []*models.Contact
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, contact)
	}
	return contacts, rows.Err()
}

// UpsertTouchpoint records an outreach attempt. A repeat on the same
// (contact, job, channel) updates status and note instead of inserting.
func (r *SQLiteContactRepository) UpsertTouchpoint(ctx context.Context, tp *models.Touchpoint) error {
	if tp.ID == "" {
		tp.ID = ulid.Make().String()
	}
	if tp.Status == "" {
		tp.Status = models.TouchpointDraft
	}
	now := models.NowMS()
	if tp.CreatedAt == 0 {
		tp.CreatedAt = now
	}
	tp.UpdatedAt = now

	query := `
		INSERT INTO contact_touchpoints (` + touchpointColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(contact_id, job_key, channel) DO UPDATE SET
			status = excluded.status,
			note = COALESCE(excluded.note, contact_touchpoints.note),
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		tp.ID,
		tp.ContactID,
		tp.JobKey,
		string(tp.Channel),
		string(tp.Status),
		nullString(tp.Note),
		tp.CreatedAt,
		tp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert touchpoint: %w", err)
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT id, created_at FROM contact_touchpoints WHERE contact_id = ? AND job_key = ? AND channel = ?`,
		tp.ContactID, tp.JobKey, string(tp.Channel),
	)
	if err := row.Scan(&tp.ID, &tp.CreatedAt); err != nil {
		return fmt.Errorf("failed to reload touchpoint: %w", err)
	}
	return nil
}

func (r *SQLiteContactRepository) ListTouchpoints(ctx context.Context, jobKey string) ([]*models.Touchpoint, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+touchpointColumns+` FROM contact_touchpoints
		WHERE job_key = ?
		ORDER BY created_at ASC, id ASC
	`, jobKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list touchpoints: %w", err)
	}
	defer rows.Close()

	var tps []*models.Touchpoint
	for rows.Next() {
		tp, err := scanTouchpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan touchpoint: %w", err)
		}
		tps = append(tps, tp)
	}
	return tps, rows.Err()
}

func scanContact(s jobScanner) (*models.Contact, error) {
	var (
		contact               models.Contact
		title, handle, source sql.NullString
	)
	err := s.Scan(
		&contact.ID, &contact.JobKey, &contact.Name,
		&title, &handle, &source,
		&contact.CreatedAt, &contact.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	contact.Title = title.String
	contact.Handle = handle.String
	contact.Source = source.String
	return &contact, nil
}

func scanTouchpoint(s jobScanner) (*models.Touchpoint, error) {
	var (
		tp              models.Touchpoint
		channel, status string
		note            sql.NullString
	)
	err := s.Scan(
		&tp.ID, &tp.ContactID, &tp.JobKey,
		&channel, &status, &note,
		&tp.CreatedAt, &tp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	tp.Channel = models.TouchpointChannel(channel)
	tp.Status = models.TouchpointStatus(status)
	tp.Note = note.String
	return &tp, nil
}
