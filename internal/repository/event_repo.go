package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/jobops/jobops-api/internal/models"
)

// SQLiteEventRepository implements EventRepository for SQLite.
type SQLiteEventRepository struct {
	db *sql.DB
}

// NewSQLiteEventRepository creates a new SQLite event repository.
func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

// Insert appends an event. When the event carries a message id that was
// already recorded, the insert is a no-op and Insert returns false.
func (r *SQLiteEventRepository) Insert(ctx context.Context, event *models.Event) (bool, error) {
	if event.ID == "" {
		event.ID = ulid.Make().String()
	}
	if event.CreatedAt == 0 {
		event.CreatedAt = models.NowMS()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO events (id, kind, job_key, detail, message_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(message_id) WHERE message_id IS NOT NULL DO NOTHING
	`,
		event.ID,
		event.Kind,
		nullString(event.JobKey),
		nullString(event.Detail),
		nullString(event.MessageID),
		event.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check event insert: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteEventRepository) HasMessageID(ctx context.Context, messageID string) (bool, error) {
	if messageID == "" {
		return false, nil
	}
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM events WHERE message_id = ? LIMIT 1`, messageID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check message id: %w", err)
	}
	return true, nil
}

func (r *SQLiteEventRepository) ListRecent(ctx context.Context, kind string, limit int) ([]*models.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, kind, job_key, detail, message_id, created_at FROM events`
	args := []interface{}{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		var (
			event                     models.Event
			jobKey, detail, messageID sql.NullString
		)
		err := rows.Scan(&event.ID, &event.Kind, &jobKey, &detail, &messageID, &event.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		event.JobKey = jobKey.String
		event.Detail = detail.String
		event.MessageID = messageID.String
		events = append(events, &event)
	}
	return events, rows.Err()
}
