package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/jobops/jobops-api/internal/models"
)

const scoringRunColumns = `id, job_key, source, final_status, heuristic_passed,
	heuristic_reasons_json, stage_metrics_json, ai_model, ai_tokens_in,
	ai_tokens_out, ai_tokens_total, ai_latency_ms, total_latency_ms,
	final_score, reject_triggered, created_at`

// SQLiteScoringRunRepository implements ScoringRunRepository for SQLite.
type SQLiteScoringRunRepository struct {
	db *sql.DB
}

// NewSQLiteScoringRunRepository creates a new SQLite scoring run repository.
func NewSQLiteScoringRunRepository(db *sql.DB) *SQLiteScoringRunRepository {
	return &SQLiteScoringRunRepository{db: db}
}

func (r *SQLiteScoringRunRepository) Create(ctx context.Context, run *models.ScoringRun) error {
	if run.ID == "" {
		run.ID = ulid.Make().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = models.NowMS()
	}
	metrics, err := json.Marshal(run.StageMetrics)
	if err != nil {
		return fmt.Errorf("failed to encode stage metrics: %w", err)
	}
	query := `
		INSERT INTO scoring_runs (` + scoringRunColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		run.ID,
		run.JobKey,
		nullString(run.Source),
		nullString(run.FinalStatus),
		run.HeuristicPassed,
		marshalList(run.HeuristicReasons),
		string(metrics),
		nullString(run.AIModel),
		run.AITokensIn,
		run.AITokensOut,
		run.AITokensTotal,
		run.AILatencyMS,
		run.TotalLatencyMS,
		nullIntPtr(run.FinalScore),
		run.RejectTriggered,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create scoring run: %w", err)
	}
	return nil
}

func (r *SQLiteScoringRunRepository) LatestByJobKey(ctx context.Context, jobKey string) (*models.ScoringRun, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+scoringRunColumns+` FROM scoring_runs
		WHERE job_key = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, jobKey)
	run, err := scanScoringRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest scoring run: %w", err)
	}
	return run, nil
}

func (r *SQLiteScoringRunRepository) ListByJobKey(ctx context.Context, jobKey string, limit int) ([]*models.ScoringRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+scoringRunColumns+` FROM scoring_runs
		WHERE job_key = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, jobKey, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list scoring runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.ScoringRun
	for rows.Next() {
		run, err := scanScoringRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scoring run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanScoringRun(s jobScanner) (*models.ScoringRun, error) {
	var (
		run                 models.ScoringRun
		source, finalStatus sql.NullString
		reasons, metrics    string
		aiModel             sql.NullString
		finalScore          sql.NullInt64
	)
	err := s.Scan(
		&run.ID, &run.JobKey, &source, &finalStatus, &run.HeuristicPassed,
		&reasons, &metrics, &aiModel, &run.AITokensIn,
		&run.AITokensOut, &run.AITokensTotal, &run.AILatencyMS, &run.TotalLatencyMS,
		&finalScore, &run.RejectTriggered, &run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	run.Source = source.String
	run.FinalStatus = finalStatus.String
	run.AIModel = aiModel.String
	run.HeuristicReasons = unmarshalList(reasons)
	run.FinalScore = intPtr(finalScore)
	if metrics != "" && metrics != "{}" {
		if err := json.Unmarshal([]byte(metrics), &run.StageMetrics); err != nil {
			run.StageMetrics = nil
		}
	}
	return &run, nil
}
