package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jobops/jobops-api/internal/models"
)

// terminalStatuses is the SQL tuple of job statuses ingestion and rescoring
// must never downgrade.
const terminalStatuses = `('READY_TO_APPLY','APPLIED','REJECTED','ARCHIVED')`

const jobColumns = `job_key, job_url, source_domain, job_id, channel,
	company, role_title, location, work_mode, seniority,
	experience_years_min, experience_years_max,
	must_keywords_json, nice_keywords_json, reject_keywords_json, skills_json,
	jd_text_clean, jd_source, fetch_status, fetch_debug_json,
	primary_target_id, score_must, score_nice, final_score,
	reject_triggered, reject_reasons_json, reason_top_matches, potential_contacts_json,
	status, system_status, notes, auto_pilot,
	created_at, updated_at, last_scored_at, applied_at, rejected_at, archived_at`

// SQLiteJobRepository implements JobRepository for SQLite.
type SQLiteJobRepository struct {
	db *sql.DB
}

// NewSQLiteJobRepository creates a new SQLite job repository.
func NewSQLiteJobRepository(db *sql.DB) *SQLiteJobRepository {
	return &SQLiteJobRepository{db: db}
}

// Upsert inserts a new job or converges an existing row. Conflict rules:
// terminal statuses win over the incoming status, keyword JSON is only
// replaced when the incoming array is non-empty, scalar extracted fields
// only overwrite when the incoming value is set, created_at is kept, and
// updated_at never moves backward.
func (r *SQLiteJobRepository) Upsert(ctx context.Context, job *models.Job) error {
	query := `
		INSERT INTO jobs (` + jobColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_key) DO UPDATE SET
			job_url = excluded.job_url,
			source_domain = excluded.source_domain,
			job_id = COALESCE(excluded.job_id, jobs.job_id),
			channel = COALESCE(excluded.channel, jobs.channel),
			company = COALESCE(excluded.company, jobs.company),
			role_title = COALESCE(excluded.role_title, jobs.role_title),
			location = COALESCE(excluded.location, jobs.location),
			work_mode = COALESCE(excluded.work_mode, jobs.work_mode),
			seniority = COALESCE(excluded.seniority, jobs.seniority),
			experience_years_min = COALESCE(excluded.experience_years_min, jobs.experience_years_min),
			experience_years_max = COALESCE(excluded.experience_years_max, jobs.experience_years_max),
			must_keywords_json = CASE WHEN excluded.must_keywords_json != '[]' THEN excluded.must_keywords_json ELSE jobs.must_keywords_json END,
			nice_keywords_json = CASE WHEN excluded.nice_keywords_json != '[]' THEN excluded.nice_keywords_json ELSE jobs.nice_keywords_json END,
			reject_keywords_json = CASE WHEN excluded.reject_keywords_json != '[]' THEN excluded.reject_keywords_json ELSE jobs.reject_keywords_json END,
			skills_json = CASE WHEN excluded.skills_json != '[]' THEN excluded.skills_json ELSE jobs.skills_json END,
			jd_text_clean = COALESCE(excluded.jd_text_clean, jobs.jd_text_clean),
			jd_source = CASE WHEN excluded.jd_text_clean IS NOT NULL THEN excluded.jd_source ELSE jobs.jd_source END,
			fetch_status = COALESCE(excluded.fetch_status, jobs.fetch_status),
			fetch_debug_json = COALESCE(excluded.fetch_debug_json, jobs.fetch_debug_json),
			status = CASE WHEN jobs.status IN ` + terminalStatuses + ` THEN jobs.status ELSE excluded.status END,
			system_status = CASE WHEN jobs.status IN ` + terminalStatuses + ` THEN jobs.system_status ELSE excluded.system_status END,
			notes = COALESCE(excluded.notes, jobs.notes),
			updated_at = MAX(jobs.updated_at, excluded.updated_at)
	`
	now := models.NowMS()
	createdAt := job.CreatedAt
	if createdAt == 0 {
		createdAt = now
	}
	_, err := r.db.ExecContext(ctx, query,
		job.JobKey,
		job.JobURL,
		string(job.SourceDomain),
		nullString(job.JobID),
		nullString(job.Channel),
		nullString(job.Company),
		nullString(job.RoleTitle),
		nullString(job.Location),
		nullString(job.WorkMode),
		nullString(job.Seniority),
		nullIntPtr(job.ExperienceYearsMin),
		nullIntPtr(job.ExperienceYearsMax),
		marshalList(job.MustKeywords),
		marshalList(job.NiceKeywords),
		marshalList(job.RejectKeywords),
		marshalList(job.Skills),
		nullString(job.JDTextClean),
		string(job.JDSource),
		nullString(string(job.FetchStatus)),
		marshalDebug(job.FetchDebug),
		nullString(job.PrimaryTargetID),
		nullIntPtr(job.ScoreMust),
		nullIntPtr(job.ScoreNice),
		nullIntPtr(job.FinalScore),
		job.RejectTriggered,
		marshalList(job.RejectReasons),
		nullString(job.ReasonTopMatches),
		marshalList(job.PotentialContacts),
		string(job.Status),
		nullString(string(job.SystemStatus)),
		nullString(job.Notes),
		job.AutoPilot,
		createdAt,
		now,
		nullInt64Ptr(job.LastScoredAt),
		nullInt64Ptr(job.AppliedAt),
		nullInt64Ptr(job.RejectedAt),
		nullInt64Ptr(job.ArchivedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert job: %w", err)
	}
	return nil
}

func (r *SQLiteJobRepository) Exists(ctx context.Context, jobKey string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM jobs WHERE job_key = ?`, jobKey).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check job existence: %w", err)
	}
	return true, nil
}

func (r *SQLiteJobRepository) GetByKey(ctx context.Context, jobKey string) (*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE job_key = ?`
	return r.scanJob(r.db.QueryRowContext(ctx, query, jobKey))
}

func (r *SQLiteJobRepository) List(ctx context.Context, filter JobFilter) ([]*models.Job, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Source != "" {
		conds = append(conds, "source_domain = ?")
		args = append(args, filter.Source)
	}
	if filter.MinScore != nil {
		conds = append(conds, "final_score >= ?")
		args = append(args, *filter.MinScore)
	}
	if filter.Cursor != "" {
		ts, key, ok := splitCursor(filter.Cursor)
		if ok {
			conds = append(conds, "(updated_at < ? OR (updated_at = ? AND job_key > ?))")
			args = append(args, ts, ts, key)
		}
	}
	query := `SELECT ` + jobColumns + ` FROM jobs`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY updated_at DESC, job_key ASC LIMIT ?"
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()
	return r.scanJobs(rows)
}

// UpdateScore persists one scoring outcome. The terminal-status guard lives
// in SQL so concurrent writers converge no matter who read the row first.
func (r *SQLiteJobRepository) UpdateScore(ctx context.Context, job *models.Job) error {
	query := `
		UPDATE jobs SET
			primary_target_id = ?,
			score_must = ?,
			score_nice = ?,
			final_score = ?,
			reject_triggered = ?,
			reject_reasons_json = ?,
			reason_top_matches = ?,
			potential_contacts_json = CASE WHEN ? != '[]' THEN ? ELSE jobs.potential_contacts_json END,
			system_status = ?,
			status = CASE WHEN jobs.status IN ` + terminalStatuses + ` THEN jobs.status ELSE ? END,
			rejected_at = CASE WHEN jobs.status NOT IN ` + terminalStatuses + ` AND ? = 'REJECTED' THEN ? ELSE jobs.rejected_at END,
			archived_at = CASE WHEN jobs.status NOT IN ` + terminalStatuses + ` AND ? = 'ARCHIVED' THEN ? ELSE jobs.archived_at END,
			last_scored_at = COALESCE(?, jobs.last_scored_at),
			updated_at = ?
		WHERE job_key = ?
	`
	now := models.NowMS()
	contacts := marshalList(job.PotentialContacts)
	status := string(job.Status)
	_, err := r.db.ExecContext(ctx, query,
		nullString(job.PrimaryTargetID),
		nullIntPtr(job.ScoreMust),
		nullIntPtr(job.ScoreNice),
		nullIntPtr(job.FinalScore),
		job.RejectTriggered,
		marshalList(job.RejectReasons),
		nullString(job.ReasonTopMatches),
		contacts, contacts,
		nullString(string(job.SystemStatus)),
		status,
		status, now,
		status, now,
		nullInt64Ptr(job.LastScoredAt),
		now,
		job.JobKey,
	)
	if err != nil {
		return fmt.Errorf("failed to update job score: %w", err)
	}
	return nil
}

// UpdateJD refreshes the JD body and extracted fields after a resolve or
// extract pass. Empty incoming values never erase stored ones; keyword JSON
// keeps the non-empty-wins rule.
func (r *SQLiteJobRepository) UpdateJD(ctx context.Context, job *models.Job) error {
	query := `
		UPDATE jobs SET
			company = COALESCE(?, jobs.company),
			role_title = COALESCE(?, jobs.role_title),
			location = COALESCE(?, jobs.location),
			work_mode = COALESCE(?, jobs.work_mode),
			seniority = COALESCE(?, jobs.seniority),
			experience_years_min = COALESCE(?, jobs.experience_years_min),
			experience_years_max = COALESCE(?, jobs.experience_years_max),
			must_keywords_json = CASE WHEN ? != '[]' THEN ? ELSE jobs.must_keywords_json END,
			nice_keywords_json = CASE WHEN ? != '[]' THEN ? ELSE jobs.nice_keywords_json END,
			reject_keywords_json = CASE WHEN ? != '[]' THEN ? ELSE jobs.reject_keywords_json END,
			skills_json = CASE WHEN ? != '[]' THEN ? ELSE jobs.skills_json END,
			jd_text_clean = COALESCE(?, jobs.jd_text_clean),
			jd_source = CASE WHEN ? IS NOT NULL THEN ? ELSE jobs.jd_source END,
			fetch_status = COALESCE(?, jobs.fetch_status),
			fetch_debug_json = COALESCE(?, jobs.fetch_debug_json),
			updated_at = ?
		WHERE job_key = ?
	`
	musts := marshalList(job.MustKeywords)
	nices := marshalList(job.NiceKeywords)
	rejects := marshalList(job.RejectKeywords)
	skills := marshalList(job.Skills)
	jd := nullString(job.JDTextClean)
	_, err := r.db.ExecContext(ctx, query,
		nullString(job.Company),
		nullString(job.RoleTitle),
		nullString(job.Location),
		nullString(job.WorkMode),
		nullString(job.Seniority),
		nullIntPtr(job.ExperienceYearsMin),
		nullIntPtr(job.ExperienceYearsMax),
		musts, musts,
		nices, nices,
		rejects, rejects,
		skills, skills,
		jd,
		jd, string(job.JDSource),
		nullString(string(job.FetchStatus)),
		marshalDebug(job.FetchDebug),
		models.NowMS(),
		job.JobKey,
	)
	if err != nil {
		return fmt.Errorf("failed to update job jd: %w", err)
	}
	return nil
}

func (r *SQLiteJobRepository) SetAutoPilot(ctx context.Context, jobKey string, on bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET auto_pilot = ?, updated_at = ? WHERE job_key = ?`,
		on, models.NowMS(), jobKey,
	)
	if err != nil {
		return fmt.Errorf("failed to set auto_pilot: %w", err)
	}
	return nil
}

// SetStatus writes status directly, still honoring the terminal guard.
// Pack approval uses this to promote a job to READY_TO_APPLY; that is the
// one write allowed to move a terminal job, and APPLIED stays put even then.
func (r *SQLiteJobRepository) SetStatus(ctx context.Context, jobKey string, status models.JobStatus, systemStatus models.SystemStatus) error {
	query := `
		UPDATE jobs SET
			status = CASE
				WHEN jobs.status = 'APPLIED' THEN jobs.status
				WHEN jobs.status IN ` + terminalStatuses + ` AND ? != 'READY_TO_APPLY' THEN jobs.status
				ELSE ?
			END,
			system_status = ?,
			applied_at = CASE WHEN jobs.status NOT IN ` + terminalStatuses + ` AND ? = 'APPLIED' THEN ? ELSE jobs.applied_at END,
			updated_at = ?
		WHERE job_key = ?
	`
	now := models.NowMS()
	s := string(status)
	_, err := r.db.ExecContext(ctx, query,
		s, s,
		nullString(string(systemStatus)),
		s, now,
		now,
		jobKey,
	)
	if err != nil {
		return fmt.Errorf("failed to set job status: %w", err)
	}
	return nil
}

func (r *SQLiteJobRepository) ListPendingScore(ctx context.Context, statuses []models.JobStatus, limit int) ([]*models.Job, error) {
	if len(statuses) == 0 {
		statuses = []models.JobStatus{models.JobStatusNew, models.JobStatusScored, models.JobStatusLinkOnly}
	}
	placeholders := make([]string, len(statuses))
	args := make([]any, 0, len(statuses)+1)
	for i, s := range statuses {
		placeholders[i] = "?"
		args = append(args, string(s))
	}
	query := `
		SELECT ` + jobColumns + ` FROM jobs
		WHERE status IN (` + strings.Join(placeholders, ",") + `)
			AND jd_text_clean IS NOT NULL AND length(jd_text_clean) > 0
		ORDER BY updated_at ASC
		LIMIT ?
	`
	args = append(args, limit)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending-score jobs: %w", err)
	}
	defer rows.Close()
	return r.scanJobs(rows)
}

func (r *SQLiteJobRepository) ListLinkOnly(ctx context.Context, limit int) ([]*models.Job, error) {
	query := `
		SELECT ` + jobColumns + ` FROM jobs
		WHERE status = 'LINK_ONLY'
		ORDER BY updated_at ASC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list link-only jobs: %w", err)
	}
	defer rows.Close()
	return r.scanJobs(rows)
}

func (r *SQLiteJobRepository) ListMissingFields(ctx context.Context, limit int) ([]*models.Job, error) {
	query := `
		SELECT ` + jobColumns + ` FROM jobs
		WHERE jd_text_clean IS NOT NULL AND length(jd_text_clean) > 0
			AND (role_title IS NULL OR role_title = '' OR company IS NULL OR company = '')
			AND status NOT IN ` + terminalStatuses + `
		ORDER BY updated_at ASC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs missing fields: %w", err)
	}
	defer rows.Close()
	return r.scanJobs(rows)
}

func (r *SQLiteJobRepository) ListStaleScores(ctx context.Context, before int64, limit int) ([]*models.Job, error) {
	query := `
		SELECT ` + jobColumns + ` FROM jobs
		WHERE status IN ('SCORED','SHORTLISTED')
			AND last_scored_at IS NOT NULL AND last_scored_at < ?
		ORDER BY last_scored_at ASC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, before, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale-score jobs: %w", err)
	}
	defer rows.Close()
	return r.scanJobs(rows)
}

func (r *SQLiteJobRepository) ListByStatusAfterKey(ctx context.Context, status models.JobStatus, afterKey string, limit int) ([]*models.Job, error) {
	query := `
		SELECT ` + jobColumns + ` FROM jobs
		WHERE status = ? AND job_key > ?
		ORDER BY job_key ASC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, string(status), afterKey, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to page jobs by status: %w", err)
	}
	defer rows.Close()
	return r.scanJobs(rows)
}

type jobScanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteJobRepository) scanJob(row *sql.Row) (*models.Job, error) {
	job, err := scanJobFrom(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan job: %w", err)
	}
	return job, nil
}

func (r *SQLiteJobRepository) scanJobs(rows *sql.Rows) ([]*models.Job, error) {
	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJobFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func scanJobFrom(s jobScanner) (*models.Job, error) {
	var (
		job                                                    models.Job
		jobID, channel                                         sql.NullString
		company, roleTitle, location, workMode, seniority      sql.NullString
		expMin, expMax, scoreMust, scoreNice, finalScore       sql.NullInt64
		musts, nices, rejects, skills, rejectReasons, contacts string
		jdText, fetchStatus, fetchDebug                        sql.NullString
		primaryTargetID, reasonTop, systemStatus, notes        sql.NullString
		lastScoredAt, appliedAt, rejectedAt, archivedAt        sql.NullInt64
	)
	err := s.Scan(
		&job.JobKey, &job.JobURL, &job.SourceDomain, &jobID, &channel,
		&company, &roleTitle, &location, &workMode, &seniority,
		&expMin, &expMax,
		&musts, &nices, &rejects, &skills,
		&jdText, &job.JDSource, &fetchStatus, &fetchDebug,
		&primaryTargetID, &scoreMust, &scoreNice, &finalScore,
		&job.RejectTriggered, &rejectReasons, &reasonTop, &contacts,
		&job.Status, &systemStatus, &notes, &job.AutoPilot,
		&job.CreatedAt, &job.UpdatedAt, &lastScoredAt, &appliedAt, &rejectedAt, &archivedAt,
	)
	if err != nil {
		return nil, err
	}

	job.JobID = jobID.String
	job.Channel = channel.String
	job.Company = company.String
	job.RoleTitle = roleTitle.String
	job.Location = location.String
	job.WorkMode = workMode.String
	job.Seniority = seniority.String
	job.ExperienceYearsMin = intPtr(expMin)
	job.ExperienceYearsMax = intPtr(expMax)
	job.MustKeywords = unmarshalList(musts)
	job.NiceKeywords = unmarshalList(nices)
	job.RejectKeywords = unmarshalList(rejects)
	job.Skills = unmarshalList(skills)
	job.JDTextClean = jdText.String
	job.FetchStatus = models.FetchStatus(fetchStatus.String)
	job.FetchDebug = unmarshalDebug(fetchDebug)
	job.PrimaryTargetID = primaryTargetID.String
	job.ScoreMust = intPtr(scoreMust)
	job.ScoreNice = intPtr(scoreNice)
	job.FinalScore = intPtr(finalScore)
	job.RejectReasons = unmarshalList(rejectReasons)
	job.ReasonTopMatches = reasonTop.String
	job.PotentialContacts = unmarshalList(contacts)
	job.SystemStatus = models.SystemStatus(systemStatus.String)
	job.Notes = notes.String
	job.LastScoredAt = int64Ptr(lastScoredAt)
	job.AppliedAt = int64Ptr(appliedAt)
	job.RejectedAt = int64Ptr(rejectedAt)
	job.ArchivedAt = int64Ptr(archivedAt)
	return &job, nil
}

// splitCursor parses "<updated_at>|<job_key>" keyset tokens.
func splitCursor(cursor string) (int64, string, bool) {
	i := strings.IndexByte(cursor, '|')
	if i <= 0 || i == len(cursor)-1 {
		return 0, "", false
	}
	ts, err := strconv.ParseInt(cursor[:i], 10, 64)
	if err != nil {
		return 0, "", false
	}
	return ts, cursor[i+1:], true
}

// Cursor renders the keyset token for the last job of a page.
func Cursor(job *models.Job) string {
	return strconv.FormatInt(job.UpdatedAt, 10) + "|" + job.JobKey
}

// nullString converts an empty string to NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullIntPtr(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullInt64Ptr(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	i := v.Int64
	return &i
}

// marshalList renders a string set as its JSON column value; nil and empty
// both store as '[]' so the non-empty-wins upsert rules can compare cheaply.
func marshalList(vals []string) string {
	if len(vals) == 0 {
		return "[]"
	}
	b, err := json.Marshal(vals)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func unmarshalList(raw string) []string {
	if raw == "" || raw == "[]" {
		return []string{}
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return []string{}
	}
	return out
}

func marshalDebug(d *models.FetchDebug) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	b, err := json.Marshal(d)
	if err != nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

func unmarshalDebug(raw sql.NullString) *models.FetchDebug {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var d models.FetchDebug
	if err := json.Unmarshal([]byte(raw.String), &d); err != nil {
		return nil
	}
	return &d
}
