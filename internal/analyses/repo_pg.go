package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"resume-insights/internal/scoring"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB DBTX
}

const analysisColumns = `id, document_id, user_id, file_name, status, analysis_version, provider, model, result,
       ats_score, clarity_score, overall_score, reported_ats_score, reported_clarity_score, trend, previous_score,
       error_code, error_message, error_retryable, created_at, started_at, completed_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (Analysis, error) {
	var (
		a                            Analysis
		result                       []byte
		ats, clarity, overall        sql.NullInt64
		reportedATS, reportedClarity sql.NullInt64
		errorCode, errorMessage      sql.NullString
		errorRetryable               sql.NullBool
		startedAt, completedAt       sql.NullTime
	)
	if err := row.Scan(
		&a.ID,
		&a.DocumentID,
		&a.UserID,
		&a.FileName,
		&a.Status,
		&a.AnalysisVersion,
		&a.Provider,
		&a.Model,
		&result,
		&ats,
		&clarity,
		&overall,
		&reportedATS,
		&reportedClarity,
		&a.Trend,
		&a.PreviousScore,
		&errorCode,
		&errorMessage,
		&errorRetryable,
		&a.CreatedAt,
		&startedAt,
		&completedAt,
		&a.UpdatedAt,
	); err != nil {
		return Analysis{}, err
	}
	if len(result) > 0 {
		var r Result
		if err := json.Unmarshal(result, &r); err != nil {
			return Analysis{}, fmt.Errorf("decode result %s: %w", a.ID, err)
		}
		a.Result = &r
	}
	if ats.Valid && clarity.Valid && overall.Valid {
		a.Scores = &scoring.Scores{ATS: int(ats.Int64), Clarity: int(clarity.Int64), Overall: int(overall.Int64)}
	}
	a.ReportedATSScore = nullIntPtr(reportedATS)
	a.ReportedClarityScore = nullIntPtr(reportedClarity)
	a.ErrorCode = errorCode.String
	a.ErrorMessage = errorMessage.String
	a.ErrorRetryable = errorRetryable.Bool
	if startedAt.Valid {
		a.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		a.CompletedAt = &completedAt.Time
	}
	return a, nil
}

func nullIntPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

// Create inserts a new analysis.
func (r *PGRepo) Create(ctx context.Context, analysis Analysis) error {
	const query = `
INSERT INTO analyses (id, document_id, user_id, file_name, status, analysis_version, provider, model, trend, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`
	trend := analysis.Trend
	if trend == "" {
		trend = TrendNeutral
	}
	_, err := r.DB.ExecContext(ctx, query,
		analysis.ID,
		analysis.DocumentID,
		analysis.UserID,
		analysis.FileName,
		analysis.Status,
		analysis.AnalysisVersion,
		analysis.Provider,
		analysis.Model,
		trend,
		analysis.CreatedAt,
	)
	return err
}

// GetByID returns an analysis by ID.
func (r *PGRepo) GetByID(ctx context.Context, analysisID string) (Analysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM analyses WHERE id = $1`
	a, err := scanAnalysis(r.DB.QueryRowContext(ctx, query, analysisID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Analysis{}, ErrNotFound
		}
		return Analysis{}, err
	}
	return a, nil
}

// Transition updates status and the fields in u when the stored status matches from.
func (r *PGRepo) Transition(ctx context.Context, analysisID, from, to string, u Update) error {
	if err := checkTransition(from, to); err != nil {
		return err
	}
	const query = `
UPDATE analyses
SET status = $1,
    result = COALESCE($2::jsonb, result),
    ats_score = COALESCE($3::integer, ats_score),
    clarity_score = COALESCE($4::integer, clarity_score),
    overall_score = COALESCE($5::integer, overall_score),
    reported_ats_score = COALESCE($6::integer, reported_ats_score),
    reported_clarity_score = COALESCE($7::integer, reported_clarity_score),
    trend = COALESCE(NULLIF($8::text, ''), trend),
    previous_score = COALESCE($9::integer, previous_score),
    error_code = COALESCE($10::text, error_code),
    error_message = COALESCE($11::text, error_message),
    error_retryable = COALESCE($12::boolean, error_retryable),
    started_at = COALESCE($13::timestamptz, started_at),
    completed_at = COALESCE($14::timestamptz, completed_at),
    updated_at = now()
WHERE id = $15 AND status = $16`

	var payload any
	if u.Result != nil {
		b, err := json.Marshal(u.Result)
		if err != nil {
			return err
		}
		payload = string(b)
	}
	var ats, clarity, overall any
	if u.Scores != nil {
		ats, clarity, overall = u.Scores.ATS, u.Scores.Clarity, u.Scores.Overall
	}

	res, err := r.DB.ExecContext(ctx, query,
		to,
		payload,
		ats,
		clarity,
		overall,
		nullable(u.ReportedATSScore),
		nullable(u.ReportedClarityScore),
		u.Trend,
		nullable(u.PreviousScore),
		nullable(u.ErrorCode),
		nullable(u.ErrorMessage),
		nullable(u.ErrorRetryable),
		nullable(u.StartedAt),
		nullable(u.CompletedAt),
		analysisID,
		from,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var actual string
	err = r.DB.QueryRowContext(ctx, `SELECT status FROM analyses WHERE id = $1`, analysisID).Scan(&actual)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return staleStatusError(actual, from)
}

// List returns the user's analyses newest-first, filtered by file name and status.
func (r *PGRepo) List(ctx context.Context, userID string, filter ListFilter) ([]Analysis, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	query := `SELECT ` + analysisColumns + `
FROM analyses
WHERE user_id = $1 AND file_name ILIKE $2 AND ($3 = '' OR status = $3)
ORDER BY created_at DESC
LIMIT $4 OFFSET $5`

	rows, err := r.DB.QueryContext(ctx, query, userID, likePattern(filter.Search), filter.Status, limit, max(filter.Offset, 0))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Analysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Latest returns the user's newest analysis.
func (r *PGRepo) Latest(ctx context.Context, userID string) (Analysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM analyses WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`
	a, err := scanAnalysis(r.DB.QueryRowContext(ctx, query, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return Analysis{}, ErrNotFound
	}
	return a, err
}

// PreviousCompleted returns the most recently completed analysis other than excludeID.
func (r *PGRepo) PreviousCompleted(ctx context.Context, userID, excludeID string) (Analysis, error) {
	query := `SELECT ` + analysisColumns + `
FROM analyses
WHERE user_id = $1 AND id <> $2 AND status = 'completed' AND overall_score IS NOT NULL
ORDER BY completed_at DESC
LIMIT 1`
	a, err := scanAnalysis(r.DB.QueryRowContext(ctx, query, userID, excludeID))
	if errors.Is(err, sql.ErrNoRows) {
		return Analysis{}, ErrNotFound
	}
	return a, err
}

// Stats counts analyses and averages ATS scores for a user.
func (r *PGRepo) Stats(ctx context.Context, userID string) (Stats, error) {
	const query = `SELECT COUNT(*), COALESCE(AVG(ats_score), 0) FROM analyses WHERE user_id = $1`
	var stats Stats
	if err := r.DB.QueryRowContext(ctx, query, userID).Scan(&stats.Total, &stats.AverageATS); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

// ReassignUser moves analyses owned by fromUserID to toUserID.
func (r *PGRepo) ReassignUser(ctx context.Context, fromUserID, toUserID string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE analyses SET user_id = $1, updated_at = now() WHERE user_id = $2`, toUserID, fromUserID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func likePattern(search string) string {
	search = strings.TrimSpace(search)
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(search) + "%"
}

// nullable dereferences v for use as a query argument; nil stays NULL.
func nullable[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

var (
	_ Repo = (*PGRepo)(nil)
	_ Repo = (*MemoryRepo)(nil)
)
