package analyses

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-insights/internal/scoring"
)

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

var analysisColumnNames = []string{
	"id", "document_id", "user_id", "file_name", "status", "analysis_version", "provider", "model", "result",
	"ats_score", "clarity_score", "overall_score", "reported_ats_score", "reported_clarity_score", "trend", "previous_score",
	"error_code", "error_message", "error_retryable", "created_at", "started_at", "completed_at", "updated_at",
}

func TestPGRepoCreateDefaultsTrend(t *testing.T) {
	repo, mock := newMockRepo(t)
	createdAt := time.Now().UTC()
	analysis := Analysis{
		ID:              "analysis-1",
		DocumentID:      "doc-1",
		UserID:          "user-1",
		FileName:        "resume.pdf",
		Status:          StatusQueued,
		AnalysisVersion: "v1",
		Provider:        "openai",
		Model:           "gpt-4o-mini",
		CreatedAt:       createdAt,
	}

	mock.ExpectExec("INSERT INTO analyses").
		WithArgs("analysis-1", "doc-1", "user-1", "resume.pdf", StatusQueued, "v1", "openai", "gpt-4o-mini", TrendNeutral, createdAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), analysis); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDDecodesResultAndScores(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(analysisColumnNames).AddRow(
		"analysis-1", "doc-1", "user-1", "resume.pdf", StatusCompleted, "v1", "openai", "gpt-4o-mini",
		[]byte(`{"experience":"Led a team","education":"BSc","skills":{"technical":["Go"],"soft":[],"tools":["Docker"]},"strengths":["Leader"],"weaknesses":[],"missingKeywords":[],"jobMatches":[]}`),
		27, 44, 36, 72, nil, TrendUp, 30,
		nil, nil, nil, now, now, now, now,
	)
	mock.ExpectQuery("SELECT id, document_id").WithArgs("analysis-1").WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), "analysis-1")
	require.NoError(t, err)

	require.NotNil(t, got.Scores)
	assert.Equal(t, scoring.Scores{ATS: 27, Clarity: 44, Overall: 36}, *got.Scores)
	require.NotNil(t, got.ReportedATSScore)
	assert.Equal(t, 72, *got.ReportedATSScore)
	assert.Nil(t, got.ReportedClarityScore)
	assert.Equal(t, TrendUp, got.Trend)
	assert.Equal(t, 30, got.PreviousScore)
	require.NotNil(t, got.Result)
	assert.Equal(t, []string{"Go", "Docker"}, got.Result.AllSkills())
	assert.NotNil(t, got.CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT id, document_id").WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPGRepoTransitionAppliesUpdate(t *testing.T) {
	repo, mock := newMockRepo(t)
	started := time.Now().UTC()

	mock.ExpectExec("UPDATE analyses").
		WithArgs(StatusProcessing, nil, nil, nil, nil, nil, nil, "", nil, nil, nil, nil, started, nil, "analysis-1", StatusQueued).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Transition(context.Background(), "analysis-1", StatusQueued, StatusProcessing, Update{StartedAt: &started})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepoTransitionWritesScores(t *testing.T) {
	repo, mock := newMockRepo(t)
	completed := time.Now().UTC()
	previous := 30

	mock.ExpectExec("UPDATE analyses").
		WithArgs(StatusCompleted, sqlmock.AnyArg(), 27, 44, 36, nil, nil, TrendUp, 30, nil, nil, nil, nil, completed, "analysis-1", StatusProcessing).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Transition(context.Background(), "analysis-1", StatusProcessing, StatusCompleted, Update{
		Result:        &Result{},
		Scores:        &scoring.Scores{ATS: 27, Clarity: 44, Overall: 36},
		Trend:         TrendUp,
		PreviousScore: &previous,
		CompletedAt:   &completed,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepoTransitionStaleStatus(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE analyses").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM analyses").
		WithArgs("analysis-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(StatusCompleted))

	err := repo.Transition(context.Background(), "analysis-1", StatusProcessing, StatusFailed, Update{})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepoTransitionMissingRow(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE analyses").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM analyses").WithArgs("gone").WillReturnError(sql.ErrNoRows)

	err := repo.Transition(context.Background(), "gone", StatusQueued, StatusProcessing, Update{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPGRepoTransitionRejectsIllegalMove(t *testing.T) {
	repo, mock := newMockRepo(t)

	err := repo.Transition(context.Background(), "analysis-1", StatusCompleted, StatusProcessing, Update{})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet(), "no statement may run for an illegal transition")
}

func TestPGRepoListEscapesSearch(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("FROM analyses").
		WithArgs("user-1", `%100\%\_final%`, StatusCompleted, 100, 0).
		WillReturnRows(sqlmock.NewRows(analysisColumnNames))

	got, err := repo.List(context.Background(), "user-1", ListFilter{Search: " 100%_final ", Status: StatusCompleted})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepoStats(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count", "avg"}).AddRow(3, 61.5))

	stats, err := repo.Stats(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 3, AverageATS: 61.5}, stats)
}

func TestPGRepoReassignUser(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("UPDATE analyses SET user_id").
		WithArgs("user-1", "guest:abc").
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.ReassignUser(context.Background(), "guest:abc", "user-1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestPGRepoPropagatesDriverErrors(t *testing.T) {
	repo, mock := newMockRepo(t)
	boom := errors.New("connection lost")
	mock.ExpectQuery("ORDER BY created_at DESC LIMIT 1").WithArgs("user-1").WillReturnError(boom)

	_, err := repo.Latest(context.Background(), "user-1")
	assert.ErrorIs(t, err, boom)
}
