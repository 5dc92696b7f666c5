package account

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-insights/internal/analyses"
	"resume-insights/internal/documents"
	"resume-insights/internal/shared/server/middleware"
	"resume-insights/internal/skillgap"
)

const (
	testUser    = "user-1"
	testGuestID = "0b6f2a59-8f51-4a53-9d0c-2f0f6d1c3e11"
	guestUserID = middleware.GuestPrefix + testGuestID
)

type claimFixture struct {
	router   *gin.Engine
	docs     *documents.MemoryRepo
	analyses *analyses.MemoryRepo
	skills   *skillgap.MemoryRepo
}

func setupClaimRouter(t *testing.T, userID string, guest bool) claimFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := claimFixture{
		docs:     documents.NewMemoryRepo(),
		analyses: analyses.NewMemoryRepo(),
		skills:   skillgap.NewMemoryRepo(),
	}
	catalog, err := skillgap.DefaultCatalog()
	require.NoError(t, err)
	require.NoError(t, f.skills.Seed(context.Background(), catalog))

	f.router = gin.New()
	f.router.Use(func(c *gin.Context) {
		middleware.SetIdentity(c, userID, guest)
		c.Next()
	})
	NewHandler(NewService(nil, f.docs, f.analyses, f.skills)).RegisterRoutes(f.router.Group("/api/v1"))
	return f
}

func (f claimFixture) claim(guestHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/account/claim-guest", nil)
	if guestHeader != "" {
		req.Header.Set("X-Guest-Id", guestHeader)
	}
	resp := httptest.NewRecorder()
	f.router.ServeHTTP(resp, req)
	return resp
}

func seedGuest(t *testing.T, f claimFixture) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, f.docs.Create(ctx, documents.Document{
		ID: "doc-1", UserID: guestUserID, FileName: "resume.pdf", MimeType: "application/pdf", SizeBytes: 123, CreatedAt: now,
	}))
	require.NoError(t, f.analyses.Create(ctx, analyses.Analysis{
		ID: "analysis-1", DocumentID: "doc-1", UserID: guestUserID, Status: analyses.StatusCompleted, CreatedAt: now,
	}))
	require.NoError(t, f.skills.UpsertLevel(ctx, guestUserID, skillgap.Level{Skill: "GraphQL", Current: 40, Required: 70}))
}

func TestClaimGuestMigratesData(t *testing.T) {
	f := setupClaimRouter(t, testUser, false)
	seedGuest(t, f)
	ctx := context.Background()

	resp := f.claim(testGuestID)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.JSONEq(t, `{"migratedDocuments":1,"migratedAnalyses":1,"migratedSkillLevels":1}`, resp.Body.String())

	docs, err := f.docs.ListByUser(ctx, testUser, 10, 0)
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	list, err := f.analyses.List(ctx, testUser, analyses.ListFilter{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	levels, err := f.skills.UserLevels(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, 40, levels["GraphQL"].Current)
}

func TestClaimGuestIdempotentAndIsolated(t *testing.T) {
	f := setupClaimRouter(t, testUser, false)
	seedGuest(t, f)

	require.Equal(t, http.StatusOK, f.claim(testGuestID).Code)
	resp := f.claim(testGuestID)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"migratedDocuments":0,"migratedAnalyses":0,"migratedSkillLevels":0}`, resp.Body.String())

	docs, err := f.docs.ListByUser(context.Background(), "user-2", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestClaimGuestUppercaseHeaderMatchesGuestOwner(t *testing.T) {
	f := setupClaimRouter(t, testUser, false)
	seedGuest(t, f)

	resp := f.claim(strings.ToUpper(testGuestID))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"migratedDocuments":1`)
}

func TestClaimGuestRejects(t *testing.T) {
	guest := setupClaimRouter(t, guestUserID, true)
	assert.Equal(t, http.StatusUnauthorized, guest.claim(testGuestID).Code)

	f := setupClaimRouter(t, testUser, false)
	assert.Equal(t, http.StatusBadRequest, f.claim("").Code)
	resp := f.claim("not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), `"rule":"uuid"`)
}

func TestClaimGuestUsesTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE documents SET user_id").WithArgs(testUser, guestUserID).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE analyses SET user_id").WithArgs(testUser, guestUserID).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	svc := NewService(db, nil, nil, nil)
	res, err := svc.ClaimGuest(context.Background(), guestUserID, testUser)
	require.NoError(t, err)
	assert.Equal(t, ClaimResult{MigratedDocuments: 2, MigratedAnalyses: 3}, res)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimGuestRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE documents SET user_id").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE analyses SET user_id").WillReturnError(errors.New("deadlock"))
	mock.ExpectRollback()

	svc := NewService(db, nil, nil, nil)
	_, err = svc.ClaimGuest(context.Background(), guestUserID, testUser)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "claim analyses")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimGuestMovesSkillLevelsInSameTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE documents SET user_id").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE analyses SET user_id").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE user_skills SET user_id").WithArgs(testUser, guestUserID, testUser).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM user_skills").WithArgs(guestUserID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := NewService(db, nil, nil, skillgap.NewSQLRepo(db, skillgap.DialectPostgres))
	res, err := svc.ClaimGuest(context.Background(), guestUserID, testUser)
	require.NoError(t, err)
	assert.Equal(t, ClaimResult{MigratedDocuments: 1, MigratedAnalyses: 1, MigratedSkillLevels: 2}, res)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimGuestRollsBackWhenSkillLevelsFail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE documents SET user_id").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE analyses SET user_id").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE user_skills SET user_id").WillReturnError(errors.New("conflict"))
	mock.ExpectRollback()

	svc := NewService(db, nil, nil, skillgap.NewSQLRepo(db, skillgap.DialectPostgres))
	_, err = svc.ClaimGuest(context.Background(), guestUserID, testUser)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "claim skill levels")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimGuestSeparateSkillStoreAfterCommit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE documents SET user_id").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE analyses SET user_id").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	skills := skillgap.NewMemoryRepo()
	require.NoError(t, skills.Seed(context.Background(), []skillgap.Skill{{Name: "GraphQL", RequiredLevel: 70}}))
	require.NoError(t, skills.UpsertLevel(context.Background(), guestUserID, skillgap.Level{Skill: "GraphQL", Current: 40, Required: 70}))

	svc := NewService(db, nil, nil, skills)
	res, err := svc.ClaimGuest(context.Background(), guestUserID, testUser)
	require.NoError(t, err)
	assert.Equal(t, 1, res.MigratedSkillLevels)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimGuestValidatesIDs(t *testing.T) {
	svc := NewService(nil, documents.NewMemoryRepo(), analyses.NewMemoryRepo(), nil)
	_, err := svc.ClaimGuest(context.Background(), " ", testUser)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
