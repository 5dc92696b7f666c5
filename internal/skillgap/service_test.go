package skillgap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUser = "user-1"

func newSeededService(t *testing.T, repo Repo) *Service {
	t.Helper()
	svc := NewService(repo)
	svc.Now = func() time.Time { return time.Date(2026, 3, 4, 15, 5, 0, 0, time.UTC) }
	require.NoError(t, svc.EnsureCatalog(context.Background()))
	return svc
}

func gapNames(gaps []Gap) []string {
	out := make([]string, 0, len(gaps))
	for _, g := range gaps {
		out = append(out, g.Name)
	}
	return out
}

func TestAnalyzeDefaults(t *testing.T) {
	svc := newSeededService(t, NewMemoryRepo())

	report, err := svc.Analyze(context.Background(), testUser)
	require.NoError(t, err)

	assert.Equal(t, []string{"TypeScript", "AWS Cloud Services", "GraphQL", "Docker & Kubernetes"}, gapNames(report.Skills))
	assert.Equal(t, 55, report.Skills[0].Gap)
	assert.Equal(t, 40, report.Skills[3].Gap)
	assert.Equal(t, Summary{
		SkillsToImprove:        4,
		CriticalGaps:           2,
		MediumPriority:         2,
		CoursesAvailable:       6,
		EstimatedLearningHours: 108,
	}, report.Summary)
}

func TestAnalyzeUsesUserLevels(t *testing.T) {
	svc := newSeededService(t, NewMemoryRepo())
	ctx := context.Background()

	_, err := svc.SetLevel(ctx, testUser, "TypeScript", 90, 85)
	require.NoError(t, err)

	report, err := svc.Analyze(ctx, testUser)
	require.NoError(t, err)

	// A met requirement floors at zero and drops behind the open High gap.
	assert.Equal(t, []string{"AWS Cloud Services", "TypeScript", "GraphQL", "Docker & Kubernetes"}, gapNames(report.Skills))
	assert.Equal(t, 0, report.Skills[1].Gap)
	assert.Equal(t, 90, report.Skills[1].CurrentLevel)
	assert.Equal(t, 3, report.Summary.SkillsToImprove)
	assert.Equal(t, 1, report.Summary.CriticalGaps)
	assert.Equal(t, 88, report.Summary.EstimatedLearningHours)

	other, err := svc.Analyze(ctx, "someone-else")
	require.NoError(t, err)
	assert.Equal(t, "TypeScript", other.Skills[0].Name)
	assert.Equal(t, 30, other.Skills[0].CurrentLevel)
}

func TestRankTieBreaks(t *testing.T) {
	gaps := []Gap{
		{Name: "b", Importance: ImportanceLow, Gap: 90, DemandScore: 99},
		{Name: "d", Importance: ImportanceMedium, Gap: 10, DemandScore: 50},
		{Name: "c", Importance: ImportanceMedium, Gap: 10, DemandScore: 50},
		{Name: "a", Importance: ImportanceMedium, Gap: 10, DemandScore: 60},
		{Name: "e", Importance: ImportanceMedium, Gap: 20, DemandScore: 1},
	}
	Rank(gaps)
	assert.Equal(t, []string{"e", "a", "c", "d", "b"}, gapNames(gaps))
}

func TestAnalyzeSortsCoursesByRating(t *testing.T) {
	repo := NewMemoryRepo()
	require.NoError(t, repo.Seed(context.Background(), []Skill{{
		Name:          "Go",
		Importance:    ImportanceHigh,
		RequiredLevel: 70,
		Courses: []Course{
			{Title: "low", Rating: 3.9},
			{Title: "high", Rating: 4.9},
			{Title: "mid", Rating: 4.2},
		},
	}}))
	svc := NewService(repo)

	report, err := svc.Analyze(context.Background(), testUser)
	require.NoError(t, err)
	require.Len(t, report.Skills, 1)
	titles := []string{}
	for _, c := range report.Skills[0].Courses {
		titles = append(titles, c.Title)
	}
	assert.Equal(t, []string{"high", "mid", "low"}, titles)
}

func TestSetLevelValidation(t *testing.T) {
	svc := newSeededService(t, NewMemoryRepo())
	ctx := context.Background()

	_, err := svc.SetLevel(ctx, testUser, "TypeScript", -1, 50)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.SetLevel(ctx, testUser, "TypeScript", 10, 101)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.SetLevel(ctx, "", "TypeScript", 10, 50)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.SetLevel(ctx, testUser, "COBOL", 10, 50)
	assert.ErrorIs(t, err, ErrNotFound)

	gap, err := svc.SetLevel(ctx, testUser, " GraphQL ", 0, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, gap.Gap)
	assert.Len(t, gap.Courses, 1)
}

func TestEnsureCatalogIsIdempotent(t *testing.T) {
	repo := NewMemoryRepo()
	svc := newSeededService(t, repo)
	require.NoError(t, svc.EnsureCatalog(context.Background()))

	skills, err := repo.Skills(context.Background())
	require.NoError(t, err)
	assert.Len(t, skills, 4)
}

func TestMemoryReassignKeepsTargetLevels(t *testing.T) {
	repo := NewMemoryRepo()
	svc := newSeededService(t, repo)
	ctx := context.Background()

	_, err := svc.SetLevel(ctx, "guest:abc", "TypeScript", 10, 80)
	require.NoError(t, err)
	_, err = svc.SetLevel(ctx, "guest:abc", "GraphQL", 20, 70)
	require.NoError(t, err)
	_, err = svc.SetLevel(ctx, testUser, "TypeScript", 50, 90)
	require.NoError(t, err)

	moved, err := svc.ReassignUser(ctx, "guest:abc", testUser)
	require.NoError(t, err)
	assert.Equal(t, int64(1), moved)

	levels, err := repo.UserLevels(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, 50, levels["TypeScript"].Current)
	assert.Equal(t, 20, levels["GraphQL"].Current)

	guest, err := repo.UserLevels(ctx, "guest:abc")
	require.NoError(t, err)
	assert.Empty(t, guest)
}
