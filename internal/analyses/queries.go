package analyses

import (
	"context"
	"fmt"
	"strings"

	"resume-insights/internal/scoring"
)

const notProvided = "Not provided"

// Get returns one of the user's analyses.
func (s *Service) Get(ctx context.Context, userID, analysisID string) (Analysis, error) {
	if analysisID == "" {
		return Analysis{}, fmt.Errorf("%w: analysisID is required", ErrInvalidInput)
	}
	a, err := s.Repo.GetByID(ctx, analysisID)
	if err != nil {
		return Analysis{}, err
	}
	if a.UserID != userID {
		return Analysis{}, ErrNotFound
	}
	return a, nil
}

// List returns the user's analyses newest-first.
func (s *Service) List(ctx context.Context, userID string, filter ListFilter) ([]Analysis, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userID is required", ErrInvalidInput)
	}
	switch filter.Status {
	case "", StatusQueued, StatusProcessing, StatusCompleted, StatusFailed:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, filter.Status)
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	filter.Limit = min(filter.Limit, maxListLimit)
	filter.Offset = max(filter.Offset, 0)
	return s.Repo.List(ctx, userID, filter)
}

// Latest returns the user's newest analysis in any status.
func (s *Service) Latest(ctx context.Context, userID string) (Analysis, error) {
	if userID == "" {
		return Analysis{}, fmt.Errorf("%w: userID is required", ErrInvalidInput)
	}
	return s.Repo.Latest(ctx, userID)
}

// CurrentView is the latest completed analysis flattened for display.
type CurrentView struct {
	AnalysisID      string   `json:"analysisId"`
	FileName        string   `json:"fileName"`
	ATSScore        int      `json:"atsScore"`
	ClarityScore    int      `json:"clarityScore"`
	OverallScore    int      `json:"overallScore"`
	Skills          []string `json:"skills"`
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	MissingKeywords []string `json:"missingKeywords"`
	Education       string   `json:"education"`
	Experience      string   `json:"experience"`
	Trend           string   `json:"trend"`
	PreviousScore   int      `json:"previousScore"`
}

// Current returns the user's latest completed analysis as a CurrentView.
func (s *Service) Current(ctx context.Context, userID string) (CurrentView, error) {
	if userID == "" {
		return CurrentView{}, fmt.Errorf("%w: userID is required", ErrInvalidInput)
	}
	a, err := s.Repo.PreviousCompleted(ctx, userID, "")
	if err != nil {
		return CurrentView{}, err
	}
	return toCurrentView(a), nil
}

func toCurrentView(a Analysis) CurrentView {
	view := CurrentView{
		AnalysisID:      a.ID,
		FileName:        a.FileName,
		Skills:          []string{},
		Strengths:       []string{},
		Weaknesses:      []string{},
		MissingKeywords: []string{},
		Education:       notProvided,
		Experience:      notProvided,
		Trend:           a.Trend,
		PreviousScore:   a.PreviousScore,
	}
	if view.Trend == "" {
		view.Trend = TrendNeutral
	}
	if a.Scores != nil {
		view.ATSScore = a.Scores.ATS
		view.ClarityScore = a.Scores.Clarity
		view.OverallScore = a.Scores.Overall
	}
	if r := a.Result; r != nil {
		view.Skills = r.AllSkills()
		view.Strengths = orEmpty(r.Strengths)
		view.Weaknesses = orEmpty(r.Weaknesses)
		view.MissingKeywords = orEmpty(r.MissingKeywords)
		if strings.TrimSpace(r.Education) != "" {
			view.Education = r.Education
		}
		if strings.TrimSpace(r.Experience) != "" {
			view.Experience = r.Experience
		}
	}
	return view
}

// RecentItem is one row of the dashboard's recent list.
type RecentItem struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Status string `json:"status"`
	Date   string `json:"date"`
}

const (
	recentLimit      = 5
	recentDateLayout = "Jan 02, 2006 03:04 PM"
)

// Recent returns the user's last five analyses.
func (s *Service) Recent(ctx context.Context, userID string) ([]RecentItem, error) {
	list, err := s.List(ctx, userID, ListFilter{Limit: recentLimit})
	if err != nil {
		return nil, err
	}
	out := make([]RecentItem, 0, len(list))
	for _, a := range list {
		item := RecentItem{
			ID:     a.ID,
			Name:   a.FileName,
			Status: titleCase(a.Status),
			Date:   a.CreatedAt.Format(recentDateLayout),
		}
		if a.Scores != nil {
			item.Score = a.Scores.ATS
		}
		out = append(out, item)
	}
	return out, nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// ScoreDraft scores a client-supplied record without storing anything.
func (s *Service) ScoreDraft(in scoring.Input) (scoring.Scores, scoring.Breakdown) {
	return scoring.Explain(in)
}
