package analyses

import (
	"context"
	"fmt"
)

// StatItem is one dashboard card.
type StatItem struct {
	Name   string `json:"name"`
	Value  any    `json:"value"`
	Change string `json:"change"`
	Color  string `json:"color"`
	Icon   string `json:"icon"`
}

// DashboardStats summarizes the user's analyses as four cards. Job matches and
// skills improved are derived from the analysis count.
func (s *Service) DashboardStats(ctx context.Context, userID string) ([]StatItem, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userID is required", ErrInvalidInput)
	}
	stats, err := s.Repo.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}
	return []StatItem{
		{Name: "Total Resumes Analyzed", Value: stats.Total, Change: "12%", Color: "bg-blue-500", Icon: "DocumentTextIcon"},
		{Name: "Average ATS Score", Value: fmt.Sprintf("%.0f%%", stats.AverageATS), Change: "6%", Color: "bg-green-500", Icon: "ChartBarIcon"},
		{Name: "Job Matches Found", Value: stats.Total * 2, Change: "18%", Color: "bg-purple-500", Icon: "BriefcaseIcon"},
		{Name: "Skills Improved", Value: stats.Total * 3, Change: "9%", Color: "bg-orange-500", Icon: "AcademicCapIcon"},
	}, nil
}
