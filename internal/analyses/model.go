package analyses

import (
	"time"

	"resume-insights/internal/scoring"
)

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

const (
	TrendUp      = "up"
	TrendDown    = "down"
	TrendNeutral = "neutral"
)

// Analysis is one LLM-backed evaluation of an uploaded résumé.
type Analysis struct {
	ID              string          `json:"id"`
	DocumentID      string          `json:"documentId"`
	UserID          string          `json:"-"`
	FileName        string          `json:"fileName"`
	Status          string          `json:"status"`
	AnalysisVersion string          `json:"analysisVersion,omitempty"`
	Provider        string          `json:"provider,omitempty"`
	Model           string          `json:"model,omitempty"`
	Result          *Result         `json:"result,omitempty"`
	Scores          *scoring.Scores `json:"scores,omitempty"`
	// ReportedATSScore and ReportedClarityScore are the model's own numbers.
	// Scores holds the values shown to users.
	ReportedATSScore     *int       `json:"reportedAtsScore,omitempty"`
	ReportedClarityScore *int       `json:"reportedClarityScore,omitempty"`
	Trend                string     `json:"trend"`
	PreviousScore        int        `json:"previousScore"`
	ErrorCode            string     `json:"errorCode,omitempty"`
	ErrorMessage         string     `json:"errorMessage,omitempty"`
	ErrorRetryable       bool       `json:"errorRetryable,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	StartedAt            *time.Time `json:"startedAt,omitempty"`
	CompletedAt          *time.Time `json:"completedAt,omitempty"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// Terminal reports whether the analysis will not change status again.
func (a Analysis) Terminal() bool {
	return a.Status == StatusCompleted || a.Status == StatusFailed
}

// ListFilter narrows a history query.
type ListFilter struct {
	Search string
	Status string
	Limit  int
	Offset int
}

// Stats aggregates a user's analyses for the dashboard.
type Stats struct {
	Total      int
	AverageATS float64
}

// Update carries the fields written alongside a status transition. Nil fields
// are left unchanged.
type Update struct {
	Result               *Result
	Scores               *scoring.Scores
	ReportedATSScore     *int
	ReportedClarityScore *int
	Trend                string
	PreviousScore        *int
	ErrorCode            *string
	ErrorMessage         *string
	ErrorRetryable       *bool
	StartedAt            *time.Time
	CompletedAt          *time.Time
}
