package analyses

import "context"

// Repo defines persistence operations for analyses.
type Repo interface {
	Create(ctx context.Context, analysis Analysis) error
	GetByID(ctx context.Context, analysisID string) (Analysis, error)
	// Transition moves an analysis from one status to another and applies u.
	// It fails with ErrInvalidTransition when the stored status is not from.
	Transition(ctx context.Context, analysisID, from, to string, u Update) error
	List(ctx context.Context, userID string, filter ListFilter) ([]Analysis, error)
	Latest(ctx context.Context, userID string) (Analysis, error)
	// PreviousCompleted returns the user's most recently completed analysis
	// other than excludeID.
	PreviousCompleted(ctx context.Context, userID, excludeID string) (Analysis, error)
	Stats(ctx context.Context, userID string) (Stats, error)
	ReassignUser(ctx context.Context, fromUserID, toUserID string) (int64, error)
}
