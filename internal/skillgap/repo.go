package skillgap

import "context"

// Repo stores the catalogue and per-user levels.
type Repo interface {
	// Seed inserts or updates catalogue skills and their courses.
	Seed(ctx context.Context, skills []Skill) error
	// Skills returns the catalogue with courses attached, ordered by name.
	Skills(ctx context.Context) ([]Skill, error)
	UserLevels(ctx context.Context, userID string) (map[string]Level, error)
	UpsertLevel(ctx context.Context, userID string, level Level) error
	// ReassignUser moves levels between owners. Levels the target already
	// has are kept.
	ReassignUser(ctx context.Context, fromUserID, toUserID string) (int64, error)
}
