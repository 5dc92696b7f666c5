package users

import "context"

type Repo interface {
	// Create inserts a new user and fails with ErrUsernameTaken on a duplicate
	// username.
	Create(ctx context.Context, user User) error
	// Upsert creates or refreshes an externally authenticated user.
	Upsert(ctx context.Context, user User) error
	GetByID(ctx context.Context, userID string) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
}
