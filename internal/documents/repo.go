package documents

import (
	"context"
	"time"
)

// DocumentsRepo defines persistence operations for documents.
type DocumentsRepo interface {
	Create(ctx context.Context, doc Document) error
	GetCurrentByUser(ctx context.Context, userID, kind string) (Document, error)
	GetByID(ctx context.Context, userID, documentID string) (Document, error)
	UpdateExtraction(ctx context.Context, userID, documentID, extractedKey string, extractedAt time.Time) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error)
	// ReassignUser moves every document owned by fromUserID to toUserID and
	// reports how many rows moved.
	ReassignUser(ctx context.Context, fromUserID, toUserID string) (int64, error)
}
