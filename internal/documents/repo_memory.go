package documents

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of DocumentsRepo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string][]Document // userID -> documents in upload order
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string][]Document),
	}
}

// Create appends the document to the user's uploads.
func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[doc.UserID] = append(r.data[doc.UserID], doc)
	return nil
}

// GetCurrentByUser returns the most recent document for a user. An empty kind
// matches any kind.
func (r *MemoryRepo) GetCurrentByUser(ctx context.Context, userID, kind string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	docs := r.data[userID]
	for i := len(docs) - 1; i >= 0; i-- {
		if kind == "" || docs[i].Kind == kind {
			return docs[i], nil
		}
	}
	return Document{}, ErrNotFound
}

// GetByID returns a document by ID for a user.
func (r *MemoryRepo) GetByID(ctx context.Context, userID, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, doc := range r.data[userID] {
		if doc.ID == documentID {
			return doc, nil
		}
	}
	return Document{}, ErrNotFound
}

// UpdateExtraction records the extracted text key once; later calls keep the
// first value.
func (r *MemoryRepo) UpdateExtraction(ctx context.Context, userID, documentID, extractedKey string, extractedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	docs := r.data[userID]
	for i := range docs {
		if docs[i].ID != documentID {
			continue
		}
		if docs[i].ExtractedTextKey == "" {
			docs[i].ExtractedTextKey = extractedKey
			docs[i].ExtractedAt = &extractedAt
		}
		return nil
	}
	return ErrNotFound
}

// ListByUser returns documents for a user, newest first, honoring limit/offset.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	offset = max(offset, 0)
	limit = max(limit, 0)

	r.mu.RLock()
	docs := append([]Document(nil), r.data[userID]...)
	r.mu.RUnlock()

	if offset >= len(docs) {
		return []Document{}, nil
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})

	end := len(docs)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return docs[offset:end], nil
}

// ReassignUser moves documents between owners.
func (r *MemoryRepo) ReassignUser(ctx context.Context, fromUserID, toUserID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	moved := r.data[fromUserID]
	if len(moved) == 0 {
		return 0, nil
	}
	for i := range moved {
		moved[i].UserID = toUserID
	}
	r.data[toUserID] = append(r.data[toUserID], moved...)
	delete(r.data, fromUserID)
	return int64(len(moved)), nil
}
