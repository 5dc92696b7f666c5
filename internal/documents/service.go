package documents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"resume-insights/internal/extract"
	"resume-insights/internal/shared/storage/object"
	"resume-insights/internal/shared/telemetry"
)

// MaxUploadSize caps a single upload.
const MaxUploadSize = 10 << 20

// Service contains business logic for documents.
type Service struct {
	Store object.ObjectStore
	Repo  DocumentsRepo
}

// Upload validates the file for its kind, saves it to object storage and
// records the document. Résumés must be PDF; job descriptions may be PDF,
// DOCX or plain text.
func (s *Service) Upload(ctx context.Context, userID, fileName string, r io.Reader, kind string) (Document, error) {
	fileName = strings.TrimSpace(fileName)
	if userID == "" || fileName == "" {
		return Document{}, ErrInvalidInput
	}
	if kind == "" {
		kind = KindResume
	}
	if kind != KindResume && kind != KindJobDescription {
		return Document{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, kind)
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return Document{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return Document{}, fmt.Errorf("%w: empty file", ErrInvalidInput)
	}
	if len(data) > MaxUploadSize {
		return Document{}, fmt.Errorf("%w: file exceeds 10MB", ErrInvalidInput)
	}

	mimeType := extract.NormalizeMimeType(http.DetectContentType(data), fileName, data)
	if err := checkKind(kind, fileName, mimeType); err != nil {
		return Document{}, err
	}

	storageKey, size, _, err := s.Store.Save(ctx, userID, fileName, bytes.NewReader(data))
	if err != nil {
		return Document{}, fmt.Errorf("save upload: %w", err)
	}

	doc := Document{
		ID:              uuid.NewString(),
		UserID:          userID,
		Kind:            kind,
		FileName:        fileName,
		MimeType:        mimeType,
		SizeBytes:       size,
		StorageProvider: s.Store.Provider(),
		StorageKey:      storageKey,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		return Document{}, err
	}

	telemetry.Info("document.uploaded", map[string]any{
		"user_id":     userID,
		"document_id": doc.ID,
		"kind":        kind,
		"mime_type":   mimeType,
		"size_bytes":  size,
	})
	return doc, nil
}

func checkKind(kind, fileName, mimeType string) error {
	ext := strings.ToLower(filepath.Ext(fileName))
	if kind == KindResume {
		if ext != ".pdf" || mimeType != extract.MimePDF {
			return fmt.Errorf("%w: only PDF résumés are accepted", ErrUnsupportedType)
		}
		return nil
	}
	switch mimeType {
	case extract.MimePDF, extract.MimeDOCX, extract.MimeText:
		return nil
	}
	return fmt.Errorf("%w: only PDF, DOCX, TXT are accepted", ErrUnsupportedType)
}

// Current returns the latest document for a user.
func (s *Service) Current(ctx context.Context, userID string) (Document, error) {
	if userID == "" {
		return Document{}, ErrInvalidInput
	}
	return s.Repo.GetCurrentByUser(ctx, userID, "")
}

// GetByID returns one of the user's documents.
func (s *Service) GetByID(ctx context.Context, userID, documentID string) (Document, error) {
	if userID == "" || documentID == "" {
		return Document{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, userID, documentID)
}

// List returns the user's documents newest-first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}
