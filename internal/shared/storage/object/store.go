// Package object stores uploaded files and derived artifacts by key.
package object

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrTooLarge is returned by ReadAll when an object exceeds the read limit.
var ErrTooLarge = errors.New("object exceeds read limit")

// ObjectStore defines the contract for saving and retrieving binary objects.
type ObjectStore interface {
	// Save stores r under a fresh key in the user's namespace.
	Save(ctx context.Context, userID string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	// SaveWithKey stores r at an exact key, replacing any previous object.
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	// Provider names the backend ("local", "s3") for bookkeeping.
	Provider() string
}

// ReadAll opens storageKey and reads at most limit bytes. limit <= 0 means no limit.
func ReadAll(ctx context.Context, store ObjectStore, storageKey string, limit int64) ([]byte, error) {
	rc, err := store.Open(ctx, storageKey)
	if err != nil {
		return nil, fmt.Errorf("open object: %w", err)
	}
	defer rc.Close()

	var r io.Reader = rc
	if limit > 0 {
		r = io.LimitReader(rc, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}
