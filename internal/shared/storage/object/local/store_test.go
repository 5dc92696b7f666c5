package local

import (
	"context"
	"io"
	"strings"
	"testing"

	"resume-insights/internal/shared/storage/object"
)

func TestSaveOpenRoundTrip(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	key, size, mime, err := store.Save(ctx, "user-1", "resume.pdf", strings.NewReader("%PDF-1.7 body"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if size != int64(len("%PDF-1.7 body")) {
		t.Fatalf("unexpected size %d", size)
	}
	if mime != "application/pdf" {
		t.Fatalf("unexpected mime %s", mime)
	}

	data, err := object.ReadAll(ctx, store, key, 0)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "%PDF-1.7 body" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestSaveWithKeyOverwrites(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	if _, err := store.SaveWithKey(ctx, "a/b.txt", "text/plain", strings.NewReader("one")); err != nil {
		t.Fatalf("SaveWithKey: %v", err)
	}
	if _, err := store.SaveWithKey(ctx, "a/b.txt", "text/plain", strings.NewReader("two")); err != nil {
		t.Fatalf("SaveWithKey: %v", err)
	}
	rc, err := store.Open(ctx, "a/b.txt")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != "two" {
		t.Fatalf("expected overwrite, got %q", body)
	}
}

func TestRejectsTraversal(t *testing.T) {
	store := New(t.TempDir())
	if _, err := store.Open(context.Background(), "../secret"); err == nil {
		t.Fatalf("expected traversal to be rejected")
	}
	if _, err := store.SaveWithKey(context.Background(), "/abs/path", "", strings.NewReader("x")); err == nil {
		t.Fatalf("expected absolute key to be rejected")
	}
}

func TestReadAllLimit(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()
	if _, err := store.SaveWithKey(ctx, "big.txt", "", strings.NewReader("0123456789")); err != nil {
		t.Fatalf("SaveWithKey: %v", err)
	}
	if _, err := object.ReadAll(ctx, store, "big.txt", 5); err != object.ErrTooLarge {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}
