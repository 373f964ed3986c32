package fs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"resultsdash/internal/blob/core"
)

func newTempStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store, dir
}

func TestStore_Get(t *testing.T) {
	store, dir := newTempStore(t)
	if err := os.MkdirAll(filepath.Join(dir, "alevels"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "alevels", "results.csv"), []byte("a,b\n1,2\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	info, rc, err := store.Get(context.Background(), "alevels/./results.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer func() { _ = rc.Close() }()
	body, _ := io.ReadAll(rc)
	if string(body) != "a,b\n1,2\n" || info.Size != 8 || info.Key != "alevels/results.csv" {
		t.Fatalf("unexpected object %q %+v", body, info)
	}
	if info.LastModified.IsZero() {
		t.Fatalf("unexpected derived info %+v", info)
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	info, rc2, err := store.Get(context.Background(), "manifest.json")
	if err != nil {
		t.Fatalf("get json: %v", err)
	}
	_ = rc2.Close()
	if info.ContentType != "application/json" {
		t.Fatalf("content type not derived from extension: %+v", info)
	}
	if store.Driver() != core.DriverFilesystem {
		t.Fatalf("unexpected driver %s", store.Driver())
	}
}

func TestStore_MissingKeyAndDirectory(t *testing.T) {
	store, dir := newTempStore(t)
	if _, _, err := store.Get(context.Background(), "missing.csv"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "folder"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if _, _, err := store.Get(context.Background(), "folder"); err == nil || errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected directory error, got %v", err)
	}
}

func TestSanitizeKeyErrors(t *testing.T) {
	store, _ := newTempStore(t)
	for _, key := range []string{"", "  ", "../escape", "/abs", "a/../b"} {
		if _, err := sanitizeKey(key); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
		if _, _, err := store.Get(context.Background(), key); err == nil {
			t.Fatalf("expected get error for key %q", key)
		}
	}
}

func TestNewRejectsBadRoot(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "afile")
	if err := os.WriteFile(filePath, []byte("x"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := New(filePath); err == nil {
		t.Fatalf("expected error when root is a file")
	}
	if _, err := New(filepath.Join(dir, "missing")); err == nil {
		t.Fatalf("expected error when root does not exist")
	}
}
