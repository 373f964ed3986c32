package source

import (
	"context"
	"fmt"
	"io"

	"resultsdash/internal/blob"
)

// BlobLoader reads the source file from a blob store key.
type BlobLoader struct {
	store  blob.Store
	key    string
	format string
}

// NewBlobLoader returns a loader for key in store.
func NewBlobLoader(store blob.Store, key, format string) *BlobLoader {
	return &BlobLoader{store: store, key: key, format: format}
}

// Load fetches and decodes the object. Missing keys wrap blob.ErrNotFound.
func (l *BlobLoader) Load(ctx context.Context) (Table, error) {
	_, rc, err := l.store.Get(ctx, l.key)
	if err != nil {
		return Table{}, fmt.Errorf("get %s: %w", l.key, err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return Table{}, fmt.Errorf("read %s: %w", l.key, err)
	}
	return Decode(resolveFormat(l.format, l.key), data)
}

// Describe implements Loader.
func (l *BlobLoader) Describe() string {
	return fmt.Sprintf("%s %s", l.store.Driver(), l.key)
}

// Close implements Loader.
func (l *BlobLoader) Close() error { return nil }
