// Package memory implements a fixed in-memory blob Store for tests.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path"

	"resultsdash/internal/blob/core"
)

// Store serves a fixed set of objects from memory.
type Store struct {
	objs map[string][]byte
}

// New returns a store holding a private copy of objects.
func New(objects map[string][]byte) *Store {
	objs := make(map[string][]byte, len(objects))
	for k, v := range objects {
		objs[k] = append([]byte(nil), v...)
	}
	return &Store{objs: objs}
}

// Driver returns the blob driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverMemory }

// Get returns object metadata and a reader over its content.
func (s *Store) Get(_ context.Context, key string) (core.Info, io.ReadCloser, error) {
	data, ok := s.objs[key]
	if !ok {
		return core.Info{}, nil, fmt.Errorf("blob %s: %w", key, core.ErrNotFound)
	}
	info := core.Info{
		Key:         key,
		Size:        int64(len(data)),
		ContentType: mime.TypeByExtension(path.Ext(key)),
	}
	return info, io.NopCloser(bytes.NewReader(data)), nil
}
