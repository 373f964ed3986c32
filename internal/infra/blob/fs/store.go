package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"resultsdash/internal/blob/core"
)

// Store implements core.Store over files under a root directory. Keys are
// slash-separated paths relative to the root.
type Store struct {
	root string
}

// New returns a filesystem store reading from root, which must be an existing directory.
func New(root string) (*Store, error) {
	if root == "" {
		root = "./data"
	}
	st, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("blob root: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("blob root %s is not a directory", root)
	}
	return &Store{root: root}, nil
}

func (s *Store) Driver() core.Driver { return core.DriverFilesystem }

// sanitizeKey ensures key doesn't escape root and forbids path traversal and absolute paths.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key contains '..'")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid absolute key")
	}
	return filepath.ToSlash(filepath.Clean(key)), nil
}

func (s *Store) Get(_ context.Context, key string) (core.Info, io.ReadCloser, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return core.Info{}, nil, err
	}
	path := filepath.Join(s.root, filepath.FromSlash(k))
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return core.Info{}, nil, fmt.Errorf("blob %s: %w", key, core.ErrNotFound)
	}
	if err != nil {
		return core.Info{}, nil, err
	}
	st, err := file.Stat()
	if err == nil && st.IsDir() {
		err = fmt.Errorf("blob %s is a directory", key)
	}
	if err != nil {
		_ = file.Close()
		return core.Info{}, nil, err
	}
	return core.Info{
		Key:          k,
		Size:         st.Size(),
		ContentType:  mime.TypeByExtension(filepath.Ext(path)),
		LastModified: st.ModTime().UTC(),
	}, file, nil
}
