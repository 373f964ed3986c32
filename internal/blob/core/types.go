// Package core defines the read-only object store the dataset source is fetched from.
package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete blob storage backend implementation.
type Driver string

const (
	// DriverFilesystem represents the local filesystem implementation.
	DriverFilesystem Driver = "fs"
	// DriverS3 represents an S3 / MinIO compatible implementation.
	DriverS3 Driver = "s3"
	// DriverMemory represents the in-memory implementation used in tests.
	DriverMemory Driver = "memory"
)

// Info describes a stored object.
type Info struct {
	Key          string
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
}

// Store reads objects by key.
type Store interface {
	// Get returns the object contents and metadata. Missing keys wrap ErrNotFound.
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Driver() Driver
}

// ErrNotFound is wrapped by every driver when a key does not exist.
var ErrNotFound = errors.New("blobstore: not found")
