// Package blob re-exports the blob abstractions and selects a backend from
// configuration. Other packages depend on blob.Store, never on the infra
// implementations directly.
package blob

import (
	"resultsdash/internal/blob/core"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// Info describes stored object metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
)

// ErrNotFound is wrapped by every driver when a key is missing.
var ErrNotFound = core.ErrNotFound
