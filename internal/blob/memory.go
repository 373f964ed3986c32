package blob

import (
	memorystore "resultsdash/internal/infra/blob/memory"
)

// NewMemory returns an in-memory blob.Store holding objects, for tests.
func NewMemory(objects map[string][]byte) Store { return memorystore.New(objects) }
