package storage_test

import (
	"github.com/depositry/backend/internal/infrastructure/records"
	"github.com/depositry/backend/internal/infrastructure/storage"
)

// Ensure the storage backends implement records.ObjectStorage. These
// assertions live in an external test package to avoid an import cycle
// between storage and the records package's tests.
var (
	_ records.ObjectStorage = (*storage.MemoryStorage)(nil)
	_ records.ObjectStorage = (*storage.S3Storage)(nil)
)
