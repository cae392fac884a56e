package publication

import (
	"context"
	"io"
	"time"

	"github.com/depositry/backend/internal/domain/release"
	"github.com/google/uuid"
)

// MetadataProvider extracts the deposit metadata for a release.
// It is treated as a pure function from release to metadata.
type MetadataProvider interface {
	Extract(ctx context.Context, rel *release.Release) (Metadata, error)
}

// RecordService is the boundary to the records-management service.
// All mutating operations obtained through TxServices are enrolled in the
// surrounding unit of work; Read and LookupPersistentID are plain reads.
type RecordService interface {
	CreateDraft(ctx context.Context, identity release.Identity, data DepositData) (*Draft, error)
	NewVersion(ctx context.Context, identity release.Identity, persistentID string) (*Draft, error)
	UpdateDraft(ctx context.Context, identity release.Identity, draftID uuid.UUID, data DepositData) (*Draft, error)
	Publish(ctx context.Context, identity release.Identity, draftID uuid.UUID) (*Record, error)
	// Read returns shared.ErrRecordDeleted when the record is tombstoned.
	Read(ctx context.Context, identity release.Identity, persistentID string) (*Record, error)
	// LookupPersistentID resolves a version-specific record id to its lineage id.
	LookupPersistentID(ctx context.Context, recordID uuid.UUID) (string, error)
}

// DraftFileService stages file content into a draft. Staged files become
// part of the record only after CommitFile and a published draft.
type DraftFileService interface {
	InitFiles(ctx context.Context, identity release.Identity, draftID uuid.UUID, keys []string) error
	SetFileContent(ctx context.Context, identity release.Identity, draftID uuid.UUID, key string, content io.Reader) error
	CommitFile(ctx context.Context, identity release.Identity, draftID uuid.UUID, key string) error
}

// AssetSource fetches release archives from the hosting platform
type AssetSource interface {
	// CheckAsset verifies the asset is fetchable without downloading it.
	CheckAsset(ctx context.Context, url string) error
	// FetchAsset opens the asset content stream. The caller must close it
	// on every exit path.
	FetchAsset(ctx context.Context, url string) (io.ReadCloser, error)
}

// TxServices exposes the transactional participants of one publication
// attempt. Everything obtained here shares one underlying transaction and
// commits or rolls back atomically.
type TxServices interface {
	Records() RecordService
	DraftFiles() DraftFileService
	Releases() release.Repository
}

// UnitOfWork runs a function within a transaction boundary. If the function
// returns an error, all pending mutations are discarded; otherwise they are
// committed together.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(tx TxServices) error) error
}

// ReleaseLock serializes publication attempts per release. Acquire returns
// false when another worker holds the lease.
type ReleaseLock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}
