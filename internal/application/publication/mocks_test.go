package publication

import (
	"context"
	"io"
	"time"

	"github.com/depositry/backend/internal/domain/release"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockReleaseRepository is a mock implementation of release.Repository
type MockReleaseRepository struct {
	mock.Mock
}

func (m *MockReleaseRepository) FindByID(ctx context.Context, id uuid.UUID) (*release.Release, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*release.Release), args.Error(1)
}

func (m *MockReleaseRepository) FindByExternalID(ctx context.Context, externalID int64) (*release.Release, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*release.Release), args.Error(1)
}

func (m *MockReleaseRepository) LatestForRepo(ctx context.Context, repoExternalID int64, status release.Status) (*release.Release, error) {
	args := m.Called(ctx, repoExternalID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*release.Release), args.Error(1)
}

func (m *MockReleaseRepository) Save(ctx context.Context, rel *release.Release) error {
	args := m.Called(ctx, rel)
	return args.Error(0)
}

func (m *MockReleaseRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status release.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

var _ release.Repository = (*MockReleaseRepository)(nil)

// MockMetadataProvider is a mock implementation of MetadataProvider
type MockMetadataProvider struct {
	mock.Mock
}

func (m *MockMetadataProvider) Extract(ctx context.Context, rel *release.Release) (Metadata, error) {
	args := m.Called(ctx, rel)
	return args.Get(0).(Metadata), args.Error(1)
}

var _ MetadataProvider = (*MockMetadataProvider)(nil)

// MockRecordService is a mock implementation of RecordService
type MockRecordService struct {
	mock.Mock
}

func (m *MockRecordService) CreateDraft(ctx context.Context, identity release.Identity, data DepositData) (*Draft, error) {
	args := m.Called(ctx, identity, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Draft), args.Error(1)
}

func (m *MockRecordService) NewVersion(ctx context.Context, identity release.Identity, persistentID string) (*Draft, error) {
	args := m.Called(ctx, identity, persistentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Draft), args.Error(1)
}

func (m *MockRecordService) UpdateDraft(ctx context.Context, identity release.Identity, draftID uuid.UUID, data DepositData) (*Draft, error) {
	args := m.Called(ctx, identity, draftID, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Draft), args.Error(1)
}

func (m *MockRecordService) Publish(ctx context.Context, identity release.Identity, draftID uuid.UUID) (*Record, error) {
	args := m.Called(ctx, identity, draftID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Record), args.Error(1)
}

func (m *MockRecordService) Read(ctx context.Context, identity release.Identity, persistentID string) (*Record, error) {
	args := m.Called(ctx, identity, persistentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Record), args.Error(1)
}

func (m *MockRecordService) LookupPersistentID(ctx context.Context, recordID uuid.UUID) (string, error) {
	args := m.Called(ctx, recordID)
	return args.String(0), args.Error(1)
}

var _ RecordService = (*MockRecordService)(nil)

// MockDraftFileService is a mock implementation of DraftFileService
type MockDraftFileService struct {
	mock.Mock
}

func (m *MockDraftFileService) InitFiles(ctx context.Context, identity release.Identity, draftID uuid.UUID, keys []string) error {
	args := m.Called(ctx, identity, draftID, keys)
	return args.Error(0)
}

func (m *MockDraftFileService) SetFileContent(ctx context.Context, identity release.Identity, draftID uuid.UUID, key string, content io.Reader) error {
	args := m.Called(ctx, identity, draftID, key, content)
	return args.Error(0)
}

func (m *MockDraftFileService) CommitFile(ctx context.Context, identity release.Identity, draftID uuid.UUID, key string) error {
	args := m.Called(ctx, identity, draftID, key)
	return args.Error(0)
}

var _ DraftFileService = (*MockDraftFileService)(nil)

// MockAssetSource is a mock implementation of AssetSource
type MockAssetSource struct {
	mock.Mock
}

func (m *MockAssetSource) CheckAsset(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}

func (m *MockAssetSource) FetchAsset(ctx context.Context, url string) (io.ReadCloser, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

var _ AssetSource = (*MockAssetSource)(nil)

// MockReleaseLock is a mock implementation of ReleaseLock
type MockReleaseLock struct {
	mock.Mock
}

func (m *MockReleaseLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockReleaseLock) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

var _ ReleaseLock = (*MockReleaseLock)(nil)

// stubUnitOfWork passes the configured participants straight through to the
// closure. It records whether a transaction was opened so tests can assert
// on the transactional boundary.
type stubUnitOfWork struct {
	records  RecordService
	files    DraftFileService
	releases release.Repository
	beginErr error
	executed bool
}

func (u *stubUnitOfWork) Execute(ctx context.Context, fn func(tx TxServices) error) error {
	if u.beginErr != nil {
		return u.beginErr
	}
	u.executed = true
	return fn(u)
}

func (u *stubUnitOfWork) Records() RecordService       { return u.records }
func (u *stubUnitOfWork) DraftFiles() DraftFileService { return u.files }
func (u *stubUnitOfWork) Releases() release.Repository { return u.releases }

var (
	_ UnitOfWork = (*stubUnitOfWork)(nil)
	_ TxServices = (*stubUnitOfWork)(nil)
)
