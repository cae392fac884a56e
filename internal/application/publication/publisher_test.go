package publication

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/depositry/backend/internal/domain/release"
	"github.com/depositry/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type publisherFixture struct {
	releases *MockReleaseRepository
	metadata *MockMetadataProvider
	records  *MockRecordService
	files    *MockDraftFileService
	assets   *MockAssetSource
	uow      *stubUnitOfWork
	pub      *Publisher
}

func newPublisherFixture() *publisherFixture {
	f := &publisherFixture{
		releases: new(MockReleaseRepository),
		metadata: new(MockMetadataProvider),
		records:  new(MockRecordService),
		files:    new(MockDraftFileService),
		assets:   new(MockAssetSource),
	}
	f.uow = &stubUnitOfWork{
		records:  f.records,
		files:    f.files,
		releases: f.releases,
	}
	f.pub = NewPublisher(f.releases, f.metadata, f.assets, f.uow, nil)
	return f
}

func newTestRelease(t *testing.T) *release.Release {
	t.Helper()
	rel, err := release.NewRelease(
		100,
		release.RepoRef{ExternalID: 42, Owner: "acme", Name: "widgets"},
		"v1.0.0",
		release.Identity{UserID: uuid.New(), Username: "alice"},
		release.Identity{UserID: uuid.New(), Username: "alice"},
		"https://vcs.example.com/acme/widgets/zipball/v1.0.0",
		"",
	)
	require.NoError(t, err)
	return rel
}

func testMetadata() Metadata {
	return Metadata{
		Descriptive: Document{"title": "widgets v1.0.0", "creators": []string{"acme"}},
		Citation:    Document{"title": "Widgets"},
	}
}

func expectProcessingMarker(f *publisherFixture, rel *release.Release) {
	f.releases.On("UpdateStatus", mock.Anything, rel.ID, release.StatusProcessing).Return(nil)
}

func expectFailedMarker(f *publisherFixture, rel *release.Release) {
	f.releases.On("UpdateStatus", mock.Anything, rel.ID, release.StatusFailed).Return(nil)
}

func TestProcessRelease_FirstRelease(t *testing.T) {
	f := newPublisherFixture()
	rel := newTestRelease(t)
	ctx := context.Background()

	draft := &Draft{ID: uuid.New(), PersistentID: "aaaa-bbbb", Version: 1}
	published := &Record{
		ID:           uuid.New(),
		PersistentID: "aaaa-bbbb",
		Version:      1,
		Files:        []string{rel.FileName},
	}

	expectProcessingMarker(f, rel)
	f.metadata.On("Extract", mock.Anything, rel).Return(testMetadata(), nil)
	f.assets.On("CheckAsset", mock.Anything, rel.AssetURL).Return(nil)
	f.releases.On("LatestForRepo", mock.Anything, rel.Repo.ExternalID, release.StatusPublished).
		Return(nil, shared.ErrNotFound)
	f.records.On("CreateDraft", mock.Anything, rel.ActingUser, mock.MatchedBy(func(d DepositData) bool {
		return d.FilesEnabled && d.Access == PublicAccess() && d.Metadata["title"] == "Widgets"
	})).Return(draft, nil)
	f.files.On("InitFiles", mock.Anything, rel.ActingUser, draft.ID, []string{rel.FileName}).Return(nil)
	f.assets.On("FetchAsset", mock.Anything, rel.AssetURL).
		Return(io.NopCloser(strings.NewReader("zip bytes")), nil)
	f.files.On("SetFileContent", mock.Anything, rel.ActingUser, draft.ID, rel.FileName, mock.Anything).Return(nil)
	f.files.On("CommitFile", mock.Anything, rel.ActingUser, draft.ID, rel.FileName).Return(nil)
	f.records.On("Publish", mock.Anything, rel.ActingUser, draft.ID).Return(published, nil)
	f.releases.On("Save", mock.Anything, mock.MatchedBy(func(r *release.Release) bool {
		return r.Status == release.StatusPublished && r.RecordID != nil && *r.RecordID == published.ID
	})).Return(nil)

	record, err := f.pub.ProcessRelease(ctx, rel)

	require.NoError(t, err)
	assert.Equal(t, published, record)
	assert.Equal(t, release.StatusPublished, rel.Status)
	require.NotNil(t, rel.RecordID)
	assert.Equal(t, published.ID, *rel.RecordID)
	assert.True(t, f.uow.executed)
	f.records.AssertNotCalled(t, "NewVersion", mock.Anything, mock.Anything, mock.Anything)
	f.releases.AssertExpectations(t)
	f.records.AssertExpectations(t)
	f.files.AssertExpectations(t)
}

func TestProcessRelease_NewVersion(t *testing.T) {
	f := newPublisherFixture()
	rel := newTestRelease(t)
	ctx := context.Background()

	prevRecordID := uuid.New()
	prev := newTestRelease(t)
	require.NoError(t, prev.MarkProcessing())
	require.NoError(t, prev.LinkRecord(prevRecordID))
	require.NoError(t, prev.MarkPublished())

	versionDraft := &Draft{ID: uuid.New(), PersistentID: "aaaa-bbbb", Version: 2}
	updatedDraft := &Draft{ID: versionDraft.ID, PersistentID: "aaaa-bbbb", Version: 2}
	published := &Record{ID: uuid.New(), PersistentID: "aaaa-bbbb", Version: 2}

	expectProcessingMarker(f, rel)
	f.metadata.On("Extract", mock.Anything, rel).Return(testMetadata(), nil)
	f.assets.On("CheckAsset", mock.Anything, rel.AssetURL).Return(nil)
	f.releases.On("LatestForRepo", mock.Anything, rel.Repo.ExternalID, release.StatusPublished).
		Return(prev, nil)
	f.records.On("LookupPersistentID", mock.Anything, prevRecordID).Return("aaaa-bbbb", nil)
	f.records.On("NewVersion", mock.Anything, rel.ActingUser, "aaaa-bbbb").Return(versionDraft, nil)
	f.files.On("InitFiles", mock.Anything, rel.ActingUser, versionDraft.ID, []string{rel.FileName}).Return(nil)
	f.assets.On("FetchAsset", mock.Anything, rel.AssetURL).
		Return(io.NopCloser(strings.NewReader("zip bytes")), nil)
	f.files.On("SetFileContent", mock.Anything, rel.ActingUser, versionDraft.ID, rel.FileName, mock.Anything).Return(nil)
	f.records.On("UpdateDraft", mock.Anything, rel.ActingUser, versionDraft.ID, mock.Anything).Return(updatedDraft, nil)
	f.files.On("CommitFile", mock.Anything, rel.ActingUser, versionDraft.ID, rel.FileName).Return(nil)
	f.records.On("Publish", mock.Anything, rel.ActingUser, versionDraft.ID).Return(published, nil)
	f.releases.On("Save", mock.Anything, mock.Anything).Return(nil)

	record, err := f.pub.ProcessRelease(ctx, rel)

	require.NoError(t, err)
	assert.Equal(t, 2, record.Version)
	assert.Equal(t, "aaaa-bbbb", record.PersistentID)
	assert.Equal(t, release.StatusPublished, rel.Status)
	f.records.AssertNotCalled(t, "CreateDraft", mock.Anything, mock.Anything, mock.Anything)
	f.records.AssertExpectations(t)
}

func TestProcessRelease_PublishFails(t *testing.T) {
	f := newPublisherFixture()
	rel := newTestRelease(t)
	ctx := context.Background()

	draft := &Draft{ID: uuid.New(), PersistentID: "aaaa-bbbb", Version: 1}
	publishErr := errors.New("metadata validation failed")

	expectProcessingMarker(f, rel)
	expectFailedMarker(f, rel)
	f.metadata.On("Extract", mock.Anything, rel).Return(testMetadata(), nil)
	f.assets.On("CheckAsset", mock.Anything, rel.AssetURL).Return(nil)
	f.releases.On("LatestForRepo", mock.Anything, rel.Repo.ExternalID, release.StatusPublished).
		Return(nil, shared.ErrNotFound)
	f.records.On("CreateDraft", mock.Anything, rel.ActingUser, mock.Anything).Return(draft, nil)
	f.files.On("InitFiles", mock.Anything, rel.ActingUser, draft.ID, []string{rel.FileName}).Return(nil)
	f.assets.On("FetchAsset", mock.Anything, rel.AssetURL).
		Return(io.NopCloser(strings.NewReader("zip bytes")), nil)
	f.files.On("SetFileContent", mock.Anything, rel.ActingUser, draft.ID, rel.FileName, mock.Anything).Return(nil)
	f.files.On("CommitFile", mock.Anything, rel.ActingUser, draft.ID, rel.FileName).Return(nil)
	f.records.On("Publish", mock.Anything, rel.ActingUser, draft.ID).Return(nil, publishErr)

	record, err := f.pub.ProcessRelease(ctx, rel)

	// The original error comes back unwrapped and the release is durably
	// marked FAILED with no linkage.
	require.ErrorIs(t, err, publishErr)
	assert.Nil(t, record)
	assert.Equal(t, release.StatusFailed, rel.Status)
	assert.Nil(t, rel.RecordID)
	f.releases.AssertExpectations(t)
}

func TestProcessRelease_AssetCheckFailsBeforeTransaction(t *testing.T) {
	f := newPublisherFixture()
	rel := newTestRelease(t)
	ctx := context.Background()

	assetErr := shared.ErrAssetNotFound

	expectProcessingMarker(f, rel)
	expectFailedMarker(f, rel)
	f.metadata.On("Extract", mock.Anything, rel).Return(testMetadata(), nil)
	f.assets.On("CheckAsset", mock.Anything, rel.AssetURL).Return(assetErr)

	record, err := f.pub.ProcessRelease(ctx, rel)

	require.ErrorIs(t, err, assetErr)
	assert.Nil(t, record)
	assert.Equal(t, release.StatusFailed, rel.Status)
	assert.False(t, f.uow.executed, "no transaction may open for an unfetchable asset")
	f.records.AssertNotCalled(t, "CreateDraft", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessRelease_MetadataExtractionFails(t *testing.T) {
	f := newPublisherFixture()
	rel := newTestRelease(t)
	ctx := context.Background()

	extractErr := errors.New("citation file unreadable")

	expectProcessingMarker(f, rel)
	expectFailedMarker(f, rel)
	f.metadata.On("Extract", mock.Anything, rel).Return(Metadata{}, extractErr)

	_, err := f.pub.ProcessRelease(ctx, rel)

	require.ErrorIs(t, err, extractErr)
	assert.Equal(t, release.StatusFailed, rel.Status)
	assert.False(t, f.uow.executed)
}

func TestProcessRelease_FileUploadFailsInsideTransaction(t *testing.T) {
	f := newPublisherFixture()
	rel := newTestRelease(t)
	ctx := context.Background()

	draft := &Draft{ID: uuid.New(), PersistentID: "aaaa-bbbb", Version: 1}
	uploadErr := errors.New("stream interrupted")

	expectProcessingMarker(f, rel)
	expectFailedMarker(f, rel)
	f.metadata.On("Extract", mock.Anything, rel).Return(testMetadata(), nil)
	f.assets.On("CheckAsset", mock.Anything, rel.AssetURL).Return(nil)
	f.releases.On("LatestForRepo", mock.Anything, rel.Repo.ExternalID, release.StatusPublished).
		Return(nil, shared.ErrNotFound)
	f.records.On("CreateDraft", mock.Anything, rel.ActingUser, mock.Anything).Return(draft, nil)
	f.files.On("InitFiles", mock.Anything, rel.ActingUser, draft.ID, []string{rel.FileName}).Return(nil)
	f.assets.On("FetchAsset", mock.Anything, rel.AssetURL).
		Return(io.NopCloser(strings.NewReader("zip bytes")), nil)
	f.files.On("SetFileContent", mock.Anything, rel.ActingUser, draft.ID, rel.FileName, mock.Anything).
		Return(uploadErr)

	_, err := f.pub.ProcessRelease(ctx, rel)

	require.ErrorIs(t, err, uploadErr)
	assert.Equal(t, release.StatusFailed, rel.Status)
	assert.Nil(t, rel.RecordID)
	f.records.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	f.files.AssertNotCalled(t, "CommitFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessRelease_AlreadyPublishedRejected(t *testing.T) {
	f := newPublisherFixture()
	rel := newTestRelease(t)
	ctx := context.Background()

	require.NoError(t, rel.MarkProcessing())
	require.NoError(t, rel.LinkRecord(uuid.New()))
	require.NoError(t, rel.MarkPublished())

	_, err := f.pub.ProcessRelease(ctx, rel)

	require.Error(t, err)
	assert.Equal(t, release.StatusPublished, rel.Status)
	f.releases.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessRelease_LockContention(t *testing.T) {
	f := newPublisherFixture()
	rel := newTestRelease(t)
	ctx := context.Background()

	lock := new(MockReleaseLock)
	lock.On("Acquire", mock.Anything, lockKey(rel), time.Minute).Return(false, nil)
	f.pub.SetReleaseLock(lock, time.Minute)

	_, err := f.pub.ProcessRelease(ctx, rel)

	require.ErrorIs(t, err, shared.ErrReleaseLocked)
	assert.Equal(t, release.StatusReceived, rel.Status)
	lock.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
	f.releases.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessRelease_LockReleasedAfterPublication(t *testing.T) {
	f := newPublisherFixture()
	rel := newTestRelease(t)
	ctx := context.Background()

	draft := &Draft{ID: uuid.New(), PersistentID: "aaaa-bbbb", Version: 1}
	published := &Record{ID: uuid.New(), PersistentID: "aaaa-bbbb", Version: 1}

	lock := new(MockReleaseLock)
	lock.On("Acquire", mock.Anything, lockKey(rel), DefaultLockTTL).Return(true, nil)
	lock.On("Release", mock.Anything, lockKey(rel)).Return(nil)
	f.pub.SetReleaseLock(lock, 0)

	expectProcessingMarker(f, rel)
	f.metadata.On("Extract", mock.Anything, rel).Return(testMetadata(), nil)
	f.assets.On("CheckAsset", mock.Anything, rel.AssetURL).Return(nil)
	f.releases.On("LatestForRepo", mock.Anything, rel.Repo.ExternalID, release.StatusPublished).
		Return(nil, shared.ErrNotFound)
	f.records.On("CreateDraft", mock.Anything, rel.ActingUser, mock.Anything).Return(draft, nil)
	f.files.On("InitFiles", mock.Anything, rel.ActingUser, draft.ID, []string{rel.FileName}).Return(nil)
	f.assets.On("FetchAsset", mock.Anything, rel.AssetURL).
		Return(io.NopCloser(strings.NewReader("zip bytes")), nil)
	f.files.On("SetFileContent", mock.Anything, rel.ActingUser, draft.ID, rel.FileName, mock.Anything).Return(nil)
	f.files.On("CommitFile", mock.Anything, rel.ActingUser, draft.ID, rel.FileName).Return(nil)
	f.records.On("Publish", mock.Anything, rel.ActingUser, draft.ID).Return(published, nil)
	f.releases.On("Save", mock.Anything, mock.Anything).Return(nil)

	_, err := f.pub.ProcessRelease(ctx, rel)

	require.NoError(t, err)
	lock.AssertExpectations(t)
}

func TestProcessRelease_TransactionRollbackKeepsReleaseUnlinked(t *testing.T) {
	f := newPublisherFixture()
	rel := newTestRelease(t)
	ctx := context.Background()

	beginErr := errors.New("connection refused")
	f.uow.beginErr = beginErr

	expectProcessingMarker(f, rel)
	expectFailedMarker(f, rel)
	f.metadata.On("Extract", mock.Anything, rel).Return(testMetadata(), nil)
	f.assets.On("CheckAsset", mock.Anything, rel.AssetURL).Return(nil)

	_, err := f.pub.ProcessRelease(ctx, rel)

	require.ErrorIs(t, err, beginErr)
	assert.Equal(t, release.StatusFailed, rel.Status)
	assert.Nil(t, rel.RecordID)
}
