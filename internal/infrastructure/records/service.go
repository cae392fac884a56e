// Package records provides a self-hosted implementation of the record
// management boundary: versioned record lineages persisted with GORM and
// file content kept in object storage. It exists so publications can run
// against in-house infrastructure instead of an external repository API.
package records

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/depositry/backend/internal/application/publication"
	"github.com/depositry/backend/internal/domain/release"
	"github.com/depositry/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ObjectStorage stores draft file content. Keys are scoped per draft, so
// content written for a rolled-back draft is unreachable garbage rather
// than a correctness problem.
type ObjectStorage interface {
	Put(ctx context.Context, key string, content io.Reader) (int64, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Service implements the record management boundary on a GORM handle.
// Constructed on a transaction handle, every mutation joins that
// transaction; constructed on a plain connection, mutations auto-commit.
type Service struct {
	db        *gorm.DB
	baseURL   string
	doiPrefix string
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithBaseURL sets the public base URL used for record landing pages
func WithBaseURL(baseURL string) ServiceOption {
	return func(s *Service) {
		s.baseURL = baseURL
	}
}

// WithDOIPrefix enables DOI assignment on publish using the given
// registrant prefix. An empty prefix leaves the integration disabled.
func WithDOIPrefix(prefix string) ServiceOption {
	return func(s *Service) {
		s.doiPrefix = prefix
	}
}

// NewService creates a new Service
func NewService(db *gorm.DB, opts ...ServiceOption) *Service {
	s := &Service{
		db:      db,
		baseURL: "http://localhost:8080",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateDraft starts a fresh record lineage with a version-1 draft
func (s *Service) CreateDraft(ctx context.Context, identity release.Identity, data publication.DepositData) (*publication.Draft, error) {
	metadata, err := encodeMetadata(data.Metadata)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	lineage := lineageModel{
		ID:           uuid.New(),
		PersistentID: newPersistentID(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.WithContext(ctx).Create(&lineage).Error; err != nil {
		return nil, err
	}

	version := versionModel{
		ID:           uuid.New(),
		LineageID:    lineage.ID,
		Version:      1,
		State:        stateDraft,
		Metadata:     metadata,
		AccessRecord: data.Access.Record,
		AccessFiles:  data.Access.Files,
		FilesEnabled: data.FilesEnabled,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.WithContext(ctx).Create(&version).Error; err != nil {
		return nil, err
	}

	return s.toDraft(&version, lineage.PersistentID)
}

// NewVersion opens a draft for the next version of an existing lineage.
// The draft starts with empty metadata; callers must follow up with an
// explicit UpdateDraft before publishing.
func (s *Service) NewVersion(ctx context.Context, identity release.Identity, persistentID string) (*publication.Draft, error) {
	lineage, err := s.findLineage(ctx, persistentID)
	if err != nil {
		return nil, err
	}

	var latest versionModel
	if err := s.db.WithContext(ctx).
		Where("lineage_id = ? AND state = ?", lineage.ID, statePublished).
		Order("version DESC").
		First(&latest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrInvalidState
		}
		return nil, err
	}

	now := time.Now()
	version := versionModel{
		ID:           uuid.New(),
		LineageID:    lineage.ID,
		Version:      latest.Version + 1,
		State:        stateDraft,
		AccessRecord: latest.AccessRecord,
		AccessFiles:  latest.AccessFiles,
		FilesEnabled: latest.FilesEnabled,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.WithContext(ctx).Create(&version).Error; err != nil {
		return nil, err
	}

	return s.toDraft(&version, lineage.PersistentID)
}

// UpdateDraft replaces the metadata and access policy of an open draft
func (s *Service) UpdateDraft(ctx context.Context, identity release.Identity, draftID uuid.UUID, data publication.DepositData) (*publication.Draft, error) {
	version, err := s.findDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}

	metadata, err := encodeMetadata(data.Metadata)
	if err != nil {
		return nil, err
	}

	version.Metadata = metadata
	version.AccessRecord = data.Access.Record
	version.AccessFiles = data.Access.Files
	version.FilesEnabled = data.FilesEnabled
	version.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(version).Error; err != nil {
		return nil, err
	}

	lineage, err := s.findLineageByID(ctx, version.LineageID)
	if err != nil {
		return nil, err
	}
	return s.toDraft(version, lineage.PersistentID)
}

// Publish turns an open draft into the published version of its lineage.
// When files are enabled, every file slot must be committed first.
func (s *Service) Publish(ctx context.Context, identity release.Identity, draftID uuid.UUID) (*publication.Record, error) {
	version, err := s.findDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}
	lineage, err := s.findLineageByID(ctx, version.LineageID)
	if err != nil {
		return nil, err
	}

	fileKeys, err := s.committedFileKeys(ctx, version)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	version.State = statePublished
	version.PublishedAt = &now
	version.UpdatedAt = now
	if s.doiPrefix != "" {
		version.DOI = fmt.Sprintf("%s/%s.v%d", s.doiPrefix, lineage.PersistentID, version.Version)
	}
	if err := s.db.WithContext(ctx).Save(version).Error; err != nil {
		return nil, err
	}

	lineage.LatestVersion = version.Version
	lineage.UpdatedAt = now
	if err := s.db.WithContext(ctx).Save(lineage).Error; err != nil {
		return nil, err
	}

	return s.toRecord(version, lineage, fileKeys), nil
}

// Read returns the latest published version of a lineage. A tombstoned
// lineage yields shared.ErrRecordDeleted.
func (s *Service) Read(ctx context.Context, identity release.Identity, persistentID string) (*publication.Record, error) {
	lineage, err := s.findLineage(ctx, persistentID)
	if err != nil {
		return nil, err
	}

	var version versionModel
	if err := s.db.WithContext(ctx).
		Where("lineage_id = ? AND state <> ?", lineage.ID, stateDraft).
		Order("version DESC").
		First(&version).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if version.State == stateTombstoned {
		return nil, shared.ErrRecordDeleted
	}

	keys, err := s.committedOnlyKeys(ctx, version.ID)
	if err != nil {
		return nil, err
	}
	return s.toRecord(&version, lineage, keys), nil
}

// LookupPersistentID resolves a version-specific record id to its lineage
// identifier. Tombstoned versions yield shared.ErrRecordDeleted.
func (s *Service) LookupPersistentID(ctx context.Context, recordID uuid.UUID) (string, error) {
	var version versionModel
	if err := s.db.WithContext(ctx).First(&version, "id = ?", recordID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", shared.ErrNotFound
		}
		return "", err
	}
	if version.State == stateTombstoned {
		return "", shared.ErrRecordDeleted
	}

	lineage, err := s.findLineageByID(ctx, version.LineageID)
	if err != nil {
		return "", err
	}
	return lineage.PersistentID, nil
}

// Tombstone marks every version of a lineage as deleted. The rows stay in
// place so linkage lookups can tell "deleted" from "never existed".
func (s *Service) Tombstone(ctx context.Context, identity release.Identity, persistentID string) error {
	lineage, err := s.findLineage(ctx, persistentID)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Model(&versionModel{}).
		Where("lineage_id = ?", lineage.ID).
		Updates(map[string]interface{}{
			"state":      stateTombstoned,
			"updated_at": time.Now(),
		}).Error
}

func (s *Service) findLineage(ctx context.Context, persistentID string) (*lineageModel, error) {
	var lineage lineageModel
	if err := s.db.WithContext(ctx).First(&lineage, "persistent_id = ?", persistentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &lineage, nil
}

func (s *Service) findLineageByID(ctx context.Context, id uuid.UUID) (*lineageModel, error) {
	var lineage lineageModel
	if err := s.db.WithContext(ctx).First(&lineage, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &lineage, nil
}

func (s *Service) findDraft(ctx context.Context, draftID uuid.UUID) (*versionModel, error) {
	var version versionModel
	if err := s.db.WithContext(ctx).First(&version, "id = ?", draftID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if version.State != stateDraft {
		return nil, shared.ErrInvalidState
	}
	return &version, nil
}

// committedFileKeys validates file completeness for publish: with files
// enabled, at least one slot must exist and none may be uncommitted.
func (s *Service) committedFileKeys(ctx context.Context, version *versionModel) ([]string, error) {
	if !version.FilesEnabled {
		return nil, nil
	}

	var files []fileModel
	if err := s.db.WithContext(ctx).
		Where("version_id = ?", version.ID).
		Order("key ASC").
		Find(&files).Error; err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, shared.ErrFilesIncomplete
	}

	keys := make([]string, 0, len(files))
	for _, f := range files {
		if f.State != fileStateCommitted {
			return nil, shared.ErrFilesIncomplete
		}
		keys = append(keys, f.Key)
	}
	return keys, nil
}

func (s *Service) committedOnlyKeys(ctx context.Context, versionID uuid.UUID) ([]string, error) {
	var files []fileModel
	if err := s.db.WithContext(ctx).
		Where("version_id = ? AND state = ?", versionID, fileStateCommitted).
		Order("key ASC").
		Find(&files).Error; err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(files))
	for _, f := range files {
		keys = append(keys, f.Key)
	}
	return keys, nil
}

func (s *Service) toDraft(version *versionModel, persistentID string) (*publication.Draft, error) {
	metadata, err := version.metadataDocument()
	if err != nil {
		return nil, err
	}
	return &publication.Draft{
		ID:           version.ID,
		PersistentID: persistentID,
		Version:      version.Version,
		Metadata:     metadata,
		Access: publication.AccessPolicy{
			Record: version.AccessRecord,
			Files:  version.AccessFiles,
		},
		FilesEnabled: version.FilesEnabled,
	}, nil
}

func (s *Service) toRecord(version *versionModel, lineage *lineageModel, fileKeys []string) *publication.Record {
	metadata, err := version.metadataDocument()
	if err != nil {
		metadata = publication.Document{}
	}

	record := &publication.Record{
		ID:           version.ID,
		PersistentID: lineage.PersistentID,
		Version:      version.Version,
		Metadata:     metadata,
		Access: publication.AccessPolicy{
			Record: version.AccessRecord,
			Files:  version.AccessFiles,
		},
		Files: fileKeys,
		Links: publication.RecordLinks{
			SelfHTML: fmt.Sprintf("%s/records/%s", s.baseURL, lineage.PersistentID),
		},
		DOI: version.DOI,
	}
	if version.PublishedAt != nil {
		record.PublishedAt = *version.PublishedAt
	}
	if record.DOI != "" {
		record.Links.DOI = fmt.Sprintf("https://doi.org/%s", record.DOI)
	}
	return record
}

// Ensure Service implements the record management boundary
var _ publication.RecordService = (*Service)(nil)
