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

// FileService manages file slots of draft versions. Slot state lives in
// the database; content bytes go straight to object storage under a
// draft-scoped key, so a rolled-back transaction leaves no reachable
// content behind.
type FileService struct {
	db      *gorm.DB
	storage ObjectStorage
}

// NewFileService creates a new FileService
func NewFileService(db *gorm.DB, storage ObjectStorage) *FileService {
	return &FileService{
		db:      db,
		storage: storage,
	}
}

// InitFiles declares the file slots of a draft. Keys must be new; a key
// that already has a slot yields shared.ErrAlreadyExists.
func (s *FileService) InitFiles(ctx context.Context, identity release.Identity, draftID uuid.UUID, keys []string) error {
	if err := s.requireDraft(ctx, draftID); err != nil {
		return err
	}

	now := time.Now()
	for _, key := range keys {
		var existing fileModel
		err := s.db.WithContext(ctx).
			First(&existing, "version_id = ? AND key = ?", draftID, key).Error
		if err == nil {
			return shared.ErrAlreadyExists
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		file := fileModel{
			ID:        uuid.New(),
			VersionID: draftID,
			Key:       key,
			State:     fileStatePending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.db.WithContext(ctx).Create(&file).Error; err != nil {
			return err
		}
	}
	return nil
}

// SetFileContent streams content into a declared slot and marks it staged
func (s *FileService) SetFileContent(ctx context.Context, identity release.Identity, draftID uuid.UUID, key string, content io.Reader) error {
	if err := s.requireDraft(ctx, draftID); err != nil {
		return err
	}

	file, err := s.findSlot(ctx, draftID, key)
	if err != nil {
		return err
	}

	storageKey := draftObjectKey(draftID, key)
	size, err := s.storage.Put(ctx, storageKey, content)
	if err != nil {
		return err
	}

	file.State = fileStateStaged
	file.Size = size
	file.StorageKey = storageKey
	file.UpdatedAt = time.Now()
	return s.db.WithContext(ctx).Save(file).Error
}

// CommitFile finalizes a staged slot. Slots without staged content yield
// shared.ErrFileNotStaged.
func (s *FileService) CommitFile(ctx context.Context, identity release.Identity, draftID uuid.UUID, key string) error {
	if err := s.requireDraft(ctx, draftID); err != nil {
		return err
	}

	file, err := s.findSlot(ctx, draftID, key)
	if err != nil {
		return err
	}
	if file.State != fileStateStaged {
		return shared.ErrFileNotStaged
	}

	file.State = fileStateCommitted
	file.UpdatedAt = time.Now()
	return s.db.WithContext(ctx).Save(file).Error
}

// OpenFile streams the content of a committed file of any version
func (s *FileService) OpenFile(ctx context.Context, versionID uuid.UUID, key string) (io.ReadCloser, error) {
	file, err := s.findSlot(ctx, versionID, key)
	if err != nil {
		return nil, err
	}
	if file.State != fileStateCommitted {
		return nil, shared.ErrNotFound
	}
	return s.storage.Get(ctx, file.StorageKey)
}

func (s *FileService) requireDraft(ctx context.Context, draftID uuid.UUID) error {
	var version versionModel
	if err := s.db.WithContext(ctx).First(&version, "id = ?", draftID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return shared.ErrNotFound
		}
		return err
	}
	if version.State != stateDraft {
		return shared.ErrInvalidState
	}
	return nil
}

func (s *FileService) findSlot(ctx context.Context, versionID uuid.UUID, key string) (*fileModel, error) {
	var file fileModel
	if err := s.db.WithContext(ctx).
		First(&file, "version_id = ? AND key = ?", versionID, key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &file, nil
}

func draftObjectKey(draftID uuid.UUID, key string) string {
	return fmt.Sprintf("drafts/%s/%s", draftID, key)
}

// Ensure FileService implements the draft file boundary
var _ publication.DraftFileService = (*FileService)(nil)
