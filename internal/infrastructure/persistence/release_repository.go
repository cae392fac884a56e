package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/depositry/backend/internal/domain/release"
	"github.com/depositry/backend/internal/domain/shared"
	"github.com/depositry/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormReleaseRepository implements release.Repository using GORM
type GormReleaseRepository struct {
	db *gorm.DB
}

// NewGormReleaseRepository creates a new GormReleaseRepository
func NewGormReleaseRepository(db *gorm.DB) *GormReleaseRepository {
	return &GormReleaseRepository{db: db}
}

// FindByID finds a release by its internal ID
func (r *GormReleaseRepository) FindByID(ctx context.Context, id uuid.UUID) (*release.Release, error) {
	var model models.ReleaseModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByExternalID finds a release by the identifier assigned by the hosting platform
func (r *GormReleaseRepository) FindByExternalID(ctx context.Context, externalID int64) (*release.Release, error) {
	var model models.ReleaseModel
	if err := r.db.WithContext(ctx).First(&model, "external_id = ?", externalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// LatestForRepo returns the newest release of the repository in the given status
func (r *GormReleaseRepository) LatestForRepo(ctx context.Context, repoExternalID int64, status release.Status) (*release.Release, error) {
	var model models.ReleaseModel
	if err := r.db.WithContext(ctx).
		Where("repo_external_id = ? AND status = ?", repoExternalID, string(status)).
		Order("created_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save persists a release, inserting or updating by primary key
func (r *GormReleaseRepository) Save(ctx context.Context, rel *release.Release) error {
	model := models.ReleaseModelFromDomain(rel)
	return r.db.WithContext(ctx).Save(model).Error
}

// UpdateStatus writes a status value directly, outside any surrounding
// transaction the caller may hold. Crashed publication attempts stay
// inspectable because of this.
func (r *GormReleaseRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status release.Status) error {
	result := r.db.WithContext(ctx).
		Model(&models.ReleaseModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     string(status),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormReleaseRepository implements release.Repository
var _ release.Repository = (*GormReleaseRepository)(nil)
