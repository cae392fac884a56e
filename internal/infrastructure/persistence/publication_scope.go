package persistence

import (
	"context"

	"github.com/depositry/backend/internal/application/publication"
	"github.com/depositry/backend/internal/domain/release"
	"github.com/depositry/backend/internal/infrastructure/records"
	"gorm.io/gorm"
)

// GormPublicationScope implements the publication unit of work using GORM
// transactions. Every service handed to the callback shares one
// transaction, so a publication attempt commits or rolls back as a whole.
type GormPublicationScope struct {
	db         *gorm.DB
	storage    records.ObjectStorage
	recordOpts []records.ServiceOption
}

// NewGormPublicationScope creates a new GormPublicationScope. The record
// options are applied to every transaction-scoped record service.
func NewGormPublicationScope(db *gorm.DB, storage records.ObjectStorage, recordOpts ...records.ServiceOption) *GormPublicationScope {
	return &GormPublicationScope{
		db:         db,
		storage:    storage,
		recordOpts: recordOpts,
	}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormPublicationScope) Execute(ctx context.Context, fn func(tx publication.TxServices) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		services := &gormTxServices{
			tx:         tx,
			storage:    s.storage,
			recordOpts: s.recordOpts,
		}
		return fn(services)
	})
}

// gormTxServices exposes the transactional participants of one publication
type gormTxServices struct {
	tx         *gorm.DB
	storage    records.ObjectStorage
	recordOpts []records.ServiceOption
}

// Records returns the record service scoped to the current transaction
func (s *gormTxServices) Records() publication.RecordService {
	return records.NewService(s.tx, s.recordOpts...)
}

// DraftFiles returns the draft file service scoped to the current transaction
func (s *gormTxServices) DraftFiles() publication.DraftFileService {
	return records.NewFileService(s.tx, s.storage)
}

// Releases returns the release repository scoped to the current transaction
func (s *gormTxServices) Releases() release.Repository {
	return NewGormReleaseRepository(s.tx)
}

// Ensure GormPublicationScope implements UnitOfWork
var _ publication.UnitOfWork = (*GormPublicationScope)(nil)

// Ensure gormTxServices implements TxServices
var _ publication.TxServices = (*gormTxServices)(nil)
