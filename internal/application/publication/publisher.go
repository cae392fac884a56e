package publication

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/depositry/backend/internal/domain/release"
	"github.com/depositry/backend/internal/domain/shared"
	"github.com/depositry/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DefaultLockTTL bounds how long a crashed worker can hold a release lease
const DefaultLockTTL = 15 * time.Minute

// Publisher converts one release event into one published record version.
// All record-service and file mutations of an attempt run inside a single
// unit of work; only the PROCESSING and FAILED status markers are written
// outside it, so partially failed attempts stay diagnosable.
type Publisher struct {
	releases release.Repository
	metadata MetadataProvider
	assets   AssetSource
	uow      UnitOfWork
	lock     ReleaseLock
	lockTTL  time.Duration
	logger   *zap.Logger
}

// NewPublisher creates a new Publisher
func NewPublisher(releases release.Repository, metadata MetadataProvider, assets AssetSource, uow UnitOfWork, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		releases: releases,
		metadata: metadata,
		assets:   assets,
		uow:      uow,
		lockTTL:  DefaultLockTTL,
		logger:   logger,
	}
}

// SetReleaseLock enables per-release serialization of publication attempts.
// Without a lock, concurrent attempts on the same release may race.
func (p *Publisher) SetReleaseLock(lock ReleaseLock, ttl time.Duration) {
	p.lock = lock
	if ttl > 0 {
		p.lockTTL = ttl
	}
}

// ProcessRelease publishes a release as a record. On any failure the release
// is durably marked FAILED and the original error is returned unchanged.
func (p *Publisher) ProcessRelease(ctx context.Context, rel *release.Release) (*Record, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "publication", "process_release",
		telemetry.WithAttribute("release.external_id", rel.ExternalID),
		telemetry.WithAttribute("release.repo", rel.Repo.FullName()),
	)
	defer span.End()

	if p.lock != nil {
		key := lockKey(rel)
		acquired, err := p.lock.Acquire(ctx, key, p.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire release lock: %w", err)
		}
		if !acquired {
			return nil, shared.ErrReleaseLocked
		}
		defer func() {
			if err := p.lock.Release(context.WithoutCancel(ctx), key); err != nil {
				p.logger.Warn("Failed to release publication lock",
					zap.String("key", key), zap.Error(err))
			}
		}()
	}

	record, err := p.publish(ctx, rel)
	if err != nil {
		p.logger.Error("Error while processing release",
			zap.Int64("release_external_id", rel.ExternalID),
			zap.String("repo", rel.Repo.FullName()),
			zap.Error(err),
		)
		telemetry.RecordError(span, err)
		return nil, err
	}

	p.logger.Info("Release published",
		zap.Int64("release_external_id", rel.ExternalID),
		zap.String("repo", rel.Repo.FullName()),
		zap.String("persistent_id", record.PersistentID),
		zap.Int("version", record.Version),
	)
	return record, nil
}

// publish runs one publication attempt: a durable PROCESSING marker, then
// the transactional phase, then a durable FAILED marker on any error.
func (p *Publisher) publish(ctx context.Context, rel *release.Release) (*Record, error) {
	// Committed immediately and independently of the unit of work, so a
	// crash mid-attempt leaves an inspectable PROCESSING marker.
	if err := rel.MarkProcessing(); err != nil {
		return nil, err
	}
	if err := p.releases.UpdateStatus(ctx, rel.ID, release.StatusProcessing); err != nil {
		return nil, err
	}

	record, err := p.publishTx(ctx, rel)
	if err != nil {
		p.markFailed(ctx, rel)
		return nil, err
	}
	return record, nil
}

// publishTx runs the transactional phase of a publication attempt. Every
// mutation inside the unit of work is discarded on error.
func (p *Publisher) publishTx(ctx context.Context, rel *release.Release) (*Record, error) {
	meta, err := p.metadata.Extract(ctx, rel)
	if err != nil {
		return nil, err
	}
	data := DepositData{
		Metadata:     meta.Merged(),
		Access:       PublicAccess(),
		FilesEnabled: true,
	}

	// Fail fast while nothing has been written yet: an unfetchable asset
	// must not leave a draft without its intended file.
	if err := p.assets.CheckAsset(ctx, rel.AssetURL); err != nil {
		return nil, err
	}

	var (
		record    *Record
		published release.Release
	)
	err = p.uow.Execute(ctx, func(tx TxServices) error {
		draft, err := p.prepareDraft(ctx, tx, rel, data)
		if err != nil {
			return err
		}

		if err := tx.DraftFiles().CommitFile(ctx, rel.ActingUser, draft.ID, rel.FileName); err != nil {
			return err
		}

		rec, err := tx.Records().Publish(ctx, rel.ActingUser, draft.ID)
		if err != nil {
			return err
		}

		// Linkage and the PUBLISHED transition are enrolled in the same
		// transaction as the publish itself.
		published = *rel
		if err := published.LinkRecord(rec.ID); err != nil {
			return err
		}
		if err := published.MarkPublished(); err != nil {
			return err
		}
		if err := tx.Releases().Save(ctx, &published); err != nil {
			return err
		}

		record = rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	*rel = published
	return record, nil
}

// prepareDraft decides first-release versus new-version lineage, creates the
// draft accordingly, and stages the release asset into it.
func (p *Publisher) prepareDraft(ctx context.Context, tx TxServices, rel *release.Release, data DepositData) (*Draft, error) {
	prev, err := tx.Releases().LatestForRepo(ctx, rel.Repo.ExternalID, release.StatusPublished)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	if prev == nil {
		// First release of this repository: start a fresh record lineage.
		draft, err := tx.Records().CreateDraft(ctx, rel.ActingUser, data)
		if err != nil {
			return nil, err
		}
		if err := p.uploadAsset(ctx, tx, rel, draft); err != nil {
			return nil, err
		}
		return draft, nil
	}

	if prev.RecordID == nil {
		return nil, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Published release %d has no record linkage", prev.ExternalID))
	}

	persistentID, err := tx.Records().LookupPersistentID(ctx, *prev.RecordID)
	if err != nil {
		return nil, err
	}

	versionDraft, err := tx.Records().NewVersion(ctx, rel.ActingUser, persistentID)
	if err != nil {
		return nil, err
	}
	if err := p.uploadAsset(ctx, tx, rel, versionDraft); err != nil {
		return nil, err
	}

	// NewVersion carries no metadata or access policy; an explicit update
	// is required to apply the new release's deposit data.
	return tx.Records().UpdateDraft(ctx, rel.ActingUser, versionDraft.ID, data)
}

// uploadAsset stages the release archive into the draft under its assigned
// name. The content stream is closed on every exit path.
func (p *Publisher) uploadAsset(ctx context.Context, tx TxServices, rel *release.Release, draft *Draft) error {
	if err := tx.DraftFiles().InitFiles(ctx, rel.ActingUser, draft.ID, []string{rel.FileName}); err != nil {
		return err
	}

	stream, err := p.assets.FetchAsset(ctx, rel.AssetURL)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stream.Close(); cerr != nil {
			p.logger.Warn("Failed to close asset stream",
				zap.String("url", rel.AssetURL), zap.Error(cerr))
		}
	}()

	return tx.DraftFiles().SetFileContent(ctx, rel.ActingUser, draft.ID, rel.FileName, stream)
}

// markFailed durably flags the release FAILED after the unit of work has
// rolled back. Write failures are logged, not returned, so the original
// publication error is never masked.
func (p *Publisher) markFailed(ctx context.Context, rel *release.Release) {
	if err := rel.MarkFailed(); err != nil {
		p.logger.Warn("Release status transition to FAILED rejected",
			zap.Int64("release_external_id", rel.ExternalID), zap.Error(err))
		return
	}
	if err := p.releases.UpdateStatus(context.WithoutCancel(ctx), rel.ID, release.StatusFailed); err != nil {
		p.logger.Error("Failed to persist FAILED release status",
			zap.Int64("release_external_id", rel.ExternalID), zap.Error(err))
	}
}

func lockKey(rel *release.Release) string {
	return fmt.Sprintf("release:%d", rel.ExternalID)
}
