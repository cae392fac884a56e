package release

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence boundary for releases.
// Implementations return shared.ErrNotFound when a lookup has no match.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Release, error)
	FindByExternalID(ctx context.Context, externalID int64) (*Release, error)
	// LatestForRepo returns the most recent release of the repository in the
	// given status, used to decide first-release versus new-version lineage.
	LatestForRepo(ctx context.Context, repoExternalID int64, status Status) (*Release, error)
	Save(ctx context.Context, rel *Release) error
	// UpdateStatus persists a status value immediately and independently of
	// any surrounding transaction, so crashed attempts stay inspectable.
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
}
