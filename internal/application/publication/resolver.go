package publication

import (
	"context"
	"errors"

	"github.com/depositry/backend/internal/domain/release"
	"github.com/depositry/backend/internal/domain/shared"
)

// Resolver answers "which record does this release currently point at".
// A release without linkage, a dangling linkage, and a tombstoned record
// all resolve to absent rather than an error.
type Resolver struct {
	records RecordService
}

// NewResolver creates a new Resolver
func NewResolver(records RecordService) *Resolver {
	return &Resolver{records: records}
}

// ResolveRecord returns the record linked to the release, or nil when no
// resolvable record exists. The record service is not contacted at all when
// the release carries no linkage.
func (r *Resolver) ResolveRecord(ctx context.Context, rel *release.Release) (*Record, error) {
	if !rel.HasRecord() {
		return nil, nil
	}

	persistentID, err := r.records.LookupPersistentID(ctx, *rel.RecordID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrRecordDeleted) {
			return nil, nil
		}
		return nil, err
	}

	// Reads go through the system identity: linkage resolution is an
	// internal concern, not something the acting user is consulted for.
	record, err := r.records.Read(ctx, release.SystemIdentity(), persistentID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrRecordDeleted) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}
