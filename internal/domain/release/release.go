package release

import (
	"fmt"

	"github.com/depositry/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Status represents the lifecycle status of a release
type Status string

const (
	StatusReceived   Status = "RECEIVED"
	StatusProcessing Status = "PROCESSING"
	StatusPublished  Status = "PUBLISHED"
	StatusFailed     Status = "FAILED"
)

// IsValid checks if the status is a valid Status
func (s Status) IsValid() bool {
	switch s {
	case StatusReceived, StatusProcessing, StatusPublished, StatusFailed:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusReceived:
		return target == StatusProcessing
	case StatusProcessing:
		return target == StatusPublished || target == StatusFailed
	case StatusFailed:
		// Failed attempts may be retried by an operator
		return target == StatusProcessing
	case StatusPublished:
		return false // Terminal state
	}
	return false
}

// Identity is the acting account for record operations. The zero Username
// marks an unresolved identity.
type Identity struct {
	UserID   uuid.UUID
	Username string
}

// SystemIdentity returns the privileged identity used for internal reads
func SystemIdentity() Identity {
	return Identity{Username: "system"}
}

// IsSystem reports whether the identity is the internal system identity
func (i Identity) IsSystem() bool {
	return i.Username == "system" && i.UserID == uuid.Nil
}

// RepoRef identifies a repository on the hosting platform
type RepoRef struct {
	ExternalID int64
	Owner      string
	Name       string
}

// FullName returns the owner-qualified repository name
func (r RepoRef) FullName() string {
	return r.Owner + "/" + r.Name
}

// Release represents one release event reported by the hosting platform.
// Releases are retained as an audit trail and are never deleted.
type Release struct {
	shared.BaseEntity
	ExternalID int64  // release id assigned by the hosting platform
	Repo       RepoRef
	Tag        string
	Title      string
	Sender     Identity // platform account that triggered the event
	ActingUser Identity // identity used for all record operations
	AssetURL   string   // download handle for the release archive
	FileName   string   // name the archive is stored under
	Status     Status
	RecordID   *uuid.UUID // weak reference, set only after successful publication
	Payload    []byte     // raw inbound event, kept for diagnostics
}

// NewRelease creates a release in the RECEIVED state
func NewRelease(externalID int64, repo RepoRef, tag string, sender, actingUser Identity, assetURL, fileName string) (*Release, error) {
	if externalID == 0 {
		return nil, shared.NewDomainError("INVALID_RELEASE", "External release ID cannot be empty")
	}
	if repo.ExternalID == 0 || repo.Owner == "" || repo.Name == "" {
		return nil, shared.NewDomainError("INVALID_REPOSITORY", "Repository reference is incomplete")
	}
	if tag == "" {
		return nil, shared.NewDomainError("INVALID_TAG", "Release tag cannot be empty")
	}
	if assetURL == "" {
		return nil, shared.NewDomainError("INVALID_ASSET", "Release asset URL cannot be empty")
	}
	if fileName == "" {
		fileName = fmt.Sprintf("%s-%s.zip", repo.Name, tag)
	}

	return &Release{
		BaseEntity: shared.NewBaseEntity(),
		ExternalID: externalID,
		Repo:       repo,
		Tag:        tag,
		Title:      fmt.Sprintf("%s: %s", repo.FullName(), tag),
		Sender:     sender,
		ActingUser: actingUser,
		AssetURL:   assetURL,
		FileName:   fileName,
		Status:     StatusReceived,
	}, nil
}

// transition moves the release to the target status, enforcing the state machine
func (r *Release) transition(target Status) error {
	if !r.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Release cannot transition from %s to %s", r.Status, target))
	}
	r.Status = target
	r.Touch()
	return nil
}

// MarkProcessing enters the PROCESSING state at the start of a publication attempt
func (r *Release) MarkProcessing() error {
	return r.transition(StatusProcessing)
}

// MarkPublished enters the PUBLISHED terminal state. A record must be linked first.
func (r *Release) MarkPublished() error {
	if r.RecordID == nil {
		return shared.NewDomainError("INVALID_STATE", "Release cannot be published without a linked record")
	}
	return r.transition(StatusPublished)
}

// MarkFailed enters the FAILED state. Failed releases may be retried.
func (r *Release) MarkFailed() error {
	return r.transition(StatusFailed)
}

// LinkRecord stores the weak reference to the published record version.
// This is the only allowed mutation of the record pointer.
func (r *Release) LinkRecord(recordID uuid.UUID) error {
	if recordID == uuid.Nil {
		return shared.NewDomainError("INVALID_INPUT", "Record ID cannot be empty")
	}
	if r.RecordID != nil {
		return shared.NewDomainError("INVALID_STATE", "Release is already linked to a record")
	}
	id := recordID
	r.RecordID = &id
	r.Touch()
	return nil
}

// HasRecord reports whether the release has been linked to a record
func (r *Release) HasRecord() bool {
	return r.RecordID != nil
}
