package dto

import (
	"time"

	"github.com/depositry/backend/internal/domain/release"
	"github.com/google/uuid"
)

// RepoResponse identifies the released repository
type RepoResponse struct {
	ExternalID int64  `json:"external_id"`
	Owner      string `json:"owner"`
	Name       string `json:"name"`
	FullName   string `json:"full_name"`
}

// ReleaseResponse is the API representation of a release
type ReleaseResponse struct {
	ID         uuid.UUID    `json:"id"`
	ExternalID int64        `json:"external_id"`
	Repo       RepoResponse `json:"repo"`
	Tag        string       `json:"tag"`
	Title      string       `json:"title"`
	Status     string       `json:"status"`
	RecordID   *uuid.UUID   `json:"record_id,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// ReleaseResponseFromDomain converts a domain release to its API representation
func ReleaseResponseFromDomain(rel *release.Release) ReleaseResponse {
	return ReleaseResponse{
		ID:         rel.ID,
		ExternalID: rel.ExternalID,
		Repo: RepoResponse{
			ExternalID: rel.Repo.ExternalID,
			Owner:      rel.Repo.Owner,
			Name:       rel.Repo.Name,
			FullName:   rel.Repo.FullName(),
		},
		Tag:       rel.Tag,
		Title:     rel.Title,
		Status:    rel.Status.String(),
		RecordID:  rel.RecordID,
		CreatedAt: rel.CreatedAt,
		UpdatedAt: rel.UpdatedAt,
	}
}

// BadgeResponse carries the data a badge renderer needs. Title and value
// are empty when the external identifier integration is disabled.
type BadgeResponse struct {
	Title string `json:"title"`
	Value string `json:"value"`
	URL   string `json:"url"`
}
