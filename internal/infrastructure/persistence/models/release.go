package models

import (
	"github.com/depositry/backend/internal/domain/release"
	"github.com/google/uuid"
)

// ReleaseModel is the persistence model for release aggregates
type ReleaseModel struct {
	BaseModel
	ExternalID     int64      `gorm:"not null;uniqueIndex"`
	RepoExternalID int64      `gorm:"not null;index:idx_releases_repo_status"`
	RepoOwner      string     `gorm:"not null"`
	RepoName       string     `gorm:"not null"`
	Tag            string     `gorm:"not null"`
	Title          string
	SenderUserID   uuid.UUID  `gorm:"type:uuid;not null"`
	SenderUsername string
	ActingUserID   uuid.UUID  `gorm:"type:uuid;not null"`
	ActingUsername string
	AssetURL       string     `gorm:"not null"`
	FileName       string     `gorm:"not null"`
	Status         string     `gorm:"not null;index:idx_releases_repo_status"`
	RecordID       *uuid.UUID `gorm:"type:uuid"`
	Payload        []byte
}

// TableName specifies the table name for ReleaseModel
func (ReleaseModel) TableName() string {
	return "releases"
}

// ToDomain converts ReleaseModel to a domain Release
func (m *ReleaseModel) ToDomain() *release.Release {
	return &release.Release{
		BaseEntity: m.BaseModel.ToDomain(),
		ExternalID: m.ExternalID,
		Repo: release.RepoRef{
			ExternalID: m.RepoExternalID,
			Owner:      m.RepoOwner,
			Name:       m.RepoName,
		},
		Tag:   m.Tag,
		Title: m.Title,
		Sender: release.Identity{
			UserID:   m.SenderUserID,
			Username: m.SenderUsername,
		},
		ActingUser: release.Identity{
			UserID:   m.ActingUserID,
			Username: m.ActingUsername,
		},
		AssetURL: m.AssetURL,
		FileName: m.FileName,
		Status:   release.Status(m.Status),
		RecordID: m.RecordID,
		Payload:  m.Payload,
	}
}

// ReleaseModelFromDomain converts a domain Release to a ReleaseModel
func ReleaseModelFromDomain(rel *release.Release) *ReleaseModel {
	m := &ReleaseModel{
		ExternalID:     rel.ExternalID,
		RepoExternalID: rel.Repo.ExternalID,
		RepoOwner:      rel.Repo.Owner,
		RepoName:       rel.Repo.Name,
		Tag:            rel.Tag,
		Title:          rel.Title,
		SenderUserID:   rel.Sender.UserID,
		SenderUsername: rel.Sender.Username,
		ActingUserID:   rel.ActingUser.UserID,
		ActingUsername: rel.ActingUser.Username,
		AssetURL:       rel.AssetURL,
		FileName:       rel.FileName,
		Status:         string(rel.Status),
		RecordID:       rel.RecordID,
		Payload:        rel.Payload,
	}
	m.FromDomainBaseEntity(rel.BaseEntity)
	return m
}
