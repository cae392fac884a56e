package records

import (
	"encoding/json"
	"time"

	"github.com/depositry/backend/internal/application/publication"
	"github.com/google/uuid"
)

// Version states. A tombstoned version stays in the table so linkage
// lookups can distinguish "deleted" from "never existed".
const (
	stateDraft      = "draft"
	statePublished  = "published"
	stateTombstoned = "tombstoned"
)

// File states within a draft
const (
	fileStatePending   = "pending"
	fileStateStaged    = "staged"
	fileStateCommitted = "committed"
)

// lineageModel is one record lineage: a persistent identifier shared by
// all versions of a record.
type lineageModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	PersistentID  string    `gorm:"not null;uniqueIndex"`
	LatestVersion int       `gorm:"not null;default:0"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (lineageModel) TableName() string {
	return "record_lineages"
}

// versionModel is one version of a record, draft or published
type versionModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key"`
	LineageID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Version      int       `gorm:"not null"`
	State        string    `gorm:"not null;index"`
	Metadata     []byte
	AccessRecord string `gorm:"not null"`
	AccessFiles  string `gorm:"not null"`
	FilesEnabled bool   `gorm:"not null"`
	DOI          string
	PublishedAt  *time.Time
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (versionModel) TableName() string {
	return "record_versions"
}

// fileModel is one file slot within a draft version
type fileModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	VersionID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Key        string    `gorm:"not null"`
	State      string    `gorm:"not null"`
	Size       int64
	StorageKey string
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

func (fileModel) TableName() string {
	return "record_files"
}

func (m *versionModel) metadataDocument() (publication.Document, error) {
	if len(m.Metadata) == 0 {
		return publication.Document{}, nil
	}
	var doc publication.Document
	if err := json.Unmarshal(m.Metadata, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func encodeMetadata(doc publication.Document) ([]byte, error) {
	if doc == nil {
		return nil, nil
	}
	return json.Marshal(doc)
}
