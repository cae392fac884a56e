package publication

import (
	"time"

	"github.com/google/uuid"
)

// Document is a loosely typed metadata document
type Document map[string]any

// Merge returns a copy of d with all keys from other applied on top.
// On key collision the value from other wins (last-write-wins).
func (d Document) Merge(other Document) Document {
	merged := make(Document, len(d)+len(other))
	for k, v := range d {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

// Metadata is the extraction result for one release: descriptive fields
// derived from the release event plus citation fields from the repository's
// citation file. Citation fields take precedence when merged.
type Metadata struct {
	Descriptive Document
	Citation    Document
}

// Merged returns the deposit metadata document with citation precedence
func (m Metadata) Merged() Document {
	return m.Descriptive.Merge(m.Citation)
}

// Access levels for records and their files
const (
	AccessPublic     = "public"
	AccessRestricted = "restricted"
)

// AccessPolicy describes the visibility of a record and its files
type AccessPolicy struct {
	Record string `json:"record"`
	Files  string `json:"files"`
}

// PublicAccess returns the default policy applied to published releases
func PublicAccess() AccessPolicy {
	return AccessPolicy{Record: AccessPublic, Files: AccessPublic}
}

// DepositData is the payload for draft creation and draft updates
type DepositData struct {
	Metadata     Document
	Access       AccessPolicy
	FilesEnabled bool
}

// Draft is a mutable, unpublished staging version of a record
type Draft struct {
	ID           uuid.UUID
	PersistentID string // lineage identifier, stable across versions
	Version      int
	Metadata     Document
	Access       AccessPolicy
	FilesEnabled bool
}

// RecordLinks holds the public-facing URLs of a record
type RecordLinks struct {
	SelfHTML string `json:"self_html"`
	DOI      string `json:"doi,omitempty"`
}

// Record is a published, versioned, persistently identified artifact
type Record struct {
	ID           uuid.UUID // version-specific identifier
	PersistentID string    // lineage identifier, stable across versions
	Version      int
	Metadata     Document
	Access       AccessPolicy
	Files        []string
	Links        RecordLinks
	DOI          string // empty when the DOI integration is disabled
	PublishedAt  time.Time
}
