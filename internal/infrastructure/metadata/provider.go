// Package metadata derives deposit metadata for a release: defaults from
// the release event itself, merged with citation metadata parsed from a
// CITATION.cff in the released repository.
package metadata

import (
	"context"
	"errors"
	"fmt"

	"github.com/depositry/backend/internal/application/publication"
	"github.com/depositry/backend/internal/domain/release"
	"github.com/depositry/backend/internal/domain/shared"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const defaultCitationPath = "CITATION.cff"

// RepositoryFileReader reads a file from the released repository at a ref
type RepositoryFileReader interface {
	GetRepositoryFile(ctx context.Context, owner, repo, path, ref string) ([]byte, error)
}

// Provider implements metadata extraction for releases
type Provider struct {
	files        RepositoryFileReader
	citationPath string
	logger       *zap.Logger
}

// ProviderOption is a functional option for configuring Provider
type ProviderOption func(*Provider)

// WithCitationPath overrides the citation file looked up in the repository
func WithCitationPath(path string) ProviderOption {
	return func(p *Provider) {
		p.citationPath = path
	}
}

// WithLogger sets a custom logger for Provider
func WithLogger(logger *zap.Logger) ProviderOption {
	return func(p *Provider) {
		p.logger = logger
	}
}

// NewProvider creates a new Provider. A nil file reader disables citation
// lookups; extraction then yields defaults only.
func NewProvider(files RepositoryFileReader, opts ...ProviderOption) *Provider {
	p := &Provider{
		files:        files,
		citationPath: defaultCitationPath,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Extract derives the deposit metadata for a release. A missing or broken
// citation file never fails the extraction; the release publishes with
// defaults in that case.
func (p *Provider) Extract(ctx context.Context, rel *release.Release) (publication.Metadata, error) {
	meta := publication.Metadata{
		Descriptive: p.defaultMetadata(rel),
		Citation:    publication.Document{},
	}

	if p.files == nil {
		return meta, nil
	}

	content, err := p.files.GetRepositoryFile(ctx, rel.Repo.Owner, rel.Repo.Name, p.citationPath, rel.Tag)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return meta, nil
		}
		return publication.Metadata{}, fmt.Errorf("failed to fetch citation file: %w", err)
	}

	citation, err := parseCitationFile(content)
	if err != nil {
		p.logger.Warn("Ignoring unparseable citation file",
			zap.String("repo", rel.Repo.FullName()),
			zap.String("ref", rel.Tag),
			zap.Error(err))
		return meta, nil
	}

	meta.Citation = citation
	return meta, nil
}

// defaultMetadata builds the metadata every release gets even without a
// citation file
func (p *Provider) defaultMetadata(rel *release.Release) publication.Document {
	doc := publication.Document{
		"title":            rel.Title,
		"version":          rel.Tag,
		"publication_date": rel.CreatedAt.Format("2006-01-02"),
		"resource_type":    map[string]any{"id": "software"},
	}
	if rel.Sender.Username != "" {
		doc["creators"] = []any{personEntry(rel.Sender.Username, "", "")}
	}
	return doc
}

// citationFile is the subset of the Citation File Format we map into
// deposit metadata
type citationFile struct {
	Title    string   `yaml:"title"`
	Version  string   `yaml:"version"`
	Abstract string   `yaml:"abstract"`
	License  string   `yaml:"license"`
	DOI      string   `yaml:"doi"`
	Keywords []string `yaml:"keywords"`
	Authors  []struct {
		Name        string `yaml:"name"`
		GivenNames  string `yaml:"given-names"`
		FamilyNames string `yaml:"family-names"`
	} `yaml:"authors"`
}

func parseCitationFile(content []byte) (publication.Document, error) {
	var cff citationFile
	if err := yaml.Unmarshal(content, &cff); err != nil {
		return nil, err
	}

	doc := publication.Document{}
	if cff.Title != "" {
		doc["title"] = cff.Title
	}
	if cff.Version != "" {
		doc["version"] = cff.Version
	}
	if cff.Abstract != "" {
		doc["description"] = cff.Abstract
	}
	if cff.License != "" {
		doc["rights"] = []any{map[string]any{"id": cff.License}}
	}
	if len(cff.Keywords) > 0 {
		subjects := make([]any, 0, len(cff.Keywords))
		for _, kw := range cff.Keywords {
			subjects = append(subjects, map[string]any{"subject": kw})
		}
		doc["subjects"] = subjects
	}
	if len(cff.Authors) > 0 {
		creators := make([]any, 0, len(cff.Authors))
		for _, a := range cff.Authors {
			creators = append(creators, personEntry(a.Name, a.GivenNames, a.FamilyNames))
		}
		doc["creators"] = creators
	}
	return doc, nil
}

func personEntry(name, givenNames, familyNames string) map[string]any {
	person := map[string]any{"type": "personal"}
	if givenNames != "" {
		person["given_name"] = givenNames
	}
	if familyNames != "" {
		person["family_name"] = familyNames
	}
	if name != "" {
		person["name"] = name
	} else if givenNames != "" || familyNames != "" {
		person["name"] = familyNames + ", " + givenNames
	}
	return map[string]any{"person_or_org": person}
}

// Ensure Provider implements the metadata boundary
var _ publication.MetadataProvider = (*Provider)(nil)
