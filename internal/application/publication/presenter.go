package publication

import "fmt"

// DefaultDOIBaseURL is the resolver prefix for DOI-style persistent links
const DefaultDOIBaseURL = "https://doi.org"

// Presenter computes the public-facing view of a record: its canonical URL
// and the badge display fields. Behavior depends on whether the external
// DOI integration is enabled.
type Presenter struct {
	doiEnabled bool
	doiBaseURL string
}

// NewPresenter creates a new Presenter
func NewPresenter(doiEnabled bool) *Presenter {
	return &Presenter{
		doiEnabled: doiEnabled,
		doiBaseURL: DefaultDOIBaseURL,
	}
}

// SetDOIBaseURL overrides the DOI resolver prefix, mainly for tests
func (p *Presenter) SetDOIBaseURL(baseURL string) {
	p.doiBaseURL = baseURL
}

// RecordURL returns the canonical public URL of a record. A DOI-style
// persistent link is preferred when the DOI integration is enabled and the
// record carries one; otherwise the record's own landing page URL is used.
func (p *Presenter) RecordURL(record *Record) string {
	if p.doiEnabled && record.DOI != "" {
		return fmt.Sprintf("%s/%s", p.doiBaseURL, record.DOI)
	}
	return record.Links.SelfHTML
}

// BadgeTitle returns the badge label, empty when the DOI integration is
// disabled or the record has no DOI.
func (p *Presenter) BadgeTitle(record *Record) string {
	if !p.doiEnabled || record.DOI == "" {
		return ""
	}
	return "DOI"
}

// BadgeValue returns the badge value, empty under the same conditions as
// BadgeTitle.
func (p *Presenter) BadgeValue(record *Record) string {
	if !p.doiEnabled || record.DOI == "" {
		return ""
	}
	return record.DOI
}

// SerializeRecord flattens a record into a UI-facing document
func (p *Presenter) SerializeRecord(record *Record) Document {
	doc := Document{
		"id":           record.PersistentID,
		"version":      record.Version,
		"metadata":     record.Metadata,
		"access":       record.Access,
		"files":        record.Files,
		"published_at": record.PublishedAt,
		"links": Document{
			"self_html": record.Links.SelfHTML,
		},
	}
	if p.doiEnabled && record.DOI != "" {
		doc["doi"] = record.DOI
		links := doc["links"].(Document)
		links["doi"] = p.RecordURL(record)
	}
	return doc
}
