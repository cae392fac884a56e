package publication

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(doi string) *Record {
	return &Record{
		ID:           uuid.New(),
		PersistentID: "aaaa-bbbb",
		Version:      1,
		Metadata:     Document{"title": "Widgets"},
		Access:       PublicAccess(),
		Files:        []string{"widgets-v1.0.0.zip"},
		Links:        RecordLinks{SelfHTML: "https://repo.example.com/records/aaaa-bbbb"},
		DOI:          doi,
		PublishedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRecordURL(t *testing.T) {
	t.Run("prefers DOI link when integration enabled", func(t *testing.T) {
		p := NewPresenter(true)
		url := p.RecordURL(testRecord("10.1234/widgets.v1"))
		assert.Equal(t, "https://doi.org/10.1234/widgets.v1", url)
	})

	t.Run("falls back to landing page without DOI", func(t *testing.T) {
		p := NewPresenter(true)
		url := p.RecordURL(testRecord(""))
		assert.Equal(t, "https://repo.example.com/records/aaaa-bbbb", url)
	})

	t.Run("ignores DOI when integration disabled", func(t *testing.T) {
		p := NewPresenter(false)
		url := p.RecordURL(testRecord("10.1234/widgets.v1"))
		assert.Equal(t, "https://repo.example.com/records/aaaa-bbbb", url)
	})

	t.Run("honors custom resolver prefix", func(t *testing.T) {
		p := NewPresenter(true)
		p.SetDOIBaseURL("https://handle.test")
		url := p.RecordURL(testRecord("10.1234/widgets.v1"))
		assert.Equal(t, "https://handle.test/10.1234/widgets.v1", url)
	})
}

func TestBadgeFields(t *testing.T) {
	t.Run("present when integration enabled and DOI assigned", func(t *testing.T) {
		p := NewPresenter(true)
		rec := testRecord("10.1234/widgets.v1")
		assert.Equal(t, "DOI", p.BadgeTitle(rec))
		assert.Equal(t, "10.1234/widgets.v1", p.BadgeValue(rec))
	})

	t.Run("absent when integration disabled", func(t *testing.T) {
		p := NewPresenter(false)
		rec := testRecord("10.1234/widgets.v1")
		assert.Empty(t, p.BadgeTitle(rec))
		assert.Empty(t, p.BadgeValue(rec))
	})

	t.Run("absent when record carries no DOI", func(t *testing.T) {
		p := NewPresenter(true)
		rec := testRecord("")
		assert.Empty(t, p.BadgeTitle(rec))
		assert.Empty(t, p.BadgeValue(rec))
	})
}

func TestSerializeRecord(t *testing.T) {
	p := NewPresenter(true)
	rec := testRecord("10.1234/widgets.v1")

	doc := p.SerializeRecord(rec)

	assert.Equal(t, "aaaa-bbbb", doc["id"])
	assert.Equal(t, 1, doc["version"])
	assert.Equal(t, Document{"title": "Widgets"}, doc["metadata"])
	assert.Equal(t, []string{"widgets-v1.0.0.zip"}, doc["files"])
	assert.Equal(t, "10.1234/widgets.v1", doc["doi"])

	links, ok := doc["links"].(Document)
	require.True(t, ok)
	assert.Equal(t, "https://repo.example.com/records/aaaa-bbbb", links["self_html"])
	assert.Equal(t, "https://doi.org/10.1234/widgets.v1", links["doi"])
}

func TestMetadataMerge(t *testing.T) {
	t.Run("citation fields win on collision", func(t *testing.T) {
		m := Metadata{
			Descriptive: Document{"title": "widgets v1.0.0", "publisher": "acme"},
			Citation:    Document{"title": "Widgets", "authors": []string{"alice"}},
		}

		merged := m.Merged()

		assert.Equal(t, "Widgets", merged["title"])
		assert.Equal(t, "acme", merged["publisher"])
		assert.Equal(t, []string{"alice"}, merged["authors"])
	})

	t.Run("merge does not mutate its inputs", func(t *testing.T) {
		descriptive := Document{"title": "original"}
		citation := Document{"title": "override"}

		_ = descriptive.Merge(citation)

		assert.Equal(t, "original", descriptive["title"])
	})

	t.Run("empty citation keeps descriptive fields", func(t *testing.T) {
		m := Metadata{Descriptive: Document{"title": "widgets"}}
		assert.Equal(t, Document{"title": "widgets"}, m.Merged())
	})
}
