package extractor

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brensch/pubparquet/internal/record"
)

const validArticle = `<?xml version="1.0" encoding="UTF-8"?>
<article>
  <front>
    <journal-meta>
      <journal-title-group><journal-title>Test Journal</journal-title></journal-title-group>
    </journal-meta>
    <article-meta>
      <article-id pub-id-type="pmid">123456</article-id>
      <article-id pub-id-type="pmc">PMC7777</article-id>
      <article-id pub-id-type="doi">10.1000/test.1</article-id>
      <title-group><article-title>A <italic>Study</italic> of Things</article-title></title-group>
      <abstract><p>Background text.</p><p>More text.</p></abstract>
    </article-meta>
  </front>
  <back>
    <ref-list>
      <ref id="r1"><element-citation><pub-id pub-id-type="pmid">0012345</pub-id></element-citation></ref>
      <ref id="r2"><mixed-citation><pub-id pub-id-type="doi">10.1000/other</pub-id><pub-id pub-id-type="pmid">67890</pub-id></mixed-citation></ref>
    </ref-list>
  </back>
</article>`

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.xml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestExtractor() *Extractor {
	e := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	e.Now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return e
}

func TestExtractValidArticle(t *testing.T) {
	e := newTestExtractor()
	rec := e.Extract(writeDoc(t, validArticle))

	require.True(t, rec.Valid)
	assert.Equal(t, "A Study of Things", rec.Title, "nested markup flattens to character data")
	assert.Equal(t, "Background text. More text.", rec.Abstract)
	assert.Equal(t, "12345,67890", rec.Citations, "PMIDs normalized through integer parsing, document order kept")
	assert.Equal(t, "123456", rec.PMID)
	assert.Equal(t, "PMC7777", rec.PMC)
	assert.Equal(t, "10.1000/test.1", rec.DOI)
	assert.Equal(t, "Test Journal", rec.Journal)
	assert.Equal(t, "2024-06-01", rec.ProcessedOn)
}

func TestExtractMissingTitleOrAbstractIsInvalid(t *testing.T) {
	noAbstract := `<article><front><article-meta>
		<title-group><article-title>Has Title</article-title></title-group>
	</article-meta></front></article>`
	noTitle := `<article><front><article-meta>
		<abstract>Has abstract.</abstract>
	</article-meta></front></article>`

	e := newTestExtractor()
	for _, doc := range []string{noAbstract, noTitle} {
		rec := e.Extract(writeDoc(t, doc))
		assert.Equal(t, record.Invalid(), rec, "sentinel must be fully empty, never partially filled")
	}
}

func TestExtractBadCitationInvalidatesWholeRecord(t *testing.T) {
	doc := `<article>
	  <front><article-meta>
	    <article-id pub-id-type="pmid">111</article-id>
	    <title-group><article-title>T</article-title></title-group>
	    <abstract>A</abstract>
	  </article-meta></front>
	  <back><ref-list>
	    <ref><element-citation><pub-id pub-id-type="pmid">222</pub-id></element-citation></ref>
	    <ref><element-citation><pub-id pub-id-type="pmid">PMC333</pub-id></element-citation></ref>
	  </ref-list></back>
	</article>`

	rec := newTestExtractor().Extract(writeDoc(t, doc))
	assert.Equal(t, record.Invalid(), rec, "one unparseable PMID invalidates the record, not just the citation")
}

func TestExtractNoCitationsIsStillValid(t *testing.T) {
	doc := `<article><front><article-meta>
	    <title-group><article-title>T</article-title></title-group>
	    <abstract>A</abstract>
	  </article-meta></front></article>`

	rec := newTestExtractor().Extract(writeDoc(t, doc))
	require.True(t, rec.Valid)
	assert.Empty(t, rec.Citations)
	assert.Empty(t, rec.PMID)
}

func TestExtractJournalTitleFallsBackToJournalMeta(t *testing.T) {
	doc := `<article><front>
	  <journal-meta><journal-title>Direct Title</journal-title></journal-meta>
	  <article-meta>
	    <title-group><article-title>T</article-title></title-group>
	    <abstract>A</abstract>
	  </article-meta></front></article>`

	rec := newTestExtractor().Extract(writeDoc(t, doc))
	require.True(t, rec.Valid)
	assert.Equal(t, "Direct Title", rec.Journal)
}

func TestExtractResolvesNamedEntities(t *testing.T) {
	doc := `<article><front><article-meta>
	    <title-group><article-title>A &ldquo;Quoted&rdquo; Title</article-title></title-group>
	    <abstract>Uses &ndash; dashes &amp; entities.</abstract>
	  </article-meta></front></article>`

	rec := newTestExtractor().Extract(writeDoc(t, doc))
	require.True(t, rec.Valid, "DTD-declared named entities must not invalidate the document")
	assert.Equal(t, "A “Quoted” Title", rec.Title)
	assert.Equal(t, "Uses – dashes & entities.", rec.Abstract)
}

func TestExtractUnreadableOrMalformedIsInvalid(t *testing.T) {
	e := newTestExtractor()

	rec := e.Extract(filepath.Join(t.TempDir(), "missing.xml"))
	assert.Equal(t, record.Invalid(), rec)

	rec = e.Extract(writeDoc(t, "this is not xml <<<"))
	assert.Equal(t, record.Invalid(), rec)
}
