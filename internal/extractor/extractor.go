package extractor

import (
	"encoding/xml"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/brensch/pubparquet/internal/record"
)

// Extractor maps one article XML file to a DocumentRecord. Extract is a
// total function: every failure mode collapses into the invalid sentinel so
// that one malformed document can never abort a batch run.
type Extractor struct {
	logger *slog.Logger

	// Now stamps processing_date on valid records. Overridable in tests.
	Now func() time.Time
}

func New(logger *slog.Logger) *Extractor {
	return &Extractor{logger: logger, Now: time.Now}
}

// Extract parses the article at path. A record is valid only when both the
// title and the abstract are non-empty; a cited PMID that does not parse as
// an integer invalidates the whole record, not just that citation.
func (e *Extractor) Extract(path string) record.DocumentRecord {
	f, err := os.Open(path)
	if err != nil {
		e.logger.Warn("Failed to open document.", slog.String("path", path), "error", err)
		return record.Invalid()
	}
	defer f.Close()

	dec := xml.NewDecoder(f)
	dec.CharsetReader = charset.NewReaderLabel
	// Article files declare named entities like &ldquo; via DTD, which the
	// strict decoder rejects.
	dec.Strict = false
	dec.Entity = xml.HTMLEntity

	var doc article
	if err := dec.Decode(&doc); err != nil {
		e.logger.Warn("Failed to parse document XML.", slog.String("path", path), "error", err)
		return record.Invalid()
	}

	title := collapse(string(doc.Front.ArticleMeta.TitleGroup.ArticleTitle))
	abstract := collapse(string(doc.Front.ArticleMeta.Abstract))
	if title == "" || abstract == "" {
		e.logger.Debug("Document missing title or abstract.", slog.String("path", path))
		return record.Invalid()
	}

	citations, err := citedPMIDs(doc.Back.RefList.Refs)
	if err != nil {
		e.logger.Warn("Document has unparseable citation PMID.", slog.String("path", path), "error", err)
		return record.Invalid()
	}

	return record.New(
		title,
		abstract,
		citations,
		doc.Front.ArticleMeta.id("pmid"),
		doc.Front.ArticleMeta.id("pmc"),
		doc.Front.ArticleMeta.id("doi"),
		doc.Front.journalTitle(),
		e.Now(),
	)
}

// citedPMIDs collects cited PMIDs in document order, normalized through
// integer parsing (strips leading zeros, rejects non-numeric identifiers).
func citedPMIDs(refs []ref) ([]string, error) {
	var out []string
	for _, r := range refs {
		for _, id := range r.pubIDs() {
			if !strings.EqualFold(id.Type, "pmid") {
				continue
			}
			v := strings.TrimSpace(id.Value)
			if v == "" {
				continue
			}
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, err
			}
			out = append(out, strconv.FormatInt(n, 10))
		}
	}
	return out, nil
}

// collapse trims and collapses internal whitespace, which the XML decoder
// preserves across element boundaries.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
