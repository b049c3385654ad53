package record

import (
	"strings"
	"time"
)

// DocumentRecord is the extracted representation of one article XML file.
// The parquet tags define the partition file schema.
type DocumentRecord struct {
	Valid       bool   `parquet:"name=valid, type=BOOLEAN"`
	Title       string `parquet:"name=title, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Abstract    string `parquet:"name=abstract, type=BYTE_ARRAY, convertedtype=UTF8"`
	Citations   string `parquet:"name=citations, type=BYTE_ARRAY, convertedtype=UTF8"`
	PMID        string `parquet:"name=pmid, type=BYTE_ARRAY, convertedtype=UTF8"`
	PMC         string `parquet:"name=pmc, type=BYTE_ARRAY, convertedtype=UTF8"`
	DOI         string `parquet:"name=doi, type=BYTE_ARRAY, convertedtype=UTF8"`
	Journal     string `parquet:"name=journal, type=BYTE_ARRAY, convertedtype=UTF8"`
	ProcessedOn string `parquet:"name=processing_date, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
}

// Invalid returns the canonical sentinel for a document that could not be
// extracted. Every field other than Valid is empty; a record is never
// partially filled.
func Invalid() DocumentRecord {
	return DocumentRecord{}
}

// New builds a valid record. Citation PMIDs are joined in document order.
func New(title, abstract string, citations []string, pmid, pmc, doi, journal string, processedOn time.Time) DocumentRecord {
	return DocumentRecord{
		Valid:       true,
		Title:       title,
		Abstract:    abstract,
		Citations:   strings.Join(citations, ","),
		PMID:        pmid,
		PMC:         pmc,
		DOI:         doi,
		Journal:     journal,
		ProcessedOn: processedOn.Format("2006-01-02"),
	}
}
