package extractor

import (
	"encoding/xml"
	"strings"
)

// Minimal JATS article mapping: only the elements the record schema needs.

// innerText accumulates all character data under an element, including text
// nested inside markup like <italic> or <p>, which a plain string field
// would drop. A space is inserted at element boundaries so adjacent blocks
// do not run together; callers collapse whitespace afterwards.
type innerText string

func (t *innerText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var sb strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch v := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
			sb.WriteByte(' ')
		case xml.CharData:
			sb.Write(v)
		}
	}
	*t = innerText(sb.String())
	return nil
}

type article struct {
	Front front `xml:"front"`
	Back  back  `xml:"back"`
}

type front struct {
	JournalMeta journalMeta `xml:"journal-meta"`
	ArticleMeta articleMeta `xml:"article-meta"`
}

type journalMeta struct {
	JournalTitle innerText `xml:"journal-title"`
	TitleGroup   struct {
		JournalTitle innerText `xml:"journal-title"`
	} `xml:"journal-title-group"`
}

type articleMeta struct {
	IDs        []articleID `xml:"article-id"`
	TitleGroup struct {
		ArticleTitle innerText `xml:"article-title"`
	} `xml:"title-group"`
	Abstract innerText `xml:"abstract"`
}

type articleID struct {
	Type  string `xml:"pub-id-type,attr"`
	Value string `xml:",chardata"`
}

type back struct {
	RefList refList `xml:"ref-list"`
}

type refList struct {
	Refs []ref `xml:"ref"`
}

// Citation identifiers appear under element-citation, mixed-citation, or the
// legacy citation element depending on archive vintage.
type ref struct {
	ElementCitation citation `xml:"element-citation"`
	MixedCitation   citation `xml:"mixed-citation"`
	Citation        citation `xml:"citation"`
}

type citation struct {
	PubIDs []pubID `xml:"pub-id"`
}

type pubID struct {
	Type  string `xml:"pub-id-type,attr"`
	Value string `xml:",chardata"`
}

func (r ref) pubIDs() []pubID {
	ids := make([]pubID, 0, len(r.ElementCitation.PubIDs)+len(r.MixedCitation.PubIDs)+len(r.Citation.PubIDs))
	ids = append(ids, r.ElementCitation.PubIDs...)
	ids = append(ids, r.MixedCitation.PubIDs...)
	ids = append(ids, r.Citation.PubIDs...)
	return ids
}

func (m articleMeta) id(idType string) string {
	for _, id := range m.IDs {
		if strings.EqualFold(id.Type, idType) {
			return strings.TrimSpace(id.Value)
		}
	}
	return ""
}

func (f front) journalTitle() string {
	if t := strings.TrimSpace(string(f.JournalMeta.JournalTitle)); t != "" {
		return t
	}
	return strings.TrimSpace(string(f.JournalMeta.TitleGroup.JournalTitle))
}
