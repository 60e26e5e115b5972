package extract

import (
	"strings"

	"github.com/klappy/translation-helps-core/errors"
)

// Kind discriminates the Content union.
type Kind int

// Content kinds by resource format
const (
	KindScripture Kind = iota
	KindRows
	KindArticle
)

// Content is the tagged union of extraction results. Exactly one of the
// three payload fields is set, named by Kind.
type Content struct {
	Kind      Kind       `json:"kind"`
	Scripture *Scripture `json:"scripture,omitempty"`
	Rows      *Rows      `json:"rows,omitempty"`
	Article   *Article   `json:"article,omitempty"`
}

// Scripture is extracted USFM text. USFM carries the original markup
// including alignment data; Clean is the human-readable rendering, empty
// when cleaning was opted out.
type Scripture struct {
	USFM  string `json:"usfm"`
	Clean string `json:"clean,omitempty"`
}

// Rows is a parsed tab-separated help table.
type Rows struct {
	Header []string            `json:"header"`
	Rows   []map[string]string `json:"rows"`
}

// Article is a parsed Markdown article.
type Article struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Meta  map[string]string `json:"meta,omitempty"`
}

// VerseRange selects a passage within a scripture book. Chapter 0 selects
// the whole book. Within a chapter, a non-empty Verses list picks exactly
// those verses, which need not be contiguous; otherwise Start/End select a
// contiguous range (Start 0 selects the whole chapter; End 0 means
// End=Start).
type VerseRange struct {
	Chapter int
	Start   int
	End     int
	Verses  []int
}

// narrowed reports whether the selection goes below chapter level.
func (r VerseRange) narrowed() bool {
	return len(r.Verses) > 0 || r.Start > 0
}

// includes reports whether verse n is selected.
func (r VerseRange) includes(n int) bool {
	if len(r.Verses) > 0 {
		for _, v := range r.Verses {
			if v == n {
				return true
			}
		}
		return false
	}
	end := r.End
	if end <= 0 {
		end = r.Start
	}
	return n >= r.Start && n <= end
}

// Options controls extraction behavior.
type Options struct {
	Range     VerseRange
	SkipClean bool // leave Scripture.Clean empty
}

// scriptureTypes are resource types whose files are USFM books.
var scriptureTypes = map[string]struct{}{
	"ult": {}, "ust": {}, "glt": {}, "gst": {}, "ulb": {}, "udb": {},
}

// tableTypes are resource types whose files are TSV help tables.
var tableTypes = map[string]struct{}{
	"tn": {}, "tq": {}, "twl": {}, "sn": {}, "sq": {},
}

// KindForResource maps a resource type to its content kind. Unrecognized
// types are treated as articles, the format of the word and academy
// collections.
func KindForResource(resourceType string) Kind {
	rt := strings.ToLower(resourceType)
	if _, ok := scriptureTypes[rt]; ok {
		return KindScripture
	}
	if _, ok := tableTypes[rt]; ok {
		return KindRows
	}
	return KindArticle
}

// Parse extracts structured content from data according to the resource
// type's format.
func Parse(resourceType string, data []byte, opts Options) (*Content, error) {
	switch KindForResource(resourceType) {
	case KindScripture:
		scripture, err := ParseUSFM(string(data), opts.Range, !opts.SkipClean)
		if err != nil {
			return nil, err
		}
		return &Content{Kind: KindScripture, Scripture: scripture}, nil
	case KindRows:
		rows := ParseTSV(string(data))
		return &Content{Kind: KindRows, Rows: rows}, nil
	case KindArticle:
		article, err := ParseMarkdown(data)
		if err != nil {
			return nil, err
		}
		return &Content{Kind: KindArticle, Article: article}, nil
	}
	return nil, errors.WrapInvalid(errors.ErrParsingFailed, "extract", "Parse", "unknown content kind")
}
