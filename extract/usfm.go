package extract

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	chapterMarker = regexp.MustCompile(`(?m)^\\c\s+(\d+)\s*$`)
	verseMarker   = regexp.MustCompile(`\\v\s+(\d+)[\s\x{00A0}]`)

	// Alignment markup: zaln spans and word-level attribute markers.
	zalnStart   = regexp.MustCompile(`\\zaln-s\s*\|[^\\]*\\\*`)
	zalnEnd     = regexp.MustCompile(`\\zaln-e\\\*`)
	wordMarker  = regexp.MustCompile(`\\w\s+([^|\\]*?)(?:\|[^\\]*)?\\w\*`)
	otherMarker = regexp.MustCompile(`\\[a-z]+\d*\s*\*?`)
	multiSpace  = regexp.MustCompile(`[ \t\x{00A0}]+`)
	multiBlank  = regexp.MustCompile(`\n{3,}`)
)

// ParseUSFM extracts the requested passage from a USFM book. The returned
// Scripture keeps the raw markup; when clean is set it also carries the
// stripped rendering. A chapter or verse absent from the book yields empty
// strings.
func ParseUSFM(raw string, rng VerseRange, clean bool) (*Scripture, error) {
	passage := raw
	if rng.Chapter > 0 {
		passage = chapterText(raw, rng.Chapter)
		if passage != "" && rng.narrowed() {
			passage = verseText(passage, rng)
		}
	}

	scripture := &Scripture{USFM: passage}
	if clean && passage != "" {
		scripture.Clean = CleanText(passage)
	}
	return scripture, nil
}

// chapterText returns the span from the chapter's \c marker to the next
// chapter marker or end of book. Empty when the chapter is absent.
func chapterText(raw string, chapter int) string {
	matches := chapterMarker.FindAllStringSubmatchIndex(raw, -1)
	for i, m := range matches {
		if raw[m[2]:m[3]] != fmt.Sprintf("%d", chapter) {
			continue
		}
		start := m[0]
		end := len(raw)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		return raw[start:end]
	}
	return ""
}

// verseText concatenates the selected verse spans in book order. Selection
// may be a contiguous range or an explicit list; absent verses contribute
// nothing.
func verseText(chapter string, rng VerseRange) string {
	matches := verseMarker.FindAllStringSubmatchIndex(chapter, -1)
	var parts []string
	for i, m := range matches {
		var n int
		if _, err := fmt.Sscanf(chapter[m[2]:m[3]], "%d", &n); err != nil {
			continue
		}
		if !rng.includes(n) {
			continue
		}
		spanEnd := len(chapter)
		if i+1 < len(matches) {
			spanEnd = matches[i+1][0]
		}
		parts = append(parts, chapter[m[0]:spanEnd])
	}
	return strings.Join(parts, "")
}

// CleanText strips alignment and formatting markup from a USFM passage,
// keeping verse numbers and the translated words.
func CleanText(usfm string) string {
	text := zalnStart.ReplaceAllString(usfm, "")
	text = zalnEnd.ReplaceAllString(text, "")
	text = wordMarker.ReplaceAllString(text, "$1")

	// Keep verse numbers readable before stripping the remaining markers.
	text = verseMarker.ReplaceAllString(text, "$1 ")
	text = chapterMarker.ReplaceAllString(text, "")
	text = otherMarker.ReplaceAllString(text, "")

	text = multiSpace.ReplaceAllString(text, " ")
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	text = strings.Join(lines, "\n")
	text = multiBlank.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
