package catalog

import "strings"

// bookCodes maps lowercase book names and common aliases to the 3-letter
// codes used by ingredient identifiers and USFM file names.
var bookCodes = map[string]string{
	"genesis":         "gen",
	"exodus":          "exo",
	"leviticus":       "lev",
	"numbers":         "num",
	"deuteronomy":     "deu",
	"joshua":          "jos",
	"judges":          "jdg",
	"ruth":            "rut",
	"1 samuel":        "1sa",
	"2 samuel":        "2sa",
	"1 kings":         "1ki",
	"2 kings":         "2ki",
	"1 chronicles":    "1ch",
	"2 chronicles":    "2ch",
	"ezra":            "ezr",
	"nehemiah":        "neh",
	"esther":          "est",
	"job":             "job",
	"psalms":          "psa",
	"psalm":           "psa",
	"proverbs":        "pro",
	"ecclesiastes":    "ecc",
	"song of songs":   "sng",
	"song of solomon": "sng",
	"isaiah":          "isa",
	"jeremiah":        "jer",
	"lamentations":    "lam",
	"ezekiel":         "ezk",
	"daniel":          "dan",
	"hosea":           "hos",
	"joel":            "jol",
	"amos":            "amo",
	"obadiah":         "oba",
	"jonah":           "jon",
	"micah":           "mic",
	"nahum":           "nam",
	"habakkuk":        "hab",
	"zephaniah":       "zep",
	"haggai":          "hag",
	"zechariah":       "zec",
	"malachi":         "mal",
	"matthew":         "mat",
	"mark":            "mrk",
	"luke":            "luk",
	"john":            "jhn",
	"acts":            "act",
	"romans":          "rom",
	"1 corinthians":   "1co",
	"2 corinthians":   "2co",
	"galatians":       "gal",
	"ephesians":       "eph",
	"philippians":     "php",
	"colossians":      "col",
	"1 thessalonians": "1th",
	"2 thessalonians": "2th",
	"1 timothy":       "1ti",
	"2 timothy":       "2ti",
	"titus":           "tit",
	"philemon":        "phm",
	"hebrews":         "heb",
	"james":           "jas",
	"1 peter":         "1pe",
	"2 peter":         "2pe",
	"1 john":          "1jn",
	"2 john":          "2jn",
	"3 john":          "3jn",
	"jude":            "jud",
	"revelation":      "rev",
}

// knownCodes is the reverse index for validating already-coded input.
var knownCodes = func() map[string]struct{} {
	set := make(map[string]struct{}, len(bookCodes))
	for _, code := range bookCodes {
		set[code] = struct{}{}
	}
	return set
}()

// BookCode normalizes a book identifier to its 3-letter code. Input may be a
// full name ("Genesis"), a code ("gen", "GEN"), or a name with different
// spacing ("1Corinthians"). Returns "" for unrecognized input.
func BookCode(bookID string) string {
	normalized := strings.ToLower(strings.TrimSpace(bookID))
	if normalized == "" {
		return ""
	}

	if _, ok := knownCodes[normalized]; ok {
		return normalized
	}
	if code, ok := bookCodes[normalized]; ok {
		return code
	}

	// Tolerate missing or extra space after a leading ordinal ("1Corinthians").
	if len(normalized) > 1 && normalized[0] >= '1' && normalized[0] <= '3' {
		rest := strings.TrimSpace(normalized[1:])
		if code, ok := bookCodes[normalized[:1]+" "+rest]; ok {
			return code
		}
	}

	return ""
}
