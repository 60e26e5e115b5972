package pipeline

import "strings"

// filesSegment marks extracted-file keys. Producers and the router share
// these helpers; the key shape is the routing contract.
const filesSegment = "/files/"

// KeyKind classifies an object key for routing.
type KeyKind int

// Key kinds
const (
	KindIgnored KeyKind = iota
	KindArchive
	KindExtractedFile
)

// String returns the string representation of KeyKind
func (k KeyKind) String() string {
	switch k {
	case KindArchive:
		return "archive"
	case KindExtractedFile:
		return "extracted_file"
	default:
		return "ignored"
	}
}

// KindOfKey classifies an object key. A key is an archive when it ends in
// ".zip" and has no "/files/" segment, an extracted file when it contains
// "/files/", and ignored otherwise.
func KindOfKey(key string) KeyKind {
	if strings.Contains(key, filesSegment) {
		return KindExtractedFile
	}
	if strings.HasSuffix(key, ".zip") {
		return KindArchive
	}
	return KindIgnored
}

// ArchiveBase strips the ".zip" suffix from an archive key, yielding the
// prefix extracted files are stored under.
func ArchiveBase(archiveKey string) string {
	return strings.TrimSuffix(archiveKey, ".zip")
}

// ExtractedFileKey builds the storage key for a file extracted from the
// archive with the given base.
func ExtractedFileKey(archiveBase, entryPath string) string {
	return archiveBase + filesSegment + entryPath
}

// SplitExtractedKey decomposes an extracted-file key into the archive base
// and the entry path. Reports false for keys without a "/files/" segment.
func SplitExtractedKey(key string) (archiveBase, entryPath string, ok bool) {
	idx := strings.Index(key, filesSegment)
	if idx < 0 {
		return "", "", false
	}
	return key[:idx], key[idx+len(filesSegment):], true
}

// ResourceTypeOfKey derives the resource type from an extracted-file key.
// The archive base follows the "{language}_{resourceType}" repository
// naming, so "en_ult/files/01-GEN.usfm" yields "ult".
func ResourceTypeOfKey(key string) string {
	base, _, ok := SplitExtractedKey(key)
	if !ok {
		return ""
	}
	if idx := strings.LastIndex(base, "_"); idx >= 0 && idx+1 < len(base) {
		return base[idx+1:]
	}
	return base
}
