package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfKey(t *testing.T) {
	tests := []struct {
		key  string
		want KeyKind
	}{
		{"en_ult.zip", KindArchive},
		{"en_tn.zip", KindArchive},
		{"en_ult/files/gen.usfm", KindExtractedFile},
		{"en_ult/files/sub/dir/file.md", KindExtractedFile},
		{"en_ult/files/archive.zip", KindExtractedFile}, // files segment wins
		{"README.md", KindIgnored},
		{"en_ult", KindIgnored},
		{"", KindIgnored},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOfKey(tt.key), "key %q", tt.key)
	}
}

func TestKeyHelpers(t *testing.T) {
	assert.Equal(t, "en_ult", ArchiveBase("en_ult.zip"))
	assert.Equal(t, "en_ult/files/01-GEN.usfm", ExtractedFileKey("en_ult", "01-GEN.usfm"))

	base, path, ok := SplitExtractedKey("en_ult/files/01-GEN.usfm")
	assert.True(t, ok)
	assert.Equal(t, "en_ult", base)
	assert.Equal(t, "01-GEN.usfm", path)

	_, _, ok = SplitExtractedKey("en_ult.zip")
	assert.False(t, ok)
}

func TestKeyRoundTrip(t *testing.T) {
	key := ExtractedFileKey(ArchiveBase("en_ult.zip"), "01-GEN.usfm")
	assert.Equal(t, KindExtractedFile, KindOfKey(key))

	base, path, ok := SplitExtractedKey(key)
	assert.True(t, ok)
	assert.Equal(t, "en_ult", base)
	assert.Equal(t, "01-GEN.usfm", path)
}

func TestResourceTypeOfKey(t *testing.T) {
	assert.Equal(t, "ult", ResourceTypeOfKey("en_ult/files/01-GEN.usfm"))
	assert.Equal(t, "tn", ResourceTypeOfKey("en_tn/files/tn_GEN.tsv"))
	assert.Equal(t, "obs", ResourceTypeOfKey("es-419_obs/files/content/01.md"))
	assert.Equal(t, "", ResourceTypeOfKey("en_ult.zip"))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "archive", KindArchive.String())
	assert.Equal(t, "extracted_file", KindExtractedFile.String())
	assert.Equal(t, "ignored", KindIgnored.String())
}
