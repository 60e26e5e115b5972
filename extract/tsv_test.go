package extract

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestParseTSV(t *testing.T) {
	raw := "Reference\tID\tNote\n" +
		"1:1\tabc1\tGod created everything.\n" +
		"1:2\tabc2\tThe earth was formless.\n"

	got := ParseTSV(raw)

	want := &Rows{
		Header: []string{"Reference", "ID", "Note"},
		Rows: []map[string]string{
			{"Reference": "1:1", "ID": "abc1", "Note": "God created everything."},
			{"Reference": "1:2", "ID": "abc2", "Note": "The earth was formless."},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseTSV mismatch (-want +got):\n%s", diff)
	}
}

func TestParseTSVRaggedRows(t *testing.T) {
	raw := "Reference\tID\tNote\n" +
		"1:1\tabc1\n" + // short row
		"1:2\tabc2\tnote\textra\n" // long row

	got := ParseTSV(raw)

	assert.Equal(t, "", got.Rows[0]["Note"], "missing cell is empty")
	assert.Equal(t, "note", got.Rows[1]["Note"], "surplus cell dropped")
	assert.Len(t, got.Rows[1], 3)
}

func TestParseTSVSkipsBlankLines(t *testing.T) {
	raw := "\nA\tB\n1\t2\n\n3\t4\n"
	got := ParseTSV(raw)

	assert.Equal(t, []string{"A", "B"}, got.Header)
	assert.Len(t, got.Rows, 2)
}

func TestParseTSVWindowsLineEndings(t *testing.T) {
	raw := "A\tB\r\n1\t2\r\n"
	got := ParseTSV(raw)

	assert.Equal(t, []string{"A", "B"}, got.Header)
	assert.Equal(t, "2", got.Rows[0]["B"])
}

func TestParseTSVEmptyInput(t *testing.T) {
	got := ParseTSV("")
	assert.Empty(t, got.Header)
	assert.Empty(t, got.Rows)
}
