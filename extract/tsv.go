package extract

import "strings"

// ParseTSV parses a tab-separated help table. The first line names the
// columns; every following non-empty line becomes a row keyed by those
// names. Ragged rows are tolerated: missing cells are empty strings and
// surplus cells are dropped.
func ParseTSV(raw string) *Rows {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")

	var header []string
	for len(lines) > 0 {
		first := strings.TrimRight(lines[0], "\r")
		lines = lines[1:]
		if strings.TrimSpace(first) == "" {
			continue
		}
		header = strings.Split(first, "\t")
		break
	}
	if len(header) == 0 {
		return &Rows{Header: []string{}, Rows: []map[string]string{}}
	}

	rows := make([]map[string]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		cells := strings.Split(line, "\t")
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(cells) {
				row[name] = cells[i]
			} else {
				row[name] = ""
			}
		}
		rows = append(rows, row)
	}

	return &Rows{Header: header, Rows: rows}
}
