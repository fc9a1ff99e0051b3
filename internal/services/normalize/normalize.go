// Package normalize turns raw bank and platform CSV exports into a header row
// and same-width value rows.
package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"rental-reconciliation-backend/internal/models"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrNoHeader means no line qualified as a header.
var ErrNoHeader = errors.New("no header line found")

// metadata lines that start like a date ("2024.06 明細") are never the header
var datePrefix = regexp.MustCompile(`^\d{4}\.\d{2}`)

var candidateDelimiters = []rune{',', '\t', ';', '|'}

type Options struct {
	// Delimiter forces the cell separator; zero means detect it.
	Delimiter rune
}

// Table is the normalized content of one export.
type Table struct {
	Headers   []string
	Rows      [][]string
	Delimiter rune
	// Preamble holds the discarded lines above the header.
	Preamble []string
}

// Parse decodes data as UTF-8 (a leading BOM is allowed), drops blank lines,
// skips metadata lines above the header and splits cells. A table with a
// header but no rows is returned without error; callers decide whether an
// empty import is acceptable.
func Parse(data []byte, opts Options) (*Table, error) {
	decoded, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	if err != nil {
		return nil, fmt.Errorf("decode csv: %w", err)
	}

	lines := splitLines(string(decoded))

	delim := opts.Delimiter
	if delim == 0 {
		delim = detectDelimiter(lines)
	}

	headerAt := -1
	for i, line := range lines {
		if strings.ContainsRune(line, delim) && !datePrefix.MatchString(strings.TrimSpace(line)) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, ErrNoHeader
	}

	headers := SplitCells(lines[headerAt], delim)
	t := &Table{
		Headers:   headers,
		Rows:      make([][]string, 0, len(lines)-headerAt-1),
		Delimiter: delim,
		Preamble:  lines[:headerAt],
	}

	for _, line := range lines[headerAt+1:] {
		t.Rows = append(t.Rows, fit(SplitCells(line, delim), len(headers)))
	}
	return t, nil
}

// Records pairs every row with the headers. Index is the row's position in
// the table, starting at zero.
func (t *Table) Records() []models.RawRecord {
	out := make([]models.RawRecord, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = models.NewRawRecord(t.Headers, row)
	}
	return out
}

func splitLines(s string) []string {
	raw := strings.Split(s, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimRight(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines = append(lines, l)
	}
	return lines
}

// detectDelimiter picks the candidate occurring most often (outside quotes)
// on the first non-metadata line that contains any candidate.
func detectDelimiter(lines []string) rune {
	for _, line := range lines {
		if datePrefix.MatchString(strings.TrimSpace(line)) {
			continue
		}
		best, bestCount := rune(0), 0
		for _, d := range candidateDelimiters {
			if n := countUnquoted(line, d); n > bestCount {
				best, bestCount = d, n
			}
		}
		if bestCount > 0 {
			return best
		}
	}
	return ','
}

func countUnquoted(line string, delim rune) int {
	n, inQuote := 0, false
	for _, r := range line {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == delim && !inQuote:
			n++
		}
	}
	return n
}

// SplitCells splits one line on delim, ignoring delimiters inside a quoted
// span. A quote only toggles the quoted state; doubled quotes are not escapes.
// Cells are trimmed and their outer quotes removed.
func SplitCells(line string, delim rune) []string {
	var (
		cells   []string
		cur     strings.Builder
		inQuote bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			inQuote = !inQuote
			cur.WriteRune(r)
		case r == delim && !inQuote:
			cells = append(cells, clean(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	cells = append(cells, clean(cur.String()))
	return cells
}

func clean(cell string) string {
	cell = strings.TrimSpace(cell)
	if len(cell) >= 2 && cell[0] == '"' && cell[len(cell)-1] == '"' {
		cell = strings.TrimSpace(cell[1 : len(cell)-1])
	}
	return cell
}

// fit pads short rows with "" and drops cells beyond the header width.
func fit(cells []string, n int) []string {
	if len(cells) >= n {
		return cells[:n]
	}
	out := make([]string, n)
	copy(out, cells)
	return out
}
