// Package parser turns a PDF document into an ordered sequence of content
// chunks. Tables are detected from the page geometry, extracted as rows of
// cells and rendered as markdown; everything outside the detected table
// regions is treated as prose and windowed into fixed-size line groups.
package parser

import (
	"sort"
	"strings"

	"docsift/internal/chunk"
)

// DefaultWindowLines is the number of consecutive prose lines merged into
// one text chunk.
const DefaultWindowLines = 10

// Run is one positioned text fragment on a page, in PDF user-space
// coordinates (y grows upward).
type Run struct {
	X, Y, W float64
	Size    float64
	Text    string
}

type Parser struct {
	window int
}

func New(windowLines int) *Parser {
	if windowLines <= 0 {
		windowLines = DefaultWindowLines
	}
	return &Parser{window: windowLines}
}

// Parse extracts all chunks from the document at path. Chunks are emitted
// page by page, tables first in detection order, then prose windows in
// reading order. The positional order is what the embedding client later
// uses to map vectors back onto chunks, so it must stay stable.
func (p *Parser) Parse(path, fileName string) ([]chunk.Chunk, error) {
	pages, err := readPages(path)
	if err != nil {
		return nil, err
	}

	var out []chunk.Chunk
	for i, runs := range pages {
		out = append(out, p.chunkPage(fileName, i+1, runs)...)
	}
	return out, nil
}

// cell is a horizontal span of text on a row.
type cell struct {
	x0, x1 float64
	text   string
}

// row is a baseline-aligned group of cells, left to right.
type row struct {
	y     float64
	size  float64
	cells []cell
}

// chunkPage runs table detection and prose windowing over a single page.
func (p *Parser) chunkPage(fileName string, pageNo int, runs []Run) []chunk.Chunk {
	rows := assembleRows(runs)
	if len(rows) == 0 {
		return nil
	}

	tables, consumed := detectTables(rows)

	var out []chunk.Chunk
	for _, t := range tables {
		out = append(out, chunk.Chunk{
			FileName:    fileName,
			PageNo:      pageNo,
			ContentType: chunk.TypeTable,
			Content:     renderTable(t),
		})
	}

	var prose []row
	for i, r := range rows {
		if !consumed[i] {
			prose = append(prose, r)
		}
	}

	for _, para := range splitParagraphs(prose) {
		for _, win := range windows(para, p.window) {
			out = append(out, chunk.Chunk{
				FileName:    fileName,
				PageNo:      pageNo,
				ContentType: chunk.TypeText,
				Content:     strings.Join(win, " "),
			})
		}
	}
	return out
}

// Geometry thresholds, in multiples of the row's font size. wordGap separates
// adjacent words within one cell; cellGap starts a new cell (a table column
// boundary is always a wider gap than word spacing).
const (
	wordGapFactor = 0.18
	cellGapFactor = 2.0
	colAlignTol   = 4.0
	paraGapFactor = 1.8
)

// assembleRows groups runs by baseline and merges them into cells. Rows come
// back top-to-bottom, cells left-to-right.
func assembleRows(runs []Run) []row {
	if len(runs) == 0 {
		return nil
	}

	sorted := make([]Run, len(runs))
	copy(sorted, runs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y > sorted[j].Y // top of page first
		}
		return sorted[i].X < sorted[j].X
	})

	var rows []row
	for _, r := range sorted {
		size := r.Size
		if size <= 0 {
			size = 10
		}
		tol := size * 0.4
		if n := len(rows); n > 0 && rows[n-1].y-r.Y <= tol {
			rows[n-1].cells = appendRun(rows[n-1].cells, r, size)
			continue
		}
		rows = append(rows, row{
			y:     r.Y,
			size:  size,
			cells: []cell{{x0: r.X, x1: r.X + r.W, text: r.Text}},
		})
	}

	// Drop rows that ended up whitespace-only.
	out := rows[:0]
	for _, r := range rows {
		cells := r.cells[:0]
		for _, c := range r.cells {
			c.text = strings.TrimSpace(c.text)
			if c.text != "" {
				cells = append(cells, c)
			}
		}
		if len(cells) > 0 {
			r.cells = cells
			out = append(out, r)
		}
	}
	return out
}

// appendRun merges a run into the current row: small gaps concatenate,
// word-sized gaps add a space, column-sized gaps open a new cell.
func appendRun(cells []cell, r Run, size float64) []cell {
	last := &cells[len(cells)-1]
	gap := r.X - last.x1
	switch {
	case gap >= size*cellGapFactor:
		return append(cells, cell{x0: r.X, x1: r.X + r.W, text: r.Text})
	case gap >= size*wordGapFactor:
		last.text += " " + r.Text
	default:
		last.text += r.Text
	}
	if r.X+r.W > last.x1 {
		last.x1 = r.X + r.W
	}
	return cells
}

// table is a detected tabular region: rows of string cells plus the indices
// of the page rows it was built from.
type table struct {
	cells [][]string
}

// detectTables finds maximal groups of two or more consecutive rows that
// share the same column layout (equal cell count, aligned cell starts).
// It returns the tables in top-to-bottom detection order and a set marking
// which page rows were consumed, so their text is excluded from prose.
func detectTables(rows []row) ([]table, map[int]bool) {
	consumed := make(map[int]bool)
	var tables []table

	i := 0
	for i < len(rows) {
		if len(rows[i].cells) < 2 {
			i++
			continue
		}
		j := i + 1
		for j < len(rows) && sameColumns(rows[i], rows[j]) {
			j++
		}
		if j-i >= 2 {
			t := table{}
			for k := i; k < j; k++ {
				var line []string
				for _, c := range rows[k].cells {
					line = append(line, c.text)
				}
				t.cells = append(t.cells, line)
				consumed[k] = true
			}
			tables = append(tables, t)
			i = j
			continue
		}
		i++
	}
	return tables, consumed
}

func sameColumns(a, b row) bool {
	if len(b.cells) != len(a.cells) {
		return false
	}
	for i := range a.cells {
		d := a.cells[i].x0 - b.cells[i].x0
		if d < -colAlignTol || d > colAlignTol {
			return false
		}
	}
	return true
}

// renderTable produces a markdown rendering: first row as header, a
// separator, then body rows.
func renderTable(t table) string {
	var b strings.Builder
	for i, r := range t.cells {
		b.WriteString("| ")
		b.WriteString(strings.Join(r, " | "))
		b.WriteString(" |\n")
		if i == 0 {
			b.WriteString("|")
			b.WriteString(strings.Repeat(" --- |", len(r)))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// splitParagraphs turns the remaining prose rows into paragraphs of trimmed,
// non-empty lines. A vertical gap well above the page's typical line pitch
// is treated as a paragraph boundary, the geometric equivalent of a blank
// line.
func splitParagraphs(rows []row) [][]string {
	if len(rows) == 0 {
		return nil
	}

	pitch := linePitch(rows)

	var paras [][]string
	current := []string{rowText(rows[0])}
	for i := 1; i < len(rows); i++ {
		gap := rows[i-1].y - rows[i].y
		threshold := pitch * paraGapFactor
		if pitch == 0 {
			threshold = rows[i].size * paraGapFactor
		}
		if gap > threshold {
			paras = append(paras, current)
			current = nil
		}
		current = append(current, rowText(rows[i]))
	}
	paras = append(paras, current)
	return paras
}

// linePitch estimates the dominant baseline-to-baseline distance on a page
// as the median of positive gaps between consecutive rows.
func linePitch(rows []row) float64 {
	var gaps []float64
	for i := 1; i < len(rows); i++ {
		if g := rows[i-1].y - rows[i].y; g > 0 {
			gaps = append(gaps, g)
		}
	}
	if len(gaps) == 0 {
		return 0
	}
	sort.Float64s(gaps)
	return gaps[len(gaps)/2]
}

func rowText(r row) string {
	parts := make([]string, len(r.cells))
	for i, c := range r.cells {
		parts[i] = c.text
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// windows groups lines into fixed-size batches of n consecutive lines. A
// paragraph shorter than n yields exactly one window.
func windows(lines []string, n int) [][]string {
	trimmed := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			trimmed = append(trimmed, l)
		}
	}
	if len(trimmed) == 0 {
		return nil
	}

	var out [][]string
	for start := 0; start < len(trimmed); start += n {
		end := start + n
		if end > len(trimmed) {
			end = len(trimmed)
		}
		out = append(out, trimmed[start:end])
	}
	return out
}
