package parser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsift/internal/chunk"
)

// lineRun builds a single prose line as one positioned run.
func lineRun(text string, y float64) Run {
	return Run{X: 72, Y: y, W: float64(len(text)) * 5, Size: 10, Text: text}
}

// tableRow builds one table row: cells at fixed column positions, far enough
// apart to register as separate columns.
func tableRow(y float64, cells ...string) []Run {
	runs := make([]Run, len(cells))
	for i, c := range cells {
		runs[i] = Run{X: 72 + float64(i)*150, Y: y, W: float64(len(c)) * 5, Size: 10, Text: c}
	}
	return runs
}

func TestChunkPage_TableOnly(t *testing.T) {
	p := New(10)

	var runs []Run
	runs = append(runs, tableRow(700, "name", "price")...)
	runs = append(runs, tableRow(688, "apple", "1.20")...)
	runs = append(runs, tableRow(676, "pear", "0.80")...)

	chunks := p.chunkPage("fruit.pdf", 3, runs)

	require.Len(t, chunks, 1)
	assert.Equal(t, chunk.TypeTable, chunks[0].ContentType)
	assert.Equal(t, "fruit.pdf", chunks[0].FileName)
	assert.Equal(t, 3, chunks[0].PageNo)

	want := "| name | price |\n| --- | --- |\n| apple | 1.20 |\n| pear | 0.80 |"
	assert.Equal(t, want, chunks[0].Content)
}

func TestChunkPage_ParagraphWindows(t *testing.T) {
	p := New(10)

	// 25 consecutive lines, constant pitch: one paragraph, windows of 10/10/5
	var runs []Run
	for i := 0; i < 25; i++ {
		runs = append(runs, lineRun(fmt.Sprintf("line %d", i), 700-float64(i)*12))
	}

	chunks := p.chunkPage("doc.pdf", 1, runs)

	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.Equal(t, chunk.TypeText, c.ContentType)
	}
	assert.Len(t, strings.Fields(chunks[0].Content), 20) // 10 lines x 2 words
	assert.Len(t, strings.Fields(chunks[1].Content), 20)
	assert.Len(t, strings.Fields(chunks[2].Content), 10) // remaining 5 lines
	assert.True(t, strings.HasPrefix(chunks[0].Content, "line 0 line 1 "))
	assert.True(t, strings.HasPrefix(chunks[2].Content, "line 20 "))
}

func TestChunkPage_ParagraphBreakOnWideGap(t *testing.T) {
	p := New(10)

	// Two 3-line paragraphs separated by a gap well above the line pitch.
	var runs []Run
	for i := 0; i < 3; i++ {
		runs = append(runs, lineRun(fmt.Sprintf("first %d", i), 700-float64(i)*12))
	}
	for i := 0; i < 3; i++ {
		runs = append(runs, lineRun(fmt.Sprintf("second %d", i), 620-float64(i)*12))
	}

	chunks := p.chunkPage("doc.pdf", 1, runs)

	require.Len(t, chunks, 2)
	assert.Equal(t, "first 0 first 1 first 2", chunks[0].Content)
	assert.Equal(t, "second 0 second 1 second 2", chunks[1].Content)
}

func TestChunkPage_TableTextNeverInProse(t *testing.T) {
	p := New(10)

	var runs []Run
	runs = append(runs, tableRow(700, "sku", "qty")...)
	runs = append(runs, tableRow(688, "A-17", "4")...)
	runs = append(runs, lineRun("Totals are reviewed monthly.", 640))
	runs = append(runs, lineRun("Contact purchasing for details.", 628))

	chunks := p.chunkPage("inv.pdf", 1, runs)

	require.Len(t, chunks, 2)
	// Tables come first, then prose windows.
	assert.Equal(t, chunk.TypeTable, chunks[0].ContentType)
	assert.Equal(t, chunk.TypeText, chunks[1].ContentType)

	assert.NotContains(t, chunks[1].Content, "sku")
	assert.NotContains(t, chunks[1].Content, "A-17")
	assert.Equal(t, "Totals are reviewed monthly. Contact purchasing for details.", chunks[1].Content)
}

func TestChunkPage_SingleMultiColumnRowIsProse(t *testing.T) {
	p := New(10)

	// One row with two aligned cells is not enough for a table.
	runs := tableRow(700, "left", "right")
	runs = append(runs, lineRun("following line of text here", 688))

	chunks := p.chunkPage("doc.pdf", 1, runs)

	require.Len(t, chunks, 1)
	assert.Equal(t, chunk.TypeText, chunks[0].ContentType)
	assert.Contains(t, chunks[0].Content, "left right")
}

func TestChunkPage_EmptyPage(t *testing.T) {
	p := New(10)
	assert.Empty(t, p.chunkPage("doc.pdf", 1, nil))
	assert.Empty(t, p.chunkPage("doc.pdf", 1, []Run{{X: 10, Y: 10, Size: 10, Text: "   "}}))
}

func TestChunkPage_Deterministic(t *testing.T) {
	p := New(10)

	var runs []Run
	runs = append(runs, tableRow(700, "h1", "h2")...)
	runs = append(runs, tableRow(688, "a", "b")...)
	for i := 0; i < 15; i++ {
		runs = append(runs, lineRun(fmt.Sprintf("prose line %d", i), 640-float64(i)*12))
	}

	first := p.chunkPage("doc.pdf", 1, runs)
	second := p.chunkPage("doc.pdf", 1, runs)
	assert.Equal(t, first, second)
}

func TestAssembleRows_MergesWordsAndSplitsColumns(t *testing.T) {
	runs := []Run{
		{X: 72, Y: 700, W: 20, Size: 10, Text: "Hel"},
		{X: 92, Y: 700, W: 10, Size: 10, Text: "lo"},   // no gap: same word
		{X: 106, Y: 700, W: 25, Size: 10, Text: "world"}, // word gap: space
		{X: 300, Y: 700, W: 20, Size: 10, Text: "far"},   // column gap: new cell
	}

	rows := assembleRows(runs)
	require.Len(t, rows, 1)
	require.Len(t, rows[0].cells, 2)
	assert.Equal(t, "Hello world", rows[0].cells[0].text)
	assert.Equal(t, "far", rows[0].cells[1].text)
}

func TestWindows(t *testing.T) {
	short := windows([]string{"a", "b", "c"}, 10)
	require.Len(t, short, 1)
	assert.Equal(t, []string{"a", "b", "c"}, short[0])

	exact := windows(make([]string, 0), 10)
	assert.Nil(t, exact)

	blanks := windows([]string{" ", "a", "", "b"}, 10)
	require.Len(t, blanks, 1)
	assert.Equal(t, []string{"a", "b"}, blanks[0])
}

func TestDetectTables_ColumnAlignmentRequired(t *testing.T) {
	// Second row's columns start far from the first row's: not one table.
	var runs []Run
	runs = append(runs, tableRow(700, "a", "b")...)
	runs = append(runs, Run{X: 120, Y: 688, W: 10, Size: 10, Text: "x"})
	runs = append(runs, Run{X: 400, Y: 688, W: 10, Size: 10, Text: "y"})

	rows := assembleRows(runs)
	tables, consumed := detectTables(rows)
	assert.Empty(t, tables)
	assert.Empty(t, consumed)
}
