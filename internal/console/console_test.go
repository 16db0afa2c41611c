package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPad(t *testing.T) {
	assert.Equal(t, "ab   ", Pad("ab", 5))
	assert.Equal(t, "abcdef", Pad("abcdef", 3))
	// Wide runes count as two cells.
	assert.Equal(t, "日本 ", Pad("日本", 5))
}

func TestColorize(t *testing.T) {
	assert.Equal(t, ColorRed+"x"+ColorReset, Colorize(ColorRed, "x"))
	assert.Equal(t, "x", Colorize("", "x"))
}

func TestClearScreen(t *testing.T) {
	var buf bytes.Buffer
	ClearScreen(&buf)
	assert.Equal(t, "\033[2J\033[H", buf.String())
}

func TestNonFileWriterIsNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	assert.False(t, IsTerminal(&buf))
	assert.Equal(t, DefaultWidth, Width(&buf))
}

func TestTableRender(t *testing.T) {
	var buf bytes.Buffer
	Table{
		Headers: []string{"Commits", "Timesheets"},
		Rows: [][]string{
			{"web - a", ""},
			{"", "1 h"},
		},
	}.Render(&buf)

	want := strings.Join([]string{
		"+---------+------------+",
		"| Commits | Timesheets |",
		"+---------+------------+",
		"| web - a |            |",
		"|         | 1 h        |",
		"+---------+------------+",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestTableMinWidths(t *testing.T) {
	var buf bytes.Buffer
	Table{Headers: []string{"A"}, MinWidths: []int{4}}.Render(&buf)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, []string{"+------+", "| A    |", "+------+"}, lines)
}

func TestFitColumns(t *testing.T) {
	tests := []struct {
		width, cols, limit, want int
	}{
		{width: 300, cols: 2, limit: 140, want: 140},
		{width: 200, cols: 2, limit: 140, want: 96},
		{width: 40, cols: 2, limit: 140, want: 20},
		{width: 80, cols: 0, limit: 140, want: 140},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FitColumns(tt.width, tt.cols, tt.limit), "%+v", tt)
	}
}
