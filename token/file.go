package token

import (
	"fmt"
	"sort"

	"github.com/rivo/uniseg"
)

// TabstopWidth is the width used when computing the column of a position
// that follows a tab character.
const TabstopWidth = 8

// FileInfo records the contents of a source file along with the byte offset
// of each line, allowing byte offsets to be translated into line/column
// positions. A lexer accumulates line offsets as it scans the file.
type FileInfo struct {
	name string
	data []byte
	// The zero-based byte offset at which each line begins. The first line
	// always begins at offset 0.
	lines []int
}

// NewFileInfo creates a new instance for the given file.
func NewFileInfo(filename string, contents []byte) *FileInfo {
	return &FileInfo{
		name:  filename,
		data:  contents,
		lines: []int{0},
	}
}

// Name returns the name of the source file.
func (f *FileInfo) Name() string {
	return f.name
}

// AddLine records the offset at which the "next" line in the file begins,
// i.e. the offset just past a newline character. Offsets must be added in
// increasing order.
func (f *FileInfo) AddLine(offset int) {
	if offset < 0 {
		panic(fmt.Sprintf("invalid offset: %d must not be negative", offset))
	}
	if offset > len(f.data) {
		panic(fmt.Sprintf("invalid offset: %d is greater than file size %d", offset, len(f.data)))
	}
	if last := f.lines[len(f.lines)-1]; offset <= last {
		panic(fmt.Sprintf("invalid offset: %d is not greater than previously observed line offset %d", offset, last))
	}
	f.lines = append(f.lines, offset)
}

// Pos translates a byte offset into a line/column position. Lines and
// columns are 1-indexed. Columns are measured in terminal cells: tabs
// advance to the next tabstop and multi-byte grapheme clusters count their
// rendered width rather than their byte length.
func (f *FileInfo) Pos(offset int) SourcePos {
	lineNumber := sort.Search(len(f.lines), func(n int) bool {
		return f.lines[n] > offset
	})

	col := 0
	prefix := string(f.data[f.lines[lineNumber-1]:offset])
	state := -1
	for prefix != "" {
		var cluster string
		var width int
		cluster, prefix, width, state = uniseg.FirstGraphemeClusterInString(prefix, state)
		if cluster == "\t" {
			col += TabstopWidth - (col % TabstopWidth)
		} else {
			col += width
		}
	}

	return SourcePos{
		Filename: f.name,
		Offset:   offset,
		Line:     lineNumber,
		Col:      col + 1,
	}
}
