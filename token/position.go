package token

import "fmt"

// SourcePos identifies a location in a source file.
type SourcePos struct {
	Filename  string
	Line, Col int
	Offset    int
}

// String implements [fmt.Stringer], rendering the position in the
// conventional file:line:col form.
func (pos SourcePos) String() string {
	if pos.Line <= 0 || pos.Col <= 0 {
		return pos.Filename
	}
	return fmt.Sprintf("%s:%d:%d", pos.Filename, pos.Line, pos.Col)
}

// UnknownPos is a placeholder position for content whose location within a
// source file is not known, such as tokens synthesized by a macro callable.
func UnknownPos(filename string) SourcePos {
	return SourcePos{Filename: filename}
}
