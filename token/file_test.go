package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileInfoPos(t *testing.T) {
	src := []byte("int x;\n\tfoo\n世界 y\n")
	f := NewFileInfo("test.c", src)
	for i, b := range src {
		if b == '\n' {
			f.AddLine(i + 1)
		}
	}

	pos := f.Pos(0)
	assert.Equal(t, SourcePos{Filename: "test.c", Line: 1, Col: 1, Offset: 0}, pos)
	assert.Equal(t, "test.c:1:1", pos.String())

	// "x" on the first line.
	assert.Equal(t, SourcePos{Filename: "test.c", Line: 1, Col: 5, Offset: 4}, f.Pos(4))

	// "foo" follows a tab, so its column lands on the next tabstop.
	assert.Equal(t, SourcePos{Filename: "test.c", Line: 2, Col: 9, Offset: 8}, f.Pos(8))

	// "y" follows two wide CJK characters, each two columns wide.
	offset := 12 + len("世界") + 1
	assert.Equal(t, SourcePos{Filename: "test.c", Line: 3, Col: 6, Offset: offset}, f.Pos(offset))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "Ident", Ident.String())
	assert.Equal(t, "EOF", EOF.String())
	assert.Equal(t, "token.Kind(200)", Kind(200).String())
	assert.True(t, Space.IsSkippable())
	assert.True(t, Comment.IsSkippable())
	assert.False(t, Ident.IsSkippable())
}

func TestTokenString(t *testing.T) {
	tok := Token{Kind: Ident, Text: "foo"}
	assert.Equal(t, `{Ident "foo"}`, tok.String())
	assert.Equal(t, "{EOF}", Token{Kind: EOF}.String())
}
