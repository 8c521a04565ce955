// Package token defines the lexical elements exchanged between the
// preprocessor engine and macro callables: token kinds, tokens, and source
// positions.
package token

import "fmt"

// Token is a single lexical element of a preprocessed source file.
//
// Tokens are values: once produced by the lexer (or by re-tokenizing a macro
// expansion) they are only ever copied, never mutated in place. The engine
// that produced a token is the source of truth for its text and position.
type Token struct {
	// The kind of this token.
	Kind Kind
	// The literal text of the token, exactly as it appeared in the source.
	// Empty for EOF tokens.
	Text string
	// The position at which the token begins.
	Pos SourcePos
}

// String implements [fmt.Stringer].
func (t Token) String() string {
	if t.Kind == EOF {
		return "{EOF}"
	}
	return fmt.Sprintf("{%v %q}", t.Kind, t.Text)
}
