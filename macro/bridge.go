package macro

import (
	"fmt"

	"github.com/preflang/macroexpand/token"
)

// Retokenizer is the surface of the preprocessor engine that the bridge
// needs: lexing raw source text using the same macro and include context as
// the expansion in progress.
//
// Tokenize returns the tokens of text in source order, excluding whitespace,
// comments, and the terminal EOF.
type Retokenizer interface {
	Tokenize(text string) ([]token.Token, error)
}

// BoxedToken is the handle under which tokens cross the boundary to macro
// callables. It owns a copy of the token it wraps, plus a borrowed reference
// to the preprocessor that produced it; handles are only valid for the
// duration of the invocation that created them.
//
// Two BoxedTokens are equal exactly when they wrap equal tokens from the
// same preprocessor.
type BoxedToken struct {
	tok token.Token
	src Retokenizer
}

// Box wraps a token for the given preprocessor. The token is copied; the
// preprocessor reference is borrowed.
func Box(src Retokenizer, tok token.Token) BoxedToken {
	return BoxedToken{tok: tok, src: src}
}

// Unbox extracts the token wrapped by v. It fails with [ErrTypeMismatch] if
// v is not a BoxedToken.
func Unbox(v any) (token.Token, error) {
	b, ok := v.(BoxedToken)
	if !ok {
		return token.Token{}, fmt.Errorf("%w; got %T", ErrTypeMismatch, v)
	}
	return b.tok, nil
}

// Token returns a copy of the wrapped token.
func (b BoxedToken) Token() token.Token {
	return b.tok
}

// Kind returns the wrapped token's kind.
func (b BoxedToken) Kind() token.Kind {
	return b.tok.Kind
}

// Text returns the wrapped token's literal text.
func (b BoxedToken) Text() string {
	return b.tok.Text
}

// Pos returns the wrapped token's source position.
func (b BoxedToken) Pos() token.SourcePos {
	return b.tok.Pos
}

// Source returns the preprocessor this token was produced by.
func (b BoxedToken) Source() Retokenizer {
	return b.src
}

// String implements [fmt.Stringer].
func (b BoxedToken) String() string {
	return b.tok.String()
}
