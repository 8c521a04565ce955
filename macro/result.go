package macro

import (
	"fmt"
	"unicode/utf8"
)

type resultShape byte

const (
	shapeEmpty resultShape = iota
	shapeText
	shapeTokens
)

// Result is the classified outcome of a macro callable: exactly one of
// "expands to nothing", "source text to re-tokenize", or "explicit token
// sequence". It is constructed by [Classify] immediately after the external
// call returns, so the invoker only ever operates on a closed type.
type Result struct {
	shape resultShape
	text  string
	toks  []BoxedToken
}

// Empty returns the Result that expands to no tokens.
func Empty() Result {
	return Result{}
}

// Text returns a Result carrying source text to be re-tokenized.
func Text(text string) Result {
	return Result{shape: shapeText, text: text}
}

// Tokens returns a Result carrying an explicit token sequence.
func Tokens(toks ...BoxedToken) Result {
	return Result{shape: shapeTokens, toks: toks}
}

// Classify sorts a callable's raw return value into one of the three
// accepted result shapes. The branches are checked in priority order:
//
//   - nil: the macro expands to nothing.
//   - string: source text; rejected with [ErrEncoding] if not valid UTF-8.
//   - []BoxedToken, or []any whose elements are all BoxedTokens: an
//     explicit token sequence. The first non-token element rejects the
//     whole result with [ErrTypeMismatch]; no partial sequence survives.
//
// Anything else is rejected with [ErrTypeMismatch].
func Classify(v any) (Result, error) {
	switch v := v.(type) {
	case nil:
		return Empty(), nil
	case string:
		if !utf8.ValidString(v) {
			return Result{}, fmt.Errorf("%w: %q", ErrEncoding, v)
		}
		return Text(v), nil
	case []BoxedToken:
		return Tokens(v...), nil
	case []any:
		toks := make([]BoxedToken, len(v))
		for i, elem := range v {
			b, ok := elem.(BoxedToken)
			if !ok {
				return Result{}, fmt.Errorf("%w; sequence element %d is %T", ErrTypeMismatch, i, elem)
			}
			toks[i] = b
		}
		return Tokens(toks...), nil
	default:
		return Result{}, fmt.Errorf("%w; got %T", ErrTypeMismatch, v)
	}
}
