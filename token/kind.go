package token

import "fmt"

// Kind identifies what kind of lexical element a particular [Token] is.
type Kind byte

const (
	// Unrecognized garbage in the input.
	Unrecognized Kind = iota
	// Space is a run of non-comment whitespace.
	Space
	// Comment is a single line or block comment.
	Comment
	// Ident is an identifier or keyword.
	Ident
	// Number is a preprocessing number: a run of digits, possibly with a
	// leading dot, fraction, and exponent.
	Number
	// String is a string literal, including its quotes.
	String
	// Char is a character literal, including its quotes.
	Char
	// Punct is an operator or other punctuation, possibly multi-byte.
	Punct
	// EOF marks the end of the input. It carries no text.
	EOF
)

// IsSkippable returns whether tokens of this kind are dropped from the
// preprocessor's output stream and never passed to macro callables.
func (k Kind) IsSkippable() bool {
	return k == Space || k == Comment || k == Unrecognized
}

// String implements [fmt.Stringer].
func (k Kind) String() string {
	switch k {
	case Unrecognized:
		return "Unrecognized"
	case Space:
		return "Space"
	case Comment:
		return "Comment"
	case Ident:
		return "Ident"
	case Number:
		return "Number"
	case String:
		return "String"
	case Char:
		return "Char"
	case Punct:
		return "Punct"
	case EOF:
		return "EOF"
	default:
		return fmt.Sprintf("token.Kind(%d)", int(k))
	}
}
