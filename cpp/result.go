package cpp

import (
	"iter"

	"github.com/preflang/macroexpand/internal/interval"
	"github.com/preflang/macroexpand/token"
)

// Result is the output of one Preprocess call.
type Result struct {
	// The name of the preprocessed file.
	Filename string
	// The output token stream, with all macro invocations replaced by
	// their expansions.
	Tokens []token.Token

	expansions interval.Map[int, Expansion]
}

// Expansion describes one macro expansion that contributed tokens to the
// output.
type Expansion struct {
	// The name of the expanded macro.
	Macro string
	// The source location of the invocation site.
	Location token.SourcePos
}

// ExpansionRange is a contiguous range of output tokens produced by a
// single macro expansion. Start and End are inclusive indices into
// [Result.Tokens].
type ExpansionRange struct {
	Start, End int
	Expansion  Expansion
}

// ExpansionAt returns the expansion that produced the output token at
// index i, if any.
func (r *Result) ExpansionAt(i int) (Expansion, bool) {
	iv := r.expansions.Get(i)
	if iv.Value == nil {
		return Expansion{}, false
	}
	return *iv.Value, true
}

// Expansions returns an iterator over the ranges of output tokens produced
// by macro expansion, in stream order.
func (r *Result) Expansions() iter.Seq[ExpansionRange] {
	return func(yield func(ExpansionRange) bool) {
		for iv := range r.expansions.Intervals() {
			if !yield(ExpansionRange{Start: iv.Start, End: iv.End, Expansion: *iv.Value}) {
				return
			}
		}
	}
}
