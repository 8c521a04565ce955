// Package cpp implements the preprocessor engine: it scans C-family source
// text, maintains the macro table, and expands macro invocations, splicing
// the replacement tokens into the output stream in source order.
//
// Two kinds of macros are supported: object-like macros defined from a
// NAME=body string, and function macros whose expansion is computed by an
// externally supplied callable (see [macro.Expander]).
package cpp

import (
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/btree"

	"github.com/preflang/macroexpand/lexer"
	"github.com/preflang/macroexpand/macro"
	"github.com/preflang/macroexpand/reporter"
	"github.com/preflang/macroexpand/token"
)

// Preprocessor holds a macro table and preprocesses source streams against
// it. It is driven strictly sequentially: a single Preprocess call runs at
// a time, and macro callables are invoked synchronously from within it.
type Preprocessor struct {
	macros btree.Map[string, *definition]
}

// A macro definition: either an object-like replacement body or a bound
// function macro, never both.
type definition struct {
	body []token.Token
	fn   *macro.FunctionMacro
}

// New creates a Preprocessor with an empty macro table.
func New() *Preprocessor {
	return &Preprocessor{}
}

// Define adds an object-like macro. The definition takes the form "NAME" or
// "NAME=body"; the body is tokenized immediately and spliced verbatim
// wherever NAME appears in the input.
//
// Redefining an existing macro replaces it.
func (pp *Preprocessor) Define(def string) error {
	name, body, _ := strings.Cut(def, "=")
	name = strings.TrimSpace(name)
	if !isIdent(name) {
		return fmt.Errorf("%w: %q is not a valid macro name", macro.ErrInvalidBinding, name)
	}

	toks, err := pp.tokenize(fmt.Sprintf("<define:%s>", name), body)
	if err != nil {
		return fmt.Errorf("macro %s: %w", name, err)
	}
	pp.macros.Set(name, &definition{body: toks})
	return nil
}

// DefineFunc adds a function macro whose expansion is computed by fn. The
// callable is invoked whenever NAME appears in the input followed by a
// parenthesized argument list; a bare NAME is left alone.
//
// Redefining an existing macro replaces it.
func (pp *Preprocessor) DefineFunc(name string, fn macro.Expander) error {
	if !isIdent(name) {
		return fmt.Errorf("%w: %q is not a valid macro name", macro.ErrInvalidBinding, name)
	}
	fm, err := macro.NewFunctionMacro(pp, name, fn)
	if err != nil {
		return err
	}
	pp.macros.Set(name, &definition{fn: fm})
	return nil
}

// Undefine removes a macro. It reports whether the macro was defined.
func (pp *Preprocessor) Undefine(name string) bool {
	_, ok := pp.macros.Delete(name)
	return ok
}

// IsDefined reports whether name is a defined macro.
func (pp *Preprocessor) IsDefined(name string) bool {
	_, ok := pp.macros.Get(name)
	return ok
}

// Macros returns the names of all defined macros in lexical order.
func (pp *Preprocessor) Macros() []string {
	names := make([]string, 0, pp.macros.Len())
	pp.macros.Scan(func(name string, _ *definition) bool {
		names = append(names, name)
		return true
	})
	return names
}

// Tokenize lexes text in this preprocessor's context, returning its tokens
// in source order with whitespace, comments, and the terminal EOF dropped.
// This is the re-tokenization path for macro callables that return source
// text.
func (pp *Preprocessor) Tokenize(text string) ([]token.Token, error) {
	return pp.tokenize("<expansion>", text)
}

var _ macro.Retokenizer = (*Preprocessor)(nil)

func (pp *Preprocessor) tokenize(filename, text string) ([]token.Token, error) {
	toks, err := lexer.Lex(filename, []byte(text), nil)
	if err != nil {
		return nil, err
	}
	out := make([]token.Token, 0, len(toks))
	for _, tok := range toks {
		if tok.Kind.IsSkippable() || tok.Kind == token.EOF {
			continue
		}
		out = append(out, tok)
	}
	return out, nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
		case i > 0 && c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}

// Preprocess scans the source in r, expands macro invocations, and returns
// the resulting token stream. Whitespace and comments are dropped from the
// output; replacement tokens are spliced at the invocation site in source
// order.
//
// Expansion failures are routed through handler, which may either abort the
// run or swallow the error to collect further diagnostics; in the latter
// case the failed invocation expands to nothing. A nil handler aborts on
// the first error.
func (pp *Preprocessor) Preprocess(r io.Reader, filename string, handler *reporter.Handler) (*Result, error) {
	if handler == nil {
		handler = reporter.NewHandler(nil)
	}
	lex, err := lexer.New(r, filename, handler)
	if err != nil {
		return nil, err
	}

	run := &run{pp: pp, lex: lex, handler: handler, res: &Result{Filename: filename}}
	if err := run.expand(); err != nil {
		return nil, err
	}
	if err := handler.Error(); err != nil {
		return nil, err
	}
	return run.res, nil
}
