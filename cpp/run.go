package cpp

import (
	"github.com/preflang/macroexpand/lexer"
	"github.com/preflang/macroexpand/reporter"
	"github.com/preflang/macroexpand/token"
)

// run is the state of a single Preprocess call: the input token stream, a
// small pushback buffer, and the output being accumulated.
type run struct {
	pp      *Preprocessor
	lex     *lexer.Lexer
	handler *reporter.Handler
	res     *Result

	buf []token.Token
}

func (r *run) next() (token.Token, error) {
	if len(r.buf) > 0 {
		tok := r.buf[0]
		r.buf = r.buf[1:]
		return tok, nil
	}
	return r.lex.Next()
}

func (r *run) pushBack(tok token.Token) {
	r.buf = append([]token.Token{tok}, r.buf...)
}

func (r *run) expand() error {
	for {
		tok, err := r.next()
		if err != nil {
			return err
		}
		switch {
		case tok.Kind == token.EOF:
			return nil
		case tok.Kind.IsSkippable():
			continue
		case tok.Kind == token.Ident:
			if def, ok := r.pp.macros.Get(tok.Text); ok {
				done, err := r.expandMacro(tok, def)
				if err != nil {
					return err
				}
				if done {
					continue
				}
				// a function macro name without a following "(" falls
				// through and is emitted unchanged
			}
		}
		r.res.Tokens = append(r.res.Tokens, tok)
	}
}

// expandMacro expands one invocation of def at the name token. It returns
// false if the name did not actually form an invocation.
func (r *run) expandMacro(name token.Token, def *definition) (bool, error) {
	if def.fn == nil {
		r.splice(name, def.body)
		return true, nil
	}

	called, err := r.atCallParen()
	if err != nil || !called {
		return false, err
	}

	args, terminated, err := r.collectArgs(name)
	if err != nil {
		return false, err
	}
	if !terminated {
		// the unterminated argument list was reported and consumed the
		// rest of the input; there is nothing left to expand
		return true, nil
	}

	out, err := def.fn.Invoke(name.Pos, args)
	if err != nil {
		// the engine's caller decides whether a failed expansion is
		// fatal; if not, the invocation expands to nothing
		if ferr := r.handler.HandleError(err); ferr != nil {
			return false, ferr
		}
		return true, nil
	}
	r.splice(name, out)
	return true, nil
}

// atCallParen reports whether the next non-skippable token is "(",
// consuming it if so.
func (r *run) atCallParen() (bool, error) {
	var skipped []token.Token
	for {
		tok, err := r.next()
		if err != nil {
			return false, err
		}
		if tok.Kind.IsSkippable() {
			skipped = append(skipped, tok)
			continue
		}
		if tok.Kind == token.Punct && tok.Text == "(" {
			return true, nil
		}
		r.pushBack(tok)
		for i := len(skipped) - 1; i >= 0; i-- {
			r.pushBack(skipped[i])
		}
		return false, nil
	}
}

// collectArgs consumes the argument tokens of a function-macro invocation,
// up to and including the matching ")". The returned list holds every
// non-skippable token between the outer parentheses except the top-level
// commas separating arguments; nested parentheses and their contents are
// kept verbatim. Order is source order.
func (r *run) collectArgs(name token.Token) (args []token.Token, terminated bool, err error) {
	depth := 1
	for {
		tok, err := r.next()
		if err != nil {
			return nil, false, err
		}
		switch {
		case tok.Kind == token.EOF:
			if ferr := r.handler.HandleErrorf(name.Pos, "unterminated argument list invoking macro %s", name.Text); ferr != nil {
				return nil, false, ferr
			}
			return nil, false, nil
		case tok.Kind.IsSkippable():
			continue
		case tok.Kind == token.Punct && tok.Text == "(":
			depth++
		case tok.Kind == token.Punct && tok.Text == ")":
			depth--
			if depth == 0 {
				return args, true, nil
			}
		case tok.Kind == token.Punct && tok.Text == "," && depth == 1:
			// argument separator
			continue
		}
		args = append(args, tok)
	}
}

// splice appends replacement tokens to the output, recording which macro
// produced them.
func (r *run) splice(name token.Token, toks []token.Token) {
	if len(toks) == 0 {
		return
	}
	start := len(r.res.Tokens)
	r.res.Tokens = append(r.res.Tokens, toks...)
	r.res.expansions.Insert(start, len(r.res.Tokens)-1, Expansion{
		Macro:    name.Text,
		Location: name.Pos,
	})
}
