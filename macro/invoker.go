// Package macro implements the bridge between the preprocessor's internal
// token representation and externally supplied macro callables: boxing
// argument tokens into handles, invoking the callable with an explicit
// invocation context, and classifying its result back into a well-formed
// token list.
package macro

import (
	"fmt"
	"sync/atomic"

	"github.com/petermattis/goid"

	"github.com/preflang/macroexpand/token"
)

// Invocation is the context visible to a macro callable during one
// expansion. A fresh value is built for every invocation and passed to the
// callable as its leading argument, so callables bound against different
// preprocessors can never observe each other's context.
type Invocation struct {
	// The preprocessor driving the expansion. Text returned by the
	// callable is re-tokenized against this same instance.
	Preprocessor Retokenizer
	// The source location of the macro invocation site.
	Location token.SourcePos
	// The name of the macro being expanded.
	Macro string
}

// Expander computes the expansion of a function macro. args holds one boxed
// token per macro argument token, in source order.
//
// The returned value must be nil (the macro expands to nothing), a string
// (source text, re-tokenized in the invoking preprocessor's context), or a
// sequence of boxed tokens ([]BoxedToken or []any); see [Classify]. A
// returned error aborts the expansion.
type Expander func(inv *Invocation, args []BoxedToken) (any, error)

// FunctionMacro binds a macro name to an external callable. It is created
// once at definition time and holds its preprocessor and callable
// references for its whole lifetime.
//
// A FunctionMacro's Invoke is not reentrant: a callable must not trigger
// another expansion of the same binding while its own expansion is still in
// progress.
type FunctionMacro struct {
	pp   Retokenizer
	name string
	fn   Expander

	// Goroutine ID of the invocation in progress, 0 if idle. Guards
	// against a callable reentering its own expansion.
	active atomic.Int64
}

// NewFunctionMacro creates a binding of name to fn for the given
// preprocessor. It fails with [ErrInvalidBinding] if the preprocessor or
// callable is missing, or if name is empty.
func NewFunctionMacro(pp Retokenizer, name string, fn Expander) (*FunctionMacro, error) {
	switch {
	case pp == nil:
		return nil, fmt.Errorf("%w: macro %s: preprocessor is nil", ErrInvalidBinding, name)
	case name == "":
		return nil, fmt.Errorf("%w: macro name is empty", ErrInvalidBinding)
	case fn == nil:
		return nil, fmt.Errorf("%w: macro %s: callable is nil", ErrInvalidBinding, name)
	}
	return &FunctionMacro{pp: pp, name: name, fn: fn}, nil
}

// Name returns the macro's name.
func (m *FunctionMacro) Name() string {
	return m.name
}

// Invoke performs one expansion of the macro: it boxes the argument tokens
// in order, calls the bound callable with a fresh [Invocation] context, and
// converts the result into the replacement token list.
//
// Invoke never returns a partial result: on any failure it returns a nil
// token list and an [*ExpansionError] carrying the macro name and loc.
func (m *FunctionMacro) Invoke(loc token.SourcePos, args []token.Token) ([]token.Token, error) {
	gid := goid.Get()
	if m.active.Load() == gid {
		return nil, m.fail(loc, fmt.Errorf("%w: callable reentered expansion of %s", ErrExternalCall, m.name))
	}
	m.active.Store(gid)
	defer m.active.Store(0)

	// Argument marshaling. Count and order pass through unchanged; arity
	// is the callable's concern.
	boxed := make([]BoxedToken, len(args))
	for i, arg := range args {
		boxed[i] = Box(m.pp, arg)
	}

	inv := &Invocation{
		Preprocessor: m.pp,
		Location:     loc,
		Macro:        m.name,
	}

	ret, err := m.fn(inv, boxed)
	if err != nil {
		return nil, m.fail(loc, fmt.Errorf("%w: %w", ErrExternalCall, err))
	}

	res, err := Classify(ret)
	if err != nil {
		return nil, m.fail(loc, err)
	}

	switch res.shape {
	case shapeEmpty:
		return nil, nil
	case shapeText:
		out, err := m.pp.Tokenize(res.text)
		if err != nil {
			return nil, m.fail(loc, fmt.Errorf("re-tokenizing expansion: %w", err))
		}
		return out, nil
	default:
		out := make([]token.Token, len(res.toks))
		for i, b := range res.toks {
			out[i] = b.Token()
		}
		return out, nil
	}
}

func (m *FunctionMacro) fail(loc token.SourcePos, err error) error {
	return &ExpansionError{Macro: m.name, Pos: loc, Err: err}
}
