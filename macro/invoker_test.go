package macro

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/preflang/macroexpand/lexer"
	"github.com/preflang/macroexpand/token"
)

// testPP is a minimal Retokenizer backed by the real lexer, mirroring the
// engine's Tokenize contract: source-order tokens with whitespace,
// comments, and EOF dropped.
type testPP struct{}

func (testPP) Tokenize(text string) ([]token.Token, error) {
	toks, err := lexer.Lex("<expansion>", []byte(text), nil)
	if err != nil {
		return nil, err
	}
	var out []token.Token
	for _, tok := range toks {
		if tok.Kind.IsSkippable() || tok.Kind == token.EOF {
			continue
		}
		out = append(out, tok)
	}
	return out, nil
}

var testLoc = token.SourcePos{Filename: "input.c", Line: 3, Col: 5, Offset: 42}

func testArgs() []token.Token {
	return []token.Token{
		{Kind: token.Ident, Text: "a", Pos: token.SourcePos{Filename: "input.c", Line: 3, Col: 7, Offset: 44}},
		{Kind: token.Punct, Text: ",", Pos: token.SourcePos{Filename: "input.c", Line: 3, Col: 8, Offset: 45}},
		{Kind: token.Number, Text: "12", Pos: token.SourcePos{Filename: "input.c", Line: 3, Col: 10, Offset: 47}},
	}
}

func TestInvokeEmptyResult(t *testing.T) {
	m, err := NewFunctionMacro(testPP{}, "NOOP", func(*Invocation, []BoxedToken) (any, error) {
		return nil, nil
	})
	require.NoError(t, err)

	out, err := m.Invoke(testLoc, testArgs())
	require.NoError(t, err)
	assert.Empty(t, out)

	// an empty argument list expands just the same
	out, err = m.Invoke(testLoc, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestInvokeArgumentOrder(t *testing.T) {
	var seen []BoxedToken
	m, err := NewFunctionMacro(testPP{}, "ARGS", func(_ *Invocation, args []BoxedToken) (any, error) {
		seen = args
		return nil, nil
	})
	require.NoError(t, err)

	args := testArgs()
	_, err = m.Invoke(testLoc, args)
	require.NoError(t, err)

	require.Len(t, seen, len(args))
	for i, b := range seen {
		assert.Equal(t, args[i].Kind, b.Kind())
		assert.Equal(t, args[i].Text, b.Text())
		assert.Equal(t, args[i].Pos, b.Pos())
		assert.Equal(t, args[i], b.Token())
	}
}

func TestInvokeTextResult(t *testing.T) {
	m, err := NewFunctionMacro(testPP{}, "SUM", func(*Invocation, []BoxedToken) (any, error) {
		return "1 + 2", nil
	})
	require.NoError(t, err)

	out, err := m.Invoke(testLoc, testArgs())
	require.NoError(t, err)

	require.Len(t, out, 3)
	assert.Equal(t, token.Number, out[0].Kind)
	assert.Equal(t, "1", out[0].Text)
	assert.Equal(t, token.Punct, out[1].Kind)
	assert.Equal(t, "+", out[1].Text)
	assert.Equal(t, token.Number, out[2].Kind)
	assert.Equal(t, "2", out[2].Text)
}

func TestInvokeTokenSequenceResult(t *testing.T) {
	// tokens whose text would lex differently if it were re-tokenized;
	// an explicit sequence must pass through verbatim
	x := token.Token{Kind: token.Ident, Text: "not one token", Pos: testLoc}
	y := token.Token{Kind: token.Number, Text: "12", Pos: testLoc}

	for _, tc := range []struct {
		name   string
		result func(inv *Invocation) any
	}{
		{"typed slice", func(inv *Invocation) any {
			return []BoxedToken{Box(inv.Preprocessor, x), Box(inv.Preprocessor, y)}
		}},
		{"heterogeneous slice", func(inv *Invocation) any {
			return []any{Box(inv.Preprocessor, x), Box(inv.Preprocessor, y)}
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m, err := NewFunctionMacro(testPP{}, "SEQ", func(inv *Invocation, _ []BoxedToken) (any, error) {
				return tc.result(inv), nil
			})
			require.NoError(t, err)

			out, err := m.Invoke(testLoc, nil)
			require.NoError(t, err)
			assert.Equal(t, []token.Token{x, y}, out)
		})
	}
}

func TestInvokeTypeMismatch(t *testing.T) {
	m, err := NewFunctionMacro(testPP{}, "BAD", func(*Invocation, []BoxedToken) (any, error) {
		return 42, nil
	})
	require.NoError(t, err)

	out, err := m.Invoke(testLoc, testArgs())
	require.ErrorIs(t, err, ErrTypeMismatch)
	assert.Nil(t, out)

	var expErr *ExpansionError
	require.ErrorAs(t, err, &expErr)
	assert.Equal(t, "BAD", expErr.Macro)
	assert.Equal(t, testLoc, expErr.Pos)
	assert.Equal(t, testLoc, expErr.GetPosition())
	assert.Contains(t, err.Error(), "input.c:3:5")
	assert.Contains(t, err.Error(), "macro BAD")
}

func TestInvokePartialSequenceRejected(t *testing.T) {
	m, err := NewFunctionMacro(testPP{}, "PART", func(inv *Invocation, _ []BoxedToken) (any, error) {
		x := Box(inv.Preprocessor, token.Token{Kind: token.Ident, Text: "x"})
		return []any{x, 42}, nil
	})
	require.NoError(t, err)

	out, err := m.Invoke(testLoc, nil)
	require.ErrorIs(t, err, ErrTypeMismatch)
	// all-or-nothing: not even the leading valid token survives
	assert.Len(t, out, 0)
	assert.Contains(t, err.Error(), "sequence element 1")
}

func TestInvokeStringInSequenceRejected(t *testing.T) {
	// a string inside an explicit sequence is not re-tokenized; it is a
	// type mismatch like any other non-token element
	m, err := NewFunctionMacro(testPP{}, "STRSEQ", func(*Invocation, []BoxedToken) (any, error) {
		return []any{"1 + 2"}, nil
	})
	require.NoError(t, err)

	_, err = m.Invoke(testLoc, nil)
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestInvokeContextVisibility(t *testing.T) {
	var got []Invocation
	m, err := NewFunctionMacro(testPP{}, "CTX", func(inv *Invocation, _ []BoxedToken) (any, error) {
		got = append(got, *inv)
		return nil, nil
	})
	require.NoError(t, err)

	locA := token.SourcePos{Filename: "a.c", Line: 1, Col: 1}
	locB := token.SourcePos{Filename: "b.c", Line: 9, Col: 4}

	_, err = m.Invoke(locA, nil)
	require.NoError(t, err)
	_, err = m.Invoke(locB, nil)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, locA, got[0].Location)
	// the second invocation's context is overwritten, not merged
	assert.Equal(t, locB, got[1].Location)
	assert.Equal(t, "CTX", got[1].Macro)
	assert.NotNil(t, got[1].Preprocessor)
}

func TestInvokeCallFailurePropagation(t *testing.T) {
	cause := errors.New("division by zero in callable")
	m, err := NewFunctionMacro(testPP{}, "FAIL", func(*Invocation, []BoxedToken) (any, error) {
		return nil, cause
	})
	require.NoError(t, err)

	out, err := m.Invoke(testLoc, nil)
	assert.Nil(t, out)
	require.ErrorIs(t, err, ErrExternalCall)
	// the callable's own diagnostic is carried verbatim
	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), cause.Error())
}

func TestInvokeEncodingError(t *testing.T) {
	m, err := NewFunctionMacro(testPP{}, "ENC", func(*Invocation, []BoxedToken) (any, error) {
		return string([]byte{0xff, 0xfe}), nil
	})
	require.NoError(t, err)

	out, err := m.Invoke(testLoc, nil)
	assert.Nil(t, out)
	require.ErrorIs(t, err, ErrEncoding)
}

func TestInvokeRetokenizeError(t *testing.T) {
	m, err := NewFunctionMacro(testPP{}, "RETOK", func(*Invocation, []BoxedToken) (any, error) {
		return `"unterminated`, nil
	})
	require.NoError(t, err)

	out, err := m.Invoke(testLoc, nil)
	assert.Nil(t, out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "re-tokenizing expansion")
}

func TestInvokeReentrancyRejected(t *testing.T) {
	var m *FunctionMacro
	m, err := NewFunctionMacro(testPP{}, "REENTER", func(*Invocation, []BoxedToken) (any, error) {
		return m.Invoke(testLoc, nil)
	})
	require.NoError(t, err)

	_, err = m.Invoke(testLoc, nil)
	require.ErrorIs(t, err, ErrExternalCall)
	assert.Contains(t, err.Error(), "reentered")
}

func TestNewFunctionMacroValidation(t *testing.T) {
	fn := func(*Invocation, []BoxedToken) (any, error) { return nil, nil }

	_, err := NewFunctionMacro(nil, "M", fn)
	assert.ErrorIs(t, err, ErrInvalidBinding)

	_, err = NewFunctionMacro(testPP{}, "", fn)
	assert.ErrorIs(t, err, ErrInvalidBinding)

	_, err = NewFunctionMacro(testPP{}, "M", nil)
	assert.ErrorIs(t, err, ErrInvalidBinding)

	m, err := NewFunctionMacro(testPP{}, "M", fn)
	require.NoError(t, err)
	assert.Equal(t, "M", m.Name())
}

func TestExpansionErrorFormat(t *testing.T) {
	err := &ExpansionError{
		Macro: "M",
		Pos:   token.SourcePos{Filename: "f.c", Line: 2, Col: 3},
		Err:   fmt.Errorf("%w: boom", ErrExternalCall),
	}
	assert.Equal(t, "f.c:2:3: macro M: macro callable failed: boom", err.Error())
	assert.ErrorIs(t, err, ErrExternalCall)
}
