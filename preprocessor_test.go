package macroexpand

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/preflang/macroexpand/macro"
	"github.com/preflang/macroexpand/token"
)

func sourceMap(files map[string]string) Resolver {
	return ResolverFunc(func(path string) (SearchResult, error) {
		src, ok := files[path]
		if !ok {
			return SearchResult{}, ErrFileNotFound
		}
		return SearchResult{Source: strings.NewReader(src)}, nil
	})
}

func texts(toks []token.Token) []string {
	out := make([]string, len(toks))
	for i, tok := range toks {
		out[i] = tok.Text
	}
	return out
}

func TestPreprocessFiles(t *testing.T) {
	p := &Preprocessor{
		Resolver: sourceMap(map[string]string{
			"a.c": "x = DOUBLE(3);",
			"b.c": "y = MAX;",
		}),
		Defines: []string{"MAX=100"},
		Macros: map[string]macro.Expander{
			"DOUBLE": func(_ *macro.Invocation, args []macro.BoxedToken) (any, error) {
				return "(" + args[0].Text() + " + " + args[0].Text() + ")", nil
			},
		},
	}

	results, err := p.Preprocess(context.Background(), "a.c", "b.c")
	require.NoError(t, err)
	require.Len(t, results, 2)

	// results come back in input order regardless of completion order
	assert.Equal(t, "a.c", results[0].Filename)
	assert.Equal(t, "b.c", results[1].Filename)

	assert.Empty(t, cmp.Diff(
		[]string{"x", "=", "(", "3", "+", "3", ")", ";"},
		texts(results[0].Tokens)))
	assert.Empty(t, cmp.Diff(
		[]string{"y", "=", "100", ";"},
		texts(results[1].Tokens)))
}

func TestPreprocessNoFiles(t *testing.T) {
	p := &Preprocessor{Resolver: sourceMap(nil)}
	results, err := p.Preprocess(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, results)
}

func TestPreprocessManyFilesBounded(t *testing.T) {
	files := map[string]string{}
	var names []string
	for _, name := range []string{"a.c", "b.c", "c.c", "d.c", "e.c", "f.c"} {
		files[name] = "id " + name[:1]
		names = append(names, name)
	}

	p := &Preprocessor{
		Resolver:       sourceMap(files),
		MaxParallelism: 2,
	}
	results, err := p.Preprocess(context.Background(), names...)
	require.NoError(t, err)
	require.Len(t, results, len(names))
	for i, res := range results {
		assert.Equal(t, names[i], res.Filename)
		assert.Equal(t, []string{"id", names[i][:1]}, texts(res.Tokens))
	}
}

func TestPreprocessMissingFile(t *testing.T) {
	p := &Preprocessor{Resolver: sourceMap(map[string]string{"a.c": "x"})}
	_, err := p.Preprocess(context.Background(), "a.c", "missing.c")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestPreprocessExpansionFailure(t *testing.T) {
	p := &Preprocessor{
		Resolver: sourceMap(map[string]string{"a.c": "BOOM()"}),
		Macros: map[string]macro.Expander{
			"BOOM": func(*macro.Invocation, []macro.BoxedToken) (any, error) {
				return 1, nil
			},
		},
	}
	_, err := p.Preprocess(context.Background(), "a.c")
	require.ErrorIs(t, err, macro.ErrTypeMismatch)
}

func TestPreprocessTokenPassthrough(t *testing.T) {
	toks := []token.Token{{Kind: token.Ident, Text: "ready"}}
	p := &Preprocessor{
		Resolver: ResolverFunc(func(string) (SearchResult, error) {
			return SearchResult{Tokens: toks}, nil
		}),
	}
	results, err := p.Preprocess(context.Background(), "pre.c")
	require.NoError(t, err)
	assert.Equal(t, toks, results[0].Tokens)
}

func TestPreprocessCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &Preprocessor{Resolver: sourceMap(map[string]string{"a.c": "x"})}
	_, err := p.Preprocess(ctx, "a.c")
	assert.ErrorIs(t, err, context.Canceled)
}
