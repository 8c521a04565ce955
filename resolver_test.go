package macroexpand

import (
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompositeResolver(t *testing.T) {
	var empty CompositeResolver
	_, err := empty.FindFileByPath("a.c")
	assert.ErrorIs(t, err, ErrFileNotFound)

	failErr := errors.New("first resolver failed")
	r := CompositeResolver{
		ResolverFunc(func(string) (SearchResult, error) {
			return SearchResult{}, failErr
		}),
		sourceMap(map[string]string{"a.c": "x"}),
	}

	sr, err := r.FindFileByPath("a.c")
	require.NoError(t, err)
	assert.NotNil(t, sr.Source)

	// when every resolver fails, the first failure wins
	_, err = r.FindFileByPath("missing.c")
	assert.ErrorIs(t, err, failErr)
}

func TestSourceResolverAccessor(t *testing.T) {
	opened := map[string]bool{}
	r := &SourceResolver{
		ImportPaths: []string{"inc", "sys"},
		Accessor: func(path string) (io.ReadCloser, error) {
			opened[path] = true
			if path == "sys/stdio.h" {
				return io.NopCloser(strings.NewReader("int printf;")), nil
			}
			return nil, os.ErrNotExist
		},
	}

	sr, err := r.FindFileByPath("stdio.h")
	require.NoError(t, err)
	assert.NotNil(t, sr.Source)
	assert.True(t, opened["inc/stdio.h"])
	assert.True(t, opened["sys/stdio.h"])

	_, err = r.FindFileByPath("missing.h")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSourceResolverNoImportPaths(t *testing.T) {
	r := &SourceResolver{
		Accessor: func(path string) (io.ReadCloser, error) {
			assert.Equal(t, "exact/path.c", path)
			return io.NopCloser(strings.NewReader("x")), nil
		},
	}
	sr, err := r.FindFileByPath("exact/path.c")
	require.NoError(t, err)
	assert.NotNil(t, sr.Source)
}

func TestSourceResolverDefaultAccessor(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/input.c"
	require.NoError(t, os.WriteFile(path, []byte("int x;"), 0600))

	r := &SourceResolver{}
	sr, err := r.FindFileByPath(path)
	require.NoError(t, err)
	require.NotNil(t, sr.Source)
	data, err := io.ReadAll(sr.Source)
	require.NoError(t, err)
	assert.Equal(t, "int x;", string(data))
	if c, ok := sr.Source.(io.Closer); ok {
		_ = c.Close()
	}
}
