package macroexpand

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/preflang/macroexpand/token"
)

// ErrFileNotFound is returned when a resolver cannot locate the requested
// file.
var ErrFileNotFound = errors.New("file not found")

// Resolver resolves file names into source code or already-preprocessed
// token streams.
type Resolver interface {
	FindFileByPath(string) (SearchResult, error)
}

// SearchResult is what a resolver was able to find or produce for a file.
type SearchResult struct {
	// Only one of the following should be set. If both are, the
	// preprocessor prefers Tokens and skips the run entirely.
	Source io.Reader
	Tokens []token.Token
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(string) (SearchResult, error)

var _ Resolver = ResolverFunc(nil)

func (f ResolverFunc) FindFileByPath(path string) (SearchResult, error) {
	return f(path)
}

// CompositeResolver tries each of its resolvers in order, returning the
// first successful result.
type CompositeResolver []Resolver

var _ Resolver = CompositeResolver(nil)

func (f CompositeResolver) FindFileByPath(path string) (SearchResult, error) {
	if len(f) == 0 {
		return SearchResult{}, ErrFileNotFound
	}
	var firstErr error
	for _, res := range f {
		r, err := res.FindFileByPath(path)
		if err == nil {
			return r, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return SearchResult{}, firstErr
}

// SourceResolver locates source files on disk, optionally searching a list
// of directories.
type SourceResolver struct {
	// Directories to search for the requested path. If empty, the path is
	// opened as given.
	ImportPaths []string
	// Opens a file for the given path. If nil, os.Open is used.
	Accessor func(path string) (io.ReadCloser, error)
}

var _ Resolver = (*SourceResolver)(nil)

func (r *SourceResolver) FindFileByPath(path string) (SearchResult, error) {
	accessor := r.Accessor
	if accessor == nil {
		accessor = func(path string) (io.ReadCloser, error) {
			return os.Open(path)
		}
	}

	if len(r.ImportPaths) == 0 {
		reader, err := accessor(path)
		if err != nil {
			return SearchResult{}, err
		}
		return SearchResult{Source: reader}, nil
	}

	var e error
	for _, importPath := range r.ImportPaths {
		reader, err := accessor(filepath.Join(importPath, path))
		if err != nil {
			if os.IsNotExist(err) {
				e = err
				continue
			}
			return SearchResult{}, err
		}
		return SearchResult{Source: reader}, nil
	}
	if e == nil {
		e = ErrFileNotFound
	}
	return SearchResult{}, e
}
