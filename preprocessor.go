// Package macroexpand preprocesses C-family source files with macros whose
// expansions are computed by externally supplied callables.
//
// The [Preprocessor] in this package is the batch driver: it resolves file
// names to source text, runs one preprocessing engine per file, and
// collects the resulting token streams. Each file's run is strictly
// sequential internally (macro callables are invoked synchronously, in
// source order), but distinct files are preprocessed concurrently up to
// MaxParallelism.
//
// The engine itself lives in [github.com/preflang/macroexpand/cpp]; the
// callable boundary lives in [github.com/preflang/macroexpand/macro].
package macroexpand

import (
	"context"
	"io"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/preflang/macroexpand/cpp"
	"github.com/preflang/macroexpand/macro"
	"github.com/preflang/macroexpand/reporter"
)

// Preprocessor handles preprocessing tasks, turning source files into
// macro-expanded token streams.
type Preprocessor struct {
	// Resolves file names into source code. This field is the only
	// required field.
	Resolver Resolver
	// The maximum parallelism to use when preprocessing. If unspecified or
	// set to a non-positive value, then min(runtime.NumCPU(),
	// runtime.GOMAXPROCS(-1)) will be used.
	MaxParallelism int
	// A custom error and warning reporter. If unspecified a default
	// reporter is used, which fails on the first error and ignores all
	// warnings.
	Reporter reporter.Reporter

	// Object-like macros defined for every file, in "NAME" or "NAME=body"
	// form.
	Defines []string
	// Function macros defined for every file, by name.
	Macros map[string]macro.Expander
}

// Preprocess preprocesses the given file names into token streams. The
// preprocessor's resolver is used to locate source code for each name.
// Results are returned in the order the files were given. If any file
// fails, the whole call fails.
func (p *Preprocessor) Preprocess(ctx context.Context, files ...string) ([]*cpp.Result, error) {
	if len(files) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	par := p.MaxParallelism
	if par <= 0 {
		par = runtime.GOMAXPROCS(-1)
		cpus := runtime.NumCPU()
		if par > cpus {
			par = cpus
		}
	}

	e := &executor{
		p:       p,
		h:       reporter.NewHandler(p.Reporter),
		s:       semaphore.NewWeighted(int64(par)),
		results: map[string]*result{},
	}

	results := make([]*result, len(files))
	for i, f := range files {
		results[i] = e.preprocess(ctx, f)
	}

	streams := make([]*cpp.Result, len(files))
	for i, r := range results {
		select {
		case <-r.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if r.err != nil {
			return nil, r.err
		}
		streams[i] = r.res
	}

	return streams, nil
}

// newEngine builds a per-file engine carrying the preprocessor's macro
// definitions.
func (p *Preprocessor) newEngine() (*cpp.Preprocessor, error) {
	pp := cpp.New()
	for _, def := range p.Defines {
		if err := pp.Define(def); err != nil {
			return nil, err
		}
	}
	for name, fn := range p.Macros {
		if err := pp.DefineFunc(name, fn); err != nil {
			return nil, err
		}
	}
	return pp, nil
}

type result struct {
	ready chan struct{}
	res   *cpp.Result
	err   error
}

func (r *result) fail(err error) {
	r.err = err
	close(r.ready)
}

func (r *result) complete(res *cpp.Result) {
	r.res = res
	close(r.ready)
}

type executor struct {
	p *Preprocessor
	h *reporter.Handler
	s *semaphore.Weighted

	mu      sync.Mutex
	results map[string]*result
}

func (e *executor) preprocess(ctx context.Context, file string) *result {
	e.mu.Lock()
	defer e.mu.Unlock()
	r := e.results[file]
	if r != nil {
		return r
	}

	r = &result{
		ready: make(chan struct{}),
	}
	e.results[file] = r
	go func() {
		e.doPreprocess(ctx, file, r)
	}()
	return r
}

func (e *executor) doPreprocess(ctx context.Context, file string, r *result) {
	if err := e.s.Acquire(ctx, 1); err != nil {
		r.fail(err)
		return
	}
	defer e.s.Release(1)

	sr, err := e.p.Resolver.FindFileByPath(file)
	if err != nil {
		r.fail(err)
		return
	}

	defer func() {
		// don't leave the source open if it can be closed
		if sr.Source == nil {
			return
		}
		if c, ok := sr.Source.(io.Closer); ok {
			_ = c.Close()
		}
	}()

	if sr.Tokens != nil {
		r.complete(&cpp.Result{Filename: file, Tokens: sr.Tokens})
		return
	}

	pp, err := e.p.newEngine()
	if err != nil {
		r.fail(err)
		return
	}
	res, err := pp.Preprocess(sr.Source, file, e.h)
	if err != nil {
		r.fail(err)
		return
	}
	r.complete(res)
}
