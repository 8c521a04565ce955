package macro

import (
	"errors"
	"fmt"

	"github.com/preflang/macroexpand/token"
)

// Sentinel errors classifying the ways a function-macro expansion can fail.
// They are surfaced wrapped in an [ExpansionError] and can be tested for
// with [errors.Is].
var (
	// ErrInvalidBinding indicates a macro was bound to a missing or
	// invalid callable at definition time.
	ErrInvalidBinding = errors.New("invalid macro binding")

	// ErrExternalCall indicates the macro callable itself failed. The
	// callable's own diagnostic is wrapped alongside this sentinel.
	ErrExternalCall = errors.New("macro callable failed")

	// ErrEncoding indicates the callable returned text that is not valid
	// UTF-8.
	ErrEncoding = errors.New("macro callable returned invalid UTF-8")

	// ErrTypeMismatch indicates the callable's result was not one of the
	// accepted shapes, or that an element of a returned sequence was not a
	// boxed token.
	ErrTypeMismatch = errors.New("macro callables must return nothing, text, or a sequence of tokens")

	// ErrAllocation indicates construction of the argument list or a token
	// handle failed. In practice Go surfaces allocation failure by
	// aborting the process, so this sentinel exists for completeness of
	// the error taxonomy rather than for recovery.
	ErrAllocation = errors.New("failed to construct macro argument list")
)

// ExpansionError is the failure of a single function-macro invocation. It
// carries the macro's name and the source location of the invocation site,
// sufficient for a diagnostic pointing at the offending invocation.
//
// The underlying error wraps one of the sentinel errors above.
type ExpansionError struct {
	// The name of the macro whose expansion failed.
	Macro string
	// The source location of the macro invocation.
	Pos token.SourcePos
	// The underlying failure.
	Err error
}

func (e *ExpansionError) Error() string {
	return fmt.Sprintf("%s: macro %s: %v", e.Pos, e.Macro, e.Err)
}

func (e *ExpansionError) Unwrap() error {
	return e.Err
}

// GetPosition implements [reporter.ErrorWithPos].
func (e *ExpansionError) GetPosition() token.SourcePos {
	return e.Pos
}
