// Package reporter contains the types used for reporting errors and
// warnings encountered while preprocessing source files, along with the
// positioned error type those reports carry.
package reporter

import (
	"errors"
	"fmt"

	"github.com/preflang/macroexpand/token"
)

// ErrFailedExpansion is a sentinel error that is returned by calls to
// Preprocessor.Preprocess in the event that expansion errors are
// encountered but the configured ErrorReporter always returns nil.
var ErrFailedExpansion = errors.New("preprocessing failed: macro expansion error")

// ErrorWithPos is an error about a source file that includes information
// about the location in the file that caused the error.
//
// The value of Error() will contain both the SourcePos and the underlying
// error. The value of Unwrap() will only be the underlying error.
type ErrorWithPos interface {
	error
	GetPosition() token.SourcePos
	Unwrap() error
}

// Error creates a new ErrorWithPos from the given error and source position.
func Error(pos token.SourcePos, err error) ErrorWithPos {
	return errorWithSourcePos{pos: pos, underlying: err}
}

// Errorf creates a new ErrorWithPos whose underlying error is created using
// the given message format and arguments (via fmt.Errorf).
func Errorf(pos token.SourcePos, format string, args ...any) ErrorWithPos {
	return errorWithSourcePos{pos: pos, underlying: fmt.Errorf(format, args...)}
}

type errorWithSourcePos struct {
	underlying error
	pos        token.SourcePos
}

func (e errorWithSourcePos) Error() string {
	return fmt.Sprintf("%s: %v", e.pos, e.underlying)
}

func (e errorWithSourcePos) GetPosition() token.SourcePos {
	return e.pos
}

func (e errorWithSourcePos) Unwrap() error {
	return e.underlying
}

var _ ErrorWithPos = errorWithSourcePos{}
