package reporter

import (
	"sync"

	"github.com/preflang/macroexpand/token"
)

// ErrorReporter is responsible for reporting the given error. If the
// reporter returns a non-nil error, preprocessing will abort with that
// error. If the reporter returns nil, preprocessing will continue, allowing
// the engine to report as many expansion errors as it can find.
type ErrorReporter func(err ErrorWithPos) error

// WarningReporter is responsible for reporting the given warning. Warnings
// do not cause preprocessing to fail, but their details are supplied via an
// error type.
type WarningReporter func(ErrorWithPos)

// Reporter receives errors and warnings as the engine encounters them.
type Reporter interface {
	Error(ErrorWithPos) error
	Warning(ErrorWithPos)
}

// NewReporter creates a new reporter that invokes the given functions on
// error or warning. Either may be nil: a nil error function aborts on the
// first error, and a nil warning function discards warnings.
func NewReporter(errs ErrorReporter, warnings WarningReporter) Reporter {
	return reporterFuncs{errs: errs, warnings: warnings}
}

type reporterFuncs struct {
	errs     ErrorReporter
	warnings WarningReporter
}

func (r reporterFuncs) Error(err ErrorWithPos) error {
	if r.errs == nil {
		return err
	}
	return r.errs(err)
}

func (r reporterFuncs) Warning(err ErrorWithPos) {
	if r.warnings != nil {
		r.warnings(err)
	}
}

// Handler latches the first fatal error returned by its reporter and
// tracks whether any errors at all were reported.
type Handler struct {
	reporter Reporter

	mu           sync.Mutex
	errsReported bool
	err          error
}

// NewHandler creates a new Handler that reports via rep. If rep is nil, a
// default reporter is used that aborts on the first error and discards
// warnings.
func NewHandler(rep Reporter) *Handler {
	if rep == nil {
		rep = NewReporter(nil, nil)
	}
	return &Handler{reporter: rep}
}

// HandleErrorf reports an error with the given position and message. It
// returns the handler's fatal error, if any: a nil return means
// preprocessing may continue.
func (h *Handler) HandleErrorf(pos token.SourcePos, format string, args ...any) error {
	return h.HandleError(Errorf(pos, format, args...))
}

// HandleError reports an error. If the given error is an ErrorWithPos it is
// routed through the configured reporter; otherwise it is treated as fatal
// immediately.
func (h *Handler) HandleError(err error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.err != nil {
		return h.err
	}
	if ewp, ok := err.(ErrorWithPos); ok {
		h.errsReported = true
		err = h.reporter.Error(ewp)
	}
	h.err = err
	return err
}

// HandleWarning reports a warning at the given position.
func (h *Handler) HandleWarning(pos token.SourcePos, err error) {
	// no need for lock; warnings don't interact with mutable fields
	h.reporter.Warning(Error(pos, err))
}

// Error returns the handler's verdict: its fatal error if one was latched,
// ErrFailedExpansion if errors were reported but all swallowed by the
// reporter, and nil otherwise.
func (h *Handler) Error() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.errsReported && h.err == nil {
		return ErrFailedExpansion
	}
	return h.err
}
