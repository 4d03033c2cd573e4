package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseSetup    Phase = "setup"    // state construction
	PhaseCall     Phase = "call"     // protected call dispatch
	PhaseCompile  Phase = "compile"  // chunk compilation
	PhaseCallback Phase = "callback" // host callback invocation
	PhaseTeardown Phase = "teardown" // state destruction
)

// Kind categorizes the error
type Kind string

const (
	KindMemory       Kind = "memory"        // stack or registry exhaustion
	KindRuntime      Kind = "runtime"       // generic interpreter error
	KindSyntax       Kind = "syntax"        // malformed source
	KindFile         Kind = "file"          // chunk file access failure
	KindErrFunc      Kind = "errfunc"       // error inside an error handler
	KindNotString    Kind = "not_string"    // value has no string form
	KindCrossContext Kind = "cross_context" // error moved between states
	KindHostPanic    Kind = "host_panic"    // Go panic inside a callback
	KindInvalidInput Kind = "invalid_input"
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Memory creates a memory exhaustion error. It is never wrapped around an
// interpreter error value: when memory is gone, no registry slot can be
// assumed allocatable to hold one.
func Memory(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindMemory,
		Detail: detail,
	}
}

// Syntax creates a compilation syntax error
func Syntax(cause error) *Error {
	return &Error{
		Phase:  PhaseCompile,
		Kind:   KindSyntax,
		Detail: "malformed source",
		Cause:  cause,
	}
}

// File creates a chunk file access error
func File(cause error) *Error {
	return &Error{
		Phase:  PhaseCompile,
		Kind:   KindFile,
		Detail: "cannot read chunk",
		Cause:  cause,
	}
}

// ErrFunc creates an error-inside-error-handler error
func ErrFunc(cause error) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindErrFunc,
		Detail: "error handler failed",
		Cause:  cause,
	}
}

// NotString creates an error for a value with no string representation
func NotString(typeName string) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindNotString,
		Detail: fmt.Sprintf("%s value has no string representation", typeName),
	}
}

// CrossContext creates an error for moving an interpreter error between
// states. This is a programmer error, not a user-recoverable condition.
func CrossContext() *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindCrossContext,
		Detail: "cannot transfer errors between different lua states",
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
