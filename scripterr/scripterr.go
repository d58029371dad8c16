// ==============================================================================================
// FILE: scripterr/scripterr.go
// ==============================================================================================
// PACKAGE: scripterr
// PURPOSE: The structured error taxonomy raised by the lexer, compiler and virtual machine.
//          These are not Go errors the host is expected to "handle" in the usual sense - the
//          script language itself has no try/catch, so every one of these is surfaced to the
//          host's error sink and then skips the remainder of the current call frame.
// ==============================================================================================

package scripterr

import "fmt"

// Kind discriminates the top-level category of a structured error.
type Kind string

const (
	KindLexer    Kind = "Lexer"
	KindCompiler Kind = "Compiler"
	KindRuntime  Kind = "Runtime"
)

// RuntimeKind further discriminates KindRuntime errors. Zero value means
// "no specific subkind" (used by Lexer/Compiler errors, and by runtime
// errors that don't map onto one of the named subkinds).
type RuntimeKind string

const (
	RuntimeNone               RuntimeKind = ""
	RuntimeUndefinedIdentifier RuntimeKind = "UndefinedIdentifier"
	RuntimeKeyNotFound        RuntimeKind = "KeyNotFound"
	RuntimeIndexOutOfRange    RuntimeKind = "IndexOutOfRange"
	RuntimeTypeMismatch       RuntimeKind = "TypeMismatch"
	RuntimeTooManyArguments   RuntimeKind = "TooManyArguments"
	RuntimeLimitExceeded      RuntimeKind = "LimitExceeded"
)

// Location is the minimal location interface scripterr depends on, satisfied
// by source.Location. Declared locally to avoid an import cycle between
// scripterr and source (source has no need to know about errors).
type Location interface {
	String() string
	Zero() bool
}

// Error is the single structured error type produced anywhere in the
// pipeline. Exactly one of Kind's three values is set; RuntimeKind is only
// meaningful when Kind == KindRuntime.
type Error struct {
	Kind        Kind
	RuntimeKind RuntimeKind
	Message     string
	Loc         Location
}

func (e *Error) Error() string {
	if e.Loc == nil || e.Loc.Zero() {
		return fmt.Sprintf("%s Error: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s Error: %s [%s]", e.Kind, e.Message, e.Loc.String())
}

// WithLocation returns a copy of e with Loc set, unless Loc is already set.
// The VM's step driver uses this to attach the executing instruction's
// location to a runtime error that was raised without one.
func (e *Error) WithLocation(loc Location) *Error {
	if e.Loc != nil && !e.Loc.Zero() {
		return e
	}
	cp := *e
	cp.Loc = loc
	return &cp
}

// Lexer builds a KindLexer error.
func Lexer(loc Location, format string, args ...any) *Error {
	return &Error{Kind: KindLexer, Message: fmt.Sprintf(format, args...), Loc: loc}
}

// Compiler builds a KindCompiler error.
func Compiler(loc Location, format string, args ...any) *Error {
	return &Error{Kind: KindCompiler, Message: fmt.Sprintf(format, args...), Loc: loc}
}

// Runtime builds a KindRuntime error of the given subkind.
func Runtime(kind RuntimeKind, loc Location, format string, args ...any) *Error {
	return &Error{Kind: KindRuntime, RuntimeKind: kind, Message: fmt.Sprintf(format, args...), Loc: loc}
}

// UndefinedIdentifier is a convenience constructor for the common case.
func UndefinedIdentifier(loc Location, name string) *Error {
	return Runtime(RuntimeUndefinedIdentifier, loc, "%q is undefined", name)
}

// KeyNotFound is a convenience constructor for the common case.
func KeyNotFound(loc Location, key string) *Error {
	return Runtime(RuntimeKeyNotFound, loc, "key %q not found", key)
}

// IndexOutOfRange is a convenience constructor for the common case.
func IndexOutOfRange(loc Location, index, length int) *Error {
	return Runtime(RuntimeIndexOutOfRange, loc, "index %d out of range (length %d)", index, length)
}

// TypeMismatch is a convenience constructor for the common case.
func TypeMismatch(loc Location, format string, args ...any) *Error {
	return Runtime(RuntimeTypeMismatch, loc, format, args...)
}

// TooManyArguments is a convenience constructor for the common case.
func TooManyArguments(loc Location, count, limit int) *Error {
	return Runtime(RuntimeTooManyArguments, loc, "too many arguments: %d exceeds limit %d", count, limit)
}

// LimitExceeded is a convenience constructor for the common case.
func LimitExceeded(loc Location, format string, args ...any) *Error {
	return Runtime(RuntimeLimitExceeded, loc, format, args...)
}
