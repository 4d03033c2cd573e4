// Package errors provides structured error types for the lua-runtime bridge.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). Use the Builder for structured construction:
//
//	err := errors.New(errors.PhaseCall, errors.KindMemory).
//		Detail("cannot grow stack by %d slots", 3).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Syntax(cause)
//	err := errors.CrossContext()
//
// All errors implement the standard error interface and support
// errors.Is/As; Is matches on Phase and Kind.
//
// Interpreter-originated error values are represented by runtime.LuaError
// rather than this package: they own a durable reference into interpreter
// memory and carry state identity, which the plain taxonomy does not.
package errors
