// Package luaruntime provides an error-safety bridge between Go host code
// and an embedded Lua interpreter (gopher-lua).
//
// gopher-lua signals interpreter errors by panicking with *lua.ApiError and
// recovering inside its protected-call primitive. A raw, unprotected call
// into the interpreter therefore lets that panic unwind through arbitrary
// host frames. This library confines every fallible interpreter operation
// to a minimal trampoline executed under the interpreter's protected call,
// and converts the outcome into typed Go errors at the boundary.
//
// In the other direction, a Go error produced inside a host callback that
// Lua invoked is carried across the interpreter's frames as an opaque,
// tamper-proof userdata capture and handed back at the host call site as
// the original error value. Identity is preserved: errors.Is and errors.As
// against the value the callback returned still succeed, no matter how many
// Lua frames the error crossed.
//
// # Architecture Overview
//
// The library is organized into packages with distinct responsibilities:
//
//	lua-runtime/         Root package with version information
//	├── runtime/         High-level API: State, protected operations,
//	│                    LuaError, host callbacks, chunk compilation
//	├── engine/          Low-level gopher-lua plumbing: registry fields,
//	│                    reference slots, guarded stack pushes, logging
//	├── errors/          Structured error types (phase and kind taxonomy)
//	├── cmd/run/         CLI and interactive REPL
//	└── examples/        Runnable examples
//
// # Quick Start
//
//	s, err := runtime.New(nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	if err := s.DoString(`print("hello")`); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// A State and everything created from it must be used from one goroutine
// at a time. There is no internal locking; this mirrors the single-threaded
// model of the underlying interpreter.
package luaruntime
