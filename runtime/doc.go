// Package runtime provides the high-level API of the lua-runtime bridge.
//
// # Quick Start
//
//	s, err := runtime.New(nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	if err := s.DoString(`greeting = "hello, " .. "world"`); err != nil {
//	    log.Fatal(err)
//	}
//
//	v, err := s.GetField(s.Raw().G.Global, "greeting")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(v) // "hello, world"
//
// # Protected Operations
//
// Every operation that can trigger an interpreter-level error (metamethod
// dispatch, concatenation, comparison, collector control, iteration,
// running chunks) is routed through the protected-call dispatcher. A
// failing operation returns a typed error and leaves the stack exactly as
// deep as before the operation began.
//
//	GetTable / SetTable / GetField / SetField
//	Concat / Equal / LessThan / GC / Next / ToString
//	LoadString / LoadFile / DoString / DoFile / CallGlobal / Call
//
// # Host Callbacks
//
// Register Go functions callable from Lua:
//
//	s.Register("divide", func(s *runtime.State) (int, error) {
//	    a := float64(s.Raw().CheckNumber(1))
//	    b := float64(s.Raw().CheckNumber(2))
//	    if b == 0 {
//	        return 0, ErrDivisionByZero
//	    }
//	    s.Push(lua.LNumber(a / b))
//	    return 1, nil
//	})
//
// An error returned from a callback crosses interpreter frames as an
// opaque capture and is returned, by identity, from the protected call
// that entered the interpreter. errors.Is and errors.As against the
// original value succeed at the call site:
//
//	_, err := s.CallGlobal("divide", lua.LNumber(10), lua.LNumber(0))
//	if errors.Is(err, ErrDivisionByZero) { ... }
//
// A *LuaError returned from a callback is re-injected instead: the
// original interpreter error value, captured earlier from a failing call,
// is restored on the interpreter's error channel unchanged.
//
// # Error Taxonomy
//
// Interpreter errors surface as *LuaError. Everything else is a structured
// error from the errors package: memory, syntax, file, errfunc,
// not_string, cross_context, host_panic. Host errors from callbacks are
// the caller's own values and carry whatever type they were thrown with.
//
// # Thread Safety
//
// State is NOT safe for concurrent use. One goroutine per State, or
// external synchronization.
package runtime
