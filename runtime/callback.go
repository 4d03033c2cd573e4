package runtime

import (
	stderrors "errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// Callback is a host function callable from Lua. It reads its arguments
// from the State's stack, pushes its results, and returns the result
// count. A returned error is raised into the interpreter: a *LuaError
// owned by this State restores the original interpreter error value; any
// other error travels through interpreter frames as an opaque capture and
// surfaces, identity intact, at the protected call that invoked the chunk.
type Callback func(*State) (int, error)

// HostPanicError preserves the value of a Go panic that occurred inside a
// Callback. The panic is confined to the callback frame and converted,
// so it never unwinds raw through interpreter frames.
type HostPanicError struct {
	Value any
}

func (e *HostPanicError) Error() string {
	return fmt.Sprintf("panic in host callback: %v", e.Value)
}

// NewFunction wraps cb for the interpreter. The callback record rides as a
// private upvalue of the shared trampoline.
func (s *State) NewFunction(cb Callback) *lua.LFunction {
	return s.NewClosure(cb)
}

// NewClosure wraps cb with bound upvalues, retrievable inside the callback
// via Upvalue. Upvalue slot one is reserved for the callback record.
func (s *State) NewClosure(cb Callback, upvalues ...lua.LValue) *lua.LFunction {
	rec := s.ls.NewUserData()
	rec.Value = cb
	s.ls.SetMetatable(rec, s.recordMT)

	ups := make([]lua.LValue, 0, len(upvalues)+1)
	ups = append(ups, rec)
	ups = append(ups, upvalues...)
	return s.ls.NewClosure(callbackTramp, ups...)
}

// Register installs cb as a global function.
func (s *State) Register(name string, cb Callback) {
	s.ls.SetGlobal(name, s.NewFunction(cb))
}

// Upvalue returns the i-th bound upvalue (1-based) from inside a running
// callback. The record in slot one shifts user upvalues by one.
func (s *State) Upvalue(i int) lua.LValue {
	return s.ls.Get(lua.UpvalueIndex(i + 1))
}

// callbackTramp is the entry point for every host callback the interpreter
// invokes. By the time it signals an error, classification is done and no
// host value in this frame needs cleanup; the raise is then safe to cross
// interpreter frames.
func callbackTramp(L *lua.LState) int {
	s := fromLState(L)
	if s == nil {
		L.RaiseError("lua-runtime: state not registered")
		return 0
	}

	rec, ok := L.Get(lua.UpvalueIndex(1)).(*lua.LUserData)
	if !ok {
		L.RaiseError("lua-runtime: callback record missing")
		return 0
	}
	cb, ok := rec.Value.(Callback)
	if !ok {
		L.RaiseError("lua-runtime: callback record corrupted")
		return 0
	}

	n, err := invoke(s, cb)
	if err == nil {
		return n
	}

	var le *LuaError
	if stderrors.As(err, &le) && le.owner == s {
		if v, verr := le.Value(s); verr == nil {
			// A caught interpreter error deliberately re-thrown by host
			// code: restore the original value on the error channel.
			L.Error(v, 0)
		}
	}

	capture := L.NewUserData()
	capture.Value = err
	L.SetMetatable(capture, s.captureMT)
	L.Error(capture, 0)
	return 0
}

// invoke runs cb, converting a Go panic into a HostPanicError so it cannot
// unwind raw through interpreter frames. A deliberate interpreter raise
// from inside the callback (RaiseError and friends) is passed through.
func invoke(s *State, cb Callback) (n int, err error) {
	defer func() {
		rcv := recover()
		if rcv == nil {
			return
		}
		if apiErr, ok := rcv.(*lua.ApiError); ok {
			panic(apiErr)
		}
		err = &HostPanicError{Value: rcv}
	}()
	return cb(s)
}
